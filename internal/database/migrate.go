package database

import (
	"context"
	"fmt"
)

// schema contains the bootstrap DDL. Statements are idempotent so Migrate
// can run on every startup.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		name          TEXT NOT NULL,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS listings (
		id          BIGSERIAL PRIMARY KEY,
		user_id     UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title       VARCHAR(255) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		location    TEXT NOT NULL,
		price       NUMERIC(12,2) NOT NULL CHECK (price >= 0),
		category    TEXT NOT NULL,
		images      JSONB NOT NULL DEFAULT '[]',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_created_at ON listings (created_at DESC, id DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_listings_user_id ON listings (user_id)`,
}

// Migrate applies the bootstrap schema.
func Migrate(ctx context.Context, db Service) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
