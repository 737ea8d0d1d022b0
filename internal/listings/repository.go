// Package listings implements the marketplace listing domain: storage,
// ownership rules, and the HTTP surface for listing CRUD.
package listings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"bazaar/internal/database"
)

var (
	// ErrListingNotFound is returned when no listing matches the id
	ErrListingNotFound = errors.New("listing not found")
)

// Repository handles all database operations for listings.
// It is ownership-agnostic: authorization is decided by the guard before
// any mutation reaches the repository.
type Repository struct {
	db database.Service
}

// NewRepository creates a new listings repository
func NewRepository(db database.Service) *Repository {
	return &Repository{db: db}
}

// Create inserts a new listing owned by the given user
func (r *Repository) Create(ctx context.Context, userID string, req CreateListingRequest) (*Listing, error) {
	images := req.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return nil, fmt.Errorf("failed to encode images: %w", err)
	}

	query := `
		INSERT INTO listings (user_id, title, description, location, price, category, images, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING id, user_id, title, description, location, price, category, images, created_at, updated_at
	`

	return r.scanListing(r.db.QueryRow(ctx, query,
		userID, req.Title, req.Description, req.Location, *req.Price, req.Category, imagesJSON))
}

// GetByID retrieves a single listing by id
func (r *Repository) GetByID(ctx context.Context, id int64) (*Listing, error) {
	query := `
		SELECT id, user_id, title, description, location, price, category, images, created_at, updated_at
		FROM listings
		WHERE id = $1
	`

	listing, err := r.scanListing(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	return listing, err
}

// GetAll retrieves listings ordered newest first, with offset pagination
func (r *Repository) GetAll(ctx context.Context, page, pageSize int) ([]Listing, int64, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM listings`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}

	// The secondary id sort keeps the order stable when listings share a
	// creation timestamp, so paginating yields each row exactly once.
	query := `
		SELECT id, user_id, title, description, location, price, category, images, created_at, updated_at
		FROM listings
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`

	items, err := r.queryListings(ctx, query, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// GetByUser retrieves the listings owned by a user, newest first
func (r *Repository) GetByUser(ctx context.Context, userID string, page, pageSize int) ([]Listing, int64, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM listings WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count user listings: %w", err)
	}

	query := `
		SELECT id, user_id, title, description, location, price, category, images, created_at, updated_at
		FROM listings
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	items, err := r.queryListings(ctx, query, userID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Update applies a partial update. Fields absent from the request are left
// unchanged; the owner column is never touched.
func (r *Repository) Update(ctx context.Context, id int64, req UpdateListingRequest) (*Listing, error) {
	set := []string{}
	args := []any{}
	argPos := 1

	addField := func(column string, value any) {
		set = append(set, fmt.Sprintf("%s = $%d", column, argPos))
		args = append(args, value)
		argPos++
	}

	if req.Title != nil {
		addField("title", *req.Title)
	}
	if req.Description != nil {
		addField("description", *req.Description)
	}
	if req.Location != nil {
		addField("location", *req.Location)
	}
	if req.Price != nil {
		addField("price", *req.Price)
	}
	if req.Category != nil {
		addField("category", *req.Category)
	}
	if req.Images != nil {
		imagesJSON, err := json.Marshal(*req.Images)
		if err != nil {
			return nil, fmt.Errorf("failed to encode images: %w", err)
		}
		addField("images", imagesJSON)
	}

	if len(set) == 0 {
		// Nothing to change
		return r.GetByID(ctx, id)
	}

	query := fmt.Sprintf(`
		UPDATE listings
		SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING id, user_id, title, description, location, price, category, images, created_at, updated_at
	`, strings.Join(set, ", "), argPos)
	args = append(args, id)

	listing, err := r.scanListing(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrListingNotFound
	}
	return listing, err
}

// Delete removes a listing
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrListingNotFound
	}
	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *Repository) scanListing(row rowScanner) (*Listing, error) {
	listing := &Listing{}
	var imagesJSON []byte

	err := row.Scan(
		&listing.ID,
		&listing.UserID,
		&listing.Title,
		&listing.Description,
		&listing.Location,
		&listing.Price,
		&listing.Category,
		&imagesJSON,
		&listing.CreatedAt,
		&listing.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to scan listing: %w", err)
	}

	if err := json.Unmarshal(imagesJSON, &listing.Images); err != nil {
		return nil, fmt.Errorf("failed to decode images: %w", err)
	}
	return listing, nil
}

func (r *Repository) queryListings(ctx context.Context, query string, args ...any) ([]Listing, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		slog.Error("Error querying listings", "error", err)
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer rows.Close()

	items := []Listing{}
	for rows.Next() {
		listing, err := r.scanListing(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *listing)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate listings: %w", err)
	}
	return items, nil
}
