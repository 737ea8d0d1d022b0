// Package token implements opaque bearer token issuance and validation.
// A token is an unguessable random string bound server-side to exactly one
// user identity. Bindings live in Redis and do not expire on their own; they
// are removed by explicit revocation (logout).
// This is a shared infrastructure package used by the API server.
package token

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// tokenBytes is the entropy of an issued token. 32 bytes keeps tokens
// outside brute-force reach while staying short enough for a header.
const tokenBytes = 32

var (
	// ErrInvalidToken is returned for absent, malformed, or revoked tokens.
	// Validation deliberately does not distinguish the three cases.
	ErrInvalidToken = errors.New("invalid token")
)

// Manager defines the interface for token lifecycle operations
type Manager interface {
	Issue(ctx context.Context, identity Identity) (string, error)
	Validate(ctx context.Context, token string) (*Identity, error)
	Revoke(ctx context.Context, token string) error
}

type manager struct {
	store Store
}

// NewManager creates a new token manager backed by the given store
func NewManager(store Store) Manager {
	return &manager{store: store}
}

// Issue generates a new opaque token and durably records the token→identity
// binding. The binding persists until Revoke is called.
func (m *manager) Issue(ctx context.Context, identity Identity) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	tok := hex.EncodeToString(buf)

	if identity.IssuedAt.IsZero() {
		identity.IssuedAt = time.Now()
	}

	data, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal identity: %w", err)
	}

	// TTL 0: the binding never expires on its own
	if err := m.store.Set(ctx, storeKey(tok), string(data), 0); err != nil {
		return "", fmt.Errorf("failed to store token binding: %w", err)
	}

	return tok, nil
}

// Validate resolves a token to the identity it was bound to at issuance.
func (m *manager) Validate(ctx context.Context, tok string) (*Identity, error) {
	if !wellFormed(tok) {
		return nil, ErrInvalidToken
	}

	data, err := m.store.Get(ctx, storeKey(tok))
	if err != nil {
		return nil, ErrInvalidToken
	}

	var identity Identity
	if err := json.Unmarshal([]byte(data), &identity); err != nil {
		return nil, ErrInvalidToken
	}

	return &identity, nil
}

// Revoke removes the token binding. Revoking an unknown or already-revoked
// token is a no-op, not an error.
func (m *manager) Revoke(ctx context.Context, tok string) error {
	if !wellFormed(tok) {
		return nil
	}
	return m.store.Delete(ctx, storeKey(tok))
}

func storeKey(tok string) string {
	return fmt.Sprintf("token:%s", tok)
}

// wellFormed rejects strings that cannot be an issued token before the
// store round trip. The shape check is cheap and keeps junk out of Redis.
func wellFormed(tok string) bool {
	if len(tok) != tokenBytes*2 {
		return false
	}
	_, err := hex.DecodeString(tok)
	return err == nil
}
