package token

import "time"

// Identity is the user binding recorded for an issued token.
type Identity struct {
	UserID   string    `json:"user_id"`
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	IssuedAt time.Time `json:"issued_at"`
}
