package auth

import "bazaar/internal/users"

// RegisterRequest is the request payload for POST /register
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// LoginRequest is the request payload for POST /login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is returned after successful registration
type RegisterResponse struct {
	AccessToken string           `json:"access_token"`
	User        users.PublicUser `json:"user"`
}

// LoginResponse is returned after successful login
type LoginResponse struct {
	AccessToken string `json:"access_token"`
}
