package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"bazaar/internal/httpx"
	"bazaar/internal/users"

	"github.com/gin-gonic/gin"
)

// Handler handles authentication HTTP requests
type Handler struct {
	service Service
}

// NewHandler creates a new authentication handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register handles POST /register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.ValidationError(c, err)
		return
	}

	user, tok, err := h.service.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, users.ErrEmailExists) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "email_taken",
				"message": "This email is already registered",
				"field":   "email",
			})
			return
		}
		slog.Error("Failed to register user", "email", req.Email, "error", err)
		httpx.Error(c, http.StatusInternalServerError, "failed to register")
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		AccessToken: tok,
		User:        user.Public(),
	})
}

// Login handles POST /login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.ValidationError(c, err)
		return
	}

	tok, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Error(c, http.StatusUnauthorized, "invalid email or password")
			return
		}
		slog.Error("Failed to log in user", "email", req.Email, "error", err)
		httpx.Error(c, http.StatusInternalServerError, "failed to log in")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{AccessToken: tok})
}

// Logout handles POST /logout (auth required). The token presented on this
// request is revoked server-side; the client clears its own storage.
func (h *Handler) Logout(c *gin.Context) {
	tok, ok := httpx.BearerToken(c)
	if !ok {
		httpx.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	if err := h.service.Logout(c.Request.Context(), tok); err != nil {
		slog.Error("Failed to revoke token on logout", "error", err)
		httpx.Error(c, http.StatusInternalServerError, "failed to log out")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}
