package listings

import (
	"errors"
	"net/http"
	"strconv"

	"bazaar/internal/httpx"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for listings
type Handler struct {
	service *Service
}

// NewHandler creates a new listings handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List handles GET /listings?page=N (public)
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	resp, err := h.service.List(c.Request.Context(), page)
	if err != nil {
		httpx.Error(c, http.StatusInternalServerError, "failed to retrieve listings")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Get handles GET /listings/:id (public)
func (h *Handler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Error(c, http.StatusNotFound, "listing not found")
		return
	}

	listing, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrListingNotFound) {
			httpx.Error(c, http.StatusNotFound, "listing not found")
			return
		}
		httpx.Error(c, http.StatusInternalServerError, "failed to retrieve listing")
		return
	}

	c.JSON(http.StatusOK, listing)
}

// ListMine handles GET /users/me/listings (auth required)
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		httpx.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}

	resp, err := h.service.ListByUser(c.Request.Context(), userID, page)
	if err != nil {
		httpx.Error(c, http.StatusInternalServerError, "failed to retrieve listings")
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Create handles POST /listings (auth required)
func (h *Handler) Create(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		httpx.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.ValidationError(c, err)
		return
	}

	listing, err := h.service.Create(c.Request.Context(), userID, req)
	if err != nil {
		httpx.Error(c, http.StatusInternalServerError, "failed to create listing")
		return
	}

	c.JSON(http.StatusCreated, listing)
}

// Update handles PUT /listings/:id (auth required, owner only)
func (h *Handler) Update(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		httpx.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Error(c, http.StatusNotFound, "listing not found")
		return
	}

	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.ValidationError(c, err)
		return
	}

	listing, err := h.service.Update(c.Request.Context(), id, userID, req)
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.Is(err, ErrListingNotFound):
			httpx.Error(c, http.StatusNotFound, "listing not found")
		case errors.Is(err, ErrNotOwner):
			httpx.Error(c, http.StatusForbidden, "you are not authorized to update this listing")
		case errors.As(err, &verr):
			httpx.FieldErrors(c, verr.Fields)
		default:
			httpx.Error(c, http.StatusInternalServerError, "failed to update listing")
		}
		return
	}

	c.JSON(http.StatusOK, listing)
}

// Delete handles DELETE /listings/:id (auth required, owner only)
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := httpx.UserID(c)
	if !ok {
		httpx.Error(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		httpx.Error(c, http.StatusNotFound, "listing not found")
		return
	}

	err = h.service.Delete(c.Request.Context(), id, userID)
	if err != nil {
		switch {
		case errors.Is(err, ErrListingNotFound):
			httpx.Error(c, http.StatusNotFound, "listing not found")
		case errors.Is(err, ErrNotOwner):
			httpx.Error(c, http.StatusForbidden, "you are not authorized to delete this listing")
		default:
			httpx.Error(c, http.StatusInternalServerError, "failed to delete listing")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Listing deleted successfully"})
}
