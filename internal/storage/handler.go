package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"bazaar/internal/httpx"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	maxFilenameLength = 255
	uploadURLTTL      = 15 * time.Minute
)

// Only image types are accepted for listing photos
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// UploadURLRequest is the request body for POST /files/upload-url
type UploadURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// UploadURLResponse carries the presigned URL and the key to store on the listing
type UploadURLResponse struct {
	UploadURL string `json:"upload_url"`
	FileKey   string `json:"file_key"`
	ExpiresAt int64  `json:"expires_at"`
}

// Handler handles HTTP requests for image uploads
type Handler struct {
	service Service
}

// NewHandler creates a new storage handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// UploadURL handles POST /files/upload-url (auth required). It returns a
// presigned PUT URL plus the object key the client should record in the
// listing's images.
func (h *Handler) UploadURL(c *gin.Context) {
	if h.service == nil {
		httpx.Error(c, http.StatusServiceUnavailable, "image storage is not available")
		return
	}

	var req UploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.ValidationError(c, err)
		return
	}

	if err := validateFilename(req.Filename); err != nil {
		httpx.FieldErrors(c, map[string][]string{"filename": {err.Error()}})
		return
	}
	if !allowedContentTypes[req.ContentType] {
		httpx.FieldErrors(c, map[string][]string{"content_type": {
			fmt.Sprintf("The content type %s is not allowed for listing images.", req.ContentType),
		}})
		return
	}

	fileKey := fmt.Sprintf("%s-%s", uuid.New().String(), req.Filename)

	uploadURL, err := h.service.PresignUpload(c.Request.Context(), fileKey, req.ContentType, uploadURLTTL)
	if err != nil {
		httpx.Error(c, http.StatusInternalServerError, "failed to generate upload URL")
		return
	}

	c.JSON(http.StatusOK, UploadURLResponse{
		UploadURL: uploadURL,
		FileKey:   fileKey,
		ExpiresAt: time.Now().Add(uploadURLTTL).Unix(),
	})
}

func validateFilename(filename string) error {
	if len(filename) > maxFilenameLength {
		return fmt.Errorf("filename too long (max %d characters)", maxFilenameLength)
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return fmt.Errorf("filename contains invalid characters")
	}
	if filepath.Ext(filename) == "" {
		return fmt.Errorf("filename must have an extension")
	}
	return nil
}
