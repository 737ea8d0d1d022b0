// Package httpx holds shared HTTP response types and helpers for the API.
package httpx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the generic error body
type ErrorResponse struct {
	Error string `json:"error"`
}

// ValidationErrorResponse carries per-field validation messages
type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// Error responds with a generic error body
func Error(c *gin.Context, status int, message string) {
	c.JSON(status, ErrorResponse{Error: message})
}

// ValidationError maps a gin binding error to a 422 response with per-field
// messages. Non-validator errors (malformed JSON and the like) get a single
// catch-all entry.
func ValidationError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fieldErrors := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			field := strings.ToLower(fe.Field())
			fieldErrors[field] = append(fieldErrors[field], fieldMessage(field, fe))
		}
		FieldErrors(c, fieldErrors)
		return
	}

	c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
		Message: "The given data was invalid.",
		Errors:  map[string][]string{"body": {err.Error()}},
	})
}

// FieldErrors responds 422 with the given per-field messages
func FieldErrors(c *gin.Context, fieldErrors map[string][]string) {
	c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
		Message: "The given data was invalid.",
		Errors:  fieldErrors,
	})
}

// Gin context keys for the authenticated caller, set by the bearer auth
// middleware and read by handlers.
const (
	ContextUserID   = "user_id"
	ContextIdentity = "identity"
	ContextToken    = "access_token"
)

// UserID extracts the authenticated user id from the gin context
func UserID(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextUserID)
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}

// BearerToken extracts the raw bearer token the middleware validated
func BearerToken(c *gin.Context) (string, bool) {
	value, exists := c.Get(ContextToken)
	if !exists {
		return "", false
	}
	tok, ok := value.(string)
	return tok, ok && tok != ""
}

func fieldMessage(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s field must be a valid email address.", field)
	case "max":
		return fmt.Sprintf("The %s field must not be greater than %s characters.", field, fe.Param())
	case "min":
		return fmt.Sprintf("The %s field must be at least %s characters.", field, fe.Param())
	case "gte":
		return fmt.Sprintf("The %s field must be at least %s.", field, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
