package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"bazaar/internal/httpx"
	"bazaar/internal/users"

	"github.com/gin-gonic/gin"
)

// Mock auth service for handler tests
type mockAuthService struct {
	registerFunc func(ctx context.Context, name, email, password string) (*users.User, string, error)
	loginFunc    func(ctx context.Context, email, password string) (string, error)
	logoutFunc   func(ctx context.Context, accessToken string) error
}

func (m *mockAuthService) Register(ctx context.Context, name, email, password string) (*users.User, string, error) {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, name, email, password)
	}
	return nil, "", errors.New("not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (string, error) {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, email, password)
	}
	return "", ErrInvalidCredentials
}

func (m *mockAuthService) Logout(ctx context.Context, accessToken string) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, accessToken)
	}
	return nil
}

func newAuthRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(svc)

	r := gin.New()
	r.POST("/register", handler.Register)
	r.POST("/login", handler.Login)
	r.POST("/logout", func(c *gin.Context) {
		// Stand-in for the bearer auth middleware
		if tok := c.GetHeader("Authorization"); tok != "" {
			c.Set(httpx.ContextToken, tok[len("Bearer "):])
		}
		handler.Logout(c)
	})
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterHandler(t *testing.T) {
	svc := &mockAuthService{
		registerFunc: func(ctx context.Context, name, email, password string) (*users.User, string, error) {
			return &users.User{ID: "user-1", Name: name, Email: email}, "issued-token", nil
		},
	}
	r := newAuthRouter(svc)

	w := postJSON(t, r, "/register", RegisterRequest{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "secret-password",
	}, nil)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp RegisterResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AccessToken != "issued-token" {
		t.Errorf("expected access_token in response, got %q", resp.AccessToken)
	}
	if resp.User.ID != "user-1" || resp.User.Email != "alice@example.com" {
		t.Errorf("unexpected user in response: %+v", resp.User)
	}
}

func TestRegisterHandler_ValidationErrors(t *testing.T) {
	r := newAuthRouter(&mockAuthService{})

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing name", map[string]any{"email": "a@b.com", "password": "longenough"}, "name"},
		{"missing email", map[string]any{"name": "A", "password": "longenough"}, "email"},
		{"invalid email", map[string]any{"name": "A", "email": "not-an-email", "password": "longenough"}, "email"},
		{"short password", map[string]any{"name": "A", "email": "a@b.com", "password": "short"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, r, "/register", tt.body, nil)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected status 422, got %d", w.Code)
			}

			var resp httpx.ValidationErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(resp.Errors[tt.field]) == 0 {
				t.Errorf("expected an error for field %q, got %v", tt.field, resp.Errors)
			}
		})
	}
}

func TestRegisterHandler_EmailTaken(t *testing.T) {
	svc := &mockAuthService{
		registerFunc: func(ctx context.Context, name, email, password string) (*users.User, string, error) {
			return nil, "", users.ErrEmailExists
		},
	}
	r := newAuthRouter(svc)

	w := postJSON(t, r, "/register", RegisterRequest{
		Name:     "Alice",
		Email:    "taken@example.com",
		Password: "secret-password",
	}, nil)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "email_taken" || resp["field"] != "email" {
		t.Errorf("unexpected conflict body: %v", resp)
	}
}

func TestLoginHandler(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, email, password string) (string, error) {
			return "issued-token", nil
		},
	}
	r := newAuthRouter(svc)

	w := postJSON(t, r, "/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "secret-password",
	}, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp LoginResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AccessToken != "issued-token" {
		t.Errorf("expected access_token in response, got %q", resp.AccessToken)
	}
}

func TestLoginHandler_InvalidCredentials(t *testing.T) {
	r := newAuthRouter(&mockAuthService{})

	w := postJSON(t, r, "/login", LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	}, nil)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestLogoutHandler(t *testing.T) {
	var revoked string
	svc := &mockAuthService{
		logoutFunc: func(ctx context.Context, accessToken string) error {
			revoked = accessToken
			return nil
		},
	}
	r := newAuthRouter(svc)

	w := postJSON(t, r, "/logout", struct{}{}, map[string]string{
		"Authorization": "Bearer the-token",
	})

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if revoked != "the-token" {
		t.Errorf("expected the-token to be revoked, got %q", revoked)
	}
}

func TestLogoutHandler_NoToken(t *testing.T) {
	r := newAuthRouter(&mockAuthService{})

	w := postJSON(t, r, "/logout", struct{}{}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}
