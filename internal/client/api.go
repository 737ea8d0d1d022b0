// Package client implements the Go client for the marketplace API: the HTTP
// client itself, the durable session cache, and the polling sync loop that
// keeps a local copy of the listing collection fresh.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"bazaar/internal/auth"
	"bazaar/internal/listings"
	"bazaar/internal/users"
)

// APIError is a structured error response from the server
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

// Client is the marketplace API client. A zero token means anonymous;
// SetToken switches the client to authenticated calls.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates an API client for the given base URL
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// SetToken sets the bearer token attached to protected calls
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the current bearer token
func (c *Client) Token() string {
	return c.token
}

// Register creates an account and returns the issued token plus user summary
func (c *Client) Register(ctx context.Context, name, email, password string) (*auth.RegisterResponse, error) {
	var resp auth.RegisterResponse
	err := c.do(ctx, http.MethodPost, "/register", auth.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and returns the issued token
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp auth.LoginResponse
	err := c.do(ctx, http.MethodPost, "/login", auth.LoginRequest{
		Email:    email,
		Password: password,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// Logout revokes the current token server-side
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Listings fetches one page of the public collection, newest first
func (c *Client) Listings(ctx context.Context, page int) (*listings.ListingsPage, error) {
	var resp listings.ListingsPage
	path := fmt.Sprintf("/listings?page=%d", page)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Listing fetches a single listing by id
func (c *Client) Listing(ctx context.Context, id int64) (*listings.Listing, error) {
	var resp listings.Listing
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/listings/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// MyListings fetches one page of the authenticated user's own listings
func (c *Client) MyListings(ctx context.Context, page int) (*listings.ListingsPage, error) {
	var resp listings.ListingsPage
	path := fmt.Sprintf("/users/me/listings?page=%d", page)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateListing creates a listing owned by the authenticated user
func (c *Client) CreateListing(ctx context.Context, req listings.CreateListingRequest) (*listings.Listing, error) {
	var resp listings.Listing
	if err := c.do(ctx, http.MethodPost, "/listings", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateListing applies a partial update to an owned listing
func (c *Client) UpdateListing(ctx context.Context, id int64, req listings.UpdateListingRequest) (*listings.Listing, error) {
	var resp listings.Listing
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/listings/%d", id), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteListing deletes an owned listing
func (c *Client) DeleteListing(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/listings/%d", id), nil, nil)
}

// UserSummary is a convenience re-export so callers of the client package
// do not need to import the server-side users package directly.
type UserSummary = users.PublicUser

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeAPIError extracts a structured error from a non-2xx response. The
// server uses a few body shapes; all collapse into APIError.
func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apiErr
	}

	var parsed struct {
		Error   string              `json:"error"`
		Message string              `json:"message"`
		Errors  map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return apiErr
	}

	switch {
	case parsed.Message != "":
		apiErr.Message = parsed.Message
	case parsed.Error != "":
		apiErr.Message = parsed.Error
	}
	apiErr.Fields = parsed.Errors

	return apiErr
}
