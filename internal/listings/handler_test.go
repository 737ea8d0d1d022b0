package listings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"bazaar/internal/httpx"

	"github.com/gin-gonic/gin"
)

// In-memory listing store for handler tests
type memoryStore struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]Listing
}

func newMemoryStore() *memoryStore {
	return &memoryStore{nextID: 1, items: make(map[int64]Listing)}
}

func (m *memoryStore) Create(ctx context.Context, userID string, req CreateListingRequest) (*Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	images := req.Images
	if images == nil {
		images = []string{}
	}
	now := time.Now()
	listing := Listing{
		ID:          m.nextID,
		UserID:      userID,
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		Price:       *req.Price,
		Category:    req.Category,
		Images:      images,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.items[m.nextID] = listing
	m.nextID++
	return &listing, nil
}

func (m *memoryStore) GetByID(ctx context.Context, id int64) (*Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	listing, ok := m.items[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	return &listing, nil
}

func (m *memoryStore) GetAll(ctx context.Context, page, pageSize int) ([]Listing, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := make([]Listing, 0, len(m.items))
	for _, l := range m.items {
		all = append(all, l)
	}
	// Newest first, matching the repository's ordering
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	total := int64(len(all))
	start := (page - 1) * pageSize
	if start >= len(all) {
		return []Listing{}, total, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

func (m *memoryStore) GetByUser(ctx context.Context, userID string, page, pageSize int) ([]Listing, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var mine []Listing
	for _, l := range m.items {
		if l.UserID == userID {
			mine = append(mine, l)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].ID > mine[j].ID })
	return mine, int64(len(mine)), nil
}

func (m *memoryStore) Update(ctx context.Context, id int64, req UpdateListingRequest) (*Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	listing, ok := m.items[id]
	if !ok {
		return nil, ErrListingNotFound
	}
	if req.Title != nil {
		listing.Title = *req.Title
	}
	if req.Description != nil {
		listing.Description = *req.Description
	}
	if req.Location != nil {
		listing.Location = *req.Location
	}
	if req.Price != nil {
		listing.Price = *req.Price
	}
	if req.Category != nil {
		listing.Category = *req.Category
	}
	if req.Images != nil {
		listing.Images = *req.Images
	}
	listing.UpdatedAt = time.Now()
	m.items[id] = listing
	return &listing, nil
}

func (m *memoryStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[id]; !ok {
		return ErrListingNotFound
	}
	delete(m.items, id)
	return nil
}

// setUser stands in for the bearer auth middleware
func setUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(httpx.ContextUserID, userID)
		}
		c.Next()
	}
}

func newTestRouter(store *memoryStore, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewHandler(NewServiceWithoutCache(store))

	r := gin.New()
	r.GET("/listings", handler.List)
	r.GET("/listings/:id", handler.Get)

	protected := r.Group("/")
	protected.Use(setUser(userID))
	protected.POST("/listings", handler.Create)
	protected.PUT("/listings/:id", handler.Update)
	protected.DELETE("/listings/:id", handler.Delete)
	protected.GET("/users/me/listings", handler.ListMine)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func seedListing(t *testing.T, store *memoryStore, userID, title string) *Listing {
	t.Helper()

	price := 15000.0
	listing, err := store.Create(context.Background(), userID, CreateListingRequest{
		Title:    title,
		Location: "Chennai",
		Price:    &price,
		Category: "Furniture",
	})
	if err != nil {
		t.Fatalf("failed to seed listing: %v", err)
	}
	return listing
}

func TestCreateListing(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(store, "user-a")

	price := 15000.0
	w := doJSON(t, r, http.MethodPost, "/listings", CreateListingRequest{
		Title:    "Sofa",
		Location: "Chennai",
		Price:    &price,
		Category: "Furniture",
	})

	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}

	var listing Listing
	if err := json.NewDecoder(w.Body).Decode(&listing); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if listing.UserID != "user-a" {
		t.Errorf("expected owner user-a, got %s", listing.UserID)
	}
	if listing.Title != "Sofa" {
		t.Errorf("expected title Sofa, got %s", listing.Title)
	}
	if listing.Images == nil {
		t.Error("expected images to default to an empty array")
	}
}

func TestCreateListing_Unauthenticated(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(store, "")

	price := 100.0
	w := doJSON(t, r, http.MethodPost, "/listings", CreateListingRequest{
		Title:    "Lamp",
		Location: "Delhi",
		Price:    &price,
		Category: "Decor",
	})

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", w.Code)
	}
}

func TestCreateListing_MissingFields(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(store, "user-a")

	w := doJSON(t, r, http.MethodPost, "/listings", map[string]any{"description": "no title"})

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", w.Code)
	}

	var resp httpx.ValidationErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	for _, field := range []string{"title", "location", "price", "category"} {
		if len(resp.Errors[field]) == 0 {
			t.Errorf("expected an error for field %q, got %v", field, resp.Errors)
		}
	}
}

func TestGetListing_NotFound(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(store, "")

	w := doJSON(t, r, http.MethodGet, "/listings/999", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/listings/not-a-number", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for non-numeric id, got %d", w.Code)
	}
}

func TestListListings_Pagination(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(store, "user-a")

	for i := 0; i < 25; i++ {
		seedListing(t, store, "user-a", fmt.Sprintf("Item %d", i))
	}

	w := doJSON(t, r, http.MethodGet, "/listings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var page ListingsPage
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(page.Data) != PageSize {
		t.Errorf("expected %d items on page 1, got %d", PageSize, len(page.Data))
	}
	if page.Meta.Total != 25 {
		t.Errorf("expected total 25, got %d", page.Meta.Total)
	}
	if page.Meta.Page != 1 || page.Meta.PageSize != PageSize {
		t.Errorf("unexpected meta: %+v", page.Meta)
	}
	// Newest first
	if page.Data[0].Title != "Item 24" {
		t.Errorf("expected newest listing first, got %s", page.Data[0].Title)
	}

	w = doJSON(t, r, http.MethodGet, "/listings?page=3", nil)
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(page.Data) != 5 {
		t.Errorf("expected 5 items on page 3, got %d", len(page.Data))
	}

	// Pages past the end are empty, not errors
	w = doJSON(t, r, http.MethodGet, "/listings?page=99", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200 past the end, got %d", w.Code)
	}
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(page.Data) != 0 {
		t.Errorf("expected empty page past the end, got %d items", len(page.Data))
	}
}

func TestUpdateListing_PartialUpdate(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(store, "user-a")
	listing := seedListing(t, store, "user-a", "Sofa")

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/listings/%d", listing.ID), map[string]any{
		"price": 12000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var updated Listing
	if err := json.NewDecoder(w.Body).Decode(&updated); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if updated.Price != 12000 {
		t.Errorf("expected price 12000, got %f", updated.Price)
	}
	if updated.Title != "Sofa" {
		t.Errorf("expected title to be untouched, got %s", updated.Title)
	}
	if updated.Location != "Chennai" {
		t.Errorf("expected location to be untouched, got %s", updated.Location)
	}
}

func TestUpdateListing_NotOwner(t *testing.T) {
	store := newMemoryStore()
	listing := seedListing(t, store, "user-a", "Sofa")

	r := newTestRouter(store, "user-b")
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/listings/%d", listing.ID), map[string]any{
		"title": "Hijacked",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", w.Code)
	}

	// The listing is untouched
	stored, err := store.GetByID(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("failed to read listing back: %v", err)
	}
	if stored.Title != "Sofa" {
		t.Errorf("expected title Sofa, got %s", stored.Title)
	}
}

func TestUpdateListing_NotOwnerWithInvalidPayload(t *testing.T) {
	store := newMemoryStore()
	listing := seedListing(t, store, "user-a", "Sofa")

	// Ownership is decided before field validation: a non-owner sending an
	// invalid payload still gets 403, not 422.
	r := newTestRouter(store, "user-b")
	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/listings/%d", listing.ID), map[string]any{
		"price": -5,
	})
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", w.Code)
	}
}

func TestUpdateListing_InvalidFields(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(store, "user-a")
	listing := seedListing(t, store, "user-a", "Sofa")

	w := doJSON(t, r, http.MethodPut, fmt.Sprintf("/listings/%d", listing.ID), map[string]any{
		"title": "",
		"price": -5,
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d: %s", w.Code, w.Body.String())
	}

	var resp httpx.ValidationErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Errors["title"]) == 0 || len(resp.Errors["price"]) == 0 {
		t.Errorf("expected errors for title and price, got %v", resp.Errors)
	}
}

func TestUpdateListing_UnknownID(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(store, "user-a")

	// Unknown id is 404 even though the caller could not own it anyway
	w := doJSON(t, r, http.MethodPut, "/listings/999", map[string]any{"title": "x"})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestDeleteListing(t *testing.T) {
	store := newMemoryStore()
	r := newTestRouter(store, "user-a")
	listing := seedListing(t, store, "user-a", "Sofa")

	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/listings/%d", listing.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["message"] != "Listing deleted successfully" {
		t.Errorf("unexpected delete message: %q", resp["message"])
	}

	// Gone afterwards
	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/listings/%d", listing.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", w.Code)
	}
}

func TestDeleteListing_NotOwner(t *testing.T) {
	store := newMemoryStore()
	listing := seedListing(t, store, "user-a", "Sofa")

	r := newTestRouter(store, "user-b")
	w := doJSON(t, r, http.MethodDelete, fmt.Sprintf("/listings/%d", listing.ID), nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", w.Code)
	}
}

func TestListMine_OnlyOwnListings(t *testing.T) {
	store := newMemoryStore()
	seedListing(t, store, "user-a", "Sofa")
	seedListing(t, store, "user-b", "Bike")
	seedListing(t, store, "user-a", "Table")

	r := newTestRouter(store, "user-a")
	w := doJSON(t, r, http.MethodGet, "/users/me/listings", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var page ListingsPage
	if err := json.NewDecoder(w.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(page.Data) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(page.Data))
	}
	for _, l := range page.Data {
		if l.UserID != "user-a" {
			t.Errorf("expected only user-a listings, got owner %s", l.UserID)
		}
	}
}
