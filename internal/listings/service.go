package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// PageSize is the fixed page size for the public listing collection.
const PageSize = 10

const (
	listingCacheTTL = 5 * time.Minute
	pageCacheTTL    = 2 * time.Minute
)

// ListingStore is the persistence surface the service needs. *Repository is
// the production implementation.
type ListingStore interface {
	Create(ctx context.Context, userID string, req CreateListingRequest) (*Listing, error)
	GetByID(ctx context.Context, id int64) (*Listing, error)
	GetAll(ctx context.Context, page, pageSize int) ([]Listing, int64, error)
	GetByUser(ctx context.Context, userID string, page, pageSize int) ([]Listing, int64, error)
	Update(ctx context.Context, id int64, req UpdateListingRequest) (*Listing, error)
	Delete(ctx context.Context, id int64) error
}

// Service applies ownership rules and read caching on top of the repository.
type Service struct {
	repo  ListingStore
	cache *redis.Client
}

// NewService creates a listings service with a Redis read cache. If Redis is
// unreachable the service still works, just without caching.
func NewService(repo ListingStore, redisAddr, redisPassword string, redisDB int) *Service {
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       redisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis connection failed, listing cache disabled", "error", err)
		rdb = nil
	}

	return &Service{repo: repo, cache: rdb}
}

// NewServiceWithoutCache creates a listings service with caching disabled.
// Used by tests that exercise repository behavior directly.
func NewServiceWithoutCache(repo ListingStore) *Service {
	return &Service{repo: repo}
}

// Create stores a new listing owned by the caller
func (s *Service) Create(ctx context.Context, userID string, req CreateListingRequest) (*Listing, error) {
	listing, err := s.repo.Create(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	s.invalidatePages(ctx)
	s.invalidateUserPages(ctx, userID)
	return listing, nil
}

// Get retrieves a listing by id, consulting the cache first
func (s *Service) Get(ctx context.Context, id int64) (*Listing, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, listingKey(id)).Result(); err == nil {
			var listing Listing
			if err := json.Unmarshal([]byte(cached), &listing); err == nil {
				return &listing, nil
			}
		}
	}

	listing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(listing); err == nil {
			s.cache.Set(ctx, listingKey(id), data, listingCacheTTL)
		}
	}
	return listing, nil
}

// List retrieves one page of the public collection, newest first
func (s *Service) List(ctx context.Context, page int) (*ListingsPage, error) {
	if page < 1 {
		page = 1
	}

	key := pageKey(page)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var resp ListingsPage
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	items, total, err := s.repo.GetAll(ctx, page, PageSize)
	if err != nil {
		return nil, err
	}

	resp := &ListingsPage{
		Data: items,
		Meta: PageMeta{Total: total, Page: page, PageSize: PageSize},
	}

	if s.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.cache.Set(ctx, key, data, pageCacheTTL)
		}
	}
	return resp, nil
}

// ListByUser retrieves one page of a user's own listings
func (s *Service) ListByUser(ctx context.Context, userID string, page int) (*ListingsPage, error) {
	if page < 1 {
		page = 1
	}

	key := userPageKey(userID, page)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
			var resp ListingsPage
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				return &resp, nil
			}
		}
	}

	items, total, err := s.repo.GetByUser(ctx, userID, page, PageSize)
	if err != nil {
		return nil, err
	}

	resp := &ListingsPage{
		Data: items,
		Meta: PageMeta{Total: total, Page: page, PageSize: PageSize},
	}

	if s.cache != nil {
		if data, err := json.Marshal(resp); err == nil {
			s.cache.Set(ctx, key, data, pageCacheTTL)
		}
	}
	return resp, nil
}

// Update applies a partial update after checking ownership. Returns
// ErrListingNotFound for unknown ids and ErrNotOwner when the caller does
// not own the listing.
func (s *Service) Update(ctx context.Context, id int64, actorID string, req UpdateListingRequest) (*Listing, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanMutate(actorID, existing) {
		return nil, ErrNotOwner
	}

	// Field validation comes after the ownership decision: a non-owner gets
	// 403 even when the payload is also invalid.
	if fieldErrors := req.Validate(); fieldErrors != nil {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	listing, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.invalidateListing(ctx, id)
	s.invalidatePages(ctx)
	s.invalidateUserPages(ctx, existing.UserID)
	return listing, nil
}

// Delete removes a listing after checking ownership
func (s *Service) Delete(ctx context.Context, id int64, actorID string) error {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !CanMutate(actorID, existing) {
		return ErrNotOwner
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidateListing(ctx, id)
	s.invalidatePages(ctx)
	s.invalidateUserPages(ctx, existing.UserID)
	return nil
}

func listingKey(id int64) string {
	return fmt.Sprintf("listing:%d", id)
}

func pageKey(page int) string {
	return fmt.Sprintf("listings:page:%d", page)
}

func userPageKey(userID string, page int) string {
	return fmt.Sprintf("listings:user:%s:page:%d", userID, page)
}

func (s *Service) invalidateListing(ctx context.Context, id int64) {
	if s.cache != nil {
		s.cache.Del(ctx, listingKey(id))
	}
}

func (s *Service) invalidatePages(ctx context.Context) {
	if s.cache != nil {
		s.deleteByPattern(ctx, "listings:page:*")
	}
}

func (s *Service) invalidateUserPages(ctx context.Context, userID string) {
	if s.cache != nil {
		s.deleteByPattern(ctx, fmt.Sprintf("listings:user:%s:*", userID))
	}
}

func (s *Service) deleteByPattern(ctx context.Context, pattern string) {
	iter := s.cache.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		s.cache.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		slog.Error("Error scanning cache keys", "pattern", pattern, "error", err)
	}
}
