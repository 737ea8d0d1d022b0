package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"bazaar/internal/listings"
)

// DefaultSyncInterval is the polling period for the listing collection.
const DefaultSyncInterval = 5 * time.Second

// Fetcher is the slice of the API client the sync loop needs
type Fetcher interface {
	Listings(ctx context.Context, page int) (*listings.ListingsPage, error)
}

// Syncer keeps a local snapshot of the listing collection by polling the
// server at a fixed interval. Each poll replaces the whole snapshot with
// the server's response in arrival order (last response wins). Mutations
// made through the same client should call Refresh so the caller's own
// change is visible without waiting for the next tick.
type Syncer struct {
	api      Fetcher
	interval time.Duration
	onUpdate func([]listings.Listing)

	mu    sync.RWMutex
	items []listings.Listing
}

// NewSyncer creates a sync loop over the given fetcher. onUpdate, if
// non-nil, is invoked with a copy of the snapshot after every successful
// fetch. A non-positive interval falls back to DefaultSyncInterval.
func NewSyncer(api Fetcher, interval time.Duration, onUpdate func([]listings.Listing)) *Syncer {
	if interval <= 0 {
		interval = DefaultSyncInterval
	}
	return &Syncer{
		api:      api,
		interval: interval,
		onUpdate: onUpdate,
	}
}

// Run polls until ctx is cancelled. It fetches once immediately, then on
// every tick. Ticks do not wait for in-flight fetches, so a slow fetch can
// overlap the next one; responses are applied in arrival order. A failed
// poll is logged and the loop keeps going.
func (s *Syncer) Run(ctx context.Context) {
	s.poll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go s.poll(ctx)
		}
	}
}

// Refresh fetches immediately, outside the periodic schedule. Called after
// a successful mutation so the change shows up without waiting for a tick.
func (s *Syncer) Refresh(ctx context.Context) error {
	return s.fetch(ctx)
}

// Snapshot returns a copy of the current local collection
func (s *Syncer) Snapshot() []listings.Listing {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]listings.Listing, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Syncer) poll(ctx context.Context) {
	if err := s.fetch(ctx); err != nil && ctx.Err() == nil {
		slog.Warn("Listing poll failed, will retry on next tick", "error", err)
	}
}

func (s *Syncer) fetch(ctx context.Context) error {
	page, err := s.api.Listings(ctx, 1)
	if err != nil {
		return err
	}

	// A response that lands after teardown is discarded, not applied
	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.mu.Lock()
	s.items = page.Data
	s.mu.Unlock()

	if s.onUpdate != nil {
		s.onUpdate(s.Snapshot())
	}
	return nil
}
