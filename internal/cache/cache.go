// Package cache persists search responses with a TTL and serves repeat
// queries without hitting upstream providers.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

// DefaultTTL is the window a cached response stays live.
const DefaultTTL = 24 * time.Hour

// ErrNotFound is returned by Get when no live entry exists for a key.
// Expired rows count as not found even before they are physically purged.
var ErrNotFound = errors.New("cache entry not found")

// Stats describes the cache for operator introspection.
type Stats struct {
	TotalEntries int64      `json:"total_entries"`
	OldestEntry  *time.Time `json:"oldest_entry,omitempty"`
	NewestEntry  *time.Time `json:"newest_entry,omitempty"`
}

// Store defines the cache persistence operations.
type Store interface {
	// Get returns the stored response for key, or ErrNotFound. The expiry
	// invariant is applied by the store; IsCached is left for the caller.
	Get(ctx context.Context, key string) (*models.SearchResponse, error)
	// Put upserts the response under key with the given TTL. There is at
	// most one live row per key.
	Put(ctx context.Context, key string, resp *models.SearchResponse, provider models.Provider, ttl time.Duration) error
	// SweepExpired deletes all rows past their expiry and returns the count.
	SweepExpired(ctx context.Context) (int64, error)
	// Stats returns entry counts and age bounds.
	Stats(ctx context.Context) (*Stats, error)
	// Clear wipes the cache unconditionally. Maintenance only.
	Clear(ctx context.Context) error

	Close() error
}
