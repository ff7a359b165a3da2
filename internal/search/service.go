// Package search ties together cache lookup, provider routing, adapter
// invocation, cache writes, and usage telemetry.
//
// Concurrent identical cache misses are not deduplicated: both requests hit
// the upstream provider and converge through the cache's upsert. The
// redundant upstream call is an accepted cost, not a correctness issue.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/cache"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/provider"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/telemetry"
)

const telemetryTimeout = 5 * time.Second

// Service is the search orchestrator.
type Service struct {
	mu       sync.RWMutex
	adapters map[models.Provider]provider.Adapter
	store    cache.Store
	sink     telemetry.Sink
	logger   *zap.Logger
	ttl      time.Duration
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithTTL overrides the cache TTL (default cache.DefaultTTL).
func WithTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) { s.ttl = ttl }
}

// NewService creates the orchestrator with the given adapters and
// dependencies. sink may be a telemetry.NopSink when telemetry is disabled.
func NewService(
	adapters []provider.Adapter,
	store cache.Store,
	sink telemetry.Sink,
	logger *zap.Logger,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		adapters: make(map[models.Provider]provider.Adapter, len(adapters)),
		store:    store,
		sink:     sink,
		logger:   logger,
		ttl:      cache.DefaultTTL,
	}
	for _, a := range adapters {
		s.adapters[a.Name()] = a
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReplaceAdapters swaps the adapter set. Used by config hot-reload when
// provider credentials change; in-flight searches keep the adapter they
// already resolved.
func (s *Service) ReplaceAdapters(adapters []provider.Adapter) {
	next := make(map[models.Provider]provider.Adapter, len(adapters))
	for _, a := range adapters {
		next[a.Name()] = a
	}
	s.mu.Lock()
	s.adapters = next
	s.mu.Unlock()
}

// Search serves a query from the cache when a live entry exists, otherwise
// routes to a provider, executes it, caches the fresh response, and returns
// it. Adapter hard-fails propagate; cache write failures never do.
func (s *Service) Search(ctx context.Context, query string, opts models.SearchOptions) (*models.SearchResponse, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	opts.Normalize()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	key := cache.Key(query, opts)

	cached, err := s.store.Get(ctx, key)
	if err != nil && err != cache.ErrNotFound {
		// Read errors degrade to a miss; the cache is an optimization.
		s.logger.Warn("cache read failed", zap.String("cache_key", key), zap.Error(err))
	}
	if err == nil {
		cached.IsCached = true
		s.recordEvent(query, opts, sourceOf(cached.Results), len(cached.Results), true)
		s.logger.Debug("cache hit", zap.String("query", query), zap.String("cache_key", key))
		return cached, nil
	}

	selected := provider.SelectProvider(query, opts.SearchType, opts.ForceDeepResearch)
	s.mu.RLock()
	adapter, ok := s.adapters[selected]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no adapter registered for provider %q", selected)
	}

	start := time.Now()
	results, err := adapter.Execute(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	if len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}

	resp := &models.SearchResponse{
		Query:            query,
		Results:          results,
		TotalResults:     len(results),
		SearchType:       opts.SearchType,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
		IsCached:         false,
	}

	// The provider stamped on the cache row is the one that actually
	// produced the results, which may differ from the routed one after a
	// fallback chain.
	used := sourceOf(results)
	if used == "" {
		used = selected
	}
	if err := s.store.Put(ctx, key, resp, used, s.ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("cache_key", key), zap.Error(err))
	}

	s.recordEvent(query, opts, used, len(results), false)
	s.logger.Debug("search completed",
		zap.String("query", query),
		zap.String("provider", string(used)),
		zap.Int("results", len(results)),
		zap.Int64("processing_ms", resp.ProcessingTimeMs),
	)
	return resp, nil
}

// recordEvent fires telemetry without blocking the request path. The write
// gets its own context so it survives the caller returning.
func (s *Service) recordEvent(query string, opts models.SearchOptions, p models.Provider, count int, cached bool) {
	ev := telemetry.Event{
		Query:        query,
		SearchType:   opts.SearchType,
		Provider:     p,
		ResultsCount: count,
		Cached:       cached,
		UserID:       opts.UserID,
		SessionID:    opts.SessionID,
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Warn("telemetry panic recovered", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), telemetryTimeout)
		defer cancel()
		if err := s.sink.Record(ctx, ev); err != nil {
			s.logger.Warn("telemetry write failed", zap.Error(err))
		}
	}()
}

// sourceOf returns the provider tag of the first result, or empty for an
// empty result set.
func sourceOf(results []models.SearchResult) models.Provider {
	if len(results) == 0 {
		return ""
	}
	return results[0].Source
}
