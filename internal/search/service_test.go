package search

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/cache"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/provider"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/telemetry"
)

// stubAdapter counts calls and returns canned results tagged with its name.
type stubAdapter struct {
	name    models.Provider
	results []models.SearchResult
	err     error
	calls   int
}

func (s *stubAdapter) Name() models.Provider { return s.name }

func (s *stubAdapter) Execute(ctx context.Context, query string, opts models.SearchOptions) ([]models.SearchResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// chanSink forwards every event to a channel so tests can wait for the
// fire-and-forget write.
type chanSink struct {
	events chan telemetry.Event
}

func (c *chanSink) Record(ctx context.Context, ev telemetry.Event) error {
	c.events <- ev
	return nil
}

func (c *chanSink) Close() error { return nil }

// failingSink always errors.
type failingSink struct{}

func (failingSink) Record(context.Context, telemetry.Event) error {
	return errors.New("telemetry outage")
}

func (failingSink) Close() error { return nil }

func nResults(p models.Provider, n int) []models.SearchResult {
	results := make([]models.SearchResult, n)
	for i := range results {
		results[i] = models.SearchResult{
			Title:   "Result",
			URL:     "https://example.com",
			Snippet: "snippet",
			Source:  p,
		}
	}
	return results
}

func newTestService(t *testing.T, sink telemetry.Sink, adapters ...provider.Adapter) (*Service, cache.Store) {
	t.Helper()
	store, err := cache.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return NewService(adapters, store, sink, zap.NewNop()), store
}

func TestService_MissThenHit(t *testing.T) {
	perplexity := &stubAdapter{name: models.ProviderPerplexity, results: nResults(models.ProviderPerplexity, 3)}
	sink := &chanSink{events: make(chan telemetry.Event, 4)}
	svc, _ := newTestService(t, sink, perplexity)
	ctx := context.Background()

	first, err := svc.Search(ctx, "NHS filling cost", models.SearchOptions{SearchType: models.SearchTypeGeneral})
	if err != nil {
		t.Fatal(err)
	}
	if first.IsCached {
		t.Error("first call should be fresh")
	}
	if perplexity.calls != 1 {
		t.Fatalf("adapter calls = %d", perplexity.calls)
	}

	second, err := svc.Search(ctx, "NHS filling cost", models.SearchOptions{SearchType: models.SearchTypeGeneral})
	if err != nil {
		t.Fatal(err)
	}
	if !second.IsCached {
		t.Error("second call should be served from cache")
	}
	if perplexity.calls != 1 {
		t.Errorf("second call must not hit upstream, calls = %d", perplexity.calls)
	}
	if len(second.Results) != len(first.Results) {
		t.Errorf("cached results differ: %d vs %d", len(second.Results), len(first.Results))
	}
	if second.ProcessingTimeMs != first.ProcessingTimeMs {
		t.Errorf("cache hit must carry original processing time")
	}

	// The two events are fired from independent goroutines, so arrival
	// order is not guaranteed.
	var sawFresh, sawCached bool
	for i := 0; i < 2; i++ {
		select {
		case ev := <-sink.events:
			if ev.Provider != models.ProviderPerplexity {
				t.Errorf("event provider = %s", ev.Provider)
			}
			if ev.Cached {
				sawCached = true
			} else {
				sawFresh = true
			}
		case <-time.After(2 * time.Second):
			t.Fatal("telemetry event not recorded")
		}
	}
	if !sawFresh || !sawCached {
		t.Errorf("expected one fresh and one cached event, got fresh=%v cached=%v", sawFresh, sawCached)
	}
}

func TestService_IdentityFieldsShareCache(t *testing.T) {
	adapter := &stubAdapter{name: models.ProviderPerplexity, results: nResults(models.ProviderPerplexity, 2)}
	svc, _ := newTestService(t, telemetry.NopSink{}, adapter)
	ctx := context.Background()

	if _, err := svc.Search(ctx, "plaque", models.SearchOptions{UserID: "alice"}); err != nil {
		t.Fatal(err)
	}
	resp, err := svc.Search(ctx, "plaque", models.SearchOptions{UserID: "bob", SessionID: "s2"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.IsCached {
		t.Error("different user, same query should hit the shared cache entry")
	}
	if adapter.calls != 1 {
		t.Errorf("adapter calls = %d", adapter.calls)
	}
}

func TestService_Truncation(t *testing.T) {
	adapter := &stubAdapter{name: models.ProviderPerplexity, results: nResults(models.ProviderPerplexity, 10)}
	svc, _ := newTestService(t, telemetry.NopSink{}, adapter)

	resp, err := svc.Search(context.Background(), "gum health", models.SearchOptions{MaxResults: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 5 || resp.TotalResults != 5 {
		t.Errorf("expected 5 results after truncation, got %d", len(resp.Results))
	}
}

func TestService_AdapterHardFailPropagates(t *testing.T) {
	adapter := &stubAdapter{
		name: models.ProviderPerplexity,
		err:  &provider.APIError{Provider: models.ProviderPerplexity, StatusCode: 500, Message: "upstream down"},
	}
	svc, _ := newTestService(t, telemetry.NopSink{}, adapter)

	_, err := svc.Search(context.Background(), "cost of crowns", models.SearchOptions{})
	var apiErr *provider.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected adapter error to propagate, got %v", err)
	}
}

func TestService_TelemetryFailureIsolated(t *testing.T) {
	adapter := &stubAdapter{name: models.ProviderPerplexity, results: nResults(models.ProviderPerplexity, 2)}
	svc, _ := newTestService(t, failingSink{}, adapter)

	resp, err := svc.Search(context.Background(), "braces price", models.SearchOptions{})
	if err != nil {
		t.Fatalf("telemetry outage must not surface: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("response changed by telemetry failure: %+v", resp)
	}
}

func TestService_ForceDeepResearchRouting(t *testing.T) {
	perplexity := &stubAdapter{name: models.ProviderPerplexity, results: nResults(models.ProviderPerplexity, 1)}
	deep := &stubAdapter{name: models.ProviderDeepResearch, results: nResults(models.ProviderDeepResearch, 1)}
	svc, _ := newTestService(t, telemetry.NopSink{}, perplexity, deep)

	resp, err := svc.Search(context.Background(), "whitening", models.SearchOptions{ForceDeepResearch: true})
	if err != nil {
		t.Fatal(err)
	}
	if deep.calls != 1 || perplexity.calls != 0 {
		t.Errorf("routing ignored force flag: deep=%d perplexity=%d", deep.calls, perplexity.calls)
	}
	if resp.Results[0].Source != models.ProviderDeepResearch {
		t.Errorf("source = %s", resp.Results[0].Source)
	}
}

func TestService_EmptyQuery(t *testing.T) {
	svc, _ := newTestService(t, telemetry.NopSink{})
	if _, err := svc.Search(context.Background(), "", models.SearchOptions{}); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestService_ReplaceAdapters(t *testing.T) {
	old := &stubAdapter{name: models.ProviderPerplexity, results: nResults(models.ProviderPerplexity, 1)}
	svc, _ := newTestService(t, telemetry.NopSink{}, old)

	replacement := &stubAdapter{name: models.ProviderPerplexity, results: nResults(models.ProviderPerplexity, 1)}
	svc.ReplaceAdapters([]provider.Adapter{replacement})

	if _, err := svc.Search(context.Background(), "hygienist", models.SearchOptions{}); err != nil {
		t.Fatal(err)
	}
	if old.calls != 0 || replacement.calls != 1 {
		t.Errorf("swap not applied: old=%d new=%d", old.calls, replacement.calls)
	}
}

func TestService_ExpiredEntryRecomputed(t *testing.T) {
	adapter := &stubAdapter{name: models.ProviderPerplexity, results: nResults(models.ProviderPerplexity, 1)}
	store, err := cache.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	svc := NewService([]provider.Adapter{adapter}, store, telemetry.NopSink{}, zap.NewNop(), WithTTL(-time.Minute))
	ctx := context.Background()

	if _, err := svc.Search(ctx, "sealants", models.SearchOptions{}); err != nil {
		t.Fatal(err)
	}
	resp, err := svc.Search(ctx, "sealants", models.SearchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.IsCached {
		t.Error("expired entry must not be served")
	}
	if adapter.calls != 2 {
		t.Errorf("expected recompute, calls = %d", adapter.calls)
	}
}
