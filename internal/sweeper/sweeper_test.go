package sweeper

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/cache"
	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

// blockingStore wraps a real store and optionally holds SweepExpired until
// released, to exercise the overlap guard.
type blockingStore struct {
	cache.Store
	mu      sync.Mutex
	sweeps  int
	release chan struct{}
}

func (b *blockingStore) SweepExpired(ctx context.Context) (int64, error) {
	b.mu.Lock()
	b.sweeps++
	b.mu.Unlock()
	if b.release != nil {
		<-b.release
	}
	return b.Store.SweepExpired(ctx)
}

func (b *blockingStore) sweepCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sweeps
}

func newStore(t *testing.T) *cache.SQLiteStore {
	t.Helper()
	store, err := cache.NewSQLiteStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNew_RejectsBadSchedule(t *testing.T) {
	if _, err := New(newStore(t), "not a schedule", zap.NewNop()); err == nil {
		t.Error("expected error for invalid cron expression")
	}
	if _, err := New(newStore(t), "", zap.NewNop()); err != nil {
		t.Errorf("empty schedule should default to hourly: %v", err)
	}
}

func TestSweeper_SweepRemovesExpired(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	resp := &models.SearchResponse{Query: "q", SearchType: models.SearchTypeGeneral}
	_ = store.Put(ctx, "dead", resp, models.ProviderExa, -time.Hour)
	_ = store.Put(ctx, "live", resp, models.ProviderExa, time.Hour)

	s, err := New(store, "@hourly", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	s.Sweep(ctx)

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries != 1 {
		t.Errorf("expected 1 entry after sweep, got %d", stats.TotalEntries)
	}
}

func TestSweeper_OverlappingSweepIsNoOp(t *testing.T) {
	inner := newStore(t)
	store := &blockingStore{Store: inner, release: make(chan struct{})}
	s, err := New(store, "@hourly", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Sweep(ctx)
	}()

	// Wait for the first sweep to be holding the lock.
	deadline := time.After(2 * time.Second)
	for store.sweepCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("first sweep never started")
		case <-time.After(5 * time.Millisecond):
		}
	}

	s.Sweep(ctx) // must return immediately without a second store call
	if got := store.sweepCount(); got != 1 {
		t.Errorf("overlapping sweep invoked the store %d times", got)
	}

	close(store.release)
	wg.Wait()
}

func TestSweeper_StopTerminatesLoop(t *testing.T) {
	s, err := New(newStore(t), "@every 1h", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	s.Stop()
	s.Stop() // idempotent
}
