// Package sweeper runs the periodic purge of expired cache rows.
package sweeper

import (
	"context"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/cache"
)

// DefaultSchedule fires the sweep hourly.
const DefaultSchedule = "@hourly"

// Sweeper owns the background sweep task. It is created once at process
// start and stopped via context cancel or Stop; it runs regardless of
// request traffic.
type Sweeper struct {
	store    cache.Store
	schedule cronlib.Schedule
	logger   *zap.Logger

	sweepMu  sync.Mutex
	stopOnce sync.Once
	done     chan struct{}
}

// New creates a sweeper. scheduleExpr is a cron expression (standard five
// fields or a descriptor like "@hourly" / "@every 30m"); empty means
// DefaultSchedule.
func New(store cache.Store, scheduleExpr string, logger *zap.Logger) (*Sweeper, error) {
	if scheduleExpr == "" {
		scheduleExpr = DefaultSchedule
	}
	sched, err := cronlib.ParseStandard(scheduleExpr)
	if err != nil {
		return nil, err
	}
	return &Sweeper{
		store:    store,
		schedule: sched,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Start launches the sweep loop. It returns immediately; the loop runs until
// ctx is cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop terminates the sweep loop. Safe to call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

func (s *Sweeper) run(ctx context.Context) {
	for {
		next := s.schedule.Next(time.Now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.done:
			timer.Stop()
			return
		case <-timer.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one purge pass. A pass that fires while a previous one is
// still in flight is a no-op; deletes are idempotent so nothing is lost.
func (s *Sweeper) Sweep(ctx context.Context) {
	if !s.sweepMu.TryLock() {
		s.logger.Debug("sweep already in flight, skipping")
		return
	}
	defer s.sweepMu.Unlock()

	removed, err := s.store.SweepExpired(ctx)
	if err != nil {
		s.logger.Warn("cache sweep failed", zap.Error(err))
		return
	}
	s.logger.Info("cache sweep completed", zap.Int64("removed", removed))
}
