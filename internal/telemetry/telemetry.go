// Package telemetry records search usage events on a best-effort basis.
// Recording failures are logged and swallowed; telemetry must never block
// or fail a search.
package telemetry

import (
	"context"
	"time"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

// Event is one search usage record.
type Event struct {
	ID           string            `json:"id"`
	Query        string            `json:"query"`
	SearchType   models.SearchType `json:"search_type"`
	Provider     models.Provider   `json:"provider"`
	ResultsCount int               `json:"results_count"`
	Cached       bool              `json:"cached"`
	UserID       string            `json:"user_id,omitempty"`
	SessionID    string            `json:"session_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Sink persists usage events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
	Close() error
}

// NopSink discards all events. Used when telemetry is disabled and in tests.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) error { return nil }
func (NopSink) Close() error                        { return nil }
