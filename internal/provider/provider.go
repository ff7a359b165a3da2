// Package provider implements the upstream search adapters and the rule
// router that chooses between them.
//
// Each adapter owns the full translation for one backend: building the
// provider-specific request, calling the endpoint, and normalizing the
// response into models.SearchResult. A missing credential soft-fails (empty
// results, no error); a bad HTTP status or malformed payload hard-fails
// with an *APIError.
package provider

import (
	"context"
	"fmt"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

// Adapter executes a search against one upstream backend.
type Adapter interface {
	// Name returns the provider tag stamped on every result.
	Name() models.Provider
	// Execute runs the search and returns normalized results in provider
	// rank order.
	Execute(ctx context.Context, query string, opts models.SearchOptions) ([]models.SearchResult, error)
}

// APIError is a hard provider failure: the upstream returned a non-success
// status or a payload that does not fit the normalized schema.
type APIError struct {
	Provider   models.Provider
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// validateResults runs boundary validation on every normalized result so a
// provider-specific shape cannot leak past the adapter.
func validateResults(p models.Provider, results []models.SearchResult) error {
	for i := range results {
		if err := results[i].Validate(); err != nil {
			return &APIError{Provider: p, Message: fmt.Sprintf("result %d failed validation: %v", i, err)}
		}
	}
	return nil
}
