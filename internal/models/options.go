package models

import "fmt"

const (
	// DefaultMaxResults is used when a caller does not cap results.
	DefaultMaxResults = 10
	// MaxResultsLimit is the hard cap applied to any request.
	MaxResultsLimit = 50
)

// DateRange restricts results to a publication window. Values are
// ISO 8601 dates (YYYY-MM-DD); either side may be empty.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// SearchOptions are caller-supplied knobs for a search. UserID and SessionID
// are identity fields: they feed telemetry only and never affect the cache
// key or the normalized response.
type SearchOptions struct {
	MaxResults        int        `json:"max_results,omitempty"`
	SearchType        SearchType `json:"search_type,omitempty"`
	DateRange         *DateRange `json:"date_range,omitempty"`
	Domains           []string   `json:"domains,omitempty"`
	ExcludeDomains    []string   `json:"exclude_domains,omitempty"`
	ForceDeepResearch bool       `json:"force_deep_research,omitempty"`
	UserID            string     `json:"user_id,omitempty"`
	SessionID         string     `json:"session_id,omitempty"`
}

// Normalize fills defaults and clamps out-of-range fields in place.
func (o *SearchOptions) Normalize() {
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.MaxResults > MaxResultsLimit {
		o.MaxResults = MaxResultsLimit
	}
	if o.SearchType == "" {
		o.SearchType = SearchTypeGeneral
	}
}

// Validate checks the options after normalization.
func (o *SearchOptions) Validate() error {
	if !o.SearchType.Valid() {
		return fmt.Errorf("unknown search type %q", o.SearchType)
	}
	return nil
}
