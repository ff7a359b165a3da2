// Package models defines the normalized search schema shared by all providers.
package models

import "fmt"

// Provider identifies the upstream search backend that produced a result.
type Provider string

const (
	ProviderPerplexity   Provider = "perplexity"
	ProviderExa          Provider = "exa"
	ProviderDeepResearch Provider = "deep-research"
)

// Valid reports whether p is a known provider tag.
func (p Provider) Valid() bool {
	switch p {
	case ProviderPerplexity, ProviderExa, ProviderDeepResearch:
		return true
	}
	return false
}

// SearchType expresses caller intent, not provider identity.
type SearchType string

const (
	SearchTypeGeneral  SearchType = "general"
	SearchTypeMedical  SearchType = "medical"
	SearchTypeNews     SearchType = "news"
	SearchTypeAcademic SearchType = "academic"
)

// Valid reports whether t is a known search type.
func (t SearchType) Valid() bool {
	switch t {
	case SearchTypeGeneral, SearchTypeMedical, SearchTypeNews, SearchTypeAcademic:
		return true
	}
	return false
}

// SearchResult is one normalized hit. Source is always the adapter that
// produced it, even after a fallback chain.
type SearchResult struct {
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Snippet        string   `json:"snippet"`
	Source         Provider `json:"source"`
	RelevanceScore *float64 `json:"relevance_score,omitempty"`
	PublishedDate  string   `json:"published_date,omitempty"`
	// Citations is only populated by the deep-research provider.
	Citations []string `json:"citations,omitempty"`
}

// Validate checks the fields every adapter must fill in. Adapters run this
// at their boundary so provider-specific shapes cannot leak downstream.
func (r *SearchResult) Validate() error {
	if r.Title == "" {
		return fmt.Errorf("result missing title")
	}
	if r.URL == "" {
		return fmt.Errorf("result missing url")
	}
	if !r.Source.Valid() {
		return fmt.Errorf("result has unknown source %q", r.Source)
	}
	return nil
}

// SearchResponse is the unit returned to every caller and persisted in the
// cache. Results keep provider rank order.
type SearchResponse struct {
	Query        string         `json:"query"`
	Results      []SearchResult `json:"results"`
	TotalResults int            `json:"total_results"`
	SearchType   SearchType     `json:"search_type"`
	// ProcessingTimeMs is the time spent producing a fresh response. A cache
	// hit carries the original fresh-computation time, not the lookup time.
	ProcessingTimeMs int64 `json:"processing_time_ms"`
	// IsCached is set by the orchestrator, never by an adapter.
	IsCached bool `json:"is_cached"`
}
