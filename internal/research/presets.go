// Package research provides the specialized query builders used by the
// higher-level research features. Each is a fixed preset of search options
// over the same orchestrator entry point and adds no behavior of its own.
package research

import (
	"context"
	"time"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

// nhsDomains is the allow-list for NHS-specific lookups.
var nhsDomains = []string{"nhs.uk", "nice.org.uk"}

// Searcher is the orchestrator surface the presets consume.
type Searcher interface {
	Search(ctx context.Context, query string, opts models.SearchOptions) (*models.SearchResponse, error)
}

// Client exposes the preset searches.
type Client struct {
	searcher Searcher
}

// NewClient wraps a searcher with the research presets.
func NewClient(s Searcher) *Client {
	return &Client{searcher: s}
}

// SearchDentalResearch runs an academic search over scientific sources.
func (c *Client) SearchDentalResearch(ctx context.Context, query string) (*models.SearchResponse, error) {
	return c.searcher.Search(ctx, query, models.SearchOptions{
		SearchType: models.SearchTypeAcademic,
	})
}

// SearchNHSInfo runs a general search constrained to NHS guidance sites.
func (c *Client) SearchNHSInfo(ctx context.Context, query string) (*models.SearchResponse, error) {
	return c.searcher.Search(ctx, query, models.SearchOptions{
		SearchType: models.SearchTypeGeneral,
		Domains:    nhsDomains,
	})
}

// SearchDentalNews runs a news search limited to the past week.
func (c *Client) SearchDentalNews(ctx context.Context, query string) (*models.SearchResponse, error) {
	weekAgo := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	return c.searcher.Search(ctx, query, models.SearchOptions{
		SearchType: models.SearchTypeNews,
		DateRange:  &models.DateRange{From: weekAgo},
	})
}

// SearchDeepResearch forces the deep-research provider. userID and sessionID
// feed telemetry only; either may be empty.
func (c *Client) SearchDeepResearch(ctx context.Context, query, userID, sessionID string) (*models.SearchResponse, error) {
	return c.searcher.Search(ctx, query, models.SearchOptions{
		SearchType:        models.SearchTypeGeneral,
		ForceDeepResearch: true,
		UserID:            userID,
		SessionID:         sessionID,
	})
}
