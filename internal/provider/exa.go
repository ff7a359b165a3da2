package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

const defaultExaURL = "https://api.exa.ai/search"

// medicalDomains seeds the allow-list for academic and medical queries so
// neural search stays on reputable clinical and scientific sources.
var medicalDomains = []string{
	"nhs.uk",
	"nice.org.uk",
	"pubmed.ncbi.nlm.nih.gov",
	"cochranelibrary.com",
	"bmj.com",
	"thelancet.com",
	"nature.com",
}

// Exa is the adapter for the Exa neural search API.
type Exa struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// ExaOption configures the adapter.
type ExaOption func(*Exa)

// WithExaBaseURL overrides the API endpoint (used by tests).
func WithExaBaseURL(u string) ExaOption {
	return func(e *Exa) { e.baseURL = u }
}

// NewExa creates the adapter. An empty apiKey degrades Execute to a
// soft-fail that returns no results.
func NewExa(apiKey string, logger *zap.Logger, opts ...ExaOption) *Exa {
	e := &Exa{
		apiKey:  apiKey,
		baseURL: defaultExaURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the provider tag.
func (e *Exa) Name() models.Provider {
	return models.ProviderExa
}

type exaRequest struct {
	Query              string      `json:"query"`
	NumResults         int         `json:"num_results"`
	UseAutoprompt      bool        `json:"use_autoprompt"`
	Type               string      `json:"type"`
	Contents           exaContents `json:"contents"`
	IncludeDomains     []string    `json:"include_domains,omitempty"`
	ExcludeDomains     []string    `json:"exclude_domains,omitempty"`
	StartPublishedDate string      `json:"start_published_date,omitempty"`
	EndPublishedDate   string      `json:"end_published_date,omitempty"`
}

type exaContents struct {
	Text            bool `json:"text"`
	Highlights      bool `json:"highlights"`
	HighlightScores bool `json:"highlight_scores"`
}

type exaResponse struct {
	Results []struct {
		Title           string    `json:"title"`
		URL             string    `json:"url"`
		PublishedDate   string    `json:"published_date"`
		Score           float64   `json:"score"`
		Text            string    `json:"text"`
		Highlights      []string  `json:"highlights"`
		HighlightScores []float64 `json:"highlight_scores"`
	} `json:"results"`
}

// Execute runs a neural search. For academic and medical queries the fixed
// medical domain allow-list is merged with any caller-supplied domains.
func (e *Exa) Execute(ctx context.Context, query string, opts models.SearchOptions) ([]models.SearchResult, error) {
	if e.apiKey == "" {
		if e.logger != nil {
			e.logger.Warn("exa api key not configured, returning no results")
		}
		return []models.SearchResult{}, nil
	}

	reqBody := exaRequest{
		Query:         query,
		NumResults:    opts.MaxResults,
		UseAutoprompt: true,
		Type:          "neural",
		Contents:      exaContents{Text: true, Highlights: true, HighlightScores: true},
	}
	reqBody.IncludeDomains = e.includeDomains(opts)
	reqBody.ExcludeDomains = opts.ExcludeDomains
	if opts.DateRange != nil {
		reqBody.StartPublishedDate = opts.DateRange.From
		reqBody.EndPublishedDate = opts.DateRange.To
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal exa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &APIError{Provider: e.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Provider: e.Name(), StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var parsed exaResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &APIError{Provider: e.Name(), Message: fmt.Sprintf("malformed response: %v", err)}
	}

	results := make([]models.SearchResult, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		score := r.Score
		results = append(results, models.SearchResult{
			Title:          orHost(r.Title, r.URL),
			URL:            r.URL,
			Snippet:        exaSnippet(r.Highlights, r.HighlightScores, r.Text),
			Source:         models.ProviderExa,
			RelevanceScore: &score,
			PublishedDate:  r.PublishedDate,
		})
	}
	if err := validateResults(e.Name(), results); err != nil {
		return nil, err
	}
	return results, nil
}

// includeDomains merges the medical seed list with caller domains for
// academic/medical searches, deduplicated, caller domains first.
func (e *Exa) includeDomains(opts models.SearchOptions) []string {
	if opts.SearchType != models.SearchTypeAcademic && opts.SearchType != models.SearchTypeMedical {
		return opts.Domains
	}
	seen := make(map[string]bool)
	merged := make([]string, 0, len(opts.Domains)+len(medicalDomains))
	for _, d := range opts.Domains {
		if !seen[d] {
			seen[d] = true
			merged = append(merged, d)
		}
	}
	for _, d := range medicalDomains {
		if !seen[d] {
			seen[d] = true
			merged = append(merged, d)
		}
	}
	return merged
}

// exaSnippet prefers the highest-scored highlight and falls back to a
// truncated body-text excerpt when no highlights exist.
func exaSnippet(highlights []string, scores []float64, text string) string {
	if len(highlights) > 0 {
		best := 0
		for i := range highlights {
			if i < len(scores) && best < len(scores) && scores[i] > scores[best] {
				best = i
			}
		}
		return highlights[best]
	}
	return excerpt(text, 300)
}
