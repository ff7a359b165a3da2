package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

const defaultPerplexityURL = "https://api.perplexity.ai/chat/completions"

var urlPattern = regexp.MustCompile(`https?://[^\s)\]>"']+`)

// Perplexity is the adapter for the Perplexity chat-completions search API.
type Perplexity struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// PerplexityOption configures the adapter.
type PerplexityOption func(*Perplexity)

// WithPerplexityBaseURL overrides the API endpoint (used by tests).
func WithPerplexityBaseURL(u string) PerplexityOption {
	return func(p *Perplexity) { p.baseURL = u }
}

// NewPerplexity creates the adapter. An empty apiKey degrades Execute to a
// soft-fail that returns no results.
func NewPerplexity(apiKey string, logger *zap.Logger, opts ...PerplexityOption) *Perplexity {
	p := &Perplexity{
		apiKey:  apiKey,
		baseURL: defaultPerplexityURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider tag.
func (p *Perplexity) Name() models.Provider {
	return models.ProviderPerplexity
}

type perplexityRequest struct {
	Model               string              `json:"model"`
	Messages            []perplexityMessage `json:"messages"`
	Temperature         float64             `json:"temperature"`
	MaxTokens           int                 `json:"max_tokens"`
	ReturnSearchResults bool                `json:"return_search_results"`
	SearchDomainFilter  []string            `json:"search_domain_filter,omitempty"`
	SearchRecencyFilter string              `json:"search_recency_filter,omitempty"`
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	SearchResults []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
		Date    string `json:"date"`
	} `json:"search_results"`
	Citations []string `json:"citations"`
}

// modelFor picks the Perplexity model for a search type: higher capability
// for academic and medical queries, the default online model otherwise.
func modelFor(searchType models.SearchType) string {
	switch searchType {
	case models.SearchTypeAcademic, models.SearchTypeMedical:
		return "sonar-pro"
	default:
		return "sonar"
	}
}

// Execute runs the search. Results are extracted in three tiers because the
// upstream payload shape is not stable: the structured search_results field,
// then the legacy citations field, then bare URLs scraped from the answer
// text with placeholder titles.
func (p *Perplexity) Execute(ctx context.Context, query string, opts models.SearchOptions) ([]models.SearchResult, error) {
	if p.apiKey == "" {
		if p.logger != nil {
			p.logger.Warn("perplexity api key not configured, returning no results")
		}
		return []models.SearchResult{}, nil
	}

	reqBody := perplexityRequest{
		Model: modelFor(opts.SearchType),
		Messages: []perplexityMessage{
			{Role: "system", Content: "You are a search assistant. Answer concisely and cite web sources."},
			{Role: "user", Content: query},
		},
		Temperature:         0.2,
		MaxTokens:           1024,
		ReturnSearchResults: true,
		SearchDomainFilter:  opts.Domains,
	}
	if opts.SearchType == models.SearchTypeNews {
		reqBody.SearchRecencyFilter = "week"
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal perplexity request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &APIError{Provider: p.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Provider: p.Name(), StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var parsed perplexityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &APIError{Provider: p.Name(), Message: fmt.Sprintf("malformed response: %v", err)}
	}

	results := p.extractResults(&parsed)
	if err := validateResults(p.Name(), results); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *Perplexity) extractResults(parsed *perplexityResponse) []models.SearchResult {
	if len(parsed.SearchResults) > 0 {
		results := make([]models.SearchResult, 0, len(parsed.SearchResults))
		for _, sr := range parsed.SearchResults {
			results = append(results, models.SearchResult{
				Title:         orHost(sr.Title, sr.URL),
				URL:           sr.URL,
				Snippet:       sr.Snippet,
				Source:        models.ProviderPerplexity,
				PublishedDate: sr.Date,
			})
		}
		return results
	}

	content := ""
	if len(parsed.Choices) > 0 {
		content = parsed.Choices[0].Message.Content
	}

	if len(parsed.Citations) > 0 {
		results := make([]models.SearchResult, 0, len(parsed.Citations))
		for _, cite := range parsed.Citations {
			results = append(results, models.SearchResult{
				Title:   orHost("", cite),
				URL:     cite,
				Snippet: excerpt(content, 200),
				Source:  models.ProviderPerplexity,
			})
		}
		return results
	}

	// Last resort: scrape bare URLs out of the free-text answer so the
	// caller still gets something linkable instead of an empty page.
	urls := urlPattern.FindAllString(content, -1)
	results := make([]models.SearchResult, 0, len(urls))
	seen := make(map[string]bool)
	for _, u := range urls {
		u = strings.TrimRight(u, ".,;")
		if seen[u] {
			continue
		}
		seen[u] = true
		results = append(results, models.SearchResult{
			Title:   orHost("", u),
			URL:     u,
			Snippet: excerpt(content, 200),
			Source:  models.ProviderPerplexity,
		})
	}
	return results
}

// orHost returns title when set, else a placeholder derived from the URL host.
func orHost(title, rawURL string) string {
	if title != "" {
		return title
	}
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return "Source: " + u.Host
	}
	return rawURL
}

// excerpt returns the first n characters of s, cut at a rune boundary.
func excerpt(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
