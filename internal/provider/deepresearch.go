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

// DeepResearch delegates to an external long-running research service. The
// service is probed via its health endpoint before each call; when it is
// down, the request falls back to the configured adapter (Exa) instead of
// failing outright.
type DeepResearch struct {
	baseURL      string
	authToken    string
	fallback     Adapter
	client       *http.Client
	healthClient *http.Client
	logger       *zap.Logger
}

// NewDeepResearch creates the adapter. An empty baseURL degrades Execute to
// a soft-fail. fallback may be nil, in which case an unhealthy service
// hard-fails.
func NewDeepResearch(baseURL, authToken string, fallback Adapter, logger *zap.Logger) *DeepResearch {
	return &DeepResearch{
		baseURL:   strings.TrimRight(baseURL, "/"),
		authToken: authToken,
		fallback:  fallback,
		// Report generation is slow by nature; the probe is not.
		client:       &http.Client{Timeout: 120 * time.Second},
		healthClient: &http.Client{Timeout: 5 * time.Second},
		logger:       logger,
	}
}

// Name returns the provider tag.
func (d *DeepResearch) Name() models.Provider {
	return models.ProviderDeepResearch
}

type researchRequest struct {
	Topic            string `json:"topic"`
	ReportType       string `json:"report_type"`
	SourcesCount     int    `json:"sources_count"`
	FocusMedical     bool   `json:"focus_medical"`
	IncludeCitations bool   `json:"include_citations"`
}

type researchResponse struct {
	Topic   string `json:"topic"`
	Report  string `json:"report"`
	Sources []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	} `json:"sources"`
	Metadata    map[string]interface{} `json:"metadata"`
	GeneratedAt string                 `json:"generated_at"`
}

// Execute runs a research request, falling back to the secondary adapter
// when the service health probe fails.
func (d *DeepResearch) Execute(ctx context.Context, query string, opts models.SearchOptions) ([]models.SearchResult, error) {
	if d.baseURL == "" {
		if d.logger != nil {
			d.logger.Warn("deep research service not configured, returning no results")
		}
		return []models.SearchResult{}, nil
	}

	if !d.healthy(ctx) {
		if d.fallback != nil {
			if d.logger != nil {
				d.logger.Warn("deep research service unhealthy, falling back",
					zap.String("fallback", string(d.fallback.Name())))
			}
			return d.fallback.Execute(ctx, query, opts)
		}
		return nil, &APIError{Provider: d.Name(), Message: "service unhealthy and no fallback configured"}
	}

	focusMedical := opts.SearchType == models.SearchTypeMedical || opts.SearchType == models.SearchTypeAcademic
	endpoint := d.baseURL + "/research"
	if focusMedical {
		endpoint = d.baseURL + "/research/professional"
	}

	payload, err := json.Marshal(researchRequest{
		Topic:            query,
		ReportType:       "research_report",
		SourcesCount:     opts.MaxResults,
		FocusMedical:     focusMedical,
		IncludeCitations: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal research request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if d.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+d.authToken)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &APIError{Provider: d.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Provider: d.Name(), StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var parsed researchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &APIError{Provider: d.Name(), Message: fmt.Sprintf("malformed response: %v", err)}
	}

	results := make([]models.SearchResult, 0, len(parsed.Sources))
	for i, src := range parsed.Sources {
		// Sources carry no upstream score; assign a synthetic one that
		// decreases with source order so rank survives normalization.
		score := 1.0 - float64(i)*0.05
		if score < 0 {
			score = 0
		}
		snippet := src.Snippet
		if snippet == "" {
			snippet = excerpt(parsed.Report, 200)
		}
		results = append(results, models.SearchResult{
			Title:          orHost(src.Title, src.URL),
			URL:            src.URL,
			Snippet:        snippet,
			Source:         models.ProviderDeepResearch,
			RelevanceScore: &score,
			PublishedDate:  parsed.GeneratedAt,
			Citations:      []string{src.URL},
		})
	}
	if err := validateResults(d.Name(), results); err != nil {
		return nil, err
	}
	return results, nil
}

func (d *DeepResearch) healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := d.healthClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
