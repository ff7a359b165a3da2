package provider

import (
	"strings"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

// routingRule pairs a predicate with the provider it selects. Rules are
// evaluated top-to-bottom; the first match wins.
type routingRule struct {
	matches  func(query string, searchType models.SearchType, forceDeepResearch bool) bool
	provider models.Provider
}

var routingRules = []routingRule{
	{
		// Explicit deep-research requests.
		matches: func(q string, _ models.SearchType, force bool) bool {
			return force || containsAny(q, "deep research", "comprehensive report")
		},
		provider: models.ProviderDeepResearch,
	},
	{
		// Commercial or time-sensitive queries suit Perplexity's live index.
		matches: func(q string, st models.SearchType, _ bool) bool {
			return st == models.SearchTypeNews ||
				containsAny(q, "price", "cost", "nhs", "news", "latest", "current", "dentist near")
		},
		provider: models.ProviderPerplexity,
	},
	{
		// Research and academic queries suit Exa's neural search.
		matches: func(q string, st models.SearchType, _ bool) bool {
			return st == models.SearchTypeAcademic || st == models.SearchTypeMedical ||
				containsAny(q, "research", "study", "similar", "related", "compare")
		},
		provider: models.ProviderExa,
	},
	{
		matches:  func(string, models.SearchType, bool) bool { return true },
		provider: models.ProviderPerplexity,
	},
}

// SelectProvider picks the provider for a query. Pure and deterministic:
// no state, no I/O, ties broken by rule order.
func SelectProvider(query string, searchType models.SearchType, forceDeepResearch bool) models.Provider {
	q := strings.ToLower(query)
	for _, rule := range routingRules {
		if rule.matches(q, searchType, forceDeepResearch) {
			return rule.provider
		}
	}
	// Unreachable; the last rule always matches.
	return models.ProviderPerplexity
}

func containsAny(s string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}
