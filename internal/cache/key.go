package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/rickoslyder/DentistryExplained-sub002/internal/models"
)

// Key derives the deterministic cache key for a query and its options.
// Identity fields (UserID, SessionID) are excluded so two users issuing the
// same query with the same filters share one cached artifact. Options must
// be normalized before key derivation.
func Key(query string, opts models.SearchOptions) string {
	var b strings.Builder
	b.WriteString(query)
	b.WriteByte('\n')
	fmt.Fprintf(&b, "max=%d\n", opts.MaxResults)
	fmt.Fprintf(&b, "type=%s\n", opts.SearchType)
	if opts.DateRange != nil {
		fmt.Fprintf(&b, "from=%s\nto=%s\n", opts.DateRange.From, opts.DateRange.To)
	}
	writeSorted(&b, "domains", opts.Domains)
	writeSorted(&b, "exclude", opts.ExcludeDomains)
	fmt.Fprintf(&b, "deep=%t\n", opts.ForceDeepResearch)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// writeSorted appends a labeled, order-independent domain list so that
// equivalent allow/deny lists derive the same key.
func writeSorted(b *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	sorted := make([]string, len(values))
	copy(sorted, values)
	sort.Strings(sorted)
	fmt.Fprintf(b, "%s=%s\n", label, strings.Join(sorted, ","))
}
