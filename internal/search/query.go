package search

import (
	"strings"

	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// IntentClause is appended to queries that carry no intent keyword.
const IntentClause = `(tips OR guide OR "how to")`

var intentKeywords = []string{"tip", "guide", "how to", "mistakes", "things to know"}

// DefaultExcludeTerms are always excluded as quoted phrases.
var DefaultExcludeTerms = []string{
	"virtual tour", "360", "vr", "promo", "advertisement",
	"trailer", "4k", "walkthrough", "pov", "ride pov",
}

// DefaultExcludeDomains are always excluded with -site:.
var DefaultExcludeDomains = []string{"pinterest.com", "x.com", "twitter.com"}

// BuildFilteredQuery returns raw with the intent clause (when needed) and
// one exclusion clause per distinct term and domain appended.
func BuildFilteredQuery(raw string, extraTerms, extraDomains []string) string {
	parts := []string{strings.TrimSpace(raw)}

	if !hasIntent(raw) {
		parts = append(parts, IntentClause)
	}
	for _, term := range union(DefaultExcludeTerms, extraTerms) {
		parts = append(parts, `-"`+term+`"`)
	}
	for _, d := range union(DefaultExcludeDomains, extraDomains) {
		parts = append(parts, "-site:"+d)
	}
	return strings.Join(parts, " ")
}

// NewQuery builds the SearchQuery for one call.
func NewQuery(raw string, limit int, extraTerms, extraDomains []string) domain.SearchQuery {
	return domain.SearchQuery{
		Raw:      raw,
		Limit:    domain.ClampLimit(limit),
		Filtered: BuildFilteredQuery(raw, extraTerms, extraDomains),
	}
}

func hasIntent(raw string) bool {
	lower := strings.ToLower(raw)
	for _, kw := range intentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// union concatenates lists, trimming entries and dropping blanks and
// case-insensitive duplicates. The first spelling wins.
func union(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			key := strings.ToLower(s)
			if s == "" || seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
