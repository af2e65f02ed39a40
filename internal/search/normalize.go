package search

import (
	"strings"

	"github.com/tjfontaine/clockwork-muse/internal/api/serper"
	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// Normalize converts a raw response into at most limit items. Results come
// from organic when it is non-empty, else from results. Items lacking a
// title or a link are dropped.
func Normalize(resp *serper.SearchResponse, limit int) *domain.SearchResult {
	if resp == nil {
		return &domain.SearchResult{}
	}

	src := resp.Organic
	if len(src) == 0 {
		src = resp.Results
	}
	if limit >= 0 && len(src) > limit {
		src = src[:limit]
	}

	items := make([]domain.SearchItem, 0, len(src))
	for _, it := range src {
		title := firstNonEmpty(it.Title, it.Name, it.Link)
		link := firstNonEmpty(it.Link, it.URL)
		if title == "" || link == "" {
			continue
		}
		items = append(items, domain.SearchItem{
			Title:   title,
			Link:    link,
			Snippet: strings.TrimSpace(firstNonEmpty(it.Snippet, it.Summary)),
		})
	}

	return &domain.SearchResult{Items: items, Raw: resp.RawBody}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
