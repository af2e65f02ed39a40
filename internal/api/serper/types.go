package serper

import "encoding/json"

// SearchRequest is the Serper request body.
type SearchRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

// Item is a loosely shaped search hit. Different result kinds name their
// fields differently, so every known alias is kept.
type Item struct {
	Title   string `json:"title,omitempty"`
	Name    string `json:"name,omitempty"`
	Link    string `json:"link,omitempty"`
	URL     string `json:"url,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// SearchResponse is the decoded response. Organic and Results are nil when
// the key is absent.
type SearchResponse struct {
	Organic []Item `json:"organic,omitempty"`
	Results []Item `json:"results,omitempty"`

	// RawBody is the verbatim response body.
	RawBody json.RawMessage `json:"-"`
}
