package search

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/clockwork-muse/internal/api/serper"
	"github.com/tjfontaine/clockwork-muse/internal/domain"
	"github.com/tjfontaine/clockwork-muse/internal/retry"
	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

// collector keeps every record it is handed.
type collector struct {
	mu      sync.Mutex
	records []*trace.Record
}

func (c *collector) Record(_ context.Context, rec *trace.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records = append(c.records, rec)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// fakeSerper serves the given statuses in order, then 200 with body.
func fakeSerper(t *testing.T, statuses []int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32

	r := chi.NewRouter()
	r.Post("/search", func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		if n <= len(statuses) {
			http.Error(w, "upstream says no", statuses[n-1])
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, &hits
}

const organicBody = `{"organic":[{"title":"T","link":"L","snippet":"S"}]}`

func TestBuildFilteredQuery_Intent(t *testing.T) {
	tests := []struct {
		raw        string
		wantIntent bool
	}{
		{"lisbon", true},
		{"best beaches portugal", true},
		{"lisbon travel tips", false},
		{"Lisbon GUIDE", false},
		{"How To pack light", false},
		{"common mistakes in porto", false},
		{"10 things to know about madeira", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := BuildFilteredQuery(tt.raw, nil, nil)
			if has := strings.Contains(got, IntentClause); has != tt.wantIntent {
				t.Errorf("BuildFilteredQuery(%q) = %q, intent clause present = %v, want %v", tt.raw, got, has, tt.wantIntent)
			}
			if !strings.HasPrefix(got, tt.raw) {
				t.Errorf("BuildFilteredQuery(%q) = %q, want raw query first", tt.raw, got)
			}
		})
	}
}

func TestBuildFilteredQuery_ExclusionsOnce(t *testing.T) {
	extraTerms := []string{"drone", "VR", " promo ", ""}
	extraDomains := []string{"tiktok.com", "X.com"}

	got := BuildFilteredQuery("lisbon", extraTerms, extraDomains)

	for _, term := range union(DefaultExcludeTerms, extraTerms) {
		clause := `-"` + term + `"`
		if n := strings.Count(got, clause); n != 1 {
			t.Errorf("clause %s appears %d times in %q, want 1", clause, n, got)
		}
	}
	for _, d := range union(DefaultExcludeDomains, extraDomains) {
		clause := "-site:" + d + " "
		if n := strings.Count(got+" ", clause); n != 1 {
			t.Errorf("clause %s appears %d times in %q, want 1", clause, n, got)
		}
	}
	if strings.Contains(got, `-"VR"`) || strings.Contains(got, "-site:X.com") {
		t.Errorf("case-insensitive duplicate kept: %q", got)
	}
	if !strings.Contains(got, `-"drone"`) || !strings.Contains(got, "-site:tiktok.com") {
		t.Errorf("extra exclusions missing: %q", got)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		limit int
		want  []domain.SearchItem
	}{
		{
			name:  "organic",
			body:  organicBody,
			limit: 5,
			want:  []domain.SearchItem{{Title: "T", Link: "L", Snippet: "S"}},
		},
		{
			name:  "results aliases",
			body:  `{"results":[{"name":"N","url":"U","summary":"  sum  "}]}`,
			limit: 5,
			want:  []domain.SearchItem{{Title: "N", Link: "U", Snippet: "sum"}},
		},
		{
			name:  "empty organic falls back to results",
			body:  `{"organic":[],"results":[{"title":"R","link":"RL"}]}`,
			limit: 5,
			want:  []domain.SearchItem{{Title: "R", Link: "RL"}},
		},
		{
			name:  "title falls back to link",
			body:  `{"organic":[{"link":"L"}]}`,
			limit: 5,
			want:  []domain.SearchItem{{Title: "L", Link: "L"}},
		},
		{
			name:  "items without link dropped",
			body:  `{"organic":[{"title":"no link"},{"title":"T","link":"L"}]}`,
			limit: 5,
			want:  []domain.SearchItem{{Title: "T", Link: "L"}},
		},
		{
			name:  "truncated to limit before filtering",
			body:  `{"organic":[{"title":"A","link":"1"},{"title":"B","link":"2"},{"title":"C","link":"3"}]}`,
			limit: 2,
			want:  []domain.SearchItem{{Title: "A", Link: "1"}, {Title: "B", Link: "2"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp serper.SearchResponse
			if err := json.Unmarshal([]byte(tt.body), &resp); err != nil {
				t.Fatalf("Unmarshal() error = %v", err)
			}
			got := Normalize(&resp, tt.limit)
			if len(got.Items) != len(tt.want) {
				t.Fatalf("Items = %+v, want %+v", got.Items, tt.want)
			}
			for i := range tt.want {
				if got.Items[i] != tt.want[i] {
					t.Errorf("Items[%d] = %+v, want %+v", i, got.Items[i], tt.want[i])
				}
			}
		})
	}
}

func TestSearch_RenderRoundTrip(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		want         string
		wantFallback bool
	}{
		{"organic item", organicBody, "- [T](L) — S", false},
		{"no known keys", `{"answerBox":{"answer":"42"}}`, `{"answerBox":{"answer":"42"}}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := fakeSerper(t, nil, tt.body)
			rec := &collector{}
			c := New("key", WithEndpoint(srv.URL+"/search"), WithRecorder(rec))

			got, err := c.SearchText(context.Background(), "lisbon", 5)
			if err != nil {
				t.Fatalf("SearchText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SearchText() = %q, want %q", got, tt.want)
			}
			if rec.count() != 1 {
				t.Fatalf("records = %d, want 1", rec.count())
			}
			_, fallback := rec.records[0].Attrs["fallback"]
			if fallback != tt.wantFallback {
				t.Errorf("fallback attr present = %v, want %v", fallback, tt.wantFallback)
			}
		})
	}
}

func TestSearch_RetriesWithBackoff(t *testing.T) {
	srv, hits := fakeSerper(t, []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable}, organicBody)
	rec := &collector{}
	policy := retry.Policy{Attempts: 3, InitialDelay: 20 * time.Millisecond, Factor: 1.5}
	c := New("key", WithEndpoint(srv.URL+"/search"), WithPolicy(policy), WithRecorder(rec))

	start := time.Now()
	res, err := c.Search(context.Background(), "lisbon", 5)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(res.Items) != 1 {
		t.Errorf("Items = %+v, want 1 item", res.Items)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}

	var minDelay time.Duration
	for _, d := range policy.Delays() {
		minDelay += d
	}
	if elapsed < minDelay {
		t.Errorf("elapsed = %v, want at least %v", elapsed, minDelay)
	}
	if rec.count() != 1 || rec.records[0].Attrs["attempts"] != "3" {
		t.Errorf("records = %d, attempts attr = %q", rec.count(), rec.records[0].Attrs["attempts"])
	}
}

func TestSearch_NonRetryableStatus(t *testing.T) {
	srv, hits := fakeSerper(t, []int{http.StatusUnauthorized}, organicBody)
	rec := &collector{}
	c := New("key", WithEndpoint(srv.URL+"/search"), WithRecorder(rec))

	_, err := c.Search(context.Background(), "lisbon", 5)
	if !domain.IsType(err, domain.ErrorTypeSearch) {
		t.Fatalf("error = %v, want search error", err)
	}
	if got := domain.HTTPStatus(err); got != http.StatusUnauthorized {
		t.Errorf("HTTPStatus() = %d, want 401", got)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	if rec.count() != 1 || !rec.records[0].Failed() {
		t.Errorf("want one failed record, got %d", rec.count())
	}
}

func TestSearch_Exhausted(t *testing.T) {
	srv, hits := fakeSerper(t, []int{429, 502, 504}, organicBody)
	policy := retry.Policy{Attempts: 3, InitialDelay: time.Millisecond, Factor: 1.5}
	c := New("key", WithEndpoint(srv.URL+"/search"), WithPolicy(policy))

	_, err := c.Search(context.Background(), "lisbon", 5)
	if !domain.IsType(err, domain.ErrorTypeSearch) {
		t.Fatalf("error = %v, want search error", err)
	}
	if got := domain.HTTPStatus(err); got != 504 {
		t.Errorf("HTTPStatus() = %d, want last status 504", got)
	}
	if got := hits.Load(); got != 3 {
		t.Errorf("requests = %d, want 3", got)
	}
}

func TestSearch_EmptyBodyIsRetriedAndTraced(t *testing.T) {
	srv, hits := fakeSerper(t, nil, "")
	rec := &collector{}
	policy := retry.Policy{Attempts: 2, InitialDelay: time.Millisecond, Factor: 1.5}
	c := New("key", WithEndpoint(srv.URL+"/search"), WithPolicy(policy), WithRecorder(rec))

	res, err := c.Search(context.Background(), "lisbon", 5)
	if !domain.IsType(err, domain.ErrorTypeSearch) {
		t.Fatalf("Search() = %v, %v, want search error", res, err)
	}
	if !errors.Is(err, serper.ErrEmptyBody) {
		t.Errorf("error = %v, want ErrEmptyBody in the chain", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("requests = %d, want 2", got)
	}
	if rec.count() != 1 {
		t.Fatalf("records = %d, want 1", rec.count())
	}
	if !rec.records[0].Failed() {
		t.Error("record not marked failed")
	}
}

func TestSearch_MissingKey(t *testing.T) {
	srv, hits := fakeSerper(t, nil, organicBody)
	rec := &collector{}
	c := New("", WithEndpoint(srv.URL+"/search"), WithRecorder(rec))

	_, err := c.Search(context.Background(), "lisbon", 5)
	if !domain.IsType(err, domain.ErrorTypeAuth) {
		t.Errorf("error = %v, want auth error", err)
	}
	if hits.Load() != 0 {
		t.Errorf("requests = %d, want 0", hits.Load())
	}
	if rec.count() != 1 {
		t.Errorf("records = %d, want 1", rec.count())
	}
}

func TestSearch_SendsFilteredQueryAndClampedLimit(t *testing.T) {
	var got serper.SearchRequest
	r := chi.NewRouter()
	r.Post("/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(organicBody))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := New("key", WithEndpoint(srv.URL+"/search"), WithExclusions([]string{"drone"}, nil))
	if _, err := c.Search(context.Background(), "lisbon", 50); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got.Num != domain.MaxSearchLimit {
		t.Errorf("num = %d, want %d", got.Num, domain.MaxSearchLimit)
	}
	if !strings.Contains(got.Q, IntentClause) || !strings.Contains(got.Q, `-"drone"`) {
		t.Errorf("q = %q, want filtered query", got.Q)
	}

	if _, err := c.Raw(context.Background(), "plain", 0); err != nil {
		t.Fatalf("Raw() error = %v", err)
	}
	if got.Q != "plain" || got.Num != domain.MinSearchLimit {
		t.Errorf("Raw sent %+v, want unfiltered query with num 1", got)
	}
}

func TestSearch_OneLogEntryPerCall(t *testing.T) {
	dir := t.TempDir()
	files, err := trace.NewFiles(filepath.Join(dir, "llm"), filepath.Join(dir, "tools"), false)
	if err != nil {
		t.Fatalf("NewFiles() error = %v", err)
	}
	logPath := filepath.Join(dir, "tools", trace.SearchLogName)

	countEntries := func() int {
		data, err := os.ReadFile(logPath)
		if os.IsNotExist(err) {
			return 0
		}
		if err != nil {
			t.Fatalf("ReadFile() error = %v", err)
		}
		return strings.Count(string(data), "\n=== ")
	}

	okSrv, _ := fakeSerper(t, nil, organicBody)
	failSrv, _ := fakeSerper(t, []int{http.StatusForbidden}, organicBody)

	okClient := New("key", WithEndpoint(okSrv.URL+"/search"), WithRecorder(files))
	failClient := New("key", WithEndpoint(failSrv.URL+"/search"), WithRecorder(files))

	before := countEntries()
	if _, err := okClient.Search(context.Background(), "a", 1); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := countEntries() - before; got != 1 {
		t.Errorf("entries after success = %d, want 1", got)
	}

	before = countEntries()
	if _, err := failClient.Search(context.Background(), "b", 1); err == nil {
		t.Fatal("Search() error = nil, want failure")
	}
	if got := countEntries() - before; got != 1 {
		t.Errorf("entries after failure = %d, want 1", got)
	}
}
