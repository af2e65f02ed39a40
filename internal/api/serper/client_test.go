package serper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/clockwork-muse/internal/domain"
	"github.com/tjfontaine/clockwork-muse/internal/testutil"
)

func TestClient_Search_Replay(t *testing.T) {
	if os.Getenv("SERPER_API_KEY") == "" && os.Getenv("VCR_MODE") == "record" {
		t.Skip("Skipping test: SERPER_API_KEY not set")
	}

	recorder, cleanup := testutil.NewVCRRecorder(t, "serper_search")
	defer cleanup()

	apiKey := os.Getenv("SERPER_API_KEY")
	if apiKey == "" {
		apiKey = "test-key"
	}

	c := NewClient(apiKey, WithHTTPClient(testutil.VCRHTTPClient(recorder)))
	resp, status, err := c.Search(context.Background(), &SearchRequest{Q: "lisbon travel tips", Num: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if len(resp.Organic) != 2 {
		t.Fatalf("len(Organic) = %d, want 2", len(resp.Organic))
	}
	if resp.Organic[0].Title != "25 Things to Know Before Visiting Lisbon" {
		t.Errorf("Organic[0].Title = %q", resp.Organic[0].Title)
	}
	if resp.Results != nil {
		t.Errorf("Results = %v, want nil", resp.Results)
	}
	if !strings.Contains(string(resp.RawBody), "searchParameters") {
		t.Errorf("RawBody missing verbatim content: %s", resp.RawBody)
	}
}

func TestClient_Search_Headers(t *testing.T) {
	var gotKey, gotType string
	var gotBody SearchRequest

	r := chi.NewRouter()
	r.Post("/search", func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-API-KEY")
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results":[{"name":"N","url":"U","summary":"S"}]}`))
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	c := NewClient("secret", WithEndpoint(srv.URL+"/search"))
	resp, _, err := c.Search(context.Background(), &SearchRequest{Q: "q", Num: 3})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if gotKey != "secret" {
		t.Errorf("X-API-KEY = %q, want secret", gotKey)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotType)
	}
	if gotBody.Q != "q" || gotBody.Num != 3 {
		t.Errorf("body = %+v, want {q 3}", gotBody)
	}
	if resp.Organic != nil {
		t.Errorf("Organic = %v, want nil", resp.Organic)
	}
	if len(resp.Results) != 1 || resp.Results[0].Name != "N" {
		t.Errorf("Results = %+v", resp.Results)
	}
}

func TestClient_Search_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, strings.Repeat("x", 500), http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient("bad", WithEndpoint(srv.URL))
	_, status, err := c.Search(context.Background(), &SearchRequest{Q: "q", Num: 1})
	if status != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", status)
	}
	var se *domain.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *domain.StatusError", err)
	}
	if len(se.Body) != 300 {
		t.Errorf("len(Body) = %d, want 300", len(se.Body))
	}
}

func TestClient_Search_EmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c := NewClient("k", WithEndpoint(srv.URL))
	resp, status, err := c.Search(context.Background(), &SearchRequest{Q: "q", Num: 1})
	if !errors.Is(err, ErrEmptyBody) {
		t.Fatalf("Search() error = %v, want ErrEmptyBody", err)
	}
	if resp != nil || status != http.StatusOK {
		t.Errorf("Search() = %v, %d", resp, status)
	}
}

func TestClient_Search_NonObjectBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`["unexpected"]`))
	}))
	defer srv.Close()

	c := NewClient("k", WithEndpoint(srv.URL))
	resp, _, err := c.Search(context.Background(), &SearchRequest{Q: "q", Num: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if string(resp.RawBody) != `["unexpected"]` {
		t.Errorf("RawBody = %s", resp.RawBody)
	}
}
