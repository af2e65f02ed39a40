package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    string
		wantErr bool
	}{
		{"fenced json", "# Research\n```json\n{\"a\": 1}\n```\nmore", `{"a": 1}`, false},
		{"fenced no lang", "```\n{\"b\": 2}\n```", `{"b": 2}`, false},
		{"first fence wins", "```json\n{\"a\":1}\n```\n```json\n{\"b\":2}\n```", `{"a":1}`, false},
		{"bare object", "notes {\"c\": {\"d\": 3}} end", `{"c": {"d": 3}}`, false},
		{"none", "no json here", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.text)
			if tt.wantErr {
				if !errors.Is(err, ErrNoJSON) {
					t.Errorf("ExtractJSON() error = %v, want ErrNoJSON", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatedPath(t *testing.T) {
	if got := ValidatedPath("outputs/research.md"); got != "outputs/research.validated.json" {
		t.Errorf("ValidatedPath() = %q", got)
	}
}

func TestValidateFile(t *testing.T) {
	r := chi.NewRouter()
	r.Head("/ok", func(w http.ResponseWriter, r *http.Request) {})
	r.Head("/nohead", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusMethodNotAllowed) })
	r.Get("/nohead", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("hi")) })
	r.Head("/gone", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	doc := fmt.Sprintf("# Lisbon\n\n```json\n{\"topic\":\"lisbon\",\"sources\":[{\"url\":%q,\"title\":\"A\"},{\"url\":%q},{\"url\":%q},{\"title\":\"no url\"}]}\n```\n",
		srv.URL+"/ok", srv.URL+"/nohead", srv.URL+"/gone")

	dir := t.TempDir()
	path := filepath.Join(dir, "research.md")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	v := NewValidator(
		WithHTTPClient(srv.Client()),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	report, dest, err := v.ValidateFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ValidateFile() error = %v", err)
	}
	if dest != filepath.Join(dir, "research.validated.json") {
		t.Errorf("dest = %q", dest)
	}
	if len(report.Sources) != 2 || report.Dropped != 2 {
		t.Fatalf("kept %d dropped %d, want 2/2", len(report.Sources), report.Dropped)
	}
	if report.Sources[0]["title"] != "A" || report.Sources[0]["http_ok"] != true {
		t.Errorf("first source = %v", report.Sources[0])
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var written Report
	if err := json.Unmarshal(data, &written); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if written.Topic != "lisbon" || written.Dropped != 2 {
		t.Errorf("written = %+v", written)
	}
}

func TestValidator_RefusesPrivateByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ok, status := NewValidator(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).Alive(context.Background(), srv.URL)
	if ok || status != 0 {
		t.Errorf("Alive(loopback) = %v, %d, want false, 0", ok, status)
	}
}
