// Package sources checks the source URLs listed in a research document and
// writes the live ones next to it.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tjfontaine/clockwork-muse/internal/pkg/safehttp"
)

// Probe timeouts.
const (
	headTimeout = 12 * time.Second
	getTimeout  = 18 * time.Second
)

// ErrNoJSON is returned when a document holds no JSON object.
var ErrNoJSON = errors.New("no JSON block found")

var (
	fencedJSON = regexp.MustCompile("(?is)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSON   = regexp.MustCompile(`(?s)(\{.*\})`)
)

// ExtractJSON returns the first fenced JSON block in text, or the widest
// bare JSON object when there is no fence.
func ExtractJSON(text string) ([]byte, error) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return []byte(m[1]), nil
	}
	if m := bareJSON.FindStringSubmatch(text); m != nil {
		return []byte(m[1]), nil
	}
	return nil, ErrNoJSON
}

// Document is the research payload. Sources keep every field they were
// written with.
type Document struct {
	Topic   any              `json:"topic"`
	Sources []map[string]any `json:"sources"`
}

// Report is written to the validated file.
type Report struct {
	Topic   any              `json:"topic"`
	Sources []map[string]any `json:"sources"`
	Dropped int              `json:"dropped"`
}

// Validator probes URLs.
type Validator struct {
	client *http.Client
	logger *slog.Logger
}

// Option configures a Validator.
type Option func(*Validator)

// WithHTTPClient replaces the safe client, for tests against local servers.
func WithHTTPClient(hc *http.Client) Option {
	return func(v *Validator) { v.client = hc }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// NewValidator creates a validator that refuses private addresses.
func NewValidator(opts ...Option) *Validator {
	v := &Validator{
		client: safehttp.NewClient(getTimeout, false),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Alive reports whether url answers with a 2xx or 3xx status. HEAD is tried
// first; sites that refuse HEAD with 403 or 405 get a GET. The status is 0
// when no response arrived.
func (v *Validator) Alive(ctx context.Context, url string) (bool, int) {
	if url == "" {
		return false, 0
	}
	status, err := v.status(ctx, http.MethodHead, url, headTimeout)
	if err == nil && (status == http.StatusForbidden || status == http.StatusMethodNotAllowed) {
		status, err = v.status(ctx, http.MethodGet, url, getTimeout)
	}
	if err != nil {
		v.logger.Debug("source unreachable", slog.String("url", url), slog.String("error", err.Error()))
		return false, 0
	}
	return status >= 200 && status < 400, status
}

func (v *Validator) status(ctx context.Context, method, url string, timeout time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return 0, err
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// Validate checks every source in doc. Each source is annotated with
// http_ok and status; only live ones are kept.
func (v *Validator) Validate(ctx context.Context, doc *Document) *Report {
	report := &Report{Topic: doc.Topic, Sources: []map[string]any{}}
	for _, src := range doc.Sources {
		url, _ := src["url"].(string)
		ok, status := v.Alive(ctx, url)
		src["http_ok"] = ok
		if status == 0 {
			src["status"] = nil
		} else {
			src["status"] = status
		}
		if ok {
			report.Sources = append(report.Sources, src)
		}
	}
	report.Dropped = len(doc.Sources) - len(report.Sources)
	return report
}

// ValidatedPath is where the report for path is written: the extension is
// replaced by .validated.json.
func ValidatedPath(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".validated.json"
}

// ValidateFile reads the research document at path, validates it and
// writes the report. It returns the report and the path written.
func (v *Validator) ValidateFile(ctx context.Context, path string) (*Report, string, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading research file: %w", err)
	}
	raw, err := ExtractJSON(string(text))
	if err != nil {
		return nil, "", err
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, "", fmt.Errorf("parsing sources JSON: %w", err)
	}

	report := v.Validate(ctx, &doc)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("encoding report: %w", err)
	}
	dest := ValidatedPath(path)
	if err := os.WriteFile(dest, out, 0o644); err != nil {
		return nil, "", fmt.Errorf("writing report: %w", err)
	}
	return report, dest, nil
}
