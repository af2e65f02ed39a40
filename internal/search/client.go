// Package search is the resilient search client: it builds the filtered
// query, retries transient failures, normalizes the response and records
// exactly one trace entry per call.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tjfontaine/clockwork-muse/internal/api/serper"
	"github.com/tjfontaine/clockwork-muse/internal/config"
	"github.com/tjfontaine/clockwork-muse/internal/domain"
	"github.com/tjfontaine/clockwork-muse/internal/retry"
	"github.com/tjfontaine/clockwork-muse/internal/telemetry"
	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

// Trace names for the two entry points.
const (
	TraceName    = "serper_robust"
	RawTraceName = "serper"
)

// DefaultTimeout bounds a single attempt.
const DefaultTimeout = 30 * time.Second

// Option configures the client.
type Option func(*Client)

// WithEndpoint overrides the search endpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPolicy sets the retry policy.
func WithPolicy(p retry.Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithTimeout bounds each attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithExclusions adds terms and domains on top of the built-in lists.
func WithExclusions(terms, domains []string) Option {
	return func(c *Client) {
		c.excludeTerms = terms
		c.excludeDomains = domains
	}
}

// WithRecorder sets where trace records go.
func WithRecorder(r trace.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger used for recorder failures.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// Client is the resilient search client.
type Client struct {
	apiKey         string
	endpoint       string
	httpClient     *http.Client
	policy         retry.Policy
	timeout        time.Duration
	excludeTerms   []string
	excludeDomains []string
	recorder       trace.Recorder
	logger         *slog.Logger
	api            *serper.Client
}

// New creates a client. A missing apiKey is reported on each call as an
// auth error, not here.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		endpoint:   serper.DefaultEndpoint,
		httpClient: telemetry.HTTPClient(),
		policy:     retry.DefaultPolicy(),
		timeout:    DefaultTimeout,
		recorder:   trace.Discard,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.api = serper.NewClient(c.apiKey,
		serper.WithEndpoint(c.endpoint),
		serper.WithHTTPClient(c.httpClient),
	)
	return c
}

// NewFromConfig creates a client from loaded settings.
func NewFromConfig(cfg config.SearchConfig, opts ...Option) *Client {
	policy := retry.DefaultPolicy()
	policy.Attempts = cfg.Retries
	policy.Factor = cfg.Backoff

	base := []Option{
		WithEndpoint(cfg.Endpoint),
		WithTimeout(cfg.Timeout),
		WithPolicy(policy),
		WithExclusions(cfg.ExcludeTerms, cfg.ExcludeDomains),
	}
	return New(cfg.APIKey, append(base, opts...)...)
}

// Query builds the filtered query for raw without sending it.
func (c *Client) Query(raw string, limit int) domain.SearchQuery {
	return NewQuery(raw, limit, c.excludeTerms, c.excludeDomains)
}

// Search runs the filtered query with retries.
func (c *Client) Search(ctx context.Context, query string, limit int) (*domain.SearchResult, error) {
	q := c.Query(query, limit)
	return c.run(ctx, TraceName, q.Filtered, q.Limit, c.policy)
}

// SearchText runs Search and renders the result as markdown lines.
func (c *Client) SearchText(ctx context.Context, query string, limit int) (string, error) {
	res, err := c.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	return res.Render(), nil
}

// Raw sends q unfiltered in a single attempt.
func (c *Client) Raw(ctx context.Context, q string, limit int) (*domain.SearchResult, error) {
	once := c.policy
	once.Attempts = 1
	return c.run(ctx, RawTraceName, q, domain.ClampLimit(limit), once)
}

func (c *Client) run(ctx context.Context, name, q string, limit int, policy retry.Policy) (*domain.SearchResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "search.query")
	defer span.End()

	req := &serper.SearchRequest{Q: q, Num: limit}
	rec := trace.NewRecord(trace.KindSearch, name)
	rec.Request, _ = json.Marshal(req)

	start := time.Now()
	res, attempts, err := c.attempt(ctx, req, policy)
	rec.Elapsed = time.Since(start)
	rec.Attrs = map[string]string{"attempts": strconv.Itoa(attempts)}

	span.SetAttributes(
		attribute.String("search.name", name),
		attribute.Int("search.limit", limit),
		attribute.Int("search.attempts", attempts),
	)

	if err != nil {
		rec.SetError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		rec.Output = res.Render()
		if res.IsFallback() {
			rec.Attrs["fallback"] = "raw"
		}
		span.SetAttributes(attribute.Int("search.results", len(res.Items)))
	}

	if rerr := c.recorder.Record(context.WithoutCancel(ctx), rec); rerr != nil {
		c.logger.Warn("failed to record search trace", slog.String("error", rerr.Error()))
	}
	return res, err
}

func (c *Client) attempt(ctx context.Context, req *serper.SearchRequest, policy retry.Policy) (*domain.SearchResult, int, error) {
	if c.apiKey == "" {
		return nil, 0, domain.ErrAuth("SERPER_API_KEY not set")
	}

	var resp *serper.SearchResponse
	attempts, err := policy.Do(ctx, func(ctx context.Context, attempt int) (int, error) {
		actx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		r, status, err := c.api.Search(actx, req)
		if err == nil {
			resp = r
		} else {
			c.logger.Debug("search attempt failed",
				slog.Int("attempt", attempt),
				slog.Int("status", status),
				slog.String("error", err.Error()))
		}
		return status, err
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return nil, attempts, domain.ErrSearch(fmt.Sprintf("search failed after %d attempts", attempts)).WithCause(err)
		}
		return nil, attempts, domain.ErrSearch("search failed").WithCause(err)
	}

	return Normalize(resp, req.Num), attempts, nil
}
