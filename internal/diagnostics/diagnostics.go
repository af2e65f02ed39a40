// Package diagnostics checks that the network, the search API and the LLM
// server are reachable before a run.
package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tjfontaine/clockwork-muse/internal/api/ollama"
	"github.com/tjfontaine/clockwork-muse/internal/domain"
	"github.com/tjfontaine/clockwork-muse/internal/llm"
)

// Probe targets.
const (
	DefaultDNSHost    = "google.com"
	DefaultNetworkURL = "https://example.com"
	SelfTestQuery     = "site:wikipedia.org test"
	PreflightQuery    = `site:wikipedia.org "open source"`

	probeBodyChars = 400
	probeTimeout   = 30 * time.Second
)

// RawSearcher runs one unfiltered search.
type RawSearcher interface {
	Raw(ctx context.Context, q string, limit int) (*domain.SearchResult, error)
}

// Check is the outcome of one self-test step.
type Check struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Detail string `json:"detail"`
	// Warn marks a failure that never fails the run.
	Warn bool `json:"warn,omitempty"`
}

// Status renders the check as OK, FAIL or WARN.
func (c Check) Status() string {
	switch {
	case c.OK:
		return "OK"
	case c.Warn:
		return "WARN"
	default:
		return "FAIL"
	}
}

// Summary lists passed and failed check names.
type Summary struct {
	Passed []string `json:"passed"`
	Failed []string `json:"failed"`
}

// Summarize groups checks by outcome.
func Summarize(checks []Check) Summary {
	s := Summary{Passed: []string{}, Failed: []string{}}
	for _, c := range checks {
		if c.OK {
			s.Passed = append(s.Passed, c.Name)
		} else {
			s.Failed = append(s.Failed, c.Name)
		}
	}
	return s
}

// Checker runs the diagnostics.
type Checker struct {
	httpClient *http.Client
	resolver   *net.Resolver
	search     RawSearcher
	searchKey  bool

	llmBase  string
	llmStyle string
	llmKey   string
	model    string

	dnsHost    string
	networkURL string
}

// Option configures a Checker.
type Option func(*Checker)

// WithHTTPClient sets the HTTP client used for probes.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Checker) { c.httpClient = hc }
}

// WithSearch sets the search client and whether a key is configured.
func WithSearch(s RawSearcher, hasKey bool) Option {
	return func(c *Checker) {
		c.search = s
		c.searchKey = hasKey
	}
}

// WithLLM sets the LLM server settings.
func WithLLM(baseURL, style, apiKey, model string) Option {
	return func(c *Checker) {
		c.llmBase = strings.TrimSuffix(baseURL, "/")
		c.llmStyle = style
		c.llmKey = apiKey
		c.model = model
	}
}

// WithNetworkTargets overrides the DNS host and URL used by the network
// check.
func WithNetworkTargets(dnsHost, url string) Option {
	return func(c *Checker) {
		c.dnsHost = dnsHost
		c.networkURL = url
	}
}

// New creates a Checker.
func New(opts ...Option) *Checker {
	c := &Checker{
		httpClient: &http.Client{Timeout: probeTimeout},
		resolver:   net.DefaultResolver,
		dnsHost:    DefaultDNSHost,
		networkURL: DefaultNetworkURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SelfTest runs the network, search and native LLM checks.
func (c *Checker) SelfTest(ctx context.Context) []Check {
	return []Check{
		c.checkNetwork(ctx),
		c.checkSearch(ctx),
		c.checkNativeLLM(ctx),
	}
}

func (c *Checker) checkNetwork(ctx context.Context) Check {
	check := Check{Name: "Network"}
	if _, err := c.resolver.LookupHost(ctx, c.dnsHost); err != nil {
		check.Detail = fmt.Sprintf("dns: %v", err)
		return check
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.networkURL, nil)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	resp.Body.Close()
	check.OK = resp.StatusCode >= 200 && resp.StatusCode < 400
	check.Detail = fmt.Sprintf("HTTP %d", resp.StatusCode)
	return check
}

func (c *Checker) checkSearch(ctx context.Context) Check {
	check := Check{Name: "Search"}
	if !c.searchKey || c.search == nil {
		check.Detail = "SERPER_API_KEY not set"
		return check
	}
	res, err := c.search.Raw(ctx, SelfTestQuery, 1)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	n := len(res.Items)
	check.OK = n > 0
	check.Detail = fmt.Sprintf("ok, %d result(s)", n)
	return check
}

func (c *Checker) checkNativeLLM(ctx context.Context) Check {
	check := Check{Name: "Ollama", Warn: true}
	style, err := llm.ResolveStyle(c.llmStyle, c.llmBase)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	if style != llm.StyleOllama {
		check.OK = true
		check.Detail = "not using ollama"
		return check
	}
	tags, err := ollama.NewClient(c.llmBase, ollama.WithHTTPClient(c.httpClient)).Tags(ctx)
	if err != nil {
		check.Detail = err.Error()
		return check
	}
	check.OK = true
	check.Detail = fmt.Sprintf("%d model(s)", len(tags.Models))
	return check
}

// Preflight fails unless the search key is set and a probe query returns
// something.
func (c *Checker) Preflight(ctx context.Context) error {
	if !c.searchKey || c.search == nil {
		return domain.ErrAuth("SERPER_API_KEY not set in this process")
	}
	res, err := c.search.Raw(ctx, PreflightQuery, 1)
	if err != nil {
		return fmt.Errorf("search preflight: %w", err)
	}
	if strings.TrimSpace(res.Render()) == "" {
		return domain.ErrSearch("search preflight returned an empty response")
	}
	return nil
}

// ProbeResult is the raw outcome of one LLM endpoint probe.
type ProbeResult struct {
	Endpoint string
	Status   int
	Body     string
	Err      error
}

// ProbeLLM sends "say ok" to the LLM server. A base ending in /v1 is probed
// through chat/completions; otherwise /api/chat is tried and /api/generate
// follows only on 404.
func (c *Checker) ProbeLLM(ctx context.Context) []ProbeResult {
	msgs := []domain.Message{domain.NewMessage(domain.RoleUser, "say ok")}

	if strings.HasSuffix(c.llmBase, "/v1") {
		return []ProbeResult{c.probe(ctx, "/chat/completions", map[string]any{
			"model":      c.model,
			"messages":   msgs,
			"max_tokens": 8,
		})}
	}

	chat := c.probe(ctx, "/api/chat", map[string]any{
		"model":    c.model,
		"messages": msgs,
		"stream":   false,
	})
	results := []ProbeResult{chat}
	if chat.Status == http.StatusNotFound {
		results = append(results, c.probe(ctx, "/api/generate", map[string]any{
			"model":  c.model,
			"prompt": llm.FlattenTranscript(msgs),
			"stream": false,
		}))
	}
	return results
}

func (c *Checker) probe(ctx context.Context, path string, payload map[string]any) ProbeResult {
	res := ProbeResult{Endpoint: c.llmBase + path}

	body, err := json.Marshal(payload)
	if err != nil {
		res.Err = err
		return res
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, res.Endpoint, bytes.NewReader(body))
	if err != nil {
		res.Err = err
		return res
	}
	req.Header.Set("Content-Type", "application/json")
	if c.llmKey != "" && strings.HasSuffix(c.llmBase, "/v1") {
		req.Header.Set("Authorization", "Bearer "+c.llmKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		res.Err = err
		return res
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, probeBodyChars))
	res.Status = resp.StatusCode
	res.Body = string(data)
	return res
}
