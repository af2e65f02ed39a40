// Package llm is the dual-protocol completion client. It speaks either the
// OpenAI-compatible chat completions API or the native Ollama endpoints and
// records one trace per call.
package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tjfontaine/clockwork-muse/internal/api/ollama"
	"github.com/tjfontaine/clockwork-muse/internal/api/openai"
	"github.com/tjfontaine/clockwork-muse/internal/config"
	"github.com/tjfontaine/clockwork-muse/internal/domain"
	"github.com/tjfontaine/clockwork-muse/internal/telemetry"
	"github.com/tjfontaine/clockwork-muse/internal/tokens"
	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

// TraceName names LLM trace records.
const TraceName = "llm"

// Option configures the client.
type Option func(*Client)

// WithStyle forces a protocol style instead of inferring it.
func WithStyle(style string) Option {
	return func(c *Client) { c.rawStyle = style }
}

// WithAPIKey sets the bearer credential for the OpenAI-compatible style.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithModel sets the model used when a request names none.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithTemperature sets the temperature used when a request sets none.
func WithTemperature(t float64) Option {
	return func(c *Client) { c.temperature = t }
}

// WithTimeout bounds each call. Zero means no client-side limit.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
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

// Client is the dual-protocol completion client. The style is fixed when
// the client is built.
type Client struct {
	baseURL     string
	rawStyle    string
	style       Style
	apiKey      string
	model       string
	temperature float64
	timeout     time.Duration
	httpClient  *http.Client
	recorder    trace.Recorder
	logger      *slog.Logger
	counter     *tokens.Counter

	openai *openai.Client
	ollama *ollama.Client
}

// New creates a client for the server at baseURL. It fails with a config
// error when the style is not recognized.
func New(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimSuffix(strings.TrimSpace(baseURL), "/"),
		httpClient: telemetry.HTTPClient(),
		recorder:   trace.Discard,
		logger:     slog.Default(),
		counter:    tokens.NewCounter(),
	}
	for _, opt := range opts {
		opt(c)
	}

	style, err := ResolveStyle(c.rawStyle, c.baseURL)
	if err != nil {
		return nil, err
	}
	c.style = style

	switch style {
	case StyleOpenAI:
		c.openai = openai.NewClient(c.baseURL,
			openai.WithAPIKey(c.apiKey),
			openai.WithHTTPClient(c.httpClient),
		)
	case StyleOllama:
		c.ollama = ollama.NewClient(c.baseURL, ollama.WithHTTPClient(c.httpClient))
	}
	return c, nil
}

// NewFromConfig creates a client from loaded settings.
func NewFromConfig(cfg config.LLMConfig, opts ...Option) (*Client, error) {
	base := []Option{
		WithStyle(cfg.APIStyle),
		WithAPIKey(cfg.APIKey),
		WithModel(cfg.Model),
		WithTemperature(cfg.Temperature),
		WithTimeout(cfg.Timeout),
	}
	return New(cfg.BaseURL, append(base, opts...)...)
}

// Style returns the resolved protocol style.
func (c *Client) Style() Style { return c.style }

// BaseURL returns the server root.
func (c *Client) BaseURL() string { return c.baseURL }

// Model returns the default model.
func (c *Client) Model() string { return c.model }

// Call completes messages with the default model and returns the text.
func (c *Client) Call(ctx context.Context, messages []domain.Message, params domain.Params) (string, error) {
	res, err := c.Complete(ctx, &domain.CompletionRequest{Messages: messages, Params: params})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// exchange is what one protocol path observed.
type exchange struct {
	protocol domain.Protocol
	request  any
	response json.RawMessage
	text     string
	fallback bool
}

// Complete runs one completion and records exactly one trace.
func (c *Client) Complete(ctx context.Context, req *domain.CompletionRequest) (*domain.CompletionResult, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	temperature := c.temperature
	if req.Params.Temperature != nil {
		temperature = *req.Params.Temperature
	}

	ctx, span := telemetry.Tracer().Start(ctx, "llm.complete")
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	rec := trace.NewRecord(trace.KindLLM, TraceName)
	rec.Model = model
	rec.Messages = req.Messages
	rec.PromptTokens = c.counter.CountMessages(model, req.Messages)

	start := time.Now()
	ex := &exchange{}
	err := req.Params.Validate()
	if err == nil {
		switch c.style {
		case StyleOpenAI:
			ex, err = c.completeOpenAI(ctx, model, temperature, req)
		default:
			ex, err = c.completeNative(ctx, model, temperature, req)
		}
	}
	if ex == nil {
		ex = &exchange{}
	}
	elapsed := time.Since(start)

	rec.Elapsed = elapsed
	rec.Protocol = string(ex.protocol)
	if ex.request != nil {
		rec.Request, _ = json.Marshal(ex.request)
	}
	rec.Response = ex.response
	rec.Output = ex.text
	if ex.fallback {
		rec.Attrs = map[string]string{"fallback": string(domain.ProtocolNativeGenerate)}
	}

	span.SetAttributes(
		attribute.String("llm.model", model),
		attribute.String("llm.protocol", string(ex.protocol)),
		attribute.Int("llm.prompt_tokens", rec.PromptTokens),
	)
	if err != nil {
		rec.SetError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	if rerr := c.recorder.Record(context.WithoutCancel(ctx), rec); rerr != nil {
		c.logger.Warn("failed to record llm trace", slog.String("error", rerr.Error()))
	}
	if err != nil {
		return nil, err
	}

	return &domain.CompletionResult{
		Text:         ex.text,
		Elapsed:      elapsed,
		Protocol:     ex.protocol,
		PromptTokens: rec.PromptTokens,
	}, nil
}
