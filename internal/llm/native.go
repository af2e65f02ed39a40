package llm

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tjfontaine/clockwork-muse/internal/api/ollama"
	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// completeNative tries /api/chat and, only on 404, makes exactly one
// /api/generate call with the flattened transcript.
func (c *Client) completeNative(ctx context.Context, model string, temperature float64, req *domain.CompletionRequest) (*exchange, error) {
	opts := ollama.NewOptions(temperature, req.Params)

	chat := &ollama.ChatRequest{
		Model:    model,
		Messages: req.Messages,
		Stream:   false,
		Options:  opts,
	}
	ex := &exchange{protocol: domain.ProtocolNativeChat, request: chat}

	resp, err := c.ollama.Chat(ctx, chat)
	if err == nil {
		ex.response = resp.RawBody
		ex.text = resp.Text()
		return ex, nil
	}
	if domain.HTTPStatus(err) != http.StatusNotFound {
		return ex, domain.ErrTransport("native chat failed").WithCause(err)
	}

	c.logger.Debug("native chat endpoint not found, falling back to generate",
		slog.String("base_url", c.baseURL))

	gen := &ollama.GenerateRequest{
		Model:   model,
		Prompt:  FlattenTranscript(req.Messages),
		Stream:  false,
		Options: opts,
	}
	ex = &exchange{protocol: domain.ProtocolNativeGenerate, request: gen, fallback: true}

	resp, err = c.ollama.Generate(ctx, gen)
	if err != nil {
		return ex, domain.ErrFallbackExhausted("native chat returned 404 and generate failed").WithCause(err)
	}
	ex.response = resp.RawBody
	ex.text = resp.Text()
	return ex, nil
}
