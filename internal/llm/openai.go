package llm

import (
	"context"

	"github.com/tjfontaine/clockwork-muse/internal/api/openai"
	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

func (c *Client) completeOpenAI(ctx context.Context, model string, temperature float64, req *domain.CompletionRequest) (*exchange, error) {
	body := openai.NewChatCompletionRequest(model, req.Messages, temperature, req.Params)
	ex := &exchange{protocol: domain.ProtocolOpenAI, request: body}

	resp, err := c.openai.CreateChatCompletion(ctx, body)
	if err != nil {
		return ex, domain.ErrTransport("chat completion failed").WithCause(err)
	}
	ex.response = resp.RawBody
	ex.text = resp.Text()
	return ex, nil
}
