// Package openai provides the wire types and HTTP client for OpenAI-compatible
// chat completion servers.
package openai

import (
	"encoding/json"

	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// ChatCompletionRequest represents an OpenAI chat completion request. Optional
// fields are omitted unless set.
type ChatCompletionRequest struct {
	Model            string           `json:"model"`
	Messages         []domain.Message `json:"messages"`
	Temperature      float64          `json:"temperature"`
	Stream           bool             `json:"stream"`
	MaxTokens        *int             `json:"max_tokens,omitempty"`
	Stop             []string         `json:"stop,omitempty"`
	TopP             *float64         `json:"top_p,omitempty"`
	FrequencyPenalty *float64         `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64         `json:"presence_penalty,omitempty"`
	N                *int             `json:"n,omitempty"`
	ResponseFormat   any              `json:"response_format,omitempty"`
	ToolChoice       any              `json:"tool_choice,omitempty"`
	Tools            []any            `json:"tools,omitempty"`
	Seed             *int             `json:"seed,omitempty"`
}

// NewChatCompletionRequest builds a non-streaming request, copying only the
// parameters that are set.
func NewChatCompletionRequest(model string, messages []domain.Message, temperature float64, p domain.Params) *ChatCompletionRequest {
	return &ChatCompletionRequest{
		Model:            model,
		Messages:         messages,
		Temperature:      temperature,
		Stream:           false,
		MaxTokens:        p.MaxTokens,
		Stop:             p.Stop,
		TopP:             p.TopP,
		FrequencyPenalty: p.FrequencyPenalty,
		PresencePenalty:  p.PresencePenalty,
		N:                p.N,
		ResponseFormat:   p.ResponseFormat,
		ToolChoice:       p.ToolChoice,
		Tools:            p.Tools,
		Seed:             p.Seed,
	}
}

// ResponseMessage is the assistant message in a choice. Content is a pointer
// because servers send null for tool-only replies.
type ResponseMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

// Choice represents a completion choice.
type Choice struct {
	Index        int             `json:"index"`
	Message      ResponseMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
}

// Usage represents token usage information.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse represents an OpenAI chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`

	// RawBody is the verbatim response body.
	RawBody json.RawMessage `json:"-"`
}

// Text returns the first choice's message content, or "" when there is none.
func (r *ChatCompletionResponse) Text() string {
	if r == nil || len(r.Choices) == 0 || r.Choices[0].Message.Content == nil {
		return ""
	}
	return *r.Choices[0].Message.Content
}

// Model represents a served model.
type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList represents a list of models.
type ModelList struct {
	Object string  `json:"object"`
	Data   []Model `json:"data"`
}
