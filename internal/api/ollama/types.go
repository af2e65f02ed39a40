// Package ollama provides the wire types and HTTP client for the native
// Ollama endpoints.
package ollama

import (
	"encoding/json"

	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// Options carries generation settings. Unset fields are omitted.
type Options struct {
	NumPredict  *int     `json:"num_predict,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	Seed        *int     `json:"seed,omitempty"`
}

// NewOptions maps generation parameters onto native options.
func NewOptions(temperature float64, p domain.Params) Options {
	return Options{
		NumPredict:  p.MaxTokens,
		Temperature: &temperature,
		Stop:        p.Stop,
		TopP:        p.TopP,
		Seed:        p.Seed,
	}
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string           `json:"model"`
	Messages []domain.Message `json:"messages"`
	Stream   bool             `json:"stream"`
	Options  Options          `json:"options"`
}

// GenerateRequest is the body of POST /api/generate.
type GenerateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

// ResponseMessage is the assistant message of a chat reply.
type ResponseMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response covers both /api/chat and /api/generate replies. Chat replies
// carry Message and generate replies carry Response.
type Response struct {
	Model           string           `json:"model"`
	CreatedAt       string           `json:"created_at"`
	Message         *ResponseMessage `json:"message,omitempty"`
	Response        *string          `json:"response,omitempty"`
	Done            bool             `json:"done"`
	PromptEvalCount int              `json:"prompt_eval_count,omitempty"`
	EvalCount       int              `json:"eval_count,omitempty"`

	// RawBody is the verbatim response body.
	RawBody json.RawMessage `json:"-"`
}

// Text returns the first non-empty of message.content and response.
func (r *Response) Text() string {
	switch {
	case r == nil:
		return ""
	case r.Message != nil && r.Message.Content != "":
		return r.Message.Content
	case r.Response != nil:
		return *r.Response
	default:
		return ""
	}
}

// ModelInfo describes one local model.
type ModelInfo struct {
	Name       string `json:"name"`
	Model      string `json:"model"`
	ModifiedAt string `json:"modified_at"`
	Size       int64  `json:"size"`
}

// TagsResponse is the reply of GET /api/tags.
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}
