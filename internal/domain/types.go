package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role is the speaker of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleSystem, RoleUser, RoleAssistant:
		return r, nil
	default:
		return "", ErrConfig(fmt.Sprintf("unknown message role %q", s))
	}
}

// Message represents a chat message. Build one with NewMessage or
// NewPartsMessage; the fields are not meant to be changed afterwards.
type Message struct {
	Role    Role           `json:"role"`
	Content MessageContent `json:"content"`
}

// NewMessage creates a plain text message.
func NewMessage(role Role, text string) Message {
	return Message{Role: role, Content: MessageContent{Text: text}}
}

// NewPartsMessage creates a multimodal message.
func NewPartsMessage(role Role, parts ...ContentPart) Message {
	cp := make([]ContentPart, len(parts))
	copy(cp, parts)
	return Message{Role: role, Content: MessageContent{Parts: cp}}
}

// Text returns the message content flattened to text.
func (m Message) Text() string {
	return m.Content.String()
}

// Params holds optional generation parameters. A nil field is absent and is
// never sent upstream.
type Params struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"max_tokens,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	N                *int     `json:"n,omitempty"`
	ResponseFormat   any      `json:"response_format,omitempty"`
	ToolChoice       any      `json:"tool_choice,omitempty"`
	Tools            []any    `json:"tools,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
}

// Validate checks the numeric constraints on the parameters.
func (p *Params) Validate() error {
	if p == nil {
		return nil
	}
	if p.Temperature != nil && *p.Temperature < 0 {
		return ErrConfig(fmt.Sprintf("temperature must be non-negative, got %v", *p.Temperature))
	}
	if p.MaxTokens != nil && *p.MaxTokens <= 0 {
		return ErrConfig(fmt.Sprintf("max tokens must be positive, got %d", *p.MaxTokens))
	}
	return nil
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Params   Params    `json:"params"`
}

// Protocol identifies the wire path that served a completion.
type Protocol string

const (
	ProtocolOpenAI         Protocol = "openai"
	ProtocolNativeChat     Protocol = "ollama/chat"
	ProtocolNativeGenerate Protocol = "ollama/generate"
)

// CompletionResult is the normalized outcome of a completion call.
type CompletionResult struct {
	Text         string        `json:"text"`
	Elapsed      time.Duration `json:"elapsed"`
	Protocol     Protocol      `json:"protocol"`
	PromptTokens int           `json:"prompt_tokens,omitempty"`
}

// Search limits.
const (
	MinSearchLimit     = 1
	MaxSearchLimit     = 10
	DefaultSearchLimit = 5
)

// SearchQuery is a raw query plus its derived filtered form. Filtered is
// built once per call and never modified.
type SearchQuery struct {
	Raw      string `json:"raw"`
	Limit    int    `json:"limit"`
	Filtered string `json:"filtered"`
}

// ClampLimit bounds a result limit to the accepted range.
func ClampLimit(n int) int {
	if n < MinSearchLimit {
		return MinSearchLimit
	}
	if n > MaxSearchLimit {
		return MaxSearchLimit
	}
	return n
}

// SearchItem is one normalized search hit.
type SearchItem struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet,omitempty"`
}

// SearchResult is the ordered outcome of one search call.
type SearchResult struct {
	Items []SearchItem `json:"items"`
	Raw   []byte       `json:"-"`
}

// Render formats the items as markdown bullet lines. With no items it
// returns the raw response body instead.
func (r *SearchResult) Render() string {
	if r == nil {
		return ""
	}
	if len(r.Items) == 0 {
		return string(r.Raw)
	}
	lines := make([]string, 0, len(r.Items))
	for _, it := range r.Items {
		lines = append(lines, fmt.Sprintf("- [%s](%s) — %s", it.Title, it.Link, it.Snippet))
	}
	return strings.Join(lines, "\n")
}

// IsFallback reports whether Render falls back to the raw body.
func (r *SearchResult) IsFallback() bool {
	return r != nil && len(r.Items) == 0
}
