package llm

import (
	"fmt"
	"strings"

	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// Style is the wire protocol a client speaks.
type Style string

const (
	// StyleOpenAI posts to {base}/chat/completions.
	StyleOpenAI Style = "openai"
	// StyleOllama posts to {base}/api/chat, falling back to {base}/api/generate.
	StyleOllama Style = "ollama"
)

// ResolveStyle returns the explicit style when one is given, otherwise
// infers it from the base URL: a trailing /v1 means OpenAI-compatible.
func ResolveStyle(explicit, baseURL string) (Style, error) {
	s := Style(strings.ToLower(strings.TrimSpace(explicit)))
	switch s {
	case StyleOpenAI, StyleOllama:
		return s, nil
	case "":
		if strings.HasSuffix(strings.TrimSuffix(baseURL, "/"), "/v1") {
			return StyleOpenAI, nil
		}
		return StyleOllama, nil
	default:
		return "", domain.ErrConfig(fmt.Sprintf("unsupported api style %q (want openai or ollama)", explicit))
	}
}

// FlattenTranscript renders messages as a single prompt for /api/generate:
// "ROLE:\ncontent" blocks separated by blank lines, ending with an
// assistant cue.
func FlattenTranscript(messages []domain.Message) string {
	parts := make([]string, 0, len(messages)+1)
	for _, m := range messages {
		role := m.Role
		if role == "" {
			role = domain.RoleUser
		}
		parts = append(parts, strings.ToUpper(string(role))+":\n"+m.Text())
	}
	parts = append(parts, "ASSISTANT:\n")
	return strings.Join(parts, "\n\n")
}
