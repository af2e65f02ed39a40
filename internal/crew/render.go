package crew

import (
	"strings"
	"text/template"
)

// MaxContextChars bounds each block of prior output fed into a prompt.
const MaxContextChars = 12000

// Inputs are the values templates render against.
type Inputs struct {
	Topic    string
	Topics   []string
	Channels []string
	RunID    string
}

func (in Inputs) data() map[string]any {
	return map[string]any{
		"topic":    in.Topic,
		"topics":   in.Topics,
		"channels": in.Channels,
		"run_id":   in.RunID,
	}
}

// Render executes s as a text/template. On any parse or execution error s
// is returned unchanged.
func Render(s string, in Inputs) string {
	if !strings.Contains(s, "{{") {
		return s
	}
	tmpl, err := template.New("crew").Option("missingkey=error").Parse(s)
	if err != nil {
		return s
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, in.data()); err != nil {
		return s
	}
	return b.String()
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
