package trace

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// maxSearchOutput bounds the output kept in a search log entry.
const maxSearchOutput = 2000

var unsafeFileChars = strings.NewReplacer(
	"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
	"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

// SanitizeModel makes a model identifier safe for use in a file name.
func SanitizeModel(model string) string {
	if model == "" {
		return "model"
	}
	return unsafeFileChars.Replace(model)
}

// FilePrefix is the per-call base name: timestamp, model and a random token.
func FilePrefix(r *Record) string {
	return fmt.Sprintf("%s-%s-%s", r.Time.Format("20060102-150405"), SanitizeModel(r.Model), r.Token())
}

// Transcript renders an LLM record as the human readable trace file.
func Transcript(r *Record) string {
	lines := []string{
		fmt.Sprintf("elapsed: %.2fs", r.Elapsed.Seconds()),
		fmt.Sprintf("model: %s", r.Model),
		fmt.Sprintf("protocol: %s", r.Protocol),
	}
	if r.PromptTokens > 0 {
		lines = append(lines, fmt.Sprintf("prompt_tokens: %d", r.PromptTokens))
	}
	lines = append(lines, "=== PROMPT ===")
	for _, m := range r.Messages {
		role := strings.ToUpper(string(m.Role))
		if role == "" {
			role = "USER"
		}
		lines = append(lines, fmt.Sprintf("\n[%s]\n%s", role, m.Text()))
	}
	lines = append(lines, "\n=== RESPONSE ===\n", r.Output)
	if r.Failed() {
		lines = append(lines, "\n=== ERROR ===\n", r.Err)
	}
	lines = append(lines, "\n=== END ===\n")
	return strings.Join(lines, "\n")
}

// SearchEntry renders a search record as one append-only log entry.
func SearchEntry(r *Record) string {
	var b strings.Builder
	b.WriteString("\n=== ")
	b.WriteString(r.Name)
	if r.Failed() {
		b.WriteString(" ERROR")
	}
	fmt.Fprintf(&b, " (%.2fs)", r.Elapsed.Seconds())
	for _, k := range []string{"attempts", "fallback"} {
		if v, ok := r.Attrs[k]; ok {
			fmt.Fprintf(&b, " %s=%s", k, v)
		}
	}
	b.WriteString(" ===\n")
	fmt.Fprintf(&b, "IN : %s\n", pretty(r.Request))
	if r.Failed() {
		fmt.Fprintf(&b, "ERR: %s\n", r.Err)
	} else {
		fmt.Fprintf(&b, "OUT: %s\n", Truncate(r.Output, maxSearchOutput))
	}
	return b.String()
}

// pretty indents a JSON payload, falling back to the raw text.
func pretty(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := indentJSON(v)
	if err != nil {
		return string(raw)
	}
	return strings.TrimRight(string(out), "\n")
}

// indentJSON marshals v with two-space indentation and without HTML
// escaping, so URLs and queries stay readable.
func indentJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
