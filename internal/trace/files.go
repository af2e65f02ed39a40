package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// SearchLogName is the append-only log file for search calls.
const SearchLogName = "serper.log"

// Files writes LLM records as per-call transcript files (plus an optional
// JSON payload file) and appends search records to a shared log.
type Files struct {
	llmDir    string
	toolsDir  string
	writeJSON bool

	mu sync.Mutex
}

// NewFiles creates the trace directories.
func NewFiles(llmDir, toolsDir string, writeJSON bool) (*Files, error) {
	for _, dir := range []string{llmDir, toolsDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("trace: create %s: %w", dir, err)
		}
	}
	return &Files{llmDir: llmDir, toolsDir: toolsDir, writeJSON: writeJSON}, nil
}

// Record implements Recorder.
func (f *Files) Record(ctx context.Context, rec *Record) error {
	switch rec.Kind {
	case KindLLM:
		return f.writeLLM(rec)
	case KindSearch:
		return f.appendSearch(rec)
	default:
		return fmt.Errorf("trace: unknown record kind %q", rec.Kind)
	}
}

// TranscriptPath returns where the transcript of rec is written.
func (f *Files) TranscriptPath(rec *Record) string {
	return filepath.Join(f.llmDir, FilePrefix(rec)+".txt")
}

func (f *Files) writeLLM(rec *Record) error {
	if f.llmDir == "" {
		return nil
	}
	txt := f.TranscriptPath(rec)
	if err := os.WriteFile(txt, []byte(Transcript(rec)), 0o644); err != nil {
		return fmt.Errorf("trace: write %s: %w", txt, err)
	}
	if !f.writeJSON {
		return nil
	}

	payload := struct {
		Request  json.RawMessage `json:"request"`
		Response json.RawMessage `json:"response"`
		Error    string          `json:"error,omitempty"`
	}{
		Request:  orNull(rec.Request),
		Response: orNull(rec.Response),
		Error:    rec.Err,
	}
	b, err := indentJSON(payload)
	if err != nil {
		return fmt.Errorf("trace: marshal payload: %w", err)
	}
	path := filepath.Join(f.llmDir, FilePrefix(rec)+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("trace: write %s: %w", path, err)
	}
	return nil
}

// appendSearch writes the whole entry with a single Write on an O_APPEND
// descriptor. The mutex only orders writers inside this process.
func (f *Files) appendSearch(rec *Record) error {
	if f.toolsDir == "" {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	path := filepath.Join(f.toolsDir, SearchLogName)
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("trace: open %s: %w", path, err)
	}
	if _, err := fh.WriteString(SearchEntry(rec)); err != nil {
		fh.Close()
		return fmt.Errorf("trace: append %s: %w", path, err)
	}
	return fh.Close()
}

func orNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || !json.Valid(raw) {
		return json.RawMessage("null")
	}
	return raw
}
