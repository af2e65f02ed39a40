package trace

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Console echoes the head of each LLM response to a writer.
type Console struct {
	w        io.Writer
	maxChars int
	mu       sync.Mutex
}

// NewConsole creates a console echo limited to maxChars characters.
func NewConsole(w io.Writer, maxChars int) *Console {
	return &Console{w: w, maxChars: maxChars}
}

// Record implements Recorder. Search records are ignored.
func (c *Console) Record(ctx context.Context, rec *Record) error {
	if rec.Kind != KindLLM {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	body := Truncate(rec.Output, c.maxChars)
	if rec.Failed() {
		body = "ERROR: " + rec.Err
	}
	_, err := fmt.Fprintf(c.w, "\n--- LLM [%s] %s (%.2fs) [%s] ---\n%s\n--- /LLM ---\n",
		rec.Model, FilePrefix(rec), rec.Elapsed.Seconds(), rec.Protocol, body)
	return err
}
