// Package trace records one diagnostic entry per outbound search or LLM call.
//
// Callers depend only on the Recorder interface; the file, console, SQLite
// and slog recorders are composed with Multi at startup.
package trace

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// Kind is the family of call that produced a record.
type Kind string

const (
	KindLLM    Kind = "llm"
	KindSearch Kind = "search"
)

// Record pairs a request with its response or error. It is created once per
// call and not modified after being handed to a Recorder.
type Record struct {
	ID           string
	Kind         Kind
	Name         string
	Time         time.Time
	Elapsed      time.Duration
	Model        string
	Protocol     string
	Messages     []domain.Message
	Request      json.RawMessage
	Response     json.RawMessage
	Output       string
	Err          string
	PromptTokens int
	Attrs        map[string]string
}

// NewRecord creates a record stamped with a fresh ID and the current time.
func NewRecord(kind Kind, name string) *Record {
	return &Record{
		ID:   strings.ReplaceAll(uuid.New().String(), "-", ""),
		Kind: kind,
		Name: name,
		Time: time.Now(),
	}
}

// Token returns the short random token used to disambiguate file names.
func (r *Record) Token() string {
	if len(r.ID) < 8 {
		return r.ID
	}
	return r.ID[:8]
}

// SetError stores err's message on the record.
func (r *Record) SetError(err error) {
	if err != nil {
		r.Err = err.Error()
	}
}

// Failed reports whether the call ended in an error.
func (r *Record) Failed() bool {
	return r.Err != ""
}

// Recorder persists trace records.
type Recorder interface {
	Record(ctx context.Context, rec *Record) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, rec *Record) error

// Record calls f(ctx, rec).
func (f RecorderFunc) Record(ctx context.Context, rec *Record) error {
	return f(ctx, rec)
}

// Discard drops every record.
var Discard Recorder = RecorderFunc(func(context.Context, *Record) error { return nil })

// Multi fans a record out to every recorder. All recorders run even when
// one fails; the failures are joined.
func Multi(recorders ...Recorder) Recorder {
	var rs []Recorder
	for _, r := range recorders {
		if r != nil {
			rs = append(rs, r)
		}
	}
	return RecorderFunc(func(ctx context.Context, rec *Record) error {
		var errs []error
		for _, r := range rs {
			if err := r.Record(ctx, rec); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
