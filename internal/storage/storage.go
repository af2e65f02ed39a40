// Package storage defines the queryable trace stores.
package storage

import (
	"context"

	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

// ListOptions filters List results. A negative Limit returns every match.
type ListOptions struct {
	Kind       trace.Kind // empty matches all kinds
	FailedOnly bool
	Limit      int
	Offset     int
}

// DefaultListLimit applies when ListOptions.Limit is zero.
const DefaultListLimit = 100

// TraceStore is a Recorder whose records can be read back.
type TraceStore interface {
	trace.Recorder
	Count(ctx context.Context, kind trace.Kind) (int, error)
	List(ctx context.Context, opts ListOptions) ([]*trace.Record, error)
	Close() error
}

// Stats summarizes the records of one run.
type Stats struct {
	LLMCalls int `json:"llm_calls"`
	Searches int `json:"searches"`
	Failed   int `json:"failed"`
}

// Collect counts every record in store.
func Collect(ctx context.Context, store TraceStore) (Stats, error) {
	var s Stats
	var err error
	if s.LLMCalls, err = store.Count(ctx, trace.KindLLM); err != nil {
		return s, err
	}
	if s.Searches, err = store.Count(ctx, trace.KindSearch); err != nil {
		return s, err
	}
	failed, err := store.List(ctx, ListOptions{FailedOnly: true, Limit: -1})
	if err != nil {
		return s, err
	}
	s.Failed = len(failed)
	return s, nil
}
