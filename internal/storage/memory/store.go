package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tjfontaine/clockwork-muse/internal/storage"
	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

// Store is an in-memory implementation of storage.TraceStore. It keeps
// the records of a single process.
type Store struct {
	mu      sync.RWMutex
	records []*trace.Record
}

var _ storage.TraceStore = (*Store)(nil)

// New creates a new in-memory store
func New() *Store {
	return &Store{}
}

// Record implements trace.Recorder.
func (s *Store) Record(ctx context.Context, rec *trace.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, rec)
	return nil
}

func (s *Store) Count(ctx context.Context, kind trace.Kind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, rec := range s.records {
		if kind == "" || rec.Kind == kind {
			n++
		}
	}
	return n, nil
}

// List returns matching records, newest first.
func (s *Store) List(ctx context.Context, opts storage.ListOptions) ([]*trace.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*trace.Record
	for _, rec := range s.records {
		if opts.Kind != "" && rec.Kind != opts.Kind {
			continue
		}
		if opts.FailedOnly && !rec.Failed() {
			continue
		}
		result = append(result, rec)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Time.After(result[j].Time)
	})

	// Simple pagination
	start := opts.Offset
	if start >= len(result) {
		return []*trace.Record{}, nil
	}

	limit := opts.Limit
	if limit == 0 {
		limit = storage.DefaultListLimit
	}
	end := start + limit
	if limit < 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

func (s *Store) Close() error {
	return nil
}
