package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

func newTestStore(t *testing.T, name string) *Store {
	t.Helper()
	// Use in-memory SQLite with shared cache for testing
	store, err := New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_RecordAndList(t *testing.T) {
	store := newTestStore(t, "traces1")
	ctx := context.Background()

	llm := trace.NewRecord(trace.KindLLM, "complete")
	llm.Model = "qwen2.5:7b-instruct"
	llm.Protocol = "ollama/chat"
	llm.Elapsed = 1500 * time.Millisecond
	llm.Request = json.RawMessage(`{"model":"qwen2.5:7b-instruct"}`)
	llm.Response = json.RawMessage(`{"message":{"content":"ok"}}`)
	llm.Output = "ok"
	llm.PromptTokens = 12

	search := trace.NewRecord(trace.KindSearch, "serper_robust")
	search.Time = llm.Time.Add(time.Second)
	search.SetError(errors.New("HTTP 401"))
	search.Attrs = map[string]string{"attempts": "1"}

	for _, rec := range []*trace.Record{llm, search} {
		if err := store.Record(ctx, rec); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	n, err := store.Count(ctx, "")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Count(all) = %d, want 2", n)
	}
	if n, _ := store.Count(ctx, trace.KindLLM); n != 1 {
		t.Errorf("Count(llm) = %d, want 1", n)
	}

	records, err := store.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("List() returned %d records, want 2", len(records))
	}
	if records[0].ID != search.ID {
		t.Errorf("newest record = %s, want %s", records[0].ID, search.ID)
	}

	got := records[1]
	if got.Model != llm.Model || got.Protocol != llm.Protocol || got.Output != "ok" {
		t.Errorf("round-tripped record = %+v", got)
	}
	if got.Elapsed != llm.Elapsed {
		t.Errorf("Elapsed = %v, want %v", got.Elapsed, llm.Elapsed)
	}
	if got.PromptTokens != 12 {
		t.Errorf("PromptTokens = %d, want 12", got.PromptTokens)
	}

	failed, err := store.List(ctx, ListOptions{FailedOnly: true})
	if err != nil {
		t.Fatalf("List(failed) error = %v", err)
	}
	if len(failed) != 1 || failed[0].Attrs["attempts"] != "1" {
		t.Errorf("List(failed) = %+v", failed)
	}
}

func TestStore_DuplicateID(t *testing.T) {
	store := newTestStore(t, "traces2")
	ctx := context.Background()

	rec := trace.NewRecord(trace.KindSearch, "serper_robust")
	if err := store.Record(ctx, rec); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if err := store.Record(ctx, rec); err == nil {
		t.Error("expected error inserting the same record twice")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/invalid/path/that/does/not/exist/traces.db")
	if err == nil {
		t.Error("Expected error for invalid path")
	}
}
