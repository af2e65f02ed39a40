// Package sqlite provides a SQLite index of trace records, queryable after a
// run to see which calls were made, how long they took and which failed.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tjfontaine/clockwork-muse/internal/storage"
	"github.com/tjfontaine/clockwork-muse/internal/trace"
)

// Store is a SQLite implementation of trace.Recorder.
type Store struct {
	db *sql.DB
}

var _ storage.TraceStore = (*Store)(nil)

// New opens (or creates) the trace database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS traces (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			name TEXT NOT NULL,
			model TEXT,
			protocol TEXT,
			elapsed_ns INTEGER NOT NULL,
			prompt_tokens INTEGER NOT NULL DEFAULT 0,
			request TEXT,
			response TEXT,
			output TEXT,
			error TEXT,
			attrs TEXT,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_traces_kind ON traces(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_traces_created ON traces(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// Record implements trace.Recorder.
func (s *Store) Record(ctx context.Context, rec *trace.Record) error {
	attrs, err := json.Marshal(rec.Attrs)
	if err != nil {
		return fmt.Errorf("failed to marshal attrs: %w", err)
	}

	query := `INSERT INTO traces (id, kind, name, model, protocol, elapsed_ns, prompt_tokens,
	          request, response, output, error, attrs, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID, string(rec.Kind), rec.Name, rec.Model, rec.Protocol,
		rec.Elapsed.Nanoseconds(), rec.PromptTokens,
		string(rec.Request), string(rec.Response), rec.Output, rec.Err,
		string(attrs), rec.Time)
	if err != nil {
		return fmt.Errorf("failed to insert trace: %w", err)
	}

	return nil
}

// ListOptions filters List results.
type ListOptions = storage.ListOptions

// Count returns the number of stored records of the given kind (all kinds
// when empty).
func (s *Store) Count(ctx context.Context, kind trace.Kind) (int, error) {
	query := `SELECT COUNT(*) FROM traces WHERE (? = '' OR kind = ?)`
	var n int
	if err := s.db.QueryRowContext(ctx, query, string(kind), string(kind)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count traces: %w", err)
	}
	return n, nil
}

// List returns stored records, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*trace.Record, error) {
	query := `SELECT id, kind, name, model, protocol, elapsed_ns, prompt_tokens,
	          request, response, output, error, attrs, created_at
	          FROM traces
	          WHERE (? = '' OR kind = ?) AND (? = 0 OR error != '')
	          ORDER BY created_at DESC
	          LIMIT ? OFFSET ?`

	limit := opts.Limit
	if limit == 0 {
		limit = storage.DefaultListLimit
	}
	failedOnly := 0
	if opts.FailedOnly {
		failedOnly = 1
	}

	rows, err := s.db.QueryContext(ctx, query,
		string(opts.Kind), string(opts.Kind), failedOnly, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query traces: %w", err)
	}
	defer rows.Close()

	var records []*trace.Record
	for rows.Next() {
		var (
			rec                      trace.Record
			kind                     string
			elapsedNS                int64
			request, response, attrs string
			createdAt                time.Time
		)
		if err := rows.Scan(&rec.ID, &kind, &rec.Name, &rec.Model, &rec.Protocol,
			&elapsedNS, &rec.PromptTokens, &request, &response, &rec.Output,
			&rec.Err, &attrs, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		rec.Kind = trace.Kind(kind)
		rec.Elapsed = time.Duration(elapsedNS)
		rec.Time = createdAt
		if request != "" {
			rec.Request = json.RawMessage(request)
		}
		if response != "" {
			rec.Response = json.RawMessage(response)
		}
		if attrs != "" && attrs != "null" {
			if err := json.Unmarshal([]byte(attrs), &rec.Attrs); err != nil {
				return nil, fmt.Errorf("failed to unmarshal attrs: %w", err)
			}
		}
		records = append(records, &rec)
	}

	return records, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
