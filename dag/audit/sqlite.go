package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dshills/intentrouter-go/dag/model"
)

// SQLiteStore is a SQLite-backed Store. It creates its schema on first
// use and opens in WAL mode for concurrent reads.
//
// Schema:
//   - audit_entries: one row per recorded LLM call
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a SQLite database at path
// and ensures the audit schema exists. path may be ":memory:" for a
// database that does not survive process exit.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("audit: %s: %w", pragma, err)
		}
	}

	store := &SQLiteStore{db: db}
	if err := store.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) createSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			model TEXT NOT NULL,
			provider TEXT NOT NULL,
			prompt TEXT NOT NULL,
			response TEXT NOT NULL,
			tokens INTEGER NOT NULL,
			cost_usd REAL NOT NULL,
			duration_ms INTEGER NOT NULL,
			recorded_at TIMESTAMP NOT NULL
		)
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: create schema: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_audit_run_id ON audit_entries(run_id)"); err != nil {
		return fmt.Errorf("audit: create index: %w", err)
	}
	return nil
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, runID, nodeID string, entry model.AuditEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_entries (run_id, node_id, model, provider, prompt, response, tokens, cost_usd, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, nodeID, entry.Model, entry.Provider, entry.Prompt, entry.Response, entry.Tokens, entry.CostUSD, entry.Duration.Milliseconds(), entry.Timestamp)
	if err != nil {
		return fmt.Errorf("audit: insert entry: %w", err)
	}
	return nil
}

// ListByRun implements Store.
func (s *SQLiteStore) ListByRun(ctx context.Context, runID string) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT model, provider, prompt, response, tokens, cost_usd, duration_ms, recorded_at
		FROM audit_entries WHERE run_id = ? ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("audit: query entries: %w", err)
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var durationMs int64
		if err := rows.Scan(&e.Model, &e.Provider, &e.Prompt, &e.Response, &e.Tokens, &e.CostUSD, &durationMs, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.Duration = time.Duration(durationMs) * time.Millisecond
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate entries: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// TotalCost implements Store.
func (s *SQLiteStore) TotalCost(ctx context.Context, runID string) (float64, error) {
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, "SELECT SUM(cost_usd) FROM audit_entries WHERE run_id = ?", runID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("audit: sum cost: %w", err)
	}
	if !total.Valid {
		return 0, ErrNotFound
	}
	return total.Float64, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
