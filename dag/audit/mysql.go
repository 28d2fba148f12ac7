package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/dshills/intentrouter-go/dag/model"
)

// MySQLStore is a MySQL-backed Store for deployments that already run
// a MySQL instance and want audit entries alongside other operational
// tables rather than in a separate SQLite file.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection using dsn (a go-sql-driver/mysql
// data source name) and ensures the audit schema exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open mysql: %w", err)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: ping mysql: %w", err)
	}

	store := &MySQLStore{db: db}
	if err := store.createSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *MySQLStore) createSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			run_id VARCHAR(255) NOT NULL,
			node_id VARCHAR(255) NOT NULL,
			model VARCHAR(255) NOT NULL,
			provider VARCHAR(64) NOT NULL,
			prompt TEXT NOT NULL,
			response TEXT NOT NULL,
			tokens INT NOT NULL,
			cost_usd DOUBLE NOT NULL,
			duration_ms BIGINT NOT NULL,
			recorded_at TIMESTAMP NOT NULL,
			INDEX idx_audit_run_id (run_id)
		) ENGINE=InnoDB
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("audit: create schema: %w", err)
	}
	return nil
}

// Append implements Store.
func (s *MySQLStore) Append(ctx context.Context, runID, nodeID string, entry model.AuditEntry) error {
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
func (s *MySQLStore) ListByRun(ctx context.Context, runID string) ([]model.AuditEntry, error) {
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
func (s *MySQLStore) TotalCost(ctx context.Context, runID string) (float64, error) {
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
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
