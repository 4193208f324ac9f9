package storage

// sqlite.go — cycle history for the reporting CLI.
//
// One row per scan/run/monitor cycle. This is purely an operational
// log: the Opportunity Store (internal/store) remains the sole source
// of truth for pending/executed artifacts. Old rows are pruned on
// startup so the database stays small across months of hourly cycles.

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mwagner-dev/wheelengine/internal/domain"
)

const cycleSchema = `
CREATE TABLE IF NOT EXISTS cycles (
    id                     INTEGER PRIMARY KEY AUTOINCREMENT,
    scanned_at             DATETIME NOT NULL,
    kind                   TEXT NOT NULL,
    underlyings_considered INTEGER NOT NULL DEFAULT 0,
    blocked_by_stage       TEXT NOT NULL DEFAULT '{}',
    orders_placed          INTEGER NOT NULL DEFAULT 0,
    orders_skipped         INTEGER NOT NULL DEFAULT 0,
    best_score             REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cycles_at   ON cycles(scanned_at DESC);
CREATE INDEX IF NOT EXISTS idx_cycles_kind ON cycles(kind);
`

const cycleRetention = 90 * 24 * time.Hour

// CycleStore persists CycleSummary rows for cmd/wheelreport. It is
// independent of the Opportunity Store's blob files and SQLite index —
// this is an append-only operational log, not the durable handoff path.
type CycleStore struct {
	db *sql.DB
}

// OpenCycleStore opens (or creates) the cycle history database at path.
func OpenCycleStore(path string) (*CycleStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenCycleStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(cycleSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.OpenCycleStore: apply schema: %w", err)
	}

	s := &CycleStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveCycle appends one cycle summary row.
func (s *CycleStore) SaveCycle(ctx context.Context, c domain.CycleSummary) error {
	blocked, err := json.Marshal(c.BlockedByStage)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: marshal blocked_by_stage: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cycles
			(scanned_at, kind, underlyings_considered, blocked_by_stage, orders_placed, orders_skipped, best_score)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ScannedAt.UTC(), c.Kind, c.UnderlyingsConsidered, string(blocked), c.OrdersPlaced, c.OrdersSkipped, c.BestScore,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveCycle: insert: %w", err)
	}
	return nil
}

// GetHistory returns cycle summaries whose scanned_at falls in
// [from, to], most recent first.
func (s *CycleStore) GetHistory(ctx context.Context, from, to time.Time) ([]domain.CycleSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT scanned_at, kind, underlyings_considered, blocked_by_stage, orders_placed, orders_skipped, best_score
		FROM cycles
		WHERE scanned_at BETWEEN ? AND ?
		ORDER BY scanned_at DESC, id DESC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.GetHistory: query: %w", err)
	}
	defer rows.Close()

	var out []domain.CycleSummary
	for rows.Next() {
		var c domain.CycleSummary
		var scannedAt string
		var blocked string

		if err := rows.Scan(&scannedAt, &c.Kind, &c.UnderlyingsConsidered, &blocked, &c.OrdersPlaced, &c.OrdersSkipped, &c.BestScore); err != nil {
			return nil, fmt.Errorf("storage.GetHistory: scan row: %w", err)
		}
		c.ScannedAt, _ = time.Parse(time.RFC3339, scannedAt)
		_ = json.Unmarshal([]byte(blocked), &c.BlockedByStage)
		out = append(out, c)
	}
	return out, rows.Err()
}

// Close closes the underlying database connection.
func (s *CycleStore) Close() error {
	return s.db.Close()
}

func (s *CycleStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-cycleRetention)
	s.db.ExecContext(ctx, `DELETE FROM cycles WHERE scanned_at < ?`, cutoff)
}
