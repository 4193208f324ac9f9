package storage

// circuitbreaker.go — persistence for the order executor's circuit
// breaker, so a trip survives a process restart instead of silently
// resetting to a closed breaker right when the broker is unhealthy.
//
// One row, id=1, updated in place.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mwagner-dev/wheelengine/internal/domain"
)

const breakerSchema = `
CREATE TABLE IF NOT EXISTS circuit_breaker (
    id                  INTEGER PRIMARY KEY DEFAULT 1,
    consecutive_failures INTEGER NOT NULL DEFAULT 0,
    max_failures        INTEGER NOT NULL DEFAULT 3,
    cooldown_until      DATETIME,
    cooldown_duration_s INTEGER NOT NULL DEFAULT 3600,
    triggered           INTEGER NOT NULL DEFAULT 0,
    triggered_reason    TEXT
);

INSERT OR IGNORE INTO circuit_breaker (id) VALUES (1);
`

// CircuitBreakerStore persists the one circuit breaker a wheel engine
// process runs, keyed to a single row.
type CircuitBreakerStore struct {
	db *sql.DB
}

// OpenCircuitBreakerStore opens (or creates) the breaker database at path.
func OpenCircuitBreakerStore(path string) (*CircuitBreakerStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.OpenCircuitBreakerStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(breakerSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.OpenCircuitBreakerStore: apply schema: %w", err)
	}
	return &CircuitBreakerStore{db: db}, nil
}

// Save persists the current breaker state, overwriting the single row.
func (s *CircuitBreakerStore) Save(ctx context.Context, cb domain.CircuitBreaker) error {
	triggered := 0
	if cb.Triggered {
		triggered = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE circuit_breaker SET
			consecutive_failures = ?,
			max_failures         = ?,
			cooldown_until       = ?,
			cooldown_duration_s  = ?,
			triggered            = ?,
			triggered_reason     = ?
		WHERE id = 1`,
		cb.ConsecutiveFailures, cb.MaxFailures, cb.CooldownUntil.UTC(),
		int(cb.CooldownDuration.Seconds()), triggered, cb.TriggeredReason,
	)
	if err != nil {
		return fmt.Errorf("storage.CircuitBreakerStore.Save: %w", err)
	}
	return nil
}

// Load reads the persisted breaker state. A fresh database returns a
// zero-valued, closed (Triggered=false) breaker.
func (s *CircuitBreakerStore) Load(ctx context.Context) (domain.CircuitBreaker, error) {
	var cb domain.CircuitBreaker
	var cooldownUntil sql.NullTime
	var cooldownSeconds int
	var triggered int
	var reason sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT consecutive_failures, max_failures, cooldown_until, cooldown_duration_s, triggered, triggered_reason
		FROM circuit_breaker WHERE id = 1`,
	).Scan(&cb.ConsecutiveFailures, &cb.MaxFailures, &cooldownUntil, &cooldownSeconds, &triggered, &reason)
	if err != nil {
		return domain.CircuitBreaker{}, fmt.Errorf("storage.CircuitBreakerStore.Load: %w", err)
	}

	if cooldownUntil.Valid {
		cb.CooldownUntil = cooldownUntil.Time
	}
	cb.CooldownDuration = time.Duration(cooldownSeconds) * time.Second
	cb.Triggered = triggered == 1
	cb.TriggeredReason = reason.String
	return cb, nil
}

// Close closes the underlying database connection.
func (s *CircuitBreakerStore) Close() error {
	return s.db.Close()
}
