// Package pgstore persists the append-only settlement ledger in PostgreSQL.
package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/evroam/roaminghub/core/model"
)

// Config defines the PostgreSQL connection settings.
type Config struct {
	DSN string `json:"dsn"`
}

const schema = `
CREATE TABLE IF NOT EXISTS settled_cdrs (
	id           BIGSERIAL PRIMARY KEY,
	session_id   TEXT        NOT NULL,
	target       TEXT        NOT NULL,
	provider_id  TEXT        NOT NULL DEFAULT '',
	evse_id      TEXT        NOT NULL DEFAULT '',
	energy_kwh   DOUBLE PRECISION NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	stopped_at   TIMESTAMPTZ NOT NULL,
	settled_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (session_id)
)`

// Ledger implements dispatch.SettlementLedger on a pgx connection pool. The
// unique constraint on session_id backs the one-CDR-per-session rule at the
// persistence layer too.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger connects to PostgreSQL and ensures the schema exists.
func NewLedger(ctx context.Context, cfg Config) (*Ledger, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgstore: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore: schema: %w", err)
	}
	return &Ledger{pool: pool}, nil
}

// RecordSettled appends one settled record. A session already present is left
// untouched: the first settlement is authoritative.
func (l *Ledger) RecordSettled(ctx context.Context, cdr model.ChargeDetailRecord, target string) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO settled_cdrs (session_id, target, provider_id, evse_id, energy_kwh, started_at, stopped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO NOTHING`,
		cdr.SessionID, target, cdr.ProviderID, cdr.Location.EVSEID, cdr.EnergyKWh, cdr.StartedAt, cdr.StoppedAt)
	if err != nil {
		return fmt.Errorf("pgstore: record %s: %w", cdr.SessionID, err)
	}
	return nil
}

// Close releases the pool.
func (l *Ledger) Close() { l.pool.Close() }
