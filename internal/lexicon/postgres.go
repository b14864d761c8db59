package lexicon

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// LedgerSchema is the DDL for the accent_ledger table. Execute it via
// [PostgresLedgerStore.Migrate] or apply it manually during deployment.
// seq records first-seen order, which breaks ties between equal counts.
const LedgerSchema = `
CREATE TABLE IF NOT EXISTS accent_ledger (
    seq        BIGSERIAL,
    base       TEXT NOT NULL,
    form       TEXT NOT NULL,
    count      INTEGER NOT NULL CHECK (count > 0),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (base, form)
);
CREATE INDEX IF NOT EXISTS idx_accent_ledger_seq ON accent_ledger(seq);
`

// DB is the database interface used by [PostgresLedgerStore]. Both
// *pgxpool.Pool and *pgx.Conn satisfy it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresLedgerStore persists the ledger one row per (base, form) pair.
// Unlike [FileLedgerStore] it writes only the changed row.
type PostgresLedgerStore struct {
	db DB
}

var _ LedgerStore = (*PostgresLedgerStore)(nil)

// NewPostgresLedgerStore creates a store on db. Call Migrate before use.
func NewPostgresLedgerStore(db DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

// Migrate creates the accent_ledger table if it does not exist.
func (s *PostgresLedgerStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, LedgerSchema); err != nil {
		return fmt.Errorf("lexicon: migrate: %w", err)
	}
	return nil
}

// Load implements [LedgerStore].
func (s *PostgresLedgerStore) Load(ctx context.Context) ([]Observation, error) {
	const query = `
		SELECT l.base, l.form, l.count
		FROM accent_ledger l
		JOIN (SELECT base, MIN(seq) AS first_seq FROM accent_ledger GROUP BY base) b
		  ON b.base = l.base
		ORDER BY b.first_seq, l.seq`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("lexicon: load ledger: %w", err)
	}
	defer rows.Close()

	var out []Observation
	for rows.Next() {
		var o Observation
		var count int32
		if err := rows.Scan(&o.Base, &o.Form, &count); err != nil {
			return nil, fmt.Errorf("lexicon: scan ledger row: %w", err)
		}
		o.Count = int(count)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lexicon: load ledger: %w", err)
	}
	return out, nil
}

// Record implements [LedgerStore] with a single upsert.
func (s *PostgresLedgerStore) Record(ctx context.Context, _ []Observation, changed Observation) error {
	const query = `
		INSERT INTO accent_ledger (base, form, count)
		VALUES ($1, $2, $3)
		ON CONFLICT (base, form) DO UPDATE
		SET count = GREATEST(accent_ledger.count, EXCLUDED.count), updated_at = now()`

	if _, err := s.db.Exec(ctx, query, changed.Base, changed.Form, int32(changed.Count)); err != nil {
		return fmt.Errorf("lexicon: record %q/%q: %w", changed.Base, changed.Form, err)
	}
	return nil
}
