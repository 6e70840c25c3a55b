package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/ferry-watch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS check_results (
	id                     BIGSERIAL PRIMARY KEY,
	checked_at             TIMESTAMPTZ NOT NULL,
	outcome                TEXT NOT NULL,
	available              BOOLEAN NOT NULL,
	departure_port         TEXT NOT NULL,
	arrival_port           TEXT NOT NULL,
	outbound_date          DATE NOT NULL,
	return_date            DATE NOT NULL,
	structural_available   INT NOT NULL,
	structural_unavailable INT NOT NULL,
	lexical_positive       INT NOT NULL,
	lexical_negative       INT NOT NULL,
	attempts               INT NOT NULL,
	submitted              BOOLEAN NOT NULL,
	failure_reason         TEXT NOT NULL DEFAULT '',
	page_url               TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS check_field_outcomes (
	check_id BIGINT NOT NULL REFERENCES check_results (id) ON DELETE CASCADE,
	field    TEXT NOT NULL,
	filled   BOOLEAN NOT NULL,
	probe    INT NOT NULL,
	selector TEXT NOT NULL DEFAULT '',
	tried    INT NOT NULL,
	reason   TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (check_id, field)
);`

// PostgresStore appends every check to a history table.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if _, err := db.Exec(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

// Record saves the result and its field outcomes within a single transaction.
func (s *PostgresStore) Record(ctx context.Context, result *domain.CheckResult) error {
	rec := NewRecord(result)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var checkID int64
	err = tx.QueryRow(ctx,
		`INSERT INTO check_results (checked_at, outcome, available, departure_port, arrival_port,
		   outbound_date, return_date, structural_available, structural_unavailable,
		   lexical_positive, lexical_negative, attempts, submitted, failure_reason, page_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		 RETURNING id`,
		rec.CheckedAt, rec.Outcome, rec.Available, rec.DeparturePort, rec.ArrivalPort,
		result.Criteria.OutboundDate, result.Criteria.ReturnDate,
		rec.Signal.StructuralAvailable, rec.Signal.StructuralUnavailable,
		rec.Signal.LexicalPositive, rec.Signal.LexicalNegative,
		rec.Attempts, rec.Submitted, rec.FailureReason, rec.PageURL,
	).Scan(&checkID)
	if err != nil {
		return fmt.Errorf("insert check result: %w", err)
	}

	if result.Fill != nil && len(result.Fill.Fields) > 0 {
		batch := &pgx.Batch{}
		for _, f := range result.Fill.Fields {
			batch.Queue(`INSERT INTO check_field_outcomes (check_id, field, filled, probe, selector, tried, reason)
			             VALUES ($1, $2, $3, $4, $5, $6, $7)
			             ON CONFLICT (check_id, field) DO NOTHING`,
				checkID, f.Field, f.Filled, f.Probe, f.Selector, f.Tried, f.Reason)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert field outcomes: %w", err)
		}
	}

	return tx.Commit(ctx)
}
