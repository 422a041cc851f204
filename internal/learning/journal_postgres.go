package learning

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"outreach-service/internal/modal"
)

const outcomesSchema = `
CREATE TABLE IF NOT EXISTS outreach_outcomes (
	run_id      TEXT        NOT NULL,
	contact_id  TEXT        NOT NULL,
	record      JSONB       NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL,
	seq         BIGSERIAL,
	PRIMARY KEY (run_id, contact_id)
)`

// PostgresJournal keeps one row per (run, contact); Append upserts.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

// OpenPostgresJournal connects, pings and ensures the table exists.
// dsn must not be logged; it contains secrets.
func OpenPostgresJournal(ctx context.Context, dsn string) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	if _, err := pool.Exec(ctx, outcomesSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create outcomes table: %w", err)
	}
	return &PostgresJournal{pool: pool}, nil
}

func (j *PostgresJournal) Append(ctx context.Context, rec modal.OutcomeRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	_, err = j.pool.Exec(ctx, `
		INSERT INTO outreach_outcomes (run_id, contact_id, record, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (run_id, contact_id)
		DO UPDATE SET record = EXCLUDED.record, recorded_at = EXCLUDED.recorded_at`,
		rec.RunID, rec.ContactID, body, rec.RecordedAt)
	if err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Replay(ctx context.Context) ([]modal.OutcomeRecord, error) {
	rows, err := j.pool.Query(ctx, `SELECT record FROM outreach_outcomes ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []modal.OutcomeRecord
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		var rec modal.OutcomeRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, fmt.Errorf("decode outcome: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *PostgresJournal) Close() {
	j.pool.Close()
}
