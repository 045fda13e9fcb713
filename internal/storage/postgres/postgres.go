package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/newsprobe/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS search_records (
	id TEXT PRIMARY KEY,
	provider TEXT NOT NULL,
	terms TEXT NOT NULL,
	language TEXT NOT NULL,
	country TEXT NOT NULL,
	time_range TEXT NOT NULL,
	safesearch INTEGER NOT NULL,
	request_url TEXT NOT NULL,
	final_url TEXT NOT NULL,
	status_code INTEGER NOT NULL,
	detected_bot BOOLEAN NOT NULL,
	detection_src TEXT NOT NULL DEFAULT '',
	interception TEXT NOT NULL DEFAULT '',
	results JSONB NOT NULL,
	duration_ms BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS search_records_created_at ON search_records (created_at);
`

const columns = `id, provider, terms, language, country, time_range, safesearch, request_url, final_url,
	status_code, detected_bot, detection_src, interception, results, duration_ms, created_at, error`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	resultsJSON := []byte("[]")
	if record.Results != nil {
		var err error
		if resultsJSON, err = json.Marshal(record.Results); err != nil {
			return fmt.Errorf("marshal results of %s: %w", record.ID, err)
		}
	}

	query := `INSERT INTO search_records (` + columns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := b.pool.Exec(ctx, query,
		record.ID,
		record.Provider,
		record.Terms,
		record.Language,
		record.Country,
		record.TimeRange,
		record.SafeSearch,
		record.RequestURL,
		record.FinalURL,
		record.StatusCode,
		record.DetectedBot,
		record.DetectionSrc,
		record.Interception,
		resultsJSON,
		record.Duration.Milliseconds(),
		record.CreatedAt,
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", record.ID, err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	query := `SELECT ` + columns + ` FROM search_records WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Terms != "" {
		query += fmt.Sprintf(` AND terms = $%d`, paramCount)
		args = append(args, filter.Terms)
		paramCount++
	}
	if filter.Intercepted != nil {
		if *filter.Intercepted {
			query += ` AND interception <> ''`
		} else {
			query += ` AND interception = ''`
		}
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*storage.SearchRecord
	for rows.Next() {
		var r storage.SearchRecord
		var resultsJSON []byte
		var durationMs int64

		err := rows.Scan(
			&r.ID, &r.Provider, &r.Terms, &r.Language, &r.Country, &r.TimeRange, &r.SafeSearch,
			&r.RequestURL, &r.FinalURL, &r.StatusCode, &r.DetectedBot, &r.DetectionSrc,
			&r.Interception, &resultsJSON, &durationMs, &r.CreatedAt, &r.Error,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(resultsJSON, &r.Results); err != nil {
			return nil, fmt.Errorf("decode results of %s: %w", r.ID, err)
		}

		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
