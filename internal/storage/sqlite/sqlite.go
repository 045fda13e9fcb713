package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/newsprobe/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
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
	detection_src TEXT,
	interception TEXT NOT NULL,
	results TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS search_records_created_at ON search_records (created_at);
`

const columns = `id, provider, terms, language, country, time_range, safesearch, request_url, final_url,
	status_code, detected_bot, detection_src, interception, results, duration_ms, created_at, error`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *storage.SearchRecord) error {
	resultsJSON, err := marshalResults(record)
	if err != nil {
		return err
	}

	query := `INSERT INTO search_records (` + columns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = b.db.ExecContext(ctx, query,
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
		record.CreatedAt.UTC(),
		record.Error,
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", record.ID, err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchRecord, error) {
	query := `SELECT ` + columns + ` FROM search_records WHERE 1=1`
	args := []any{}

	if filter.Terms != "" {
		query += ` AND terms = ?`
		args = append(args, filter.Terms)
	}
	if filter.Intercepted != nil {
		if *filter.Intercepted {
			query += ` AND interception != ''`
		} else {
			query += ` AND interception = ''`
		}
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at DESC`

	// SQLite only accepts OFFSET after a LIMIT; -1 means unbounded.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit <= 0 {
			limit = -1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []*storage.SearchRecord
	for rows.Next() {
		var r storage.SearchRecord
		var resultsJSON string
		var durationMs int64
		var detectionSrc, errText sql.NullString

		err := rows.Scan(
			&r.ID, &r.Provider, &r.Terms, &r.Language, &r.Country, &r.TimeRange, &r.SafeSearch,
			&r.RequestURL, &r.FinalURL, &r.StatusCode, &r.DetectedBot, &detectionSrc,
			&r.Interception, &resultsJSON, &durationMs, &r.CreatedAt, &errText,
		)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		r.DetectionSrc = detectionSrc.String
		r.Error = errText.String
		r.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(resultsJSON), &r.Results); err != nil {
			return nil, fmt.Errorf("decode results of %s: %w", r.ID, err)
		}

		records = append(records, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}

	return records, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}

func marshalResults(record *storage.SearchRecord) ([]byte, error) {
	if record.Results == nil {
		return []byte("[]"), nil
	}
	data, err := json.Marshal(record.Results)
	if err != nil {
		return nil, fmt.Errorf("marshal results of %s: %w", record.ID, err)
	}
	return data, nil
}
