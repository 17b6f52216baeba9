// Package storage keeps a local SQLite history of analyze and lookup runs.
package storage

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"
)

type DB struct {
	sql *sql.DB
}

func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	// Ensure schema exists for convenience.
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS report_events (
  id          INTEGER PRIMARY KEY,
  source      TEXT NOT NULL,
  slug        TEXT NOT NULL,
  domain      TEXT NOT NULL,
  kind        TEXT NOT NULL CHECK (kind IN ('analyze','lookup')),
  status      TEXT NOT NULL CHECK (status IN ('succeeded','failed')),
  score       REAL NOT NULL DEFAULT 0,
  message     TEXT,
  occurred_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_events_time ON report_events(occurred_at);
CREATE INDEX IF NOT EXISTS idx_events_domain ON report_events(domain, occurred_at);
    `); err != nil {
		return nil, err
	}
	return &DB{sql: db}, nil
}

func (d *DB) Close() error {
	if d == nil || d.sql == nil {
		return nil
	}
	return d.sql.Close()
}

// InsertRecord appends one outcome to the history.
func (d *DB) InsertRecord(ctx context.Context, r Record) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO report_events(source, slug, domain, kind, status, score, message, occurred_at) VALUES(?,?,?,?,?,?,?,CURRENT_TIMESTAMP)`,
		r.Source, r.Slug, r.Domain, r.Kind, r.Status, r.Score, nullIfEmpty(r.Message))
	return err
}

// ListRecent returns the most recent N records, newest first.
func (d *DB) ListRecent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	q := "SELECT source, slug, domain, kind, status, score, message, occurred_at FROM report_events ORDER BY occurred_at DESC, id DESC LIMIT ?"
	rows, err := d.sql.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var r Record
		var occurredAtStr string
		var msg sql.NullString
		if err := rows.Scan(&r.Source, &r.Slug, &r.Domain, &r.Kind, &r.Status, &r.Score, &msg, &occurredAtStr); err != nil {
			return nil, err
		}
		r.Message = msg.String
		r.OccurredAt = parseSQLiteTime(occurredAtStr)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// GetDomainStats aggregates the history per domain.
func (d *DB) GetDomainStats(ctx context.Context) ([]DomainStats, error) {
	query := `
		SELECT
			domain,
			SUM(CASE WHEN kind = 'lookup' THEN 1 ELSE 0 END),
			SUM(CASE WHEN kind = 'analyze' THEN 1 ELSE 0 END),
			COALESCE((
				SELECT score FROM report_events e2
				WHERE e2.domain = report_events.domain AND e2.status = 'succeeded'
				ORDER BY e2.occurred_at DESC, e2.id DESC LIMIT 1
			), 0)
		FROM
			report_events
		GROUP BY
			domain
		ORDER BY
			domain;
	`
	rows, err := d.sql.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []DomainStats
	for rows.Next() {
		var s DomainStats
		if err := rows.Scan(&s.Domain, &s.Lookups, &s.Analyses, &s.LastScore); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

// parseSQLiteTime handles both CURRENT_TIMESTAMP's format and RFC3339.
func parseSQLiteTime(s string) time.Time {
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	return time.Time{}
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
