package quota

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS ai_usage (
	user_id        TEXT    NOT NULL,
	day            TEXT    NOT NULL,
	model          TEXT    NOT NULL,
	provider       TEXT    NOT NULL,
	input_tokens   INTEGER NOT NULL DEFAULT 0,
	output_tokens  INTEGER NOT NULL DEFAULT 0,
	request_count  INTEGER NOT NULL DEFAULT 0,
	estimated_cost REAL    NOT NULL DEFAULT 0,
	updated_at     TEXT    NOT NULL,
	PRIMARY KEY (user_id, day, model, provider)
);
CREATE INDEX IF NOT EXISTS idx_ai_usage_user_day ON ai_usage (user_id, day);
`

const upsertUsage = `
INSERT INTO ai_usage (user_id, day, model, provider, input_tokens, output_tokens, request_count, estimated_cost, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, day, model, provider) DO UPDATE SET
	input_tokens   = input_tokens   + excluded.input_tokens,
	output_tokens  = output_tokens  + excluded.output_tokens,
	request_count  = request_count  + excluded.request_count,
	estimated_cost = estimated_cost + excluded.estimated_cost,
	updated_at     = excluded.updated_at
`

// SQLiteStore keeps daily usage in a local SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	loc *time.Location
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the usage database at path.
// loc decides which day "today" is for DailyCount.
func OpenSQLite(path string, loc *time.Location) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	if loc == nil {
		loc = time.Local
	}
	return &SQLiteStore{db: db, loc: loc, now: time.Now}, nil
}

// DailyCount implements Store.
func (s *SQLiteStore) DailyCount(ctx context.Context, userID string) (int, error) {
	day := s.now().In(s.loc).Format(DateLayout)

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(request_count), 0) FROM ai_usage WHERE user_id = ? AND day = ?",
		userID, day,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("daily count: %w", err)
	}
	return count, nil
}

// RecordUsage implements Store. Records for the same user, day, model and
// provider are summed.
func (s *SQLiteStore) RecordUsage(ctx context.Context, rec UsageRecord) error {
	if rec.Date == "" {
		rec.Date = s.now().In(s.loc).Format(DateLayout)
	}
	_, err := s.db.ExecContext(ctx, upsertUsage,
		rec.UserID, rec.Date, rec.Model, rec.Provider,
		rec.InputTokens, rec.OutputTokens, rec.RequestCount, rec.EstimatedCost,
		s.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Usage returns the stored totals for one user and day, summed across models.
func (s *SQLiteStore) Usage(ctx context.Context, userID, day string) (UsageRecord, error) {
	rec := UsageRecord{UserID: userID, Date: day}
	err := s.db.QueryRowContext(ctx, `
SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
       COALESCE(SUM(request_count), 0), COALESCE(SUM(estimated_cost), 0)
FROM ai_usage WHERE user_id = ? AND day = ?`, userID, day,
	).Scan(&rec.InputTokens, &rec.OutputTokens, &rec.RequestCount, &rec.EstimatedCost)
	if err != nil {
		return rec, fmt.Errorf("usage: %w", err)
	}
	return rec, nil
}

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
