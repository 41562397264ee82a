// Package journal keeps a local history of pipeline runs.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded run. No text or audio is stored.
type Entry struct {
	RunID       string
	StartedAt   time.Time
	Chars       int
	Voice       string
	Produced    int
	Consumed    int
	ProducerErr string
	ConsumerErr string
	Success     bool
	Elapsed     time.Duration
}

// Store is a SQLite run journal. A Store opened with an empty path records
// nothing.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		return &Store{}, nil
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(2000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    chars INTEGER NOT NULL,
    voice TEXT,
    produced INTEGER NOT NULL,
    consumed INTEGER NOT NULL,
    producer_error TEXT,
    consumer_error TEXT,
    success INTEGER NOT NULL,
    elapsed_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

func (s *Store) Enabled() bool { return s.db != nil }

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(run_id, started_at, chars, voice, produced, consumed, producer_error, consumer_error, success, elapsed_ms)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.StartedAt.UnixMilli(), e.Chars, e.Voice, e.Produced, e.Consumed,
		e.ProducerErr, e.ConsumerErr, e.Success, e.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("record run %s: %w", e.RunID, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, chars, voice, produced, consumed, producer_error, consumer_error, success, elapsed_ms
		 FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			started   int64
			elapsedMS int64
		)
		if err := rows.Scan(&e.RunID, &started, &e.Chars, &e.Voice, &e.Produced, &e.Consumed,
			&e.ProducerErr, &e.ConsumerErr, &e.Success, &elapsedMS); err != nil {
			return nil, err
		}
		e.StartedAt = time.UnixMilli(started)
		e.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune keeps the newest maxRuns runs. maxRuns <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, maxRuns int) (int64, error) {
	if s.db == nil || maxRuns <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM runs WHERE rowid NOT IN (
		   SELECT rowid FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?
		 )`, maxRuns)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	return res.RowsAffected()
}
