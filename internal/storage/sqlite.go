package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at TEXT NOT NULL,
	operation TEXT NOT NULL,
	item TEXT NOT NULL,
	satisfied INTEGER NOT NULL,
	message TEXT NOT NULL,
	elapsed_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_outcomes_recorded_at ON outcomes(recorded_at);
`

// SQLiteStore implements Store using SQLite with WAL mode.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the outcome database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open outcome db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// timeFormat is the format used for storing timestamps in SQLite.
const timeFormat = "2006-01-02T15:04:05.000Z"

func (s *SQLiteStore) RecordOutcome(ctx context.Context, o *Outcome) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (recorded_at, operation, item, satisfied, message, elapsed_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.Time.UTC().Format(timeFormat), o.Operation, o.Item,
		boolToInt(o.Satisfied), o.Message, o.Elapsed.Milliseconds())
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		o.ID = id
	}
	return nil
}

func (s *SQLiteStore) ListOutcomes(ctx context.Context, limit int) ([]*Outcome, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recorded_at, operation, item, satisfied, message, elapsed_ms
		 FROM outcomes ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []*Outcome
	for rows.Next() {
		var (
			o         Outcome
			recorded  string
			satisfied int
			elapsedMs int64
		)
		if err := rows.Scan(&o.ID, &recorded, &o.Operation, &o.Item, &satisfied, &o.Message, &elapsedMs); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		t, err := time.Parse(timeFormat, recorded)
		if err != nil {
			return nil, fmt.Errorf("parse outcome time %q: %w", recorded, err)
		}
		o.Time = t
		o.Satisfied = satisfied != 0
		o.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		out = append(out, &o)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ Store = (*SQLiteStore)(nil)
