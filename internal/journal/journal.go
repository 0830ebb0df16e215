// Package journal records produced answers in SQLite so an interrupted run
// can resume without asking the model again.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	mode        TEXT NOT NULL,
	input       TEXT,
	started_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS answers (
	qid          TEXT PRIMARY KEY,
	answer       TEXT NOT NULL,
	domain       TEXT NOT NULL,
	run_id       TEXT NOT NULL,
	answered_at  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Entry is one journaled answer.
type Entry struct {
	QID    string
	Answer string
	Domain string
}

// Store is the SQLite-backed journal.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the journal at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// StartRun registers a run so answers can reference it.
func (s *Store) StartRun(ctx context.Context, runID, mode, input string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, mode, input, started_at) VALUES (?, ?, ?, ?)`,
		runID, mode, input, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Record stores entries for runID in one transaction. A qid already present
// is overwritten.
func (s *Store) Record(ctx context.Context, runID string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO answers (qid, answer, domain, run_id, answered_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(qid) DO UPDATE SET
			answer = excluded.answer,
			domain = excluded.domain,
			run_id = excluded.run_id,
			answered_at = excluded.answered_at`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	now := s.now().UTC().Format(time.RFC3339Nano)
	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.QID, e.Answer, e.Domain, runID, now); err != nil {
			return fmt.Errorf("insert answer %s: %w", e.QID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Answers returns every journaled qid and its answer.
func (s *Store) Answers(ctx context.Context) (map[string]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT qid, answer, domain FROM answers`)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Entry)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.QID, &e.Answer, &e.Domain); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out[e.QID] = e
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}

// Count returns the number of journaled answers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM answers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count answers: %w", err)
	}
	return n, nil
}
