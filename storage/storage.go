package storage

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/BostonDSA/members/meetings"
)

// Run is a recorded aggregation run.
type Run struct {
	ID         string
	StartedAt  int64 // Unix timestamp
	FinishedAt int64 // Unix timestamp
	Accounts   int
	Meetings   int
	Status     string
	Error      string
}

// InviteRequest is a recorded Slack invite request from the portal.
type InviteRequest struct {
	ID          int64
	Name        string
	Email       string
	RequestedAt int64 // Unix timestamp
}

// Store provides SQLite-backed persistence for run history and invite
// requests.
type Store struct {
	db *sql.DB
}

const createTablesSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at INTEGER,
	finished_at INTEGER,
	accounts INTEGER,
	meetings INTEGER,
	status TEXT,
	error TEXT
);

CREATE TABLE IF NOT EXISTS invite_requests (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	email TEXT,
	requested_at INTEGER
);
`

// New opens the SQLite database at dbPath, creates tables if they don't
// exist, and returns a Store.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("storage: open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: set WAL mode: %w", err)
	}

	if _, err := db.Exec(createTablesSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: create tables: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or replaces a run record. It satisfies
// meetings.RunSaver.
func (s *Store) SaveRun(rec meetings.RunRecord) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO runs (id, started_at, finished_at, accounts, meetings, status, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.StartedAt.Unix(), rec.FinishedAt.Unix(), rec.Accounts, rec.Meetings, rec.Status, rec.Error,
	)
	if err != nil {
		return fmt.Errorf("storage: save run %s: %w", rec.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, most recent first.
func (s *Store) RecentRuns(limit int) ([]Run, error) {
	rows, err := s.db.Query(
		`SELECT id, started_at, finished_at, accounts, meetings, status, error
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Accounts, &r.Meetings, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("storage: scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate runs: %w", err)
	}
	return runs, nil
}

// RecordInviteRequest logs a Slack invite request with the current
// timestamp.
func (s *Store) RecordInviteRequest(name, email string) error {
	_, err := s.db.Exec(
		`INSERT INTO invite_requests (name, email, requested_at) VALUES (?, ?, ?)`,
		name, email, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storage: record invite request for %s: %w", email, err)
	}
	return nil
}

// RecentInviteRequests returns up to limit invite requests, most recent
// first.
func (s *Store) RecentInviteRequests(limit int) ([]InviteRequest, error) {
	rows, err := s.db.Query(
		`SELECT id, name, email, requested_at
		 FROM invite_requests ORDER BY requested_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: get invite requests: %w", err)
	}
	defer rows.Close()

	var reqs []InviteRequest
	for rows.Next() {
		var r InviteRequest
		if err := rows.Scan(&r.ID, &r.Name, &r.Email, &r.RequestedAt); err != nil {
			return nil, fmt.Errorf("storage: scan invite request: %w", err)
		}
		reqs = append(reqs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate invite requests: %w", err)
	}
	return reqs, nil
}
