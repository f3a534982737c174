package ratelimit

import (
	"database/sql"
	"log"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteJournal persists request timestamps to SQLite so the daily quota
// count survives process restarts. Only raw timestamps are stored; nothing
// derived from an analysis is persisted.
type SQLiteJournal struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenJournal opens (or creates) the journal database.
func OpenJournal(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		endpoint  TEXT    NOT NULL,
		ts        INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_requests_endpoint_ts ON requests(endpoint, ts);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	log.Printf("[ratelimit] opened request journal at %s", path)
	return &SQLiteJournal{db: db}, nil
}

// Append persists one request timestamp.
func (j *SQLiteJournal) Append(endpoint string, t time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.Exec(
		`INSERT INTO requests (endpoint, ts) VALUES (?, ?)`,
		endpoint, t.UnixMilli(),
	)
	return err
}

// Load returns all timestamps at or after `since`, grouped by endpoint,
// and deletes everything older. Rows outside the day window can never
// affect admission again.
func (j *SQLiteJournal) Load(since time.Time) (map[string][]time.Time, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := since.UnixMilli()
	if _, err := j.db.Exec(`DELETE FROM requests WHERE ts < ?`, cutoff); err != nil {
		return nil, err
	}

	rows, err := j.db.Query(
		`SELECT endpoint, ts FROM requests WHERE ts >= ? ORDER BY ts ASC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]time.Time)
	for rows.Next() {
		var endpoint string
		var ms int64
		if err := rows.Scan(&endpoint, &ms); err != nil {
			return nil, err
		}
		out[endpoint] = append(out[endpoint], time.UnixMilli(ms))
	}
	return out, rows.Err()
}

// Close closes the journal database.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
