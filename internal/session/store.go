// Package session persists the append-only interaction history. Entries are
// de-duplicated by a composite key of (action, timestamp, query-or-response)
// before append, and writes retry with backoff on transient lock contention.
package session

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Retry policy for contended writes. sqlite returns SQLITE_BUSY under
// concurrent writers; attempts are bounded so exhaustion surfaces as a
// terminal error instead of an unbounded stall.
const (
	maxWriteAttempts = 5
	backoffUnit      = 20 * time.Millisecond
)

// Entry is one interaction-history record.
type Entry struct {
	Action    string `json:"action"` // "user_query" or "agent_response"
	Timestamp string `json:"timestamp"`
	Agent     string `json:"agent,omitempty"`
	Query     string `json:"query,omitempty"`
	Response  string `json:"response,omitempty"`
}

// key builds the composite de-duplication key for an entry.
func (e Entry) key() string {
	payload := e.Query
	if payload == "" {
		payload = e.Response
	}
	// Hash the payload half so arbitrarily long queries keep the key short.
	sum := sha256.Sum256([]byte(payload))
	return fmt.Sprintf("%s|%s|%x", e.Action, e.Timestamp, sum[:8])
}

// Store is a sqlite-backed session store.
type Store struct {
	db *sql.DB
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	app_name   TEXT NOT NULL,
	user_id    TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS history (
	session_id TEXT NOT NULL REFERENCES sessions(id),
	entry_key  TEXT NOT NULL,
	action     TEXT NOT NULL,
	timestamp  TEXT NOT NULL,
	agent      TEXT,
	query      TEXT,
	response   TEXT,
	UNIQUE (session_id, entry_key)
);
`

// Open opens (creating if necessary) the session database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("initializing session schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create starts a new session and returns its id.
func (s *Store) Create(ctx context.Context, appName, userID string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, app_name, user_id, created_at) VALUES (?, ?, ?, ?)`,
		id, appName, userID, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}
	return id, nil
}

// Append adds one entry to a session's history. Duplicate entries (same
// composite key) are silently dropped. Transient write failures retry with
// linear backoff up to maxWriteAttempts before surfacing a terminal error.
func (s *Store) Append(ctx context.Context, sessionID string, e Entry) error {
	if e.Timestamp == "" {
		e.Timestamp = time.Now().Format("2006-01-02 15:04:05")
	}

	var lastErr error
	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO history (session_id, entry_key, action, timestamp, agent, query, response)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sessionID, e.key(), e.Action, e.Timestamp, e.Agent, e.Query, e.Response,
		)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return fmt.Errorf("appending history entry: %w", err)
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoffUnit * time.Duration(attempt)):
		}
	}
	return fmt.Errorf("appending history entry failed after %d attempts: %w", maxWriteAttempts, lastErr)
}

// retryable reports whether a write error is worth retrying.
func retryable(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked")
}

// AppendUserQuery records a user query in the history.
func (s *Store) AppendUserQuery(ctx context.Context, sessionID, q string) error {
	return s.Append(ctx, sessionID, Entry{Action: "user_query", Query: q})
}

// AppendAgentResponse records an agent response in the history.
func (s *Store) AppendAgentResponse(ctx context.Context, sessionID, agent, response string) error {
	return s.Append(ctx, sessionID, Entry{Action: "agent_response", Agent: agent, Response: response})
}

// History returns a session's entries in insertion order.
func (s *Store) History(ctx context.Context, sessionID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT action, timestamp, agent, query, response FROM history
		 WHERE session_id = ? ORDER BY rowid`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var agent, q, resp sql.NullString
		if err := rows.Scan(&e.Action, &e.Timestamp, &agent, &q, &resp); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Agent = agent.String
		e.Query = q.String
		e.Response = resp.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
