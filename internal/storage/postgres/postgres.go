// Package postgres persists the session event stream so routing decisions
// can be audited after a broadcast.
package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_events (
	event_id   BIGSERIAL PRIMARY KEY,
	ts         TIMESTAMPTZ NOT NULL,
	level      TEXT NOT NULL,
	event      TEXT NOT NULL,
	msg        TEXT,
	fields     JSONB,
	session_id TEXT NOT NULL,
	operator   TEXT
);
CREATE INDEX IF NOT EXISTS idx_session_events_ts ON session_events(ts DESC);
CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id);
`

// EventRow is one persisted event.
type EventRow struct {
	EventID   int64                  `json:"event_id"`
	Timestamp time.Time              `json:"ts"`
	Level     string                 `json:"level"`
	Event     string                 `json:"event"`
	Message   *string                `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
	SessionID string                 `json:"session_id"`
	Operator  *string                `json:"operator,omitempty"`
}

// Client appends and queries one session's audit log.
type Client struct {
	db        *sql.DB
	sessionID string
}

// New opens the audit database using the conventional PG* environment
// variables. An unreachable database is an error; the caller degrades to
// in-memory-only events.
func New(sessionID string) (*Client, error) {
	parts := []string{
		"host=" + envOr("PGHOST", "127.0.0.1"),
		"port=" + envOr("PGPORT", "5432"),
		"user=" + envOr("PGUSER", "controlroom"),
		"dbname=" + envOr("PGDATABASE", "controlroom"),
		"sslmode=disable",
	}
	if pw := os.Getenv("PGPASSWORD"); pw != "" {
		parts = append(parts, "password="+pw)
	}

	db, err := sql.Open("postgres", strings.Join(parts, " "))
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create session_events table: %w", err)
	}

	return &Client{db: db, sessionID: sessionID}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Append writes one event row. Empty msg and operator are stored as NULL.
func (c *Client) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, operator string) error {
	var fieldsJSON []byte
	if fields != nil {
		b, err := json.Marshal(fields)
		if err != nil {
			return fmt.Errorf("marshal fields: %w", err)
		}
		fieldsJSON = b
	}

	_, err := c.db.Exec(
		`INSERT INTO session_events (ts, level, event, msg, fields, session_id, operator)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ts, level, event, nullable(msg), fieldsJSON, c.sessionID, nullable(operator),
	)
	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Query returns up to limit events for the session, newest first. Limits
// outside [1, 10000] are clamped.
func (c *Client) Query(limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 200
	} else if limit > 10000 {
		limit = 10000
	}

	rows, err := c.db.Query(
		`SELECT event_id, ts, level, event, msg, fields, session_id, operator
		 FROM session_events
		 WHERE session_id = $1
		 ORDER BY ts DESC
		 LIMIT $2`,
		c.sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var (
			row           EventRow
			msg, operator sql.NullString
			fieldsJSON    []byte
		)
		if err := rows.Scan(&row.EventID, &row.Timestamp, &row.Level, &row.Event,
			&msg, &fieldsJSON, &row.SessionID, &operator); err != nil {
			return nil, err
		}
		if msg.Valid {
			row.Message = &msg.String
		}
		if operator.Valid {
			row.Operator = &operator.String
		}
		if len(fieldsJSON) > 0 {
			if err := json.Unmarshal(fieldsJSON, &row.Fields); err != nil {
				return nil, fmt.Errorf("unmarshal fields: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
