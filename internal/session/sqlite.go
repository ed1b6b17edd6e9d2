package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/modeler/internal/apperr"
	"github.com/starford/modeler/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversations (
	id                   TEXT PRIMARY KEY,
	pending_payload      TEXT NOT NULL DEFAULT '',
	pending_message      TEXT NOT NULL DEFAULT '',
	pending_diagram_type TEXT NOT NULL DEFAULT '',
	last_request_key     TEXT NOT NULL DEFAULT '',
	has_greeted          INTEGER NOT NULL DEFAULT 0,
	updated_at           INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
`

// DB is a SQLite-backed Store.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("session: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("session: apply schema: %w", err)
	}
	return &DB{conn: conn, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Get(ctx context.Context, id string) (Record, error) {
	r := Record{ConversationID: id}
	var payload, diagramType string
	var updated int64
	err := db.conn.QueryRowContext(ctx, `
		SELECT pending_payload, pending_message, pending_diagram_type,
		       last_request_key, has_greeted, updated_at
		FROM conversations WHERE id = ?`, id).
		Scan(&payload, &r.PendingMessage, &diagramType, &r.LastRequestKey, &r.HasGreeted, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return r, nil
	}
	if err != nil {
		return r, fmt.Errorf("session: get %s: %w", id, err)
	}
	if payload != "" {
		r.PendingPayload = []byte(payload)
	}
	r.PendingDiagramType = models.DiagramType(diagramType)
	r.UpdatedAt = time.UnixMilli(updated)
	return r, nil
}

// Put upserts r, stamping the update time.
func (db *DB) Put(ctx context.Context, r Record) error {
	if r.ConversationID == "" {
		return fmt.Errorf("session: put: empty conversation id")
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO conversations (id, pending_payload, pending_message, pending_diagram_type,
		                           last_request_key, has_greeted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pending_payload      = excluded.pending_payload,
			pending_message      = excluded.pending_message,
			pending_diagram_type = excluded.pending_diagram_type,
			last_request_key     = excluded.last_request_key,
			has_greeted          = excluded.has_greeted,
			updated_at           = excluded.updated_at
	`, r.ConversationID, string(r.PendingPayload), r.PendingMessage, string(r.PendingDiagramType),
		r.LastRequestKey, r.HasGreeted, db.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("session: put %s: %w", r.ConversationID, err)
	}
	return nil
}

// Delete removes a record. Deleting an unknown id returns apperr.ErrNotFound.
func (db *DB) Delete(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("session: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (db *DB) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM conversations WHERE updated_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("session: prune: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
