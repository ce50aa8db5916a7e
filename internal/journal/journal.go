// Package journal keeps a local SQLite timeline of practice sessions: who
// said what, the score each turn earned, and the session outcome. It exists
// for offline review; the remote recorder remains the durable store.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/parlolabs/parlo-core/internal/config"
	_ "modernc.org/sqlite"
)

// Entry kinds.
const (
	KindUserMessage  = "user_message"
	KindAgentMessage = "agent_message"
	KindTurnScore    = "turn_score"
	KindOutcome      = "session_outcome"
)

// Entry is one recorded timeline row.
type Entry struct {
	ID        int64
	SessionID string
	Kind      string
	Text      string
	Score     int
	CreatedAt time.Time
}

// Journal wraps the SQLite-backed session timeline.
type Journal struct {
	db    *sql.DB
	cfg   config.JournalConfig
	log   *slog.Logger
	clock func() time.Time
}

// Open initializes the journal according to config. Retention mode
// "ephemeral" yields a no-op journal with no database behind it.
func Open(ctx context.Context, cfg config.JournalConfig, log *slog.Logger) (*Journal, error) {
	if cfg.RetentionMode == "ephemeral" {
		return &Journal{cfg: cfg, log: log, clock: time.Now}, nil
	}

	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	j := &Journal{db: db, cfg: cfg, log: log, clock: time.Now}

	if err := j.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if cfg.VacuumOnStart {
		if err := j.vacuum(ctx); err != nil {
			log.Warn("journal vacuum failed", slog.String("error", err.Error()))
		}
	}

	if err := j.Prune(ctx); err != nil {
		log.Warn("journal prune on start failed", slog.String("error", err.Error()))
	}

	return j, nil
}

func (j *Journal) initSchema(ctx context.Context) error {
	if j.db == nil {
		return nil
	}
	ddl := `
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    topic TEXT,
    level INTEGER,
    created_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    kind TEXT,
    text TEXT,
    score INTEGER,
    created_at TIMESTAMP NOT NULL,
    FOREIGN KEY(session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_entries_session_created ON entries(session_id, created_at);
`
	_, err := j.db.ExecContext(ctx, ddl)
	return err
}

func (j *Journal) vacuum(ctx context.Context) error {
	if j.db == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx, "VACUUM")
	return err
}

// Close releases underlying resources.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// BeginSession ensures a session row exists.
func (j *Journal) BeginSession(ctx context.Context, sessionID, topic string, level int) error {
	if j.cfg.RetentionMode == "ephemeral" || j.db == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO sessions(session_id, topic, level, created_at)
		 VALUES(?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET topic=excluded.topic, level=excluded.level`,
		sessionID, topic, level, j.clock().UTC())
	return err
}

// Append writes one timeline entry.
func (j *Journal) Append(ctx context.Context, e Entry) error {
	if j.cfg.RetentionMode == "ephemeral" || j.db == nil {
		return nil
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = j.clock().UTC()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO entries(session_id, kind, text, score, created_at)
		 VALUES(?, ?, ?, ?, ?)`,
		e.SessionID, e.Kind, e.Text, e.Score, e.CreatedAt)
	return err
}

// SessionTimeline retrieves up to limit entries for a session ordered
// ascending by time.
func (j *Journal) SessionTimeline(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	if j.cfg.RetentionMode == "ephemeral" || j.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session_id, kind, text, score, created_at
		 FROM entries WHERE session_id = ? ORDER BY created_at ASC, id ASC LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Text, &e.Score, &created); err != nil {
			return nil, err
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			e.CreatedAt = ts
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Prune applies configured retention.
func (j *Journal) Prune(ctx context.Context) error {
	if j.cfg.RetentionMode == "ephemeral" || j.db == nil {
		return nil
	}
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if j.cfg.RetentionDays > 0 {
		cutoff := j.clock().Add(-time.Duration(j.cfg.RetentionDays) * 24 * time.Hour)
		if _, err = tx.ExecContext(ctx, `DELETE FROM entries WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
		if _, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE created_at < ?`, cutoff.UTC()); err != nil {
			return err
		}
	}
	if j.cfg.MaxSessions > 0 {
		_, err = tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id IN (
			SELECT session_id FROM sessions ORDER BY created_at DESC LIMIT -1 OFFSET ?
		)`, j.cfg.MaxSessions)
		if err != nil {
			return err
		}
	}
	err = tx.Commit()
	return err
}

// Ensure validates the configured retention mode against the open state.
func (j *Journal) Ensure() error {
	if j.cfg.RetentionMode == "ephemeral" && j.db != nil {
		return errors.New("ephemeral journal should not have database connection")
	}
	return nil
}
