package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is the database access slice Store depends on. Interfaces are
// defined by the consumer, not the provider: *pgxpool.Pool satisfies this in
// production, and tests substitute a fake to exercise the SQL paths without
// a live database.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store manages session persistence with a PostgreSQL backend. It implements
// the durable message log contract the controller requires: create-if-absent,
// append, ordered full scan, delete-all.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db     Querier
	logger *slog.Logger
}

// NewStore creates a new Store instance.
// logger may be nil, in which case slog.Default() is used.
func NewStore(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// EnsureSession creates the session row if it does not exist yet.
// Idempotent; an existing row is left untouched.
func (s *Store) EnsureSession(ctx context.Context, id, model string, expiresAt time.Time) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, model, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING`,
		id, model, expiresAt)
	if err != nil {
		return fmt.Errorf("ensure session %s: %w", id, err)
	}
	return nil
}

// Append adds one message to the session log and extends the session TTL in
// the same transaction, so a persisted message always carries its TTL bump.
func (s *Store) Append(ctx context.Context, id string, msg Message, expiresAt time.Time) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append for session %s: %w", id, err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("append rollback", "session_id", id, "error", rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, `
		INSERT INTO messages (id, session_id, role, content, ts)
		VALUES ($1, $2, $3, $4, $5)`,
		pgtype.UUID{Bytes: msg.ID, Valid: true}, id, msg.Role, msg.Content, msg.TS); err != nil {
		return fmt.Errorf("insert message for session %s: %w", id, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE sessions SET expires_at = $2 WHERE id = $1`,
		id, expiresAt); err != nil {
		return fmt.Errorf("extend session %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append for session %s: %w", id, err)
	}

	s.logger.Debug("appended message", "session_id", id, "role", msg.Role)
	return nil
}

// Messages returns the full ordered message log for a session.
func (s *Store) Messages(ctx context.Context, id string) ([]Message, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, role, content, ts
		FROM messages
		WHERE session_id = $1
		ORDER BY seq ASC`,
		id)
	if err != nil {
		return nil, fmt.Errorf("scan messages for session %s: %w", id, err)
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var (
			msgID pgtype.UUID
			msg   Message
		)
		if err := rows.Scan(&msgID, &msg.Role, &msg.Content, &msg.TS); err != nil {
			return nil, fmt.Errorf("scan message row for session %s: %w", id, err)
		}
		if msgID.Valid {
			msg.ID = msgID.Bytes
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages for session %s: %w", id, err)
	}

	s.logger.Debug("loaded messages", "session_id", id, "count", len(msgs))
	return msgs, nil
}

// DeleteAll removes every message for a session and restarts its lifecycle
// with a fresh created_at. The session row itself survives a reset.
func (s *Store) DeleteAll(ctx context.Context, id string, expiresAt time.Time) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin reset for session %s: %w", id, err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("reset rollback", "session_id", id, "error", rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("delete messages for session %s: %w", id, err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE sessions SET created_at = now(), expires_at = $2 WHERE id = $1`,
		id, expiresAt); err != nil {
		return fmt.Errorf("restart session %s: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit reset for session %s: %w", id, err)
	}

	s.logger.Debug("cleared session", "session_id", id)
	return nil
}

// DeleteExpired reaps sessions whose TTL ran out. TTL enforcement lives here,
// not in the controller; callers run it periodically.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	if n := tag.RowsAffected(); n > 0 {
		s.logger.Info("reaped expired sessions", "count", n)
		return n, nil
	}
	return 0, nil
}
