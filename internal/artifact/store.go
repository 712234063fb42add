// Package artifact provides session-scoped binary artifact storage for
// captured screenshots and PDF renders.
//
// Keys follow the fixed shape files/<sessionID>/<uniqueID>.<ext>. Artifacts
// are written once under a freshly generated key and never overwritten.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// keyPattern constrains keys to the session-scoped shape. The extension is
// short and lowercase; the unique part is a UUID.
var keyPattern = regexp.MustCompile(`^files/[A-Za-z0-9_-]{8,64}/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z0-9]{1,8}$`)

// NewKey generates a fresh session-scoped artifact key with the given
// extension (without dot).
func NewKey(sessionID, ext string) string {
	return fmt.Sprintf("files/%s/%s.%s", sessionID, uuid.NewString(), ext)
}

// ValidateKey checks that key matches the session-scoped shape.
// Returns ErrInvalidKey if it does not.
func ValidateKey(key string) error {
	if !keyPattern.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// Querier is the database access slice Store depends on. *pgxpool.Pool
// satisfies it in production; tests substitute a fake.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists artifacts in PostgreSQL.
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

// Put stores data under key. Keys are write-once; a duplicate key is an
// error, not an overwrite.
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	sessionID := sessionFromKey(key)
	_, err := s.db.Exec(ctx, `
		INSERT INTO artifacts (key, session_id, content_type, data)
		VALUES ($1, $2, $3, $4)`,
		key, sessionID, contentType, data)
	if err != nil {
		return fmt.Errorf("put artifact %s: %w", key, err)
	}

	s.logger.Debug("stored artifact", "key", key, "bytes", len(data), "content_type", contentType)
	return nil
}

// Get retrieves the artifact bytes and content type for key.
// Returns ErrNotFound if the artifact does not exist.
func (s *Store) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := ValidateKey(key); err != nil {
		return nil, "", err
	}

	var (
		data        []byte
		contentType string
	)
	err := s.db.QueryRow(ctx, `
		SELECT data, content_type FROM artifacts WHERE key = $1`,
		key).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("get artifact %s: %w", key, err)
	}
	return data, contentType, nil
}

// DeleteBySession removes all artifacts for a session.
func (s *Store) DeleteBySession(ctx context.Context, sessionID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM artifacts WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("delete artifacts for session %s: %w", sessionID, err)
	}
	s.logger.Debug("deleted artifacts by session", "session_id", sessionID)
	return nil
}

// sessionFromKey extracts the session id segment from a validated key.
func sessionFromKey(key string) string {
	// files/<session>/<uuid>.<ext>; key already validated.
	const prefix = "files/"
	rest := key[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[:i]
		}
	}
	return rest
}
