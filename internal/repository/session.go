package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/mentoria/mentoria-go/internal/model"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists opaque bearer sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a session row and fills in its ID.
func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO user_sessions (user_id, session_token, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		s.UserID, s.Token, s.ExpiresAt.UTC(), s.CreatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = id
	return nil
}

// Lookup joins the session with its active owner in a single read. Expiry is
// left to the caller so the comparison uses one clock.
func (r *SessionRepository) Lookup(ctx context.Context, token string) (model.SessionInfo, error) {
	query := `SELECT u.id, u.username, u.email, s.expires_at
		FROM user_sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.session_token = ? AND u.is_active = ?`

	var info model.SessionInfo
	err := r.db.QueryRowContext(ctx, query, token, true).Scan(
		&info.UserID, &info.Username, &info.Email, &info.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SessionInfo{}, ErrSessionNotFound
		}
		return model.SessionInfo{}, err
	}
	return info, nil
}

// Delete removes a session by token. Deleting an unknown token is not an error.
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE session_token = ?`, token)
	return err
}

// DeleteByUser removes every session of a user and returns how many were removed.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DeleteExpired removes sessions that expired at or before cutoff. Only the
// admin CLI calls this; request handling filters expired rows lazily.
func (r *SessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_sessions WHERE expires_at <= ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
