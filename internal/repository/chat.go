package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mentoria/mentoria-go/internal/model"
)

var ErrChatSessionNotFound = errors.New("chat session not found")

// ChatRepository persists chat sessions and their messages.
type ChatRepository struct {
	db *sql.DB
}

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

const chatSessionColumns = `cs.id, cs.user_id, cs.session_name, cs.created_at, cs.updated_at,
	(SELECT COUNT(*) FROM chat_messages m WHERE m.chat_session_id = cs.id) AS message_count`

func scanChatSession(row interface{ Scan(...any) error }) (model.ChatSession, error) {
	var s model.ChatSession
	err := row.Scan(&s.ID, &s.UserID, &s.SessionName, &s.CreatedAt, &s.UpdatedAt, &s.MessageCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ChatSession{}, ErrChatSessionNotFound
		}
		return model.ChatSession{}, err
	}
	return s, nil
}

// CreateSession inserts a new chat session named name.
func (r *ChatRepository) CreateSession(ctx context.Context, userID int64, name string) (model.ChatSession, error) {
	ts := now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (user_id, session_name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		userID, name, ts, ts,
	)
	if err != nil {
		return model.ChatSession{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return model.ChatSession{}, err
	}
	return model.ChatSession{ID: id, UserID: userID, SessionName: name, CreatedAt: ts, UpdatedAt: ts}, nil
}

// GetSession returns the session only when userID owns it.
func (r *ChatRepository) GetSession(ctx context.Context, userID, sessionID int64) (model.ChatSession, error) {
	query := `SELECT ` + chatSessionColumns + ` FROM chat_sessions cs WHERE cs.id = ? AND cs.user_id = ?`
	return scanChatSession(r.db.QueryRowContext(ctx, query, sessionID, userID))
}

// MostRecentSession returns the user's most recently updated session.
func (r *ChatRepository) MostRecentSession(ctx context.Context, userID int64) (model.ChatSession, error) {
	query := `SELECT ` + chatSessionColumns + ` FROM chat_sessions cs
		WHERE cs.user_id = ? ORDER BY cs.updated_at DESC, cs.id DESC LIMIT 1`
	return scanChatSession(r.db.QueryRowContext(ctx, query, userID))
}

// ListSessions returns all sessions of a user, most recently updated first.
func (r *ChatRepository) ListSessions(ctx context.Context, userID int64) ([]model.ChatSession, error) {
	query := `SELECT ` + chatSessionColumns + ` FROM chat_sessions cs
		WHERE cs.user_id = ? ORDER BY cs.updated_at DESC, cs.id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []model.ChatSession{}
	for rows.Next() {
		s, err := scanChatSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// Rename sets the session name. The caller is responsible for trimming and defaults.
func (r *ChatRepository) Rename(ctx context.Context, userID, sessionID int64, name string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE chat_sessions SET session_name = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		name, now(), sessionID, userID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrChatSessionNotFound
	}
	return nil
}

// AppendMessages inserts messages in order and bumps the session's updated_at,
// all in one transaction.
func (r *ChatRepository) AppendMessages(ctx context.Context, sessionID int64, msgs ...model.ChatMessage) ([]model.ChatMessage, error) {
	stored := make([]model.ChatMessage, 0, len(msgs))
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, m := range msgs {
			ts := now()
			result, err := tx.ExecContext(ctx,
				`INSERT INTO chat_messages (chat_session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
				sessionID, m.Role, m.Content, ts,
			)
			if err != nil {
				return err
			}
			id, err := result.LastInsertId()
			if err != nil {
				return err
			}
			m.ID = id
			m.ChatSessionID = sessionID
			m.CreatedAt = ts
			stored = append(stored, m)
		}

		result, err := tx.ExecContext(ctx, `UPDATE chat_sessions SET updated_at = ? WHERE id = ?`, now(), sessionID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrChatSessionNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// History returns at most limit of the newest messages of a session in chronological order.
func (r *ChatRepository) History(ctx context.Context, sessionID int64, limit int) ([]model.ChatMessage, error) {
	query := `SELECT id, chat_session_id, role, content, created_at FROM chat_messages
		WHERE chat_session_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.ChatMessage{}
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatSessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// DeleteSession removes one owned session and its messages.
func (r *ChatRepository) DeleteSession(ctx context.Context, userID, sessionID int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chat_messages WHERE chat_session_id IN (SELECT id FROM chat_sessions WHERE id = ? AND user_id = ?)`,
			sessionID, userID,
		); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`, sessionID, userID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrChatSessionNotFound
		}
		return nil
	})
}

// DeleteAllSessions removes every session of a user and returns how many were removed.
func (r *ChatRepository) DeleteAllSessions(ctx context.Context, userID int64) (int64, error) {
	var deleted int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM chat_messages WHERE chat_session_id IN (SELECT id FROM chat_sessions WHERE user_id = ?)`, userID,
		); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM chat_sessions WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}
		deleted, err = result.RowsAffected()
		return err
	})
	return deleted, err
}
