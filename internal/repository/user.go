package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mentoria/mentoria-go/internal/model"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUser     = errors.New("username or email already exists")
	ErrDuplicateUsername = errors.New("username already exists")
	ErrDuplicateEmail    = errors.New("email already exists")
)

// UserRepository handles user persistence operations.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, username, email, password_hash, created_at, updated_at, is_active`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.CreatedAt, &user.UpdatedAt, &user.IsActive,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Create inserts a new active user together with its default settings row
// and sets the generated ID on the user struct.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ts := now()
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO users (username, email, password_hash, created_at, updated_at, is_active) VALUES (?, ?, ?, ?, ?, ?)`,
			user.Username, user.Email, user.PasswordHash, ts, ts, true,
		)
		if err != nil {
			if isDuplicateEntryError(err) {
				return ErrDuplicateUser
			}
			return err
		}

		id, err := result.LastInsertId()
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO user_settings (user_id, theme_mode) VALUES (?, ?)`, id, model.ThemeLight,
		); err != nil {
			return fmt.Errorf("creating settings: %w", err)
		}

		user.ID = id
		user.CreatedAt = ts
		user.UpdatedAt = ts
		user.IsActive = true
		return nil
	})
}

// GetByEmail retrieves an active user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ? AND is_active = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, email, true))
}

// GetByID retrieves a user by their ID, active or not.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

// UpdateUsername renames a user after checking no other user holds the name.
func (r *UserRepository) UpdateUsername(ctx context.Context, userID int64, username string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return updateUsername(ctx, tx, userID, username)
	})
}

// UpdateEmail changes a user's email after checking no other user holds it.
func (r *UserRepository) UpdateEmail(ctx context.Context, userID int64, email string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		return updateEmail(ctx, tx, userID, email)
	})
}

// UpdatePassword stores a new password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	return updatePassword(ctx, r.db, userID, hash)
}

// UpdateProfile applies every non-nil change atomically. Uniqueness conflicts
// are collected with errors.Join so callers can report all of them at once.
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, changes model.ProfileChanges) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var conflicts []error
		if changes.Username != nil {
			if err := updateUsername(ctx, tx, userID, *changes.Username); err != nil {
				if !errors.Is(err, ErrDuplicateUsername) {
					return err
				}
				conflicts = append(conflicts, err)
			}
		}
		if changes.Email != nil {
			if err := updateEmail(ctx, tx, userID, *changes.Email); err != nil {
				if !errors.Is(err, ErrDuplicateEmail) {
					return err
				}
				conflicts = append(conflicts, err)
			}
		}
		if len(conflicts) > 0 {
			return errors.Join(conflicts...)
		}
		if changes.PasswordHash != nil {
			if err := updatePassword(ctx, tx, userID, *changes.PasswordHash); err != nil {
				return err
			}
		}
		return nil
	})
}

func updateUsername(ctx context.Context, q querier, userID int64, username string) error {
	taken, err := existsOther(ctx, q, `SELECT 1 FROM users WHERE username = ? AND id <> ?`, username, userID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateUsername
	}
	return execUserUpdate(ctx, q, `UPDATE users SET username = ?, updated_at = ? WHERE id = ?`, username, userID, ErrDuplicateUsername)
}

func updateEmail(ctx context.Context, q querier, userID int64, email string) error {
	taken, err := existsOther(ctx, q, `SELECT 1 FROM users WHERE email = ? AND id <> ?`, email, userID)
	if err != nil {
		return err
	}
	if taken {
		return ErrDuplicateEmail
	}
	return execUserUpdate(ctx, q, `UPDATE users SET email = ?, updated_at = ? WHERE id = ?`, email, userID, ErrDuplicateEmail)
}

func updatePassword(ctx context.Context, q querier, userID int64, hash string) error {
	return execUserUpdate(ctx, q, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`, hash, userID, nil)
}

func existsOther(ctx context.Context, q querier, query string, value string, userID int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, value, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func execUserUpdate(ctx context.Context, q querier, query string, value string, userID int64, dupErr error) error {
	result, err := q.ExecContext(ctx, query, value, now(), userID)
	if err != nil {
		if dupErr != nil && isDuplicateEntryError(err) {
			return dupErr
		}
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetActive flips the soft-delete flag of the user with the given email.
func (r *UserRepository) SetActive(ctx context.Context, email string, active bool) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`, active, now(), id,
	); err != nil {
		return 0, err
	}
	return id, nil
}

// GetSettings returns the user's settings, falling back to defaults when no row exists.
func (r *UserRepository) GetSettings(ctx context.Context, userID int64) (model.UserSettings, error) {
	settings := model.UserSettings{UserID: userID, ThemeMode: model.ThemeLight}
	err := r.db.QueryRowContext(ctx,
		`SELECT theme_mode FROM user_settings WHERE user_id = ?`, userID,
	).Scan(&settings.ThemeMode)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.UserSettings{}, err
	}
	return settings, nil
}

// SetTheme upserts the user's theme mode.
func (r *UserRepository) SetTheme(ctx context.Context, userID int64, theme string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM user_settings WHERE user_id = ?`, userID).Scan(&one)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, `INSERT INTO user_settings (user_id, theme_mode) VALUES (?, ?)`, userID, theme)
		case err == nil:
			_, err = tx.ExecContext(ctx, `UPDATE user_settings SET theme_mode = ? WHERE user_id = ?`, theme, userID)
		}
		return err
	})
}

// Delete removes a user and everything they own in one transaction. The
// explicit deletes mirror the ON DELETE CASCADE constraints so the result does
// not depend on foreign key enforcement being enabled.
func (r *UserRepository) Delete(ctx context.Context, userID int64) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		statements := []string{
			`DELETE FROM chat_messages WHERE chat_session_id IN (SELECT id FROM chat_sessions WHERE user_id = ?)`,
			`DELETE FROM chat_sessions WHERE user_id = ?`,
			`DELETE FROM quiz_attempts WHERE user_id = ?`,
			`DELETE FROM quizzes WHERE user_id = ?`,
			`DELETE FROM user_sessions WHERE user_id = ?`,
			`DELETE FROM user_settings WHERE user_id = ?`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt, userID); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
		if err != nil {
			return err
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}
