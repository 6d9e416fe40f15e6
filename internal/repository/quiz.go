package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mentoria/mentoria-go/internal/model"
)

var ErrQuizNotFound = errors.New("quiz not found")

// QuizRepository persists quizzes, attempts and the progress aggregates over them.
type QuizRepository struct {
	db *sql.DB
}

// NewQuizRepository creates a new QuizRepository.
func NewQuizRepository(db *sql.DB) *QuizRepository {
	return &QuizRepository{db: db}
}

// Create stores a quiz with its questions serialised as JSON.
func (r *QuizRepository) Create(ctx context.Context, quiz *model.Quiz) error {
	payload, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("encoding questions: %w", err)
	}

	ts := now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO quizzes (user_id, topic, difficulty, questions_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		quiz.UserID, quiz.Topic, quiz.Difficulty, string(payload), ts,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	quiz.ID = id
	quiz.CreatedAt = ts
	return nil
}

// Get returns a quiz only when userID owns it.
func (r *QuizRepository) Get(ctx context.Context, userID, quizID int64) (*model.Quiz, error) {
	var (
		quiz       = &model.Quiz{}
		difficulty sql.NullString
		payload    string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, topic, difficulty, questions_json, created_at FROM quizzes WHERE id = ? AND user_id = ?`,
		quizID, userID,
	).Scan(&quiz.ID, &quiz.UserID, &quiz.Topic, &difficulty, &payload, &quiz.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}

	quiz.Difficulty = difficulty.String
	if err := json.Unmarshal([]byte(payload), &quiz.Questions); err != nil {
		return nil, fmt.Errorf("decoding questions of quiz %d: %w", quiz.ID, err)
	}
	return quiz, nil
}

// ListRecent returns the user's newest quizzes without their questions.
func (r *QuizRepository) ListRecent(ctx context.Context, userID int64, limit int) ([]model.QuizSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, topic, difficulty, created_at FROM quizzes WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quizzes := []model.QuizSummary{}
	for rows.Next() {
		var (
			q          model.QuizSummary
			difficulty sql.NullString
		)
		if err := rows.Scan(&q.ID, &q.Topic, &difficulty, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Difficulty = difficulty.String
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// CreateAttempt stores a scored attempt.
func (r *QuizRepository) CreateAttempt(ctx context.Context, a *model.Attempt) error {
	payload, err := json.Marshal(a.Answers)
	if err != nil {
		return fmt.Errorf("encoding answers: %w", err)
	}

	ts := now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO quiz_attempts (user_id, quiz_id, answers_json, score, total, completed_at) VALUES (?, ?, ?, ?, ?, ?)`,
		a.UserID, a.QuizID, string(payload), a.Score, a.Total, ts,
	)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	a.CompletedAt = ts
	return nil
}

// Progress computes the raw progress aggregates of a user. Difficulty buckets
// are returned as stored.
func (r *QuizRepository) Progress(ctx context.Context, userID int64) (model.ProgressSummary, error) {
	summary := model.ProgressSummary{
		RecentAttempts:         []model.AttemptSummary{},
		DifficultyDistribution: []model.DifficultyCount{},
	}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM quizzes WHERE user_id = ?`, userID,
	).Scan(&summary.QuizzesCount); err != nil {
		return summary, fmt.Errorf("counting quizzes: %w", err)
	}

	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(ROUND(AVG(CASE WHEN total > 0 THEN 100.0 * score / total END), 2), 0)
		FROM quiz_attempts WHERE user_id = ?`, userID,
	).Scan(&summary.AttemptsCount, &summary.AvgScore); err != nil {
		return summary, fmt.Errorf("averaging attempts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT a.id, a.quiz_id, q.topic, q.difficulty, a.score, a.total, a.completed_at
		FROM quiz_attempts a
		JOIN quizzes q ON q.id = a.quiz_id
		WHERE a.user_id = ?
		ORDER BY a.completed_at DESC, a.id DESC`, userID,
	)
	if err != nil {
		return summary, err
	}
	for rows.Next() {
		var (
			a          model.AttemptSummary
			difficulty sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.QuizID, &a.Topic, &difficulty, &a.Score, &a.Total, &a.CompletedAt); err != nil {
			rows.Close()
			return summary, err
		}
		a.Difficulty = difficulty.String
		summary.RecentAttempts = append(summary.RecentAttempts, a)
	}
	if err := rows.Close(); err != nil {
		return summary, err
	}
	if err := rows.Err(); err != nil {
		return summary, err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT COALESCE(difficulty, ''), COUNT(*) FROM quizzes WHERE user_id = ? GROUP BY difficulty`, userID,
	)
	if err != nil {
		return summary, err
	}
	defer rows.Close()
	for rows.Next() {
		var d model.DifficultyCount
		if err := rows.Scan(&d.Difficulty, &d.Count); err != nil {
			return summary, err
		}
		summary.DifficultyDistribution = append(summary.DifficultyDistribution, d)
	}
	return summary, rows.Err()
}
