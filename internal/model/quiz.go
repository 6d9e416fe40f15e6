package model

import (
	"bytes"
	"encoding/json"
	"math"
	"time"
)

// QuestionsPerQuiz is the fixed length of every stored quiz.
const QuestionsPerQuiz = 10

// OptionsPerQuestion is the fixed number of options of every question.
const OptionsPerQuestion = 4

// Question is one multiple-choice item of a quiz.
type Question struct {
	ID           string   `json:"id"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// Quiz is a normalized, stored quiz owned by a user.
type Quiz struct {
	ID         int64      `json:"id"`
	UserID     int64      `json:"-"`
	Topic      string     `json:"topic"`
	Difficulty string     `json:"difficulty"`
	Questions  []Question `json:"questions"`
	CreatedAt  time.Time  `json:"created_at"`
}

// QuizSummary is a quiz listing entry without its questions.
type QuizSummary struct {
	ID         int64     `json:"id"`
	Topic      string    `json:"topic"`
	Difficulty string    `json:"difficulty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Attempt is one scored submission of answers to a quiz.
type Attempt struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"-"`
	QuizID      int64     `json:"quiz_id"`
	Answers     []Answer  `json:"answers"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completed_at"`
}

// Answer is a selected option index; -1 means unanswered. Any JSON value that
// is not an integral number decodes to -1 so it can never match a correct index.
type Answer int

// Unanswered marks a skipped question.
const Unanswered Answer = -1

// UnmarshalJSON never fails; malformed values become Unanswered.
func (a *Answer) UnmarshalJSON(data []byte) error {
	*a = Unanswered
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil
	}
	*a = Answer(f)
	return nil
}

// GenerateQuizRequest is the body of POST /quizzes/generate.
type GenerateQuizRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
}

// GenerateQuizResponse returns the stored quiz and its id.
type GenerateQuizResponse struct {
	QuizID int64 `json:"quizId"`
	Quiz   Quiz  `json:"quiz"`
}

// RecentQuizzesResponse lists a user's quizzes, newest first.
type RecentQuizzesResponse struct {
	Items []QuizSummary `json:"items"`
}

// AttemptRequest carries exactly one answer per question.
type AttemptRequest struct {
	Answers []Answer `json:"answers" validate:"required,len=10"`
}

// AttemptResponse is the score of a recorded attempt.
type AttemptResponse struct {
	AttemptID  int64 `json:"attemptId"`
	Score      int   `json:"score"`
	Total      int   `json:"total"`
	Percentage int   `json:"percentage"`
}

// AttemptSummary is an attempt joined with its quiz for the progress view.
type AttemptSummary struct {
	ID          int64     `json:"id"`
	QuizID      int64     `json:"quiz_id"`
	Topic       string    `json:"topic"`
	Difficulty  string    `json:"difficulty"`
	Score       int       `json:"score"`
	Total       int       `json:"total"`
	CompletedAt time.Time `json:"completed_at"`
}

// DifficultyCount is one bucket of the difficulty distribution.
type DifficultyCount struct {
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

// ProgressSummary aggregates a user's quiz activity.
type ProgressSummary struct {
	QuizzesCount           int               `json:"quizzes_count"`
	AttemptsCount          int               `json:"attempts_count"`
	AvgScore               float64           `json:"avg_score"`
	RecentAttempts         []AttemptSummary  `json:"recentAttempts"`
	DifficultyDistribution []DifficultyCount `json:"difficultyDistribution"`
}
