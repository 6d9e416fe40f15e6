package service

import (
	"context"
	"errors"
	"math"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/mentoria/mentoria-go/internal/llm"
	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/quiz"
	"github.com/mentoria/mentoria-go/internal/repository"
)

const (
	minTopicLength = 3

	// DefaultRecentLimit is the number of quizzes listed when no limit is given.
	DefaultRecentLimit = 12
	maxRecentLimit     = 50
)

// QuizStore persists quizzes and attempts.
type QuizStore interface {
	Create(ctx context.Context, quiz *model.Quiz) error
	Get(ctx context.Context, userID, quizID int64) (*model.Quiz, error)
	ListRecent(ctx context.Context, userID int64, limit int) ([]model.QuizSummary, error)
	CreateAttempt(ctx context.Context, a *model.Attempt) error
	Progress(ctx context.Context, userID int64) (model.ProgressSummary, error)
}

// QuizService generates, serves and scores quizzes.
type QuizService struct {
	store QuizStore
	llm   llm.Client
}

// NewQuizService creates a new QuizService.
func NewQuizService(store QuizStore, client llm.Client) *QuizService {
	return &QuizService{store: store, llm: client}
}

// Generate asks the model for a quiz on topic, normalises it and stores it.
// Unknown difficulties fall back to quiz.DefaultDifficulty.
func (s *QuizService) Generate(ctx context.Context, userID int64, topic, difficulty string) (model.GenerateQuizResponse, error) {
	topic = strings.TrimSpace(topic)
	if utf8.RuneCountInString(topic) < minTopicLength {
		return model.GenerateQuizResponse{}, ErrInvalidTopic
	}
	level := quiz.DifficultyOrDefault(difficulty)

	text, err := s.llm.Complete(ctx, llm.Request{
		Messages: []llm.Message{{Role: llm.RoleUser, Text: quiz.Prompt(topic, level)}},
		JSON:     true,
	})
	if err != nil {
		return model.GenerateQuizResponse{}, upstream(err)
	}
	if strings.TrimSpace(text) == "" {
		return model.GenerateQuizResponse{}, ErrEmptyModelResponse
	}

	normalized, err := quiz.NormalizeText(text, quiz.Defaults{Topic: topic, Difficulty: level})
	if err != nil {
		return model.GenerateQuizResponse{}, ErrUnparseableQuiz
	}

	q := &model.Quiz{
		UserID:     userID,
		Topic:      normalized.Topic,
		Difficulty: level,
		Questions:  normalized.Questions,
	}
	if err := s.store.Create(ctx, q); err != nil {
		return model.GenerateQuizResponse{}, err
	}
	return model.GenerateQuizResponse{QuizID: q.ID, Quiz: *q}, nil
}

// ClampRecentLimit maps a requested listing size into [1, 50], with 0 meaning the default.
func ClampRecentLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultRecentLimit
	case limit < 1:
		return 1
	case limit > maxRecentLimit:
		return maxRecentLimit
	}
	return limit
}

// Recent lists the user's newest quizzes.
func (s *QuizService) Recent(ctx context.Context, userID int64, limit int) ([]model.QuizSummary, error) {
	return s.store.ListRecent(ctx, userID, ClampRecentLimit(limit))
}

// Get returns a quiz owned by the user.
func (s *QuizService) Get(ctx context.Context, userID, quizID int64) (model.Quiz, error) {
	q, err := s.store.Get(ctx, userID, quizID)
	if err != nil {
		if errors.Is(err, repository.ErrQuizNotFound) {
			return model.Quiz{}, ErrQuizNotFound
		}
		return model.Quiz{}, err
	}
	return *q, nil
}

// Score counts the answers strictly equal to each question's correct index.
func Score(questions []model.Question, answers []model.Answer) int {
	score := 0
	for i, q := range questions {
		if i < len(answers) && int(answers[i]) == q.CorrectIndex {
			score++
		}
	}
	return score
}

// Attempt scores and records a submission of exactly model.QuestionsPerQuiz answers.
func (s *QuizService) Attempt(ctx context.Context, userID, quizID int64, answers []model.Answer) (model.AttemptResponse, error) {
	if len(answers) != model.QuestionsPerQuiz {
		return model.AttemptResponse{}, ErrInvalidAnswerCount
	}
	q, err := s.Get(ctx, userID, quizID)
	if err != nil {
		return model.AttemptResponse{}, err
	}

	a := &model.Attempt{
		UserID:  userID,
		QuizID:  quizID,
		Answers: answers,
		Score:   Score(q.Questions, answers),
		Total:   len(q.Questions),
	}
	if err := s.store.CreateAttempt(ctx, a); err != nil {
		return model.AttemptResponse{}, err
	}

	percentage := 0
	if a.Total > 0 {
		percentage = int(math.Round(100 * float64(a.Score) / float64(a.Total)))
	}
	return model.AttemptResponse{AttemptID: a.ID, Score: a.Score, Total: a.Total, Percentage: percentage}, nil
}

var difficultyOrder = map[string]int{quiz.Basico: 0, quiz.Intermedio: 1, quiz.Avanzado: 2}

// Progress summarises the user's quiz activity. Difficulty labels stored by
// older versions are folded into the canonical levels before grouping.
func (s *QuizService) Progress(ctx context.Context, userID int64) (model.ProgressSummary, error) {
	summary, err := s.store.Progress(ctx, userID)
	if err != nil {
		return model.ProgressSummary{}, err
	}

	for i := range summary.RecentAttempts {
		summary.RecentAttempts[i].Difficulty = foldDifficulty(summary.RecentAttempts[i].Difficulty)
	}

	counts := map[string]int{}
	var labels []string
	for _, d := range summary.DifficultyDistribution {
		label := foldDifficulty(d.Difficulty)
		if _, seen := counts[label]; !seen {
			labels = append(labels, label)
		}
		counts[label] += d.Count
	}
	slices.SortStableFunc(labels, func(a, b string) int {
		ra, okA := difficultyOrder[a]
		rb, okB := difficultyOrder[b]
		switch {
		case okA && okB:
			return ra - rb
		case okA:
			return -1
		case okB:
			return 1
		}
		return strings.Compare(a, b)
	})

	summary.DifficultyDistribution = make([]model.DifficultyCount, 0, len(labels))
	for _, label := range labels {
		summary.DifficultyDistribution = append(summary.DifficultyDistribution, model.DifficultyCount{Difficulty: label, Count: counts[label]})
	}
	return summary, nil
}

func foldDifficulty(s string) string {
	if level, ok := quiz.CanonicalDifficulty(s); ok {
		return level
	}
	return s
}
