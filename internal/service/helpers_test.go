package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mentoria/mentoria-go/internal/crypto"
	"github.com/mentoria/mentoria-go/internal/llm"
	"github.com/mentoria/mentoria-go/internal/markdown"
	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/repository"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fastHasher keeps argon2 cheap in tests.
var fastHasher = crypto.NewPasswordHasher(crypto.HashParams{
	Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
})

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := repository.NewDB(repository.DriverSQLite, ":memory:", repository.DefaultPoolConfig())
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db, repository.DriverSQLite))
	t.Cleanup(func() { db.Close() })
	return db
}

// fakeLLM answers from a queue of replies. An empty queue repeats reply.
type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	queue    []string
	chunks   []string
	err      error
	titleErr error
	requests []llm.Request
}

func (f *fakeLLM) record(req llm.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
}

func isTitleRequest(req llm.Request) bool {
	return req.Temperature != nil
}

func (f *fakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.record(req)
	if isTitleRequest(req) && f.titleErr != nil {
		return "", f.titleErr
	}
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) > 0 {
		next := f.queue[0]
		f.queue = f.queue[1:]
		return next, nil
	}
	return f.reply, nil
}

func (f *fakeLLM) Stream(_ context.Context, req llm.Request, onChunk llm.ChunkFunc) (string, error) {
	f.record(req)
	full := ""
	for i, c := range f.chunks {
		if f.err != nil && i == 1 {
			return full, f.err
		}
		full += c
		if err := onChunk(c); err != nil {
			return full, err
		}
	}
	if f.err != nil {
		return full, f.err
	}
	return full, nil
}

var errBoom = errors.New("boom")

type testEnv struct {
	db       *sql.DB
	users    *repository.UserRepository
	chats    *repository.ChatRepository
	quizzes  *repository.QuizRepository
	sessions *SessionService
	auth     *AuthService
	profile  *ProfileService
	llm      *fakeLLM
	chat     *ChatService
	quiz     *QuizService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	env := &testEnv{
		db:      db,
		users:   repository.NewUserRepository(db),
		chats:   repository.NewChatRepository(db),
		quizzes: repository.NewQuizRepository(db),
		llm:     &fakeLLM{reply: "Respuesta **útil**"},
	}
	env.sessions = NewSessionService(repository.NewSessionRepository(db), DefaultSessionTTL, discardLogger)
	env.auth = NewAuthService(env.users, env.sessions, fastHasher, discardLogger)
	env.profile = NewProfileService(env.users, env.sessions, fastHasher)
	env.chat = NewChatService(env.chats, env.llm, markdown.NewRenderer(), ChatConfig{}, discardLogger)
	env.quiz = NewQuizService(env.quizzes, env.llm)
	return env
}

func (e *testEnv) register(t *testing.T, username, email, password string) int64 {
	t.Helper()
	id, err := e.auth.Register(context.Background(), model.RegisterRequest{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	return id
}

func loginReq(email, password string) model.LoginRequest {
	return model.LoginRequest{Email: email, Password: password}
}
