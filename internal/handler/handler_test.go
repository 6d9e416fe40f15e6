package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentoria/mentoria-go/internal/crypto"
	"github.com/mentoria/mentoria-go/internal/llm"
	"github.com/mentoria/mentoria-go/internal/markdown"
	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/repository"
	"github.com/mentoria/mentoria-go/internal/service"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const quizJSON = `{"topic":"Algebra","questions":[{"question":"2+2?","options":["1","2","3","4"],"correctIndex":3}]}`

// stubLLM answers JSON requests with a quiz, title requests with a fixed
// title and everything else with reply.
type stubLLM struct {
	mu     sync.Mutex
	reply  string
	chunks []string
	err    error
	calls  int
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	switch {
	case req.JSON:
		return quizJSON, nil
	case req.Temperature != nil:
		return "Ecuaciones lineales", nil
	}
	return s.reply, nil
}

func (s *stubLLM) Stream(_ context.Context, _ llm.Request, onChunk llm.ChunkFunc) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	full := ""
	for _, c := range s.chunks {
		full += c
		if err := onChunk(c); err != nil {
			return full, err
		}
	}
	return full, nil
}

type testServer struct {
	handler http.Handler
	llm     *stubLLM
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := repository.NewDB(repository.DriverSQLite, ":memory:", repository.DefaultPoolConfig())
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(db, repository.DriverSQLite))
	t.Cleanup(func() { db.Close() })

	hasher := crypto.NewPasswordHasher(crypto.HashParams{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	stub := &stubLLM{reply: "La **derivada** mide el cambio.", chunks: []string{"Hola", " mundo"}}

	users := repository.NewUserRepository(db)
	sessions := service.NewSessionService(repository.NewSessionRepository(db), service.DefaultSessionTTL, discardLogger)
	authSvc := service.NewAuthService(users, sessions, hasher, discardLogger)
	profileSvc := service.NewProfileService(users, sessions, hasher)
	chatSvc := service.NewChatService(repository.NewChatRepository(db), stub, markdown.NewRenderer(), service.ChatConfig{}, discardLogger)
	quizSvc := service.NewQuizService(repository.NewQuizRepository(db), stub)

	router := NewRouter(RouterConfig{}, Handlers{
		Auth:     NewAuthHandler(authSvc, discardLogger),
		Profile:  NewProfileHandler(profileSvc, discardLogger),
		Chat:     NewChatHandler(chatSvc, discardLogger),
		Quiz:     NewQuizHandler(quizSvc, discardLogger),
		Health:   NewHealthHandler(map[string]Pinger{"database": db.PingContext, "redis": nil}, discardLogger),
		Sessions: sessions,
	}, discardLogger)

	return &testServer{handler: router, llm: stub}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	return decodeBody[map[string]string](t, rr)["error"]
}

// signup registers alice and returns a fresh session token.
func (s *testServer) signup(t *testing.T) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, "/login", "", map[string]string{"email": "alice@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decodeBody[model.LoginResponse](t, rr).Token
}

func TestAuthFlow(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodPost, "/register", "", map[string]string{
		"username": "alice", "email": "alice@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rr.Code)
	reg := decodeBody[model.RegisterResponse](t, rr)
	assert.Equal(t, "Usuario registrado correctamente", reg.Message)
	assert.Positive(t, reg.UserID)

	rr = srv.do(t, http.MethodPost, "/login", "", map[string]string{"email": "alice@x.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Contraseña incorrecta", errorOf(t, rr))

	rr = srv.do(t, http.MethodPost, "/login", "", map[string]string{"email": "bob@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Usuario no encontrado", errorOf(t, rr))

	rr = srv.do(t, http.MethodPost, "/login", "", map[string]string{"email": "alice@x.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rr.Code)
	login := decodeBody[model.LoginResponse](t, rr)
	require.NotEmpty(t, login.Token)

	rr = srv.do(t, http.MethodGet, "/user-info", login.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	info := decodeBody[model.UserResponse](t, rr)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, "alice@x.com", info.Email)

	rr = srv.do(t, http.MethodPost, "/logout", "", map[string]string{"token": login.Token})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Logout exitoso", decodeBody[map[string]string](t, rr)["message"])

	rr = srv.do(t, http.MethodGet, "/user-info", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Token inválido o expirado", errorOf(t, rr))
}

func TestRegisterValidation(t *testing.T) {
	srv := newTestServer(t)
	srv.signup(t)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
		wantError  string
	}{
		{"missing password", map[string]string{"username": "bob", "email": "bob@x.com"}, http.StatusBadRequest, "Faltan campos obligatorios"},
		{"short username", map[string]string{"username": "bo", "email": "bob@x.com", "password": "secret1"}, http.StatusBadRequest, "El nombre de usuario debe tener al menos 3 caracteres"},
		{"bad email", map[string]string{"username": "bob", "email": "bob-at-x", "password": "secret1"}, http.StatusBadRequest, "Email inválido"},
		{"short password", map[string]string{"username": "bob", "email": "bob@x.com", "password": "123"}, http.StatusBadRequest, "La contraseña debe tener al menos 6 caracteres"},
		{"duplicate email", map[string]string{"username": "other", "email": "alice@x.com", "password": "secret1"}, http.StatusInternalServerError, msgRegisterFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := srv.do(t, http.MethodPost, "/register", "", tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantError, errorOf(t, rr))
		})
	}
}

func TestInvalidBodyAndFallbacks(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	srv.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgInvalidBody, errorOf(t, rr))

	rr = srv.do(t, http.MethodGet, "/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, msgNotFound, errorOf(t, rr))

	rr = srv.do(t, http.MethodGet, "/login", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, msgNotAllowed, errorOf(t, rr))

	rr = srv.do(t, http.MethodPost, "/logout", "", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgMissingToken, errorOf(t, rr))
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/progress/summary", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, `Bearer error="missing_token"`, rr.Header().Get("WWW-Authenticate"))
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	rr := srv.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeBody[struct {
		Ready  bool              `json:"ready"`
		Checks map[string]string `json:"checks"`
	}](t, rr)
	assert.True(t, body.Ready)
	assert.Equal(t, map[string]string{"database": "ok"}, body.Checks)
}

func TestReadyReportsFailingDependency(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	}, discardLogger)
	rr := httptest.NewRecorder()
	h.HandleReady(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestProfileEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodPut, "/profile/username", token, map[string]string{"newUsername": "al"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgUsernameTooShort, errorOf(t, rr))

	rr = srv.do(t, http.MethodPut, "/profile/email", token, map[string]string{"newEmail": "Alice.New@X.com"})
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodGet, "/user-info", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "alice.new@x.com", decodeBody[model.UserResponse](t, rr).Email)

	rr = srv.do(t, http.MethodPut, "/profile/password", token, map[string]string{
		"currentPassword": "nope-nope", "newPassword": "secret2",
	})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, msgWrongCurrentPassword, errorOf(t, rr))

	rr = srv.do(t, http.MethodPut, "/profile/update-all", token, map[string]string{
		"newUsername": "al", "newEmail": "bad",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgUsernameTooShort+", "+msgInvalidEmail, errorOf(t, rr))

	rr = srv.do(t, http.MethodPut, "/profile/update-all", token, map[string]string{
		"newUsername": "alicia", "currentPassword": "secret1", "newPassword": "secret2",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	resp := decodeBody[model.ProfileUpdateResponse](t, rr)
	assert.True(t, resp.RequiresRelogin)

	rr = srv.do(t, http.MethodGet, "/user-info", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "a password change revokes existing sessions")
}

func TestSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodGet, "/profile/settings", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "light", decodeBody[model.SettingsResponse](t, rr).ThemeMode)

	rr = srv.do(t, http.MethodPut, "/profile/settings", token, map[string]string{"themeMode": "sepia"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgInvalidTheme, errorOf(t, rr))

	rr = srv.do(t, http.MethodPut, "/profile/settings", token, map[string]string{"themeMode": "dark"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "dark", decodeBody[model.SettingsResponse](t, rr).ThemeMode)
}

func TestChatBufferedCreatesOneSession(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "¿Qué es una derivada?"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	chat := decodeBody[model.ChatResponse](t, rr)
	assert.Contains(t, chat.Reply, "<strong>derivada</strong>")
	assert.Equal(t, "Ecuaciones lineales", chat.SessionName)

	rr = srv.do(t, http.MethodGet, "/chats/sessions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	sessions := decodeBody[model.ChatSessionsResponse](t, rr).Sessions
	require.Len(t, sessions, 1)
	assert.Equal(t, chat.ChatSessionID, sessions[0].ID)

	rr = srv.do(t, http.MethodGet, "/chats/"+itoa(chat.ChatSessionID)+"/messages", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	msgs := decodeBody[model.ChatMessagesResponse](t, rr).Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
}

func TestChatValidationAndErrors(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": ""})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgPromptRequired, errorOf(t, rr))

	rr = srv.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "   "})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgPromptRequired, errorOf(t, rr))

	rr = srv.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "hola", "chatSessionId": "5"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgInvalidBody, errorOf(t, rr))

	rr = srv.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "hola", "chatSessionId": 999})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, msgChatSessionNotFound, errorOf(t, rr))

	srv.llm.err = llm.ErrUpstream
	rr = srv.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "hola"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, msgUpstreamChat, errorOf(t, rr))
}

func readEvents(t *testing.T, body io.Reader) []model.StreamEvent {
	t.Helper()
	var events []model.StreamEvent
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var ev model.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestChatStream(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "Saluda", "stream": true})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rr.Header().Get("Cache-Control"))
	assert.True(t, rr.Flushed)

	events := readEvents(t, rr.Body)
	require.Len(t, events, 4)
	assert.Equal(t, model.StreamStart, events[0].Type)
	assert.Positive(t, events[0].ChatSessionID)
	assert.Equal(t, model.StreamChunk, events[1].Type)
	assert.Equal(t, "Hola", events[1].Text)
	assert.Equal(t, " mundo", events[2].Text)
	assert.Equal(t, model.StreamEnd, events[3].Type)
	assert.Equal(t, "Hola mundo", events[3].FullText)
	assert.Equal(t, "Ecuaciones lineales", events[3].SessionName)
}

func TestChatStreamErrorBeforeStartIsJSON(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodPost, "/chat", token, map[string]any{"prompt": "hola", "chatSessionId": 999, "stream": true})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestChatSessionManagement(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodPost, "/chats/sessions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	created := decodeBody[model.ChatSessionResponse](t, rr).Session
	assert.Equal(t, model.DefaultChatSessionName, created.SessionName)

	rr = srv.do(t, http.MethodPatch, "/chats/"+itoa(created.ID), token, map[string]string{"name": "  Álgebra  "})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Álgebra", decodeBody[model.ChatSessionResponse](t, rr).Session.SessionName)

	rr = srv.do(t, http.MethodPost, "/chats/sessions", token, map[string]string{"name": "Física"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodDelete, "/chats/"+itoa(created.ID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Sesión eliminada correctamente", decodeBody[map[string]string](t, rr)["message"])

	rr = srv.do(t, http.MethodGet, "/chats/"+itoa(created.ID)+"/messages", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, msgSessionNotFound, errorOf(t, rr))

	rr = srv.do(t, http.MethodDelete, "/chats", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	deleted := decodeBody[model.DeleteChatsResponse](t, rr)
	assert.Equal(t, int64(1), deleted.Deleted)
	assert.Equal(t, "1 conversaciones eliminadas correctamente", deleted.Message)

	rr = srv.do(t, http.MethodGet, "/chats/sessions", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"sessions":[]}`, rr.Body.String())
}

func TestQuizFlow(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodPost, "/quizzes/generate", token, map[string]string{"topic": "ab"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgInvalidTopic, errorOf(t, rr))

	rr = srv.do(t, http.MethodPost, "/quizzes/generate", token, map[string]string{"topic": "Algebra"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	gen := decodeBody[model.GenerateQuizResponse](t, rr)
	assert.Equal(t, "intermedio", gen.Quiz.Difficulty)
	require.Len(t, gen.Quiz.Questions, model.QuestionsPerQuiz)
	assert.Equal(t, "q1", gen.Quiz.Questions[0].ID)

	rr = srv.do(t, http.MethodGet, "/quizzes/"+itoa(gen.QuizID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, gen.QuizID, decodeBody[model.Quiz](t, rr).ID)

	rr = srv.do(t, http.MethodGet, "/quizzes/recent?limit=5", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[model.RecentQuizzesResponse](t, rr).Items, 1)

	rr = srv.do(t, http.MethodPost, "/quizzes/"+itoa(gen.QuizID)+"/attempt", token, map[string]any{"answers": []int{1, 2}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, msgInvalidAnswers, errorOf(t, rr))

	perfect := []int{3, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	rr = srv.do(t, http.MethodPost, "/quizzes/"+itoa(gen.QuizID)+"/attempt", token, map[string]any{"answers": perfect})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	attempt := decodeBody[model.AttemptResponse](t, rr)
	assert.Equal(t, 10, attempt.Score)
	assert.Equal(t, 10, attempt.Total)
	assert.Equal(t, 100, attempt.Percentage)

	rr = srv.do(t, http.MethodGet, "/progress/summary", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	progress := decodeBody[model.ProgressSummary](t, rr)
	assert.Equal(t, 1, progress.QuizzesCount)
	assert.Equal(t, 1, progress.AttemptsCount)
	assert.InDelta(t, 100.0, progress.AvgScore, 0.001)

	rr = srv.do(t, http.MethodGet, "/quizzes/9999", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, msgQuizNotFound, errorOf(t, rr))
}

func TestQuizReadResponseKeys(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodGet, "/quizzes/recent", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"items":[]}`, rr.Body.String())

	rr = srv.do(t, http.MethodPost, "/quizzes/generate", token, map[string]string{"topic": "Algebra"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	quizID := decodeBody[model.GenerateQuizResponse](t, rr).QuizID

	rr = srv.do(t, http.MethodGet, "/quizzes/recent", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	recent := decodeBody[map[string][]map[string]any](t, rr)
	require.Len(t, recent["items"], 1)
	item := recent["items"][0]
	assert.ElementsMatch(t, []string{"id", "topic", "difficulty", "created_at"}, keysOf(item))
	assert.EqualValues(t, quizID, item["id"])

	rr = srv.do(t, http.MethodGet, "/quizzes/"+itoa(quizID), token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	quiz := decodeBody[map[string]any](t, rr)
	assert.ElementsMatch(t, []string{"id", "topic", "difficulty", "created_at", "questions"}, keysOf(quiz))
	assert.Len(t, quiz["questions"], model.QuestionsPerQuiz)
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestQuizGenerateUpstreamFailure(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)
	srv.llm.err = llm.ErrUpstream

	rr := srv.do(t, http.MethodPost, "/quizzes/generate", token, map[string]string{"topic": "Algebra"})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, msgGenerateFailed, errorOf(t, rr))
}

func TestDeleteAccount(t *testing.T) {
	srv := newTestServer(t)
	token := srv.signup(t)

	rr := srv.do(t, http.MethodDelete, "/user/delete-account", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = srv.do(t, http.MethodGet, "/user-info", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = srv.do(t, http.MethodPost, "/login", "", map[string]string{"email": "alice@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
