package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mentoria/mentoria-go/internal/llm"
	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/repository"
)

const (
	// DefaultHistoryWindow is how many previous messages are sent as context.
	DefaultHistoryWindow = 10
	// DefaultDisplayWindow bounds the messages returned for display.
	DefaultDisplayWindow = 100

	maxSessionNameLength = 80

	noReply        = "No se pudo generar respuesta"
	streamErrorMsg = "Error en el streaming"
)

const tutorPersona = `Eres MentorIA, un asistente de estudio inteligente y adaptable.
Ayudas a estudiantes a comprender conceptos, resolver dudas y preparar exámenes.
Explica paso a paso, adapta el nivel a lo que el estudiante muestra saber y usa ejemplos concretos.
Si una pregunta es ambigua, pide una aclaración breve. Responde en español salvo que te pidan otro idioma.
Usa Markdown para listas, fórmulas y bloques de código cuando ayuden a la claridad.`

// ChatStore persists chat sessions and their messages.
type ChatStore interface {
	CreateSession(ctx context.Context, userID int64, name string) (model.ChatSession, error)
	GetSession(ctx context.Context, userID, sessionID int64) (model.ChatSession, error)
	MostRecentSession(ctx context.Context, userID int64) (model.ChatSession, error)
	ListSessions(ctx context.Context, userID int64) ([]model.ChatSession, error)
	Rename(ctx context.Context, userID, sessionID int64, name string) error
	AppendMessages(ctx context.Context, sessionID int64, msgs ...model.ChatMessage) ([]model.ChatMessage, error)
	History(ctx context.Context, sessionID int64, limit int) ([]model.ChatMessage, error)
	DeleteSession(ctx context.Context, userID, sessionID int64) error
	DeleteAllSessions(ctx context.Context, userID int64) (int64, error)
}

// Renderer converts assistant markdown into HTML.
type Renderer interface {
	Render(src string) (string, error)
}

// ChatConfig tunes the context windows of the chat service.
type ChatConfig struct {
	HistoryWindow int
	DisplayWindow int
	TitleTimeout  time.Duration
}

// ChatService runs tutoring conversations against the LLM.
type ChatService struct {
	store    ChatStore
	llm      llm.Client
	renderer Renderer
	cfg      ChatConfig
	logger   *slog.Logger
}

// NewChatService creates a new ChatService. Zero config values take defaults.
func NewChatService(store ChatStore, client llm.Client, renderer Renderer, cfg ChatConfig, logger *slog.Logger) *ChatService {
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if cfg.DisplayWindow <= 0 {
		cfg.DisplayWindow = DefaultDisplayWindow
	}
	if cfg.TitleTimeout <= 0 {
		cfg.TitleTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{store: store, llm: client, renderer: renderer, cfg: cfg, logger: logger}
}

// resolveSession returns the requested session when the user owns it, or the
// user's most recently updated session, creating one if the user has none.
func (s *ChatService) resolveSession(ctx context.Context, userID int64, sessionID *int64) (model.ChatSession, error) {
	if sessionID != nil {
		session, err := s.store.GetSession(ctx, userID, *sessionID)
		if errors.Is(err, repository.ErrChatSessionNotFound) {
			return model.ChatSession{}, ErrChatSessionNotFound
		}
		return session, err
	}

	session, err := s.store.MostRecentSession(ctx, userID)
	if errors.Is(err, repository.ErrChatSessionNotFound) {
		return s.store.CreateSession(ctx, userID, model.DefaultChatSessionName)
	}
	return session, err
}

// buildContext assembles persona, the recent history and the new prompt.
func (s *ChatService) buildContext(ctx context.Context, session model.ChatSession, prompt string) ([]llm.Message, error) {
	history, err := s.store.History(ctx, session.ID, s.cfg.HistoryWindow)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Text: tutorPersona})
	for _, m := range history {
		role := llm.RoleModel
		if m.Role == model.RoleUser {
			role = llm.RoleUser
		}
		msgs = append(msgs, llm.Message{Role: role, Text: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Text: prompt})
	return msgs, nil
}

func (s *ChatService) prepare(ctx context.Context, userID int64, prompt string, sessionID *int64) (model.ChatSession, []llm.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return model.ChatSession{}, nil, ErrEmptyPrompt
	}
	session, err := s.resolveSession(ctx, userID, sessionID)
	if err != nil {
		return model.ChatSession{}, nil, err
	}
	msgs, err := s.buildContext(ctx, session, prompt)
	if err != nil {
		return model.ChatSession{}, nil, err
	}
	return session, msgs, nil
}

func upstream(err error) error {
	if errors.Is(err, llm.ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %w", llm.ErrUpstream, err)
}

// Send answers prompt in one piece. The reply is returned as HTML while the
// raw markdown is what gets stored.
func (s *ChatService) Send(ctx context.Context, userID int64, prompt string, sessionID *int64) (model.ChatResponse, error) {
	session, msgs, err := s.prepare(ctx, userID, prompt, sessionID)
	if err != nil {
		return model.ChatResponse{}, err
	}

	raw, err := s.llm.Complete(ctx, llm.Request{Messages: msgs})
	if err != nil {
		return model.ChatResponse{}, upstream(err)
	}
	if strings.TrimSpace(raw) == "" {
		raw = noReply
	}

	if err := s.persist(ctx, session.ID, prompt, raw); err != nil {
		return model.ChatResponse{}, err
	}
	name := s.autoTitle(ctx, session, prompt, raw)

	html, err := s.renderer.Render(raw)
	if err != nil {
		return model.ChatResponse{}, fmt.Errorf("rendering reply: %w", err)
	}
	return model.ChatResponse{Reply: html, ChatSessionID: session.ID, SessionName: name}, nil
}

// EmitFunc receives stream events in order.
type EmitFunc func(model.StreamEvent) error

// Stream answers prompt fragment by fragment. Errors before the start event
// are returned without emitting anything. Once started, an upstream failure
// is reported as an error event and also returned. The exchange is stored
// only when the upstream stream completed.
func (s *ChatService) Stream(ctx context.Context, userID int64, prompt string, sessionID *int64, emit EmitFunc) error {
	session, msgs, err := s.prepare(ctx, userID, prompt, sessionID)
	if err != nil {
		return err
	}

	if err := emit(model.StreamEvent{
		Type:          model.StreamStart,
		ChatSessionID: session.ID,
		SessionName:   session.SessionName,
	}); err != nil {
		return err
	}

	full, err := s.llm.Stream(ctx, llm.Request{Messages: msgs}, func(text string) error {
		return emit(model.StreamEvent{Type: model.StreamChunk, Text: text})
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_ = emit(model.StreamEvent{Type: model.StreamError, Error: streamErrorMsg})
		return upstream(err)
	}

	// The reply is complete; keep it even if the client leaves now.
	persistCtx := context.WithoutCancel(ctx)
	if err := s.persist(persistCtx, session.ID, prompt, full); err != nil {
		_ = emit(model.StreamEvent{Type: model.StreamError, Error: streamErrorMsg})
		return err
	}
	name := s.autoTitle(persistCtx, session, prompt, full)

	return emit(model.StreamEvent{
		Type:          model.StreamEnd,
		ChatSessionID: session.ID,
		SessionName:   name,
		FullText:      full,
	})
}

func (s *ChatService) persist(ctx context.Context, sessionID int64, prompt, reply string) error {
	_, err := s.store.AppendMessages(ctx, sessionID,
		model.ChatMessage{Role: model.RoleUser, Content: prompt},
		model.ChatMessage{Role: model.RoleAssistant, Content: reply},
	)
	if err != nil {
		return fmt.Errorf("storing messages: %w", err)
	}
	return nil
}

// Sessions lists the user's chat sessions, most recent first.
func (s *ChatService) Sessions(ctx context.Context, userID int64) ([]model.ChatSession, error) {
	return s.store.ListSessions(ctx, userID)
}

func sessionName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.DefaultChatSessionName
	}
	return truncateRunes(name, maxSessionNameLength)
}

// CreateSession opens an empty session. A blank name gets the default.
func (s *ChatService) CreateSession(ctx context.Context, userID int64, name string) (model.ChatSession, error) {
	return s.store.CreateSession(ctx, userID, sessionName(name))
}

// Messages returns an owned session with its latest messages.
func (s *ChatService) Messages(ctx context.Context, userID, sessionID int64) (model.ChatSession, []model.ChatMessage, error) {
	session, err := s.store.GetSession(ctx, userID, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrChatSessionNotFound) {
			return model.ChatSession{}, nil, ErrChatSessionNotFound
		}
		return model.ChatSession{}, nil, err
	}
	msgs, err := s.store.History(ctx, sessionID, s.cfg.DisplayWindow)
	if err != nil {
		return model.ChatSession{}, nil, err
	}
	return session, msgs, nil
}

// RenameSession renames an owned session.
func (s *ChatService) RenameSession(ctx context.Context, userID, sessionID int64, name string) (model.ChatSession, error) {
	if err := s.store.Rename(ctx, userID, sessionID, sessionName(name)); err != nil {
		if errors.Is(err, repository.ErrChatSessionNotFound) {
			return model.ChatSession{}, ErrChatSessionNotFound
		}
		return model.ChatSession{}, err
	}
	return s.store.GetSession(ctx, userID, sessionID)
}

// DeleteSession removes an owned session and its messages.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID int64) error {
	err := s.store.DeleteSession(ctx, userID, sessionID)
	if errors.Is(err, repository.ErrChatSessionNotFound) {
		return ErrChatSessionNotFound
	}
	return err
}

// DeleteAllSessions removes every session of the user and reports how many.
func (s *ChatService) DeleteAllSessions(ctx context.Context, userID int64) (int64, error) {
	return s.store.DeleteAllSessions(ctx, userID)
}
