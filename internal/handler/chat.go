package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/service"
)

const (
	msgPromptRequired      = "Prompt requerido"
	msgChatSessionNotFound = "Sesión de chat no encontrada"
	msgSessionNotFound     = "Sesión no encontrada"
	msgUpstreamChat        = "Error al comunicarse con Gemini"
	msgChatsFailed         = "Error al obtener las conversaciones"
)

// ChatHandler handles HTTP requests for the tutoring chat.
type ChatHandler struct {
	service *service.ChatService
	logger  *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{service: svc, logger: logger}
}

// HandleChat handles POST /chat requests, buffered or as an event stream.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(msgPromptRequired))
		return
	}

	if req.Stream {
		h.stream(w, r, userID, req)
		return
	}

	resp, err := h.service.Send(r.Context(), userID, req.Prompt, req.ChatSessionID)
	if err != nil {
		h.writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyPrompt):
		writeJSON(w, http.StatusBadRequest, errorResponse(msgPromptRequired))
	case errors.Is(err, service.ErrChatSessionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse(msgChatSessionNotFound))
	default:
		h.logger.Warn("chat failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgUpstreamChat))
	}
}

// sseWriter writes `data: {json}\n\n` frames, sending the stream headers
// with the first frame.
type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	started bool
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) emit(ev model.StreamEvent) error {
	if !s.started {
		h := s.w.Header()
		h.Set("Content-Type", "text/event-stream; charset=utf-8")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		s.w.WriteHeader(http.StatusOK)
		s.started = true
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	return s.rc.Flush()
}

func (h *ChatHandler) stream(w http.ResponseWriter, r *http.Request, userID int64, req model.ChatRequest) {
	sse := newSSEWriter(w)
	// Streams outlive the server write timeout.
	if err := sse.rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		h.logger.Warn("clearing write deadline failed", "error", err)
	}

	err := h.service.Stream(r.Context(), userID, req.Prompt, req.ChatSessionID, sse.emit)
	if err == nil {
		return
	}
	if !sse.started {
		h.writeChatError(w, err)
		return
	}
	if r.Context().Err() != nil {
		h.logger.Info("chat stream closed by client", "user_id", userID)
		return
	}
	h.logger.Warn("chat stream failed", "user_id", userID, "error", err)
}

// HandleListSessions handles GET /chats/sessions requests.
func (h *ChatHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	sessions, err := h.service.Sessions(r.Context(), userID)
	if err != nil {
		h.logger.Error("listing chat sessions failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgChatsFailed))
		return
	}
	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	writeJSON(w, http.StatusOK, model.ChatSessionsResponse{Sessions: sessions})
}

// HandleCreateSession handles POST /chats/sessions requests.
func (h *ChatHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.CreateChatSessionRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}

	session, err := h.service.CreateSession(r.Context(), userID, req.Name)
	if err != nil {
		h.logger.Error("creating chat session failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		return
	}
	writeJSON(w, http.StatusOK, model.ChatSessionResponse{Session: session})
}

// HandleMessages handles GET /chats/{id}/messages requests.
func (h *ChatHandler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse(msgSessionNotFound))
		return
	}

	session, msgs, err := h.service.Messages(r.Context(), userID, sessionID)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, model.ChatMessagesResponse{Session: session, Messages: msgs})
}

// HandleRenameSession handles PATCH /chats/{id} requests.
func (h *ChatHandler) HandleRenameSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse(msgSessionNotFound))
		return
	}
	var req model.RenameChatSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	session, err := h.service.RenameSession(r.Context(), userID, sessionID, req.Name)
	if err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ChatSessionResponse{Session: session})
}

// HandleDeleteSession handles DELETE /chats/{id} requests.
func (h *ChatHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sessionID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse(msgSessionNotFound))
		return
	}

	if err := h.service.DeleteSession(r.Context(), userID, sessionID); err != nil {
		h.writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse("Sesión eliminada correctamente"))
}

// HandleDeleteAll handles DELETE /chats requests.
func (h *ChatHandler) HandleDeleteAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	n, err := h.service.DeleteAllSessions(r.Context(), userID)
	if err != nil {
		h.logger.Error("deleting chat sessions failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		return
	}
	writeJSON(w, http.StatusOK, model.DeleteChatsResponse{
		Message: fmt.Sprintf("%d conversaciones eliminadas correctamente", n),
		Deleted: n,
	})
}

func (h *ChatHandler) writeSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrChatSessionNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse(msgSessionNotFound))
		return
	}
	h.logger.Error("chat session operation failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
}
