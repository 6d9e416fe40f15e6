package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/service"
)

const (
	msgInvalidTopic     = "Proporciona un tema válido (mín. 3 caracteres)"
	msgEmptyModelReply  = "Respuesta vacía del modelo"
	msgUnparseableQuiz  = "No se pudo parsear JSON del modelo"
	msgGenerateFailed   = "Error generando el quiz con Gemini"
	msgQuizNotFound     = "Quiz no encontrado"
	msgInvalidAnswers   = "Debes enviar 10 respuestas"
	msgQuizzesFailed    = "Error al obtener los quizzes"
	msgAttemptFailed    = "Error al registrar el intento"
	msgProgressFailed   = "Error al obtener el progreso"
	msgInvalidQuizLimit = "Parámetro limit inválido"
)

// QuizHandler handles HTTP requests for quizzes, attempts and progress.
type QuizHandler struct {
	service     *service.QuizService
	logger      *slog.Logger
	recentLimit int
}

// NewQuizHandler creates a new QuizHandler.
func NewQuizHandler(svc *service.QuizService, logger *slog.Logger) *QuizHandler {
	return &QuizHandler{service: svc, logger: logger}
}

// WithRecentLimit sets the listing size used when a request names no limit.
func (h *QuizHandler) WithRecentLimit(n int) *QuizHandler {
	h.recentLimit = n
	return h
}

// HandleGenerate handles POST /quizzes/generate requests.
func (h *QuizHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.GenerateQuizRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.Generate(r.Context(), userID, req.Topic, req.Difficulty)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidTopic):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgInvalidTopic))
		case errors.Is(err, service.ErrEmptyModelResponse):
			writeJSON(w, http.StatusInternalServerError, errorResponse(msgEmptyModelReply))
		case errors.Is(err, service.ErrUnparseableQuiz):
			writeJSON(w, http.StatusInternalServerError, errorResponse(msgUnparseableQuiz))
		default:
			h.logger.Warn("quiz generation failed", "user_id", userID, "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse(msgGenerateFailed))
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleRecent handles GET /quizzes/recent requests.
func (h *QuizHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit := h.recentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse(msgInvalidQuizLimit))
			return
		}
		limit = n
	}

	quizzes, err := h.service.Recent(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("listing quizzes failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgQuizzesFailed))
		return
	}
	if quizzes == nil {
		quizzes = []model.QuizSummary{}
	}
	writeJSON(w, http.StatusOK, model.RecentQuizzesResponse{Items: quizzes})
}

// HandleGet handles GET /quizzes/{id} requests.
func (h *QuizHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	quizID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse(msgQuizNotFound))
		return
	}

	q, err := h.service.Get(r.Context(), userID, quizID)
	if err != nil {
		if errors.Is(err, service.ErrQuizNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse(msgQuizNotFound))
			return
		}
		h.logger.Error("reading quiz failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// HandleAttempt handles POST /quizzes/{id}/attempt requests.
func (h *QuizHandler) HandleAttempt(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	quizID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse(msgQuizNotFound))
		return
	}
	var req model.AttemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(msgInvalidAnswers))
		return
	}

	resp, err := h.service.Attempt(r.Context(), userID, quizID, req.Answers)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidAnswerCount):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgInvalidAnswers))
		case errors.Is(err, service.ErrQuizNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse(msgQuizNotFound))
		default:
			h.logger.Error("recording attempt failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse(msgAttemptFailed))
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleProgress handles GET /progress/summary requests.
func (h *QuizHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Progress(r.Context(), userID)
	if err != nil {
		h.logger.Error("progress summary failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgProgressFailed))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
