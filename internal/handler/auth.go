package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mentoria/mentoria-go/internal/middleware"
	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/service"
)

const (
	msgMissingFields     = "Faltan campos obligatorios"
	msgRegisterFailed    = "Error al registrar usuario. Quizá el email o username ya existe."
	msgUserNotFound      = "Usuario no encontrado"
	msgIncorrectPassword = "Contraseña incorrecta"
	msgMissingToken      = "Falta token de sesión"
	msgDeleteFailed      = "Error al eliminar la cuenta"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	service *service.AuthService
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// HandleRegister handles POST /register requests.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(msgMissingFields))
		return
	}

	userID, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgMissingFields))
		case errors.Is(err, service.ErrInvalidUsername):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgUsernameTooShort))
		case errors.Is(err, service.ErrInvalidEmail):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgInvalidEmail))
		case errors.Is(err, service.ErrPasswordTooShort):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgPasswordTooShort))
		case errors.Is(err, service.ErrUserExists):
			writeJSON(w, http.StatusInternalServerError, errorResponse(msgRegisterFailed))
		default:
			h.logger.Error("register failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse(msgRegisterFailed))
		}
		return
	}

	writeJSON(w, http.StatusOK, model.RegisterResponse{Message: "Usuario registrado correctamente", UserID: userID})
}

// HandleLogin handles POST /login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(msgMissingFields))
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingFields):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgMissingFields))
		case errors.Is(err, service.ErrUserNotFound):
			writeJSON(w, http.StatusUnauthorized, errorResponse(msgUserNotFound))
		case errors.Is(err, service.ErrIncorrectPassword):
			writeJSON(w, http.StatusUnauthorized, errorResponse(msgIncorrectPassword))
		default:
			h.logger.Error("login failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleLogout handles POST /logout requests. The token comes from the body,
// or from the Authorization header when the body names none.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req model.LogoutRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		req.Token = middleware.BearerToken(r)
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(msgMissingToken))
		return
	}

	if err := h.service.Logout(r.Context(), req.Token); err != nil {
		if errors.Is(err, service.ErrMissingToken) {
			writeJSON(w, http.StatusBadRequest, errorResponse(msgMissingToken))
			return
		}
		h.logger.Error("logout failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse("Logout exitoso"))
}

// HandleUserInfo handles GET /user-info requests.
func (h *AuthHandler) HandleUserInfo(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := h.service.UserInfo(r.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse(msgUserNotFound))
			return
		}
		h.logger.Error("user info failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleDeleteAccount handles DELETE /user/delete-account requests.
func (h *AuthHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID); err != nil {
		h.logger.Error("account deletion failed", "user_id", userID, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgDeleteFailed))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse("Cuenta eliminada correctamente"))
}
