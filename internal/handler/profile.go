package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/mentoria/mentoria-go/internal/model"
	"github.com/mentoria/mentoria-go/internal/service"
)

const (
	msgUsernameTooShort      = "El nombre de usuario debe tener al menos 3 caracteres"
	msgInvalidEmail          = "Email inválido"
	msgPasswordTooShort      = "La contraseña debe tener al menos 6 caracteres"
	msgNewPasswordTooShort   = "La nueva contraseña debe tener al menos 6 caracteres"
	msgPasswordsRequired     = "Se requiere la contraseña actual y la nueva"
	msgCurrentPasswordNeeded = "Se requiere la contraseña actual para cambiarla"
	msgWrongCurrentPassword  = "Contraseña actual incorrecta"
	msgUsernameTaken         = "El nombre de usuario ya está en uso"
	msgEmailTaken            = "El email ya está en uso"
	msgNothingToUpdate       = "No hay cambios para actualizar"
	msgInvalidTheme          = "Tema inválido: usa light o dark"
	msgUsernameUpdateFailed  = "Error al actualizar el nombre de usuario"
	msgEmailUpdateFailed     = "Error al actualizar el email"
	msgPasswordUpdateFailed  = "Error al actualizar la contraseña"
	msgSettingsFailed        = "Error al obtener la configuración"
	msgSettingsUpdateFailed  = "Error al guardar la configuración"
)

// profileMessages maps profile validation errors to their client messages.
var profileMessages = map[error]string{
	service.ErrInvalidUsername:         msgUsernameTooShort,
	service.ErrInvalidEmail:            msgInvalidEmail,
	service.ErrPasswordTooShort:        msgNewPasswordTooShort,
	service.ErrPasswordsRequired:       msgPasswordsRequired,
	service.ErrCurrentPasswordRequired: msgCurrentPasswordNeeded,
	service.ErrWrongCurrentPassword:    msgWrongCurrentPassword,
	service.ErrUsernameTaken:           msgUsernameTaken,
	service.ErrEmailTaken:              msgEmailTaken,
}

func profileMessage(err error) (string, bool) {
	for target, msg := range profileMessages {
		if errors.Is(err, target) {
			return msg, true
		}
	}
	return "", false
}

// ProfileHandler handles HTTP requests for profile edits and settings.
type ProfileHandler struct {
	service *service.ProfileService
	logger  *slog.Logger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(svc *service.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: svc, logger: logger}
}

// HandleUpdateUsername handles PUT /profile/username requests.
func (h *ProfileHandler) HandleUpdateUsername(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.UpdateUsernameRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.UpdateUsername(r.Context(), userID, req.NewUsername); err != nil {
		h.writeFieldError(w, err, msgUsernameUpdateFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse("Nombre de usuario actualizado correctamente"))
}

// HandleUpdateEmail handles PUT /profile/email requests.
func (h *ProfileHandler) HandleUpdateEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.UpdateEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.UpdateEmail(r.Context(), userID, req.NewEmail); err != nil {
		h.writeFieldError(w, err, msgEmailUpdateFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse("Email actualizado correctamente"))
}

// HandleUpdatePassword handles PUT /profile/password requests.
func (h *ProfileHandler) HandleUpdatePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.UpdatePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	err := h.service.UpdatePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, service.ErrWrongCurrentPassword) {
			writeJSON(w, http.StatusUnauthorized, errorResponse(msgWrongCurrentPassword))
			return
		}
		h.writeFieldError(w, err, msgPasswordUpdateFailed)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse("Contraseña actualizada correctamente"))
}

func (h *ProfileHandler) writeFieldError(w http.ResponseWriter, err error, fallback string) {
	if msg, ok := profileMessage(err); ok {
		writeJSON(w, http.StatusBadRequest, errorResponse(msg))
		return
	}
	h.logger.Error("profile update failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse(fallback))
}

// HandleUpdateAll handles PUT /profile/update-all requests.
func (h *ProfileHandler) HandleUpdateAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	resp, err := h.service.UpdateAll(r.Context(), userID, req)
	if err != nil {
		var perrs service.ProfileErrors
		switch {
		case errors.As(err, &perrs):
			msgs := make([]string, 0, len(perrs))
			for _, e := range perrs {
				msg, ok := profileMessage(e)
				if !ok {
					msg = e.Error()
				}
				msgs = append(msgs, msg)
			}
			writeJSON(w, http.StatusBadRequest, errorResponse(strings.Join(msgs, ", ")))
		case errors.Is(err, service.ErrNothingToUpdate):
			writeJSON(w, http.StatusBadRequest, errorResponse(msgNothingToUpdate))
		default:
			h.logger.Error("profile update failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse(msgInternal))
		}
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetSettings handles GET /profile/settings requests.
func (h *ProfileHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Settings(r.Context(), userID)
	if err != nil {
		h.logger.Error("reading settings failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgSettingsFailed))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdateSettings handles PUT /profile/settings requests.
func (h *ProfileHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req model.SettingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse(msgInvalidTheme))
		return
	}

	resp, err := h.service.SetTheme(r.Context(), userID, req.ThemeMode)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTheme) {
			writeJSON(w, http.StatusBadRequest, errorResponse(msgInvalidTheme))
			return
		}
		h.logger.Error("saving settings failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse(msgSettingsUpdateFailed))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
