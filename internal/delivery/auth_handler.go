package delivery

import (
	"net/http"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/ports"
	"github.com/Vovarama1992/go-utils/logger"
)

type AuthHandler struct {
	access ports.AccessService
	log    *logger.ZapLogger
}

func NewAuthHandler(access ports.AccessService, log *logger.ZapLogger) *AuthHandler {
	return &AuthHandler{
		access: access,
		log:    log,
	}
}

// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	code := r.PostFormValue("code")

	if err := h.access.Authorize(r.Context(), code); err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"detail": "Invalid access code",
		})
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "login success",
	})

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Access granted",
	})
}
