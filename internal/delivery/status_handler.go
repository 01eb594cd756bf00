package delivery

import (
	"errors"
	"net/http"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/ports"
	"github.com/Vovarama1992/go-utils/logger"
)

type StatusHandler struct {
	repo ports.TranscriptionRepository
	log  *logger.ZapLogger
}

func NewStatusHandler(repo ports.TranscriptionRepository, log *logger.ZapLogger) *StatusHandler {
	return &StatusHandler{
		repo: repo,
		log:  log,
	}
}

// GET /progress?file=<filename>
//
// Pure read of the record store. A caller polls here instead of holding the
// upload connection open while the remote worker grinds.
func (h *StatusHandler) Progress(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("file")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "missing file parameter")
		return
	}

	rec, err := h.repo.Get(r.Context(), filename)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "File not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read record: "+err.Error())
		return
	}

	resp := map[string]any{
		"progress": rec.Progress,
		"text":     rec.Text,
		"status":   rec.Status,
	}
	if rec.Status == models.StatusFailed {
		resp["error"] = rec.Error
	}

	writeJSON(w, http.StatusOK, resp)
}

// GET /get_transcription?filename=<filename>
func (h *StatusHandler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		writeError(w, http.StatusBadRequest, "missing filename parameter")
		return
	}

	rec, err := h.repo.Get(r.Context(), filename)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Transcription not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read record: "+err.Error())
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "transcription fetched",
		Fields: map[string]any{
			"file":   rec.Filename,
			"status": string(rec.Status),
		},
	})

	writeJSON(w, http.StatusOK, rec)
}
