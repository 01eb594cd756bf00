package delivery

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/domain"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/ports"
	"github.com/Vovarama1992/go-utils/logger"
)

const maxUploadMemory = 32 << 20

type TranscribeHandler struct {
	access    ports.AccessService
	proc      ports.TranscribeProcessor
	repo      ports.TranscriptionRepository
	uploadDir string
	log       *logger.ZapLogger
}

func NewTranscribeHandler(
	access ports.AccessService,
	proc ports.TranscribeProcessor,
	repo ports.TranscriptionRepository,
	uploadDir string,
	log *logger.ZapLogger,
) *TranscribeHandler {
	return &TranscribeHandler{
		access:    access,
		proc:      proc,
		repo:      repo,
		uploadDir: uploadDir,
		log:       log,
	}
}

// POST /transcribe
//
// The access code is checked before anything touches disk or the store: a
// denied request leaves no trace.
func (h *TranscribeHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	if err := h.access.Authorize(r.Context(), r.FormValue("code")); err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"detail": "Invalid access code",
		})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	filename, err := domain.SanitizeFilename(header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid filename")
		return
	}

	language := r.FormValue("language")
	if language == "" {
		language = "auto"
	}

	localPath, size, err := h.saveUpload(file, filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store upload: "+err.Error())
		return
	}

	if size == 0 {
		_ = os.Remove(localPath)
		writeError(w, http.StatusBadRequest, models.ErrEmptyUpload.Error())
		return
	}

	// Submit owns localPath from here: the worker removes it when the job
	// finishes, Submit itself removes it on enqueue failure.
	jobID, err := h.proc.Submit(r.Context(), filename, localPath, language)
	if err != nil {
		if errors.Is(err, domain.ErrQueueFull) {
			writeError(w, http.StatusServiceUnavailable, "transcription queue is full, retry later")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start transcription: "+err.Error())
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "transcription started",
		Fields: map[string]any{
			"file":     filename,
			"jobID":    jobID,
			"language": language,
			"bytes":    size,
		},
	})

	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "Transcription started",
		"job_id":  jobID,
		"file":    filename,
	})
}

func (h *TranscribeHandler) saveUpload(src io.Reader, filename string) (string, int64, error) {
	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", 0, err
	}

	path := filepath.Join(h.uploadDir, filename)

	dst, err := os.Create(path)
	if err != nil {
		return "", 0, err
	}

	size, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", 0, err
	}

	return path, size, nil
}

// POST /endpoint
//
// Swaps the remote worker URL at runtime. The new value is stored in the
// record store and picked up before the next forward.
func (h *TranscribeHandler) SetEndpoint(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form: "+err.Error())
		return
	}

	if err := h.access.Authorize(r.Context(), r.PostFormValue("code")); err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{
			"detail": "Invalid access code",
		})
		return
	}

	raw := r.PostFormValue("url")
	parsed, err := url.Parse(raw)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "url must be absolute http(s)")
		return
	}

	if err := h.repo.SetWorkerEndpoint(r.Context(), raw); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store endpoint: "+err.Error())
		return
	}

	h.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "worker endpoint updated",
		Fields:  map[string]any{"url": raw},
	})

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}
