package delivery

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, hAuth *AuthHandler, hTranscribe *TranscribeHandler, hStatus *StatusHandler) {

	// access check
	r.Post("/login", hAuth.Login)

	// upload + relay
	r.Post("/transcribe", hTranscribe.Transcribe)
	r.Post("/endpoint", hTranscribe.SetEndpoint)

	// polling reads
	r.Get("/progress", hStatus.Progress)
	r.Get("/get_transcription", hStatus.GetTranscription)

	// liveness
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "Server is running!",
		})
	})
}
