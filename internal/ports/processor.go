package ports

import (
	"context"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
)

type TranscribeProcessor interface {
	// Submit registers a pending record and enqueues the job. Returns the
	// job ID immediately; the actual remote call happens on a worker.
	Submit(ctx context.Context, filename, localPath, language string) (string, error)
	Events() <-chan models.ProgressEvent
}
