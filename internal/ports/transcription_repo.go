package ports

import (
	"context"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
)

type TranscriptionRepository interface {
	// CreatePending upserts the record for filename into the pending state,
	// resetting text and progress for the new job.
	CreatePending(ctx context.Context, filename, jobID, language string) error
	SetInProgress(ctx context.Context, filename string) error
	SetProgress(ctx context.Context, filename string, progress int) error
	// Complete overwrites the stored text and sets progress to 100. The
	// final text is authoritative; retries never duplicate it.
	Complete(ctx context.Context, filename, text string) error
	Fail(ctx context.Context, filename, reason string) error
	Get(ctx context.Context, filename string) (*models.TranscriptionRecord, error)

	// WorkerEndpoint reads the mutable remote worker URL. Empty string means
	// no override is stored and the configured default applies.
	WorkerEndpoint(ctx context.Context) (string, error)
	SetWorkerEndpoint(ctx context.Context, url string) error
}
