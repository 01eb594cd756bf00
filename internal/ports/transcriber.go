package ports

import "context"

// TranscribeRequest carries exactly one of FilePath (inline forward) or
// FileURL (storage-backed forward).
type TranscribeRequest struct {
	Endpoint string
	FilePath string
	FileURL  string
	Language string
}

type TranscriberClient interface {
	// Transcribe forwards the audio to the remote worker and returns the
	// transcription text. Failures are classified as *models.RemoteFailure.
	Transcribe(ctx context.Context, req TranscribeRequest) (string, error)
}
