package ports

import "context"

type BlobPublisher interface {
	// Publish uploads the local file under a deterministic key derived from
	// filename and returns a publicly dereferenceable URL. Re-publishing the
	// same filename overwrites the previous object.
	Publish(ctx context.Context, localPath, filename string) (string, error)
}
