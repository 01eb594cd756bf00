package ports

import "context"

type AccessService interface {
	// Authorize checks a submitted access code against the configured set.
	// Returns models.ErrAccessDenied on mismatch. Access is flat: a valid
	// code grants everything, an invalid one grants nothing.
	Authorize(ctx context.Context, code string) error
}
