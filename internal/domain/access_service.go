package domain

import (
	"context"
	"crypto/subtle"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/ports"
)

type accessService struct {
	codes []string
}

// NewAccessService builds the guard from the configured allow-list. The set
// is fixed for the process lifetime; no rotation, no per-code identity.
func NewAccessService(codes []string) ports.AccessService {
	cp := make([]string, len(codes))
	copy(cp, codes)
	return &accessService{codes: cp}
}

func (s *accessService) Authorize(_ context.Context, code string) error {
	if code == "" {
		return models.ErrAccessDenied
	}
	for _, valid := range s.codes {
		if subtle.ConstantTimeCompare([]byte(code), []byte(valid)) == 1 {
			return nil
		}
	}
	return models.ErrAccessDenied
}
