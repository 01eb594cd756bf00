package models

import (
	"errors"
	"fmt"
)

var (
	ErrAccessDenied = errors.New("invalid access code")
	ErrEmptyUpload  = errors.New("uploaded file is empty")
	ErrNotFound     = errors.New("not found")
)

type RemoteFailureKind string

const (
	// RemoteUnreachable: transport-level failure, nothing reached the worker.
	RemoteUnreachable RemoteFailureKind = "unreachable"
	// RemoteUpstream: the worker answered with a non-200 status.
	RemoteUpstream RemoteFailureKind = "upstream"
	// RemoteProtocol: 200 but the body is not the JSON we expect.
	RemoteProtocol RemoteFailureKind = "protocol"
)

// RemoteFailure classifies a failed call to the transcription worker.
type RemoteFailure struct {
	Kind       RemoteFailureKind
	StatusCode int    // upstream HTTP status when Kind == RemoteUpstream
	Body       string // upstream body excerpt for diagnostics
	Err        error
}

func (e *RemoteFailure) Error() string {
	switch e.Kind {
	case RemoteUpstream:
		return fmt.Sprintf("transcription worker returned %d: %s", e.StatusCode, e.Body)
	case RemoteProtocol:
		return fmt.Sprintf("transcription worker sent malformed response: %s", e.Body)
	default:
		return fmt.Sprintf("transcription worker unreachable: %v", e.Err)
	}
}

func (e *RemoteFailure) Unwrap() error { return e.Err }

// AsRemoteFailure returns the RemoteFailure in err's chain, if any.
func AsRemoteFailure(err error) (*RemoteFailure, bool) {
	var rf *RemoteFailure
	if errors.As(err, &rf) {
		return rf, true
	}
	return nil, false
}

// PublishError wraps a blob-store upload failure.
type PublishError struct {
	Filename string
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish %s: %v", e.Filename, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
