package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/ports"
)

const (
	maxBodyExcerpt = 512
	retryBackoff   = 2 * time.Second
)

// WhisperClient forwards audio to a remote whisper worker over plain HTTP.
// The worker exposes POST {endpoint}/transcribe and answers 200 with a JSON
// body carrying a "transcription" field.
type WhisperClient struct {
	client *http.Client
}

// Transcription is a pointer so a present-but-empty field (silent audio)
// is distinguishable from a missing one (wrong protocol).
type workerResponse struct {
	Transcription *string `json:"transcription"`
	Error         string  `json:"error"`
}

func NewWhisperClient(timeout time.Duration) ports.TranscriberClient {
	return &WhisperClient{
		client: &http.Client{Timeout: timeout},
	}
}

func (c *WhisperClient) Transcribe(ctx context.Context, req ports.TranscribeRequest) (string, error) {
	text, err := c.once(ctx, req)
	if err == nil {
		return text, nil
	}

	// Single retry, transport failures only. A non-200 may be a permanent
	// rejection and is never retried.
	if rf, ok := models.AsRemoteFailure(err); ok && rf.Kind == models.RemoteUnreachable {
		log.Printf("[REMOTE][RETRY] endpoint=%s err=%v", req.Endpoint, err)

		select {
		case <-ctx.Done():
			return "", err
		case <-time.After(retryBackoff):
		}

		return c.once(ctx, req)
	}

	return "", err
}

func (c *WhisperClient) once(ctx context.Context, req ports.TranscribeRequest) (string, error) {
	var (
		httpReq *http.Request
		err     error
	)

	endpoint := strings.TrimRight(req.Endpoint, "/") + "/transcribe"

	if req.FileURL != "" {
		httpReq, err = c.urlRequest(ctx, endpoint, req)
	} else {
		httpReq, err = c.multipartRequest(ctx, endpoint, req)
	}
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &models.RemoteFailure{Kind: models.RemoteUnreachable, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", &models.RemoteFailure{
			Kind:       models.RemoteUpstream,
			StatusCode: resp.StatusCode,
			Body:       trim(string(raw), maxBodyExcerpt),
		}
	}

	var parsed workerResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &models.RemoteFailure{
			Kind: models.RemoteProtocol,
			Body: trim(string(raw), maxBodyExcerpt),
			Err:  err,
		}
	}

	if parsed.Error != "" {
		return "", &models.RemoteFailure{
			Kind:       models.RemoteUpstream,
			StatusCode: resp.StatusCode,
			Body:       parsed.Error,
		}
	}
	if parsed.Transcription == nil {
		return "", &models.RemoteFailure{
			Kind: models.RemoteProtocol,
			Body: trim(string(raw), maxBodyExcerpt),
		}
	}

	return *parsed.Transcription, nil
}

// multipartRequest rebuilds the body from the scratch file on every attempt
// so a retry never sends a drained reader.
func (c *WhisperClient) multipartRequest(ctx context.Context, endpoint string, req ports.TranscribeRequest) (*http.Request, error) {
	f, err := os.Open(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(req.FilePath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy upload: %w", err)
	}
	_ = writer.WriteField("language", req.Language)
	if err := writer.Close(); err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	return httpReq, nil
}

func (c *WhisperClient) urlRequest(ctx context.Context, endpoint string, req ports.TranscribeRequest) (*http.Request, error) {
	form := url.Values{}
	form.Set("url", req.FileURL)
	form.Set("language", req.Language)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return httpReq, nil
}
