package domain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/ports"
	"github.com/google/uuid"
)

var ErrQueueFull = errors.New("transcription queue is full")

type job struct {
	id       string
	filename string
	path     string
	language string
}

// TranscribeService owns the relay workflow: Submit registers a pending
// record and enqueues the job, workers forward audio to the remote worker
// and write the outcome back to the store. The scratch file is removed when
// the job finishes, whatever branch it took.
type TranscribeService struct {
	repo   ports.TranscriptionRepository
	remote ports.TranscriberClient
	blob   ports.BlobPublisher // nil unless forwarding by URL

	endpoint     string // default worker endpoint, store row wins
	forwardByURL bool

	jobs   chan job
	events chan models.ProgressEvent

	wg sync.WaitGroup
}

func NewTranscribeService(
	repo ports.TranscriptionRepository,
	remote ports.TranscriberClient,
	blob ports.BlobPublisher,
	endpoint string,
	forwardByURL bool,
) *TranscribeService {
	return &TranscribeService{
		repo:         repo,
		remote:       remote,
		blob:         blob,
		endpoint:     endpoint,
		forwardByURL: forwardByURL,
		jobs:         make(chan job, 64),
		events:       make(chan models.ProgressEvent, 100),
	}
}

func (s *TranscribeService) Events() <-chan models.ProgressEvent { return s.events }

// Start launches the worker pool. Workers drain the queue until ctx is
// cancelled; Wait blocks until they have all returned.
func (s *TranscribeService) Start(ctx context.Context, workers int) {
	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go func(n int) {
			defer s.wg.Done()
			for {
				select {
				case <-ctx.Done():
					log.Printf("[WORKER][STOP] n=%d", n)
					return
				case j := <-s.jobs:
					s.process(ctx, j)
				}
			}
		}(i)
	}
}

// Wait blocks until the workers have returned, then disposes of jobs still
// buffered in the queue: their scratch files are removed and their records
// marked failed so nothing stays pending forever.
func (s *TranscribeService) Wait() {
	s.wg.Wait()

	for {
		select {
		case j := <-s.jobs:
			log.Printf("[JOB][ABANDON] file=%s job=%s", j.filename, j.id)
			if err := s.repo.Fail(context.Background(), j.filename, "relay shut down before transcription started"); err != nil {
				log.Printf("[JOB][DB-FAIL] file=%s err=%v", j.filename, err)
			}
			_ = os.Remove(j.path)
		default:
			return
		}
	}
}

func (s *TranscribeService) Submit(ctx context.Context, filename, localPath, language string) (string, error) {
	if language == "" {
		language = "auto"
	}

	jobID := uuid.NewString()

	if err := s.repo.CreatePending(ctx, filename, jobID, language); err != nil {
		_ = os.Remove(localPath)
		return "", fmt.Errorf("create pending record: %w", err)
	}

	j := job{id: jobID, filename: filename, path: localPath, language: language}

	select {
	case s.jobs <- j:
	default:
		_ = s.repo.Fail(ctx, filename, ErrQueueFull.Error())
		_ = os.Remove(localPath)
		return "", ErrQueueFull
	}

	s.emit(models.ProgressEvent{
		Filename: filename,
		JobID:    jobID,
		Status:   models.StatusPending,
		Progress: models.ProgressCreated,
	})

	log.Printf("[SUBMIT] file=%s job=%s lang=%s", filename, jobID, language)
	return jobID, nil
}

func (s *TranscribeService) process(ctx context.Context, j job) {
	start := time.Now()
	defer func() { _ = os.Remove(j.path) }()

	log.Printf("[JOB][START] file=%s job=%s", j.filename, j.id)

	if err := s.repo.SetInProgress(ctx, j.filename); err != nil {
		log.Printf("[JOB][DB-FAIL] file=%s err=%v", j.filename, err)
		return
	}
	s.progress(ctx, j, models.ProgressReceived)

	req := ports.TranscribeRequest{
		Endpoint: s.resolveEndpoint(ctx),
		Language: j.language,
	}

	if s.forwardByURL {
		url, err := s.blob.Publish(ctx, j.path, j.filename)
		if err != nil {
			s.fail(ctx, j, err)
			return
		}
		req.FileURL = url
		s.progress(ctx, j, models.ProgressPublished)
	} else {
		req.FilePath = j.path
	}

	s.progress(ctx, j, models.ProgressForwarded)

	text, err := s.remote.Transcribe(ctx, req)
	if err != nil {
		s.fail(ctx, j, err)
		return
	}

	if err := s.repo.Complete(ctx, j.filename, text); err != nil {
		log.Printf("[JOB][DB-FAIL] file=%s err=%v", j.filename, err)
		return
	}

	s.emit(models.ProgressEvent{
		Filename: j.filename,
		JobID:    j.id,
		Status:   models.StatusComplete,
		Progress: models.ProgressComplete,
		Text:     text,
	})

	log.Printf("[JOB][DONE] file=%s job=%s dur=%s", j.filename, j.id, time.Since(start))
}

// resolveEndpoint polls the store for a worker override before every
// forward, so the backend can be swapped without redeploying the relay.
func (s *TranscribeService) resolveEndpoint(ctx context.Context) string {
	url, err := s.repo.WorkerEndpoint(ctx)
	if err != nil {
		log.Printf("[ENDPOINT][FALLBACK] err=%v", err)
		return s.endpoint
	}
	if url == "" {
		return s.endpoint
	}
	return url
}

func (s *TranscribeService) progress(ctx context.Context, j job, pct int) {
	if err := s.repo.SetProgress(ctx, j.filename, pct); err != nil {
		log.Printf("[JOB][PROGRESS-FAIL] file=%s err=%v", j.filename, err)
	}
	s.emit(models.ProgressEvent{
		Filename: j.filename,
		JobID:    j.id,
		Status:   models.StatusInProgress,
		Progress: pct,
	})
}

func (s *TranscribeService) fail(ctx context.Context, j job, cause error) {
	log.Printf("[JOB][FAIL] file=%s job=%s err=%v", j.filename, j.id, cause)

	if err := s.repo.Fail(ctx, j.filename, cause.Error()); err != nil {
		log.Printf("[JOB][DB-FAIL] file=%s err=%v", j.filename, err)
	}
	s.emit(models.ProgressEvent{
		Filename: j.filename,
		JobID:    j.id,
		Status:   models.StatusFailed,
		Error:    cause.Error(),
	})
}

// emit never blocks a worker: slow websocket readers drop events, the store
// remains the source of truth.
func (s *TranscribeService) emit(ev models.ProgressEvent) {
	select {
	case s.events <- ev:
	default:
		log.Printf("[EVENT][DROP] file=%s progress=%d", ev.Filename, ev.Progress)
	}
}
