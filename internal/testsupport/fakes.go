// Package testsupport holds in-memory doubles for the relay's ports, shared
// by the domain and delivery tests.
package testsupport

import (
	"context"
	"sync"
	"time"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/ports"
)

// FakeRepo is an in-memory TranscriptionRepository.
type FakeRepo struct {
	mu       sync.Mutex
	records  map[string]*models.TranscriptionRecord
	endpoint string

	Calls []string // method names, in order
}

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{records: make(map[string]*models.TranscriptionRecord)}
}

func (r *FakeRepo) record(filename string) *models.TranscriptionRecord {
	rec, ok := r.records[filename]
	if !ok {
		rec = &models.TranscriptionRecord{Filename: filename, CreatedAt: time.Now()}
		r.records[filename] = rec
	}
	return rec
}

func (r *FakeRepo) CreatePending(_ context.Context, filename, jobID, language string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "CreatePending")

	rec := r.record(filename)
	rec.JobID = jobID
	rec.Language = language
	rec.Text = ""
	rec.Progress = 0
	rec.Status = models.StatusPending
	rec.Error = ""
	rec.UpdatedAt = time.Now()
	return nil
}

func (r *FakeRepo) SetInProgress(_ context.Context, filename string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "SetInProgress")
	r.record(filename).Status = models.StatusInProgress
	return nil
}

func (r *FakeRepo) SetProgress(_ context.Context, filename string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "SetProgress")

	rec := r.record(filename)
	if progress > rec.Progress {
		rec.Progress = progress
	}
	return nil
}

func (r *FakeRepo) Complete(_ context.Context, filename, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "Complete")

	rec := r.record(filename)
	rec.Text = text
	rec.Progress = 100
	rec.Status = models.StatusComplete
	rec.Error = ""
	return nil
}

func (r *FakeRepo) Fail(_ context.Context, filename, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "Fail")

	rec := r.record(filename)
	rec.Status = models.StatusFailed
	rec.Error = reason
	return nil
}

func (r *FakeRepo) Get(_ context.Context, filename string) (*models.TranscriptionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[filename]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *FakeRepo) WorkerEndpoint(_ context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpoint, nil
}

func (r *FakeRepo) SetWorkerEndpoint(_ context.Context, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, "SetWorkerEndpoint")
	r.endpoint = url
	return nil
}

// Endpoint returns the stored worker endpoint override.
func (r *FakeRepo) Endpoint() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpoint
}

// CallCount reports how many repository mutations were recorded.
func (r *FakeRepo) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}

// WaitForStatus polls until the record reaches the wanted status or the
// deadline passes; returns the final record either way.
func (r *FakeRepo) WaitForStatus(filename string, want models.Status, timeout time.Duration) (*models.TranscriptionRecord, bool) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		rec, err := r.Get(context.Background(), filename)
		if err == nil && rec.Status == want {
			return rec, true
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec, _ := r.Get(context.Background(), filename)
	return rec, false
}

// FakeRemote is a canned TranscriberClient.
type FakeRemote struct {
	mu sync.Mutex

	Text string
	Err  error

	Requests []ports.TranscribeRequest
}

func (f *FakeRemote) Transcribe(_ context.Context, req ports.TranscribeRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Requests = append(f.Requests, req)
	if f.Err != nil {
		return "", f.Err
	}
	return f.Text, nil
}

func (f *FakeRemote) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Requests)
}

func (f *FakeRemote) LastRequest() (ports.TranscribeRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Requests) == 0 {
		return ports.TranscribeRequest{}, false
	}
	return f.Requests[len(f.Requests)-1], true
}

// FakePublisher is a canned BlobPublisher.
type FakePublisher struct {
	mu sync.Mutex

	URL string
	Err error

	Published []string // filenames, in order
}

func (f *FakePublisher) Publish(_ context.Context, _, filename string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Published = append(f.Published, filename)
	if f.Err != nil {
		return "", f.Err
	}
	return f.URL + "/audio/" + filename, nil
}
