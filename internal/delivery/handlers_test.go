package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ShimOne420/BackendAudioTranscriber/internal/domain"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/models"
	"github.com/ShimOne420/BackendAudioTranscriber/internal/testsupport"
	"github.com/Vovarama1992/go-utils/logger"
	"go.uber.org/zap"
)

func testLogger() *logger.ZapLogger {
	return logger.NewZapLogger(zap.NewNop().Sugar())
}

type submission struct {
	filename string
	path     string
	language string
}

type fakeProc struct {
	mu   sync.Mutex
	subs []submission
	err  error
}

func (f *fakeProc) Submit(_ context.Context, filename, localPath, language string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		_ = os.Remove(localPath)
		return "", f.err
	}
	f.subs = append(f.subs, submission{filename: filename, path: localPath, language: language})
	return "job-1", nil
}

func (f *fakeProc) Events() <-chan models.ProgressEvent { return nil }

func (f *fakeProc) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeProc) last() (submission, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subs) == 0 {
		return submission{}, false
	}
	return f.subs[len(f.subs)-1], true
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatal(err)
		}
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	if err := writer.Close(); err != nil {
		t.Fatal(err)
	}

	return &buf, writer.FormDataContentType()
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return payload
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatal(err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// ---------------------------------------------------------------- login

func TestLoginValidCode(t *testing.T) {
	h := NewAuthHandler(domain.NewAccessService([]string{"abc123"}), testLogger())

	form := url.Values{"code": {"abc123"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := decodeJSON(t, rec)["status"]; got != "success" {
		t.Fatalf("status field = %v", got)
	}
}

func TestLoginInvalidCode(t *testing.T) {
	h := NewAuthHandler(domain.NewAccessService([]string{"abc123"}), testLogger())

	form := url.Values{"code": {"wrong"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.Login(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if got := decodeJSON(t, rec)["detail"]; got != "Invalid access code" {
		t.Fatalf("detail = %v", got)
	}
}

// ---------------------------------------------------------------- transcribe

func newTranscribeHandler(t *testing.T, proc *fakeProc, repo *testsupport.FakeRepo) (*TranscribeHandler, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "uploads")
	access := domain.NewAccessService([]string{"abc123"})
	return NewTranscribeHandler(access, proc, repo, dir, testLogger()), dir
}

func postTranscribe(h *TranscribeHandler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.Transcribe(rec, req)
	return rec
}

func TestTranscribeInvalidCodeShortCircuits(t *testing.T) {
	proc := &fakeProc{}
	repo := testsupport.NewFakeRepo()
	h, dir := newTranscribeHandler(t, proc, repo)

	body, ct := multipartBody(t, "speech.wav", []byte("audio"), map[string]string{
		"code": "wrong", "language": "it",
	})
	rec := postTranscribe(h, body, ct)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if proc.count() != 0 {
		t.Fatal("processor called despite denied access")
	}
	if repo.CallCount() != 0 {
		t.Fatal("store mutated despite denied access")
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Fatalf("denied request left files behind: %v", names)
	}
}

func TestTranscribeEmptyUpload(t *testing.T) {
	proc := &fakeProc{}
	h, dir := newTranscribeHandler(t, proc, testsupport.NewFakeRepo())

	body, ct := multipartBody(t, "empty.wav", nil, map[string]string{"code": "abc123"})
	rec := postTranscribe(h, body, ct)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeJSON(t, rec)["error"]; got != "uploaded file is empty" {
		t.Fatalf("error = %v", got)
	}
	if proc.count() != 0 {
		t.Fatal("empty upload reached the processor")
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Fatalf("empty upload left files behind: %v", names)
	}
}

func TestTranscribeMissingFile(t *testing.T) {
	proc := &fakeProc{}
	h, _ := newTranscribeHandler(t, proc, testsupport.NewFakeRepo())

	body, ct := multipartBody(t, "", nil, map[string]string{"code": "abc123"})
	rec := postTranscribe(h, body, ct)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if proc.count() != 0 {
		t.Fatal("processor called without a file")
	}
}

func TestTranscribeAccepted(t *testing.T) {
	proc := &fakeProc{}
	h, dir := newTranscribeHandler(t, proc, testsupport.NewFakeRepo())

	body, ct := multipartBody(t, "speech.wav", []byte("audio-bytes"), map[string]string{
		"code": "abc123", "language": "it",
	})
	rec := postTranscribe(h, body, ct)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", rec.Code, rec.Body.String())
	}

	payload := decodeJSON(t, rec)
	if payload["job_id"] != "job-1" {
		t.Fatalf("job_id = %v", payload["job_id"])
	}
	if payload["file"] != "speech.wav" {
		t.Fatalf("file = %v", payload["file"])
	}

	sub, ok := proc.last()
	if !ok {
		t.Fatal("processor never called")
	}
	if sub.filename != "speech.wav" || sub.language != "it" {
		t.Fatalf("submission = %+v", sub)
	}
	if got, err := os.ReadFile(sub.path); err != nil || string(got) != "audio-bytes" {
		t.Fatalf("scratch file content = %q err=%v", got, err)
	}
	if filepath.Dir(sub.path) != dir {
		t.Fatalf("scratch file escaped upload dir: %s", sub.path)
	}
}

func TestTranscribeDefaultsLanguageToAuto(t *testing.T) {
	proc := &fakeProc{}
	h, _ := newTranscribeHandler(t, proc, testsupport.NewFakeRepo())

	body, ct := multipartBody(t, "speech.wav", []byte("x"), map[string]string{"code": "abc123"})
	postTranscribe(h, body, ct)

	sub, ok := proc.last()
	if !ok {
		t.Fatal("processor never called")
	}
	if sub.language != "auto" {
		t.Fatalf("language = %q, want auto", sub.language)
	}
}

func TestTranscribeSanitizesTraversalFilenames(t *testing.T) {
	proc := &fakeProc{}
	h, dir := newTranscribeHandler(t, proc, testsupport.NewFakeRepo())

	body, ct := multipartBody(t, "../../etc/evil.wav", []byte("x"), map[string]string{"code": "abc123"})
	rec := postTranscribe(h, body, ct)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}

	sub, _ := proc.last()
	if sub.filename != "evil.wav" {
		t.Fatalf("filename = %q, want evil.wav", sub.filename)
	}
	if sub.path != filepath.Join(dir, "evil.wav") {
		t.Fatalf("path escaped upload dir: %s", sub.path)
	}
}

func TestTranscribeQueueFull(t *testing.T) {
	proc := &fakeProc{err: domain.ErrQueueFull}
	h, dir := newTranscribeHandler(t, proc, testsupport.NewFakeRepo())

	body, ct := multipartBody(t, "speech.wav", []byte("x"), map[string]string{"code": "abc123"})
	rec := postTranscribe(h, body, ct)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if names := dirEntries(t, dir); len(names) != 0 {
		t.Fatalf("rejected upload left files behind: %v", names)
	}
}

// ---------------------------------------------------------------- endpoint

func TestSetEndpoint(t *testing.T) {
	repo := testsupport.NewFakeRepo()
	h, _ := newTranscribeHandler(t, &fakeProc{}, repo)

	form := url.Values{"code": {"abc123"}, "url": {"http://10.0.0.5:8000"}}
	req := httptest.NewRequest(http.MethodPost, "/endpoint", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.SetEndpoint(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if got := repo.Endpoint(); got != "http://10.0.0.5:8000" {
		t.Fatalf("stored endpoint = %q", got)
	}
}

func TestSetEndpointRejectsBadURL(t *testing.T) {
	repo := testsupport.NewFakeRepo()
	h, _ := newTranscribeHandler(t, &fakeProc{}, repo)

	for _, bad := range []string{"", "not-a-url", "ftp://host/x", "//missing-scheme"} {
		form := url.Values{"code": {"abc123"}, "url": {bad}}
		req := httptest.NewRequest(http.MethodPost, "/endpoint", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		h.SetEndpoint(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("url %q: status = %d, want 400", bad, rec.Code)
		}
	}
	if repo.Endpoint() != "" {
		t.Fatalf("bad url stored: %q", repo.Endpoint())
	}
}

func TestSetEndpointRequiresCode(t *testing.T) {
	repo := testsupport.NewFakeRepo()
	h, _ := newTranscribeHandler(t, &fakeProc{}, repo)

	form := url.Values{"code": {"wrong"}, "url": {"http://10.0.0.5:8000"}}
	req := httptest.NewRequest(http.MethodPost, "/endpoint", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	h.SetEndpoint(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if repo.Endpoint() != "" {
		t.Fatal("endpoint stored despite denied access")
	}
}

// ---------------------------------------------------------------- status

func TestProgressUnknownFile(t *testing.T) {
	h := NewStatusHandler(testsupport.NewFakeRepo(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/progress?file=ghost.wav", nil)
	rec := httptest.NewRecorder()
	h.Progress(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decodeJSON(t, rec)["error"]; got != "File not found" {
		t.Fatalf("error = %v", got)
	}
}

func TestGetTranscriptionUnknownFile(t *testing.T) {
	h := NewStatusHandler(testsupport.NewFakeRepo(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/get_transcription?filename=ghost.wav", nil)
	rec := httptest.NewRecorder()
	h.GetTranscription(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decodeJSON(t, rec)["error"]; got != "Transcription not found" {
		t.Fatalf("error = %v", got)
	}
}

func TestProgressReturnsStoredRecord(t *testing.T) {
	repo := testsupport.NewFakeRepo()
	ctx := context.Background()
	_ = repo.CreatePending(ctx, "speech.wav", "job-9", "it")
	_ = repo.Complete(ctx, "speech.wav", "ciao mondo")

	h := NewStatusHandler(repo, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/progress?file=speech.wav", nil)
	rec := httptest.NewRecorder()
	h.Progress(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	payload := decodeJSON(t, rec)
	if payload["progress"] != float64(100) {
		t.Fatalf("progress = %v, want 100", payload["progress"])
	}
	if payload["text"] != "ciao mondo" {
		t.Fatalf("text = %v", payload["text"])
	}
}

func TestProgressIncludesFailureReason(t *testing.T) {
	repo := testsupport.NewFakeRepo()
	ctx := context.Background()
	_ = repo.CreatePending(ctx, "bad.wav", "job-2", "auto")
	_ = repo.Fail(ctx, "bad.wav", "transcription worker returned 500: boom")

	h := NewStatusHandler(repo, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/progress?file=bad.wav", nil)
	rec := httptest.NewRecorder()
	h.Progress(rec, req)

	payload := decodeJSON(t, rec)
	if payload["status"] != string(models.StatusFailed) {
		t.Fatalf("status = %v", payload["status"])
	}
	if !strings.Contains(payload["error"].(string), "500") {
		t.Fatalf("error = %v", payload["error"])
	}
}
