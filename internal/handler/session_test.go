package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/resumeblast/internal/mailer"
	"github.com/resumeblast/internal/model"
	"github.com/resumeblast/internal/session"
	"github.com/resumeblast/internal/web"
)

// memStore is an in-memory sentlog.Store for handler tests.
type memStore struct {
	mu      sync.Mutex
	records []model.SentRecord
}

func (s *memStore) Append(ctx context.Context, rec model.SentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memStore) CountOn(ctx context.Context, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, rec := range s.records {
		if model.SameDay(rec.DateSent, day) {
			n++
		}
	}
	return n, nil
}

func (s *memStore) SentOn(ctx context.Context, day time.Time) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sent := make(map[string]struct{})
	for _, rec := range s.records {
		if model.SameDay(rec.DateSent, day) {
			sent[rec.Email] = struct{}{}
		}
	}
	return sent, nil
}

func (s *memStore) All(ctx context.Context) ([]model.SentRecord, error) { return nil, nil }
func (s *memStore) Prune(ctx context.Context, t time.Time) (int, error) { return 0, nil }
func (s *memStore) Ping(ctx context.Context) error                      { return nil }
func (s *memStore) Close() error                                        { return nil }

type memTransport struct{}

func (memTransport) Send(to, subject, body string, atts []model.Attachment) error { return nil }
func (memTransport) Close() error                                                 { return nil }

func newTestHandler(t *testing.T) (*SessionHandler, *session.Tracker) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := session.NewTracker()
	dial := func(username, password string) (mailer.Session, error) {
		return memTransport{}, nil
	}
	controller := session.New(&memStore{}, dial, logger, tracker)
	return NewSessionHandler(logger, controller, tracker, web.Templates, "UTC", 25), tracker
}

type formFile struct {
	field, name string
	content     []byte
}

func buildForm(fields map[string]string, files ...formFile) (*bytes.Buffer, string) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	for _, f := range files {
		part, _ := writer.CreateFormFile(f.field, f.name)
		part.Write(f.content)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func validFields() map[string]string {
	return map[string]string{
		"sender_email":  "me@x.example",
		"password":      "app-password",
		"recipients":    "jobs@acme.example, Acme",
		"body_template": "Dear {company}, from {email}",
		"delay_seconds": "0",
		"daily_limit":   "5",
	}
}

func postSession(h *SessionHandler, fields map[string]string, files ...formFile) *httptest.ResponseRecorder {
	body, contentType := buildForm(fields, files...)
	req := httptest.NewRequest(http.MethodPost, "/api/session", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	h.Start(rr, req)
	return rr
}

func resumePDF() formFile {
	return formFile{field: "resumes", name: "resume.pdf", content: []byte("%PDF-1.4 fake")}
}

func waitDone(t *testing.T, tracker *session.Tracker) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if s := tracker.Status(); s.State == session.StateDone {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session did not finish in time")
}

func TestStartRunsSession(t *testing.T) {
	h, tracker := newTestHandler(t)

	rr := postSession(h, validFields(), resumePDF())
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}

	waitDone(t, tracker)
	status := tracker.Status()
	if status.Sent != 1 || status.Failed != 0 {
		t.Errorf("expected 1 sent / 0 failed, got %+v", status)
	}
}

func TestStartWithoutResume(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postSession(h, validFields())
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestStartRejectsNonPDF(t *testing.T) {
	h, _ := newTestHandler(t)

	rr := postSession(h, validFields(), formFile{field: "resumes", name: "resume.docx", content: []byte("not a pdf")})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
}

func TestStartRejectsOutOfRangeInputs(t *testing.T) {
	cases := []struct {
		name  string
		field string
		value string
	}{
		{"delay too high", "delay_seconds", "60"},
		{"delay not a number", "delay_seconds", "soon"},
		{"limit zero", "daily_limit", "0"},
		{"limit too high", "daily_limit", "10000"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h, _ := newTestHandler(t)
			fields := validFields()
			fields[tc.field] = tc.value
			rr := postSession(h, fields, resumePDF())
			if rr.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", rr.Code)
			}
		})
	}
}

func TestStartWhileRunning(t *testing.T) {
	h, tracker := newTestHandler(t)
	tracker.Begin("in-flight")
	tracker.SetState(session.StateSending)

	rr := postSession(h, validFields(), resumePDF())
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestStartReportsSkippedLines(t *testing.T) {
	h, tracker := newTestHandler(t)

	fields := validFields()
	fields["recipients"] = "jobs@acme.example, Acme\nthis line has no separator"
	rr := postSession(h, fields, resumePDF())
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp struct {
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response json: %v", err)
	}
	if len(resp.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %v", resp.Warnings)
	}
	waitDone(t, tracker)
}

func TestStatusEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rr := httptest.NewRecorder()
	h.Status(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp struct {
		Session struct {
			State string `json:"state"`
		} `json:"session"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response json: %v", err)
	}
	if resp.Session.State != "idle" {
		t.Errorf("expected idle state, got %q", resp.Session.State)
	}
}

func TestFailuresWithoutSummary(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/session/failures.csv", nil)
	rr := httptest.NewRecorder()
	h.Failures(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestFailuresDownload(t *testing.T) {
	h, tracker := newTestHandler(t)
	tracker.Begin("done-session")
	tracker.Finish(&model.Summary{
		SessionID: "done-session",
		Failed:    1,
		Outcomes: []model.Outcome{
			{Recipient: model.Recipient{Email: "bad@x.example", Company: "Acme"}, Err: "550 rejected"},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/session/failures.csv", nil)
	rr := httptest.NewRecorder()
	h.Failures(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("bad@x.example")) {
		t.Errorf("expected failure row in body:\n%s", rr.Body.String())
	}
}
