package handler

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/resumeblast/internal/model"
	"github.com/resumeblast/internal/recipient"
	"github.com/resumeblast/internal/schedule"
	"github.com/resumeblast/internal/session"
)

const (
	maxDelaySeconds = 10
	maxDailyLimit   = 200
)

// SessionHandler owns the operator-facing session endpoints: the form
// page, session start, progress polling, and the failure export.
type SessionHandler struct {
	BaseHandler
	controller   *session.Controller
	tracker      *session.Tracker
	templates    *template.Template
	operatorZone string
	maxUploadMB  int
}

func NewSessionHandler(logger *slog.Logger, controller *session.Controller, tracker *session.Tracker, templates *template.Template, operatorZone string, maxUploadMB int) *SessionHandler {
	return &SessionHandler{
		BaseHandler:  BaseHandler{Logger: logger},
		controller:   controller,
		tracker:      tracker,
		templates:    templates,
		operatorZone: operatorZone,
		maxUploadMB:  maxUploadMB,
	}
}

// Form renders the operator input page.
func (h *SessionHandler) Form(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{
		"Zones":        schedule.Zones,
		"DefaultDate":  time.Now().Format("2006-01-02"),
		"DefaultLimit": 50,
		"DefaultDelay": 2,
	}
	if err := h.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		h.serverErrorResponse(w, r, err)
	}
}

// Start validates the submitted inputs and launches the session in the
// background. Input errors come back synchronously; progress is polled
// via Status.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.tracker.Running() {
		h.errorResponse(w, r, http.StatusConflict, "a session is already running")
		return
	}

	maxSize := int64(h.maxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	if err := r.ParseMultipartForm(maxSize); err != nil {
		h.errorResponse(w, r, http.StatusBadRequest, "form too large or invalid")
		return
	}
	defer r.MultipartForm.RemoveAll()

	cfg, warnings, err := h.buildConfig(r)
	if err != nil {
		h.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := h.controller.Validate(*cfg); err != nil {
		h.errorResponse(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	// Detached from the request context: the session outlives the
	// response and is only stopped by process termination.
	go func() {
		if _, err := h.controller.Run(context.Background(), *cfg); err != nil {
			h.Logger.Error("session failed", "err", err)
		}
	}()

	h.writeJSON(w, http.StatusAccepted, envelope{
		"status":   "started",
		"warnings": warnings,
	}, nil)
}

// Status reports the running (or last finished) session.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	env := envelope{"session": h.tracker.Status()}
	if summary := h.tracker.Summary(); summary != nil {
		env["summary"] = summaryView(summary)
	}
	h.writeJSON(w, http.StatusOK, env, nil)
}

// Failures serves the failed-recipients CSV for the last session.
func (h *SessionHandler) Failures(w http.ResponseWriter, r *http.Request) {
	summary := h.tracker.Summary()
	if summary == nil || summary.Failed == 0 {
		h.errorResponse(w, r, http.StatusNotFound, "no failures to export")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="failed_emails.csv"`)
	if err := session.ExportFailures(w, summary.Outcomes); err != nil {
		h.logError(r, err)
	}
}

func (h *SessionHandler) buildConfig(r *http.Request) (*session.Config, []string, error) {
	attachments, err := h.readAttachments(r)
	if err != nil {
		return nil, nil, err
	}

	var tabular []model.Recipient
	if files := r.MultipartForm.File["recipients_csv"]; len(files) > 0 {
		f, err := files[0].Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open recipient csv: %w", err)
		}
		defer f.Close()
		tabular, err = recipient.ParseCSV(f)
		if err != nil {
			return nil, nil, err
		}
	}

	recipients, skipped, err := recipient.Build(r.FormValue("recipients"), tabular)
	if err != nil && !errors.Is(err, recipient.ErrNoRecipients) {
		return nil, nil, err
	}
	var warnings []string
	for _, s := range skipped {
		warnings = append(warnings, "skipped "+s.String())
	}

	delay, err := boundedInt(r.FormValue("delay_seconds"), 0, maxDelaySeconds, "delay")
	if err != nil {
		return nil, nil, err
	}
	limit, err := boundedInt(r.FormValue("daily_limit"), 1, maxDailyLimit, "daily limit")
	if err != nil {
		return nil, nil, err
	}

	subject := strings.TrimSpace(r.FormValue("subject_template"))
	if subject == "" {
		subject = "Application"
	}

	cfg := &session.Config{
		SenderEmail:     strings.TrimSpace(r.FormValue("sender_email")),
		Password:        r.FormValue("password"),
		Recipients:      recipients,
		DailyLimit:      limit,
		Delay:           time.Duration(delay) * time.Second,
		SubjectTemplate: subject,
		BodyTemplate:    r.FormValue("body_template"),
		Attachments:     attachments,
		Schedule: schedule.Spec{
			TargetZone:   r.FormValue("target_zone"),
			TargetDate:   r.FormValue("target_date"),
			TargetTime:   r.FormValue("target_time"),
			OperatorZone: h.operatorZone,
		},
	}
	return cfg, warnings, nil
}

func (h *SessionHandler) readAttachments(r *http.Request) ([]model.Attachment, error) {
	var attachments []model.Attachment
	for _, fh := range r.MultipartForm.File["resumes"] {
		if !strings.EqualFold(filepath.Ext(fh.Filename), ".pdf") {
			return nil, fmt.Errorf("resume %q must be a PDF", fh.Filename)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, fmt.Errorf("open upload %q: %w", fh.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("read upload %q: %w", fh.Filename, err)
		}
		attachments = append(attachments, model.Attachment{
			Filename:    fh.Filename,
			ContentType: "application/pdf",
			Content:     data,
		})
	}
	return attachments, nil
}

func boundedInt(raw string, min, max int, field string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", field)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("%s must be between %d and %d", field, min, max)
	}
	return n, nil
}

type outcomeView struct {
	Email   string `json:"email"`
	Company string `json:"company"`
	Error   string `json:"error,omitempty"`
}

func summaryView(s *model.Summary) envelope {
	failures := make([]outcomeView, 0)
	for _, o := range s.Failures() {
		failures = append(failures, outcomeView{
			Email:   o.Recipient.Email,
			Company: o.Recipient.Company,
			Error:   o.Err,
		})
	}
	return envelope{
		"session_id": s.SessionID,
		"sent":       s.Sent,
		"failed":     s.Failed,
		"failures":   failures,
	}
}
