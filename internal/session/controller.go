// Package session drives one end-to-end send session: validate the
// operator's input, filter recipients against the sent-log, wait for the
// scheduled start, then send one message per recipient under the daily
// cap, recording every outcome.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/resumeblast/internal/mailer"
	"github.com/resumeblast/internal/model"
	"github.com/resumeblast/internal/render"
	"github.com/resumeblast/internal/schedule"
	"github.com/resumeblast/internal/sentlog"
)

// Validation errors. All of them abort the session before any side
// effect and are shown to the operator as-is.
var (
	ErrNoAttachments      = errors.New("no resume attached")
	ErrMissingCredentials = errors.New("missing sender credentials")
	ErrEmptyBody          = errors.New("email body template is empty")
	ErrNoRecipients       = errors.New("recipient list is empty")
	ErrInvalidLimit       = errors.New("daily limit must be at least 1")
)

// DialFunc opens an authenticated transport session with the operator's
// credentials. The connection parameters come from server config; the
// credentials from the session input.
type DialFunc func(username, password string) (mailer.Session, error)

// Config is the immutable input of one session.
type Config struct {
	SenderEmail     string
	Password        string
	Recipients      []model.Recipient
	DailyLimit      int
	Delay           time.Duration
	SubjectTemplate string
	BodyTemplate    string
	Attachments     []model.Attachment
	Schedule        schedule.Spec
}

// Controller runs send sessions. It is single-flight by design: one
// operator, one session at a time.
type Controller struct {
	store   sentlog.Store
	dial    DialFunc
	logger  *slog.Logger
	tracker *Tracker

	// test seams
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(store sentlog.Store, dial DialFunc, logger *slog.Logger, tracker *Tracker) *Controller {
	return &Controller{
		store:   store,
		dial:    dial,
		logger:  logger,
		tracker: tracker,
		now:     time.Now,
		sleep:   schedule.Sleep,
	}
}

// Validate checks the session input. It is called again inside Run, but
// the HTTP boundary calls it first so input errors come back
// synchronously before a session goroutine starts.
func (c *Controller) Validate(cfg Config) error {
	if len(cfg.Attachments) == 0 {
		return ErrNoAttachments
	}
	if cfg.SenderEmail == "" || cfg.Password == "" {
		return ErrMissingCredentials
	}
	if strings.TrimSpace(cfg.BodyTemplate) == "" {
		return ErrEmptyBody
	}
	if len(cfg.Recipients) == 0 {
		return ErrNoRecipients
	}
	if cfg.DailyLimit < 1 {
		return ErrInvalidLimit
	}
	if !cfg.Schedule.Immediate() {
		if _, err := schedule.Target(cfg.Schedule); err != nil {
			return err
		}
	}
	return nil
}

// Run executes the session. The summary is non-nil exactly when the
// Sending phase was entered; validation and connection failures return
// only an error.
func (c *Controller) Run(ctx context.Context, cfg Config) (*model.Summary, error) {
	id := uuid.NewString()
	c.tracker.Begin(id)

	c.tracker.SetState(StateValidating)
	if err := c.Validate(cfg); err != nil {
		c.tracker.Fail(err)
		return nil, err
	}

	today := c.now()
	sent, err := c.store.SentOn(ctx, today)
	if err != nil {
		err = fmt.Errorf("read sent-log: %w", err)
		c.tracker.Fail(err)
		return nil, err
	}
	sendable := sentlog.FilterUnsent(cfg.Recipients, sent)
	c.tracker.SetTotal(len(sendable))
	c.logger.Info("session validated",
		"session", id,
		"recipients", len(cfg.Recipients),
		"sendable", len(sendable),
		"already_sent_today", len(cfg.Recipients)-len(sendable))

	wait, err := schedule.Wait(cfg.Schedule, c.now())
	if err != nil {
		c.tracker.Fail(err)
		return nil, err
	}

	c.tracker.SetState(StateWaiting)
	if wait > 0 {
		c.logger.Info("waiting for scheduled start", "session", id, "wait", wait)
	}
	if err := c.sleep(ctx, wait); err != nil {
		c.tracker.Fail(err)
		return nil, err
	}

	c.tracker.SetState(StateConnecting)
	transport, err := c.dial(cfg.SenderEmail, cfg.Password)
	if err != nil {
		err = fmt.Errorf("smtp connection failed: %w", err)
		c.tracker.Fail(err)
		return nil, err
	}

	summary := c.sendAll(ctx, cfg, sendable, transport, id)

	c.tracker.SetState(StateDraining)
	if err := transport.Close(); err != nil {
		c.logger.Warn("transport close failed", "session", id, "err", err)
	}

	c.tracker.Finish(summary)
	c.logger.Info("session finished",
		"session", id, "sent", summary.Sent, "failed", summary.Failed)
	return summary, nil
}

// sendAll is the Sending phase. The daily cap counts successes only and
// is re-read from the store before every send, so a second same-day
// session cannot overspend the quota from a stale snapshot.
func (c *Controller) sendAll(ctx context.Context, cfg Config, sendable []model.Recipient, transport mailer.Session, id string) *model.Summary {
	c.tracker.SetState(StateSending)
	summary := &model.Summary{SessionID: id}

	base, err := c.store.CountOn(ctx, c.now())
	if err != nil {
		c.logger.Warn("sent-log count failed, assuming zero", "session", id, "err", err)
		base = 0
	}

	for _, r := range sendable {
		count, err := c.store.CountOn(ctx, c.now())
		if err != nil {
			// Store unreadable mid-loop: fall back to the session-local view.
			count = base + summary.Sent
			c.logger.Warn("sent-log recount failed", "session", id, "err", err)
		}
		if count >= cfg.DailyLimit {
			c.logger.Info("daily limit reached, deferring remaining recipients",
				"session", id, "limit", cfg.DailyLimit, "deferred", len(sendable)-len(summary.Outcomes))
			break
		}

		subject, body := render.Render(cfg.SubjectTemplate, cfg.BodyTemplate, r, cfg.SenderEmail)
		if err := transport.Send(r.Email, subject, body, cfg.Attachments); err != nil {
			summary.Failed++
			summary.Outcomes = append(summary.Outcomes, model.Outcome{Recipient: r, Err: err.Error()})
			c.tracker.RecordFailed()
			c.logger.Warn("send failed", "session", id, "to", r.Email, "err", err)
		} else {
			rec := model.SentRecord{Email: r.Email, Company: r.Company, DateSent: c.now()}
			if err := c.store.Append(ctx, rec); err != nil {
				// The mail is out; losing the record risks a duplicate
				// tomorrow, not a phantom send today.
				c.logger.Error("sent-log append failed", "session", id, "to", r.Email, "err", err)
			}
			summary.Sent++
			summary.Outcomes = append(summary.Outcomes, model.Outcome{Recipient: r})
			c.tracker.RecordSent()
			c.logger.Info("sent", "session", id, "to", r.Email, "company", r.Company)
		}

		// Fixed pacing delay, applied after every send including the last.
		if err := c.sleep(ctx, cfg.Delay); err != nil {
			c.logger.Warn("session interrupted during delay", "session", id, "err", err)
			break
		}
	}
	return summary
}
