// Package mailer is the SMTP transport boundary. A Dialer opens one
// authenticated STARTTLS session against the submission endpoint; the
// session then carries one message per recipient until closed.
package mailer

import (
	"bytes"
	"fmt"
	"time"

	mail "gopkg.in/mail.v2"

	"github.com/resumeblast/internal/model"
)

// Config holds the connection parameters for one send session.
// Credentials live only here, in memory, for the session's duration.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Session is an open, authenticated transport connection.
type Session interface {
	Send(to, subject, body string, attachments []model.Attachment) error
	Close() error
}

// Dialer opens SMTP sessions.
type Dialer struct {
	cfg Config
	d   *mail.Dialer
}

// New builds a Dialer for the given relay. STARTTLS is mandatory: the
// connection is refused rather than downgraded to plaintext.
func New(cfg Config) *Dialer {
	d := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.Timeout = 30 * time.Second
	return &Dialer{cfg: cfg, d: d}
}

// Dial connects, upgrades to TLS, and authenticates. A failure here is
// session-fatal for the caller; no message has been attempted yet.
func (m *Dialer) Dial() (Session, error) {
	sc, err := m.d.Dial()
	if err != nil {
		return nil, fmt.Errorf("smtp connect %s:%d: %w", m.cfg.Host, m.cfg.Port, err)
	}
	return &smtpSession{sc: sc, from: m.cfg.From}, nil
}

type smtpSession struct {
	sc   mail.SendCloser
	from string
}

// Send transmits one plain-text message with every attachment to a
// single recipient over the already-open session.
func (s *smtpSession) Send(to, subject, body string, attachments []model.Attachment) error {
	msg := mail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)
	for _, att := range attachments {
		msg.AttachReader(att.Filename, bytes.NewReader(att.Content))
	}
	if err := mail.Send(s.sc, msg); err != nil {
		return fmt.Errorf("send to %s: %w", to, err)
	}
	return nil
}

func (s *smtpSession) Close() error {
	return s.sc.Close()
}
