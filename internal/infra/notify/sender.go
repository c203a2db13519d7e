package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"rentbox/internal/app/policies"
)

var (
	ErrUnknownTemplate = errors.New("notify: unknown template")
	ErrRecipient       = errors.New("notify: recipient is required")
)

// Mailer delivers one rendered message.
type Mailer interface {
	Deliver(ctx context.Context, to string, msg Message) error
}

// Archive stores rendered receipts. s3.Client satisfies it.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// Sender renders templates and hands them to a Mailer. Archive is optional.
type Sender struct {
	Renderer *Renderer
	Mailer   Mailer
	Archive  Archive
	Logger   *slog.Logger
}

func (s *Sender) Send(ctx context.Context, to string, template string, data any) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrRecipient
	}
	if s.Renderer == nil || s.Mailer == nil {
		return policies.ErrNotConfigured
	}
	msg, err := s.Renderer.Render(template, data)
	if err != nil {
		return err
	}
	if err := s.Mailer.Deliver(ctx, to, msg); err != nil {
		return fmt.Errorf("notify: deliver %s: %w", template, err)
	}
	if key := receiptKey(template, data); key != "" && s.Archive != nil {
		// the mail already went out; a failed archive must not trigger a resend
		if err := s.Archive.Put(ctx, key, []byte(msg.HTML), "text/html; charset=utf-8"); err != nil && s.Logger != nil {
			s.Logger.Warn("receipt archive failed", "key", key, "error", err)
		}
	}
	return nil
}

func receiptKey(template string, data any) string {
	if template != policies.TemplateReservationConfirmed {
		return ""
	}
	switch c := data.(type) {
	case policies.Confirmation:
		return "receipts/" + c.ReservationID + ".html"
	case *policies.Confirmation:
		if c != nil {
			return "receipts/" + c.ReservationID + ".html"
		}
	}
	return ""
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) Deliver(_ context.Context, to string, msg Message) error {
	if m.Logger != nil {
		m.Logger.Info("mail", "to", to, "subject", msg.Subject, "body", msg.Text)
	}
	return nil
}

var (
	_ policies.Notifier = (*Sender)(nil)
	_ Mailer            = LogMailer{}
)

// NewSender renders with the built-in templates and mails through Mailjet when credentials
// are set, otherwise through the log.
func NewSender(mj MailjetConfig, archive Archive, logger *slog.Logger) (*Sender, error) {
	renderer, err := NewRenderer()
	if err != nil {
		return nil, err
	}
	var mailer Mailer = LogMailer{Logger: logger}
	if mj.APIKey != "" {
		m, err := NewMailjetMailer(mj)
		if err != nil {
			return nil, err
		}
		mailer = m
	}
	return &Sender{Renderer: renderer, Mailer: mailer, Archive: archive, Logger: logger}, nil
}
