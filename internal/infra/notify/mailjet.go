package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mailjet/mailjet-apiv3-go"
)

type MailjetConfig struct {
	APIKey    string
	SecretKey string
	FromEmail string
	FromName  string
}

// MailjetMailer sends through the Mailjet v3.1 send API.
type MailjetMailer struct {
	client    *mailjet.Client
	fromEmail string
	fromName  string
}

func NewMailjetMailer(cfg MailjetConfig) (*MailjetMailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("notify: mailjet credentials are required")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, errors.New("notify: sender address is required")
	}
	return &MailjetMailer{
		client:    mailjet.NewMailjetClient(cfg.APIKey, cfg.SecretKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}, nil
}

func (m *MailjetMailer) Deliver(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	messages := mailjet.MessagesV31{Info: []mailjet.InfoMessagesV31{{
		From:     &mailjet.RecipientV31{Email: m.fromEmail, Name: m.fromName},
		To:       &mailjet.RecipientsV31{mailjet.RecipientV31{Email: to}},
		Subject:  msg.Subject,
		TextPart: msg.Text,
		HTMLPart: msg.HTML,
	}}}
	res, err := m.client.SendMailV31(&messages)
	if err != nil {
		return fmt.Errorf("mailjet: %w", err)
	}
	for _, r := range res.ResultsV31 {
		if !strings.EqualFold(r.Status, "success") {
			return fmt.Errorf("mailjet: message status %q", r.Status)
		}
	}
	return nil
}

var _ Mailer = (*MailjetMailer)(nil)
