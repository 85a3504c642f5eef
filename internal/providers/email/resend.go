package email

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"
)

type ResendProvider struct {
	client *resend.Client
	from   string
}

func NewResend(apiKey, from string) *ResendProvider {
	return &ResendProvider{client: resend.NewClient(apiKey), from: from}
}

func (p *ResendProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	req := &resend.SendEmailRequest{
		From:    p.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		ReplyTo: msg.ReplyTo,
	}
	if _, err := p.client.Emails.SendWithContext(ctx, req); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func (p *ResendProvider) SendTemplate(ctx context.Context, to []string, templateName string, data TemplateData) error {
	msg, err := Render(to, templateName, data)
	if err != nil {
		return err
	}
	return p.Send(ctx, msg)
}
