package email

import (
	"context"
	"errors"
)

var (
	ErrNoRecipients    = errors.New("email_no_recipients")
	ErrUnknownTemplate = errors.New("email_unknown_template")
)

// Message is a rendered HTML email.
type Message struct {
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
	SendTemplate(ctx context.Context, to []string, templateName string, data TemplateData) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	return ctx.Err()
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, data TemplateData) error {
	msg, err := Render(to, templateName, data)
	if err != nil {
		return err
	}
	return p.Send(ctx, msg)
}
