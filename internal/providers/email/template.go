package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

const (
	TemplateDocumentSent      = "document_sent"
	TemplateReminderBeforeDue = "reminder_before_due"
	TemplateReminderAfterDue  = "reminder_after_due"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// TemplateData feeds every transactional template. Subject overrides the
// template default when set.
type TemplateData struct {
	Subject        string
	ReplyTo        string
	BusinessName   string
	CustomerName   string
	DocumentKind   string
	DocumentNumber string
	Total          string
	DueDate        string
	Days           int
	PublicURL      string
}

// Render executes templateName and builds the message for to.
func Render(to []string, templateName string, data TemplateData) (Message, error) {
	if len(to) == 0 {
		return Message{}, ErrNoRecipients
	}
	tpl := templates.Lookup(templateName + ".html")
	if tpl == nil {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateName)
	}
	if strings.TrimSpace(data.BusinessName) == "" {
		data.BusinessName = "Barix Billing"
	}

	var body bytes.Buffer
	if err := tpl.Execute(&body, data); err != nil {
		return Message{}, fmt.Errorf("execute template %s: %w", templateName, err)
	}

	subject := strings.TrimSpace(data.Subject)
	if subject == "" {
		subject = defaultSubject(templateName, data)
	}

	return Message{
		To:      to,
		ReplyTo: data.ReplyTo,
		Subject: subject,
		HTML:    body.String(),
	}, nil
}

func defaultSubject(templateName string, data TemplateData) string {
	switch templateName {
	case TemplateDocumentSent:
		return fmt.Sprintf("%s %s from %s", kindLabel(data.DocumentKind), data.DocumentNumber, data.BusinessName)
	case TemplateReminderBeforeDue:
		return fmt.Sprintf("Reminder: invoice %s is due %s", data.DocumentNumber, data.DueDate)
	case TemplateReminderAfterDue:
		return fmt.Sprintf("Past due: invoice %s", data.DocumentNumber)
	default:
		return "Notification from " + data.BusinessName
	}
}

func kindLabel(kind string) string {
	if strings.EqualFold(kind, "estimate") {
		return "Estimate"
	}
	return "Invoice"
}
