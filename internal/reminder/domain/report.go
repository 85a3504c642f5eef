package domain

// Skip reasons reported for invoices that were evaluated but not sent.
const (
	SkipNotDue            = "not_due"
	SkipRemindersDisabled = "reminders_disabled"
	SkipAlreadyLogged     = "already_logged"
)

// Warnings attached to results that were sent.
const (
	WarningSentNotLogged          = "sent_not_logged"
	WarningConcurrentSendDetected = "concurrent_send_detected"
)

type DueWindow struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Result is the per-invoice outcome of a dispatch run.
type Result struct {
	InvoiceID    string       `json:"invoice_id"`
	OwnerID      string       `json:"owner_id"`
	ReminderType ReminderType `json:"reminder_type,omitempty"`
	OK           bool         `json:"ok"`
	Skipped      string       `json:"skipped,omitempty"`
	Sent         bool         `json:"sent,omitempty"`
	Error        string       `json:"error,omitempty"`
	Warning      string       `json:"warning,omitempty"`
}

// Report aggregates a full sweep. Attempted counts send attempts, not
// candidates.
type Report struct {
	OK        bool      `json:"ok"`
	Today     string    `json:"today"`
	DueWindow DueWindow `json:"due_window"`
	Attempted int       `json:"attempted"`
	Sent      int       `json:"sent"`
	Results   []Result  `json:"results"`
}
