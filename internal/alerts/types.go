package alerts

import "time"

// Task type constants
const (
	TaskWelcomeEmail = "email:welcome"
	TaskPayoutNotice = "email:payout_notice"
	TaskBanNotice    = "email:ban_notice"
)

// Common envelope for email-like notifications
type EmailEnvelope struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Welcome email payload
type WelcomeEmailPayload struct {
	UserID   string        `json:"user_id"`
	Name     string        `json:"name"`
	Email    string        `json:"email"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Payout notice payload, sent to the runner after a confirmed delivery
type PayoutNoticePayload struct {
	JobID    string        `json:"job_id"`
	RunnerID string        `json:"runner_id"`
	Email    string        `json:"email"`
	Amount   int64         `json:"amount"`
	Envelope EmailEnvelope `json:"envelope"`
	SentAt   time.Time     `json:"sent_at"`
}

// Ban notice payload, sent when the report threshold is crossed
type BanNoticePayload struct {
	Email       string        `json:"email"`
	ReportCount int           `json:"report_count"`
	Envelope    EmailEnvelope `json:"envelope"`
	SentAt      time.Time     `json:"sent_at"`
}
