// Package notify implements ObjectOS's notification queue (spec.md §4.9): a
// sibling FIFO/retry pattern to internal/jobqueue, differing only in
// per-channel dispatch and template rendering before dispatch. When
// disabled (Config.Synchronous), Send degrades to a direct synchronous call
// to the channel handler.
package notify

import (
	"context"
	"time"
)

// Channel identifies a notification transport.
type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelSMS     Channel = "sms"
	ChannelPush    Channel = "push"
	ChannelWebhook Channel = "webhook"
)

// Status mirrors internal/jobqueue.Status's vocabulary, trimmed to what a
// notification entry actually transitions through.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Request is what a caller asks to have sent: channel, recipients, and
// either a literal subject/body or a template name plus render data.
type Request struct {
	Channel    Channel        `json:"channel"`
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject,omitempty"`
	Body       string         `json:"body,omitempty"`
	Template   string         `json:"template,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Notification is a queued Request, with the id/status/timestamps Request
// gains once accepted (spec.md §3).
type Notification struct {
	ID            string    `json:"id"`
	Request       Request   `json:"request"`
	Status        Status    `json:"status"`
	Attempts      int       `json:"attempts"`
	MaxRetries    int       `json:"maxRetries"`
	CreatedAt     time.Time `json:"createdAt"`
	LastAttemptAt time.Time `json:"lastAttemptAt,omitempty"`
	Error         string    `json:"error,omitempty"`

	seq int64
}

// ChannelHandler dispatches a rendered notification over its channel's
// transport (SMTP/SMS/push/webhook client, all external collaborators, per
// spec.md §1).
type ChannelHandler func(ctx context.Context, n Notification) error

// QueueStatus summarizes the notification queue for the
// /notifications/queue/status endpoint (spec.md §6).
type QueueStatus struct {
	Enabled   bool `json:"enabled"`
	Pending   int  `json:"pending"`
	Running   int  `json:"running"`
	Retrying  int  `json:"retrying"`
	Sent      int  `json:"sent"`
	Failed    int  `json:"failed"`
	Cancelled int  `json:"cancelled"`
	Total     int  `json:"total"`
}
