// Package jobqueue implements ObjectOS's in-memory, priority-ordered,
// retrying job queue (spec.md §4.8): a single cooperative dispatch loop
// driven by robfig/cron/v3, FIFO within a priority band and strict priority
// across bands, linear backoff between retries with an exponential strategy
// available as a drop-in (internal/retry).
package jobqueue

import (
	"context"
	"time"
)

// Priority is a job's dispatch priority. Higher values dispatch first;
// within the same priority, FIFO by enqueue time (spec.md §4.8).
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String renders the priority the way it appears over the wire (spec.md
// §3's lowercase enum members).
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "normal"
	}
}

// ParsePriority maps a wire-format priority name to Priority, defaulting to
// PriorityNormal for an unrecognized or empty value.
func ParsePriority(s string) Priority {
	switch s {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "critical":
		return PriorityCritical
	default:
		return PriorityNormal
	}
}

// Status is a job's lifecycle state. Retrying is a supplemental transitional
// state between failed-with-retries-remaining and the next running attempt
// (spec.md §4.8's dispatch loop narrative); it does not alter the meaning of
// any state spec.md §3's enum names.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScheduled Status = "scheduled"
	StatusRunning   Status = "running"
	StatusRetrying  Status = "retrying"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Handler processes one dispatched job's payload. A returned error triggers
// the retry/dead-letter path.
type Handler func(ctx context.Context, payload any) error

// Job is one unit of deferred work.
type Job struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Priority   Priority          `json:"priority"`
	Status     Status            `json:"status"`
	Payload    any               `json:"payload,omitempty"`
	Attempt    int               `json:"attempt"`
	MaxRetries int               `json:"maxRetries"`
	CreatedAt  time.Time         `json:"createdAt"`
	RunAt      time.Time         `json:"runAt,omitempty"`
	LastAttemptAt time.Time      `json:"lastAttemptAt,omitempty"`
	Error      string            `json:"error,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`

	seq int64
}

// EnqueueOptions configures Enqueue/Schedule.
type EnqueueOptions struct {
	Priority   Priority
	MaxRetries int
	// Delay, if set on Enqueue, makes the job dispatchable only after the
	// delay elapses (implemented as an immediate Schedule for now+Delay).
	Delay time.Duration
	Tags  map[string]string
}

// Stats summarizes queue contents by status, for the jobs/stats endpoint
// (spec.md §6).
type Stats struct {
	Pending   int `json:"pending"`
	Scheduled int `json:"scheduled"`
	Running   int `json:"running"`
	Retrying  int `json:"retrying"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Total     int `json:"total"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Status Status
	Name   string
}
