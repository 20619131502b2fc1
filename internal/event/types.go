// Package event defines the payload shapes carried by the kernel bus's
// data.* and job.* topics. The core mandates these shapes even though the
// data-persistence driver and job handlers that populate them are external
// collaborators (spec.md §1), mirroring the teacher's system/events
// package, which defines ContractEvent as the fixed shape blockchain
// indexers hand to the dispatcher without owning the indexer itself.
package event

import "time"

// Data topics. Topics prefixed "before" are gate topics: the first
// handler error aborts the remaining handlers (core.Bus / core.GatePrefix).
const (
	TopicBeforeCreate = "data.beforeCreate"
	TopicBeforeUpdate = "data.beforeUpdate"
	TopicBeforeDelete = "data.beforeDelete"
	TopicBeforeFind   = "data.beforeFind"

	TopicCreate = "data.create"
	TopicUpdate = "data.update"
	TopicDelete = "data.delete"
	TopicFind   = "data.find"
)

// Job topics, all observer topics.
const (
	TopicJobEnqueued  = "job.enqueued"
	TopicJobScheduled = "job.scheduled"
	TopicJobStarted   = "job.started"
	TopicJobCompleted = "job.completed"
	TopicJobFailed    = "job.failed"
	TopicJobRetried   = "job.retried"
	TopicJobCancelled = "job.cancelled"
)

// TopicAuditRecorded is the topic name for a recorded audit entry. The
// event stream subscribes to it; the audit pipeline does not trigger it.
const TopicAuditRecorded = "audit.event.recorded"

// FieldChange records one field's before/after value for an update event.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// DataEvent is the payload carried by every data.* topic. The permission
// engine's gate hooks read UserID/Profiles/Metadata to build a permission
// context; the audit pipeline's observer hooks read the rest to build an
// AuditEntry.
type DataEvent struct {
	ObjectName string                 `json:"objectName"`
	RecordID   string                 `json:"recordId"`
	UserID     string                 `json:"userId"`
	UserName   string                 `json:"userName,omitempty"`
	Profiles   []string               `json:"profiles,omitempty"`
	Record     map[string]any         `json:"record,omitempty"`
	Changes    map[string]FieldChange `json:"changes,omitempty"`
	Success    bool                   `json:"success"`
	Timestamp  time.Time              `json:"timestamp"`
	Metadata   map[string]any         `json:"metadata,omitempty"`
}

// JobEvent is the payload carried by every job.* topic.
type JobEvent struct {
	JobID     string    `json:"jobId"`
	Name      string    `json:"name"`
	Priority  string    `json:"priority"`
	Status    string    `json:"status"`
	Attempt   int       `json:"attempt"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditRecordedEvent is the payload carried by audit.event.recorded.
type AuditRecordedEvent struct {
	EntryID   string    `json:"entryId"`
	EventType string    `json:"eventType"`
	Timestamp time.Time `json:"timestamp"`
}
