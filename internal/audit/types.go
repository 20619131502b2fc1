// Package audit implements ObjectOS's tamper-evident audit pipeline: an
// observer-topic subscriber that turns data and job events into a
// hash-chained, append-only, queryable log (spec.md §4.7).
package audit

import (
	"time"

	"github.com/objectql/objectos-sub004/internal/event"
)

// FieldChange is one field's before/after value, reported only for fields
// that weren't excluded by the blocklist.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue any    `json:"oldValue"`
	NewValue any    `json:"newValue"`
}

// Entry is a single append-only audit record.
type Entry struct {
	ID         string        `json:"id"`
	EventType  string        `json:"eventType"`
	ObjectName string        `json:"objectName,omitempty"`
	RecordID   string        `json:"recordId,omitempty"`
	UserID     string        `json:"userId,omitempty"`
	UserName   string        `json:"userName,omitempty"`
	Changes    []FieldChange `json:"changes,omitempty"`
	Success    bool          `json:"success"`
	Timestamp  time.Time     `json:"timestamp"`

	// Hash is this entry's SHA3-256 digest over its canonical
	// representation chained with PrevHash, making tampering with any
	// entry detectable by recomputing the chain.
	Hash string `json:"hash"`
	// PrevHash is the Hash of the entry immediately preceding this one in
	// append order, or the chain's genesis value for the first entry.
	PrevHash string `json:"prevHash"`
}

// DefaultExcludedFields is the blocklist of field names never reported in
// Changes, per spec.md §4.7.
var DefaultExcludedFields = []string{"password", "token", "secret"}

// dataEventType maps a data.* topic name to the eventType recorded on the
// resulting entry.
func dataEventType(topic string) string {
	switch topic {
	case event.TopicCreate:
		return "data.create"
	case event.TopicUpdate:
		return "data.update"
	case event.TopicDelete:
		return "data.delete"
	case event.TopicFind:
		return "data.find"
	default:
		return topic
	}
}
