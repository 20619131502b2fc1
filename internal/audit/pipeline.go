package audit

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/objectql/objectos-sub004/internal/event"
	"github.com/objectql/objectos-sub004/pkg/metrics"
)

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// Store persists entries. If nil, an in-memory MemoryStore is created.
	Store Store

	// ChainSecret seeds the hash chain genesis when Store is nil and a
	// MemoryStore is created on the pipeline's behalf.
	ChainSecret string

	// ExcludedFields overrides DefaultExcludedFields.
	ExcludedFields []string

	// AuditedObjects, if non-empty, restricts auditing to these object
	// names; an empty list audits every object, per the Audit config
	// surface's auditedObjects[] (spec.md §6).
	AuditedObjects []string

	// RetentionDays, if > 0, is the purge-eligibility window used by Purge.
	RetentionDays int

	// Logger records each append as a structured event, distinct from the
	// kernel's logrus-based operational log; nil disables it (zerolog.Nop).
	Logger *zerolog.Logger
}

// Pipeline subscribes to data.* and job.* bus topics and turns them into
// hash-chained audit entries, per spec.md §4.7. It is a pure observer: it
// never returns an error from its hook handlers that would abort the
// triggering mutation (only gate topics can do that, and audit never hooks
// one), matching spec.md §9's note that "audit [is] a pure observer."
type Pipeline struct {
	store     Store
	excluded  map[string]bool
	objects   map[string]bool
	retention int
	enabled   bool
	log       zerolog.Logger
}

// NewPipeline creates a Pipeline from cfg.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	store := cfg.Store
	if store == nil {
		store = NewMemoryStore(cfg.ChainSecret)
	}

	excludedList := cfg.ExcludedFields
	if excludedList == nil {
		excludedList = DefaultExcludedFields
	}
	excluded := make(map[string]bool, len(excludedList))
	for _, f := range excludedList {
		excluded[strings.ToLower(f)] = true
	}

	var objects map[string]bool
	if len(cfg.AuditedObjects) > 0 {
		objects = make(map[string]bool, len(cfg.AuditedObjects))
		for _, o := range cfg.AuditedObjects {
			objects[o] = true
		}
	}

	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = *cfg.Logger
	}

	return &Pipeline{
		store:     store,
		excluded:  excluded,
		objects:   objects,
		retention: cfg.RetentionDays,
		enabled:   true,
		log:       log,
	}
}

// Store returns the pipeline's backing store.
func (p *Pipeline) Store() Store { return p.store }

// SetEnabled toggles whether HandleDataEvent/HandleJobEvent record anything,
// matching the audit config's enabled flag (spec.md §6) and spec.md §4.7's
// invariant exception "unless the audit plugin was disabled at event time."
func (p *Pipeline) SetEnabled(enabled bool) { p.enabled = enabled }

func (p *Pipeline) tracksObject(object string) bool {
	if p.objects == nil {
		return true
	}
	return p.objects[object]
}

func newEntryID() string {
	return fmt.Sprintf("audit_%d_%s", time.Now().UnixNano(), uuid.NewString()[:8])
}

// HandleDataEvent builds and appends an entry for a data.* bus event.
func (p *Pipeline) HandleDataEvent(ctx context.Context, topic string, de *event.DataEvent) error {
	if !p.enabled || !p.tracksObject(de.ObjectName) {
		return nil
	}

	entry := Entry{
		ID:         newEntryID(),
		EventType:  dataEventType(topic),
		ObjectName: de.ObjectName,
		RecordID:   de.RecordID,
		UserID:     de.UserID,
		UserName:   de.UserName,
		Success:    de.Success,
		Timestamp:  de.Timestamp,
		Changes:    p.extractChanges(de.Changes),
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	err := p.store.Append(ctx, entry)
	metrics.RecordAuditAppend(entry.EventType, err)
	p.logAppend(entry, err)
	return err
}

// extractChanges converts a DataEvent's Changes map into a sorted-by-field
// slice, dropping any field in the exclusion blocklist.
func (p *Pipeline) extractChanges(changes map[string]event.FieldChange) []FieldChange {
	if len(changes) == 0 {
		return nil
	}
	out := make([]FieldChange, 0, len(changes))
	for field, c := range changes {
		if p.excluded[strings.ToLower(field)] {
			continue
		}
		out = append(out, FieldChange{Field: field, OldValue: c.OldValue, NewValue: c.NewValue})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

// HandleJobEvent builds and appends an entry for a job.* bus event.
func (p *Pipeline) HandleJobEvent(ctx context.Context, topic string, je *event.JobEvent) error {
	if !p.enabled {
		return nil
	}

	entry := Entry{
		ID:        newEntryID(),
		EventType: topic,
		RecordID:  je.JobID,
		Success:   je.Status == "completed",
		Timestamp: je.Timestamp,
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	err := p.store.Append(ctx, entry)
	metrics.RecordAuditAppend(entry.EventType, err)
	p.logAppend(entry, err)
	return err
}

// logAppend writes one structured record per append attempt to the audit
// trail's dedicated zerolog sink, independent of the kernel's logrus log.
func (p *Pipeline) logAppend(entry Entry, err error) {
	evt := p.log.Info()
	if err != nil {
		evt = p.log.Error().Err(err)
	}
	evt.Str("entryId", entry.ID).
		Str("eventType", entry.EventType).
		Str("objectName", entry.ObjectName).
		Str("recordId", entry.RecordID).
		Bool("success", entry.Success).
		Msg("audit entry appended")
}

// QueryEvents is the query API spec.md §4.7 requires.
func (p *Pipeline) QueryEvents(ctx context.Context, q Query) (Result, error) {
	return p.store.Query(ctx, q)
}

// Purge removes entries older than RetentionDays, a no-op if RetentionDays
// is 0 (unbounded retention).
func (p *Pipeline) Purge(ctx context.Context) (int, error) {
	if p.retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -p.retention)
	return p.store.Purge(ctx, cutoff)
}
