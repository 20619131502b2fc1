package httpapi

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/objectql/objectos-sub004/internal/event"
	pkgerrors "github.com/objectql/objectos-sub004/pkg/errors"
	"github.com/objectql/objectos-sub004/system/core"
)

// dataStore is a thin, illustrative in-memory object store standing in for
// the data-persistence driver the kernel explicitly treats as an external
// collaborator (spec.md §1). Its only job is to exercise the documented
// data flow end to end, data.beforeX gate hooks, the mutation, data.X
// observer hooks, so the permission engine and audit pipeline have real
// HTTP-reachable traffic to act on; it is not a database.
type dataStore struct {
	bus *core.Bus

	mu      sync.RWMutex
	objects map[string]map[string]map[string]any
}

func newDataStore(bus *core.Bus) *dataStore {
	return &dataStore{bus: bus, objects: make(map[string]map[string]map[string]any)}
}

// ListResult is the paginated shape GET /api/v1/data/{object} returns.
type ListResult struct {
	Records []map[string]any `json:"records"`
	Total   int              `json:"total"`
	Page    int              `json:"page"`
}

func (d *dataStore) trigger(ctx context.Context, topic string, de *event.DataEvent) error {
	if d.bus == nil {
		return nil
	}
	return d.bus.Trigger(ctx, topic, de)
}

func (d *dataStore) Create(ctx context.Context, pctx requestContext, object string, record map[string]any) (map[string]any, error) {
	id, _ := record["id"].(string)
	if id == "" {
		id = uuid.NewString()
	}
	record["id"] = id

	before := &event.DataEvent{
		ObjectName: object, RecordID: id, UserID: pctx.UserID, Profiles: pctx.Profiles,
		Record: record, Timestamp: time.Now(),
	}
	if err := d.trigger(ctx, event.TopicBeforeCreate, before); err != nil {
		return nil, err
	}

	d.mu.Lock()
	if d.objects[object] == nil {
		d.objects[object] = make(map[string]map[string]any)
	}
	d.objects[object][id] = record
	d.mu.Unlock()

	after := *before
	after.Success = true
	after.Timestamp = time.Now()
	_ = d.trigger(ctx, event.TopicCreate, &after)

	return record, nil
}

func (d *dataStore) Get(object, id string) (map[string]any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	records, ok := d.objects[object]
	if !ok {
		return nil, false
	}
	record, ok := records[id]
	return record, ok
}

func (d *dataStore) List(object string, page, pageSize int) ListResult {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := make([]string, 0, len(d.objects[object]))
	for id := range d.objects[object] {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = len(ids)
	}

	start := (page - 1) * pageSize
	records := make([]map[string]any, 0, pageSize)
	if start < len(ids) {
		end := start + pageSize
		if end > len(ids) {
			end = len(ids)
		}
		for _, id := range ids[start:end] {
			records = append(records, d.objects[object][id])
		}
	}

	return ListResult{Records: records, Total: len(ids), Page: page}
}

func (d *dataStore) Update(ctx context.Context, pctx requestContext, object, id string, patch map[string]any) (map[string]any, error) {
	existing, ok := d.Get(object, id)
	if !ok {
		return nil, pkgerrors.NotFound(object, id)
	}

	changes := make(map[string]event.FieldChange, len(patch))
	updated := make(map[string]any, len(existing)+len(patch))
	for k, v := range existing {
		updated[k] = v
	}
	for k, v := range patch {
		changes[k] = event.FieldChange{Field: k, OldValue: existing[k], NewValue: v}
		updated[k] = v
	}

	before := &event.DataEvent{
		ObjectName: object, RecordID: id, UserID: pctx.UserID, Profiles: pctx.Profiles,
		Record: updated, Changes: changes, Timestamp: time.Now(),
	}
	if err := d.trigger(ctx, event.TopicBeforeUpdate, before); err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.objects[object][id] = updated
	d.mu.Unlock()

	after := *before
	after.Success = true
	after.Timestamp = time.Now()
	_ = d.trigger(ctx, event.TopicUpdate, &after)

	return updated, nil
}

func (d *dataStore) Delete(ctx context.Context, pctx requestContext, object, id string) error {
	if _, ok := d.Get(object, id); !ok {
		return pkgerrors.NotFound(object, id)
	}

	before := &event.DataEvent{
		ObjectName: object, RecordID: id, UserID: pctx.UserID, Profiles: pctx.Profiles,
		Timestamp: time.Now(),
	}
	if err := d.trigger(ctx, event.TopicBeforeDelete, before); err != nil {
		return err
	}

	d.mu.Lock()
	delete(d.objects[object], id)
	d.mu.Unlock()

	after := *before
	after.Success = true
	after.Timestamp = time.Now()
	_ = d.trigger(ctx, event.TopicDelete, &after)

	return nil
}

// requestContext carries the identity fields data.* events need, derived
// from the request's permission.Context without importing permission here.
type requestContext struct {
	UserID   string
	Profiles []string
}
