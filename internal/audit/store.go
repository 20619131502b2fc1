package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// SortOrder is the direction entries are returned in by Query.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// Query filters the audit log, per spec.md §4.7's "object, record, user,
// eventType, date range, and pagination with sort order."
type Query struct {
	ObjectName string
	RecordID   string
	UserID     string
	EventType  string
	StartDate  time.Time
	EndDate    time.Time

	Page     int // 1-based; 0 is treated as 1
	PageSize int // 0 means unbounded

	Sort SortOrder // defaults to SortDescending (newest first)
}

// Result is a page of query results.
type Result struct {
	Entries []Entry
	Total   int
	Page    int
}

// Store is the audit pipeline's append-only persistence contract. The
// default in-memory implementation and the optional sqlstore adapter both
// satisfy it, per spec.md §4.7's "the core only defines the contract."
type Store interface {
	// Append adds entry to the log. MemoryStore assigns Hash/PrevHash
	// itself; sqlstore.Store writes the entry's Hash/PrevHash as supplied
	// and does not compute them.
	Append(ctx context.Context, entry Entry) error

	// LastHash returns the Hash of the most recently appended entry. For
	// an empty log, MemoryStore returns the chain genesis value and
	// sqlstore.Store returns an empty string.
	LastHash(ctx context.Context) (string, error)

	// Query returns entries matching q.
	Query(ctx context.Context, q Query) (Result, error)

	// Get returns the first matching entry for (objectName, recordId),
	// per spec.md §8 invariant 4's "retrievable by (objectName, recordId)".
	Get(ctx context.Context, objectName, recordID string) (Entry, bool, error)

	// Purge deletes entries older than cutoff, reporting how many were
	// removed. Storage-backend-specific, per spec.md §4.7.
	Purge(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryStore is the default in-memory, append-only Store, guarded by an
// RWMutex like the rest of the kernel's in-memory registries
// (system/core.Registry, internal/permission.Store).
type MemoryStore struct {
	mu      sync.RWMutex
	secret  string
	entries []Entry
}

// NewMemoryStore creates an empty in-memory audit store chained from secret.
func NewMemoryStore(secret string) *MemoryStore {
	return &MemoryStore{secret: secret}
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.lastHashLocked()
	entry.PrevHash = prev
	entry.Hash = chainHash(prev, entry)
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) lastHashLocked() string {
	if len(s.entries) == 0 {
		return genesisHash(s.secret)
	}
	return s.entries[len(s.entries)-1].Hash
}

func (s *MemoryStore) LastHash(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastHashLocked(), nil
}

func (s *MemoryStore) Get(_ context.Context, objectName, recordID string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.entries {
		if e.ObjectName == objectName && e.RecordID == recordID {
			return e, true, nil
		}
	}
	return Entry{}, false, nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) (Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if q.ObjectName != "" && e.ObjectName != q.ObjectName {
			continue
		}
		if q.RecordID != "" && e.RecordID != q.RecordID {
			continue
		}
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		if q.EventType != "" && e.EventType != q.EventType {
			continue
		}
		if !q.StartDate.IsZero() && e.Timestamp.Before(q.StartDate) {
			continue
		}
		if !q.EndDate.IsZero() && e.Timestamp.After(q.EndDate) {
			continue
		}
		matched = append(matched, e)
	}

	desc := q.Sort != SortAscending
	sort.Slice(matched, func(i, j int) bool {
		if desc {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].Timestamp.Before(matched[j].Timestamp)
	})

	total := len(matched)
	page := q.Page
	if page <= 0 {
		page = 1
	}

	if q.PageSize <= 0 {
		return Result{Entries: matched, Total: total, Page: page}, nil
	}

	start := (page - 1) * q.PageSize
	if start >= total {
		return Result{Entries: []Entry{}, Total: total, Page: page}, nil
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return Result{Entries: matched[start:end], Total: total, Page: page}, nil
}

func (s *MemoryStore) Purge(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0:0]
	removed := 0
	for _, e := range s.entries {
		if e.Timestamp.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return removed, nil
}

var _ Store = (*MemoryStore)(nil)
