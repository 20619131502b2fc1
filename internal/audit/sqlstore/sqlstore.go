// Package sqlstore is an optional audit.Store backed by PostgreSQL via
// jmoiron/sqlx and lib/pq. It is a reference implementation of the Store
// contract, not part of kernel bootstrap, per spec.md §4.7's "retention
// deletion is storage-backend-specific" and §1's data-persistence-drivers
// are an external concern.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/objectql/objectos-sub004/internal/audit"
)

// Schema is the reference DDL for the audit_entries table this store reads
// and writes, kept as documentation alongside the executable copy under
// migrations/0001_audit_entries.up.sql that Migrate applies.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	id           TEXT PRIMARY KEY,
	event_type   TEXT NOT NULL,
	object_name  TEXT NOT NULL DEFAULT '',
	record_id    TEXT NOT NULL DEFAULT '',
	user_id      TEXT NOT NULL DEFAULT '',
	user_name    TEXT NOT NULL DEFAULT '',
	changes      JSONB,
	success      BOOLEAN NOT NULL DEFAULT true,
	occurred_at  TIMESTAMPTZ NOT NULL,
	hash         TEXT NOT NULL,
	prev_hash    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_entries_object_record_idx ON audit_entries (object_name, record_id);
CREATE INDEX IF NOT EXISTS audit_entries_occurred_at_idx ON audit_entries (occurred_at);
`

// row is the sqlx scan target for one audit_entries row.
type row struct {
	ID         string    `db:"id"`
	EventType  string    `db:"event_type"`
	ObjectName string    `db:"object_name"`
	RecordID   string    `db:"record_id"`
	UserID     string    `db:"user_id"`
	UserName   string    `db:"user_name"`
	Changes    []byte    `db:"changes"`
	Success    bool      `db:"success"`
	OccurredAt time.Time `db:"occurred_at"`
	Hash       string    `db:"hash"`
	PrevHash   string    `db:"prev_hash"`
}

// Store is a PostgreSQL-backed audit.Store.
type Store struct {
	db *sqlx.DB
}

// Open connects to dsn and returns a Store. Callers should call Migrate (or
// apply an equivalent migration) before first use.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: connect: %w", err)
	}
	return New(db), nil
}

// New wraps an existing *sqlx.DB, primarily for tests against go-sqlmock.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Append(ctx context.Context, entry audit.Entry) error {
	changes, err := marshalChanges(entry.Changes)
	if err != nil {
		return fmt.Errorf("sqlstore: marshal changes: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_entries
			(id, event_type, object_name, record_id, user_id, user_name, changes, success, occurred_at, hash, prev_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID, entry.EventType, entry.ObjectName, entry.RecordID, entry.UserID, entry.UserName,
		changes, entry.Success, entry.Timestamp, entry.Hash, entry.PrevHash,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: append: %w", err)
	}
	return nil
}

func (s *Store) LastHash(ctx context.Context) (string, error) {
	var hash string
	err := s.db.GetContext(ctx, &hash, `SELECT hash FROM audit_entries ORDER BY occurred_at DESC LIMIT 1`)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("sqlstore: last hash: %w", err)
	}
	return hash, nil
}

func (s *Store) Get(ctx context.Context, objectName, recordID string) (audit.Entry, bool, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `
		SELECT id, event_type, object_name, record_id, user_id, user_name, changes, success, occurred_at, hash, prev_hash
		FROM audit_entries WHERE object_name = $1 AND record_id = $2
		ORDER BY occurred_at DESC LIMIT 1`, objectName, recordID)
	if err == sql.ErrNoRows {
		return audit.Entry{}, false, nil
	}
	if err != nil {
		return audit.Entry{}, false, fmt.Errorf("sqlstore: get: %w", err)
	}
	entry, err := r.toEntry()
	if err != nil {
		return audit.Entry{}, false, err
	}
	return entry, true, nil
}

func (s *Store) Query(ctx context.Context, q audit.Query) (audit.Result, error) {
	where := "WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.ObjectName != "" {
		where += " AND object_name = " + arg(q.ObjectName)
	}
	if q.RecordID != "" {
		where += " AND record_id = " + arg(q.RecordID)
	}
	if q.UserID != "" {
		where += " AND user_id = " + arg(q.UserID)
	}
	if q.EventType != "" {
		where += " AND event_type = " + arg(q.EventType)
	}
	if !q.StartDate.IsZero() {
		where += " AND occurred_at >= " + arg(q.StartDate)
	}
	if !q.EndDate.IsZero() {
		where += " AND occurred_at <= " + arg(q.EndDate)
	}

	var total int
	countQuery := s.db.Rebind(`SELECT COUNT(*) FROM audit_entries ` + where)
	if err := s.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return audit.Result{}, fmt.Errorf("sqlstore: count: %w", err)
	}

	order := "DESC"
	if q.Sort == audit.SortAscending {
		order = "ASC"
	}

	page := q.Page
	if page <= 0 {
		page = 1
	}
	limitClause := ""
	if q.PageSize > 0 {
		offset := (page - 1) * q.PageSize
		limitClause = fmt.Sprintf(" LIMIT %s OFFSET %s", arg(q.PageSize), arg(offset))
	}

	selectQuery := s.db.Rebind(fmt.Sprintf(`
		SELECT id, event_type, object_name, record_id, user_id, user_name, changes, success, occurred_at, hash, prev_hash
		FROM audit_entries %s ORDER BY occurred_at %s%s`, where, order, limitClause))

	var rows []row
	if err := s.db.SelectContext(ctx, &rows, selectQuery, args...); err != nil {
		return audit.Result{}, fmt.Errorf("sqlstore: query: %w", err)
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, r := range rows {
		e, err := r.toEntry()
		if err != nil {
			return audit.Result{}, err
		}
		entries = append(entries, e)
	}

	return audit.Result{Entries: entries, Total: total, Page: page}, nil
}

func (s *Store) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: purge: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: purge rows affected: %w", err)
	}
	return int(affected), nil
}

var _ audit.Store = (*Store)(nil)
