package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectql/objectos-sub004/internal/audit"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(sqlx.NewDb(db, "postgres")), mock
}

func TestStore_Append(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO audit_entries").
		WithArgs("e1", "data.create", "account", "r1", "u1", "", []byte("[]"), true, sqlmock.AnyArg(), "hash1", "prev1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.Append(context.Background(), audit.Entry{
		ID: "e1", EventType: "data.create", ObjectName: "account", RecordID: "r1",
		UserID: "u1", Success: true, Timestamp: time.Now(), Hash: "hash1", PrevHash: "prev1",
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetFound(t *testing.T) {
	s, mock := newMockStore(t)
	cols := []string{"id", "event_type", "object_name", "record_id", "user_id", "user_name", "changes", "success", "occurred_at", "hash", "prev_hash"}
	mock.ExpectQuery("SELECT (.+) FROM audit_entries WHERE object_name").
		WithArgs("account", "r1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("e1", "data.create", "account", "r1", "u1", "", []byte("[]"), true, time.Now(), "h1", "h0"))

	entry, ok, err := s.Get(context.Background(), "account", "r1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "e1", entry.ID)
}

func TestStore_GetNotFound(t *testing.T) {
	s, mock := newMockStore(t)
	cols := []string{"id", "event_type", "object_name", "record_id", "user_id", "user_name", "changes", "success", "occurred_at", "hash", "prev_hash"}
	mock.ExpectQuery("SELECT (.+) FROM audit_entries WHERE object_name").
		WithArgs("account", "missing").
		WillReturnRows(sqlmock.NewRows(cols))

	_, ok, err := s.Get(context.Background(), "account", "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Purge(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec("DELETE FROM audit_entries WHERE occurred_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	removed, err := s.Purge(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 3, removed)
}

func TestStore_QueryCountsAndPaginates(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM audit_entries").
		WithArgs("account").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	cols := []string{"id", "event_type", "object_name", "record_id", "user_id", "user_name", "changes", "success", "occurred_at", "hash", "prev_hash"}
	mock.ExpectQuery("SELECT (.+) FROM audit_entries WHERE object_name").
		WithArgs("account").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("e1", "data.create", "account", "r1", "u1", "", []byte("[]"), true, time.Now(), "h1", "h0"))

	result, err := s.Query(context.Background(), audit.Query{ObjectName: "account"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Total)
	require.Len(t, result.Entries, 1)
}
