package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/objectql/objectos-sub004/internal/audit"
	"github.com/objectql/objectos-sub004/internal/jobqueue"
	"github.com/objectql/objectos-sub004/internal/metadata"
	"github.com/objectql/objectos-sub004/internal/notify"
	"github.com/objectql/objectos-sub004/internal/permission"
	"github.com/objectql/objectos-sub004/system/bootstrap"
)

func newTestServer(t *testing.T) (*Server, *bootstrap.Kernel) {
	t.Helper()

	permPlugin := permission.NewPlugin(permission.NewEngine(permission.EngineConfig{}).AllowByDefault())
	auditPlugin := audit.NewPlugin(nil)
	jobs := jobqueue.New(jobqueue.Config{})
	jobPlugin := jobqueue.NewPlugin(jobs)
	notifyQueue := notify.New(notify.Config{Synchronous: true})

	k, err := bootstrap.Assemble(bootstrap.Config{})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, permPlugin.Init(ctx, k.Core))
	require.NoError(t, auditPlugin.Init(ctx, k.Core))
	require.NoError(t, jobPlugin.Init(ctx, k.Core))

	metaRegistry := metadata.NewRegistry()
	require.NoError(t, metaRegistry.Register(metadata.Entry{
		Type: metadata.TypeObject, ID: "account", Customizable: true,
	}))

	notifyQueue.RegisterChannel(notify.ChannelEmail, func(context.Context, notify.Notification) error { return nil })

	deps := Dependencies{
		Bus:        k.Bus,
		Permission: permPlugin.Engine(),
		Audit:      auditPlugin.Pipeline(),
		Jobs:       jobs,
		Notify:     notifyQueue,
		Metadata:   metaRegistry,
		JWTSecret:  "test-secret",
	}
	return NewServer(deps), k
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
}

func TestServer_MetadataObjects(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metadata/objects/account", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_MetadataObjectNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/metadata/objects/missing", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_DataCreateThenGet(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(map[string]any{"name": "Acme"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/data/account", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	record := env.Data.(map[string]any)
	id := record["id"].(string)

	getReq := httptest.NewRequest(http.MethodGet, "/api/v1/data/account/"+id, nil)
	getRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusOK, getRec.Code)
}

func TestServer_PermissionCheckAllowByDefault(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(permissionCheckRequest{UserID: "u1", Profiles: []string{"sales"}, ObjectName: "account", Action: "read"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/permissions/check", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	data := env.Data.(map[string]any)
	assert.Equal(t, true, data["hasPermission"])
}

func TestServer_JobsEnqueueAndStats(t *testing.T) {
	s, _ := newTestServer(t)
	s.deps.Jobs.RegisterHandler("noop", func(context.Context, any) error { return nil })

	body, _ := json.Marshal(enqueueJobRequest{Name: "noop"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	statsReq := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/stats", nil)
	statsRec := httptest.NewRecorder()
	s.Handler().ServeHTTP(statsRec, statsReq)
	assert.Equal(t, http.StatusOK, statsRec.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(statsRec.Body.Bytes(), &env))
	data := env.Data.(map[string]any)
	assert.Equal(t, float64(1), data["pending"])
}

func TestServer_NotificationsSendSynchronous(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(sendNotificationRequest{
		Channel: "email", Recipients: []string{"a@example.com"}, Body: "hi",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/send", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestServer_NotificationsChannels(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/channels", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminHandler_Healthz(t *testing.T) {
	_, k := newTestServer(t)
	handler := AdminHandler(k)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAdminHandler_Metrics(t *testing.T) {
	_, k := newTestServer(t)
	handler := AdminHandler(k)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
