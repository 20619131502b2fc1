package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/chi/v5"

	"github.com/objectql/objectos-sub004/internal/audit"
	"github.com/objectql/objectos-sub004/internal/jobqueue"
	"github.com/objectql/objectos-sub004/internal/metadata"
	"github.com/objectql/objectos-sub004/internal/notify"
	"github.com/objectql/objectos-sub004/internal/permission"
	"github.com/objectql/objectos-sub004/pkg/metrics"
	"github.com/objectql/objectos-sub004/pkg/version"
	"github.com/objectql/objectos-sub004/system/core"
)

// Dependencies bundles the plugin services Server's handlers dispatch to.
// All of them are optional; a nil dependency makes its route group return
// 503s instead of panicking, so a partial deployment (some plugins absent)
// degrades gracefully rather than failing to start.
type Dependencies struct {
	Bus        *core.Bus
	Data       *dataStore
	Permission *permission.Engine
	Audit      *audit.Pipeline
	Jobs       *jobqueue.Queue
	Notify     *notify.Queue
	Metadata   *metadata.Registry

	// JWTSecret verifies bearer tokens at the HTTP boundary (see auth.go).
	JWTSecret string

	// RateLimitPerSecond/RateLimitBurst configure rateLimitMiddleware.
	// RateLimitPerSecond <= 0 disables rate limiting entirely.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// Server is the public API surface: a gin engine carrying every route
// group named in spec.md §6, plus a mounted chi sub-router for the
// jobs/notifications admin surface and a websocket event stream.
type Server struct {
	deps   Dependencies
	engine *gin.Engine
	hub    *eventHub
}

// NewServer wires deps into a ready-to-serve gin engine.
func NewServer(deps Dependencies) *Server {
	if deps.Data == nil {
		deps.Data = newDataStore(deps.Bus)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(bearerAuth(deps.JWTSecret))
	engine.Use(rateLimitMiddleware(newRateLimiter(deps.RateLimitPerSecond, deps.RateLimitBurst)))

	s := &Server{deps: deps, engine: engine, hub: newEventHub()}
	s.hub.subscribe(deps.Bus)
	s.routes()
	return s
}

// Handler returns the composed http.Handler for the public API listener,
// instrumented with the same Prometheus middleware the admin listener's
// /metrics endpoint exposes (pkg/metrics.InstrumentHandler).
func (s *Server) Handler() http.Handler { return metrics.InstrumentHandler(s.engine) }

func (s *Server) routes() {
	api := s.engine.Group("/api/v1")

	api.GET("/health", s.handleHealth)
	api.GET("/events/stream", s.handleEventStream)

	api.GET("/metadata/objects", s.handleMetadataList)
	api.GET("/metadata/objects/:name", s.handleMetadataGet)

	data := api.Group("/data/:object")
	data.GET("", s.handleDataList)
	data.POST("", s.handleDataCreate)
	data.GET("/:id", s.handleDataGet)
	data.PATCH("/:id", s.handleDataUpdate)
	data.DELETE("/:id", s.handleDataDelete)

	api.POST("/permissions/check", s.handlePermissionCheck)

	api.GET("/audit/events", s.handleAuditEvents)

	api.GET("/metrics", s.handleMetricsJSON)
	api.GET("/metrics/prometheus", gin.WrapH(metrics.Handler()))

	api.Any("/jobs", gin.WrapH(s.jobsRouter()))
	api.Any("/jobs/*rest", gin.WrapH(s.jobsRouter()))
	api.Any("/notifications", gin.WrapH(s.notificationsRouter()))
	api.Any("/notifications/*rest", gin.WrapH(s.notificationsRouter()))
}

// jobsRouter builds the chi sub-router for /api/v1/jobs*, demonstrating
// chi's middleware chaining for a small, self-contained route group
// alongside gin's binding-heavy routes (spec.md §6).
func (s *Server) jobsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.chiJobsList)
	r.Post("/", s.chiJobsEnqueue)
	r.Get("/stats", s.chiJobsStats)
	r.Post("/{id}/retry", s.chiJobsRetry)
	r.Post("/{id}/cancel", s.chiJobsCancel)
	return http.StripPrefix("/api/v1/jobs", r)
}

func (s *Server) notificationsRouter() http.Handler {
	r := chi.NewRouter()
	r.Post("/send", s.chiNotifySend)
	r.Get("/channels", s.chiNotifyChannels)
	r.Get("/queue/status", s.chiNotifyQueueStatus)
	return http.StripPrefix("/api/v1/notifications", r)
}

var startedAt = time.Now()

func (s *Server) handleHealth(c *gin.Context) {
	ok(c, http.StatusOK, gin.H{
		"status":    "up",
		"version":   version.Version,
		"timestamp": time.Now(),
		"uptime":    time.Since(startedAt).String(),
	})
}
