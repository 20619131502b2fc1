package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "objectos",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "objectos",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "objectos",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to 2.56s
		},
		[]string{"method", "path"},
	)

	pluginReady = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "objectos",
			Subsystem: "kernel",
			Name:      "plugin_ready",
			Help:      "Current readiness of plugins (1 ready, 0 otherwise).",
		},
		[]string{"plugin", "domain"},
	)

	pluginStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "objectos",
			Subsystem: "kernel",
			Name:      "plugin_status",
			Help:      "Lifecycle status of plugins (one-hot by status label).",
		},
		[]string{"plugin", "domain", "status"},
	)

	busTriggers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "objectos",
			Subsystem: "bus",
			Name:      "triggers_total",
			Help:      "Count of bus Trigger calls grouped by topic and result.",
		},
		[]string{"topic", "result"},
	)

	busHandlerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "objectos",
			Subsystem: "bus",
			Name:      "trigger_duration_seconds",
			Help:      "Duration of a full Trigger call across all handlers for a topic.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"topic"},
	)

	jobExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "objectos",
			Subsystem: "jobqueue",
			Name:      "executions_total",
			Help:      "Total number of job queue dispatches grouped by job type and outcome.",
		},
		[]string{"job_type", "outcome"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "objectos",
			Subsystem: "jobqueue",
			Name:      "execution_duration_seconds",
			Help:      "Duration of job queue executions.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		},
		[]string{"job_type"},
	)

	jobQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "objectos",
			Subsystem: "jobqueue",
			Name:      "queue_depth",
			Help:      "Current number of jobs awaiting dispatch.",
		},
	)

	notifyDispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "objectos",
			Subsystem: "notify",
			Name:      "dispatches_total",
			Help:      "Total number of notification dispatch attempts grouped by channel and outcome.",
		},
		[]string{"channel", "outcome"},
	)

	permissionChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "objectos",
			Subsystem: "permission",
			Name:      "checks_total",
			Help:      "Total permission engine checks grouped by result and cache hit/miss.",
		},
		[]string{"result", "cache"},
	)

	permissionCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "objectos",
			Subsystem: "permission",
			Name:      "check_duration_seconds",
			Help:      "Duration of permission checks.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 14),
		},
	)

	auditAppends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "objectos",
			Subsystem: "audit",
			Name:      "appends_total",
			Help:      "Total audit entries appended grouped by event type and outcome.",
		},
		[]string{"event_type", "outcome"},
	)

	resourceCPUPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "objectos",
			Subsystem: "host",
			Name:      "cpu_percent",
			Help:      "Host CPU utilization percentage, sampled via gopsutil.",
		},
	)

	resourceMemPercent = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "objectos",
			Subsystem: "host",
			Name:      "memory_percent",
			Help:      "Host memory utilization percentage, sampled via gopsutil.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		pluginReady,
		pluginStatus,
		busTriggers,
		busHandlerDuration,
		jobExecutions,
		jobDuration,
		jobQueueDepth,
		notifyDispatches,
		permissionChecks,
		permissionCheckDuration,
		auditAppends,
		resourceCPUPercent,
		resourceMemPercent,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics,
// mounted on the admin listener separate from plugin traffic.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// PluginMetric captures lifecycle/readiness for a plugin used to populate
// Prometheus gauges.
type PluginMetric struct {
	Name   string
	Domain string
	Status string
	Ready  bool
}

// RecordPluginMetrics publishes plugin lifecycle/readiness gauges. It resets
// previous values first so a plugin that transitioned status doesn't leave a
// stale one-hot label behind.
func RecordPluginMetrics(plugins []PluginMetric) {
	pluginReady.Reset()
	pluginStatus.Reset()
	for _, p := range plugins {
		ready := 0.0
		if p.Ready {
			ready = 1.0
		}
		pluginReady.WithLabelValues(p.Name, p.Domain).Set(ready)
		pluginStatus.WithLabelValues(p.Name, p.Domain, p.Status).Set(1)
	}
}

// RecordBusTrigger records a bus.Trigger call's outcome and duration.
func RecordBusTrigger(topic string, err error, duration time.Duration) {
	if topic == "" {
		topic = "unknown"
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	busTriggers.WithLabelValues(topic, result).Inc()
	busHandlerDuration.WithLabelValues(topic).Observe(duration.Seconds())
}

// RecordJobExecution records a job queue dispatch outcome and duration.
func RecordJobExecution(jobType, outcome string, duration time.Duration) {
	if jobType == "" {
		jobType = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	jobExecutions.WithLabelValues(jobType, outcome).Inc()
	jobDuration.WithLabelValues(jobType).Observe(duration.Seconds())
}

// SetJobQueueDepth publishes the current number of jobs awaiting dispatch.
func SetJobQueueDepth(depth int) {
	jobQueueDepth.Set(float64(depth))
}

// RecordNotificationDispatch records a notification dispatch attempt.
func RecordNotificationDispatch(channel, outcome string) {
	if channel == "" {
		channel = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	notifyDispatches.WithLabelValues(channel, outcome).Inc()
}

// RecordPermissionCheck records a permission engine check's result, cache
// status, and duration.
func RecordPermissionCheck(allowed bool, cacheHit bool, duration time.Duration) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	cache := "miss"
	if cacheHit {
		cache = "hit"
	}
	permissionChecks.WithLabelValues(result, cache).Inc()
	permissionCheckDuration.Observe(duration.Seconds())
}

// RecordAuditAppend records an audit pipeline append outcome.
func RecordAuditAppend(eventType string, err error) {
	if eventType == "" {
		eventType = "unknown"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	auditAppends.WithLabelValues(eventType, outcome).Inc()
}

// SampleHostResources snapshots CPU and memory utilization via gopsutil and
// publishes them as gauges, one sample per call. Nothing in the kernel
// calls it on a schedule.
func SampleHostResources() error {
	percents, err := cpu.Percent(0, false)
	if err == nil && len(percents) > 0 {
		resourceCPUPercent.Set(percents[0])
	}

	vmem, err := mem.VirtualMemory()
	if err == nil && vmem != nil {
		resourceMemPercent.Set(vmem.UsedPercent)
	}
	return err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses path parameters into a low-cardinality template so
// per-request label values don't explode the metric's series count.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) <= 1 {
		return "/" + trimmed
	}
	if parts[len(parts)-1] != "" && looksLikeID(parts[len(parts)-1]) {
		parts[len(parts)-1] = ":id"
	}
	return "/" + strings.Join(parts, "/")
}

func looksLikeID(segment string) bool {
	if segment == "" {
		return false
	}
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '-' {
			continue
		}
		return false
	}
	return true
}
