package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/objectql/objectos-sub004/pkg/metrics"
	"github.com/objectql/objectos-sub004/pkg/version"
	"github.com/objectql/objectos-sub004/system/bootstrap"
	"github.com/objectql/objectos-sub004/system/core"
)

// AdminHandler returns the gorilla/mux-routed handler for the internal
// admin listener: /healthz and /metrics, served on a separate port from
// the public API (spec.md §6). k is optional; when nil, /healthz reports
// unknown plugin health rather than panicking.
func AdminHandler(k *bootstrap.Kernel) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler(k)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}

func healthzHandler(k *bootstrap.Kernel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"version":   version.Version,
			"timestamp": time.Now(),
		}
		status := http.StatusOK
		if k == nil {
			body["status"] = "unknown"
		} else {
			overall := k.Overall()
			body["status"] = overall
			body["plugins"] = k.Health.All(k.Registry.Plugins())
			if overall != core.OverallHealthy && overall != "" {
				status = http.StatusServiceUnavailable
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
