package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleMetricsJSON is a human/dashboard-friendly summary of job queue stats
// and notification queue status alongside the text-exposition Prometheus endpoint, per spec.md §6's
// "GET /api/v1/metrics (JSON)".
func (s *Server) handleMetricsJSON(c *gin.Context) {
	summary := gin.H{}

	if s.deps.Jobs != nil {
		summary["jobs"] = s.deps.Jobs.Stats()
	}
	if s.deps.Notify != nil {
		summary["notifications"] = s.deps.Notify.Status()
	}

	ok(c, http.StatusOK, summary)
}
