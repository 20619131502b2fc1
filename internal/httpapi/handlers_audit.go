package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/objectql/objectos-sub004/internal/audit"
)

func (s *Server) handleAuditEvents(c *gin.Context) {
	if s.deps.Audit == nil {
		failStatus(c, http.StatusServiceUnavailable, "audit pipeline not configured")
		return
	}

	q := audit.Query{
		ObjectName: c.Query("objectName"),
		UserID:     c.Query("userId"),
		EventType:  c.Query("eventType"),
	}
	if v := c.Query("startDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.StartDate = t
		}
	}
	if v := c.Query("endDate"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			q.EndDate = t
		}
	}
	if v, err := strconv.Atoi(c.Query("limit")); err == nil && v > 0 {
		q.PageSize = v
	}

	result, err := s.deps.Audit.QueryEvents(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}
