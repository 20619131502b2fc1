package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/objectql/objectos-sub004/internal/permission"
)

type permissionCheckRequest struct {
	UserID     string   `json:"userId"`
	Profiles   []string `json:"profiles"`
	ObjectName string   `json:"objectName"`
	Action     string   `json:"action"`
}

func (s *Server) handlePermissionCheck(c *gin.Context) {
	if s.deps.Permission == nil {
		failStatus(c, http.StatusServiceUnavailable, "permission engine not configured")
		return
	}

	var req permissionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	pctx := permission.Context{UserID: req.UserID, Profiles: req.Profiles}
	result, err := s.deps.Permission.Check(c.Request.Context(), pctx, req.ObjectName, permission.Action(req.Action))
	if err != nil {
		fail(c, err)
		return
	}

	ok(c, http.StatusOK, gin.H{
		"hasPermission": result.Allowed,
		"reason":        result.Reason,
		"filters":       result.Filters,
	})
}
