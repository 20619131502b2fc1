// Package httpapi implements ObjectOS's HTTP surface (spec.md §6): a
// gin-gonic/gin router for the bulk of the data/metadata/permission/audit
// routes, a go-chi/chi/v5 sub-router for the jobs/notifications admin
// routes mounted via gin.WrapH, a separate gorilla/mux listener for health
// and metrics, and a gorilla/websocket endpoint fanning out bus events.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pkgerrors "github.com/objectql/objectos-sub004/pkg/errors"
)

// envelope is the standard response shape for every non-data.* endpoint,
// per spec.md §6.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func ok(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

// fail translates err into a structured envelope, using its ServiceError
// code/status when present (spec.md §7, "every error leaving the HTTP
// boundary carries a success:false envelope with a human-readable message
// and, internally, a typed code").
func fail(c *gin.Context, err error) {
	status := pkgerrors.GetHTTPStatus(err)
	env := envelope{Success: false, Error: err.Error(), Message: err.Error()}
	if svcErr := pkgerrors.GetServiceError(err); svcErr != nil {
		env.Message = svcErr.Message
		if len(svcErr.Fields) > 0 {
			env.Data = svcErr.Fields
		}
	}
	c.JSON(status, env)
}

func failStatus(c *gin.Context, status int, message string) {
	c.JSON(status, envelope{Success: false, Error: message, Message: message})
}

func notFound(c *gin.Context, message string) {
	failStatus(c, http.StatusNotFound, message)
}
