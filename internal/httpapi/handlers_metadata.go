package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/objectql/objectos-sub004/internal/metadata"
)

func (s *Server) handleMetadataList(c *gin.Context) {
	if s.deps.Metadata == nil {
		failStatus(c, http.StatusServiceUnavailable, "metadata registry not configured")
		return
	}
	ok(c, http.StatusOK, s.deps.Metadata.List(metadata.TypeObject))
}

func (s *Server) handleMetadataGet(c *gin.Context) {
	if s.deps.Metadata == nil {
		failStatus(c, http.StatusServiceUnavailable, "metadata registry not configured")
		return
	}
	entry, found := s.deps.Metadata.Get(metadata.TypeObject, c.Param("name"))
	if !found {
		notFound(c, "object definition not found: "+c.Param("name"))
		return
	}
	ok(c, http.StatusOK, entry)
}
