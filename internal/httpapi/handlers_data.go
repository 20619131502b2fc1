package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func (s *Server) ctxOf(c *gin.Context) requestContext {
	pctx := permissionContext(c)
	return requestContext{UserID: pctx.UserID, Profiles: pctx.Profiles}
}

func (s *Server) handleDataList(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	result := s.deps.Data.List(c.Param("object"), page, pageSize)
	ok(c, http.StatusOK, result)
}

func (s *Server) handleDataGet(c *gin.Context) {
	record, found := s.deps.Data.Get(c.Param("object"), c.Param("id"))
	if !found {
		notFound(c, "record not found")
		return
	}
	ok(c, http.StatusOK, record)
}

func (s *Server) handleDataCreate(c *gin.Context) {
	var record map[string]any
	if err := c.ShouldBindJSON(&record); err != nil {
		failStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	created, err := s.deps.Data.Create(c.Request.Context(), s.ctxOf(c), c.Param("object"), record)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, created)
}

func (s *Server) handleDataUpdate(c *gin.Context) {
	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		failStatus(c, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := s.deps.Data.Update(c.Request.Context(), s.ctxOf(c), c.Param("object"), c.Param("id"), patch)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, updated)
}

func (s *Server) handleDataDelete(c *gin.Context) {
	if err := s.deps.Data.Delete(c.Request.Context(), s.ctxOf(c), c.Param("object"), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
