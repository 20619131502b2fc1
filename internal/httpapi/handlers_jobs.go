package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/objectql/objectos-sub004/internal/jobqueue"
)

type enqueueJobRequest struct {
	Name       string            `json:"name"`
	Payload    any               `json:"payload"`
	Priority   string            `json:"priority"`
	MaxRetries int               `json:"maxRetries"`
	Tags       map[string]string `json:"tags"`
}

func (s *Server) chiJobsList(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeChiError(w, http.StatusServiceUnavailable, "job queue not configured")
		return
	}
	filter := jobqueue.ListFilter{
		Status: jobqueue.Status(r.URL.Query().Get("status")),
		Name:   r.URL.Query().Get("name"),
	}
	writeChiJSON(w, http.StatusOK, s.deps.Jobs.List(filter))
}

func (s *Server) chiJobsEnqueue(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeChiError(w, http.StatusServiceUnavailable, "job queue not configured")
		return
	}
	var req enqueueJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeChiError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := s.deps.Jobs.Enqueue(r.Context(), req.Name, req.Payload, jobqueue.EnqueueOptions{
		Priority:   jobqueue.ParsePriority(req.Priority),
		MaxRetries: req.MaxRetries,
		Tags:       req.Tags,
	})
	if err != nil {
		writeChiServiceError(w, err)
		return
	}
	writeChiJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) chiJobsStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeChiError(w, http.StatusServiceUnavailable, "job queue not configured")
		return
	}
	writeChiJSON(w, http.StatusOK, s.deps.Jobs.Stats())
}

func (s *Server) chiJobsRetry(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeChiError(w, http.StatusServiceUnavailable, "job queue not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.deps.Jobs.Retry(r.Context(), id); err != nil {
		writeChiServiceError(w, err)
		return
	}
	writeChiJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) chiJobsCancel(w http.ResponseWriter, r *http.Request) {
	if s.deps.Jobs == nil {
		writeChiError(w, http.StatusServiceUnavailable, "job queue not configured")
		return
	}
	id := chi.URLParam(r, "id")
	if err := s.deps.Jobs.Cancel(r.Context(), id); err != nil {
		writeChiServiceError(w, err)
		return
	}
	writeChiJSON(w, http.StatusOK, map[string]bool{"success": true})
}
