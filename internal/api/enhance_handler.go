// File path: internal/api/enhance_handler.go
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/contentlake/contentlake/internal/lake"
)

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	enhancementType := chi.URLParam(r, "type")
	force := parseBoolParam(r, "force")
	report, err := s.orch.Runner().Run(r.Context(), enhancementType, force)
	s.orch.RecordRun(r.Context(), "enhance_compute", map[string]any{"type": enhancementType, "force": force}, err)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	enhancementType := chi.URLParam(r, "type")
	snapshots, err := s.orch.Enhancements().ListHistory(enhancementType)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"type": enhancementType, "snapshots": snapshots})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	enhancementType := chi.URLParam(r, "type")
	activityID := r.URL.Query().Get("activity_id")
	if activityID == "" {
		writeError(w, http.StatusBadRequest, &lake.ValidationError{Field: "activity_id", Reason: "query parameter is required"})
		return
	}
	entries, err := s.orch.Enhancements().Timeline(activityID, enhancementType)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activity_id": activityID, "type": enhancementType, "timeline": entries})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	cat := s.orch.Catalog()
	if cat == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("run catalog is disabled"))
		return
	}
	operation := r.URL.Query().Get("operation")
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, &lake.ValidationError{Field: "limit", Reason: "must be a non-negative integer"})
			return
		}
		limit = parsed
	}
	runs, err := cat.Recent(r.Context(), operation, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}
