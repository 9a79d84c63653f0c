// File path: internal/api/manifest_handler.go
package api

import (
	"net/http"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/manifest"
)

type buildResponse struct {
	Full      bool     `json:"full"`
	Added     int      `json:"added"`
	Total     int      `json:"total_activities"`
	Conflicts []string `json:"conflicts,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Skipped   int      `json:"skipped_lines"`
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	force := parseBoolParam(r, "force")
	result, err := s.orch.Manifest().Build(r.Context(), force)
	s.orch.RecordRun(r.Context(), "manifest_build", map[string]bool{"force": force}, err)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, buildResponse{
		Full:      result.Full,
		Added:     result.Added,
		Total:     result.Manifest.TotalActivities,
		Conflicts: result.Conflicts,
		Warnings:  result.Warnings,
		Skipped:   len(result.Skipped),
	})
}

func (s *Server) handleRefreshIndexes(w http.ResponseWriter, r *http.Request) {
	months, platforms, err := manifest.RefreshIndexes(s.orch.Layout())
	s.orch.RecordRun(r.Context(), "indexes_refresh", nil, err)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: indexes refreshed", "months", months, "platforms", platforms)
	writeJSON(w, http.StatusOK, map[string]int{"months": months, "platforms": platforms})
}
