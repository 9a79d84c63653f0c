// File path: internal/api/activities_handler.go
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/enhance"
	"github.com/contentlake/contentlake/internal/lake"
	"github.com/contentlake/contentlake/internal/loader"
)

type appendRequest struct {
	Activities []json.RawMessage `json:"activities"`
}

type appendResponse struct {
	Appended int `json:"appended"`
}

func (s *Server) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(req.Activities) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("activities required"))
		return
	}
	activities := make([]lake.Activity, 0, len(req.Activities))
	for _, raw := range req.Activities {
		activity, err := lake.ParseLine(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		activities = append(activities, activity)
	}
	n, err := s.orch.Activities().Append(r.Context(), activities...)
	s.orch.RecordRun(r.Context(), "append", map[string]int{"count": n}, err)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	common.Logger().Info("api: activities appended", "count", n)
	writeJSON(w, http.StatusCreated, appendResponse{Appended: n})
}

func queryFromRequest(r *http.Request) (loader.Query, error) {
	q := loader.Query{
		Platform:     strings.TrimSpace(r.URL.Query().Get("platform")),
		ActivityType: lake.ActivityType(strings.TrimSpace(r.URL.Query().Get("type"))),
	}
	if q.ActivityType != "" && q.ActivityType != lake.ActivityCreate && q.ActivityType != lake.ActivityConsume {
		return q, &lake.ValidationError{Field: "type", Reason: `must be "create" or "consume"`}
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("since")); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return q, &lake.ValidationError{Field: "since", Reason: "must be YYYY-MM-DD"}
		}
		q.Since = ts
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("until")); raw != "" {
		ts, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return q, &lake.ValidationError{Field: "until", Reason: "must be YYYY-MM-DD"}
		}
		q.Until = ts
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return q, &lake.ValidationError{Field: "limit", Reason: "must be a non-negative integer"}
		}
		q.Limit = limit
	}
	return q, nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	q, err := queryFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	activities, err := s.orch.Loader().Select(r.Context(), q)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if parseBoolParam(r, "enhanced") {
		enhanced, err := s.orch.Enhancements().EnhanceAll(activities, enhance.AllLayers())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"activities": enhanced, "count": len(enhanced)})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": activities, "count": len(activities)})
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("activity id required"))
		return
	}
	activities, err := s.orch.Loader().LoadByIDs(r.Context(), []string{id})
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if len(activities) == 0 {
		writeError(w, http.StatusNotFound, fmt.Errorf("activity %s not found", id))
		return
	}
	if parseBoolParam(r, "enhanced") {
		enhanced, err := s.orch.Enhancements().EnhanceAll(activities, enhance.AllLayers())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, enhanced[0])
		return
	}
	writeJSON(w, http.StatusOK, activities[0])
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.orch.Loader().Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := s.orch.Loader().Platforms(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"platforms": platforms})
}

func parseBoolParam(r *http.Request, name string) bool {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	return err == nil && value
}
