package api

import (
	"net/http"
	"strconv"

	plankerrors "github.com/randalmurphal/plank/internal/errors"
)

// handleSnapshot returns the full consumer-visible state.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, s.store.Snapshot())
}

// handleActivities returns the activity feed, newest first. An optional
// limit query parameter truncates it further.
func (s *Server) handleActivities(w http.ResponseWriter, r *http.Request) {
	feed := s.store.Snapshot().Activities
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			HandleError(w, plankerrors.ErrInvalidInput("limit", "must be a non-negative integer"))
			return
		}
		if n < len(feed) {
			feed = feed[:n]
		}
	}
	JSONResponse(w, feed)
}

type selectRequest struct {
	ProjectID string `json:"projectId"`
}

// handleSelect sets or clears the current project.
func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeBody(r, &req); err != nil {
		HandleError(w, err)
		return
	}
	if err := s.store.SetCurrentProject(req.ProjectID); err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, map[string]any{"currentProject": s.store.Snapshot().CurrentProject})
}
