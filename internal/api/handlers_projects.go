package api

import (
	"net/http"

	"github.com/randalmurphal/plank/internal/schema"
)

// handleCreateProject creates a project; unset fields take their defaults.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in schema.ProjectInput
	if err := decodeBody(r, &in); err != nil {
		HandleError(w, err)
		return
	}
	p, err := s.store.CreateProject(r.Context(), in)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponseStatus(w, p, http.StatusCreated)
}

// handleUpdateProject applies a partial update.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var patch schema.ProjectPatch
	if err := decodeBody(r, &patch); err != nil {
		HandleError(w, err)
		return
	}
	p, err := s.store.UpdateProject(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, p)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteProject(r.Context(), r.PathValue("id")); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.ToggleFavorite(r.Context(), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, p)
}

// handleAddMilestone appends a milestone to the project in the path.
func (s *Server) handleAddMilestone(w http.ResponseWriter, r *http.Request) {
	var in schema.MilestoneInput
	if err := decodeBody(r, &in); err != nil {
		HandleError(w, err)
		return
	}
	in.ProjectID = r.PathValue("id")
	m, err := s.store.AddMilestone(r.Context(), in)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponseStatus(w, m, http.StatusCreated)
}

func (s *Server) handleUpdateMilestone(w http.ResponseWriter, r *http.Request) {
	var patch schema.MilestonePatch
	if err := decodeBody(r, &patch); err != nil {
		HandleError(w, err)
		return
	}
	m, err := s.store.UpdateMilestone(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, m)
}

func (s *Server) handleToggleMilestone(w http.ResponseWriter, r *http.Request) {
	m, err := s.store.ToggleMilestone(r.Context(), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, m)
}

func (s *Server) handleDeleteMilestone(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteMilestone(r.Context(), r.PathValue("id")); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}
