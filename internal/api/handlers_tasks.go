package api

import (
	"net/http"

	"github.com/randalmurphal/plank/internal/schema"
)

// handleCreateTask creates a task in the project named by the body.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var in schema.TaskInput
	if err := decodeBody(r, &in); err != nil {
		HandleError(w, err)
		return
	}
	t, err := s.store.CreateTask(r.Context(), in)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponseStatus(w, t, http.StatusCreated)
}

// handleUpdateTask applies a partial update.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var patch schema.TaskPatch
	if err := decodeBody(r, &patch); err != nil {
		HandleError(w, err)
		return
	}
	t, err := s.store.UpdateTask(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, t)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), r.PathValue("id")); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}

// handleAddSubtask appends a subtask to the task in the path.
func (s *Server) handleAddSubtask(w http.ResponseWriter, r *http.Request) {
	var in schema.SubtaskInput
	if err := decodeBody(r, &in); err != nil {
		HandleError(w, err)
		return
	}
	in.TaskID = r.PathValue("id")
	st, err := s.store.AddSubtask(r.Context(), in)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponseStatus(w, st, http.StatusCreated)
}

func (s *Server) handleUpdateSubtask(w http.ResponseWriter, r *http.Request) {
	var patch schema.SubtaskPatch
	if err := decodeBody(r, &patch); err != nil {
		HandleError(w, err)
		return
	}
	st, err := s.store.UpdateSubtask(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, st)
}

func (s *Server) handleToggleSubtask(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.ToggleSubtask(r.Context(), r.PathValue("id"))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSONResponse(w, st)
}

func (s *Server) handleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteSubtask(r.Context(), r.PathValue("id")); err != nil {
		HandleError(w, err)
		return
	}
	NoContent(w)
}
