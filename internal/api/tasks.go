package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// reorderRequest is the body of POST /tasks/reorder.
type reorderRequest struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// updateTaskRequest is the body of PATCH /tasks/{index}.
type updateTaskRequest struct {
	Enabled *bool `json:"enable"`
}

// handleListTasks returns the device's task list.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, ok := s.tasks.List(chi.URLParam(r, "uuid"))
	if !ok {
		writeNotFound(w, "device not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list, "count": len(list)})
}

// handleReorderTasks moves one descriptor.
func (s *Server) handleReorderTasks(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	s.mutateTasks(w, r, "invalid source index", func(uuid string) bool {
		return s.tasks.Reorder(uuid, req.From, req.To)
	})
}

// handleCopyTask duplicates a descriptor in place.
func (s *Server) handleCopyTask(w http.ResponseWriter, r *http.Request) {
	index, ok := taskIndex(w, r)
	if !ok {
		return
	}
	s.mutateTasks(w, r, "index out of range", func(uuid string) bool {
		return s.tasks.Copy(uuid, index)
	})
}

// handleDeleteTask removes a descriptor. The last descriptor of a kind is
// kept and answers 409.
func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	index, ok := taskIndex(w, r)
	if !ok {
		return
	}
	uuid := chi.URLParam(r, "uuid")
	list, found := s.tasks.List(uuid)
	if !found {
		writeNotFound(w, "device not found")
		return
	}
	if index >= len(list) {
		writeBadRequest(w, "index out of range")
		return
	}
	if !s.tasks.Delete(uuid, index) {
		writeConflict(w, "cannot delete the last task of kind "+list[index].Name)
		return
	}
	s.saveTasks(w, r, uuid)
}

// handleUpdateTask toggles a descriptor.
func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	index, ok := taskIndex(w, r)
	if !ok {
		return
	}
	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enable is required")
		return
	}
	s.mutateTasks(w, r, "index out of range", func(uuid string) bool {
		return s.tasks.SetEnabled(uuid, index, *req.Enabled)
	})
}

// mutateTasks applies fn to the device's list, saves it and answers with the
// new list. A false result from fn answers 400 with rejected.
func (s *Server) mutateTasks(w http.ResponseWriter, r *http.Request, rejected string, fn func(uuid string) bool) {
	uuid := chi.URLParam(r, "uuid")
	if _, ok := s.tasks.List(uuid); !ok {
		writeNotFound(w, "device not found")
		return
	}
	if !fn(uuid) {
		writeBadRequest(w, rejected)
		return
	}
	s.saveTasks(w, r, uuid)
}

// saveTasks persists the list and writes it back to the client.
func (s *Server) saveTasks(w http.ResponseWriter, r *http.Request, uuid string) {
	if err := s.tasks.Save(r.Context(), uuid); err != nil {
		s.logger.Error("saving task list", "uuid", uuid, "error", err)
		writeInternalError(w, "failed to save task list")
		return
	}
	list, _ := s.tasks.List(uuid)
	writeJSON(w, http.StatusOK, map[string]any{"tasks": list, "count": len(list)})
}

// taskIndex parses the {index} URL parameter.
func taskIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeBadRequest(w, "index must be a non-negative integer")
		return 0, false
	}
	return index, true
}
