package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/vmyazin/planner-mcp/internal/core"
	"github.com/vmyazin/planner-mcp/internal/services"
)

type createTaskRequest struct {
	Text     string `json:"text"`
	Date     string `json:"date"`
	TimeSlot string `json:"timeSlot"`
}

type updateTaskRequest struct {
	Completed *bool   `json:"completed"`
	TimeSlot  *string `json:"timeSlot"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply   string `json:"reply"`
	Handled bool   `json:"handled"`
	Success bool   `json:"success"`
}

type taskResponse struct {
	Task    core.Task `json:"task"`
	Message string    `json:"message,omitempty"`
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("archived") == "true"
	tasks, err := s.store.ListTasks(r.Context(), includeArchived)
	if err != nil {
		s.log.WithError(err).Error("list tasks")
		http.Error(w, "db query error", http.StatusInternalServerError)
		return
	}
	if tasks == nil {
		tasks = []core.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	var body createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}

	intent, err := s.interp.ValidateIntent(services.IntentAddTask, map[string]interface{}{
		"taskText": body.Text,
		"date":     body.Date,
		"timeSlot": body.TimeSlot,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.interp.Execute(r.Context(), *intent)
	if err != nil {
		s.log.WithError(err).Error("create task")
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	if res == nil || !res.Success || len(res.Tasks) == 0 {
		msg := "task not created"
		if res != nil {
			msg = res.Message
		}
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, taskResponse{Task: res.Tasks[0], Message: res.Message})
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var body updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if body.Completed == nil && body.TimeSlot == nil {
		http.Error(w, "nothing to update", http.StatusBadRequest)
		return
	}

	if body.TimeSlot != nil {
		slot, ok := core.ParseTimeSlot(strings.ToLower(*body.TimeSlot))
		if !ok {
			http.Error(w, "invalid timeSlot", http.StatusBadRequest)
			return
		}
		if err := s.store.SetTimeSlot(r.Context(), id, slot); err != nil {
			s.storeError(w, err)
			return
		}
	}
	if body.Completed != nil {
		if err := s.store.SetCompleted(r.Context(), id, *body.Completed); err != nil {
			s.storeError(w, err)
			return
		}
	}

	task, err := s.store.GetTask(r.Context(), id)
	if err != nil {
		s.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Task: task})
}

func (s *Server) archiveCompleted(w http.ResponseWriter, r *http.Request) {
	res, err := s.interp.Execute(r.Context(), services.Intent{Name: services.IntentArchiveCompleted})
	if err != nil {
		s.log.WithError(err).Error("archive completed")
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var body chatRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	reply := s.interp.Chat(r.Context(), body.Message)
	if subject, ok := SubjectFromContext(r.Context()); ok {
		s.log.WithField("subject", subject).Debug("chat turn")
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Reply:   reply.Text,
		Handled: reply.Handled,
		Success: reply.Action != nil && reply.Action.Success,
	})
}

func (s *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrTaskNotFound):
		http.Error(w, "task not found", http.StatusNotFound)
	case errors.Is(err, core.ErrArchived), errors.Is(err, core.ErrNotCompleted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.log.WithError(err).Error("task update")
		http.Error(w, "db error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
