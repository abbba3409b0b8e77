package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stride-app/stride/internal/domain"
	"github.com/stride-app/stride/internal/infra/metrics"
)

// optional distinguishes an absent JSON field (Set false) from an explicit
// null (Set true, Value nil).
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

// --- request bodies ---

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
	DueDate     *string `json:"due_date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Completed   *bool   `json:"completed"` // accepted, ignored
}

type updateTaskRequest struct {
	Title       optional[string] `json:"title"`
	Description optional[string] `json:"description"`
	Priority    optional[string] `json:"priority"`
	DueDate     optional[string] `json:"due_date"`
	StartTime   optional[string] `json:"start_time"`
	EndTime     optional[string] `json:"end_time"`
	Completed   optional[bool]   `json:"completed"` // accepted, ignored
}

// completeResponse is the body of a successful completion.
type completeResponse struct {
	Status string `json:"status"`
	domain.Outcome
}

// --- handlers ---

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var f domain.TaskFilter
	if v := r.URL.Query().Get("due_date"); v != "" {
		d, err := domain.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.DueDate = &d
	}

	tasks, err := s.store.ListTasks(r.Context(), userFrom(r.Context()), f)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := req.toTask()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	task.ID = s.newID()
	task.Owner = userFrom(r.Context())

	if err := s.store.CreateTask(r.Context(), task); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	created, err := s.store.GetTask(r.Context(), task.ID, task.Owner)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.store.GetTask(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := s.store.UpdateTask(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteTask(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context())); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	user := userFrom(r.Context())
	taskID := chi.URLParam(r, "id")

	out, err := s.engine.CompleteTask(r.Context(), taskID, user)
	metrics.CompletionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CompletionRejections.WithLabelValues(rejectionReason(err)).Inc()
		s.writeDomainError(w, r, err)
		return
	}

	metrics.XPAwarded.Add(float64(out.XPEarned))
	if out.LeveledUp {
		metrics.LevelUps.Inc()
	}
	s.logger.Info("task completed",
		"user", user,
		"task", taskID,
		"xp_earned", out.XPEarned,
		"leveled_up", out.LeveledUp,
	)
	writeJSON(w, http.StatusOK, completeResponse{Status: "task completed", Outcome: out})
}

// --- conversions ---

func (req createTaskRequest) toTask() (domain.Task, error) {
	title, err := domain.NormalizeTitle(req.Title)
	if err != nil {
		return domain.Task{}, err
	}
	priority, err := domain.ParsePriority(req.Priority)
	if err != nil {
		return domain.Task{}, err
	}
	t := domain.Task{Title: title, Description: req.Description, Priority: priority}

	if req.DueDate != nil && *req.DueDate != "" {
		d, err := domain.ParseDate(*req.DueDate)
		if err != nil {
			return domain.Task{}, err
		}
		t.DueDate = &d
	}
	if t.StartTime, err = parseClockPtr(req.StartTime); err != nil {
		return domain.Task{}, err
	}
	if t.EndTime, err = parseClockPtr(req.EndTime); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (req updateTaskRequest) toPatch() (domain.TaskPatch, error) {
	var p domain.TaskPatch

	if req.Title.Set {
		if req.Title.Value == nil {
			return p, fmt.Errorf("title cannot be null")
		}
		title, err := domain.NormalizeTitle(*req.Title.Value)
		if err != nil {
			return p, err
		}
		p.Title = &title
	}
	if req.Description.Set {
		desc := ""
		if req.Description.Value != nil {
			desc = *req.Description.Value
		}
		p.Description = &desc
	}
	if req.Priority.Set && req.Priority.Value != nil {
		pr, err := domain.ParsePriority(*req.Priority.Value)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	if req.DueDate.Set {
		if req.DueDate.Value == nil || *req.DueDate.Value == "" {
			p.ClearDueDate = true
		} else {
			d, err := domain.ParseDate(*req.DueDate.Value)
			if err != nil {
				return p, err
			}
			p.DueDate = &d
		}
	}

	var err error
	if p.StartTime, p.ClearStartTime, err = clockPatch(req.StartTime); err != nil {
		return p, err
	}
	if p.EndTime, p.ClearEndTime, err = clockPatch(req.EndTime); err != nil {
		return p, err
	}
	return p, nil
}

func parseClockPtr(s *string) (*string, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	c, err := domain.ParseClock(*s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func clockPatch(o optional[string]) (value *string, unset bool, err error) {
	if !o.Set {
		return nil, false, nil
	}
	if o.Value == nil || *o.Value == "" {
		return nil, true, nil
	}
	v, err := parseClockPtr(o.Value)
	return v, false, err
}

// rejectionReason labels a failed completion for metrics.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyCompleted):
		return "already_completed"
	case errors.Is(err, domain.ErrTaskNotFound), errors.Is(err, domain.ErrProfileNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrProfileConflict):
		return "conflict"
	case errors.Is(err, domain.ErrLockUnavailable):
		return "lock"
	default:
		return "error"
	}
}
