package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/stride-app/stride/internal/domain"
)

// Notes, focus items and schedule events all live on "today" as the
// server's clock sees it.

type noteRequest struct {
	Content string `json:"content"`
}

type focusRequest struct {
	Text string `json:"text"`
}

type eventRequest struct {
	Title     string  `json:"title"`
	StartTime string  `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

type updateFocusRequest struct {
	Text optional[string] `json:"text"`
}

type updateEventRequest struct {
	Title     optional[string] `json:"title"`
	StartTime optional[string] `json:"start_time"`
	EndTime   optional[string] `json:"end_time"`
}

// ─── Daily Notes ────────────────────────────────────────────────────────────

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	notes, err := s.store.ListNotes(r.Context(), userFrom(r.Context()), s.clock.Today())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if notes == nil {
		notes = []domain.DailyNote{}
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) handleUpsertNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	note, err := s.store.UpsertNote(r.Context(), userFrom(r.Context()), s.clock.Today(), req.Content)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	note, err := s.store.GetNote(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	note, err := s.store.UpdateNote(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), req.Content)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteNote(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context())); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Focus Items ────────────────────────────────────────────────────────────

func (s *Server) handleListFocusItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListFocusItems(r.Context(), userFrom(r.Context()), s.clock.Today())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if items == nil {
		items = []domain.FocusItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateFocusItem(w http.ResponseWriter, r *http.Request) {
	var req focusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	text, err := domain.NormalizeTitle(req.Text)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	item := domain.FocusItem{
		ID:    s.newID(),
		Owner: userFrom(r.Context()),
		Date:  s.clock.Today(),
		Text:  text,
	}
	if err := s.store.CreateFocusItem(r.Context(), item); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleGetFocusItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.store.GetFocusItem(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateFocusItem(w http.ResponseWriter, r *http.Request) {
	var req updateFocusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	id, owner := chi.URLParam(r, "id"), userFrom(r.Context())

	if !req.Text.Set {
		s.handleGetFocusItem(w, r)
		return
	}
	if req.Text.Value == nil {
		writeError(w, http.StatusBadRequest, "text cannot be null")
		return
	}
	text, err := domain.NormalizeTitle(*req.Text.Value)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	item, err := s.store.UpdateFocusItem(r.Context(), id, owner, text)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleDeleteFocusItem(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteFocusItem(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context())); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Schedule Events ────────────────────────────────────────────────────────

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.ListEvents(r.Context(), userFrom(r.Context()), s.clock.Today())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if events == nil {
		events = []domain.ScheduleEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	title, err := domain.NormalizeTitle(req.Title)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if strings.TrimSpace(req.StartTime) == "" {
		writeError(w, http.StatusBadRequest, "start_time is required")
		return
	}
	start, err := domain.ParseClock(req.StartTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	end, err := parseClockPtr(req.EndTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev := domain.ScheduleEvent{
		ID:        s.newID(),
		Owner:     userFrom(r.Context()),
		Date:      s.clock.Today(),
		StartTime: start,
		EndTime:   end,
		Title:     title,
	}
	if err := s.store.CreateEvent(r.Context(), ev); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.store.GetEvent(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req updateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	patch, err := req.toPatch()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ev, err := s.store.UpdateEvent(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context()), patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteEvent(r.Context(), chi.URLParam(r, "id"), userFrom(r.Context())); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req updateEventRequest) toPatch() (domain.EventPatch, error) {
	var p domain.EventPatch

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
	if req.StartTime.Set {
		if req.StartTime.Value == nil || strings.TrimSpace(*req.StartTime.Value) == "" {
			return p, fmt.Errorf("start_time cannot be empty")
		}
		start, err := domain.ParseClock(*req.StartTime.Value)
		if err != nil {
			return p, err
		}
		p.StartTime = &start
	}

	var err error
	p.EndTime, p.ClearEndTime, err = clockPatch(req.EndTime)
	return p, err
}
