package api

import (
	"net/http"
	"strings"

	"github.com/stride-app/stride/internal/app/engagement"
	"github.com/stride-app/stride/internal/domain"
)

type createUserRequest struct {
	ID   string `json:"id"` // optional; generated when empty
	Name string `json:"name"`
}

// profileResponse is the profile plus derived progress.
type profileResponse struct {
	domain.Profile
	XPToNextLevel int     `json:"xp_to_next_level"`
	ProgressPct   float64 `json:"progress_pct"`
}

func newProfileResponse(p domain.Profile) profileResponse {
	return profileResponse{
		Profile:       p,
		XPToNextLevel: engagement.XPToNextLevel(p),
		ProgressPct:   engagement.ProgressPct(p),
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	u := domain.User{ID: strings.TrimSpace(req.ID), Name: strings.TrimSpace(req.Name)}
	if u.ID == "" {
		u.ID = s.newID()
	}
	if err := s.store.CreateUser(r.Context(), u); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	created, err := s.store.GetUser(r.Context(), u.ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProfile(r.Context(), userFrom(r.Context()))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProfileResponse(*p))
}
