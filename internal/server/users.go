package server

import (
	"net/http"
	"strings"

	"github.com/lazypower/lumine/internal/store"
)

type profileRequest struct {
	Username *string `json:"username" validate:"omitempty,max=50"`
	Email    *string `json:"email" validate:"omitempty,email,max=254"`
	Theme    *string `json:"theme" validate:"omitempty,oneof=light dark system"`
}

type preferencesRequest struct {
	Enabled    *bool `json:"enabled"`
	DailyLimit int   `json:"dailyLimit" validate:"min=0,max=500"`
	Intervals  []int `json:"intervals" validate:"omitempty,max=10,dive,min=1,max=365"`
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.db.GetUser(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// handleUpdateProfile merges the supplied account fields into the caller's
// profile.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, owner := r.Context(), userID(r)
	u, err := s.db.GetUser(ctx, owner)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	p := store.Profile{Username: u.Username, Email: u.Email, Theme: u.Theme}
	if req.Username != nil {
		p.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		p.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Theme != nil {
		p.Theme = *req.Theme
	}
	if err := s.db.UpdateProfile(ctx, owner, p); err != nil {
		s.fail(w, r, err)
		return
	}
	u.Username, u.Email, u.Theme = p.Username, p.Email, p.Theme
	writeJSON(w, http.StatusOK, u)
}

// handleUpdatePreferences merges the supplied fields into the caller's
// review preferences.
func (s *Server) handleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req preferencesRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, owner := r.Context(), userID(r)
	u, err := s.db.GetUser(ctx, owner)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	prefs := u.Prefs
	if req.Enabled != nil {
		prefs.Enabled = *req.Enabled
	}
	if req.DailyLimit > 0 {
		prefs.DailyLimit = req.DailyLimit
	}
	if len(req.Intervals) > 0 {
		prefs.Intervals = req.Intervals
	}
	if err := s.db.UpdatePreferences(ctx, owner, prefs); err != nil {
		s.fail(w, r, err)
		return
	}
	u.Prefs = prefs
	writeJSON(w, http.StatusOK, u)
}
