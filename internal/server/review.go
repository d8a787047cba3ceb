package server

import (
	"net/http"

	"github.com/lazypower/lumine/internal/review"
)

type reviewRequest struct {
	NoteID       string `json:"noteId" validate:"required"`
	Quality      *int   `json:"quality" validate:"required,min=0,max=5"`
	ResponseTime int64  `json:"responseTime" validate:"min=0"`
	RequestID    string `json:"requestId" validate:"max=128"`
}

type noteRef struct {
	NoteID string `json:"noteId" validate:"required"`
}

type enableRequest struct {
	NoteID   string `json:"noteId" validate:"required"`
	Interval int    `json:"interval" validate:"min=0,max=365"`
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.reviews.Submit(r.Context(), userID(r), review.Request{
		NoteID:         req.NoteID,
		Quality:        *req.Quality,
		ResponseTimeMs: req.ResponseTime,
		RequestID:      req.RequestID,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSkip(w http.ResponseWriter, r *http.Request) {
	var req noteRef
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.reviews.Skip(r.Context(), userID(r), req.NoteID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleEnable(w http.ResponseWriter, r *http.Request) {
	var req enableRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.reviews.Enable(r.Context(), userID(r), req.NoteID, req.Interval)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDisable(w http.ResponseWriter, r *http.Request) {
	var req noteRef
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.reviews.Disable(r.Context(), userID(r), req.NoteID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	size, err := queryInt(r, "size")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	session, err := s.reviews.Session(r.Context(), userID(r), size)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.reviews.Stats(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
