package server

import (
	"context"
	"net/http"
	"time"

	"github.com/lazypower/lumine/internal/engine"
)

// aiTimeout bounds one AI request, including provider retries.
const aiTimeout = 90 * time.Second

type contentRequest struct {
	Content string `json:"content" validate:"required,max=50000"`
}

type enhanceRequest struct {
	Content     string `json:"content" validate:"required,max=50000"`
	Enhancement string `json:"enhancement" validate:"max=500"`
}

type generateNoteRequest struct {
	Prompt   string `json:"prompt" validate:"required,max=2000"`
	Category string `json:"category" validate:"max=50"`
}

type generateQuizRequest struct {
	NoteID        string `json:"noteId" validate:"required"`
	QuestionCount int    `json:"questionCount" validate:"min=0,max=20"`
	Difficulty    int    `json:"difficulty" validate:"min=0,max=5"`
}

type suggestScheduleRequest struct {
	NoteID     string `json:"noteId" validate:"required"`
	Difficulty int    `json:"difficulty" validate:"min=0,max=5"`
}

func aiContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), aiTimeout)
}

func (s *Server) handleGenerateTags(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := aiContext(r)
	defer cancel()
	tags, err := s.engine.SuggestTags(ctx, req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tags": tags})
}

func (s *Server) handleGenerateQuiz(w http.ResponseWriter, r *http.Request) {
	var req generateQuizRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := aiContext(r)
	defer cancel()
	quiz, err := s.engine.GenerateQuiz(ctx, userID(r), req.NoteID, engine.QuizOptions{
		Count:      req.QuestionCount,
		Difficulty: req.Difficulty,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quiz)
}

func (s *Server) handleGenerateNote(w http.ResponseWriter, r *http.Request) {
	var req generateNoteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := aiContext(r)
	defer cancel()
	n, err := s.engine.GenerateNote(ctx, userID(r), req.Prompt, req.Category)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	var req enhanceRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := aiContext(r)
	defer cancel()
	content, err := s.engine.EnhanceNote(ctx, req.Content, req.Enhancement)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := aiContext(r)
	defer cancel()
	summary, err := s.engine.Summarize(ctx, req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleSuggestSchedule(w http.ResponseWriter, r *http.Request) {
	var req suggestScheduleRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, cancel := aiContext(r)
	defer cancel()
	intervals, err := s.engine.SuggestSchedule(ctx, userID(r), req.NoteID, req.Difficulty)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"intervals": intervals})
}
