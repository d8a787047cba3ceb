package server

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/lazypower/lumine/internal/engine"
	"github.com/lazypower/lumine/internal/srs"
	"github.com/lazypower/lumine/internal/store"
)

type questionInput struct {
	Question      string   `json:"question" validate:"required,max=1000"`
	Type          string   `json:"type" validate:"required,oneof=multiple-choice true-false short-answer flashcard"`
	Options       []string `json:"options" validate:"required_if=Type multiple-choice,max=6,dive,required,max=500"`
	CorrectAnswer string   `json:"correctAnswer" validate:"required,max=500"`
	Explanation   string   `json:"explanation" validate:"max=2000"`
	Difficulty    int      `json:"difficulty" validate:"omitempty,min=1,max=5"`
}

type createQuizRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=1000"`
	SourceNote  string          `json:"sourceNote"`
	Questions   []questionInput `json:"questions" validate:"required,min=1,max=50,dive"`
	IsPublic    bool            `json:"isPublic"`
}

type updateQuizRequest struct {
	Title       *string         `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string         `json:"description" validate:"omitempty,max=1000"`
	Questions   []questionInput `json:"questions" validate:"omitempty,min=1,max=50,dive"`
	IsPublic    *bool           `json:"isPublic"`
}

func toQuestions(in []questionInput) []store.Question {
	out := make([]store.Question, 0, len(in))
	for _, q := range in {
		d := q.Difficulty
		if d == 0 {
			d = engine.DefaultDifficulty
		}
		out = append(out, store.Question{
			Question:      q.Question,
			Type:          q.Type,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
			Difficulty:    d,
		})
	}
	return out
}

func (s *Server) handleListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := s.db.ListQuizzes(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"quizzes": quizzes, "count": len(quizzes)})
}

// handleCreateQuiz stores a hand-written quiz.
func (s *Server) handleCreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	title, err := cleanTitle(req.Title)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, owner := r.Context(), userID(r)
	if req.SourceNote != "" {
		if _, err := s.db.GetNote(ctx, owner, req.SourceNote); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	quiz := &store.Quiz{
		OwnerID:     owner,
		Title:       title,
		Description: req.Description,
		SourceNote:  req.SourceNote,
		Questions:   toQuestions(req.Questions),
		IsPublic:    req.IsPublic,
	}
	if err := s.db.CreateQuiz(ctx, quiz); err != nil {
		s.fail(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("quiz", quiz.ID).Int("questions", len(quiz.Questions)).Msg("quiz-created")
	writeJSON(w, http.StatusCreated, quiz)
}

func (s *Server) handleGetQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.db.GetQuiz(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

// handleUpdateQuiz merges the supplied fields into one of the caller's
// quizzes. Public quizzes of other users are readable, not writable.
func (s *Server) handleUpdateQuiz(w http.ResponseWriter, r *http.Request) {
	var req updateQuizRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, owner, id := r.Context(), userID(r), chi.URLParam(r, "id")
	quiz, err := s.db.GetQuiz(ctx, owner, id)
	if err == nil && quiz.OwnerID != owner {
		err = fmt.Errorf("quiz %s: %w", id, srs.ErrNotFound)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if req.Title != nil {
		if quiz.Title, err = cleanTitle(*req.Title); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if req.Description != nil {
		quiz.Description = *req.Description
	}
	if req.Questions != nil {
		quiz.Questions = toQuestions(req.Questions)
	}
	if req.IsPublic != nil {
		quiz.IsPublic = *req.IsPublic
	}
	if err := s.db.UpdateQuiz(ctx, quiz); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, quiz)
}

func (s *Server) handleDeleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteQuiz(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
