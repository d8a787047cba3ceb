package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"github.com/lazypower/lumine/internal/srs"
	"github.com/lazypower/lumine/internal/store"
)

func cleanTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: title must not be blank", srs.ErrInvalidInput)
	}
	return title, nil
}

type scheduleInput struct {
	Enabled  bool `json:"enabled"`
	Interval int  `json:"interval" validate:"min=0,max=365"`
}

type createNoteRequest struct {
	Title            string         `json:"title" validate:"required,max=200"`
	Content          string         `json:"content" validate:"max=100000"`
	Tags             []string       `json:"tags" validate:"max=20,dive,max=50"`
	Category         string         `json:"category" validate:"max=50"`
	IsMarkdown       *bool          `json:"isMarkdown"`
	IsPinned         bool           `json:"isPinned"`
	SpacedRepetition *scheduleInput `json:"spacedRepetition"`
}

type updateNoteRequest struct {
	Title            *string        `json:"title" validate:"omitempty,min=1,max=200"`
	Content          *string        `json:"content" validate:"omitempty,max=100000"`
	Tags             []string       `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	Category         *string        `json:"category" validate:"omitempty,max=50"`
	IsMarkdown       *bool          `json:"isMarkdown"`
	IsPinned         *bool          `json:"isPinned"`
	IsArchived       *bool          `json:"isArchived"`
	SpacedRepetition *scheduleInput `json:"spacedRepetition"`
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	notes, err := s.db.ListNotes(r.Context(), userID(r), store.NoteFilter{
		Search:   q.Get("search"),
		Tag:      q.Get("tag"),
		Category: q.Get("category"),
		Archived: q.Get("archived") == "true",
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": notes, "count": len(notes)})
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	title, err := cleanTitle(req.Title)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	owner := userID(r)
	n := &store.Note{
		OwnerID:    owner,
		Title:      title,
		Content:    req.Content,
		Tags:       req.Tags,
		Category:   req.Category,
		IsMarkdown: true,
		IsPinned:   req.IsPinned,
	}
	if req.IsMarkdown != nil {
		n.IsMarkdown = *req.IsMarkdown
	}
	if err := s.db.CreateNote(r.Context(), n); err != nil {
		s.fail(w, r, err)
		return
	}
	if sr := req.SpacedRepetition; sr != nil && sr.Enabled {
		enabled, err := s.reviews.Enable(r.Context(), owner, n.ID, sr.Interval)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		n = enabled
	}
	hlog.FromRequest(r).Info().Str("note", n.ID).Msg("note-created")
	writeJSON(w, http.StatusCreated, n)
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.db.GetNote(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	var req updateNoteRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ctx, owner := r.Context(), userID(r)
	n, err := s.db.GetNote(ctx, owner, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if req.Title != nil {
		if n.Title, err = cleanTitle(*req.Title); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	if req.Content != nil {
		n.Content = *req.Content
	}
	if req.Tags != nil {
		n.Tags = req.Tags
	}
	if req.Category != nil {
		n.Category = *req.Category
	}
	if req.IsMarkdown != nil {
		n.IsMarkdown = *req.IsMarkdown
	}
	if req.IsPinned != nil {
		n.IsPinned = *req.IsPinned
	}
	if req.IsArchived != nil {
		n.IsArchived = *req.IsArchived
	}
	if err := s.db.UpdateNote(ctx, n); err != nil {
		s.fail(w, r, err)
		return
	}

	// an explicit interval restarts the schedule even on an enabled note
	if sr := req.SpacedRepetition; sr != nil {
		switch {
		case sr.Enabled && (!n.SR.Enabled || sr.Interval > 0):
			n, err = s.reviews.Enable(ctx, owner, n.ID, sr.Interval)
		case !sr.Enabled && n.SR.Enabled:
			n, err = s.reviews.Disable(ctx, owner, n.ID)
		}
		if err != nil {
			s.fail(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.db.DeleteNote(r.Context(), userID(r), id); err != nil {
		s.fail(w, r, err)
		return
	}
	hlog.FromRequest(r).Info().Str("note", id).Msg("note-deleted")
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleDueNotes(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	due, err := s.reviews.Due(r.Context(), userID(r), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": due, "count": len(due)})
}
