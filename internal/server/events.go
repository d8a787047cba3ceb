package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lazypower/lumine/internal/calendar"
	"github.com/lazypower/lumine/internal/srs"
)

const dateLayout = "2006-01-02"

type eventRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Date        string `json:"date" validate:"required"`
	Time        string `json:"time" validate:"omitempty,datetime=15:04"`
	Type        string `json:"type" validate:"omitempty,oneof=review study reminder custom"`
	NoteID      string `json:"noteId" validate:"max=64"`
	Duration    int    `json:"duration" validate:"min=0,max=1440"`
	Completed   bool   `json:"completed"`
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func (s *Server) parseDate(field, raw string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateLayout, raw, s.cfg.Location); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be YYYY-MM-DD or RFC 3339", srs.ErrInvalidInput, field)
	}
	return t, nil
}

func (s *Server) eventFromRequest(r *http.Request, req eventRequest, ev *calendar.Event) error {
	date, err := s.parseDate("date", req.Date)
	if err != nil {
		return err
	}
	ev.OwnerID = userID(r)
	ev.Title = req.Title
	ev.Description = req.Description
	ev.Date = date
	ev.Time = req.Time
	ev.Type = calendar.EventType(req.Type)
	ev.NoteID = req.NoteID
	ev.Duration = req.Duration
	ev.Completed = req.Completed
	return calendar.Prepare(ev, time.Now())
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.events.List(r.Context(), userID(r))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	var ev calendar.Event
	if err := s.eventFromRequest(r, req, &ev); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.events.Put(r.Context(), &ev); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.events.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	ev, err := s.events.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.eventFromRequest(r, req, ev); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.events.Put(r.Context(), ev); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.events.Delete(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleEventRange merges stored events with the projected due dates of the
// caller's scheduled notes. A date-only end covers that whole day.
func (s *Server) handleEventRange(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("start") == "" || q.Get("end") == "" {
		s.fail(w, r, fmt.Errorf("%w: start and end are required", srs.ErrInvalidInput))
		return
	}
	start, err := s.parseDate("start", q.Get("start"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	end, err := s.parseDate("end", q.Get("end"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if len(q.Get("end")) == len(dateLayout) {
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if end.Before(start) {
		s.fail(w, r, fmt.Errorf("%w: end is before start", srs.ErrInvalidInput))
		return
	}

	ctx, owner := r.Context(), userID(r)
	events, err := s.events.QueryRange(ctx, owner, start, end)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	notes, err := s.db.ListScheduled(ctx, owner)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	events = append(events, calendar.ReviewEvents(owner, notes, start, end)...)
	calendar.SortByDate(events)
	if events == nil {
		events = []calendar.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "count": len(events)})
}
