// Package calendar holds study and review events and the repository
// abstraction they are stored behind.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/lumine/internal/srs"
)

// EventType classifies a calendar event.
type EventType string

const (
	TypeReview   EventType = "review"
	TypeStudy    EventType = "study"
	TypeReminder EventType = "reminder"
	TypeCustom   EventType = "custom"
)

// DefaultDuration is the length of an event created without one, in minutes.
const DefaultDuration = 30

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case TypeReview, TypeStudy, TypeReminder, TypeCustom:
		return true
	}
	return false
}

// Event is a single entry on a user's calendar. Time is an optional
// "HH:MM" wall-clock time; Date carries the day.
type Event struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Time        string    `json:"time,omitempty"`
	Type        EventType `json:"type"`
	NoteID      string    `json:"noteId,omitempty"`
	Duration    int       `json:"duration"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Repository stores calendar events. Implementations return errors wrapping
// srs.ErrNotFound for missing events; every lookup is scoped to an owner.
type Repository interface {
	Get(ctx context.Context, ownerID, id string) (*Event, error)
	Put(ctx context.Context, ev *Event) error
	Delete(ctx context.Context, ownerID, id string) error
	// QueryRange returns events whose date lies in [start, end], ordered by date.
	QueryRange(ctx context.Context, ownerID string, start, end time.Time) ([]Event, error)
	List(ctx context.Context, ownerID string) ([]Event, error)
}

// Prepare validates ev and fills defaults before it is stored. A new event
// gets an ID and CreatedAt; UpdatedAt always moves to now.
func Prepare(ev *Event, now time.Time) error {
	ev.Title = strings.TrimSpace(ev.Title)
	if ev.Title == "" {
		return fmt.Errorf("%w: title is required", srs.ErrInvalidInput)
	}
	if ev.Date.IsZero() {
		return fmt.Errorf("%w: date is required", srs.ErrInvalidInput)
	}
	if ev.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", srs.ErrInvalidInput)
	}
	if ev.Type == "" {
		ev.Type = TypeCustom
	}
	if !ev.Type.Valid() {
		return fmt.Errorf("%w: unknown event type %q", srs.ErrInvalidInput, ev.Type)
	}
	if ev.Time != "" {
		if _, err := time.Parse("15:04", ev.Time); err != nil {
			return fmt.Errorf("%w: time %q is not HH:MM", srs.ErrInvalidInput, ev.Time)
		}
	}
	if ev.Duration <= 0 {
		ev.Duration = DefaultDuration
	}
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now
	return nil
}

// ScheduledNote is the slice of a note that the calendar projects.
type ScheduledNote interface {
	srs.Item
	NoteTitle() string
}

// ReviewEvents projects the next review of every enabled note in [start, end]
// into review events. The events are derived on the fly and never stored.
func ReviewEvents[T ScheduledNote](ownerID string, notes []T, start, end time.Time) []Event {
	var out []Event
	for _, n := range notes {
		s := n.Schedule()
		if !s.Enabled || s.NextReviewAt == nil {
			continue
		}
		at := *s.NextReviewAt
		if at.Before(start) || at.After(end) {
			continue
		}
		out = append(out, Event{
			ID:       "review-" + n.ItemID(),
			OwnerID:  ownerID,
			Title:    "Review: " + n.NoteTitle(),
			Date:     at,
			Time:     at.Format("15:04"),
			Type:     TypeReview,
			NoteID:   n.ItemID(),
			Duration: 10,
		})
	}
	return out
}
