package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lazypower/lumine/internal/calendar"
	"github.com/lazypower/lumine/internal/srs"
)

// EventStore is the SQLite-backed calendar.Repository.
type EventStore struct {
	db *DB
}

var _ calendar.Repository = (*EventStore)(nil)

// Events returns the calendar repository backed by this database.
func (db *DB) Events() *EventStore {
	return &EventStore{db: db}
}

type eventRow struct {
	ID          string `db:"id"`
	OwnerID     string `db:"owner_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Date        int64  `db:"date"`
	Time        string `db:"time"`
	Type        string `db:"type"`
	NoteID      string `db:"note_id"`
	Duration    int    `db:"duration"`
	Completed   bool   `db:"completed"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r eventRow) event() calendar.Event {
	return calendar.Event{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		Date:        time.UnixMilli(r.Date),
		Time:        r.Time,
		Type:        calendar.EventType(r.Type),
		NoteID:      r.NoteID,
		Duration:    r.Duration,
		Completed:   r.Completed,
		CreatedAt:   time.UnixMilli(r.CreatedAt),
		UpdatedAt:   time.UnixMilli(r.UpdatedAt),
	}
}

func (s *EventStore) Get(ctx context.Context, ownerID, id string) (*calendar.Event, error) {
	var row eventRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM calendar_events WHERE id = ? AND owner_id = ?`, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("event %s: %w", id, srs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	ev := row.event()
	return &ev, nil
}

// Put inserts ev or replaces the owner's existing event with the same ID.
func (s *EventStore) Put(ctx context.Context, ev *calendar.Event) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_events (
			id, owner_id, title, description, date, time, type, note_id, duration, completed, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description, date = excluded.date,
			time = excluded.time, type = excluded.type, note_id = excluded.note_id,
			duration = excluded.duration, completed = excluded.completed, updated_at = excluded.updated_at
		WHERE calendar_events.owner_id = excluded.owner_id
	`, ev.ID, ev.OwnerID, ev.Title, ev.Description, ev.Date.UnixMilli(), ev.Time, string(ev.Type),
		ev.NoteID, ev.Duration, ev.Completed, ev.CreatedAt.UnixMilli(), ev.UpdatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("put event: %w", err)
	}
	// an ID owned by someone else is left untouched
	return expectOne(res, "event "+ev.ID)
}

func (s *EventStore) Delete(ctx context.Context, ownerID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return expectOne(res, "event "+id)
}

func (s *EventStore) QueryRange(ctx context.Context, ownerID string, start, end time.Time) ([]calendar.Event, error) {
	return s.selectEvents(ctx, `SELECT * FROM calendar_events
		WHERE owner_id = ? AND date >= ? AND date <= ? ORDER BY date, time, id`,
		ownerID, start.UnixMilli(), end.UnixMilli())
}

func (s *EventStore) List(ctx context.Context, ownerID string) ([]calendar.Event, error) {
	return s.selectEvents(ctx, `SELECT * FROM calendar_events WHERE owner_id = ? ORDER BY date, time, id`, ownerID)
}

func (s *EventStore) selectEvents(ctx context.Context, query string, args ...any) ([]calendar.Event, error) {
	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	events := make([]calendar.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.event())
	}
	return events, nil
}
