package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lazypower/lumine/internal/srs"
)

// MemoryRepository is a Repository held in process memory.
type MemoryRepository struct {
	mu     sync.RWMutex
	events map[string]Event
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{events: make(map[string]Event)}
}

func (m *MemoryRepository) Get(ctx context.Context, ownerID, id string) (*Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev, ok := m.events[id]
	if !ok || ev.OwnerID != ownerID {
		return nil, fmt.Errorf("event %s: %w", id, srs.ErrNotFound)
	}
	return &ev, nil
}

func (m *MemoryRepository) Put(ctx context.Context, ev *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.events[ev.ID]; ok && existing.OwnerID != ev.OwnerID {
		return fmt.Errorf("event %s: %w", ev.ID, srs.ErrNotFound)
	}
	m.events[ev.ID] = *ev
	return nil
}

func (m *MemoryRepository) Delete(ctx context.Context, ownerID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ev, ok := m.events[id]
	if !ok || ev.OwnerID != ownerID {
		return fmt.Errorf("event %s: %w", id, srs.ErrNotFound)
	}
	delete(m.events, id)
	return nil
}

func (m *MemoryRepository) QueryRange(ctx context.Context, ownerID string, start, end time.Time) ([]Event, error) {
	return m.filter(ownerID, func(ev Event) bool {
		return !ev.Date.Before(start) && !ev.Date.After(end)
	}), nil
}

func (m *MemoryRepository) List(ctx context.Context, ownerID string) ([]Event, error) {
	return m.filter(ownerID, func(Event) bool { return true }), nil
}

func (m *MemoryRepository) filter(ownerID string, keep func(Event) bool) []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []Event{}
	for _, ev := range m.events {
		if ev.OwnerID == ownerID && keep(ev) {
			out = append(out, ev)
		}
	}
	SortByDate(out)
	return out
}

// SortByDate orders events by date, then time of day, then ID.
func SortByDate(events []Event) {
	sort.Slice(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.ID < b.ID
	})
}
