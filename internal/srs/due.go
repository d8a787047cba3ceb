package srs

import (
	"sort"
	"time"
)

// Item is anything that carries a scheduling state and a stable identifier.
type Item interface {
	ItemID() string
	Schedule() State
}

// IsDue reports whether an enabled state is due at now. An enabled state
// with no next review date is never due.
func IsDue(s State, now time.Time) bool {
	return s.Enabled && s.NextReviewAt != nil && !s.NextReviewAt.After(now)
}

// SelectDue returns the due items, most overdue first. Equal due dates are
// ordered by item ID so the result is deterministic.
func SelectDue[T Item](items []T, now time.Time) []T {
	due := make([]T, 0, len(items))
	for _, it := range items {
		if IsDue(it.Schedule(), now) {
			due = append(due, it)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := *due[i].Schedule().NextReviewAt, *due[j].Schedule().NextReviewAt
		if !a.Equal(b) {
			return a.Before(b)
		}
		return due[i].ItemID() < due[j].ItemID()
	})
	return due
}

// BuildSession caps an ordered due list at maxSize items. A non-positive
// maxSize uses DefaultSessionSize.
func BuildSession[T any](due []T, maxSize int) []T {
	if maxSize <= 0 {
		maxSize = DefaultSessionSize
	}
	if len(due) <= maxSize {
		return due
	}
	return due[:maxSize]
}
