// Package srs implements the SM-2 review scheduler used by Lumine notes.
//
// Every function in this package is pure: it takes a state snapshot and an
// explicit "now" and returns a new state. Callers own persistence and must
// serialize read-modify-write per item.
package srs

import (
	"math"
	"time"
)

const (
	DefaultEaseFactor   = 2.5
	MinEaseFactor       = 1.3
	DefaultIntervalDays = 3
	DefaultSessionSize  = 20

	// PassThreshold is the lowest quality counted as a successful recall.
	PassThreshold = 3
	MaxQuality    = 5
)

// State is the scheduling sub-document embedded in every note. The JSON
// keys are the persisted field names and must not change.
type State struct {
	Enabled        bool       `json:"enabled"`
	EaseFactor     float64    `json:"difficulty"`
	IntervalDays   int        `json:"interval"`
	ReviewCount    int        `json:"reviewCount"`
	LastReviewedAt *time.Time `json:"lastReviewed"`
	NextReviewAt   *time.Time `json:"nextReview"`
}

// NewState returns the state a freshly created item starts with.
func NewState() State {
	return State{
		Enabled:      false,
		EaseFactor:   DefaultEaseFactor,
		IntervalDays: DefaultIntervalDays,
		ReviewCount:  0,
	}
}

// Valid reports whether s satisfies the scheduling invariants.
func (s State) Valid() bool {
	return s.EaseFactor >= MinEaseFactor && s.IntervalDays >= 1 && s.ReviewCount >= 0
}

// sanitize repairs a state loaded from an untrusted history. An unset ease
// falls back to the default rather than the floor.
func sanitize(s State) State {
	switch {
	case s.EaseFactor == 0 || math.IsNaN(s.EaseFactor) || math.IsInf(s.EaseFactor, 0):
		s.EaseFactor = DefaultEaseFactor
	case s.EaseFactor < MinEaseFactor:
		s.EaseFactor = MinEaseFactor
	}
	if s.IntervalDays < 1 {
		s.IntervalDays = 1
	}
	if s.ReviewCount < 0 {
		s.ReviewCount = 0
	}
	return s
}

// AddDays adds whole calendar days to t, keeping its wall-clock time.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}

// DayStart returns midnight of t's calendar day in t's location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// DifficultyLabel maps an ease factor onto the 1 (easy) to 5 (hard) scale
// shown to users. It is cosmetic and never feeds back into scheduling.
func DifficultyLabel(ease float64) int {
	switch {
	case ease >= 2.7:
		return 1
	case ease >= 2.4:
		return 2
	case ease >= 2.0:
		return 3
	case ease >= 1.6:
		return 4
	default:
		return 5
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}
