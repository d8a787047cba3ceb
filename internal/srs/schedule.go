package srs

import (
	"fmt"
	"math"
	"time"
)

// ApplyReview grades an item and returns its next scheduling state.
//
// Quality is 0 (total failure) to 5 (perfect recall). A pass (>= 3) grows the
// interval 1, 6, then interval*ease; a fail restarts at one day and resets the
// review count. The ease factor is updated on both paths and never drops below
// MinEaseFactor. ApplyReview is not idempotent: callers must deduplicate retries.
func ApplyReview(s State, quality int, now time.Time) (State, error) {
	if quality < 0 || quality > MaxQuality {
		return s, fmt.Errorf("%w: quality %d outside [0,%d]", ErrInvalidInput, quality, MaxQuality)
	}
	s = sanitize(s)

	interval := 1
	count := 0
	if quality >= PassThreshold {
		switch s.ReviewCount {
		case 0:
			interval = 1
		case 1:
			interval = 6
		default:
			interval = int(math.Round(float64(s.IntervalDays) * s.EaseFactor))
		}
		count = s.ReviewCount + 1
	}
	if interval < 1 {
		interval = 1
	}

	s.EaseFactor = nextEase(s.EaseFactor, quality)
	s.IntervalDays = interval
	s.ReviewCount = count
	s.LastReviewedAt = timePtr(now)
	s.NextReviewAt = timePtr(AddDays(now, interval))
	return s, nil
}

// nextEase is the SM-2 ease recurrence, floored at MinEaseFactor.
func nextEase(ease float64, quality int) float64 {
	miss := float64(MaxQuality - quality)
	ease += 0.1 - miss*(0.08+miss*0.02)
	return math.Max(MinEaseFactor, ease)
}

// Enable opts an item into scheduling. The first review is due
// initialIntervalDays after now; a non-positive interval uses the default.
func Enable(s State, now time.Time, initialIntervalDays int) State {
	if initialIntervalDays <= 0 {
		initialIntervalDays = DefaultIntervalDays
	}
	if s.EaseFactor == 0 || math.IsNaN(s.EaseFactor) {
		s.EaseFactor = DefaultEaseFactor
	} else if s.EaseFactor < MinEaseFactor {
		s.EaseFactor = MinEaseFactor
	}

	s.Enabled = true
	s.IntervalDays = initialIntervalDays
	s.ReviewCount = 0
	s.LastReviewedAt = nil
	s.NextReviewAt = timePtr(AddDays(now, initialIntervalDays))
	return s
}

// Disable opts an item out of scheduling and leaves the rest of its state intact.
func Disable(s State) State {
	s.Enabled = false
	return s
}

// Skip postpones an item by one day without grading it.
func Skip(s State, now time.Time) State {
	s.NextReviewAt = timePtr(AddDays(now, 1))
	return s
}
