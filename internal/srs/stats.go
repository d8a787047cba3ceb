package srs

import (
	"math"
	"time"
)

// ReviewEvent is one graded review, kept for statistics only.
type ReviewEvent struct {
	Quality        int
	ResponseTimeMs int64
	ReviewedAt     time.Time
}

// Passed reports whether the review counted as a successful recall.
func (e ReviewEvent) Passed() bool {
	return e.Quality >= PassThreshold
}

// Stats summarizes a user's review workload and performance.
type Stats struct {
	DueToday     int `json:"dueToday"`
	Streak       int `json:"streak"`
	ReviewsToday int `json:"reviewsToday"`
	TotalEnabled int `json:"totalEnabled"`
	TotalReviews int `json:"totalReviews"`

	// Accuracy is the pass percentage over the supplied events, 0..100.
	Accuracy            float64 `json:"accuracy"`
	AverageResponseTime float64 `json:"averageResponseTime"` // ms
	HasAccuracy         bool    `json:"hasAccuracy"`
}

// ComputeStats aggregates scheduling counts for items and performance over
// events. "Today" is now's calendar day in now's location.
func ComputeStats[T Item](items []T, streak Streak, events []ReviewEvent, now time.Time) Stats {
	start := DayStart(now)
	end := start.AddDate(0, 0, 1)

	st := Stats{
		DueToday:     len(SelectDue(items, now)),
		Streak:       streak.Count,
		TotalReviews: len(events),
	}
	for _, it := range items {
		s := it.Schedule()
		if s.Enabled {
			st.TotalEnabled++
		}
		if s.LastReviewedAt != nil && !s.LastReviewedAt.Before(start) && s.LastReviewedAt.Before(end) {
			st.ReviewsToday++
		}
	}

	if len(events) == 0 {
		return st
	}

	var passed, timed int
	var totalMs int64
	for _, e := range events {
		if e.Passed() {
			passed++
		}
		// zero means the client did not report a response time
		if e.ResponseTimeMs > 0 {
			timed++
			totalMs += e.ResponseTimeMs
		}
	}
	st.HasAccuracy = true
	st.Accuracy = round1(float64(passed) * 100 / float64(len(events)))
	if timed > 0 {
		st.AverageResponseTime = round1(float64(totalMs) / float64(timed))
	}
	return st
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
