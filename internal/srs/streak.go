package srs

import "time"

// Streak tracks consecutive calendar days with at least one review.
type Streak struct {
	Count          int        `json:"streak"`
	LastReviewDate *time.Time `json:"lastReviewDate"`
}

// DateOf strips the time of day from t, keeping the calendar date as seen in
// t's location. The result is midnight UTC so dates compare with Equal.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecordReviewForStreak folds a review on reviewDate into the streak.
//
// The first review of a day either continues yesterday's streak or restarts
// it at 1. Further reviews on the same day leave the streak alone, as does a
// last review date after today (clock skew).
func RecordReviewForStreak(s Streak, reviewDate time.Time) Streak {
	today := DateOf(reviewDate)

	if s.LastReviewDate != nil {
		last := DateOf(*s.LastReviewDate)
		if !last.Before(today) {
			return s
		}
		if last.Equal(today.AddDate(0, 0, -1)) {
			s.Count++
			s.LastReviewDate = timePtr(today)
			return s
		}
	}

	s.Count = 1
	s.LastReviewDate = timePtr(today)
	return s
}
