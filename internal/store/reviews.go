package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lazypower/lumine/internal/srs"
)

// ReviewEvent records one graded review and the schedule it produced.
type ReviewEvent struct {
	ID             int64   `db:"id" json:"id"`
	OwnerID        string  `db:"owner_id" json:"userId"`
	NoteID         string  `db:"note_id" json:"noteId"`
	RequestID      string  `db:"request_id" json:"requestId,omitempty"`
	Quality        int     `db:"quality" json:"quality"`
	ResponseTimeMs int64   `db:"response_time_ms" json:"responseTime"`
	IntervalDays   int     `db:"interval_days" json:"interval"`
	Difficulty     float64 `db:"difficulty" json:"difficulty"`
	ReviewCount    int     `db:"review_count" json:"reviewCount"`
	NextReview     int64   `db:"next_review" json:"nextReview"`
	ReviewedAt     int64   `db:"reviewed_at" json:"reviewedAt"`
}

// Outcome converts the event to the scheduler's statistics input.
func (e ReviewEvent) Outcome() srs.ReviewEvent {
	return srs.ReviewEvent{
		Quality:        e.Quality,
		ResponseTimeMs: e.ResponseTimeMs,
		ReviewedAt:     time.UnixMilli(e.ReviewedAt),
	}
}

const reviewColumns = `id, owner_id, note_id, COALESCE(request_id, '') AS request_id, quality,
	response_time_ms, interval_days, difficulty, review_count, next_review, reviewed_at`

// SaveReview persists a reviewed note's new scheduling state and its review
// event in one transaction. The note write is version-checked like
// UpdateScheduling. A reused request ID yields ErrConflict.
func (db *DB) SaveReview(ctx context.Context, n *Note, ev *ReviewEvent) error {
	if n.SR.LastReviewedAt == nil || n.SR.NextReviewAt == nil {
		return fmt.Errorf("save review for note %s: %w: schedule has no review timestamps", n.ID, srs.ErrInvalidInput)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin review tx: %w", err)
	}
	defer tx.Rollback()

	if err := updateScheduling(ctx, tx, n); err != nil {
		return err
	}

	ev.OwnerID = n.OwnerID
	ev.NoteID = n.ID
	ev.IntervalDays = n.SR.IntervalDays
	ev.Difficulty = n.SR.EaseFactor
	ev.ReviewCount = n.SR.ReviewCount
	ev.NextReview = n.SR.NextReviewAt.UnixMilli()
	ev.ReviewedAt = n.SR.LastReviewedAt.UnixMilli()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO review_events (
			owner_id, note_id, request_id, quality, response_time_ms,
			interval_days, difficulty, review_count, next_review, reviewed_at
		) VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?)
	`, ev.OwnerID, ev.NoteID, ev.RequestID, ev.Quality, ev.ResponseTimeMs,
		ev.IntervalDays, ev.Difficulty, ev.ReviewCount, ev.NextReview, ev.ReviewedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("review request %s already recorded: %w", ev.RequestID, ErrConflict)
		}
		return fmt.Errorf("insert review event: %w", err)
	}
	if ev.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("review event id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit review: %w", err)
	}
	n.Version++
	return nil
}

// GetReviewByRequest returns the event recorded for a client request ID,
// or nil if there is none.
func (db *DB) GetReviewByRequest(ctx context.Context, ownerID, requestID string) (*ReviewEvent, error) {
	if requestID == "" {
		return nil, nil
	}
	var ev ReviewEvent
	err := db.GetContext(ctx, &ev, `SELECT `+reviewColumns+` FROM review_events WHERE owner_id = ? AND request_id = ?`,
		ownerID, requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review by request: %w", err)
	}
	return &ev, nil
}

// ListReviewEvents returns the owner's review events at or after since, newest first.
func (db *DB) ListReviewEvents(ctx context.Context, ownerID string, since time.Time) ([]ReviewEvent, error) {
	var events []ReviewEvent
	err := db.SelectContext(ctx, &events, `SELECT `+reviewColumns+` FROM review_events
		WHERE owner_id = ? AND reviewed_at >= ? ORDER BY reviewed_at DESC, id DESC`,
		ownerID, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list review events: %w", err)
	}
	return events, nil
}

// ListNoteReviews returns a note's review history, oldest first.
func (db *DB) ListNoteReviews(ctx context.Context, ownerID, noteID string) ([]ReviewEvent, error) {
	var events []ReviewEvent
	err := db.SelectContext(ctx, &events, `SELECT `+reviewColumns+` FROM review_events
		WHERE owner_id = ? AND note_id = ? ORDER BY reviewed_at, id`, ownerID, noteID)
	if err != nil {
		return nil, fmt.Errorf("list note reviews: %w", err)
	}
	return events, nil
}
