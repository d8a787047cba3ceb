// Package review runs graded reviews, skips and session building against
// the note store, serializing every read-modify-write of a note's schedule.
package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"

	"github.com/lazypower/lumine/internal/srs"
	"github.com/lazypower/lumine/internal/store"
)

// Nower supplies the current time.
type Nower interface {
	Now() time.Time
}

// RealNower reads the wall clock.
type RealNower struct{}

func (RealNower) Now() time.Time { return time.Now() }

// Repository is the storage the service needs. *store.DB implements it.
type Repository interface {
	EnsureUser(ctx context.Context, id string) (*store.User, error)
	UpdateStreak(ctx context.Context, id string, s srs.Streak) error
	GetNote(ctx context.Context, ownerID, id string) (*store.Note, error)
	ListScheduled(ctx context.Context, ownerID string) ([]store.Note, error)
	ListStatsNotes(ctx context.Context, ownerID string, since time.Time) ([]store.Note, error)
	UpdateScheduling(ctx context.Context, n *store.Note) error
	SaveReview(ctx context.Context, n *store.Note, ev *store.ReviewEvent) error
	GetReviewByRequest(ctx context.Context, ownerID, requestID string) (*store.ReviewEvent, error)
	ListReviewEvents(ctx context.Context, ownerID string, since time.Time) ([]store.ReviewEvent, error)
}

var _ Repository = (*store.DB)(nil)

// Options tune a Service. Zero values pick defaults.
type Options struct {
	// SessionSize caps a session when the user has no daily limit.
	SessionSize int
	// InitialInterval is the enable interval when the user has no preference.
	InitialInterval int
	// Location decides which calendar day "today" is for streaks and stats.
	Location *time.Location
	// MaxRetries bounds how often a conflicting write is reloaded and reapplied.
	MaxRetries uint
	RetryDelay time.Duration
}

// Service applies scheduling operations to stored notes.
type Service struct {
	repo  Repository
	opts  Options
	locks *keyedMutex

	Nower Nower
}

// New returns a Service over repo.
func New(repo Repository, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 10 * time.Millisecond
	}
	return &Service{
		repo:  repo,
		opts:  opts,
		locks: newKeyedMutex(),
		Nower: RealNower{},
	}
}

// Request is one graded review submitted by a client. RequestID is an
// optional client-chosen key; resubmitting it returns the first outcome.
type Request struct {
	NoteID         string
	Quality        int
	ResponseTimeMs int64
	RequestID      string
}

// Result is the outcome of a review.
type Result struct {
	Note            *store.Note        `json:"note"`
	Event           *store.ReviewEvent `json:"event"`
	Streak          srs.Streak         `json:"streak"`
	DifficultyLabel int                `json:"difficultyLabel"`
	Duplicate       bool               `json:"duplicate"`
}

// Session is the batch of notes a user reviews in one sitting.
type Session struct {
	Notes    []store.Note `json:"notes"`
	TotalDue int          `json:"totalDue"`
}

func (s *Service) now() time.Time {
	return s.Nower.Now().In(s.opts.Location)
}

func noteKey(ownerID, noteID string) string {
	return ownerID + "/" + noteID
}

// Submit grades a note and persists its new schedule with a review event.
func (s *Service) Submit(ctx context.Context, ownerID string, req Request) (*Result, error) {
	if req.NoteID == "" {
		return nil, fmt.Errorf("%w: noteId is required", srs.ErrInvalidInput)
	}
	if req.Quality < 0 || req.Quality > srs.MaxQuality {
		return nil, fmt.Errorf("%w: quality %d outside [0,%d]", srs.ErrInvalidInput, req.Quality, srs.MaxQuality)
	}
	if req.ResponseTimeMs < 0 {
		return nil, fmt.Errorf("%w: negative response time", srs.ErrInvalidInput)
	}

	unlock := s.locks.Lock(noteKey(ownerID, req.NoteID))
	defer unlock()

	var res *Result
	var reviewedAt time.Time
	err := s.retry(ctx, func() error {
		prior, err := s.repo.GetReviewByRequest(ctx, ownerID, req.RequestID)
		if err != nil {
			return err
		}
		if prior != nil {
			n, err := s.repo.GetNote(ctx, ownerID, prior.NoteID)
			if err != nil {
				return err
			}
			res = &Result{Note: n, Event: prior, Duplicate: true}
			return nil
		}

		n, err := s.repo.GetNote(ctx, ownerID, req.NoteID)
		if err != nil {
			return err
		}
		reviewedAt = s.now()
		n.SR, err = srs.ApplyReview(n.SR, req.Quality, reviewedAt)
		if err != nil {
			return err
		}
		ev := &store.ReviewEvent{
			Quality:        req.Quality,
			ResponseTimeMs: req.ResponseTimeMs,
			RequestID:      req.RequestID,
		}
		if err := s.repo.SaveReview(ctx, n, ev); err != nil {
			return err
		}
		res = &Result{Note: n, Event: ev}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("submit review for note %s: %w", req.NoteID, err)
	}
	res.DifficultyLabel = srs.DifficultyLabel(res.Note.SR.EaseFactor)

	logger := log.Ctx(ctx)
	if res.Duplicate {
		logger.Info().Str("note", res.Note.ID).Str("request", req.RequestID).Msg("review-duplicate")
		u, err := s.repo.EnsureUser(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		res.Streak = u.Streak
		return res, nil
	}

	logger.Info().
		Str("note", res.Note.ID).
		Int("quality", req.Quality).
		Int("interval", res.Note.SR.IntervalDays).
		Float64("ease", res.Note.SR.EaseFactor).
		Msg("review-applied")

	streak, err := s.recordStreak(ctx, ownerID, reviewedAt)
	if err != nil {
		// the review itself is committed; a resubmit would only dedupe
		logger.Error().Err(err).Str("user", ownerID).Msg("streak-update-failed")
	}
	res.Streak = streak
	return res, nil
}

func (s *Service) recordStreak(ctx context.Context, ownerID string, at time.Time) (srs.Streak, error) {
	unlock := s.locks.Lock("user/" + ownerID)
	defer unlock()

	u, err := s.repo.EnsureUser(ctx, ownerID)
	if err != nil {
		return srs.Streak{}, err
	}
	next := srs.RecordReviewForStreak(u.Streak, at)
	if next == u.Streak {
		return next, nil
	}
	if err := s.repo.UpdateStreak(ctx, ownerID, next); err != nil {
		return u.Streak, err
	}
	return next, nil
}

// Skip postpones a note by one day without grading it.
func (s *Service) Skip(ctx context.Context, ownerID, noteID string) (*store.Note, error) {
	n, err := s.mutate(ctx, ownerID, noteID, srs.Skip)
	if err != nil {
		return nil, fmt.Errorf("skip note %s: %w", noteID, err)
	}
	log.Ctx(ctx).Info().Str("note", noteID).Msg("review-skipped")
	return n, nil
}

// Enable opts a note into scheduling. A zero interval falls back to the
// user's preference, then the configured default.
func (s *Service) Enable(ctx context.Context, ownerID, noteID string, intervalDays int) (*store.Note, error) {
	if intervalDays < 0 {
		return nil, fmt.Errorf("%w: negative interval", srs.ErrInvalidInput)
	}
	if intervalDays == 0 {
		u, err := s.repo.EnsureUser(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		intervalDays = s.initialInterval(u)
	}
	n, err := s.mutate(ctx, ownerID, noteID, func(st srs.State, now time.Time) srs.State {
		return srs.Enable(st, now, intervalDays)
	})
	if err != nil {
		return nil, fmt.Errorf("enable note %s: %w", noteID, err)
	}
	return n, nil
}

// Disable opts a note out of scheduling, keeping its history.
func (s *Service) Disable(ctx context.Context, ownerID, noteID string) (*store.Note, error) {
	n, err := s.mutate(ctx, ownerID, noteID, func(st srs.State, _ time.Time) srs.State {
		return srs.Disable(st)
	})
	if err != nil {
		return nil, fmt.Errorf("disable note %s: %w", noteID, err)
	}
	return n, nil
}

func (s *Service) initialInterval(u *store.User) int {
	if len(u.Prefs.Intervals) > 0 {
		return u.Prefs.InitialInterval()
	}
	if s.opts.InitialInterval > 0 {
		return s.opts.InitialInterval
	}
	return srs.DefaultIntervalDays
}

// mutate reloads and rewrites one note's schedule under its lock until the
// versioned write lands.
func (s *Service) mutate(ctx context.Context, ownerID, noteID string, change func(srs.State, time.Time) srs.State) (*store.Note, error) {
	if noteID == "" {
		return nil, fmt.Errorf("%w: noteId is required", srs.ErrInvalidInput)
	}
	unlock := s.locks.Lock(noteKey(ownerID, noteID))
	defer unlock()

	var out *store.Note
	err := s.retry(ctx, func() error {
		n, err := s.repo.GetNote(ctx, ownerID, noteID)
		if err != nil {
			return err
		}
		n.SR = change(n.SR, s.now())
		if err := s.repo.UpdateScheduling(ctx, n); err != nil {
			return err
		}
		out = n
		return nil
	})
	return out, err
}

// retry reruns fn while it fails with a version conflict.
func (s *Service) retry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(s.opts.MaxRetries+1),
		retry.Delay(s.opts.RetryDelay),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, store.ErrConflict)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().Uint("attempt", n+1).Err(err).Msg("schedule-write-conflict")
		}),
		retry.LastErrorOnly(true),
	)
}

// Due returns the owner's due notes, most overdue first. A positive limit
// caps the result.
func (s *Service) Due(ctx context.Context, ownerID string, limit int) ([]store.Note, error) {
	notes, err := s.repo.ListScheduled(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("due notes: %w", err)
	}
	due := srs.SelectDue(notes, s.now())
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Session builds the next review session. A non-positive size uses the
// user's daily limit, then the configured session size, then the default.
// A user who turned reviews off gets an empty session.
func (s *Service) Session(ctx context.Context, ownerID string, size int) (*Session, error) {
	u, err := s.repo.EnsureUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if !u.Prefs.Enabled {
		return &Session{Notes: []store.Note{}}, nil
	}
	due, err := s.Due(ctx, ownerID, 0)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = u.Prefs.DailyLimit
	}
	if size <= 0 {
		size = s.opts.SessionSize
	}
	return &Session{Notes: srs.BuildSession(due, size), TotalDue: len(due)}, nil
}

// Stats reports the owner's workload, streak and accuracy.
func (s *Service) Stats(ctx context.Context, ownerID string) (srs.Stats, error) {
	u, err := s.repo.EnsureUser(ctx, ownerID)
	if err != nil {
		return srs.Stats{}, err
	}
	now := s.now()
	notes, err := s.repo.ListStatsNotes(ctx, ownerID, srs.DayStart(now))
	if err != nil {
		return srs.Stats{}, fmt.Errorf("stats notes: %w", err)
	}
	events, err := s.repo.ListReviewEvents(ctx, ownerID, time.Time{})
	if err != nil {
		return srs.Stats{}, fmt.Errorf("stats events: %w", err)
	}
	outcomes := make([]srs.ReviewEvent, 0, len(events))
	for _, e := range events {
		outcomes = append(outcomes, e.Outcome())
	}
	return srs.ComputeStats(notes, u.Streak, outcomes, now), nil
}
