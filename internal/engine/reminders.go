package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Reminder tells a user how many notes are waiting for review.
type Reminder struct {
	UserID      string
	DueCount    int
	MostOverdue string
	NoteIDs     []string
}

// Notifier delivers reminders.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// LogNotifier writes reminders to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, r Reminder) error {
	log.Ctx(ctx).Info().
		Str("user", r.UserID).
		Int("due", r.DueCount).
		Str("most_overdue", r.MostOverdue).
		Msg("review-reminder")
	return nil
}

const reminderNoteIDs = 10

// SweepReminders notifies every user with reviews turned on who has due notes.
// Returns the number of reminders sent. A failure for one user does not stop
// the sweep.
func (e *Engine) SweepReminders(ctx context.Context) (int, error) {
	ids, err := e.DB.ListUserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("sweep reminders: %w", err)
	}

	logger := log.Ctx(ctx)
	sent := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		u, err := e.DB.GetUser(ctx, id)
		if err != nil {
			logger.Warn().Err(err).Str("user", id).Msg("reminder-user-failed")
			continue
		}
		if !u.Prefs.Enabled {
			continue
		}
		due, err := e.Reviews.Due(ctx, id, 0)
		if err != nil {
			logger.Warn().Err(err).Str("user", id).Msg("reminder-due-failed")
			continue
		}
		if len(due) == 0 {
			continue
		}
		r := Reminder{
			UserID:      id,
			DueCount:    len(due),
			MostOverdue: due[0].Title,
		}
		for _, n := range due[:min(len(due), reminderNoteIDs)] {
			r.NoteIDs = append(r.NoteIDs, n.ID)
		}
		if err := e.Notifier.Notify(ctx, r); err != nil {
			logger.Warn().Err(err).Str("user", id).Msg("reminder-notify-failed")
			continue
		}
		sent++
	}
	return sent, nil
}

// StartReminderTimer sweeps once immediately, then on every interval until
// Stop is called.
func (e *Engine) StartReminderTimer(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ctx := log.Logger.WithContext(context.Background())
	go func() {
		e.runSweep(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.runSweep(ctx)
			case <-e.stopCh:
				return
			}
		}
	}()
}

func (e *Engine) runSweep(ctx context.Context) {
	start := time.Now()
	n, err := e.SweepReminders(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("reminder-sweep-failed")
		return
	}
	log.Debug().Int("sent", n).Dur("took", time.Since(start)).Msg("reminder-sweep")
}
