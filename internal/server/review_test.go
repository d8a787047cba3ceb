package server

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/lumine/internal/review"
	"github.com/lazypower/lumine/internal/srs"
	"github.com/lazypower/lumine/internal/store"
)

func scheduledNote(t *testing.T, env *testEnv, user, title string) store.Note {
	t.Helper()
	return createNote(t, env, user, map[string]any{
		"title":            title,
		"spacedRepetition": map[string]any{"enabled": true, "interval": 1},
	})
}

func TestReviewFlow(t *testing.T) {
	env := newTestEnv(t)
	n := scheduledNote(t, env, "alice", "Closures")

	w := env.do(t, "alice", "POST", "/api/spaced-repetition/review", map[string]any{
		"noteId":       n.ID,
		"quality":      5,
		"responseTime": 1800,
		"requestId":    "req-1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[review.Result](t, w)
	assert.False(t, res.Duplicate)
	assert.Equal(t, 1, res.Note.SR.ReviewCount)
	assert.Equal(t, 1, res.Note.SR.IntervalDays)
	assert.InDelta(t, 2.6, res.Note.SR.EaseFactor, 1e-9)
	assert.Equal(t, 1, res.Streak.Count)
	assert.Equal(t, 2, res.DifficultyLabel)
	assert.Equal(t, int64(1800), res.Event.ResponseTimeMs)

	w = env.do(t, "alice", "POST", "/api/spaced-repetition/review", map[string]any{
		"noteId":    n.ID,
		"quality":   5,
		"requestId": "req-1",
	})
	require.Equal(t, http.StatusOK, w.Code)
	dup := decode[review.Result](t, w)
	assert.True(t, dup.Duplicate)
	assert.Equal(t, 1, dup.Note.SR.ReviewCount)

	stats := decode[srs.Stats](t, env.do(t, "alice", "GET", "/api/spaced-repetition/stats", nil))
	assert.Equal(t, 1, stats.TotalEnabled)
	assert.Equal(t, 1, stats.TotalReviews)
	assert.Equal(t, 1, stats.ReviewsToday)
	assert.Equal(t, 1, stats.Streak)
	assert.InDelta(t, 100.0, stats.Accuracy, 1e-9)
}

func TestReviewQualityZeroIsAccepted(t *testing.T) {
	env := newTestEnv(t)
	n := scheduledNote(t, env, "alice", "Hard")

	w := env.do(t, "alice", "POST", "/api/spaced-repetition/review", map[string]any{"noteId": n.ID, "quality": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[review.Result](t, w)
	assert.Equal(t, 1, res.Note.SR.IntervalDays)
	assert.Equal(t, 0, res.Note.SR.ReviewCount)
}

func TestReviewValidation(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"missing quality", map[string]any{"noteId": "n"}, "quality"},
		{"quality too high", map[string]any{"noteId": "n", "quality": 6}, "quality"},
		{"missing note", map[string]any{"quality": 3}, "noteId"},
		{"negative response time", map[string]any{"noteId": "n", "quality": 3, "responseTime": -1}, "responseTime"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "alice", "POST", "/api/spaced-repetition/review", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decode[errorBody](t, w)
			require.Len(t, body.Errors, 1)
			assert.Equal(t, tt.field, body.Errors[0].Field)
		})
	}

	w := env.do(t, "alice", "POST", "/api/spaced-repetition/review", map[string]any{"noteId": "ghost", "quality": 3})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSkipEnableDisable(t *testing.T) {
	env := newTestEnv(t)
	n := createNote(t, env, "alice", map[string]any{"title": "Toggle"})

	w := env.do(t, "alice", "POST", "/api/spaced-repetition/enable", map[string]any{"noteId": n.ID, "interval": 7})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	enabled := decode[store.Note](t, w)
	assert.True(t, enabled.SR.Enabled)
	assert.Equal(t, 7, enabled.SR.IntervalDays)

	w = env.do(t, "alice", "POST", "/api/spaced-repetition/skip", map[string]any{"noteId": n.ID})
	require.Equal(t, http.StatusOK, w.Code)
	skipped := decode[store.Note](t, w)
	require.NotNil(t, skipped.SR.NextReviewAt)
	assert.True(t, skipped.SR.NextReviewAt.Before(*enabled.SR.NextReviewAt))
	assert.Equal(t, 7, skipped.SR.IntervalDays)

	w = env.do(t, "alice", "POST", "/api/spaced-repetition/disable", map[string]any{"noteId": n.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[store.Note](t, w).SR.Enabled)

	w = env.do(t, "bob", "POST", "/api/spaced-repetition/skip", map[string]any{"noteId": n.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, "alice", "POST", "/api/spaced-repetition/enable", map[string]any{"noteId": n.ID, "interval": 366})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionAndDue(t *testing.T) {
	env := newTestEnv(t)
	ctx := t.Context()
	for _, title := range []string{"a", "b", "c"} {
		n := scheduledNote(t, env, "alice", title)
		stored, err := env.db.GetNote(ctx, "alice", n.ID)
		require.NoError(t, err)
		past := stored.SR.NextReviewAt.AddDate(0, 0, -2)
		stored.SR.NextReviewAt = &past
		require.NoError(t, env.db.UpdateScheduling(ctx, stored))
	}
	scheduledNote(t, env, "alice", "not yet due")

	due := decode[noteList](t, env.do(t, "alice", "GET", "/api/notes/spaced-repetition/due", nil))
	assert.Equal(t, 3, due.Count)
	due = decode[noteList](t, env.do(t, "alice", "GET", "/api/notes/spaced-repetition/due?limit=2", nil))
	assert.Equal(t, 2, due.Count)

	session := decode[review.Session](t, env.do(t, "alice", "GET", "/api/spaced-repetition/session?size=2", nil))
	assert.Len(t, session.Notes, 2)
	assert.Equal(t, 3, session.TotalDue)

	session = decode[review.Session](t, env.do(t, "alice", "GET", "/api/spaced-repetition/session", nil))
	assert.Len(t, session.Notes, 3)

	w := env.do(t, "alice", "GET", "/api/spaced-repetition/session?size=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
