package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/lumine/internal/srs"
)

func reviewNote(t *testing.T, n *Note, quality int, at time.Time) {
	t.Helper()
	next, err := srs.ApplyReview(n.SR, quality, at)
	require.NoError(t, err)
	n.SR = next
}

func TestSaveReview(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "recall")

	at := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)
	reviewNote(t, n, 5, at)
	ev := &ReviewEvent{Quality: 5, ResponseTimeMs: 2300, RequestID: "req-1"}
	require.NoError(t, db.SaveReview(ctx, n, ev))

	assert.NotZero(t, ev.ID)
	assert.Equal(t, n.ID, ev.NoteID)
	assert.Equal(t, 1, ev.IntervalDays)
	assert.Equal(t, at.UnixMilli(), ev.ReviewedAt)
	assert.Equal(t, at.AddDate(0, 0, 1).UnixMilli(), ev.NextReview)
	assert.Equal(t, int64(2), n.Version)

	got, err := db.GetReviewByRequest(ctx, "alice", "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, 2300, int(got.ResponseTimeMs))
	assert.True(t, got.Outcome().Passed())

	stored, err := db.GetNote(ctx, "alice", n.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.SR.ReviewCount)
}

func TestSaveReviewDuplicateRequestRollsBack(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "dup")

	at := time.Now()
	reviewNote(t, n, 4, at)
	require.NoError(t, db.SaveReview(ctx, n, &ReviewEvent{Quality: 4, RequestID: "same"}))

	reviewNote(t, n, 4, at)
	err := db.SaveReview(ctx, n, &ReviewEvent{Quality: 4, RequestID: "same"})
	assert.ErrorIs(t, err, ErrConflict)

	stored, err := db.GetNote(ctx, "alice", n.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.SR.ReviewCount, "second write rolled back")
	assert.Equal(t, int64(2), stored.Version)
}

func TestSaveReviewStaleVersion(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "stale")
	stale := *n

	reviewNote(t, n, 5, time.Now())
	require.NoError(t, db.SaveReview(ctx, n, &ReviewEvent{Quality: 5}))

	reviewNote(t, &stale, 1, time.Now())
	assert.ErrorIs(t, db.SaveReview(ctx, &stale, &ReviewEvent{Quality: 1}), ErrConflict)

	events, err := db.ListNoteReviews(ctx, "alice", n.ID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSaveReviewRequiresTimestamps(t *testing.T) {
	db := testDB(t)
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "untouched")
	err := db.SaveReview(context.Background(), n, &ReviewEvent{Quality: 3})
	assert.ErrorIs(t, err, srs.ErrInvalidInput)
}

func TestRequestIDsAreScopedPerOwner(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	testUser(t, db, "bob")
	a := createNote(t, db, "alice", "a")
	b := createNote(t, db, "bob", "b")

	reviewNote(t, a, 3, time.Now())
	reviewNote(t, b, 3, time.Now())
	require.NoError(t, db.SaveReview(ctx, a, &ReviewEvent{Quality: 3, RequestID: "r"}))
	require.NoError(t, db.SaveReview(ctx, b, &ReviewEvent{Quality: 3, RequestID: "r"}))

	// empty request IDs never collide
	reviewNote(t, a, 3, time.Now())
	require.NoError(t, db.SaveReview(ctx, a, &ReviewEvent{Quality: 3}))
	reviewNote(t, a, 3, time.Now())
	require.NoError(t, db.SaveReview(ctx, a, &ReviewEvent{Quality: 3}))

	missing, err := db.GetReviewByRequest(ctx, "alice", "")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestListReviewEventsSince(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "history")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, q := range []int{5, 2, 4} {
		reviewNote(t, n, q, base.AddDate(0, 0, i))
		require.NoError(t, db.SaveReview(ctx, n, &ReviewEvent{Quality: q}))
	}

	events, err := db.ListReviewEvents(ctx, "alice", base.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 4, events[0].Quality, "newest first")
	assert.Equal(t, 2, events[1].Quality)

	all, err := db.ListNoteReviews(ctx, "alice", n.ID)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, 5, all[0].Quality)
}
