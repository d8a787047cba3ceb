package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/lumine/internal/srs"
)

func createNote(t *testing.T, db *DB, owner, title string, tags ...string) *Note {
	t.Helper()
	n := &Note{OwnerID: owner, Title: title, Content: "content of " + title, Tags: tags, IsMarkdown: true}
	require.NoError(t, db.CreateNote(context.Background(), n))
	return n
}

func TestCreateNoteDefaults(t *testing.T) {
	db := testDB(t)
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "Go channels", " Go ", "CONCURRENCY", "go", "")

	assert.NotEmpty(t, n.ID)
	assert.Equal(t, int64(1), n.Version)
	assert.Equal(t, "general", n.Category)
	assert.Equal(t, []string{"go", "concurrency"}, n.Tags)
	assert.Equal(t, srs.NewState(), n.SR)

	got, err := db.GetNote(context.Background(), "alice", n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Title, got.Title)
	assert.Equal(t, n.Tags, got.Tags)
	assert.Equal(t, srs.NewState(), got.SR)
	assert.True(t, got.IsMarkdown)
}

func TestGetNoteScopedToOwner(t *testing.T) {
	db := testDB(t)
	testUser(t, db, "alice")
	testUser(t, db, "bob")
	n := createNote(t, db, "alice", "private")

	_, err := db.GetNote(context.Background(), "bob", n.ID)
	assert.ErrorIs(t, err, srs.ErrNotFound)
}

func TestSchedulingRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "ease")

	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	next, err := srs.ApplyReview(srs.Enable(n.SR, now, 3), 5, now)
	require.NoError(t, err)
	n.SR = next
	require.NoError(t, db.UpdateScheduling(ctx, n))
	assert.Equal(t, int64(2), n.Version)

	got, err := db.GetNote(ctx, "alice", n.ID)
	require.NoError(t, err)
	assert.True(t, got.SR.Enabled)
	assert.InDelta(t, 2.6, got.SR.EaseFactor, 1e-9)
	assert.Equal(t, 1, got.SR.IntervalDays)
	assert.Equal(t, 1, got.SR.ReviewCount)
	assert.True(t, now.Equal(*got.SR.LastReviewedAt))
	assert.True(t, now.AddDate(0, 0, 1).Equal(*got.SR.NextReviewAt))
	assert.Equal(t, int64(2), got.Version)
}

func TestUpdateSchedulingStaleVersion(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "race")

	a, err := db.GetNote(ctx, "alice", n.ID)
	require.NoError(t, err)
	b, err := db.GetNote(ctx, "alice", n.ID)
	require.NoError(t, err)

	a.SR = srs.Skip(a.SR, time.Now())
	require.NoError(t, db.UpdateScheduling(ctx, a))

	b.SR = srs.Disable(b.SR)
	err = db.UpdateScheduling(ctx, b)
	assert.ErrorIs(t, err, ErrConflict)

	missing := &Note{ID: "nope", OwnerID: "alice", Version: 1}
	assert.ErrorIs(t, db.UpdateScheduling(ctx, missing), srs.ErrNotFound)
}

func TestUpdateNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "draft")

	n.Title = "final"
	n.Tags = []string{"Done"}
	n.IsPinned = true
	require.NoError(t, db.UpdateNote(ctx, n))
	assert.Equal(t, int64(2), n.Version)

	got, err := db.GetNote(ctx, "alice", n.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, []string{"done"}, got.Tags)
	assert.True(t, got.IsPinned)

	n.Version = 1
	assert.ErrorIs(t, db.UpdateNote(ctx, n), ErrConflict)
}

func TestListNotesFiltersAndOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	testUser(t, db, "bob")

	first := createNote(t, db, "alice", "Rust lifetimes", "rust")
	time.Sleep(2 * time.Millisecond)
	second := createNote(t, db, "alice", "Go generics", "go")
	time.Sleep(2 * time.Millisecond)
	pinned := createNote(t, db, "alice", "100% coverage", "testing")
	pinned.IsPinned = true
	require.NoError(t, db.UpdateNote(ctx, pinned))
	archived := createNote(t, db, "alice", "old", "go")
	archived.IsArchived = true
	require.NoError(t, db.UpdateNote(ctx, archived))
	createNote(t, db, "bob", "Go for bob", "go")

	all, err := db.ListNotes(ctx, "alice", NoteFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{pinned.ID, second.ID, first.ID}, []string{all[0].ID, all[1].ID, all[2].ID})

	byTag, err := db.ListNotes(ctx, "alice", NoteFilter{Tag: "GO"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, second.ID, byTag[0].ID)

	bySearch, err := db.ListNotes(ctx, "alice", NoteFilter{Search: "lifetimes"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, first.ID, bySearch[0].ID)

	// % is matched literally
	byPercent, err := db.ListNotes(ctx, "alice", NoteFilter{Search: "100%"})
	require.NoError(t, err)
	require.Len(t, byPercent, 1)
	assert.Equal(t, pinned.ID, byPercent[0].ID)

	onlyArchived, err := db.ListNotes(ctx, "alice", NoteFilter{Archived: true})
	require.NoError(t, err)
	require.Len(t, onlyArchived, 1)

	page, err := db.ListNotes(ctx, "alice", NoteFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)
}

func TestListScheduled(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	now := time.Now()

	on := createNote(t, db, "alice", "on")
	on.SR = srs.Enable(on.SR, now, 3)
	require.NoError(t, db.UpdateScheduling(ctx, on))
	createNote(t, db, "alice", "off")

	got, err := db.ListScheduled(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, on.ID, got[0].ID)
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	n := createNote(t, db, "alice", "bye")

	assert.ErrorIs(t, db.DeleteNote(ctx, "bob", n.ID), srs.ErrNotFound)
	require.NoError(t, db.DeleteNote(ctx, "alice", n.ID))
	_, err := db.GetNote(ctx, "alice", n.ID)
	assert.ErrorIs(t, err, srs.ErrNotFound)
	assert.ErrorIs(t, db.DeleteNote(ctx, "alice", n.ID), srs.ErrNotFound)
}

func TestListStatsNotes(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	testUser(t, db, "alice")
	now := time.Now()

	on := createNote(t, db, "alice", "on")
	on.SR = srs.Enable(on.SR, now, 3)
	require.NoError(t, db.UpdateScheduling(ctx, on))

	dropped := createNote(t, db, "alice", "dropped")
	reviewed, err := srs.ApplyReview(srs.Enable(dropped.SR, now, 1), 4, now)
	require.NoError(t, err)
	dropped.SR = srs.Disable(reviewed)
	require.NoError(t, db.UpdateScheduling(ctx, dropped))
	createNote(t, db, "alice", "untouched")

	got, err := db.ListStatsNotes(ctx, "alice", srs.DayStart(now))
	require.NoError(t, err)
	var ids []string
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []string{on.ID, dropped.ID}, ids)

	got, err = db.ListStatsNotes(ctx, "alice", now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, on.ID, got[0].ID)
}
