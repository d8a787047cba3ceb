package srs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type card struct {
	id    string
	state State
}

func (c card) ItemID() string  { return c.id }
func (c card) Schedule() State { return c.state }

func dueAt(id string, at time.Time) card {
	return card{id: id, state: State{Enabled: true, EaseFactor: 2.5, IntervalDays: 1, NextReviewAt: &at}}
}

func ids(cards []card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.id)
	}
	return out
}

func TestSelectDueOrdering(t *testing.T) {
	now := day0
	items := []card{
		dueAt("now", now),
		dueAt("yesterday", now.AddDate(0, 0, -1)),
		dueAt("tomorrow", now.AddDate(0, 0, 1)),
	}

	got := SelectDue(items, now)
	assert.Equal(t, []string{"yesterday", "now"}, ids(got))
}

func TestSelectDueSkipsDisabledAndUnscheduled(t *testing.T) {
	now := day0
	disabled := dueAt("disabled", now.AddDate(0, 0, -5))
	disabled.state.Enabled = false
	unscheduled := card{id: "unscheduled", state: State{Enabled: true, EaseFactor: 2.5, IntervalDays: 3}}

	got := SelectDue([]card{disabled, unscheduled, dueAt("due", now.Add(-time.Minute))}, now)
	assert.Equal(t, []string{"due"}, ids(got))
}

func TestSelectDueBreaksTiesByID(t *testing.T) {
	at := day0.AddDate(0, 0, -2)
	items := []card{dueAt("c", at), dueAt("a", at), dueAt("b", at)}

	got := SelectDue(items, day0)
	assert.Equal(t, []string{"a", "b", "c"}, ids(got))
}

func TestSelectDueComparesInstantsAcrossZones(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	early := day0.Add(-2 * time.Hour).In(tokyo)
	late := day0.Add(-time.Hour)

	got := SelectDue([]card{dueAt("late", late), dueAt("early", early)}, day0)
	assert.Equal(t, []string{"early", "late"}, ids(got))
}

func TestSelectDueEmpty(t *testing.T) {
	got := SelectDue([]card(nil), day0)
	assert.Empty(t, got)
}

func TestBuildSession(t *testing.T) {
	var due []card
	for i := 0; i < 25; i++ {
		due = append(due, dueAt(string(rune('a'+i)), day0.Add(time.Duration(i)*time.Minute)))
	}

	tests := []struct {
		name    string
		due     []card
		maxSize int
		want    int
	}{
		{name: "default cap", due: due, maxSize: 0, want: DefaultSessionSize},
		{name: "explicit cap", due: due, maxSize: 5, want: 5},
		{name: "fewer than cap", due: due[:3], maxSize: 20, want: 3},
		{name: "exact", due: due[:20], maxSize: 20, want: 20},
		{name: "empty", due: nil, maxSize: 20, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildSession(tt.due, tt.maxSize)
			require.Len(t, got, tt.want)
			if tt.want > 0 {
				assert.Equal(t, tt.due[0].id, got[0].id, "keeps order")
			}
		})
	}
}

func TestLifecycleFromCreationToFirstReview(t *testing.T) {
	item := card{id: "note-1", state: NewState()}

	item.state = Enable(item.state, day0, 3)
	day3 := day0.AddDate(0, 0, 3)
	assert.Equal(t, day3, *item.state.NextReviewAt)

	assert.Empty(t, SelectDue([]card{item}, day0.AddDate(0, 0, 2)))
	due := SelectDue([]card{item}, day3)
	require.Len(t, due, 1)
	assert.Equal(t, "note-1", due[0].id)

	next, err := ApplyReview(due[0].state, 4, day3)
	require.NoError(t, err)
	assert.Equal(t, 1, next.IntervalDays)
	assert.Equal(t, 1, next.ReviewCount)
	assert.Equal(t, day0.AddDate(0, 0, 4), *next.NextReviewAt)
	// quality 4 leaves ease exactly where it was
	assert.GreaterOrEqual(t, next.EaseFactor, 2.5)
	assert.InDelta(t, 2.5, next.EaseFactor, 1e-9)
}
