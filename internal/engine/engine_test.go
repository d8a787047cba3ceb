package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazypower/lumine/internal/llm"
	"github.com/lazypower/lumine/internal/review"
	"github.com/lazypower/lumine/internal/srs"
	"github.com/lazypower/lumine/internal/store"
)

func testEngine(t *testing.T, reply string) (*Engine, *llm.MockClient) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock := &llm.MockClient{Response: &llm.Response{Content: reply, Provider: "mock"}}
	reviews := review.New(db, review.Options{Location: time.UTC})
	return New(db, mock, reviews), mock
}

func seedNote(t *testing.T, e *Engine, owner string, n *store.Note) *store.Note {
	t.Helper()
	ctx := context.Background()
	_, err := e.DB.EnsureUser(ctx, owner)
	require.NoError(t, err)
	n.OwnerID = owner
	require.NoError(t, e.DB.CreateNote(ctx, n))
	return n
}

func TestGenerateNote(t *testing.T) {
	e, mock := testEngine(t, "```markdown\n# Goroutines\n\nLightweight threads.\n```")
	n, err := e.GenerateNote(context.Background(), "alice", "goroutines in go", "go")
	require.NoError(t, err)

	assert.Equal(t, "Goroutines", n.Title)
	assert.Equal(t, "# Goroutines\n\nLightweight threads.", n.Content)
	assert.True(t, n.AIGenerated)
	assert.True(t, n.IsMarkdown)
	assert.Equal(t, "go", n.Category)
	require.Len(t, mock.Calls, 1)
	assert.Contains(t, mock.Calls[0], "goroutines in go")

	stored, err := e.DB.GetNote(context.Background(), "alice", n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.Title, stored.Title)
	_, err = e.DB.GetUser(context.Background(), "alice")
	assert.NoError(t, err, "generating a note creates its owner")
}

func TestNoteTitleFallsBackToTopic(t *testing.T) {
	topic := strings.Repeat("é", 150)
	assert.Equal(t, strings.Repeat("é", maxTopicTitle), noteTitle("no heading here", topic))
	assert.Equal(t, "Real", noteTitle("intro\n# Real\nbody", topic))
}

func TestRequiresText(t *testing.T) {
	e, mock := testEngine(t, "x")
	ctx := context.Background()

	_, err := e.GenerateNote(ctx, "alice", "   ", "")
	assert.ErrorIs(t, err, srs.ErrInvalidInput)
	_, err = e.EnhanceNote(ctx, "", "shorter")
	assert.ErrorIs(t, err, srs.ErrInvalidInput)
	_, err = e.Summarize(ctx, "\n")
	assert.ErrorIs(t, err, srs.ErrInvalidInput)
	_, err = e.SuggestTags(ctx, "")
	assert.ErrorIs(t, err, srs.ErrInvalidInput)
	assert.Empty(t, mock.Calls)
}

func TestUnavailableProvider(t *testing.T) {
	e, mock := testEngine(t, "x")
	ctx := context.Background()

	mock.Unavailable = true
	_, err := e.Summarize(ctx, "body")
	assert.ErrorIs(t, err, llm.ErrUnavailable)
	assert.Empty(t, mock.Calls)

	mock.Unavailable = false
	mock.Err = errors.New("connection refused")
	_, err = e.Summarize(ctx, "body")
	assert.ErrorIs(t, err, llm.ErrUnavailable)

	e.LLM = nil
	assert.False(t, e.Available())
	_, err = e.EnhanceNote(ctx, "body", "")
	assert.ErrorIs(t, err, llm.ErrUnavailable)
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []string
	}{
		{"comma list", "Go, Concurrency, channels", []string{"go", "concurrency", "channels"}},
		{"prefixed", "Tags: #go, #testing", []string{"go", "testing"}},
		{"bullets", "- Go\n- Maps\n* Slices", []string{"go", "maps", "slices"}},
		{"dedup and cap", "a, b, A, c, d, e, f, g", []string{"a", "b", "c", "d", "e"}},
		{"quoted", `"sql", 'db'`, []string{"sql", "db"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseTags(tt.reply))
		})
	}
}

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name    string
		in      store.Question
		want    store.Question
		wantErr bool
	}{
		{
			name: "letter answer resolves",
			in:   store.Question{Question: "Q?", Type: "multiple-choice", Options: []string{"a", "b", "b", " "}, CorrectAnswer: "B)"},
			want: store.Question{Question: "Q?", Type: "multiple-choice", Options: []string{"a", "b"}, CorrectAnswer: "b", Difficulty: 3},
		},
		{
			name: "case folded answer",
			in:   store.Question{Question: "Q?", Options: []string{"Paris", "Rome"}, CorrectAnswer: "paris", Difficulty: 5},
			want: store.Question{Question: "Q?", Type: "multiple-choice", Options: []string{"Paris", "Rome"}, CorrectAnswer: "Paris", Difficulty: 5},
		},
		{
			name: "true false normalized",
			in:   store.Question{Question: "Q?", Type: "true-false", CorrectAnswer: "yes"},
			want: store.Question{Question: "Q?", Type: "true-false", Options: []string{"True", "False"}, CorrectAnswer: "True", Difficulty: 3},
		},
		{
			name: "unknown type without options",
			in:   store.Question{Question: "Q?", Type: "essay", CorrectAnswer: "A", Options: nil},
			want: store.Question{Question: "Q?", Type: "short-answer", CorrectAnswer: "A", Difficulty: 3},
		},
		{name: "empty question", in: store.Question{CorrectAnswer: "a"}, wantErr: true},
		{name: "no answer", in: store.Question{Question: "Q?"}, wantErr: true},
		{name: "one option", in: store.Question{Question: "Q?", Type: "multiple-choice", Options: []string{"a"}, CorrectAnswer: "a"}, wantErr: true},
		{name: "answer not an option", in: store.Question{Question: "Q?", Type: "multiple-choice", Options: []string{"a", "b"}, CorrectAnswer: "z"}, wantErr: true},
		{name: "bad true false", in: store.Question{Question: "Q?", Type: "true-false", CorrectAnswer: "maybe"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := validateQuestion(tt.in, 3)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidateQuestionTruncates(t *testing.T) {
	long := strings.Repeat("word ", 400)
	got, err := validateQuestion(store.Question{Question: long, Type: "flashcard", CorrectAnswer: long}, 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got.Question), maxQuestionChars)
	assert.LessOrEqual(t, len(got.CorrectAnswer), maxAnswerChars)
	assert.False(t, strings.HasSuffix(got.CorrectAnswer, " "))
}

func TestGenerateQuiz(t *testing.T) {
	reply := "Here you go:\n```json\n" + `[
		{"question":"Capital of France?","type":"multiple-choice","options":["Paris","Rome"],"correctAnswer":"A","difficulty":2},
		{"question":"","type":"flashcard","correctAnswer":"dropped"},
		{"question":"Go has generics","type":"true-false","correctAnswer":"true"}
	]` + "\n```"
	e, mock := testEngine(t, reply)
	n := seedNote(t, e, "alice", &store.Note{Title: "Europe", Content: "Paris is the capital."})

	quiz, err := e.GenerateQuiz(context.Background(), "alice", n.ID, QuizOptions{Count: 2, Difficulty: 4})
	require.NoError(t, err)
	assert.Equal(t, "Quiz: Europe", quiz.Title)
	assert.Equal(t, n.ID, quiz.SourceNote)
	assert.True(t, quiz.AIGenerated)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "Paris", quiz.Questions[0].CorrectAnswer)
	assert.Equal(t, 2, quiz.Questions[0].Difficulty)
	assert.Equal(t, 4, quiz.Questions[1].Difficulty)
	assert.Contains(t, mock.Calls[0], "create 2 quiz")

	stored, err := e.DB.GetQuiz(context.Background(), "alice", quiz.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Questions, 2)
}

func TestGenerateQuizFallback(t *testing.T) {
	e, _ := testEngine(t, "I cannot produce JSON today.")
	n := seedNote(t, e, "alice", &store.Note{Title: "Channels", Content: "\n## Basics\nChannels connect goroutines."})

	quiz, err := e.GenerateQuiz(context.Background(), "alice", n.ID, QuizOptions{})
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, "What is the main topic of: Channels?", quiz.Questions[0].Question)
	assert.Equal(t, store.QuestionShortAnswer, quiz.Questions[0].Type)
	assert.Equal(t, store.QuestionFlashcard, quiz.Questions[1].Type)
	assert.Equal(t, "Basics", quiz.Questions[1].CorrectAnswer)
	assert.Equal(t, DefaultDifficulty, quiz.Questions[1].Difficulty)
}

func TestGenerateQuizOtherOwner(t *testing.T) {
	e, mock := testEngine(t, "[]")
	n := seedNote(t, e, "alice", &store.Note{Title: "Private"})

	_, err := e.GenerateQuiz(context.Background(), "bob", n.ID, QuizOptions{})
	assert.ErrorIs(t, err, srs.ErrNotFound)
	assert.Empty(t, mock.Calls)
}

func TestQuizOptionsNormalize(t *testing.T) {
	assert.Equal(t, QuizOptions{Count: 5, Difficulty: 3}, QuizOptions{}.normalize())
	assert.Equal(t, QuizOptions{Count: 20, Difficulty: 3}, QuizOptions{Count: 50, Difficulty: 9}.normalize())
	assert.Equal(t, QuizOptions{Count: 1, Difficulty: 1}, QuizOptions{Count: 1, Difficulty: 1}.normalize())
}

func TestSuggestSchedule(t *testing.T) {
	e, mock := testEngine(t, `Sure! {"intervals": [0, 2, 9.7, 900]}`)
	n := seedNote(t, e, "alice", &store.Note{Title: "Hard topic"})

	intervals, err := e.SuggestSchedule(context.Background(), "alice", n.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 9, 365}, intervals)
	assert.Contains(t, mock.Calls[0], "no reviews yet")
	assert.Contains(t, mock.Calls[0], "(2/5)")
}

func TestSuggestScheduleFallback(t *testing.T) {
	tests := []struct {
		difficulty int
		want       []int
	}{
		{1, []int{1, 5, 11, 23, 50}},
		{3, []int{1, 3, 7, 14, 30}},
		{5, []int{1, 1, 2, 4, 10}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fallbackSchedule(tt.difficulty), "difficulty %d", tt.difficulty)
	}

	e, _ := testEngine(t, `{"intervals": []}`)
	n := seedNote(t, e, "alice", &store.Note{Title: "T"})
	intervals, err := e.SuggestSchedule(context.Background(), "alice", n.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, fallbackSchedule(5), intervals)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []Reminder
}

func (r *recordingNotifier) Notify(_ context.Context, rem Reminder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, rem)
	return nil
}

func TestSweepReminders(t *testing.T) {
	e, _ := testEngine(t, "")
	rec := &recordingNotifier{}
	e.Notifier = rec
	ctx := context.Background()

	past := time.Now().Add(-48 * time.Hour)
	older := time.Now().Add(-96 * time.Hour)
	due := srs.State{Enabled: true, EaseFactor: 2.5, IntervalDays: 1, NextReviewAt: &past}
	oldest := srs.State{Enabled: true, EaseFactor: 2.5, IntervalDays: 1, NextReviewAt: &older}

	seedNote(t, e, "alice", &store.Note{Title: "recent", SR: due})
	seedNote(t, e, "alice", &store.Note{Title: "oldest", SR: oldest})
	seedNote(t, e, "bob", &store.Note{Title: "not enabled"})
	seedNote(t, e, "carol", &store.Note{Title: "muted", SR: due})
	require.NoError(t, e.DB.UpdatePreferences(ctx, "carol", store.Preferences{Enabled: false}))

	sent, err := e.SweepReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "alice", rec.sent[0].UserID)
	assert.Equal(t, 2, rec.sent[0].DueCount)
	assert.Equal(t, "oldest", rec.sent[0].MostOverdue)
	assert.Len(t, rec.sent[0].NoteIDs, 2)
}

func TestReminderTimerStops(t *testing.T) {
	e, _ := testEngine(t, "")
	rec := &recordingNotifier{}
	e.Notifier = rec
	past := time.Now().Add(-time.Hour)
	seedNote(t, e, "alice", &store.Note{Title: "due", SR: srs.State{Enabled: true, EaseFactor: 2.5, IntervalDays: 1, NextReviewAt: &past}})

	e.StartReminderTimer(time.Hour)
	assert.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.sent) == 1
	}, time.Second, 5*time.Millisecond)
	e.Stop()
	e.Stop()
}
