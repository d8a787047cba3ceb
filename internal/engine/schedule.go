package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lazypower/lumine/internal/llm"
	"github.com/lazypower/lumine/internal/srs"
)

const (
	maxSuggestedInterval = 365
	maxHistoryItems      = 20
)

var (
	fallbackLadder = []int{1, 3, 7, 14, 30}
	errNoIntervals = errors.New("no intervals in response")
)

// SuggestSchedule proposes review intervals in days for one of owner's notes.
// A difficulty outside 1..5 is derived from the note's ease factor. When the
// provider's reply cannot be used, a ladder scaled by difficulty is returned.
func (e *Engine) SuggestSchedule(ctx context.Context, ownerID, noteID string, difficulty int) ([]int, error) {
	note, err := e.DB.GetNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}
	if difficulty < 1 || difficulty > 5 {
		difficulty = srs.DifficultyLabel(note.SR.EaseFactor)
	}

	events, err := e.DB.ListNoteReviews(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}
	if len(events) > maxHistoryItems {
		events = events[len(events)-maxHistoryItems:]
	}
	history := make([]string, len(events))
	for i, ev := range events {
		history[i] = strconv.Itoa(ev.Quality)
	}

	reply, err := e.complete(ctx, llm.SchedulePrompt(note.Title, difficulty, strings.Join(history, ", ")))
	if err != nil {
		return nil, fmt.Errorf("suggest schedule: %w", err)
	}
	intervals, err := parseIntervals(reply)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("note", noteID).Msg("schedule-parse-failed")
		return fallbackSchedule(difficulty), nil
	}
	return intervals, nil
}

// parseIntervals reads {"intervals": [...]} and clamps each entry to 1..365.
func parseIntervals(reply string) ([]int, error) {
	jsonStr, err := extractJSON(reply, "{", "}")
	if err != nil {
		return nil, err
	}
	var out struct {
		Intervals []float64 `json:"intervals"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &out); err != nil {
		return nil, fmt.Errorf("unmarshal intervals: %w", err)
	}
	if len(out.Intervals) == 0 {
		return nil, errNoIntervals
	}
	intervals := make([]int, len(out.Intervals))
	for i, v := range out.Intervals {
		intervals[i] = min(max(int(v), 1), maxSuggestedInterval)
	}
	return intervals, nil
}

// fallbackSchedule scales the default ladder so easier notes wait longer.
func fallbackSchedule(difficulty int) []int {
	factor := float64(6-difficulty) / 3
	intervals := make([]int, len(fallbackLadder))
	for i, d := range fallbackLadder {
		intervals[i] = max(int(float64(d)*factor), 1)
	}
	return intervals
}
