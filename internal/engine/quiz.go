package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lazypower/lumine/internal/llm"
	"github.com/lazypower/lumine/internal/store"
)

const (
	DefaultQuestionCount = 5
	MaxQuestionCount     = 20
	DefaultDifficulty    = 3
)

// QuizOptions shape a generated quiz. Zero values pick defaults.
type QuizOptions struct {
	Count      int
	Difficulty int
}

func (o QuizOptions) normalize() QuizOptions {
	if o.Count <= 0 {
		o.Count = DefaultQuestionCount
	}
	o.Count = min(o.Count, MaxQuestionCount)
	if o.Difficulty < 1 || o.Difficulty > 5 {
		o.Difficulty = DefaultDifficulty
	}
	return o
}

// GenerateQuiz builds and saves a quiz from one of owner's notes. When the
// provider's reply has no usable questions, questions derived from the note
// itself are used instead.
func (e *Engine) GenerateQuiz(ctx context.Context, ownerID, noteID string, opts QuizOptions) (*store.Quiz, error) {
	opts = opts.normalize()
	note, err := e.DB.GetNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}

	reply, err := e.complete(ctx, llm.QuizPrompt(note.Title, note.Content, opts.Count, opts.Difficulty))
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}

	logger := log.Ctx(ctx)
	questions, err := parseQuestions(reply)
	if err != nil {
		logger.Warn().Err(err).Str("note", noteID).Msg("quiz-parse-failed")
	}
	var kept []store.Question
	for _, q := range questions {
		vq, err := validateQuestion(q, opts.Difficulty)
		if err != nil {
			logger.Debug().Err(err).Msg("quiz-question-rejected")
			continue
		}
		kept = append(kept, vq)
		if len(kept) == opts.Count {
			break
		}
	}
	if len(kept) == 0 {
		kept = fallbackQuestions(note, opts.Difficulty)
		logger.Info().Str("note", noteID).Msg("quiz-fallback-used")
	}

	quiz := &store.Quiz{
		OwnerID:     ownerID,
		Title:       "Quiz: " + note.Title,
		SourceNote:  note.ID,
		Questions:   kept,
		AIGenerated: true,
	}
	if err := e.DB.CreateQuiz(ctx, quiz); err != nil {
		return nil, err
	}
	logger.Info().Str("quiz", quiz.ID).Int("questions", len(kept)).Msg("ai-quiz-generated")
	return quiz, nil
}

// fallbackQuestions derives a minimal quiz from the note without the provider.
func fallbackQuestions(n *store.Note, difficulty int) []store.Question {
	qs := []store.Question{{
		Question:      fmt.Sprintf("What is the main topic of: %s?", n.Title),
		Type:          store.QuestionShortAnswer,
		CorrectAnswer: n.Title,
		Explanation:   "Based on the note title and content",
		Difficulty:    difficulty,
	}}
	if line := firstContentLine(n.Content); line != "" {
		qs = append(qs, store.Question{
			Question:      fmt.Sprintf("Recall the opening point of %q.", n.Title),
			Type:          store.QuestionFlashcard,
			CorrectAnswer: truncateClean(line, maxAnswerChars),
			Difficulty:    difficulty,
		})
	}
	return qs
}

func firstContentLine(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "#*->"))
		if line != "" {
			return line
		}
	}
	return ""
}
