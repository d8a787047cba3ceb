package engine

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/lazypower/lumine/internal/store"
)

// Content size limits for generated quiz questions.
const (
	maxQuestionChars    = 1000
	maxAnswerChars      = 500
	maxExplanationChars = 2000
	maxOptions          = 6
)

var validQuestionTypes = map[string]bool{
	store.QuestionMultipleChoice: true,
	store.QuestionTrueFalse:      true,
	store.QuestionShortAnswer:    true,
	store.QuestionFlashcard:      true,
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		lines := strings.Split(content, "\n")
		// Remove first and last lines (```json and ```)
		if len(lines) > 2 {
			content = strings.Join(lines[1:len(lines)-1], "\n")
		}
	}
	return strings.TrimSpace(content)
}

// extractJSON returns the outermost span delimited by opening and closing.
func extractJSON(content, opening, closing string) (string, error) {
	content = stripFences(content)
	start := strings.Index(content, opening)
	end := strings.LastIndex(content, closing)
	if start < 0 || end < 0 || end <= start {
		return "", fmt.Errorf("no JSON %s%s found in response", opening, closing)
	}
	return content[start : end+1], nil
}

// parseQuestions extracts a JSON array of questions from the LLM response.
func parseQuestions(content string) ([]store.Question, error) {
	jsonStr, err := extractJSON(content, "[", "]")
	if err != nil {
		return nil, err
	}
	var questions []store.Question
	if err := json.Unmarshal([]byte(jsonStr), &questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return questions, nil
}

// validateQuestion checks a generated question for obvious garbage.
// Returns a cleaned copy and an error if the question should be dropped.
func validateQuestion(q store.Question, difficulty int) (store.Question, error) {
	q.Question = strings.TrimSpace(q.Question)
	if q.Question == "" {
		return q, fmt.Errorf("empty question")
	}
	q.CorrectAnswer = strings.TrimSpace(q.CorrectAnswer)
	if q.CorrectAnswer == "" {
		return q, fmt.Errorf("no correct answer for %q", q.Question)
	}
	q.Explanation = strings.TrimSpace(q.Explanation)

	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	if !validQuestionTypes[q.Type] {
		if len(q.Options) > 0 {
			q.Type = store.QuestionMultipleChoice
		} else {
			q.Type = store.QuestionShortAnswer
		}
	}

	switch q.Type {
	case store.QuestionMultipleChoice:
		opts := q.Options[:0:0]
		for _, o := range q.Options {
			if o = strings.TrimSpace(o); o != "" && !slices.Contains(opts, o) {
				opts = append(opts, o)
			}
		}
		if len(opts) < 2 {
			return q, fmt.Errorf("multiple choice %q has %d options", q.Question, len(opts))
		}
		if len(opts) > maxOptions {
			opts = opts[:maxOptions]
		}
		answer, ok := resolveAnswer(q.CorrectAnswer, opts)
		if !ok {
			return q, fmt.Errorf("answer %q is not an option of %q", q.CorrectAnswer, q.Question)
		}
		q.Options, q.CorrectAnswer = opts, answer
	case store.QuestionTrueFalse:
		switch strings.ToLower(q.CorrectAnswer) {
		case "true", "t", "yes":
			q.CorrectAnswer = "True"
		case "false", "f", "no":
			q.CorrectAnswer = "False"
		default:
			return q, fmt.Errorf("true/false answer %q", q.CorrectAnswer)
		}
		q.Options = []string{"True", "False"}
	default:
		q.Options = nil
	}

	if q.Difficulty < 1 || q.Difficulty > 5 {
		q.Difficulty = difficulty
	}

	// Size ceilings: truncate rather than reject, but log it
	if len(q.Question) > maxQuestionChars {
		log.Debug().Int("chars", len(q.Question)).Msg("quiz-question-truncated")
		q.Question = truncateClean(q.Question, maxQuestionChars)
	}
	if q.Type != store.QuestionMultipleChoice && q.Type != store.QuestionTrueFalse {
		q.CorrectAnswer = truncateClean(q.CorrectAnswer, maxAnswerChars)
	}
	q.Explanation = truncateClean(q.Explanation, maxExplanationChars)
	return q, nil
}

// resolveAnswer matches answer against opts exactly, case-insensitively,
// or as an option letter ("B", "b)").
func resolveAnswer(answer string, opts []string) (string, bool) {
	for _, o := range opts {
		if o == answer {
			return o, true
		}
	}
	for _, o := range opts {
		if strings.EqualFold(o, answer) {
			return o, true
		}
	}
	letter := strings.TrimRight(answer, ").:")
	if len(letter) == 1 {
		idx := int(unicode.ToUpper(rune(letter[0])) - 'A')
		if idx >= 0 && idx < len(opts) {
			return opts[idx], true
		}
	}
	return "", false
}

// truncateClean truncates a string to maxLen bytes, cutting at the last word
// boundary to avoid mid-word breaks.
func truncateClean(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	// Back up to last space
	truncated := truncateBytes(s, maxLen)
	if idx := strings.LastIndexFunc(truncated, unicode.IsSpace); idx > maxLen-200 {
		truncated = truncated[:idx]
	}
	return strings.TrimSpace(truncated)
}

// truncateBytes cuts s to at most n bytes without splitting a rune.
func truncateBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
