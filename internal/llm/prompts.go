package llm

import (
	"fmt"
	"strings"
)

// NotePrompt asks for a study note on a topic, formatted as markdown.
func NotePrompt(topic string) string {
	return fmt.Sprintf(`Create a comprehensive note based on this topic: %q.

Format the response as markdown, starting with a single "# " heading that names the topic,
followed by clear sections, bullet points and structured content.
Make it educational and well-organized for studying purposes.`, topic)
}

// EnhancePrompt asks for an improved version of content. enhancement says
// how, e.g. "adding examples".
func EnhancePrompt(content, enhancement string) string {
	if strings.TrimSpace(enhancement) == "" {
		enhancement = "improving clarity and structure"
	}
	return fmt.Sprintf(`Enhance this content by %s:

%s

Provide only the improved version, more clear, comprehensive and well-structured.
Keep the original markdown formatting style.`, enhancement, content)
}

// SummaryPrompt asks for a two to three sentence summary.
func SummaryPrompt(content string) string {
	return fmt.Sprintf(`Create a concise summary of this content in 2-3 sentences:

%s

Focus on the key points and main ideas. Return only the summary.`, content)
}

// TagsPrompt asks for 3-5 tags as a comma separated list.
func TagsPrompt(content string) string {
	return fmt.Sprintf(`Analyze this content and suggest 3-5 relevant tags:

%s

Return only the tags as a comma-separated list, lowercase, no explanations.`, content)
}

// QuizPrompt asks for count questions about a note as a JSON array.
func QuizPrompt(title, content string, count, difficulty int) string {
	return fmt.Sprintf(`Based on this note content, create %d quiz questions.

Title: %s
Content:
%s

Generate questions with difficulty level %d/5. Mix question types: multiple-choice,
true-false, short-answer and flashcard. Multiple-choice questions have exactly four
options and the correct answer is one of them verbatim. True-false questions use the
options "True" and "False".

Return ONLY a JSON array, no other text:
[{
  "question": "Question text",
  "type": "multiple-choice|true-false|short-answer|flashcard",
  "options": ["A", "B", "C", "D"],
  "correctAnswer": "A",
  "explanation": "Why this is correct",
  "difficulty": %d
}]`, count, title, content, difficulty, difficulty)
}

// SchedulePrompt asks for review intervals suited to a note.
func SchedulePrompt(title string, difficulty int, history string) string {
	if history == "" {
		history = "no reviews yet"
	}
	return fmt.Sprintf(`Based on spaced repetition principles and this note's difficulty (%d/5),
suggest an optimal review schedule. Consider the note's complexity and the review history.

Note: %s
Review history (quality 0-5, oldest first): %s

Return ONLY a JSON object with increasing intervals in days, for example:
{"intervals": [3, 7, 14, 30]}`, difficulty, title, history)
}
