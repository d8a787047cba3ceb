package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/lazypower/lumine/internal/llm"
	"github.com/lazypower/lumine/internal/store"
)

const (
	maxTitleChars   = 200
	maxTopicTitle   = 100
	minSuggestedTag = 3
	maxSuggestedTag = 5
)

var headingRe = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// GenerateNote writes a markdown study note about topic and saves it for owner.
func (e *Engine) GenerateNote(ctx context.Context, ownerID, topic, category string) (*store.Note, error) {
	topic, err := requireText("prompt", topic)
	if err != nil {
		return nil, err
	}

	if _, err := e.DB.EnsureUser(ctx, ownerID); err != nil {
		return nil, err
	}
	content, err := e.complete(ctx, llm.NotePrompt(topic))
	if err != nil {
		return nil, fmt.Errorf("generate note: %w", err)
	}
	content = stripFences(content)

	n := &store.Note{
		OwnerID:     ownerID,
		Title:       noteTitle(content, topic),
		Content:     content,
		Category:    category,
		IsMarkdown:  true,
		AIGenerated: true,
	}
	if err := e.DB.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	log.Ctx(ctx).Info().Str("note", n.ID).Msg("ai-note-generated")
	return n, nil
}

// noteTitle takes the first markdown heading, falling back to the topic.
func noteTitle(content, topic string) string {
	if m := headingRe.FindStringSubmatch(content); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return truncateClean(title, maxTitleChars)
		}
	}
	return truncateRunes(topic, maxTopicTitle)
}

// EnhanceNote rewrites content as directed by enhancement.
func (e *Engine) EnhanceNote(ctx context.Context, content, enhancement string) (string, error) {
	content, err := requireText("content", content)
	if err != nil {
		return "", err
	}
	out, err := e.complete(ctx, llm.EnhancePrompt(content, enhancement))
	if err != nil {
		return "", fmt.Errorf("enhance note: %w", err)
	}
	return stripFences(out), nil
}

// Summarize condenses content into a few sentences.
func (e *Engine) Summarize(ctx context.Context, content string) (string, error) {
	content, err := requireText("content", content)
	if err != nil {
		return "", err
	}
	out, err := e.complete(ctx, llm.SummaryPrompt(content))
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return out, nil
}

// SuggestTags proposes up to five lowercase tags for content.
func (e *Engine) SuggestTags(ctx context.Context, content string) ([]string, error) {
	content, err := requireText("content", content)
	if err != nil {
		return nil, err
	}
	out, err := e.complete(ctx, llm.TagsPrompt(content))
	if err != nil {
		return nil, fmt.Errorf("suggest tags: %w", err)
	}
	tags := parseTags(out)
	if len(tags) < minSuggestedTag {
		log.Ctx(ctx).Debug().Int("tags", len(tags)).Msg("ai-few-tags")
	}
	return tags, nil
}

// parseTags splits a comma or newline separated reply into clean tags.
func parseTags(reply string) []string {
	reply = stripFences(reply)
	if i := strings.Index(reply, ":"); i >= 0 && i < 10 && !strings.Contains(reply[:i], ",") {
		// "Tags: a, b, c"
		reply = reply[i+1:]
	}
	fields := strings.FieldsFunc(reply, func(r rune) bool { return r == ',' || r == '\n' })
	raw := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(strings.TrimSpace(f), "#\"'`*-.• ")
		raw = append(raw, f)
	}
	tags := store.NormalizeTags(raw)
	if len(tags) > maxSuggestedTag {
		tags = tags[:maxSuggestedTag]
	}
	return tags
}
