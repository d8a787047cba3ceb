package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lazypower/lumine/internal/srs"
)

// Question types a quiz may contain.
const (
	QuestionMultipleChoice = "multiple-choice"
	QuestionTrueFalse      = "true-false"
	QuestionShortAnswer    = "short-answer"
	QuestionFlashcard      = "flashcard"
)

// Question is one quiz item. Difficulty runs 1 (easy) to 5 (hard).
type Question struct {
	Question      string   `json:"question"`
	Type          string   `json:"type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation,omitempty"`
	Difficulty    int      `json:"difficulty"`
}

// Quiz is a set of questions, usually generated from a note.
type Quiz struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	SourceNote  string     `json:"sourceNote,omitempty"`
	Questions   []Question `json:"questions"`
	AIGenerated bool       `json:"aiGenerated"`
	IsPublic    bool       `json:"isPublic"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type quizRow struct {
	ID          string `db:"id"`
	OwnerID     string `db:"owner_id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	SourceNote  string `db:"source_note"`
	Questions   string `db:"questions"`
	AIGenerated bool   `db:"ai_generated"`
	IsPublic    bool   `db:"is_public"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

func (r quizRow) quiz() (Quiz, error) {
	q := Quiz{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		SourceNote:  r.SourceNote,
		AIGenerated: r.AIGenerated,
		IsPublic:    r.IsPublic,
		CreatedAt:   time.UnixMilli(r.CreatedAt),
		UpdatedAt:   time.UnixMilli(r.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(r.Questions), &q.Questions); err != nil {
		return q, fmt.Errorf("decode questions for quiz %s: %w", r.ID, err)
	}
	return q, nil
}

// CreateQuiz inserts a quiz, assigning its ID and timestamps.
func (db *DB) CreateQuiz(ctx context.Context, q *Quiz) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.Questions == nil {
		q.Questions = []Question{}
	}
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	now := time.Now()
	q.CreatedAt, q.UpdatedAt = now, now

	_, err = db.ExecContext(ctx, `
		INSERT INTO quizzes (id, owner_id, title, description, source_note, questions, ai_generated, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.OwnerID, q.Title, q.Description, q.SourceNote, string(questions),
		q.AIGenerated, q.IsPublic, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("create quiz: %w", err)
	}
	return nil
}

// GetQuiz returns one of the owner's quizzes, or a public quiz of anyone.
func (db *DB) GetQuiz(ctx context.Context, ownerID, id string) (*Quiz, error) {
	var row quizRow
	err := db.GetContext(ctx, &row, `SELECT * FROM quizzes WHERE id = ? AND (owner_id = ? OR is_public = 1)`, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("quiz %s: %w", id, srs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	q, err := row.quiz()
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// ListQuizzes returns the owner's quizzes, newest first.
func (db *DB) ListQuizzes(ctx context.Context, ownerID string) ([]Quiz, error) {
	var rows []quizRow
	if err := db.SelectContext(ctx, &rows, `SELECT * FROM quizzes WHERE owner_id = ? ORDER BY created_at DESC, id`, ownerID); err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	quizzes := make([]Quiz, 0, len(rows))
	for _, r := range rows {
		q, err := r.quiz()
		if err != nil {
			return nil, err
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, nil
}

// UpdateQuiz rewrites one of the owner's quizzes. The source note, the
// AI flag and the creation time are kept.
func (db *DB) UpdateQuiz(ctx context.Context, q *Quiz) error {
	if q.Questions == nil {
		q.Questions = []Question{}
	}
	questions, err := json.Marshal(q.Questions)
	if err != nil {
		return fmt.Errorf("encode questions: %w", err)
	}
	now := time.Now()
	res, err := db.ExecContext(ctx, `
		UPDATE quizzes SET title = ?, description = ?, questions = ?, is_public = ?, updated_at = ?
		WHERE id = ? AND owner_id = ?
	`, q.Title, q.Description, string(questions), q.IsPublic, now.UnixMilli(), q.ID, q.OwnerID)
	if err != nil {
		return fmt.Errorf("update quiz: %w", err)
	}
	if err := expectOne(res, "quiz "+q.ID); err != nil {
		return err
	}
	q.UpdatedAt = now
	return nil
}

// DeleteQuiz removes one of the owner's quizzes.
func (db *DB) DeleteQuiz(ctx context.Context, ownerID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM quizzes WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete quiz: %w", err)
	}
	return expectOne(res, "quiz "+id)
}
