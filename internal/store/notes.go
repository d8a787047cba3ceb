package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/lazypower/lumine/internal/srs"
)

// Note is a user's note together with its embedded scheduling state.
type Note struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"userId"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Tags        []string  `json:"tags"`
	Category    string    `json:"category"`
	IsMarkdown  bool      `json:"isMarkdown"`
	AIGenerated bool      `json:"aiGenerated"`
	IsPinned    bool      `json:"isPinned"`
	IsArchived  bool      `json:"isArchived"`
	SR          srs.State `json:"spacedRepetition"`
	Version     int64     `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ItemID implements srs.Item.
func (n Note) ItemID() string { return n.ID }

// Schedule implements srs.Item.
func (n Note) Schedule() srs.State { return n.SR }

// NoteTitle implements calendar.ScheduledNote.
func (n Note) NoteTitle() string { return n.Title }

// NoteFilter narrows ListNotes. Zero values match everything except archived notes.
type NoteFilter struct {
	Search   string
	Tag      string
	Category string
	Archived bool
	Limit    int
	Offset   int
}

type noteRow struct {
	ID             string        `db:"id"`
	OwnerID        string        `db:"owner_id"`
	Title          string        `db:"title"`
	Content        string        `db:"content"`
	Tags           string        `db:"tags"`
	Category       string        `db:"category"`
	IsMarkdown     bool          `db:"is_markdown"`
	AIGenerated    bool          `db:"ai_generated"`
	IsPinned       bool          `db:"is_pinned"`
	IsArchived     bool          `db:"is_archived"`
	SREnabled      bool          `db:"sr_enabled"`
	SRDifficulty   float64       `db:"sr_difficulty"`
	SRInterval     int           `db:"sr_interval"`
	SRReviewCount  int           `db:"sr_review_count"`
	SRLastReviewed sql.NullInt64 `db:"sr_last_reviewed"`
	SRNextReview   sql.NullInt64 `db:"sr_next_review"`
	Version        int64         `db:"version"`
	CreatedAt      int64         `db:"created_at"`
	UpdatedAt      int64         `db:"updated_at"`
}

func (r noteRow) note() (Note, error) {
	n := Note{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Content:     r.Content,
		Category:    r.Category,
		IsMarkdown:  r.IsMarkdown,
		AIGenerated: r.AIGenerated,
		IsPinned:    r.IsPinned,
		IsArchived:  r.IsArchived,
		SR: srs.State{
			Enabled:        r.SREnabled,
			EaseFactor:     r.SRDifficulty,
			IntervalDays:   r.SRInterval,
			ReviewCount:    r.SRReviewCount,
			LastReviewedAt: fromMillis(r.SRLastReviewed),
			NextReviewAt:   fromMillis(r.SRNextReview),
		},
		Version:   r.Version,
		CreatedAt: time.UnixMilli(r.CreatedAt),
		UpdatedAt: time.UnixMilli(r.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(r.Tags), &n.Tags); err != nil {
		return n, fmt.Errorf("decode tags for note %s: %w", r.ID, err)
	}
	return n, nil
}

func fromMillis(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.UnixMilli(v.Int64)
	return &t
}

func toMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

// NormalizeTags lowercases, trims and deduplicates tags, dropping empties.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// CreateNote inserts a note. Missing IDs, categories and scheduling defaults
// are filled in; n is updated in place.
func (db *DB) CreateNote(ctx context.Context, n *Note) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Category == "" {
		n.Category = "general"
	}
	if n.SR.EaseFactor == 0 {
		n.SR.EaseFactor = srs.DefaultEaseFactor
	}
	if n.SR.IntervalDays == 0 {
		n.SR.IntervalDays = srs.DefaultIntervalDays
	}
	n.Tags = NormalizeTags(n.Tags)
	now := time.Now()
	n.CreatedAt, n.UpdatedAt = now, now
	n.Version = 1

	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO notes (
			id, owner_id, title, content, tags, category,
			is_markdown, ai_generated, is_pinned, is_archived,
			sr_enabled, sr_difficulty, sr_interval, sr_review_count, sr_last_reviewed, sr_next_review,
			version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.OwnerID, n.Title, n.Content, string(tags), n.Category,
		n.IsMarkdown, n.AIGenerated, n.IsPinned, n.IsArchived,
		n.SR.Enabled, n.SR.EaseFactor, n.SR.IntervalDays, n.SR.ReviewCount,
		toMillis(n.SR.LastReviewedAt), toMillis(n.SR.NextReviewAt),
		n.Version, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// GetNote returns one of the owner's notes.
func (db *DB) GetNote(ctx context.Context, ownerID, id string) (*Note, error) {
	return getNote(ctx, db, ownerID, id)
}

func getNote(ctx context.Context, q sqlx.QueryerContext, ownerID, id string) (*Note, error) {
	var row noteRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT * FROM notes WHERE id = ? AND owner_id = ?`, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("note %s: %w", id, srs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	n, err := row.note()
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListNotes returns the owner's notes, pinned first and then most recently updated.
func (db *DB) ListNotes(ctx context.Context, ownerID string, f NoteFilter) ([]Note, error) {
	query := `SELECT * FROM notes WHERE owner_id = ? AND is_archived = ?`
	args := []any{ownerID, f.Archived}

	if f.Search != "" {
		like := "%" + escapeLike(f.Search) + "%"
		query += ` AND (title LIKE ? ESCAPE '\' OR content LIKE ? ESCAPE '\' OR tags LIKE ? ESCAPE '\')`
		args = append(args, like, like, like)
	}
	if f.Tag != "" {
		query += ` AND EXISTS (SELECT 1 FROM json_each(notes.tags) WHERE json_each.value = ?)`
		args = append(args, strings.ToLower(f.Tag))
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	query += ` ORDER BY is_pinned DESC, updated_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	return db.selectNotes(ctx, "list notes", query, args...)
}

// ListScheduled returns the owner's notes that participate in scheduling.
func (db *DB) ListScheduled(ctx context.Context, ownerID string) ([]Note, error) {
	return db.selectNotes(ctx, "list scheduled notes",
		`SELECT * FROM notes WHERE owner_id = ? AND sr_enabled = 1 ORDER BY sr_next_review, id`, ownerID)
}

// ListStatsNotes returns the owner's scheduled notes plus any note reviewed
// at or after since, so reviews of since-disabled notes still count.
func (db *DB) ListStatsNotes(ctx context.Context, ownerID string, since time.Time) ([]Note, error) {
	return db.selectNotes(ctx, "list stats notes",
		`SELECT * FROM notes WHERE owner_id = ? AND (sr_enabled = 1 OR sr_last_reviewed >= ?) ORDER BY sr_next_review, id`,
		ownerID, since.UnixMilli())
}

func (db *DB) selectNotes(ctx context.Context, op, query string, args ...any) ([]Note, error) {
	var rows []noteRow
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	notes := make([]Note, 0, len(rows))
	for _, r := range rows {
		n, err := r.note()
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, nil
}

// UpdateNote writes every field of n if the stored version still equals
// n.Version. On success n.Version is advanced; a moved version yields ErrConflict.
func (db *DB) UpdateNote(ctx context.Context, n *Note) error {
	n.Tags = NormalizeTags(n.Tags)
	tags, err := json.Marshal(n.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	now := time.Now()

	res, err := db.ExecContext(ctx, `
		UPDATE notes SET
			title = ?, content = ?, tags = ?, category = ?,
			is_markdown = ?, ai_generated = ?, is_pinned = ?, is_archived = ?,
			sr_enabled = ?, sr_difficulty = ?, sr_interval = ?, sr_review_count = ?,
			sr_last_reviewed = ?, sr_next_review = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND owner_id = ? AND version = ?
	`, n.Title, n.Content, string(tags), n.Category,
		n.IsMarkdown, n.AIGenerated, n.IsPinned, n.IsArchived,
		n.SR.Enabled, n.SR.EaseFactor, n.SR.IntervalDays, n.SR.ReviewCount,
		toMillis(n.SR.LastReviewedAt), toMillis(n.SR.NextReviewAt),
		now.UnixMilli(), n.ID, n.OwnerID, n.Version)
	if err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	if err := checkVersioned(ctx, db, res, n); err != nil {
		return err
	}
	n.Version++
	n.UpdatedAt = now
	return nil
}

// UpdateScheduling writes only n's scheduling state, guarded by the same
// version check as UpdateNote.
func (db *DB) UpdateScheduling(ctx context.Context, n *Note) error {
	if err := updateScheduling(ctx, db, n); err != nil {
		return err
	}
	n.Version++
	return nil
}

func updateScheduling(ctx context.Context, ext sqlx.ExtContext, n *Note) error {
	res, err := ext.ExecContext(ctx, `
		UPDATE notes SET
			sr_enabled = ?, sr_difficulty = ?, sr_interval = ?, sr_review_count = ?,
			sr_last_reviewed = ?, sr_next_review = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND owner_id = ? AND version = ?
	`, n.SR.Enabled, n.SR.EaseFactor, n.SR.IntervalDays, n.SR.ReviewCount,
		toMillis(n.SR.LastReviewedAt), toMillis(n.SR.NextReviewAt),
		time.Now().UnixMilli(), n.ID, n.OwnerID, n.Version)
	if err != nil {
		return fmt.Errorf("update scheduling: %w", err)
	}
	return checkVersioned(ctx, ext, res, n)
}

// checkVersioned tells a missing note apart from a stale version.
func checkVersioned(ctx context.Context, q sqlx.QueryerContext, res sql.Result, n *Note) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 1 {
		return nil
	}
	current, err := getNote(ctx, q, n.OwnerID, n.ID)
	if err != nil {
		return err
	}
	return fmt.Errorf("note %s at version %d, have %d: %w", n.ID, current.Version, n.Version, ErrConflict)
}

// DeleteNote removes a note and its review history.
func (db *DB) DeleteNote(ctx context.Context, ownerID, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM notes WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return expectOne(res, "note "+id)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
