package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lazypower/lumine/internal/srs"
)

const dateLayout = "2006-01-02"

// DefaultIntervals is the enable-interval ladder new users start with.
var DefaultIntervals = []int{3, 7, 14, 30}

// User is an account plus its review preferences and streak.
type User struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Theme     string      `json:"theme"`
	Prefs     Preferences `json:"preferences"`
	Streak    srs.Streak  `json:"streak"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Preferences controls how review sessions are built for a user.
type Preferences struct {
	Enabled    bool  `json:"enabled"`
	DailyLimit int   `json:"dailyLimit"`
	Intervals  []int `json:"intervals"`
}

// InitialInterval is the interval a newly enabled note starts with.
func (p Preferences) InitialInterval() int {
	if len(p.Intervals) == 0 || p.Intervals[0] < 1 {
		return srs.DefaultIntervalDays
	}
	return p.Intervals[0]
}

type userRow struct {
	ID             string         `db:"id"`
	Username       string         `db:"username"`
	Email          string         `db:"email"`
	Theme          string         `db:"theme"`
	SREnabled      bool           `db:"sr_enabled"`
	DailyLimit     int            `db:"sr_daily_limit"`
	Intervals      string         `db:"sr_intervals"`
	Streak         int            `db:"streak"`
	LastReviewDate sql.NullString `db:"last_review_date"`
	CreatedAt      int64          `db:"created_at"`
	UpdatedAt      int64          `db:"updated_at"`
}

func (r userRow) user() (*User, error) {
	u := &User{
		ID:        r.ID,
		Username:  r.Username,
		Email:     r.Email,
		Theme:     r.Theme,
		Prefs:     Preferences{Enabled: r.SREnabled, DailyLimit: r.DailyLimit},
		Streak:    srs.Streak{Count: r.Streak},
		CreatedAt: time.UnixMilli(r.CreatedAt),
		UpdatedAt: time.UnixMilli(r.UpdatedAt),
	}
	if err := json.Unmarshal([]byte(r.Intervals), &u.Prefs.Intervals); err != nil {
		return nil, fmt.Errorf("decode intervals for %s: %w", r.ID, err)
	}
	if r.LastReviewDate.Valid {
		d, err := time.Parse(dateLayout, r.LastReviewDate.String)
		if err != nil {
			return nil, fmt.Errorf("parse last review date for %s: %w", r.ID, err)
		}
		u.Streak.LastReviewDate = &d
	}
	return u, nil
}

// EnsureUser returns the user with the given ID, creating it with default
// preferences and a zero streak on first sight.
func (db *DB) EnsureUser(ctx context.Context, id string) (*User, error) {
	now := time.Now().UnixMilli()
	_, err := db.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (id, created_at, updated_at) VALUES (?, ?, ?)
	`, id, now, now)
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", err)
	}
	return db.GetUser(ctx, id)
}

// GetUser returns a user by ID.
func (db *DB) GetUser(ctx context.Context, id string) (*User, error) {
	var row userRow
	err := db.GetContext(ctx, &row, `SELECT * FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", id, srs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return row.user()
}

// ListUserIDs returns every user ID, oldest account first.
func (db *DB) ListUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := db.SelectContext(ctx, &ids, `SELECT id FROM users ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

// UpdateStreak persists a user's review streak.
func (db *DB) UpdateStreak(ctx context.Context, id string, s srs.Streak) error {
	var last sql.NullString
	if s.LastReviewDate != nil {
		last = sql.NullString{String: s.LastReviewDate.Format(dateLayout), Valid: true}
	}
	res, err := db.ExecContext(ctx, `
		UPDATE users SET streak = ?, last_review_date = ?, updated_at = ? WHERE id = ?
	`, s.Count, last, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update streak: %w", err)
	}
	return expectOne(res, "user "+id)
}

// Profile holds the user-editable account fields.
type Profile struct {
	Username string
	Email    string
	Theme    string
}

// UpdateProfile replaces a user's username, email and theme.
func (db *DB) UpdateProfile(ctx context.Context, id string, p Profile) error {
	if p.Theme == "" {
		p.Theme = "system"
	}
	res, err := db.ExecContext(ctx, `
		UPDATE users SET username = ?, email = ?, theme = ?, updated_at = ? WHERE id = ?
	`, p.Username, p.Email, p.Theme, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return expectOne(res, "user "+id)
}

// UpdatePreferences replaces a user's review preferences.
func (db *DB) UpdatePreferences(ctx context.Context, id string, p Preferences) error {
	if len(p.Intervals) == 0 {
		p.Intervals = DefaultIntervals
	}
	intervals, err := json.Marshal(p.Intervals)
	if err != nil {
		return fmt.Errorf("encode intervals: %w", err)
	}
	res, err := db.ExecContext(ctx, `
		UPDATE users SET sr_enabled = ?, sr_daily_limit = ?, sr_intervals = ?, updated_at = ? WHERE id = ?
	`, p.Enabled, p.DailyLimit, string(intervals), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update preferences: %w", err)
	}
	return expectOne(res, "user "+id)
}

// expectOne maps a zero-row write to ErrNotFound.
func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, srs.ErrNotFound)
	}
	return nil
}
