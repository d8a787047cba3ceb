package store

import (
	"fmt"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "users: accounts, review preferences and streak",
		SQL: `
CREATE TABLE users (
    id                TEXT PRIMARY KEY,
    username          TEXT NOT NULL DEFAULT '',
    email             TEXT NOT NULL DEFAULT '',
    theme             TEXT NOT NULL DEFAULT 'system' CHECK (theme IN ('light', 'dark', 'system')),

    -- Review preferences
    sr_enabled        INTEGER NOT NULL DEFAULT 1,
    sr_daily_limit    INTEGER NOT NULL DEFAULT 20,
    sr_intervals      TEXT NOT NULL DEFAULT '[3,7,14,30]',

    -- Streak
    streak            INTEGER NOT NULL DEFAULT 0,
    last_review_date  TEXT,

    created_at        INTEGER NOT NULL,
    updated_at        INTEGER NOT NULL
);
`,
	},
	{
		Version:     2,
		Description: "notes: content plus embedded scheduling state",
		SQL: `
CREATE TABLE notes (
    id               TEXT PRIMARY KEY,
    owner_id         TEXT NOT NULL,
    title            TEXT NOT NULL,
    content          TEXT NOT NULL DEFAULT '',
    tags             TEXT NOT NULL DEFAULT '[]',
    category         TEXT NOT NULL DEFAULT 'general',
    is_markdown      INTEGER NOT NULL DEFAULT 1,
    ai_generated     INTEGER NOT NULL DEFAULT 0,
    is_pinned        INTEGER NOT NULL DEFAULT 0,
    is_archived      INTEGER NOT NULL DEFAULT 0,

    -- Scheduling (persisted as the spacedRepetition sub-document)
    sr_enabled       INTEGER NOT NULL DEFAULT 0,
    sr_difficulty    REAL NOT NULL DEFAULT 2.5,
    sr_interval      INTEGER NOT NULL DEFAULT 3,
    sr_review_count  INTEGER NOT NULL DEFAULT 0,
    sr_last_reviewed INTEGER,
    sr_next_review   INTEGER,

    version          INTEGER NOT NULL DEFAULT 1,
    created_at       INTEGER NOT NULL,
    updated_at       INTEGER NOT NULL,

    FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX idx_notes_owner   ON notes(owner_id, updated_at DESC);
CREATE INDEX idx_notes_due     ON notes(owner_id, sr_enabled, sr_next_review);
`,
	},
	{
		Version:     3,
		Description: "review_events: graded reviews for statistics and dedup",
		SQL: `
CREATE TABLE review_events (
    id               INTEGER PRIMARY KEY,
    owner_id         TEXT NOT NULL,
    note_id          TEXT NOT NULL,
    request_id       TEXT,
    quality          INTEGER NOT NULL CHECK (quality BETWEEN 0 AND 5),
    response_time_ms INTEGER NOT NULL DEFAULT 0,
    interval_days    INTEGER NOT NULL,
    difficulty       REAL NOT NULL,
    review_count     INTEGER NOT NULL,
    next_review      INTEGER NOT NULL,
    reviewed_at      INTEGER NOT NULL,

    FOREIGN KEY (note_id) REFERENCES notes(id) ON DELETE CASCADE
);

CREATE INDEX idx_reviews_owner ON review_events(owner_id, reviewed_at DESC);
CREATE UNIQUE INDEX idx_reviews_request ON review_events(owner_id, request_id) WHERE request_id IS NOT NULL;
`,
	},
	{
		Version:     4,
		Description: "calendar_events: study and review calendar",
		SQL: `
CREATE TABLE calendar_events (
    id           TEXT PRIMARY KEY,
    owner_id     TEXT NOT NULL,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    date         INTEGER NOT NULL,
    time         TEXT NOT NULL DEFAULT '',
    type         TEXT NOT NULL DEFAULT 'custom' CHECK (type IN ('review', 'study', 'reminder', 'custom')),
    note_id      TEXT NOT NULL DEFAULT '',
    duration     INTEGER NOT NULL DEFAULT 30,
    completed    INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL
);

CREATE INDEX idx_events_owner_date ON calendar_events(owner_id, date);
`,
	},
	{
		Version:     5,
		Description: "quizzes: generated quizzes per note",
		SQL: `
CREATE TABLE quizzes (
    id           TEXT PRIMARY KEY,
    owner_id     TEXT NOT NULL,
    title        TEXT NOT NULL,
    description  TEXT NOT NULL DEFAULT '',
    source_note  TEXT NOT NULL DEFAULT '',
    questions    TEXT NOT NULL DEFAULT '[]',
    ai_generated INTEGER NOT NULL DEFAULT 0,
    is_public    INTEGER NOT NULL DEFAULT 0,
    created_at   INTEGER NOT NULL,
    updated_at   INTEGER NOT NULL,

    FOREIGN KEY (owner_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE INDEX idx_quizzes_owner ON quizzes(owner_id, created_at DESC);
`,
	},
}

func (db *DB) migrate() error {
	// Create schema_versions table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.Get(&count, "SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.Get(&version, "SELECT COALESCE(MAX(version), 0) FROM schema_versions")
	return version, err
}
