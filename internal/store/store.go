// Package store is the relational persistence layer. It keeps book metadata,
// the extracted chapter/section structure, cached page content, exercises and
// job records in a single sqlite database under the home directory.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS book_info (
	book_id               INTEGER PRIMARY KEY AUTOINCREMENT,
	book_name             TEXT NOT NULL,
	book_author           TEXT NOT NULL DEFAULT '',
	book_pages            INTEGER NOT NULL DEFAULT 0,
	book_keywords         TEXT NOT NULL DEFAULT '',
	book_summary          TEXT NOT NULL DEFAULT '',
	file_name             TEXT NOT NULL DEFAULT '',
	book_toc_end_page     INTEGER,
	book_alignment_offset INTEGER NOT NULL DEFAULT 0,
	created_at            TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS chapter_info (
	chapter_id           INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id              INTEGER NOT NULL REFERENCES book_info (book_id) ON DELETE CASCADE,
	chapter_index_string TEXT NOT NULL DEFAULT '',
	chapter_title        TEXT NOT NULL,
	start_page           INTEGER NOT NULL,
	end_page             INTEGER NOT NULL,
	UNIQUE (book_id, chapter_title)
);

CREATE TABLE IF NOT EXISTS section_info (
	section_id           INTEGER PRIMARY KEY AUTOINCREMENT,
	chapter_id           INTEGER NOT NULL REFERENCES chapter_info (chapter_id) ON DELETE CASCADE,
	book_id              INTEGER NOT NULL REFERENCES book_info (book_id) ON DELETE CASCADE,
	section_index_string TEXT NOT NULL DEFAULT '',
	section_title        TEXT NOT NULL,
	start_page           INTEGER NOT NULL,
	end_page             INTEGER NOT NULL,
	UNIQUE (book_id, section_title)
);

CREATE TABLE IF NOT EXISTS page_info (
	page_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id      INTEGER NOT NULL REFERENCES book_info (book_id) ON DELETE CASCADE,
	page_number  INTEGER NOT NULL,
	page_content TEXT NOT NULL DEFAULT '',
	UNIQUE (book_id, page_number)
);

CREATE TABLE IF NOT EXISTS exercise_info (
	exercise_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	book_id         INTEGER NOT NULL REFERENCES book_info (book_id) ON DELETE CASCADE,
	page_number     INTEGER NOT NULL,
	exercise_number TEXT NOT NULL,
	UNIQUE (book_id, page_number, exercise_number)
);

CREATE TABLE IF NOT EXISTS exercise_details (
	detail_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	exercise_id INTEGER NOT NULL REFERENCES exercise_info (exercise_id) ON DELETE CASCADE,
	detail_type TEXT NOT NULL,
	content     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS jobs (
	job_id      TEXT PRIMARY KEY,
	job_type    TEXT NOT NULL,
	status      TEXT NOT NULL,
	book_id     INTEGER,
	error       TEXT NOT NULL DEFAULT '',
	metadata    TEXT NOT NULL DEFAULT '{}',
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	started_at  TIMESTAMP,
	finished_at TIMESTAMP
);
`

// Store wraps the sqlite database.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the database at path and applies the schema.
// Pass ":memory:" for an ephemeral database in tests.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY churn under concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("database ready", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// HealthCheck verifies the database connection is alive.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
