package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Chapter is one row of chapter_info. Page numbers are zero-based and
// inclusive on both ends.
type Chapter struct {
	ID          int64  `json:"id"`
	BookID      int64  `json:"book_id"`
	IndexString string `json:"index_string"`
	Title       string `json:"title"`
	StartPage   int    `json:"start_page"`
	EndPage     int    `json:"end_page"`
}

// Section is one row of section_info.
type Section struct {
	ID          int64  `json:"id"`
	ChapterID   int64  `json:"chapter_id"`
	BookID      int64  `json:"book_id"`
	IndexString string `json:"index_string"`
	Title       string `json:"title"`
	StartPage   int    `json:"start_page"`
	EndPage     int    `json:"end_page"`
}

// CreateChapterIfAbsent inserts a chapter, tolerating reruns. On a title
// conflict the existing row's id is returned; if the title lookup misses
// (an earlier run stored a variant title) it falls back to matching the
// exact page range.
func (s *Store) CreateChapterIfAbsent(ctx context.Context, ch Chapter) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO chapter_info
			(book_id, chapter_index_string, chapter_title, start_page, end_page)
		VALUES (?, ?, ?, ?, ?)`,
		ch.BookID, ch.IndexString, ch.Title, ch.StartPage, ch.EndPage)
	if err != nil {
		return 0, fmt.Errorf("failed to create chapter %q: %w", ch.Title, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return res.LastInsertId()
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT chapter_id FROM chapter_info WHERE book_id = ? AND chapter_title = ?`,
		ch.BookID, ch.Title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowContext(ctx,
			`SELECT chapter_id FROM chapter_info WHERE book_id = ? AND start_page = ? AND end_page = ?`,
			ch.BookID, ch.StartPage, ch.EndPage).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve existing chapter %q: %w", ch.Title, err)
	}
	return id, nil
}

// CreateSectionIfAbsent inserts a section with the same rerun tolerance as
// CreateChapterIfAbsent.
func (s *Store) CreateSectionIfAbsent(ctx context.Context, sec Section) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO section_info
			(chapter_id, book_id, section_index_string, section_title, start_page, end_page)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sec.ChapterID, sec.BookID, sec.IndexString, sec.Title, sec.StartPage, sec.EndPage)
	if err != nil {
		return 0, fmt.Errorf("failed to create section %q: %w", sec.Title, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return res.LastInsertId()
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT section_id FROM section_info WHERE book_id = ? AND section_title = ?`,
		sec.BookID, sec.Title).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.QueryRowContext(ctx,
			`SELECT section_id FROM section_info WHERE book_id = ? AND start_page = ? AND end_page = ?`,
			sec.BookID, sec.StartPage, sec.EndPage).Scan(&id)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve existing section %q: %w", sec.Title, err)
	}
	return id, nil
}

// ListChapters returns a book's chapters in page order.
func (s *Store) ListChapters(ctx context.Context, bookID int64) ([]Chapter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chapter_id, book_id, chapter_index_string, chapter_title, start_page, end_page
		FROM chapter_info WHERE book_id = ? ORDER BY start_page, chapter_id`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chapters for book %d: %w", bookID, err)
	}
	defer rows.Close()

	var out []Chapter
	for rows.Next() {
		var ch Chapter
		if err := rows.Scan(&ch.ID, &ch.BookID, &ch.IndexString, &ch.Title, &ch.StartPage, &ch.EndPage); err != nil {
			return nil, fmt.Errorf("failed to scan chapter row: %w", err)
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// ListSections returns a chapter's sections in page order.
func (s *Store) ListSections(ctx context.Context, chapterID int64) ([]Section, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT section_id, chapter_id, book_id, section_index_string, section_title, start_page, end_page
		FROM section_info WHERE chapter_id = ? ORDER BY start_page, section_id`, chapterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sections for chapter %d: %w", chapterID, err)
	}
	defer rows.Close()

	var out []Section
	for rows.Next() {
		var sec Section
		if err := rows.Scan(&sec.ID, &sec.ChapterID, &sec.BookID, &sec.IndexString, &sec.Title, &sec.StartPage, &sec.EndPage); err != nil {
			return nil, fmt.Errorf("failed to scan section row: %w", err)
		}
		out = append(out, sec)
	}
	return out, rows.Err()
}

// TOCExists reports whether structure extraction has stored any chapters for
// the book.
func (s *Store) TOCExists(ctx context.Context, bookID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM chapter_info WHERE book_id = ?)`, bookID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check toc for book %d: %w", bookID, err)
	}
	return exists, nil
}

// DeleteTOC removes a book's extracted structure, sections before chapters so
// the delete also works with foreign key enforcement off.
func (s *Store) DeleteTOC(ctx context.Context, bookID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin toc delete for book %d: %w", bookID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM section_info WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("failed to delete sections for book %d: %w", bookID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chapter_info WHERE book_id = ?`, bookID); err != nil {
		return fmt.Errorf("failed to delete chapters for book %d: %w", bookID, err)
	}
	return tx.Commit()
}
