package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Page is one row of page_info. Content is the OCR or extracted text for the
// page, cached so repeat reads skip the OCR backend.
type Page struct {
	ID         int64  `json:"id"`
	BookID     int64  `json:"book_id"`
	PageNumber int    `json:"page_number"`
	Content    string `json:"content"`
}

// CreatePageIfAbsent stores page content, keeping the existing row on rerun.
func (s *Store) CreatePageIfAbsent(ctx context.Context, p Page) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO page_info (book_id, page_number, page_content)
		VALUES (?, ?, ?)`,
		p.BookID, p.PageNumber, p.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to create page %d of book %d: %w", p.PageNumber, p.BookID, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return res.LastInsertId()
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT page_id FROM page_info WHERE book_id = ? AND page_number = ?`,
		p.BookID, p.PageNumber).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve existing page %d of book %d: %w", p.PageNumber, p.BookID, err)
	}
	return id, nil
}

// PageContent returns the cached content for a page. The second return is
// false when no row exists yet.
func (s *Store) PageContent(ctx context.Context, bookID int64, pageNumber int) (string, bool, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT page_content FROM page_info WHERE book_id = ? AND page_number = ?`,
		bookID, pageNumber).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get page %d of book %d: %w", pageNumber, bookID, err)
	}
	return content, true, nil
}

// Exercise is one row of exercise_info.
type Exercise struct {
	ID         int64  `json:"id"`
	BookID     int64  `json:"book_id"`
	PageNumber int    `json:"page_number"`
	Number     string `json:"number"`
}

// ExerciseDetail is one row of exercise_details.
type ExerciseDetail struct {
	ID         int64  `json:"id"`
	ExerciseID int64  `json:"exercise_id"`
	Type       string `json:"type"`
	Content    string `json:"content"`
}

// CreateExerciseIfAbsent stores an exercise reference, keeping the existing
// row on rerun.
func (s *Store) CreateExerciseIfAbsent(ctx context.Context, ex Exercise) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO exercise_info (book_id, page_number, exercise_number)
		VALUES (?, ?, ?)`,
		ex.BookID, ex.PageNumber, ex.Number)
	if err != nil {
		return 0, fmt.Errorf("failed to create exercise %s on page %d: %w", ex.Number, ex.PageNumber, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return res.LastInsertId()
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT exercise_id FROM exercise_info WHERE book_id = ? AND page_number = ? AND exercise_number = ?`,
		ex.BookID, ex.PageNumber, ex.Number).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve existing exercise %s: %w", ex.Number, err)
	}
	return id, nil
}

// AddExerciseDetail appends a detail row to an exercise.
func (s *Store) AddExerciseDetail(ctx context.Context, d ExerciseDetail) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO exercise_details (exercise_id, detail_type, content)
		VALUES (?, ?, ?)`,
		d.ExerciseID, d.Type, d.Content)
	if err != nil {
		return 0, fmt.Errorf("failed to add detail to exercise %d: %w", d.ExerciseID, err)
	}
	return res.LastInsertId()
}

// ListExercises returns the exercises recorded for one page.
func (s *Store) ListExercises(ctx context.Context, bookID int64, pageNumber int) ([]Exercise, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT exercise_id, book_id, page_number, exercise_number
		FROM exercise_info WHERE book_id = ? AND page_number = ?
		ORDER BY exercise_number`, bookID, pageNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to list exercises for page %d: %w", pageNumber, err)
	}
	defer rows.Close()

	var out []Exercise
	for rows.Next() {
		var ex Exercise
		if err := rows.Scan(&ex.ID, &ex.BookID, &ex.PageNumber, &ex.Number); err != nil {
			return nil, fmt.Errorf("failed to scan exercise row: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}
