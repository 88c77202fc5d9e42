package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// Book is one row of book_info.
type Book struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Author          string    `json:"author"`
	Pages           int       `json:"pages"`
	Keywords        string    `json:"keywords"`
	Summary         string    `json:"summary"`
	FileName        string    `json:"file_name"`
	TOCEndPage      *int      `json:"toc_end_page,omitempty"`
	AlignmentOffset int       `json:"alignment_offset"`
	CreatedAt       time.Time `json:"created_at"`
}

// BookSummary is a list-view row: the book plus whether structure extraction
// has produced any chapters for it.
type BookSummary struct {
	Book
	TOCExists bool `json:"toc_exists"`
}

const bookColumns = `book_id, book_name, book_author, book_pages, book_keywords,
	book_summary, file_name, book_toc_end_page, book_alignment_offset, created_at`

func scanBook(row interface{ Scan(...any) error }) (Book, error) {
	var b Book
	var tocEnd sql.NullInt64
	err := row.Scan(&b.ID, &b.Name, &b.Author, &b.Pages, &b.Keywords,
		&b.Summary, &b.FileName, &tocEnd, &b.AlignmentOffset, &b.CreatedAt)
	if err != nil {
		return Book{}, err
	}
	if tocEnd.Valid {
		v := int(tocEnd.Int64)
		b.TOCEndPage = &v
	}
	return b, nil
}

// CreateBook inserts a book and returns its id.
func (s *Store) CreateBook(ctx context.Context, b Book) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO book_info (book_name, book_author, book_pages, book_keywords, book_summary, file_name)
		VALUES (?, ?, ?, ?, ?, ?)`,
		b.Name, b.Author, b.Pages, b.Keywords, b.Summary, b.FileName)
	if err != nil {
		return 0, fmt.Errorf("failed to create book %q: %w", b.Name, err)
	}
	return res.LastInsertId()
}

// GetBook returns the book with the given id.
func (s *Store) GetBook(ctx context.Context, id int64) (Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM book_info WHERE book_id = ?`, id)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Book{}, fmt.Errorf("failed to get book %d: %w", id, err)
	}
	return b, nil
}

// GetBookByName returns the book with the given name.
func (s *Store) GetBookByName(ctx context.Context, name string) (Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM book_info WHERE book_name = ?`, name)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, fmt.Errorf("book %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Book{}, fmt.Errorf("failed to get book %q: %w", name, err)
	}
	return b, nil
}

// GetBookByFileName returns the book whose source PDF matches fileName.
func (s *Store) GetBookByFileName(ctx context.Context, fileName string) (Book, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM book_info WHERE file_name = ?`, fileName)
	b, err := scanBook(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, fmt.Errorf("book file %q: %w", fileName, ErrNotFound)
	}
	if err != nil {
		return Book{}, fmt.Errorf("failed to get book by file %q: %w", fileName, err)
	}
	return b, nil
}

// ListBooks returns all books with their toc_exists flag, newest first.
func (s *Store) ListBooks(ctx context.Context) ([]BookSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+bookColumns+`,
			EXISTS (SELECT 1 FROM chapter_info c WHERE c.book_id = book_info.book_id)
		FROM book_info ORDER BY book_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	var out []BookSummary
	for rows.Next() {
		var b BookSummary
		var tocEnd sql.NullInt64
		err := rows.Scan(&b.ID, &b.Name, &b.Author, &b.Pages, &b.Keywords,
			&b.Summary, &b.FileName, &tocEnd, &b.AlignmentOffset, &b.CreatedAt,
			&b.TOCExists)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book row: %w", err)
		}
		if tocEnd.Valid {
			v := int(tocEnd.Int64)
			b.TOCEndPage = &v
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// BookUpdate holds optional field updates; nil fields are left unchanged.
type BookUpdate struct {
	Name     *string `json:"name,omitempty"`
	Author   *string `json:"author,omitempty"`
	Keywords *string `json:"keywords,omitempty"`
	Summary  *string `json:"summary,omitempty"`
}

// UpdateBook applies the non-nil fields of upd to the book.
func (s *Store) UpdateBook(ctx context.Context, id int64, upd BookUpdate) error {
	set := ""
	args := []any{}
	add := func(col string, v *string) {
		if v == nil {
			return
		}
		if set != "" {
			set += ", "
		}
		set += col + " = ?"
		args = append(args, *v)
	}
	add("book_name", upd.Name)
	add("book_author", upd.Author)
	add("book_keywords", upd.Keywords)
	add("book_summary", upd.Summary)
	if set == "" {
		return nil
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, "UPDATE book_info SET "+set+" WHERE book_id = ?", args...)
	if err != nil {
		return fmt.Errorf("failed to update book %d: %w", id, err)
	}
	return requireRow(res, id)
}

// DeleteBook removes the book; chapters, sections, pages and exercises go
// with it via the cascade constraints.
func (s *Store) DeleteBook(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM book_info WHERE book_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete book %d: %w", id, err)
	}
	return requireRow(res, id)
}

// TOCEndPage returns the recorded TOC boundary, or defaultValue when the
// column is still NULL.
func (s *Store) TOCEndPage(ctx context.Context, id int64, defaultValue int) (int, error) {
	var tocEnd sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		`SELECT book_toc_end_page FROM book_info WHERE book_id = ?`, id).Scan(&tocEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get toc end page for book %d: %w", id, err)
	}
	if !tocEnd.Valid {
		return defaultValue, nil
	}
	return int(tocEnd.Int64), nil
}

// SetTOCEndPage records the TOC boundary for a book.
func (s *Store) SetTOCEndPage(ctx context.Context, id int64, endPage int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE book_info SET book_toc_end_page = ? WHERE book_id = ?`, endPage, id)
	if err != nil {
		return fmt.Errorf("failed to set toc end page for book %d: %w", id, err)
	}
	return requireRow(res, id)
}

// AlignmentOffset returns the page alignment offset for a book.
func (s *Store) AlignmentOffset(ctx context.Context, id int64) (int, error) {
	var offset int
	err := s.db.QueryRowContext(ctx,
		`SELECT book_alignment_offset FROM book_info WHERE book_id = ?`, id).Scan(&offset)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get alignment offset for book %d: %w", id, err)
	}
	return offset, nil
}

// SetAlignmentOffset records the offset between printed and physical page
// numbers.
func (s *Store) SetAlignmentOffset(ctx context.Context, id int64, offset int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE book_info SET book_alignment_offset = ? WHERE book_id = ?`, offset, id)
	if err != nil {
		return fmt.Errorf("failed to set alignment offset for book %d: %w", id, err)
	}
	return requireRow(res, id)
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return nil
}
