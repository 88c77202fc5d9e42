package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the textbookd home directory.
	DefaultDirName = ".textbookd"

	// BooksDirName is the subdirectory holding uploaded PDFs and per-book data.
	BooksDirName = "books"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DatabaseFileName is the sqlite database file name.
	DatabaseFileName = "textbookd.db"
)

// Dir represents the textbookd home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.textbookd).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DatabasePath returns the path to the sqlite database file.
func (d *Dir) DatabasePath() string {
	return filepath.Join(d.path, DatabaseFileName)
}

// BooksPath returns the directory holding all per-book data.
func (d *Dir) BooksPath() string {
	return filepath.Join(d.path, BooksDirName)
}

// BookDir returns the data directory for one book.
func (d *Dir) BookDir(bookID int64) string {
	return filepath.Join(d.BooksPath(), fmt.Sprintf("%d", bookID))
}

// BookPDFPath returns the stored PDF path for a book.
func (d *Dir) BookPDFPath(bookID int64) string {
	return filepath.Join(d.BookDir(bookID), "book.pdf")
}

// TOCCachePath returns the cached structured-TOC JSON path for a book.
func (d *Dir) TOCCachePath(bookID int64) string {
	return filepath.Join(d.BookDir(bookID), "toc.json")
}

// PageImagesDir returns the directory for rendered page images of a book.
func (d *Dir) PageImagesDir(bookID int64) string {
	return filepath.Join(d.BookDir(bookID), "pages")
}

// PageImagePath returns the path for a rendered page image.
// Page numbers are 0-indexed, matching the rest of the system.
func (d *Dir) PageImagePath(bookID int64, pageNum, dpi int) string {
	return filepath.Join(d.PageImagesDir(bookID), fmt.Sprintf("page_%04d_%d.png", pageNum, dpi))
}

// UploadsDir returns the staging directory for in-flight uploads.
func (d *Dir) UploadsDir() string {
	return filepath.Join(d.path, "uploads")
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.BooksPath(), d.UploadsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// EnsureBookDir creates the data directory for a book.
func (d *Dir) EnsureBookDir(bookID int64) error {
	return os.MkdirAll(d.PageImagesDir(bookID), 0o755)
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
