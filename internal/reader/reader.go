// Package reader orchestrates book extraction: it ties the PDF document, the
// OCR and LLM providers, and the store together for one book at a time.
package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	retry "github.com/avast/retry-go/v4"

	"github.com/lazyreader/textbookd/internal/home"
	"github.com/lazyreader/textbookd/internal/pdf"
	"github.com/lazyreader/textbookd/internal/providers"
	"github.com/lazyreader/textbookd/internal/store"
	"github.com/lazyreader/textbookd/internal/toc"
)

// DefaultTOCEndPage is the assumed front-matter boundary for books that never
// recorded one during extraction.
const DefaultTOCEndPage = 15

// document is the slice of pdf.Document the reader needs. Tests substitute a
// fake so no real PDF or poppler install is required.
type document interface {
	NumPages() int
	PageText(pageNum int) (string, error)
	RenderPage(ctx context.Context, pageNum, dpi int) ([]byte, error)
	Path() string
	Close() error
}

// Options configures a Reader. Store and LLM are required for extraction;
// OCR may be nil, which forces plain text extraction.
type Options struct {
	Store *store.Store
	LLM   providers.LLMClient
	OCR   providers.OCRProvider
	Home  *home.Dir

	// TextOnly skips OCR and reads the embedded text layer directly.
	TextOnly bool

	// RenderDPI is the rasterization resolution for the OCR path.
	// Zero means pdf.DefaultDPI.
	RenderDPI int

	// Scanner locates the table of contents. Nil means a scanner with
	// default classifier parameters.
	Scanner *toc.Scanner

	Logger *slog.Logger
}

// Reader drives extraction for a single open book.
type Reader struct {
	doc      document
	fileName string

	store   *store.Store
	llm     providers.LLMClient
	ocr     providers.OCRProvider
	home    *home.Dir
	scanner *toc.Scanner

	textOnly  bool
	renderDPI int
	logger    *slog.Logger

	book *store.Book
}

// Open opens the PDF at path and loads the matching book row if one exists.
// The caller must Close the returned Reader.
func Open(ctx context.Context, path string, opts Options) (*Reader, error) {
	doc, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	r, err := open(ctx, doc, path, opts)
	if err != nil {
		doc.Close()
		return nil, err
	}
	return r, nil
}

func open(ctx context.Context, doc document, path string, opts Options) (*Reader, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	scanner := opts.Scanner
	if scanner == nil {
		scanner = toc.NewScanner(toc.NewClassifier(toc.DefaultParameters()), logger)
	}
	renderDPI := opts.RenderDPI
	if renderDPI == 0 {
		renderDPI = pdf.DefaultDPI
	}

	base := filepath.Base(path)
	r := &Reader{
		doc:       doc,
		fileName:  strings.TrimSuffix(base, filepath.Ext(base)),
		store:     opts.Store,
		llm:       opts.LLM,
		ocr:       opts.OCR,
		home:      opts.Home,
		scanner:   scanner,
		textOnly:  opts.TextOnly,
		renderDPI: renderDPI,
		logger:    logger,
	}

	if err := r.loadBook(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

// Close releases the underlying document.
func (r *Reader) Close() error {
	return r.doc.Close()
}

// Book returns the loaded book row, or nil when the book has not been
// extracted yet.
func (r *Reader) Book() *store.Book {
	return r.book
}

// TotalPages returns the page count, never less than 1.
func (r *Reader) TotalPages() int {
	if n := r.doc.NumPages(); n > 0 {
		return n
	}
	return 1
}

func (r *Reader) loadBook(ctx context.Context) error {
	b, err := r.store.GetBookByFileName(ctx, r.fileName)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading book for %q: %w", r.fileName, err)
	}
	r.book = &b
	return nil
}

// PageContent returns the text of a page, preferring the store cache, then
// OCR (or the embedded text layer in text-only mode). Extracted text is
// cached in the store when the book row exists.
func (r *Reader) PageContent(ctx context.Context, pageNum int) (string, error) {
	if r.book != nil {
		text, ok, err := r.store.PageContent(ctx, r.book.ID, pageNum)
		if err != nil {
			return "", fmt.Errorf("reading page cache: %w", err)
		}
		if ok {
			return text, nil
		}
	}

	text, err := r.extractPage(ctx, pageNum)
	if err != nil {
		return "", err
	}

	if r.book != nil {
		_, err := r.store.CreatePageIfAbsent(ctx, store.Page{
			BookID:     r.book.ID,
			PageNumber: pageNum,
			Content:    text,
		})
		if err != nil {
			r.logger.Warn("failed to cache page content",
				"book_id", r.book.ID, "page", pageNum, "error", err)
		}
	}
	return text, nil
}

func (r *Reader) extractPage(ctx context.Context, pageNum int) (string, error) {
	if r.textOnly || r.ocr == nil {
		return r.doc.PageText(pageNum)
	}

	image, err := r.doc.RenderPage(ctx, pageNum, r.renderDPI)
	if err != nil {
		return "", fmt.Errorf("rendering page %d: %w", pageNum, err)
	}

	var result *providers.OCRResult
	err = retry.Do(
		func() error {
			var err error
			result, err = r.ocr.ProcessImage(ctx, image, pageNum)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("ocr reported failure: %s", result.ErrorMessage)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(r.ocr.MaxRetries())),
		retry.Delay(r.ocr.RetryDelayBase()),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("ocr page %d with %s: %w", pageNum, r.ocr.Name(), err)
	}
	return result.Text, nil
}
