package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/lazyreader/textbookd/internal/providers"
	"github.com/lazyreader/textbookd/internal/store"
	"github.com/lazyreader/textbookd/internal/toc"
)

// BookBasicInfo is the structured output of the book-info extraction call.
type BookBasicInfo struct {
	BookName     string `json:"book_name"`
	BookAuthor   string `json:"book_author"`
	BookKeywords string `json:"book_keywords"`
}

// TOC is the structured output of the table-of-contents extraction call.
type TOC struct {
	Chapters []TOCChapter `json:"chapters"`
}

// TOCChapter is one chapter entry with its nested sections.
type TOCChapter struct {
	IndexString string       `json:"index_string"`
	Title       string       `json:"title"`
	PageNumber  int          `json:"page_number"`
	Sections    []TOCSection `json:"sections"`
}

// TOCSection is one section entry.
type TOCSection struct {
	IndexString string `json:"index_string"`
	Title       string `json:"title"`
	PageNumber  int    `json:"page_number"`
}

// ExtractBookInfo reads the cover page, asks the LLM for title, author and
// keywords, and persists the book row. An already-extracted book is returned
// untouched unless overwrite is set, in which case its fields are updated.
func (r *Reader) ExtractBookInfo(ctx context.Context, overwrite bool) (*store.Book, error) {
	if r.book != nil && !overwrite {
		r.logger.Info("book already extracted, skipping",
			"book_id", r.book.ID, "name", r.book.Name)
		return r.book, nil
	}

	cover, err := r.PageContent(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("reading cover page: %w", err)
	}

	info, err := r.promptBookInfo(ctx, cover)
	if err != nil {
		return nil, err
	}

	if r.book != nil {
		upd := store.BookUpdate{
			Name:     &info.BookName,
			Author:   &info.BookAuthor,
			Keywords: &info.BookKeywords,
		}
		if err := r.store.UpdateBook(ctx, r.book.ID, upd); err != nil {
			return nil, fmt.Errorf("updating book info: %w", err)
		}
		b, err := r.store.GetBook(ctx, r.book.ID)
		if err != nil {
			return nil, err
		}
		r.book = &b
		return r.book, nil
	}

	id, err := r.store.CreateBook(ctx, store.Book{
		Name:     info.BookName,
		Author:   info.BookAuthor,
		Keywords: info.BookKeywords,
		Pages:    r.TotalPages(),
		FileName: r.fileName,
	})
	if err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}
	b, err := r.store.GetBook(ctx, id)
	if err != nil {
		return nil, err
	}
	r.book = &b
	r.logger.Info("book info extracted", "book_id", b.ID, "name", b.Name)
	return r.book, nil
}

func (r *Reader) promptBookInfo(ctx context.Context, cover string) (BookBasicInfo, error) {
	res, err := r.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "user", Content: fmt.Sprintf(bookInfoPrompt, cover)},
		},
		ResponseFormat: &providers.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: json.RawMessage(bookInfoSchema),
		},
	})
	if err != nil {
		return BookBasicInfo{}, fmt.Errorf("book info extraction: %w", err)
	}

	var info BookBasicInfo
	if err := json.Unmarshal(structuredPayload(res), &info); err != nil {
		return BookBasicInfo{}, fmt.Errorf("parsing book info response: %w", err)
	}
	return info, nil
}

// ExtractTOC locates the table of contents, extracts its structure through
// the LLM, and persists chapters and sections with resolved page ranges.
// With caching enabled the raw structured response is kept under the book's
// home directory and reused on rerun. An existing TOC is kept unless
// overwrite is set, in which case it is deleted and rebuilt.
func (r *Reader) ExtractTOC(ctx context.Context, caching, overwrite bool) error {
	if r.book == nil {
		return errors.New("book info not extracted yet")
	}

	exists, err := r.store.TOCExists(ctx, r.book.ID)
	if err != nil {
		return err
	}
	if exists {
		if !overwrite {
			r.logger.Info("toc already extracted, skipping", "book_id", r.book.ID)
			return nil
		}
		if err := r.store.DeleteTOC(ctx, r.book.ID); err != nil {
			return err
		}
	}

	if caching && r.home != nil {
		if t, ok := r.readTOCCache(); ok {
			r.logger.Info("using cached toc", "book_id", r.book.ID)
			return r.saveTOC(ctx, t)
		}
	}

	scan, err := r.scanner.Scan(ctx, r)
	if err != nil {
		return fmt.Errorf("scanning for toc: %w", err)
	}
	if !scan.Found {
		return errors.New("no table of contents detected")
	}
	if scan.EndPage > 0 {
		if err := r.store.SetTOCEndPage(ctx, r.book.ID, scan.EndPage); err != nil {
			return err
		}
	}

	res, err := r.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "user", Content: fmt.Sprintf(tocPrompt, scan.Text)},
		},
		ResponseFormat: &providers.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: json.RawMessage(tocSchema),
		},
	})
	if err != nil {
		return fmt.Errorf("toc extraction: %w", err)
	}

	payload := structuredPayload(res)
	var t TOC
	if err := json.Unmarshal(payload, &t); err != nil {
		return fmt.Errorf("parsing toc response: %w", err)
	}

	if caching && r.home != nil {
		r.writeTOCCache(payload)
	}
	return r.saveTOC(ctx, t)
}

func (r *Reader) readTOCCache() (TOC, bool) {
	data, err := os.ReadFile(r.home.TOCCachePath(r.book.ID))
	if err != nil {
		return TOC{}, false
	}
	var t TOC
	if err := json.Unmarshal(data, &t); err != nil {
		r.logger.Warn("ignoring unreadable toc cache", "book_id", r.book.ID, "error", err)
		return TOC{}, false
	}
	return t, true
}

func (r *Reader) writeTOCCache(payload []byte) {
	if err := r.home.EnsureBookDir(r.book.ID); err != nil {
		r.logger.Warn("failed to create book dir for toc cache", "error", err)
		return
	}
	if err := os.WriteFile(r.home.TOCCachePath(r.book.ID), payload, 0o644); err != nil {
		r.logger.Warn("failed to write toc cache", "error", err)
	}
}

// saveTOC resolves page ranges and persists chapters and sections. Creates
// are idempotent so a partial earlier run does not produce duplicates.
func (r *Reader) saveTOC(ctx context.Context, t TOC) error {
	entries := make([]toc.Entry, len(t.Chapters))
	for i, ch := range t.Chapters {
		entries[i] = toc.Entry{IndexString: ch.IndexString, Title: ch.Title, StartPage: ch.PageNumber}
	}
	ranges, err := toc.Ranges(entries, r.TotalPages()-1)
	if err != nil {
		return fmt.Errorf("resolving chapter ranges: %w", err)
	}

	for i, cr := range ranges {
		chapterID, err := r.store.CreateChapterIfAbsent(ctx, store.Chapter{
			BookID:      r.book.ID,
			IndexString: cr.IndexString,
			Title:       cr.Title,
			StartPage:   cr.StartPage,
			EndPage:     cr.EndPage,
		})
		if err != nil {
			return fmt.Errorf("saving chapter %q: %w", cr.Title, err)
		}

		sections := t.Chapters[i].Sections
		if len(sections) == 0 {
			continue
		}
		sectionEntries := make([]toc.Entry, len(sections))
		for j, sec := range sections {
			sectionEntries[j] = toc.Entry{IndexString: sec.IndexString, Title: sec.Title, StartPage: sec.PageNumber}
		}
		sectionRanges, err := toc.Ranges(sectionEntries, cr.EndPage)
		if err != nil {
			return fmt.Errorf("resolving section ranges for chapter %q: %w", cr.Title, err)
		}
		for _, sr := range sectionRanges {
			_, err := r.store.CreateSectionIfAbsent(ctx, store.Section{
				ChapterID:   chapterID,
				BookID:      r.book.ID,
				IndexString: sr.IndexString,
				Title:       sr.Title,
				StartPage:   sr.StartPage,
				EndPage:     sr.EndPage,
			})
			if err != nil {
				return fmt.Errorf("saving section %q: %w", sr.Title, err)
			}
		}
	}
	return nil
}

// CheckTOCExists reports whether structure extraction has produced chapters.
func (r *Reader) CheckTOCExists(ctx context.Context) (bool, error) {
	if r.book == nil {
		return false, nil
	}
	return r.store.TOCExists(ctx, r.book.ID)
}

func structuredPayload(res *providers.ChatResult) []byte {
	if len(res.ParsedJSON) > 0 {
		return res.ParsedJSON
	}
	return []byte(res.Content)
}
