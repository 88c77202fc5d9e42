package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	alignmentSampleCount = 3
	alignmentExcerptLen  = 300
)

// AlignmentSample is one body page offered to the user for matching printed
// page numbers against physical page indexes.
type AlignmentSample struct {
	PageNumber int    `json:"page_number"`
	Excerpt    string `json:"excerpt"`
}

// CheckAlignmentOffset returns excerpts of the first body pages after the
// table of contents. The user reads the printed page number off an excerpt
// and feeds the physical index back through UpdateAlignmentOffset.
func (r *Reader) CheckAlignmentOffset(ctx context.Context) ([]AlignmentSample, error) {
	if r.book == nil {
		return nil, errors.New("book info not extracted yet")
	}

	tocEnd, err := r.store.TOCEndPage(ctx, r.book.ID, DefaultTOCEndPage)
	if err != nil {
		return nil, err
	}

	var samples []AlignmentSample
	for page := tocEnd; page < tocEnd+alignmentSampleCount && page < r.doc.NumPages(); page++ {
		text, err := r.PageContent(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("reading sample page %d: %w", page, err)
		}
		samples = append(samples, AlignmentSample{
			PageNumber: page,
			Excerpt:    excerpt(text, alignmentExcerptLen),
		})
	}
	return samples, nil
}

// UpdateAlignmentOffset records the physical page index where the book's
// printed page numbering starts.
func (r *Reader) UpdateAlignmentOffset(ctx context.Context, pageNumber int) error {
	if r.book == nil {
		return errors.New("book info not extracted yet")
	}
	if pageNumber < 0 {
		return fmt.Errorf("page number %d must be non-negative", pageNumber)
	}
	if err := r.store.SetAlignmentOffset(ctx, r.book.ID, pageNumber); err != nil {
		return err
	}
	r.book.AlignmentOffset = pageNumber
	return nil
}

func excerpt(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// character.
	cut := limit
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
