package toc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// MaxPagesForDetection bounds the scan. A real TOC sits within the first
// fifteen pages of any book we have seen; scanning further just burns OCR
// calls on front matter.
const MaxPagesForDetection = 15

// PageSource supplies page text by zero-based page index. Implementations may
// OCR on demand, so calls can be slow and can fail.
type PageSource interface {
	PageContent(ctx context.Context, pageNum int) (string, error)
}

// ScanResult is the outcome of a boundary scan.
type ScanResult struct {
	// Text is the concatenated text of the pages classified as TOC.
	Text string
	// EndPage is the index of the first non-TOC page after the TOC run.
	// It stays 0 when no TOC was found, and also when the TOC run was
	// still going at the scan limit. Callers treat 0 as "boundary
	// unknown".
	EndPage int
	// Found reports whether at least one page classified as TOC.
	Found bool
}

// Scanner finds the TOC page run at the front of a document.
type Scanner struct {
	classifier *Classifier
	maxPages   int
	logger     *slog.Logger
}

// NewScanner creates a scanner using the given classifier.
func NewScanner(classifier *Classifier, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		classifier: classifier,
		maxPages:   MaxPagesForDetection,
		logger:     logger,
	}
}

// NewScannerWithLimit creates a scanner that stops after maxPages pages.
// Non-positive limits fall back to MaxPagesForDetection.
func NewScannerWithLimit(classifier *Classifier, maxPages int, logger *slog.Logger) *Scanner {
	s := NewScanner(classifier, logger)
	if maxPages > 0 {
		s.maxPages = maxPages
	}
	return s
}

// Scan walks pages 0..MaxPagesForDetection-1 in order. Once a page classifies
// as TOC it latches on and accumulates page text until the first page that
// classifies false, which marks the boundary. Pages are fetched sequentially
// because each classification decides whether the scan continues.
func (s *Scanner) Scan(ctx context.Context, src PageSource) (ScanResult, error) {
	var (
		result  ScanResult
		builder strings.Builder
		started bool
	)

	for page := 0; page < s.maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return ScanResult{}, err
		}

		text, err := src.PageContent(ctx, page)
		if err != nil {
			return ScanResult{}, fmt.Errorf("reading page %d: %w", page, err)
		}

		obs := ExtractObservation(text)
		isTOC := s.classifier.IsTOC(obs)
		s.logger.Debug("scanned page for toc",
			"page", page,
			"is_toc", isTOC,
			"posterior", s.classifier.Posterior(obs),
			"page_number_lines", obs.PageNumberCount)

		if started && !isTOC {
			result.EndPage = page
			break
		}
		if isTOC {
			started = true
			builder.WriteString(text)
		}
	}

	result.Text = builder.String()
	result.Found = started
	return result, nil
}
