// Package pdf wraps PDF access for the rest of the system: page counting,
// embedded text extraction, and page rasterization via pdftoppm.
package pdf

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	rpdf "rsc.io/pdf"
)

// DPI bounds for page rendering. Below 72 text becomes unreadable for OCR,
// above 300 the images get large without improving recognition.
const (
	MinDPI     = 72
	MaxDPI     = 300
	DefaultDPI = 150
)

// Document is an open PDF file.
type Document struct {
	path      string
	file      *os.File
	reader    *rpdf.Reader
	pageCount int
}

// Open opens the PDF at path. The caller owns the returned Document and must
// Close it.
func Open(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	count, err := api.PageCount(f, nil)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat PDF: %w", err)
	}
	reader, err := rpdf.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}

	return &Document{path: path, file: f, reader: reader, pageCount: count}, nil
}

// Close releases the underlying file.
func (d *Document) Close() error {
	return d.file.Close()
}

// Path returns the file path the document was opened from.
func (d *Document) Path() string {
	return d.path
}

// NumPages returns the page count.
func (d *Document) NumPages() int {
	return d.pageCount
}

func (d *Document) checkPage(pageNum int) error {
	if pageNum < 0 || pageNum >= d.pageCount {
		return fmt.Errorf("page %d out of range [0, %d)", pageNum, d.pageCount)
	}
	return nil
}

// PageText extracts the embedded text layer of a page. Page numbers are
// zero-based. Scanned books usually have no text layer; callers fall back to
// OCR when the result is empty.
func (d *Document) PageText(pageNum int) (string, error) {
	if err := d.checkPage(pageNum); err != nil {
		return "", err
	}

	// rsc.io/pdf pages are 1-based. Content() panics on malformed streams,
	// so recover and report instead of taking the server down.
	var text string
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("malformed content stream on page %d: %v", pageNum, r)
			}
		}()
		text = assembleText(d.reader.Page(pageNum + 1).Content().Text)
		return nil
	}()
	if err != nil {
		return "", err
	}
	return text, nil
}

// assembleText orders raw text items into lines. Items sharing a baseline
// (within half a point) belong to one line; lines run top to bottom.
func assembleText(items []rpdf.Text) string {
	if len(items) == 0 {
		return ""
	}
	sorted := make([]rpdf.Text, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if math.Abs(sorted[i].Y-sorted[j].Y) > 0.5 {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var b strings.Builder
	lastY := sorted[0].Y
	for _, item := range sorted {
		if math.Abs(item.Y-lastY) > 0.5 {
			b.WriteString("\n")
			lastY = item.Y
		}
		b.WriteString(item.S)
	}
	return b.String()
}

// RenderPage rasterizes a page to PNG at the given DPI using pdftoppm
// (poppler-utils). Page numbers are zero-based; dpi is clamped to
// [MinDPI, MaxDPI].
func (d *Document) RenderPage(ctx context.Context, pageNum, dpi int) ([]byte, error) {
	if err := d.checkPage(pageNum); err != nil {
		return nil, err
	}
	dpi = ClampDPI(dpi)

	tmpDir, err := os.MkdirTemp("", "textbookd-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := fmt.Sprintf("%d", pageNum+1)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		d.path,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}
	return data, nil
}

// ClampDPI bounds a requested DPI, substituting the default for zero.
func ClampDPI(dpi int) int {
	if dpi == 0 {
		return DefaultDPI
	}
	if dpi < MinDPI {
		return MinDPI
	}
	if dpi > MaxDPI {
		return MaxDPI
	}
	return dpi
}

// PageCount returns the page count of the PDF at path without keeping the
// file open.
func PageCount(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}
