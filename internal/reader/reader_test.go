package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/lazyreader/textbookd/internal/home"
	"github.com/lazyreader/textbookd/internal/providers"
	"github.com/lazyreader/textbookd/internal/store"
)

type fakeDocument struct {
	pages     []string
	textCalls int
}

func (f *fakeDocument) NumPages() int { return len(f.pages) }

func (f *fakeDocument) PageText(pageNum int) (string, error) {
	if pageNum < 0 || pageNum >= len(f.pages) {
		return "", fmt.Errorf("page %d out of range [0, %d)", pageNum, len(f.pages))
	}
	f.textCalls++
	return f.pages[pageNum], nil
}

func (f *fakeDocument) RenderPage(_ context.Context, pageNum, _ int) ([]byte, error) {
	if pageNum < 0 || pageNum >= len(f.pages) {
		return nil, fmt.Errorf("page %d out of range [0, %d)", pageNum, len(f.pages))
	}
	return []byte(fmt.Sprintf("png-%d", pageNum)), nil
}

func (f *fakeDocument) Path() string { return "/tmp/fake.pdf" }
func (f *fakeDocument) Close() error { return nil }

const prosePage = "The quick brown fox jumps over the lazy hound.\n" +
	"More prose follows about the weather and the harbor.\n"

func tocPageText() string {
	var b strings.Builder
	b.WriteString("contents\n")
	for i := 1; i <= 18; i++ {
		fmt.Fprintf(&b, "chapter %d ... %d\n", i, i*7)
	}
	return b.String()
}

// bookPages builds a 20 page document: cover, two TOC pages, then body.
func bookPages() []string {
	pages := make([]string, 20)
	pages[0] = "Linear Algebra Done Right\nSheldon Axler\n"
	pages[1] = tocPageText()
	pages[2] = tocPageText()
	for i := 3; i < len(pages); i++ {
		pages[i] = prosePage
	}
	return pages
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(),
		filepath.Join(t.TempDir(), "test.db"), slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testReader(t *testing.T, doc *fakeDocument, opts Options) *Reader {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	r, err := open(context.Background(), doc, "/tmp/algebra.pdf", opts)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	return r
}

func createBook(t *testing.T, s *store.Store) int64 {
	t.Helper()
	id, err := s.CreateBook(context.Background(), store.Book{
		Name:     "Linear Algebra Done Right",
		Author:   "Sheldon Axler",
		Pages:    20,
		FileName: "algebra",
	})
	if err != nil {
		t.Fatalf("create book: %v", err)
	}
	return id
}

func TestPageContentTextOnlyCaches(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	createBook(t, s)

	doc := &fakeDocument{pages: bookPages()}
	r := testReader(t, doc, Options{Store: s, TextOnly: true})

	text, err := r.PageContent(ctx, 5)
	if err != nil {
		t.Fatalf("PageContent: %v", err)
	}
	if text != prosePage {
		t.Errorf("text = %q", text)
	}

	// Second read comes from the store cache.
	if _, err := r.PageContent(ctx, 5); err != nil {
		t.Fatalf("PageContent (cached): %v", err)
	}
	if doc.textCalls != 1 {
		t.Errorf("document read %d times, want 1", doc.textCalls)
	}
}

func TestPageContentOCRPath(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	createBook(t, s)

	ocr := providers.NewMockOCRProvider(map[int]string{2: "# ocr output"})
	doc := &fakeDocument{pages: bookPages()}
	r := testReader(t, doc, Options{Store: s, OCR: ocr})

	text, err := r.PageContent(ctx, 2)
	if err != nil {
		t.Fatalf("PageContent: %v", err)
	}
	if text != "# ocr output" {
		t.Errorf("text = %q", text)
	}
	if len(ocr.Calls) != 1 || ocr.Calls[0] != 2 {
		t.Errorf("ocr calls = %v", ocr.Calls)
	}
	if doc.textCalls != 0 {
		t.Error("text layer should not be read on the OCR path")
	}
}

func TestExtractBookInfo(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	llm := providers.NewMockLLMClient()
	if err := llm.QueueJSON(BookBasicInfo{
		BookName:     "Linear Algebra Done Right",
		BookAuthor:   "Sheldon Axler",
		BookKeywords: "linear algebra, vector spaces",
	}); err != nil {
		t.Fatal(err)
	}

	doc := &fakeDocument{pages: bookPages()}
	r := testReader(t, doc, Options{Store: s, LLM: llm, TextOnly: true})

	book, err := r.ExtractBookInfo(ctx, false)
	if err != nil {
		t.Fatalf("ExtractBookInfo: %v", err)
	}
	if book.Name != "Linear Algebra Done Right" || book.Author != "Sheldon Axler" {
		t.Errorf("book = %+v", book)
	}
	if book.Pages != 20 {
		t.Errorf("pages = %d, want 20", book.Pages)
	}
	if book.FileName != "algebra" {
		t.Errorf("file name = %q", book.FileName)
	}

	if len(llm.Requests) != 1 {
		t.Fatalf("llm requests = %d, want 1", len(llm.Requests))
	}
	req := llm.Requests[0]
	if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_schema" {
		t.Error("structured output not requested")
	}
	if !strings.Contains(req.Messages[0].Content, "Sheldon Axler") {
		t.Error("cover text missing from prompt")
	}
}

func TestExtractBookInfoSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	createBook(t, s)

	llm := providers.NewMockLLMClient()
	doc := &fakeDocument{pages: bookPages()}
	r := testReader(t, doc, Options{Store: s, LLM: llm, TextOnly: true})

	book, err := r.ExtractBookInfo(ctx, false)
	if err != nil {
		t.Fatalf("ExtractBookInfo: %v", err)
	}
	if book == nil || book.Name != "Linear Algebra Done Right" {
		t.Errorf("book = %+v", book)
	}
	if len(llm.Requests) != 0 {
		t.Errorf("llm called %d times for an existing book", len(llm.Requests))
	}
}

func TestExtractBookInfoOverwrite(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	createBook(t, s)

	llm := providers.NewMockLLMClient()
	if err := llm.QueueJSON(BookBasicInfo{
		BookName:     "Linear Algebra Done Right, 4th Edition",
		BookAuthor:   "Sheldon Axler",
		BookKeywords: "linear algebra",
	}); err != nil {
		t.Fatal(err)
	}

	doc := &fakeDocument{pages: bookPages()}
	r := testReader(t, doc, Options{Store: s, LLM: llm, TextOnly: true})

	book, err := r.ExtractBookInfo(ctx, true)
	if err != nil {
		t.Fatalf("ExtractBookInfo: %v", err)
	}
	if book.Name != "Linear Algebra Done Right, 4th Edition" {
		t.Errorf("name = %q", book.Name)
	}
}

func sampleTOC() TOC {
	return TOC{Chapters: []TOCChapter{
		{
			IndexString: "1", Title: "Vector Spaces", PageNumber: 4,
			Sections: []TOCSection{
				{IndexString: "1.1", Title: "Fields", PageNumber: 4},
				{IndexString: "1.2", Title: "Subspaces", PageNumber: 6},
			},
		},
		{IndexString: "2", Title: "Linear Maps", PageNumber: 9, Sections: []TOCSection{}},
	}}
}

func TestExtractTOC(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createBook(t, s)

	llm := providers.NewMockLLMClient()
	if err := llm.QueueJSON(sampleTOC()); err != nil {
		t.Fatal(err)
	}

	doc := &fakeDocument{pages: bookPages()}
	r := testReader(t, doc, Options{Store: s, LLM: llm, TextOnly: true})

	if err := r.ExtractTOC(ctx, false, false); err != nil {
		t.Fatalf("ExtractTOC: %v", err)
	}

	// TOC spans pages 1-2; the boundary is the first non-TOC page.
	endPage, err := s.TOCEndPage(ctx, bookID, DefaultTOCEndPage)
	if err != nil {
		t.Fatal(err)
	}
	if endPage != 3 {
		t.Errorf("toc end page = %d, want 3", endPage)
	}

	chapters, err := s.ListChapters(ctx, bookID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 2 {
		t.Fatalf("chapters = %d, want 2", len(chapters))
	}
	if chapters[0].StartPage != 4 || chapters[0].EndPage != 8 {
		t.Errorf("chapter 1 range = [%d, %d], want [4, 8]", chapters[0].StartPage, chapters[0].EndPage)
	}
	if chapters[1].StartPage != 9 || chapters[1].EndPage != 19 {
		t.Errorf("chapter 2 range = [%d, %d], want [9, 19]", chapters[1].StartPage, chapters[1].EndPage)
	}

	sections, err := s.ListSections(ctx, chapters[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(sections))
	}
	if sections[0].StartPage != 4 || sections[0].EndPage != 5 {
		t.Errorf("section 1.1 range = [%d, %d], want [4, 5]", sections[0].StartPage, sections[0].EndPage)
	}
	if sections[1].StartPage != 6 || sections[1].EndPage != 8 {
		t.Errorf("section 1.2 range = [%d, %d], want [6, 8]", sections[1].StartPage, sections[1].EndPage)
	}

	// The TOC prompt must carry the accumulated TOC text.
	last := llm.Requests[len(llm.Requests)-1]
	if !strings.Contains(last.Messages[0].Content, "contents") {
		t.Error("toc text missing from prompt")
	}
}

func TestExtractTOCSkipsExisting(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createBook(t, s)
	if _, err := s.CreateChapterIfAbsent(ctx, store.Chapter{
		BookID: bookID, Title: "Vector Spaces", StartPage: 4, EndPage: 8,
	}); err != nil {
		t.Fatal(err)
	}

	llm := providers.NewMockLLMClient()
	doc := &fakeDocument{pages: bookPages()}
	r := testReader(t, doc, Options{Store: s, LLM: llm, TextOnly: true})

	if err := r.ExtractTOC(ctx, false, false); err != nil {
		t.Fatalf("ExtractTOC: %v", err)
	}
	if len(llm.Requests) != 0 {
		t.Errorf("llm called %d times when toc exists", len(llm.Requests))
	}
}

func TestExtractTOCNotFound(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	createBook(t, s)

	pages := make([]string, 20)
	for i := range pages {
		pages[i] = prosePage
	}

	llm := providers.NewMockLLMClient()
	doc := &fakeDocument{pages: pages}
	r := testReader(t, doc, Options{Store: s, LLM: llm, TextOnly: true})

	if err := r.ExtractTOC(ctx, false, false); err == nil {
		t.Fatal("expected error when no toc page is found")
	}
}

func TestExtractTOCUsesCache(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createBook(t, s)

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := h.EnsureBookDir(bookID); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(sampleTOC())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(h.TOCCachePath(bookID), data, 0o644); err != nil {
		t.Fatal(err)
	}

	llm := providers.NewMockLLMClient()
	doc := &fakeDocument{pages: bookPages()}
	r := testReader(t, doc, Options{Store: s, LLM: llm, Home: h, TextOnly: true})

	if err := r.ExtractTOC(ctx, true, false); err != nil {
		t.Fatalf("ExtractTOC: %v", err)
	}
	if len(llm.Requests) != 0 {
		t.Errorf("llm called %d times with a warm cache", len(llm.Requests))
	}

	chapters, err := s.ListChapters(ctx, bookID)
	if err != nil {
		t.Fatal(err)
	}
	if len(chapters) != 2 {
		t.Errorf("chapters = %d, want 2", len(chapters))
	}
}

func TestAlignmentOffset(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createBook(t, s)
	if err := s.SetTOCEndPage(ctx, bookID, 4); err != nil {
		t.Fatal(err)
	}

	doc := &fakeDocument{pages: bookPages()}
	r := testReader(t, doc, Options{Store: s, TextOnly: true})

	samples, err := r.CheckAlignmentOffset(ctx)
	if err != nil {
		t.Fatalf("CheckAlignmentOffset: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(samples))
	}
	if samples[0].PageNumber != 4 || samples[2].PageNumber != 6 {
		t.Errorf("sample pages = %d..%d, want 4..6", samples[0].PageNumber, samples[2].PageNumber)
	}

	if err := r.UpdateAlignmentOffset(ctx, 7); err != nil {
		t.Fatalf("UpdateAlignmentOffset: %v", err)
	}
	offset, err := s.AlignmentOffset(ctx, bookID)
	if err != nil {
		t.Fatal(err)
	}
	if offset != 7 {
		t.Errorf("offset = %d, want 7", offset)
	}

	if err := r.UpdateAlignmentOffset(ctx, -1); err == nil {
		t.Error("negative offset accepted")
	}
}

func TestExcerptKeepsValidUTF8(t *testing.T) {
	short := excerpt("abc", 10)
	if short != "abc" {
		t.Fatalf("excerpt = %q, want unchanged", short)
	}

	// A cut landing mid-rune must back off to the previous boundary.
	text := strings.Repeat("ü", 20)
	for limit := 1; limit < 6; limit++ {
		got := excerpt(text, limit)
		if !utf8.ValidString(got) {
			t.Fatalf("excerpt at limit %d is not valid UTF-8: %q", limit, got)
		}
		if len(got) > limit {
			t.Fatalf("excerpt at limit %d is %d bytes", limit, len(got))
		}
	}
}
