package store

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"),
		slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestBook(t *testing.T, s *Store) int64 {
	t.Helper()
	id, err := s.CreateBook(context.Background(), Book{
		Name:     "Linear Algebra Done Right",
		Author:   "Sheldon Axler",
		Pages:    340,
		Keywords: "linear algebra, vector spaces",
		FileName: "axler.pdf",
	})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	return id
}

func TestBookCRUD(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	id := createTestBook(t, s)

	b, err := s.GetBook(ctx, id)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if b.Name != "Linear Algebra Done Right" || b.Pages != 340 {
		t.Fatalf("unexpected book %+v", b)
	}
	if b.TOCEndPage != nil {
		t.Fatalf("new book should have nil TOCEndPage, got %v", *b.TOCEndPage)
	}
	if b.AlignmentOffset != 0 {
		t.Fatalf("new book should have zero alignment offset, got %d", b.AlignmentOffset)
	}

	byName, err := s.GetBookByName(ctx, "Linear Algebra Done Right")
	if err != nil || byName.ID != id {
		t.Fatalf("GetBookByName: id=%d err=%v", byName.ID, err)
	}

	newAuthor := "S. Axler"
	if err := s.UpdateBook(ctx, id, BookUpdate{Author: &newAuthor}); err != nil {
		t.Fatalf("UpdateBook: %v", err)
	}
	b, _ = s.GetBook(ctx, id)
	if b.Author != "S. Axler" {
		t.Fatalf("author not updated: %q", b.Author)
	}
	if b.Name != "Linear Algebra Done Right" {
		t.Fatalf("untouched field changed: %q", b.Name)
	}

	if err := s.DeleteBook(ctx, id); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	if _, err := s.GetBook(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBook after delete: %v, want ErrNotFound", err)
	}
	if err := s.DeleteBook(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second DeleteBook: %v, want ErrNotFound", err)
	}
}

func TestGetBookByFileName(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	id := createTestBook(t, s)

	b, err := s.GetBookByFileName(ctx, "axler.pdf")
	if err != nil {
		t.Fatalf("GetBookByFileName: %v", err)
	}
	if b.ID != id || b.Name != "Linear Algebra Done Right" {
		t.Fatalf("unexpected book %+v", b)
	}

	if _, err := s.GetBookByFileName(ctx, "missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBookByFileName for missing file: %v, want ErrNotFound", err)
	}
}

func TestCreateBookAllowsDuplicateNames(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)

	// Two scans of different editions can extract the same title; identity
	// is the file name, so both rows must insert.
	id1, err := s.CreateBook(ctx, Book{Name: "Calculus", FileName: "calculus_3ed.pdf"})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	id2, err := s.CreateBook(ctx, Book{Name: "Calculus", FileName: "calculus_4ed.pdf"})
	if err != nil {
		t.Fatalf("CreateBook with duplicate name: %v", err)
	}
	if id1 == id2 {
		t.Fatalf("duplicate ids: %d", id1)
	}

	b, err := s.GetBookByFileName(ctx, "calculus_4ed.pdf")
	if err != nil || b.ID != id2 {
		t.Fatalf("GetBookByFileName: id=%d err=%v", b.ID, err)
	}
}

func TestTOCEndPageDefault(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	id := createTestBook(t, s)

	got, err := s.TOCEndPage(ctx, id, 15)
	if err != nil {
		t.Fatalf("TOCEndPage: %v", err)
	}
	if got != 15 {
		t.Fatalf("unset toc end page = %d, want default 15", got)
	}

	if err := s.SetTOCEndPage(ctx, id, 7); err != nil {
		t.Fatalf("SetTOCEndPage: %v", err)
	}
	got, _ = s.TOCEndPage(ctx, id, 15)
	if got != 7 {
		t.Fatalf("toc end page = %d, want 7", got)
	}

	if _, err := s.TOCEndPage(ctx, 9999, 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("TOCEndPage for missing book: %v, want ErrNotFound", err)
	}
}

func TestAlignmentOffset(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	id := createTestBook(t, s)

	if err := s.SetAlignmentOffset(ctx, id, 12); err != nil {
		t.Fatalf("SetAlignmentOffset: %v", err)
	}
	got, err := s.AlignmentOffset(ctx, id)
	if err != nil || got != 12 {
		t.Fatalf("AlignmentOffset = %d, %v; want 12", got, err)
	}
}

func TestChapterAndSectionIdempotence(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createTestBook(t, s)

	ch := Chapter{BookID: bookID, IndexString: "1", Title: "Vector Spaces", StartPage: 10, EndPage: 42}
	id1, err := s.CreateChapterIfAbsent(ctx, ch)
	if err != nil {
		t.Fatalf("CreateChapterIfAbsent: %v", err)
	}
	id2, err := s.CreateChapterIfAbsent(ctx, ch)
	if err != nil {
		t.Fatalf("CreateChapterIfAbsent rerun: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("rerun produced a different chapter id: %d != %d", id1, id2)
	}

	sec := Section{ChapterID: id1, BookID: bookID, IndexString: "1.A", Title: "Rn and Cn", StartPage: 10, EndPage: 20}
	sid1, err := s.CreateSectionIfAbsent(ctx, sec)
	if err != nil {
		t.Fatalf("CreateSectionIfAbsent: %v", err)
	}
	sid2, err := s.CreateSectionIfAbsent(ctx, sec)
	if err != nil {
		t.Fatalf("CreateSectionIfAbsent rerun: %v", err)
	}
	if sid1 != sid2 {
		t.Fatalf("rerun produced a different section id: %d != %d", sid1, sid2)
	}

	chapters, err := s.ListChapters(ctx, bookID)
	if err != nil || len(chapters) != 1 {
		t.Fatalf("ListChapters: %v, len=%d", err, len(chapters))
	}
	sections, err := s.ListSections(ctx, id1)
	if err != nil || len(sections) != 1 {
		t.Fatalf("ListSections: %v, len=%d", err, len(sections))
	}
}

func TestTOCExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createTestBook(t, s)

	exists, err := s.TOCExists(ctx, bookID)
	if err != nil || exists {
		t.Fatalf("TOCExists before extraction = %v, %v", exists, err)
	}

	chID, err := s.CreateChapterIfAbsent(ctx, Chapter{BookID: bookID, Title: "One", StartPage: 0, EndPage: 9})
	if err != nil {
		t.Fatalf("CreateChapterIfAbsent: %v", err)
	}
	if _, err := s.CreateSectionIfAbsent(ctx, Section{ChapterID: chID, BookID: bookID, Title: "1.1", StartPage: 0, EndPage: 4}); err != nil {
		t.Fatalf("CreateSectionIfAbsent: %v", err)
	}

	exists, _ = s.TOCExists(ctx, bookID)
	if !exists {
		t.Fatalf("TOCExists after extraction = false")
	}

	if err := s.DeleteTOC(ctx, bookID); err != nil {
		t.Fatalf("DeleteTOC: %v", err)
	}
	exists, _ = s.TOCExists(ctx, bookID)
	if exists {
		t.Fatalf("TOCExists after DeleteTOC = true")
	}
	sections, _ := s.ListSections(ctx, chID)
	if len(sections) != 0 {
		t.Fatalf("sections survived DeleteTOC: %d", len(sections))
	}
}

func TestDeleteBookCascades(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createTestBook(t, s)

	chID, _ := s.CreateChapterIfAbsent(ctx, Chapter{BookID: bookID, Title: "One", StartPage: 0, EndPage: 9})
	s.CreateSectionIfAbsent(ctx, Section{ChapterID: chID, BookID: bookID, Title: "1.1", StartPage: 0, EndPage: 4})
	s.CreatePageIfAbsent(ctx, Page{BookID: bookID, PageNumber: 0, Content: "hello"})

	if err := s.DeleteBook(ctx, bookID); err != nil {
		t.Fatalf("DeleteBook: %v", err)
	}
	chapters, _ := s.ListChapters(ctx, bookID)
	if len(chapters) != 0 {
		t.Fatalf("chapters survived book delete: %d", len(chapters))
	}
	if _, found, _ := s.PageContent(ctx, bookID, 0); found {
		t.Fatalf("page content survived book delete")
	}
}

func TestPageContentCache(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createTestBook(t, s)

	if _, found, err := s.PageContent(ctx, bookID, 3); err != nil || found {
		t.Fatalf("PageContent before insert: found=%v err=%v", found, err)
	}

	id1, err := s.CreatePageIfAbsent(ctx, Page{BookID: bookID, PageNumber: 3, Content: "page three"})
	if err != nil {
		t.Fatalf("CreatePageIfAbsent: %v", err)
	}
	// Rerun with different content must keep the original row.
	id2, err := s.CreatePageIfAbsent(ctx, Page{BookID: bookID, PageNumber: 3, Content: "changed"})
	if err != nil {
		t.Fatalf("CreatePageIfAbsent rerun: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("rerun produced a different page id: %d != %d", id1, id2)
	}

	content, found, err := s.PageContent(ctx, bookID, 3)
	if err != nil || !found {
		t.Fatalf("PageContent: found=%v err=%v", found, err)
	}
	if content != "page three" {
		t.Fatalf("content = %q, want original row preserved", content)
	}
}

func TestListBooksTOCExists(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	withTOC := createTestBook(t, s)
	withoutTOC, err := s.CreateBook(ctx, Book{Name: "Another Book"})
	if err != nil {
		t.Fatalf("CreateBook: %v", err)
	}
	s.CreateChapterIfAbsent(ctx, Chapter{BookID: withTOC, Title: "One", StartPage: 0, EndPage: 5})

	books, err := s.ListBooks(ctx)
	if err != nil {
		t.Fatalf("ListBooks: %v", err)
	}
	if len(books) != 2 {
		t.Fatalf("ListBooks returned %d books, want 2", len(books))
	}
	for _, b := range books {
		switch b.ID {
		case withTOC:
			if !b.TOCExists {
				t.Errorf("book %d should report toc_exists", b.ID)
			}
		case withoutTOC:
			if b.TOCExists {
				t.Errorf("book %d should not report toc_exists", b.ID)
			}
		}
	}
}

func TestExercises(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createTestBook(t, s)

	exID, err := s.CreateExerciseIfAbsent(ctx, Exercise{BookID: bookID, PageNumber: 50, Number: "3.4"})
	if err != nil {
		t.Fatalf("CreateExerciseIfAbsent: %v", err)
	}
	exID2, err := s.CreateExerciseIfAbsent(ctx, Exercise{BookID: bookID, PageNumber: 50, Number: "3.4"})
	if err != nil || exID != exID2 {
		t.Fatalf("rerun: id=%d,%d err=%v", exID, exID2, err)
	}

	if _, err := s.AddExerciseDetail(ctx, ExerciseDetail{ExerciseID: exID, Type: "statement", Content: "Prove that..."}); err != nil {
		t.Fatalf("AddExerciseDetail: %v", err)
	}

	list, err := s.ListExercises(ctx, bookID, 50)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListExercises: %v, len=%d", err, len(list))
	}
	if list[0].Number != "3.4" {
		t.Fatalf("exercise number = %q", list[0].Number)
	}
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	bookID := createTestBook(t, s)

	j := JobRecord{ID: "job-1", Type: "extract_toc", BookID: &bookID}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if got.Status != JobStatusPending || got.StartedAt != nil {
		t.Fatalf("fresh job = %+v", got)
	}

	if err := s.MarkJobRunning(ctx, "job-1"); err != nil {
		t.Fatalf("MarkJobRunning: %v", err)
	}
	got, _ = s.GetJob(ctx, "job-1")
	if got.Status != JobStatusRunning || got.StartedAt == nil {
		t.Fatalf("running job = %+v", got)
	}

	if err := s.MarkJobFailed(ctx, "job-1", errors.New("ocr timeout")); err != nil {
		t.Fatalf("MarkJobFailed: %v", err)
	}
	got, _ = s.GetJob(ctx, "job-1")
	if got.Status != JobStatusFailed || got.Error != "ocr timeout" || got.FinishedAt == nil {
		t.Fatalf("failed job = %+v", got)
	}

	failed, err := s.ListJobs(ctx, JobStatusFailed)
	if err != nil || len(failed) != 1 {
		t.Fatalf("ListJobs(failed): %v, len=%d", err, len(failed))
	}
	none, err := s.ListJobs(ctx, JobStatusCompleted)
	if err != nil || len(none) != 0 {
		t.Fatalf("ListJobs(completed): %v, len=%d", err, len(none))
	}

	if err := s.MarkJobCompleted(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("MarkJobCompleted on missing job: %v, want ErrNotFound", err)
	}
}
