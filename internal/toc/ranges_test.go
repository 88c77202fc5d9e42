package toc

import (
	"strings"
	"testing"
)

func TestRanges(t *testing.T) {
	entries := []Entry{
		{IndexString: "1", Title: "A", StartPage: 0},
		{IndexString: "2", Title: "B", StartPage: 10},
		{IndexString: "3", Title: "C", StartPage: 25},
	}
	got, err := Ranges(entries, 40)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	wantEnds := []int{9, 24, 40}
	if len(got) != len(entries) {
		t.Fatalf("got %d ranges, want %d", len(got), len(entries))
	}
	for i, r := range got {
		if r.Entry != entries[i] {
			t.Errorf("range %d entry = %+v, want %+v", i, r.Entry, entries[i])
		}
		if r.EndPage != wantEnds[i] {
			t.Errorf("range %d EndPage = %d, want %d", i, r.EndPage, wantEnds[i])
		}
	}
	// Spans must tile [first start, terminal] without gaps or overlap.
	for i := 1; i < len(got); i++ {
		if got[i].StartPage != got[i-1].EndPage+1 {
			t.Errorf("gap between range %d and %d: %d -> %d", i-1, i, got[i-1].EndPage, got[i].StartPage)
		}
	}
}

func TestRangesSingleEntry(t *testing.T) {
	got, err := Ranges([]Entry{{Title: "Only", StartPage: 2}}, 30)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if len(got) != 1 || got[0].EndPage != 30 {
		t.Fatalf("got %+v, want single range ending at 30", got)
	}
}

func TestRangesDoesNotMutateInput(t *testing.T) {
	entries := []Entry{
		{Title: "A", StartPage: 0},
		{Title: "B", StartPage: 5},
	}
	snapshot := make([]Entry, len(entries))
	copy(snapshot, entries)

	if _, err := Ranges(entries, 9); err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	for i := range entries {
		if entries[i] != snapshot[i] {
			t.Fatalf("input entry %d mutated: %+v", i, entries[i])
		}
	}
	if len(entries) != len(snapshot) {
		t.Fatalf("input length changed to %d", len(entries))
	}
}

func TestRangesDegenerateSurfaced(t *testing.T) {
	// An entry that starts past the terminal page yields an inverted span.
	// It must come back as-is so the caller can flag it.
	got, err := Ranges([]Entry{{Title: "Ghost", StartPage: 5}}, 3)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if got[0].StartPage != 5 || got[0].EndPage != 3 {
		t.Fatalf("got %+v, want inverted range 5..3 surfaced", got[0])
	}
}

func TestRangesDuplicateStartPages(t *testing.T) {
	// Two entries starting on the same page: the first collapses to an
	// inverted span and the second keeps the full run to the terminal.
	entries := []Entry{
		{Title: "A", StartPage: 5},
		{Title: "B", StartPage: 5},
	}
	got, err := Ranges(entries, 10)
	if err != nil {
		t.Fatalf("Ranges: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d ranges, want 2", len(got))
	}
	if got[0].StartPage != 5 || got[0].EndPage != 4 {
		t.Errorf("range 0 = %d..%d, want 5..4", got[0].StartPage, got[0].EndPage)
	}
	if got[1].StartPage != 5 || got[1].EndPage != 10 {
		t.Errorf("range 1 = %d..%d, want 5..10", got[1].StartPage, got[1].EndPage)
	}
}

func TestRangesValidation(t *testing.T) {
	if _, err := Ranges(nil, 10); err == nil {
		t.Fatalf("expected error for empty entries")
	}
	_, err := Ranges([]Entry{{Title: "X", StartPage: -1}}, 10)
	if err == nil || !strings.Contains(err.Error(), "negative start page") {
		t.Fatalf("expected negative start page error, got %v", err)
	}
	if _, err := Ranges([]Entry{{Title: "X", StartPage: 0}}, -2); err == nil {
		t.Fatalf("expected error for negative terminal page")
	}
}
