package toc

import "fmt"

// Entry is one TOC line item with the page it starts on, as extracted from
// the structured LLM output. StartPage is zero-based.
type Entry struct {
	IndexString string
	Title       string
	StartPage   int
}

// Range is an entry with its resolved inclusive page span.
type Range struct {
	Entry
	EndPage int
}

// Ranges resolves each entry's end page from the start page of the entry that
// follows it. terminalPage is the last page attributed to the final entry; a
// synthetic sentinel at terminalPage+1 closes the sequence, so for chapters
// the caller passes the document's last page index and for sections the
// chapter's inclusive end page.
//
// Entries whose neighbor starts on the same or an earlier page come back with
// EndPage < StartPage. Those are surfaced as-is rather than silently dropped;
// the caller decides whether a collapsed range is an extraction error worth
// reporting.
func Ranges(entries []Entry, terminalPage int) ([]Range, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries to resolve")
	}
	for i, e := range entries {
		if e.StartPage < 0 {
			return nil, fmt.Errorf("entry %d (%q): negative start page %d", i, e.Title, e.StartPage)
		}
	}
	if terminalPage < 0 {
		return nil, fmt.Errorf("negative terminal page %d", terminalPage)
	}

	sentinel := Entry{StartPage: terminalPage + 1}
	ranges := make([]Range, 0, len(entries))
	for i, e := range entries {
		next := sentinel
		if i+1 < len(entries) {
			next = entries[i+1]
		}
		ranges = append(ranges, Range{Entry: e, EndPage: next.StartPage - 1})
	}
	return ranges, nil
}
