package document

import (
	"strings"
	"testing"
)

func TestBuildExtraction_Offsets(t *testing.T) {
	ex := BuildExtraction([]string{"page one text", "page two", ""})

	if len(ex.Pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(ex.Pages))
	}

	// Contiguous, non-overlapping, monotonically increasing ranges.
	cursor := 0
	for i, p := range ex.Pages {
		if p.Number != i+1 {
			t.Errorf("page %d: Number = %d", i, p.Number)
		}
		if p.StartChar != cursor {
			t.Errorf("page %d: StartChar = %d, want %d", i, p.StartChar, cursor)
		}
		if p.EndChar < p.StartChar {
			t.Errorf("page %d: EndChar %d < StartChar %d", i, p.EndChar, p.StartChar)
		}
		cursor = p.EndChar + 1
	}

	// Each page's text is recoverable from the full text at its offsets.
	for i, p := range ex.Pages {
		got := ex.FullText[p.StartChar:p.EndChar]
		if got != p.Text {
			t.Errorf("page %d: FullText slice = %q, want %q", i, got, p.Text)
		}
	}

	// FullText is the ordered concatenation of page texts.
	want := "page one text\npage two\n\n"
	if ex.FullText != want {
		t.Errorf("FullText = %q, want %q", ex.FullText, want)
	}
}

func TestBuildExtraction_Empty(t *testing.T) {
	ex := BuildExtraction(nil)
	if ex.FullText != "" || len(ex.Pages) != 0 {
		t.Errorf("empty input: FullText=%q pages=%d", ex.FullText, len(ex.Pages))
	}
}

func TestBuildExtraction_NormalizedText(t *testing.T) {
	// Callers normalize CRLF before building; verify offsets hold for
	// multi-line pages.
	page := "line one\nline two\nline three"
	ex := BuildExtraction([]string{page})
	if !strings.HasPrefix(ex.FullText, page) {
		t.Errorf("FullText does not start with page text")
	}
	if ex.Pages[0].EndChar != len(page) {
		t.Errorf("EndChar = %d, want %d", ex.Pages[0].EndChar, len(page))
	}
}
