package risk

import (
	"reflect"
	"strings"
	"testing"
)

func mustExtractor(t *testing.T, patterns []Pattern) *Extractor {
	t.Helper()
	e, err := NewExtractor(patterns)
	if err != nil {
		t.Fatalf("NewExtractor: %v", err)
	}
	return e
}

func TestNewExtractor_RejectsBadTable(t *testing.T) {
	cases := []struct {
		name     string
		patterns []Pattern
	}{
		{"empty table", nil},
		{"bad regexp", []Pattern{{Expr: "(", Label: "broken", Weight: 10}}},
		{"zero weight", []Pattern{{Expr: "x", Label: "x", Weight: 0}}},
		{"weight over cap", []Pattern{{Expr: "x", Label: "x", Weight: 101}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewExtractor(tc.patterns); err == nil {
				t.Fatal("expected configuration error, got nil")
			}
		})
	}
}

func TestExtract_EmptyText(t *testing.T) {
	e := mustExtractor(t, DefaultPatterns())
	if spans := e.Extract(""); len(spans) != 0 {
		t.Fatalf("Extract(\"\") = %d spans, want 0", len(spans))
	}
}

func TestExtract_NoMatches(t *testing.T) {
	e := mustExtractor(t, []Pattern{{Expr: "indemnif", Label: "Indemnity", Weight: 30}})
	if spans := e.Extract("a perfectly harmless sentence"); len(spans) != 0 {
		t.Fatalf("got %d spans, want 0", len(spans))
	}
}

// The worked example: two hits within the merge gap collapse to a single
// Medium span with summed score and concatenated labels.
func TestExtract_MergesNearbyHits(t *testing.T) {
	text := "...gross negligence and indemnification obligations shall survive termination..."
	e := mustExtractor(t, []Pattern{
		{Expr: "indemnif", Label: "Indemnity", Weight: 30},
		{Expr: "termination", Label: "Termination", Weight: 20},
	})

	spans := e.Extract(text)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Score != 50 {
		t.Errorf("Score = %d, want 50", s.Score)
	}
	if s.Severity != "Medium" {
		t.Errorf("Severity = %q, want Medium", s.Severity)
	}
	if s.Label != "Indemnity ; Termination" {
		t.Errorf("Label = %q, want %q", s.Label, "Indemnity ; Termination")
	}
}

func TestExtract_DistantHitsStaySeparate(t *testing.T) {
	text := "indemnification" + strings.Repeat(" filler", 80) + " termination"
	e := mustExtractor(t, []Pattern{
		{Expr: "indemnif", Label: "Indemnity", Weight: 30},
		{Expr: "termination", Label: "Termination", Weight: 20},
	})

	spans := e.Extract(text)
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if gap := spans[1].Start - spans[0].End; gap <= mergeGap {
		t.Errorf("gap between spans = %d, want > %d", gap, mergeGap)
	}
}

func TestExtract_NonOverlapInvariant(t *testing.T) {
	// A text dense with matches: every adjacent pair of merged spans must
	// end up further apart than the merge gap.
	var b strings.Builder
	for i := 0; i < 20; i++ {
		b.WriteString("indemnify here")
		b.WriteString(strings.Repeat(" x", 10+i*20))
	}
	e := mustExtractor(t, DefaultPatterns())

	spans := e.Extract(b.String())
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.Start <= prev.Start {
			t.Fatalf("spans not sorted: %d then %d", prev.Start, cur.Start)
		}
		if cur.Start-prev.End <= mergeGap {
			t.Errorf("adjacent spans %d chars apart, want > %d", cur.Start-prev.End, mergeGap)
		}
	}
}

func TestExtract_ScoreCappedAt100(t *testing.T) {
	// Many heavy hits close together: sum must clamp at the cap.
	text := strings.Repeat("indemnify penalty liability ", 10)
	e := mustExtractor(t, DefaultPatterns())

	for _, s := range e.Extract(text) {
		if s.Score < 0 || s.Score > maxScore {
			t.Errorf("Score = %d, want within [0, %d]", s.Score, maxScore)
		}
	}
}

func TestSeverityBoundaries(t *testing.T) {
	cases := []struct {
		score int
		want  string
	}{
		{70, "High"},
		{69, "Medium"},
		{40, "Medium"},
		{39, "Low"},
		{0, "Low"},
		{100, "High"},
	}
	for _, tc := range cases {
		if got := severityFor(tc.score); got != tc.want {
			t.Errorf("severityFor(%d) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestMerge_Idempotent(t *testing.T) {
	text := "indemnify and penalty and termination" + strings.Repeat(" pad", 100) + " warranty notice"
	e := mustExtractor(t, DefaultPatterns())

	once := e.Extract(text)
	again := Merge(text, append([]Span(nil), once...))
	for i := range again {
		again[i].Severity = severityFor(again[i].Score)
	}
	if !reflect.DeepEqual(once, again) {
		t.Errorf("second merge changed spans:\nfirst:  %+v\nsecond: %+v", once, again)
	}
}

func TestExtract_SnippetClampsToBounds(t *testing.T) {
	text := "indemnify" // match touches both text boundaries
	e := mustExtractor(t, []Pattern{{Expr: "indemnif", Label: "Indemnity", Weight: 30}})

	spans := e.Extract(text)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Snippet != text {
		t.Errorf("Snippet = %q, want full text %q", spans[0].Snippet, text)
	}
}

func TestExtract_Deterministic(t *testing.T) {
	text := "Indemnification, penalties, and automatic renewal with 10 days notice. Confidentiality survives termination."
	e := mustExtractor(t, DefaultPatterns())

	first := e.Extract(text)
	for i := 0; i < 5; i++ {
		if got := e.Extract(text); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestExtract_OverlappingPatternsBothCounted(t *testing.T) {
	// "warranty" matches "warrant"; a second pattern on the same word must
	// still contribute its own candidate before merging.
	text := "warranty"
	e := mustExtractor(t, []Pattern{
		{Expr: "warrant", Label: "Warranty", Weight: 15},
		{Expr: "warranty", Label: "Express warranty", Weight: 10},
	})

	spans := e.Extract(text)
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1 merged", len(spans))
	}
	if spans[0].Score != 25 {
		t.Errorf("Score = %d, want 25 (both overlapping candidates summed)", spans[0].Score)
	}
}
