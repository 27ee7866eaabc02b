package risk

import (
	"fmt"
	"regexp"
	"sort"
)

// Severity tier cut-offs and merge constants.
const (
	highThreshold   = 70
	mediumThreshold = 40
	maxScore        = 100
	mergeGap        = 200 // max char distance between spans that still merge
	snippetPad      = 80  // context chars kept on each side of a span
	labelSeparator  = " ; "
)

// Pattern is one entry of the ordered detection table: a case-insensitive
// regular expression, a human-readable label, and the weight it contributes
// to the merged span's score.
type Pattern struct {
	Expr   string
	Label  string
	Weight int
}

// Span is a merged, scored risk finding within the source text.
// Start/End are character offsets, [Start, End).
type Span struct {
	ID       string `json:"id"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Label    string `json:"label"`
	Score    int    `json:"severity_score"`
	Severity string `json:"severity_level"`
	Snippet  string `json:"snippet"`
}

// Extractor finds and merges risk spans in document text. It is a pure
// component: identical text and pattern table always produce identical
// output, and Extract performs no external calls.
type Extractor struct {
	patterns []compiledPattern
}

type compiledPattern struct {
	re     *regexp.Regexp
	label  string
	weight int
}

// NewExtractor compiles the pattern table. A malformed pattern or weight is
// a configuration error and fails construction; Extract itself cannot fail.
func NewExtractor(patterns []Pattern) (*Extractor, error) {
	if len(patterns) == 0 {
		return nil, fmt.Errorf("risk: pattern table is empty")
	}
	compiled := make([]compiledPattern, 0, len(patterns))
	for i, p := range patterns {
		if p.Weight <= 0 || p.Weight > maxScore {
			return nil, fmt.Errorf("risk: pattern %d (%q): weight %d out of range (1..%d)", i, p.Label, p.Weight, maxScore)
		}
		re, err := regexp.Compile("(?i)" + p.Expr)
		if err != nil {
			return nil, fmt.Errorf("risk: pattern %d (%q): %w", i, p.Label, err)
		}
		compiled = append(compiled, compiledPattern{re: re, label: p.Label, weight: p.Weight})
	}
	return &Extractor{patterns: compiled}, nil
}

// Extract scans text with every pattern, merges nearby hits, and returns
// scored spans sorted ascending by start. Empty text returns nil.
func (e *Extractor) Extract(text string) []Span {
	if text == "" {
		return nil
	}

	candidates := e.findCandidates(text)
	if len(candidates) == 0 {
		return nil
	}

	// Stable sort keeps discovery order (pattern table order, then match
	// order) for candidates starting at the same offset.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Start < candidates[j].Start
	})

	merged := Merge(text, candidates)
	for i := range merged {
		merged[i].Severity = severityFor(merged[i].Score)
	}
	return merged
}

func (e *Extractor) findCandidates(text string) []Span {
	var candidates []Span
	for idx, p := range e.patterns {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			candidates = append(candidates, Span{
				ID:      fmt.Sprintf("risk-%d-%d", idx, start),
				Start:   start,
				End:     end,
				Label:   p.label,
				Score:   p.weight,
				Snippet: snippet(text, start, end),
			})
		}
	}
	return candidates
}

// Merge folds candidates sorted by start into non-adjacent spans: a
// candidate within mergeGap of the open span extends it, adds its weight
// (capped at maxScore), and appends its label. Merge is idempotent:
// running it over already-merged spans changes nothing.
func Merge(text string, sorted []Span) []Span {
	var merged []Span
	for _, c := range sorted {
		if len(merged) == 0 {
			merged = append(merged, c)
			continue
		}
		last := &merged[len(merged)-1]
		if c.Start-last.End <= mergeGap {
			if c.End > last.End {
				last.End = c.End
			}
			last.Snippet = snippet(text, last.Start, last.End)
			last.Score = min(maxScore, last.Score+c.Score)
			last.Label = last.Label + labelSeparator + c.Label
		} else {
			merged = append(merged, c)
		}
	}
	return merged
}

func severityFor(score int) string {
	switch {
	case score >= highThreshold:
		return "High"
	case score >= mediumThreshold:
		return "Medium"
	default:
		return "Low"
	}
}

// snippet returns the span text padded by snippetPad chars on each side,
// clamped to the text bounds.
func snippet(text string, start, end int) string {
	lo := start - snippetPad
	if lo < 0 {
		lo = 0
	}
	hi := end + snippetPad
	if hi > len(text) {
		hi = len(text)
	}
	return text[lo:hi]
}

// DefaultPatterns is the detection table for common contract risks.
// Order matters: it is the tiebreak for candidates at the same offset.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Expr: "indemnif", Label: "Indemnity / broad indemnify clause", Weight: 30},
		{Expr: "penalt", Label: "Penalties / liquidated damages", Weight: 25},
		{Expr: "governing law", Label: "Unfavorable governing law / jurisdiction", Weight: 20},
		{Expr: "termination", Label: "One-sided termination rights", Weight: 20},
		{Expr: "warrant", Label: "Broad or missing warranties", Weight: 15},
		{Expr: "liabilit", Label: "Limitation of liability / unlimited liability", Weight: 25},
		{Expr: "confident", Label: "Weak data protection / confidentiality", Weight: 20},
		{Expr: "assign", Label: "Assignment restrictions or transfers", Weight: 10},
		{Expr: "notice", Label: "Notice periods that are too short", Weight: 8},
		{Expr: "automatic", Label: "Automatic renewals", Weight: 12},
	}
}
