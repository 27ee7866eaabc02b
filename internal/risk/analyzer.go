package risk

import "context"

// Analyzer combines deterministic extraction with model elaboration.
type Analyzer struct {
	extractor  *Extractor
	elaborator *Elaborator
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(extractor *Extractor, elaborator *Elaborator) *Analyzer {
	return &Analyzer{extractor: extractor, elaborator: elaborator}
}

// Analyze extracts risk spans from text and elaborates them.
func (a *Analyzer) Analyze(ctx context.Context, text string) Report {
	return a.elaborator.Elaborate(ctx, a.extractor.Extract(text))
}
