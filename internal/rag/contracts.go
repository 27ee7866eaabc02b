package rag

import (
	"context"
	"fmt"
	"strings"
)

// CorpusHandle names a retrieval corpus owned by the backend. Readiness is
// never part of the handle: it is re-established by querying retrieval on
// every poll.
type CorpusHandle struct {
	ID          string
	DisplayName string
}

// Passage is one retrieved text fragment.
type Passage struct {
	Text     string
	Score    float32
	SourceID string
}

// RetrievalResult is the structured outcome of one retrieval query. Err
// carries a backend error message when the query itself failed; such
// results are never usable.
type RetrievalResult struct {
	Passages []Passage
	Err      string
}

// Usable reports whether the backend returned at least one non-empty
// passage and no error. This replaces stringified-response sniffing: the
// boundary contract surfaces a structured passage list instead.
func (r RetrievalResult) Usable() bool {
	if r.Err != "" {
		return false
	}
	for _, p := range r.Passages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// Summary renders the result for the debug trail.
func (r RetrievalResult) Summary() string {
	if r.Err != "" {
		return "error: " + r.Err
	}
	if len(r.Passages) == 0 {
		return "no passages"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d passages:", len(r.Passages))
	for i, p := range r.Passages {
		text := p.Text
		if len(text) > 120 {
			text = text[:120] + "..."
		}
		fmt.Fprintf(&b, " [%d score=%.3f %q]", i, p.Score, text)
	}
	return b.String()
}

// CorpusManager provisions retrieval corpora and feeds documents into them.
// Import is fire-and-forget: ImportFiles acknowledges the request without
// waiting for indexing; readiness is observed purely through Query.
type CorpusManager interface {
	CreateOrGet(ctx context.Context, displayName string) (CorpusHandle, error)
	ImportFiles(ctx context.Context, handle CorpusHandle, storageURIs []string) error
	Query(ctx context.Context, corpusName, query string, topK int) (RetrievalResult, error)
}

// Gateway performs text generation with or without retrieval grounding.
type Gateway interface {
	GenerateGrounded(ctx context.Context, corpusName, prompt string) (string, error)
	GenerateDirect(ctx context.Context, prompt string) (string, error)
}
