// Package api implements the HTTP surface: document upload, summarize,
// risk analysis, chat, and a retrieval debug endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lexsift/lexsift/internal/document"
	"github.com/lexsift/lexsift/internal/rag"
	"github.com/lexsift/lexsift/internal/risk"
)

// Uploader stores raw document bytes and returns their URI.
type Uploader interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// Generator runs the retrieval-with-fallback state machine.
type Generator interface {
	Generate(ctx context.Context, docID, prompt string, opts rag.Options) (rag.Result, error)
}

// CorpusClient is the subset of corpus operations the handlers call
// directly (outside the orchestrator).
type CorpusClient interface {
	CreateOrGet(ctx context.Context, displayName string) (rag.CorpusHandle, error)
	Query(ctx context.Context, corpusName, query string, topK int) (rag.RetrievalResult, error)
}

// RiskAnalyzer runs extraction plus elaboration over document text.
type RiskAnalyzer interface {
	Analyze(ctx context.Context, text string) risk.Report
}

// AppDeps carries the collaborators the handlers need.
type AppDeps struct {
	Registry      *document.Registry
	Orchestrator  Generator
	Corpora       CorpusClient
	Risks         RiskAnalyzer
	Blob          Uploader
	Token         string
	SummarizeOpts rag.Options
	ChatOpts      rag.Options
}

// NewAppHandler builds the router. Document routes require bearer auth;
// health stays open.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))
		r.Post("/documents", handleUpload(deps))
		r.Post("/documents/{id}/summarize", handleSummarize(deps))
		r.Post("/documents/{id}/risks", handleRisks(deps))
		r.Post("/documents/{id}/chat", handleChat(deps))
		r.Get("/documents/{id}/retrieval", handleRetrievalDebug(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
