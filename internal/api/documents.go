package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lexsift/lexsift/internal/document"
	"github.com/lexsift/lexsift/internal/prompts"
	"github.com/lexsift/lexsift/internal/rag"
)

const maxUploadSize = 25 << 20 // 25MB

type uploadResponse struct {
	DocID      string `json:"doc_id"`
	StorageURI string `json:"storage_uri"`
	CorpusName string `json:"corpus_name,omitempty"`
	Message    string `json:"message"`
}

func handleUpload(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "missing file field: %v", err)
			return
		}
		defer file.Close()

		if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "only PDF files are supported")
			return
		}

		tmp, err := os.CreateTemp("", "lexsift-upload-*.pdf")
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to stage upload: %v", err)
			return
		}
		defer os.Remove(tmp.Name())

		size, err := io.Copy(tmp, file)
		if err != nil {
			tmp.Close()
			httpError(w, http.StatusInternalServerError, "api_error", "failed to stage upload: %v", err)
			return
		}
		if err := tmp.Close(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to stage upload: %v", err)
			return
		}

		extraction, err := document.ExtractPDF(tmp.Name())
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to extract PDF text: %v", err)
			return
		}

		docID := uuid.New().String()
		key := "uploads/" + docID + "_" + sanitizeFilename(header.Filename)

		f, err := os.Open(tmp.Name())
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to read staged upload: %v", err)
			return
		}
		defer f.Close()

		uri, err := deps.Blob.Upload(r.Context(), key, f, size, "application/pdf")
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to store document: %v", err)
			return
		}

		deps.Registry.Put(document.Document{
			ID:         docID,
			Filename:   header.Filename,
			StorageURI: uri,
			FullText:   extraction.FullText,
			Pages:      extraction.Pages,
			CreatedAt:  time.Now().UTC(),
		})

		// Best effort: a failed corpus creation leaves the document usable
		// through the fallback path.
		corpusName, err := deps.Registry.EnsureCorpus(docID, func() (string, error) {
			handle, err := deps.Corpora.CreateOrGet(r.Context(), rag.CorpusDisplayName(docID))
			if err != nil {
				return "", err
			}
			return handle.DisplayName, nil
		})
		if err != nil {
			corpusName = ""
		}

		writeJSON(w, http.StatusOK, uploadResponse{
			DocID:      docID,
			StorageURI: uri,
			CorpusName: corpusName,
			Message:    "uploaded and queued for indexing",
		})
	}
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

type summarizeResponse struct {
	Summary      string        `json:"summary"`
	CorpusName   string        `json:"corpus_name,omitempty"`
	Debug        []rag.Attempt `json:"debug,omitempty"`
	UsedFallback bool          `json:"used_fallback"`
}

func handleSummarize(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		result, err := deps.Orchestrator.Generate(r.Context(), id, prompts.Summarize, deps.SummarizeOpts)
		if err != nil {
			respondGenerationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, summarizeResponse{
			Summary:      result.Text,
			CorpusName:   result.CorpusName,
			Debug:        result.Trail,
			UsedFallback: result.UsedFallback,
		})
	}
}

func handleRisks(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := deps.Registry.Get(id)
		if err != nil {
			respondGenerationError(w, err)
			return
		}

		report := deps.Risks.Analyze(r.Context(), doc.FullText)
		writeJSON(w, http.StatusOK, report)
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Response     string        `json:"response"`
	Debug        []rag.Attempt `json:"debug,omitempty"`
	UsedFallback bool          `json:"used_fallback"`
}

func handleChat(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		question := lastUserMessage(req.Messages)
		if question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "messages must contain a user message")
			return
		}

		prompt := prompts.ChatSystem + "\n\nUser question: " + question
		result, err := deps.Orchestrator.Generate(r.Context(), id, prompt, deps.ChatOpts)
		if err != nil {
			respondGenerationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, chatResponse{
			Response:     result.Text,
			Debug:        result.Trail,
			UsedFallback: result.UsedFallback,
		})
	}
}

func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && strings.TrimSpace(messages[i].Content) != "" {
			return messages[i].Content
		}
	}
	return ""
}

type retrievalDebugResponse struct {
	CorpusName   string `json:"corpus_name"`
	RetrievalRaw string `json:"retrieval_raw"`
}

func handleRetrievalDebug(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := deps.Registry.Get(id)
		if err != nil {
			respondGenerationError(w, err)
			return
		}

		if doc.CorpusName == "" {
			writeJSON(w, http.StatusOK, retrievalDebugResponse{RetrievalRaw: "no corpus bound"})
			return
		}

		topK := deps.SummarizeOpts.TopK
		if topK <= 0 {
			topK = 4
		}
		result, err := deps.Corpora.Query(r.Context(), doc.CorpusName, rag.ProbeQuery, topK)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "retrieval probe failed: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, retrievalDebugResponse{
			CorpusName:   doc.CorpusName,
			RetrievalRaw: result.Summary(),
		})
	}
}

func respondGenerationError(w http.ResponseWriter, err error) {
	var genErr *rag.GenerationError
	switch {
	case errors.Is(err, document.ErrNotFound):
		httpError(w, http.StatusNotFound, "not_found", "document not found")
	case errors.As(err, &genErr):
		httpError(w, http.StatusBadGateway, "api_error", "generation failed: %v", genErr.Err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpError(w, http.StatusGatewayTimeout, "api_error", "request cancelled or timed out")
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "unexpected error: %v", err)
	}
}
