// Package ingest runs the background indexing worker: it claims
// corpus_import jobs, extracts text from stored documents, and builds the
// corpus's embedded chunks.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lexsift/lexsift/internal/corpus"
	"github.com/lexsift/lexsift/internal/document"
	"github.com/lexsift/lexsift/internal/retrieval"
	"github.com/lexsift/lexsift/internal/storage"
)

// JobStore abstracts the job queue operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
}

// FileFetcher resolves a storage URI to a local file path.
type FileFetcher interface {
	Download(ctx context.Context, uri string) (string, error)
}

// BatchEmbedder generates embeddings for chunk batches.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorInserter inserts records into the vector store.
type VectorInserter interface {
	Insert(records []retrieval.Record) error
}

// Worker processes corpus_import jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	fetcher  FileFetcher
	embedder BatchEmbedder
	vectors  VectorInserter
	chunker  *retrieval.Chunker
	extract  func(path string) (document.Extraction, error)
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, fetcher FileFetcher, embedder BatchEmbedder, vectors VectorInserter, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		fetcher:  fetcher,
		embedder: embedder,
		vectors:  vectors,
		chunker:  retrieval.NewChunker(retrieval.DefaultChunkSize, retrieval.DefaultChunkOverlap),
		extract:  document.ExtractPDF,
		poll:     pollInterval,
		logger:   slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single corpus_import job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{corpus.JobTypeImport})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("import job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload corpus.ImportPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}
	if payload.CorpusID == "" {
		return fmt.Errorf("payload missing corpus_id")
	}

	for _, uri := range payload.StorageURIs {
		if err := w.indexFile(ctx, payload.CorpusID, uri); err != nil {
			return fmt.Errorf("indexing %s: %w", uri, err)
		}
	}
	return nil
}

// indexFile downloads one stored document, extracts its text, and inserts
// embedded chunks for it.
func (w *Worker) indexFile(ctx context.Context, corpusID, uri string) error {
	path, err := w.fetcher.Download(ctx, uri)
	if err != nil {
		return fmt.Errorf("downloading: %w", err)
	}
	defer os.Remove(path)

	extraction, err := w.extract(path)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}

	chunks := w.chunker.Split(extraction.FullText)
	if len(chunks) == 0 {
		w.logger.Warn("document produced no chunks", "corpus_id", corpusID, "uri", uri)
		return nil
	}

	vectors, err := w.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return fmt.Errorf("embedding chunks: %w", err)
	}

	now := time.Now().UTC()
	records := make([]retrieval.Record, len(chunks))
	for i, chunk := range chunks {
		records[i] = retrieval.Record{
			ID:        uuid.New().String(),
			CorpusID:  corpusID,
			Seq:       i,
			SourceURI: uri,
			TextChunk: chunk,
			Embedding: vectors[i],
			CreatedAt: now,
		}
	}

	if err := w.vectors.Insert(records); err != nil {
		return fmt.Errorf("inserting vectors: %w", err)
	}

	w.logger.Info("document indexed", "corpus_id", corpusID, "uri", uri, "chunks", len(records))
	return nil
}
