// Package corpus provisions retrieval corpora backed by local storage and
// queues document imports for background indexing.
package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lexsift/lexsift/internal/rag"
	"github.com/lexsift/lexsift/internal/retrieval"
	"github.com/lexsift/lexsift/internal/storage"
)

// JobTypeImport is the queue job type for corpus file imports.
const JobTypeImport = "corpus_import"

// ImportPayload is the JSON body of a corpus_import job.
type ImportPayload struct {
	CorpusID    string   `json:"corpus_id"`
	StorageURIs []string `json:"storage_uris"`
}

// Store is the subset of storage operations the manager needs.
type Store interface {
	CreateCorpus(c storage.Corpus) error
	GetCorpusByName(displayName string) (storage.Corpus, error)
	EnqueueJob(job storage.Job) error
}

// Searcher runs similarity search over indexed chunks.
type Searcher interface {
	Search(corpusID string, vector []float32, topK int) ([]retrieval.ScoredRecord, error)
}

// QueryEmbedder embeds retrieval queries.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Manager implements corpus lifecycle on top of the SQLite store and the
// job queue. Imports are acknowledged immediately and indexed by the
// background worker; Query observes whatever has been indexed so far.
type Manager struct {
	store    Store
	searcher Searcher
	embedder QueryEmbedder
	logger   *slog.Logger
}

// NewManager creates a Manager.
func NewManager(store Store, searcher Searcher, embedder QueryEmbedder) *Manager {
	return &Manager{
		store:    store,
		searcher: searcher,
		embedder: embedder,
		logger:   slog.Default(),
	}
}

// CreateOrGet returns the corpus with the given display name, creating it
// if it does not exist. Repeat calls for the same document reuse the
// original corpus rather than provisioning a new one.
func (m *Manager) CreateOrGet(ctx context.Context, displayName string) (rag.CorpusHandle, error) {
	if err := ctx.Err(); err != nil {
		return rag.CorpusHandle{}, err
	}

	existing, err := m.store.GetCorpusByName(displayName)
	if err == nil {
		return rag.CorpusHandle{ID: existing.ID, DisplayName: existing.DisplayName}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return rag.CorpusHandle{}, fmt.Errorf("looking up corpus %q: %w", displayName, err)
	}

	c := storage.Corpus{ID: uuid.NewString(), DisplayName: displayName}
	if err := m.store.CreateCorpus(c); err != nil {
		// A concurrent request may have created it between lookup and insert.
		if existing, lookupErr := m.store.GetCorpusByName(displayName); lookupErr == nil {
			return rag.CorpusHandle{ID: existing.ID, DisplayName: existing.DisplayName}, nil
		}
		return rag.CorpusHandle{}, fmt.Errorf("creating corpus %q: %w", displayName, err)
	}

	m.logger.Info("corpus created", "corpus_id", c.ID, "display_name", displayName)
	return rag.CorpusHandle{ID: c.ID, DisplayName: displayName}, nil
}

// ImportFiles enqueues an import job for the given storage URIs and
// returns without waiting for indexing to complete.
func (m *Manager) ImportFiles(ctx context.Context, handle rag.CorpusHandle, storageURIs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(storageURIs) == 0 {
		return errors.New("no storage URIs to import")
	}

	corpusID := handle.ID
	if corpusID == "" {
		c, err := m.store.GetCorpusByName(handle.DisplayName)
		if err != nil {
			return fmt.Errorf("resolving corpus %q: %w", handle.DisplayName, err)
		}
		corpusID = c.ID
	}

	payload, err := json.Marshal(ImportPayload{CorpusID: corpusID, StorageURIs: storageURIs})
	if err != nil {
		return fmt.Errorf("marshaling import payload: %w", err)
	}

	job := storage.Job{
		ID:          uuid.NewString(),
		Type:        JobTypeImport,
		PayloadJSON: string(payload),
	}
	if err := m.store.EnqueueJob(job); err != nil {
		return fmt.Errorf("enqueueing import job: %w", err)
	}

	m.logger.Info("import queued", "corpus_id", corpusID, "job_id", job.ID, "files", len(storageURIs))
	return nil
}

// Query embeds the query text and searches the corpus's indexed chunks.
// An empty or unindexed corpus yields a result with no passages, not an
// error; callers decide readiness from the passage list.
func (m *Manager) Query(ctx context.Context, corpusName, query string, topK int) (rag.RetrievalResult, error) {
	c, err := m.store.GetCorpusByName(corpusName)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return rag.RetrievalResult{Err: fmt.Sprintf("corpus %q not found", corpusName)}, nil
		}
		return rag.RetrievalResult{}, fmt.Errorf("resolving corpus %q: %w", corpusName, err)
	}

	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return rag.RetrievalResult{}, fmt.Errorf("embedding query: %w", err)
	}

	records, err := m.searcher.Search(c.ID, vector, topK)
	if err != nil {
		return rag.RetrievalResult{}, fmt.Errorf("searching corpus %s: %w", c.ID, err)
	}

	result := rag.RetrievalResult{}
	for _, r := range records {
		result.Passages = append(result.Passages, rag.Passage{
			Text:     r.TextChunk,
			Score:    r.Score,
			SourceID: r.SourceURI,
		})
	}
	return result, nil
}
