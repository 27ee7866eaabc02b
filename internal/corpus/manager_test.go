package corpus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/lexsift/lexsift/internal/rag"
	"github.com/lexsift/lexsift/internal/retrieval"
	"github.com/lexsift/lexsift/internal/storage"
)

type stubStore struct {
	corpora         map[string]storage.Corpus // keyed by display name
	createErr       error
	enqueueErr      error
	enqueuedType    string
	enqueuedJSON    string
	enqueueCalls    int
	missFirstLookup bool
}

func newStubStore() *stubStore {
	return &stubStore{corpora: make(map[string]storage.Corpus)}
}

func (s *stubStore) CreateCorpus(c storage.Corpus) error {
	if s.createErr != nil {
		return s.createErr
	}
	if _, exists := s.corpora[c.DisplayName]; exists {
		return errors.New("UNIQUE constraint failed")
	}
	s.corpora[c.DisplayName] = c
	return nil
}

func (s *stubStore) GetCorpusByName(displayName string) (storage.Corpus, error) {
	if s.missFirstLookup {
		s.missFirstLookup = false
		return storage.Corpus{}, storage.ErrNotFound
	}
	c, ok := s.corpora[displayName]
	if !ok {
		return storage.Corpus{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *stubStore) EnqueueJob(job storage.Job) error {
	s.enqueueCalls++
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.enqueuedType = job.Type
	s.enqueuedJSON = job.PayloadJSON
	return nil
}

type stubSearcher struct {
	records []retrieval.ScoredRecord
	err     error
	gotID   string
	gotTopK int
}

func (s *stubSearcher) Search(corpusID string, vector []float32, topK int) ([]retrieval.ScoredRecord, error) {
	s.gotID = corpusID
	s.gotTopK = topK
	return s.records, s.err
}

type stubEmbedder struct {
	err error
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []float32{1, 0}, nil
}

func newTestManager(store *stubStore, searcher *stubSearcher, embedder *stubEmbedder) *Manager {
	if store == nil {
		store = newStubStore()
	}
	if searcher == nil {
		searcher = &stubSearcher{}
	}
	if embedder == nil {
		embedder = &stubEmbedder{}
	}
	return NewManager(store, searcher, embedder)
}

func TestCreateOrGetCreates(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, nil, nil)

	handle, err := m.CreateOrGet(context.Background(), "legal_doc_abc12345")
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if handle.DisplayName != "legal_doc_abc12345" {
		t.Errorf("unexpected display name: %q", handle.DisplayName)
	}
	if handle.ID == "" {
		t.Error("expected a generated corpus ID")
	}
}

func TestCreateOrGetReuses(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, nil, nil)

	first, err := m.CreateOrGet(context.Background(), "legal_doc_abc12345")
	if err != nil {
		t.Fatalf("first CreateOrGet: %v", err)
	}
	second, err := m.CreateOrGet(context.Background(), "legal_doc_abc12345")
	if err != nil {
		t.Fatalf("second CreateOrGet: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same corpus, got %s and %s", first.ID, second.ID)
	}
	if len(store.corpora) != 1 {
		t.Errorf("expected 1 corpus, got %d", len(store.corpora))
	}
}

func TestCreateOrGetRacingInsert(t *testing.T) {
	// Simulate a concurrent request winning the insert: the first lookup
	// misses, CreateCorpus conflicts, and the retry lookup finds the winner.
	store := newStubStore()
	store.createErr = errors.New("UNIQUE constraint failed")
	store.corpora["legal_doc_abc12345"] = storage.Corpus{ID: "winner", DisplayName: "legal_doc_abc12345"}
	store.missFirstLookup = true
	m := newTestManager(store, nil, nil)

	handle, err := m.CreateOrGet(context.Background(), "legal_doc_abc12345")
	if err != nil {
		t.Fatalf("CreateOrGet: %v", err)
	}
	if handle.ID != "winner" {
		t.Errorf("expected the winner's corpus, got %s", handle.ID)
	}
}

func TestImportFilesEnqueues(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, nil, nil)

	handle := rag.CorpusHandle{ID: "corpus-1", DisplayName: "legal_doc_abc12345"}
	if err := m.ImportFiles(context.Background(), handle, []string{"s3://docs/a.pdf"}); err != nil {
		t.Fatalf("ImportFiles: %v", err)
	}
	if store.enqueuedType != JobTypeImport {
		t.Errorf("unexpected job type: %q", store.enqueuedType)
	}

	var payload ImportPayload
	if err := json.Unmarshal([]byte(store.enqueuedJSON), &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload.CorpusID != "corpus-1" {
		t.Errorf("unexpected corpus id: %q", payload.CorpusID)
	}
	if len(payload.StorageURIs) != 1 || payload.StorageURIs[0] != "s3://docs/a.pdf" {
		t.Errorf("unexpected URIs: %v", payload.StorageURIs)
	}
}

func TestImportFilesResolvesByDisplayName(t *testing.T) {
	store := newStubStore()
	store.corpora["legal_doc_abc12345"] = storage.Corpus{ID: "corpus-9", DisplayName: "legal_doc_abc12345"}
	m := newTestManager(store, nil, nil)

	handle := rag.CorpusHandle{DisplayName: "legal_doc_abc12345"}
	if err := m.ImportFiles(context.Background(), handle, []string{"s3://docs/a.pdf"}); err != nil {
		t.Fatalf("ImportFiles: %v", err)
	}

	var payload ImportPayload
	if err := json.Unmarshal([]byte(store.enqueuedJSON), &payload); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if payload.CorpusID != "corpus-9" {
		t.Errorf("expected resolved corpus id, got %q", payload.CorpusID)
	}
}

func TestImportFilesNoURIs(t *testing.T) {
	m := newTestManager(nil, nil, nil)
	if err := m.ImportFiles(context.Background(), rag.CorpusHandle{ID: "c"}, nil); err == nil {
		t.Error("expected error for empty URI list")
	}
}

func TestQueryReturnsPassages(t *testing.T) {
	store := newStubStore()
	store.corpora["legal_doc_abc12345"] = storage.Corpus{ID: "corpus-1", DisplayName: "legal_doc_abc12345"}
	searcher := &stubSearcher{records: []retrieval.ScoredRecord{
		{Record: retrieval.Record{TextChunk: "indemnify clause", SourceURI: "s3://docs/a.pdf"}, Score: 0.91},
		{Record: retrieval.Record{TextChunk: "termination clause", SourceURI: "s3://docs/a.pdf"}, Score: 0.72},
	}}
	m := newTestManager(store, searcher, nil)

	result, err := m.Query(context.Background(), "legal_doc_abc12345", "any passages", 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if !result.Usable() {
		t.Error("expected usable result")
	}
	if len(result.Passages) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(result.Passages))
	}
	if result.Passages[0].Text != "indemnify clause" {
		t.Errorf("unexpected passage: %q", result.Passages[0].Text)
	}
	if searcher.gotID != "corpus-1" {
		t.Errorf("search used wrong corpus: %q", searcher.gotID)
	}
	if searcher.gotTopK != 4 {
		t.Errorf("search used wrong topK: %d", searcher.gotTopK)
	}
}

func TestQueryEmptyCorpusNotUsable(t *testing.T) {
	store := newStubStore()
	store.corpora["legal_doc_abc12345"] = storage.Corpus{ID: "corpus-1", DisplayName: "legal_doc_abc12345"}
	m := newTestManager(store, &stubSearcher{}, nil)

	result, err := m.Query(context.Background(), "legal_doc_abc12345", "any passages", 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Usable() {
		t.Error("empty corpus must not be usable")
	}
}

func TestQueryUnknownCorpus(t *testing.T) {
	m := newTestManager(nil, nil, nil)

	result, err := m.Query(context.Background(), "missing", "any passages", 4)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.Usable() {
		t.Error("unknown corpus must not be usable")
	}
	if result.Err == "" {
		t.Error("expected an error message in the result")
	}
}

func TestQueryEmbedFailure(t *testing.T) {
	store := newStubStore()
	store.corpora["legal_doc_abc12345"] = storage.Corpus{ID: "corpus-1", DisplayName: "legal_doc_abc12345"}
	m := newTestManager(store, nil, &stubEmbedder{err: errors.New("backend down")})

	if _, err := m.Query(context.Background(), "legal_doc_abc12345", "any passages", 4); err == nil {
		t.Error("expected error when embedding fails")
	}
}
