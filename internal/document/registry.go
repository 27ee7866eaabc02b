package document

import (
	"sync"
)

// Registry is the in-memory store of documents shared by all concurrent
// requests. Entries live for the process lifetime; only the corpus binding
// is mutated after creation.
//
// A per-document mutex serializes the check-then-bind sequence in
// EnsureCorpus so two concurrent requests for the same document cannot
// each create a corpus, while requests for distinct documents never block
// each other.
type Registry struct {
	mu   sync.RWMutex
	docs map[string]*Document

	bindMu sync.Mutex
	binds  map[string]*sync.Mutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		docs:  make(map[string]*Document),
		binds: make(map[string]*sync.Mutex),
	}
}

// Put registers a document. An existing entry with the same ID is replaced.
func (r *Registry) Put(doc Document) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := doc
	r.docs[doc.ID] = &copied
}

// Get returns a copy of the document, or ErrNotFound.
func (r *Registry) Get(id string) (Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return *doc, nil
}

// BindCorpus attaches a corpus name to the document. Binding the same name
// again is a no-op; a different name overwrites (last writer wins).
func (r *Registry) BindCorpus(id, corpusName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return ErrNotFound
	}
	doc.CorpusName = corpusName
	return nil
}

// EnsureCorpus returns the document's corpus name, calling create to make
// one if no binding exists yet. The read-else-create-and-bind sequence is
// atomic per document id. A create failure leaves the document unbound and
// is returned to the caller.
func (r *Registry) EnsureCorpus(id string, create func() (string, error)) (string, error) {
	lock, err := r.bindLock(id)
	if err != nil {
		return "", err
	}
	lock.Lock()
	defer lock.Unlock()

	doc, err := r.Get(id)
	if err != nil {
		return "", err
	}
	if doc.CorpusName != "" {
		return doc.CorpusName, nil
	}

	name, err := create()
	if err != nil {
		return "", err
	}
	if err := r.BindCorpus(id, name); err != nil {
		return "", err
	}
	return name, nil
}

// bindLock returns the per-document binding mutex, creating it on first use.
func (r *Registry) bindLock(id string) (*sync.Mutex, error) {
	r.mu.RLock()
	_, ok := r.docs[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	r.bindMu.Lock()
	defer r.bindMu.Unlock()
	lock, ok := r.binds[id]
	if !ok {
		lock = &sync.Mutex{}
		r.binds[id] = lock
	}
	return lock, nil
}
