package rag

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexsift/lexsift/internal/document"
)

// ProbeQuery is the lightweight retrieval check issued on every poll to
// decide whether the corpus has indexed passages yet.
const ProbeQuery = "Check: return any passages"

// Options bound one orchestration call. Zero fields take the defaults.
type Options struct {
	MaxAttempts      int           // polling attempts before fallback (default 8)
	WaitInterval     time.Duration // pause between attempts (default 15s)
	MaxFallbackChars int           // prefix length of raw text used by fallback (default 15000)
	TopK             int           // passages requested per retrieval query (default 4)
	CallTimeout      time.Duration // per external call (default 60s)
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 8
	}
	if o.WaitInterval <= 0 {
		o.WaitInterval = 15 * time.Second
	}
	if o.MaxFallbackChars <= 0 {
		o.MaxFallbackChars = 15000
	}
	if o.TopK <= 0 {
		o.TopK = 4
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = 60 * time.Second
	}
	return o
}

// Attempt records one polling attempt for the caller's debug trail.
type Attempt struct {
	Index         int    `json:"attempt"`
	RetrievalRaw  string `json:"retrieval_raw"`
	UsedRetrieval bool   `json:"used_retrieval"`
}

// Result is the outcome of one orchestration call.
type Result struct {
	Text         string
	CorpusName   string
	UsedFallback bool
	Trail        []Attempt
}

// GenerationError is the fatal failure of a request: both the grounded
// path and the direct fallback produced nothing. It carries the full
// debug trail so operators can tell whether indexing ever completed.
type GenerationError struct {
	Trail []Attempt
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("retrieval produced no result and fallback generation failed after %d attempts: %v", len(e.Trail), e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Orchestrator coordinates corpus provisioning, readiness polling, and
// generation with fallback. One Orchestrator serves both summarization and
// chat; callers differ only in prompt and Options.
type Orchestrator struct {
	registry *document.Registry
	corpora  CorpusManager
	gateway  Gateway
	logger   *slog.Logger
}

// NewOrchestrator wires the orchestrator to its collaborators.
func NewOrchestrator(registry *document.Registry, corpora CorpusManager, gateway Gateway) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		corpora:  corpora,
		gateway:  gateway,
		logger:   slog.Default(),
	}
}

// Generate runs the full state machine for one document:
//
//	no corpus  -> create and bind one (failure skips polling, not the request)
//	corpus     -> trigger import (fire-and-forget), then poll retrieval
//	usable     -> grounded generation
//	exhausted  -> direct generation over a truncated excerpt
//
// Collaborator failures before the final fallback are absorbed and logged;
// only document.ErrNotFound, context cancellation, and fallback generation
// failure (*GenerationError) reach the caller.
func (o *Orchestrator) Generate(ctx context.Context, docID, prompt string, opts Options) (Result, error) {
	opts = opts.withDefaults()

	doc, err := o.registry.Get(docID)
	if err != nil {
		return Result{}, err
	}

	corpusName := o.ensureCorpus(ctx, doc)

	var trail []Attempt
	if corpusName != "" {
		o.triggerImport(ctx, corpusName, doc, opts)

		for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
			record, text, ok := o.pollOnce(ctx, corpusName, prompt, attempt, opts)
			trail = append(trail, record)
			if ok {
				return Result{Text: text, CorpusName: corpusName, Trail: trail}, nil
			}
			if attempt < opts.MaxAttempts {
				if err := wait(ctx, opts.WaitInterval); err != nil {
					return Result{}, err
				}
			}
		}
	} else {
		o.logger.Warn("no corpus available, skipping retrieval polling", "doc_id", docID)
	}

	return o.fallback(ctx, doc, corpusName, prompt, trail, opts)
}

// ensureCorpus resolves or creates the document's corpus binding. Creation
// failure is non-fatal: the returned name is empty and the caller goes
// straight to fallback.
func (o *Orchestrator) ensureCorpus(ctx context.Context, doc document.Document) string {
	name, err := o.registry.EnsureCorpus(doc.ID, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
		defer cancel()
		handle, err := o.corpora.CreateOrGet(callCtx, CorpusDisplayName(doc.ID))
		if err != nil {
			return "", err
		}
		return handle.DisplayName, nil
	})
	if err != nil {
		o.logger.Warn("corpus creation failed", "doc_id", doc.ID, "error", err)
		return ""
	}
	return name
}

// triggerImport asks the corpus manager to index the document's stored
// file. The ack is fire-and-forget; errors are logged and readiness is
// left to polling.
func (o *Orchestrator) triggerImport(ctx context.Context, corpusName string, doc document.Document, opts Options) {
	callCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
	defer cancel()

	handle := CorpusHandle{DisplayName: corpusName}
	if err := o.corpora.ImportFiles(callCtx, handle, []string{doc.StorageURI}); err != nil {
		o.logger.Warn("import trigger failed", "doc_id", doc.ID, "corpus", corpusName, "error", err)
	}
}

// pollOnce performs one numbered attempt: retrieval probe, readiness
// classification, and (when usable) grounded generation. Returns the
// attempt record, generated text, and whether generation succeeded.
func (o *Orchestrator) pollOnce(ctx context.Context, corpusName, prompt string, attempt int, opts Options) (Attempt, string, bool) {
	record := Attempt{Index: attempt}

	queryCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
	result, err := o.corpora.Query(queryCtx, corpusName, ProbeQuery, opts.TopK)
	cancel()
	if err != nil {
		record.RetrievalRaw = "error: " + err.Error()
		o.logger.Debug("retrieval probe failed", "corpus", corpusName, "attempt", attempt, "error", err)
		return record, "", false
	}
	record.RetrievalRaw = result.Summary()

	if !result.Usable() {
		return record, "", false
	}

	genCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
	text, err := o.gateway.GenerateGrounded(genCtx, corpusName, prompt)
	cancel()
	if err != nil {
		// Retryable at the attempt level: keep polling.
		o.logger.Warn("grounded generation failed", "corpus", corpusName, "attempt", attempt, "error", err)
		return record, "", false
	}

	record.UsedRetrieval = true
	return record, text, true
}

// fallback builds a prompt from the document's raw text prefix and runs
// direct generation. Its failure is fatal for the request.
func (o *Orchestrator) fallback(ctx context.Context, doc document.Document, corpusName, prompt string, trail []Attempt, opts Options) (Result, error) {
	excerpt := doc.FullText
	if len(excerpt) > opts.MaxFallbackChars {
		excerpt = excerpt[:opts.MaxFallbackChars]
	}
	fallbackPrompt := "Document:\n" + excerpt + "\n\n" + prompt

	callCtx, cancel := context.WithTimeout(ctx, opts.CallTimeout)
	defer cancel()

	text, err := o.gateway.GenerateDirect(callCtx, fallbackPrompt)
	if err != nil {
		return Result{}, &GenerationError{Trail: trail, Err: err}
	}
	return Result{Text: text, CorpusName: corpusName, UsedFallback: true, Trail: trail}, nil
}

// wait pauses between polling attempts without holding any lock, waking
// immediately on cancellation.
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// CorpusDisplayName derives the stable corpus name for a document from
// the first 8 characters of its ID.
func CorpusDisplayName(docID string) string {
	short := docID
	if len(short) > 8 {
		short = short[:8]
	}
	return "legal_doc_" + short
}
