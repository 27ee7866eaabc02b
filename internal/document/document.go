package document

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Page is one page of extracted text with its character range inside the
// document's full text. Ranges are contiguous, non-overlapping, and
// monotonically increasing across the Pages slice.
type Page struct {
	Number    int    `json:"page_number"`
	Text      string `json:"text"`
	StartChar int    `json:"start_char"`
	EndChar   int    `json:"end_char"`
}

// Document is the registry record for one uploaded document. FullText is
// the ordered concatenation of page texts. CorpusName is empty until a
// retrieval corpus has been bound.
type Document struct {
	ID         string    `json:"doc_id"`
	Filename   string    `json:"filename"`
	StorageURI string    `json:"storage_uri"`
	FullText   string    `json:"-"`
	Pages      []Page    `json:"-"`
	CorpusName string    `json:"corpus_name,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
