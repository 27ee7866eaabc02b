package retrieval

import "strings"

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 512
	// DefaultChunkOverlap is how many characters consecutive chunks share.
	DefaultChunkOverlap = 100
)

// Chunker splits document text into overlapping fixed-size pieces for
// embedding. Overlap keeps clause boundaries from being cut mid-sentence
// in a way that loses context entirely.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker returns a Chunker with the given size and overlap. Non-positive
// size or an overlap >= size fall back to the defaults.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Split breaks text into chunks of at most Size characters with Overlap
// characters shared between consecutive chunks. Whitespace-only chunks
// are dropped.
func (c *Chunker) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.Size {
		return []string{text}
	}

	step := c.Size - c.Overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+c.Size, len(runes))
		chunk := string(runes[start:end])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
