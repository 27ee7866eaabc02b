package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestChunkerShortText(t *testing.T) {
	c := NewChunker(512, 100)
	chunks := c.Split("a short contract clause")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "a short contract clause" {
		t.Errorf("unexpected chunk: %q", chunks[0])
	}
}

func TestChunkerEmptyText(t *testing.T) {
	c := NewChunker(512, 100)
	if chunks := c.Split(""); chunks != nil {
		t.Errorf("expected nil for empty text, got %v", chunks)
	}
	if chunks := c.Split("   \n\t  "); chunks != nil {
		t.Errorf("expected nil for whitespace text, got %v", chunks)
	}
}

func TestChunkerOverlap(t *testing.T) {
	c := NewChunker(10, 4)
	text := strings.Repeat("abcdefghij", 3) // 30 chars
	chunks := c.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if len([]rune(chunk)) > 10 {
			t.Errorf("chunk %d exceeds size: %d", i, len(chunk))
		}
	}
	// Consecutive chunks share the trailing 4 characters.
	first := []rune(chunks[0])
	second := []rune(chunks[1])
	if string(first[len(first)-4:]) != string(second[:4]) {
		t.Errorf("overlap mismatch: %q vs %q", string(first[len(first)-4:]), string(second[:4]))
	}
}

func TestChunkerCoversAllText(t *testing.T) {
	c := NewChunker(100, 20)
	text := strings.Repeat("the party shall indemnify and hold harmless ", 20)
	chunks := c.Split(text)

	var reconstructed strings.Builder
	for i, chunk := range chunks {
		runes := []rune(chunk)
		if i == 0 {
			reconstructed.WriteString(chunk)
		} else {
			reconstructed.WriteString(string(runes[c.Overlap:]))
		}
	}
	if reconstructed.String() != text {
		t.Error("chunks do not reconstruct the original text")
	}
}

func TestChunkerInvalidParams(t *testing.T) {
	c := NewChunker(0, 0)
	if c.Size != DefaultChunkSize {
		t.Errorf("expected default size, got %d", c.Size)
	}
	c = NewChunker(50, 60)
	if c.Overlap >= c.Size {
		t.Errorf("overlap %d must be less than size %d", c.Overlap, c.Size)
	}
}

type stubBackend struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubBackend) EmbedText(_ context.Context, text string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0}, nil
}

func TestEmbedBatch(t *testing.T) {
	backend := &stubBackend{vectors: map[string][]float32{
		"first":  {1, 0},
		"second": {0, 1},
	}}
	e := NewEmbedder(backend)

	vecs, err := e.EmbedBatch(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors out of order: %v", vecs)
	}
}

func TestEmbedBatchEmpty(t *testing.T) {
	e := NewEmbedder(&stubBackend{})
	vecs, err := e.EmbedBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs != nil {
		t.Errorf("expected nil for empty input, got %v", vecs)
	}
}

func TestEmbedBatchError(t *testing.T) {
	backend := &stubBackend{err: errors.New("backend down")}
	e := NewEmbedder(backend)
	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected error from failing backend")
	}
}
