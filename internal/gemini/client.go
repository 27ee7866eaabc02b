// Package gemini adapts the Gemini API to the generation and embedding
// interfaces the rest of the service consumes.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/lexsift/lexsift/internal/rag"
)

const (
	// DefaultGenerationModel is used when no model is configured.
	DefaultGenerationModel = "gemini-2.0-flash-001"
	// DefaultEmbeddingModel is used when no embedding model is configured.
	DefaultEmbeddingModel = "text-embedding-004"
)

// PassageRetriever fetches grounding passages for a prompt. Satisfied by
// corpus.Manager.
type PassageRetriever interface {
	Query(ctx context.Context, corpusName, query string, topK int) (rag.RetrievalResult, error)
}

// Config holds Gemini connection and model settings.
type Config struct {
	APIKey          string
	CredentialsFile string
	GenerationModel string
	EmbeddingModel  string
	GroundingTopK   int
}

// Client implements grounded and direct generation plus text embedding
// against the Gemini API. Generation runs at temperature 0 so repeated
// calls over the same document produce stable wording.
type Client struct {
	client    *genai.Client
	retriever PassageRetriever
	genModel  string
	embModel  string
	topK      int
}

// New creates a Client. Exactly one of APIKey or CredentialsFile must be
// set; models fall back to the defaults. The retriever for grounded
// generation is attached separately via SetRetriever, since the corpus
// manager itself embeds queries through this client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, fmt.Errorf("either an API key or a credentials file is required")
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}

	genModel := cfg.GenerationModel
	if genModel == "" {
		genModel = DefaultGenerationModel
	}
	embModel := cfg.EmbeddingModel
	if embModel == "" {
		embModel = DefaultEmbeddingModel
	}
	topK := cfg.GroundingTopK
	if topK <= 0 {
		topK = 4
	}

	return &Client{
		client:   client,
		genModel: genModel,
		embModel: embModel,
		topK:     topK,
	}, nil
}

// SetRetriever attaches the passage source for grounded generation.
func (c *Client) SetRetriever(r PassageRetriever) {
	c.retriever = r
}

// Close releases the underlying API client.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// GenerateDirect generates text from the prompt alone.
func (c *Client) GenerateDirect(ctx context.Context, prompt string) (string, error) {
	model := c.client.GenerativeModel(c.genModel)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	return extractText(resp)
}

// GenerateGrounded retrieves the corpus's most relevant passages for the
// prompt and generates with them as context.
func (c *Client) GenerateGrounded(ctx context.Context, corpusName, prompt string) (string, error) {
	if c.retriever == nil {
		return "", fmt.Errorf("no passage retriever attached")
	}
	result, err := c.retriever.Query(ctx, corpusName, prompt, c.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving passages: %w", err)
	}
	if !result.Usable() {
		return "", fmt.Errorf("corpus %q returned no usable passages", corpusName)
	}

	model := c.client.GenerativeModel(c.genModel)
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx, genai.Text(buildGroundedPrompt(result.Passages, prompt)))
	if err != nil {
		return "", fmt.Errorf("generating grounded content: %w", err)
	}
	return extractText(resp)
}

// EmbedText returns the embedding vector for a single text.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	em := c.client.EmbeddingModel(c.embModel)
	resp, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embedding content: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding response contained no values")
	}
	return resp.Embedding.Values, nil
}

// buildGroundedPrompt stitches retrieved passages and the user prompt into
// a single generation request.
func buildGroundedPrompt(passages []rag.Passage, prompt string) string {
	var b strings.Builder
	b.WriteString("Context passages retrieved from the document:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&b, "[passage %d]\n%s\n\n", i+1, p.Text)
	}
	b.WriteString(prompt)
	return b.String()
}

// extractText flattens the first candidate's text parts.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("empty response from model")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("response contained no text parts")
	}
	return b.String(), nil
}
