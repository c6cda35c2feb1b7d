package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultGeminiModel = "text-embedding-004"

// geminiModelDimensions maps the known embedding models to their output
// dimension. Unknown models report 0.
var geminiModelDimensions = map[string]int{
	"text-embedding-004":   768,
	"gemini-embedding-001": 3072,
}

// GeminiEmbedder encodes text with the Gemini embeddings API. All fields are
// set at construction, so instances are safe for concurrent use.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
	logger *zap.Logger
	dim    int
}

// NewGeminiEmbedder creates a Gemini-backed embedder.
func NewGeminiEmbedder(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &GeminiEmbedder{
		client: client,
		model:  model,
		logger: logger,
		dim:    geminiModelDimensions[model],
	}, nil
}

func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *GeminiEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.Text(text)...)
	}

	resp, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini embeddings request: %w", err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embeddings response: got %d vectors for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, fmt.Errorf("gemini embeddings response: empty vector at index %d", i)
		}
		vec := make([]float32, len(emb.Values))
		copy(vec, emb.Values)
		Normalize(vec)
		out[i] = vec
	}

	return out, nil
}

func (e *GeminiEmbedder) Dimension() int { return e.dim }

func (e *GeminiEmbedder) ModelInfo() string { return e.model }
