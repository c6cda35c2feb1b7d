package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/utils"
)

const (
	defaultOpenAIModel   = string(openai.SmallEmbedding3)
	defaultRetryInterval = 2 * time.Second
)

// openAIModelDimensions maps the known embedding models to their output
// dimension. Unknown models report 0.
var openAIModelDimensions = map[openai.EmbeddingModel]int{
	openai.SmallEmbedding3: 1536,
	openai.LargeEmbedding3: 3072,
	openai.AdaEmbeddingV2:  1536,
}

// OpenAIEmbedder encodes text with the OpenAI embeddings API. All fields are
// set at construction, so instances are safe for concurrent use.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	maxRetries int
	logger     *zap.Logger
	dim        int
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder.
func NewOpenAIEmbedder(apiKey, model string, maxRetries int, logger *zap.Logger) (*OpenAIEmbedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultOpenAIModel
	}
	if maxRetries < 0 {
		maxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	m := openai.EmbeddingModel(model)
	return &OpenAIEmbedder{
		client:     openai.NewClient(apiKey),
		model:      m,
		maxRetries: maxRetries,
		logger:     logger,
		dim:        openAIModelDimensions[m],
	}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var resp openai.EmbeddingResponse
	var err error
	for attempt := 0; ; attempt++ {
		resp, err = e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input: texts,
			Model: e.model,
		})
		if err == nil {
			break
		}
		if attempt >= e.maxRetries {
			return nil, fmt.Errorf("openai embeddings request: %w", err)
		}

		delay := utils.Backoff(attempt+1, defaultRetryInterval)
		e.logger.Warn("openai embeddings request failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if waitErr := utils.WaitFor(ctx, delay); waitErr != nil {
			return nil, waitErr
		}
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embeddings response: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if int(item.Index) >= len(out) {
			return nil, fmt.Errorf("openai embeddings response: index %d out of range", item.Index)
		}
		vec := make([]float32, len(item.Embedding))
		copy(vec, item.Embedding)
		Normalize(vec)
		out[item.Index] = vec
	}

	return out, nil
}

func (e *OpenAIEmbedder) Dimension() int { return e.dim }

func (e *OpenAIEmbedder) ModelInfo() string { return string(e.model) }
