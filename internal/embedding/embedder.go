// Package embedding provides text encoders and a dense vector index with
// cosine-similarity search over job-catalog text.
package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder encodes free text into fixed-dimension vectors. Implementations
// are constructed once at startup and injected; they must be safe for
// concurrent use after construction. Dimension reports the output vector
// length, or 0 when the model is not recognized.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

const defaultLocalDimension = 128

// LocalEmbedder is a deterministic token-hashing encoder. It needs no
// network or model files, which makes it the offline fallback and the test
// double; identical text always encodes to the identical unit vector.
type LocalEmbedder struct {
	dim int
}

// NewLocalEmbedder creates a local embedder. Non-positive dimensions fall
// back to the default.
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = defaultLocalDimension
	}
	return &LocalEmbedder{dim: dimension}
}

func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dim)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		idx := int(h.Sum32()) % e.dim
		if idx < 0 {
			idx += e.dim
		}
		vec[idx]++
	}

	Normalize(vec)
	return vec, nil
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (e *LocalEmbedder) Dimension() int { return e.dim }

func (e *LocalEmbedder) ModelInfo() string { return "local-hash-v1" }

// Normalize scales the vector to unit L2 length in place, so inner product
// equals cosine similarity. Zero vectors are left untouched.
func Normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= norm
	}
}

// Dot returns the inner product of two vectors of equal length; for
// L2-normalized inputs this is the cosine similarity.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
