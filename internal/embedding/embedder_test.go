package embedding

import (
	"context"
	"math"
	"testing"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	emb := NewLocalEmbedder(64)
	ctx := context.Background()

	first, err := emb.Embed(ctx, "python sql backend engineer")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	second, err := emb.Embed(ctx, "python sql backend engineer")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if len(first) != 64 {
		t.Fatalf("Embed() dimension = %d, want 64", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("Embed() not deterministic at component %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestLocalEmbedderUnitNorm(t *testing.T) {
	emb := NewLocalEmbedder(0)
	if emb.Dimension() != defaultLocalDimension {
		t.Fatalf("Dimension() = %d, want default %d", emb.Dimension(), defaultLocalDimension)
	}

	vec, err := emb.Embed(context.Background(), "distributed systems in go")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if math.Abs(sum-1.0) > 1e-5 {
		t.Fatalf("Embed() squared norm = %v, want 1.0", sum)
	}
}

func TestLocalEmbedderEmptyText(t *testing.T) {
	vec, err := NewLocalEmbedder(16).Embed(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("Embed() of blank text has non-zero component %d: %v", i, v)
		}
	}
}

func TestOpenAIEmbedderDimensionFixedAtConstruction(t *testing.T) {
	emb, err := NewOpenAIEmbedder("test-key", "", 0, nil)
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	if emb.ModelInfo() != defaultOpenAIModel {
		t.Fatalf("ModelInfo() = %q, want default %q", emb.ModelInfo(), defaultOpenAIModel)
	}
	if emb.Dimension() != 1536 {
		t.Fatalf("Dimension() = %d, want 1536 for the default model", emb.Dimension())
	}

	emb, err = NewOpenAIEmbedder("test-key", "some-future-model", 0, nil)
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder() error = %v", err)
	}
	if emb.Dimension() != 0 {
		t.Fatalf("Dimension() = %d, want 0 for an unrecognized model", emb.Dimension())
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	vec := []float32{0, 0, 0}
	Normalize(vec)
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("Normalize() changed zero vector at %d: %v", i, v)
		}
	}
}

func TestDot(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "identical unit", a: []float32{0.6, 0.8}, b: []float32{0.6, 0.8}, want: 1},
		{name: "length mismatch", a: []float32{1, 2, 3}, b: []float32{1, 2}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Dot(tt.a, tt.b); math.Abs(got-tt.want) > 1e-6 {
				t.Fatalf("Dot() = %v, want %v", got, tt.want)
			}
		})
	}
}
