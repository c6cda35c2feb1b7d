package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func buildTestIndex(t *testing.T, emb Embedder, texts []string) *Index {
	t.Helper()

	sources := make([]Source, 0, len(texts))
	for i, text := range texts {
		raw, _ := json.Marshal(map[string]string{"text": text})
		sources = append(sources, Source{ID: string(rune('a' + i)), Text: text, Raw: raw})
	}

	ix, err := Build(context.Background(), emb, sources, 2, zap.NewNop())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return ix
}

func TestBuildAlignsVectorsAndEntries(t *testing.T) {
	emb := NewLocalEmbedder(32)
	ix := buildTestIndex(t, emb, []string{
		"python backend engineer",
		"frontend developer react",
		"data analyst sql",
	})

	if ix.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ix.Len())
	}
	if ix.Dim != 32 {
		t.Fatalf("Dim = %d, want 32", ix.Dim)
	}
	if ix.Model != emb.ModelInfo() {
		t.Fatalf("Model = %q, want %q", ix.Model, emb.ModelInfo())
	}
	for i, entry := range ix.Entries {
		if entry.Text == "" {
			t.Fatalf("entry %d has empty text", i)
		}
		if len(ix.Vectors[i]) != 32 {
			t.Fatalf("vector %d dimension = %d, want 32", i, len(ix.Vectors[i]))
		}
	}
}

func TestSaveLoadSearchRoundTrip(t *testing.T) {
	emb := NewLocalEmbedder(64)
	texts := []string{
		"python backend engineer kuala lumpur",
		"frontend developer react singapore",
		"data analyst sql penang",
	}
	ix := buildTestIndex(t, emb, texts)

	dir := t.TempDir()
	indexPath := filepath.Join(dir, "jobs.index")
	metaPath := filepath.Join(dir, "jobs.meta.jsonl")

	if err := ix.Save(indexPath, metaPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := LoadIndex(indexPath, metaPath)
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if loaded.Len() != ix.Len() {
		t.Fatalf("loaded Len() = %d, want %d", loaded.Len(), ix.Len())
	}

	hits, err := loaded.Search(context.Background(), emb, texts[0], 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 3 {
		t.Fatalf("Search() returned %d hits, want 3", len(hits))
	}
	if hits[0].Entry.Text != texts[0] {
		t.Fatalf("top hit = %q, want exact-text match %q", hits[0].Entry.Text, texts[0])
	}
	if hits[0].Score < 0.999 {
		t.Fatalf("top hit score = %v, want ~1.0 for identical text", hits[0].Score)
	}
	for i, hit := range hits {
		if hit.Rank != i+1 {
			t.Fatalf("hit %d rank = %d, want dense rank %d", i, hit.Rank, i+1)
		}
		if i > 0 && hit.Score > hits[i-1].Score {
			t.Fatalf("hits not in descending score order at %d", i)
		}
	}
}

func TestSearchClampsK(t *testing.T) {
	emb := NewLocalEmbedder(32)
	ix := buildTestIndex(t, emb, []string{"alpha role", "beta role"})
	ctx := context.Background()

	hits, err := ix.Search(ctx, emb, "alpha role", 0)
	if err != nil {
		t.Fatalf("Search(k=0) error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("Search(k=0) returned %d hits, want 1", len(hits))
	}

	hits, err = ix.Search(ctx, emb, "alpha role", 50)
	if err != nil {
		t.Fatalf("Search(k=50) error = %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("Search(k=50) returned %d hits, want all 2", len(hits))
	}
}

func TestSearchRejectsMismatchedEmbedder(t *testing.T) {
	ix := buildTestIndex(t, NewLocalEmbedder(32), []string{"alpha role", "beta role"})

	_, err := ix.Search(context.Background(), NewLocalEmbedder(64), "alpha role", 1)
	if err == nil {
		t.Fatal("Search() with a 64-dim embedder against a 32-dim index expected error")
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := &Index{}
	hits, err := ix.Search(context.Background(), NewLocalEmbedder(8), "anything", 5)
	if err != nil {
		t.Fatalf("Search() on empty index error = %v", err)
	}
	if hits != nil {
		t.Fatalf("Search() on empty index = %v, want nil", hits)
	}
}

func TestLoadIndexMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "jobs.index")
	metaPath := filepath.Join(dir, "jobs.meta.jsonl")

	if _, err := LoadIndex(indexPath, metaPath); !errors.Is(err, ErrArtifactMissing) {
		t.Fatalf("LoadIndex() with no index file error = %v, want ErrArtifactMissing", err)
	}

	ix := buildTestIndex(t, NewLocalEmbedder(16), []string{"only role"})
	if err := ix.Save(indexPath, metaPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := os.Remove(metaPath); err != nil {
		t.Fatalf("removing metadata file: %v", err)
	}

	if _, err := LoadIndex(indexPath, metaPath); !errors.Is(err, ErrArtifactMissing) {
		t.Fatalf("LoadIndex() with no metadata file error = %v, want ErrArtifactMissing", err)
	}
}

func TestLoadIndexCountMismatch(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "jobs.index")
	metaPath := filepath.Join(dir, "jobs.meta.jsonl")

	ix := buildTestIndex(t, NewLocalEmbedder(16), []string{"first role", "second role"})
	if err := ix.Save(indexPath, metaPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Rewrite the metadata with one record; the vector file still has two.
	line, _ := json.Marshal(Entry{ID: "a", Text: "first role"})
	if err := os.WriteFile(metaPath, append(line, '\n'), 0o600); err != nil {
		t.Fatalf("rewriting metadata: %v", err)
	}

	if _, err := LoadIndex(indexPath, metaPath); !errors.Is(err, ErrIndexCorrupt) {
		t.Fatalf("LoadIndex() with mismatched counts error = %v, want ErrIndexCorrupt", err)
	}
}

func TestLoadIndexMalformedMetadata(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "jobs.index")
	metaPath := filepath.Join(dir, "jobs.meta.jsonl")

	ix := buildTestIndex(t, NewLocalEmbedder(16), []string{"only role"})
	if err := ix.Save(indexPath, metaPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := os.WriteFile(metaPath, []byte("{not json\n"), 0o600); err != nil {
		t.Fatalf("rewriting metadata: %v", err)
	}

	if _, err := LoadIndex(indexPath, metaPath); !errors.Is(err, ErrIndexCorrupt) {
		t.Fatalf("LoadIndex() with malformed metadata error = %v, want ErrIndexCorrupt", err)
	}
}
