package embedding

import (
	"bufio"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
)

var (
	// ErrArtifactMissing marks an absent index or metadata file. An
	// operator can recover by rebuilding the index.
	ErrArtifactMissing = errors.New("index artifact missing")
	// ErrIndexCorrupt marks artifacts that disagree with each other.
	// Record i of the metadata file must describe vector i of the index.
	ErrIndexCorrupt = errors.New("index artifacts corrupt")
)

const defaultBatchSize = 32

// Entry is the metadata side of an indexed item. Raw carries the source
// record untouched so the index stays agnostic to record shape.
type Entry struct {
	ID   string          `json:"id"`
	Text string          `json:"text"`
	Raw  json.RawMessage `json:"raw"`
}

// Source is an item to index: an id, the caller-extracted text to embed, and
// the raw payload to carry in the metadata.
type Source struct {
	ID   string
	Text string
	Raw  json.RawMessage
}

// Index holds L2-normalized vectors and their ordinal-aligned entries.
// It is built or loaded once and read-only afterwards.
type Index struct {
	Model   string
	Dim     int
	Vectors [][]float32
	Entries []Entry
}

// Hit is one search result. Ranks start at 1 and are dense over surviving
// results.
type Hit struct {
	Rank  int
	Score float64
	Entry Entry
}

// persisted is the gob layout of the vector file. Entries are persisted
// separately as line-delimited JSON.
type persisted struct {
	Model   string
	Dim     int
	Vectors [][]float32
}

// Build encodes the sources in fixed-size batches and assembles an index.
func Build(ctx context.Context, emb Embedder, sources []Source, batchSize int, logger *zap.Logger) (*Index, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ix := &Index{Model: emb.ModelInfo()}

	for start := 0; start < len(sources); start += batchSize {
		end := start + batchSize
		if end > len(sources) {
			end = len(sources)
		}

		texts := make([]string, 0, end-start)
		for _, src := range sources[start:end] {
			texts = append(texts, src.Text)
		}

		vecs, err := emb.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding batch starting at %d: %w", start, err)
		}

		for i, vec := range vecs {
			Normalize(vec)
			ix.Vectors = append(ix.Vectors, vec)
			src := sources[start+i]
			ix.Entries = append(ix.Entries, Entry{ID: src.ID, Text: src.Text, Raw: src.Raw})
		}

		logger.Debug("embedded batch",
			zap.Int("from", start),
			zap.Int("to", end),
			zap.Int("total", len(sources)),
		)
	}

	if len(ix.Vectors) > 0 {
		ix.Dim = len(ix.Vectors[0])
	}

	return ix, nil
}

// Save writes the vector file (gob) and the parallel metadata file (JSONL).
// Record i in the metadata file corresponds to vector i in the index.
func (ix *Index) Save(indexPath, metaPath string) error {
	file, err := os.Create(indexPath)
	if err != nil {
		return fmt.Errorf("creating index file %q: %w", indexPath, err)
	}

	enc := gob.NewEncoder(file)
	if err := enc.Encode(persisted{Model: ix.Model, Dim: ix.Dim, Vectors: ix.Vectors}); err != nil {
		file.Close()
		return fmt.Errorf("encoding index file %q: %w", indexPath, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing index file %q: %w", indexPath, err)
	}

	meta, err := os.Create(metaPath)
	if err != nil {
		return fmt.Errorf("creating metadata file %q: %w", metaPath, err)
	}
	defer meta.Close()

	writer := bufio.NewWriter(meta)
	for _, entry := range ix.Entries {
		line, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encoding metadata entry %q: %w", entry.ID, err)
		}
		writer.Write(line)
		writer.WriteByte('\n')
	}

	return writer.Flush()
}

// LoadIndex reads both artifacts and verifies their ordinal alignment:
// mismatched counts mean one file was rewritten without the other and the
// index must be rebuilt.
func LoadIndex(indexPath, metaPath string) (*Index, error) {
	file, err := os.Open(indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrArtifactMissing, indexPath)
		}
		return nil, fmt.Errorf("opening index file %q: %w", indexPath, err)
	}
	defer file.Close()

	var p persisted
	if err := gob.NewDecoder(file).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decoding %q: %v", ErrIndexCorrupt, indexPath, err)
	}

	entries, err := loadEntries(metaPath)
	if err != nil {
		return nil, err
	}

	if len(entries) != len(p.Vectors) {
		return nil, fmt.Errorf("%w: %d vectors in %q but %d metadata records in %q",
			ErrIndexCorrupt, len(p.Vectors), indexPath, len(entries), metaPath)
	}

	return &Index{Model: p.Model, Dim: p.Dim, Vectors: p.Vectors, Entries: entries}, nil
}

func loadEntries(metaPath string) ([]Entry, error) {
	file, err := os.Open(metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrArtifactMissing, metaPath)
		}
		return nil, fmt.Errorf("opening metadata file %q: %w", metaPath, err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(text), &entry); err != nil {
			return nil, fmt.Errorf("%w: parsing %q line %d: %v", ErrIndexCorrupt, metaPath, line, err)
		}
		entries = append(entries, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading metadata file %q: %w", metaPath, err)
	}

	return entries, nil
}

// Len reports the number of indexed items.
func (ix *Index) Len() int {
	return len(ix.Vectors)
}

// Search encodes the query with the injected embedder and returns the top k
// hits by cosine similarity. k is clamped to [1, Len]; hits with non-finite
// scores are dropped and ranks stay dense over the survivors. An embedder
// whose dimension disagrees with the index is rejected, so a stale index is
// reported instead of silently scoring zeroes.
func (ix *Index) Search(ctx context.Context, emb Embedder, query string, k int) ([]Hit, error) {
	if ix.Len() == 0 {
		return nil, nil
	}

	if d := emb.Dimension(); d != 0 && ix.Dim != 0 && d != ix.Dim {
		return nil, fmt.Errorf("embedder dimension %d does not match index dimension %d (index model %q)",
			d, ix.Dim, ix.Model)
	}

	if k < 1 {
		k = 1
	}
	if k > ix.Len() {
		k = ix.Len()
	}

	qvec, err := emb.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("encoding query: %w", err)
	}
	Normalize(qvec)

	type scored struct {
		ordinal int
		score   float64
	}

	all := make([]scored, 0, ix.Len())
	for i, vec := range ix.Vectors {
		all = append(all, scored{ordinal: i, score: Dot(qvec, vec)})
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].score > all[j].score
	})

	hits := make([]Hit, 0, k)
	rank := 1
	for _, s := range all[:k] {
		if math.IsNaN(s.score) || math.IsInf(s.score, 0) {
			continue
		}
		hits = append(hits, Hit{Rank: rank, Score: s.score, Entry: ix.Entries[s.ordinal]})
		rank++
	}

	return hits, nil
}
