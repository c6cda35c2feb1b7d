// Package retriever fetches candidate jobs for a resume via the embedding
// index and re-ranks them with a blended embedding and skill-overlap score.
package retriever

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/catalog"
	"github.com/talentsort/job-matcher/internal/embedding"
)

// fetchK is how many hits the index is asked for before blended re-ranking
// trims to the caller's topK.
const fetchK = 20

// Suggestion is one re-ranked retrieval result with the skill overlap that
// drove its blended score.
type Suggestion struct {
	JobID          string       `json:"job_id"`
	Title          string       `json:"title"`
	Score          float64      `json:"score"`
	EmbeddingScore float64      `json:"embedding_score"`
	MatchedSkills  []string     `json:"matched_skills"`
	MissingSkills  []string     `json:"missing_skills"`
	Job            *catalog.Job `json:"-"`
}

// Search loads the index artifacts and returns the raw top-k hits for the
// query text.
func Search(ctx context.Context, emb embedding.Embedder, indexPath, metaPath, query string, topK int) ([]embedding.Hit, error) {
	ix, err := embedding.LoadIndex(indexPath, metaPath)
	if err != nil {
		return nil, err
	}
	return ix.Search(ctx, emb, query, topK)
}

// BlendWithSkills combines the embedding similarity with skill overlap:
// 0.6*embedding + 0.4*overlap - 0.1*missing, where overlap is the matched
// share of the job's must-have skills and missing their absolute count.
func BlendWithSkills(candidateSkills []string, job *catalog.Job, embeddingScore float64) float64 {
	have := make(map[string]struct{}, len(candidateSkills))
	for _, skill := range candidateSkills {
		have[skill] = struct{}{}
	}

	must := job.MustHave()
	matched := 0
	for _, skill := range must {
		if _, ok := have[skill]; ok {
			matched++
		}
	}

	overlap := float64(matched) / float64(max(1, len(must)))
	missing := len(must) - matched

	return 0.6*embeddingScore + 0.4*overlap - 0.1*float64(missing)
}

// Suggest runs the shallow fusion path: search the index with the resume
// text, re-score every hit with BlendWithSkills, and return the topK
// suggestions in descending blended order (stable under ties).
func Suggest(ctx context.Context, emb embedding.Embedder, indexPath, metaPath, resumeText string, candidateSkills []string, topK int, logger *zap.Logger) ([]Suggestion, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topK < 1 {
		topK = 1
	}

	hits, err := Search(ctx, emb, indexPath, metaPath, resumeText, max(topK, fetchK))
	if err != nil {
		return nil, err
	}

	suggestions := make([]Suggestion, 0, len(hits))
	for _, hit := range hits {
		var job catalog.Job
		if err := json.Unmarshal(hit.Entry.Raw, &job); err != nil {
			return nil, fmt.Errorf("%w: metadata payload for %q: %v", embedding.ErrIndexCorrupt, hit.Entry.ID, err)
		}

		suggestions = append(suggestions, Suggestion{
			JobID:          job.ID,
			Title:          job.Title,
			Score:          round4(BlendWithSkills(candidateSkills, &job, hit.Score)),
			EmbeddingScore: hit.Score,
			MatchedSkills:  intersect(candidateSkills, job.MustHave()),
			MissingSkills:  subtract(job.MustHave(), candidateSkills),
			Job:            &job,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})

	if topK < len(suggestions) {
		suggestions = suggestions[:topK]
	}

	logger.Debug("retrieval suggestions ready",
		zap.Int("hits", len(hits)),
		zap.Int("returned", len(suggestions)),
	)

	return suggestions, nil
}

// BuildJobsIndex embeds the catalog with the supplied text extractor and
// assembles an index ready to save. A nil textFn uses the standard catalog
// index text.
func BuildJobsIndex(ctx context.Context, emb embedding.Embedder, jobs *catalog.Jobs, textFn func(*catalog.Job) string, batchSize int, logger *zap.Logger) (*embedding.Index, error) {
	if textFn == nil {
		textFn = (*catalog.Job).IndexText
	}

	sources := make([]embedding.Source, 0, jobs.Len())
	for _, job := range jobs.Items {
		raw, err := json.Marshal(job)
		if err != nil {
			return nil, fmt.Errorf("encoding job %q: %w", job.ID, err)
		}
		sources = append(sources, embedding.Source{
			ID:   job.ID,
			Text: textFn(job),
			Raw:  raw,
		})
	}

	return embedding.Build(ctx, emb, sources, batchSize, logger)
}

// intersect keeps the candidate skills present in the must-have set,
// preserving candidate order.
func intersect(candidateSkills, must []string) []string {
	wanted := make(map[string]struct{}, len(must))
	for _, skill := range must {
		wanted[skill] = struct{}{}
	}

	var out []string
	for _, skill := range candidateSkills {
		if _, ok := wanted[skill]; ok {
			out = append(out, skill)
		}
	}
	return out
}

// subtract keeps the must-have skills the candidate lacks, preserving
// catalog order.
func subtract(must, candidateSkills []string) []string {
	have := make(map[string]struct{}, len(candidateSkills))
	for _, skill := range candidateSkills {
		have[skill] = struct{}{}
	}

	var out []string
	for _, skill := range must {
		if _, ok := have[skill]; !ok {
			out = append(out, skill)
		}
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
