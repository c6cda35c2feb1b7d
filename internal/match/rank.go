package match

import (
	"sort"

	"github.com/talentsort/job-matcher/internal/catalog"
	"github.com/talentsort/job-matcher/internal/profile"
)

// Rank scores the candidate against every job in the catalog and returns the
// results in descending score order, stable under ties. A topK of zero or
// less returns all results.
func (m *Matcher) Rank(candidate *profile.Candidate, jobs *catalog.Jobs, topK int) []*Result {
	results := make([]*Result, 0, jobs.Len())
	for _, job := range jobs.Items {
		results = append(results, m.Score(candidate, job))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}

	return results
}
