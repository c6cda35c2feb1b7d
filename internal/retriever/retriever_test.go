package retriever

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/catalog"
	"github.com/talentsort/job-matcher/internal/embedding"
)

func TestBlendWithSkills(t *testing.T) {
	tests := []struct {
		name   string
		skills []string
		job    *catalog.Job
		emb    float64
		want   float64
	}{
		{
			name:   "half overlap with one missing",
			skills: []string{"python"},
			job: &catalog.Job{Required: []catalog.SkillRequirement{
				{Skill: "Python", MinLevel: 3},
				{Skill: "SQL", MinLevel: 2},
			}},
			emb:  0.5,
			want: 0.4, // 0.6*0.5 + 0.4*0.5 - 0.1*1
		},
		{
			name:   "full overlap",
			skills: []string{"python"},
			job:    &catalog.Job{Required: []catalog.SkillRequirement{{Skill: "python", MinLevel: 1}}},
			emb:    1.0,
			want:   1.0,
		},
		{
			name:   "no requirements keeps embedding share only",
			skills: []string{"python"},
			job:    &catalog.Job{},
			emb:    0.5,
			want:   0.3,
		},
		{
			name:   "everything missing goes negative",
			skills: nil,
			job: &catalog.Job{Required: []catalog.SkillRequirement{
				{Skill: "python", MinLevel: 1},
				{Skill: "sql", MinLevel: 1},
			}},
			emb:  0.0,
			want: -0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BlendWithSkills(tt.skills, tt.job, tt.emb)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("BlendWithSkills() = %v, want %v", got, tt.want)
			}
		})
	}
}

func testJobs() *catalog.Jobs {
	return &catalog.Jobs{Items: []*catalog.Job{
		{
			ID:       "j1",
			Title:    "Backend Engineer",
			Location: "Kuala Lumpur",
			Desc:     "Build backend services in python.",
			Required: []catalog.SkillRequirement{
				{Skill: "python", MinLevel: 3},
				{Skill: "sql", MinLevel: 2},
			},
		},
		{
			ID:       "j2",
			Title:    "Frontend Developer",
			Location: "Singapore",
			Desc:     "Build user interfaces.",
			Required: []catalog.SkillRequirement{{Skill: "react", MinLevel: 2}},
		},
		{
			ID:       "j3",
			Title:    "Office Manager",
			Location: "Penang",
			Desc:     "Keep the office running.",
		},
	}}
}

func saveTestIndex(t *testing.T, emb embedding.Embedder) (indexPath, metaPath string) {
	t.Helper()

	ix, err := BuildJobsIndex(context.Background(), emb, testJobs(), nil, 0, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildJobsIndex() error = %v", err)
	}

	dir := t.TempDir()
	indexPath = filepath.Join(dir, "jobs.index")
	metaPath = filepath.Join(dir, "jobs.meta.jsonl")
	if err := ix.Save(indexPath, metaPath); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return indexPath, metaPath
}

func TestSuggestRanksOverlapFirst(t *testing.T) {
	emb := embedding.NewLocalEmbedder(64)
	indexPath, metaPath := saveTestIndex(t, emb)

	resume := testJobs().Items[0].IndexText()
	suggestions, err := Suggest(context.Background(), emb, indexPath, metaPath,
		resume, []string{"python", "sql"}, 3, zap.NewNop())
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(suggestions) != 3 {
		t.Fatalf("Suggest() returned %d suggestions, want 3", len(suggestions))
	}

	top := suggestions[0]
	if top.JobID != "j1" {
		t.Fatalf("top suggestion = %q, want j1", top.JobID)
	}
	if math.Abs(top.Score-1.0) > 1e-3 {
		t.Fatalf("top score = %v, want ~1.0 for identical text and full overlap", top.Score)
	}
	if len(top.MatchedSkills) != 2 || top.MatchedSkills[0] != "python" || top.MatchedSkills[1] != "sql" {
		t.Fatalf("MatchedSkills = %v, want [python sql]", top.MatchedSkills)
	}
	if len(top.MissingSkills) != 0 {
		t.Fatalf("MissingSkills = %v, want empty", top.MissingSkills)
	}
	if top.Job == nil || top.Job.Title != "Backend Engineer" {
		t.Fatalf("Job payload not carried through: %+v", top.Job)
	}

	for i := 1; i < len(suggestions); i++ {
		if suggestions[i].Score > suggestions[i-1].Score {
			t.Fatalf("suggestions not in descending order at %d", i)
		}
	}
}

func TestSuggestReportsMissingSkills(t *testing.T) {
	emb := embedding.NewLocalEmbedder(64)
	indexPath, metaPath := saveTestIndex(t, emb)

	suggestions, err := Suggest(context.Background(), emb, indexPath, metaPath,
		"backend services in python", []string{"python"}, 3, zap.NewNop())
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}

	var backend *Suggestion
	for i := range suggestions {
		if suggestions[i].JobID == "j1" {
			backend = &suggestions[i]
		}
	}
	if backend == nil {
		t.Fatal("j1 not among suggestions")
	}
	if len(backend.MissingSkills) != 1 || backend.MissingSkills[0] != "sql" {
		t.Fatalf("MissingSkills = %v, want [sql]", backend.MissingSkills)
	}
}

func TestSuggestTrimsToTopK(t *testing.T) {
	emb := embedding.NewLocalEmbedder(64)
	indexPath, metaPath := saveTestIndex(t, emb)

	suggestions, err := Suggest(context.Background(), emb, indexPath, metaPath,
		"engineer", nil, 1, zap.NewNop())
	if err != nil {
		t.Fatalf("Suggest() error = %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("Suggest(topK=1) returned %d suggestions, want 1", len(suggestions))
	}
}

func TestSuggestMissingArtifacts(t *testing.T) {
	dir := t.TempDir()
	_, err := Suggest(context.Background(), embedding.NewLocalEmbedder(16),
		filepath.Join(dir, "jobs.index"), filepath.Join(dir, "jobs.meta.jsonl"),
		"anything", nil, 5, zap.NewNop())
	if !errors.Is(err, embedding.ErrArtifactMissing) {
		t.Fatalf("Suggest() error = %v, want ErrArtifactMissing", err)
	}
}
