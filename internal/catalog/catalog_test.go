package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeCatalog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "jobs.jsonl")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing catalog fixture: %v", err)
	}
	return path
}

func TestLoadParsesRecordsAndSkipsBlanks(t *testing.T) {
	path := writeCatalog(t, `{"id":"j1","title":"Backend Engineer","location":"Kuala Lumpur","required":[{"skill":"Python","min_level":3}],"nice":["docker"]}

{"id":"j2","title":"Data Analyst","dept":"Analytics"}
`)

	jobs, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if jobs.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", jobs.Len())
	}

	job := jobs.FindByID("j1")
	if job == nil {
		t.Fatal("FindByID(j1) = nil")
	}
	if job.Title != "Backend Engineer" {
		t.Fatalf("Title = %q, want %q", job.Title, "Backend Engineer")
	}
	if len(job.Required) != 1 || job.Required[0].MinLevel != 3 {
		t.Fatalf("Required = %+v, want one entry with min_level 3", job.Required)
	}
	if jobs.FindByID("missing") != nil {
		t.Fatal("FindByID(missing) != nil")
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.jsonl"))
	if !errors.Is(err, ErrDataMissing) {
		t.Fatalf("Load() error = %v, want ErrDataMissing", err)
	}
}

func TestLoadMalformedLine(t *testing.T) {
	path := writeCatalog(t, `{"id":"j1","title":"Engineer"}
{not valid json
`)

	_, err := Load(path)
	if !errors.Is(err, ErrDataMissing) {
		t.Fatalf("Load() error = %v, want ErrDataMissing", err)
	}
}

func TestMustHaveLowersSkillIDs(t *testing.T) {
	job := &Job{Required: []SkillRequirement{
		{Skill: "Python", MinLevel: 3},
		{Skill: "SQL", MinLevel: 2},
	}}

	got := job.MustHave()
	want := []string{"python", "sql"}
	if len(got) != len(want) {
		t.Fatalf("MustHave() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MustHave()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIndexTextFormat(t *testing.T) {
	job := &Job{
		Title:    "Backend Engineer",
		Level:    "Senior",
		Location: "Kuala Lumpur",
		Desc:     "Build services.",
		Required: []SkillRequirement{{Skill: "Python", MinLevel: 3}, {Skill: "SQL", MinLevel: 2}},
		Nice:     []string{"docker"},
	}

	want := "Backend Engineer Senior Kuala Lumpur. Must: python, sql. Nice: docker. Desc: Build services."
	if got := job.IndexText(); got != want {
		t.Fatalf("IndexText() = %q, want %q", got, want)
	}
}

func TestJobsLenNil(t *testing.T) {
	var jobs *Jobs
	if jobs.Len() != 0 {
		t.Fatalf("nil Jobs Len() = %d, want 0", jobs.Len())
	}
}
