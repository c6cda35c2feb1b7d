// Package catalog loads and represents the job catalog the matching engine
// scores against.
package catalog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrDataMissing marks failures an operator can fix by supplying or repairing
// the catalog data, as opposed to internal faults.
var ErrDataMissing = errors.New("catalog data missing")

// SkillRequirement is a required skill with the minimum proficiency level a
// candidate must hold for full credit.
type SkillRequirement struct {
	Skill    string `json:"skill"`
	MinLevel int    `json:"min_level"`
}

// Job is a single catalog record. Desc and Level are free-form fields used
// only when building retrieval text.
type Job struct {
	ID       string             `json:"id"`
	Title    string             `json:"title"`
	Dept     string             `json:"dept,omitempty"`
	Location string             `json:"location,omitempty"`
	Level    string             `json:"level,omitempty"`
	Desc     string             `json:"desc,omitempty"`
	Required []SkillRequirement `json:"required,omitempty"`
	Nice     []string           `json:"nice,omitempty"`
}

// MustHave returns the required skill ids, lower-cased, in catalog order.
func (j *Job) MustHave() []string {
	ids := make([]string, 0, len(j.Required))
	for _, req := range j.Required {
		ids = append(ids, strings.ToLower(req.Skill))
	}
	return ids
}

// IndexText builds the single representative string embedded for retrieval.
func (j *Job) IndexText() string {
	must := strings.Join(j.MustHave(), ", ")
	nice := strings.Join(j.Nice, ", ")
	return fmt.Sprintf("%s %s %s. Must: %s. Nice: %s. Desc: %s",
		j.Title, j.Level, j.Location, must, nice, j.Desc)
}

// Jobs is the loaded catalog.
type Jobs struct {
	Items []*Job
}

func (js *Jobs) Len() int {
	if js == nil {
		return 0
	}
	return len(js.Items)
}

// FindByID returns the job with the given id, or nil.
func (js *Jobs) FindByID(id string) *Job {
	for _, job := range js.Items {
		if job.ID == id {
			return job
		}
	}
	return nil
}

// Load reads a line-delimited JSON catalog file. Blank lines are skipped. A
// missing file is reported as ErrDataMissing; a malformed line is a data
// error carrying the line number.
func Load(path string) (*Jobs, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: job catalog %q", ErrDataMissing, path)
		}
		return nil, fmt.Errorf("opening job catalog %q: %w", path, err)
	}
	defer file.Close()

	jobs := &Jobs{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var job Job
		if err := json.Unmarshal([]byte(text), &job); err != nil {
			return nil, fmt.Errorf("%w: parsing job catalog %q line %d: %v", ErrDataMissing, path, line, err)
		}

		jobs.Items = append(jobs.Items, &job)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading job catalog %q: %w", path, err)
	}

	return jobs, nil
}
