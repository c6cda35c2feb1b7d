// Package profile holds the structured candidate representation consumed by
// the matching engine. Profiles are produced upstream (resume parsing is not
// part of this module) and treated as immutable once handed to a scorer.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Skill is a single normalized skill mention. Canonical is the taxonomy
// identifier; Name keeps the surface text as it appeared in the source.
type Skill struct {
	Name      string `json:"name"`
	Canonical string `json:"canonical"`
	Level     int    `json:"level"`
	LastUsed  string `json:"last_used,omitempty"`
}

// Role is a prior position held by the candidate. Start and End are "YYYY-MM"
// strings when known.
type Role struct {
	Title string `json:"title"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Candidate is the structured candidate profile. Identity fields are carried
// through for the caller but never used by scoring.
type Candidate struct {
	ID        string   `json:"candidate_id,omitempty"`
	Name      string   `json:"name,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Email     string   `json:"email,omitempty"`
	Dept      string   `json:"dept,omitempty"`
	Location  string   `json:"location,omitempty"`
	Seniority string   `json:"seniority,omitempty"`
	Skills    []Skill  `json:"skills,omitempty"`
	Roles     []Role   `json:"roles,omitempty"`
	Certs     []string `json:"certs,omitempty"`
	Education []string `json:"education,omitempty"`
	Projects  []string `json:"projects,omitempty"`
}

// SkillIDs returns the canonical ids of the candidate's skills, lower-cased,
// in mention order.
func (c *Candidate) SkillIDs() []string {
	ids := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		ids = append(ids, strings.ToLower(s.Canonical))
	}
	return ids
}

// SkillLevels returns a canonical-id to proficiency-level lookup table.
func (c *Candidate) SkillLevels() map[string]int {
	levels := make(map[string]int, len(c.Skills))
	for _, s := range c.Skills {
		levels[strings.ToLower(s.Canonical)] = s.Level
	}
	return levels
}

// EnsureID assigns a fresh id when the caller did not supply one.
func (c *Candidate) EnsureID() {
	if strings.TrimSpace(c.ID) == "" {
		c.ID = uuid.NewString()
	}
}

// FromFile reads a candidate profile from a JSON file.
func FromFile(path string) (*Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidate profile: %w", err)
	}

	var c Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing candidate profile %q: %w", path, err)
	}

	return &c, nil
}
