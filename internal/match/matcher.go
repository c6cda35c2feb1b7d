// Package match scores structured candidate profiles against job profiles
// with a weighted multi-component rule set and produces explainable results.
package match

import (
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/catalog"
	"github.com/talentsort/job-matcher/internal/profile"
)

// Reason is a single entry in the explanation trail: which feature moved the
// score, by how much, and why.
type Reason struct {
	Feature string  `json:"feature"`
	Weight  float64 `json:"weight"`
	Note    string  `json:"note"`
}

// Result is the outcome of scoring one candidate against one job. It is
// never mutated after construction.
type Result struct {
	JobID   string   `json:"job_id"`
	Score   float64  `json:"score"`
	Reasons []Reason `json:"reasons"`
	Gaps    []string `json:"gaps"`
}

// roleFamilies are the role-family keywords used by the experience component.
var roleFamilies = []string{"engineer", "developer", "analyst", "manager"}

// seniorityTerms in a job title raise the education bar to a postgraduate
// credential.
var seniorityTerms = []string{"senior", "lead", "principal", "manager", "director"}

var postgraduateTerms = []string{"master", "mba", "phd", "doctorate", "postgraduate"}

var bachelorTerms = []string{"bachelor", "bsc", "b.s", "b.a", "undergraduate", "degree"}

// educationDomainTerms mark an education entry as technically relevant even
// when it shares no keyword with the job itself.
var educationDomainTerms = []string{
	"computer", "science", "engineering", "information", "technology",
	"data", "mathematics", "statistics", "software", "business",
}

// genericProjectTerms supplement the per-job keyword set when crediting
// project descriptions.
var genericProjectTerms = []string{
	"data", "cloud", "api", "pipeline", "machine", "learning",
	"analytics", "dashboard", "backend", "frontend",
}

// locationSynonyms groups spellings of the same city; two locations mapping
// into one group earn partial credit.
var locationSynonyms = [][]string{
	{"kuala lumpur", "kl"},
	{"singapore", "sg"},
	{"johor bahru", "jb"},
	{"penang", "george town", "pg"},
}

// Matcher scores candidates against jobs using a read-only configuration, so
// a single instance is safe for concurrent use.
type Matcher struct {
	cfg    *Config
	logger *zap.Logger
}

// New creates a Matcher. A nil config falls back to DefaultConfig.
func New(cfg *Config, logger *zap.Logger) *Matcher {
	if cfg == nil {
		if logger != nil {
			logger.Warn("no weights config supplied, using defaults")
		}
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Matcher{cfg: cfg, logger: logger}
}

// Score runs the scoring pipeline for one candidate-job pair: hard
// constraints first (terminal on mismatch), then the six component scores,
// then weighted fusion. Reasons are concatenated in fixed component order;
// gaps carry only the skills-stage entries.
func (m *Matcher) Score(candidate *profile.Candidate, job *catalog.Job) *Result {
	if m.cfg.HasHardConstraint("location") &&
		candidate.Location != "" && job.Location != "" &&
		!strings.EqualFold(candidate.Location, job.Location) {
		return &Result{
			JobID: job.ID,
			Score: 0.0,
			Reasons: []Reason{{
				Feature: "location",
				Weight:  0.0,
				Note:    fmt.Sprintf("Location mismatch: %s vs %s", candidate.Location, job.Location),
			}},
			Gaps: []string{fmt.Sprintf("Location: %s vs %s", candidate.Location, job.Location)},
		}
	}

	skills, skillReasons, gaps := m.scoreSkills(candidate, job)
	projects, projectReasons := m.scoreProjects(candidate, job)
	education, educationReasons := m.scoreEducation(candidate, job)
	experience, experienceReasons := m.scoreExperience(candidate, job)
	domain, domainReasons := m.scoreDomain(candidate, job)
	location, locationReasons := m.scoreLocation(candidate, job)

	w := m.cfg.Weights
	final := clamp01(skills)*w.Skills +
		clamp01(projects)*w.Projects +
		clamp01(education)*w.Education +
		clamp01(experience)*w.Experience +
		clamp01(domain)*w.Domain +
		clamp01(location)*w.Location

	final = clamp01(round4(final))

	reasons := make([]Reason, 0,
		len(skillReasons)+len(projectReasons)+len(educationReasons)+
			len(experienceReasons)+len(domainReasons)+len(locationReasons))
	reasons = append(reasons, skillReasons...)
	reasons = append(reasons, projectReasons...)
	reasons = append(reasons, educationReasons...)
	reasons = append(reasons, experienceReasons...)
	reasons = append(reasons, domainReasons...)
	reasons = append(reasons, locationReasons...)

	m.logger.Debug("scored candidate against job",
		zap.String("job_id", job.ID),
		zap.Float64("score", final),
		zap.Int("reasons", len(reasons)),
		zap.Int("gaps", len(gaps)),
	)

	return &Result{JobID: job.ID, Score: final, Reasons: reasons, Gaps: gaps}
}

// scoreSkills grants full credit per requirement when the candidate's level
// meets the minimum, linear partial credit below it, and nothing for missing
// skills. Nice-to-have skills add a 0.1 bonus each, capped at 1.0 overall.
func (m *Matcher) scoreSkills(candidate *profile.Candidate, job *catalog.Job) (float64, []Reason, []string) {
	var reasons []Reason
	var gaps []string

	levels := candidate.SkillLevels()

	credit := 0.0
	for _, req := range job.Required {
		skill := strings.ToLower(req.Skill)
		level, ok := levels[skill]
		if !ok {
			gaps = append(gaps, fmt.Sprintf("Missing required skill: %s", req.Skill))
			continue
		}

		if req.MinLevel <= 0 || level >= req.MinLevel {
			credit += 1.0
			reasons = append(reasons, Reason{
				Feature: "skills",
				Weight:  1.0,
				Note:    fmt.Sprintf("Required skill '%s' met (level %d >= %d)", req.Skill, level, req.MinLevel),
			})
			continue
		}

		partial := float64(level) / float64(req.MinLevel)
		credit += partial
		reasons = append(reasons, Reason{
			Feature: "skills",
			Weight:  partial,
			Note:    fmt.Sprintf("Required skill '%s' partially met (level %d < %d)", req.Skill, level, req.MinLevel),
		})
		gaps = append(gaps, fmt.Sprintf("Skill '%s' level %d < required %d", req.Skill, level, req.MinLevel))
	}

	score := 0.0
	if len(job.Required) > 0 {
		score = credit / float64(len(job.Required))
	}

	bonus := 0.0
	for _, nice := range job.Nice {
		if _, ok := levels[strings.ToLower(nice)]; ok {
			bonus += 0.1
			reasons = append(reasons, Reason{
				Feature: "skills",
				Weight:  0.1,
				Note:    fmt.Sprintf("Nice-to-have skill '%s' present", nice),
			})
		}
	}

	return math.Min(1.0, score+bonus), reasons, gaps
}

// scoreProjects credits each project description by keyword overlap with the
// job: two or more matches is full credit, exactly one is half credit.
func (m *Matcher) scoreProjects(candidate *profile.Candidate, job *catalog.Job) (float64, []Reason) {
	if len(candidate.Projects) == 0 {
		return 0.0, nil
	}

	keywords := jobKeywords(job)

	credit := 0.0
	aligned := 0
	for _, project := range candidate.Projects {
		matches := countKeywordMatches(project, keywords)
		switch {
		case matches >= 2:
			credit += 1.0
			aligned++
		case matches == 1:
			credit += 0.5
			aligned++
		}
	}

	score := credit / float64(len(candidate.Projects))

	var reasons []Reason
	if aligned > 0 {
		reasons = append(reasons, Reason{
			Feature: "projects",
			Weight:  score,
			Note:    fmt.Sprintf("%d of %d projects align with the job keywords", aligned, len(candidate.Projects)),
		})
	}

	return score, reasons
}

// scoreEducation combines a degree-level score with field relevance per
// entry. Senior job titles need a postgraduate credential for the full
// degree score; otherwise a bachelor's suffices.
func (m *Matcher) scoreEducation(candidate *profile.Candidate, job *catalog.Job) (float64, []Reason) {
	if len(candidate.Education) == 0 {
		return 0.0, nil
	}

	senior := containsAny(strings.ToLower(job.Title), seniorityTerms)
	keywords := jobKeywords(job)

	total := 0.0
	for _, entry := range candidate.Education {
		lower := strings.ToLower(entry)

		postgrad := containsAny(lower, postgraduateTerms)
		bachelor := postgrad || containsAny(lower, bachelorTerms)

		degree := 0.0
		switch {
		case senior && postgrad:
			degree = 0.5
		case senior && bachelor:
			degree = 0.25
		case !senior && bachelor:
			degree = 0.5
		}

		relevance := 0.3*float64(countKeywordMatches(entry, keywords)) +
			0.2*float64(countKeywordMatches(entry, educationDomainTerms))

		total += math.Min(1.0, degree+relevance)
	}

	score := total / float64(len(candidate.Education))

	var reasons []Reason
	if score > 0 {
		reasons = append(reasons, Reason{
			Feature: "education",
			Weight:  score,
			Note:    fmt.Sprintf("%d education entries, average relevance %.2f", len(candidate.Education), score),
		})
	}

	return score, reasons
}

// scoreExperience counts prior roles sharing a role-family keyword with the
// job title and normalizes by a cap of three relevant roles.
func (m *Matcher) scoreExperience(candidate *profile.Candidate, job *catalog.Job) (float64, []Reason) {
	jobTitle := strings.ToLower(job.Title)

	relevant := 0
	for _, role := range candidate.Roles {
		roleTitle := strings.ToLower(role.Title)
		for _, family := range roleFamilies {
			if strings.Contains(roleTitle, family) && strings.Contains(jobTitle, family) {
				relevant++
				break
			}
		}
	}

	score := math.Min(1.0, float64(relevant)/3.0)

	var reasons []Reason
	if relevant > 0 {
		reasons = append(reasons, Reason{
			Feature: "experience",
			Weight:  score,
			Note:    fmt.Sprintf("Found %d relevant roles", relevant),
		})
	}

	return score, reasons
}

// scoreDomain compares departments with a normalized edit-distance ratio.
// Either side missing is neutral.
func (m *Matcher) scoreDomain(candidate *profile.Candidate, job *catalog.Job) (float64, []Reason) {
	if candidate.Dept == "" || job.Dept == "" {
		return 0.5, nil
	}

	similarity := stringSimilarity(strings.ToLower(candidate.Dept), strings.ToLower(job.Dept))

	var reasons []Reason
	if similarity > 0.7 {
		reasons = append(reasons, Reason{
			Feature: "domain",
			Weight:  similarity,
			Note:    fmt.Sprintf("Department match: %s vs %s", candidate.Dept, job.Dept),
		})
	}

	return similarity, reasons
}

// scoreLocation grants full credit on exact match, partial credit when both
// locations resolve to the same synonym city group, and nothing otherwise.
// Either side missing is neutral.
func (m *Matcher) scoreLocation(candidate *profile.Candidate, job *catalog.Job) (float64, []Reason) {
	if candidate.Location == "" || job.Location == "" {
		return 0.5, nil
	}

	if strings.EqualFold(candidate.Location, job.Location) {
		return 1.0, []Reason{{
			Feature: "location",
			Weight:  1.0,
			Note:    fmt.Sprintf("Location match: %s", candidate.Location),
		}}
	}

	candidateCity := cityGroup(candidate.Location)
	jobCity := cityGroup(job.Location)
	if candidateCity >= 0 && candidateCity == jobCity {
		return 0.8, []Reason{{
			Feature: "location",
			Weight:  0.8,
			Note:    fmt.Sprintf("Location partial match: %s vs %s", candidate.Location, job.Location),
		}}
	}

	return 0.0, nil
}

// jobKeywords builds the keyword set used by the projects and education
// components: title tokens longer than three characters, required and
// nice-to-have skill ids, and the fixed generic terms.
func jobKeywords(job *catalog.Job) []string {
	seen := make(map[string]struct{})
	var keywords []string

	add := func(word string) {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			return
		}
		if _, ok := seen[word]; ok {
			return
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
	}

	for _, token := range strings.Fields(job.Title) {
		if len(token) > 3 {
			add(token)
		}
	}
	for _, req := range job.Required {
		add(req.Skill)
	}
	for _, nice := range job.Nice {
		add(nice)
	}
	for _, term := range genericProjectTerms {
		add(term)
	}

	return keywords
}

func countKeywordMatches(text string, keywords []string) int {
	lower := strings.ToLower(text)
	matches := 0
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			matches++
		}
	}
	return matches
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// cityGroup maps a location string onto the synonym table, returning the
// group index or -1.
func cityGroup(location string) int {
	lower := strings.ToLower(location)
	for i, group := range locationSynonyms {
		for _, term := range group {
			if strings.Contains(lower, term) {
				return i
			}
		}
	}
	return -1
}

// stringSimilarity is a normalized edit-distance ratio in [0,1].
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := math.Max(float64(len([]rune(a))), float64(len([]rune(b))))
	if longest == 0 {
		return 1.0
	}
	distance := float64(levenshtein.ComputeDistance(a, b))
	return math.Max(0, 1.0-distance/longest)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
