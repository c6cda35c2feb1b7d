// Package taxonomy normalizes raw skill mentions to canonical identifiers
// using a CSV-backed alias table.
package taxonomy

import (
	"encoding/csv"
	"io"
	"os"
	"sort"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/profile"
)

// DefaultLevel is the proficiency assigned to a normalized skill absent
// stronger evidence.
const DefaultLevel = 2

const defaultWeight = 1.0

// Taxonomy maps surface-text aliases to canonical skill ids. It is loaded
// once at startup and read-only afterwards, so concurrent lookups need no
// locking.
type Taxonomy struct {
	aliasToCanonical map[string]string
	categories       map[string]string
	weights          map[string]float64
}

// Load reads the taxonomy CSV (columns: canonical, category, aliases). A
// missing or malformed file degrades to an empty mapping so every lookup
// becomes an identity fallback; the process stays usable.
func Load(path string, logger *zap.Logger) *Taxonomy {
	t := &Taxonomy{
		aliasToCanonical: make(map[string]string),
		categories:       make(map[string]string),
		weights:          make(map[string]float64),
	}

	file, err := os.Open(path)
	if err != nil {
		if logger != nil {
			logger.Warn("taxonomy file not readable, falling back to identity normalization",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return t
	}
	defer file.Close()

	if err := t.parse(file); err != nil {
		if logger != nil {
			logger.Warn("taxonomy file malformed, falling back to identity normalization",
				zap.String("path", path),
				zap.Error(err),
			)
		}
		return &Taxonomy{
			aliasToCanonical: make(map[string]string),
			categories:       make(map[string]string),
			weights:          make(map[string]float64),
		}
	}

	if logger != nil {
		logger.Info("loaded skill taxonomy",
			zap.String("path", path),
			zap.Int("canonical_skills", t.Len()),
		)
	}

	return t
}

func (t *Taxonomy) parse(r io.Reader) error {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return err
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	field := func(record []string, name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		canonical := strings.ToLower(field(record, "canonical"))
		if canonical == "" {
			continue
		}

		aliases := field(record, "aliases")
		aliases = strings.Trim(aliases, `"`)

		// The canonical name is always its own alias.
		t.aliasToCanonical[canonical] = canonical
		for _, alias := range strings.Split(aliases, ",") {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			t.aliasToCanonical[alias] = canonical
		}

		category := field(record, "category")
		if category == "" {
			category = "unknown"
		}
		t.categories[canonical] = category
		t.weights[canonical] = defaultWeight
	}

	return nil
}

// Len reports the number of canonical skills in the table.
func (t *Taxonomy) Len() int {
	return len(t.categories)
}

// Canonical resolves a single skill name to its canonical id. Unknown names
// fall back to their own lower-cased form.
func (t *Taxonomy) Canonical(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := t.aliasToCanonical[lower]; ok {
		return canonical
	}
	return lower
}

// IsKnown reports whether the name resolves through the alias table.
func (t *Taxonomy) IsKnown(name string) bool {
	_, ok := t.aliasToCanonical[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Category returns the category tag of a canonical skill.
func (t *Taxonomy) Category(canonical string) string {
	if category, ok := t.categories[strings.ToLower(canonical)]; ok {
		return category
	}
	return "unknown"
}

// Weight returns the default weight of a canonical skill.
func (t *Taxonomy) Weight(canonical string) float64 {
	if w, ok := t.weights[strings.ToLower(canonical)]; ok {
		return w
	}
	return defaultWeight
}

// AllCanonical returns every canonical skill id, sorted.
func (t *Taxonomy) AllCanonical() []string {
	out := make([]string, 0, len(t.categories))
	for canonical := range t.categories {
		out = append(out, canonical)
	}
	sort.Strings(out)
	return out
}

// Normalize resolves a list of raw skill strings into skill mentions. Blank
// entries are skipped, duplicates collapse onto the first occurrence's
// surface text, and unknown skills keep their lower-cased form as canonical.
func (t *Taxonomy) Normalize(raw []string) []profile.Skill {
	out := make([]profile.Skill, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, name := range raw {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			continue
		}

		canonical := t.Canonical(trimmed)
		if _, ok := seen[canonical]; ok {
			continue
		}
		seen[canonical] = struct{}{}

		out = append(out, profile.Skill{
			Name:      trimmed,
			Canonical: canonical,
			Level:     DefaultLevel,
		})
	}

	return out
}

// Extract scans free text for known aliases and returns the sorted,
// de-duplicated canonical ids found. Aliases of one or two characters only
// match on word boundaries so tokens like "r" do not fire inside "are".
func (t *Taxonomy) Extract(text string) []string {
	lower := strings.ToLower(text)
	found := make(map[string]struct{})

	for alias, canonical := range t.aliasToCanonical {
		if alias == "" {
			continue
		}
		if len(alias) <= 2 {
			if containsWord(lower, alias) {
				found[canonical] = struct{}{}
			}
			continue
		}
		if strings.Contains(lower, alias) {
			found[canonical] = struct{}{}
		}
	}

	out := make([]string, 0, len(found))
	for canonical := range found {
		out = append(out, canonical)
	}
	sort.Strings(out)
	return out
}

// containsWord reports whether word occurs in text delimited by non-word
// runes on both sides.
func containsWord(text, word string) bool {
	for start := 0; ; {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			return false
		}
		idx += start

		before := idx == 0 || isBoundary(rune(text[idx-1]))
		end := idx + len(word)
		after := end >= len(text) || isBoundary(rune(text[end]))

		if before && after {
			return true
		}
		start = idx + 1
	}
}

func isBoundary(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}
