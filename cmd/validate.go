package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/catalog"
	"github.com/talentsort/job-matcher/internal/taxonomy"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that every catalog skill resolves against the taxonomy",
	RunE: func(_ *cobra.Command, _ []string) error {
		return validateCatalog()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// validateCatalog reports required and nice-to-have skills that do not
// resolve through the taxonomy alias table. Those would silently become
// identity canonicals during matching.
func validateCatalog() error {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		return fmt.Errorf("getting a config: %w", err)
	}

	tax := taxonomy.Load(config.Taxonomy, log)
	if tax.Len() == 0 {
		return fmt.Errorf("taxonomy at %q is empty, nothing to validate against", config.Taxonomy)
	}

	jobs, err := catalog.Load(config.Jobs)
	if err != nil {
		return fmt.Errorf("loading job catalog: %w", err)
	}

	unknown := 0
	for _, job := range jobs.Items {
		for _, req := range job.Required {
			if !tax.IsKnown(req.Skill) {
				unknown++
				log.Warn("unknown required skill",
					zap.String("job_id", job.ID),
					zap.String("skill", req.Skill),
				)
			}
		}
		for _, nice := range job.Nice {
			if !tax.IsKnown(nice) {
				unknown++
				log.Warn("unknown nice-to-have skill",
					zap.String("job_id", job.ID),
					zap.String("skill", nice),
				)
			}
		}
	}

	if unknown > 0 {
		return fmt.Errorf("%d catalog skills do not resolve against the taxonomy", unknown)
	}

	log.Info("catalog validated against taxonomy",
		zap.Int("jobs", jobs.Len()),
		zap.Int("canonical_skills", tax.Len()),
	)
	return nil
}
