package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/catalog"
	"github.com/talentsort/job-matcher/internal/match"
	"github.com/talentsort/job-matcher/internal/profile"
	"github.com/talentsort/job-matcher/internal/taxonomy"
)

const (
	PromptGapsReport = "Show gaps report"
	PromptDumpToFile = "Dump results to file"
	PromptExit       = "Exit"
)

var errExit = errors.New("exit requested")

var matchPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptGapsReport, PromptDumpToFile, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score a structured candidate profile against every job in the catalog",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("candidate", "c", "", "path to a candidate profile JSON file")
	matchCmd.Flags().IntP("top", "k", 10, "number of ranked results to keep")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "print results and exit without the interactive prompt")

	matchCmd.MarkFlagRequired("candidate")
}

func runMatch(cmd *cobra.Command) {
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	candidatePath, _ := cmd.Flags().GetString("candidate")
	topK, _ := cmd.Flags().GetInt("top")

	candidate, err := profile.FromFile(candidatePath)
	if err != nil {
		log.Fatal("loading candidate profile", zap.Error(err))
	}
	candidate.EnsureID()

	// Re-normalize the profile's skill surface text so alias spellings from
	// upstream parsers land on canonical ids.
	tax := taxonomy.Load(config.Taxonomy, log)
	normalizeCandidateSkills(candidate, tax)

	jobs, err := catalog.Load(config.Jobs)
	if err != nil {
		log.Fatal("loading job catalog", zap.Error(err))
	}

	weights, err := match.LoadConfig(config.Weights, log)
	if err != nil {
		log.Fatal("loading weights config", zap.Error(err))
	}

	matcher := match.New(weights, log)
	results := matcher.Rank(candidate, jobs, topK)

	log.Info("candidate scored against catalog",
		zap.String("candidate_id", candidate.ID),
		zap.Int("jobs", jobs.Len()),
		zap.Int("results", len(results)),
	)

	printResults(results)

	auto, _ := cmd.Flags().GetBool("auto-approve")
	if auto {
		return
	}

	for {
		_, action, err := matchPrompt.Run()
		if err != nil {
			log.Fatal("exiting", zap.Error(err))
		}

		if err := handleMatchAction(action, results, log); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			log.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleMatchAction(action string, results []*match.Result, log *zap.Logger) error {
	switch action {
	case PromptGapsReport:
		for _, result := range results {
			if len(result.Gaps) == 0 {
				continue
			}
			fmt.Printf("%s (score %.4f):\n", result.JobID, result.Score)
			for _, gap := range result.Gaps {
				fmt.Printf("  - %s\n", gap)
			}
		}
		return nil
	case PromptDumpToFile:
		filename, err := dumpResults(results)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		log.Info("dumped results to file", zap.String("filename", filename))
		return nil
	case PromptExit:
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func normalizeCandidateSkills(candidate *profile.Candidate, tax *taxonomy.Taxonomy) {
	for i, skill := range candidate.Skills {
		name := skill.Name
		if name == "" {
			name = skill.Canonical
		}
		candidate.Skills[i].Canonical = tax.Canonical(name)
		if candidate.Skills[i].Level == 0 {
			candidate.Skills[i].Level = taxonomy.DefaultLevel
		}
	}
}

func printResults(results []*match.Result) {
	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return
	}
	fmt.Println(string(out))
}

func dumpResults(results []*match.Result) (string, error) {
	file, err := os.CreateTemp("", "match_results_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return "", err
	}
	return file.Name(), nil
}
