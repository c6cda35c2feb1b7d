package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/logger"
	"github.com/talentsort/job-matcher/internal/retriever"
	"github.com/talentsort/job-matcher/internal/taxonomy"
)

// maxResumeLogLen caps how much resume text ends up in the logs.
const maxResumeLogLen = 200

var suggestCmd = &cobra.Command{
	Use:   "suggest",
	Short: "Suggest jobs for a free-text resume via embedding retrieval",
	Run: func(cmd *cobra.Command, _ []string) {
		suggest(cmd)
	},
}

func init() {
	rootCmd.AddCommand(suggestCmd)

	suggestCmd.Flags().StringP("resume-file", "r", "", "path to a plain-text resume")
	suggestCmd.Flags().StringP("text", "t", "", "resume text passed inline")
	suggestCmd.Flags().IntP("top", "k", 5, "number of suggestions to return")
}

func suggest(cmd *cobra.Command) {
	ctx := context.Background()
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	resumeText, err := resolveResumeText(cmd)
	if err != nil {
		log.Fatal("reading resume text", zap.Error(err))
	}

	log.Debug("resolved resume text",
		zap.Int("chars", len(resumeText)),
		zap.String("preview", logger.TruncateForLog(resumeText, maxResumeLogLen)),
	)

	topK, _ := cmd.Flags().GetInt("top")

	indexPath, metaPath, err := indexPaths(config)
	if err != nil {
		log.Fatal("resolving index artifacts", zap.Error(err))
	}

	tax := taxonomy.Load(config.Taxonomy, log)
	skills := tax.Extract(resumeText)

	log.Info("extracted skills from resume", zap.Int("count", len(skills)), zap.Strings("skills", skills))

	emb, err := newEmbedder(ctx, config.Embedder, log)
	if err != nil {
		log.Fatal("constructing embedder", zap.Error(err))
	}

	suggestions, err := retriever.Suggest(ctx, emb, indexPath, metaPath, resumeText, skills, topK, log)
	if err != nil {
		log.Fatal("retrieving suggestions", zap.Error(err))
	}

	out, err := json.MarshalIndent(suggestions, "", "  ")
	if err != nil {
		log.Fatal("encoding suggestions", zap.Error(err))
	}

	fmt.Println(string(out))
}

func resolveResumeText(cmd *cobra.Command) (string, error) {
	inline, _ := cmd.Flags().GetString("text")
	if strings.TrimSpace(inline) != "" {
		return inline, nil
	}

	path, _ := cmd.Flags().GetString("resume-file")
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("either --text or --resume-file is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading resume file %q: %w", path, err)
	}

	return string(data), nil
}
