package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/catalog"
	"github.com/talentsort/job-matcher/internal/retriever"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the embedding index over the job catalog",
	Run: func(_ *cobra.Command, _ []string) {
		buildIndex()
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

// buildIndex is the offline, non-request-path build of the retrieval
// artifacts.
func buildIndex() {
	ctx := context.Background()
	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	indexPath, metaPath, err := indexPaths(config)
	if err != nil {
		log.Fatal("resolving index artifacts", zap.Error(err))
	}

	jobs, err := catalog.Load(config.Jobs)
	if err != nil {
		log.Fatal("loading job catalog", zap.Error(err))
	}

	log.Info("loaded job catalog", zap.String("path", config.Jobs), zap.Int("jobs", jobs.Len()))

	emb, err := newEmbedder(ctx, config.Embedder, log)
	if err != nil {
		log.Fatal("constructing embedder", zap.Error(err))
	}

	batchSize := 0
	if config.Embedder != nil {
		batchSize = config.Embedder.BatchSize
	}

	ix, err := retriever.BuildJobsIndex(ctx, emb, jobs, nil, batchSize, log)
	if err != nil {
		log.Fatal("building jobs index", zap.Error(err))
	}

	if err := ix.Save(indexPath, metaPath); err != nil {
		log.Fatal("saving index artifacts", zap.Error(err))
	}

	log.Info("index built",
		zap.String("index", indexPath),
		zap.String("meta", metaPath),
		zap.Int("items", ix.Len()),
		zap.Int("dimension", ix.Dim),
		zap.String("model", ix.Model),
	)
}
