package cmd

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/talentsort/job-matcher/internal/embedding"
	"github.com/talentsort/job-matcher/internal/logger"
	"github.com/talentsort/job-matcher/internal/secrets"
)

const (
	app = "job-matcher"
)

// Config is the application configuration, decoded from the config file.
type Config struct {
	Taxonomy string          `mapstructure:"taxonomy"`
	Jobs     string          `mapstructure:"jobs"`
	Weights  string          `mapstructure:"weights"`
	Index    *IndexConfig    `mapstructure:"index"`
	Embedder *EmbedderConfig `mapstructure:"embedder"`
}

// IndexConfig points at the embedding index artifacts. Meta record i must
// describe index vector i.
type IndexConfig struct {
	Path string `mapstructure:"path"`
	Meta string `mapstructure:"meta"`
}

// EmbedderConfig selects and configures the text encoder.
type EmbedderConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKeyFile string `mapstructure:"api-key-file"`
	BatchSize  int    `mapstructure:"batch-size"`
	MaxRetries int    `mapstructure:"max-retries"`
	Dimension  int    `mapstructure:"dimension"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "job-matcher matches candidate resumes to a job catalog with explainable scoring",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is job-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func initConfig() {
	// API keys may live in a local .env during development.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	// We can't proceed if the config file parsed with error.
	if err := viper.ReadInConfig(); err != nil {
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}
	return config, nil
}

func newLogger() *zap.Logger {
	l, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	return l
}

// newEmbedder constructs the configured text encoder once; callers pass it
// by reference into index building and search.
func newEmbedder(ctx context.Context, cfg *EmbedderConfig, l *zap.Logger) (embedding.Embedder, error) {
	if cfg == nil {
		cfg = &EmbedderConfig{}
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	switch provider {
	case "", "local":
		return embedding.NewLocalEmbedder(cfg.Dimension), nil
	case "openai":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "openai api key",
			File: cfg.APIKeyFile,
			Env:  "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		return embedding.NewOpenAIEmbedder(apiKey, cfg.Model, cfg.MaxRetries, l)
	case "gemini":
		apiKey, err := secrets.Load(secrets.Source{
			Name: "gemini api key",
			File: cfg.APIKeyFile,
			Env:  "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		return embedding.NewGeminiEmbedder(ctx, apiKey, cfg.Model, l)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.Provider)
	}
}

func indexPaths(config *Config) (string, string, error) {
	if config == nil || config.Index == nil || config.Index.Path == "" || config.Index.Meta == "" {
		return "", "", fmt.Errorf("index.path and index.meta are required in the configuration")
	}
	return config.Index.Path, config.Index.Meta, nil
}
