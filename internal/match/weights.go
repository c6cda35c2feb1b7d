package match

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// weightSumTolerance bounds how far the configured weights may drift from
// summing to 1.0 before a warning is logged.
const weightSumTolerance = 1e-6

// Weights holds the per-component fusion weights.
type Weights struct {
	Skills     float64 `mapstructure:"skills" validate:"gte=0"`
	Projects   float64 `mapstructure:"projects" validate:"gte=0"`
	Education  float64 `mapstructure:"education" validate:"gte=0"`
	Experience float64 `mapstructure:"experience" validate:"gte=0"`
	Domain     float64 `mapstructure:"domain" validate:"gte=0"`
	Location   float64 `mapstructure:"location" validate:"gte=0"`
}

// Sum returns the total of all component weights.
func (w Weights) Sum() float64 {
	return w.Skills + w.Projects + w.Education + w.Experience + w.Domain + w.Location
}

// Thresholds carries the scoring dimensions treated as hard constraints.
type Thresholds struct {
	HardConstraints []string `mapstructure:"hard_constraints" validate:"dive,oneof=location"`
}

// Config is the validated weights configuration passed by reference into the
// Matcher.
type Config struct {
	Weights    Weights    `mapstructure:"weights"`
	Thresholds Thresholds `mapstructure:"thresholds"`
}

// HasHardConstraint reports whether the given dimension is configured as a
// hard constraint.
func (c *Config) HasHardConstraint(name string) bool {
	for _, constraint := range c.Thresholds.HardConstraints {
		if constraint == name {
			return true
		}
	}
	return false
}

// DefaultConfig returns the documented fallback weight set used when no
// configuration file is available.
func DefaultConfig() *Config {
	return &Config{
		Weights: Weights{
			Skills:     0.40,
			Projects:   0.15,
			Education:  0.10,
			Experience: 0.20,
			Domain:     0.10,
			Location:   0.05,
		},
	}
}

// LoadConfig reads the weights YAML file. A missing file falls back to
// DefaultConfig with a warning instead of failing; a present but invalid
// file is an error, since silently scoring with wrong weights is worse than
// stopping.
func LoadConfig(path string, logger *zap.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if logger != nil {
				logger.Warn("weights config not found, using defaults", zap.String("path", path))
			}
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading weights config %q: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing weights config %q: %w", path, err)
	}

	cfg := &Config{}
	if err := mapstructure.Decode(raw, cfg); err != nil {
		return nil, fmt.Errorf("decoding weights config %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("weights config %q: %w", path, err)
	}

	if sum := cfg.Weights.Sum(); math.Abs(sum-1.0) > weightSumTolerance && logger != nil {
		logger.Warn("component weights do not sum to 1.0, fused scores are clamped to [0,1]",
			zap.Float64("sum", sum),
		)
	}

	return cfg, nil
}

// Validate checks the configuration structure: non-negative weights and
// recognized hard-constraint names only.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("weights config is required")
	}
	return validator.New().Struct(cfg)
}
