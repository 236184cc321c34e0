package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/studypilot-backend/internal/logger"
	"github.com/yungbote/studypilot-backend/internal/utils"
)

// Engine tuning knobs. The materiality threshold and review spacing were
// reverse-engineered from observed behavior rather than documented constants,
// so all of them stay configurable: defaults here, optional YAML file, env on
// top of both.

type StyleParams struct {
	ReviewFraction float64 `yaml:"review_fraction"`
	MaxItemMinutes int     `yaml:"max_item_minutes"`
}

type ReconcilerConfig struct {
	MaterialityThreshold float64 `yaml:"materiality_threshold"`
}

type PlannerConfig struct {
	MinItemMinutes           int                    `yaml:"min_item_minutes"`
	OverflowToleranceMinutes int                    `yaml:"overflow_tolerance_minutes"`
	MaxFallbackSelection     int                    `yaml:"max_fallback_selection"`
	Styles                   map[string]StyleParams `yaml:"styles"`
}

type ProgressConfig struct {
	OnTrackTolerance float64 `yaml:"on_track_tolerance"`
}

type Config struct {
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Planner    PlannerConfig    `yaml:"planner"`
	Progress   ProgressConfig   `yaml:"progress"`
}

func Default() *Config {
	return &Config{
		Reconciler: ReconcilerConfig{
			MaterialityThreshold: 5.0,
		},
		Planner: PlannerConfig{
			MinItemMinutes:           15,
			OverflowToleranceMinutes: 0,
			MaxFallbackSelection:     10,
			Styles: map[string]StyleParams{
				"intensive": {ReviewFraction: 0.10, MaxItemMinutes: 90},
				"balanced":  {ReviewFraction: 0.20, MaxItemMinutes: 60},
				"relaxed":   {ReviewFraction: 0.30, MaxItemMinutes: 45},
			},
		},
		Progress: ProgressConfig{
			OnTrackTolerance: 0.05,
		},
	}
}

// Load builds the config from defaults, then the YAML file at path (if it
// exists), then environment variables.
func Load(path string, log *logger.Logger) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
			if log != nil {
				log.Info("Loaded engine config file", "path", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg.Reconciler.MaterialityThreshold = utils.GetEnvAsFloat("RECONCILER_MATERIALITY_THRESHOLD", cfg.Reconciler.MaterialityThreshold, log)
	cfg.Planner.MinItemMinutes = utils.GetEnvAsInt("PLANNER_MIN_ITEM_MINUTES", cfg.Planner.MinItemMinutes, log)
	cfg.Planner.OverflowToleranceMinutes = utils.GetEnvAsInt("PLANNER_OVERFLOW_TOLERANCE_MINUTES", cfg.Planner.OverflowToleranceMinutes, log)
	cfg.Planner.MaxFallbackSelection = utils.GetEnvAsInt("PLANNER_MAX_FALLBACK_SELECTION", cfg.Planner.MaxFallbackSelection, log)
	cfg.Progress.OnTrackTolerance = utils.GetEnvAsFloat("PROGRESS_ON_TRACK_TOLERANCE", cfg.Progress.OnTrackTolerance, log)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Reconciler.MaterialityThreshold < 0 {
		return fmt.Errorf("reconciler.materiality_threshold must be >= 0, got %v", c.Reconciler.MaterialityThreshold)
	}
	if c.Planner.MinItemMinutes <= 0 {
		return fmt.Errorf("planner.min_item_minutes must be > 0, got %d", c.Planner.MinItemMinutes)
	}
	if c.Planner.OverflowToleranceMinutes < 0 {
		return fmt.Errorf("planner.overflow_tolerance_minutes must be >= 0, got %d", c.Planner.OverflowToleranceMinutes)
	}
	if c.Planner.MaxFallbackSelection <= 0 {
		return fmt.Errorf("planner.max_fallback_selection must be > 0, got %d", c.Planner.MaxFallbackSelection)
	}
	if len(c.Planner.Styles) == 0 {
		return fmt.Errorf("planner.styles must not be empty")
	}
	for name, style := range c.Planner.Styles {
		if style.ReviewFraction < 0 || style.ReviewFraction >= 1 {
			return fmt.Errorf("planner.styles.%s.review_fraction must be in [0,1), got %v", name, style.ReviewFraction)
		}
		if style.MaxItemMinutes < c.Planner.MinItemMinutes {
			return fmt.Errorf("planner.styles.%s.max_item_minutes must be >= min_item_minutes, got %d", name, style.MaxItemMinutes)
		}
		// Item splitting assumes the cap is a whole number of granules.
		if style.MaxItemMinutes%c.Planner.MinItemMinutes != 0 {
			return fmt.Errorf("planner.styles.%s.max_item_minutes must be a multiple of min_item_minutes", name)
		}
	}
	if c.Progress.OnTrackTolerance < 0 || c.Progress.OnTrackTolerance > 1 {
		return fmt.Errorf("progress.on_track_tolerance must be in [0,1], got %v", c.Progress.OnTrackTolerance)
	}
	return nil
}

// Style returns the parameters for a study style, or false for unknown styles.
func (c *Config) Style(name string) (StyleParams, bool) {
	s, ok := c.Planner.Styles[name]
	return s, ok
}
