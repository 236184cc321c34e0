package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reconciler.MaterialityThreshold != 5.0 {
		t.Fatalf("materiality threshold = %v, want default 5.0", cfg.Reconciler.MaterialityThreshold)
	}
	if cfg.Planner.MinItemMinutes != 15 {
		t.Fatalf("min item minutes = %d, want default 15", cfg.Planner.MinItemMinutes)
	}
}

func TestLoadAppliesYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.yaml")
	raw := []byte(`
reconciler:
  materiality_threshold: 7.5
planner:
  styles:
    balanced:
      review_fraction: 0.25
      max_item_minutes: 75
progress:
  on_track_tolerance: 0.1
`)
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reconciler.MaterialityThreshold != 7.5 {
		t.Fatalf("materiality threshold = %v, want 7.5", cfg.Reconciler.MaterialityThreshold)
	}
	if cfg.Progress.OnTrackTolerance != 0.1 {
		t.Fatalf("on track tolerance = %v, want 0.1", cfg.Progress.OnTrackTolerance)
	}
	style, ok := cfg.Style("balanced")
	if !ok || style.ReviewFraction != 0.25 || style.MaxItemMinutes != 75 {
		t.Fatalf("balanced style = %+v", style)
	}
	// Styles not mentioned in the file keep their defaults.
	if style, ok := cfg.Style("intensive"); !ok || style.MaxItemMinutes != 90 {
		t.Fatalf("intensive style lost: %+v", style)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("RECONCILER_MATERIALITY_THRESHOLD", "9")
	t.Setenv("PLANNER_MAX_FALLBACK_SELECTION", "3")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Reconciler.MaterialityThreshold != 9 {
		t.Fatalf("materiality threshold = %v, want 9", cfg.Reconciler.MaterialityThreshold)
	}
	if cfg.Planner.MaxFallbackSelection != 3 {
		t.Fatalf("max fallback selection = %d, want 3", cfg.Planner.MaxFallbackSelection)
	}
}

func TestValidateRejectsBadStyles(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name: "cap_not_multiple_of_granularity",
			mutate: func(c *Config) {
				c.Planner.Styles["balanced"] = StyleParams{ReviewFraction: 0.2, MaxItemMinutes: 50}
			},
		},
		{
			name: "review_fraction_out_of_range",
			mutate: func(c *Config) {
				c.Planner.Styles["balanced"] = StyleParams{ReviewFraction: 1.0, MaxItemMinutes: 60}
			},
		},
		{
			name: "cap_below_granularity",
			mutate: func(c *Config) {
				c.Planner.Styles["balanced"] = StyleParams{ReviewFraction: 0.2, MaxItemMinutes: 10}
			},
		},
		{
			name: "negative_threshold",
			mutate: func(c *Config) {
				c.Reconciler.MaterialityThreshold = -1
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
