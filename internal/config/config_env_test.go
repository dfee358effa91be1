package config

import (
	"os"
	"path/filepath"
	"testing"

	trendpkg "stonks-api/pkg/trend"
)

// Test_hydrateSections_withEnvAndSectionFiles verifies env expansion and
// per-section hydration without going through go-zero conf.Load.
func Test_hydrateSections_withEnvAndSectionFiles(t *testing.T) {
	dir := t.TempDir()

	trendYAML := []byte(`
weights:
  search_trend: 0.5
  micro_blog: 0.5
sources:
  search:
    type: search_trend
    base_url: ${SEARCH_BASE}
    min_interval: ${SEARCH_SPACING}
`)
	if err := os.WriteFile(filepath.Join(dir, "trend.yaml"), trendYAML, 0o600); err != nil {
		t.Fatalf("write trend.yaml: %v", err)
	}
	marketYAML := []byte(`
instruments:
  - symbol: DOGE
    price: 0.1
    ceiling: 1
`)
	if err := os.WriteFile(filepath.Join(dir, "market.yaml"), marketYAML, 0o600); err != nil {
		t.Fatalf("write market.yaml: %v", err)
	}

	t.Setenv("SEARCH_BASE", "https://trends.local/api")
	t.Setenv("SEARCH_SPACING", "250ms")

	cfg := validConfig()
	cfg.baseDir = dir
	cfg.Trend.File = "trend.yaml"
	cfg.Market.File = "market.yaml"
	if err := cfg.hydrateSections(); err != nil {
		t.Fatalf("hydrateSections: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Trend.Value == nil {
		t.Fatalf("Trend config not hydrated")
	}
	if cfg.Trend.File != filepath.Join(dir, "trend.yaml") {
		t.Fatalf("Trend.File not resolved, got %q", cfg.Trend.File)
	}
	src := cfg.Trend.Value.Sources["search"]
	if src == nil || src.BaseURL != "https://trends.local/api" {
		t.Fatalf("search source not expanded: %+v", src)
	}
	if src.MinInterval.String() != "250ms" {
		t.Fatalf("min_interval not parsed, got %s", src.MinInterval)
	}
	if w := cfg.Trend.Value.Weights[trendpkg.KindSearchTrend]; w != 0.5 {
		t.Fatalf("weights not loaded, got %v", w)
	}

	if cfg.Market.Value == nil {
		t.Fatalf("Market config not hydrated")
	}
	if got := cfg.Market.Value.Params().PriceFloor; got != 0.01 {
		t.Fatalf("price floor default not applied, got %v", got)
	}
}

func Test_hydrateSections_missingFile(t *testing.T) {
	cfg := validConfig()
	cfg.baseDir = t.TempDir()
	cfg.Market.File = "absent.yaml"
	if err := cfg.hydrateSections(); err == nil {
		t.Fatalf("expected error for missing market section")
	}
}
