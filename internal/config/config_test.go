package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MasterCohort != "Master" {
		t.Errorf("MasterCohort = %q", cfg.MasterCohort)
	}
	if _, ok := cfg.Cohorts["Master"]; !ok {
		t.Error("master cohort missing from the cohort map")
	}
	if cfg.LogLevel != "info" || cfg.DataDir != "./data" {
		t.Errorf("ambient defaults: level=%q dir=%q", cfg.LogLevel, cfg.DataDir)
	}
	if cfg.NATSSubject != "documents.submitted" {
		t.Errorf("NATSSubject = %q", cfg.NATSSubject)
	}
	if cfg.AnalyzeWorkers != 10 || cfg.ModuleWorkers != 5 {
		t.Errorf("worker defaults: analyze=%d module=%d", cfg.AnalyzeWorkers, cfg.ModuleWorkers)
	}
	if cfg.MinPageTextChars != 100 {
		t.Errorf("MinPageTextChars = %d", cfg.MinPageTextChars)
	}
	if cfg.EmbedDim != 768 {
		t.Errorf("EmbedDim = %d", cfg.EmbedDim)
	}
}

func TestLoadFromFile(t *testing.T) {
	raw := `
log_level: debug
master_cohort: FirstYear
cohorts:
  FirstYear: folder-a
  SecondYear: folder-b
nats_url: nats://broker:4222
min_page_text_chars: 40
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MasterCohort != "FirstYear" {
		t.Errorf("MasterCohort = %q", cfg.MasterCohort)
	}
	if cfg.Cohorts["SecondYear"] != "folder-b" {
		t.Errorf("Cohorts = %v", cfg.Cohorts)
	}
	if cfg.NATSURL != "nats://broker:4222" || cfg.LogLevel != "debug" {
		t.Errorf("file values lost: %+v", cfg)
	}
	if cfg.MinPageTextChars != 40 {
		t.Errorf("MinPageTextChars = %d", cfg.MinPageTextChars)
	}
	// Unset fields still get defaults.
	if cfg.GeminiBaseURL != "https://generativelanguage.googleapis.com" {
		t.Errorf("GeminiBaseURL = %q", cfg.GeminiBaseURL)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	raw := "master_cohort: FromFile\nanalyze_workers: 3\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MASTER_COHORT", "FromEnv")
	t.Setenv("ANALYZE_WORKERS", "7")
	t.Setenv("GEMINI_RATE_LIMIT", "5.5")
	t.Setenv("EMBED_DIM", "not-a-number")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MasterCohort != "FromEnv" {
		t.Errorf("MasterCohort = %q, env must win", cfg.MasterCohort)
	}
	if cfg.AnalyzeWorkers != 7 {
		t.Errorf("AnalyzeWorkers = %d, env must win", cfg.AnalyzeWorkers)
	}
	if cfg.GeminiRateLimit != 5.5 {
		t.Errorf("GeminiRateLimit = %v, env must win", cfg.GeminiRateLimit)
	}
	// Malformed numeric env values are ignored, not fatal.
	if cfg.EmbedDim != 768 {
		t.Errorf("EmbedDim = %d", cfg.EmbedDim)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load() must fail for an explicit path that does not exist")
	}
}
