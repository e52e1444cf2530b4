package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`
	DataDir  string `yaml:"data_dir"`

	// MasterCohort is the partition every successful ingestion is committed
	// to in addition to the submission's target cohort.
	MasterCohort string `yaml:"master_cohort"`
	// Cohorts maps cohort name to its remote store folder key.
	Cohorts map[string]string `yaml:"cohorts"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	GeminiBaseURL    string  `yaml:"gemini_base_url"`
	GeminiAPIKey     string  `yaml:"gemini_api_key"`
	GeminiGenModel   string  `yaml:"gemini_gen_model"`
	GeminiEmbedModel string  `yaml:"gemini_embed_model"`
	GeminiRateLimit  float64 `yaml:"gemini_rate_limit"`

	EmbedDim int `yaml:"embed_dim"`

	AnalyzeWorkers int `yaml:"analyze_workers"`
	ModuleWorkers  int `yaml:"module_workers"`

	MinPageTextChars int `yaml:"min_page_text_chars"`

	DriveCredentialsFile string `yaml:"drive_credentials_file"`

	MetricsPort string `yaml:"metrics_port"`
}

// Load reads the YAML config at path (optional) and applies env overrides
// and defaults on top.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()

	if cfg.MasterCohort == "" {
		return Config{}, fmt.Errorf("master_cohort is required")
	}
	if _, ok := cfg.Cohorts[cfg.MasterCohort]; !ok {
		if cfg.Cohorts == nil {
			cfg.Cohorts = map[string]string{}
		}
		cfg.Cohorts[cfg.MasterCohort] = ""
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = envStr("LOG_LEVEL", c.LogLevel)
	c.DataDir = envStr("DATA_DIR", c.DataDir)
	c.MasterCohort = envStr("MASTER_COHORT", c.MasterCohort)
	c.NATSURL = envStr("NATS_URL", c.NATSURL)
	c.NATSSubject = envStr("NATS_SUBJECT", c.NATSSubject)
	c.GeminiBaseURL = envStr("GEMINI_BASE_URL", c.GeminiBaseURL)
	c.GeminiAPIKey = envStr("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiGenModel = envStr("GEMINI_GEN_MODEL", c.GeminiGenModel)
	c.GeminiEmbedModel = envStr("GEMINI_EMBED_MODEL", c.GeminiEmbedModel)
	c.GeminiRateLimit = envFloat("GEMINI_RATE_LIMIT", c.GeminiRateLimit)
	c.EmbedDim = envInt("EMBED_DIM", c.EmbedDim)
	c.AnalyzeWorkers = envInt("ANALYZE_WORKERS", c.AnalyzeWorkers)
	c.ModuleWorkers = envInt("MODULE_WORKERS", c.ModuleWorkers)
	c.MinPageTextChars = envInt("MIN_PAGE_TEXT_CHARS", c.MinPageTextChars)
	c.DriveCredentialsFile = envStr("DRIVE_CREDENTIALS_FILE", c.DriveCredentialsFile)
	c.MetricsPort = envStr("METRICS_PORT", c.MetricsPort)
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.MasterCohort == "" {
		c.MasterCohort = "Master"
	}
	if c.NATSURL == "" {
		c.NATSURL = "nats://localhost:4222"
	}
	if c.NATSSubject == "" {
		c.NATSSubject = "documents.submitted"
	}
	if c.GeminiBaseURL == "" {
		c.GeminiBaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.GeminiGenModel == "" {
		c.GeminiGenModel = "gemini-2.5-pro"
	}
	if c.GeminiEmbedModel == "" {
		c.GeminiEmbedModel = "text-embedding-004"
	}
	if c.GeminiRateLimit <= 0 {
		c.GeminiRateLimit = 2
	}
	if c.EmbedDim <= 0 {
		c.EmbedDim = 768
	}
	if c.AnalyzeWorkers <= 0 {
		c.AnalyzeWorkers = 10
	}
	if c.ModuleWorkers <= 0 {
		c.ModuleWorkers = 5
	}
	if c.MinPageTextChars <= 0 {
		c.MinPageTextChars = 100
	}
	if c.MetricsPort == "" {
		c.MetricsPort = "9090"
	}
}

func envStr(key, current string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return current
}

func envInt(key string, current int) int {
	v := os.Getenv(key)
	if v == "" {
		return current
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return current
	}
	return n
}

func envFloat(key string, current float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return current
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return current
	}
	return f
}
