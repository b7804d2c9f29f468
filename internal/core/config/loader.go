package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file. A missing file is not an
// error: the tool runs on defaults plus environment variables, the same
// way it runs with an empty file.
func Load(path string) (*AppConfig, error) {
	var cfg AppConfig

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err == nil {
		// Expand environment variables in the YAML content
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.API.Model == "" {
		cfg.API.Model = "claude-sonnet-4-20250514"
	}
	if cfg.API.MaxTokens == 0 {
		cfg.API.MaxTokens = 100
	}
	if cfg.API.BaseDelay == 0 {
		cfg.API.BaseDelay = 1.5
	}
	if cfg.API.MaxRetries == 0 {
		cfg.API.MaxRetries = 5
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30
	}
	if cfg.Processing.ProgressSaveInterval == 0 {
		cfg.Processing.ProgressSaveInterval = 50
	}
	if cfg.Processing.FuzzyMatchThreshold == 0 {
		cfg.Processing.FuzzyMatchThreshold = 80
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Paths.RawDir == "" {
		cfg.Paths.RawDir = "data/raw"
	}
	if cfg.Paths.InterimDir == "" {
		cfg.Paths.InterimDir = "data/interim"
	}
	if cfg.Paths.ProcessedDir == "" {
		cfg.Paths.ProcessedDir = "data/processed"
	}
}

func applyEnv(cfg *AppConfig) {
	cfg.API.Key = os.Getenv("ANTHROPIC_API_KEY")
	if model := os.Getenv("API_MODEL"); model != "" {
		cfg.API.Model = model
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}

// Validate checks settings that would otherwise fail deep inside a run.
func (cfg *AppConfig) Validate() error {
	if cfg.API.Key == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY not found in environment")
	}
	if cfg.API.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if cfg.API.BaseDelay < 0 {
		return fmt.Errorf("base_delay must not be negative")
	}
	if cfg.Processing.ProgressSaveInterval < 1 {
		return fmt.Errorf("progress_save_interval must be at least 1")
	}
	if t := cfg.Processing.FuzzyMatchThreshold; t < 0 || t > 100 {
		return fmt.Errorf("fuzzy_match_threshold must be between 0 and 100")
	}
	return nil
}
