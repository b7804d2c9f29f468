package config

import (
	"time"

	"github.com/ltnam/categorize/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	API        APIConfig        `yaml:"api"`
	Processing ProcessingConfig `yaml:"processing"`
	Logging    LoggingConfig    `yaml:"logging"`
	Server     ServerConfig     `yaml:"server"`
	Database   postgres.Config  `yaml:"database"`
	Paths      PathsConfig      `yaml:"paths"`
	Categories []string         `yaml:"categories"` // empty = built-in taxonomy
}

// APIConfig holds classification service settings.
type APIConfig struct {
	Model      string  `yaml:"model"`
	MaxTokens  int     `yaml:"max_tokens"`
	BaseDelay  float64 `yaml:"base_delay"` // seconds between call starts
	MaxRetries int     `yaml:"max_retries"`
	Timeout    int     `yaml:"timeout"` // seconds

	// Key comes from the environment, never from the config file.
	Key string `yaml:"-"`
}

// BaseDelayDuration returns the minimum spacing between calls.
func (c APIConfig) BaseDelayDuration() time.Duration {
	return time.Duration(c.BaseDelay * float64(time.Second))
}

// TimeoutDuration returns the per-call HTTP timeout.
func (c APIConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// ProcessingConfig holds pipeline settings.
type ProcessingConfig struct {
	ProgressSaveInterval int `yaml:"progress_save_interval"`
	FuzzyMatchThreshold  int `yaml:"fuzzy_match_threshold"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// ServerConfig holds the health/metrics HTTP server settings.
// Port 0 disables the server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// PathsConfig holds the data directory layout.
type PathsConfig struct {
	RawDir       string `yaml:"raw_dir"`
	InterimDir   string `yaml:"interim_dir"`
	ProcessedDir string `yaml:"processed_dir"`
}
