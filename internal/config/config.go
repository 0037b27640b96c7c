// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config represents the watcher configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	InputDir    string `json:"input_dir,omitempty"`   // Directory watched for incoming PDFs
	OutputDir   string `json:"output_dir,omitempty"`  // Directory receiving extracted text artifacts
	Credentials string `json:"credentials,omitempty"` // Path to Google service account JSON

	// Extraction
	Provider  string   `json:"provider,omitempty" validate:"omitempty,oneof=vision gemini tesseract"` // OCR backend
	Model     string   `json:"model,omitempty"`                                                       // Gemini model name override
	APIKey    string   `json:"api_key,omitempty"`                                                     // Gemini API key
	Languages []string `json:"languages,omitempty"`                                                   // OCR language hints (BCP-47)
	DPI       int      `json:"dpi,omitempty"`                                                         // Rasterization density for the tesseract backend

	// Readiness detection
	PollSeconds   float64 `json:"poll_seconds,omitempty"`   // Interval between stability samples
	QuietSeconds  float64 `json:"quiet_seconds,omitempty"`  // Required unchanged window before a file is ready
	SettleSeconds float64 `json:"settle_seconds,omitempty"` // Hard deadline for a file to become stable

	// Behavior
	Workers        int     `json:"workers,omitempty"`         // Concurrent extraction jobs
	RetryAttempts  int     `json:"retry_attempts,omitempty"`  // Extraction attempts per file (including the first)
	ExtractSeconds float64 `json:"extract_seconds,omitempty"` // Timeout for a single extraction attempt
	GraceSeconds   float64 `json:"grace_seconds,omitempty"`   // Shutdown grace for in-flight jobs
	Collision      string  `json:"collision,omitempty" validate:"omitempty,oneof=overwrite suffix"`
	Verbose        bool    `json:"verbose,omitempty"` // Print detailed per-file summaries
}

// Default returns the built-in configuration the watch command starts from.
// Flags, config file values, and environment variables all override it.
func Default() Config {
	return Config{
		InputDir:       "./input",
		OutputDir:      "./output",
		Provider:       "vision",
		DPI:            200,
		PollSeconds:    1.0,
		QuietSeconds:   2.0,
		SettleSeconds:  600,
		Workers:        2,
		RetryAttempts:  3,
		ExtractSeconds: 120,
		GraceSeconds:   30,
		Collision:      "overwrite",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Validate numeric ranges
	if c.PollSeconds < 0 {
		return fmt.Errorf("config error: 'poll_seconds' must be non-negative")
	}
	if c.QuietSeconds < 0 {
		return fmt.Errorf("config error: 'quiet_seconds' must be non-negative")
	}
	if c.SettleSeconds < 0 {
		return fmt.Errorf("config error: 'settle_seconds' must be non-negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config error: 'workers' must be non-negative")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("config error: 'retry_attempts' must be non-negative")
	}
	if c.DPI < 0 {
		return fmt.Errorf("config error: 'dpi' must be non-negative")
	}

	// The watched directory and the artifact directory must differ, otherwise
	// written .txt artifacts would be picked up as stability noise.
	if c.InputDir != "" && c.OutputDir != "" {
		in, err := filepath.Abs(c.InputDir)
		if err != nil {
			return fmt.Errorf("config error: resolving 'input_dir': %w", err)
		}
		out, err := filepath.Abs(c.OutputDir)
		if err != nil {
			return fmt.Errorf("config error: resolving 'output_dir': %w", err)
		}
		if in == out {
			return fmt.Errorf("config error: 'input_dir' and 'output_dir' must be different directories")
		}
	}

	// Validate the credentials file exists (if specified)
	if c.Credentials != "" {
		if _, err := os.Stat(c.Credentials); os.IsNotExist(err) {
			return fmt.Errorf("config error: credentials file not found: %s", c.Credentials)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.InputDir == "" {
		result.InputDir = defaults.InputDir
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.Credentials == "" {
		result.Credentials = defaults.Credentials
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.Collision == "" {
		result.Collision = defaults.Collision
	}
	if len(result.Languages) == 0 {
		result.Languages = defaults.Languages
	}

	// Numeric fields: use default if zero
	if result.DPI == 0 {
		result.DPI = defaults.DPI
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.RetryAttempts == 0 {
		result.RetryAttempts = defaults.RetryAttempts
	}
	if result.PollSeconds == 0 {
		result.PollSeconds = defaults.PollSeconds
	}
	if result.QuietSeconds == 0 {
		result.QuietSeconds = defaults.QuietSeconds
	}
	if result.SettleSeconds == 0 {
		result.SettleSeconds = defaults.SettleSeconds
	}
	if result.ExtractSeconds == 0 {
		result.ExtractSeconds = defaults.ExtractSeconds
	}
	if result.GraceSeconds == 0 {
		result.GraceSeconds = defaults.GraceSeconds
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// PollInterval returns the stability sampling interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return secondsToDuration(c.PollSeconds)
}

// QuietPeriod returns the required unchanged window as a duration.
func (c *Config) QuietPeriod() time.Duration {
	return secondsToDuration(c.QuietSeconds)
}

// SettleTimeout returns the stability deadline as a duration.
func (c *Config) SettleTimeout() time.Duration {
	return secondsToDuration(c.SettleSeconds)
}

// ExtractTimeout returns the per-attempt extraction timeout as a duration.
func (c *Config) ExtractTimeout() time.Duration {
	return secondsToDuration(c.ExtractSeconds)
}

// ShutdownGrace returns the in-flight drain window as a duration.
func (c *Config) ShutdownGrace() time.Duration {
	return secondsToDuration(c.GraceSeconds)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
