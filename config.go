package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bodul/recite/internal/puzzle"
)

// Config holds every runtime setting. Values come from defaults, then the
// optional YAML file, then environment variables.
type Config struct {
	Port       string          `yaml:"port"`
	LogLevel   string          `yaml:"log_level"`
	LogFormat  string          `yaml:"log_format"` // "console" or "json"
	CorpusPath string          `yaml:"corpus_path"`
	CachePath  string          `yaml:"cache_path"`
	Grid       GridConfig      `yaml:"grid"`
	Gemini     GeminiConfig    `yaml:"gemini"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`
}

// GridConfig tunes puzzle generation.
type GridConfig struct {
	Size        int    `yaml:"size"`
	Distractors string `yaml:"distractors"`
	MaxSteps    int    `yaml:"max_steps"`
	MaxAttempts int    `yaml:"max_attempts"`
	Seed        int64  `yaml:"seed"` // 0 picks a time-based seed
}

// GeminiConfig selects the remote segmenter. An API key uses the Gemini API;
// otherwise a project ID uses Vertex AI. Neither disables it.
type GeminiConfig struct {
	ProjectID string        `yaml:"project_id"`
	Region    string        `yaml:"region"`
	APIKey    string        `yaml:"api_key"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Enabled reports whether enough is configured to reach Gemini.
func (g GeminiConfig) Enabled() bool { return g.APIKey != "" || g.ProjectID != "" }

// RateLimitConfig sets per-IP budgets.
type RateLimitConfig struct {
	Sessions int `yaml:"sessions_per_minute"`
	Taps     int `yaml:"taps_per_second"`
}

func defaultConfig() *Config {
	return &Config{
		Port:      "8080",
		LogLevel:  "info",
		LogFormat: "console",
		Grid: GridConfig{
			Size:        puzzle.DefaultSize,
			Distractors: puzzle.DefaultDistractors,
		},
		Gemini: GeminiConfig{
			Region:  defaultRegion,
			Model:   defaultModel,
			Timeout: 20 * time.Second,
		},
		RateLimit: RateLimitConfig{Sessions: 10, Taps: 30},
	}
}

// LoadConfig builds the configuration. path may be empty.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.CorpusPath, "CORPUS_PATH")
	setString(&c.CachePath, "CACHE_PATH")
	setString(&c.Gemini.ProjectID, "GCP_PROJECT_ID")
	setString(&c.Gemini.Region, "GCP_REGION")
	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.Model, "GEMINI_MODEL")

	if v := os.Getenv("GEMINI_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GEMINI_TIMEOUT: %w", err)
		}
		c.Gemini.Timeout = d
	}
	if v := os.Getenv("GRID_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("GRID_SEED: %w", err)
		}
		c.Grid.Seed = n
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// puzzleOptions converts the grid section for the generator.
func (c *Config) puzzleOptions() puzzle.Options {
	return puzzle.Options{
		Size:        c.Grid.Size,
		Distractors: c.Grid.Distractors,
		MaxSteps:    c.Grid.MaxSteps,
		MaxAttempts: c.Grid.MaxAttempts,
	}
}

func (c *Config) seed() int64 {
	if c.Grid.Seed != 0 {
		return c.Grid.Seed
	}
	return time.Now().UnixNano()
}
