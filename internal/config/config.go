package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Sources       []Source      `yaml:"sources"`
	Collector     Collector     `yaml:"collector"`
	Summarization Summarization `yaml:"summarization"`
	Output        Output        `yaml:"output"`
	Logging       Logging       `yaml:"logging"`
}

// Source declares one feed to collect. Enrichment "html" turns on full-page
// text extraction for that source; anything else keeps feed summaries only.
type Source struct {
	Name             string `yaml:"name"`
	FeedURL          string `yaml:"feed_url"`
	SiteDomain       string `yaml:"site_domain"`
	Enrichment       string `yaml:"enrichment"`
	FrequencyMinutes int    `yaml:"frequency_minutes"`
}

type Collector struct {
	IntervalMinutes int    `yaml:"interval_minutes"`
	TimeoutSeconds  int    `yaml:"timeout_seconds"`
	PaceSeconds     int    `yaml:"pace_seconds"`
	UserAgent       string `yaml:"user_agent"`
}

type Summarization struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxWords    int    `yaml:"max_words"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for newsmesh.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "newsmesh")
}

// DataDir returns the XDG data directory for newsmesh.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "newsmesh")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/newsmesh/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'newsmesh init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Collector: Collector{
			IntervalMinutes: 10,
			TimeoutSeconds:  30,
			PaceSeconds:     1,
		},
		Summarization: Summarization{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxWords:    120,
		},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// CollectInterval is the scheduler period between collection cycles.
func (c *Config) CollectInterval() time.Duration {
	return time.Duration(c.Collector.IntervalMinutes) * time.Minute
}

// FetchTimeout is the per-request HTTP timeout for feed and page fetches.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Collector.TimeoutSeconds) * time.Second
}

// Pace is the minimum delay between two sources in a cycle.
func (c *Config) Pace() time.Duration {
	return time.Duration(c.Collector.PaceSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
