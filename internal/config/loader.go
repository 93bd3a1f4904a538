package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it fills in defaults for anything left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./proofmill.yaml, ~/.proofmill/config.yaml.
// When no file exists, the built-in defaults are returned, so the tool works
// out of the box with just API keys in the environment.
func LoadDefault() (*Config, error) {
	candidates := []string{"proofmill.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".proofmill", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return Default(), nil
}

// Default returns the built-in configuration: the standard six-provider
// setup with API keys sourced from the conventional environment variables.
func Default() *Config {
	cfg := &Config{
		Pipeline: Pipeline{
			Name: "proofmill",
			Roles: map[string]string{
				"primary":    "gpt",
				"lateral":    "grok",
				"explorer":   "gemini",
				"refiner":    "deepseek",
				"checker":    "claude",
				"formalizer": "aristotle",
			},
		},
		Providers: map[string]Provider{
			"gpt": {
				Kind:        "openai",
				Model:       "gpt-4o",
				APIKeyEnv:   "OPENAI_API_KEY",
				Temperature: 0.7,
				MaxTokens:   32768,
				Thinking:    true,
			},
			"grok": {
				Kind:        "openai",
				Model:       "grok-2",
				BaseURL:     "https://api.x.ai/v1",
				APIKeyEnv:   "XAI_API_KEY",
				Temperature: 0.8,
				MaxTokens:   16384,
			},
			"gemini": {
				Kind:        "gemini",
				Model:       "gemini-2.0-flash-thinking-exp",
				APIKeyEnv:   "GOOGLE_API_KEY",
				Temperature: 0.7,
				MaxTokens:   32768,
				Thinking:    true,
			},
			"deepseek": {
				Kind:        "openai",
				Model:       "deepseek-chat",
				BaseURL:     "https://api.deepseek.com/v1",
				APIKeyEnv:   "DEEPSEEK_API_KEY",
				Temperature: 0.6,
				MaxTokens:   16384,
			},
			"claude": {
				Kind:      "anthropic",
				Model:     "claude-sonnet-4-20250514",
				APIKeyEnv: "ANTHROPIC_API_KEY",
				// Lower temperature for rigorous checking.
				Temperature: 0.5,
				MaxTokens:   16384,
				Thinking:    true,
			},
			"aristotle": {
				Kind:        "openai",
				Model:       "aristotle-lean4",
				BaseURL:     "https://api.harmonic.ai/v1",
				APIKeyEnv:   "HARMONIC_API_KEY",
				Temperature: 0.3,
				MaxTokens:   16384,
			},
		},
		Lean: Lean{
			Command:    os.Getenv("LEAN4_PATH"),
			ProjectDir: "./lean_proofs",
		},
	}
	cfg.Lean.Enabled = cfg.Lean.Command != ""
	applyDefaults(cfg)
	return cfg
}

// applyDefaults fills zero-valued policy fields with the standard values.
func applyDefaults(cfg *Config) {
	p := &cfg.Pipeline
	if p.MaxIterations <= 0 {
		p.MaxIterations = 5
	}
	if p.ConfidenceThreshold <= 0 {
		p.ConfidenceThreshold = 0.9
	}
	if p.CallTimeout == "" {
		p.CallTimeout = "120s"
	}
	if cfg.Lean.Timeout == "" {
		cfg.Lean.Timeout = "5m"
	}
	if cfg.Lean.FixRounds <= 0 {
		cfg.Lean.FixRounds = 3
	}
	if cfg.Lean.Command == "" {
		cfg.Lean.Command = "lean"
	}
}
