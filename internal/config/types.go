package config

// Config is the top-level configuration structure parsed from proofmill YAML.
type Config struct {
	Pipeline  Pipeline            `yaml:"pipeline"`
	Providers map[string]Provider `yaml:"providers"`
	Lean      Lean                `yaml:"lean"`
}

// Pipeline holds the solve-loop policy and role wiring.
type Pipeline struct {
	Name                string `yaml:"name"`
	MaxIterations       int    `yaml:"max_iterations"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// CallTimeout is the per-call deadline for any model invocation.
	CallTimeout string `yaml:"call_timeout"`
	// Roles maps a pipeline role (primary, lateral, explorer, refiner,
	// checker, formalizer) to a provider key. Unmapped roles are disabled.
	Roles map[string]string `yaml:"roles"`
	// PromptDir optionally overrides the embedded prompt templates.
	PromptDir string `yaml:"prompt_dir"`
}

// Provider configures one external reasoning service.
type Provider struct {
	Kind        string  `yaml:"kind"` // "openai", "gemini", "anthropic", "static"
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Thinking    bool    `yaml:"thinking"`
}

// Lean configures the formal verification path.
type Lean struct {
	Enabled    bool   `yaml:"enabled"`
	Command    string `yaml:"command"`
	ProjectDir string `yaml:"project_dir"`
	Timeout    string `yaml:"timeout"`
	// FixRounds bounds the compile-error fix loop inside one verification.
	FixRounds int `yaml:"fix_rounds"`
}
