package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := Default()
	if errs := Validate(cfg); len(errs) != 0 {
		t.Fatalf("default config invalid: %v", errs)
	}
	if cfg.Pipeline.MaxIterations != 5 {
		t.Errorf("max_iterations = %d, want 5", cfg.Pipeline.MaxIterations)
	}
	if cfg.Pipeline.ConfidenceThreshold != 0.9 {
		t.Errorf("confidence_threshold = %g, want 0.9", cfg.Pipeline.ConfidenceThreshold)
	}
	if len(cfg.Pipeline.Roles) != 6 {
		t.Errorf("roles = %d, want 6", len(cfg.Pipeline.Roles))
	}
	for role, provider := range cfg.Pipeline.Roles {
		if _, ok := cfg.Providers[provider]; !ok {
			t.Errorf("role %s references missing provider %s", role, provider)
		}
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proofmill.yaml")
	yaml := `
pipeline:
  roles:
    primary: gpt
providers:
  gpt:
    kind: openai
    model: gpt-4o
    api_key_env: OPENAI_API_KEY
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.MaxIterations != 5 {
		t.Errorf("max_iterations default not applied: %d", cfg.Pipeline.MaxIterations)
	}
	if cfg.Pipeline.CallTimeout != "120s" {
		t.Errorf("call_timeout default not applied: %q", cfg.Pipeline.CallTimeout)
	}
	if cfg.Lean.FixRounds != 3 {
		t.Errorf("fix_rounds default not applied: %d", cfg.Lean.FixRounds)
	}
	if errs := Validate(cfg); len(errs) != 0 {
		t.Errorf("loaded config invalid: %v", errs)
	}
}

func TestLoadRespectsExplicitValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proofmill.yaml")
	yaml := `
pipeline:
  max_iterations: 2
  confidence_threshold: 0.8
  call_timeout: 30s
  roles:
    primary: gpt
providers:
  gpt:
    kind: openai
    model: gpt-4o
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Pipeline.MaxIterations != 2 {
		t.Errorf("max_iterations = %d", cfg.Pipeline.MaxIterations)
	}
	if cfg.Pipeline.ConfidenceThreshold != 0.8 {
		t.Errorf("confidence_threshold = %g", cfg.Pipeline.ConfidenceThreshold)
	}
	if got := cfg.Pipeline.CallTimeoutDuration(); got != 30*time.Second {
		t.Errorf("call timeout = %v", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("pipeline: [not a map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateCatchesProblems(t *testing.T) {
	cfg := &Config{
		Pipeline: Pipeline{
			MaxIterations:       0,
			ConfidenceThreshold: 1.5,
			CallTimeout:         "soon",
			Roles: map[string]string{
				"lateral":  "ghost",
				"narrator": "gpt",
			},
		},
		Providers: map[string]Provider{
			"gpt": {Kind: "telepathy", Temperature: 3},
		},
		Lean: Lean{Enabled: true, Timeout: "forever"},
	}

	errs := Validate(cfg)
	fields := make(map[string]bool)
	for _, e := range errs {
		fields[e.Field] = true
	}

	for _, want := range []string{
		"pipeline.max_iterations",
		"pipeline.confidence_threshold",
		"pipeline.call_timeout",
		"pipeline.roles.primary",
		"pipeline.roles.lateral",
		"pipeline.roles.narrator",
		"providers.gpt.kind",
		"providers.gpt.model",
		"providers.gpt.temperature",
		"lean.command",
		"lean.timeout",
	} {
		if !fields[want] {
			t.Errorf("missing validation error for %s (got %v)", want, errs)
		}
	}
}

func TestTimeoutFallbacks(t *testing.T) {
	p := Pipeline{CallTimeout: "nonsense"}
	if got := p.CallTimeoutDuration(); got != 2*time.Minute {
		t.Errorf("call timeout fallback = %v", got)
	}
	l := Lean{Timeout: ""}
	if got := l.TimeoutDuration(); got != 5*time.Minute {
		t.Errorf("lean timeout fallback = %v", got)
	}
}
