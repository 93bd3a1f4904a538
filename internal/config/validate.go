package config

import (
	"fmt"
	"time"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedKinds is the set of valid provider kinds.
var recognizedKinds = map[string]bool{
	"openai":    true,
	"gemini":    true,
	"anthropic": true,
	"static":    true,
}

// recognizedRoles is the set of pipeline roles that can be wired.
var recognizedRoles = map[string]bool{
	"primary":    true,
	"lateral":    true,
	"explorer":   true,
	"refiner":    true,
	"checker":    true,
	"formalizer": true,
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	p := cfg.Pipeline

	if p.MaxIterations < 1 {
		errs = append(errs, ValidationError{Field: "pipeline.max_iterations", Message: "must be at least 1"})
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		errs = append(errs, ValidationError{Field: "pipeline.confidence_threshold", Message: "must be in [0,1]"})
	}
	if p.CallTimeout != "" {
		if _, err := time.ParseDuration(p.CallTimeout); err != nil {
			errs = append(errs, ValidationError{Field: "pipeline.call_timeout", Message: fmt.Sprintf("invalid duration %q", p.CallTimeout)})
		}
	}

	for name, prov := range cfg.Providers {
		if !recognizedKinds[prov.Kind] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("providers.%s.kind", name),
				Message: fmt.Sprintf("unrecognized kind %q", prov.Kind),
			})
		}
		if prov.Model == "" && prov.Kind != "static" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("providers.%s.model", name),
				Message: "is required",
			})
		}
		if prov.Temperature < 0 || prov.Temperature > 2 {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("providers.%s.temperature", name),
				Message: "must be in [0,2]",
			})
		}
	}

	// Primary is the only role the pipeline cannot run without.
	if _, ok := p.Roles["primary"]; !ok {
		errs = append(errs, ValidationError{Field: "pipeline.roles.primary", Message: "is required"})
	}

	for role, provider := range p.Roles {
		if !recognizedRoles[role] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("pipeline.roles.%s", role),
				Message: "unrecognized role",
			})
		}
		if _, ok := cfg.Providers[provider]; !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("pipeline.roles.%s", role),
				Message: fmt.Sprintf("references undefined provider %q", provider),
			})
		}
	}

	if cfg.Lean.Enabled {
		if cfg.Lean.Command == "" {
			errs = append(errs, ValidationError{Field: "lean.command", Message: "is required when lean is enabled"})
		}
		if cfg.Lean.Timeout != "" {
			if _, err := time.ParseDuration(cfg.Lean.Timeout); err != nil {
				errs = append(errs, ValidationError{Field: "lean.timeout", Message: fmt.Sprintf("invalid duration %q", cfg.Lean.Timeout)})
			}
		}
	}

	return errs
}

// CallTimeoutDuration parses the per-call timeout, falling back to two minutes.
func (p Pipeline) CallTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(p.CallTimeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

// TimeoutDuration parses the lean compile timeout, falling back to 5 minutes.
func (l Lean) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(l.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}
