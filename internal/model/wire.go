package model

import (
	"context"
	"fmt"
	"os"

	"github.com/lucasnoah/proofmill/internal/config"
)

// BuildRegistry constructs clients for every role wired in the config.
// Roles whose provider cannot be constructed (usually a missing API key) are
// skipped and reported as warnings; whether a missing role is fatal depends
// on the stage that needs it.
func BuildRegistry(ctx context.Context, cfg *config.Config) (*Registry, []string, error) {
	reg := NewRegistry()
	var warnings []string

	timeout := cfg.Pipeline.CallTimeoutDuration()

	for roleName, providerKey := range cfg.Pipeline.Roles {
		prov, ok := cfg.Providers[providerKey]
		if !ok {
			return nil, nil, fmt.Errorf("role %q references undefined provider %q", roleName, providerKey)
		}

		opts := Options{
			Provider:    providerKey,
			APIKey:      os.Getenv(prov.APIKeyEnv),
			Model:       prov.Model,
			BaseURL:     prov.BaseURL,
			Timeout:     timeout,
			Temperature: prov.Temperature,
			MaxTokens:   prov.MaxTokens,
			Thinking:    prov.Thinking,
		}

		var (
			client Client
			err    error
		)
		switch prov.Kind {
		case "openai":
			client, err = NewOpenAICompat(opts)
		case "gemini":
			client, err = NewGemini(ctx, opts)
		case "anthropic":
			client, err = NewAnthropic(opts)
		case "static":
			client = &Static{Provider: providerKey}
		default:
			return nil, nil, fmt.Errorf("provider %q: unrecognized kind %q", providerKey, prov.Kind)
		}
		if err != nil {
			if IsUnsupported(err) {
				warnings = append(warnings, fmt.Sprintf("role %s disabled: %v", roleName, err))
				continue
			}
			return nil, nil, fmt.Errorf("build provider %q: %w", providerKey, err)
		}

		reg.Register(Role(roleName), WithRetry(client))
	}

	return reg, warnings, nil
}

// OfflineRegistry returns a registry where every role is served by a canned
// offline client. Used by --offline dry runs.
func OfflineRegistry() *Registry {
	reg := NewRegistry()
	for _, role := range []Role{RolePrimary, RoleLateral, RoleExplorer, RoleRefiner, RoleChecker, RoleFormalizer} {
		reg.Register(role, &Static{
			Provider: string(role) + "-offline",
			Responses: map[string]string{
				"VERIFICATION_STATUS": "VERIFICATION_STATUS: VALID\nCONFIDENCE: 0.95\nISSUES_FOUND: none",
			},
			Fallback: "1. Consider an inductive argument.\n2. Consider a contradiction argument.",
		})
	}
	return reg
}
