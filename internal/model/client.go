package model

import "context"

// Request is a single prompt to an external reasoning service.
type Request struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	// Thinking requests an extended reasoning trace where the provider
	// supports one.
	Thinking bool
}

// Response is the structured result of one model invocation.
type Response struct {
	Text       string
	Thinking   string
	Model      string
	LatencyMs  int64
	TokensUsed int
}

// Client issues a single request to an external reasoning service.
// Implementations must be safe for concurrent use: no shared mutable state
// between concurrent invocations.
type Client interface {
	// Name identifies the provider for logging and history.
	Name() string
	// Invoke sends one prompt and returns a well-formed response or a
	// *CallError. The prompt must be non-empty.
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Role names the pipeline function a configured client serves.
type Role string

const (
	// RolePrimary is the main generator: hypotheses, deep analysis,
	// proof sketches.
	RolePrimary Role = "primary"
	// RoleLateral contributes complementary decomposition insights.
	RoleLateral Role = "lateral"
	// RoleExplorer generates exploration code during diversification.
	RoleExplorer Role = "explorer"
	// RoleRefiner refines and self-corrects proof drafts.
	RoleRefiner Role = "refiner"
	// RoleChecker is the adversarial logic checker for fallback verification.
	RoleChecker Role = "checker"
	// RoleFormalizer translates proofs into the formal system.
	RoleFormalizer Role = "formalizer"
)
