// Package retrycontrol gates the verification and regeneration loop. Only a
// rigorous verdict is accepted; everything else either revises within the
// iteration budget or aborts.
package retrycontrol

import (
	"fmt"

	"github.com/lucasnoah/proofmill/internal/solve"
)

// Phase is the controller's routing decision after one verdict.
type Phase string

const (
	// PhaseAccepted terminates the loop with a verified proof.
	PhaseAccepted Phase = "accepted"
	// PhaseRevising routes back to proof generation with feedback.
	PhaseRevising Phase = "revising"
	// PhaseAborted terminates the loop without a verified proof.
	PhaseAborted Phase = "aborted"
)

// Decision is the outcome of judging one verdict.
type Decision struct {
	Phase Phase
	// Iteration is the 1-based count of verdicts judged so far.
	Iteration int
	Reason    string
}

// Controller tracks the iteration budget across one solve. It is not safe
// for concurrent use; each solve gets its own controller.
type Controller struct {
	policy    solve.RetryPolicy
	iteration int
}

// New creates a controller for one solve.
func New(policy solve.RetryPolicy) (*Controller, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Controller{policy: policy}, nil
}

// Iteration returns how many verdicts have been judged.
func (c *Controller) Iteration() int { return c.iteration }

// Decide consumes one verdict and routes the solve. Rules, in order:
// a rigorous verdict is accepted; an unavailable verdict aborts because no
// verifier can ever pass it; an exhausted budget aborts; anything else
// revises. Partial verdicts are never accepted regardless of confidence.
func (c *Controller) Decide(v *solve.Verdict) Decision {
	c.iteration++

	switch v.Status {
	case solve.VerdictRigorous:
		return Decision{
			Phase:     PhaseAccepted,
			Iteration: c.iteration,
			Reason:    fmt.Sprintf("proof verified via %s", v.Method),
		}
	case solve.VerdictUnavailable:
		return Decision{
			Phase:     PhaseAborted,
			Iteration: c.iteration,
			Reason:    "no verification path is available; retrying cannot help",
		}
	}

	if c.iteration >= c.policy.MaxIterations {
		return Decision{
			Phase:     PhaseAborted,
			Iteration: c.iteration,
			Reason:    fmt.Sprintf("iteration budget exhausted after %d attempts", c.iteration),
		}
	}

	return Decision{
		Phase:     PhaseRevising,
		Iteration: c.iteration,
		Reason:    fmt.Sprintf("verdict %s, retrying (%d/%d)", v.Status, c.iteration, c.policy.MaxIterations),
	}
}
