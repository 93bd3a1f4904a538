// Package verify decides whether a candidate proof is rigorous. Formal
// verification through Lean 4 is authoritative when available; an LLM
// verifier gives a second opinion otherwise.
package verify

import (
	"context"
	"fmt"
	"io"

	"github.com/lucasnoah/proofmill/internal/solve"
)

// Verifier judges a proof for a problem and returns a verdict.
type Verifier interface {
	Verify(ctx context.Context, problem, proof string) (*solve.Verdict, error)
}

// Composite tries formal verification first and falls back to an LLM
// opinion only when the formal path is unavailable. A formal verdict,
// positive or negative, is conclusive.
type Composite struct {
	Formal   Verifier
	Opinion  Verifier
	Progress io.Writer
}

func (c *Composite) Verify(ctx context.Context, problem, proof string) (*solve.Verdict, error) {
	if c.Formal != nil {
		v, err := c.Formal.Verify(ctx, problem, proof)
		if err != nil {
			return nil, fmt.Errorf("formal verification: %w", err)
		}
		if v.Status != solve.VerdictUnavailable {
			return v, nil
		}
		c.logf("formal verification unavailable, falling back to model opinion")
	}

	if c.Opinion != nil {
		v, err := c.Opinion.Verify(ctx, problem, proof)
		if err != nil {
			return nil, fmt.Errorf("opinion verification: %w", err)
		}
		if v.Status != solve.VerdictUnavailable {
			return v, nil
		}
	}

	return &solve.Verdict{
		Status:   solve.VerdictUnavailable,
		Feedback: "no verification path is configured",
	}, nil
}

func (c *Composite) logf(format string, args ...any) {
	if c.Progress != nil {
		fmt.Fprintf(c.Progress, format+"\n", args...)
	}
}
