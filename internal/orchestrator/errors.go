package orchestrator

import (
	"fmt"

	"github.com/lucasnoah/proofmill/internal/solve"
)

// AbortedError reports a solve that ran to completion without producing a
// verified proof. The final document is still written; callers use this to
// distinguish the outcome from an operational failure.
type AbortedError struct {
	SolveID     string
	Iterations  int
	Reason      string
	LastVerdict *solve.Verdict
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("solve %s aborted after %d iterations: %s", e.SolveID, e.Iterations, e.Reason)
}
