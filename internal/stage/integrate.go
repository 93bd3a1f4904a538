package stage

import (
	"fmt"
	"strings"

	"github.com/lucasnoah/proofmill/internal/solve"
)

// Integrate assembles the final document from the solve history. It is a
// pure function of the state: the same history always yields the same
// bytes, so re-running integration is safe.
func Integrate(st *solve.State) *solve.StageOutput {
	verdicts := st.Verdicts()
	iterations := len(verdicts)

	status := solve.VerdictFailed
	confidence := 0.0
	if st.LastVerdict != nil {
		status = st.LastVerdict.Status
		confidence = st.LastVerdict.ConfidenceValue()
	}

	var b strings.Builder
	b.WriteString("# Proof Report\n\n")
	b.WriteString("## Problem\n\n")
	b.WriteString(strings.TrimSpace(st.Problem.Statement))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "## Outcome\n\n")
	fmt.Fprintf(&b, "- Status: **%s**\n", status)
	fmt.Fprintf(&b, "- Confidence: %.2f\n", confidence)
	fmt.Fprintf(&b, "- Verification iterations: %d\n", iterations)
	if st.LastVerdict != nil && st.LastVerdict.Method != "" {
		fmt.Fprintf(&b, "- Verified by: %s\n", st.LastVerdict.Method)
	}
	b.WriteString("\n")

	if sketch := st.LatestSketch(); sketch != nil {
		b.WriteString("## Proof\n\n")
		b.WriteString(strings.TrimSpace(sketch.Detailed))
		b.WriteString("\n\n")
	}

	if st.LastVerdict != nil && st.LastVerdict.FormalCode != "" {
		b.WriteString("## Formal Verification (Lean 4)\n\n")
		b.WriteString("```lean\n")
		b.WriteString(strings.TrimSpace(st.LastVerdict.FormalCode))
		b.WriteString("\n```\n\n")
	}

	if len(verdicts) > 0 {
		b.WriteString("## Verification History\n\n")
		for i, v := range verdicts {
			fmt.Fprintf(&b, "%d. %s (%s, confidence %.2f)\n", i+1, v.Status, v.Method, v.ConfidenceValue())
			for _, is := range v.Issues {
				fmt.Fprintf(&b, "   - [%s] %s\n", is.Severity, is.Description)
			}
		}
		b.WriteString("\n")
	}

	if hs := st.Hypotheses(0); len(hs) > 0 {
		b.WriteString("## Appendix: Explored Hypotheses\n\n")
		b.WriteString(formatHypotheses(hs))
		b.WriteString("\n")
	}

	return &solve.StageOutput{
		Kind:      solve.KindFinal,
		Stage:     solve.StageIntegration,
		Iteration: st.Iteration,
		Final: &solve.FinalDocument{
			Markdown:   b.String(),
			Status:     status,
			Confidence: confidence,
			Iterations: iterations,
		},
	}
}
