package stage

import (
	"strings"
	"testing"

	"github.com/lucasnoah/proofmill/internal/solve"
)

func acceptedState() *solve.State {
	st := solve.NewState(solve.Problem{ID: "fixed-id", Statement: "Prove P.", CreatedAt: "2026-01-01T00:00:00Z"})
	st.Append(solve.StageOutput{
		Kind:       solve.KindHypotheses,
		Stage:      solve.StageDecomposition,
		Hypotheses: []solve.Hypothesis{{Text: "induction", Source: "gpt-5"}},
	})
	st.Append(solve.StageOutput{
		Kind:   solve.KindSketch,
		Stage:  solve.StageProofGeneration,
		Sketch: &solve.ProofSketch{Sketch: "outline", Detailed: "the full proof body"},
	})
	st.Append(solve.StageOutput{
		Kind:    solve.KindVerdict,
		Stage:   solve.StageVerification,
		Verdict: &solve.Verdict{Status: solve.VerdictFailed, Method: solve.MethodOpinion},
	})
	rigorous := solve.Rigorous(solve.MethodFormal)
	rigorous.FormalCode = "theorem p : P := proof"
	st.Iteration = 1
	st.Append(solve.StageOutput{
		Kind:      solve.KindVerdict,
		Stage:     solve.StageVerification,
		Iteration: 1,
		Verdict:   rigorous,
	})
	return st
}

func TestIntegrateDocumentContent(t *testing.T) {
	out := Integrate(acceptedState())

	if out.Kind != solve.KindFinal {
		t.Fatalf("kind = %s", out.Kind)
	}
	doc := out.Final
	if doc.Status != solve.VerdictRigorous {
		t.Fatalf("status = %s", doc.Status)
	}
	if doc.Confidence != 1.0 {
		t.Fatalf("confidence = %g", doc.Confidence)
	}
	if doc.Iterations != 2 {
		t.Fatalf("iterations = %d, want 2", doc.Iterations)
	}

	for _, want := range []string{
		"Prove P.",
		"the full proof body",
		"theorem p : P := proof",
		"## Verification History",
		"## Appendix: Explored Hypotheses",
		"induction",
	} {
		if !strings.Contains(doc.Markdown, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestIntegrateIsDeterministic(t *testing.T) {
	st := acceptedState()
	first := Integrate(st).Final.Markdown
	second := Integrate(st).Final.Markdown
	if first != second {
		t.Fatal("integration must be byte-identical across runs on the same history")
	}
}

func TestIntegrateAbortedSolve(t *testing.T) {
	st := solve.NewState(solve.Problem{ID: "x", Statement: "Prove Q."})
	st.Append(solve.StageOutput{
		Kind:   solve.KindSketch,
		Stage:  solve.StageProofGeneration,
		Sketch: &solve.ProofSketch{Detailed: "attempted proof"},
	})
	st.Append(solve.StageOutput{
		Kind:  solve.KindVerdict,
		Stage: solve.StageVerification,
		Verdict: &solve.Verdict{
			Status:     solve.VerdictPartial,
			Confidence: solve.Conf(0.6),
			Method:     solve.MethodOpinion,
			Issues:     []solve.Issue{{Description: "case n=0 missing", Severity: solve.SeverityModerate}},
		},
	})

	doc := Integrate(st).Final
	if doc.Status != solve.VerdictPartial {
		t.Fatalf("status = %s", doc.Status)
	}
	if !strings.Contains(doc.Markdown, "case n=0 missing") {
		t.Error("document should list open issues for an unverified proof")
	}
}

func TestIntegrateEmptyHistory(t *testing.T) {
	st := solve.NewState(solve.Problem{ID: "y", Statement: "Prove R."})
	doc := Integrate(st).Final
	if doc.Status != solve.VerdictFailed {
		t.Fatalf("status = %s, want failed with no verdicts", doc.Status)
	}
	if doc.Iterations != 0 {
		t.Fatalf("iterations = %d", doc.Iterations)
	}
}
