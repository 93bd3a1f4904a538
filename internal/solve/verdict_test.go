package solve

import "testing"

func TestRigorousConstructor(t *testing.T) {
	v := Rigorous(MethodFormal)
	if v.Status != VerdictRigorous {
		t.Fatalf("status = %s", v.Status)
	}
	if v.ConfidenceValue() != 1.0 {
		t.Fatalf("confidence = %g, want 1.0", v.ConfidenceValue())
	}
	if err := v.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateRejectsRigorousBelowFullConfidence(t *testing.T) {
	v := &Verdict{Status: VerdictRigorous, Confidence: Conf(0.95)}
	if err := v.Validate(); err == nil {
		t.Fatal("expected error for rigorous verdict with confidence < 1.0")
	}
}

func TestValidateRejectsRigorousWithCriticalIssue(t *testing.T) {
	v := Rigorous(MethodOpinion)
	v.Issues = []Issue{{Description: "gap in case 2", Severity: SeverityCritical}}
	if err := v.Validate(); err == nil {
		t.Fatal("expected error for rigorous verdict with a critical issue")
	}
}

func TestValidateFailedConfidence(t *testing.T) {
	if err := (&Verdict{Status: VerdictFailed}).Validate(); err != nil {
		t.Fatalf("failed with nil confidence: %v", err)
	}
	if err := (&Verdict{Status: VerdictFailed, Confidence: Conf(0)}).Validate(); err != nil {
		t.Fatalf("failed with zero confidence: %v", err)
	}
	if err := (&Verdict{Status: VerdictFailed, Confidence: Conf(0.4)}).Validate(); err == nil {
		t.Fatal("expected error for failed verdict with nonzero confidence")
	}
}

func TestValidateUnknownStatus(t *testing.T) {
	if err := (&Verdict{Status: "maybe"}).Validate(); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestStateAppendTracksVerdicts(t *testing.T) {
	st := NewState(NewProblem("show that 1+1=2"))

	st.Append(StageOutput{Kind: KindHypotheses, Stage: StageDecomposition, Hypotheses: []Hypothesis{{Text: "induction"}}})
	first := &Verdict{Status: VerdictFailed}
	st.Append(StageOutput{Kind: KindVerdict, Stage: StageVerification, Verdict: first})
	second := Rigorous(MethodFormal)
	st.Append(StageOutput{Kind: KindVerdict, Stage: StageVerification, Iteration: 1, Verdict: second})

	if st.LastVerdict != second {
		t.Fatal("LastVerdict not updated by Append")
	}
	if got := len(st.Verdicts()); got != 2 {
		t.Fatalf("verdicts = %d, want 2", got)
	}
	if got := len(st.Hypotheses(0)); got != 1 {
		t.Fatalf("hypotheses = %d, want 1", got)
	}
}

func TestStateHypothesesCap(t *testing.T) {
	st := NewState(NewProblem("p"))
	var hs []Hypothesis
	for i := 0; i < 15; i++ {
		hs = append(hs, Hypothesis{Text: "h"})
	}
	st.Append(StageOutput{Kind: KindHypotheses, Stage: StageDecomposition, Hypotheses: hs})

	if got := len(st.Hypotheses(10)); got != 10 {
		t.Fatalf("capped hypotheses = %d, want 10", got)
	}
	if got := len(st.Hypotheses(0)); got != 15 {
		t.Fatalf("uncapped hypotheses = %d, want 15", got)
	}
}

func TestLatestSketchPicksNewest(t *testing.T) {
	st := NewState(NewProblem("p"))
	st.Append(StageOutput{Kind: KindSketch, Stage: StageProofGeneration, Sketch: &ProofSketch{Detailed: "v1"}})
	st.Append(StageOutput{Kind: KindSketch, Stage: StageProofGeneration, Iteration: 1, Sketch: &ProofSketch{Detailed: "v2"}})

	if got := st.LatestSketch().Detailed; got != "v2" {
		t.Fatalf("latest sketch = %q, want v2", got)
	}
}
