package stage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/solve"
)

// failingClient always fails with a permanent error.
type failingClient struct{ name string }

func (f *failingClient) Name() string { return f.name }

func (f *failingClient) Invoke(ctx context.Context, req model.Request) (*model.Response, error) {
	return nil, model.Permanent(f.name, errors.New("boom"))
}

func newRunner(reg *model.Registry) *Runner {
	return &Runner{Models: reg, Prompts: prompt.NewLibrary(""), Progress: &bytes.Buffer{}}
}

func testState() *solve.State {
	return solve.NewState(solve.NewProblem("Prove that the sum of two even integers is even."))
}

func TestDecomposeMergesBothContributors(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register(model.RolePrimary, &model.Static{
		Provider: "primary",
		Fallback: "1. Use the definition of even.\n2. Apply closure under addition.",
	})
	reg.Register(model.RoleLateral, &model.Static{
		Provider: "lateral",
		Fallback: "1. Consider parity in Z/2Z.",
	})

	out, warnings, err := newRunner(reg).Decompose(context.Background(), testState())
	if err != nil {
		t.Fatalf("decompose: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if out.Kind != solve.KindHypotheses {
		t.Fatalf("kind = %s", out.Kind)
	}
	if len(out.Hypotheses) != 3 {
		t.Fatalf("hypotheses = %d, want 3", len(out.Hypotheses))
	}
	if len(out.Models) != 2 {
		t.Fatalf("models = %v", out.Models)
	}
}

func TestDecomposeToleratesOneFailure(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register(model.RolePrimary, &model.Static{
		Provider: "primary",
		Fallback: "1. Direct computation.",
	})
	reg.Register(model.RoleLateral, &failingClient{name: "lateral"})

	out, warnings, err := newRunner(reg).Decompose(context.Background(), testState())
	if err != nil {
		t.Fatalf("decompose should tolerate one failed contributor: %v", err)
	}
	if len(out.Hypotheses) != 1 {
		t.Fatalf("hypotheses = %d, want 1", len(out.Hypotheses))
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want one entry", warnings)
	}
}

func TestDecomposeFailsWhenAllContributorsFail(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register(model.RolePrimary, &failingClient{name: "primary"})
	reg.Register(model.RoleLateral, &failingClient{name: "lateral"})

	_, _, err := newRunner(reg).Decompose(context.Background(), testState())
	if err == nil {
		t.Fatal("expected failure when every contributor fails")
	}
	var failure *Failure
	if !errors.As(err, &failure) {
		t.Fatalf("error type = %T", err)
	}
	if failure.Stage != solve.StageDecomposition {
		t.Fatalf("stage = %s", failure.Stage)
	}
	// Both causes must survive aggregation.
	msg := err.Error()
	if !strings.Contains(msg, "primary") || !strings.Contains(msg, "lateral") {
		t.Errorf("aggregated error should name both contributors: %s", msg)
	}
}

func TestParseHypothesesFormats(t *testing.T) {
	hs := parseHypotheses("1. First idea\n2) Second idea\n- Third idea\nnot a list item", "m")
	if len(hs) != 3 {
		t.Fatalf("parsed = %d, want 3", len(hs))
	}
	if hs[0].Text != "First idea" || hs[2].Text != "Third idea" {
		t.Errorf("unexpected items: %+v", hs)
	}
	for _, h := range hs {
		if h.Source != "m" {
			t.Errorf("source = %q", h.Source)
		}
	}
}

func TestParseHypothesesFallbackToWholeText(t *testing.T) {
	hs := parseHypotheses("A single prose suggestion without list markers.", "m")
	if len(hs) != 1 {
		t.Fatalf("parsed = %d, want 1", len(hs))
	}
}

func TestDiversifyToleratesExplorerFailure(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register(model.RolePrimary, &model.Static{Provider: "primary", Fallback: "strategy ranking"})
	reg.Register(model.RoleExplorer, &failingClient{name: "explorer"})

	st := testState()
	st.Append(solve.StageOutput{
		Kind:       solve.KindHypotheses,
		Stage:      solve.StageDecomposition,
		Hypotheses: []solve.Hypothesis{{Text: "parity argument"}},
	})

	out, warnings, err := newRunner(reg).Diversify(context.Background(), st)
	if err != nil {
		t.Fatalf("diversify: %v", err)
	}
	if out.Exploration.Analysis != "strategy ranking" {
		t.Fatalf("analysis = %q", out.Exploration.Analysis)
	}
	if out.Exploration.Code != "" {
		t.Fatalf("code should be empty when the explorer fails")
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestProveChainsThroughRefiner(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register(model.RolePrimary, &model.Static{Provider: "primary", Fallback: "sketch text"})
	reg.Register(model.RoleRefiner, &model.Static{
		Provider: "refiner",
		Responses: map[string]string{
			"Hunt for gaps": "corrected proof",
			"sketch text":   "refined proof",
		},
		Fallback: "corrected proof",
	})

	out, warnings, err := newRunner(reg).Prove(context.Background(), testState())
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("warnings = %v", warnings)
	}
	if out.Sketch.Sketch != "sketch text" {
		t.Fatalf("sketch = %q", out.Sketch.Sketch)
	}
	if out.Sketch.Detailed != "corrected proof" {
		t.Fatalf("detailed = %q", out.Sketch.Detailed)
	}
}

func TestProveDegradesWithoutRefiner(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register(model.RolePrimary, &model.Static{Provider: "primary", Fallback: "sketch only"})

	out, warnings, err := newRunner(reg).Prove(context.Background(), testState())
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	if out.Sketch.Detailed != "sketch only" {
		t.Fatalf("detailed = %q, want the sketch", out.Sketch.Detailed)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want degradation notice", warnings)
	}
}

func TestProveFailsWhenSketchFails(t *testing.T) {
	reg := model.NewRegistry()
	reg.Register(model.RolePrimary, &failingClient{name: "primary"})

	_, _, err := newRunner(reg).Prove(context.Background(), testState())
	if err == nil {
		t.Fatal("expected failure when the sketch link fails")
	}
}

func TestReviseFeedbackFallsBackToIssueSummary(t *testing.T) {
	st := testState()
	st.Append(solve.StageOutput{
		Kind:   solve.KindSketch,
		Stage:  solve.StageProofGeneration,
		Sketch: &solve.ProofSketch{Detailed: "proof"},
	})
	v := &solve.Verdict{
		Status: solve.VerdictFailed,
		Issues: []solve.Issue{{Description: "gap", Severity: solve.SeverityCritical}},
	}

	// No checker registered: the raw issue summary is used.
	got := newRunner(model.NewRegistry()).ReviseFeedback(context.Background(), st, v)
	if !strings.Contains(got, "gap") {
		t.Fatalf("feedback = %q", got)
	}
}
