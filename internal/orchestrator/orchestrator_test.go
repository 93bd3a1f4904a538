package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/lucasnoah/proofmill/internal/db"
	"github.com/lucasnoah/proofmill/internal/history"
	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/retrycontrol"
	"github.com/lucasnoah/proofmill/internal/solve"
	"github.com/lucasnoah/proofmill/internal/stage"
)

// scriptVerifier returns pre-set verdicts in order, repeating the last one.
type scriptVerifier struct {
	verdicts []*solve.Verdict
	calls    int
}

func (s *scriptVerifier) Verify(ctx context.Context, problem, proof string) (*solve.Verdict, error) {
	i := s.calls
	s.calls++
	if i >= len(s.verdicts) {
		i = len(s.verdicts) - 1
	}
	return s.verdicts[i], nil
}

// fixedVerifier returns the same verdict on every call. Unlike
// scriptVerifier it keeps no counter, so it is safe for concurrent solves.
type fixedVerifier struct {
	verdict *solve.Verdict
}

func (f fixedVerifier) Verify(ctx context.Context, problem, proof string) (*solve.Verdict, error) {
	return f.verdict, nil
}

func testOrchestrator(t *testing.T, verdicts ...*solve.Verdict) *Orchestrator {
	t.Helper()

	store := history.NewStore(t.TempDir())
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return &Orchestrator{
		Runner: &stage.Runner{
			Models:   model.OfflineRegistry(),
			Prompts:  prompt.NewLibrary(""),
			Progress: &bytes.Buffer{},
		},
		Verifier: &scriptVerifier{verdicts: verdicts},
		Store:    store,
		Events:   database,
		Progress: &bytes.Buffer{},
	}
}

func defaultPolicy() solve.RetryPolicy {
	return solve.RetryPolicy{MaxIterations: 3, ConfidenceThreshold: 0.9}
}

func TestSolveAcceptedFirstIteration(t *testing.T) {
	o := testOrchestrator(t, solve.Rigorous(solve.MethodFormal))
	problem := solve.NewProblem("Prove that 1+1=2.")

	result, err := o.Solve(context.Background(), problem, defaultPolicy())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if result.State.Status != solve.StatusAccepted {
		t.Fatalf("status = %q", result.State.Status)
	}
	if result.Decision.Phase != retrycontrol.PhaseAccepted {
		t.Fatalf("phase = %s", result.Decision.Phase)
	}
	if result.Final == nil || result.Final.Status != solve.VerdictRigorous {
		t.Fatalf("final = %+v", result.Final)
	}
	if result.Final.Iterations != 1 {
		t.Fatalf("iterations = %d, want 1", result.Final.Iterations)
	}

	// Every stage must appear in history exactly once.
	kinds := map[solve.OutputKind]int{}
	for _, out := range result.State.History {
		kinds[out.Kind]++
	}
	for _, k := range []solve.OutputKind{solve.KindHypotheses, solve.KindExploration, solve.KindSketch, solve.KindVerdict, solve.KindFinal} {
		if kinds[k] != 1 {
			t.Errorf("history has %d %s outputs, want 1", kinds[k], k)
		}
	}

	// Persisted state matches.
	got, err := o.Store.Get(problem.ID)
	if err != nil {
		t.Fatalf("stored state: %v", err)
	}
	if got.Status != solve.StatusAccepted {
		t.Errorf("stored status = %q", got.Status)
	}
}

func TestSolveRetriesThenAccepts(t *testing.T) {
	o := testOrchestrator(t,
		&solve.Verdict{Status: solve.VerdictFailed, Feedback: "the key lemma is unproven"},
		solve.Rigorous(solve.MethodOpinion),
	)
	problem := solve.NewProblem("Prove P.")

	result, err := o.Solve(context.Background(), problem, defaultPolicy())
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if result.State.Status != solve.StatusAccepted {
		t.Fatalf("status = %q", result.State.Status)
	}
	if result.Final.Iterations != 2 {
		t.Fatalf("iterations = %d, want 2", result.Final.Iterations)
	}
	if result.State.Feedback == "" {
		t.Error("feedback should be carried from the rejected verdict")
	}

	// Decomposition and diversification run once, proof generation twice.
	kinds := map[solve.OutputKind]int{}
	for _, out := range result.State.History {
		kinds[out.Kind]++
	}
	if kinds[solve.KindHypotheses] != 1 || kinds[solve.KindExploration] != 1 {
		t.Errorf("early stages reran: %v", kinds)
	}
	if kinds[solve.KindSketch] != 2 || kinds[solve.KindVerdict] != 2 {
		t.Errorf("loop counts wrong: %v", kinds)
	}
}

func TestSolveAbortsOnBudget(t *testing.T) {
	o := testOrchestrator(t, &solve.Verdict{Status: solve.VerdictFailed})
	problem := solve.NewProblem("Prove the Riemann hypothesis.")
	policy := solve.RetryPolicy{MaxIterations: 2, ConfidenceThreshold: 0.9}

	result, err := o.Solve(context.Background(), problem, policy)
	var aborted *AbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("error = %v, want AbortedError", err)
	}
	if aborted.Iterations != 2 {
		t.Fatalf("iterations = %d, want 2", aborted.Iterations)
	}
	if result == nil || result.State.Status != solve.StatusAborted {
		t.Fatalf("result = %+v", result)
	}
	// The document is still produced for an aborted solve.
	if result.Final == nil || result.Final.Status != solve.VerdictFailed {
		t.Fatalf("final = %+v", result.Final)
	}
}

func TestSolveAbortsWhenVerificationUnavailable(t *testing.T) {
	o := testOrchestrator(t, &solve.Verdict{Status: solve.VerdictUnavailable})
	problem := solve.NewProblem("Prove P.")

	result, err := o.Solve(context.Background(), problem, defaultPolicy())
	var aborted *AbortedError
	if !errors.As(err, &aborted) {
		t.Fatalf("error = %v, want AbortedError", err)
	}
	if aborted.Iterations != 1 {
		t.Fatalf("iterations = %d, want 1 (no retries against a missing verifier)", aborted.Iterations)
	}
	if result.State.Status != solve.StatusAborted {
		t.Fatalf("status = %q", result.State.Status)
	}
}

func TestSolveCancelledContext(t *testing.T) {
	o := testOrchestrator(t, solve.Rigorous(solve.MethodFormal))
	problem := solve.NewProblem("Prove P.")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Solve(ctx, problem, defaultPolicy())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}

	got, gerr := o.Store.Get(problem.ID)
	if gerr != nil {
		t.Fatalf("stored state: %v", gerr)
	}
	if got.Status != solve.StatusError {
		t.Errorf("stored status = %q, want error", got.Status)
	}
}

func TestSolveRejectsInvalidVerifierVerdict(t *testing.T) {
	// A rigorous verdict below full confidence violates the contract.
	o := testOrchestrator(t, &solve.Verdict{Status: solve.VerdictRigorous, Confidence: solve.Conf(0.8)})
	problem := solve.NewProblem("Prove P.")

	_, err := o.Solve(context.Background(), problem, defaultPolicy())
	if err == nil {
		t.Fatal("expected error for contract-violating verdict")
	}
}

func TestSolveConcurrentCallAttribution(t *testing.T) {
	store := history.NewStore(t.TempDir())
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := database.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	o := &Orchestrator{
		Runner: &stage.Runner{
			Models:  model.OfflineRegistry(),
			Prompts: prompt.NewLibrary(""),
		},
		Verifier: fixedVerifier{verdict: solve.Rigorous(solve.MethodFormal)},
		Store:    store,
		Events:   database,
	}

	problems := []solve.Problem{
		solve.NewProblem("Prove that 1+1=2."),
		solve.NewProblem("Prove that 2+2=4."),
		solve.NewProblem("Prove that 3+3=6."),
	}
	errs := make(chan error, len(problems))
	for _, p := range problems {
		go func() {
			_, err := o.Solve(context.Background(), p, defaultPolicy())
			errs <- err
		}()
	}
	for range problems {
		if err := <-errs; err != nil {
			t.Fatalf("solve: %v", err)
		}
	}

	// The solves run the same pipeline against the same registry, so each
	// must log the same number of model calls under its own ID. A call
	// landing under another solve's ID skews the counts.
	counts := make([]int, len(problems))
	for i, p := range problems {
		calls, err := database.GetModelCalls(p.ID)
		if err != nil {
			t.Fatalf("calls for %s: %v", p.ID, err)
		}
		counts[i] = len(calls)
	}
	if counts[0] == 0 {
		t.Fatal("no model calls recorded")
	}
	for i, n := range counts {
		if n != counts[0] {
			t.Fatalf("call counts diverge across solves: %v (solve %d)", counts, i)
		}
	}
}

func TestSolveLogsEvents(t *testing.T) {
	o := testOrchestrator(t, solve.Rigorous(solve.MethodFormal))
	problem := solve.NewProblem("Prove P.")

	if _, err := o.Solve(context.Background(), problem, defaultPolicy()); err != nil {
		t.Fatalf("solve: %v", err)
	}

	events, err := o.Events.GetSolveHistory(problem.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	seen := map[string]bool{}
	for _, e := range events {
		seen[e.Event] = true
	}
	for _, want := range []string{"solve_started", "stage_started", "stage_completed", "verdict_accepted", "solve_accepted"} {
		if !seen[want] {
			t.Errorf("missing event %q (got %v)", want, events)
		}
	}

	verdicts, err := o.Events.GetVerdicts(problem.ID)
	if err != nil {
		t.Fatalf("verdicts: %v", err)
	}
	if len(verdicts) != 1 || verdicts[0].Status != "rigorous" {
		t.Errorf("verdict rows = %+v", verdicts)
	}

	calls, err := o.Events.GetModelCalls(problem.ID)
	if err != nil {
		t.Fatalf("calls: %v", err)
	}
	if len(calls) == 0 {
		t.Error("model calls were not recorded")
	}
}
