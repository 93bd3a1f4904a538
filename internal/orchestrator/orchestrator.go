// Package orchestrator drives one solve through the fixed pipeline:
// decomposition, diversification, then the proof generation / verification
// loop gated by retrycontrol, and finally integration. The orchestrator is
// the sole owner of the solve state.
package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/lucasnoah/proofmill/internal/db"
	"github.com/lucasnoah/proofmill/internal/history"
	"github.com/lucasnoah/proofmill/internal/retrycontrol"
	"github.com/lucasnoah/proofmill/internal/solve"
	"github.com/lucasnoah/proofmill/internal/stage"
	"github.com/lucasnoah/proofmill/internal/verify"
)

// Orchestrator runs solves. Store and Events are optional; a nil Store
// keeps state in memory only.
type Orchestrator struct {
	Runner   *stage.Runner
	Verifier verify.Verifier
	Store    *history.Store
	Events   *db.DB
	Progress io.Writer
}

// Result is the outcome of a completed solve, successful or not.
type Result struct {
	State    *solve.State
	Final    *solve.FinalDocument
	Decision retrycontrol.Decision
}

// Solve runs the full pipeline for one problem. On abort it returns both
// the result (with the integrated document) and an *AbortedError.
func (o *Orchestrator) Solve(ctx context.Context, problem solve.Problem, policy solve.RetryPolicy) (*Result, error) {
	controller, err := retrycontrol.New(policy)
	if err != nil {
		return nil, fmt.Errorf("retry policy: %w", err)
	}

	st := solve.NewState(problem)
	if o.Store != nil {
		if err := o.Store.Create(st); err != nil {
			return nil, err
		}
	}
	runner := o.runnerFor(st)
	o.event(st, "solve_started", problem.Statement)

	// Decomposition and diversification run once per solve.
	if err := o.runStage(ctx, st, solve.StageDecomposition, runner.Decompose); err != nil {
		return nil, o.fail(st, err)
	}
	if err := o.runStage(ctx, st, solve.StageDiversification, runner.Diversify); err != nil {
		return nil, o.fail(st, err)
	}

	// Proof generation and verification loop until accepted or aborted.
	var decision retrycontrol.Decision
	for {
		if err := o.runStage(ctx, st, solve.StageProofGeneration, runner.Prove); err != nil {
			return nil, o.fail(st, err)
		}

		if err := ctx.Err(); err != nil {
			return nil, o.fail(st, err)
		}
		st.EnterStage(solve.StageVerification)
		o.persist(st)
		sketch := st.LatestSketch()
		verdict, err := o.Verifier.Verify(ctx, st.Problem.Statement, sketch.Detailed)
		if err != nil {
			return nil, o.fail(st, err)
		}
		if err := verdict.Validate(); err != nil {
			return nil, o.fail(st, fmt.Errorf("verifier produced an invalid verdict: %w", err))
		}
		st.Append(solve.StageOutput{
			Kind:      solve.KindVerdict,
			Stage:     solve.StageVerification,
			Iteration: st.Iteration,
			Verdict:   verdict,
		})
		o.persist(st)
		if o.Events != nil {
			o.Events.LogVerdict(st.Problem.ID, st.Iteration, string(verdict.Status), string(verdict.Method), verdict.ConfidenceValue(), len(verdict.Issues))
		}

		decision = controller.Decide(verdict)
		o.event(st, "verdict_"+string(decision.Phase), decision.Reason)
		o.logf("verdict: %s, decision: %s (%s)", verdict.Status, decision.Phase, decision.Reason)

		if decision.Phase != retrycontrol.PhaseRevising {
			break
		}
		st.Feedback = runner.ReviseFeedback(ctx, st, verdict)
		st.Iteration = decision.Iteration
		o.persist(st)
	}

	// Integration always runs, win or lose: the document records what was
	// attempted and how far verification got.
	st.EnterStage(solve.StageIntegration)
	out := stage.Integrate(st)
	st.Append(*out)
	if o.Store != nil {
		if err := o.Store.SaveFinal(st.Problem.ID, out.Final); err != nil {
			st.RecordError(fmt.Sprintf("save final document: %v", err))
		}
	}

	result := &Result{State: st, Final: out.Final, Decision: decision}
	if decision.Phase == retrycontrol.PhaseAccepted {
		st.Finish(solve.StatusAccepted)
		o.persist(st)
		o.event(st, "solve_accepted", decision.Reason)
		return result, nil
	}

	st.Finish(solve.StatusAborted)
	o.persist(st)
	o.event(st, "solve_aborted", decision.Reason)
	return result, &AbortedError{
		SolveID:     st.Problem.ID,
		Iterations:  decision.Iteration,
		Reason:      decision.Reason,
		LastVerdict: st.LastVerdict,
	}
}

type stageFunc func(context.Context, *solve.State) (*solve.StageOutput, []string, error)

func (o *Orchestrator) runStage(ctx context.Context, st *solve.State, s solve.Stage, fn stageFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st.EnterStage(s)
	o.persist(st)
	o.event(st, "stage_started", "")

	out, warnings, err := fn(ctx, st)
	for _, w := range warnings {
		st.RecordError(w)
		o.logf("warning: %s", w)
	}
	if err != nil {
		return err
	}
	st.Append(*out)
	o.persist(st)
	o.event(st, "stage_completed", "")
	return nil
}

// fail marks the solve as operationally failed and persists the state.
func (o *Orchestrator) fail(st *solve.State, err error) error {
	st.RecordError(err.Error())
	st.Finish(solve.StatusError)
	o.persist(st)
	o.event(st, "solve_error", err.Error())
	return err
}

func (o *Orchestrator) persist(st *solve.State) {
	if o.Store == nil {
		return
	}
	if err := o.Store.Save(st); err != nil {
		o.logf("warning: persist state: %v", err)
	}
}

func (o *Orchestrator) event(st *solve.State, event, detail string) {
	if o.Events == nil {
		return
	}
	if err := o.Events.LogSolveEvent(st.Problem.ID, event, string(st.CurrentStage), st.Iteration, detail); err != nil {
		o.logf("warning: log event: %v", err)
	}
}

// runnerFor returns a private copy of the shared runner whose recorder logs
// model calls under this solve's ID. Concurrent solves on one orchestrator
// must not share a recorder.
func (o *Orchestrator) runnerFor(st *solve.State) *stage.Runner {
	r := *o.Runner
	if o.Events != nil {
		r.Recorder = func(rec stage.CallRecord) {
			err := o.Events.LogModelCall(
				st.Problem.ID, string(st.CurrentStage), st.Iteration,
				rec.Tag, rec.Model, rec.OK, rec.LatencyMs, rec.Tokens, rec.Err,
			)
			if err != nil {
				o.logf("warning: log model call: %v", err)
			}
		}
	}
	return &r
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.Progress != nil {
		fmt.Fprintf(o.Progress, format+"\n", args...)
	}
}
