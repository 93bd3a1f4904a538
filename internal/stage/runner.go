// Package stage implements the pipeline stages. Each stage reads the solve
// state, calls its configured models, and returns a single history output;
// the orchestrator owns the state and appends the results.
package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/solve"
)

// Runner executes pipeline stages against a model registry.
type Runner struct {
	Models   *model.Registry
	Prompts  *prompt.Library
	Progress io.Writer
	// Recorder, when set, observes every model call for the event log.
	Recorder func(rec CallRecord)
}

// CallRecord describes one model invocation for observers.
type CallRecord struct {
	Tag       string
	Model     string
	OK        bool
	LatencyMs int64
	Tokens    int
	Err       string
}

// Failure means a stage could not produce its output at all. Partial
// contributor failures are absorbed; a Failure aborts the solve.
type Failure struct {
	Stage solve.Stage
	Err   error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("stage %s failed: %v", f.Stage, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// call is one model invocation inside a fan-out.
type call struct {
	tag  string
	role model.Role
	req  model.Request
}

// callResult is the per-slot outcome of a fan-out. Exactly one of resp and
// err is set.
type callResult struct {
	tag   string
	model string
	resp  *model.Response
	err   error
}

// fanOut runs the calls concurrently and returns one result per call, in
// order. Individual failures land in their slot; the caller decides whether
// partial results are enough.
func (r *Runner) fanOut(ctx context.Context, calls []call) []callResult {
	results := make([]callResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range calls {
		g.Go(func() error {
			results[i] = r.invoke(gctx, c)
			return nil
		})
	}
	g.Wait()
	return results
}

func (r *Runner) invoke(ctx context.Context, c call) callResult {
	client, err := r.Models.Get(c.role)
	if err != nil {
		r.record(CallRecord{Tag: c.tag, OK: false, Err: err.Error()})
		return callResult{tag: c.tag, err: err}
	}
	r.logf("  calling %s (%s)", c.tag, client.Name())
	resp, err := client.Invoke(ctx, c.req)
	if err != nil {
		r.logf("  %s failed: %v", c.tag, err)
		r.record(CallRecord{Tag: c.tag, Model: client.Name(), OK: false, Err: err.Error()})
		return callResult{tag: c.tag, model: client.Name(), err: err}
	}
	r.logf("  %s done (%dms)", c.tag, resp.LatencyMs)
	r.record(CallRecord{Tag: c.tag, Model: resp.Model, OK: true, LatencyMs: resp.LatencyMs, Tokens: resp.TokensUsed})
	return callResult{tag: c.tag, model: resp.Model, resp: resp}
}

func (r *Runner) record(rec CallRecord) {
	if r.Recorder != nil {
		r.Recorder(rec)
	}
}

// collect splits fan-out results into successes and error strings. If every
// slot failed it returns a joined error instead.
func collect(stage solve.Stage, results []callResult) ([]callResult, []string, error) {
	var ok []callResult
	var warnings []string
	var errs []error
	for _, res := range results {
		if res.err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", res.tag, res.err))
			errs = append(errs, fmt.Errorf("%s: %w", res.tag, res.err))
			continue
		}
		ok = append(ok, res)
	}
	if len(ok) == 0 {
		return nil, nil, &Failure{Stage: stage, Err: errors.Join(errs...)}
	}
	return ok, warnings, nil
}

func (r *Runner) logf(format string, args ...any) {
	if r.Progress != nil {
		fmt.Fprintf(r.Progress, format+"\n", args...)
	}
}

// formatHypotheses renders hypotheses as a numbered list for prompts.
func formatHypotheses(hs []solve.Hypothesis) string {
	var b strings.Builder
	for i, h := range hs {
		fmt.Fprintf(&b, "%d. %s", i+1, h.Text)
		if h.Source != "" {
			fmt.Fprintf(&b, " (via %s)", h.Source)
		}
		b.WriteString("\n")
	}
	return b.String()
}
