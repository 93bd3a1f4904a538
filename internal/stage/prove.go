package stage

import (
	"context"
	"time"

	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/solve"
)

// Prove runs the sequential proof generation chain: sketch, refine,
// self-correct. The chain is sequential because each link consumes the
// previous link's full output; a link failure fails the stage. A missing
// refiner degrades to the sketch alone with a recorded warning.
func (r *Runner) Prove(ctx context.Context, st *solve.State) (*solve.StageOutput, []string, error) {
	start := time.Now()
	r.logf("stage: proof generation (iteration %d)", st.Iteration)

	var warnings []string
	var models []string

	vars := prompt.Vars{
		"problem":    st.Problem.Statement,
		"hypotheses": formatHypotheses(st.Hypotheses(hypothesisCap)),
		"analysis":   "",
		"feedback":   st.Feedback,
	}
	if exp := st.Exploration(); exp != nil {
		vars["analysis"] = exp.Analysis
	}
	if prev := st.LatestSketch(); prev != nil && st.Iteration > 0 {
		vars["previous_proof"] = prev.Detailed
	} else {
		vars["previous_proof"] = ""
	}

	text, err := r.Prompts.Render("sketch.md", vars)
	if err != nil {
		return nil, nil, &Failure{Stage: solve.StageProofGeneration, Err: err}
	}
	sketchRes := r.invoke(ctx, call{tag: "sketch", role: model.RolePrimary, req: model.Request{Prompt: text, Thinking: true}})
	if sketchRes.err != nil {
		return nil, nil, &Failure{Stage: solve.StageProofGeneration, Err: sketchRes.err}
	}
	sketch := sketchRes.resp.Text
	models = append(models, sketchRes.model)

	detailed := sketch
	if r.Models.Has(model.RoleRefiner) {
		text, err = r.Prompts.Render("refine.md", prompt.Vars{
			"problem":  st.Problem.Statement,
			"sketch":   sketch,
			"feedback": st.Feedback,
		})
		if err != nil {
			return nil, warnings, &Failure{Stage: solve.StageProofGeneration, Err: err}
		}
		refineRes := r.invoke(ctx, call{tag: "refine", role: model.RoleRefiner, req: model.Request{Prompt: text, Thinking: true}})
		if refineRes.err != nil {
			return nil, warnings, &Failure{Stage: solve.StageProofGeneration, Err: refineRes.err}
		}
		detailed = refineRes.resp.Text
		models = append(models, refineRes.model)

		text, err = r.Prompts.Render("self-correct.md", prompt.Vars{
			"problem": st.Problem.Statement,
			"proof":   detailed,
		})
		if err != nil {
			return nil, warnings, &Failure{Stage: solve.StageProofGeneration, Err: err}
		}
		correctRes := r.invoke(ctx, call{tag: "self-correct", role: model.RoleRefiner, req: model.Request{Prompt: text, Thinking: true}})
		if correctRes.err != nil {
			return nil, warnings, &Failure{Stage: solve.StageProofGeneration, Err: correctRes.err}
		}
		detailed = correctRes.resp.Text
	} else {
		warnings = append(warnings, "no refiner configured, using unrefined sketch as the proof")
	}

	return &solve.StageOutput{
		Kind:      solve.KindSketch,
		Stage:     solve.StageProofGeneration,
		Iteration: st.Iteration,
		Models:    models,
		LatencyMs: time.Since(start).Milliseconds(),
		Sketch:    &solve.ProofSketch{Sketch: sketch, Detailed: detailed},
	}, warnings, nil
}
