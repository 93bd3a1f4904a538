package stage

import (
	"context"
	"time"

	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/solve"
)

// hypothesisCap bounds how many hypotheses are fed into downstream prompts.
const hypothesisCap = 10

// Diversify runs the explorer and the primary analyst in parallel against
// the accumulated hypotheses. Either contributor alone is enough.
func (r *Runner) Diversify(ctx context.Context, st *solve.State) (*solve.StageOutput, []string, error) {
	start := time.Now()
	r.logf("stage: diversification")

	hypotheses := formatHypotheses(st.Hypotheses(hypothesisCap))

	explore, err := r.Prompts.Render("explore.md", prompt.Vars{
		"problem":    st.Problem.Statement,
		"hypotheses": hypotheses,
	})
	if err != nil {
		return nil, nil, &Failure{Stage: solve.StageDiversification, Err: err}
	}
	analyze, err := r.Prompts.Render("analyze.md", prompt.Vars{
		"problem":    st.Problem.Statement,
		"hypotheses": hypotheses,
	})
	if err != nil {
		return nil, nil, &Failure{Stage: solve.StageDiversification, Err: err}
	}

	results := r.fanOut(ctx, []call{
		{tag: "explore", role: model.RoleExplorer, req: model.Request{Prompt: explore, Thinking: true}},
		{tag: "analyze", role: model.RolePrimary, req: model.Request{Prompt: analyze, Thinking: true}},
	})
	ok, warnings, err := collect(solve.StageDiversification, results)
	if err != nil {
		return nil, warnings, err
	}

	report := &solve.ExplorationReport{}
	var models []string
	for _, res := range ok {
		switch res.tag {
		case "explore":
			report.Code = res.resp.Text
		case "analyze":
			report.Analysis = res.resp.Text
		}
		models = append(models, res.model)
	}

	return &solve.StageOutput{
		Kind:        solve.KindExploration,
		Stage:       solve.StageDiversification,
		Iteration:   st.Iteration,
		Models:      models,
		LatencyMs:   time.Since(start).Milliseconds(),
		Exploration: report,
	}, warnings, nil
}
