package stage

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/solve"
)

var numberedItemRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*])\s+(.+)$`)

// Decompose runs the primary and lateral decomposition models in parallel
// and merges their hypotheses. One contributor failing is tolerated; both
// failing fails the stage.
func (r *Runner) Decompose(ctx context.Context, st *solve.State) (*solve.StageOutput, []string, error) {
	start := time.Now()
	r.logf("stage: decomposition")

	primary, err := r.Prompts.Render("decompose-primary.md", prompt.Vars{
		"problem": st.Problem.Statement,
	})
	if err != nil {
		return nil, nil, &Failure{Stage: solve.StageDecomposition, Err: err}
	}
	lateral, err := r.Prompts.Render("decompose-lateral.md", prompt.Vars{
		"problem": st.Problem.Statement,
	})
	if err != nil {
		return nil, nil, &Failure{Stage: solve.StageDecomposition, Err: err}
	}

	results := r.fanOut(ctx, []call{
		{tag: "primary", role: model.RolePrimary, req: model.Request{Prompt: primary}},
		{tag: "lateral", role: model.RoleLateral, req: model.Request{Prompt: lateral}},
	})
	ok, warnings, err := collect(solve.StageDecomposition, results)
	if err != nil {
		return nil, warnings, err
	}

	var hypotheses []solve.Hypothesis
	var models []string
	for _, res := range ok {
		hypotheses = append(hypotheses, parseHypotheses(res.resp.Text, res.model)...)
		models = append(models, res.model)
	}
	if len(hypotheses) == 0 {
		return nil, warnings, &Failure{Stage: solve.StageDecomposition, Err: errNoHypotheses}
	}

	return &solve.StageOutput{
		Kind:       solve.KindHypotheses,
		Stage:      solve.StageDecomposition,
		Iteration:  st.Iteration,
		Models:     models,
		LatencyMs:  time.Since(start).Milliseconds(),
		Hypotheses: hypotheses,
	}, warnings, nil
}

var errNoHypotheses = &parseError{msg: "no hypotheses could be parsed from any contributor"}

type parseError struct{ msg string }

func (e *parseError) Error() string { return e.msg }

// parseHypotheses extracts list items from a model response. When the text
// contains no recognizable list the whole response becomes one hypothesis.
func parseHypotheses(text, source string) []solve.Hypothesis {
	var hs []solve.Hypothesis
	for _, line := range strings.Split(text, "\n") {
		if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			item := strings.TrimSpace(m[1])
			if item != "" {
				hs = append(hs, solve.Hypothesis{Text: item, Source: source})
			}
		}
	}
	if len(hs) == 0 {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			hs = append(hs, solve.Hypothesis{Text: trimmed, Source: source})
		}
	}
	return hs
}
