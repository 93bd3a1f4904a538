package stage

import (
	"context"

	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/solve"
)

// ReviseFeedback turns a rejected verdict into revision guidance for the
// next proof attempt. When a checker model is available it elaborates the
// issues into concrete advice; otherwise the raw issue summary is used.
// Feedback generation never fails the solve.
func (r *Runner) ReviseFeedback(ctx context.Context, st *solve.State, v *solve.Verdict) string {
	fallback := v.Feedback
	if fallback == "" {
		fallback = v.IssueSummary()
	}

	sketch := st.LatestSketch()
	if sketch == nil || !r.Models.Has(model.RoleChecker) || len(v.Issues) == 0 {
		return fallback
	}

	text, err := r.Prompts.Render("feedback.md", prompt.Vars{
		"problem": st.Problem.Statement,
		"proof":   sketch.Detailed,
		"issues":  v.IssueSummary(),
	})
	if err != nil {
		return fallback
	}
	res := r.invoke(ctx, call{tag: "feedback", role: model.RoleChecker, req: model.Request{Prompt: text}})
	if res.err != nil {
		r.logf("feedback generation failed, using issue summary: %v", res.err)
		return fallback
	}
	return res.resp.Text
}
