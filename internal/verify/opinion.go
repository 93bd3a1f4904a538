package verify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lucasnoah/proofmill/internal/model"
	"github.com/lucasnoah/proofmill/internal/prompt"
	"github.com/lucasnoah/proofmill/internal/solve"
)

// Opinion verifies a proof by asking an adversarial checker model for a
// structured judgement. An affirmative judgement at or above Threshold is
// normalized to a rigorous verdict.
type Opinion struct {
	Models    *model.Registry
	Prompts   *prompt.Library
	Threshold float64
}

func (o *Opinion) Verify(ctx context.Context, problem, proof string) (*solve.Verdict, error) {
	checker, err := o.Models.Get(model.RoleChecker)
	if err != nil {
		if model.IsUnsupported(err) {
			return &solve.Verdict{
				Status:   solve.VerdictUnavailable,
				Method:   solve.MethodOpinion,
				Feedback: "no checker model configured",
			}, nil
		}
		return nil, err
	}

	text, err := o.Prompts.Render("verify.md", prompt.Vars{
		"problem": problem,
		"proof":   proof,
	})
	if err != nil {
		return nil, err
	}

	resp, err := checker.Invoke(ctx, model.Request{
		Prompt:      text,
		Temperature: 0.1,
	})
	if err != nil {
		if model.IsUnsupported(err) {
			return &solve.Verdict{
				Status:   solve.VerdictUnavailable,
				Method:   solve.MethodOpinion,
				Feedback: fmt.Sprintf("checker unavailable: %v", err),
			}, nil
		}
		return nil, fmt.Errorf("checker call: %w", err)
	}

	v, err := ParseOpinion(resp.Text, o.Threshold)
	if err != nil {
		return nil, fmt.Errorf("checker response: %w", err)
	}
	return v, nil
}

// ParseOpinion parses the structured checker output:
//
//	VERIFICATION_STATUS: VALID | INVALID | NEEDS_REVISION
//	CONFIDENCE: 0.95
//	ISSUES_FOUND:
//	- [CRITICAL] ...
//
// VALID with confidence at or above threshold maps to a rigorous verdict.
// VALID below threshold maps to partial, NEEDS_REVISION to partial, and
// INVALID to failed.
func ParseOpinion(text string, threshold float64) (*solve.Verdict, error) {
	status := ""
	confidence := 0.0
	haveConfidence := false
	var issues []solve.Issue

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "VERIFICATION_STATUS:"):
			status = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(line, "VERIFICATION_STATUS:")))
		case strings.HasPrefix(line, "CONFIDENCE:"):
			raw := strings.TrimSpace(strings.TrimPrefix(line, "CONFIDENCE:"))
			c, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("unparseable confidence %q", raw)
			}
			confidence = c
			haveConfidence = true
		case strings.HasPrefix(line, "- ["):
			if is, ok := parseIssue(line); ok {
				issues = append(issues, is)
			}
		}
	}

	if status == "" {
		return nil, fmt.Errorf("no VERIFICATION_STATUS line in checker output")
	}
	if !haveConfidence {
		return nil, fmt.Errorf("no CONFIDENCE line in checker output")
	}
	if confidence < 0 || confidence > 1 {
		return nil, fmt.Errorf("confidence %g out of range [0,1]", confidence)
	}

	switch status {
	case "VALID":
		if confidence >= threshold && !hasCritical(issues) {
			v := solve.Rigorous(solve.MethodOpinion)
			v.Issues = issues
			return v, nil
		}
		v := &solve.Verdict{
			Status:     solve.VerdictPartial,
			Confidence: solve.Conf(confidence),
			Issues:     issues,
			Method:     solve.MethodOpinion,
		}
		v.Feedback = v.IssueSummary()
		return v, nil
	case "NEEDS_REVISION":
		v := &solve.Verdict{
			Status:     solve.VerdictPartial,
			Confidence: solve.Conf(confidence),
			Issues:     issues,
			Method:     solve.MethodOpinion,
		}
		v.Feedback = v.IssueSummary()
		return v, nil
	case "INVALID":
		v := &solve.Verdict{
			Status: solve.VerdictFailed,
			Issues: issues,
			Method: solve.MethodOpinion,
		}
		v.Feedback = v.IssueSummary()
		return v, nil
	default:
		return nil, fmt.Errorf("unknown verification status %q", status)
	}
}

func parseIssue(line string) (solve.Issue, bool) {
	rest := strings.TrimPrefix(line, "- [")
	end := strings.Index(rest, "]")
	if end < 0 {
		return solve.Issue{}, false
	}
	desc := strings.TrimSpace(rest[end+1:])
	if desc == "" || strings.EqualFold(desc, "none") {
		return solve.Issue{}, false
	}
	var sev solve.Severity
	switch strings.ToUpper(strings.TrimSpace(rest[:end])) {
	case "CRITICAL":
		sev = solve.SeverityCritical
	case "MODERATE":
		sev = solve.SeverityModerate
	case "MINOR":
		sev = solve.SeverityMinor
	default:
		return solve.Issue{}, false
	}
	return solve.Issue{Description: desc, Severity: sev}, true
}

func hasCritical(issues []solve.Issue) bool {
	for _, is := range issues {
		if is.Severity == solve.SeverityCritical {
			return true
		}
	}
	return false
}
