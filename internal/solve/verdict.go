package solve

import "fmt"

// VerdictStatus is the outcome tag of one verification attempt.
type VerdictStatus string

const (
	// VerdictRigorous means the proof is fully verified: a formal proof that
	// compiles with no unproved obligations, or a fallback opinion that is
	// affirmative and clears the confidence threshold. Always confidence 1.0.
	VerdictRigorous VerdictStatus = "rigorous"
	// VerdictPartial means the proof compiles but contains unproved
	// obligations, or the checker approved below the confidence threshold.
	// Partial is never acceptable, regardless of confidence.
	VerdictPartial VerdictStatus = "partial"
	// VerdictFailed means the proof was rejected.
	VerdictFailed VerdictStatus = "failed"
	// VerdictUnavailable means no verifier could render an opinion at all.
	VerdictUnavailable VerdictStatus = "unavailable"
)

// VerifyMethod records which verification path produced a verdict.
type VerifyMethod string

const (
	MethodFormal  VerifyMethod = "formal"
	MethodOpinion VerifyMethod = "opinion"
)

// Severity ranks a verification issue.
type Severity string

const (
	SeverityMinor    Severity = "minor"
	SeverityModerate Severity = "moderate"
	SeverityCritical Severity = "critical"
)

// Issue is one problem found during verification.
type Issue struct {
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

// Verdict is the outcome of one verification attempt.
type Verdict struct {
	Status     VerdictStatus `json:"status"`
	Confidence *float64      `json:"confidence,omitempty"`
	Issues     []Issue       `json:"issues,omitempty"`
	Method     VerifyMethod  `json:"method,omitempty"`
	// FormalCode is the formal-system translation, when one was produced.
	FormalCode string `json:"formal_code,omitempty"`
	// Feedback is revision guidance carried into the next generation pass.
	Feedback string `json:"feedback,omitempty"`
}

// Confidence pointer helper.
func Conf(v float64) *float64 { return &v }

// ConfidenceValue returns the confidence, or 0 when absent.
func (v *Verdict) ConfidenceValue() float64 {
	if v.Confidence == nil {
		return 0
	}
	return *v.Confidence
}

// Rigorous builds a terminal success verdict. Confidence is forced to 1.0.
func Rigorous(method VerifyMethod) *Verdict {
	return &Verdict{Status: VerdictRigorous, Confidence: Conf(1.0), Method: method}
}

// HasCritical reports whether any issue is critical.
func (v *Verdict) HasCritical() bool {
	for _, is := range v.Issues {
		if is.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

// Validate enforces the verdict invariants: rigorous requires confidence
// 1.0 and no critical issues; failed requires confidence absent or 0.
func (v *Verdict) Validate() error {
	switch v.Status {
	case VerdictRigorous:
		if v.Confidence == nil || *v.Confidence != 1.0 {
			return fmt.Errorf("rigorous verdict requires confidence 1.0")
		}
		if v.HasCritical() {
			return fmt.Errorf("rigorous verdict cannot carry critical issues")
		}
	case VerdictFailed:
		if v.Confidence != nil && *v.Confidence != 0 {
			return fmt.Errorf("failed verdict requires absent or zero confidence, got %g", *v.Confidence)
		}
	case VerdictPartial, VerdictUnavailable:
		// No confidence constraint.
	default:
		return fmt.Errorf("unknown verdict status %q", v.Status)
	}
	return nil
}

// IssueSummary formats the issue list as revision feedback.
func (v *Verdict) IssueSummary() string {
	if len(v.Issues) == 0 {
		return ""
	}
	out := ""
	for _, is := range v.Issues {
		out += fmt.Sprintf("- [%s] %s\n", is.Severity, is.Description)
	}
	return out
}
