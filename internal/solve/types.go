package solve

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage identifies one phase of the fixed pipeline order.
type Stage string

const (
	StageDecomposition   Stage = "decomposition"
	StageDiversification Stage = "diversification"
	StageProofGeneration Stage = "proof_generation"
	StageVerification    Stage = "verification"
	StageIntegration     Stage = "integration"
)

// StageOrder is the fixed pipeline sequence. Control may loop from
// verification back to proof_generation; that is the only cycle.
var StageOrder = []Stage{
	StageDecomposition,
	StageDiversification,
	StageProofGeneration,
	StageVerification,
	StageIntegration,
}

// Problem is the immutable input to one solve request.
type Problem struct {
	ID        string `json:"id"`
	Statement string `json:"statement"`
	CreatedAt string `json:"created_at"`
}

// NewProblem creates a Problem with a fresh ID.
func NewProblem(statement string) Problem {
	return Problem{
		ID:        uuid.NewString(),
		Statement: statement,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// OutputKind tags the payload variant of a StageOutput.
type OutputKind string

const (
	KindHypotheses  OutputKind = "hypotheses"
	KindExploration OutputKind = "exploration"
	KindSketch      OutputKind = "sketch"
	KindVerdict     OutputKind = "verdict"
	KindFinal       OutputKind = "final"
)

// StageOutput is one entry in the append-only solve history. Exactly one
// payload field is set, selected by Kind.
type StageOutput struct {
	Kind      OutputKind `json:"kind"`
	Stage     Stage      `json:"stage"`
	Iteration int        `json:"iteration"`
	Models    []string   `json:"models,omitempty"`
	LatencyMs int64      `json:"latency_ms"`

	Hypotheses  []Hypothesis       `json:"hypotheses,omitempty"`
	Exploration *ExplorationReport `json:"exploration,omitempty"`
	Sketch      *ProofSketch       `json:"sketch,omitempty"`
	Verdict     *Verdict           `json:"verdict,omitempty"`
	Final       *FinalDocument     `json:"final,omitempty"`
}

// Hypothesis is one candidate proof approach from the decomposition stage.
type Hypothesis struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

// ExplorationReport holds the diversification stage output: generated
// exploration code plus a deep analysis of the hypotheses.
type ExplorationReport struct {
	Code     string `json:"code,omitempty"`
	Analysis string `json:"analysis,omitempty"`
}

// ProofSketch is the proof generation output: the initial sketch and the
// refined detailed proof derived from it.
type ProofSketch struct {
	Sketch   string `json:"sketch"`
	Detailed string `json:"detailed"`
}

// FinalDocument is the integrated, publication-ready result.
type FinalDocument struct {
	Markdown   string        `json:"markdown"`
	Status     VerdictStatus `json:"status"`
	Confidence float64       `json:"confidence"`
	Iterations int           `json:"iterations"`
}

// RetryPolicy bounds the verification and regeneration loop.
type RetryPolicy struct {
	MaxIterations       int     `json:"max_iterations"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// Validate checks the policy bounds.
func (p RetryPolicy) Validate() error {
	if p.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be positive, got %d", p.MaxIterations)
	}
	if p.ConfidenceThreshold < 0 || p.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1], got %g", p.ConfidenceThreshold)
	}
	return nil
}
