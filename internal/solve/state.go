package solve

import "time"

// Solve request status values.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusAccepted   = "accepted"
	StatusAborted    = "aborted"
	StatusError      = "error"
)

// State is the mutable aggregate threaded through one solve request.
// Exactly one State exists per request and it is owned exclusively by the
// orchestrator; stage runners read it and receive outputs back through the
// orchestrator, never by writing History themselves.
type State struct {
	Problem      Problem       `json:"problem"`
	Status       string        `json:"status"`
	CurrentStage Stage         `json:"current_stage"`
	Iteration    int           `json:"iteration"`
	History      []StageOutput `json:"history"`
	LastVerdict  *Verdict      `json:"last_verdict,omitempty"`
	// Feedback carries the latest verdict's issues into the next
	// proof generation pass.
	Feedback string `json:"feedback,omitempty"`
	// Errors logs non-fatal contributor failures absorbed by fan-in.
	Errors    []string `json:"errors,omitempty"`
	Terminal  bool     `json:"terminal"`
	CreatedAt string   `json:"created_at"`
	UpdatedAt string   `json:"updated_at"`
}

// NewState creates the initial state for a problem.
func NewState(problem Problem) *State {
	now := time.Now().UTC().Format(time.RFC3339)
	return &State{
		Problem:      problem,
		Status:       StatusPending,
		CurrentStage: StageDecomposition,
		History:      []StageOutput{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Append records a stage output. History is append-only: outputs are ordered
// by stage-completion time and never mutated in place.
func (s *State) Append(out StageOutput) {
	s.History = append(s.History, out)
	if out.Kind == KindVerdict {
		s.LastVerdict = out.Verdict
	}
	s.touch()
}

// RecordError logs a non-fatal error absorbed during a stage.
func (s *State) RecordError(msg string) {
	s.Errors = append(s.Errors, msg)
	s.touch()
}

// EnterStage moves the state to the given stage.
func (s *State) EnterStage(stage Stage) {
	s.CurrentStage = stage
	s.Status = StatusInProgress
	s.touch()
}

// Finish marks the state terminal with the given status.
func (s *State) Finish(status string) {
	s.Status = status
	s.Terminal = true
	s.touch()
}

func (s *State) touch() {
	s.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
}

// Hypotheses returns all accumulated hypotheses, capped at limit (0 = all).
func (s *State) Hypotheses(limit int) []Hypothesis {
	var hs []Hypothesis
	for _, out := range s.History {
		if out.Kind == KindHypotheses {
			hs = append(hs, out.Hypotheses...)
		}
	}
	if limit > 0 && len(hs) > limit {
		hs = hs[:limit]
	}
	return hs
}

// Exploration returns the most recent exploration report, or nil.
func (s *State) Exploration() *ExplorationReport {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Kind == KindExploration {
			return s.History[i].Exploration
		}
	}
	return nil
}

// LatestSketch returns the most recent proof sketch, or nil.
func (s *State) LatestSketch() *ProofSketch {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Kind == KindSketch {
			return s.History[i].Sketch
		}
	}
	return nil
}

// Verdicts returns all recorded verdicts in order.
func (s *State) Verdicts() []*Verdict {
	var vs []*Verdict
	for _, out := range s.History {
		if out.Kind == KindVerdict {
			vs = append(vs, out.Verdict)
		}
	}
	return vs
}

// FinalOutput returns the integration output, or nil if not yet produced.
func (s *State) FinalOutput() *FinalDocument {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Kind == KindFinal {
			return s.History[i].Final
		}
	}
	return nil
}
