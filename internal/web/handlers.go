package web

import (
	"net/http"
	"os"

	"github.com/lucasnoah/proofmill/internal/analytics"
	"github.com/lucasnoah/proofmill/internal/solve"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// solveSummary is the list-view projection of a solve state.
type solveSummary struct {
	ID        string `json:"id"`
	Statement string `json:"statement"`
	Status    string `json:"status"`
	Stage     string `json:"stage"`
	Iteration int    `json:"iteration"`
	Verdict   string `json:"verdict,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func summarize(st *solve.State) solveSummary {
	out := solveSummary{
		ID:        st.Problem.ID,
		Statement: st.Problem.Statement,
		Status:    st.Status,
		Stage:     string(st.CurrentStage),
		Iteration: st.Iteration,
		CreatedAt: st.CreatedAt,
		UpdatedAt: st.UpdatedAt,
	}
	if st.LastVerdict != nil {
		out.Verdict = string(st.LastVerdict.Status)
	}
	return out
}

func (s *Server) handleListSolves(w http.ResponseWriter, r *http.Request) {
	states, err := s.store.List(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	summaries := make([]solveSummary, 0, len(states))
	for i := range states {
		summaries = append(summaries, summarize(&states[i]))
	}
	writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) handleGetSolve(w http.ResponseWriter, r *http.Request) {
	st, err := s.store.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleGetFinal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.store.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	data, err := os.ReadFile(s.store.FinalPath(id))
	if err != nil {
		writeError(w, http.StatusNotFound, "final document not yet produced")
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	since := r.URL.Query().Get("since")

	summary, err := analytics.QuerySolveSummary(s.db, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	verdicts, err := analytics.QueryVerdictBreakdown(s.db, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	models, err := analytics.QueryModelStats(s.db, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	iterations, err := analytics.QueryIterationDist(s.db, since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary":    summary,
		"verdicts":   verdicts,
		"models":     models,
		"iterations": iterations,
	})
}
