// Package analytics aggregates the SQLite event log into summary views for
// the analytics CLI command and the status server.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// SolveSummary aggregates solve outcomes.
type SolveSummary struct {
	Total         int     `json:"total"`
	Accepted      int     `json:"accepted"`
	Aborted       int     `json:"aborted"`
	Errored       int     `json:"errored"`
	AvgIterations float64 `json:"avg_iterations"`
}

// QuerySolveSummary tallies solve outcomes from the event log. Pass "" for
// since to include all history.
func QuerySolveSummary(database DB, since string) (*SolveSummary, error) {
	query := `
		SELECT event, COALESCE(iteration, 0)
		FROM solve_events
		WHERE event IN ('solve_accepted', 'solve_aborted', 'solve_error')`
	args := []any{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query solve summary: %w", err)
	}
	defer rows.Close()

	summary := &SolveSummary{}
	totalIterations := 0
	for rows.Next() {
		var event string
		var iteration int
		if err := rows.Scan(&event, &iteration); err != nil {
			return nil, fmt.Errorf("scan solve summary: %w", err)
		}
		summary.Total++
		totalIterations += iteration
		switch event {
		case "solve_accepted":
			summary.Accepted++
		case "solve_aborted":
			summary.Aborted++
		case "solve_error":
			summary.Errored++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if summary.Total > 0 {
		summary.AvgIterations = float64(totalIterations) / float64(summary.Total)
	}
	return summary, nil
}

// VerdictBreakdown counts verdicts per status and method.
type VerdictBreakdown struct {
	Status        string  `json:"status"`
	Method        string  `json:"method"`
	Count         int     `json:"count"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// QueryVerdictBreakdown groups verdicts by status and verification method.
func QueryVerdictBreakdown(database DB, since string) ([]VerdictBreakdown, error) {
	query := `
		SELECT status, COALESCE(method, ''), COUNT(*), AVG(COALESCE(confidence, 0))
		FROM verdicts`
	args := []any{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY status, method ORDER BY COUNT(*) DESC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query verdict breakdown: %w", err)
	}
	defer rows.Close()

	var breakdown []VerdictBreakdown
	for rows.Next() {
		var b VerdictBreakdown
		if err := rows.Scan(&b.Status, &b.Method, &b.Count, &b.AvgConfidence); err != nil {
			return nil, fmt.Errorf("scan verdict breakdown: %w", err)
		}
		breakdown = append(breakdown, b)
	}
	return breakdown, rows.Err()
}

// ModelStats holds call statistics for one model.
type ModelStats struct {
	Model        string  `json:"model"`
	Calls        int     `json:"calls"`
	Failures     int     `json:"failures"`
	FailureRate  float64 `json:"failure_rate"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	P95LatencyMs float64 `json:"p95_latency_ms"`
	TotalTokens  int     `json:"total_tokens"`
}

// QueryModelStats aggregates per-model call counts, failure rates and
// latency percentiles.
func QueryModelStats(database DB, since string) ([]ModelStats, error) {
	query := `
		SELECT COALESCE(model, ''), ok, COALESCE(latency_ms, 0), COALESCE(tokens, 0)
		FROM model_calls
		WHERE model != ''`
	args := []any{}
	if since != "" {
		query += ` AND timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query model stats: %w", err)
	}
	defer rows.Close()

	type acc struct {
		calls     int
		failures  int
		latencies []float64
		tokens    int
	}
	byModel := make(map[string]*acc)
	for rows.Next() {
		var model string
		var ok bool
		var latency int64
		var tokens int
		if err := rows.Scan(&model, &ok, &latency, &tokens); err != nil {
			return nil, fmt.Errorf("scan model stats: %w", err)
		}
		a := byModel[model]
		if a == nil {
			a = &acc{}
			byModel[model] = a
		}
		a.calls++
		if !ok {
			a.failures++
		} else {
			a.latencies = append(a.latencies, float64(latency))
		}
		a.tokens += tokens
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var stats []ModelStats
	for model, a := range byModel {
		sort.Float64s(a.latencies)
		s := ModelStats{
			Model:        model,
			Calls:        a.calls,
			Failures:     a.failures,
			FailureRate:  float64(a.failures) / float64(a.calls),
			P95LatencyMs: percentile(a.latencies, 95),
			TotalTokens:  a.tokens,
		}
		if len(a.latencies) > 0 {
			sum := 0.0
			for _, l := range a.latencies {
				sum += l
			}
			s.AvgLatencyMs = sum / float64(len(a.latencies))
		}
		stats = append(stats, s)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Calls > stats[j].Calls })
	return stats, nil
}

// IterationDist is the distribution of verification iterations per solve.
type IterationDist struct {
	Iterations int `json:"iterations"`
	Solves     int `json:"solves"`
}

// QueryIterationDist buckets solves by how many verification iterations
// they consumed.
func QueryIterationDist(database DB, since string) ([]IterationDist, error) {
	query := `
		SELECT max_iter, COUNT(*) FROM (
			SELECT solve_id, MAX(iteration) as max_iter
			FROM verdicts`
	args := []any{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += `
			GROUP BY solve_id
		) GROUP BY max_iter ORDER BY max_iter ASC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query iteration distribution: %w", err)
	}
	defer rows.Close()

	var dist []IterationDist
	for rows.Next() {
		var d IterationDist
		if err := rows.Scan(&d.Iterations, &d.Solves); err != nil {
			return nil, fmt.Errorf("scan iteration distribution: %w", err)
		}
		dist = append(dist, d)
	}
	return dist, rows.Err()
}

// percentile returns the p-th percentile of a sorted slice using nearest
// rank. Returns 0 for empty input.
func percentile(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(float64(p)/100*float64(len(sorted)))) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
