package db

import (
	"database/sql"
	"fmt"
)

// SolveEvent is one row from solve_events.
type SolveEvent struct {
	ID        int64
	SolveID   string
	Event     string
	Stage     string
	Iteration int
	Detail    string
	Timestamp string
}

// ModelCall is one row from model_calls.
type ModelCall struct {
	ID        int64
	SolveID   string
	Stage     string
	Iteration int
	Role      string
	Model     string
	OK        bool
	LatencyMs int64
	Tokens    int
	Error     string
	Timestamp string
}

// VerdictRow is one row from verdicts.
type VerdictRow struct {
	ID         int64
	SolveID    string
	Iteration  int
	Status     string
	Method     string
	Confidence float64
	IssueCount int
	Timestamp  string
}

// LogSolveEvent records a lifecycle event for a solve.
func (d *DB) LogSolveEvent(solveID, event, stage string, iteration int, detail string) error {
	_, err := d.conn.Exec(
		`INSERT INTO solve_events (solve_id, event, stage, iteration, detail) VALUES (?, ?, ?, ?, ?)`,
		solveID, event, stage, iteration, detail,
	)
	if err != nil {
		return fmt.Errorf("log solve event: %w", err)
	}
	return nil
}

// LogModelCall records one model invocation.
func (d *DB) LogModelCall(solveID, stage string, iteration int, role, model string, ok bool, latencyMs int64, tokens int, callErr string) error {
	_, err := d.conn.Exec(
		`INSERT INTO model_calls (solve_id, stage, iteration, role, model, ok, latency_ms, tokens, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		solveID, stage, iteration, role, model, ok, latencyMs, tokens, callErr,
	)
	if err != nil {
		return fmt.Errorf("log model call: %w", err)
	}
	return nil
}

// LogVerdict records one verification outcome.
func (d *DB) LogVerdict(solveID string, iteration int, status, method string, confidence float64, issueCount int) error {
	_, err := d.conn.Exec(
		`INSERT INTO verdicts (solve_id, iteration, status, method, confidence, issue_count)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		solveID, iteration, status, method, confidence, issueCount,
	)
	if err != nil {
		return fmt.Errorf("log verdict: %w", err)
	}
	return nil
}

// GetSolveHistory returns all events for a solve, oldest first.
func (d *DB) GetSolveHistory(solveID string) ([]SolveEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, solve_id, event, COALESCE(stage, ''), COALESCE(iteration, 0), COALESCE(detail, ''), timestamp
		 FROM solve_events WHERE solve_id = ? ORDER BY id ASC`,
		solveID,
	)
	if err != nil {
		return nil, fmt.Errorf("query solve events: %w", err)
	}
	defer rows.Close()

	var events []SolveEvent
	for rows.Next() {
		var e SolveEvent
		if err := rows.Scan(&e.ID, &e.SolveID, &e.Event, &e.Stage, &e.Iteration, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan solve event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// EventsSince returns events for a solve with id greater than afterID.
func (d *DB) EventsSince(solveID string, afterID int64) ([]SolveEvent, error) {
	rows, err := d.conn.Query(
		`SELECT id, solve_id, event, COALESCE(stage, ''), COALESCE(iteration, 0), COALESCE(detail, ''), timestamp
		 FROM solve_events WHERE solve_id = ? AND id > ? ORDER BY id ASC`,
		solveID, afterID,
	)
	if err != nil {
		return nil, fmt.Errorf("query solve events: %w", err)
	}
	defer rows.Close()

	var events []SolveEvent
	for rows.Next() {
		var e SolveEvent
		if err := rows.Scan(&e.ID, &e.SolveID, &e.Event, &e.Stage, &e.Iteration, &e.Detail, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan solve event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetModelCalls returns all model calls for a solve, oldest first.
func (d *DB) GetModelCalls(solveID string) ([]ModelCall, error) {
	rows, err := d.conn.Query(
		`SELECT id, solve_id, stage, iteration, role, COALESCE(model, ''), ok, COALESCE(latency_ms, 0), COALESCE(tokens, 0), COALESCE(error, ''), timestamp
		 FROM model_calls WHERE solve_id = ? ORDER BY id ASC`,
		solveID,
	)
	if err != nil {
		return nil, fmt.Errorf("query model calls: %w", err)
	}
	defer rows.Close()

	var calls []ModelCall
	for rows.Next() {
		var c ModelCall
		if err := rows.Scan(&c.ID, &c.SolveID, &c.Stage, &c.Iteration, &c.Role, &c.Model, &c.OK, &c.LatencyMs, &c.Tokens, &c.Error, &c.Timestamp); err != nil {
			return nil, fmt.Errorf("scan model call: %w", err)
		}
		calls = append(calls, c)
	}
	return calls, rows.Err()
}

// GetVerdicts returns all verdicts for a solve in iteration order.
func (d *DB) GetVerdicts(solveID string) ([]VerdictRow, error) {
	rows, err := d.conn.Query(
		`SELECT id, solve_id, iteration, status, COALESCE(method, ''), COALESCE(confidence, 0), issue_count, timestamp
		 FROM verdicts WHERE solve_id = ? ORDER BY iteration ASC`,
		solveID,
	)
	if err != nil {
		return nil, fmt.Errorf("query verdicts: %w", err)
	}
	defer rows.Close()

	var verdicts []VerdictRow
	for rows.Next() {
		var v VerdictRow
		if err := rows.Scan(&v.ID, &v.SolveID, &v.Iteration, &v.Status, &v.Method, &v.Confidence, &v.IssueCount, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan verdict: %w", err)
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}

// LastVerdict returns the most recent verdict for a solve, or nil.
func (d *DB) LastVerdict(solveID string) (*VerdictRow, error) {
	var v VerdictRow
	err := d.conn.QueryRow(
		`SELECT id, solve_id, iteration, status, COALESCE(method, ''), COALESCE(confidence, 0), issue_count, timestamp
		 FROM verdicts WHERE solve_id = ? ORDER BY iteration DESC LIMIT 1`,
		solveID,
	).Scan(&v.ID, &v.SolveID, &v.Iteration, &v.Status, &v.Method, &v.Confidence, &v.IssueCount, &v.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last verdict: %w", err)
	}
	return &v, nil
}
