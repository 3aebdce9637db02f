// Package provenance records the decision trace of each solve call: one row
// per state transition, written beside the learning records so inspect
// tooling can reconstruct why a regime or strategy was chosen.
package provenance

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema

const solveLogSchema = `
CREATE TABLE IF NOT EXISTS solve_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    solve_id    TEXT NOT NULL,
    stage       TEXT NOT NULL,
    regime      TEXT NOT NULL,
    strategy_id TEXT,
    decision    TEXT NOT NULL,
    reason      TEXT,
    created_at  TEXT NOT NULL
);
`

// EnsureSchema creates the solve_log table if missing.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(solveLogSchema); err != nil {
		return fmt.Errorf("migrate solve_log: %w", err)
	}
	return nil
}

// #endregion

// #region entry

// Entry is one solve decision.
type Entry struct {
	SolveID    string
	Stage      string // assess | execute | evaluate | terminal
	Regime     string
	StrategyID string
	Decision   string // e.g. accept, escalate, give_up
	Reason     string
	CreatedAt  time.Time
}

// #endregion

// #region log-decision

// LogDecision appends one entry to the solve log.
func LogDecision(db *sql.DB, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := db.Exec(
		`INSERT INTO solve_log (solve_id, stage, regime, strategy_id, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.SolveID,
		entry.Stage,
		entry.Regime,
		nullIfEmpty(entry.StrategyID),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion

// #region list

// Recent returns up to n most recent entries, newest first.
func Recent(db *sql.DB, n int) ([]Entry, error) {
	rows, err := db.Query(`
		SELECT solve_id, stage, regime, COALESCE(strategy_id, ''), decision, COALESCE(reason, ''), created_at
		FROM solve_log ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("list solve_log: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.SolveID, &e.Stage, &e.Regime, &e.StrategyID, &e.Decision, &e.Reason, &createdAt); err != nil {
			return nil, fmt.Errorf("scan solve_log: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion
