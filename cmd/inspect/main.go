package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/reason-router/internal/provenance"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to reason_router.db")
	last := flag.Int("last", 20, "show N most recent rows")
	showLog := flag.Bool("log", false, "show the solve decision log instead of learning records")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/reason_router.db [--last N] [--log] [--json]")
		os.Exit(2)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if *showLog {
		err = runLogMode(db, *last, *jsonOut)
	} else {
		err = runRecordsMode(db, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region records-mode

type recordRow struct {
	Fingerprint   string    `json:"fingerprint"`
	InitialRegime string    `json:"initial_regime"`
	FinalRegime   string    `json:"final_regime"`
	Accepted      bool      `json:"accepted"`
	RawScore      float64   `json:"raw_score"`
	CreatedAt     time.Time `json:"created_at"`
}

func runRecordsMode(db *sql.DB, last int, jsonOut bool) error {
	rows, err := db.Query(`
		SELECT fingerprint, initial_regime, final_regime, accepted, raw_score, created_at
		FROM learning_records ORDER BY id DESC LIMIT ?`, last)
	if err != nil {
		return fmt.Errorf("query learning_records: %w", err)
	}
	defer rows.Close()

	var out []recordRow
	for rows.Next() {
		var r recordRow
		var accepted int
		var createdAt string
		if err := rows.Scan(&r.Fingerprint, &r.InitialRegime, &r.FinalRegime, &accepted, &r.RawScore, &createdAt); err != nil {
			return err
		}
		r.Accepted = accepted == 1
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			r.CreatedAt = t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(out)
	}
	fmt.Printf("%-16s %-8s %-8s %-8s %8s  %s\n", "FINGERPRINT", "INITIAL", "FINAL", "ACCEPTED", "SCORE", "CREATED")
	for _, r := range out {
		fp := r.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		fmt.Printf("%-16s %-8s %-8s %-8v %8.1f  %s\n",
			fp, r.InitialRegime, r.FinalRegime, r.Accepted, r.RawScore,
			r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// #endregion

// #region log-mode

func runLogMode(db *sql.DB, last int, jsonOut bool) error {
	entries, err := provenance.Recent(db, last)
	if err != nil {
		return err
	}

	if jsonOut {
		type logRow struct {
			SolveID  string    `json:"solve_id"`
			Stage    string    `json:"stage"`
			Regime   string    `json:"regime"`
			Strategy string    `json:"strategy,omitempty"`
			Decision string    `json:"decision"`
			Reason   string    `json:"reason,omitempty"`
			Created  time.Time `json:"created_at"`
		}
		out := make([]logRow, len(entries))
		for i, e := range entries {
			out[i] = logRow{e.SolveID, e.Stage, e.Regime, e.StrategyID, e.Decision, e.Reason, e.CreatedAt}
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("%-10s %-9s %-8s %-16s %-10s %s\n", "SOLVE", "STAGE", "REGIME", "STRATEGY", "DECISION", "REASON")
	for _, e := range entries {
		id := e.SolveID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Printf("%-10s %-9s %-8s %-16s %-10s %s\n",
			id, e.Stage, e.Regime, e.StrategyID, e.Decision, e.Reason)
	}
	return nil
}

// #endregion
