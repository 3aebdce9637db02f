// Package learner persists reasoning outcomes and turns them into regime
// suggestions for future assessments. The backing store is append-only with a
// bounded history; eviction drops the oldest rows first.
package learner

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/reason-router/internal/assess"
	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #region schema

const learningRecordsSchema = `
CREATE TABLE IF NOT EXISTS learning_records (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    fingerprint    TEXT NOT NULL,
    initial_regime TEXT NOT NULL,
    final_regime   TEXT NOT NULL,
    accepted       INTEGER NOT NULL DEFAULT 0,
    raw_score      REAL NOT NULL,
    features       TEXT NOT NULL,
    created_at     TEXT NOT NULL
);
`

const learningRecordsIndex = `
CREATE INDEX IF NOT EXISTS idx_learning_records_fingerprint
ON learning_records(fingerprint);
`

// #endregion

// #region store

// Store is the durable outcome store. Record and Suggest are safe for
// concurrent use from independent solve calls; each append is a single
// transaction, and reads may observe a slightly stale snapshot.
type Store struct {
	db  *sql.DB
	cfg config.Learner
	log *zap.SugaredLogger
}

// Open loads the store at cfg.DBPath, creating it if missing. A store that
// cannot be opened is not fatal: the learner falls back to an empty in-memory
// history with a warning, since suggestions are advisory.
func Open(cfg config.Learner, log *zap.SugaredLogger) *Store {
	db, err := openDB(cfg.DBPath)
	if err != nil {
		log.Warnw("outcome store unavailable, starting with empty history",
			"path", cfg.DBPath, "error", err)
		db, err = openDB(":memory:")
		if err != nil {
			// :memory: cannot realistically fail; treat it like the file case.
			log.Errorw("in-memory outcome store failed", "error", err)
		}
	}
	return &Store{db: db, cfg: cfg, log: log}
}

func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: a pooled :memory: handle is a different database per
	// connection, and a single writer avoids SQLITE_BUSY on file stores.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(learningRecordsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if _, err := db.Exec(learningRecordsIndex); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate index: %w", err)
	}
	return db, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the provenance log and inspect tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion

// #region record

// Record appends one learning record and evicts history beyond capacity.
// The insert and eviction run in one transaction so concurrent callers never
// observe a partial write.
func (s *Store) Record(rec LearningRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback()

	accepted := 0
	if rec.Accepted {
		accepted = 1
	}
	_, err = tx.Exec(`
		INSERT INTO learning_records
		(fingerprint, initial_regime, final_regime, accepted, raw_score, features, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.Fingerprint,
		string(rec.InitialRegime),
		string(rec.FinalRegime),
		accepted,
		rec.RawScore,
		string(features),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}

	// Ring buffer policy: oldest rows beyond capacity go first.
	_, err = tx.Exec(`
		DELETE FROM learning_records
		WHERE id NOT IN (
			SELECT id FROM learning_records ORDER BY id DESC LIMIT ?
		)`,
		s.cfg.HistoryCapacity,
	)
	if err != nil {
		return fmt.Errorf("evict records: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// #endregion

// #region suggest

// Suggest returns a signed score delta for a problem with the given feature
// vector, derived from the nearest stored records. Returns 0 when no similar
// history exists. Never fails: lookup errors degrade to a neutral suggestion.
func (s *Store) Suggest(features []float64) float64 {
	rows, err := s.db.Query(`
		SELECT final_regime, accepted, raw_score, features
		FROM learning_records
		ORDER BY id DESC LIMIT ?`,
		s.cfg.HistoryCapacity,
	)
	if err != nil {
		s.log.Warnw("suggestion lookup failed", "error", err)
		return 0
	}
	defer rows.Close()

	type neighbor struct {
		dist   float64
		weight float64
		delta  float64
	}
	var neighbors []neighbor

	for rows.Next() {
		var regime string
		var accepted int
		var rawScore float64
		var featuresJSON string
		if err := rows.Scan(&regime, &accepted, &rawScore, &featuresJSON); err != nil {
			s.log.Warnw("suggestion row scan failed", "error", err)
			return 0
		}
		var stored []float64
		if err := json.Unmarshal([]byte(featuresJSON), &stored); err != nil {
			continue
		}
		dist, ok := euclidean(features, stored)
		if !ok || dist > s.cfg.NeighborRadius {
			continue
		}
		weight := 1 / (1 + dist)
		if accepted == 0 {
			// Give-up outcomes still carry signal (the final regime was the
			// best known), but at half weight.
			weight *= 0.5
		}
		neighbors = append(neighbors, neighbor{
			dist:   dist,
			weight: weight,
			delta:  assess.Regime(regime).Center() - rawScore,
		})
	}
	if err := rows.Err(); err != nil {
		s.log.Warnw("suggestion iteration failed", "error", err)
		return 0
	}
	if len(neighbors) == 0 {
		return 0
	}

	sort.Slice(neighbors, func(i, j int) bool { return neighbors[i].dist < neighbors[j].dist })
	if len(neighbors) > s.cfg.NeighborK {
		neighbors = neighbors[:s.cfg.NeighborK]
	}

	var weightedSum, totalWeight float64
	for _, n := range neighbors {
		weightedSum += n.delta * n.weight
		totalWeight += n.weight
	}
	return weightedSum / totalWeight
}

func euclidean(a, b []float64) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum), true
}

// #endregion

// #region recent

// Recent returns up to n most recent records, newest first.
func (s *Store) Recent(n int) ([]LearningRecord, error) {
	rows, err := s.db.Query(`
		SELECT fingerprint, initial_regime, final_regime, accepted, raw_score, features, created_at
		FROM learning_records
		ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent records: %w", err)
	}
	defer rows.Close()

	var out []LearningRecord
	for rows.Next() {
		var rec LearningRecord
		var initial, final, featuresJSON, createdAt string
		var accepted int
		if err := rows.Scan(&rec.Fingerprint, &initial, &final, &accepted, &rec.RawScore, &featuresJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.InitialRegime = assess.Regime(initial)
		rec.FinalRegime = assess.Regime(final)
		rec.Accepted = accepted == 1
		if err := json.Unmarshal([]byte(featuresJSON), &rec.Features); err != nil {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			rec.CreatedAt = t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM learning_records`).Scan(&n)
	return n, err
}

// #endregion
