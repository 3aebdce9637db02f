package learner

// #region imports
import (
	"time"

	"github.com/danielpatrickdp/reason-router/internal/assess"
)

// #endregion

// #region learning-record

// LearningRecord is the persisted unit of the outcome store. For a given
// fingerprint, the most recent record's FinalRegime is the best-known correct
// regime; similarity lookups over Features only ever produce suggestions,
// never authoritative overrides.
type LearningRecord struct {
	Fingerprint   string
	InitialRegime assess.Regime
	FinalRegime   assess.Regime
	Accepted      bool
	// RawScore is the assessment's pre-adjustment score at solve time.
	RawScore float64
	// Features holds the normalized signal values in assess.SignalNames order.
	Features  []float64
	CreatedAt time.Time
}

// #endregion
