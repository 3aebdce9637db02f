package assess

// #region regime

// Regime is the discrete complexity tier governing strategy choice.
type Regime string

const (
	RegimeLow    Regime = "low"
	RegimeMedium Regime = "medium"
	RegimeHigh   Regime = "high"
)

// Rank orders regimes for escalation comparisons. Unknown regimes rank lowest.
func (r Regime) Rank() int {
	switch r {
	case RegimeMedium:
		return 1
	case RegimeHigh:
		return 2
	default:
		return 0
	}
}

// Next returns the next regime up, or false if already at the top.
func (r Regime) Next() (Regime, bool) {
	switch r {
	case RegimeLow:
		return RegimeMedium, true
	case RegimeMedium:
		return RegimeHigh, true
	default:
		return r, false
	}
}

// Center is the midpoint of a regime's score band on the 0..100 scale,
// used by the learner to derive correction deltas.
func (r Regime) Center() float64 {
	switch r {
	case RegimeMedium:
		return 35
	case RegimeHigh:
		return 75
	default:
		return 10
	}
}

// #endregion

// #region signals

// Signal names, in the fixed order used for feature vectors.
const (
	SignalLexical    = "lexical"
	SignalStructural = "structural"
	SignalDomain     = "domain"
	SignalCognitive  = "cognitive"
)

// SignalNames is the canonical dimension order for feature vectors.
var SignalNames = []string{SignalLexical, SignalStructural, SignalDomain, SignalCognitive}

// #endregion

// #region assessment

// Assessment is the immutable result of scoring one problem.
type Assessment struct {
	// RawScore is the weighted heuristic score before the learner adjustment.
	RawScore float64
	// AdjustedScore is RawScore plus the clamped learner suggestion.
	AdjustedScore float64
	Regime        Regime
	// Signals holds each heuristic's normalized value in [0,1].
	Signals map[string]float64
	// SignalBreakdown holds each heuristic's weighted contribution to RawScore.
	SignalBreakdown map[string]float64
	// SuggestedAdjustment is the clamped delta supplied by the outcome store.
	// Zero when no similar history exists.
	SuggestedAdjustment float64
}

// Features returns the normalized signal values in canonical dimension order.
func (a Assessment) Features() []float64 {
	out := make([]float64, len(SignalNames))
	for i, name := range SignalNames {
		out[i] = a.Signals[name]
	}
	return out
}

// #endregion
