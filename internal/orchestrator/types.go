package orchestrator

// #region imports
import (
	"github.com/danielpatrickdp/reason-router/internal/assess"
	"github.com/danielpatrickdp/reason-router/internal/retrieval"
	"github.com/danielpatrickdp/reason-router/internal/strategy"
)

// #endregion

// #region solve-options

// SolveOptions shape one solve call.
type SolveOptions struct {
	Mode strategy.Mode
	// ForceRegime pins the regime; the assessment still runs for learning.
	ForceRegime *assess.Regime
	// RetrievalSource, when set, augments the problem with retrieved context
	// before assessment. Retrieval failure falls back to the bare problem.
	RetrievalSource *retrieval.Source
}

// #endregion

// #region evaluation

// Evaluation is the adequacy judgement for one attempt.
type Evaluation struct {
	Adequate bool
	// Confidence is the signal used against the acceptance minimum: the
	// strategy's own when reported, otherwise a heuristic fallback.
	Confidence float64
	// NonAnswer names the detected non-answer condition, empty if none.
	NonAnswer string
	Reason    string
}

// #endregion

// #region attempt

// Attempt records one execution at one regime.
type Attempt struct {
	Regime     assess.Regime
	Result     strategy.Result
	Evaluation Evaluation
	// Err holds the collaborator failure that voided this attempt, if any.
	Err error
}

// #endregion

// #region outcome

// Outcome is the structured result of one solve call. It is owned by the
// solve call that produced it and never mutated after the learner append.
type Outcome struct {
	ID          string
	Fingerprint string
	Mode        strategy.Mode

	InitialRegime assess.Regime
	FinalRegime   assess.Regime
	Assessment    assess.Assessment

	// Attempts is the ordered sequence of executions, first to last.
	Attempts []Attempt
	// Best is the accepted result, or the highest-confidence non-empty
	// attempt on give-up. A give-up with any produced text never returns
	// empty output.
	Best        strategy.Result
	Accepted    bool
	Escalations int
}

// TotalTokens sums the token cost across attempts.
func (o Outcome) TotalTokens() int {
	n := 0
	for _, a := range o.Attempts {
		n += a.Result.TokenCost
	}
	return n
}

// #endregion
