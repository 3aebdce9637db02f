package strategy

// #region imports
import (
	"context"

	"github.com/danielpatrickdp/reason-router/internal/genclient"
)

// #endregion

// #region id

// ID identifies a reasoning strategy.
type ID string

const (
	Efficient  ID = "efficient"
	Balanced   ID = "balanced"
	Decomposed ID = "decomposed"
	Parallel   ID = "parallel"
	Quantum    ID = "quantum_inspired"
	Edge       ID = "edge"
)

// #endregion

// #region mode

// Mode is the caller-requested execution mode. Concrete strategy names pin a
// strategy directly; adaptive and paper_optimized are meta-modes resolved by
// the orchestrator from the assessed regime.
type Mode string

const (
	ModeAdaptive       Mode = "adaptive"
	ModePaperOptimized Mode = "paper_optimized"
	ModeEfficient      Mode = Mode(Efficient)
	ModeBalanced       Mode = Mode(Balanced)
	ModeDecomposed     Mode = Mode(Decomposed)
	ModeParallel       Mode = Mode(Parallel)
	ModeQuantum        Mode = Mode(Quantum)
	ModeEdge           Mode = Mode(Edge)
)

// ParseMode maps a user-facing name to a Mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeAdaptive, ModePaperOptimized, ModeEfficient, ModeBalanced,
		ModeDecomposed, ModeParallel, ModeQuantum, ModeEdge:
		return Mode(s), true
	default:
		return "", false
	}
}

// #endregion

// #region result

// Result is one strategy's candidate solution.
type Result struct {
	Text string
	// Confidence is the strategy's self-assessed signal in [0,1].
	// HasConfidence is false when the strategy cannot estimate one.
	Confidence    float64
	HasConfidence bool
	TokenCost     int
	StrategyID    ID
	// Perspective labels instruction-differentiated sub-results.
	Perspective string
	// SubResults holds ordered child results for decomposed and fan-out
	// strategies; empty otherwise.
	SubResults []Result
}

// #endregion

// #region interfaces

// Generator is the generation collaborator consumed by strategies.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int, temperature float32) (genclient.Result, error)
}

// Strategy turns a problem into one or more generation calls and an answer.
type Strategy interface {
	ID() ID
	Execute(ctx context.Context, problem string) (Result, error)
}

// #endregion
