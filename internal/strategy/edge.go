package strategy

// #region imports
import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #endregion

// #region edge

// edge is the cheapest acceptable path: the efficient prompt under a hard
// token ceiling. It never spends beyond the ceiling and never escalates on
// its own; only the orchestrator can move a problem off this path.
type edge struct {
	gen Generator
	cfg config.Strategies
	log *zap.SugaredLogger
}

func (e *edge) ID() ID { return Edge }

func (e *edge) Execute(ctx context.Context, problem string) (Result, error) {
	budget := e.cfg.EfficientMaxTokens
	if e.cfg.EdgeTokenCeiling > 0 && budget > e.cfg.EdgeTokenCeiling {
		budget = e.cfg.EdgeTokenCeiling
	}

	prompt := fmt.Sprintf(`Answer in one or two sentences, nothing more.

Problem: %s`, problem)

	resp, err := e.gen.Generate(ctx, prompt, budget, 0.2)
	if err != nil {
		return Result{StrategyID: Edge}, err
	}

	conf := 0.7
	if wordCount(resp.Text) > e.cfg.VerbosityLimit {
		conf = 0.3
	}

	return Result{
		Text:          resp.Text,
		Confidence:    conf,
		HasConfidence: true,
		TokenCost:     resp.TokensUsed,
		StrategyID:    Edge,
	}, nil
}

// #endregion
