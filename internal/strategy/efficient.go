package strategy

// #region imports
import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #endregion

// #region efficient

// efficient is the low-regime policy: one call, small budget, no retries.
// An overlong first response is accepted as-is but flagged low-confidence;
// the conservative path bounds cost, it does not chase correctness.
type efficient struct {
	gen Generator
	cfg config.Strategies
	log *zap.SugaredLogger
}

func (e *efficient) ID() ID { return Efficient }

func (e *efficient) Execute(ctx context.Context, problem string) (Result, error) {
	prompt := fmt.Sprintf(`Provide a concise, direct answer to the following problem.
Avoid exploratory analysis; the first reasonable answer is usually correct.

Problem: %s`, problem)

	resp, err := e.gen.Generate(ctx, prompt, e.cfg.EfficientMaxTokens, 0.3)
	if err != nil {
		return Result{StrategyID: Efficient}, err
	}

	conf := 0.75
	if wordCount(resp.Text) > e.cfg.VerbosityLimit {
		e.log.Debugw("efficient answer exceeded verbosity limit, flagging low confidence",
			"words", wordCount(resp.Text))
		conf = 0.35
	}

	return Result{
		Text:          resp.Text,
		Confidence:    conf,
		HasConfidence: true,
		TokenCost:     resp.TokensUsed,
		StrategyID:    Efficient,
	}, nil
}

// #endregion
