package strategy

// #region imports
import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #endregion

// #region balanced

// balanced is the medium-regime policy: one call with an explicit structured
// reasoning directive. Confidence comes from certainty markers in the output,
// optionally sharpened by a secondary verification call.
type balanced struct {
	gen Generator
	cfg config.Strategies
	log *zap.SugaredLogger
}

func (b *balanced) ID() ID { return Balanced }

func (b *balanced) Execute(ctx context.Context, problem string) (Result, error) {
	prompt := fmt.Sprintf(`Solve the following problem systematically, step by step.

Problem: %s

Process:
1. Identify the core elements of the problem
2. Organize the information needed to solve it
3. Build a staged solution strategy
4. Execute each stage, verifying intermediate results
5. Integrate the final answer

State intermediate results explicitly and connect each stage to the next.`, problem)

	resp, err := b.gen.Generate(ctx, prompt, b.cfg.BalancedMaxTokens, 0.7)
	if err != nil {
		return Result{StrategyID: Balanced}, err
	}

	conf := markerConfidence(resp.Text)
	tokens := resp.TokensUsed

	if b.cfg.VerifyBalanced {
		verdict, used, err := b.verify(ctx, problem, resp.Text)
		tokens += used
		if err != nil {
			b.log.Debugw("verification call failed, keeping marker confidence", "error", err)
		} else if verdict {
			conf += 0.15
		} else {
			conf -= 0.2
		}
		if conf > 0.95 {
			conf = 0.95
		}
		if conf < 0.1 {
			conf = 0.1
		}
	}

	return Result{
		Text:          resp.Text,
		Confidence:    conf,
		HasConfidence: true,
		TokenCost:     tokens,
		StrategyID:    Balanced,
	}, nil
}

// verify asks a second call to judge the answer. Returns true when the
// verdict is clean.
func (b *balanced) verify(ctx context.Context, problem, answer string) (bool, int, error) {
	prompt := fmt.Sprintf(`Briefly check the answer below for logical consistency and obvious errors.
Reply with VERDICT: OK if it holds, or VERDICT: ISSUES followed by the problem found.

Problem: %s

Answer: %s`, problem, answer)

	resp, err := b.gen.Generate(ctx, prompt, 128, 0)
	if err != nil {
		return false, 0, err
	}
	return strings.Contains(strings.ToUpper(resp.Text), "VERDICT: OK"), resp.TokensUsed, nil
}

// #endregion
