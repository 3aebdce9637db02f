package strategy

// #region imports
import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #endregion

// #region perspectives

// perspectives are deliberately heterogeneous instructions. This is what
// separates the quantum-inspired path from parallel sampling: sub-results
// differ by directive, not by temperature.
var perspectives = []struct {
	name      string
	directive string
}{
	{"optimistic", "Argue for the most favorable, opportunity-focused reading of the problem."},
	{"skeptical", "Probe for weaknesses, failure modes, and hidden assumptions."},
	{"ethical", "Weigh the stakeholder impact, fairness, and long-term consequences."},
}

// #endregion

// #region quantum

// quantum requests multiple named perspectives as separate calls, then merges
// them with a synthesis call.
type quantum struct {
	gen Generator
	cfg config.Strategies
	log *zap.SugaredLogger
}

func (q *quantum) ID() ID { return Quantum }

func (q *quantum) Execute(ctx context.Context, problem string) (Result, error) {
	results := make([]Result, len(perspectives))
	errs := make([]error, len(perspectives))

	g, gctx := errgroup.WithContext(ctx)
	for i, p := range perspectives {
		i, p := i, p
		g.Go(func() error {
			prompt := fmt.Sprintf(`Consider the problem below from a single perspective: %s.
%s

Problem: %s`, p.name, p.directive, problem)
			resp, err := q.gen.Generate(gctx, prompt, q.cfg.SubAnswerMaxTokens, 0.8)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = Result{
				Text:          resp.Text,
				Confidence:    markerConfidence(resp.Text),
				HasConfidence: true,
				TokenCost:     resp.TokensUsed,
				StrategyID:    Quantum,
				Perspective:   p.name,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{StrategyID: Quantum}, err
	}

	var ok []Result
	totalTokens := 0
	for i, r := range results {
		if errs[i] == nil && r.Text != "" {
			ok = append(ok, r)
			totalTokens += r.TokenCost
		}
	}
	if len(ok) == 0 {
		for _, err := range errs {
			if err != nil {
				return Result{StrategyID: Quantum}, err
			}
		}
		return Result{StrategyID: Quantum}, fmt.Errorf("no perspectives produced output")
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Merge the perspective analyses below into one balanced answer to the problem.
Resolve contradictions explicitly instead of averaging them away.

Problem: %s

`, problem)
	for _, r := range ok {
		fmt.Fprintf(&b, "[%s perspective]\n%s\n\n", r.Perspective, r.Text)
	}
	b.WriteString("Merged answer:")

	synth, err := q.gen.Generate(ctx, b.String(), q.cfg.SynthesisMaxTokens, 0.7)
	if err != nil {
		return Result{StrategyID: Quantum}, err
	}
	totalTokens += synth.TokensUsed

	conf := markerConfidence(synth.Text) * float64(len(ok)) / float64(len(perspectives))

	return Result{
		Text:          synth.Text,
		Confidence:    conf,
		HasConfidence: true,
		TokenCost:     totalTokens,
		StrategyID:    Quantum,
		SubResults:    ok,
	}, nil
}

// #endregion
