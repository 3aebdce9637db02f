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

// #region decomposed

// decomposed is the high-regime, collapse-prevention policy: split the
// problem into bounded sub-problems, solve each independently, then issue a
// synthesis call over all sub-answers. No single call reasons over the full
// depth of the original problem.
type decomposed struct {
	gen Generator
	cfg config.Strategies
	log *zap.SugaredLogger
}

func (d *decomposed) ID() ID { return Decomposed }

func (d *decomposed) Execute(ctx context.Context, problem string) (Result, error) {
	subs, decompTokens := d.decompose(ctx, problem)

	subResults := make([]Result, len(subs))
	subErrs := make([]error, len(subs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.SubProblemLimit)
	for i, sub := range subs {
		i, sub := i, sub
		g.Go(func() error {
			prompt := fmt.Sprintf(`Answer this sub-problem on its own terms, concisely.

Original problem (for context only): %s

Sub-problem: %s`, problem, sub)
			resp, err := d.gen.Generate(gctx, prompt, d.cfg.SubAnswerMaxTokens, 0.7)
			if err != nil {
				subErrs[i] = err
				return nil // one failed sub-problem does not sink the fan-out
			}
			subResults[i] = Result{
				Text:          resp.Text,
				Confidence:    markerConfidence(resp.Text),
				HasConfidence: true,
				TokenCost:     resp.TokensUsed,
				StrategyID:    Decomposed,
			}
			return nil
		})
	}
	// Join barrier: synthesis must wait on every sub-result.
	if err := g.Wait(); err != nil {
		return Result{StrategyID: Decomposed}, err
	}

	var solved []Result
	var solvedSubs []string
	totalTokens := decompTokens
	for i, r := range subResults {
		if subErrs[i] == nil && r.Text != "" {
			solved = append(solved, r)
			solvedSubs = append(solvedSubs, subs[i])
			totalTokens += r.TokenCost
		}
	}
	if len(solved) == 0 {
		// All fan-out tasks failed: propagate the first collaborator error.
		for _, err := range subErrs {
			if err != nil {
				return Result{StrategyID: Decomposed}, err
			}
		}
		return Result{StrategyID: Decomposed}, fmt.Errorf("decomposition produced no sub-answers")
	}

	synth, err := d.synthesize(ctx, problem, solvedSubs, solved)
	if err != nil {
		return Result{StrategyID: Decomposed}, err
	}
	totalTokens += synth.TokensUsed

	conf := markerConfidence(synth.Text) * float64(len(solved)) / float64(len(subs))

	return Result{
		Text:          synth.Text,
		Confidence:    conf,
		HasConfidence: true,
		TokenCost:     totalTokens,
		StrategyID:    Decomposed,
		SubResults:    solved,
	}, nil
}

// #endregion

// #region decompose

// decompose asks for an ordered sub-problem list; when the response cannot be
// parsed into at least two items, a fixed two-part template takes over.
func (d *decomposed) decompose(ctx context.Context, problem string) ([]string, int) {
	prompt := fmt.Sprintf(`Break the following problem into an ordered list of 2 to 5 independent
sub-problems. Reply with a numbered list only, one sub-problem per line.

Problem: %s`, problem)

	resp, err := d.gen.Generate(ctx, prompt, d.cfg.DecomposeMaxTokens, 0.5)
	if err != nil {
		d.log.Debugw("decomposition call failed, using fixed template", "error", err)
		return fixedDecomposition(problem), 0
	}

	subs := parseSubProblems(resp.Text)
	if len(subs) < 2 {
		d.log.Debugw("decomposition unparseable, using fixed template")
		return fixedDecomposition(problem), resp.TokensUsed
	}
	return subs, resp.TokensUsed
}

func fixedDecomposition(problem string) []string {
	return []string{
		"Identify the key components, requirements, and constraints of: " + problem,
		"Using those components, outline a step-by-step solution to: " + problem,
	}
}

// parseSubProblems extracts numbered or bulleted lines, capped at 5.
func parseSubProblems(text string) []string {
	var subs []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		stripped := strings.TrimLeft(line, "0123456789.)- \t")
		if stripped == line || strings.TrimSpace(stripped) == "" {
			continue
		}
		subs = append(subs, strings.TrimSpace(stripped))
		if len(subs) == 5 {
			break
		}
	}
	return subs
}

// #endregion

// #region synthesize

func (d *decomposed) synthesize(ctx context.Context, problem string, subs []string, solved []Result) (genResult, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `Integrate the sub-answers below into one coherent final answer.

Original problem: %s

`, problem)
	for i, r := range solved {
		fmt.Fprintf(&b, "Sub-problem %d: %s\nSub-answer %d: %s\n\n", i+1, subs[i], i+1, r.Text)
	}
	b.WriteString("Final integrated answer:")

	resp, err := d.gen.Generate(ctx, b.String(), d.cfg.SynthesisMaxTokens, 0.7)
	if err != nil {
		return genResult{}, err
	}
	return genResult{Text: resp.Text, TokensUsed: resp.TokensUsed}, nil
}

type genResult struct {
	Text       string
	TokensUsed int
}

// #endregion
