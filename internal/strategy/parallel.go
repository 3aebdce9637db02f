package strategy

// #region imports
import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #endregion

// #region parallel

// parallel issues K independent calls for the same problem and picks the
// winner by a deterministic rule: majority agreement on the canonical
// extracted answer, then longest answer, ties broken by earliest completion.
type parallel struct {
	gen Generator
	cfg config.Strategies
	log *zap.SugaredLogger
}

func (p *parallel) ID() ID { return Parallel }

type sample struct {
	result    Result
	err       error
	completed int64 // completion order, 1-based
}

func (p *parallel) Execute(ctx context.Context, problem string) (Result, error) {
	k := p.cfg.ParallelK
	samples := make([]sample, k)
	var completions int64

	prompt := fmt.Sprintf(`Solve the following problem. End your response with a line of the form
"Answer: <final answer>".

Problem: %s`, problem)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < k; i++ {
		i := i
		g.Go(func() error {
			resp, err := p.gen.Generate(gctx, prompt, p.cfg.BalancedMaxTokens, 0.9)
			order := atomic.AddInt64(&completions, 1)
			if err != nil {
				samples[i] = sample{err: err, completed: order}
				return nil
			}
			samples[i] = sample{
				result: Result{
					Text:          resp.Text,
					Confidence:    markerConfidence(resp.Text),
					HasConfidence: true,
					TokenCost:     resp.TokensUsed,
					StrategyID:    Parallel,
				},
				completed: order,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{StrategyID: Parallel}, err
	}

	var ok []sample
	totalTokens := 0
	for _, s := range samples {
		if s.err == nil && s.result.Text != "" {
			ok = append(ok, s)
			totalTokens += s.result.TokenCost
		}
	}
	if len(ok) == 0 {
		for _, s := range samples {
			if s.err != nil {
				return Result{StrategyID: Parallel}, s.err
			}
		}
		return Result{StrategyID: Parallel}, fmt.Errorf("parallel fan-out produced no answers")
	}

	winner := selectWinner(ok)
	p.log.Debugw("parallel selection", "samples", len(ok), "fanout", k)

	subResults := make([]Result, len(ok))
	for i, s := range ok {
		subResults[i] = s.result
	}

	// Agreement across samples raises confidence in the winning answer.
	agreement := agreementCount(ok, canonicalAnswer(winner.result.Text))
	conf := winner.result.Confidence
	if len(ok) > 1 {
		conf = 0.4 + 0.55*float64(agreement)/float64(len(ok))
	}

	return Result{
		Text:          winner.result.Text,
		Confidence:    conf,
		HasConfidence: true,
		TokenCost:     totalTokens,
		StrategyID:    Parallel,
		SubResults:    subResults,
	}, nil
}

// #endregion

// #region selection

func selectWinner(ok []sample) sample {
	// Majority on canonical answers.
	counts := make(map[string]int)
	for _, s := range ok {
		counts[canonicalAnswer(s.result.Text)]++
	}

	best := ok[0]
	bestKey := canonicalAnswer(best.result.Text)
	for _, s := range ok[1:] {
		key := canonicalAnswer(s.result.Text)
		switch {
		case counts[key] > counts[bestKey]:
			best, bestKey = s, key
		case counts[key] == counts[bestKey]:
			if better(s, best) {
				best, bestKey = s, key
			}
		}
	}
	return best
}

// better prefers longer answers, then earlier completion.
func better(a, b sample) bool {
	la, lb := len(a.result.Text), len(b.result.Text)
	if la != lb {
		return la > lb
	}
	return a.completed < b.completed
}

func agreementCount(ok []sample, key string) int {
	n := 0
	for _, s := range ok {
		if canonicalAnswer(s.result.Text) == key {
			n++
		}
	}
	return n
}

// canonicalAnswer extracts a comparable answer key: the text after the last
// "Answer:" marker if present, else the final non-empty line, normalized.
func canonicalAnswer(text string) string {
	candidate := ""
	if idx := strings.LastIndex(strings.ToLower(text), "answer:"); idx >= 0 {
		candidate = text[idx+len("answer:"):]
		if nl := strings.IndexByte(candidate, '\n'); nl >= 0 {
			candidate = candidate[:nl]
		}
	} else {
		lines := strings.Split(text, "\n")
		for i := len(lines) - 1; i >= 0; i-- {
			if strings.TrimSpace(lines[i]) != "" {
				candidate = lines[i]
				break
			}
		}
	}
	candidate = strings.ToLower(strings.TrimSpace(candidate))
	candidate = strings.Trim(candidate, ".!? ")
	candidate = strings.Join(strings.Fields(candidate), " ")
	if len(candidate) > 80 {
		candidate = candidate[:80]
	}
	return candidate
}

// #endregion
