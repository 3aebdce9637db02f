// Package orchestrator runs the solve state machine: assess the problem,
// execute the selected strategy, evaluate adequacy, escalate bounded, and
// record the outcome so future assessments learn from it.
package orchestrator

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/danielpatrickdp/reason-router/internal/assess"
	"github.com/danielpatrickdp/reason-router/internal/config"
	"github.com/danielpatrickdp/reason-router/internal/learner"
	"github.com/danielpatrickdp/reason-router/internal/provenance"
	"github.com/danielpatrickdp/reason-router/internal/retrieval"
	"github.com/danielpatrickdp/reason-router/internal/strategy"
)

// #region interfaces

// Learner is the outcome store consumed by the orchestrator.
type Learner interface {
	Suggest(features []float64) float64
	Record(rec learner.LearningRecord) error
}

// Retriever fetches optional context passages. May be nil.
type Retriever interface {
	Retrieve(ctx context.Context, query string, source retrieval.Source) ([]retrieval.Passage, error)
}

// #endregion

// #region orchestrator

// Orchestrator coordinates one solve call end to end.
type Orchestrator struct {
	assessor  *assess.Assessor
	set       *strategy.Set
	learner   Learner
	retriever Retriever
	gen       strategy.Generator // for the paper_optimized refinement pass
	provDB    *sql.DB            // nil disables the solve log
	cfg       config.Config
	log       *zap.SugaredLogger
}

// New wires an orchestrator. retriever and provDB may be nil.
func New(
	cfg config.Config,
	set *strategy.Set,
	store Learner,
	retriever Retriever,
	gen strategy.Generator,
	provDB *sql.DB,
	log *zap.SugaredLogger,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if provDB != nil {
		if err := provenance.EnsureSchema(provDB); err != nil {
			return nil, err
		}
	}
	return &Orchestrator{
		assessor:  assess.New(cfg.Assessor),
		set:       set,
		learner:   store,
		retriever: retriever,
		gen:       gen,
		provDB:    provDB,
		cfg:       cfg,
		log:       log,
	}, nil
}

// #endregion

// #region solve

// Solve runs the full ASSESS → EXECUTE → EVALUATE loop for one problem.
// The returned error is non-nil only when no attempt produced any usable
// text; every other failure is absorbed into the outcome.
func (o *Orchestrator) Solve(ctx context.Context, problem string, opts SolveOptions) (Outcome, error) {
	solveID := uuid.NewString()
	if opts.Mode == "" {
		opts.Mode = strategy.ModeAdaptive
	}

	// Retrieval runs at most once, before assessment. Best effort.
	problemText := problem
	if o.retriever != nil && opts.RetrievalSource != nil {
		passages, err := o.retriever.Retrieve(ctx, problem, *opts.RetrievalSource)
		if err != nil {
			o.log.Warnw("retrieval failed, continuing without context",
				"solve_id", solveID, "source", *opts.RetrievalSource, "error", err)
		} else if len(passages) > 0 {
			problemText = retrieval.FormatAsContext(passages) + "\n" + problem
		}
	}

	// ASSESS. The suggestion lookup needs the feature vector, so score once
	// neutrally for features, then once with the learner's delta.
	fingerprint := assess.Fingerprint(problem)
	base := o.assessor.Assess(problemText, 0)
	suggestion := o.learner.Suggest(base.Features())
	assessment := o.assessor.Assess(problemText, suggestion)

	regime := assessment.Regime
	if opts.ForceRegime != nil {
		regime = *opts.ForceRegime
	}
	o.logDecision(provenance.Entry{
		SolveID: solveID, Stage: "assess", Regime: string(regime),
		Decision: "assessed",
		Reason: fmt.Sprintf("score=%.1f adjusted=%.1f suggestion=%+.1f forced=%v",
			assessment.RawScore, assessment.AdjustedScore, assessment.SuggestedAdjustment, opts.ForceRegime != nil),
	})
	o.log.Infow("assessed",
		"solve_id", solveID, "regime", regime,
		"score", assessment.RawScore, "adjusted", assessment.AdjustedScore)

	outcome := Outcome{
		ID:            solveID,
		Fingerprint:   fingerprint,
		Mode:          opts.Mode,
		InitialRegime: regime,
		FinalRegime:   regime,
		Assessment:    assessment,
	}

	// EXECUTE / EVALUATE / ESCALATE loop.
	maxAttempts := o.cfg.Orchestrator.MaxEscalations + 1
	for attempt := 0; attempt < maxAttempts; attempt++ {
		st := o.set.Resolve(opts.Mode, regime)
		res, execErr := st.Execute(ctx, problemText)
		eval := evaluate(problemText, res, execErr, o.cfg.Orchestrator.MinConfidence)

		outcome.Attempts = append(outcome.Attempts, Attempt{
			Regime:     regime,
			Result:     res,
			Evaluation: eval,
			Err:        execErr,
		})
		outcome.FinalRegime = regime
		verdict := "inadequate"
		if eval.Adequate {
			verdict = "adequate"
		}
		o.logDecision(provenance.Entry{
			SolveID: solveID, Stage: "evaluate", Regime: string(regime),
			StrategyID: string(st.ID()),
			Decision:   verdict,
			Reason:     eval.Reason,
		})
		o.log.Infow("evaluated",
			"solve_id", solveID, "attempt", attempt, "strategy", st.ID(),
			"adequate", eval.Adequate, "confidence", eval.Confidence)

		if eval.Adequate {
			outcome.Accepted = true
			outcome.Best = res
			break
		}
		if attempt == maxAttempts-1 {
			break
		}

		// Escalation saturates at the top regime: remaining retries re-run
		// at high rather than being forfeited.
		if next, ok := regime.Next(); ok {
			regime = next
		}
		outcome.Escalations++
		o.logDecision(provenance.Entry{
			SolveID: solveID, Stage: "execute", Regime: string(regime),
			Decision: "escalate", Reason: eval.Reason,
		})
	}

	if !outcome.Accepted {
		outcome.Best = bestAttempt(outcome.Attempts)
	}

	// paper_optimized adds one bounded refinement pass above the low regime;
	// a failed refinement keeps the unrefined answer.
	if outcome.Accepted && opts.Mode == strategy.ModePaperOptimized && outcome.FinalRegime != assess.RegimeLow {
		o.refine(ctx, solveID, problemText, &outcome)
	}

	decision := "give_up"
	if outcome.Accepted {
		decision = "accept"
	}
	o.logDecision(provenance.Entry{
		SolveID: solveID, Stage: "terminal", Regime: string(outcome.FinalRegime),
		StrategyID: string(outcome.Best.StrategyID),
		Decision:   decision,
		Reason:     fmt.Sprintf("attempts=%d escalations=%d", len(outcome.Attempts), outcome.Escalations),
	})

	// The learner records every terminal outcome, success or not.
	if err := o.learner.Record(learner.LearningRecord{
		Fingerprint:   fingerprint,
		InitialRegime: outcome.InitialRegime,
		FinalRegime:   outcome.FinalRegime,
		Accepted:      outcome.Accepted,
		RawScore:      assessment.RawScore,
		Features:      assessment.Features(),
	}); err != nil {
		o.log.Warnw("failed to record outcome", "solve_id", solveID, "error", err)
	}

	if !outcome.Accepted && outcome.Best.Text == "" {
		lastErr := outcome.Attempts[len(outcome.Attempts)-1].Err
		if lastErr != nil {
			return outcome, fmt.Errorf("no usable output after %d attempts: %w", len(outcome.Attempts), lastErr)
		}
		return outcome, fmt.Errorf("no usable output after %d attempts", len(outcome.Attempts))
	}
	return outcome, nil
}

// #endregion

// #region best-attempt

// bestAttempt picks the highest-confidence attempt with non-empty text, so a
// give-up never drops output that was produced.
func bestAttempt(attempts []Attempt) strategy.Result {
	var best strategy.Result
	bestConf := -1.0
	for _, a := range attempts {
		if a.Result.Text == "" {
			continue
		}
		conf := a.Evaluation.Confidence
		if conf > bestConf {
			best = a.Result
			bestConf = conf
		}
	}
	return best
}

// #endregion

// #region refine

func (o *Orchestrator) refine(ctx context.Context, solveID, problem string, outcome *Outcome) {
	if o.gen == nil {
		return
	}
	prompt := fmt.Sprintf(`Briefly verify the answer below and make only the minimal necessary
improvements. Avoid sweeping changes or additional analysis.

Original problem: %s

Current answer: %s

Check: logical consistency, obvious errors, missing essentials. Keep the core
of the answer intact.`, problem, outcome.Best.Text)

	resp, err := o.gen.Generate(ctx, prompt, o.cfg.Strategies.SynthesisMaxTokens, 0.3)
	if err != nil || resp.Text == "" {
		o.log.Debugw("refinement skipped", "solve_id", solveID, "error", err)
		return
	}
	outcome.Best.Text = resp.Text
	outcome.Best.TokenCost += resp.TokensUsed
	o.logDecision(provenance.Entry{
		SolveID: solveID, Stage: "execute", Regime: string(outcome.FinalRegime),
		StrategyID: string(outcome.Best.StrategyID),
		Decision:   "refine", Reason: "paper_optimized refinement applied",
	})
}

// #endregion

// #region provenance

func (o *Orchestrator) logDecision(entry provenance.Entry) {
	if o.provDB == nil {
		return
	}
	if err := provenance.LogDecision(o.provDB, entry); err != nil {
		o.log.Warnw("solve log write failed", "error", err)
	}
}

// #endregion
