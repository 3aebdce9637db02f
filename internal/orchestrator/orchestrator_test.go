package orchestrator

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/reason-router/internal/assess"
	"github.com/danielpatrickdp/reason-router/internal/config"
	"github.com/danielpatrickdp/reason-router/internal/genclient"
	"github.com/danielpatrickdp/reason-router/internal/learner"
	"github.com/danielpatrickdp/reason-router/internal/provenance"
	"github.com/danielpatrickdp/reason-router/internal/retrieval"
	"github.com/danielpatrickdp/reason-router/internal/strategy"
)

// Prompts with known regimes under the default thresholds.
const (
	lowProblem    = "What are the primary colors?"
	mediumProblem = "Explain how to calculate the average of a list of numbers"
	highProblem   = "design a high-availability distributed system architecture"
)

// #region fakes

type fakeGen struct {
	mu      sync.Mutex
	prompts []string
	handler func(prompt string) (genclient.Result, error)
}

func (f *fakeGen) Generate(_ context.Context, prompt string, _ int, _ float32) (genclient.Result, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.handler(prompt)
}

func (f *fakeGen) promptContaining(sub string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.prompts {
		if strings.Contains(p, sub) {
			return true
		}
	}
	return false
}

// cooperativeGen answers every prompt shape a strategy can produce.
func cooperativeGen() *fakeGen {
	f := &fakeGen{}
	f.handler = func(prompt string) (genclient.Result, error) {
		switch {
		case strings.Contains(prompt, "Break the following problem"):
			return genclient.Result{Text: "1. Identify components\n2. Design redundancy\n3. Plan recovery", TokensUsed: 20}, nil
		case strings.Contains(prompt, "Sub-problem:"):
			return genclient.Result{Text: "Clearly, this part is handled.", TokensUsed: 20}, nil
		case strings.Contains(prompt, "Integrate the sub-answers"):
			return genclient.Result{Text: "Therefore, the answer is a replicated three-tier design.", TokensUsed: 30}, nil
		case strings.Contains(prompt, "minimal necessary"):
			return genclient.Result{Text: "Refined final answer.", TokensUsed: 15}, nil
		default:
			return genclient.Result{Text: "Certainly, the answer is red, yellow, and blue.", TokensUsed: 10}, nil
		}
	}
	return f
}

type fakeLearner struct {
	suggestion   float64
	suggestCalls int
	records      []learner.LearningRecord
}

func (f *fakeLearner) Suggest(_ []float64) float64 {
	f.suggestCalls++
	return f.suggestion
}

func (f *fakeLearner) Record(rec learner.LearningRecord) error {
	f.records = append(f.records, rec)
	return nil
}

type fakeRetriever struct {
	passages []retrieval.Passage
	err      error
	calls    int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, _ retrieval.Source) ([]retrieval.Passage, error) {
	f.calls++
	return f.passages, f.err
}

func newTestOrchestrator(t *testing.T, cfg config.Config, gen strategy.Generator, store Learner, ret Retriever, provDB *sql.DB) *Orchestrator {
	t.Helper()
	log := zap.NewNop().Sugar()
	set, err := strategy.NewSet(gen, cfg.Strategies, log)
	if err != nil {
		t.Fatal(err)
	}
	o, err := New(cfg, set, store, ret, gen, provDB, log)
	if err != nil {
		t.Fatal(err)
	}
	return o
}

// #endregion

// #region regime routing

func TestSolve_LowRegimeDirectAnswer(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, nil)

	out, err := o.Solve(context.Background(), lowProblem, SolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out.InitialRegime != assess.RegimeLow || out.FinalRegime != assess.RegimeLow {
		t.Errorf("regimes = %s→%s, want low→low", out.InitialRegime, out.FinalRegime)
	}
	if len(out.Attempts) != 1 || out.Escalations != 0 {
		t.Errorf("attempts=%d escalations=%d, want 1/0", len(out.Attempts), out.Escalations)
	}
	if !out.Accepted || out.Best.StrategyID != strategy.Efficient {
		t.Errorf("expected accepted efficient result, got %+v", out.Best)
	}
	if gen.promptContaining("Break the following problem") {
		t.Error("low-regime solve must not decompose")
	}
}

func TestSolve_HighRegimeDecomposes(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, nil)

	out, err := o.Solve(context.Background(), highProblem, SolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out.InitialRegime != assess.RegimeHigh {
		t.Errorf("initial regime = %s, want high", out.InitialRegime)
	}
	if !out.Accepted || out.Best.StrategyID != strategy.Decomposed {
		t.Errorf("expected accepted decomposed result, got strategy %s accepted=%v", out.Best.StrategyID, out.Accepted)
	}
	if len(out.Best.SubResults) == 0 {
		t.Error("decomposed result should carry sub-results")
	}
}

func TestSolve_ForceRegimePinsStrategy(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, nil)

	forced := assess.RegimeHigh
	out, err := o.Solve(context.Background(), lowProblem, SolveOptions{ForceRegime: &forced})
	if err != nil {
		t.Fatal(err)
	}
	if out.InitialRegime != assess.RegimeHigh {
		t.Errorf("forced initial regime = %s, want high", out.InitialRegime)
	}
	if out.Best.StrategyID != strategy.Decomposed {
		t.Errorf("forced high regime should decompose, got %s", out.Best.StrategyID)
	}
	// Assessment still runs for the learning record.
	if out.Assessment.Regime != assess.RegimeLow {
		t.Errorf("underlying assessment = %s, want low", out.Assessment.Regime)
	}
}

// #endregion

// #region escalation

func TestSolve_EscalationBoundOnPersistentFailure(t *testing.T) {
	gen := &fakeGen{handler: func(string) (genclient.Result, error) {
		return genclient.Result{}, genclient.Classify(context.DeadlineExceeded)
	}}
	store := &fakeLearner{}
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, nil)

	out, err := o.Solve(context.Background(), mediumProblem, SolveOptions{})
	if err == nil {
		t.Fatal("expected give-up error when no attempt produced text")
	}
	// max_escalations=2: three attempts total, medium then high twice.
	if len(out.Attempts) != 3 {
		t.Fatalf("attempts = %d, want 3", len(out.Attempts))
	}
	wantRegimes := []assess.Regime{assess.RegimeMedium, assess.RegimeHigh, assess.RegimeHigh}
	for i, a := range out.Attempts {
		if a.Regime != wantRegimes[i] {
			t.Errorf("attempt %d regime = %s, want %s", i, a.Regime, wantRegimes[i])
		}
		if a.Evaluation.NonAnswer != nonAnswerFailure {
			t.Errorf("attempt %d non-answer = %q, want %q", i, a.Evaluation.NonAnswer, nonAnswerFailure)
		}
	}
	if out.Escalations != 2 {
		t.Errorf("escalations = %d, want 2", out.Escalations)
	}
	if out.Accepted {
		t.Error("all-failure solve must not be accepted")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("give-up error should wrap the last failure, got %v", err)
	}
}

func TestSolve_GiveUpKeepsBestProducedText(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	cfg := config.Default()
	cfg.Orchestrator.MinConfidence = 0.99 // nothing clears this bar
	o := newTestOrchestrator(t, cfg, gen, store, nil, nil)

	out, err := o.Solve(context.Background(), lowProblem, SolveOptions{})
	if err != nil {
		t.Fatalf("give-up with produced text must not error: %v", err)
	}
	if out.Accepted {
		t.Error("nothing should be accepted at min_confidence 0.99")
	}
	if out.Best.Text == "" {
		t.Error("give-up dropped produced output")
	}
	best := -1.0
	for _, a := range out.Attempts {
		if a.Result.Text != "" && a.Evaluation.Confidence > best {
			best = a.Evaluation.Confidence
		}
	}
	for _, a := range out.Attempts {
		if a.Result.Text == out.Best.Text && a.Evaluation.Confidence < best {
			t.Error("give-up did not keep the highest-confidence attempt")
		}
	}
}

func TestSolve_NoEscalationsWhenDisabled(t *testing.T) {
	gen := &fakeGen{handler: func(string) (genclient.Result, error) {
		return genclient.Result{}, errors.New("down")
	}}
	store := &fakeLearner{}
	cfg := config.Default()
	cfg.Orchestrator.MaxEscalations = 0
	o := newTestOrchestrator(t, cfg, gen, store, nil, nil)

	out, err := o.Solve(context.Background(), mediumProblem, SolveOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(out.Attempts) != 1 || out.Escalations != 0 {
		t.Errorf("attempts=%d escalations=%d, want 1/0", len(out.Attempts), out.Escalations)
	}
}

// #endregion

// #region learning

func TestSolve_RecordsOutcomeEvenOnGiveUp(t *testing.T) {
	gen := &fakeGen{handler: func(string) (genclient.Result, error) {
		return genclient.Result{}, errors.New("down")
	}}
	store := &fakeLearner{}
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, nil)

	_, err := o.Solve(context.Background(), mediumProblem, SolveOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.records) != 1 {
		t.Fatalf("expected 1 learning record, got %d", len(store.records))
	}
	rec := store.records[0]
	if rec.Accepted {
		t.Error("give-up outcome recorded as accepted")
	}
	if rec.InitialRegime != assess.RegimeMedium || rec.FinalRegime != assess.RegimeHigh {
		t.Errorf("record regimes = %s→%s, want medium→high", rec.InitialRegime, rec.FinalRegime)
	}
	if rec.Fingerprint == "" || len(rec.Features) != len(assess.SignalNames) {
		t.Errorf("record missing fingerprint or features: %+v", rec)
	}
}

func TestSolve_SuggestionShiftsRegime(t *testing.T) {
	gen := cooperativeGen()

	// A strong downward suggestion pulls the medium problem into low.
	store := &fakeLearner{suggestion: -100} // clamped to the configured bound
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, nil)

	out, err := o.Solve(context.Background(), mediumProblem, SolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if store.suggestCalls != 1 {
		t.Errorf("suggest calls = %d, want 1", store.suggestCalls)
	}
	if out.InitialRegime != assess.RegimeLow {
		t.Errorf("suggested-down regime = %s, want low", out.InitialRegime)
	}
	if out.Assessment.SuggestedAdjustment > 0 {
		t.Errorf("adjustment = %.1f, want negative and clamped", out.Assessment.SuggestedAdjustment)
	}

	// Without a suggestion the same problem stays medium.
	neutral := &fakeLearner{}
	o2 := newTestOrchestrator(t, config.Default(), gen, neutral, nil, nil)
	out2, err := o2.Solve(context.Background(), mediumProblem, SolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out2.InitialRegime != assess.RegimeMedium {
		t.Errorf("neutral regime = %s, want medium", out2.InitialRegime)
	}
}

func TestSolve_LearnerIntegrationBiasesSecondRun(t *testing.T) {
	// First run: the low problem fails at low and medium, succeeds only after
	// escalating. Second run: the stored outcome should bias the assessment
	// upward for the same problem.
	lcfg := config.Default().Learner
	lcfg.DBPath = ":memory:"
	store := learner.Open(lcfg, zap.NewNop().Sugar())
	defer store.Close()

	failing := &fakeGen{handler: func(prompt string) (genclient.Result, error) {
		if strings.Contains(prompt, "Integrate the sub-answers") {
			return genclient.Result{Text: "Therefore, the answer is final.", TokensUsed: 10}, nil
		}
		if strings.Contains(prompt, "Break the following problem") ||
			strings.Contains(prompt, "Sub-problem:") {
			return genclient.Result{Text: "1. part a\n2. part b", TokensUsed: 10}, nil
		}
		return genclient.Result{}, errors.New("down")
	}}
	o := newTestOrchestrator(t, config.Default(), failing, store, nil, nil)

	out, err := o.Solve(context.Background(), lowProblem, SolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out.FinalRegime != assess.RegimeHigh || !out.Accepted {
		t.Fatalf("first run should escalate to an accepted high, got %s accepted=%v", out.FinalRegime, out.Accepted)
	}

	// The second assessment of an identical problem must start higher.
	o2 := newTestOrchestrator(t, config.Default(), cooperativeGen(), store, nil, nil)
	out2, err := o2.Solve(context.Background(), lowProblem, SolveOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if out2.Assessment.SuggestedAdjustment <= 0 {
		t.Errorf("second run adjustment = %.1f, want positive bias toward high",
			out2.Assessment.SuggestedAdjustment)
	}
	if out2.Assessment.AdjustedScore <= out2.Assessment.RawScore {
		t.Errorf("adjusted score %.1f not above raw %.1f",
			out2.Assessment.AdjustedScore, out2.Assessment.RawScore)
	}
}

// #endregion

// #region retrieval

func TestSolve_RetrievalFailureIsNonFatal(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	ret := &fakeRetriever{err: errors.New("endpoint unreachable")}
	o := newTestOrchestrator(t, config.Default(), gen, store, ret, nil)

	src := retrieval.SourceWiki
	out, err := o.Solve(context.Background(), lowProblem, SolveOptions{RetrievalSource: &src})
	if err != nil {
		t.Fatalf("retrieval failure must not fail the solve: %v", err)
	}
	if ret.calls != 1 {
		t.Errorf("retrieval calls = %d, want exactly 1", ret.calls)
	}
	if !out.Accepted {
		t.Error("solve should proceed on the bare problem")
	}
	if gen.promptContaining("[Reference Context]") {
		t.Error("failed retrieval must not inject context")
	}
}

func TestSolve_RetrievedContextReachesPrompt(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	ret := &fakeRetriever{passages: []retrieval.Passage{
		{Title: "Color theory", Text: "Primary colors cannot be mixed from others.", Ref: "Color theory"},
	}}
	o := newTestOrchestrator(t, config.Default(), gen, store, ret, nil)

	src := retrieval.SourceWiki
	if _, err := o.Solve(context.Background(), lowProblem, SolveOptions{RetrievalSource: &src}); err != nil {
		t.Fatal(err)
	}
	if !gen.promptContaining("[Reference Context]") {
		t.Error("retrieved passages never reached the generation prompt")
	}
	if !gen.promptContaining("Primary colors cannot be mixed") {
		t.Error("passage text missing from the prompt")
	}
}

func TestSolve_NoRetrievalWithoutSource(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	ret := &fakeRetriever{passages: []retrieval.Passage{{Text: "unused", Ref: "x"}}}
	o := newTestOrchestrator(t, config.Default(), gen, store, ret, nil)

	if _, err := o.Solve(context.Background(), lowProblem, SolveOptions{}); err != nil {
		t.Fatal(err)
	}
	if ret.calls != 0 {
		t.Errorf("retrieval ran %d times without a source", ret.calls)
	}
}

// #endregion

// #region modes

func TestSolve_PaperOptimizedUsesEdgeForLow(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, nil)

	out, err := o.Solve(context.Background(), lowProblem, SolveOptions{Mode: strategy.ModePaperOptimized})
	if err != nil {
		t.Fatal(err)
	}
	if out.Best.StrategyID != strategy.Edge {
		t.Errorf("paper_optimized low should run edge, got %s", out.Best.StrategyID)
	}
	if gen.promptContaining("minimal necessary") {
		t.Error("low-regime paper_optimized must skip refinement")
	}
}

func TestSolve_PaperOptimizedRefinesAboveLow(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, nil)

	out, err := o.Solve(context.Background(), mediumProblem, SolveOptions{Mode: strategy.ModePaperOptimized})
	if err != nil {
		t.Fatal(err)
	}
	if !out.Accepted {
		t.Fatal("expected accepted outcome")
	}
	if !gen.promptContaining("minimal necessary") {
		t.Error("medium paper_optimized solve skipped refinement")
	}
	if out.Best.Text != "Refined final answer." {
		t.Errorf("refined text not applied, got %q", out.Best.Text)
	}
}

func TestSolve_PinnedStrategyMode(t *testing.T) {
	gen := cooperativeGen()
	store := &fakeLearner{}
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, nil)

	out, err := o.Solve(context.Background(), lowProblem, SolveOptions{Mode: strategy.ModeQuantum})
	if err != nil {
		t.Fatal(err)
	}
	if out.Best.StrategyID != strategy.Quantum {
		t.Errorf("pinned quantum mode ran %s", out.Best.StrategyID)
	}
}

// #endregion

// #region provenance

func TestSolve_WritesSolveLog(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	defer db.Close()

	gen := cooperativeGen()
	store := &fakeLearner{}
	o := newTestOrchestrator(t, config.Default(), gen, store, nil, db)

	out, err := o.Solve(context.Background(), lowProblem, SolveOptions{})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := provenance.Recent(db, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) < 3 {
		t.Fatalf("expected assess/evaluate/terminal entries, got %d", len(entries))
	}
	stages := map[string]bool{}
	for _, e := range entries {
		if e.SolveID != out.ID {
			t.Errorf("entry carries solve id %q, want %q", e.SolveID, out.ID)
		}
		stages[e.Stage] = true
	}
	for _, want := range []string{"assess", "evaluate", "terminal"} {
		if !stages[want] {
			t.Errorf("missing %s stage in solve log", want)
		}
	}
}

// #endregion

// #region outcome

func TestOutcome_TotalTokens(t *testing.T) {
	out := Outcome{Attempts: []Attempt{
		{Result: strategy.Result{TokenCost: 10}},
		{Result: strategy.Result{TokenCost: 25}},
	}}
	if got := out.TotalTokens(); got != 35 {
		t.Errorf("TotalTokens = %d, want 35", got)
	}
}

// #endregion
