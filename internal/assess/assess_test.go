package assess

import (
	"reflect"
	"testing"

	"github.com/danielpatrickdp/reason-router/internal/config"
)

func newTestAssessor() *Assessor {
	return New(config.Default().Assessor)
}

func TestAssess_Regimes(t *testing.T) {
	a := newTestAssessor()

	tests := []struct {
		name    string
		problem string
		want    Regime
	}{
		{"simple-factual", "What are the primary colors?", RegimeLow},
		{"greeting", "Hello there", RegimeLow},
		{"single-domain", "Explain how to calculate the average of a list of numbers", RegimeMedium},
		{"architecture", "design a high-availability distributed system architecture", RegimeHigh},
		{"multi-step-planning", "First analyze the requirements, then design a plan to coordinate the migration. If the schedule slips, the rollout must not exceed two weeks.", RegimeHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Assess(tt.problem, 0)
			if got.Regime != tt.want {
				t.Errorf("regime: got %q (score=%.1f), want %q", got.Regime, got.AdjustedScore, tt.want)
			}
		})
	}
}

func TestAssess_Deterministic(t *testing.T) {
	a := newTestAssessor()
	problem := "Compare two sorting algorithms and evaluate which is faster for small inputs"

	first := a.Assess(problem, 3.5)
	second := a.Assess(problem, 3.5)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("assessments differ:\n%+v\n%+v", first, second)
	}
}

func TestAssess_EmptyInput(t *testing.T) {
	a := newTestAssessor()

	for _, problem := range []string{"", "   ", "\n\t"} {
		got := a.Assess(problem, 0)
		if got.Regime != RegimeLow {
			t.Errorf("empty input %q: got regime %q, want low", problem, got.Regime)
		}
		if got.RawScore != 0 {
			t.Errorf("empty input %q: got score %.2f, want 0", problem, got.RawScore)
		}
	}
}

func TestAssess_SuggestionClamped(t *testing.T) {
	a := newTestAssessor()
	clamp := config.Default().Assessor.AdjustClamp

	got := a.Assess("What are the primary colors?", 100)
	if got.SuggestedAdjustment != clamp {
		t.Errorf("adjustment: got %.1f, want clamp %.1f", got.SuggestedAdjustment, clamp)
	}
	if want := got.RawScore + clamp; got.AdjustedScore != want {
		t.Errorf("adjusted score: got %.1f, want %.1f", got.AdjustedScore, want)
	}

	got = a.Assess("What are the primary colors?", -100)
	if got.SuggestedAdjustment != -clamp {
		t.Errorf("negative adjustment: got %.1f, want %.1f", got.SuggestedAdjustment, -clamp)
	}
}

func TestAssess_RegimeMonotonicInScore(t *testing.T) {
	a := newTestAssessor()
	problem := "Explain how to calculate the average of a list of numbers"

	prevRank := -1
	for _, suggestion := range []float64{-15, -5, 0, 5, 15} {
		got := a.Assess(problem, suggestion)
		if got.Regime.Rank() < prevRank {
			t.Errorf("regime rank decreased at suggestion %.1f: %q", suggestion, got.Regime)
		}
		prevRank = got.Regime.Rank()
	}
}

func TestAssess_BreakdownSumsToScore(t *testing.T) {
	a := newTestAssessor()
	got := a.Assess("design a high-availability distributed system architecture", 0)

	sum := 0.0
	for _, contribution := range got.SignalBreakdown {
		sum += contribution
	}
	if diff := sum - got.RawScore; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("breakdown sum %.4f != raw score %.4f", sum, got.RawScore)
	}

	for _, name := range SignalNames {
		if _, ok := got.SignalBreakdown[name]; !ok {
			t.Errorf("breakdown missing signal %q", name)
		}
		if _, ok := got.Signals[name]; !ok {
			t.Errorf("signals missing %q", name)
		}
	}
}

func TestAssess_FeaturesOrder(t *testing.T) {
	a := newTestAssessor()
	got := a.Assess("plan a schedule to coordinate three teams", 0)

	features := got.Features()
	if len(features) != len(SignalNames) {
		t.Fatalf("features length: got %d, want %d", len(features), len(SignalNames))
	}
	for i, name := range SignalNames {
		if features[i] != got.Signals[name] {
			t.Errorf("feature %d (%s): got %.4f, want %.4f", i, name, features[i], got.Signals[name])
		}
	}
}

func TestRegime_Next(t *testing.T) {
	if next, ok := RegimeLow.Next(); !ok || next != RegimeMedium {
		t.Errorf("low.Next() = %q, %v", next, ok)
	}
	if next, ok := RegimeMedium.Next(); !ok || next != RegimeHigh {
		t.Errorf("medium.Next() = %q, %v", next, ok)
	}
	if _, ok := RegimeHigh.Next(); ok {
		t.Error("high.Next() should report no further regime")
	}
}

func TestFingerprint_Normalization(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"case-insensitive", "What is Go?", "what is go", true},
		{"whitespace-collapsed", "what  is\tgo", "what is go", true},
		{"punctuation-stripped", "what is go?!", "what is go", true},
		{"different-text", "what is go", "what is rust", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa, fb := Fingerprint(tt.a), Fingerprint(tt.b)
			if (fa == fb) != tt.same {
				t.Errorf("Fingerprint(%q) vs Fingerprint(%q): same=%v, want %v", tt.a, tt.b, fa == fb, tt.same)
			}
		})
	}
}
