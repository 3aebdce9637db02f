// Package assess scores problem text and classifies it into a complexity
// regime. Scoring is a pure function of the text and the learner suggestion:
// identical input and identical suggestion always reproduce the same result.
package assess

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #region keywords

var sequencingMarkers = []string{
	"first", "second", "third", "then", "next", "finally", "step",
	"afterwards", "subsequently", "lastly",
}

var conditionalMarkers = []string{
	"if", "when", "unless", "provided that", "given that", "otherwise",
	"in case", "depending on",
}

var constraintMarkers = []string{
	"must", "cannot", "should not", "requires", "constraint", "at most",
	"at least", "no more than", "without exceeding",
}

var enumerationMarkers = []string{
	"list", "enumerate", "for each", "all of", "every", "each of",
}

var mathKeywords = []string{
	"calculate", "solve", "equation", "algorithm", "optimization",
	"probability", "integral", "matrix", "complexity",
}

var planningKeywords = []string{
	"plan", "strategy", "design", "organize", "coordinate", "schedule",
	"roadmap", "architect",
}

var analysisKeywords = []string{
	"analyze", "compare", "evaluate", "assess", "consider", "tradeoff",
	"trade-off", "pros and cons",
}

var systemsKeywords = []string{
	"distributed", "architecture", "scalable", "high-availability",
	"fault-tolerant", "infrastructure", "pipeline", "concurrency", "system",
}

var cognitiveVerbs = []string{
	"design", "architect", "prove", "derive", "synthesize", "optimize",
	"evaluate", "compare", "analyze", "plan", "argue", "justify",
}

// #endregion

// #region assessor

// Assessor scores problems against configured weights and thresholds.
type Assessor struct {
	cfg config.Assessor
}

// New creates an Assessor. The config is assumed validated.
func New(cfg config.Assessor) *Assessor {
	return &Assessor{cfg: cfg}
}

// #endregion

// #region assess

// Assess scores the problem and classifies it into a regime. suggestion is
// the outcome store's delta; it is clamped before use so history nudges but
// never overrides the fresh score. Malformed or empty input yields a
// minimal-score low assessment rather than an error.
func (a *Assessor) Assess(problem string, suggestion float64) Assessment {
	lower := strings.ToLower(strings.TrimSpace(problem))

	signals := map[string]float64{
		SignalLexical:    0,
		SignalStructural: 0,
		SignalDomain:     0,
		SignalCognitive:  0,
	}

	if lower != "" {
		signals[SignalLexical] = lexicalSignal(lower)
		signals[SignalStructural] = structuralSignal(lower)
		signals[SignalDomain] = domainSignal(lower)
		signals[SignalCognitive] = cognitiveSignal(lower)
	}

	totalWeight := a.cfg.LexicalWeight + a.cfg.StructuralWeight + a.cfg.DomainWeight
	// Cognitive shares the lexical weight family; it gets its own slice so the
	// breakdown stays additive.
	weights := map[string]float64{
		SignalLexical:    a.cfg.LexicalWeight * 0.6,
		SignalCognitive:  a.cfg.LexicalWeight * 0.4,
		SignalStructural: a.cfg.StructuralWeight,
		SignalDomain:     a.cfg.DomainWeight,
	}

	breakdown := make(map[string]float64, len(signals))
	raw := 0.0
	for name, sig := range signals {
		contribution := 100 * weights[name] * sig / totalWeight
		breakdown[name] = contribution
		raw += contribution
	}
	raw = clamp(raw, 0, 100)

	adj := clamp(suggestion, -a.cfg.AdjustClamp, a.cfg.AdjustClamp)
	adjusted := clamp(raw+adj, 0, 100)

	return Assessment{
		RawScore:            raw,
		AdjustedScore:       adjusted,
		Regime:              a.regimeFor(adjusted),
		Signals:             signals,
		SignalBreakdown:     breakdown,
		SuggestedAdjustment: adj,
	}
}

func (a *Assessor) regimeFor(score float64) Regime {
	switch {
	case score < a.cfg.LowThreshold:
		return RegimeLow
	case score < a.cfg.HighThreshold:
		return RegimeMedium
	default:
		return RegimeHigh
	}
}

// #endregion

// #region signals-impl

// lexicalSignal measures multi-step and algorithmic language: sequencing,
// conditional, constraint, and enumeration markers, weighted as in the
// keyword scorer this heuristic descends from.
func lexicalSignal(lower string) float64 {
	words := strings.Fields(lower)

	hits := 0.0
	for _, w := range words {
		for _, m := range sequencingMarkers {
			if w == m {
				hits += 2
			}
		}
	}
	for _, m := range conditionalMarkers {
		hits += float64(countPhrase(lower, words, m)) * 3
	}
	for _, m := range constraintMarkers {
		hits += float64(countPhrase(lower, words, m)) * 4
	}
	for _, m := range enumerationMarkers {
		hits += float64(countPhrase(lower, words, m)) * 2
	}
	return clamp(hits/30, 0, 1)
}

// structuralSignal measures text shape: token length, sentence count, and
// nested sub-questions (question marks beyond the first).
func structuralSignal(lower string) float64 {
	words := strings.Fields(lower)
	sentences := strings.FieldsFunc(lower, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	extraQuestions := strings.Count(lower, "?") - 1
	if extraQuestions < 0 {
		extraQuestions = 0
	}

	length := clamp(float64(len(words))/200, 0, 1)
	sents := clamp(float64(len(sentences))/10, 0, 1)
	nested := clamp(float64(extraQuestions)/3, 0, 1)
	return clamp(0.5*length+0.25*sents+0.25*nested, 0, 1)
}

// domainSignal measures breadth: how many distinct topic clusters the text
// touches. Two clusters saturate the signal.
func domainSignal(lower string) float64 {
	clusters := 0
	for _, cluster := range [][]string{mathKeywords, planningKeywords, analysisKeywords, systemsKeywords} {
		for _, kw := range cluster {
			if strings.Contains(lower, kw) {
				clusters++
				break
			}
		}
	}
	return clamp(float64(clusters)/2, 0, 1)
}

// cognitiveSignal measures task demand: verbs that ask for synthesis or
// judgement rather than recall. Two hits saturate.
func cognitiveSignal(lower string) float64 {
	hits := 0
	for _, v := range cognitiveVerbs {
		if strings.Contains(lower, v) {
			hits++
		}
	}
	return clamp(float64(hits)/2, 0, 1)
}

// countPhrase counts occurrences of marker m; single words are matched against
// token boundaries, multi-word phrases by substring.
func countPhrase(lower string, words []string, m string) int {
	if strings.Contains(m, " ") {
		return strings.Count(lower, m)
	}
	n := 0
	for _, w := range words {
		if strings.Trim(w, ".,;:!?") == m {
			n++
		}
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// #endregion

// #region fingerprint

// Fingerprint returns a stable identifier for a problem: lowercased,
// punctuation stripped, whitespace collapsed, then hashed.
func Fingerprint(problem string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(problem) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteRune(' ')
				lastSpace = true
			}
		}
	}
	sum := sha256.Sum256([]byte(strings.TrimSpace(b.String())))
	return hex.EncodeToString(sum[:])
}

// #endregion
