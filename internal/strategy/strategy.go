// Package strategy implements the executable reasoning policies, one per
// complexity regime plus the specialty variants. Each strategy decides how
// many generation calls to make and how to derive a confidence signal from
// the output.
package strategy

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/reason-router/internal/assess"
	"github.com/danielpatrickdp/reason-router/internal/config"
)

// #region set

// Set holds every wired strategy. The regime and mode mappings are total;
// NewSet fails on any gap so dispatch never falls through at runtime.
type Set struct {
	strategies map[ID]Strategy
	defaults   map[assess.Regime]ID
}

// NewSet wires all strategies against the given generator.
func NewSet(gen Generator, cfg config.Strategies, log *zap.SugaredLogger) (*Set, error) {
	s := &Set{
		strategies: map[ID]Strategy{
			Efficient:  &efficient{gen: gen, cfg: cfg, log: log},
			Balanced:   &balanced{gen: gen, cfg: cfg, log: log},
			Decomposed: &decomposed{gen: gen, cfg: cfg, log: log},
			Parallel:   &parallel{gen: gen, cfg: cfg, log: log},
			Quantum:    &quantum{gen: gen, cfg: cfg, log: log},
			Edge:       &edge{gen: gen, cfg: cfg, log: log},
		},
		defaults: map[assess.Regime]ID{
			assess.RegimeLow:    Efficient,
			assess.RegimeMedium: Balanced,
			assess.RegimeHigh:   Decomposed,
		},
	}
	for _, id := range []ID{Efficient, Balanced, Decomposed, Parallel, Quantum, Edge} {
		if _, ok := s.strategies[id]; !ok {
			return nil, fmt.Errorf("strategy set: %s not wired", id)
		}
	}
	for _, regime := range []assess.Regime{assess.RegimeLow, assess.RegimeMedium, assess.RegimeHigh} {
		if _, ok := s.defaults[regime]; !ok {
			return nil, fmt.Errorf("strategy set: no default for regime %s", regime)
		}
	}
	return s, nil
}

// ForID returns the strategy with the given ID.
func (s *Set) ForID(id ID) (Strategy, bool) {
	st, ok := s.strategies[id]
	return st, ok
}

// DefaultForRegime maps a regime to its default strategy.
func (s *Set) DefaultForRegime(regime assess.Regime) Strategy {
	return s.strategies[s.defaults[regime]]
}

// Resolve maps (mode, regime) to a concrete strategy. Meta-modes follow the
// regime default; edge replaces efficient for paper_optimized low-regime runs
// to keep the cheap path hard-capped.
func (s *Set) Resolve(mode Mode, regime assess.Regime) Strategy {
	switch mode {
	case ModeAdaptive:
		return s.DefaultForRegime(regime)
	case ModePaperOptimized:
		if regime == assess.RegimeLow {
			return s.strategies[Edge]
		}
		return s.DefaultForRegime(regime)
	default:
		if st, ok := s.strategies[ID(mode)]; ok {
			return st
		}
		return s.DefaultForRegime(regime)
	}
}

// #endregion

// #region confidence

var certaintyMarkers = []string{
	"definitely", "certainly", "clearly", "the answer is", "in conclusion",
	"therefore", "precisely",
}

var hedgeMarkers = []string{
	"might", "perhaps", "possibly", "not sure", "unclear", "it depends",
	"hard to say", "i think", "probably",
}

// markerConfidence derives a confidence signal from self-reported certainty
// language. Base 0.6, nudged per marker, bounded to [0.1, 0.95].
func markerConfidence(text string) float64 {
	lower := strings.ToLower(text)
	conf := 0.6
	for _, m := range certaintyMarkers {
		if strings.Contains(lower, m) {
			conf += 0.05
		}
	}
	for _, m := range hedgeMarkers {
		if strings.Contains(lower, m) {
			conf -= 0.08
		}
	}
	if conf > 0.95 {
		conf = 0.95
	}
	if conf < 0.1 {
		conf = 0.1
	}
	return conf
}

func wordCount(text string) int {
	return len(strings.Fields(text))
}

// #endregion
