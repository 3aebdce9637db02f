// Package config holds the tunable surface for the reasoning router.
// Values load from defaults, then an optional YAML file, then env overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// #region assessor

// Assessor controls complexity scoring and regime thresholds.
type Assessor struct {
	// LowThreshold / HighThreshold partition the 0..100 score into regimes.
	LowThreshold  float64 `yaml:"low_threshold"`
	HighThreshold float64 `yaml:"high_threshold"`

	// Signal weights. Normalized signals are weighted then scaled to 0..100.
	LexicalWeight    float64 `yaml:"lexical_weight"`
	StructuralWeight float64 `yaml:"structural_weight"`
	DomainWeight     float64 `yaml:"domain_weight"`

	// AdjustClamp bounds the learner suggestion applied to the raw score.
	AdjustClamp float64 `yaml:"adjust_clamp"`
}

// #endregion

// #region learner

// Learner controls the outcome store.
type Learner struct {
	DBPath          string  `yaml:"db_path"`
	HistoryCapacity int     `yaml:"history_capacity"`
	NeighborK       int     `yaml:"neighbor_k"`
	NeighborRadius  float64 `yaml:"neighbor_radius"`
}

// #endregion

// #region generation

// Generation configures the generation backend client.
type Generation struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// #endregion

// #region strategies

// Strategies holds per-strategy token budgets and fan-out limits.
type Strategies struct {
	EfficientMaxTokens int `yaml:"efficient_max_tokens"`
	BalancedMaxTokens  int `yaml:"balanced_max_tokens"`
	DecomposeMaxTokens int `yaml:"decompose_max_tokens"`
	SubAnswerMaxTokens int `yaml:"sub_answer_max_tokens"`
	SynthesisMaxTokens int `yaml:"synthesis_max_tokens"`
	EdgeTokenCeiling   int `yaml:"edge_token_ceiling"`

	// ParallelK is the fan-out for the parallel strategy.
	ParallelK int `yaml:"parallel_k"`
	// SubProblemLimit caps concurrent sub-problem calls in decomposed mode.
	SubProblemLimit int `yaml:"sub_problem_limit"`
	// VerifyBalanced enables the secondary verification call in balanced mode.
	VerifyBalanced bool `yaml:"verify_balanced"`
	// VerbosityLimit is the word count past which an efficient answer is
	// flagged low-confidence instead of retried.
	VerbosityLimit int `yaml:"verbosity_limit"`
}

// #endregion

// #region orchestrator

// Orchestrator controls the solve state machine.
type Orchestrator struct {
	MaxEscalations int     `yaml:"max_escalations"`
	MinConfidence  float64 `yaml:"min_confidence"`
}

// #endregion

// #region retrieval

// Retrieval configures the optional context retrieval step.
type Retrieval struct {
	MaxPassages   int           `yaml:"max_passages"`
	MaxPassageLen int           `yaml:"max_passage_len"`
	Timeout       time.Duration `yaml:"timeout"`
	WikiEndpoint  string        `yaml:"wiki_endpoint"`
}

// #endregion

// #region config

// Config is the full configuration surface for the router core.
type Config struct {
	Assessor     Assessor     `yaml:"assessor"`
	Learner      Learner      `yaml:"learner"`
	Generation   Generation   `yaml:"generation"`
	Strategies   Strategies   `yaml:"strategies"`
	Orchestrator Orchestrator `yaml:"orchestrator"`
	Retrieval    Retrieval    `yaml:"retrieval"`
}

// #endregion

// #region defaults

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Assessor: Assessor{
			LowThreshold:     20,
			HighThreshold:    50,
			LexicalWeight:    0.4,
			StructuralWeight: 0.2,
			DomainWeight:     0.4,
			AdjustClamp:      15,
		},
		Learner: Learner{
			DBPath:          "reason_router.db",
			HistoryCapacity: 500,
			NeighborK:       5,
			NeighborRadius:  0.35,
		},
		Generation: Generation{
			BaseURL:     "http://localhost:11434/v1",
			APIKey:      "unused",
			Model:       "gemma3:latest",
			Temperature: 0.7,
			Timeout:     60 * time.Second,
		},
		Strategies: Strategies{
			EfficientMaxTokens: 256,
			BalancedMaxTokens:  1024,
			DecomposeMaxTokens: 512,
			SubAnswerMaxTokens: 512,
			SynthesisMaxTokens: 1024,
			EdgeTokenCeiling:   128,
			ParallelK:          3,
			SubProblemLimit:    4,
			VerifyBalanced:     false,
			VerbosityLimit:     180,
		},
		Orchestrator: Orchestrator{
			MaxEscalations: 2,
			MinConfidence:  0.45,
		},
		Retrieval: Retrieval{
			MaxPassages:   3,
			MaxPassageLen: 2000,
			Timeout:       10 * time.Second,
			WikiEndpoint:  "https://en.wikipedia.org/w/api.php",
		},
	}
}

// #endregion

// #region load

// Load builds a Config from defaults, an optional YAML file, and env overrides.
// An empty path skips the file step.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ROUTER_DB"); v != "" {
		c.Learner.DBPath = v
	}
	if v := os.Getenv("ROUTER_BASE_URL"); v != "" {
		c.Generation.BaseURL = v
	}
	if v := os.Getenv("ROUTER_API_KEY"); v != "" {
		c.Generation.APIKey = v
	}
	if v := os.Getenv("ROUTER_MODEL"); v != "" {
		c.Generation.Model = v
	}
	if v := os.Getenv("ROUTER_MAX_ESCALATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Orchestrator.MaxEscalations = n
		}
	}
	if v := os.Getenv("ROUTER_PARALLEL_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Strategies.ParallelK = n
		}
	}
	if v := os.Getenv("ROUTER_GEN_TIMEOUT"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			c.Generation.Timeout = time.Duration(sec) * time.Second
		}
	}
}

// #endregion

// #region validate

// Validate rejects configurations that cannot produce sane routing.
// Failures here are fatal at initialization, not runtime conditions.
func (c *Config) Validate() error {
	a := c.Assessor
	if a.LowThreshold >= a.HighThreshold {
		return fmt.Errorf("config: low_threshold %.1f must be below high_threshold %.1f", a.LowThreshold, a.HighThreshold)
	}
	if a.LowThreshold < 0 || a.HighThreshold > 100 {
		return fmt.Errorf("config: thresholds must lie in [0,100], got %.1f/%.1f", a.LowThreshold, a.HighThreshold)
	}
	if a.LexicalWeight < 0 || a.StructuralWeight < 0 || a.DomainWeight < 0 {
		return fmt.Errorf("config: signal weights must be non-negative")
	}
	if a.LexicalWeight+a.StructuralWeight+a.DomainWeight == 0 {
		return fmt.Errorf("config: at least one signal weight must be positive")
	}
	if c.Orchestrator.MaxEscalations < 0 {
		return fmt.Errorf("config: max_escalations must be >= 0, got %d", c.Orchestrator.MaxEscalations)
	}
	if c.Orchestrator.MinConfidence < 0 || c.Orchestrator.MinConfidence > 1 {
		return fmt.Errorf("config: min_confidence must lie in [0,1], got %.2f", c.Orchestrator.MinConfidence)
	}
	if c.Strategies.ParallelK < 1 {
		return fmt.Errorf("config: parallel_k must be >= 1, got %d", c.Strategies.ParallelK)
	}
	if c.Strategies.SubProblemLimit < 1 {
		return fmt.Errorf("config: sub_problem_limit must be >= 1, got %d", c.Strategies.SubProblemLimit)
	}
	if c.Learner.HistoryCapacity < 1 {
		return fmt.Errorf("config: history_capacity must be >= 1, got %d", c.Learner.HistoryCapacity)
	}
	if c.Learner.NeighborK < 1 {
		return fmt.Errorf("config: neighbor_k must be >= 1, got %d", c.Learner.NeighborK)
	}
	return nil
}

// #endregion
