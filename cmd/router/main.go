package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/reason-router/internal/assess"
	"github.com/danielpatrickdp/reason-router/internal/config"
	"github.com/danielpatrickdp/reason-router/internal/genclient"
	"github.com/danielpatrickdp/reason-router/internal/learner"
	"github.com/danielpatrickdp/reason-router/internal/orchestrator"
	"github.com/danielpatrickdp/reason-router/internal/retrieval"
	"github.com/danielpatrickdp/reason-router/internal/strategy"
)

// #region main
func main() {
	configPath := flag.String("config", "", "path to YAML config (optional)")
	modeFlag := flag.String("mode", "adaptive", "reasoning mode")
	regimeFlag := flag.String("regime", "", "force complexity regime (low|medium|high)")
	sourceFlag := flag.String("retrieve", "", "retrieval source (wiki|file|url)")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	logger := newLogger(*debug)
	defer logger.Sync()
	log := logger.Sugar()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("configuration invalid", "error", err)
	}

	mode, ok := strategy.ParseMode(*modeFlag)
	if !ok {
		log.Fatalw("unknown mode", "mode", *modeFlag)
	}

	opts := orchestrator.SolveOptions{Mode: mode}
	if *regimeFlag != "" {
		regime := assess.Regime(strings.ToLower(*regimeFlag))
		if regime != assess.RegimeLow && regime != assess.RegimeMedium && regime != assess.RegimeHigh {
			log.Fatalw("unknown regime", "regime", *regimeFlag)
		}
		opts.ForceRegime = &regime
	}
	if *sourceFlag != "" {
		source, ok := retrieval.ParseSource(*sourceFlag)
		if !ok {
			log.Fatalw("unknown retrieval source", "source", *sourceFlag)
		}
		opts.RetrievalSource = &source
	}

	store := learner.Open(cfg.Learner, log)
	defer store.Close()

	gen := genclient.New(cfg.Generation, log)
	set, err := strategy.NewSet(gen, cfg.Strategies, log)
	if err != nil {
		log.Fatalw("strategy set init failed", "error", err)
	}
	retriever := retrieval.New(cfg.Retrieval, log)

	orch, err := orchestrator.New(cfg, set, store, retriever, gen, store.DB(), log)
	if err != nil {
		log.Fatalw("orchestrator init failed", "error", err)
	}

	fmt.Println("Reasoning router ready.")
	fmt.Printf("  DB: %s | Backend: %s | Mode: %s\n", cfg.Learner.DBPath, cfg.Generation.BaseURL, mode)
	fmt.Println("Type a problem (or 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	solveNum := 0

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		problem := strings.TrimSpace(scanner.Text())
		if problem == "" {
			continue
		}
		if problem == "quit" || problem == "exit" {
			break
		}

		solveNum++
		outcome, err := orch.Solve(context.Background(), problem, opts)
		if err != nil {
			log.Errorw("solve produced no usable output", "error", err)
			continue
		}

		fmt.Printf("\n%s\n\n", outcome.Best.Text)
		fmt.Printf("[solve-%d] regime=%s→%s strategy=%s attempts=%d accepted=%v tokens=%d\n",
			solveNum, outcome.InitialRegime, outcome.FinalRegime,
			outcome.Best.StrategyID, len(outcome.Attempts), outcome.Accepted,
			outcome.TotalTokens())
	}
}

// #endregion main

// #region logger

func newLogger(debug bool) *zap.Logger {
	if debug {
		logger, _ := zap.NewDevelopment()
		return logger
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	logger, _ := cfg.Build()
	return logger
}

// #endregion
