// Package main implements the researchd CLI for running multi-agent
// research debates.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/AKMessi/multi-agent-ai-researcher/internal/config"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/llm"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/logging"
	"github.com/AKMessi/multi-agent-ai-researcher/internal/session"
)

var (
	configPath string
	topic      string
	goal       string
	maxRounds  int

	// version information (set via ldflags during build)
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "researchd",
	Short: "Multi-agent AI research debate engine",
	Long: `researchd runs a structured debate between specialized research agents
(visionary, architect, critic, synthesizer, experimentalist, evidence) and
produces a consolidated research report.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one research debate to completion",
	Long: `Run a full research debate on a topic.

Examples:
  # Debate a topic with defaults
  researchd run --topic "Efficient attention mechanisms"

  # Constrain the debate
  researchd run --topic "Sparse training" --goal "A practical recipe" --max-rounds 6

The provider API key is read from RESEARCHD_PROVIDER_API_KEY or OPENAI_API_KEY.`,
	RunE: runDebate,
}

func init() {
	runCmd.Flags().StringVar(&topic, "topic", "", "research topic to debate (required)")
	runCmd.Flags().StringVar(&goal, "goal", "", "optional research goal")
	runCmd.Flags().IntVar(&maxRounds, "max-rounds", 0, "override the configured round budget")
	_ = runCmd.MarkFlagRequired("topic")
}

func runDebate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if maxRounds > 0 {
		cfg.Debate.MaxRounds = maxRounds
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	gen, err := buildGenerator(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	sess, err := session.New(cfg, gen, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := sess.Run(ctx, topic, goal)
	if err != nil {
		return err
	}

	fmt.Printf("\nDebate finished: %s\n", report.Status)
	fmt.Printf("Rounds: %d  Proposals: %d  Critiques: %d  Syntheses: %d  Consensus: %.2f\n",
		report.RoundsCompleted, report.ProposalCount, report.CritiqueCount,
		report.SynthesisCount, report.ConsensusScore)
	if report.FinalConclusion != "" {
		fmt.Printf("\n%s\n", report.FinalConclusion)
	}
	return nil
}

// buildGenerator constructs the model generator from provider config. The
// API key falls back to OPENAI_API_KEY for compatibility with the usual
// provider tooling.
func buildGenerator(cfg *config.Config) (llm.Generator, error) {
	apiKey := cfg.Provider.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key: set provider.api_key, RESEARCHD_PROVIDER_API_KEY or OPENAI_API_KEY")
	}

	opts := []openai.Option{
		openai.WithModel(cfg.Provider.Model),
		openai.WithToken(apiKey),
	}
	if cfg.Provider.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Provider.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create model provider: %w", err)
	}
	return llm.NewModelGenerator(model, cfg.Model)
}
