package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ConsensusAnalyzer/internal/app"
	"ConsensusAnalyzer/internal/config"
)

const (
	CmdServe   = "serve"
	CmdReplay  = "replay"
	FlagConfig = "config"
	FlagPort   = "port"
)

var (
	configPath string
	port       int
)

var rootCmd = &cobra.Command{
	Use:   "consensusanalyzer",
	Short: "Fan-in consensus analysis over per-source transcripts",
	Long: `consensusanalyzer analyzes every source item of a topic with a language model,
collects the partial results and publishes one synthesized report per topic.

  consensusanalyzer serve                 # accept events on POST /events
  consensusanalyzer replay events.jsonl   # process a JSON-lines file and exit
  consensusanalyzer replay -              # read events from stdin

Published messages are written to stdout as JSON lines; logs go to stderr.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   CmdServe,
	Short: "Run the HTTP ingest endpoint until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var replayCmd = &cobra.Command{
	Use:   CmdReplay + " <file|->",
	Short: "Process newline-delimited ingest events, then exit",
	Args:  cobra.ExactArgs(1),
	RunE:  runReplay,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, FlagConfig, "", "path to YAML config (overrides CONSENSUS_ANALYZER_CONFIG)")
	serveCmd.Flags().IntVar(&port, FlagPort, 0, "ingest port (overrides config)")
	rootCmd.AddCommand(serveCmd, replayCmd)
}

func loadConfig() config.Config {
	if configPath != "" {
		_ = os.Setenv("CONSENSUS_ANALYZER_CONFIG", configPath)
	}
	cfg := config.Load()
	if port > 0 {
		cfg.Ingest.Port = port
	}
	return cfg
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, loadConfig(), app.Deps{})
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Serve(ctx)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, closeInput, err := openInput(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer closeInput()

	application, err := app.New(ctx, loadConfig(), app.Deps{})
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Replay(ctx, input)
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open events: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
