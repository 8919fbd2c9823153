// Package cli provides the command-line interface for tenax.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Rab-crypto/tenax-sub001/internal/config"
	"github.com/Rab-crypto/tenax-sub001/internal/embedding"
	"github.com/Rab-crypto/tenax-sub001/internal/metrics"
	"github.com/Rab-crypto/tenax-sub001/internal/service"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config and service, opened once per invocation
	cfg       config.Config
	svc       *service.Service
	collector *metrics.Collector
	logger    *slog.Logger
	closeLog  func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "tenax",
	Short: "Project memory for coding sessions",
	Long: `Tenax keeps a project's decisions, patterns, tasks and insights.

Knowledge is extracted from session transcripts (or recorded directly),
stored in .tenax/ next to the project, and retrieved by semantic search.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip opening the store for help and completion
		switch cmd.Name() {
		case "help", "completion", "__complete":
			return nil
		}

		root, err := config.DetectProjectRoot()
		if err != nil {
			return fmt.Errorf("detect project root: %w", err)
		}
		cfg, err = config.Load(root)
		if err != nil {
			return err
		}

		stderrLevel := slog.LevelWarn
		if verbose {
			stderrLevel = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.LogFile, stderrLevel, cfg.Level())

		collector = metrics.NewCollector()
		svc, err = service.Open(cmd.Context(), cfg, logger, collector)
		if err != nil {
			return fmt.Errorf("open project memory: %w", err)
		}
		logger.Debug("project opened",
			"root", cfg.ProjectRoot,
			"data_dir", cfg.DataDir,
			"provider", cfg.EmbedProvider,
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if svc != nil {
			if err := svc.Close(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close vector store: %v\n", err)
			}
		}
		if err := embedding.CloseShared(); err != nil && logger != nil {
			logger.Warn("close local model", "error", err)
		}
		if closeLog != nil {
			_ = closeLog()
		}
	},
}

// Execute adds all child commands to the root command and runs it until
// completion or an interrupt.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(watchCmd)
}

// notInitialized rewrites a missing-index error into a hint for the user.
func notInitialized(err error) error {
	if service.IsNotInitialized(err) {
		return fmt.Errorf("no memory for this project yet; run 'tenax init' or process a transcript first")
	}
	return err
}
