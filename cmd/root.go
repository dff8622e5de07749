package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bimcvcovid19i/relman/internal/config"
	"github.com/bimcvcovid19i/relman/internal/logger"
	"github.com/bimcvcovid19i/relman/internal/telemetry"
)

var (
	projectDir string
	logLevel   string

	lggr              = logger.Nop()
	shutdownTelemetry = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "relman",
	Short: "relman releases a Python package: stubs, build, upload, clean",
	Long: "relman generates type stubs, builds an sdist and a wheel, uploads them to a\n" +
		"package repository and removes everything it generated, leaving the\n" +
		"working tree as it found it. Runs are recorded in a local history.",
	SilenceUsage:       true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "relman: run 'relman --help' to see available commands")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project root containing setup.py or pyproject.toml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default $RELMAN_LOG_LEVEL or info)")
}

func setup(cmd *cobra.Command, _ []string) error {
	e, err := config.LoadEnv()
	if err != nil {
		return err
	}
	level := logLevel
	if level == "" {
		level = e.LogLevel
	}
	l, err := logger.New(level)
	if err != nil {
		return err
	}
	lggr = l

	shutdown, err := telemetry.Setup(cmd.Context(), e.OTelEndpoint)
	if err != nil {
		lggr.Warnw("tracing disabled", "endpoint", e.OTelEndpoint, "err", err)
		return nil
	}
	shutdownTelemetry = shutdown
	return nil
}

func teardown(cmd *cobra.Command, _ []string) error {
	if err := shutdownTelemetry(context.WithoutCancel(cmd.Context())); err != nil {
		lggr.Warnw("flush traces", "err", err)
	}
	_ = lggr.Sync()
	return nil
}

// Execute executes the root command. SIGINT and SIGTERM cancel the running
// command; the release pipeline still cleans up before exiting.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// cmdLogger returns the logger named after the running command.
func cmdLogger(cmd *cobra.Command) *zap.SugaredLogger {
	return lggr.Named(cmd.Name())
}
