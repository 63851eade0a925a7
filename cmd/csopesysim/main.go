// Command csopesysim is the emulator's entrypoint: a cobra root command
// that builds a zap logger, wires up the REPL, and installs a signal
// handler for a clean shutdown — the same
// flags-then-signal-handler-then-run shape, with cobra in place of
// the flag package.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jasonkoogler/csopesy-sim/internal/cli"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		logDir     string
		noColor    bool
		cycles     uint64
	)

	cmd := &cobra.Command{
		Use:   "csopesysim",
		Short: "Multi-core CPU scheduler emulator",
		RunE: func(_ *cobra.Command, _ []string) error {
			if noColor {
				color.NoColor = true
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync()

			console, err := cli.New(configPath, logDir, logger, cycles)
			if err != nil {
				return fmt.Errorf("init console: %w", err)
			}
			defer console.Close()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			done := make(chan error, 1)
			go func() { done <- console.Run() }()

			select {
			case err := <-done:
				return err
			case <-sigCh:
				logger.Info("received termination signal, shutting down")
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "config.txt", "path to the configuration file")
	cmd.Flags().StringVar(&logDir, "logs", "logs", "directory for per-process log files")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI color output")
	cmd.Flags().Uint64Var(&cycles, "cycles", 0, "optional cap on total virtual cycles before forced shutdown (0 = unbounded)")

	return cmd
}
