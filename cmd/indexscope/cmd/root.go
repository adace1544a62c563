// Package cmd provides the CLI commands for indexscope.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seekerlabs/indexscope/internal/config"
	"github.com/seekerlabs/indexscope/internal/logging"
	"github.com/seekerlabs/indexscope/internal/profiling"
	"github.com/seekerlabs/indexscope/pkg/version"
)

var (
	cfgPath   string
	debugMode bool

	profileCPU string
	profileMem string

	loggingCleanup func()
	cpuCleanup     func()
)

// NewRootCmd creates the root command for the indexscope CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexscope",
		Short: "Open and query search indexes from the terminal",
		Long: `indexscope opens existing search indexes and lets you inspect them:
run queries, page through hits, and break down why a document scored
the way it did.

Point any command at an index directory, or run 'indexscope browse'
for an interactive session.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("indexscope version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file (default ~/.indexscope/config.yml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.indexscope/logs/")
	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")

	cmd.PersistentPreRunE = func(*cobra.Command, []string) error {
		setupLogging()
		if profileCPU != "" {
			stop, err := profiling.StartCPU(profileCPU)
			if err != nil {
				return err
			}
			cpuCleanup = stop
		}
		return nil
	}
	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		if cpuCleanup != nil {
			cpuCleanup()
			cpuCleanup = nil
		}
		var err error
		if profileMem != "" {
			err = profiling.WriteHeap(profileMem)
		}
		if loggingCleanup != nil {
			loggingCleanup()
		}
		return err
	}

	cmd.AddCommand(
		newSearchCmd(),
		newInfoCmd(),
		newBrowseCmd(),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the CLI with signal-aware cancellation.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		slog.Error("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

func setupLogging() {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	if cleanup, err := logging.SetupDefault(logCfg); err == nil {
		loggingCleanup = cleanup
	}
}

// loadConfig reads the configured or default config file.
func loadConfig() (config.Config, error) {
	path := cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	return config.LoadOrDefault(path, slog.Default())
}
