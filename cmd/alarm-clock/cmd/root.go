package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/config"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/service/client"
	"github.com/oshokin/alarm-clock/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the log level from the configuration.
	logLevel string
	// settings are loaded before any subcommand runs.
	settings *config.Config

	// rootCmd represents the base command of the alarm clock.
	rootCmd = &cobra.Command{
		Use:   "alarm-clock",
		Short: "Schedule alarms and ring them on time.",
		Long: `Keeps a list of alarms and rings them at their next occurrence.

Alarms are stored in a YAML file or an SQLite database. The "run" command starts
the daemon that arms every enabled alarm and plays it when it fires, through the
local audio device or a streaming provider with a local tone as fallback.
The other commands edit the store and notify the daemon when it is running.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			settings = cfg

			level := cfg.LogLevel
			if logLevel != "" {
				level = logLevel
			}

			return logger.SetLevelFromString(level)
		},
	}
)

// Execute runs the alarm-clock CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// withManager runs fn with a manager over the configured store and daemon.
func withManager(fn func(ctx context.Context, m *client.Manager) error) error {
	ctx, stop := signalContext()
	defer stop()

	manager, release, err := client.Open(ctx, settings)
	if err != nil {
		return err
	}

	defer release()

	return fn(ctx, manager)
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default from configuration)")

	rootCmd.AddCommand(addCmd, listCmd, enableCmd, disableCmd, removeCmd, triggerCmd, stopCmd, runCmd)
}
