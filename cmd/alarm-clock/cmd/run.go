package cmd

import (
	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/service/daemon"
)

var (
	// listenAddress overrides the control address from the configuration.
	listenAddress string
	// output overrides the audio output from the configuration.
	output string

	// runCmd starts the daemon.
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the daemon that arms alarms and rings them.",
		Long: `Starts the alarm clock daemon in the foreground.

The daemon loads every enabled alarm, arms its next occurrence and plays it when
it fires. It serves the control API the other commands use on the configured
address, and publishes playback states to MQTT and metrics to Prometheus when
those are configured. Only one daemon may run per alarm store.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signalContext()
			defer stop()

			return daemon.Run(ctx, &daemon.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				Output:        output,
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	runCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "control address override, for example 127.0.0.1:7450")
	runCmd.Flags().StringVarP(&output, "output", "o", "", "audio output override: auto, device, bell or silent")
}
