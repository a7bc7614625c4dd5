package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/service/client"
	"github.com/oshokin/alarm-clock/internal/service/daemon"
)

var (
	// local plays the alarm in this process instead of the daemon.
	local bool
	// localDuration is how long a local trigger plays.
	localDuration time.Duration
	// localOutput overrides the audio output of a local trigger.
	localOutput string

	// triggerCmd fires an alarm now.
	triggerCmd = &cobra.Command{
		Use:   "trigger ID",
		Short: "Fire an alarm now.",
		Long: `Fires the alarm as if its wake-up had come: the running daemon plays it and,
for a repeating alarm, arms the next occurrence.

With --local the alarm plays in this process for --duration without a daemon.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if local {
				ctx, stop := signalContext()
				defer stop()

				return daemon.PlayOnce(ctx, &daemon.LocalOptions{
					ConfigPath: configPath,
					AlarmID:    id,
					Duration:   localDuration,
					Output:     localOutput,
				})
			}

			return withManager(func(ctx context.Context, m *client.Manager) error {
				triggerErr := m.Trigger(ctx, id)
				if errors.Is(triggerErr, client.ErrDaemonUnavailable) {
					return fmt.Errorf("%w; start it with \"alarm-clock run\" or use --local", triggerErr)
				}

				if triggerErr != nil {
					return triggerErr
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Alarm %d triggered\n", id)

				return nil
			})
		},
	}

	// stopCmd silences the daemon.
	stopCmd = &cobra.Command{
		Use:   "stop",
		Short: "Stop the alarm that is playing.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withManager(func(ctx context.Context, m *client.Manager) error {
				if stopErr := m.StopPlayback(ctx); stopErr != nil {
					return stopErr
				}

				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Playback stopped")

				return nil
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	triggerCmd.Flags().BoolVar(&local, "local", false, "play in this process instead of the daemon")
	triggerCmd.Flags().
		DurationVar(&localDuration, "duration", 0, "how long a local trigger plays (default the alarm's ring duration)")
	triggerCmd.Flags().
		StringVar(&localOutput, "output", "", "audio output of a local trigger: auto, device, bell or silent")
}
