package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-clock/internal/service/client"
)

var (
	// enableCmd turns an alarm on.
	enableCmd = &cobra.Command{
		Use:   "enable ID",
		Short: "Enable an alarm and arm its next occurrence.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setEnabled(cmd, args[0], true)
		},
	}

	// disableCmd turns an alarm off.
	disableCmd = &cobra.Command{
		Use:   "disable ID",
		Short: "Disable an alarm without deleting it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setEnabled(cmd, args[0], false)
		},
	}

	// removeCmd deletes an alarm.
	removeCmd = &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Delete an alarm.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			return withManager(func(ctx context.Context, m *client.Manager) error {
				if removeErr := m.Remove(ctx, id); removeErr != nil {
					return removeErr
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed alarm %d\n", id)

				return nil
			})
		},
	}
)

func setEnabled(cmd *cobra.Command, arg string, enabled bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}

	return withManager(func(ctx context.Context, m *client.Manager) error {
		a, setErr := m.SetEnabled(ctx, id, enabled)
		if setErr != nil {
			return setErr
		}

		state := "disabled"
		if a.Enabled {
			state = "enabled"
		}

		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Alarm %d %s\n", a.ID, state)

		return nil
	})
}

// parseID parses a positive alarm id argument.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid alarm id %q", s)
	}

	return id, nil
}
