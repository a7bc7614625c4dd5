package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/service/client"
)

// nextLayout renders next occurrences in the listing.
const nextLayout = "Mon 2006-01-02 15:04:05 MST"

// listCmd prints every alarm.
var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List alarms with their next occurrence.",
	Long: `Lists every stored alarm with its next occurrence.

When the daemon is running the STATE column also tells whether the alarm is
armed, and shows the error of alarms the daemon failed to arm.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withManager(func(ctx context.Context, m *client.Manager) error {
			listing, err := m.List(ctx)
			if err != nil {
				return err
			}

			return printListing(cmd.OutOrStdout(), listing, settings.Location())
		})
	},
}

// printListing writes the alarm table. The colored state column is last so
// escape codes do not disturb the alignment.
func printListing(w io.Writer, listing client.Listing, loc *time.Location) error {
	if len(listing.Entries) == 0 {
		_, _ = fmt.Fprintln(w, "No alarms.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

		_, _ = fmt.Fprintln(tw, "ID\tLABEL\tTIME\tREPEAT\tAUDIO\tNEXT\tSTATE")

		for _, e := range listing.Entries {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				strconv.FormatInt(e.Alarm.ID, 10),
				e.Alarm.DisplayLabel(),
				e.Alarm.Time,
				e.Alarm.Recurrence,
				domain.Describe(e.Alarm.Audio),
				formatNext(e, loc),
				formatState(e, listing.DaemonRunning),
			)
		}

		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if listing.DaemonRunning {
		_, _ = fmt.Fprintf(w, "Daemon: running, playback %s\n", listing.Playback.State)
	} else {
		_, _ = fmt.Fprintln(w, "Daemon: not running")
	}

	return nil
}

func formatNext(e client.Entry, loc *time.Location) string {
	if e.NextTrigger.IsZero() {
		return "-"
	}

	return e.NextTrigger.In(e.Alarm.Location(loc)).Format(nextLayout)
}

func formatState(e client.Entry, daemonRunning bool) string {
	switch {
	case e.Warning != "":
		return color.RedString("not armed: %s", e.Warning)
	case !e.Alarm.Enabled:
		return color.New(color.Faint).Sprint("disabled")
	case daemonRunning && e.Armed:
		return color.GreenString("armed")
	case daemonRunning:
		return color.YellowString("enabled, not armed")
	default:
		return color.GreenString("enabled")
	}
}
