package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/managerd/internal/monitor"
)

func newWatchCmd() *cobra.Command {
	var interval time.Duration
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Live dashboard of tasks, ledger and notifications",
		Long: `Open a full-screen dashboard that polls the daemon and shows open
tasks, deadlines, completion rate, ledger balance and recent notifications.

Keys: q quits, r refreshes immediately.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return monitor.Run(cmd.Context(), monitor.NewClientSource(apiClient()), interval)
		},
	}
	watchCmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "polling interval")
	return watchCmd
}
