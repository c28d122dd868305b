package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and library counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running:    %t (pid %d)\n", status.Running, status.PID)
			fmt.Fprintf(out, "Library DB: %s\n", status.LibraryDBPath)
			fmt.Fprintf(out, "Lock file:  %s\n", status.LockFilePath)
			fmt.Fprintf(out, "Queue:      %d item(s) in flight\n", status.QueueDepth)

			order := []string{"pending", "processing", "safe", "flagged", "failed", "total"}
			rows := make([][]string, 0, len(order))
			for _, key := range order {
				rows = append(rows, []string{key, strconv.Itoa(status.ItemCounts[key])})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Status", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}
