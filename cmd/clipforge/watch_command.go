package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/notify"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow your tenant's processing events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			stream, err := client.Events(cmd.Context())
			if err != nil {
				return err
			}
			defer stream.Close()

			out := cmd.OutOrStdout()
			scanner := bufio.NewScanner(stream)
			for scanner.Scan() {
				payload, ok := strings.CutPrefix(scanner.Text(), "data: ")
				if !ok {
					continue
				}
				var evt notify.Event
				if err := json.Unmarshal([]byte(payload), &evt); err != nil {
					continue
				}
				line := fmt.Sprintf("%s  progress=%d%%", evt.ItemID, evt.Progress)
				if evt.Status != "" {
					line += "  status=" + string(evt.Status)
				}
				if evt.Sensitivity != "" {
					line += "  sensitivity=" + string(evt.Sensitivity)
				}
				fmt.Fprintln(out, line)
			}
			if err := scanner.Err(); err != nil && cmd.Context().Err() == nil {
				return err
			}
			return nil
		},
	}
}
