package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your tenant's media items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			items, err := client.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No media items.")
				return nil
			}

			rows := make([][]string, 0, len(items))
			for _, item := range items {
				rows = append(rows, []string{
					item.ID,
					item.Title,
					item.Status,
					strconv.Itoa(item.Progress) + "%",
					item.Sensitivity,
					strconv.Itoa(len(item.Variants)),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Status", "Progress", "Sensitivity", "Variants"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one media item in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			item, err := client.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printItem(cmd, item)
			return nil
		},
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var title string
	var description string

	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Upload a media file for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			item, err := client.Upload(cmd.Context(), args[0], title, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Accepted %s (%s)\n", item.ID, item.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title for the media item")
	cmd.Flags().StringVar(&description, "description", "", "Optional description")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a media item and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Remove(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func printItem(cmd *cobra.Command, item api.MediaItem) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:          %s\n", item.ID)
	fmt.Fprintf(out, "Title:       %s\n", item.Title)
	if item.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", item.Description)
	}
	fmt.Fprintf(out, "Status:      %s\n", item.Status)
	fmt.Fprintf(out, "Sensitivity: %s\n", item.Sensitivity)
	fmt.Fprintf(out, "Progress:    %d%%\n", item.Progress)
	if item.DurationSeconds != nil {
		fmt.Fprintf(out, "Duration:    %.1fs\n", *item.DurationSeconds)
	}
	fmt.Fprintf(out, "Size:        %d bytes\n", item.SizeBytes)
	if item.CreatedAt != "" {
		fmt.Fprintf(out, "Created:     %s\n", item.CreatedAt)
	}

	if len(item.Variants) == 0 {
		return
	}
	variants := append([]api.Variant(nil), item.Variants...)
	sort.Slice(variants, func(a, b int) bool {
		return variants[a].BitrateKbps > variants[b].BitrateKbps
	})
	rows := make([][]string, 0, len(variants))
	for _, v := range variants {
		rows = append(rows, []string{v.Quality, strconv.Itoa(v.BitrateKbps) + " kbps", v.StoragePath})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Quality", "Bitrate", "Path"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft},
	))
}
