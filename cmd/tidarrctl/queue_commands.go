package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cesargomez89/tidarr/internal/http/dto"
	"github.com/cesargomez89/tidarr/internal/httpclient"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List queue items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := ctx.client().Items(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Queue is empty")
				return nil
			}
			colorize := shouldColorize(cmd.OutOrStdout())
			table := renderTable(
				[]string{"ID", "Type", "Status", "Retries", "Artist", "Title"},
				buildItemRows(items, colorize),
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
			)
			fmt.Fprint(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func buildItemRows(items []dto.ItemResponse, colorize bool) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		title := it.Title
		if it.Downloaded {
			title += " *"
		}
		rows = append(rows, []string{
			it.ID,
			string(it.Type),
			formatStatus(it.Status, colorize),
			strconv.Itoa(it.RetryCount),
			it.Artist,
			title,
		})
	}
	return rows
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one queue item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			item, err := ctx.client().Item(cmd.Context(), args[0])
			if httpclient.IsNotFound(err) {
				return fmt.Errorf("%s is not in the queue", args[0])
			}
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, item)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintf(out, "%s %s\n", item.Type, item.ID)
			if item.Artist != "" || item.Title != "" {
				fmt.Fprintf(out, "  %s - %s\n", item.Artist, item.Title)
			}
			fmt.Fprintf(out, "  status:    %s\n", formatStatus(item.Status, colorize))
			if item.Persisted != "" && item.Persisted != item.Status {
				fmt.Fprintf(out, "  persisted: %s\n", formatStatus(item.Persisted, colorize))
			}
			fmt.Fprintf(out, "  retries:   %d\n", item.RetryCount)
			fmt.Fprintf(out, "  running:   %t\n", item.Running)
			fmt.Fprintf(out, "  history:   %t\n", item.Downloaded)
			return nil
		},
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var req dto.ItemRequest

	cmd := &cobra.Command{
		Use:   "add <type> <id>",
		Short: "Enqueue an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Type = args[0]
			req.ID = args[1]
			if errs := req.Validate(); len(errs) > 0 {
				return errors.New(dto.ToResponse(errs))
			}
			item, err := ctx.client().Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, item)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued %s %s (%s)\n", item.Type, item.ID, item.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.URL, "link", "", "Source URL of the item")
	cmd.Flags().StringVar(&req.Quality, "quality", "", "Download quality (low, normal, high, master)")
	cmd.Flags().StringVar(&req.Artist, "artist", "", "Artist name")
	cmd.Flags().StringVar(&req.Title, "title", "", "Item title")
	cmd.Flags().StringVar(&req.Source, "source", "", "Origin of the request (tidarr, lidarr)")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var all, finished bool

	cmd := &cobra.Command{
		Use:   "remove [id...]",
		Short: "Remove items from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			out := cmd.OutOrStdout()
			switch {
			case all:
				if err := client.RemoveAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "Removed all items")
				return nil
			case finished:
				if err := client.RemoveFinished(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(out, "Removed finished items")
				return nil
			case len(args) == 0:
				return errors.New("specify item ids, --finished or --all")
			}

			var errs []error
			for _, id := range args {
				if err := client.Remove(cmd.Context(), id); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
					continue
				}
				fmt.Fprintf(out, "Removed %s\n", id)
			}
			return errors.Join(errs...)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every item")
	cmd.Flags().BoolVar(&finished, "finished", false, "Remove finished items")
	cmd.MarkFlagsMutuallyExclusive("all", "finished")
	return cmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>...",
		Short: "Requeue failed items",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ctx.client()
			var errs []error
			for _, id := range args {
				item, err := client.Retry(cmd.Context(), id)
				if err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", id, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Retrying %s (%s)\n", item.ID, item.Status)
			}
			return errors.Join(errs...)
		},
	}
}

func newOutputCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "output <id>",
		Short: "Print the retained output of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := ctx.client().Output(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if out == "" {
				return nil
			}
			if !strings.HasSuffix(out, "\n") {
				out += "\n"
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}
}
