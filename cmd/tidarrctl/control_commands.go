package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/http/dto"
)

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause the download slot",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.client().Pause(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(cmd, ctx, st)
		},
	}
}

func newResumeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resume",
		Short: "Resume the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.client().Resume(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(cmd, ctx, st)
		},
	}
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := ctx.client().Status(cmd.Context())
			if err != nil {
				return err
			}
			return printStatus(cmd, ctx, st)
		},
	}
}

// statusOrder is the pipeline order used for summary rows.
var statusOrder = []domain.Status{
	domain.StatusQueueDownload,
	domain.StatusDownload,
	domain.StatusQueueProcessing,
	domain.StatusProcessing,
	domain.StatusFinished,
	domain.StatusError,
	domain.StatusNoDownload,
}

func printStatus(cmd *cobra.Command, ctx *commandContext, st *dto.StatusResponse) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, st)
	}
	out := cmd.OutOrStdout()
	state := "running"
	if st.Paused {
		state = "paused"
	}
	fmt.Fprintf(out, "Queue is %s (%d items, %d live clients)\n", state, st.Items, st.ListClients+st.ItemClients)

	rows := buildStatusRows(st.Counts, shouldColorize(out))
	if len(rows) == 0 {
		return nil
	}
	fmt.Fprint(out, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
	return nil
}

func buildStatusRows(counts map[string]int, colorize bool) [][]string {
	var rows [][]string
	seen := make(map[string]bool, len(counts))
	for _, s := range statusOrder {
		seen[string(s)] = true
		if n := counts[string(s)]; n > 0 {
			rows = append(rows, []string{formatStatus(s, colorize), strconv.Itoa(n)})
		}
	}

	var extra []string
	for s := range counts {
		if !seen[s] {
			extra = append(extra, s)
		}
	}
	sort.Strings(extra)
	for _, s := range extra {
		rows = append(rows, []string{s, strconv.Itoa(counts[s])})
	}
	return rows
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var page, pageSize int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List completed item ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().History(cmd.Context(), page, pageSize)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, resp)
			}
			if len(resp.Entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "History is empty")
				return nil
			}
			rows := make([][]string, 0, len(resp.Entries))
			for _, e := range resp.Entries {
				rows = append(rows, []string{e.ID, e.RecordedAt})
			}
			out := cmd.OutOrStdout()
			fmt.Fprint(out, renderTable([]string{"ID", "Recorded"}, rows, nil))
			p := resp.Pagination
			fmt.Fprintf(out, "Page %d of %d (%d entries)\n", p.CurrentPage, p.TotalPages, p.TotalItems)
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&pageSize, "page-size", 30, "Entries per page")
	return cmd
}
