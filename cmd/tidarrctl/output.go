package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/cesargomez89/tidarr/internal/domain"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func statusColors(s domain.Status) text.Colors {
	switch s {
	case domain.StatusFinished:
		return text.Colors{text.FgGreen}
	case domain.StatusError:
		return text.Colors{text.FgRed}
	case domain.StatusDownload, domain.StatusProcessing:
		return text.Colors{text.FgCyan}
	case domain.StatusNoDownload:
		return text.Colors{text.FgHiBlack}
	}
	return text.Colors{text.FgYellow}
}

func formatStatus(s domain.Status, colorize bool) string {
	if !colorize {
		return string(s)
	}
	return statusColors(s).Sprint(string(s))
}
