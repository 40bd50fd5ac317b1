package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cesargomez89/tidarr/internal/constants"
	"github.com/cesargomez89/tidarr/internal/httpclient"
)

type commandContext struct {
	urlFlag  *string
	jsonFlag *bool
}

func (c *commandContext) client() *httpclient.Client {
	return httpclient.NewClient(c.baseURL(), nil)
}

func (c *commandContext) baseURL() string {
	if c.urlFlag != nil && strings.TrimSpace(*c.urlFlag) != "" {
		return strings.TrimSpace(*c.urlFlag)
	}
	if v := os.Getenv("TIDARR_API_URL"); v != "" {
		return v
	}
	return constants.DefaultAPIURL
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func newRootCommand() *cobra.Command {
	var urlFlag string
	var jsonFlag bool

	ctx := &commandContext{urlFlag: &urlFlag, jsonFlag: &jsonFlag}

	rootCmd := &cobra.Command{
		Use:           "tidarrctl",
		Short:         "Control a running tidarr daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&urlFlag, "url", "", "Daemon base URL (default $TIDARR_API_URL or "+constants.DefaultAPIURL+")")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print raw JSON instead of tables")

	rootCmd.AddCommand(newListCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newRemoveCommand(ctx))
	rootCmd.AddCommand(newRetryCommand(ctx))
	rootCmd.AddCommand(newOutputCommand(ctx))
	rootCmd.AddCommand(newPauseCommand(ctx))
	rootCmd.AddCommand(newResumeCommand(ctx))
	rootCmd.AddCommand(newStatusCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))

	return rootCmd
}
