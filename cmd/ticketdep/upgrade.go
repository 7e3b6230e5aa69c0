package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUpgradeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "upgrade",
		Short: "Register the ticketref custom field if it is missing",
		Long: `Register the ticketref custom field (textarea, 68x1, label "Dependencies")
in the config file. An existing definition is never overwritten.`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, runUpgrade),
	}
}

func runUpgrade(cmd *cobra.Command, a *app, _ []string) error {
	ctx := cmd.Context()
	needed, err := a.plugin.EnvironmentNeedsUpgrade(ctx)
	if err != nil {
		return err
	}
	if !needed {
		fmt.Fprintln(cmd.OutOrStdout(), "environment is up to date")
		return nil
	}
	if err := a.plugin.UpgradeEnvironment(ctx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "registered custom field in %s\n", a.cfg.Path())
	return nil
}
