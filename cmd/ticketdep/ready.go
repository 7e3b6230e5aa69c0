package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/ticketdep/internal/graph"
)

func newReadyCmd(opts *options) *cobra.Command {
	var blocked bool
	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List open tickets whose dependencies are all closed",
		Long: `List the open tickets whose dependencies are all closed. With --blocked,
list the open tickets still waiting on a dependency instead. A dependency
cycle is reported on stderr; tickets in a cycle are never ready.`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			tickets, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			g := graph.BuildDepGraph(tickets)
			if cycle := g.FindCycle(); cycle != nil {
				a.logger.Warn("dependency cycle", "tickets", cycle)
				fmt.Fprintf(cmd.ErrOrStderr(), "dependency cycle: %s\n", formatPath(cycle))
			}

			nodes := g.Ready()
			if blocked {
				nodes = g.Blocked()
			}
			out := cmd.OutOrStdout()
			for _, n := range nodes {
				fmt.Fprintf(out, "#%d %s [%s]\n", n.ID, n.Summary, n.Status)
			}
			return nil
		}),
	}
	cmd.Flags().BoolVar(&blocked, "blocked", false, "list blocked tickets instead")
	return cmd
}

func formatPath(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(parts, " ► ")
}
