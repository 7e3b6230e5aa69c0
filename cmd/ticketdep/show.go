package main

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

func parseTicketArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid ticket id %q", arg)
	}
	return id, nil
}

func newShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show the dependencies and supertickets of a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseTicketArg(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			t, err := a.store.Get(ctx, id)
			if err != nil {
				return err
			}
			view, err := a.plugin.TicketLinks(ctx, &t)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "#%d %s [%s]\n", t.ID, t.Summary, t.Status)
			fmt.Fprintf(out, "%s:\n", a.plugin.Label())
			if view.Empty() {
				return nil
			}
			for _, l := range view.Dependencies {
				fmt.Fprintf(out, "  %s (%s)\n", l.Text, l.Status)
			}
			for _, l := range view.Supertickets {
				fmt.Fprintf(out, "  %s (%s)\n", l.Text, l.Status)
			}
			fmt.Fprintf(out, "  %s\n", a.plugin.Legend())
			return nil
		}),
	}
}

func newReferencingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "referencing <id>",
		Short: "List the tickets that depend on a ticket",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := parseTicketArg(args[0])
			if err != nil {
				return err
			}
			ids, err := a.store.Referencing(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, ref := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), ref)
			}
			return nil
		}),
	}
}

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <old> <new>",
		Short: "Show ids added and removed between two dependency lists",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			added, removed := ticketref.Diff(args[0], args[1])
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "added: %s\n", ticketref.Format(added))
			fmt.Fprintf(out, "removed: %s\n", ticketref.Format(removed))
			return nil
		},
	}
}

// defaultColumns are the result columns a ticket query shows by default.
var defaultColumns = []string{"id", "summary", "status"}

func newColumnsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List the ticket query result columns with the dependency field label",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			out := cmd.OutOrStdout()
			for _, c := range a.plugin.QueryColumns(slices.Clone(defaultColumns)) {
				if c == ticketref.FieldName {
					label, _ := a.plugin.QueryColumn(a.cfg.Get().TicketCustom[c])
					fmt.Fprintf(out, "%s\t%s\n", c, label)
					continue
				}
				fmt.Fprintln(out, c)
			}
			return nil
		}),
	}
}
