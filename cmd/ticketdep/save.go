package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/antigravity-dev/ticketdep/internal/store"
	"github.com/antigravity-dev/ticketdep/internal/ticketref"
)

type saveOptions struct {
	id      int64
	summary string
	status  string
	depends string
}

func newSaveCmd(opts *options) *cobra.Command {
	so := &saveOptions{}
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create or update a ticket, validating its dependencies",
		Long: `Create a ticket (no --id) or update an existing one. The dependency list
is validated and normalized before the ticket is written; any problem aborts
the save.

Examples:
  ticketdep save --summary "Write docs" --depends "1,2"
  ticketdep save --id 3 --depends "1 2 4"`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			return runSave(cmd, a, so)
		}),
	}
	cmd.Flags().Int64Var(&so.id, "id", 0, "ticket to update (0 creates a new ticket)")
	cmd.Flags().StringVar(&so.summary, "summary", "", "ticket summary")
	cmd.Flags().StringVar(&so.status, "status", "", "ticket status")
	cmd.Flags().StringVar(&so.depends, "depends", "", "ids of the tickets this ticket depends on")
	return cmd
}

func runSave(cmd *cobra.Command, a *app, so *saveOptions) error {
	ctx := cmd.Context()
	flags := cmd.Flags()

	t := &store.Ticket{}
	if so.id != 0 {
		existing, err := a.store.Get(ctx, so.id)
		if err != nil {
			return err
		}
		t = &existing
	}
	oldValue := t.Field(ticketref.FieldName)

	if flags.Changed("summary") {
		t.Summary = so.summary
	}
	if flags.Changed("status") {
		t.Status = so.status
	}
	if flags.Changed("depends") || so.id == 0 {
		t.SetField(ticketref.FieldName, so.depends)
	}

	a.plugin.PrepareTicket(ctx, t)
	if problems := a.plugin.ValidateTicket(ctx, t); len(problems) > 0 {
		printProblems(cmd.ErrOrStderr(), problems)
		return errProblems
	}

	if err := a.store.Save(ctx, t); err != nil {
		return err
	}
	a.logger.Info("ticket saved", "ticket", t.ID, ticketref.FieldName, t.Field(ticketref.FieldName))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "#%d %s: %s\n", t.ID, a.plugin.Label(), t.Field(ticketref.FieldName))
	change, err := a.plugin.ChangeSummary(ctx, oldValue, t.Field(ticketref.FieldName))
	if err != nil {
		return err
	}
	for _, line := range change.Lines(a.translate) {
		fmt.Fprintf(out, "  %s\n", line)
	}
	return nil
}

func newValidateCmd(opts *options) *cobra.Command {
	var id int64
	var depends string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a dependency list without saving",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			t := &store.Ticket{ID: id}
			t.SetField(ticketref.FieldName, depends)
			problems := a.plugin.ValidateTicket(cmd.Context(), t)
			fmt.Fprintf(cmd.OutOrStdout(), "normalized: %q\n", t.Field(ticketref.FieldName))
			if len(problems) > 0 {
				printProblems(cmd.ErrOrStderr(), problems)
				return errProblems
			}
			return nil
		}),
	}
	cmd.Flags().Int64Var(&id, "id", 0, "ticket the list belongs to (0 for a new ticket)")
	cmd.Flags().StringVar(&depends, "depends", "", "ids of the tickets depended on")
	return cmd
}

func printProblems(w io.Writer, problems []ticketref.Problem) {
	for _, p := range problems {
		fmt.Fprintf(w, "%s: %s\n", p.Field, p.Message)
	}
}
