package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

func newStateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect saved per-volume navigation state",
	}

	show := &cobra.Command{
		Use:   "show [pane]",
		Short: "List saved states, optionally for one pane",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.store.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PANE\tVOLUME\tPATH\tEXPANDED")
			for _, r := range records {
				if len(args) == 1 && r.PaneID != args[0] {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", r.PaneID, r.Identity, r.State.CurrentPath, len(r.State.ExpandedFolders))
			}
			return tw.Flush()
		},
	}

	forget := &cobra.Command{
		Use:   "forget <pane> [volume]",
		Short: "Drop the saved state of a pane, on one volume or all of them",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pane := args[0]
			if len(args) == 2 {
				return a.store.Forget(ctx, pane, args[1])
			}
			records, err := a.store.List(ctx)
			if err != nil {
				return err
			}
			var errs error
			for _, r := range records {
				if r.PaneID == pane {
					errs = multierr.Append(errs, a.store.Forget(ctx, pane, r.Identity))
				}
			}
			return errs
		},
	}

	cmd.AddCommand(show, forget)
	return cmd
}
