package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/justyntemme/twinpane/internal/trash"
)

func newTrashCmd(_ *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trash",
		Short: "List, restore or empty the trash",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List trashed items, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bin, err := trash.Default()
			if err != nil {
				return err
			}
			items, err := bin.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tORIGINAL\tDELETED\tSIZE")
			for _, it := range items {
				size := humanize.Bytes(uint64(max(it.Size, 0)))
				if it.IsDir {
					size = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", it.Name, it.OriginalPath, humanize.Time(it.DeletedAt), size)
			}
			return tw.Flush()
		},
	}

	var to string
	restore := &cobra.Command{
		Use:   "restore <name>",
		Short: "Restore a trashed item to where it was deleted from",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bin, err := trash.Default()
			if err != nil {
				return err
			}
			items, err := bin.List()
			if err != nil {
				return err
			}
			for _, it := range items {
				if it.Name != args[0] {
					continue
				}
				if to == "" {
					err = bin.Restore(it)
					to = it.OriginalPath
				} else {
					to, err = filepath.Abs(to)
					if err == nil {
						err = bin.RestoreTo(it, to)
					}
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "restored", to)
				return nil
			}
			return fmt.Errorf("%s: not in the trash", args[0])
		},
	}
	restore.Flags().StringVar(&to, "to", "", "restore to this path instead")

	empty := &cobra.Command{
		Use:   "empty",
		Short: "Permanently delete everything in the trash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bin, err := trash.Default()
			if err != nil {
				return err
			}
			return bin.Empty()
		},
	}

	cmd.AddCommand(list, restore, empty)
	return cmd
}
