package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/justyntemme/twinpane/internal/selection"
	"github.com/justyntemme/twinpane/internal/session"
	"github.com/justyntemme/twinpane/internal/trash"
)

func newRmCmd(a *app) *cobra.Command {
	var permanent bool
	cmd := &cobra.Command{
		Use:   "rm <path>...",
		Short: "Delete files and folders, moving them to the trash unless --permanent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if !permanent {
				bin, err := trash.Default()
				if err != nil {
					return fmt.Errorf("%w (use --permanent)", err)
				}
				a.prov.WithTrash(bin)
			}

			// group by parent so each directory is one selection
			var dirs []string
			byDir := make(map[string][]string)
			for _, arg := range args {
				abs, err := filepath.Abs(arg)
				if err != nil {
					return err
				}
				dir := filepath.Dir(abs)
				if _, ok := byDir[dir]; !ok {
					dirs = append(dirs, dir)
				}
				byDir[dir] = append(byDir[dir], abs)
			}

			s, err := a.openAt(ctx, a.paneID, dirs[0], session.Options{})
			if err != nil {
				return err
			}
			defer s.Close()

			for _, dir := range dirs {
				if s.Snapshot().CurrentPath != dir {
					if err := s.Navigate(ctx, dir); err != nil {
						return err
					}
				}
				s.ClearSelection()
				for _, path := range byDir[dir] {
					n, ok := s.Cache().FindByPath(path)
					if !ok {
						return fmt.Errorf("%s: no such file or folder", path)
					}
					s.Click(n.ID, selection.Modifiers{Ctrl: true})
				}
				if err := s.Delete(ctx); err != nil {
					return err
				}
				for _, path := range byDir[dir] {
					fmt.Fprintln(cmd.OutOrStdout(), "removed", path)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&permanent, "permanent", false, "delete instead of moving to the trash")
	return cmd
}
