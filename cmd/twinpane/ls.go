package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/session"
	"github.com/justyntemme/twinpane/internal/tree"
	"github.com/justyntemme/twinpane/internal/watch"
)

func newLsCmd(a *app) *cobra.Command {
	var (
		depth   int
		sortKey string
		follow  bool
	)
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a pane's tree, restoring its saved expansion",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			refreshed := make(chan string, 16)
			opts := session.Options{}
			if follow {
				opts.OnRefresh = func(dir string) {
					select {
					case refreshed <- dir:
					default:
					}
				}
			}
			s, err := a.openAt(ctx, a.paneID, path, opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if sortKey != "" {
				key, err := tree.ParseSortKey(sortKey)
				if err != nil {
					return err
				}
				s.SetSortKey(key)
			}
			if err := expandTo(ctx, s, depth); err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), s)
			if !follow {
				return nil
			}

			dw, err := watch.New(a.cfg.WatchDebounce())
			if err != nil {
				return fmt.Errorf("failed to start watcher: %w", err)
			}
			defer dw.Close()
			s.Watch(ctx, dw)

			for {
				select {
				case <-ctx.Done():
					return nil
				case dir := <-refreshed:
					logging.L().Debug("directory changed", zap.String("dir", dir))
					fmt.Fprintf(cmd.OutOrStdout(), "\n--- %s changed ---\n", dir)
					printTree(cmd.OutOrStdout(), s)
				}
			}
		},
	}
	cmd.Flags().IntVarP(&depth, "depth", "d", 0, "expand folders up to this depth")
	cmd.Flags().StringVarP(&sortKey, "sort", "s", "", "sort key: name, created, modified, opened")
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "keep running and reprint on changes")
	return cmd
}

// expandTo expands every folder above depth levels below the current path.
func expandTo(ctx context.Context, s *session.Session, depth int) error {
	level := []tree.NodeID{tree.RootID}
	for d := 0; d < depth && len(level) > 0; d++ {
		var next []tree.NodeID
		for _, id := range level {
			children, _ := s.Cache().Children(id)
			for _, c := range children {
				if !c.IsFolder() {
					continue
				}
				if err := s.Expand(ctx, c.ID); err != nil {
					logging.L().Warn("expand failed", zap.String("path", c.Path), zap.Error(err))
					continue
				}
				next = append(next, c.ID)
			}
		}
		level = next
	}
	return ctx.Err()
}

func printTree(w io.Writer, s *session.Session) {
	snap := s.Snapshot()
	fmt.Fprintf(w, "%s  [%s, volume %s]\n", snap.CurrentPath, snap.Status, identityLabel(snap.Identity))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	var walk func(id tree.NodeID, depth int)
	walk = func(id tree.NodeID, depth int) {
		children, _ := s.Cache().Children(id)
		for _, n := range children {
			writeNode(tw, n, depth, s.IsExpanded(n.ID))
			if n.IsFolder() && s.IsExpanded(n.ID) {
				walk(n.ID, depth+1)
			}
		}
	}
	if snap.CurrentPath != snap.RootPath {
		writeNode(tw, tree.ParentLink(snap.CurrentPath), 0, false)
	}
	walk(tree.RootID, 0)
	tw.Flush()
}

func writeNode(w io.Writer, n tree.Node, depth int, expanded bool) {
	marker := "  "
	size := humanize.Bytes(uint64(max(n.Size, 0)))
	if n.IsFolder() {
		marker = "+ "
		if expanded {
			marker = "- "
		}
		size = ""
	}
	modified := ""
	if !n.ModifiedAt.IsZero() {
		modified = humanize.Time(n.ModifiedAt)
	}
	fmt.Fprintf(w, "%s%s%s\t%s\t%s\n", strings.Repeat("  ", depth), marker, n.Name, size, modified)
}

func identityLabel(id string) string {
	if id == "" {
		return "unknown"
	}
	return id
}
