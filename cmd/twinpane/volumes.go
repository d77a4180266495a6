package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/session"
	"github.com/justyntemme/twinpane/internal/volume"
)

func newVolumesCmd(a *app) *cobra.Command {
	var (
		follow bool
		panes  []string
	)
	cmd := &cobra.Command{
		Use:   "volumes",
		Short: "List mounted volumes, or follow attach and detach events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if !follow {
				printVolumes(out, volume.List())
				return nil
			}
			return a.followVolumes(cmd.Context(), out, panes)
		},
	}
	cmd.Flags().BoolVarP(&follow, "watch", "w", false, "report attach and detach events until interrupted")
	cmd.Flags().StringSliceVar(&panes, "follow", nil, "panes that re-root onto attached volumes")
	return cmd
}

func printVolumes(w io.Writer, vols []volume.Volume) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tPATH\tIDENTITY\tREMOVABLE")
	for _, v := range vols {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", v.Name, v.Path, identityLabel(v.Identity), v.Removable)
	}
	tw.Flush()
}

// followVolumes streams volume events, re-rooting the named panes on each.
func (a *app) followVolumes(ctx context.Context, out io.Writer, paneIDs []string) error {
	var panes []*session.Session
	for _, id := range paneIDs {
		s, err := a.openAt(ctx, id, "", session.Options{})
		if err != nil {
			return fmt.Errorf("pane %s: %w", id, err)
		}
		defer s.Close()
		panes = append(panes, s)
	}

	w := volume.NewWatcher()
	if iv := a.cfg.PollInterval(); iv > 0 {
		w.Interval = iv
	}
	if len(a.cfg.Volumes.MountRoots) > 0 {
		w.Roots = a.cfg.Volumes.MountRoots
	}
	printVolumes(out, w.Snapshot())

	events := make(chan volume.Event)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(ctx, events)
	})
	g.Go(func() error {
		for ev := range events {
			fmt.Fprintf(out, "%s\t%s\t%s\n", ev.Kind, ev.Volume.Path, identityLabel(ev.Volume.Identity))
			for _, s := range panes {
				moved, err := s.HandleVolumeEvent(ctx, ev)
				if err != nil {
					logging.L().Warn("pane could not follow volume",
						zap.String("pane", s.ID()), zap.String("volume", ev.Volume.Path), zap.Error(err))
					continue
				}
				if moved {
					fmt.Fprintf(out, "  pane %s now at %s\n", s.ID(), s.Snapshot().CurrentPath)
				}
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
