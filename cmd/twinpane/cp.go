package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/justyntemme/twinpane/internal/progress"
	"github.com/justyntemme/twinpane/internal/session"
	"github.com/justyntemme/twinpane/internal/transfer"
)

func newCpCmd(a *app) *cobra.Command {
	var (
		convert    bool
		format     string
		sampleRate int
		bitDepth   int
		mono       bool
		normalize  bool
		fallback   bool
	)
	cmd := &cobra.Command{
		Use:   "cp <source>... <dest>",
		Short: "Copy files and folders into a pane, converting audio on request",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			dest := args[len(args)-1]
			if cmd.Flags().Changed("fallback") {
				a.cfg.Transfer.FallbackToCopy = fallback
			}

			s, err := a.openAt(ctx, a.paneID, dest, session.Options{})
			if err != nil {
				return err
			}
			defer s.Close()

			items, statErr := transfer.ItemsFromPaths(ctx, a.prov, args[:len(args)-1], "")
			if statErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", statErr)
			}
			if len(items) == 0 {
				return fmt.Errorf("nothing to copy")
			}

			conv := a.cfg.Transfer.Conversion
			flags := cmd.Flags()
			if flags.Changed("convert") {
				conv.Enabled = convert
			}
			if flags.Changed("format") {
				conv.Format = format
			}
			if flags.Changed("sample-rate") {
				conv.SampleRate = sampleRate
			}
			if flags.Changed("bit-depth") {
				conv.BitDepth = bitDepth
			}
			if flags.Changed("mono") {
				conv.Mono = mono
			}
			if flags.Changed("normalize") {
				conv.Normalize = normalize
			}

			abs, err := filepath.Abs(dest)
			if err != nil {
				return err
			}
			// a nil *Bar must not reach the engine as a non-nil interface
			var sink transfer.ProgressSink
			if progress.IsTerminal() {
				sink = progress.New(cmd.OutOrStdout())
			}
			rep, err := s.Transfer(ctx, transfer.Request{
				Items:      items,
				DestDir:    abs,
				Conversion: conv,
			}, sink)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.Summary())
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&convert, "convert", false, "convert audio files on the way")
	f.StringVar(&format, "format", "", "target format, e.g. wav")
	f.IntVar(&sampleRate, "sample-rate", 0, "target sample rate in Hz")
	f.IntVar(&bitDepth, "bit-depth", 0, "target bit depth")
	f.BoolVar(&mono, "mono", false, "downmix to mono")
	f.BoolVar(&normalize, "normalize", false, "normalize loudness")
	f.BoolVar(&fallback, "fallback", false, "copy the original when conversion fails")
	return cmd
}
