package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/justyntemme/twinpane/internal/config"
	"github.com/justyntemme/twinpane/internal/provider"
	"github.com/justyntemme/twinpane/internal/tree"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the configuration file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.NewManager(a.configPath).Path())
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration, backing up any existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target := config.NewManager(a.configPath).Path()
			backup, err := config.GenerateConfig(target)
			if err != nil {
				return err
			}
			if backup != "" {
				fmt.Fprintln(cmd.OutOrStdout(), "backed up", backup)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "wrote", target)
			return nil
		},
	}

	setRoot := &cobra.Command{
		Use:   "set-root <pane> <path>",
		Short: "Set the root a pane falls back to",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[1])
			if err != nil {
				return err
			}
			m := config.NewManager(a.configPath)
			if err := m.Load(); err != nil {
				return err
			}
			return m.SetPaneRoot(args[0], root)
		},
	}

	setSort := &cobra.Command{
		Use:   "set-sort <key>",
		Short: "Set the default sort key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := tree.ParseSortKey(args[0]); err != nil {
				return err
			}
			m := config.NewManager(a.configPath)
			if err := m.Load(); err != nil {
				return err
			}
			return m.SetDefaultSort(args[0])
		},
	}

	var params provider.ConversionParams
	setConversion := &cobra.Command{
		Use:   "set-conversion",
		Short: "Set the conversion applied to audio copied between panes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m := config.NewManager(a.configPath)
			if err := m.Load(); err != nil {
				return err
			}
			return m.SetConversion(params)
		},
	}
	f := setConversion.Flags()
	f.BoolVar(&params.Enabled, "enabled", false, "convert audio files copied between panes")
	f.StringVar(&params.Format, "format", "wav", "target format")
	f.IntVar(&params.SampleRate, "sample-rate", 0, "target sample rate in Hz, 0 keeps the source rate")
	f.IntVar(&params.BitDepth, "bit-depth", 0, "target bit depth, 0 keeps the source depth")
	f.BoolVar(&params.Mono, "mono", false, "downmix to mono")
	f.BoolVar(&params.Normalize, "normalize", false, "normalize loudness")

	cmd.AddCommand(path, initCmd, setRoot, setSort, setConversion)
	return cmd
}
