package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/justyntemme/twinpane/internal/config"
	"github.com/justyntemme/twinpane/internal/convert"
	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/navstate"
	"github.com/justyntemme/twinpane/internal/provider"
	"github.com/justyntemme/twinpane/internal/session"
	"github.com/justyntemme/twinpane/internal/transfer"
	"github.com/justyntemme/twinpane/internal/tree"
	"github.com/justyntemme/twinpane/internal/volume"
)

// app is the state shared by every subcommand.
type app struct {
	configPath string
	paneID     string
	logLevel   string

	cfg   config.Config
	prov  *provider.Local
	store *navstate.Store
	coord *session.Coordinator
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	m := config.NewManager(a.configPath)
	if err := m.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = m.Get()

	lc := a.cfg.Logging()
	if a.logLevel != "" {
		lc.Level = a.logLevel
	}
	if err := logging.Init(lc); err != nil {
		return fmt.Errorf("failed to init logging: %w", err)
	}
	if err := m.ParseError(); err != nil {
		logging.L().Warn("config has errors, using defaults", zap.String("path", m.Path()), zap.Error(err))
	}

	var conv provider.Converter
	if ff, err := convert.New(""); err == nil {
		conv = ff
	} else {
		logging.L().Debug("conversion disabled", zap.Error(err))
	}
	a.prov = provider.NewLocal(conv)

	backend, err := navstate.OpenSQLite(a.cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	a.store = navstate.New(backend)
	a.coord = session.NewCoordinator()
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.L().Warn("closing state store", zap.Error(err))
		}
	}
	_ = logging.Sync()
	return nil
}

func (a *app) engine() *transfer.Engine {
	t := a.cfg.Transfer
	return transfer.New(a.prov, transfer.Config{
		AudioExtensions: t.AudioExtensions,
		FallbackToCopy:  t.FallbackToCopy,
		CountWorkers:    t.CountWorkers,
	})
}

// newSession builds pane paneID without opening it.
func (a *app) newSession(paneID string, opts session.Options) *session.Session {
	sortKey, err := tree.ParseSortKey(a.cfg.FileList.DefaultSort)
	if err != nil {
		logging.L().Warn("unknown sort key, using name", zap.String("sort", a.cfg.FileList.DefaultSort))
	}
	opts.PaneID = paneID
	if opts.Root == "" {
		if pc, ok := a.cfg.Pane(paneID); ok {
			opts.Root = pc.Root
		}
	}
	opts.Provider = a.prov
	opts.Store = a.store
	opts.Coordinator = a.coord
	opts.Transfer = a.engine()
	opts.Conversion = a.cfg.Transfer.Conversion
	opts.SortKey = sortKey
	opts.InitTimeout = a.cfg.InitTimeout()
	opts.SearchDebounce = a.cfg.SearchDebounce()
	return session.New(opts)
}

// openAt opens pane paneID and waits for its expansion restore. With an
// empty path the pane opens on its configured root; otherwise it opens on
// the volume holding path and navigates there.
func (a *app) openAt(ctx context.Context, paneID, path string, opts session.Options) (*session.Session, error) {
	target := ""
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		target = abs
	}

	root := target
	if root == "" {
		pc, _ := a.cfg.Pane(paneID)
		root = pc.Root
	}
	if root == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		root = home
	}

	identity := ""
	if v, ok := volume.Find(volume.List(), root); ok {
		identity = v.Identity
		if target != "" {
			root = v.Path
		}
	}

	s := a.newSession(paneID, opts)
	if err := s.Open(ctx, root, identity); err != nil {
		s.Close()
		return nil, err
	}
	if target != "" && target != s.Snapshot().CurrentPath {
		if err := s.Navigate(ctx, target); err != nil {
			s.Close()
			return nil, err
		}
	}
	<-s.RestoreDone()
	return s, nil
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:                "twinpane",
		Short:              "Dual-pane file tree engine with volume-aware navigation state",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (.json, .yaml or .yml)")
	root.PersistentFlags().StringVarP(&a.paneID, "pane", "p", "left", "pane id")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newLsCmd(a),
		newSearchCmd(a),
		newCpCmd(a),
		newRmCmd(a),
		newVolumesCmd(a),
		newStateCmd(a),
		newTrashCmd(a),
		newConfigCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var batch *transfer.BatchError
		if errors.As(err, &batch) {
			fmt.Fprint(os.Stderr, batch.Report())
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
