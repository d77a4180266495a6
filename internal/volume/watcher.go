package volume

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/logging"
	"go.uber.org/zap"
)

// DefaultPollInterval is the probe period when none is configured.
const DefaultPollInterval = 2 * time.Second

// Watcher probes mounted volumes periodically and emits the differences.
// Changes under the mount roots trigger an immediate probe.
type Watcher struct {
	// List probes the mounted volumes. Defaults to List.
	List func() []Volume
	// Interval between probes. Defaults to DefaultPollInterval.
	Interval time.Duration
	// Roots are watched with fsnotify for immediate probes. Defaults to
	// MountRoots; missing directories are ignored.
	Roots []string

	known map[string]Volume
}

// NewWatcher returns a Watcher with the platform defaults.
func NewWatcher() *Watcher {
	return &Watcher{List: List, Interval: DefaultPollInterval, Roots: MountRoots}
}

// Snapshot probes once and records the result as the known state without
// emitting events. It returns the probed volumes.
func (w *Watcher) Snapshot() []Volume {
	vols := w.list()
	w.known = index(vols)
	return vols
}

func (w *Watcher) list() []Volume {
	if w.List == nil {
		return List()
	}
	return w.List()
}

// Run probes until ctx is done, sending events on out. The first probe only
// establishes the known state unless Snapshot was called before. out is
// closed when Run returns.
func (w *Watcher) Run(ctx context.Context, out chan<- Event) error {
	defer close(out)

	interval := w.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if w.known == nil {
		w.Snapshot()
	}

	var notify <-chan fsnotify.Event
	if fw := w.watchRoots(); fw != nil {
		defer fw.Close()
		notify = fw.Events
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case ev, ok := <-notify:
			if !ok {
				notify = nil
				continue
			}
			debug.Log(debug.VOLUME, "mount root changed: %s", ev)
		}
		for _, e := range w.Probe() {
			select {
			case out <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Probe lists volumes once and returns the events relative to the last
// known state, detaches first.
func (w *Watcher) Probe() []Event {
	next := index(w.list())
	events := Diff(w.known, next)
	w.known = next
	for _, e := range events {
		debug.Log(debug.VOLUME, "%s: %s (%s)", e.Kind, e.Volume.Path, e.Volume.Identity)
	}
	return events
}

func (w *Watcher) watchRoots() *fsnotify.Watcher {
	roots := w.Roots
	if roots == nil {
		roots = MountRoots
	}
	if len(roots) == 0 {
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		logging.L().Warn("volume watcher: fsnotify unavailable, polling only", zap.Error(err))
		return nil
	}
	added := 0
	for _, r := range roots {
		if st, err := os.Stat(r); err != nil || !st.IsDir() {
			continue
		}
		if err := fw.Add(r); err == nil {
			added++
		}
	}
	if added == 0 {
		fw.Close()
		return nil
	}
	return fw
}

func key(v Volume) string {
	if v.Identity != "" {
		return v.Identity
	}
	return "path:" + filepath.Clean(v.Path)
}

func index(vols []Volume) map[string]Volume {
	m := make(map[string]Volume, len(vols))
	for _, v := range vols {
		m[key(v)] = v
	}
	return m
}

// Diff returns the detach events for volumes in prev but not next, then the
// attach events for volumes in next but not prev, each sorted by path.
func Diff(prev, next map[string]Volume) []Event {
	var gone, added []Volume
	for k, v := range prev {
		if _, ok := next[k]; !ok {
			gone = append(gone, v)
		}
	}
	for k, v := range next {
		if _, ok := prev[k]; !ok {
			added = append(added, v)
		}
	}
	sortVolumes(gone)
	sortVolumes(added)

	events := make([]Event, 0, len(gone)+len(added))
	for _, v := range gone {
		events = append(events, Event{Kind: Detached, Volume: v})
	}
	for _, v := range added {
		events = append(events, Event{Kind: Attached, Volume: v})
	}
	return events
}
