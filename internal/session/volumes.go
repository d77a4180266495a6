package session

import (
	"context"
	"path/filepath"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/volume"
)

// HandleVolumeEvent applies a volume watcher event. An attach re-roots the
// pane onto the new volume. A detach of the volume the pane is showing
// re-roots it onto its configured root with no identity; other detaches are
// ignored. It reports whether the pane re-rooted.
func (s *Session) HandleVolumeEvent(ctx context.Context, ev volume.Event) (bool, error) {
	s.mu.Lock()
	root, identity, fallback := s.rootPath, s.identity, s.configRoot
	s.mu.Unlock()

	switch ev.Kind {
	case volume.Attached:
		debug.Log(debug.VOLUME, "[%s] attached %s (%s)", s.id, ev.Volume.Path, ev.Volume.Identity)
		return true, s.Open(ctx, ev.Volume.Path, ev.Volume.Identity)

	case volume.Detached:
		if !s.showing(ev.Volume, root, identity) {
			return false, nil
		}
		debug.Log(debug.VOLUME, "[%s] detached %s, back to %s", s.id, ev.Volume.Path, fallback)
		return true, s.Open(ctx, fallback, "")
	}
	return false, nil
}

// showing reports whether the pane is rooted on v.
func (s *Session) showing(v volume.Volume, root, identity string) bool {
	if v.Identity != "" && identity != "" {
		return v.Identity == identity
	}
	return filepath.Clean(v.Path) == root
}
