package session

import (
	"context"

	"go.uber.org/zap"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/tree"
)

// Watch attaches w to the pane. The pane keeps w pointed at its current path
// and every expanded, loaded folder, and refreshes a directory whenever w
// reports it changed. Watching stops when ctx is done or the pane closes.
func (s *Session) Watch(ctx context.Context, w DirWatcher) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.stopWatch != nil {
		s.stopWatch()
	}
	s.watcher = w
	s.stopWatch = cancel
	s.mu.Unlock()

	s.syncWatch()
	go s.watchLoop(ctx, w)
}

func (s *Session) watchLoop(ctx context.Context, w DirWatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case dir, ok := <-w.Events():
			if !ok {
				return
			}
			debug.Log(debug.WATCH, "[%s] changed: %s", s.id, dir)
			if err := s.Refresh(ctx, dir); err != nil && ctx.Err() == nil {
				logging.L().Debug("refresh after change failed",
					zap.String("pane", s.id), zap.String("dir", dir), zap.Error(err))
			}
		}
	}
}

// WatchedPaths returns the directories the pane wants watched.
func (s *Session) WatchedPaths() []string {
	s.mu.Lock()
	current, status := s.currentPath, s.status
	ids := s.expanded.IDs()
	s.mu.Unlock()

	if status != StatusReady || current == "" {
		return nil
	}
	paths := []string{current}
	for _, id := range ids {
		if n, ok := s.cache.Node(id); ok && n.Loaded && id != tree.RootID {
			paths = append(paths, n.Path)
		}
	}
	return paths
}

// syncWatch points the attached watcher at WatchedPaths.
func (s *Session) syncWatch() {
	s.mu.Lock()
	w := s.watcher
	s.mu.Unlock()
	if w == nil {
		return
	}
	if err := w.SetPaths(s.WatchedPaths()); err != nil {
		debug.Log(debug.WATCH, "[%s] SetPaths: %v", s.id, err)
	}
}
