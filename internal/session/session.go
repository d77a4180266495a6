// Package session is the per-pane engine: it owns a pane's root, current
// path and volume identity and drives the tree cache, loader, search
// overlay, selection and navigation state store behind one API.
package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/gen"
	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/navstate"
	"github.com/justyntemme/twinpane/internal/provider"
	"github.com/justyntemme/twinpane/internal/search"
	"github.com/justyntemme/twinpane/internal/selection"
	"github.com/justyntemme/twinpane/internal/transfer"
	"github.com/justyntemme/twinpane/internal/tree"
)

// DefaultInitTimeout bounds opening a pane.
const DefaultInitTimeout = 10 * time.Second

var (
	// ErrUnavailable is returned when a pane could not be opened in time.
	ErrUnavailable = errors.New("pane unavailable")
	// ErrOutsideRoot rejects navigation above the pane's root.
	ErrOutsideRoot = errors.New("path is outside the pane root")
	// ErrNotFolder rejects folder operations on files.
	ErrNotFolder = errors.New("not a folder")
	// ErrSearching rejects file operations on search results, whose folders
	// are navigation context only.
	ErrSearching = errors.New("not available while searching")
	// ErrProtected rejects deleting the current path or one of its
	// ancestors.
	ErrProtected = errors.New("refusing to delete the current folder or an ancestor")
)

// Status is the pane's coarse state.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusMissing     // root directory does not exist
	StatusUnavailable // initialization timed out or failed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusMissing:
		return "missing"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "idle"
	}
}

// DirWatcher is the subset of watch.DirWatcher a session drives.
type DirWatcher interface {
	SetPaths(paths []string) error
	Events() <-chan string
}

// Options configure a Session.
type Options struct {
	PaneID         string
	Root           string // configured root, the fallback when a volume detaches
	Provider       provider.Provider
	Store          *navstate.Store  // nil disables persistence
	Coordinator    *Coordinator     // nil when the pane has no siblings
	Transfer       *transfer.Engine // nil builds one with default settings
	Conversion     provider.ConversionParams
	SortKey        tree.SortKey
	InitTimeout    time.Duration
	SearchDebounce time.Duration
	// OnRefresh, when set, is called after a directory was reloaded.
	OnRefresh func(dir string)
}

// Snapshot is a consistent view of the pane's scalar state.
type Snapshot struct {
	PaneID      string
	RootPath    string
	CurrentPath string
	Identity    string
	Status      Status
	Searching   bool
	Query       string
	Expanded    []tree.NodeID
	Selected    int
}

// Session is one pane.
type Session struct {
	id         string
	configRoot string
	prov       provider.Provider
	store      *navstate.Store
	coord      *Coordinator
	engine     *transfer.Engine
	conversion provider.ConversionParams

	cache   *tree.Cache
	loader  *Loader
	overlay *search.Overlay
	sel     *selection.Model

	initTimeout time.Duration
	onRefresh   func(dir string)
	unregister  func()

	// slot is the re-root generation. Every re-root cancels the previous
	// generation's restore and search work.
	slot gen.Slot

	mu          sync.Mutex
	genCtx      context.Context
	seq         uint64
	rootPath    string
	currentPath string
	identity    string
	status      Status
	expanded    tree.ExpansionSet
	restoreDone chan struct{}
	watcher     DirWatcher
	stopWatch   context.CancelFunc
}

// New returns a closed pane. Call Open to root it.
func New(opts Options) *Session {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = DefaultInitTimeout
	}
	if opts.Root != "" {
		opts.Root = filepath.Clean(opts.Root)
	}
	if opts.Transfer == nil {
		opts.Transfer = transfer.New(opts.Provider, transfer.Config{})
	}
	cache := tree.NewCache(opts.Provider, opts.SortKey)
	s := &Session{
		id:          opts.PaneID,
		configRoot:  opts.Root,
		prov:        opts.Provider,
		store:       opts.Store,
		coord:       opts.Coordinator,
		engine:      opts.Transfer,
		conversion:  opts.Conversion,
		cache:       cache,
		loader:      NewLoader(cache),
		overlay:     search.NewOverlay(opts.Provider, opts.SearchDebounce),
		sel:         selection.New(),
		initTimeout: opts.InitTimeout,
		onRefresh:   opts.OnRefresh,
		genCtx:      context.Background(),
		expanded:    tree.NewExpansionSet(),
		restoreDone: closedChan(),
	}
	if s.coord != nil {
		s.unregister = s.coord.RegisterPane(s.id, s.sel.Clear)
	}
	return s
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// ID returns the pane id.
func (s *Session) ID() string { return s.id }

// Cache exposes the pane's tree.
func (s *Session) Cache() *tree.Cache { return s.cache }

// Overlay exposes the pane's search overlay.
func (s *Session) Overlay() *search.Overlay { return s.overlay }

// Open re-roots the pane at root for the volume identified by identity
// (empty when unknown). Saved navigation state for (pane, identity) is
// reconciled against the provider and restored: the current path
// immediately, the expanded folders in the background (see RestoreDone).
// Opening is bounded by the init timeout; on expiry the pane becomes
// unavailable and ErrUnavailable is returned.
func (s *Session) Open(ctx context.Context, root, identity string) error {
	root = filepath.Clean(root)
	genCtx, seq := s.reroot(ctx)

	s.mu.Lock()
	if s.configRoot == "" {
		s.configRoot = root
	}
	s.rootPath = root
	s.currentPath = root
	s.identity = identity
	s.status = StatusLoading
	restoreDone := make(chan struct{})
	s.restoreDone = restoreDone
	s.mu.Unlock()

	debug.Log(debug.SESSION, "[%s] Open: root=%q identity=%q gen=%d", s.id, root, identity, seq)

	type opened struct {
		path  string
		saved []tree.NodeID
		err   error
	}
	initCtx, cancel := context.WithTimeout(genCtx, s.initTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	done := make(chan opened, 1)
	go func() {
		current, saved := s.reconcile(initCtx, root, identity)
		err := s.loader.LoadRoot(initCtx, current)
		done <- opened{path: current, saved: saved, err: err}
	}()

	var res opened
	select {
	case res = <-done:
	case <-initCtx.Done():
		res.err = initCtx.Err()
	}

	if !s.slot.IsCurrent(seq) {
		close(restoreDone)
		return context.Canceled
	}
	if res.err != nil {
		close(restoreDone)
		return s.failOpen(seq, root, res.err)
	}

	s.mu.Lock()
	s.currentPath = res.path
	s.status = StatusReady
	s.mu.Unlock()
	s.syncWatch()

	if len(res.saved) == 0 {
		close(restoreDone)
		s.persist(seq)
		return nil
	}
	go s.restore(genCtx, seq, res.saved, restoreDone)
	return nil
}

func (s *Session) failOpen(seq uint64, root string, err error) error {
	status := StatusUnavailable
	switch {
	case errors.Is(err, tree.ErrPathDoesNotExist):
		status = StatusMissing
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%s: %w", root, ErrUnavailable)
	case errors.Is(err, context.Canceled):
		// the caller gave up: unavailable, not stuck loading
	default:
		err = fmt.Errorf("%s: %w: %w", root, ErrUnavailable, err)
	}

	s.mu.Lock()
	if s.seq == seq {
		s.status = status
	}
	s.mu.Unlock()
	logging.L().Warn("pane open failed",
		zap.String("pane", s.id), zap.String("root", root), zap.Error(err))
	return err
}

// reconcile loads the saved state for (pane, identity) and resolves the
// saved path against the provider. Store errors are logged, not returned.
func (s *Session) reconcile(ctx context.Context, root, identity string) (string, []tree.NodeID) {
	if s.store == nil {
		return root, nil
	}
	st, ok, err := s.store.Load(ctx, s.id, identity)
	if err != nil {
		logging.L().Warn("navigation state unreadable",
			zap.String("pane", s.id), zap.String("identity", identity), zap.Error(err))
		return root, nil
	}
	if !ok {
		return root, nil
	}
	current := navstate.ResolvePath(ctx, s.prov, st.CurrentPath, root)
	ids := make([]tree.NodeID, len(st.ExpandedFolders))
	for i, id := range st.ExpandedFolders {
		ids[i] = tree.NodeID(id)
	}
	debug.Log(debug.SESSION, "[%s] reconcile: saved=%q -> %q, %d expanded", s.id, st.CurrentPath, current, len(ids))
	return current, ids
}

func (s *Session) restore(ctx context.Context, seq uint64, saved []tree.NodeID, done chan struct{}) {
	defer close(done)
	restored, err := s.loader.Restore(ctx, saved)
	if !s.slot.IsCurrent(seq) {
		debug.Log(debug.LOAD, "[%s] restore gen %d superseded", s.id, seq)
		return
	}

	s.mu.Lock()
	for _, id := range restored {
		if s.cache.Contains(id) {
			s.expanded.Add(id)
		}
	}
	s.mu.Unlock()

	if err != nil {
		debug.Log(debug.LOAD, "[%s] restore stopped: %v", s.id, err)
	}
	s.syncWatch()
	s.persist(seq)
}

// reroot starts a new generation: in-flight restore and search work of the
// previous one is cancelled and the tree, expansion and selection are
// discarded.
func (s *Session) reroot(parent context.Context) (context.Context, uint64) {
	genCtx, seq := s.slot.Next(context.WithoutCancel(parent))
	s.overlay.Clear()
	s.sel.Clear()
	s.cache.Reset()

	s.mu.Lock()
	s.genCtx = genCtx
	s.seq = seq
	s.expanded = tree.NewExpansionSet()
	s.mu.Unlock()
	return genCtx, seq
}

// RestoreDone is closed once the background expansion restore of the latest
// Open has finished or been abandoned.
func (s *Session) RestoreDone() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.restoreDone
}

// Navigate moves the pane to path, which must be a directory at or below the
// root. The tree is rebuilt from path. On error the pane is unchanged.
func (s *Session) Navigate(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	s.mu.Lock()
	root := s.rootPath
	s.mu.Unlock()

	if !provider.Within(path, root) {
		return fmt.Errorf("%s: %w", path, ErrOutsideRoot)
	}
	st, err := s.prov.GetStats(ctx, path)
	if err != nil {
		return err
	}
	if !st.IsDir {
		return fmt.Errorf("%s: %w", path, ErrNotFolder)
	}

	// fetched before re-rooting so a failed read leaves the pane untouched
	entries, err := s.prov.ReadDirectory(ctx, path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, seq := s.reroot(ctx)
	s.mu.Lock()
	if s.seq != seq {
		s.mu.Unlock()
		return context.Canceled
	}
	s.cache.Replace(path, entries)
	s.currentPath = path
	s.status = StatusReady
	s.mu.Unlock()

	debug.Log(debug.SESSION, "[%s] Navigate: %s gen=%d", s.id, path, seq)
	s.syncWatch()
	s.persist(seq)
	return nil
}

// NavigateUp moves to the parent of the current path. It reports false at
// the root.
func (s *Session) NavigateUp(ctx context.Context) (bool, error) {
	s.mu.Lock()
	current, root := s.currentPath, s.rootPath
	s.mu.Unlock()
	if current == root {
		return false, nil
	}
	return true, s.Navigate(ctx, filepath.Dir(current))
}

// Expand expands folder id, loading it on first use.
func (s *Session) Expand(ctx context.Context, id tree.NodeID) error {
	n, ok := s.cache.Node(id)
	if !ok {
		return tree.ErrStale
	}
	if !n.IsFolder() {
		return fmt.Errorf("%s: %w", n.Path, ErrNotFolder)
	}

	s.mu.Lock()
	genCtx, seq := s.genCtx, s.seq
	s.mu.Unlock()

	if err := s.loader.Expand(genCtx, id); err != nil {
		return err
	}
	if !s.slot.IsCurrent(seq) {
		return context.Canceled
	}

	s.mu.Lock()
	s.expanded.Add(id)
	s.mu.Unlock()
	s.syncWatch()
	s.persist(seq)
	return nil
}

// Collapse collapses folder id. Selected nodes that become hidden are
// deselected.
func (s *Session) Collapse(id tree.NodeID) {
	s.mu.Lock()
	if !s.expanded.Has(id) {
		s.mu.Unlock()
		return
	}
	s.expanded.Remove(id)
	seq := s.seq
	s.mu.Unlock()

	s.sel.Retain(s.Visible())
	s.syncWatch()
	s.persist(seq)
}

// Toggle expands or collapses folder id.
func (s *Session) Toggle(ctx context.Context, id tree.NodeID) error {
	if s.IsExpanded(id) {
		s.Collapse(id)
		return nil
	}
	return s.Expand(ctx, id)
}

// IsExpanded reports whether id is expanded.
func (s *Session) IsExpanded(id tree.NodeID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded.Has(id)
}

// Activate handles a double click on id: folders (including the parent link
// and search-result folders) are navigated into. Files are ignored.
func (s *Session) Activate(ctx context.Context, id tree.NodeID) error {
	if s.overlay.Active() {
		f, ok := search.Find(s.overlay.Result().Forest, id)
		if !ok {
			return tree.ErrStale
		}
		debug.Log(debug.SESSION, "[%s] Activate: leaving search for %s", s.id, f.Path)
		s.overlay.Clear()
		return s.Navigate(ctx, f.Path)
	}

	if id == tree.ParentLinkID {
		_, err := s.NavigateUp(ctx)
		return err
	}
	n, ok := s.cache.Node(id)
	if !ok {
		return tree.ErrStale
	}
	if !n.IsFolder() {
		return nil
	}
	return s.Navigate(ctx, n.Path)
}

// SetSortKey re-sorts the loaded tree without fetching.
func (s *Session) SetSortKey(key tree.SortKey) {
	s.cache.SetSortKey(key)
}

// SetQuery forwards a keystroke to the search overlay, scoped to the current
// path. An empty query returns the pane to its tree.
func (s *Session) SetQuery(query string) {
	s.mu.Lock()
	genCtx, current := s.genCtx, s.currentPath
	s.mu.Unlock()
	s.sel.Clear()
	s.overlay.SetQuery(genCtx, query, current)
}

// Visible returns the pane's flattened visible nodes. In search mode these
// are the overlay's folders; otherwise the tree under the current path,
// preceded by the parent link when the current path is below the root.
func (s *Session) Visible() []tree.Node {
	if s.overlay.Active() {
		var out []tree.Node
		search.Walk(s.overlay.Result().Forest, func(f *search.Folder, _ int) {
			out = append(out, tree.Node{ID: f.ID, Name: f.Name, Path: f.Path, Kind: provider.Folder})
		})
		return out
	}

	s.mu.Lock()
	current, root := s.currentPath, s.rootPath
	expanded := s.expanded.Clone()
	s.mu.Unlock()

	var out []tree.Node
	if current != root && current != "" {
		out = append(out, tree.ParentLink(current))
	}
	return append(out, s.cache.Flatten(expanded)...)
}

// Click applies a click to the selection and clears sibling panes.
func (s *Session) Click(id tree.NodeID, mods selection.Modifiers) bool {
	if !s.sel.Click(s.Visible(), id, mods) {
		return false
	}
	if s.coord != nil {
		s.coord.ClearOthers(s.id)
	}
	return true
}

// Move moves the keyboard focus (arrow keys), extending the selection when
// extend is set.
func (s *Session) Move(delta int, extend bool) (tree.NodeID, bool) {
	id, ok := s.sel.Move(s.Visible(), delta, extend)
	if ok && s.coord != nil {
		s.coord.ClearOthers(s.id)
	}
	return id, ok
}

// Selected returns the selected nodes in display order.
func (s *Session) Selected() []tree.Node {
	return s.sel.Nodes(s.Visible())
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() { s.sel.Clear() }

// Delete removes the selected nodes. It stops at the first failure and
// returns it; items already deleted stay deleted. The selection is cleared
// and the affected directories are reloaded. Nothing is deleted in search
// mode.
func (s *Session) Delete(ctx context.Context) error {
	if s.overlay.Active() {
		return ErrSearching
	}
	nodes := s.Selected()
	if len(nodes) == 0 {
		return nil
	}
	s.mu.Lock()
	current := s.currentPath
	s.mu.Unlock()
	for _, n := range nodes {
		if provider.Within(current, n.Path) {
			return fmt.Errorf("delete %s: %w", n.Path, ErrProtected)
		}
	}
	s.sel.Clear()

	dirs := make(map[string]bool)
	var err error
	for _, n := range nodes {
		if n.IsFolder() {
			err = s.prov.DeleteFolder(ctx, n.Path)
		} else {
			err = s.prov.DeleteFile(ctx, n.Path)
		}
		if err != nil {
			err = fmt.Errorf("delete %s: %w", n.Name, err)
			break
		}
		dirs[filepath.Dir(n.Path)] = true
		debug.Log(debug.SESSION, "[%s] deleted %s", s.id, n.Path)
	}
	for dir := range dirs {
		if rerr := s.Refresh(ctx, dir); rerr != nil {
			debug.Log(debug.SESSION, "[%s] refresh %s: %v", s.id, dir, rerr)
		}
	}
	return err
}

// CreateFolder creates name in the current path and reloads it.
func (s *Session) CreateFolder(ctx context.Context, name string) error {
	s.mu.Lock()
	current := s.currentPath
	s.mu.Unlock()

	if err := s.prov.CreateFolder(ctx, current, name); err != nil {
		return err
	}
	return s.Refresh(ctx, current)
}

// Refresh reloads dir if it is the current path or a loaded folder, merging
// the result so expanded subtrees survive. Other paths are ignored.
func (s *Session) Refresh(ctx context.Context, dir string) error {
	dir = filepath.Clean(dir)
	s.mu.Lock()
	genCtx, seq, current := s.genCtx, s.seq, s.currentPath
	s.mu.Unlock()

	loadCtx, cancel := mergeCtx(ctx, genCtx)
	defer cancel()

	var err error
	if dir == current {
		err = s.loader.LoadRoot(loadCtx, current)
	} else {
		n, ok := s.cache.FindByPath(dir)
		if !ok || !n.Loaded {
			return nil
		}
		err = s.loader.Reload(loadCtx, n.ID)
	}
	if err != nil || !s.slot.IsCurrent(seq) {
		return err
	}

	s.mu.Lock()
	s.expanded.Prune(s.cache)
	s.mu.Unlock()
	s.sel.Retain(s.Visible())
	debug.Log(debug.SESSION, "[%s] refreshed %s", s.id, dir)
	if s.onRefresh != nil {
		s.onRefresh(dir)
	}
	return nil
}

// mergeCtx returns a context cancelled when either ctx or genCtx is.
func mergeCtx(ctx, genCtx context.Context) (context.Context, context.CancelFunc) {
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(genCtx, cancel)
	return merged, func() {
		stop()
		cancel()
	}
}

// Snapshot returns the pane's scalar state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		PaneID:      s.id,
		RootPath:    s.rootPath,
		CurrentPath: s.currentPath,
		Identity:    s.identity,
		Status:      s.status,
		Searching:   s.overlay.Searching(),
		Query:       s.overlay.Query(),
		Expanded:    s.expanded.IDs(),
		Selected:    s.sel.Len(),
	}
}

// persist saves the navigation state of generation seq. Nothing is saved for
// superseded generations or when the pane is not ready.
func (s *Session) persist(seq uint64) {
	if s.store == nil {
		return
	}
	s.mu.Lock()
	if s.seq != seq || s.status != StatusReady {
		s.mu.Unlock()
		return
	}
	identity, current := s.identity, s.currentPath
	ids := s.expanded.IDs()
	s.mu.Unlock()

	expanded := make([]string, len(ids))
	for i, id := range ids {
		expanded[i] = string(id)
	}
	if err := s.store.Save(context.Background(), s.id, identity, current, expanded); err != nil {
		logging.L().Warn("saving navigation state failed",
			zap.String("pane", s.id), zap.String("path", current), zap.Error(err))
	}
}

// Close cancels outstanding work and detaches the pane from its coordinator.
func (s *Session) Close() {
	s.slot.Cancel()
	s.overlay.Clear()
	s.mu.Lock()
	stop := s.stopWatch
	s.stopWatch = nil
	s.watcher = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
	if s.unregister != nil {
		s.unregister()
	}
}
