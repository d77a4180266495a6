package provider

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Operation names recorded by Memory.
const (
	OpRead    = "read"
	OpStat    = "stat"
	OpCopy    = "copy"
	OpCopyDir = "copydir"
	OpDelete  = "delete"
	OpMkdir   = "mkdir"
	OpConvert = "convert"
	OpSearch  = "search"
)

// Call is one recorded provider invocation.
type Call struct {
	Op   string
	Path string
}

type memEntry struct {
	kind    Kind
	data    []byte
	modTime time.Time
}

// Memory is an in-memory Provider. It records every call and supports
// injected failures and a read hook, which makes it the provider of choice
// for sandboxed panes and for tests.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	calls   []Call
	fail    map[Call]error
	clock   time.Time

	// OnRead, when set, runs before every ReadDirectory. A non-nil error is
	// returned to the caller. It may block.
	OnRead func(ctx context.Context, path string) error
}

var _ Provider = (*Memory)(nil)

// NewMemory returns an empty in-memory file system containing only "/".
func NewMemory() *Memory {
	return &Memory{
		entries: map[string]*memEntry{"/": {kind: Folder}},
		fail:    make(map[Call]error),
		clock:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *Memory) tickLocked() time.Time {
	m.clock = m.clock.Add(time.Minute)
	return m.clock
}

func (m *Memory) mkdirAllLocked(dir string) {
	for dir != "/" && dir != "." {
		if _, ok := m.entries[dir]; ok {
			return
		}
		m.entries[dir] = &memEntry{kind: Folder, modTime: m.tickLocked()}
		dir = filepath.Dir(dir)
	}
}

// AddFile creates a file (and its parent folders).
func (m *Memory) AddFile(path, content string) {
	path = filepath.Clean(path)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAllLocked(filepath.Dir(path))
	m.entries[path] = &memEntry{kind: File, data: []byte(content), modTime: m.tickLocked()}
}

// AddFolder creates a folder (and its parents).
func (m *Memory) AddFolder(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAllLocked(filepath.Clean(path))
}

// Remove deletes path and everything below it.
func (m *Memory) Remove(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(filepath.Clean(path))
}

func (m *Memory) removeLocked(path string) {
	prefix := path + "/"
	for p := range m.entries {
		if p == path || strings.HasPrefix(p, prefix) {
			delete(m.entries, p)
		}
	}
}

// Exists reports whether path is present.
func (m *Memory) Exists(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[filepath.Clean(path)]
	return ok
}

// Content returns a file's content.
func (m *Memory) Content(path string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[filepath.Clean(path)]
	if !ok || e.kind != File {
		return "", false
	}
	return string(e.data), true
}

// Fail makes every later op on path return err.
func (m *Memory) Fail(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[Call{Op: op, Path: filepath.Clean(path)}] = err
}

// Calls returns the recorded calls, optionally filtered by op.
func (m *Memory) Calls(op string) []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Call
	for _, c := range m.calls {
		if op == "" || c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls forgets recorded calls.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

func (m *Memory) record(op, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := Call{Op: op, Path: filepath.Clean(path)}
	m.calls = append(m.calls, c)
	return m.fail[c]
}

func (m *Memory) entryLocked(path string) (*memEntry, error) {
	e, ok := m.entries[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return e, nil
}

// ReadDirectory lists the direct children of path, sorted by name.
func (m *Memory) ReadDirectory(ctx context.Context, path string) ([]Entry, error) {
	path = filepath.Clean(path)
	if err := m.record(OpRead, path); err != nil {
		return nil, err
	}
	if m.OnRead != nil {
		if err := m.OnRead(ctx, path); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entryLocked(path)
	if err != nil {
		return nil, err
	}
	if e.kind != Folder {
		return nil, fmt.Errorf("read %s: %w", path, ErrNotDirectory)
	}

	var out []Entry
	for p, child := range m.entries {
		if p == path || filepath.Dir(p) != path {
			continue
		}
		out = append(out, m.toEntry(p, child))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) toEntry(path string, e *memEntry) Entry {
	return Entry{
		Name:         filepath.Base(path),
		Path:         path,
		Kind:         e.kind,
		Size:         int64(len(e.data)),
		CreatedAt:    e.modTime,
		ModifiedAt:   e.modTime,
		LastOpenedAt: e.modTime,
	}
}

// GetStats stats path.
func (m *Memory) GetStats(ctx context.Context, path string) (Stats, error) {
	path = filepath.Clean(path)
	if err := m.record(OpStat, path); err != nil {
		return Stats{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entryLocked(path)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Size:    int64(len(e.data)),
		IsDir:   e.kind == Folder,
		IsFile:  e.kind == File,
		ModTime: e.modTime,
	}, nil
}

// CopyFile copies a file to destDir/destName.
func (m *Memory) CopyFile(ctx context.Context, sourcePath, destDir, destName string) error {
	if err := m.record(OpCopy, sourcePath); err != nil {
		return err
	}
	return m.copyFile(filepath.Clean(sourcePath), filepath.Join(destDir, destName), nil)
}

func (m *Memory) copyFile(src, dst string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entryLocked(src)
	if err != nil {
		return err
	}
	if e.kind != File {
		return fmt.Errorf("copy %s: is a directory", src)
	}
	parent, err := m.entryLocked(filepath.Dir(dst))
	if err != nil {
		return err
	}
	if parent.kind != Folder {
		return fmt.Errorf("copy to %s: %w", dst, ErrNotDirectory)
	}
	if data == nil {
		data = append([]byte(nil), e.data...)
	}
	m.entries[dst] = &memEntry{kind: File, data: data, modTime: m.tickLocked()}
	return nil
}

// CopyFolder copies sourcePath recursively into destDir.
func (m *Memory) CopyFolder(ctx context.Context, sourcePath, destDir string) error {
	src := filepath.Clean(sourcePath)
	if err := m.record(OpCopyDir, src); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.entryLocked(src); err != nil {
		return err
	}
	dst := filepath.Join(destDir, filepath.Base(src))
	prefix := src + "/"
	for p, e := range m.entries {
		if p != src && !strings.HasPrefix(p, prefix) {
			continue
		}
		cp := *e
		cp.data = append([]byte(nil), e.data...)
		m.entries[dst+strings.TrimPrefix(p, src)] = &cp
	}
	return nil
}

// DeleteFile removes a file.
func (m *Memory) DeleteFile(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	if err := m.record(OpDelete, path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entryLocked(path)
	if err != nil {
		return err
	}
	if e.kind != File {
		return fmt.Errorf("delete %s: is a directory", path)
	}
	delete(m.entries, path)
	return nil
}

// DeleteFolder removes a folder recursively.
func (m *Memory) DeleteFolder(ctx context.Context, path string) error {
	path = filepath.Clean(path)
	if err := m.record(OpDelete, path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.entryLocked(path)
	if err != nil {
		return err
	}
	if e.kind != Folder {
		return fmt.Errorf("delete %s: %w", path, ErrNotDirectory)
	}
	m.removeLocked(path)
	return nil
}

// CreateFolder creates parentDir/name.
func (m *Memory) CreateFolder(ctx context.Context, parentDir, name string) error {
	path := filepath.Join(parentDir, name)
	if err := m.record(OpMkdir, path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[path]; ok {
		return fmt.Errorf("create folder %s: %w", path, ErrExists)
	}
	if _, err := m.entryLocked(filepath.Clean(parentDir)); err != nil {
		return err
	}
	m.entries[path] = &memEntry{kind: Folder, modTime: m.tickLocked()}
	return nil
}

// ConvertAndCopyFile simulates a conversion: the destination receives the
// source content prefixed with the requested format.
func (m *Memory) ConvertAndCopyFile(ctx context.Context, sourcePath, destDir, destName string, params ConversionParams) error {
	if err := m.record(OpConvert, sourcePath); err != nil {
		return err
	}
	content, ok := m.Content(sourcePath)
	if !ok {
		return fmt.Errorf("convert %s: %w", sourcePath, ErrNotFound)
	}
	data := []byte(fmt.Sprintf("%s:%d:%s", params.Format, params.SampleRate, content))
	return m.copyFile(filepath.Clean(sourcePath), filepath.Join(destDir, destName), data)
}

// Search returns non-hidden entries below scopePath whose name contains query.
func (m *Memory) Search(ctx context.Context, query, scopePath string) ([]Entry, error) {
	scope := filepath.Clean(scopePath)
	if scopePath == "" {
		scope = "/"
	}
	if err := m.record(OpSearch, scope); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sq := parseSearchQuery(query)
	if sq.empty() {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	prefix := strings.TrimSuffix(scope, "/") + "/"
	var out []Entry
	for p, e := range m.entries {
		if !strings.HasPrefix(p, prefix) || hiddenBelow(strings.TrimPrefix(p, prefix)) {
			continue
		}
		if sq.match(filepath.Base(p), e.kind == Folder) {
			out = append(out, m.toEntry(p, e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func hiddenBelow(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if IsHidden(part) {
			return true
		}
	}
	return false
}
