package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/trash"
)

// Common file permission modes
const (
	DirPermission  = 0o755
	FilePermission = 0o644
)

// Local serves the host file system.
type Local struct {
	converter Converter
	bin       *trash.Bin
}

// NewLocal returns a local-disk provider. A nil converter makes every
// ConvertAndCopyFile call fail with ErrConversionUnavailable.
func NewLocal(converter Converter) *Local {
	return &Local{converter: converter}
}

// WithTrash makes deletes move items into b instead of removing them.
func (l *Local) WithTrash(b *trash.Bin) *Local {
	l.bin = b
	return l
}

func (l *Local) remove(path string, all bool) error {
	if l.bin != nil {
		_, err := l.bin.Move(path)
		return classify("trash", path, err)
	}
	if all {
		return classify("delete", path, os.RemoveAll(path))
	}
	return classify("delete", path, os.Remove(path))
}

var _ Provider = (*Local)(nil)

// classify maps os errors onto the provider taxonomy, keeping the path in the message.
func classify(op, path string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, iofs.ErrNotExist):
		return fmt.Errorf("%s %s: %w", op, path, ErrNotFound)
	case errors.Is(err, iofs.ErrPermission):
		return fmt.Errorf("%s %s: %w", op, path, ErrPermissionDenied)
	case errors.Is(err, iofs.ErrExist):
		return fmt.Errorf("%s %s: %w", op, path, ErrExists)
	}
	return fmt.Errorf("%s %s: %w", op, path, err)
}

func entryFromInfo(name, path string, info iofs.FileInfo) Entry {
	created, opened := fileTimes(info)
	kind := File
	if info.IsDir() {
		kind = Folder
	}
	return Entry{
		Name:         name,
		Path:         path,
		Kind:         kind,
		Size:         info.Size(),
		CreatedAt:    created,
		ModifiedAt:   info.ModTime(),
		LastOpenedAt: opened,
	}
}

// ReadDirectory lists the direct children of path. Hidden entries are
// included; filtering is the caller's concern.
func (l *Local) ReadDirectory(ctx context.Context, path string) ([]Entry, error) {
	debug.Log(debug.FS, "ReadDirectory: %q", path)

	info, err := os.Stat(path)
	if err != nil {
		return nil, classify("read", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("read %s: %w", path, ErrNotDirectory)
	}

	var result []Entry
	var mu sync.Mutex

	conf := &fastwalk.Config{Follow: true}
	root := filepath.Clean(path)

	err = fastwalk.Walk(conf, root, func(fullPath string, d iofs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			debug.Log(debug.FS_ENTRY, "ReadDirectory: walk error at %q: %v", fullPath, err)
			return nil
		}
		if fullPath == root {
			return nil
		}
		if filepath.Dir(fullPath) != root {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			// broken symlink: describe the link itself
			info, err = os.Lstat(fullPath)
			if err != nil {
				debug.Log(debug.FS_ENTRY, "ReadDirectory: skipping %q: %v", d.Name(), err)
				return nil
			}
		}

		mu.Lock()
		result = append(result, entryFromInfo(d.Name(), fullPath, info))
		mu.Unlock()

		if d.IsDir() {
			return fastwalk.SkipDir
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classify("read", path, err)
	}

	// fastwalk visits concurrently; give callers a stable order
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	debug.Log(debug.FS, "ReadDirectory: %q -> %d entries", path, len(result))
	return result, nil
}

// GetStats stats a single path.
func (l *Local) GetStats(ctx context.Context, path string) (Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Stats{}, classify("stat", path, err)
	}
	return Stats{
		Size:    info.Size(),
		IsDir:   info.IsDir(),
		IsFile:  info.Mode().IsRegular(),
		ModTime: info.ModTime(),
	}, nil
}

// CopyFile copies sourcePath to destDir/destName, overwriting an existing file.
func (l *Local) CopyFile(ctx context.Context, sourcePath, destDir, destName string) error {
	dst := filepath.Join(destDir, destName)
	debug.Log(debug.FS, "CopyFile: %q -> %q", sourcePath, dst)
	return copyFileContents(ctx, sourcePath, dst)
}

func copyFileContents(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return classify("open", src, err)
	}
	defer srcFile.Close()

	info, err := srcFile.Stat()
	if err != nil {
		return classify("stat", src, err)
	}
	if info.IsDir() {
		return fmt.Errorf("copy %s: is a directory", src)
	}

	dstFile, err := os.Create(dst)
	if err != nil {
		return classify("create", dst, err)
	}

	if _, err := io.Copy(dstFile, &ctxReader{ctx: ctx, r: srcFile}); err != nil {
		dstFile.Close()
		os.Remove(dst)
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := dstFile.Close(); err != nil {
		return classify("write", dst, err)
	}
	return os.Chmod(dst, info.Mode())
}

// ctxReader aborts long copies once the context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// CopyFolder copies sourcePath recursively into destDir/<base name>.
func (l *Local) CopyFolder(ctx context.Context, sourcePath, destDir string) error {
	src := filepath.Clean(sourcePath)
	dst := filepath.Join(destDir, filepath.Base(src))
	debug.Log(debug.FS, "CopyFolder: %q -> %q", src, dst)

	if _, err := os.Stat(src); err != nil {
		return classify("copy", src, err)
	}

	type copyItem struct {
		srcPath string
		dstPath string
		isDir   bool
		mode    iofs.FileMode
	}
	var items []copyItem
	var itemsMu sync.Mutex

	conf := &fastwalk.Config{Follow: false}
	err := fastwalk.Walk(conf, src, func(fullPath string, d iofs.DirEntry, walkErr error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if walkErr != nil {
			return nil
		}
		rel, err := filepath.Rel(src, fullPath)
		if err != nil || rel == "." {
			return nil
		}
		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			return nil
		}
		itemsMu.Lock()
		items = append(items, copyItem{
			srcPath: fullPath,
			dstPath: filepath.Join(dst, rel),
			isDir:   info.IsDir(),
			mode:    info.Mode(),
		})
		itemsMu.Unlock()
		return nil
	})
	if err != nil {
		return classify("copy", src, err)
	}

	if err := os.MkdirAll(dst, DirPermission); err != nil {
		return classify("mkdir", dst, err)
	}

	// parents before children, directories before files
	sort.Slice(items, func(i, j int) bool {
		if items[i].isDir != items[j].isDir {
			return items[i].isDir
		}
		return len(items[i].dstPath) < len(items[j].dstPath)
	})

	for _, item := range items {
		if item.isDir {
			if err := os.MkdirAll(item.dstPath, item.mode.Perm()|0o700); err != nil {
				return classify("mkdir", item.dstPath, err)
			}
			continue
		}
		if err := copyFileContents(ctx, item.srcPath, item.dstPath); err != nil {
			return err
		}
	}
	return nil
}

// DeleteFile removes a single file.
func (l *Local) DeleteFile(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return classify("delete", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("delete %s: is a directory", path)
	}
	return l.remove(path, false)
}

// DeleteFolder removes a folder and everything below it.
func (l *Local) DeleteFolder(ctx context.Context, path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return classify("delete", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("delete %s: %w", path, ErrNotDirectory)
	}
	return l.remove(path, true)
}

// CreateFolder creates parentDir/name. It fails with ErrExists when the
// folder is already there.
func (l *Local) CreateFolder(ctx context.Context, parentDir, name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("create folder: invalid name %q", name)
	}
	path := filepath.Join(parentDir, name)
	return classify("create folder", path, os.Mkdir(path, DirPermission))
}

// ConvertAndCopyFile hands the transcoding to the configured Converter.
func (l *Local) ConvertAndCopyFile(ctx context.Context, sourcePath, destDir, destName string, params ConversionParams) error {
	if l.converter == nil {
		return fmt.Errorf("convert %s: %w", sourcePath, ErrConversionUnavailable)
	}
	if _, err := os.Stat(sourcePath); err != nil {
		return classify("convert", sourcePath, err)
	}
	dst := filepath.Join(destDir, destName)
	debug.Log(debug.FS, "ConvertAndCopyFile: %q -> %q params=%+v", sourcePath, dst, params)
	if err := l.converter.Convert(ctx, sourcePath, dst, params); err != nil {
		return fmt.Errorf("convert %s: %w", sourcePath, err)
	}
	return nil
}
