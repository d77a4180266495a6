// Package trash moves deleted items into a recoverable trash directory
// instead of removing them, and lists, restores and empties it.
//
// A Bin uses the freedesktop.org layout:
//
//	<dir>/files/      trashed files
//	<dir>/info/       <name>.trashinfo metadata
//
// .trashinfo format:
//
//	[Trash Info]
//	Path=/original/path/to/file
//	DeletionDate=2024-01-15T10:30:45
package trash

import (
	"bufio"
	"errors"
	"fmt"
	iofs "io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/justyntemme/twinpane/internal/debug"
)

const dateLayout = "2006-01-02T15:04:05"

// ErrUnavailable is returned when the platform has no usable trash.
var ErrUnavailable = errors.New("trash unavailable")

// Item represents a file or directory in the trash
type Item struct {
	Name         string    // Name inside the trash
	OriginalPath string    // Full path where the file was deleted from
	TrashPath    string    // Current path in trash
	DeletedAt    time.Time // When the file was deleted
	Size         int64     // Size in bytes
	IsDir        bool      // Whether this is a directory
}

// Bin is one trash directory.
type Bin struct {
	dir string
	now func() time.Time
}

// Open returns the bin rooted at dir. Nothing is created until the first Move.
func Open(dir string) *Bin {
	return &Bin{dir: dir, now: time.Now}
}

// Default returns the user's trash: $XDG_DATA_HOME/Trash, else
// ~/.local/share/Trash.
func Default() (*Bin, error) {
	if !supported {
		return nil, ErrUnavailable
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return Open(filepath.Join(dataHome, "Trash")), nil
}

// Path returns the bin's directory.
func (b *Bin) Path() string { return b.dir }

func (b *Bin) filesDir() string { return filepath.Join(b.dir, "files") }
func (b *Bin) infoDir() string  { return filepath.Join(b.dir, "info") }

// Move moves path into the bin and returns its trash entry.
func (b *Bin) Move(path string) (Item, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Item{}, err
	}
	info, err := os.Lstat(absPath)
	if err != nil {
		return Item{}, err
	}
	if err := os.MkdirAll(b.filesDir(), 0o700); err != nil {
		return Item{}, fmt.Errorf("cannot create trash files directory: %w", err)
	}
	if err := os.MkdirAll(b.infoDir(), 0o700); err != nil {
		return Item{}, fmt.Errorf("cannot create trash info directory: %w", err)
	}

	// Handle conflicts by appending numbers
	baseName := filepath.Base(absPath)
	destName := baseName
	for counter := 1; ; counter++ {
		if _, err := os.Lstat(filepath.Join(b.filesDir(), destName)); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(baseName)
		destName = fmt.Sprintf("%s.%d%s", strings.TrimSuffix(baseName, ext), counter, ext)
	}

	deleted := b.now()
	infoContent := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		url.PathEscape(absPath), deleted.Format(dateLayout))
	infoFile := filepath.Join(b.infoDir(), destName+".trashinfo")
	if err := os.WriteFile(infoFile, []byte(infoContent), 0o600); err != nil {
		return Item{}, fmt.Errorf("cannot create trashinfo file: %w", err)
	}

	destPath := filepath.Join(b.filesDir(), destName)
	if err := os.Rename(absPath, destPath); err != nil {
		// Clean up info file on failure
		os.Remove(infoFile)
		return Item{}, fmt.Errorf("cannot move %s to trash: %w", absPath, err)
	}
	debug.Log(debug.FS, "trash: %s -> %s", absPath, destPath)

	return Item{
		Name:         destName,
		OriginalPath: absPath,
		TrashPath:    destPath,
		DeletedAt:    deleted.Truncate(time.Second),
		Size:         info.Size(),
		IsDir:        info.IsDir(),
	}, nil
}

// List returns the trashed items, most recently deleted first.
func (b *Bin) List() ([]Item, error) {
	entries, err := os.ReadDir(b.filesDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Empty trash
		}
		return nil, err
	}

	var items []Item
	for _, entry := range entries {
		info, err := entry.Info()
		if err != nil {
			continue
		}
		item := Item{
			Name:      entry.Name(),
			TrashPath: filepath.Join(b.filesDir(), entry.Name()),
			DeletedAt: info.ModTime(),
			Size:      info.Size(),
			IsDir:     entry.IsDir(),
		}
		if orig, deleted, err := parseTrashInfo(filepath.Join(b.infoDir(), entry.Name()+".trashinfo")); err == nil {
			item.OriginalPath = orig
			if !deleted.IsZero() {
				item.DeletedAt = deleted
			}
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].DeletedAt.Equal(items[j].DeletedAt) {
			return items[i].DeletedAt.After(items[j].DeletedAt)
		}
		return items[i].Name < items[j].Name
	})
	return items, nil
}

func parseTrashInfo(path string) (originalPath string, deletionDate time.Time, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", time.Time{}, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "Path="):
			encoded := strings.TrimPrefix(line, "Path=")
			if decoded, err := url.PathUnescape(encoded); err == nil {
				originalPath = decoded
			} else {
				originalPath = encoded
			}
		case strings.HasPrefix(line, "DeletionDate="):
			if t, err := time.ParseInLocation(dateLayout, strings.TrimPrefix(line, "DeletionDate="), time.Local); err == nil {
				deletionDate = t
			}
		}
	}
	return originalPath, deletionDate, scanner.Err()
}

// Restore moves item back to its original location. It fails with
// fs.ErrExist when that location is occupied.
func (b *Bin) Restore(item Item) error {
	if item.OriginalPath == "" {
		return fmt.Errorf("restore %s: original location unknown", item.Name)
	}
	return b.RestoreTo(item, item.OriginalPath)
}

// RestoreTo moves item to destPath, creating its parent directory.
func (b *Bin) RestoreTo(item Item, destPath string) error {
	if _, err := os.Lstat(destPath); err == nil {
		return fmt.Errorf("restore %s: %w", destPath, iofs.ErrExist)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return err
	}
	if err := os.Rename(item.TrashPath, destPath); err != nil {
		return fmt.Errorf("restore %s: %w", destPath, err)
	}
	os.Remove(filepath.Join(b.infoDir(), filepath.Base(item.TrashPath)+".trashinfo"))
	return nil
}

// Delete permanently deletes a specific item from the trash.
func (b *Bin) Delete(item Item) error {
	if err := os.RemoveAll(item.TrashPath); err != nil {
		return err
	}
	os.Remove(filepath.Join(b.infoDir(), filepath.Base(item.TrashPath)+".trashinfo"))
	return nil
}

// Empty permanently deletes every trashed item. It keeps going after a
// failure and returns all of them.
func (b *Bin) Empty() error {
	var errs error
	for _, dir := range []string{b.filesDir(), b.infoDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = multierr.Append(errs, err)
			}
			continue
		}
		for _, entry := range entries {
			errs = multierr.Append(errs, os.RemoveAll(filepath.Join(dir, entry.Name())))
		}
	}
	return errs
}

// PermanentDelete permanently deletes a file without using the trash.
func PermanentDelete(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}
