// Package provider defines the file-system provider consumed by the pane
// engine, plus a local-disk implementation.
package provider

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// Kind distinguishes files from folders.
type Kind int

const (
	File Kind = iota
	Folder
)

func (k Kind) String() string {
	if k == Folder {
		return "folder"
	}
	return "file"
}

// MarshalText encodes the kind as "file" or "folder".
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText accepts "file", "folder" and "directory".
func (k *Kind) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "file":
		*k = File
	case "folder", "directory", "dir":
		*k = Folder
	default:
		return fmt.Errorf("unknown kind %q", b)
	}
	return nil
}

// Entry is one item returned by a directory listing or a search.
type Entry struct {
	Name         string
	Path         string
	Kind         Kind
	Size         int64
	CreatedAt    time.Time
	ModifiedAt   time.Time
	LastOpenedAt time.Time
}

// IsDir reports whether the entry is a folder.
func (e Entry) IsDir() bool { return e.Kind == Folder }

// Stats is the result of GetStats.
type Stats struct {
	Size    int64
	IsDir   bool
	IsFile  bool
	ModTime time.Time
}

// ConversionParams describes a requested media conversion. The transfer
// engine only inspects it to decide whether conversion is needed; the values
// are otherwise passed through to the provider untouched.
type ConversionParams struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Format     string `json:"format,omitempty" yaml:"format,omitempty"` // target container/extension, e.g. "wav"
	SampleRate int    `json:"sampleRate,omitempty" yaml:"sampleRate,omitempty"`
	BitDepth   int    `json:"bitDepth,omitempty" yaml:"bitDepth,omitempty"`
	Mono       bool   `json:"mono,omitempty" yaml:"mono,omitempty"`
	Normalize  bool   `json:"normalize,omitempty" yaml:"normalize,omitempty"`
}

// Provider is the abstract file system a pane browses.
type Provider interface {
	ReadDirectory(ctx context.Context, path string) ([]Entry, error)
	GetStats(ctx context.Context, path string) (Stats, error)
	CopyFile(ctx context.Context, sourcePath, destDir, destName string) error
	CopyFolder(ctx context.Context, sourcePath, destDir string) error
	DeleteFile(ctx context.Context, path string) error
	DeleteFolder(ctx context.Context, path string) error
	CreateFolder(ctx context.Context, parentDir, name string) error
	ConvertAndCopyFile(ctx context.Context, sourcePath, destDir, destName string, params ConversionParams) error
	Search(ctx context.Context, query, scopePath string) ([]Entry, error)
}

// Converter performs the actual transcoding for Local.ConvertAndCopyFile.
type Converter interface {
	Convert(ctx context.Context, sourcePath, destPath string, params ConversionParams) error
}

var (
	ErrNotFound              = errors.New("not found")
	ErrPermissionDenied      = errors.New("permission denied")
	ErrExists                = errors.New("already exists")
	ErrNotDirectory          = errors.New("not a directory")
	ErrConversionUnavailable = errors.New("conversion unavailable")
)

// IsNotFound reports whether err is a "not found"-class error. Providers that
// only relay strings are recognised by substring.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "no such file")
}

// IsExists reports whether err says the target is already there.
func IsExists(err error) bool {
	return err != nil && (errors.Is(err, ErrExists) || errors.Is(err, fs.ErrExist))
}

// IsHidden reports whether an entry name is never shown in a pane.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~")
}

// Within reports whether path equals root or lies below it. Paths are
// compared by whole segments after cleaning, so "/AB" is not within "/A".
func Within(path, root string) bool {
	path, root = filepath.Clean(path), filepath.Clean(root)
	if path == root {
		return true
	}
	sep := string(filepath.Separator)
	if root == sep {
		return strings.HasPrefix(path, sep)
	}
	return strings.HasPrefix(path, root+sep)
}
