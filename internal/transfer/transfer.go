// Package transfer copies and converts batches of files between panes.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/justyntemme/twinpane/internal/provider"
)

var (
	// ErrSelfCopy rejects a transfer whose destination lies inside one of
	// its sources. Nothing is written when it is returned.
	ErrSelfCopy = errors.New("cannot copy an item into itself")
	// ErrConversion marks a per-item conversion failure.
	ErrConversion = errors.New("conversion failed")
)

// Item is one thing to transfer.
type Item struct {
	SourcePath      string        `json:"sourcePath"`
	Name            string        `json:"name"`
	Kind            provider.Kind `json:"kind"`
	TargetDirectory string        `json:"targetDirectory,omitempty"`
}

// Request describes one batch. An empty SourcePane marks an external drop.
type Request struct {
	Items      []Item
	DestDir    string
	SourcePane string
	DestPane   string
	Conversion provider.ConversionParams
}

// External reports whether the items came from outside the application.
func (r Request) External() bool { return r.SourcePane == "" }

func (r Request) targetDir(it Item) string {
	if it.TargetDirectory != "" {
		return it.TargetDirectory
	}
	return r.DestDir
}

// Progress is reported once per file, before its operation is issued.
type Progress struct {
	Current         int
	Total           int
	CurrentItemName string
}

// ProgressSink receives progress. Start is called once with the final total,
// before any file is copied; Finish is called once at the end. A batch with
// at most one file reports nothing.
type ProgressSink interface {
	Start(total int)
	Advance(p Progress)
	Finish()
}

// Refresher reloads a directory after the batch has written into it.
type Refresher interface {
	Refresh(ctx context.Context, dir string) error
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, dir string) error

func (f RefresherFunc) Refresh(ctx context.Context, dir string) error { return f(ctx, dir) }

// ItemError is one failed file or folder.
type ItemError struct {
	Name string
	Err  error
}

func (e ItemError) Error() string { return e.Name + ": " + e.Err.Error() }

func (e ItemError) Unwrap() error { return e.Err }

// BatchError aggregates every failure of a batch.
type BatchError struct {
	Failures []ItemError
	Total    int
}

func (e *BatchError) combined() error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return multierr.Combine(errs...)
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%d of %d items failed: %s", len(e.Failures), e.Total, e.combined())
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	return multierr.Errors(e.combined())
}

// Report lists the failures one per line.
func (e *BatchError) Report() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d items failed:\n", len(e.Failures), e.Total)
	for _, f := range e.Failures {
		fmt.Fprintf(&b, "  %s: %v\n", f.Name, f.Err)
	}
	return b.String()
}
