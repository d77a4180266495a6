package transfer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"github.com/justyntemme/twinpane/internal/provider"
)

// Drag payload MIME types.
const (
	MIMEItems   = "application/x-twinpane-items"
	MIMEURIList = "text/uri-list"
)

// DragPayload is a decoded drop. In-app drags carry Items and the source
// pane; external drops carry only Paths.
type DragPayload struct {
	Pane  string   `json:"pane"`
	Items []Item   `json:"items"`
	Paths []string `json:"-"`
}

// External reports whether the payload came from outside the application.
func (d DragPayload) External() bool { return d.Pane == "" }

// EncodeDragData encodes an in-app drag.
func EncodeDragData(pane string, items []Item) ([]byte, error) {
	if pane == "" {
		return nil, fmt.Errorf("drag payload needs a source pane")
	}
	return json.Marshal(DragPayload{Pane: pane, Items: items})
}

// DecodeDragData decodes a drop of the given MIME type.
func DecodeDragData(mime string, data []byte) (DragPayload, error) {
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case MIMEItems:
		var d DragPayload
		if err := json.Unmarshal(data, &d); err != nil {
			return DragPayload{}, fmt.Errorf("decode %s: %w", MIMEItems, err)
		}
		if d.Pane == "" {
			return DragPayload{}, fmt.Errorf("decode %s: missing source pane", MIMEItems)
		}
		return d, nil
	case MIMEURIList:
		paths, err := parseURIList(data)
		if err != nil {
			return DragPayload{}, err
		}
		return DragPayload{Paths: paths}, nil
	}
	return DragPayload{}, fmt.Errorf("unsupported drag type %q", mime)
}

// parseURIList reads RFC 2483 text/uri-list: one URI per line, "#" starts a
// comment. Only file URIs are accepted.
func parseURIList(data []byte) ([]string, error) {
	var paths []string
	var errs error
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if u.Scheme != "file" {
			errs = multierr.Append(errs, fmt.Errorf("%s: not a file URI", line))
			continue
		}
		paths = append(paths, filepath.FromSlash(u.Path))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(paths) == 0 && errs != nil {
		return nil, errs
	}
	return paths, nil
}

// ItemsFromPaths stats each path through p and builds the items of an
// external drop. Paths that cannot be stated are left out and reported.
func ItemsFromPaths(ctx context.Context, p provider.Provider, paths []string, targetDir string) ([]Item, error) {
	var items []Item
	var errs error
	for _, path := range paths {
		path = filepath.Clean(path)
		st, err := p.GetStats(ctx, path)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		kind := provider.File
		if st.IsDir {
			kind = provider.Folder
		}
		items = append(items, Item{
			SourcePath:      path,
			Name:            filepath.Base(path),
			Kind:            kind,
			TargetDirectory: targetDir,
		})
	}
	return items, errs
}
