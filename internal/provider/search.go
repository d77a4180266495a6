package provider

import (
	"context"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/justyntemme/twinpane/internal/debug"
)

// skipDirRoots contains top-level directories never searched.
var skipDirRoots = map[string]bool{
	"dev":        true,
	"proc":       true,
	"sys":        true,
	"run":        true,
	"snap":       true,
	"boot":       true,
	"lost+found": true,
}

// shouldSkipPath returns true if the path lives under a system root.
func shouldSkipPath(path string) bool {
	if len(path) < 2 || path[0] != '/' {
		return false
	}
	rest := path[1:]
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return skipDirRoots[rest]
}

// searchQuery is a parsed search string: free text plus optional ext: filters.
type searchQuery struct {
	text string
	exts map[string]bool
}

func parseSearchQuery(q string) searchQuery {
	var words []string
	sq := searchQuery{}
	for _, tok := range strings.Fields(q) {
		lower := strings.ToLower(tok)
		if strings.HasPrefix(lower, "ext:") {
			for _, ext := range strings.Split(strings.TrimPrefix(lower, "ext:"), ",") {
				ext = strings.TrimSpace(ext)
				if ext == "" {
					continue
				}
				if !strings.HasPrefix(ext, ".") {
					ext = "." + ext
				}
				if sq.exts == nil {
					sq.exts = make(map[string]bool)
				}
				sq.exts[ext] = true
			}
			continue
		}
		words = append(words, lower)
	}
	sq.text = strings.Join(words, " ")
	return sq
}

func (sq searchQuery) empty() bool { return sq.text == "" && len(sq.exts) == 0 }

func (sq searchQuery) match(name string, isDir bool) bool {
	lower := strings.ToLower(name)
	if len(sq.exts) > 0 {
		if isDir || !sq.exts[filepath.Ext(lower)] {
			return false
		}
	}
	return strings.Contains(lower, sq.text)
}

// Search walks scopePath (or the file system root when empty) and returns
// every non-hidden entry whose name contains the query, case-insensitively.
// An "ext:wav,flac" token restricts matches to files with those extensions.
func (l *Local) Search(ctx context.Context, query, scopePath string) ([]Entry, error) {
	sq := parseSearchQuery(query)
	if sq.empty() {
		return nil, nil
	}
	if scopePath == "" {
		scopePath = string(filepath.Separator)
	}
	root := filepath.Clean(scopePath)
	if _, err := os.Stat(root); err != nil {
		return nil, classify("search", root, err)
	}

	debug.Log(debug.SEARCH, "Search: scope=%q text=%q exts=%v", root, sq.text, sq.exts)

	var results []Entry
	var mu sync.Mutex

	// no symlink following: links to ancestors would loop
	conf := &fastwalk.Config{Follow: false}

	err := fastwalk.Walk(conf, root, func(fullPath string, d iofs.DirEntry, err error) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil || fullPath == root {
			return nil
		}
		if IsHidden(d.Name()) || shouldSkipPath(fullPath) {
			if d.IsDir() {
				return fastwalk.SkipDir
			}
			return nil
		}
		if !sq.match(d.Name(), d.IsDir()) {
			return nil
		}

		info, err := fastwalk.StatDirEntry(fullPath, d)
		if err != nil {
			return nil
		}
		if !info.IsDir() && !info.Mode().IsRegular() {
			return nil
		}

		mu.Lock()
		results = append(results, entryFromInfo(d.Name(), fullPath, info))
		mu.Unlock()
		return nil
	})
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		return results, classify("search", root, err)
	}

	debug.Log(debug.SEARCH, "Search: %d results", len(results))
	return results, nil
}
