// Package search implements a pane's search overlay: a debounced provider
// search whose hits are presented as a synthesized folder forest instead of
// the pane's loaded tree.
package search

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/justyntemme/twinpane/internal/debug"
	"github.com/justyntemme/twinpane/internal/gen"
	"github.com/justyntemme/twinpane/internal/logging"
	"github.com/justyntemme/twinpane/internal/provider"
	"go.uber.org/zap"
)

// DefaultDebounce is the delay between the last keystroke and the search.
const DefaultDebounce = 300 * time.Millisecond

// Result is the outcome of one search generation.
type Result struct {
	Query  string
	Scope  string
	Hits   []provider.Entry
	Forest []*Folder
	Err    error
}

// Overlay debounces queries and runs at most one search at a time. A newer
// query supersedes older ones: their timers never fire a search and their
// in-flight results are discarded.
type Overlay struct {
	prov  provider.Provider
	delay time.Duration
	now   func() time.Time

	// OnUpdate, when set, is called after every state change with the
	// current result. It runs on the goroutine that produced the change.
	OnUpdate func(Result)

	slot gen.Slot

	mu        sync.Mutex
	query     string
	searching bool
	runSeq    uint64 // generation that set searching
	result    Result
	timer     *time.Timer
}

// NewOverlay returns an overlay searching through p. A non-positive delay
// uses DefaultDebounce.
func NewOverlay(p provider.Provider, delay time.Duration) *Overlay {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Overlay{prov: p, delay: delay, now: time.Now}
}

// SetQuery records a keystroke. An empty query leaves search mode at once;
// anything else (re)starts the debounce timer for a search of scope.
func (o *Overlay) SetQuery(ctx context.Context, query, scope string) {
	query = strings.TrimSpace(query)
	searchCtx, seq := o.slot.Next(ctx)

	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	o.query = query

	if query == "" {
		o.slot.Cancel()
		o.searching = false
		o.result = Result{}
		res := o.result
		o.mu.Unlock()
		debug.Log(debug.SEARCH, "SetQuery: cleared")
		o.notify(res)
		return
	}
	if Incomplete(query) {
		// the superseded search, if any, no longer counts as running
		o.searching = false
		o.mu.Unlock()
		debug.Log(debug.SEARCH, "SetQuery: incomplete directive, waiting: %q", query)
		return
	}

	o.timer = time.AfterFunc(o.delay, func() {
		o.run(searchCtx, seq, query, scope)
	})
	o.mu.Unlock()
	debug.Log(debug.SEARCH, "SetQuery: %q scope=%q gen=%d", query, scope, seq)
}

func (o *Overlay) run(ctx context.Context, seq uint64, query, scope string) {
	// stacked timers: only the latest generation may search
	o.mu.Lock()
	if !o.slot.IsCurrent(seq) {
		o.mu.Unlock()
		debug.Log(debug.SEARCH, "run: gen %d superseded before start", seq)
		return
	}
	o.searching = true
	o.runSeq = seq
	o.mu.Unlock()

	text, filter := Parse(query, o.now())
	hits, err := o.prov.Search(ctx, text, scope)

	if !o.slot.IsCurrent(seq) {
		debug.Log(debug.SEARCH, "run: gen %d superseded, dropping %d hits", seq, len(hits))
		o.finish(seq)
		return
	}
	o.slot.Done(seq)

	if !filter.Empty() {
		kept := hits[:0]
		for _, h := range hits {
			if filter.Match(h) {
				kept = append(kept, h)
			}
		}
		hits = kept
	}

	res := Result{Query: query, Scope: scope, Hits: hits, Err: err}
	if err == nil {
		res.Forest = BuildFolderTree(hits)
	} else {
		logging.L().Warn("search failed",
			zap.String("query", query), zap.String("scope", scope), zap.Error(err))
	}

	o.mu.Lock()
	if o.query != query {
		o.mu.Unlock()
		o.finish(seq)
		return
	}
	o.searching = false
	o.result = res
	o.mu.Unlock()

	debug.Log(debug.SEARCH, "run: gen %d %q -> %d hits, %d roots", seq, query, len(hits), len(res.Forest))
	o.notify(res)
}

// finish clears the searching flag of an abandoned run unless a newer run
// has claimed it.
func (o *Overlay) finish(seq uint64) {
	o.mu.Lock()
	if o.runSeq == seq {
		o.searching = false
	}
	o.mu.Unlock()
}

func (o *Overlay) notify(res Result) {
	if o.OnUpdate != nil {
		o.OnUpdate(res)
	}
}

// Clear leaves search mode and abandons any pending or running search.
func (o *Overlay) Clear() {
	o.SetQuery(context.Background(), "", "")
}

// Active reports whether a query is set. While active, the pane renders the
// overlay's forest instead of its tree.
func (o *Overlay) Active() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.query != ""
}

// Query returns the latest query.
func (o *Overlay) Query() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.query
}

// Searching reports whether a search is running.
func (o *Overlay) Searching() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.searching
}

// Result returns the latest completed result.
func (o *Overlay) Result() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.result
}
