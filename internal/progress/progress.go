// Package progress renders transfer progress on a terminal line.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/justyntemme/twinpane/internal/transfer"
)

var _ transfer.ProgressSink = (*Bar)(nil)

// Bar is a single-line progress bar. It implements transfer.ProgressSink.
type Bar struct {
	writer     io.Writer
	width      int
	interval   time.Duration
	now        func() time.Time
	mu         sync.Mutex
	total      int
	current    int
	label      string
	started    bool
	lastUpdate time.Time
}

// New returns a bar writing to w, or to stdout when w is nil.
func New(w io.Writer) *Bar {
	if w == nil {
		w = os.Stdout
	}
	return &Bar{
		writer:   w,
		width:    40,
		interval: 100 * time.Millisecond,
		now:      time.Now,
	}
}

// IsTerminal reports whether stdout is a character device.
func IsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Start sets the total and draws the empty bar.
func (b *Bar) Start(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total = total
	b.current = 0
	b.label = ""
	b.started = true
	b.lastUpdate = b.now()
	b.render()
}

// Advance moves the bar to p.Current.
func (b *Bar) Advance(p transfer.Progress) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}
	b.current = p.Current
	b.label = p.CurrentItemName

	// Update at most every interval to reduce flickering
	now := b.now()
	if now.Sub(b.lastUpdate) >= b.interval || b.current == b.total {
		b.lastUpdate = now
		b.render()
	}
}

// Finish draws the final state and ends the line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}
	b.render()
	fmt.Fprintln(b.writer)
	b.started = false
}

// render must be called with mu already locked
func (b *Bar) render() {
	if b.total <= 0 {
		return
	}
	filled := b.width * b.current / b.total
	if filled > b.width {
		filled = b.width
	}
	bar := strings.Repeat("█", filled) + strings.Repeat("░", b.width-filled)
	percent := 100 * b.current / b.total

	label := ""
	if b.label != "" {
		label = " | " + b.label
	}
	fmt.Fprintf(b.writer, "\r\033[K[%s] %3d%% (%s/%s)%s",
		bar, percent, humanize.Comma(int64(b.current)), humanize.Comma(int64(b.total)), label)
}
