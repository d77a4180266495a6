package transfer

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Report summarizes a finished batch.
type Report struct {
	ID        string
	Total     int
	Copied    int
	Converted int
	Fallbacks int // conversions that fell back to a plain copy
	Failed    int
	Bytes     int64
	Duration  time.Duration
}

// Summary renders the report on one line.
func (r Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d %s transferred (%s)",
		r.Copied+r.Converted, r.Total, plural(r.Total, "file", "files"), humanize.Bytes(uint64(r.Bytes)))
	if r.Converted > 0 {
		fmt.Fprintf(&b, ", %d converted", r.Converted)
	}
	if r.Fallbacks > 0 {
		fmt.Fprintf(&b, ", %d copied unconverted", r.Fallbacks)
	}
	if r.Failed > 0 {
		fmt.Fprintf(&b, ", %d failed", r.Failed)
	}
	if r.Duration > 0 {
		fmt.Fprintf(&b, " in %s", r.Duration.Round(time.Millisecond))
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
