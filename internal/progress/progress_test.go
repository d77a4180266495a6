package progress

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/justyntemme/twinpane/internal/transfer"
)

func newTestBar() (*Bar, *bytes.Buffer, *time.Time) {
	var buf bytes.Buffer
	b := New(&buf)
	b.width = 10
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }
	return b, &buf, &clock
}

func lastFrame(out string) string {
	frames := strings.Split(out, "\r\033[K")
	return strings.TrimRight(frames[len(frames)-1], "\n")
}

func TestBarRendersProgress(t *testing.T) {
	b, buf, clock := newTestBar()
	b.Start(4)
	if got := lastFrame(buf.String()); got != "[░░░░░░░░░░]   0% (0/4)" {
		t.Errorf("start frame = %q", got)
	}

	*clock = clock.Add(time.Second)
	b.Advance(transfer.Progress{Current: 2, Total: 4, CurrentItemName: "kick.wav"})
	if got := lastFrame(buf.String()); got != "[█████░░░░░]  50% (2/4) | kick.wav" {
		t.Errorf("advance frame = %q", got)
	}

	b.Finish()
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Finish did not end the line")
	}
}

func TestBarThrottles(t *testing.T) {
	b, buf, _ := newTestBar()
	b.Start(1000)
	before := buf.Len()

	// same instant: only the final item forces a redraw
	b.Advance(transfer.Progress{Current: 1, Total: 1000, CurrentItemName: "a"})
	if buf.Len() != before {
		t.Error("throttled advance redrew the bar")
	}
	b.Advance(transfer.Progress{Current: 1000, Total: 1000, CurrentItemName: "z"})
	if got := lastFrame(buf.String()); got != "[██████████] 100% (1,000/1,000) | z" {
		t.Errorf("final frame = %q", got)
	}
}

func TestBarIgnoresEventsBeforeStart(t *testing.T) {
	b, buf, _ := newTestBar()
	b.Advance(transfer.Progress{Current: 1, Total: 2})
	b.Finish()
	if buf.Len() != 0 {
		t.Errorf("wrote %q without Start", buf.String())
	}
}
