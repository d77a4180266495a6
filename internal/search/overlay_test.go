package search

import (
	"context"
	"testing"
	"time"

	"github.com/justyntemme/twinpane/internal/provider"
)

func newMemory() *provider.Memory {
	m := provider.NewMemory()
	m.AddFile("/sd/Samples/Kicks/kick1.wav", "k1")
	m.AddFile("/sd/Samples/Snares/snare1.wav", "s1")
	m.AddFile("/sd/Mixes/kick-mix.wav", "mix")
	return m
}

func waitResult(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for search result")
		return Result{}
	}
}

func TestOverlayDebouncesKeystrokes(t *testing.T) {
	m := newMemory()
	o := NewOverlay(m, 50*time.Millisecond)
	updates := make(chan Result, 8)
	o.OnUpdate = func(r Result) { updates <- r }

	ctx := context.Background()
	for _, q := range []string{"k", "ki", "kic", "kick"} {
		o.SetQuery(ctx, q, "/sd")
	}
	if !o.Active() {
		t.Error("overlay should be active while a query is set")
	}

	r := waitResult(t, updates)
	if r.Query != "kick" || r.Err != nil {
		t.Fatalf("unexpected result %+v", r)
	}
	if n := len(m.Calls(provider.OpSearch)); n != 1 {
		t.Errorf("expected a single provider search, got %d", n)
	}
	// kick1.wav, kick-mix.wav and the Kicks folder itself
	if len(r.Hits) != 3 || len(r.Forest) != 2 {
		t.Errorf("expected 3 hits in 2 roots, got %d hits %d roots", len(r.Hits), len(r.Forest))
	}
	if o.Searching() {
		t.Error("searching flag should be cleared")
	}
}

func TestOverlayClearLeavesSearchMode(t *testing.T) {
	m := newMemory()
	o := NewOverlay(m, 20*time.Millisecond)
	updates := make(chan Result, 8)
	o.OnUpdate = func(r Result) { updates <- r }

	o.SetQuery(context.Background(), "kick", "/sd")
	waitResult(t, updates)

	o.Clear()
	r := waitResult(t, updates)
	if o.Active() || r.Query != "" || len(o.Result().Hits) != 0 {
		t.Errorf("overlay should be inactive and empty, got %+v", o.Result())
	}
}

func TestOverlayIncompleteDirectiveWaits(t *testing.T) {
	m := newMemory()
	o := NewOverlay(m, 10*time.Millisecond)
	o.SetQuery(context.Background(), "kick ext:", "/sd")
	time.Sleep(50 * time.Millisecond)
	if n := len(m.Calls(provider.OpSearch)); n != 0 {
		t.Errorf("incomplete query should not search, got %d calls", n)
	}
}

// blockingSearch holds searches for "kick" until released or cancelled.
type blockingSearch struct {
	*provider.Memory
	started  chan struct{}
	returned chan struct{} // closed after a held search gave up, when set
}

func (b *blockingSearch) Search(ctx context.Context, query, scope string) ([]provider.Entry, error) {
	if query == "kick" {
		close(b.started)
		<-ctx.Done()
		if b.returned != nil {
			defer close(b.returned)
		}
		return nil, ctx.Err()
	}
	return b.Memory.Search(ctx, query, scope)
}

func TestOverlayNewQuerySupersedesInFlight(t *testing.T) {
	p := &blockingSearch{Memory: newMemory(), started: make(chan struct{})}
	o := NewOverlay(p, 10*time.Millisecond)
	updates := make(chan Result, 8)
	o.OnUpdate = func(r Result) { updates <- r }

	ctx := context.Background()
	o.SetQuery(ctx, "kick", "/sd")
	select {
	case <-p.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first search never started")
	}

	o.SetQuery(ctx, "snare", "/sd")
	r := waitResult(t, updates)
	if r.Query != "snare" || len(r.Hits) != 2 {
		t.Fatalf("expected the snare result, got %+v", r)
	}

	select {
	case r := <-updates:
		t.Errorf("superseded search delivered a result: %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestOverlayIncompleteQueryStopsSearching(t *testing.T) {
	p := &blockingSearch{Memory: newMemory(), started: make(chan struct{}), returned: make(chan struct{})}
	o := NewOverlay(p, 10*time.Millisecond)

	o.SetQuery(context.Background(), "kick", "/sd")
	select {
	case <-p.started:
	case <-time.After(2 * time.Second):
		t.Fatal("search never started")
	}
	if !o.Searching() {
		t.Fatal("expected searching while the search runs")
	}

	o.SetQuery(context.Background(), "kick size:", "/sd")
	if o.Searching() {
		t.Error("searching flag survived an incomplete query")
	}
	select {
	case <-p.returned:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded search was not cancelled")
	}
	// let the abandoned run finish its bookkeeping
	time.Sleep(20 * time.Millisecond)
	if o.Searching() {
		t.Error("abandoned run left the searching flag set")
	}
	if !o.Active() || o.Query() != "kick size:" {
		t.Errorf("expected active overlay on the incomplete query, got %q", o.Query())
	}
}

func TestOverlayPostFilter(t *testing.T) {
	m := provider.NewMemory()
	m.AddFile("/sd/loop-small.wav", "x")
	m.AddFile("/sd/loop-big.wav", string(make([]byte, 2048)))
	o := NewOverlay(m, 10*time.Millisecond)
	updates := make(chan Result, 4)
	o.OnUpdate = func(r Result) { updates <- r }

	o.SetQuery(context.Background(), "loop size:>1KB", "/sd")
	r := waitResult(t, updates)
	if len(r.Hits) != 1 || r.Hits[0].Name != "loop-big.wav" {
		t.Errorf("expected only loop-big.wav, got %+v", r.Hits)
	}
}
