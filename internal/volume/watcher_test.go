package volume

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakeMounts struct {
	mu   sync.Mutex
	vols []Volume
}

func (f *fakeMounts) set(vols ...Volume) {
	f.mu.Lock()
	f.vols = vols
	f.mu.Unlock()
}

func (f *fakeMounts) list() []Volume {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Volume(nil), f.vols...)
}

var (
	root = Volume{Name: "Root", Path: "/", Identity: "root-id"}
	sd   = Volume{Name: "SD", Path: "/Volumes/SD", Identity: "sd-id", Removable: true}
	zoom = Volume{Name: "ZOOM", Path: "/Volumes/ZOOM", Identity: "zoom-id", Removable: true}
)

func TestProbe(t *testing.T) {
	f := &fakeMounts{}
	f.set(root, sd)
	w := &Watcher{List: f.list, Roots: []string{}}
	w.Snapshot()

	if ev := w.Probe(); len(ev) != 0 {
		t.Errorf("no change should give no events, got %+v", ev)
	}

	f.set(root, zoom)
	ev := w.Probe()
	if len(ev) != 2 {
		t.Fatalf("expected detach and attach, got %+v", ev)
	}
	if ev[0].Kind != Detached || ev[0].Volume.Identity != "sd-id" {
		t.Errorf("expected SD detach first, got %+v", ev[0])
	}
	if ev[1].Kind != Attached || ev[1].Volume.Identity != "zoom-id" {
		t.Errorf("expected ZOOM attach, got %+v", ev[1])
	}
}

func TestProbeSameVolumeRemountedElsewhere(t *testing.T) {
	f := &fakeMounts{}
	f.set(root, Volume{Name: "SD", Path: "/Volumes/SD"})
	w := &Watcher{List: f.list, Roots: []string{}}
	w.Snapshot()

	// no identity: keyed by path
	f.set(root, Volume{Name: "SD", Path: "/Volumes/SD 1"})
	ev := w.Probe()
	if len(ev) != 2 || ev[0].Kind != Detached || ev[1].Kind != Attached {
		t.Errorf("unexpected events %+v", ev)
	}
}

func TestRunEmitsEvents(t *testing.T) {
	f := &fakeMounts{}
	f.set(root)
	w := &Watcher{List: f.list, Interval: 10 * time.Millisecond, Roots: []string{}}
	w.Snapshot()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan Event, 4)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, out) }()

	f.set(root, sd)
	select {
	case e := <-out:
		if e.Kind != Attached || e.Volume.Path != "/Volumes/SD" {
			t.Errorf("unexpected event %+v", e)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no attach event")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if _, ok := <-out; ok {
		t.Error("out should be closed after Run returns")
	}
}

func TestFind(t *testing.T) {
	vols := []Volume{root, sd, zoom}
	testCases := []struct {
		path string
		want string
	}{
		{"/Volumes/SD/Mixes", "/Volumes/SD"},
		{"/Volumes/SD", "/Volumes/SD"},
		{"/Volumes/SDX/a", "/"},
		{"/home/me", "/"},
	}
	for _, tc := range testCases {
		v, ok := Find(vols, tc.path)
		if !ok || v.Path != tc.want {
			t.Errorf("Find(%q) = %q, want %q", tc.path, v.Path, tc.want)
		}
	}
}

func TestDiffEmpty(t *testing.T) {
	if ev := Diff(nil, index([]Volume{sd})); len(ev) != 1 || ev[0].Kind != Attached {
		t.Errorf("unexpected events %+v", ev)
	}
}
