package tree

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/justyntemme/twinpane/internal/provider"
)

func newFixture() *provider.Memory {
	m := provider.NewMemory()
	m.AddFile("/sd/b-track.wav", "bb")
	m.AddFile("/sd/a-track.wav", "a")
	m.AddFile("/sd/.DS_Store", "junk")
	m.AddFile("/sd/~lock.tmp", "junk")
	m.AddFile("/sd/Mixes/one.wav", "1")
	m.AddFile("/sd/Mixes/Old/two.wav", "2")
	m.AddFolder("/sd/Samples")
	return m
}

func names(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestLoadRootFoldersFirstWithoutHidden(t *testing.T) {
	c := NewCache(newFixture(), SortByName)
	if err := c.Load(context.Background(), "/sd", RootID); err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := names(c.Root())
	want := []string{"Mixes", "Samples", "a-track.wav", "b-track.wav"}
	if !equalStrings(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	for _, n := range c.Root() {
		if n.ParentID != RootID {
			t.Errorf("%s: expected parent root, got %s", n.Name, n.ParentID)
		}
		if n.IsFolder() && (n.Loaded || n.Children != nil) {
			t.Errorf("%s: folder should be an unloaded stub", n.Name)
		}
	}
}

func TestLoadIsIdempotent(t *testing.T) {
	c := NewCache(newFixture(), SortByName)
	ctx := context.Background()
	if err := c.Load(ctx, "/sd", RootID); err != nil {
		t.Fatal(err)
	}
	first := c.Root()
	if err := c.Load(ctx, "/sd", RootID); err != nil {
		t.Fatal(err)
	}
	second := c.Root()

	if len(first) != len(second) {
		t.Fatalf("node count changed: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("index %d: id changed %s -> %s", i, first[i].ID, second[i].ID)
		}
	}
}

func TestLoadChildMergesInPlace(t *testing.T) {
	c := NewCache(newFixture(), SortByName)
	ctx := context.Background()
	if err := c.Load(ctx, "/sd", RootID); err != nil {
		t.Fatal(err)
	}
	mixes, ok := c.FindByPath("/sd/Mixes")
	if !ok {
		t.Fatal("Mixes not found")
	}
	if err := c.Load(ctx, mixes.Path, mixes.ID); err != nil {
		t.Fatalf("Load child: %v", err)
	}

	children, ok := c.Children(mixes.ID)
	if !ok {
		t.Fatal("Mixes should be fetched")
	}
	if got := names(children); !equalStrings(got, []string{"Old", "one.wav"}) {
		t.Errorf("unexpected children %v", got)
	}
	if children[0].ID != NewID(mixes.ID, "/sd/Mixes/Old") {
		t.Errorf("child id not derived from (parent, path)")
	}

	n, _ := c.Node(mixes.ID)
	if !n.Loaded || n.IsLoading {
		t.Errorf("expected loaded and not loading: %+v", n)
	}

	// reloading the root keeps the Mixes subtree
	if err := c.Load(ctx, "/sd", RootID); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Children(mixes.ID); !ok {
		t.Error("root refresh discarded a loaded subtree")
	}
}

func TestLoadRemovesVanishedSubtree(t *testing.T) {
	m := newFixture()
	c := NewCache(m, SortByName)
	ctx := context.Background()
	c.Load(ctx, "/sd", RootID)
	mixes, _ := c.FindByPath("/sd/Mixes")
	c.Load(ctx, mixes.Path, mixes.ID)
	old, _ := c.FindByPath("/sd/Mixes/Old")

	m.Remove("/sd/Mixes")
	if err := c.Load(ctx, "/sd", RootID); err != nil {
		t.Fatal(err)
	}
	if c.Contains(mixes.ID) || c.Contains(old.ID) {
		t.Error("vanished folder and its descendants should be purged")
	}
}

func TestLoadRootNotFound(t *testing.T) {
	c := NewCache(newFixture(), SortByName)
	err := c.Load(context.Background(), "/missing", RootID)
	if !errors.Is(err, ErrPathDoesNotExist) {
		t.Fatalf("expected ErrPathDoesNotExist, got %v", err)
	}
	if !c.PathDoesNotExist() {
		t.Error("cache should report pathDoesNotExist")
	}
	if len(c.Root()) != 0 {
		t.Error("tree should be empty")
	}

	// an empty directory is not a missing one
	m := provider.NewMemory()
	m.AddFolder("/empty")
	c = NewCache(m, SortByName)
	if err := c.Load(context.Background(), "/empty", RootID); err != nil {
		t.Fatalf("empty dir: %v", err)
	}
	if c.PathDoesNotExist() {
		t.Error("empty directory reported as missing")
	}
}

func TestLoadChildFailureClearsLoading(t *testing.T) {
	m := newFixture()
	m.Fail(provider.OpRead, "/sd/Samples", provider.ErrPermissionDenied)
	c := NewCache(m, SortByName)
	ctx := context.Background()
	c.Load(ctx, "/sd", RootID)

	samples, _ := c.FindByPath("/sd/Samples")
	c.SetLoading(samples.ID, true)
	err := c.Load(ctx, samples.Path, samples.ID)
	if !errors.Is(err, provider.ErrPermissionDenied) {
		t.Fatalf("expected permission error, got %v", err)
	}
	n, _ := c.Node(samples.ID)
	if n.IsLoading || n.Loaded || n.Children != nil {
		t.Errorf("failed node should be a retryable stub: %+v", n)
	}
}

func TestLoadStaleNode(t *testing.T) {
	c := NewCache(newFixture(), SortByName)
	ctx := context.Background()
	c.Load(ctx, "/sd", RootID)
	mixes, _ := c.FindByPath("/sd/Mixes")
	c.Reset()

	if err := c.Load(ctx, mixes.Path, mixes.ID); !errors.Is(err, ErrStale) {
		t.Errorf("expected ErrStale, got %v", err)
	}
}

func TestLoadCancelled(t *testing.T) {
	c := NewCache(newFixture(), SortByName)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.Load(ctx, "/sd", RootID); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(c.Root()) != 0 {
		t.Error("cancelled load should not merge")
	}
}

func TestSortToggleRestoresOrder(t *testing.T) {
	c := NewCache(newFixture(), SortByName)
	ctx := context.Background()
	c.Load(ctx, "/sd", RootID)
	before := names(c.Root())

	for _, key := range []SortKey{SortByModified, SortByCreated, SortByLastOpened} {
		c.SetSortKey(key)
		c.SetSortKey(SortByName)
		if got := names(c.Root()); !equalStrings(got, before) {
			t.Errorf("toggling %s and back: expected %v, got %v", key, before, got)
		}
	}
}

func TestSortByDateNewestFirst(t *testing.T) {
	m := provider.NewMemory()
	// Memory stamps entries in creation order
	m.AddFile("/d/old.wav", "")
	m.AddFile("/d/new.wav", "")
	m.AddFolder("/d/zfolder")
	c := NewCache(m, SortByModified)
	c.Load(context.Background(), "/d", RootID)

	if got := names(c.Root()); !equalStrings(got, []string{"zfolder", "new.wav", "old.wav"}) {
		t.Errorf("unexpected order %v", got)
	}
}

func TestLessTieBreaksByName(t *testing.T) {
	ts := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	a := &Node{Name: "alpha", Path: "/a", ModifiedAt: ts}
	b := &Node{Name: "Beta", Path: "/b", ModifiedAt: ts}
	if !less(a, b, SortByModified) || less(b, a, SortByModified) {
		t.Error("equal dates should fall back to case-insensitive name order")
	}
}

func TestFlattenRespectsExpansion(t *testing.T) {
	c := NewCache(newFixture(), SortByName)
	ctx := context.Background()
	c.Load(ctx, "/sd", RootID)
	mixes, _ := c.FindByPath("/sd/Mixes")
	c.Load(ctx, mixes.Path, mixes.ID)

	collapsed := names(c.Flatten(NewExpansionSet()))
	if !equalStrings(collapsed, []string{"Mixes", "Samples", "a-track.wav", "b-track.wav"}) {
		t.Errorf("collapsed: %v", collapsed)
	}

	expanded := names(c.Flatten(NewExpansionSet(mixes.ID)))
	want := []string{"Mixes", "Old", "one.wav", "Samples", "a-track.wav", "b-track.wav"}
	if !equalStrings(expanded, want) {
		t.Errorf("expanded: expected %v, got %v", want, expanded)
	}
}

func TestExpansionPrune(t *testing.T) {
	c := NewCache(newFixture(), SortByName)
	c.Load(context.Background(), "/sd", RootID)
	mixes, _ := c.FindByPath("/sd/Mixes")

	set := NewExpansionSet(mixes.ID, "gone")
	set.Prune(c)
	if !set.Has(mixes.ID) || set.Has("gone") || len(set) != 1 {
		t.Errorf("unexpected set after prune: %v", set.IDs())
	}
}

func TestParseSortKey(t *testing.T) {
	testCases := []struct {
		in      string
		want    SortKey
		wantErr bool
	}{
		{"", SortByName, false},
		{"name", SortByName, false},
		{"Modified", SortByModified, false},
		{"created", SortByCreated, false},
		{"last-opened", SortByLastOpened, false},
		{"size", SortByName, true},
	}
	for _, tc := range testCases {
		got, err := ParseSortKey(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseSortKey(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestParentLink(t *testing.T) {
	n := ParentLink("/sd/Mixes/Old")
	if n.ID != ParentLinkID || n.Name != ".." || n.Path != "/sd/Mixes" || !n.IsFolder() {
		t.Errorf("unexpected parent link %+v", n)
	}
}

func TestReplaceMatchesLoad(t *testing.T) {
	m := newFixture()
	ctx := context.Background()

	loaded := NewCache(m, SortByName)
	if err := loaded.Load(ctx, "/sd/Mixes", RootID); err != nil {
		t.Fatal(err)
	}

	replaced := NewCache(m, SortByName)
	if err := replaced.Load(ctx, "/sd", RootID); err != nil {
		t.Fatal(err)
	}
	entries, err := m.ReadDirectory(ctx, "/sd/Mixes")
	if err != nil {
		t.Fatal(err)
	}
	replaced.Replace("/sd/Mixes", entries)

	if replaced.RootPath() != "/sd/Mixes" {
		t.Errorf("expected root /sd/Mixes, got %q", replaced.RootPath())
	}
	a, b := loaded.Root(), replaced.Root()
	if len(a) != len(b) {
		t.Fatalf("expected %v, got %v", names(a), names(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Name != b[i].Name {
			t.Errorf("node %d: expected %s (%s), got %s (%s)", i, a[i].Name, a[i].ID, b[i].Name, b[i].ID)
		}
	}
	if _, ok := replaced.FindByPath("/sd/a-track.wav"); ok {
		t.Error("previous root's nodes survived Replace")
	}
}
