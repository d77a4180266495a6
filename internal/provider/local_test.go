package provider

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/justyntemme/twinpane/internal/trash"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", p, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

func TestShouldSkipPath(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"/dev", true},
		{"/proc/1/status", true},
		{"/sys/class/net", true},
		{"/lost+found", true},
		{"/home/user", false},
		{"/Volumes/SD", false},
		{"", false},
		{"/development", false},
		{"/bootstrap", false},
	}

	for _, tc := range testCases {
		if got := shouldSkipPath(tc.path); got != tc.expected {
			t.Errorf("shouldSkipPath(%q): expected %v, got %v", tc.path, tc.expected, got)
		}
	}
}

func TestReadDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"file1.txt":          "hello",
		"song.wav":           "RIFF",
		".hidden_file":       "x",
		"dir1/nested.txt":    "nested",
		"dir2/deeper/a.flac": "fLaC",
	})

	l := NewLocal(nil)
	entries, err := l.ReadDirectory(context.Background(), tmpDir)
	if err != nil {
		t.Fatalf("ReadDirectory returned error: %v", err)
	}

	// direct children only, hidden entries included
	want := map[string]Kind{
		".hidden_file": File,
		"dir1":         Folder,
		"dir2":         Folder,
		"file1.txt":    File,
		"song.wav":     File,
	}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(entries), entries)
	}
	for i, e := range entries {
		kind, ok := want[e.Name]
		if !ok {
			t.Errorf("unexpected entry %q", e.Name)
			continue
		}
		if e.Kind != kind {
			t.Errorf("%s: expected kind %v, got %v", e.Name, kind, e.Kind)
		}
		if e.Path != filepath.Join(tmpDir, e.Name) {
			t.Errorf("%s: unexpected path %q", e.Name, e.Path)
		}
		if i > 0 && entries[i-1].Name > e.Name {
			t.Errorf("entries not sorted by name: %q before %q", entries[i-1].Name, e.Name)
		}
	}
	for _, e := range entries {
		if e.Name == "file1.txt" && e.Size != 5 {
			t.Errorf("file1.txt: expected size 5, got %d", e.Size)
		}
	}
}

func TestReadDirectoryNotFound(t *testing.T) {
	l := NewLocal(nil)
	_, err := l.ReadDirectory(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected errors.Is(err, ErrNotFound)")
	}
}

func TestReadDirectoryOnFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"a.txt": "a"})

	_, err := NewLocal(nil).ReadDirectory(context.Background(), filepath.Join(tmpDir, "a.txt"))
	if !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"a.txt": "abc"})
	l := NewLocal(nil)

	st, err := l.GetStats(context.Background(), filepath.Join(tmpDir, "a.txt"))
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if !st.IsFile || st.IsDir || st.Size != 3 {
		t.Errorf("unexpected stats for file: %+v", st)
	}

	st, err = l.GetStats(context.Background(), tmpDir)
	if err != nil {
		t.Fatalf("GetStats dir: %v", err)
	}
	if !st.IsDir || st.IsFile {
		t.Errorf("unexpected stats for dir: %+v", st)
	}

	if _, err := l.GetStats(context.Background(), filepath.Join(tmpDir, "nope")); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCopyFileAndFolder(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{
		"kit/kick.wav":      "kick",
		"kit/snare/snr.wav": "snare",
		"kit/.DS_Store":     "junk",
		"single.txt":        "one",
	})
	l := NewLocal(nil)
	ctx := context.Background()

	if err := l.CopyFile(ctx, filepath.Join(src, "single.txt"), dst, "renamed.txt"); err != nil {
		t.Fatalf("CopyFile: %v", err)
	}
	if data, err := os.ReadFile(filepath.Join(dst, "renamed.txt")); err != nil || string(data) != "one" {
		t.Errorf("copied file content mismatch: %q, %v", data, err)
	}

	if err := l.CopyFolder(ctx, filepath.Join(src, "kit"), dst); err != nil {
		t.Fatalf("CopyFolder: %v", err)
	}
	for rel, want := range map[string]string{
		"kit/kick.wav":      "kick",
		"kit/snare/snr.wav": "snare",
	} {
		data, err := os.ReadFile(filepath.Join(dst, rel))
		if err != nil {
			t.Errorf("missing %s: %v", rel, err)
			continue
		}
		if string(data) != want {
			t.Errorf("%s: expected %q, got %q", rel, want, data)
		}
	}
}

func TestCopyFileCancelled(t *testing.T) {
	src := t.TempDir()
	writeTree(t, src, map[string]string{"a.txt": "a"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewLocal(nil).CopyFile(ctx, filepath.Join(src, "a.txt"), t.TempDir(), "a.txt")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestCreateAndDeleteFolder(t *testing.T) {
	tmpDir := t.TempDir()
	l := NewLocal(nil)
	ctx := context.Background()

	if err := l.CreateFolder(ctx, tmpDir, "Mixes"); err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if err := l.CreateFolder(ctx, tmpDir, "Mixes"); !IsExists(err) {
		t.Errorf("expected exists error, got %v", err)
	}
	if err := l.CreateFolder(ctx, tmpDir, "a/b"); err == nil {
		t.Error("expected error for name containing a separator")
	}

	writeTree(t, tmpDir, map[string]string{"Mixes/one.wav": "1"})
	if err := l.DeleteFile(ctx, filepath.Join(tmpDir, "Mixes")); err == nil {
		t.Error("DeleteFile on a folder should fail")
	}
	if err := l.DeleteFile(ctx, filepath.Join(tmpDir, "Mixes", "one.wav")); err != nil {
		t.Errorf("DeleteFile: %v", err)
	}
	if err := l.DeleteFolder(ctx, filepath.Join(tmpDir, "Mixes")); err != nil {
		t.Errorf("DeleteFolder: %v", err)
	}
	if _, err := os.Stat(filepath.Join(tmpDir, "Mixes")); !os.IsNotExist(err) {
		t.Errorf("folder still present: %v", err)
	}
}

func TestDeleteMovesToTrash(t *testing.T) {
	tmpDir := t.TempDir()
	bin := trash.Open(filepath.Join(tmpDir, "Trash"))
	l := NewLocal(nil).WithTrash(bin)
	ctx := context.Background()
	writeTree(t, tmpDir, map[string]string{
		"data/one.wav":      "1",
		"data/Loops/lp.wav": "2",
	})

	if err := l.DeleteFile(ctx, filepath.Join(tmpDir, "data", "one.wav")); err != nil {
		t.Fatalf("DeleteFile: %v", err)
	}
	if err := l.DeleteFolder(ctx, filepath.Join(tmpDir, "data", "Loops")); err != nil {
		t.Fatalf("DeleteFolder: %v", err)
	}
	if err := l.DeleteFile(ctx, filepath.Join(tmpDir, "data", "gone.wav")); !IsNotFound(err) {
		t.Errorf("DeleteFile(missing) = %v, want not found", err)
	}

	items, err := bin.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("trash holds %d items, want 2", len(items))
	}
	entries, _ := os.ReadDir(filepath.Join(tmpDir, "data"))
	if len(entries) != 0 {
		t.Errorf("data still holds %d entries", len(entries))
	}
}

type recordingConverter struct {
	src, dst string
	params   ConversionParams
}

func (r *recordingConverter) Convert(ctx context.Context, src, dst string, params ConversionParams) error {
	r.src, r.dst, r.params = src, dst, params
	return os.WriteFile(dst, []byte("converted"), 0o644)
}

func TestConvertAndCopyFile(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	writeTree(t, src, map[string]string{"loop.aiff": "FORM"})
	ctx := context.Background()
	params := ConversionParams{Enabled: true, Format: "wav", SampleRate: 44100}

	err := NewLocal(nil).ConvertAndCopyFile(ctx, filepath.Join(src, "loop.aiff"), dst, "loop.wav", params)
	if !errors.Is(err, ErrConversionUnavailable) {
		t.Fatalf("expected ErrConversionUnavailable, got %v", err)
	}

	conv := &recordingConverter{}
	if err := NewLocal(conv).ConvertAndCopyFile(ctx, filepath.Join(src, "loop.aiff"), dst, "loop.wav", params); err != nil {
		t.Fatalf("ConvertAndCopyFile: %v", err)
	}
	if conv.dst != filepath.Join(dst, "loop.wav") {
		t.Errorf("unexpected destination %q", conv.dst)
	}
	if conv.params != params {
		t.Errorf("params not passed through: %+v", conv.params)
	}
}

func TestSearch(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{
		"Mixes/Summer Mix.wav":      "a",
		"Mixes/old/summer-b.flac":   "b",
		"Samples/Summer/kick.wav":   "c",
		"Samples/other.wav":         "d",
		".trash/summer-deleted.wav": "e",
	})
	l := NewLocal(nil)

	entries, err := l.Search(context.Background(), "SUMMER", tmpDir)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	got := make(map[string]Kind)
	for _, e := range entries {
		rel, _ := filepath.Rel(tmpDir, e.Path)
		got[rel] = e.Kind
	}
	want := map[string]Kind{
		filepath.Join("Mixes", "Summer Mix.wav"):       File,
		filepath.Join("Mixes", "old", "summer-b.flac"): File,
		filepath.Join("Samples", "Summer"):             Folder,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d results, got %d: %v", len(want), len(got), got)
	}
	for rel, kind := range want {
		if got[rel] != kind {
			t.Errorf("%s: expected %v, got %v", rel, kind, got[rel])
		}
	}

	entries, err = l.Search(context.Background(), "summer ext:flac", tmpDir)
	if err != nil {
		t.Fatalf("Search ext: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "summer-b.flac" {
		t.Errorf("ext filter: unexpected results %+v", entries)
	}
}

func TestSearchCancelled(t *testing.T) {
	tmpDir := t.TempDir()
	writeTree(t, tmpDir, map[string]string{"a/b.wav": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewLocal(nil).Search(ctx, "b", tmpDir); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIsNotFound(t *testing.T) {
	testCases := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{ErrNotFound, true},
		{os.ErrNotExist, true},
		{errors.New("File not found: /Volumes/SD"), true},
		{errors.New("ENOENT: no such file or directory"), true},
		{ErrPermissionDenied, false},
		{errors.New("disk full"), false},
	}
	for _, tc := range testCases {
		if got := IsNotFound(tc.err); got != tc.expected {
			t.Errorf("IsNotFound(%v): expected %v, got %v", tc.err, tc.expected, got)
		}
	}
}

func TestIsHidden(t *testing.T) {
	for name, want := range map[string]bool{
		".DS_Store": true,
		"~$temp":    true,
		"song.wav":  false,
		"a.b":       false,
	} {
		if got := IsHidden(name); got != want {
			t.Errorf("IsHidden(%q): expected %v, got %v", name, want, got)
		}
	}
}

func TestWithin(t *testing.T) {
	testCases := []struct {
		path, root string
		want       bool
	}{
		{"/A", "/A", true},
		{"/A/sub", "/A", true},
		{"/A/sub/", "/A", true},
		{"/AB", "/A", false},
		{"/A/../B", "/A", false},
		{"/anything", "/", true},
	}
	for _, tc := range testCases {
		if got := Within(tc.path, tc.root); got != tc.want {
			t.Errorf("Within(%q, %q) = %v, want %v", tc.path, tc.root, got, tc.want)
		}
	}
}

func TestKindText(t *testing.T) {
	var k Kind
	if err := k.UnmarshalText([]byte("directory")); err != nil || k != Folder {
		t.Errorf("directory: got %v, %v", k, err)
	}
	if err := k.UnmarshalText([]byte("file")); err != nil || k != File {
		t.Errorf("file: got %v, %v", k, err)
	}
	if err := k.UnmarshalText([]byte("socket")); err == nil {
		t.Error("expected error for unknown kind")
	}
	if b, _ := Folder.MarshalText(); string(b) != "folder" {
		t.Errorf("MarshalText = %q", b)
	}
}
