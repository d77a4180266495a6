package transfer

import (
	"context"
	"testing"

	"github.com/justyntemme/twinpane/internal/provider"
)

func TestDragItemsRoundTrip(t *testing.T) {
	items := []Item{
		{SourcePath: "/sd/kick.wav", Name: "kick.wav", Kind: provider.File},
		{SourcePath: "/sd/Loops", Name: "Loops", Kind: provider.Folder},
	}
	data, err := EncodeDragData("left", items)
	if err != nil {
		t.Fatal(err)
	}
	d, err := DecodeDragData(MIMEItems, data)
	if err != nil {
		t.Fatalf("DecodeDragData: %v", err)
	}
	if d.External() || d.Pane != "left" || len(d.Items) != 2 || d.Items[1].Kind != provider.Folder {
		t.Errorf("unexpected payload %+v", d)
	}
}

func TestDecodeDragDataKindNames(t *testing.T) {
	data := []byte(`{"pane":"right","items":[{"sourcePath":"/a","name":"a","kind":"directory"}]}`)
	d, err := DecodeDragData(MIMEItems, data)
	if err != nil || d.Items[0].Kind != provider.Folder {
		t.Errorf("got %+v, %v", d, err)
	}
	if _, err := DecodeDragData(MIMEItems, []byte(`{"items":[]}`)); err == nil {
		t.Error("in-app payload without pane should be rejected")
	}
}

func TestDecodeURIList(t *testing.T) {
	data := []byte("# dropped from finder\r\nfile:///Users/me/My%20Song.wav\r\n\r\nfile://localhost/Volumes/SD/Loops\r\nhttps://example.com/x.wav\r\n")
	d, err := DecodeDragData("text/uri-list", data)
	if err != nil {
		t.Fatalf("DecodeDragData: %v", err)
	}
	if !d.External() {
		t.Error("uri-list drops are external")
	}
	want := []string{"/Users/me/My Song.wav", "/Volumes/SD/Loops"}
	if len(d.Paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, d.Paths)
	}
	for i := range want {
		if d.Paths[i] != want[i] {
			t.Errorf("path %d: expected %q, got %q", i, want[i], d.Paths[i])
		}
	}

	if _, err := DecodeDragData(MIMEURIList, []byte("https://example.com/only.wav\n")); err == nil {
		t.Error("a list without file URIs should fail")
	}
	if _, err := DecodeDragData("image/png", nil); err == nil {
		t.Error("unsupported MIME type should fail")
	}
}

func TestItemsFromPaths(t *testing.T) {
	m := provider.NewMemory()
	m.AddFile("/ext/kick.wav", "k")
	m.AddFolder("/ext/Loops")

	items, err := ItemsFromPaths(context.Background(), m, []string{"/ext/kick.wav", "/ext/Loops/", "/ext/missing.wav"}, "/dst")
	if err == nil {
		t.Error("missing path should be reported")
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %+v", items)
	}
	if items[0].Kind != provider.File || items[1].Kind != provider.Folder || items[1].Name != "Loops" {
		t.Errorf("unexpected items %+v", items)
	}
	if items[0].TargetDirectory != "/dst" {
		t.Errorf("target directory not set: %+v", items[0])
	}
}
