package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ogglobi/audiolox/internal/ports"
)

func writeTestFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("not really audio"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLibrary_ScanAndResolve(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "track one.mp3")
	writeTestFile(t, dir, "notes.txt")

	lib, err := NewLibrary(dir)
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	if got := lib.TrackCount(); got != 1 {
		t.Fatalf("TrackCount() = %d, want 1", got)
	}

	items, err := lib.GetMediaFolder(context.Background(), "", 0, 0)
	if err != nil {
		t.Fatalf("GetMediaFolder() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("GetMediaFolder() len = %d, want 1", len(items))
	}

	info, err := lib.ResolveMetadata(context.Background(), items[0].Audiopath)
	if err != nil {
		t.Fatalf("ResolveMetadata() error = %v", err)
	}
	if info.Title != "track one" {
		t.Errorf("Title = %q, want %q", info.Title, "track one")
	}

	res, err := lib.ResolvePlaybackSource(context.Background(), ports.ResolveSourceOptions{Audiopath: items[0].Audiopath})
	if err != nil {
		t.Fatalf("ResolvePlaybackSource() error = %v", err)
	}
	if res.Source == nil || res.Source.Kind != "file" {
		t.Errorf("Source = %+v, want file kind", res.Source)
	}
}

func TestLibrary_ResolveRadioURL(t *testing.T) {
	lib, err := NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	res, err := lib.ResolvePlaybackSource(context.Background(), ports.ResolveSourceOptions{Audiopath: "https://example.com/stream.mp3"})
	if err != nil {
		t.Fatalf("ResolvePlaybackSource() error = %v", err)
	}
	if res.Source == nil || res.Source.Kind != "http" {
		t.Errorf("Source = %+v, want http kind", res.Source)
	}
}

func TestLibrary_RemoteProviderDeclinesDirectResolution(t *testing.T) {
	lib, err := NewLibrary(t.TempDir())
	if err != nil {
		t.Fatalf("NewLibrary() error = %v", err)
	}
	if _, err := lib.ResolvePlaybackSource(context.Background(), ports.ResolveSourceOptions{Audiopath: "spotify:track:abc"}); err == nil {
		t.Error("ResolvePlaybackSource(spotify) = nil error, want an error directing callers to internal/inputs")
	}
}
