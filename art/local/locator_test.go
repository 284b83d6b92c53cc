package local

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mwantia/mediameta/art"
)

func TestLocator(t *testing.T) {
	ctx := t.Context()
	dir := t.TempDir()

	albums := filepath.Join(dir, "albums")
	thumbs := filepath.Join(dir, "thumbnails")
	if err := os.MkdirAll(filepath.Join(thumbs, "cropped"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.MkdirAll(albums, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	if err := os.WriteFile(filepath.Join(albums, art.AlbumArtName("Ray of Light")), []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	uri := "file:///music/Madonna/Frozen.mp3"
	if err := os.WriteFile(filepath.Join(thumbs, filepath.FromSlash(art.ThumbnailName(uri, art.SizeCropped))), []byte("jpeg"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	locator := NewLocator(albums, thumbs)

	found, ok := locator.AlbumArt(ctx, "ray of light")
	if !ok || !strings.HasPrefix(found, "file://") {
		t.Errorf("AlbumArt = %q, %v", found, ok)
	}
	if _, ok := locator.AlbumArt(ctx, "Unknown"); ok {
		t.Errorf("unknown album must not resolve")
	}
	if _, ok := locator.AlbumArt(ctx, "Missing"); ok {
		t.Errorf("missing album must not resolve")
	}

	if _, ok := locator.Thumbnail(ctx, uri, art.SizeCropped); !ok {
		t.Errorf("cropped thumbnail should resolve")
	}
	if _, ok := locator.Thumbnail(ctx, uri, art.SizeNormal); ok {
		t.Errorf("normal thumbnail does not exist")
	}
}
