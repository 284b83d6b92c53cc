// Package local finds album art and thumbnails in local cache directories.
package local

import (
	"context"
	"net/url"
	"os"
	"path/filepath"

	"github.com/mwantia/mediameta/art"
)

type Locator struct {
	albumDir     string
	thumbnailDir string
}

func NewLocator(albumDir, thumbnailDir string) *Locator {
	return &Locator{
		albumDir:     albumDir,
		thumbnailDir: thumbnailDir,
	}
}

func (l *Locator) AlbumArt(_ context.Context, album string) (string, bool) {
	if l.albumDir == "" || art.IsUnknown(album) {
		return "", false
	}
	return fileURI(filepath.Join(l.albumDir, art.AlbumArtName(album)))
}

func (l *Locator) Thumbnail(_ context.Context, uri string, size art.Size) (string, bool) {
	if l.thumbnailDir == "" || uri == "" {
		return "", false
	}
	return fileURI(filepath.Join(l.thumbnailDir, filepath.FromSlash(art.ThumbnailName(uri, size))))
}

func fileURI(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), true
}
