// Package art resolves album-art and thumbnail URIs for media objects.
package art

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// Size is the thumbnail size class.
type Size int

const (
	SizeNormal Size = iota
	SizeCropped
)

func (s Size) String() string {
	if s == SizeCropped {
		return "cropped"
	}
	return "normal"
}

// Locator maps an album name or a media URI to an image URI. ok is false when nothing exists.
type Locator interface {
	AlbumArt(ctx context.Context, album string) (uri string, ok bool)
	Thumbnail(ctx context.Context, uri string, size Size) (thumbnail string, ok bool)
}

// None is a Locator that never finds anything.
type None struct{}

func (None) AlbumArt(context.Context, string) (string, bool) { return "", false }
func (None) Thumbnail(context.Context, string, Size) (string, bool) { return "", false }

// IsUnknown reports values indexers store for missing tags.
func IsUnknown(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, "unknown")
}

// AlbumArtName is the file name an album's art is stored under.
func AlbumArtName(album string) string {
	return "album-" + hash(strings.ToLower(strings.TrimSpace(album))) + ".jpeg"
}

// ThumbnailName is the file name of the thumbnail of uri, relative to the thumbnail root.
func ThumbnailName(uri string, size Size) string {
	return size.String() + "/" + hash(uri) + ".jpeg"
}

func hash(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
