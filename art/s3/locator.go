// Package s3 finds album art and thumbnails stored in an S3 compatible bucket.
package s3

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/mwantia/mediameta/art"
	"github.com/mwantia/mediameta/data"
)

type Locator struct {
	mu sync.RWMutex

	client     *minio.Client
	bucketName string
	prefix     string
	found      map[string]bool
}

func NewLocator(endpoint, bucketName, accessKey, secretKey, prefix string, useSsl bool) (*Locator, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSsl,
	})
	if err != nil {
		return nil, err
	}

	return newLocator(client, bucketName, prefix), nil
}

func newLocator(client *minio.Client, bucketName, prefix string) *Locator {
	return &Locator{
		client:     client,
		bucketName: bucketName,
		prefix:     prefix,
		found:      make(map[string]bool),
	}
}

func (*Locator) Name() string {
	return "s3"
}

// Open verifies that the bucket exists.
func (l *Locator) Open(ctx context.Context) error {
	exists, err := l.client.BucketExists(ctx, l.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket %q: %w", l.bucketName, err)
	}
	if !exists {
		return fmt.Errorf("%w: bucket %q does not exist", data.ErrNotExist, l.bucketName)
	}
	return nil
}

// Invalidate forgets every cached lookup.
func (l *Locator) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.found = make(map[string]bool)
}

func (l *Locator) AlbumArt(ctx context.Context, album string) (string, bool) {
	if art.IsUnknown(album) {
		return "", false
	}
	return l.lookup(ctx, path.Join(l.prefix, "albums", art.AlbumArtName(album)))
}

func (l *Locator) Thumbnail(ctx context.Context, uri string, size art.Size) (string, bool) {
	if uri == "" {
		return "", false
	}
	return l.lookup(ctx, path.Join(l.prefix, "thumbnails", art.ThumbnailName(uri, size)))
}

func (l *Locator) lookup(ctx context.Context, key string) (string, bool) {
	l.mu.RLock()
	exists, cached := l.found[key]
	l.mu.RUnlock()

	if !cached {
		_, err := l.client.StatObject(ctx, l.bucketName, key, minio.StatObjectOptions{})
		if err != nil && minio.ToErrorResponse(err).Code != "NoSuchKey" {
			// Transient failures are not cached.
			return "", false
		}
		exists = err == nil

		l.mu.Lock()
		l.found[key] = exists
		l.mu.Unlock()
	}

	if !exists {
		return "", false
	}
	return l.objectURL(key), true
}

func (l *Locator) objectURL(key string) string {
	endpoint := l.client.EndpointURL()
	u := url.URL{
		Scheme: endpoint.Scheme,
		Host:   endpoint.Host,
		Path:   "/" + path.Join(l.bucketName, key),
	}
	return u.String()
}
