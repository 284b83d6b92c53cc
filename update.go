package mediameta

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/mwantia/mediameta/cache"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/keys"
)

// dateLayout is how date values are written to the indexer.
const dateLayout = "2006-01-02T15:04:05Z"

// SetMetadata writes values to the clip objectID in one indexer call. It returns the names of
// the keys that were not written.
func (s *Source) SetMetadata(ctx context.Context, objectID string, values data.Record) (failed []string, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRequest("set-metadata", start, err)
	}()

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	slices.Sort(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("%w: no metadata to set", data.ErrInvalidRequest)
	}

	o, err := s.ParseObjectID(objectID)
	if err != nil {
		return names, err
	}
	if !o.IsClip() || o.Category == CategoryPlaylists {
		return names, fmt.Errorf("%w: %s does not accept metadata", data.ErrInvalidObjectID, objectID)
	}
	path, ok := o.Path()
	if !ok {
		return names, fmt.Errorf("%w: %s", data.ErrInvalidObjectID, objectID)
	}

	service := o.Category.Service()
	var nativeKeys, nativeValues []string
	var written []string

	for _, name := range names {
		text, ok := s.nativeValue(name, values[name], service)
		if !ok {
			failed = append(failed, name)
			continue
		}
		k, _ := s.registry.Lookup(name)
		nativeKeys = append(nativeKeys, s.native(k, service))
		nativeValues = append(nativeValues, text)
		written = append(written, name)
	}

	if len(nativeKeys) > 0 {
		s.metrics.IndexerCall(s.indexer.Name(), "set-metadata")
		if err := s.indexer.SetMetadata(ctx, path, nativeKeys, nativeValues); err != nil {
			s.log.Error("Failed to set metadata of '%s': %v", path, err)
			return names, err
		}

		s.log.Debug("Updated %v of '%s'", written, path)
		if s.observer != nil {
			s.observer.MetadataChanged(objectID)
		}
	}

	if len(failed) > 0 {
		return failed, fmt.Errorf("%w: %v", data.ErrUnsupportedMetadataKey, failed)
	}
	return nil, nil
}

// nativeValue formats value for the indexer. ok is false for keys that cannot be written.
func (s *Source) nativeValue(name string, value data.Value, service data.Service) (string, bool) {
	k, ok := s.registry.Lookup(name)
	if !ok || !s.registry.IsWritable(k) {
		return "", false
	}
	native, ok := s.registry.ResolveNative(k, service)
	if !ok {
		return "", false
	}

	if native.Type == keys.NativeDate {
		epoch, ok := value.Long()
		if !ok {
			return "", false
		}
		return time.Unix(epoch, 0).UTC().Format(dateLayout), true
	}
	return value.String(), true
}

// SetPlaylistDuration stores a computed duration for the playlist at uri and marks it valid.
func (s *Source) SetPlaylistDuration(ctx context.Context, uri string, duration int) error {
	path, ok := cache.PathFromURI(uri)
	if !ok {
		return fmt.Errorf("%w: %q is not a file uri", data.ErrInvalidRequest, uri)
	}

	native := s.native(keys.Duration, data.ServicePlaylist)
	valid := s.native(keys.PlaylistValidDuration, data.ServicePlaylist)

	s.metrics.IndexerCall(s.indexer.Name(), "set-metadata")
	if err := s.indexer.SetMetadata(ctx, path, []string{native, valid}, []string{strconv.Itoa(duration), "1"}); err != nil {
		s.log.Warn("Failed to store duration of playlist '%s': %v", path, err)
		return err
	}
	return nil
}
