package mediameta

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mwantia/mediameta/cache"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/keys"
)

// musicChildCount and rootChildCount are the number of fixed children of music and root.
const (
	musicChildCount = 5
	rootChildCount  = 2
)

// GetMetadata resolves keyNames for every object id. Objects that fail are missing from the
// result; the first error is returned next to the partial map.
func (s *Source) GetMetadata(ctx context.Context, objectIDs []string, keyNames []string) (result map[string]data.Record, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRequest("metadata", start, err)
		s.metrics.AddRecords(len(result))
	}()

	result = make(map[string]data.Record, len(objectIDs))
	if len(objectIDs) == 0 {
		return result, fmt.Errorf("%w: no object ids", data.ErrInvalidRequest)
	}

	requested := s.registry.Compile(keyNames)
	if requested.Empty() {
		return result, nil
	}

	var mu sync.Mutex
	store := func(id string, record data.Record) {
		mu.Lock()
		defer mu.Unlock()
		result[id] = record
	}

	errs := &data.Errors{}
	var firstErr error
	clips := make(map[data.Service][]string)
	parsed := make(map[string]ObjectID, len(objectIDs))

	g := &errgroup.Group{}
	g.SetLimit(s.concurrency)

	for _, id := range objectIDs {
		o, err := s.ParseObjectID(id)
		if err != nil {
			s.log.Debug("Invalid object id '%s': %v", id, err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if _, seen := parsed[id]; seen {
			continue
		}
		parsed[id] = o

		if o.IsClip() {
			service := o.Category.Service()
			clips[service] = append(clips[service], id)
			continue
		}

		g.Go(func() error {
			record, err := s.containerMetadata(ctx, o, requested)
			if err != nil {
				errs.Add(err)
				return err
			}
			store(id, record)
			return nil
		})
	}

	for _, service := range data.Services {
		ids := clips[service]
		if len(ids) == 0 {
			continue
		}
		g.Go(func() error {
			records, err := s.clipMetadata(ctx, service, ids, parsed, requested)
			if err != nil {
				errs.Add(err)
				return err
			}
			for id, record := range records {
				store(id, record)
			}
			return nil
		})
	}

	groupErr := g.Wait()
	if errs.Len() > 1 {
		s.log.Warn("Metadata request failed for several objects: %v", errs.Errors())
	}
	if firstErr != nil {
		return result, firstErr
	}
	return result, groupErr
}

// clipMetadata reads the clips ids of one service with a single indexer call.
func (s *Source) clipMetadata(ctx context.Context, service data.Service, ids []string, parsed map[string]ObjectID, requested keys.KeySet) (map[string]data.Record, error) {
	paths := make([]string, 0, len(ids))
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		path, ok := parsed[id].Path()
		if !ok {
			return nil, fmt.Errorf("%w: %s", data.ErrInvalidObjectID, id)
		}
		paths = append(paths, path)
		valid = append(valid, id)
	}

	c := s.newCache(service, cache.ShapeGetMetadata)
	if len(valid) == 1 {
		c.AddPrecomputedString(keys.Uri, parsed[valid[0]].Clip)
	}

	admitted := requested
	checkDuration := service == data.ServicePlaylist && requested.Has(keys.Duration)
	if checkDuration {
		admitted = admitted.With(keys.PlaylistValidDuration)
	}
	c.AddKeys(admitted, 1)

	if native := c.NativeKeys(); len(native) > 0 {
		rows, err := s.getMetadata(ctx, paths, native)
		if err != nil {
			return nil, err
		}
		c.AttachRows(rows)
	} else {
		// Only precomputed values: one placeholder row per clip.
		rows := make([]data.Row, len(paths))
		for i := range rows {
			rows[i] = data.Row{}
		}
		c.AttachRows(rows)
	}

	records := c.BuildRecords(ctx, requested, paths)
	result := make(map[string]data.Record, len(valid))
	for i, id := range valid {
		var record data.Record
		if i < len(records) {
			record = records[i]
		}
		if checkDuration && record != nil && !durationValid(c, i) {
			s.refreshPlaylistDuration(ctx, id, record)
		}
		result[id] = record
	}
	return result, nil
}

// durationValid reads the raw validity flag of row: the scanner stores 0 for playlists whose
// duration was never computed, SetPlaylistDuration stores 1.
func durationValid(c *cache.ResultCache, row int) bool {
	return c.GetInt(keys.PlaylistValidDuration, row) == 1
}

// refreshPlaylistDuration replaces the duration of record through the configured callback.
func (s *Source) refreshPlaylistDuration(ctx context.Context, objectID string, record data.Record) {
	if s.playlistDuration == nil {
		return
	}

	duration, err := s.playlistDuration(ctx, objectID)
	if err != nil {
		s.log.Warn("Failed to calculate playlist duration of '%s': %v", objectID, err)
		return
	}
	d, _ := s.registry.Descriptor(keys.Duration)
	record.Set(d.Name, data.IntValue(duration))
}

// containerMetadata resolves the metadata of a category node.
func (s *Source) containerMetadata(ctx context.Context, o ObjectID, requested keys.KeySet) (data.Record, error) {
	switch o.Category {
	case CategoryRoot:
		return s.rootMetadata(ctx, requested)
	case CategoryMusic:
		record, err := s.serviceMetadata(ctx, data.ServiceMusic, o.Category.Title(), requested)
		if err != nil {
			return nil, err
		}
		s.overrideChildCount(record, requested, musicChildCount)
		return record, nil
	case CategoryVideos:
		return s.serviceMetadata(ctx, data.ServiceVideo, o.Category.Title(), requested)
	case CategorySongs:
		return s.serviceMetadata(ctx, data.ServiceMusic, o.Category.Title(), requested)
	case CategoryPlaylists:
		record, err := s.serviceMetadata(ctx, data.ServicePlaylist, o.Category.Title(), requested)
		if err != nil {
			return nil, err
		}
		if requested.Has(keys.Duration) {
			s.refreshPlaylistDuration(ctx, s.ObjectID(o), record)
		}
		return record, nil
	case CategoryGenres:
		return s.categoryMetadata(ctx, o.Genre, o.Artist, o.Album, keys.Genre, o.Category.Title(), requested)
	case CategoryArtists:
		return s.categoryMetadata(ctx, "", o.Artist, o.Album, keys.Artist, o.Category.Title(), requested)
	case CategoryAlbums:
		return s.categoryMetadata(ctx, "", "", o.Album, keys.Album, o.Category.Title(), requested)
	}
	return nil, fmt.Errorf("%w: unknown category %v", data.ErrInvalidObjectID, o.Category)
}

// rootMetadata is the music container titled "Root" with the video durations added.
func (s *Source) rootMetadata(ctx context.Context, requested keys.KeySet) (data.Record, error) {
	record, err := s.serviceMetadata(ctx, data.ServiceMusic, CategoryRoot.Title(), requested)
	if err != nil {
		return nil, err
	}

	if requested.Has(keys.Duration) {
		videos, err := s.serviceMetadata(ctx, data.ServiceVideo, "", keys.Of(keys.Duration))
		if err != nil {
			return nil, err
		}

		d, _ := s.registry.Descriptor(keys.Duration)
		total := 0
		for _, r := range []data.Record{record, videos} {
			if v, ok := r.Get(d.Name); ok {
				n, _ := v.Int()
				total += n
			}
		}
		if total > 0 {
			record.Set(d.Name, data.IntValue(total))
		}
	}

	s.overrideChildCount(record, requested, rootChildCount)
	return record, nil
}

func (s *Source) overrideChildCount(record data.Record, requested keys.KeySet, count int) {
	if requested.Has(keys.ChildCount1) {
		record.Set(s.registry.Name(keys.ChildCount1), data.IntValue(count))
	}
}

// serviceMetadata aggregates every item of service into one container record.
func (s *Source) serviceMetadata(ctx context.Context, service data.Service, title string, requested keys.KeySet) (data.Record, error) {
	if requested.Only(keys.ChildCount1) {
		stats, err := s.stats(ctx)
		if err != nil {
			return nil, err
		}
		return data.Record{s.registry.Name(keys.ChildCount1): data.IntValue(stats[service])}, nil
	}

	c := s.newCache(service, cache.ShapeUniqueAggregate)
	c.AddUnique(keys.Mime)
	if title != "" {
		c.AddPrecomputedString(keys.Title, title)
	}
	c.AddKeys(requested, 1)

	if aggregates := s.aggregates(c, nil); len(aggregates) > 0 {
		rows, err := s.uniqueValues(ctx, &indexer.UniqueQuery{
			Service:    service,
			Key:        indexer.KeyMime,
			Aggregates: aggregates,
		})
		if err != nil {
			return nil, err
		}
		c.AttachRows(rows)
	}

	return c.BuildAggregateRecord(ctx, false, requested), nil
}

// categoryLayout describes how a genre, artist or album node aggregates its songs.
type categoryLayout struct {
	unique    keys.Key
	maxLevel  int
	countFrom int
	countMode bool
}

// categoryMetadata resolves a node below the genres, artists or albums containers. defaultKey
// is the key listed by the container itself.
func (s *Source) categoryMetadata(ctx context.Context, genre, artist, album string, defaultKey keys.Key, title string, requested keys.KeySet) (data.Record, error) {
	service := data.ServiceMusic
	c := s.newCache(service, cache.ShapeUniqueAggregate)

	switch {
	case album != "":
		title = album
	case artist != "":
		title = artist
	case genre != "":
		title = genre
	}
	c.AddPrecomputedString(keys.Title, title)
	if genre != "" {
		c.AddPrecomputedString(keys.Genre, genre)
	}
	if artist != "" {
		c.AddPrecomputedString(keys.Artist, artist)
	}
	if album != "" {
		c.AddPrecomputedString(keys.Album, album)
	}

	var layout categoryLayout
	switch {
	case album != "":
		layout = categoryLayout{unique: keys.Album, maxLevel: 1, countFrom: 3}
	case artist != "":
		layout = categoryLayout{unique: keys.Artist, maxLevel: 2, countFrom: 2}
	case genre != "":
		layout = categoryLayout{unique: keys.Genre, maxLevel: 3, countFrom: 1}
	case defaultKey == keys.Genre:
		layout = categoryLayout{unique: keys.Genre, maxLevel: 4, countFrom: 0, countMode: true}
	case defaultKey == keys.Artist:
		layout = categoryLayout{unique: keys.Artist, maxLevel: 3, countFrom: 1, countMode: true}
	default:
		layout = categoryLayout{unique: keys.Album, maxLevel: 2, countFrom: 2, countMode: true}
	}

	c.AddUnique(layout.unique)
	c.AddKeys(requested, layout.maxLevel)
	if artist != "" && album == "" && requested.Has(keys.Album) {
		c.AddConcat(keys.Album)
	}
	if artist == "" && album != "" && requested.Has(keys.Artist) {
		c.AddConcat(keys.Artist)
	}

	countKeys := []string{
		s.native(keys.Genre, service),
		s.native(keys.Artist, service),
		s.native(keys.Album, service),
		indexer.CountAll,
	}

	if aggregates := s.aggregates(c, countKeys[layout.countFrom:]); len(aggregates) > 0 {
		rows, err := s.uniqueValues(ctx, &indexer.UniqueQuery{
			Service:    service,
			Key:        s.native(layout.unique, service),
			Aggregates: aggregates,
			Filter:     s.categoryFilter(genre, artist, album),
		})
		if err != nil {
			return nil, err
		}
		c.AttachRows(rows)
	}

	record := c.BuildAggregateRecord(ctx, layout.countMode, requested)
	if layout.countMode {
		// The container has no value of its own grouping key.
		delete(record, s.registry.Name(layout.unique))
	}
	return record, nil
}
