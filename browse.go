package mediameta

import (
	"context"
	"fmt"
	"time"

	"github.com/mwantia/mediameta/cache"
	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/keys"
)

// BrowseRequest selects and pages the children of a container. Filter and Sort use abstract
// key names.
type BrowseRequest struct {
	Keys   []string        `json:"keys,omitempty"`
	Filter *indexer.Filter `json:"filter,omitempty"`
	// Sort entries are "key", "+key" or "-key"; empty uses the container default.
	Sort   []string `json:"sort,omitempty"`
	Offset int      `json:"offset"`
	Count  int      `json:"count"`
}

// Entry is one browse result.
type Entry struct {
	ObjectID string      `json:"object_id"`
	Metadata data.Record `json:"metadata,omitempty"`
}

func (r *BrowseRequest) orDefault() *BrowseRequest {
	if r == nil {
		return &BrowseRequest{}
	}
	return r
}

func (r *BrowseRequest) sortOr(defaults ...string) []string {
	if len(r.Sort) > 0 {
		return r.Sort
	}
	return defaults
}

// Browse lists the children of objectID.
func (s *Source) Browse(ctx context.Context, objectID string, req *BrowseRequest) (entries []Entry, err error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRequest("browse", start, err)
		s.metrics.AddRecords(len(entries))
	}()

	o, err := s.ParseObjectID(objectID)
	if err != nil {
		return nil, err
	}
	if o.IsClip() {
		return nil, fmt.Errorf("%w: %s has no children", data.ErrInvalidObjectID, objectID)
	}
	req = req.orDefault()

	switch o.Category {
	case CategoryRoot:
		return s.fixedEntries(ctx, req, CategoryMusic, CategoryVideos)
	case CategoryMusic:
		return s.fixedEntries(ctx, req, CategorySongs, CategoryAlbums, CategoryArtists, CategoryGenres, CategoryPlaylists)
	case CategoryVideos:
		return s.GetVideos(ctx, req)
	case CategorySongs:
		return s.GetSongs(ctx, "", "", "", req)
	case CategoryPlaylists:
		return s.GetPlaylists(ctx, req)
	case CategoryAlbums:
		if o.Album == "" {
			return s.GetAlbums(ctx, "", "", req)
		}
		return s.GetSongs(ctx, "", "", o.Album, req)
	case CategoryArtists:
		switch {
		case o.Artist == "":
			return s.GetArtists(ctx, "", req)
		case o.Album == "":
			return s.GetAlbums(ctx, "", o.Artist, req)
		default:
			return s.GetSongs(ctx, "", o.Artist, o.Album, req)
		}
	case CategoryGenres:
		switch {
		case o.Genre == "":
			return s.GetGenres(ctx, req)
		case o.Artist == "":
			return s.GetArtists(ctx, o.Genre, req)
		case o.Album == "":
			return s.GetAlbums(ctx, o.Genre, o.Artist, req)
		default:
			return s.GetSongs(ctx, o.Genre, o.Artist, o.Album, req)
		}
	}
	return nil, fmt.Errorf("%w: %s", data.ErrInvalidObjectID, objectID)
}

// fixedEntries lists static containers, with their metadata when keys are requested.
func (s *Source) fixedEntries(ctx context.Context, req *BrowseRequest, categories ...Category) ([]Entry, error) {
	categories = indexer.Page(categories, req.Offset, req.Count)

	entries := make([]Entry, len(categories))
	ids := make([]string, len(categories))
	for i, category := range categories {
		ids[i] = s.ObjectID(ObjectID{Category: category})
		entries[i].ObjectID = ids[i]
	}

	if len(req.Keys) == 0 || len(ids) == 0 {
		return entries, nil
	}

	metadata, err := s.GetMetadata(ctx, ids, req.Keys)
	for i := range entries {
		entries[i].Metadata = metadata[entries[i].ObjectID]
	}
	return entries, err
}

// GetSongs lists the songs matching the given genre, artist and album; empty values match all.
func (s *Source) GetSongs(ctx context.Context, genre, artist, album string, req *BrowseRequest) ([]Entry, error) {
	req = req.orDefault()
	service := data.ServiceMusic

	c := s.newCache(service, cache.ShapeRawQuery)
	if genre != "" {
		c.AddPrecomputedString(keys.Genre, genre)
	}
	if artist != "" {
		c.AddPrecomputedString(keys.Artist, artist)
	}
	if album != "" {
		c.AddPrecomputedString(keys.Album, album)
	}

	defaultSort := []string{"title"}
	if album != "" {
		defaultSort = []string{"track", "title"}
	}

	userFilter, err := s.translateFilter(req.Filter, service)
	if err != nil {
		return nil, err
	}
	filter := combineFilters(s.categoryFilter(genre, artist, album), userFilter)

	parent := songParent(genre, artist, album)
	return s.rawQuery(ctx, c, req, filter, s.parseSort(req.sortOr(defaultSort...), service), parent)
}

// songParent returns the container songs of the given category values are listed under. Partial
// combinations the tree has no node for are listed under the songs container.
func songParent(genre, artist, album string) ObjectID {
	switch {
	case genre != "" && artist != "" && album != "":
		return ObjectID{Category: CategoryGenres, Genre: genre, Artist: artist, Album: album}
	case genre == "" && artist != "" && album != "":
		return ObjectID{Category: CategoryArtists, Artist: artist, Album: album}
	case genre == "" && artist == "" && album != "":
		return ObjectID{Category: CategoryAlbums, Album: album}
	default:
		return ObjectID{Category: CategorySongs}
	}
}

func (s *Source) GetVideos(ctx context.Context, req *BrowseRequest) ([]Entry, error) {
	req = req.orDefault()
	service := data.ServiceVideo

	filter, err := s.translateFilter(req.Filter, service)
	if err != nil {
		return nil, err
	}

	c := s.newCache(service, cache.ShapeRawQuery)
	sort := s.parseSort(req.sortOr("title", "filename"), service)
	return s.rawQuery(ctx, c, req, filter, sort, ObjectID{Category: CategoryVideos})
}

func (s *Source) GetPlaylists(ctx context.Context, req *BrowseRequest) ([]Entry, error) {
	req = req.orDefault()
	service := data.ServicePlaylist

	filter, err := s.translateFilter(req.Filter, service)
	if err != nil {
		return nil, err
	}

	c := s.newCache(service, cache.ShapeRawQuery)
	sort := s.parseSort(req.sortOr("filename"), service)
	return s.rawQuery(ctx, c, req, filter, sort, ObjectID{Category: CategoryPlaylists})
}

// GetPlaylistEntries returns the songs stored at paths, in title order.
func (s *Source) GetPlaylistEntries(ctx context.Context, paths []string, req *BrowseRequest) ([]Entry, error) {
	req = req.orDefault()
	if len(paths) == 0 {
		return []Entry{}, nil
	}
	service := data.ServiceMusic

	userFilter, err := s.translateFilter(req.Filter, service)
	if err != nil {
		return nil, err
	}
	filter := combineFilters(indexer.In(indexer.KeyFullPath, paths...), userFilter)

	c := s.newCache(service, cache.ShapeRawQuery)
	sort := s.parseSort(req.sortOr("title"), service)
	return s.rawQuery(ctx, c, req, filter, sort, ObjectID{Category: CategorySongs})
}

// rawQuery runs a clip listing: the uri first, then the requested keys.
func (s *Source) rawQuery(ctx context.Context, c *cache.ResultCache, req *BrowseRequest, filter *indexer.Filter, sort []indexer.SortField, parent ObjectID) ([]Entry, error) {
	requested := s.registry.Compile(req.Keys)
	c.AddKey(keys.Uri, 1)
	c.AddKeys(requested, 1)

	rows, err := s.query(ctx, &indexer.Query{
		Service: c.Service(),
		Keys:    c.NativeKeys(),
		Filter:  filter,
		Sort:    sort,
		Offset:  req.Offset,
		Count:   req.Count,
	})
	if err != nil {
		return nil, err
	}
	c.AttachRows(rows)

	paths := make([]string, len(rows))
	for i, row := range rows {
		paths[i], _ = row.Cell(0)
	}

	var records []data.Record
	if !requested.Empty() {
		records = c.BuildRecords(ctx, requested, paths)
	}

	entries := make([]Entry, 0, len(rows))
	for i, path := range paths {
		uri, ok := cache.FileURI(path)
		if !ok {
			s.log.Warn("Skipping item with invalid path '%s'", path)
			continue
		}

		child := parent
		child.Clip = uri
		entry := Entry{ObjectID: s.ObjectID(child)}
		if i < len(records) {
			entry.Metadata = records[i]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetArtists lists the artists, of genre when it is given.
func (s *Source) GetArtists(ctx context.Context, genre string, req *BrowseRequest) ([]Entry, error) {
	req = req.orDefault()
	requested := s.registry.Compile(req.Keys)
	service := data.ServiceMusic

	c := s.newCache(service, cache.ShapeUniqueAggregate)
	if genre != "" {
		c.AddPrecomputedString(keys.Genre, genre)
	}
	if err := c.AddDerived(keys.Title, keys.Artist); err != nil {
		return nil, err
	}
	c.AddUnique(keys.Artist)
	c.AddKeys(requested, 2)
	if hasAlbumKey(requested) {
		c.AddConcat(keys.Album)
	}

	targets := []string{s.native(keys.Album, service), indexer.CountAll}
	filter := s.categoryFilter(genre, "", "")

	return s.uniqueQuery(ctx, c, req, requested, filter, targets, func(value string) ObjectID {
		if genre != "" {
			return ObjectID{Category: CategoryGenres, Genre: genre, Artist: value}
		}
		return ObjectID{Category: CategoryArtists, Artist: value}
	})
}

// GetAlbums lists the albums, of genre and artist when they are given.
func (s *Source) GetAlbums(ctx context.Context, genre, artist string, req *BrowseRequest) ([]Entry, error) {
	req = req.orDefault()
	requested := s.registry.Compile(req.Keys)
	service := data.ServiceMusic

	c := s.newCache(service, cache.ShapeUniqueAggregate)
	if genre != "" {
		c.AddPrecomputedString(keys.Genre, genre)
	}
	if artist != "" {
		c.AddPrecomputedString(keys.Artist, artist)
	}
	if err := c.AddDerived(keys.Title, keys.Album); err != nil {
		return nil, err
	}
	c.AddUnique(keys.Album)
	c.AddKeys(requested, 1)
	if artist == "" && requested.Has(keys.Artist) {
		c.AddConcat(keys.Artist)
	}

	filter := s.categoryFilter(genre, artist, "")

	return s.uniqueQuery(ctx, c, req, requested, filter, []string{indexer.CountAll}, func(value string) ObjectID {
		switch {
		case genre != "" && artist != "":
			return ObjectID{Category: CategoryGenres, Genre: genre, Artist: artist, Album: value}
		case genre == "" && artist != "":
			return ObjectID{Category: CategoryArtists, Artist: artist, Album: value}
		default:
			return ObjectID{Category: CategoryAlbums, Album: value}
		}
	})
}

func (s *Source) GetGenres(ctx context.Context, req *BrowseRequest) ([]Entry, error) {
	req = req.orDefault()
	requested := s.registry.Compile(req.Keys)
	service := data.ServiceMusic

	c := s.newCache(service, cache.ShapeUniqueAggregate)
	if err := c.AddDerived(keys.Title, keys.Genre); err != nil {
		return nil, err
	}
	c.AddUnique(keys.Genre)
	c.AddKeys(requested, 3)
	if requested.Has(keys.Artist) {
		c.AddConcat(keys.Artist)
	}

	targets := []string{s.native(keys.Artist, service), s.native(keys.Album, service), indexer.CountAll}

	return s.uniqueQuery(ctx, c, req, requested, nil, targets, func(value string) ObjectID {
		return ObjectID{Category: CategoryGenres, Genre: value}
	})
}

// uniqueQuery lists the distinct values of the grouping key of c, one entry per value.
func (s *Source) uniqueQuery(ctx context.Context, c *cache.ResultCache, req *BrowseRequest, requested keys.KeySet, filter *indexer.Filter, targets []string, child func(value string) ObjectID) ([]Entry, error) {
	unique, _ := c.Unique()

	userFilter, err := s.translateFilter(req.Filter, c.Service())
	if err != nil {
		return nil, err
	}

	rows, err := s.uniqueValues(ctx, &indexer.UniqueQuery{
		Service:    c.Service(),
		Key:        s.native(unique, c.Service()),
		Aggregates: s.aggregates(c, targets),
		Filter:     combineFilters(filter, userFilter),
		Offset:     req.Offset,
		Count:      req.Count,
	})
	if err != nil {
		return nil, err
	}
	c.AttachRows(rows)

	var records []data.Record
	if !requested.Empty() {
		records = c.BuildRecords(ctx, requested, nil)
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		value, ok := row.Cell(0)
		if !ok || value == "" {
			continue
		}
		entry := Entry{ObjectID: s.ObjectID(child(value))}
		if i < len(records) {
			entry.Metadata = records[i]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
