package mediameta

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/memory"
	"github.com/mwantia/mediameta/log"
)

type recorder struct {
	mu         sync.Mutex
	containers []string
	changed    []string
	updates    [][4]int
}

func (r *recorder) ContainerChanged(objectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers = append(r.containers, objectID)
}

func (r *recorder) MetadataChanged(objectID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changed = append(r.changed, objectID)
}

func (r *recorder) Updating(progress, processed, remaining, remainingTime int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, [4]int{progress, processed, remaining, remainingTime})
}

func testItems() []*indexer.Item {
	return []*indexer.Item{
		{Path: "/music/a.mp3", Service: data.ServiceMusic, Values: map[string]string{
			"Audio:Artist": "Madonna", "Audio:Album": "Like a Prayer", "Audio:Title": "Like a Prayer",
			"Audio:TrackNo": "1", "Audio:Duration": "300", "Audio:Genre": "Pop",
		}},
		{Path: "/music/b.mp3", Service: data.ServiceMusic, Values: map[string]string{
			"Audio:Artist": "Madonna", "Audio:Album": "Like a Prayer", "Audio:Title": "Express Yourself",
			"Audio:TrackNo": "2", "Audio:Duration": "280", "Audio:Genre": "Pop",
		}},
		{Path: "/music/c.mp3", Service: data.ServiceMusic, Values: map[string]string{
			"Audio:Artist": "Queen", "Audio:Album": "Innuendo", "Audio:Title": "Innuendo",
			"Audio:TrackNo": "10", "Audio:Duration": "390", "Audio:Genre": "Rock",
		}},
		{Path: "/music/d.mp3", Service: data.ServiceMusic, Values: map[string]string{
			"Audio:Artist": "Queen", "Audio:Title": "Untitled",
		}},
		{Path: "/video/e.avi", Service: data.ServiceVideo, Values: map[string]string{
			"Video:Title": "Holiday", "Video:Duration": "1200",
		}},
		{Path: "/music/list.m3u", Service: data.ServicePlaylist, Values: map[string]string{
			"Playlist:Duration": "100", "Playlist:ValidDuration": "0", "Playlist:Songs": "3",
		}},
	}
}

func setupSource(t *testing.T, opts ...SourceOption) (*Source, *memory.MemoryBackend, *recorder) {
	t.Helper()
	ctx := t.Context()

	store := memory.NewMemoryBackend()
	rec := &recorder{}

	opts = append([]SourceOption{WithLogger(log.Discard()), WithObserver(rec)}, opts...)
	source, err := NewSource(store, opts...)
	if err != nil {
		t.Fatalf("Failed to create source: %v", err)
	}
	for _, item := range testItems() {
		if err := store.Put(ctx, item); err != nil {
			t.Fatalf("Failed to put %s: %v", item.Path, err)
		}
	}
	if err := source.Open(ctx); err != nil {
		t.Fatalf("Failed to open source: %v", err)
	}
	t.Cleanup(func() {
		source.Close(context.Background())
	})
	return source, store, rec
}

func clipID(s *Source, parent ObjectID, path string) string {
	parent.Clip = "file://" + path
	return s.ObjectID(parent)
}

func objectIDs(entries []Entry) []string {
	result := make([]string, len(entries))
	for i, entry := range entries {
		result[i] = entry.ObjectID
	}
	return result
}

func equalIDs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected ids %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected id[%d] %q, got %q", i, want[i], got[i])
		}
	}
}

func checkRecord(t *testing.T, got data.Record, want data.Record) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("Expected record %v, got %v", want, got)
		return
	}
	for name, value := range want {
		if v, ok := got[name]; !ok || !v.Equal(value) {
			t.Errorf("Expected %s = %#v, got %#v", name, value, v)
		}
	}
}

func TestNewSourceValidation(t *testing.T) {
	if _, err := NewSource(nil); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("Expected ErrInvalid for nil indexer, got %v", err)
	}
	if _, err := NewSource(memory.NewMemoryBackend(), WithSourceID("a::b")); err == nil {
		t.Error("Expected error for source id with separator")
	}
	if _, err := NewSource(memory.NewMemoryBackend(), WithConcurrency(0)); err == nil {
		t.Error("Expected error for zero concurrency")
	}
}

func TestBrowseFixedContainers(t *testing.T) {
	s, _, _ := setupSource(t)
	ctx := t.Context()

	entries, err := s.Browse(ctx, "localtagfs::", nil)
	if err != nil {
		t.Fatalf("Browse root failed: %v", err)
	}
	equalIDs(t, objectIDs(entries), []string{"localtagfs::music", "localtagfs::videos"})

	entries, err = s.Browse(ctx, "localtagfs::music", &BrowseRequest{Keys: []string{"title"}, Offset: 1, Count: 2})
	if err != nil {
		t.Fatalf("Browse music failed: %v", err)
	}
	equalIDs(t, objectIDs(entries), []string{"localtagfs::music/albums", "localtagfs::music/artists"})
	checkRecord(t, entries[0].Metadata, data.Record{"title": data.StringValue("Albums")})
}

func TestBrowseClipFails(t *testing.T) {
	s, _, _ := setupSource(t)

	id := clipID(s, ObjectID{Category: CategorySongs}, "/music/a.mp3")
	if _, err := s.Browse(t.Context(), id, nil); !errors.Is(err, data.ErrInvalidObjectID) {
		t.Errorf("Expected ErrInvalidObjectID, got %v", err)
	}
	if _, err := s.Browse(t.Context(), "other::music", nil); !errors.Is(err, data.ErrInvalidObjectID) {
		t.Errorf("Expected ErrInvalidObjectID for foreign id, got %v", err)
	}
}

func TestBrowseArtists(t *testing.T) {
	s, _, _ := setupSource(t)

	entries, err := s.Browse(t.Context(), "localtagfs::music/artists", &BrowseRequest{Keys: []string{"title", "childcount-1"}})
	if err != nil {
		t.Fatalf("Browse artists failed: %v", err)
	}
	equalIDs(t, objectIDs(entries), []string{"localtagfs::music/artists/Madonna", "localtagfs::music/artists/Queen"})

	checkRecord(t, entries[0].Metadata, data.Record{
		"artist":       data.StringValue("Madonna"),
		"title":        data.StringValue("Madonna"),
		"childcount-1": data.IntValue(1),
	})
	checkRecord(t, entries[1].Metadata, data.Record{
		"artist":       data.StringValue("Queen"),
		"title":        data.StringValue("Queen"),
		"childcount-1": data.IntValue(1),
	})
}

func TestBrowseAlbumsOfArtist(t *testing.T) {
	s, _, _ := setupSource(t)

	entries, err := s.Browse(t.Context(), "localtagfs::music/artists/Madonna", &BrowseRequest{Keys: []string{"title", "artist"}})
	if err != nil {
		t.Fatalf("Browse albums failed: %v", err)
	}
	equalIDs(t, objectIDs(entries), []string{"localtagfs::music/artists/Madonna/Like%20a%20Prayer"})
	checkRecord(t, entries[0].Metadata, data.Record{
		"album":  data.StringValue("Like a Prayer"),
		"title":  data.StringValue("Like a Prayer"),
		"artist": data.StringValue("Madonna"),
	})
}

func TestBrowseGenres(t *testing.T) {
	s, _, _ := setupSource(t)

	entries, err := s.GetGenres(t.Context(), &BrowseRequest{Keys: []string{"title", "childcount-1", "childcount-2"}})
	if err != nil {
		t.Fatalf("GetGenres failed: %v", err)
	}
	equalIDs(t, objectIDs(entries), []string{"localtagfs::music/genres/Pop", "localtagfs::music/genres/Rock"})
	checkRecord(t, entries[0].Metadata, data.Record{
		"genre":        data.StringValue("Pop"),
		"title":        data.StringValue("Pop"),
		"childcount-1": data.IntValue(1),
		"childcount-2": data.IntValue(1),
	})
}

func TestBrowseSongsOfAlbum(t *testing.T) {
	s, _, _ := setupSource(t)

	parent := ObjectID{Category: CategoryGenres, Genre: "Pop", Artist: "Madonna", Album: "Like a Prayer"}
	entries, err := s.Browse(t.Context(), s.ObjectID(parent), &BrowseRequest{Keys: []string{"title", "track", "uri"}})
	if err != nil {
		t.Fatalf("Browse songs failed: %v", err)
	}

	equalIDs(t, objectIDs(entries), []string{
		clipID(s, parent, "/music/a.mp3"),
		clipID(s, parent, "/music/b.mp3"),
	})
	checkRecord(t, entries[0].Metadata, data.Record{
		"title": data.StringValue("Like a Prayer"),
		"track": data.IntValue(1),
		"uri":   data.StringValue("file:///music/a.mp3"),
	})
}

func TestGetSongsFilterAndSort(t *testing.T) {
	s, _, _ := setupSource(t)
	ctx := t.Context()
	songs := ObjectID{Category: CategorySongs}

	filter, err := indexer.ParseFilter("(artist=Queen)")
	if err != nil {
		t.Fatalf("ParseFilter failed: %v", err)
	}
	entries, err := s.GetSongs(ctx, "", "", "", &BrowseRequest{Filter: filter})
	if err != nil {
		t.Fatalf("GetSongs failed: %v", err)
	}
	equalIDs(t, objectIDs(entries), []string{clipID(s, songs, "/music/c.mp3"), clipID(s, songs, "/music/d.mp3")})

	entries, err = s.GetSongs(ctx, "", "", "", &BrowseRequest{Sort: []string{"-duration"}, Count: 2})
	if err != nil {
		t.Fatalf("GetSongs failed: %v", err)
	}
	equalIDs(t, objectIDs(entries), []string{clipID(s, songs, "/music/c.mp3"), clipID(s, songs, "/music/a.mp3")})

	for name, text := range map[string]string{
		"unknown key":  "(nosuch=1)",
		"no mapping":   "(album-art-uri=x)",
		"video only":   "(video-framerate>10)",
		"nested error": "(&(artist=Queen)(nosuch=1))",
	} {
		t.Run(name, func(tst *testing.T) {
			f, err := indexer.ParseFilter(text)
			if err != nil {
				tst.Fatalf("ParseFilter failed: %v", err)
			}
			_, err = s.GetSongs(tst.Context(), "", "", "", &BrowseRequest{Filter: f})
			if !errors.Is(err, data.ErrInvalidRequest) && !errors.Is(err, data.ErrUnsupportedMetadataKey) {
				tst.Errorf("Expected filter error, got %v", err)
			}
		})
	}
}

func TestGetPlaylistEntries(t *testing.T) {
	s, _, _ := setupSource(t)
	songs := ObjectID{Category: CategorySongs}

	entries, err := s.GetPlaylistEntries(t.Context(), []string{"/music/c.mp3", "/music/a.mp3", "/music/missing.mp3"}, &BrowseRequest{Keys: []string{"title"}})
	if err != nil {
		t.Fatalf("GetPlaylistEntries failed: %v", err)
	}
	equalIDs(t, objectIDs(entries), []string{clipID(s, songs, "/music/c.mp3"), clipID(s, songs, "/music/a.mp3")})

	entries, err = s.GetPlaylistEntries(t.Context(), nil, nil)
	if err != nil || len(entries) != 0 {
		t.Errorf("Expected no entries, got %v (%v)", entries, err)
	}
}

func TestGetMetadataContainers(t *testing.T) {
	s, _, _ := setupSource(t)
	ctx := t.Context()

	tests := map[string]struct {
		id   string
		keys []string
		want data.Record
	}{
		"root": {
			id:   "localtagfs::",
			keys: []string{"title", "duration", "childcount-1"},
			want: data.Record{
				"title":        data.StringValue("Root"),
				"duration":     data.IntValue(2170),
				"childcount-1": data.IntValue(2),
			},
		},
		"music childcount only": {
			id:   "localtagfs::music",
			keys: []string{"childcount-1"},
			want: data.Record{"childcount-1": data.IntValue(5)},
		},
		"songs": {
			id:   "localtagfs::music/songs",
			keys: []string{"title", "mime-type", "childcount-1"},
			want: data.Record{
				"title":        data.StringValue("Songs"),
				"mime-type":    data.StringValue(string(data.ContentTypeContainer)),
				"childcount-1": data.IntValue(4),
			},
		},
		"videos stats": {
			id:   "localtagfs::videos",
			keys: []string{"childcount-1"},
			want: data.Record{"childcount-1": data.IntValue(1)},
		},
		"artists container": {
			id:   "localtagfs::music/artists",
			keys: []string{"title", "childcount-1"},
			want: data.Record{
				"title":        data.StringValue("Artists"),
				"childcount-1": data.IntValue(2),
			},
		},
		"artist": {
			id:   "localtagfs::music/artists/Queen",
			keys: []string{"title", "duration", "childcount-1"},
			want: data.Record{
				"artist":       data.StringValue("Queen"),
				"title":        data.StringValue("Queen"),
				"duration":     data.IntValue(390),
				"childcount-1": data.IntValue(1),
			},
		},
		"album with artists": {
			id:   "localtagfs::music/albums/Like%20a%20Prayer",
			keys: []string{"title", "artist", "childcount-1"},
			want: data.Record{
				"album":        data.StringValue("Like a Prayer"),
				"title":        data.StringValue("Like a Prayer"),
				"artist":       data.StringValue("Madonna"),
				"childcount-1": data.IntValue(2),
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(tst *testing.T) {
			result, err := s.GetMetadata(ctx, []string{test.id}, test.keys)
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			checkRecord(tst, result[test.id], test.want)
		})
	}
}

func TestGetMetadataClips(t *testing.T) {
	s, _, _ := setupSource(t)
	songs := ObjectID{Category: CategorySongs}

	a := clipID(s, songs, "/music/a.mp3")
	d := clipID(s, songs, "/music/d.mp3")
	missing := clipID(s, songs, "/music/missing.mp3")
	video := clipID(s, ObjectID{Category: CategoryVideos}, "/video/e.avi")

	result, err := s.GetMetadata(t.Context(), []string{a, d, missing, video, "other::music"}, []string{"title", "duration", "mime-type"})
	if !errors.Is(err, data.ErrInvalidObjectID) {
		t.Errorf("Expected ErrInvalidObjectID for the foreign id, got %v", err)
	}

	checkRecord(t, result[a], data.Record{
		"title":     data.StringValue("Like a Prayer"),
		"duration":  data.IntValue(300),
		"mime-type": data.StringValue("audio/mpeg"),
	})
	checkRecord(t, result[d], data.Record{
		"title":     data.StringValue("Untitled"),
		"mime-type": data.StringValue("audio/mpeg"),
	})
	checkRecord(t, result[video], data.Record{
		"title":     data.StringValue("Holiday"),
		"duration":  data.IntValue(1200),
		"mime-type": data.StringValue("video/x-msvideo"),
	})

	if record, ok := result[missing]; !ok || record != nil {
		t.Errorf("Expected nil record for unknown clip, got %v (present %v)", record, ok)
	}
}

func TestGetMetadataRequestErrors(t *testing.T) {
	s, _, _ := setupSource(t)

	if _, err := s.GetMetadata(t.Context(), nil, []string{"title"}); !errors.Is(err, data.ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}

	result, err := s.GetMetadata(t.Context(), []string{"localtagfs::music"}, []string{"nosuch"})
	if err != nil || len(result) != 0 {
		t.Errorf("Expected empty result for unknown keys, got %v (%v)", result, err)
	}
}

func TestPlaylistDuration(t *testing.T) {
	calls := 0
	s, _, _ := setupSource(t, WithPlaylistDuration(func(ctx context.Context, objectID string) (int, error) {
		calls++
		return 321, nil
	}))
	ctx := t.Context()

	uri := "file:///music/list.m3u"
	id := s.ObjectID(ObjectID{Category: CategoryPlaylists, Clip: uri})

	result, err := s.GetMetadata(ctx, []string{id}, []string{"duration", "childcount-1"})
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	checkRecord(t, result[id], data.Record{
		"duration":     data.IntValue(321),
		"childcount-1": data.IntValue(3),
	})
	if calls != 1 {
		t.Fatalf("Expected one duration calculation, got %d", calls)
	}

	if err := s.SetPlaylistDuration(ctx, uri, 321); err != nil {
		t.Fatalf("SetPlaylistDuration failed: %v", err)
	}

	result, err = s.GetMetadata(ctx, []string{id}, []string{"duration"})
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	checkRecord(t, result[id], data.Record{"duration": data.IntValue(321)})
	if calls != 1 {
		t.Errorf("Expected stored duration to be used, got %d calculations", calls)
	}

	if err := s.SetPlaylistDuration(ctx, "/not/a/uri", 1); !errors.Is(err, data.ErrInvalidRequest) {
		t.Errorf("Expected ErrInvalidRequest, got %v", err)
	}
}

func TestSetMetadata(t *testing.T) {
	s, _, rec := setupSource(t)
	ctx := t.Context()

	id := clipID(s, ObjectID{Category: CategorySongs}, "/music/a.mp3")
	failed, err := s.SetMetadata(ctx, id, data.Record{
		"play-count":  data.IntValue(3),
		"last-played": data.LongValue(1700000000),
		"title":       data.StringValue("Renamed"),
	})
	if !errors.Is(err, data.ErrUnsupportedMetadataKey) {
		t.Errorf("Expected ErrUnsupportedMetadataKey, got %v", err)
	}
	if len(failed) != 1 || failed[0] != "title" {
		t.Errorf("Expected [title] to fail, got %v", failed)
	}

	result, err := s.GetMetadata(ctx, []string{id}, []string{"play-count", "last-played", "title"})
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	checkRecord(t, result[id], data.Record{
		"play-count":  data.StringValue("3"),
		"last-played": data.StringValue("2023-11-14T22:13:20Z"),
		"title":       data.StringValue("Like a Prayer"),
	})

	rec.mu.Lock()
	changed := append([]string(nil), rec.changed...)
	rec.mu.Unlock()
	equalIDs(t, changed, []string{id})
}

func TestSetMetadataRejects(t *testing.T) {
	s, _, _ := setupSource(t)
	ctx := t.Context()

	tests := map[string]struct {
		id     string
		values data.Record
		err    error
	}{
		"container": {
			id:     "localtagfs::music/songs",
			values: data.Record{"play-count": data.IntValue(1)},
			err:    data.ErrInvalidObjectID,
		},
		"playlist": {
			id:     s.ObjectID(ObjectID{Category: CategoryPlaylists, Clip: "file:///music/list.m3u"}),
			values: data.Record{"duration": data.IntValue(1)},
			err:    data.ErrInvalidObjectID,
		},
		"date needs epoch": {
			id:     clipID(s, ObjectID{Category: CategorySongs}, "/music/a.mp3"),
			values: data.Record{"last-played": data.StringValue("yesterday")},
			err:    data.ErrUnsupportedMetadataKey,
		},
		"unknown clip": {
			id:     clipID(s, ObjectID{Category: CategorySongs}, "/music/missing.mp3"),
			values: data.Record{"play-count": data.IntValue(1)},
			err:    data.ErrNotExist,
		},
		"empty": {
			id:     clipID(s, ObjectID{Category: CategorySongs}, "/music/a.mp3"),
			values: data.Record{},
			err:    data.ErrInvalidRequest,
		},
	}

	for name, test := range tests {
		t.Run(name, func(tst *testing.T) {
			failed, err := s.SetMetadata(ctx, test.id, test.values)
			if !errors.Is(err, test.err) {
				tst.Errorf("Expected %v, got %v", test.err, err)
			}
			if len(failed) != len(test.values) {
				tst.Errorf("Expected every key to fail, got %v", failed)
			}
		})
	}
}

func TestContainerChanged(t *testing.T) {
	s, store, rec := setupSource(t)

	err := store.Put(t.Context(), &indexer.Item{Path: "/video/f.avi", Service: data.ServiceVideo, Values: map[string]string{}})
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	rec.mu.Lock()
	containers := append([]string(nil), rec.containers...)
	rec.mu.Unlock()
	equalIDs(t, containers, []string{s.ObjectID(ObjectID{Category: CategoryVideos})})
}

func TestComputeProgress(t *testing.T) {
	tests := map[string]struct {
		done, remaining int
		elapsed         time.Duration
		percent, eta    int
	}{
		"nothing":      {0, 0, 0, 0, -1},
		"not started":  {0, 10, time.Second, 0, -1},
		"half":         {5, 5, 10 * time.Second, 50, 10},
		"almost":       {999, 1, 999 * time.Second, 99, 1},
		"all but zero": {10, 0, 5 * time.Second, 99, 0},
	}

	for name, test := range tests {
		t.Run(name, func(tst *testing.T) {
			percent, eta := computeProgress(test.done, test.remaining, test.elapsed)
			if percent != test.percent || eta != test.eta {
				tst.Errorf("Expected (%d, %d), got (%d, %d)", test.percent, test.eta, percent, eta)
			}
		})
	}
}

func TestIndexProgressOnlyOnChange(t *testing.T) {
	s, _, rec := setupSource(t)

	s.IndexProgress(true, 5, 5, 10*time.Second)
	s.IndexProgress(true, 5, 5, 10*time.Second)
	s.IndexProgress(false, 10, 0, 20*time.Second)
	s.IndexProgress(true, 0, 10, 0)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	want := [][4]int{{50, 5, 5, 10}, {100, 10, 0, 0}, {0, 0, 10, -1}}
	if len(rec.updates) != len(want) {
		t.Fatalf("Expected updates %v, got %v", want, rec.updates)
	}
	for i := range want {
		if rec.updates[i] != want[i] {
			t.Errorf("Expected update %v, got %v", want[i], rec.updates[i])
		}
	}
}
