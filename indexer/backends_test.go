package indexer_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/memory"
	"github.com/mwantia/mediameta/indexer/sqlite"
)

type TestStoreFactory func(tst *testing.T) (indexer.Store, error)

func GetTestStoreFactories() map[string]TestStoreFactory {
	return map[string]TestStoreFactory{
		"memory": func(tst *testing.T) (indexer.Store, error) {
			return memory.NewMemoryBackend(), nil
		},
		"sqlite-memory": func(tst *testing.T) (indexer.Store, error) {
			return sqlite.NewSQLiteBackend(":memory:")
		},
		"sqlite-file": func(tst *testing.T) (indexer.Store, error) {
			return sqlite.NewSQLiteBackend(filepath.Join(tst.TempDir(), "index.db"))
		},
	}
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
	}
}

// setupStore opens a store from factory and fills it with testItems.
func setupStore(t *testing.T, factory TestStoreFactory) indexer.Store {
	t.Helper()
	ctx := t.Context()

	store, err := factory(t)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Open(ctx); err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() {
		store.Close(context.Background())
	})

	for _, item := range testItems() {
		if err := store.Put(ctx, item); err != nil {
			t.Fatalf("Failed to put %s: %v", item.Path, err)
		}
	}
	return store
}

func paths(rows []data.Row) []string {
	result := make([]string, len(rows))
	for i, row := range rows {
		result[i] = row[0]
	}
	return result
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TestAllStores_Query verifies filtering, sorting and paging across all backend implementations.
func TestAllStores_Query(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store := setupStore(tst, factory)

			tests := []struct {
				name  string
				query *indexer.Query
				want  []string
			}{
				{
					name:  "all music ordered by path",
					query: &indexer.Query{Service: data.ServiceMusic},
					want:  []string{"/music/a.mp3", "/music/b.mp3", "/music/c.mp3", "/music/d.mp3"},
				},
				{
					name:  "equals",
					query: &indexer.Query{Service: data.ServiceMusic, Filter: indexer.Equals("Audio:Artist", "Queen")},
					want:  []string{"/music/c.mp3", "/music/d.mp3"},
				},
				{
					name:  "contains ignores case",
					query: &indexer.Query{Service: data.ServiceMusic, Filter: indexer.Contains("Audio:Title", "PRAYER")},
					want:  []string{"/music/a.mp3"},
				},
				{
					name:  "prefix",
					query: &indexer.Query{Service: data.ServiceMusic, Filter: indexer.Prefix("Audio:Title", "In")},
					want:  []string{"/music/c.mp3"},
				},
				{
					name:  "not treats missing values as no match",
					query: &indexer.Query{Service: data.ServiceMusic, Filter: indexer.Not(indexer.Equals("Audio:Genre", "Pop"))},
					want:  []string{"/music/c.mp3", "/music/d.mp3"},
				},
				{
					name:  "exists",
					query: &indexer.Query{Service: data.ServiceMusic, Filter: indexer.Exists("Audio:Album")},
					want:  []string{"/music/a.mp3", "/music/b.mp3", "/music/c.mp3"},
				},
				{
					name: "numeric greater",
					query: &indexer.Query{Service: data.ServiceMusic, Filter: &indexer.Filter{
						Op: indexer.FilterGreater, Key: "Audio:Duration", Value: "290", Numeric: true,
					}},
					want: []string{"/music/a.mp3", "/music/c.mp3"},
				},
				{
					name:  "in",
					query: &indexer.Query{Service: data.ServiceMusic, Filter: indexer.In("Audio:Genre", "Rock", "Jazz")},
					want:  []string{"/music/c.mp3"},
				},
				{
					name: "numeric sort descending",
					query: &indexer.Query{Service: data.ServiceMusic, Filter: indexer.Exists("Audio:TrackNo"), Sort: []indexer.SortField{
						{Key: "Audio:TrackNo", Order: indexer.SortDesc, Numeric: true},
					}},
					want: []string{"/music/c.mp3", "/music/b.mp3", "/music/a.mp3"},
				},
				{
					name: "text sort ascending",
					query: &indexer.Query{Service: data.ServiceMusic, Filter: indexer.Exists("Audio:TrackNo"), Sort: []indexer.SortField{
						{Key: "Audio:TrackNo", Order: indexer.SortAsc},
					}},
					want: []string{"/music/a.mp3", "/music/c.mp3", "/music/b.mp3"},
				},
				{
					name:  "paging",
					query: &indexer.Query{Service: data.ServiceMusic, Offset: 1, Count: 2},
					want:  []string{"/music/b.mp3", "/music/c.mp3"},
				},
				{
					name:  "offset only",
					query: &indexer.Query{Service: data.ServiceMusic, Offset: 3},
					want:  []string{"/music/d.mp3"},
				},
				{
					name:  "other service",
					query: &indexer.Query{Service: data.ServiceVideo},
					want:  []string{"/video/e.avi"},
				},
			}

			for _, tc := range tests {
				rows, err := store.Query(ctx, tc.query)
				if err != nil {
					tst.Fatalf("%s: query failed: %v", tc.name, err)
				}
				if got := paths(rows); !equalStrings(got, tc.want) {
					tst.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
				}
			}
		})
	}
}

// TestAllStores_QueryColumns verifies the row layout [path, service, values...].
func TestAllStores_QueryColumns(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store := setupStore(tst, factory)

			rows, err := store.Query(ctx, &indexer.Query{
				Service: data.ServiceMusic,
				Keys:    []string{"Audio:Title", "Audio:Album", indexer.KeyName},
				Filter:  indexer.Equals("Audio:Title", "Untitled"),
			})
			if err != nil {
				tst.Fatalf("Query failed: %v", err)
			}
			if len(rows) != 1 {
				tst.Fatalf("Expected 1 row, got %d", len(rows))
			}

			want := data.Row{"/music/d.mp3", "Music", "Untitled", "", "d.mp3"}
			if !equalStrings(rows[0], want) {
				tst.Errorf("Expected %q, got %q", want, rows[0])
			}
		})
	}
}

// TestAllStores_UniqueValues verifies grouping and the SUM, COUNT and CONCAT aggregates.
func TestAllStores_UniqueValues(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store := setupStore(tst, factory)

			rows, err := store.UniqueValues(ctx, &indexer.UniqueQuery{
				Service: data.ServiceMusic,
				Key:     "Audio:Artist",
				Aggregates: []indexer.Aggregate{
					{Func: indexer.AggregateCount, Key: indexer.CountAll},
					{Func: indexer.AggregateSum, Key: "Audio:Duration"},
					{Func: indexer.AggregateCount, Key: "Audio:Album"},
					{Func: indexer.AggregateConcat, Key: "Audio:Genre"},
				},
			})
			if err != nil {
				tst.Fatalf("UniqueValues failed: %v", err)
			}

			want := []data.Row{
				{"Madonna", "2", "580", "1", "Pop"},
				{"Queen", "2", "390", "1", "Rock"},
			}
			if len(rows) != len(want) {
				tst.Fatalf("Expected %d groups, got %d: %v", len(want), len(rows), rows)
			}
			for i := range want {
				if !equalStrings(rows[i], want[i]) {
					tst.Errorf("Group %d: expected %q, got %q", i, want[i], rows[i])
				}
			}
		})
	}
}

// TestAllStores_UniqueValuesFiltered verifies that empty values form no group and filters apply first.
func TestAllStores_UniqueValuesFiltered(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store := setupStore(tst, factory)

			rows, err := store.UniqueValues(ctx, &indexer.UniqueQuery{
				Service:    data.ServiceMusic,
				Key:        "Audio:Album",
				Filter:     indexer.Equals("Audio:Artist", "Queen"),
				Aggregates: []indexer.Aggregate{{Func: indexer.AggregateConcat, Key: "Audio:Title"}},
			})
			if err != nil {
				tst.Fatalf("UniqueValues failed: %v", err)
			}
			if len(rows) != 1 || !equalStrings(rows[0], data.Row{"Innuendo", "Innuendo"}) {
				tst.Errorf("Expected one Innuendo group, got %v", rows)
			}

			rows, err = store.UniqueValues(ctx, &indexer.UniqueQuery{
				Service: data.ServiceMusic,
				Key:     "Audio:Album",
				Offset:  1,
				Count:   1,
			})
			if err != nil {
				tst.Fatalf("UniqueValues failed: %v", err)
			}
			if len(rows) != 1 || rows[0][0] != "Like a Prayer" {
				tst.Errorf("Expected the second album group, got %v", rows)
			}
		})
	}
}

// TestAllStores_GetMetadata verifies row order and nil rows for unknown paths.
func TestAllStores_GetMetadata(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store := setupStore(tst, factory)

			rows, err := store.GetMetadata(ctx,
				[]string{"/music/c.mp3", "/missing.mp3", "/music/a.mp3"},
				[]string{"Audio:Title", "Audio:Genre", indexer.KeyDir})
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			if len(rows) != 3 {
				tst.Fatalf("Expected 3 rows, got %d", len(rows))
			}
			if !equalStrings(rows[0], []string{"Innuendo", "Rock", "/music"}) {
				tst.Errorf("Unexpected first row %q", rows[0])
			}
			if rows[1] != nil {
				tst.Errorf("Expected nil row for missing path, got %q", rows[1])
			}
			if !equalStrings(rows[2], []string{"Like a Prayer", "Pop", "/music"}) {
				tst.Errorf("Unexpected third row %q", rows[2])
			}
		})
	}
}

// TestAllStores_SetMetadata verifies writes, notifications and the not-exist error.
func TestAllStores_SetMetadata(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store := setupStore(tst, factory)

			var mu sync.Mutex
			var events []indexer.ChangeEvent
			unsubscribe := store.Subscribe(func(event indexer.ChangeEvent) {
				mu.Lock()
				defer mu.Unlock()
				events = append(events, event)
			})
			defer unsubscribe()

			err := store.SetMetadata(ctx, "/music/a.mp3",
				[]string{"Audio:PlayCount", "Audio:LastPlay"},
				[]string{"4", "2024-01-02T03:04:05Z"})
			if err != nil {
				tst.Fatalf("SetMetadata failed: %v", err)
			}

			rows, err := store.GetMetadata(ctx, []string{"/music/a.mp3"}, []string{"Audio:PlayCount", "Audio:LastPlay", "Audio:Title"})
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			if !equalStrings(rows[0], []string{"4", "2024-01-02T03:04:05Z", "Like a Prayer"}) {
				tst.Errorf("Unexpected values after write: %q", rows[0])
			}

			if err := store.SetMetadata(ctx, "/missing.mp3", []string{"Audio:PlayCount"}, []string{"1"}); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist, got %v", err)
			}
			if err := store.SetMetadata(ctx, "/music/a.mp3", []string{"Audio:PlayCount"}, nil); !errors.Is(err, data.ErrInvalid) {
				tst.Errorf("Expected ErrInvalid for mismatched values, got %v", err)
			}

			mu.Lock()
			defer mu.Unlock()
			if len(events) != 1 {
				tst.Fatalf("Expected 1 event, got %d", len(events))
			}
			if events[0].Kind != indexer.ChangeUpdated || events[0].Path != "/music/a.mp3" || events[0].Service != data.ServiceMusic {
				tst.Errorf("Unexpected event %+v", events[0])
			}
		})
	}
}

// TestAllStores_PutDelete verifies replacement, the preserved added date and deletion.
func TestAllStores_PutDelete(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store := setupStore(tst, factory)

			before, err := store.GetMetadata(ctx, []string{"/music/b.mp3"}, []string{indexer.KeyAdded})
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}

			var kinds []indexer.ChangeKind
			unsubscribe := store.Subscribe(func(event indexer.ChangeEvent) {
				kinds = append(kinds, event.Kind)
			})
			defer unsubscribe()

			err = store.Put(ctx, &indexer.Item{Path: "/music/b.mp3", Service: data.ServiceMusic, Values: map[string]string{
				"Audio:Title": "Cherish",
			}})
			if err != nil {
				tst.Fatalf("Put failed: %v", err)
			}

			rows, err := store.GetMetadata(ctx, []string{"/music/b.mp3"}, []string{"Audio:Title", "Audio:Artist", indexer.KeyAdded})
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			if rows[0][0] != "Cherish" || rows[0][1] != "" {
				tst.Errorf("Expected replaced values, got %q", rows[0])
			}
			if rows[0][2] != before[0][0] {
				tst.Errorf("Expected added date %q to survive, got %q", before[0][0], rows[0][2])
			}

			if err := store.Delete(ctx, "/music/b.mp3"); err != nil {
				tst.Fatalf("Delete failed: %v", err)
			}
			if err := store.Delete(ctx, "/music/b.mp3"); !errors.Is(err, data.ErrNotExist) {
				tst.Errorf("Expected ErrNotExist on second delete, got %v", err)
			}

			rows, err = store.GetMetadata(ctx, []string{"/music/b.mp3"}, []string{"Audio:Title"})
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			if rows[0] != nil {
				tst.Errorf("Expected deleted item to be gone, got %q", rows[0])
			}

			if err := store.Put(ctx, &indexer.Item{Path: "relative.mp3"}); !errors.Is(err, data.ErrInvalid) {
				tst.Errorf("Expected ErrInvalid for relative path, got %v", err)
			}

			want := []indexer.ChangeKind{indexer.ChangeUpdated, indexer.ChangeRemoved}
			if len(kinds) != len(want) || kinds[0] != want[0] || kinds[1] != want[1] {
				tst.Errorf("Expected events %v, got %v", want, kinds)
			}
		})
	}
}

// TestAllStores_PutKeepsWrittenValues verifies that re-indexing an item keeps values written
// through SetMetadata unless the new item carries them.
func TestAllStores_PutKeepsWrittenValues(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store := setupStore(tst, factory)

			err := store.SetMetadata(ctx, "/music/b.mp3",
				[]string{"Audio:PlayCount", "Audio:LastPlay"},
				[]string{"7", "2024-05-01T10:00:00Z"})
			if err != nil {
				tst.Fatalf("SetMetadata failed: %v", err)
			}

			err = store.Put(ctx, &indexer.Item{Path: "/music/b.mp3", Service: data.ServiceMusic, Values: map[string]string{
				"Audio:Title":    "Cherish",
				"Audio:LastPlay": "2025-01-01T00:00:00Z",
			}})
			if err != nil {
				tst.Fatalf("Put failed: %v", err)
			}

			rows, err := store.GetMetadata(ctx, []string{"/music/b.mp3"}, []string{"Audio:Title", "Audio:PlayCount", "Audio:LastPlay"})
			if err != nil {
				tst.Fatalf("GetMetadata failed: %v", err)
			}
			want := []string{"Cherish", "7", "2025-01-01T00:00:00Z"}
			for i, value := range want {
				if rows[0][i] != value {
					tst.Errorf("Column %d = %q, expected %q", i, rows[0][i], value)
				}
			}
		})
	}
}

// TestAllStores_Stats verifies the per service item counts.
func TestAllStores_Stats(t *testing.T) {
	for name, factory := range GetTestStoreFactories() {
		t.Run(name, func(tst *testing.T) {
			ctx := tst.Context()
			store := setupStore(tst, factory)

			stats, err := store.Stats(ctx)
			if err != nil {
				tst.Fatalf("Stats failed: %v", err)
			}
			if stats[data.ServiceMusic] != 4 || stats[data.ServiceVideo] != 1 || stats[data.ServicePlaylist] != 0 {
				tst.Errorf("Unexpected stats %v", stats)
			}
		})
	}
}
