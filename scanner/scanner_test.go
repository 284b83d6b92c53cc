package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mwantia/mediameta/data"
	"github.com/mwantia/mediameta/indexer"
	"github.com/mwantia/mediameta/indexer/memory"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func setupTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "music", "song.mp3"), "not really an mp3")
	writeFile(t, filepath.Join(root, "video", "clip.avi"), "RIFF")
	writeFile(t, filepath.Join(root, "music", "list.m3u"), "#EXTM3U\n#EXTINF:1,a\nsong.mp3\n\nother.mp3\n")
	writeFile(t, filepath.Join(root, "notes.txt"), "ignored")
	writeFile(t, filepath.Join(root, ".cache", "hidden.mp3"), "ignored")
	return root
}

func TestScan(t *testing.T) {
	ctx := t.Context()
	root := setupTree(t)
	store := memory.NewMemoryBackend()

	var reports []Progress
	s, err := New(store, []string{root}, WithProgress(func(p Progress) {
		reports = append(reports, p)
	}))
	if err != nil {
		t.Fatalf("Failed to create scanner: %v", err)
	}

	if err := s.Scan(ctx); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[data.ServiceMusic] != 1 || stats[data.ServiceVideo] != 1 || stats[data.ServicePlaylist] != 1 {
		t.Errorf("Unexpected stats %v", stats)
	}

	rows, err := store.GetMetadata(ctx, []string{filepath.Join(root, "music", "list.m3u")}, []string{"Playlist:Songs", "Playlist:ValidDuration", "File:Mime"})
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if rows[0] == nil || rows[0][0] != "2" || rows[0][1] != "0" || rows[0][2] != string(data.ContentTypePlaylistM3U) {
		t.Errorf("Unexpected playlist row %v", rows[0])
	}

	if len(reports) != 5 {
		t.Fatalf("Expected 5 progress reports, got %d", len(reports))
	}
	if first := reports[0]; !first.Indexing || first.Done != 0 || first.Remaining != 3 {
		t.Errorf("Unexpected first report %+v", first)
	}
	if last := reports[len(reports)-1]; last.Indexing || last.Done != 3 || last.Remaining != 0 {
		t.Errorf("Unexpected last report %+v", last)
	}
}

func TestRescanKeepsWrittenValues(t *testing.T) {
	ctx := t.Context()
	root := setupTree(t)
	store := memory.NewMemoryBackend()

	s, err := New(store, []string{root})
	if err != nil {
		t.Fatalf("Failed to create scanner: %v", err)
	}
	if err := s.Scan(ctx); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	song := filepath.Join(root, "music", "song.mp3")
	list := filepath.Join(root, "music", "list.m3u")
	if err := store.SetMetadata(ctx, song, []string{"Audio:PlayCount"}, []string{"7"}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}
	if err := store.SetMetadata(ctx, list, []string{"Playlist:Duration", "Playlist:ValidDuration"}, []string{"321", "1"}); err != nil {
		t.Fatalf("SetMetadata failed: %v", err)
	}

	check := func(t *testing.T, wantList []string) {
		t.Helper()
		rows, err := store.GetMetadata(ctx, []string{song, list}, []string{"Audio:PlayCount", "Playlist:Duration", "Playlist:ValidDuration"})
		if err != nil {
			t.Fatalf("GetMetadata failed: %v", err)
		}
		if got := rows[0][0]; got != "7" {
			t.Errorf("play count = %q, expected 7", got)
		}
		if rows[1][1] != wantList[0] || rows[1][2] != wantList[1] {
			t.Errorf("playlist duration = %q, expected %q", rows[1][1:], wantList)
		}
	}

	t.Run("unchanged files", func(tst *testing.T) {
		if err := s.Scan(tst.Context()); err != nil {
			tst.Fatalf("Scan failed: %v", err)
		}
		check(tst, []string{"321", "1"})
	})

	t.Run("changed files", func(tst *testing.T) {
		writeFile(tst, song, "a longer body than before")
		writeFile(tst, list, "#EXTM3U\nsong.mp3\n")
		later := time.Now().Add(time.Hour)
		for _, path := range []string{song, list} {
			if err := os.Chtimes(path, later, later); err != nil {
				tst.Fatalf("Failed to touch %s: %v", path, err)
			}
		}

		if err := s.Scan(tst.Context()); err != nil {
			tst.Fatalf("Scan failed: %v", err)
		}
		check(tst, []string{"0", "0"})
	})
}

func TestScanPrune(t *testing.T) {
	ctx := t.Context()
	root := setupTree(t)
	store := memory.NewMemoryBackend()

	gone := filepath.Join(root, "music", "gone.mp3")
	outside := "/elsewhere/kept.mp3"
	for _, path := range []string{gone, outside} {
		if err := store.Put(ctx, &indexer.Item{Path: path, Service: data.ServiceMusic}); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	s, err := New(store, []string{root}, WithPrune(true))
	if err != nil {
		t.Fatalf("Failed to create scanner: %v", err)
	}
	if err := s.Scan(ctx); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	rows, err := store.GetMetadata(ctx, []string{gone, outside}, []string{indexer.KeyFullPath})
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if rows[0] != nil {
		t.Errorf("Expected %s to be pruned", gone)
	}
	if rows[1] == nil {
		t.Errorf("Expected %s to be kept", outside)
	}
}

func TestScanCancelled(t *testing.T) {
	root := setupTree(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	s, err := New(memory.NewMemoryBackend(), []string{root})
	if err != nil {
		t.Fatalf("Failed to create scanner: %v", err)
	}
	if err := s.Scan(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(nil, []string{"/"}); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("Expected ErrInvalid without writer, got %v", err)
	}
	if _, err := New(memory.NewMemoryBackend(), []string{" "}); !errors.Is(err, data.ErrInvalid) {
		t.Errorf("Expected ErrInvalid without roots, got %v", err)
	}
}

func TestCountEntries(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]struct {
		content string
		want    int
	}{
		"a.m3u":  {"#EXTM3U\na.mp3\n# comment\nb.mp3\n", 2},
		"b.pls":  {"[playlist]\nFile1=a.mp3\nTitle1=A\nFile2=b.mp3\nNumberOfEntries=2\n", 2},
		"c.xspf": {"<trackList><track><location>a.mp3</location></track>\n<track><location>b</location></track></trackList>", 2},
	}

	for name, test := range tests {
		t.Run(name, func(tst *testing.T) {
			path := filepath.Join(dir, name)
			writeFile(tst, path, test.content)

			got, err := countEntries(path)
			if err != nil {
				tst.Fatalf("countEntries failed: %v", err)
			}
			if got != test.want {
				tst.Errorf("Expected %d entries, got %d", test.want, got)
			}
		})
	}
}
