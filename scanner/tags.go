package scanner

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// readTags returns the native audio keys found in the tags of path.
func readTags(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	metadata, err := tag.ReadFrom(f)
	if err != nil {
		return nil, err
	}

	values := make(map[string]string)
	put := func(key, value string) {
		if value = strings.TrimSpace(value); value != "" {
			values[key] = value
		}
	}

	put("Audio:Title", metadata.Title())
	put("Audio:Album", metadata.Album())
	put("Audio:Genre", metadata.Genre())

	artist := metadata.Artist()
	if strings.TrimSpace(artist) == "" {
		artist = metadata.AlbumArtist()
	}
	put("Audio:Artist", artist)

	if track, _ := metadata.Track(); track > 0 {
		values["Audio:TrackNo"] = fmt.Sprintf("%d", track)
	}
	if year := metadata.Year(); year > 0 {
		values["Audio:ReleaseDate"] = fmt.Sprintf("%04d-01-01T00:00:00Z", year)
	}
	return values, nil
}

// countEntries counts the tracks referenced by a playlist file without resolving them.
func countEntries(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	ext := strings.ToLower(filepath.Ext(path))
	count := 0
	lines := bufio.NewScanner(f)
	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		switch ext {
		case ".pls":
			if strings.HasPrefix(strings.ToLower(line), "file") && strings.Contains(line, "=") {
				count++
			}
		case ".xspf":
			count += strings.Count(line, "<location>")
		default:
			if line != "" && !strings.HasPrefix(line, "#") {
				count++
			}
		}
	}
	return count, lines.Err()
}
