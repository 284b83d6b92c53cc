package mediameta

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mwantia/mediameta/cache"
	"github.com/mwantia/mediameta/data"
)

// DefaultSourceID prefixes every object id a source hands out unless configured otherwise.
const DefaultSourceID = "localtagfs"

const objectIDSeparator = "::"

// Category is the kind of node an object id points at.
type Category int

const (
	CategoryRoot Category = iota
	CategoryVideos
	CategoryMusic
	CategorySongs
	CategoryAlbums
	CategoryArtists
	CategoryGenres
	CategoryPlaylists
)

var categoryNames = map[Category]string{
	CategoryRoot:      "",
	CategoryVideos:    "videos",
	CategoryMusic:     "music",
	CategorySongs:     "music/songs",
	CategoryAlbums:    "music/albums",
	CategoryArtists:   "music/artists",
	CategoryGenres:    "music/genres",
	CategoryPlaylists: "music/playlists",
}

// Title returns the fixed title of the category container.
func (c Category) Title() string {
	switch c {
	case CategoryRoot:
		return "Root"
	case CategoryVideos:
		return "Videos"
	case CategoryMusic:
		return "Music"
	case CategorySongs:
		return "Songs"
	case CategoryAlbums:
		return "Albums"
	case CategoryArtists:
		return "Artists"
	case CategoryGenres:
		return "Genres"
	case CategoryPlaylists:
		return "Playlists"
	default:
		return ""
	}
}

func (c Category) String() string {
	if c == CategoryRoot {
		return "root"
	}
	return categoryNames[c]
}

// Service returns the indexer service holding the clips of the category.
func (c Category) Service() data.Service {
	switch c {
	case CategoryVideos:
		return data.ServiceVideo
	case CategoryPlaylists:
		return data.ServicePlaylist
	default:
		return data.ServiceMusic
	}
}

// ObjectID is a parsed object id. Empty fields are absent; Clip holds a file URI.
type ObjectID struct {
	Category Category
	Genre    string
	Artist   string
	Album    string
	Clip     string
}

// IsClip reports whether the id points at a single file.
func (o ObjectID) IsClip() bool {
	return o.Clip != ""
}

// Path returns the file path of a clip.
func (o ObjectID) Path() (string, bool) {
	if o.Clip == "" {
		return "", false
	}
	return cache.PathFromURI(o.Clip)
}

// Format renders the id for sourceID.
func (o ObjectID) Format(sourceID string) string {
	segments := []string{}
	if name := categoryNames[o.Category]; name != "" {
		segments = append(segments, name)
	}

	switch o.Category {
	case CategoryGenres:
		segments = appendEscaped(segments, o.Genre, o.Artist, o.Album)
	case CategoryArtists:
		segments = appendEscaped(segments, o.Artist, o.Album)
	case CategoryAlbums:
		segments = appendEscaped(segments, o.Album)
	}
	if o.Clip != "" {
		segments = append(segments, url.PathEscape(o.Clip))
	}

	return sourceID + objectIDSeparator + strings.Join(segments, "/")
}

// appendEscaped appends the leading non-empty values, stopping at the first empty one.
func appendEscaped(segments []string, values ...string) []string {
	for _, v := range values {
		if v == "" {
			break
		}
		segments = append(segments, url.PathEscape(v))
	}
	return segments
}

// ParseObjectID splits an object id issued by the source sourceID.
func ParseObjectID(sourceID, id string) (ObjectID, error) {
	prefix := sourceID + objectIDSeparator
	if !strings.HasPrefix(id, prefix) {
		return ObjectID{}, fmt.Errorf("%w: %q", data.ErrInvalidObjectID, id)
	}

	rest := strings.TrimSuffix(strings.TrimPrefix(id, prefix), "/")
	if rest == "" {
		return ObjectID{Category: CategoryRoot}, nil
	}

	raw := strings.Split(rest, "/")
	segments := make([]string, len(raw))
	for i, segment := range raw {
		value, err := url.PathUnescape(segment)
		if err != nil || value == "" {
			return ObjectID{}, fmt.Errorf("%w: %q", data.ErrInvalidObjectID, id)
		}
		segments[i] = value
	}

	invalid := fmt.Errorf("%w: %q", data.ErrInvalidObjectID, id)
	var o ObjectID
	switch segments[0] {
	case "videos":
		o.Category = CategoryVideos
		if len(segments) > 2 {
			return ObjectID{}, invalid
		}
		if len(segments) == 2 {
			o.Clip = segments[1]
		}
		return o, nil
	case "music":
	default:
		return ObjectID{}, invalid
	}

	if len(segments) == 1 {
		return ObjectID{Category: CategoryMusic}, nil
	}

	// Category values below the node, in order. A clip may follow them.
	var fields []*string
	switch segments[1] {
	case "songs":
		o.Category = CategorySongs
	case "playlists":
		o.Category = CategoryPlaylists
	case "albums":
		o.Category = CategoryAlbums
		fields = []*string{&o.Album}
	case "artists":
		o.Category = CategoryArtists
		fields = []*string{&o.Artist, &o.Album}
	case "genres":
		o.Category = CategoryGenres
		fields = []*string{&o.Genre, &o.Artist, &o.Album}
	default:
		return ObjectID{}, invalid
	}

	tail := segments[2:]
	if len(tail) > len(fields)+1 {
		return ObjectID{}, invalid
	}
	for i, value := range tail {
		if i < len(fields) {
			*fields[i] = value
			continue
		}
		o.Clip = value
	}
	return o, nil
}
