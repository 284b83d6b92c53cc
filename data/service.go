package data

import (
	"fmt"
	"strings"
)

// Service is an indexer service: the kind of content an item belongs to.
type Service int

const (
	ServiceMusic Service = iota
	ServiceVideo
	ServicePlaylist
)

var Services = []Service{ServiceMusic, ServiceVideo, ServicePlaylist}

func (s Service) String() string {
	switch s {
	case ServiceMusic:
		return "Music"
	case ServiceVideo:
		return "Videos"
	case ServicePlaylist:
		return "Playlists"
	default:
		return fmt.Sprintf("Service(%d)", int(s))
	}
}

func ParseService(s string) (Service, error) {
	switch strings.ToLower(s) {
	case "music", "audio":
		return ServiceMusic, nil
	case "videos", "video":
		return ServiceVideo, nil
	case "playlists", "playlist":
		return ServicePlaylist, nil
	default:
		return ServiceMusic, fmt.Errorf("%w: unknown service %q", ErrInvalid, s)
	}
}

// Row is one indexer result row. A nil Row stands for an item the indexer does not know.
type Row []string

// Cell returns the cell at column i; ok is false when the row or the cell does not exist.
func (r Row) Cell(i int) (string, bool) {
	if r == nil || i < 0 || i >= len(r) {
		return "", false
	}
	return r[i], true
}
