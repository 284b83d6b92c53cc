package indexer

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/mwantia/mediameta/data"
)

// Native keys every backend maintains from the item path.
const (
	KeyFullPath = "File:NameDelimited"
	KeyDir      = "File:Path"
	KeyName     = "File:Name"
	KeyMime     = "File:Mime"
	KeyAdded    = "File:Added"
	KeyModified = "File:Modified"
)

// KeptKeys are the native keys a re-indexed item takes over from its previous version when it
// does not carry them itself. They hold values written through SetMetadata and the stored
// playlist duration.
var KeptKeys = []string{
	"Audio:PlayCount",
	"Audio:LastPlay",
	"Video:LastPlayedFrame",
	"Video:PausePosition",
	"Playlist:Duration",
	"Playlist:ValidDuration",
}

// Item is one indexed file and its native metadata.
type Item struct {
	ID      string            `json:"id"`
	Path    string            `json:"path"`
	Service data.Service      `json:"service"`
	Values  map[string]string `json:"values"`
}

func (it *Item) Value(key string) string {
	if it == nil {
		return ""
	}
	return it.Values[key]
}

func (it *Item) Validate() error {
	if it == nil || it.Path == "" {
		return fmt.Errorf("%w: item without path", data.ErrInvalid)
	}
	if !filepath.IsAbs(it.Path) {
		return fmt.Errorf("%w: item path %q is not absolute", data.ErrInvalid, it.Path)
	}
	return nil
}

// Normalize fills the file keys that derive from the path. Dates are unix seconds.
func (it *Item) Normalize(now time.Time) {
	if it.Values == nil {
		it.Values = make(map[string]string)
	}

	it.Path = filepath.Clean(it.Path)
	it.Values[KeyFullPath] = it.Path
	it.Values[KeyDir] = filepath.Dir(it.Path)
	it.Values[KeyName] = filepath.Base(it.Path)

	if it.Values[KeyMime] == "" {
		it.Values[KeyMime] = string(data.GetMIMEType(it.Path))
	}
	if it.Values[KeyAdded] == "" {
		it.Values[KeyAdded] = strconv.FormatInt(now.Unix(), 10)
	}
	if it.Values[KeyModified] == "" {
		it.Values[KeyModified] = it.Values[KeyAdded]
	}
}

// Inherit takes File:Added and the unset KeptKeys over from the previous version of the item.
// previous returns the stored value of a native key, "" when there is none.
func (it *Item) Inherit(previous func(key string) string) {
	if it.Values == nil {
		it.Values = make(map[string]string)
	}
	if added := previous(KeyAdded); added != "" {
		it.Values[KeyAdded] = added
	}
	for _, key := range KeptKeys {
		if _, set := it.Values[key]; set {
			continue
		}
		if value := previous(key); value != "" {
			it.Values[key] = value
		}
	}
}

// Clone returns a deep copy.
func (it *Item) Clone() *Item {
	clone := *it
	clone.Values = make(map[string]string, len(it.Values))
	for k, v := range it.Values {
		clone.Values[k] = v
	}
	return &clone
}
