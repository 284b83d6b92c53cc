package keys

import (
	"strconv"

	"github.com/mwantia/mediameta/data"
)

// Key is the stable id of an abstract metadata key. Ids double as bit positions in a KeySet.
type Key int

// NoKey marks the absence of a key, e.g. an empty dependency.
const NoKey Key = -1

const (
	Uri Key = iota
	Mime
	Title
	Duration
	Artist
	Album
	Genre
	Track
	Year
	Bitrate
	PlayCount
	LastPlayed
	Added
	Modified
	Thumbnail
	ThumbnailSmall
	ThumbnailMedium
	ThumbnailLarge
	PausedThumbnail
	PausedPosition
	ResX
	ResY
	Filename
	Filesize
	Copyright
	AlbumArt
	AlbumArtSmall
	AlbumArtMedium
	AlbumArtLarge
	VideoFramerate
	VideoSource
	ChildCount1
	ChildCount2
	ChildCount3
	ChildCount4
	PlaylistValidDuration
	FilePath

	numKeys
)

// MaxKeys is the width of a KeySet.
const MaxKeys = 64

func (k Key) valid() bool {
	return k >= 0 && k < MaxKeys
}

func (k Key) String() string {
	if d, ok := Default().Descriptor(k); ok {
		return d.Name
	}
	return "key(" + strconv.Itoa(int(k)) + ")"
}

// Role marks keys that need special treatment when cached or assembled.
type Role int

const (
	RoleNone Role = iota
	RoleChildCount
	RoleDuration
	RoleMime
	RoleTitle
	RoleUri
)

// Source says where the value of a key comes from.
type Source int

const (
	SourceIndexer Source = iota
	SourceAlbumArt
	SourceThumbnail
)

// NativeType is the type of a key inside the indexer.
type NativeType int

const (
	NativeString NativeType = iota
	NativeInteger
	NativeDate
	NativeDouble
)

// Numeric reports whether values of this type sort as numbers.
func (t NativeType) Numeric() bool {
	return t != NativeString
}

type NativeKey struct {
	Name string
	Type NativeType
}

type Descriptor struct {
	ID         Key
	Name       string
	Kind       data.Kind
	Writable   bool
	AllowEmpty bool
	// Internal keys are never part of the "all keys" expansion.
	Internal  bool
	Role      Role
	DependsOn Key
	Source    Source

	// Common applies to every service that has no entry in Services.
	Common   *NativeKey
	Services map[data.Service]NativeKey
}

// Native resolves the descriptor for a service: the service entry wins over Common.
func (d *Descriptor) Native(service data.Service) (NativeKey, bool) {
	switch service {
	case data.ServiceMusic, data.ServiceVideo, data.ServicePlaylist:
	default:
		service = data.ServiceMusic
	}

	if native, ok := d.Services[service]; ok {
		return native, true
	}
	if d.Common != nil {
		return *d.Common, true
	}
	return NativeKey{}, false
}
