package keys

import "github.com/mwantia/mediameta/data"

func common(name string, t NativeType) *NativeKey {
	return &NativeKey{Name: name, Type: t}
}

func music(name string, t NativeType) map[data.Service]NativeKey {
	return map[data.Service]NativeKey{data.ServiceMusic: {Name: name, Type: t}}
}

// dependencies lists the keys that can only be resolved from another key.
var dependencies = map[Key]Key{
	Thumbnail:       Uri,
	ThumbnailSmall:  Uri,
	ThumbnailMedium: Uri,
	ThumbnailLarge:  Uri,
	AlbumArt:        Album,
	AlbumArtSmall:   AlbumArt,
	AlbumArtMedium:  AlbumArt,
	AlbumArtLarge:   AlbumArt,
}

func defaultTable() []Descriptor {
	table := []Descriptor{
		{ID: Uri, Name: "uri", Kind: data.KindString, Role: RoleUri, Common: common("File:NameDelimited", NativeString)},
		{ID: Mime, Name: "mime-type", Kind: data.KindString, Role: RoleMime, Common: common("File:Mime", NativeString)},
		{ID: Title, Name: "title", Kind: data.KindString, AllowEmpty: true, Role: RoleTitle, Services: map[data.Service]NativeKey{
			data.ServiceMusic: {Name: "Audio:Title"},
			data.ServiceVideo: {Name: "Video:Title"},
		}},
		{ID: Duration, Name: "duration", Kind: data.KindInt, Writable: true, Role: RoleDuration, Services: map[data.Service]NativeKey{
			data.ServiceMusic:    {Name: "Audio:Duration", Type: NativeInteger},
			data.ServiceVideo:    {Name: "Video:Duration", Type: NativeInteger},
			data.ServicePlaylist: {Name: "Playlist:Duration", Type: NativeInteger},
		}},
		{ID: Artist, Name: "artist", Kind: data.KindString, Services: music("Audio:Artist", NativeString)},
		{ID: Album, Name: "album", Kind: data.KindString, Services: music("Audio:Album", NativeString)},
		{ID: Genre, Name: "genre", Kind: data.KindString, Services: music("Audio:Genre", NativeString)},
		{ID: Track, Name: "track", Kind: data.KindInt, Services: music("Audio:TrackNo", NativeInteger)},
		{ID: Year, Name: "year", Kind: data.KindInt, Services: music("Audio:ReleaseDate", NativeDate)},
		{ID: Bitrate, Name: "bitrate", Kind: data.KindInt, Services: music("Audio:Bitrate", NativeDouble)},
		{ID: PlayCount, Name: "play-count", Kind: data.KindString, Writable: true, AllowEmpty: true, Services: music("Audio:PlayCount", NativeInteger)},
		{ID: LastPlayed, Name: "last-played", Kind: data.KindString, Writable: true, Services: music("Audio:LastPlay", NativeDate)},
		{ID: Added, Name: "added", Kind: data.KindLong, Common: common("File:Added", NativeDate)},
		{ID: Modified, Name: "modified", Kind: data.KindLong, Common: common("File:Modified", NativeDate)},
		{ID: Thumbnail, Name: "thumbnail-uri", Kind: data.KindString, Source: SourceThumbnail},
		{ID: ThumbnailSmall, Name: "thumbnail-small-uri", Kind: data.KindString, Source: SourceThumbnail},
		{ID: ThumbnailMedium, Name: "thumbnail-medium-uri", Kind: data.KindString, Source: SourceThumbnail},
		{ID: ThumbnailLarge, Name: "thumbnail-large-uri", Kind: data.KindString, Source: SourceThumbnail},
		{ID: PausedThumbnail, Name: "paused-thumbnail-uri", Kind: data.KindString, Writable: true, Common: common("Video:LastPlayedFrame", NativeString)},
		{ID: PausedPosition, Name: "paused-position", Kind: data.KindInt, Writable: true, Common: common("Video:PausePosition", NativeInteger)},
		{ID: ResX, Name: "res-x", Kind: data.KindInt, Common: common("Video:Width", NativeInteger)},
		{ID: ResY, Name: "res-y", Kind: data.KindInt, Common: common("Video:Height", NativeInteger)},
		{ID: Filename, Name: "filename", Kind: data.KindString, Common: common("File:Name", NativeString)},
		{ID: Filesize, Name: "filesize", Kind: data.KindInt, Common: common("File:Size", NativeInteger)},
		{ID: Copyright, Name: "copyright", Kind: data.KindString, Common: common("File:Copyright", NativeString)},
		{ID: AlbumArt, Name: "album-art-uri", Kind: data.KindString, Source: SourceAlbumArt},
		{ID: AlbumArtSmall, Name: "album-art-small-uri", Kind: data.KindString, Source: SourceAlbumArt},
		{ID: AlbumArtMedium, Name: "album-art-medium-uri", Kind: data.KindString, Source: SourceAlbumArt},
		{ID: AlbumArtLarge, Name: "album-art-large-uri", Kind: data.KindString, Source: SourceAlbumArt},
		{ID: VideoFramerate, Name: "video-framerate", Kind: data.KindFloat, Services: map[data.Service]NativeKey{
			data.ServiceVideo: {Name: "Video:FrameRate", Type: NativeDouble},
		}},
		{ID: VideoSource, Name: "video-source", Kind: data.KindString, Common: common("Video:Source", NativeString)},
		childCount(ChildCount1, "childcount-1"),
		childCount(ChildCount2, "childcount-2"),
		childCount(ChildCount3, "childcount-3"),
		childCount(ChildCount4, "childcount-4"),
		{ID: PlaylistValidDuration, Name: "Playlist:ValidDuration", Kind: data.KindBool, Internal: true, Services: map[data.Service]NativeKey{
			data.ServicePlaylist: {Name: "Playlist:ValidDuration", Type: NativeInteger},
		}},
		{ID: FilePath, Name: "File:Path", Kind: data.KindString, Internal: true, Common: common("File:Path", NativeString)},
	}

	for i := range table {
		if dep, ok := dependencies[table[i].ID]; ok {
			table[i].DependsOn = dep
		} else {
			table[i].DependsOn = NoKey
		}
	}
	return table
}

func childCount(id Key, name string) Descriptor {
	return Descriptor{
		ID:         id,
		Name:       name,
		Kind:       data.KindInt,
		AllowEmpty: true,
		Role:       RoleChildCount,
		Services: map[data.Service]NativeKey{
			data.ServicePlaylist: {Name: "Playlist:Songs", Type: NativeInteger},
		},
	}
}
