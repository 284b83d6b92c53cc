package data

import (
	"path/filepath"
	"strings"
)

type ContentType string

const (
	ContentTypeAudioMpeg       ContentType = "audio/mpeg"
	ContentTypeAudioMP4        ContentType = "audio/mp4"
	ContentTypeAudioFLAC       ContentType = "audio/flac"
	ContentTypeAudioWAV        ContentType = "audio/wav"
	ContentTypeAudioOGG        ContentType = "audio/ogg"
	ContentTypeAudioWMA        ContentType = "audio/x-ms-wma"
	ContentTypeVideoMP4        ContentType = "video/mp4"
	ContentTypeVideoWebM       ContentType = "video/webm"
	ContentTypeVideoQuickTime  ContentType = "video/quicktime"
	ContentTypeVideoMatroska   ContentType = "video/x-matroska"
	ContentTypeVideoAVI        ContentType = "video/x-msvideo"
	ContentTypeVideo3GPP       ContentType = "video/3gpp"
	ContentTypePlaylistM3U     ContentType = "audio/x-mpegurl"
	ContentTypePlaylistPLS     ContentType = "audio/x-scpls"
	ContentTypePlaylistXSPF    ContentType = "application/xspf+xml"
	ContentTypeApplicationData ContentType = "application/octet-stream"

	// ContentTypeContainer is reported for every synthetic container object.
	ContentTypeContainer ContentType = "x-mafw/container"
)

// ExtensionToMIME maps file extensions to MIME types
var ExtensionToMIME = map[string]ContentType{
	".mp3":  ContentTypeAudioMpeg,
	".m4a":  ContentTypeAudioMP4,
	".aac":  ContentTypeAudioMP4,
	".flac": ContentTypeAudioFLAC,
	".wav":  ContentTypeAudioWAV,
	".ogg":  ContentTypeAudioOGG,
	".oga":  ContentTypeAudioOGG,
	".wma":  ContentTypeAudioWMA,
	".mp4":  ContentTypeVideoMP4,
	".m4v":  ContentTypeVideoMP4,
	".webm": ContentTypeVideoWebM,
	".mov":  ContentTypeVideoQuickTime,
	".mkv":  ContentTypeVideoMatroska,
	".avi":  ContentTypeVideoAVI,
	".3gp":  ContentTypeVideo3GPP,
	".m3u":  ContentTypePlaylistM3U,
	".m3u8": ContentTypePlaylistM3U,
	".pls":  ContentTypePlaylistPLS,
	".xspf": ContentTypePlaylistXSPF,
}

// GetMIMEType returns the MIME type for the extension of path.
func GetMIMEType(path string) ContentType {
	ext := strings.ToLower(filepath.Ext(path))
	if mimeType, exists := ExtensionToMIME[ext]; exists {
		return mimeType
	}

	return ContentTypeApplicationData
}

// ServiceOf classifies a file by its MIME type, ok is false for non-media files.
func ServiceOf(path string) (Service, bool) {
	switch mime := GetMIMEType(path); {
	case mime == ContentTypePlaylistM3U || mime == ContentTypePlaylistPLS || mime == ContentTypePlaylistXSPF:
		return ServicePlaylist, true
	case strings.HasPrefix(string(mime), "audio/"):
		return ServiceMusic, true
	case strings.HasPrefix(string(mime), "video/"):
		return ServiceVideo, true
	default:
		return ServiceMusic, false
	}
}
