package player

import (
	"github.com/godbus/dbus/v5"

	"karolbroda.com/lyricsync/internal/track"
)

// TrackFromMetadata maps an MPRIS metadata dictionary onto a track.
func TrackFromMetadata(metadata map[string]dbus.Variant) *track.Info {
	return &track.Info{
		Title:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		ArtworkURL: extractString(metadata, "mpris:artUrl"),
		TrackID:    extractTrackID(metadata, "mpris:trackid"),
		URL:        extractString(metadata, "xesam:url"),
		Duration:   extractDuration(metadata, "mpris:length"),
	}
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}
	text, _ := variant.Value().(string)
	return text
}

// players disagree on whether the track id is a string or an object path
func extractTrackID(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}
	switch typed := variant.Value().(type) {
	case string:
		return typed
	case dbus.ObjectPath:
		return string(typed)
	}
	return ""
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case []string:
		if len(typed) > 0 {
			return typed[0]
		}
	case string:
		return typed
	}
	return ""
}

func extractDuration(metadata map[string]dbus.Variant, key string) float64 {
	variant, exists := metadata[key]
	if !exists {
		return 0
	}

	switch typed := variant.Value().(type) {
	case int64:
		return microsToSeconds(typed)
	case uint64:
		return float64(typed) / 1e6
	case int32:
		return microsToSeconds(int64(typed))
	}
	return 0
}
