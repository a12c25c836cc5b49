package track

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
)

var ErrNoHash = errors.New("track has no content hash")

type Info struct {
	Title      string
	Artist     string
	Album      string
	Duration   float64
	ArtworkURL string
	TrackID    string
	// URL is xesam:url; for local files it locates the audio to hash.
	URL string
	// Hash is the content hash lyrics are looked up by.
	Hash string
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return (t.Title != "" && t.Artist != "") || t.Hash != "" || t.URL != ""
}

func (t *Info) IsSameTrack(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if t.TrackID != "" && other.TrackID != "" {
		return t.TrackID == other.TrackID
	}
	if t.URL != "" && other.URL != "" {
		return t.URL == other.URL
	}
	return t.Title == other.Title && t.Artist == other.Artist
}

// Label is a short human readable name.
func (t *Info) Label() string {
	if t == nil {
		return ""
	}
	switch {
	case t.Title != "" && t.Artist != "":
		return t.Artist + " - " + t.Title
	case t.Title != "":
		return t.Title
	case t.Hash != "":
		return t.Hash
	}
	return t.URL
}

// ResolveHash fills Hash from the local file behind URL when it is not set
// already. Remote streams cannot be hashed and yield ErrNoHash.
func (t *Info) ResolveHash() (string, error) {
	if t == nil {
		return "", ErrNoHash
	}
	if t.Hash != "" {
		return t.Hash, nil
	}

	path, ok := LocalPath(t.URL)
	if !ok {
		return "", ErrNoHash
	}

	hash, err := FileHash(path)
	if err != nil {
		return "", err
	}
	t.Hash = hash
	return hash, nil
}

// LocalPath extracts the filesystem path from a file:// url or plain path.
func LocalPath(raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	if strings.HasPrefix(raw, "/") {
		return raw, true
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "file" || parsed.Path == "" {
		return "", false
	}
	return parsed.Path, true
}

// FileHash is the upper-case hex md5 of the file contents.
func FileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open track file: %w", err)
	}
	defer file.Close()

	h := md5.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash track file: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil))), nil
}

// NormalizeHash trims and upper-cases a user supplied hash.
func NormalizeHash(hash string) string {
	return strings.ToUpper(strings.TrimSpace(hash))
}
