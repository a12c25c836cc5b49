package lyrics

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const translationTrackType = 1

var (
	timedLinePattern = regexp.MustCompile(`^\[(\d+),(\d+)\](.*)`)
	languagePattern  = regexp.MustCompile(`^\[language:(.*)\]`)
	inlineTagPattern = regexp.MustCompile(`<.*?>`)
)

var ErrNoTranslationTrack = errors.New("no translation track")

type languageBlock struct {
	Content []struct {
		Type         int        `json:"type"`
		Language     int        `json:"language"`
		LyricContent [][]string `json:"lyricContent"`
	} `json:"content"`
	Version int `json:"version"`
}

func logger() zerolog.Logger {
	return log.With().Str("component", "lyrics").Logger()
}

// Parse turns KRC-style text into a Document. Lines that are neither timed
// lines nor the language block are dropped. A broken translation block only
// disables translations.
func Parse(raw string, includeTranslation bool) Document {
	lines := strings.Split(raw, "\n")

	var pool [][]string
	if includeTranslation {
		if payload, ok := findLanguagePayload(lines); ok {
			decoded, err := DecodeTranslations(payload)
			switch {
			case errors.Is(err, ErrNoTranslationTrack):
				l := logger()
				l.Debug().Msg("language block has no translation track")
			case err != nil:
				l := logger()
				l.Warn().Err(err).Msg("failed to decode translated lyrics")
			default:
				pool = decoded
			}
		}
	}

	doc := make(Document, 0, len(lines))
	for _, line := range lines {
		parsed, ok := parseTimedLine(strings.TrimRight(line, "\r"))
		if !ok {
			continue
		}
		doc = append(doc, parsed)
	}

	if len(pool) > 0 {
		for i := range doc {
			if i >= len(pool) || len(pool[i]) == 0 {
				continue
			}
			doc[i].Translated = pool[i][0]
		}
	}

	return doc
}

// DecodeTranslations decodes a base64 JSON language block and returns the
// lyricContent of its translation track.
func DecodeTranslations(payload string) ([][]string, error) {
	data, err := decodeBase64(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 language block: %w", err)
	}

	var block languageBlock
	err = json.Unmarshal(data, &block)
	if err != nil {
		return nil, fmt.Errorf("invalid language block json: %w", err)
	}

	for _, content := range block.Content {
		if content.Type == translationTrackType {
			return content.LyricContent, nil
		}
	}

	return nil, ErrNoTranslationTrack
}

func findLanguagePayload(lines []string) (string, bool) {
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, "[language:") {
			continue
		}
		match := languagePattern.FindStringSubmatch(line)
		if match == nil {
			return "", false
		}
		return match[1], true
	}
	return "", false
}

func parseTimedLine(line string) (Line, bool) {
	match := timedLinePattern.FindStringSubmatch(line)
	if match == nil {
		return Line{}, false
	}

	start, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return Line{}, false
	}
	duration, err := strconv.ParseInt(match[2], 10, 64)
	if err != nil {
		return Line{}, false
	}

	text := inlineTagPattern.ReplaceAllString(match[3], "")
	graphemes := splitGraphemes(text)
	if len(graphemes) == 0 {
		return Line{}, false
	}

	n := float64(len(graphemes))
	t := float64(start)
	d := float64(duration)

	chars := make([]Character, len(graphemes))
	for i, g := range graphemes {
		chars[i] = Character{
			Char:      g,
			StartTime: t + float64(i)*d/n,
			EndTime:   t + float64(i+1)*d/n,
		}
	}

	return Line{Characters: chars}, true
}

func splitGraphemes(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// the language block is usually padded, but some mirrors strip the padding
func decodeBase64(s string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(s); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
