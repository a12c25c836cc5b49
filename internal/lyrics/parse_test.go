package lyrics

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func languageLine(json string) string {
	return "[language:" + base64.StdEncoding.EncodeToString([]byte(json)) + "]"
}

func TestParseInterpolatesCharacters(t *testing.T) {
	doc := Parse("[1000,2000]AB", false)

	if len(doc) != 1 {
		t.Fatalf("expected 1 line, got %d", len(doc))
	}

	want := []Character{
		{Char: "A", StartTime: 1000, EndTime: 2000},
		{Char: "B", StartTime: 2000, EndTime: 3000},
	}
	got := doc[0].Characters
	if len(got) != len(want) {
		t.Fatalf("expected %d characters, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("character %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestParsePartitionsLineDuration(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		start    float64
		duration float64
		text     string
	}{
		{"plain", "[500,1000]hello", 500, 1000, "hello"},
		{"uneven", "[0,1000]abc", 0, 1000, "abc"},
		{"tagged", "[12000,3000]<0,1000,0>Hel<1000,2000,0>lo", 12000, 3000, "Hello"},
		{"wide", "[100,700]你好世界", 100, 700, "你好世界"},
		{"zero duration", "[42,0]xy", 42, 0, "xy"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := Parse(tc.raw, false)
			if len(doc) != 1 {
				t.Fatalf("expected 1 line, got %d", len(doc))
			}
			line := doc[0]
			if line.Text() != tc.text {
				t.Errorf("expected text %q, got %q", tc.text, line.Text())
			}
			if line.Start() != tc.start {
				t.Errorf("expected start %v, got %v", tc.start, line.Start())
			}
			if line.End() != tc.start+tc.duration {
				t.Errorf("expected end %v, got %v", tc.start+tc.duration, line.End())
			}
			for i, c := range line.Characters {
				if c.StartTime > c.EndTime {
					t.Errorf("character %d starts after it ends: %+v", i, c)
				}
				if i > 0 && line.Characters[i-1].EndTime != c.StartTime {
					t.Errorf("gap between character %d and %d", i-1, i)
				}
			}
		})
	}
}

func TestParseDropsUnusableLines(t *testing.T) {
	raw := "[ti:Song]\n[ar:Artist]\n[offset:0]\nnot a lyric\n[0,500]<0,500,0>\n[1000,500]kept\n\n"

	doc := Parse(raw, true)

	if len(doc) != 1 {
		t.Fatalf("expected only the timed line to survive, got %d lines", len(doc))
	}
	if doc[0].Text() != "kept" {
		t.Errorf("expected %q, got %q", "kept", doc[0].Text())
	}
}

func TestParseStripsCarriageReturns(t *testing.T) {
	doc := Parse("[0,200]Hi\r\n[200,200]Yo\r\n", false)

	if len(doc) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(doc))
	}
	if doc[0].Text() != "Hi" || doc[1].Text() != "Yo" {
		t.Errorf("unexpected text: %q / %q", doc[0].Text(), doc[1].Text())
	}
}

func TestParseSplitsGraphemes(t *testing.T) {
	doc := Parse("[0,200]éa", false)

	if len(doc) != 1 {
		t.Fatalf("expected 1 line, got %d", len(doc))
	}
	if n := len(doc[0].Characters); n != 2 {
		t.Fatalf("expected 2 grapheme cells, got %d", n)
	}
	if doc[0].Characters[0].Char != "é" {
		t.Errorf("expected combined grapheme, got %q", doc[0].Characters[0].Char)
	}
}

func TestParseTranslation(t *testing.T) {
	raw := languageLine(`{"content":[{"type":1,"lyricContent":[["Hola"]]}]}`) + "\n[0,1000]Hello"

	t.Run("on", func(t *testing.T) {
		doc := Parse(raw, true)
		if len(doc) != 1 {
			t.Fatalf("expected 1 line, got %d", len(doc))
		}
		if doc[0].Translated != "Hola" {
			t.Errorf("expected translation %q, got %q", "Hola", doc[0].Translated)
		}
	})

	t.Run("off", func(t *testing.T) {
		doc := Parse(raw, false)
		if len(doc) != 1 {
			t.Fatalf("expected 1 line, got %d", len(doc))
		}
		if doc[0].Translated != "" {
			t.Errorf("expected no translation, got %q", doc[0].Translated)
		}
	})
}

func TestParseTranslationPicksTranslationTrack(t *testing.T) {
	raw := languageLine(`{"content":[{"type":0,"lyricContent":[["ni"],["hao"]]},{"type":1,"lyricContent":[["you"],["good"]]}]}`) +
		"\n[0,500]你\n[500,500]好"

	doc := Parse(raw, true)

	if len(doc) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(doc))
	}
	if doc[0].Translated != "you" || doc[1].Translated != "good" {
		t.Errorf("unexpected translations: %q, %q", doc[0].Translated, doc[1].Translated)
	}
}

func TestParseTranslationEdgeCases(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "malformed base64",
			raw:  "[language:!!!not-base64!!!]\n[0,100]a\n[100,100]b",
			want: []string{"", ""},
		},
		{
			name: "malformed json",
			raw:  languageLine(`{"content":`) + "\n[0,100]a",
			want: []string{""},
		},
		{
			name: "wrong shape",
			raw:  languageLine(`{"content":"nope"}`) + "\n[0,100]a",
			want: []string{""},
		},
		{
			name: "no translation track",
			raw:  languageLine(`{"content":[{"type":0,"lyricContent":[["a"]]}]}`) + "\n[0,100]a",
			want: []string{""},
		},
		{
			name: "pool shorter than document",
			raw:  languageLine(`{"content":[{"type":1,"lyricContent":[["one"]]}]}`) + "\n[0,100]a\n[100,100]b\n[200,100]c",
			want: []string{"one", "", ""},
		},
		{
			name: "empty pool entry",
			raw:  languageLine(`{"content":[{"type":1,"lyricContent":[[],["two"]]}]}`) + "\n[0,100]a\n[100,100]b",
			want: []string{"", "two"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := Parse(tc.raw, true)
			if len(doc) != len(tc.want) {
				t.Fatalf("expected %d lines, got %d", len(tc.want), len(doc))
			}
			for i, want := range tc.want {
				if doc[i].Translated != want {
					t.Errorf("line %d: expected translation %q, got %q", i, want, doc[i].Translated)
				}
			}
		})
	}
}

func TestParseTranslationLogLevels(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		level string
	}{
		{
			name:  "no translation track",
			raw:   languageLine(`{"content":[{"type":0,"lyricContent":[["a"]]}]}`) + "\n[0,100]a",
			level: `"level":"debug"`,
		},
		{
			name:  "malformed json",
			raw:   languageLine(`{"content":`) + "\n[0,100]a",
			level: `"level":"warn"`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			prev := log.Logger
			log.Logger = zerolog.New(&buf).Level(zerolog.DebugLevel)
			t.Cleanup(func() { log.Logger = prev })

			Parse(tc.raw, true)

			out := buf.String()
			if !strings.Contains(out, tc.level) {
				t.Errorf("expected a %s entry, got %q", tc.level, out)
			}
			if tc.level == `"level":"debug"` && strings.Contains(out, `"level":"warn"`) {
				t.Errorf("a missing translation track should not warn: %q", out)
			}
		})
	}
}

func TestDecodeTranslations(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte(`{"content":[{"type":1,"lyricContent":[["x","y"]]}]}`))

	pool, err := DecodeTranslations(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool) != 1 || len(pool[0]) != 2 || pool[0][0] != "x" {
		t.Errorf("unexpected pool: %v", pool)
	}

	unpadded := base64.RawStdEncoding.EncodeToString([]byte(`{"content":[{"type":1,"lyricContent":[["z"]]}]}`))
	pool, err = DecodeTranslations(unpadded)
	if err != nil {
		t.Fatalf("unexpected error for unpadded payload: %v", err)
	}
	if len(pool) != 1 || pool[0][0] != "z" {
		t.Errorf("unexpected pool: %v", pool)
	}

	missing := base64.StdEncoding.EncodeToString([]byte(`{"content":[]}`))
	_, err = DecodeTranslations(missing)
	if !errors.Is(err, ErrNoTranslationTrack) {
		t.Errorf("expected ErrNoTranslationTrack, got %v", err)
	}
}

func TestParseEmptyInput(t *testing.T) {
	doc := Parse("", true)
	if len(doc) != 0 {
		t.Errorf("expected empty document, got %d lines", len(doc))
	}
}
