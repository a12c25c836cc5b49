package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// message keys for the lyrics panel status line
const (
	KeyNoLyrics = "lyrics.none"
	KeyFetching = "lyrics.fetching"
	KeyFailed   = "lyrics.failed"
)

var supported = []language.Tag{
	language.English,
	language.SimplifiedChinese,
}

var messages = map[language.Tag]map[string]string{
	language.English: {
		KeyNoLyrics: "no lyrics found",
		KeyFetching: "fetching lyrics...",
		KeyFailed:   "failed to fetch lyrics",
	},
	language.SimplifiedChinese: {
		KeyNoLyrics: "暂无歌词",
		KeyFetching: "获取歌词中...",
		KeyFailed:   "获取歌词失败",
	},
}

var matcher = language.NewMatcher(supported)

type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// New returns a translator for the closest supported language; unknown or
// empty names fall back to English.
func New(lang string) *Translator {
	tag := Match(lang)

	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for t, entries := range messages {
		for key, msg := range entries {
			_ = builder.SetString(t, key, msg)
		}
	}

	return &Translator{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(builder)),
	}
}

func Match(lang string) language.Tag {
	if lang == "" {
		return language.English
	}
	requested, err := language.Parse(lang)
	if err != nil {
		return language.English
	}
	_, index, confidence := matcher.Match(requested)
	if confidence == language.No {
		return language.English
	}
	return supported[index]
}

func (t *Translator) Language() language.Tag {
	return t.tag
}

// T returns the localized message for key, or the key itself when unknown.
func (t *Translator) T(key string) string {
	return t.printer.Sprintf(key)
}
