package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"karolbroda.com/lyricsync/internal/lyrics"
)

// rows of blank space between line groups
const lineGap = 1

// span is a half-open range of character indexes rendered on one row.
type span struct {
	start int
	end   int
}

// lineGroup is the rendered form of one lyric line: its wrapped original
// text followed by its wrapped translation.
type lineGroup struct {
	top         int
	rows        []span
	translation []string
}

func (g lineGroup) height() int {
	return len(g.rows) + len(g.translation)
}

// screenLayout measures the lyrics panel in terminal rows. It implements
// lyrics.Layout; the handler asks it where lines are when scrolling.
type screenLayout struct {
	width    int
	viewport int
	visible  bool
	groups   []lineGroup
	total    int
}

func newScreenLayout() *screenLayout {
	return &screenLayout{}
}

// Measure recomputes every line group for doc at the given panel size.
func (l *screenLayout) Measure(doc lyrics.Document, width int, viewport int, visible bool) {
	l.width = width
	l.viewport = viewport
	l.visible = visible
	l.groups = l.groups[:0]

	top := 0
	for i, line := range doc {
		if i > 0 {
			top += lineGap
		}
		group := lineGroup{
			top:         top,
			rows:        wrapCharacters(line.Characters, width),
			translation: wrapText(line.Translated, width),
		}
		l.groups = append(l.groups, group)
		top += group.height()
	}
	l.total = top
}

func (l *screenLayout) Container() (lyrics.Box, bool) {
	if !l.visible || l.viewport <= 0 {
		return lyrics.Box{}, false
	}
	return lyrics.Box{Top: 0, Height: float64(l.viewport)}, true
}

func (l *screenLayout) Block() (lyrics.Box, bool) {
	if !l.visible || len(l.groups) == 0 {
		return lyrics.Box{}, false
	}
	return lyrics.Box{Top: 0, Height: float64(l.total)}, true
}

func (l *screenLayout) Line(index int) (lyrics.Box, bool) {
	if !l.visible || index < 0 || index >= len(l.groups) {
		return lyrics.Box{}, false
	}
	g := l.groups[index]
	return lyrics.Box{Top: float64(g.top), Height: float64(g.height())}, true
}

// wrapCharacters breaks a line into rows no wider than width display
// cells. A single character wider than the row still gets a row of its own.
func wrapCharacters(chars []lyrics.Character, width int) []span {
	if len(chars) == 0 {
		return nil
	}
	if width <= 0 {
		return []span{{0, len(chars)}}
	}

	var rows []span
	start, used := 0, 0
	lastSpace := -1

	for i, c := range chars {
		w := runewidth.StringWidth(c.Char)
		if used+w > width && i > start {
			cut := i
			// prefer breaking after the last space in the row
			if lastSpace >= start && lastSpace+1 < i {
				cut = lastSpace + 1
			}
			rows = append(rows, span{start, cut})
			start = cut
			used = 0
			for _, prev := range chars[start:i] {
				used += runewidth.StringWidth(prev.Char)
			}
			// the carried-over tail can still leave no room for c
			if used+w > width && i > start {
				rows = append(rows, span{start, i})
				start = i
				used = 0
			}
			lastSpace = -1
		}
		if strings.TrimSpace(c.Char) == "" {
			lastSpace = i
		}
		used += w
	}
	rows = append(rows, span{start, len(chars)})
	return rows
}

func wrapText(text string, width int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if width <= 0 {
		return []string{text}
	}
	return strings.Split(runewidth.Wrap(text, width), "\n")
}
