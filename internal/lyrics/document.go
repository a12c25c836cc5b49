package lyrics

import "strings"

// Character is the smallest highlight unit: one grapheme with its
// interpolated timing in milliseconds.
type Character struct {
	Char        string
	StartTime   float64
	EndTime     float64
	Highlighted bool
}

type Line struct {
	Characters []Character
	Translated string
}

// Document is an ordered set of timed lines. It is rebuilt on every parse.
type Document []Line

func (l Line) Start() float64 {
	if len(l.Characters) == 0 {
		return 0
	}
	return l.Characters[0].StartTime
}

func (l Line) End() float64 {
	if len(l.Characters) == 0 {
		return 0
	}
	return l.Characters[len(l.Characters)-1].EndTime
}

// Contains reports whether ms falls inside [first.StartTime, last.EndTime].
func (l Line) Contains(ms float64) bool {
	if len(l.Characters) == 0 {
		return false
	}
	return ms >= l.Start() && ms <= l.End()
}

func (l Line) Text() string {
	var b strings.Builder
	for _, c := range l.Characters {
		b.WriteString(c.Char)
	}
	return b.String()
}

func (l Line) HighlightedCount() int {
	count := 0
	for _, c := range l.Characters {
		if c.Highlighted {
			count++
		}
	}
	return count
}

func (d Document) Text() string {
	lines := make([]string, len(d))
	for i, line := range d {
		lines[i] = line.Text()
	}
	return strings.Join(lines, "\n")
}

// Clone returns a deep copy so callers can read highlight state without
// sharing cells with the owner.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for i, line := range d {
		chars := make([]Character, len(line.Characters))
		copy(chars, line.Characters)
		out[i] = Line{Characters: chars, Translated: line.Translated}
	}
	return out
}
