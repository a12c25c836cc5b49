package lyrics

// Box is the rendered extent of an element along the scroll axis.
type Box struct {
	Top    float64
	Height float64
}

// Layout answers measurement queries from the rendering layer. A false
// result means the element is not currently rendered.
type Layout interface {
	// Container is the viewport the lyrics scroll inside.
	Container() (Box, bool)
	// Block is the whole lyrics block.
	Block() (Box, bool)
	// Line is the nth rendered line group.
	Line(index int) (Box, bool)
}

// Session is the scroll state carried between highlight calls.
type Session struct {
	CurrentLine int
	Scroll      float64
	Scrolled    bool
}

// Highlight marks every cell whose start time has passed. Cells are never
// un-highlighted here; use ResetHighlight after a seek.
func Highlight(doc Document, s Session, layout Layout, seconds float64, scroll bool) Session {
	ms := seconds * 1000

	for index := range doc {
		newlyLit := false
		chars := doc[index].Characters
		for i := range chars {
			if ms >= chars[i].StartTime && !chars[i].Highlighted {
				chars[i].Highlighted = true
				newlyLit = true
			}
		}

		if scroll && newlyLit && s.CurrentLine != index {
			s.CurrentLine = index
			s = centerLine(s, layout, index)
		}
	}

	return s
}

// ResetHighlight recomputes every cell from scratch and recenters on the
// line containing the timestamp. The last containing line wins.
func ResetHighlight(doc Document, s Session, layout Layout, seconds float64) Session {
	ms := seconds * 1000

	for index := range doc {
		chars := doc[index].Characters
		for i := range chars {
			chars[i].Highlighted = ms >= chars[i].StartTime
		}

		if doc[index].Contains(ms) {
			s.CurrentLine = index
			s = centerLine(s, layout, index)
		}
	}

	return s
}

// CenterFirstLine centers the whole lyrics block in its container.
func CenterFirstLine(s Session, layout Layout) Session {
	if layout == nil {
		return s
	}
	container, ok := layout.Container()
	if !ok {
		return s
	}
	block, ok := layout.Block()
	if !ok {
		return s
	}

	s.Scroll = (container.Height - block.Height) / 2
	s.Scrolled = true
	return s
}

// CurrentLineText returns the text of the first line spanning the
// timestamp, or "" when none does.
func CurrentLineText(doc Document, seconds float64) string {
	ms := seconds * 1000
	for _, line := range doc {
		if line.Contains(ms) {
			return line.Text()
		}
	}
	return ""
}

func centerLine(s Session, layout Layout, index int) Session {
	if layout == nil {
		return s
	}
	container, ok := layout.Container()
	if !ok {
		return s
	}
	line, ok := layout.Line(index)
	if !ok {
		return s
	}

	s.Scroll = -line.Top + container.Height/2 - line.Height/2
	s.Scrolled = true
	return s
}
