package lyrics

import "testing"

type fakeLayout struct {
	container *Box
	block     *Box
	lines     map[int]Box
}

func (f *fakeLayout) Container() (Box, bool) {
	if f.container == nil {
		return Box{}, false
	}
	return *f.container, true
}

func (f *fakeLayout) Block() (Box, bool) {
	if f.block == nil {
		return Box{}, false
	}
	return *f.block, true
}

func (f *fakeLayout) Line(index int) (Box, bool) {
	b, ok := f.lines[index]
	return b, ok
}

// three lines of ten units each inside a viewport of 100
func stackedLayout() *fakeLayout {
	return &fakeLayout{
		container: &Box{Height: 100},
		block:     &Box{Height: 30},
		lines: map[int]Box{
			0: {Top: 0, Height: 10},
			1: {Top: 10, Height: 10},
			2: {Top: 20, Height: 10},
		},
	}
}

func threeLines() Document {
	return Parse("[0,1000]AB\n[1000,1000]CD\n[2000,1000]EF", false)
}

func highlighted(doc Document) []int {
	counts := make([]int, len(doc))
	for i, line := range doc {
		counts[i] = line.HighlightedCount()
	}
	return counts
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestHighlightMarksStartedCells(t *testing.T) {
	doc := threeLines()

	Highlight(doc, Session{}, nil, 1.2, false)

	want := []int{2, 1, 0}
	if got := highlighted(doc); !equalInts(got, want) {
		t.Errorf("expected %v highlighted, got %v", want, got)
	}
}

func TestHighlightIsMonotonic(t *testing.T) {
	doc := threeLines()

	Highlight(doc, Session{}, nil, 2.4, false)
	Highlight(doc, Session{}, nil, 0.2, false)

	want := []int{2, 2, 1}
	if got := highlighted(doc); !equalInts(got, want) {
		t.Errorf("expected earlier timestamp to leave %v, got %v", want, got)
	}
}

func TestHighlightScrollsToNewLine(t *testing.T) {
	doc := threeLines()
	layout := stackedLayout()

	s := Highlight(doc, Session{}, layout, 0.5, true)
	if s.CurrentLine != 0 || s.Scrolled {
		t.Fatalf("first line should not scroll, got %+v", s)
	}

	s = Highlight(doc, s, layout, 1.2, true)
	if s.CurrentLine != 1 {
		t.Fatalf("expected current line 1, got %d", s.CurrentLine)
	}
	// -top + container/2 - height/2
	if !s.Scrolled || s.Scroll != 35 {
		t.Errorf("expected scroll 35, got %+v", s)
	}
}

func TestHighlightWithoutScroll(t *testing.T) {
	doc := threeLines()

	s := Highlight(doc, Session{}, stackedLayout(), 2.5, false)

	if s.CurrentLine != 0 || s.Scrolled {
		t.Errorf("session should be untouched, got %+v", s)
	}
}

func TestHighlightMissingLayoutKeepsLineIndex(t *testing.T) {
	doc := threeLines()
	layout := stackedLayout()
	layout.container = nil

	s := Highlight(doc, Session{Scroll: 7}, layout, 1.2, true)

	if s.CurrentLine != 1 {
		t.Errorf("expected current line 1, got %d", s.CurrentLine)
	}
	if s.Scrolled || s.Scroll != 7 {
		t.Errorf("scroll should not change without a container, got %+v", s)
	}
}

func TestResetHighlightRewinds(t *testing.T) {
	doc := threeLines()
	layout := stackedLayout()

	Highlight(doc, Session{}, layout, 2.9, false)
	s := ResetHighlight(doc, Session{CurrentLine: 2}, layout, 0.4)

	want := []int{1, 0, 0}
	if got := highlighted(doc); !equalInts(got, want) {
		t.Errorf("expected %v highlighted, got %v", want, got)
	}
	if s.CurrentLine != 0 {
		t.Errorf("expected current line 0, got %d", s.CurrentLine)
	}
	if !s.Scrolled || s.Scroll != 45 {
		t.Errorf("expected scroll 45, got %+v", s)
	}
}

func TestResetHighlightIsIdempotent(t *testing.T) {
	doc := threeLines()
	layout := stackedLayout()

	first := ResetHighlight(doc, Session{}, layout, 1.7)
	snapshot := doc.Clone()
	second := ResetHighlight(doc, first, layout, 1.7)

	if first != second {
		t.Errorf("sessions differ: %+v vs %+v", first, second)
	}
	for i := range doc {
		for j := range doc[i].Characters {
			if doc[i].Characters[j] != snapshot[i].Characters[j] {
				t.Errorf("cell %d/%d changed on second reset", i, j)
			}
		}
	}
}

func TestResetHighlightLastContainingLineWins(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		seconds float64
		want    int
	}{
		{"overlap", "[0,2000]AB\n[1000,2000]CD", 1.5, 1},
		{"shared boundary", "[0,1000]AB\n[1000,1000]CD", 1.0, 1},
		{"gap keeps previous", "[0,1000]AB\n[3000,1000]CD", 2.0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := Parse(tc.raw, false)
			s := ResetHighlight(doc, Session{}, nil, tc.seconds)
			if s.CurrentLine != tc.want {
				t.Errorf("expected line %d, got %d", tc.want, s.CurrentLine)
			}
		})
	}
}

func TestCenterFirstLine(t *testing.T) {
	layout := &fakeLayout{
		container: &Box{Height: 100},
		block:     &Box{Height: 40},
	}

	s := CenterFirstLine(Session{CurrentLine: 3}, layout)
	if !s.Scrolled || s.Scroll != 30 {
		t.Errorf("expected scroll 30, got %+v", s)
	}
	if s.CurrentLine != 3 {
		t.Errorf("current line should be untouched, got %d", s.CurrentLine)
	}

	layout.block = nil
	s = CenterFirstLine(Session{}, layout)
	if s.Scrolled {
		t.Errorf("missing block should not scroll, got %+v", s)
	}

	s = CenterFirstLine(Session{}, nil)
	if s.Scrolled {
		t.Errorf("nil layout should not scroll, got %+v", s)
	}
}

func TestCurrentLineText(t *testing.T) {
	doc := Parse("[1000,1000]AB\n[2000,1000]CD\n[5000,1000]EF", false)

	cases := []struct {
		name    string
		doc     Document
		seconds float64
		want    string
	}{
		{"empty document", nil, 1, ""},
		{"before first line", doc, 0.5, ""},
		{"inside line", doc, 2.5, "CD"},
		{"boundary prefers first", doc, 2.0, "AB"},
		{"between lines", doc, 4.0, ""},
		{"after last line", doc, 9, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CurrentLineText(tc.doc, tc.seconds); got != tc.want {
				t.Errorf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
