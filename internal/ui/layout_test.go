package ui

import (
	"testing"

	"karolbroda.com/lyricsync/internal/lyrics"
)

func chars(text string) []lyrics.Character {
	var out []lyrics.Character
	for _, r := range text {
		out = append(out, lyrics.Character{Char: string(r)})
	}
	return out
}

func TestWrapCharacters(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  []span
	}{
		{"fits", "abc", 10, []span{{0, 3}}},
		{"hard break", "abcdef", 4, []span{{0, 4}, {4, 6}}},
		{"break after space", "ab cde", 4, []span{{0, 3}, {3, 6}}},
		{"wide characters", "漢字漢", 4, []span{{0, 2}, {2, 3}}},
		{"wide character after space break", " abc漢", 4, []span{{0, 1}, {1, 4}, {4, 5}}},
		{"no width", "abcdef", 0, []span{{0, 6}}},
		{"empty", "", 10, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapCharacters(chars(tt.text), tt.width)
			if len(got) != len(tt.want) {
				t.Fatalf("wrapCharacters(%q, %d) = %v, want %v", tt.text, tt.width, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("row %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMeasureStacksGroups(t *testing.T) {
	doc := lyrics.Document{
		{Characters: chars("one"), Translated: "uno"},
		{Characters: chars("two")},
		{Characters: chars("three")},
	}

	l := newScreenLayout()
	l.Measure(doc, 40, 10, true)

	wantTops := []float64{0, 3, 5}
	wantHeights := []float64{2, 1, 1}
	for i := range doc {
		box, ok := l.Line(i)
		if !ok {
			t.Fatalf("line %d not measured", i)
		}
		if box.Top != wantTops[i] || box.Height != wantHeights[i] {
			t.Errorf("line %d = %+v, want top %v height %v", i, box, wantTops[i], wantHeights[i])
		}
	}

	block, ok := l.Block()
	if !ok || block.Height != 6 {
		t.Errorf("block = %+v %v, want height 6", block, ok)
	}
	container, ok := l.Container()
	if !ok || container.Height != 10 {
		t.Errorf("container = %+v %v, want height 10", container, ok)
	}
	if _, ok := l.Line(3); ok {
		t.Error("line past the end should not be measured")
	}
}

func TestMeasureHiddenPanel(t *testing.T) {
	doc := lyrics.Document{{Characters: chars("one")}}

	l := newScreenLayout()
	l.Measure(doc, 40, 10, false)

	if _, ok := l.Container(); ok {
		t.Error("hidden panel should have no container")
	}
	if _, ok := l.Line(0); ok {
		t.Error("hidden panel should have no lines")
	}

	l.Measure(doc, 40, 0, true)
	if _, ok := l.Container(); ok {
		t.Error("zero-height viewport should have no container")
	}
}

func TestRenderPlacesRowsByScroll(t *testing.T) {
	doc := lyrics.Document{
		{Characters: chars("one")},
		{Characters: chars("two")},
	}

	l := newScreenLayout()
	l.Measure(doc, 20, 5, true)

	rows := NewTextRenderer(nil, l, 0, 0).Render(doc, 2)
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}
	if rows[0] != "" || rows[1] != "" {
		t.Errorf("rows above the scrolled block should be blank: %q", rows[:2])
	}
	if rows[2] == "" || rows[4] == "" {
		t.Errorf("expected lines at rows 2 and 4: %q", rows)
	}
	if rows[3] != "" {
		t.Errorf("gap row should be blank: %q", rows[3])
	}
}

func TestCenterText(t *testing.T) {
	if got := centerText("ab", 2, 10); got != "    ab" {
		t.Errorf("centerText = %q", got)
	}
	if got := centerText("abcdef", 6, 4); got != "abcdef" {
		t.Errorf("overflowing text should not be padded: %q", got)
	}
}
