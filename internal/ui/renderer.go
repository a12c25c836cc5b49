package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/lyrics"
)

// TextRenderer draws the lyrics block row by row. Lit characters take the
// sung color; the character being sung blends toward it as time passes.
type TextRenderer struct {
	palette *artwork.Palette
	layout  *screenLayout
	current int
	ms      float64

	sung   colorful.Color
	unsung colorful.Color
}

func NewTextRenderer(palette *artwork.Palette, layout *screenLayout, current int, seconds float64) *TextRenderer {
	if palette == nil {
		palette = artwork.DefaultPalette()
	}
	sung, _ := colorful.Hex(palette.Sung)
	unsung, _ := colorful.Hex(palette.Unsung)

	return &TextRenderer{
		palette: palette,
		layout:  layout,
		current: current,
		ms:      seconds * 1000,
		sung:    sung,
		unsung:  unsung,
	}
}

// Render returns exactly viewport rows, with block row r shown at viewport
// row r+scroll.
func (r *TextRenderer) Render(doc lyrics.Document, scroll float64) []string {
	out := make([]string, r.layout.viewport)
	offset := int(math.Round(scroll))

	for index, group := range r.layout.groups {
		if index >= len(doc) {
			break
		}
		row := group.top + offset
		if row >= len(out) || row+group.height() <= 0 {
			continue
		}

		for _, rendered := range r.renderGroup(doc[index], group, index) {
			if row >= 0 && row < len(out) {
				out[row] = rendered
			}
			row++
		}
	}

	return out
}

func (r *TextRenderer) renderGroup(line lyrics.Line, group lineGroup, index int) []string {
	rows := make([]string, 0, group.height())

	for _, sp := range group.rows {
		var b strings.Builder
		width := 0
		for _, c := range line.Characters[sp.start:sp.end] {
			width += runewidth.StringWidth(c.Char)
			b.WriteString(r.renderCharacter(c, index))
		}
		rows = append(rows, r.center(b.String(), width))
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(r.palette.Translation)).Italic(true)
	if index != r.current {
		style = style.Faint(true)
	}
	for _, text := range group.translation {
		rows = append(rows, r.center(style.Render(text), runewidth.StringWidth(text)))
	}

	return rows
}

func (r *TextRenderer) renderCharacter(c lyrics.Character, index int) string {
	style := lipgloss.NewStyle()

	switch {
	case !c.Highlighted && index == r.current:
		style = style.Foreground(lipgloss.Color(r.unsung.Hex()))
	case !c.Highlighted:
		style = style.Foreground(lipgloss.Color(r.palette.Dim))
	default:
		progress := 1.0
		if c.EndTime > c.StartTime && r.ms < c.EndTime {
			progress = (r.ms - c.StartTime) / (c.EndTime - c.StartTime)
		}
		blended := r.unsung.BlendLab(r.sung, easeOutCubic(progress)).Clamped()
		style = style.Foreground(lipgloss.Color(blended.Hex()))
		if index == r.current {
			style = style.Bold(true)
		}
	}

	return style.Render(c.Char)
}

func (r *TextRenderer) center(text string, visualWidth int) string {
	return centerText(text, visualWidth, r.layout.width)
}

func centerText(text string, visualWidth int, screenWidth int) string {
	padding := (screenWidth - visualWidth) / 2
	if padding < 0 {
		padding = 0
	}
	return strings.Repeat(" ", padding) + text
}
