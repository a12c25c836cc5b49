package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"
	"github.com/mattn/go-runewidth"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/lyrics"
)

const (
	artWidth  = 12
	artHeight = 6
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width, height := m.width, m.height
	palette := m.palette
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	if m.track == nil && m.hashOverride == "" {
		return m.renderWaitingScreen(palette, width, height)
	}

	lines := m.renderHeader(palette, width)
	lines = append(lines, m.renderLyrics(palette, width, height-len(lines))...)

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderWaitingScreen(palette *artwork.Palette, width int, height int) string {
	banner := figure.NewFigure("lyricsync", "small", true).Slicify()
	bannerWidth := 0
	for _, row := range banner {
		if w := runewidth.StringWidth(row); w > bannerWidth {
			bannerWidth = w
		}
	}
	if bannerWidth > width {
		banner = nil
	}

	bannerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Sung))
	waitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true)

	var block []string
	for _, row := range banner {
		block = append(block, centerText(bannerStyle.Render(row), bannerWidth, width))
	}
	block = append(block, "")

	pulse := []string{"·", "•", "●", "•"}
	waitText := "awaiting music " + pulse[(m.tickCount/4)%len(pulse)]
	block = append(block, centerText(waitStyle.Render(waitText), runewidth.StringWidth(waitText), width))

	top := (height - len(block)) / 2
	if top < 0 {
		top = 0
	}

	lines := make([]string, 0, height)
	for i := 0; i < top; i++ {
		lines = append(lines, "")
	}
	lines = append(lines, block...)
	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

// refreshArt re-renders the album art for the current window size.
func (m *Model) refreshArt() {
	m.artLines = nil
	if m.image == nil || m.width < 50 || m.height < 20 {
		return
	}
	m.artLines = artwork.RenderHalfBlockArt(m.image, artWidth, artHeight)
}

// renderHeader draws the track panel above the lyrics. Its height decides
// how many rows the lyrics get, so measure calls it too.
func (m Model) renderHeader(palette *artwork.Palette, width int) []string {
	if m.hideHeader {
		return nil
	}
	if palette == nil {
		palette = artwork.DefaultPalette()
	}

	lines := []string{""}

	info := m.renderTrackInfo(palette, width)
	rows := len(info)
	if len(m.artLines) > rows {
		rows = len(m.artLines)
	}

	for i := 0; i < rows; i++ {
		var line strings.Builder
		if len(m.artLines) > 0 {
			line.WriteString("  ")
			if i < len(m.artLines) {
				line.WriteString(m.artLines[i])
			} else {
				line.WriteString(strings.Repeat(" ", artWidth))
			}
			line.WriteString("  ")
		} else {
			line.WriteString("  ")
		}
		if i < len(info) {
			line.WriteString(info[i])
		}
		lines = append(lines, line.String())
	}

	lines = append(lines, "")
	if bar := m.renderProgress(palette, width); bar != "" {
		lines = append(lines, bar)
	}
	lines = append(lines, m.renderStatusLine(palette), "")

	return lines
}

func (m Model) renderTrackInfo(palette *artwork.Palette, width int) []string {
	maxWidth := width - artWidth - 8
	if maxWidth < 20 {
		maxWidth = 20
	}

	if m.track == nil {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
		return []string{style.Render("hash " + m.hashOverride)}
	}

	var lines []string
	lines = append(lines, gradientText(truncate(m.track.Title, maxWidth), palette.Gradient))

	artistStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Translation))
	lines = append(lines, artistStyle.Render(truncate(m.track.Artist, maxWidth)))

	if m.track.Album != "" {
		albumStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
		lines = append(lines, albumStyle.Render(truncate(m.track.Album, maxWidth)))
	}

	return lines
}

func (m Model) renderProgress(palette *artwork.Palette, width int) string {
	if m.track == nil || m.track.Duration <= 0 {
		return ""
	}

	barWidth := width - 20
	if barWidth < 10 {
		barWidth = 10
	}

	progress := m.position / m.track.Duration
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}
	filled := int(float64(barWidth) * progress)

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Sung))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Faint(true)

	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			bar.WriteString(filledStyle.Render("━"))
		case i == filled:
			bar.WriteString(filledStyle.Render("●"))
		default:
			bar.WriteString(emptyStyle.Render("─"))
		}
	}

	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))
	return fmt.Sprintf("  %s  %s  %s",
		timeStyle.Render(formatTime(m.position)),
		bar.String(),
		timeStyle.Render(formatTime(m.track.Duration)))
}

func (m Model) renderStatusLine(palette *artwork.Palette) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim))

	parts := []string{fmt.Sprintf("offset %+.1fs", m.offset)}
	if m.settings.LyricsTranslation == lyrics.On {
		parts = append(parts, "translation on")
	} else {
		parts = append(parts, "translation off")
	}
	if !m.playing && m.track != nil {
		parts = append(parts, "paused")
	}

	return "  " + style.Render(strings.Join(parts, " · "))
}

func (m Model) renderLyrics(palette *artwork.Palette, width int, height int) []string {
	if height <= 0 {
		return nil
	}

	hintStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Dim)).Italic(true)

	if !m.handler.ShowLyrics() {
		hint := "press l to show lyrics"
		return centerBlock([]string{centerText(hintStyle.Render(hint), runewidth.StringWidth(hint), width)}, height)
	}

	if len(m.handler.Document()) == 0 {
		status := m.handler.Status()
		switch m.handler.Phase() {
		case lyrics.PhaseSearching, lyrics.PhaseFetchingContent:
			text := m.spinner.View() + " " + status
			return centerBlock([]string{centerText(text, runewidth.StringWidth(status)+2, width)}, height)
		}
		if status == "" {
			return nil
		}
		return centerBlock([]string{centerText(hintStyle.Render(status), runewidth.StringWidth(status), width)}, height)
	}

	renderer := NewTextRenderer(palette, m.layout, m.handler.Session().CurrentLine, m.lyricTime())
	return renderer.Render(m.handler.Document(), m.anim.Position)
}

// centerBlock places rows in the vertical middle of height rows.
func centerBlock(rows []string, height int) []string {
	out := make([]string, height)
	top := (height - len(rows)) / 2
	if top < 0 {
		top = 0
	}
	for i, row := range rows {
		if top+i < height {
			out[top+i] = row
		}
	}
	return out
}

func gradientText(text string, gradient []string) string {
	runes := []rune(text)
	if len(gradient) == 0 || len(runes) == 0 {
		return lipgloss.NewStyle().Bold(true).Render(text)
	}

	var b strings.Builder
	for i, r := range runes {
		index := i * (len(gradient) - 1) / max(len(runes)-1, 1)
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[index])).Bold(true)
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

func truncate(text string, width int) string {
	if runewidth.StringWidth(text) <= width {
		return text
	}
	return runewidth.Truncate(text, width, "…")
}

func formatTime(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
