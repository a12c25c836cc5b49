package ui

import (
	"context"
	"errors"
	"math"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/i18n"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/track"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refreshArt()
		m.measure()
		m.resync()
		m.anim.Snap(m.anim.Target)
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case PlayerEventMsg:
		return m.handlePlayerEvent(msg.Event)

	case ArtworkFetchedMsg:
		return m.handleArtworkFetched(msg)

	case LyricsFetchedMsg:
		return m.handleLyricsFetched(msg)

	case startMsg:
		return m, m.fetchLyrics(false)

	case ConfigChangedMsg:
		return m.handleConfigChanged(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m.handleTick()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		m.Stop()
		return m, tea.Quit

	case "l":
		m.handler.ToggleLyrics()
		m.measure()
		if !m.handler.ShowLyrics() {
			return m, nil
		}
		return m, m.fetchLyrics(false)

	case "r":
		return m, m.fetchLyrics(true)

	case "t":
		on := m.settings.LyricsTranslation != lyrics.On
		m.setTranslation(on)
		return m, nil

	case "+", "=", "up":
		return m.adjustOffset(m.offset + 0.1)

	case "-", "down":
		return m.adjustOffset(m.offset - 0.1)

	case "right":
		return m.adjustOffset(m.offset + 0.5)

	case "left":
		return m.adjustOffset(m.offset - 0.5)

	case "0":
		return m.adjustOffset(0)

	case "tab", "i":
		m.hideHeader = !m.hideHeader
		m.measure()
		m.resync()
		return m, nil
	}

	return m, nil
}

func (m Model) adjustOffset(offset float64) (tea.Model, tea.Cmd) {
	// keep the offset on a 0.1s grid so repeated steps do not drift
	m.offset = math.Round(offset*10) / 10
	m.handler.SetSyncOffset(context.Background(), m.offset)
	m.resync()
	return m, nil
}

func (m *Model) setTranslation(on bool) {
	if on {
		m.settings.LyricsTranslation = lyrics.On
	} else {
		m.settings.LyricsTranslation = lyrics.Off
	}
	m.handler.SetTranslation(on, m.lyricTime())
	m.measure()
	m.resync()
}

func (m Model) handlePlayerEvent(event player.EventData) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenForPlayerEvents()}

	switch event.Type {
	case player.EventTrackChanged:
		return m.handleTrackChange(event.Track, event.Position, cmds)

	case player.EventSeeked:
		m.position = event.Position
		m.resync()

	case player.EventPlaybackStateChanged:
		m.playing = event.Playing
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleTrackChange(newTrack *track.Info, position float64, cmds []tea.Cmd) (tea.Model, tea.Cmd) {
	m.resetForNewTrack()
	m.track = newTrack
	m.position = position

	if newTrack == nil || !newTrack.IsValid() {
		return m, tea.Batch(cmds...)
	}

	l := logger()
	l.Info().Str("track", newTrack.Label()).Msg("track changed")

	if newTrack.ArtworkURL != "" {
		cmds = append(cmds, fetchArtworkCmd(newTrack.ArtworkURL))
	}
	cmds = append(cmds, m.fetchLyrics(false))

	return m, tea.Batch(cmds...)
}

// fetchLyrics cancels any fetch in flight and starts a new one. The
// network part runs as a command; the result comes back as a message.
func (m *Model) fetchLyrics(refresh bool) tea.Cmd {
	if m.track == nil && m.hashOverride == "" {
		return nil
	}
	if m.cancelFetch != nil {
		m.cancelFetch()
	}

	settings := m.settings
	settings.NoCache = m.noCache || refresh

	// the command resolves the hash on a copy so the view never races it
	var trk track.Info
	if m.track != nil {
		trk = *m.track
	}
	override := m.hashOverride
	req := m.handler.Begin(override, settings)

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFetch = cancel

	handler := m.handler
	return func() tea.Msg {
		if req.Hash == "" {
			hash, err := trk.ResolveHash()
			if err != nil {
				l := logger()
				l.Warn().Err(err).Str("track", trk.Label()).Msg("cannot determine track hash")
				return LyricsFetchedMsg{Result: lyrics.Result{Seq: req.Seq, StatusKey: i18n.KeyNoLyrics, Err: err}}
			}
			req.Hash = hash
		}
		return LyricsFetchedMsg{Result: handler.Fetch(ctx, req)}
	}
}

func (m Model) handleLyricsFetched(msg LyricsFetchedMsg) (tea.Model, tea.Cmd) {
	res := msg.Result
	if errors.Is(res.Err, context.Canceled) {
		return m, nil
	}

	if !m.handler.Apply(res) {
		return m, nil
	}

	m.offset = m.handler.SyncOffset()
	if m.offset == 0 {
		m.offset = m.defaultOffset
	}

	m.measure()
	m.handler.CenterFirstLine()
	if scroll, ok := m.handler.ScrollAmount(); ok {
		m.anim.Snap(scroll)
	}
	m.resync()

	return m, nil
}

func (m Model) handleArtworkFetched(msg ArtworkFetchedMsg) (tea.Model, tea.Cmd) {
	// artwork for a track we already left
	if m.track == nil || m.track.ArtworkURL != msg.URL {
		return m, nil
	}

	if msg.Err != nil {
		l := logger()
		l.Debug().Err(msg.Err).Msg("artwork unavailable")
		return m, nil
	}

	m.image = msg.Image
	if msg.Palette != nil {
		m.palette = msg.Palette
	}
	m.refreshArt()
	m.measure()
	m.resync()
	return m, nil
}

func (m Model) handleConfigChanged(msg ConfigChangedMsg) (tea.Model, tea.Cmd) {
	if msg.Config == nil {
		return m, nil
	}

	next := msg.Config.Settings()
	translationChanged := next.LyricsTranslation != m.settings.LyricsTranslation
	m.settings = next
	m.defaultOffset = msg.Config.SyncOffset

	if translationChanged {
		m.setTranslation(next.LyricsTranslation == lyrics.On)
	}
	return m, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	m.tickCount++

	if m.player != nil {
		if err := m.player.Poll(); err != nil {
			l := logger()
			l.Trace().Err(err).Msg("player poll failed")
		}
		state := m.player.GetState()
		m.position = state.Position
		m.playing = state.Playing
	}

	m.handler.Highlight(m.lyricTime(), true)
	if scroll, ok := m.handler.ScrollAmount(); ok {
		m.anim.SetTarget(scroll)
	}
	m.anim.Update()

	return m, tickCmd()
}

func fetchArtworkCmd(artworkURL string) tea.Cmd {
	return func() tea.Msg {
		img, err := artwork.Fetch(context.Background(), artworkURL)
		if err != nil {
			return ArtworkFetchedMsg{URL: artworkURL, Err: err}
		}
		return ArtworkFetchedMsg{
			URL:     artworkURL,
			Image:   img,
			Palette: artwork.ExtractPalette(img),
		}
	}
}
