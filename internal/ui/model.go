package ui

import (
	"context"
	"image"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"karolbroda.com/lyricsync/internal/artwork"
	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/track"
)

// Player is the playback source the model polls.
type Player interface {
	Poll() error
	GetState() player.State
	Events() <-chan player.EventData
	Stop()
}

type TickMsg time.Time

// startMsg kicks off the first fetch when a hash was given up front.
type startMsg struct{}

type PlayerEventMsg struct {
	Event player.EventData
}

type ArtworkFetchedMsg struct {
	URL     string
	Image   image.Image
	Palette *artwork.Palette
	Err     error
}

type LyricsFetchedMsg struct {
	Result lyrics.Result
}

// ConfigChangedMsg carries a reloaded config file into the program.
type ConfigChangedMsg struct {
	Config *config.Config
}

type Model struct {
	player  Player
	handler *lyrics.Handler
	layout  *screenLayout

	settings      lyrics.Settings
	noCache       bool
	hashOverride  string
	defaultOffset float64
	hideHeader    bool

	track       *track.Info
	position    float64
	playing     bool
	offset      float64
	image       image.Image
	artLines    []string
	palette     *artwork.Palette
	spinner     spinner.Model
	anim        AnimState
	cancelFetch context.CancelFunc

	quitting  bool
	width     int
	height    int
	tickCount int
}

type ModelConfig struct {
	Player  Player
	Handler *lyrics.Handler
	// Settings seed the toggles; the model owns them afterwards.
	Settings   lyrics.Settings
	NoCache    bool
	Hash       string
	SyncOffset float64
	HideHeader bool
	// ShowLyrics opens the lyrics panel on start.
	ShowLyrics bool
}

func logger() zerolog.Logger {
	return log.With().Str("component", "ui").Logger()
}

func NewModel(cfg ModelConfig) Model {
	layout := newScreenLayout()

	handler := cfg.Handler
	if handler == nil {
		handler = lyrics.NewHandler(lyrics.HandlerConfig{})
	}
	handler.SetLayout(layout)
	if cfg.ShowLyrics && !handler.ShowLyrics() {
		handler.ToggleLyrics()
	}

	palette := artwork.DefaultPalette()

	s := spinner.New()
	s.Spinner = spinner.MiniDot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(palette.Translation))

	return Model{
		player:        cfg.Player,
		handler:       handler,
		layout:        layout,
		settings:      cfg.Settings,
		noCache:       cfg.NoCache,
		hashOverride:  track.NormalizeHash(cfg.Hash),
		defaultOffset: cfg.SyncOffset,
		offset:        cfg.SyncOffset,
		hideHeader:    cfg.HideHeader,
		palette:       palette,
		spinner:       s,
		width:         80,
		height:        24,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(),
		m.spinner.Tick,
		m.listenForPlayerEvents(),
	}
	if m.hashOverride != "" {
		cmds = append(cmds, func() tea.Msg { return startMsg{} })
	}
	return tea.Batch(cmds...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(config.PollInterval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) listenForPlayerEvents() tea.Cmd {
	if m.player == nil {
		return nil
	}

	events := m.player.Events()
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return PlayerEventMsg{Event: event}
	}
}

// lyricTime is the playback position the lyrics are matched against.
func (m Model) lyricTime() float64 {
	return m.position + m.offset
}

// measure lays the current document out for the current window.
func (m *Model) measure() {
	viewport := m.height - len(m.renderHeader(m.palette, m.width))
	if viewport < 0 {
		viewport = 0
	}
	m.layout.Measure(m.handler.Document(), m.width, viewport, m.handler.ShowLyrics())
}

// resync recomputes highlight state from scratch, after a seek or an
// offset change.
func (m *Model) resync() {
	m.handler.ResetHighlight(m.lyricTime())
	if scroll, ok := m.handler.ScrollAmount(); ok {
		m.anim.SetTarget(scroll)
	}
}

func (m *Model) resetForNewTrack() {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
	m.image = nil
	m.artLines = nil
	m.palette = artwork.DefaultPalette()
	m.offset = m.defaultOffset
	m.anim = AnimState{}
}

func (m Model) Track() *track.Info           { return m.track }
func (m Model) Position() float64            { return m.position }
func (m Model) SyncOffset() float64          { return m.offset }
func (m Model) Settings() lyrics.Settings    { return m.settings }
func (m Model) Handler() *lyrics.Handler     { return m.handler }
func (m Model) Palette() *artwork.Palette    { return m.palette }
func (m Model) HideHeader() bool             { return m.hideHeader }
func (m Model) IsQuitting() bool             { return m.quitting }
func (m Model) ScrollPosition() float64      { return m.anim.Position }
func (m Model) Layout() lyrics.Layout        { return m.layout }
func (m Model) Size() (width int, height int) { return m.width, m.height }

func (m *Model) Stop() {
	if m.cancelFetch != nil {
		m.cancelFetch()
	}
	if m.player != nil {
		m.player.Stop()
	}
}
