package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
	"karolbroda.com/lyricsync/internal/track"
)

const (
	fetchTimeout    = 15 * time.Second
	shutdownTimeout = 5 * time.Second
	// a forward jump past one poll interval plus this counts as a seek
	seekTolerance = 1.5
)

type Player interface {
	Poll() error
	GetState() player.State
}

type ServerConfig struct {
	Addr    string
	Player  Player
	Handler *lyrics.Handler
	// Settings are forced into api mode so a hidden panel still fetches.
	Settings       lyrics.Settings
	SyncOffset     float64
	NoCache        bool
	Interval       time.Duration
	AllowedOrigins []string
}

// Server runs the sync loop and publishes its state over HTTP. The loop
// goroutine is the only one that touches the lyrics handler.
type Server struct {
	addr     string
	player   Player
	handler  *lyrics.Handler
	settings lyrics.Settings
	offset   float64
	noCache  bool
	interval time.Duration

	state   *State
	router  http.Handler
	reloads chan *config.Config

	track *track.Info
	// player position at the previous step, for seek detection
	lastPos float64
	reset   bool
}

func NewServer(cfg ServerConfig) *Server {
	settings := cfg.Settings
	settings.APIMode = lyrics.On

	interval := cfg.Interval
	if interval <= 0 {
		interval = config.PollInterval
	}

	handler := cfg.Handler
	if handler == nil {
		handler = lyrics.NewHandler(lyrics.HandlerConfig{})
	}

	state := NewState()
	return &Server{
		addr:     cfg.Addr,
		player:   cfg.Player,
		handler:  handler,
		settings: settings,
		offset:   cfg.SyncOffset,
		noCache:  cfg.NoCache,
		interval: interval,
		state:    state,
		router:   NewRouter(state, cfg.AllowedOrigins),
		reloads:  make(chan *config.Config, 1),
	}
}

func (s *Server) State() *State         { return s.state }
func (s *Server) Handler() http.Handler { return s.router }

// Reload hands a new config to the sync loop. Only the newest pending
// config is kept.
func (s *Server) Reload(cfg *config.Config) {
	select {
	case s.reloads <- cfg:
	default:
		select {
		case <-s.reloads:
		default:
		}
		s.reloads <- cfg
	}
}

// Run serves HTTP on the configured address and runs the sync loop until
// ctx is done.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l := logger()
		l.Info().Str("addr", listener.Addr().String()).Msg("api listening")
		errCh <- srv.Serve(listener)
	}()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		s.loop(ctx)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	<-loopDone
	return err
}

func (s *Server) loop(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cfg := <-s.reloads:
			s.applyConfig(cfg)
		case <-ticker.C:
			s.Step(ctx)
		}
	}
}

// Step runs one sync iteration: poll, refetch on a track change, advance
// highlighting, publish.
func (s *Server) Step(ctx context.Context) {
	if s.player == nil {
		return
	}

	if err := s.player.Poll(); err != nil {
		l := logger()
		l.Trace().Err(err).Msg("player poll failed")
	}
	state := s.player.GetState()

	if !sameTrack(s.track, state.Track) {
		// hash resolution writes to the track, so keep a private copy
		s.track = nil
		if state.Track != nil {
			t := *state.Track
			s.track = &t
		}
		s.state.Clear()
		s.load(ctx)
	} else if s.seeked(state.Position) {
		s.reset = true
	}
	s.lastPos = state.Position

	// a failed fetch leaves the previous track's lines in the handler
	if doc, _ := s.state.Document(); len(doc) > 0 {
		seconds := state.Position + s.currentOffset()
		if s.reset {
			s.handler.ResetHighlight(seconds)
			s.reset = false
		} else {
			s.handler.Highlight(seconds, true)
		}
		s.state.Refresh(s.handler.Document())
	}
	s.publish(state)
}

// seeked reports a backward move or a forward jump larger than one poll
// can explain.
func (s *Server) seeked(pos float64) bool {
	if pos < s.lastPos {
		return true
	}
	return pos-s.lastPos > s.interval.Seconds()+seekTolerance
}

func (s *Server) load(ctx context.Context) {
	if s.track == nil || !s.track.IsValid() {
		return
	}

	l := logger()
	hash, err := s.track.ResolveHash()
	if err != nil {
		l.Warn().Err(err).Str("track", s.track.Label()).Msg("cannot determine track hash")
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	settings := s.settings
	settings.NoCache = s.noCache
	s.handler.GetLyrics(fetchCtx, hash, settings)

	if doc := s.handler.Document(); len(doc) > 0 && s.handler.Hash() == hash {
		revision := s.state.Load(hash, doc)
		s.reset = true
		l.Info().Str("track", s.track.Label()).Str("revision", revision).Int("lines", len(doc)).Msg("lyrics published")
	}
}

func (s *Server) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}

	next := cfg.Settings()
	next.APIMode = lyrics.On
	translationChanged := next.LyricsTranslation != s.settings.LyricsTranslation
	offsetChanged := cfg.SyncOffset != s.offset
	s.settings = next
	s.offset = cfg.SyncOffset

	if doc, _ := s.state.Document(); len(doc) == 0 {
		return
	}
	seconds := s.lastPos + s.currentOffset()
	switch {
	case translationChanged:
		s.handler.SetTranslation(next.LyricsTranslation == lyrics.On, seconds)
		s.state.Load(s.handler.Hash(), s.handler.Document())
	case offsetChanged:
		s.handler.ResetHighlight(seconds)
		s.state.Refresh(s.handler.Document())
	}
}

// currentOffset prefers the per-track offset saved with the lyrics.
func (s *Server) currentOffset() float64 {
	if offset := s.handler.SyncOffset(); offset != 0 {
		return offset
	}
	return s.offset
}

func (s *Server) publish(state player.State) {
	session := s.handler.Session()
	status := s.handler.Status()
	phase := s.handler.Phase()
	offset := s.currentOffset()
	// the handler keeps the previous document when a fetch fails, so go by
	// what was published for this track
	doc, _ := s.state.Document()
	hasDoc := len(doc) > 0
	trk := s.track

	s.state.Update(func(snap *Snapshot) {
		snap.Track = trk
		snap.Phase = phase
		snap.Status = status
		snap.Position = state.Position
		snap.Offset = offset
		snap.Playing = state.Playing
		snap.CurrentLine = -1
		if hasDoc {
			snap.CurrentLine = session.CurrentLine
		}
	})
}

func sameTrack(a *track.Info, b *track.Info) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.IsSameTrack(b)
}
