package player

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"karolbroda.com/lyricsync/internal/track"
)

const (
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisRootIface   = "org.mpris.MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
	mprisPrefix      = "org.mpris.MediaPlayer2."

	// jumps larger than this between polls count as a seek
	seekThreshold = 1.5
)

type Event int

const (
	EventTrackChanged Event = iota
	EventSeeked
	EventPlaybackStateChanged
)

func (e Event) String() string {
	switch e {
	case EventTrackChanged:
		return "track-changed"
	case EventSeeked:
		return "seeked"
	case EventPlaybackStateChanged:
		return "playback-state"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

type EventData struct {
	Type     Event
	Track    *track.Info
	Position float64
	Playing  bool
}

// State is the last known playback state. Position is in seconds.
type State struct {
	Track    *track.Info
	Position float64
	Playing  bool

	lastUpdate   time.Time
	lastPosition float64
}

// Estimate extrapolates the position to now while playing, so callers can
// tick faster than the player reports.
func (s *State) Estimate(now time.Time) float64 {
	if !s.Playing || s.lastUpdate.IsZero() {
		return s.Position
	}
	return s.lastPosition + now.Sub(s.lastUpdate).Seconds()
}

// DetectSeek reports whether pos is too far from where playback should be.
func (s *State) DetectSeek(pos float64, now time.Time) bool {
	if s.lastUpdate.IsZero() {
		return false
	}
	diff := pos - s.Estimate(now)
	if diff < 0 {
		diff = -diff
	}
	return diff > seekThreshold
}

func (s *State) UpdatePosition(pos float64, now time.Time) {
	s.Position = pos
	s.lastPosition = pos
	s.lastUpdate = now
}

type Service struct {
	bus        *dbus.Conn
	service    string
	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	eventChan  chan EventData
	state      *State
	mu         sync.RWMutex
}

func logger() zerolog.Logger {
	return log.With().Str("component", "player").Logger()
}

func NewService(bus *dbus.Conn, mprisService string) (*Service, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if mprisService == "" {
		return nil, errors.New("empty mpris service name")
	}

	return &Service{
		bus:       bus,
		service:   mprisService,
		eventChan: make(chan EventData, 16),
		state:     &State{},
	}, nil
}

func (s *Service) Name() string {
	return s.service
}

// Start subscribes to property and seek signals. Polling still works when
// this fails.
func (s *Service) Start() error {
	s.signalChan = make(chan *dbus.Signal, 10)
	s.stopChan = make(chan struct{})

	s.bus.Signal(s.signalChan)

	matches := []string{
		fmt.Sprintf("type='signal',sender='%s',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'", s.service, mprisPath),
		fmt.Sprintf("type='signal',sender='%s',interface='%s',member='Seeked',path='%s'", s.service, mprisPlayerIface, mprisPath),
	}
	for _, match := range matches {
		if err := s.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, match).Err; err != nil {
			return fmt.Errorf("failed to add signal match: %w", err)
		}
	}

	go s.signalLoop()

	return nil
}

func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		if s.stopChan != nil {
			close(s.stopChan)
		}
	})
}

func (s *Service) Events() <-chan EventData {
	return s.eventChan
}

func (s *Service) GetCurrentTrack() (*track.Info, error) {
	prop, err := s.bus.Object(s.service, mprisPath).GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	metadata, ok := prop.Value().(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", prop.Value())
	}

	info := TrackFromMetadata(metadata)
	if !info.IsValid() {
		return nil, fmt.Errorf("metadata does not identify a track (title=%q, url=%q)", info.Title, info.URL)
	}
	return info, nil
}

func (s *Service) GetCurrentPosition() (float64, error) {
	prop, err := s.bus.Object(s.service, mprisPath).GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}

	micros, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}
	return microsToSeconds(micros), nil
}

func (s *Service) GetPlaying() (bool, error) {
	prop, err := s.bus.Object(s.service, mprisPath).GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return false, fmt.Errorf("failed to get playback status: %w", err)
	}
	status, _ := prop.Value().(string)
	return status == "Playing", nil
}

// Poll refreshes state from the player and emits change events.
func (s *Service) Poll() error {
	trk, err := s.GetCurrentTrack()
	if err != nil {
		return err
	}
	pos, err := s.GetCurrentPosition()
	if err != nil {
		return err
	}
	playing, err := s.GetPlaying()
	if err != nil {
		l := logger()
		l.Debug().Err(err).Msg("playback status unavailable")
		playing = true
	}

	now := time.Now()

	s.mu.Lock()
	changed := !trk.IsSameTrack(s.state.Track)
	seeked := !changed && s.state.Playing == playing && s.state.DetectSeek(pos, now)
	stateChanged := s.state.Playing != playing
	if changed {
		s.state.Track = trk
	}
	s.state.Playing = playing
	s.state.UpdatePosition(pos, now)
	s.mu.Unlock()

	switch {
	case changed:
		s.emitEvent(EventData{Type: EventTrackChanged, Track: trk, Position: pos, Playing: playing})
	case seeked:
		s.emitEvent(EventData{Type: EventSeeked, Position: pos, Playing: playing})
	case stateChanged:
		s.emitEvent(EventData{Type: EventPlaybackStateChanged, Position: pos, Playing: playing})
	}

	return nil
}

// GetState returns a copy of the state with the position extrapolated.
func (s *Service) GetState() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := *s.state
	state.Position = s.state.Estimate(time.Now())
	if s.state.Track != nil {
		trackCopy := *s.state.Track
		state.Track = &trackCopy
	}
	return state
}

func (s *Service) signalLoop() {
	for {
		select {
		case sig, ok := <-s.signalChan:
			if !ok {
				return
			}
			s.handleSignal(sig)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Service) handleSignal(sig *dbus.Signal) {
	if sig == nil {
		return
	}

	switch sig.Name {
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		s.handlePropertiesChanged(sig)
	case mprisPlayerIface + ".Seeked":
		s.handleSeeked(sig)
	}
}

func (s *Service) handlePropertiesChanged(sig *dbus.Signal) {
	if len(sig.Body) < 2 {
		return
	}
	if iface, ok := sig.Body[0].(string); !ok || iface != mprisPlayerIface {
		return
	}
	changed, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return
	}

	now := time.Now()

	if variant, exists := changed["Metadata"]; exists {
		if metadata, ok := variant.Value().(map[string]dbus.Variant); ok {
			info := TrackFromMetadata(metadata)
			if info.IsValid() {
				s.mu.Lock()
				same := info.IsSameTrack(s.state.Track)
				s.state.Track = info
				if !same {
					s.state.UpdatePosition(0, now)
				}
				s.mu.Unlock()

				if !same {
					s.emitEvent(EventData{Type: EventTrackChanged, Track: info})
				}
			}
		}
	}

	if variant, exists := changed["PlaybackStatus"]; exists {
		if status, ok := variant.Value().(string); ok {
			playing := status == "Playing"
			s.mu.Lock()
			pos := s.state.Estimate(now)
			s.state.Playing = playing
			s.state.UpdatePosition(pos, now)
			s.mu.Unlock()

			s.emitEvent(EventData{Type: EventPlaybackStateChanged, Playing: playing, Position: pos})
		}
	}
}

func (s *Service) handleSeeked(sig *dbus.Signal) {
	if len(sig.Body) < 1 {
		return
	}
	micros, ok := sig.Body[0].(int64)
	if !ok {
		return
	}
	pos := microsToSeconds(micros)

	s.mu.Lock()
	s.state.UpdatePosition(pos, time.Now())
	playing := s.state.Playing
	s.mu.Unlock()

	s.emitEvent(EventData{Type: EventSeeked, Position: pos, Playing: playing})
}

func (s *Service) emitEvent(event EventData) {
	select {
	case s.eventChan <- event:
	default:
		l := logger()
		l.Debug().Stringer("event", event.Type).Msg("event channel full, dropping")
	}
}

// ListPlayers returns the MPRIS service names on the bus.
func ListPlayers(bus *dbus.Conn) ([]string, error) {
	var names []string
	err := bus.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}
	return FilterPlayers(names), nil
}

func FilterPlayers(names []string) []string {
	var players []string
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			players = append(players, name)
		}
	}
	return players
}

// Identity is the player's display name, or "" when it does not say.
func Identity(bus *dbus.Conn, service string) string {
	variant, err := bus.Object(service, mprisPath).GetProperty(mprisRootIface + ".Identity")
	if err != nil {
		return ""
	}
	identity, _ := variant.Value().(string)
	return identity
}

func microsToSeconds(micros int64) float64 {
	if micros < 0 {
		return 0
	}
	return float64(micros) / 1e6
}
