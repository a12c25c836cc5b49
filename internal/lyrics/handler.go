package lyrics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/i18n"
	"karolbroda.com/lyricsync/internal/kugou"
)

// Getter is the injected fetch function: it GETs url and decodes the JSON
// body into out.
type Getter interface {
	Get(ctx context.Context, url string, out any) error
}

type Localizer interface {
	T(key string) string
}

type Toggle string

const (
	On  Toggle = "on"
	Off Toggle = "off"
)

// Settings are read once per fetch. Unset toggles are neither on nor off.
type Settings struct {
	DesktopLyrics     Toggle
	APIMode           Toggle
	LyricsTranslation Toggle
	NoCache           bool
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSearching
	PhaseFetchingContent
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSearching:
		return "searching"
	case PhaseFetchingContent:
		return "fetching"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Request is a snapshot of everything a fetch needs from the handler.
type Request struct {
	Seq      uint64
	Hash     string
	Settings Settings
	Visible  bool
}

// Result is the outcome of Fetch, applied on the owning goroutine.
type Result struct {
	Seq        uint64
	Hash       string
	Skipped    bool
	StatusKey  string
	Raw        string
	Translate  bool
	SyncOffset float64
	FromCache  bool
	Err        error
}

// Handler owns one lyric document and its display state. It is not safe
// for concurrent use; only Fetch may run off the owning goroutine.
type Handler struct {
	getter Getter
	t      Localizer
	store  cache.Store
	layout Layout

	doc     Document
	raw     string
	show    bool
	session Session
	status  string
	phase   atomic.Int32
	seq     atomic.Uint64
	hash    string
	offset  float64
}

type HandlerConfig struct {
	Getter    Getter
	Localizer Localizer
	Store     cache.Store
	Layout    Layout
}

func NewHandler(cfg HandlerConfig) *Handler {
	t := cfg.Localizer
	if t == nil {
		t = i18n.New("")
	}
	h := &Handler{
		getter: cfg.Getter,
		t:      t,
		store:  cfg.Store,
		layout: cfg.Layout,
	}
	h.status = t.T(i18n.KeyNoLyrics)
	return h
}

// SetLayout swaps the measurement source, e.g. once the UI exists.
func (h *Handler) SetLayout(layout Layout) {
	h.layout = layout
}

func (h *Handler) Document() Document { return h.doc }
func (h *Handler) Raw() string        { return h.raw }
func (h *Handler) ShowLyrics() bool   { return h.show }
func (h *Handler) Status() string     { return h.status }
func (h *Handler) Phase() Phase       { return Phase(h.phase.Load()) }
func (h *Handler) Session() Session   { return h.session }
func (h *Handler) Hash() string       { return h.hash }
func (h *Handler) SyncOffset() float64 {
	return h.offset
}

// ScrollAmount returns the current offset; false means none was computed.
func (h *Handler) ScrollAmount() (float64, bool) {
	return h.session.Scroll, h.session.Scrolled
}

func (h *Handler) ToggleLyrics() bool {
	h.show = !h.show
	h.status = h.t.T(i18n.KeyFetching)
	return h.show
}

// GetLyrics runs a whole fetch sequence synchronously. Failures only
// change the status message.
func (h *Handler) GetLyrics(ctx context.Context, hash string, settings Settings) {
	h.Apply(h.Fetch(ctx, h.Begin(hash, settings)))
}

// Begin stamps a new request. Results of earlier requests are discarded
// by Apply once this has been called.
func (h *Handler) Begin(hash string, settings Settings) Request {
	return Request{
		Seq:      h.seq.Add(1),
		Hash:     hash,
		Settings: settings,
		Visible:  h.show,
	}
}

// Fetch performs the network part of a request. It touches only the
// atomic phase and sequence, so it may run on any goroutine.
func (h *Handler) Fetch(ctx context.Context, req Request) Result {
	res := Result{
		Seq:       req.Seq,
		Hash:      req.Hash,
		Translate: req.Settings.LyricsTranslation == On,
	}

	logger := logger().With().Str("hash", req.Hash).Uint64("seq", req.Seq).Logger()

	if !req.Visible && req.Settings.DesktopLyrics == Off && req.Settings.APIMode == Off {
		logger.Debug().Msg("lyrics panel hidden, skipping fetch")
		res.Skipped = true
		return res
	}

	if h.store != nil && !req.Settings.NoCache && req.Hash != "" {
		entry, err := h.store.Get(ctx, req.Hash)
		if err == nil && entry != nil && entry.Raw != "" {
			logger.Info().Msg("lyrics cache hit")
			res.Raw = entry.Raw
			res.SyncOffset = entry.SyncOffset
			res.FromCache = true
			return res
		}
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			logger.Warn().Err(err).Msg("lyrics cache read failed")
		}
	}

	h.advance(req, PhaseSearching)

	if h.getter == nil {
		res.StatusKey = i18n.KeyFailed
		res.Err = errors.New("no fetch function configured")
		return res
	}

	var search kugou.SearchResponse
	err := h.getter.Get(ctx, kugou.SearchPath(req.Hash), &search)
	if err != nil {
		logger.Error().Err(err).Msg("lyric search failed")
		res.StatusKey = i18n.KeyFailed
		res.Err = fmt.Errorf("lyric search: %w", err)
		return res
	}
	if search.Status != kugou.StatusOK || len(search.Candidates) == 0 {
		logger.Info().Int("status", search.Status).Int("candidates", len(search.Candidates)).Msg("no lyrics available")
		res.StatusKey = i18n.KeyNoLyrics
		return res
	}

	candidate := search.Candidates[0]
	h.advance(req, PhaseFetchingContent)

	var content kugou.LyricResponse
	err = h.getter.Get(ctx, kugou.LyricPath(string(candidate.ID), candidate.AccessKey), &content)
	if err != nil {
		logger.Error().Err(err).Msg("lyric content fetch failed")
		res.StatusKey = i18n.KeyFailed
		res.Err = fmt.Errorf("lyric content: %w", err)
		return res
	}
	if content.Status != kugou.StatusOK {
		logger.Warn().Int("status", content.Status).Msg("lyric content rejected")
		res.StatusKey = i18n.KeyFailed
		return res
	}

	logger.Info().Str("candidate", string(candidate.ID)).Msg("lyrics fetched")
	res.Raw = content.DecodeContent

	if h.store != nil && req.Hash != "" {
		// a forced refetch keeps the offset the user already dialed in
		if previous, getErr := h.store.Get(ctx, req.Hash); getErr == nil && previous != nil {
			res.SyncOffset = previous.SyncOffset
		}
		err = h.store.Set(ctx, req.Hash, &cache.LyricEntry{
			CandidateID: string(candidate.ID),
			AccessKey:   candidate.AccessKey,
			Song:        candidate.Song,
			Singer:      candidate.Singer,
			Raw:         content.DecodeContent,
			SyncOffset:  res.SyncOffset,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to cache lyrics")
		}
	}

	return res
}

// Apply commits a fetch result. It returns false when the result was
// stale or carried nothing to apply.
func (h *Handler) Apply(res Result) bool {
	latest := h.seq.Load()
	if res.Seq != latest {
		l := logger()
		l.Debug().Uint64("seq", res.Seq).Uint64("latest", latest).Msg("dropping stale lyrics result")
		return false
	}
	if res.Skipped {
		return false
	}
	if res.StatusKey != "" {
		h.status = h.t.T(res.StatusKey)
		if res.StatusKey == i18n.KeyFailed {
			h.phase.Store(int32(PhaseError))
		} else {
			h.phase.Store(int32(PhaseIdle))
		}
		return false
	}

	h.doc = Parse(res.Raw, res.Translate)
	h.raw = res.Raw
	h.hash = res.Hash
	h.offset = res.SyncOffset
	h.session = Session{}
	h.phase.Store(int32(PhaseReady))
	h.session = CenterFirstLine(h.session, h.layout)
	return true
}

// advance moves the phase forward unless a newer request superseded req.
func (h *Handler) advance(req Request, phase Phase) {
	if h.seq.Load() == req.Seq {
		h.phase.Store(int32(phase))
	}
}

// SetTranslation re-parses the stored raw text with or without the
// translation overlay and re-derives highlight state at seconds.
func (h *Handler) SetTranslation(on bool, seconds float64) {
	if strings.TrimSpace(h.raw) == "" {
		return
	}
	h.doc = Parse(h.raw, on)
	h.ResetHighlight(seconds)
}

// SetSyncOffset records the per-track offset and persists it when a
// store is configured.
func (h *Handler) SetSyncOffset(ctx context.Context, offset float64) {
	h.offset = offset
	if h.store == nil || h.hash == "" {
		return
	}
	entry, err := h.store.Get(ctx, h.hash)
	if err != nil {
		return
	}
	entry.SyncOffset = offset
	if err := h.store.Set(ctx, h.hash, entry); err != nil {
		l := logger()
		l.Warn().Err(err).Msg("failed to persist sync offset")
	}
}

func (h *Handler) Highlight(seconds float64, scroll bool) {
	h.session = Highlight(h.doc, h.session, h.layout, seconds, scroll)
}

func (h *Handler) ResetHighlight(seconds float64) {
	h.session = ResetHighlight(h.doc, h.session, h.layout, seconds)
}

func (h *Handler) CurrentLineText(seconds float64) string {
	return CurrentLineText(h.doc, seconds)
}

func (h *Handler) CenterFirstLine() {
	h.session = CenterFirstLine(h.session, h.layout)
}
