package main

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog/log"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/i18n"
	"karolbroda.com/lyricsync/internal/kugou"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/player"
)

// openStore builds the configured cache backend. The returned cleanup is
// never nil. A redis backend that cannot be reached falls back to disk.
func openStore(cfg *config.Config) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheNone:
		return nil, func() {}, nil

	case config.CacheRedis:
		rc, err := cache.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err == nil {
			return rc, func() { rc.Close() }, nil
		}
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, using disk cache")
	}

	dc, err := openDiskCache(cfg)
	if err != nil {
		return nil, func() {}, err
	}
	return dc, func() {}, nil
}

func openDiskCache(cfg *config.Config) (*cache.DiskCache, error) {
	dc, err := cache.NewDiskCache(cfg.CacheDir)
	if err != nil {
		if dc == nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
		log.Warn().Err(err).Msg("cache directory unusable, caching in memory only")
	}
	if cfg.CacheTTL > 0 {
		dc.SetTTL(cfg.CacheTTL)
	}
	return dc, nil
}

func newClient(cfg *config.Config) (*kugou.Client, error) {
	return kugou.NewClient(cfg.APIBaseURL, cfg.HTTPTimeout)
}

// newHandler wires the kugou client, the cache and the localizer into a
// lyrics handler.
func newHandler(cfg *config.Config, store cache.Store) (*lyrics.Handler, error) {
	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}
	return lyrics.NewHandler(lyrics.HandlerConfig{
		Getter:    client,
		Localizer: i18n.New(cfg.Language),
		Store:     store,
	}), nil
}

func connectPlayer(cfg *config.Config) (*dbus.Conn, *player.Service, error) {
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	playerService, err := player.NewService(bus, cfg.MprisService)
	if err != nil {
		bus.Close()
		return nil, nil, fmt.Errorf("failed to create player service: %w", err)
	}
	return bus, playerService, nil
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	minutes := int(d.Minutes())
	return fmt.Sprintf("%d:%02d", minutes, int(d.Seconds())-minutes*60)
}
