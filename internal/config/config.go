package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"karolbroda.com/lyricsync/internal/lyrics"
)

const (
	DefaultMprisService = "org.mpris.MediaPlayer2.spotify"
	DefaultAPIBaseURL   = "http://localhost:3000"
	DefaultHTTPTimeout  = 10 * time.Second
	DefaultListenAddr   = "127.0.0.1:8765"
	DefaultLogLevel     = "info"
	PollInterval        = 100 * time.Millisecond

	CacheDisk  = "disk"
	CacheRedis = "redis"
	CacheNone  = "none"

	appDirName     = "lyricsync"
	configFileName = "config.toml"
)

// fileConfig mirrors config.toml. Zero values mean "not set".
type fileConfig struct {
	Player struct {
		MprisService string  `toml:"mpris_service"`
		SyncOffset   float64 `toml:"sync_offset"`
		HideHeader   bool    `toml:"hide_header"`
	} `toml:"player"`

	API struct {
		BaseURL string `toml:"base_url"`
		Timeout string `toml:"timeout"`
	} `toml:"api"`

	Lyrics struct {
		DesktopLyrics string `toml:"desktop_lyrics"`
		APIMode       string `toml:"api_mode"`
		Translation   string `toml:"translation"`
		Language      string `toml:"language"`
	} `toml:"lyrics"`

	Cache struct {
		Backend string `toml:"backend"`
		Dir     string `toml:"dir"`
		TTL     string `toml:"ttl"`
	} `toml:"cache"`

	Redis struct {
		Addr     string `toml:"addr"`
		Password string `toml:"password"`
		DB       int    `toml:"db"`
	} `toml:"redis"`

	Server struct {
		Listen string `toml:"listen"`
	} `toml:"server"`

	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type Config struct {
	MprisService string
	APIBaseURL   string
	HTTPTimeout  time.Duration
	SyncOffset   float64
	HideHeader   bool

	DesktopLyrics     string
	APIMode           string
	LyricsTranslation string
	Language          string

	CacheBackend string
	CacheDir     string
	CacheTTL     time.Duration
	Redis        RedisConfig

	ListenAddr string
	LogLevel   string
	LogFile    string

	// Path is the config file that was read, if any.
	Path string
}

func defaults() *Config {
	return &Config{
		MprisService: DefaultMprisService,
		APIBaseURL:   DefaultAPIBaseURL,
		HTTPTimeout:  DefaultHTTPTimeout,
		CacheBackend: CacheDisk,
		Redis:        RedisConfig{Addr: "localhost:6379"},
		ListenAddr:   DefaultListenAddr,
		LogLevel:     DefaultLogLevel,
	}
}

// Load reads .env, then the TOML file, then the environment. Later layers
// win. A missing config file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return LoadFrom(getEnvOrDefault("LYRICSYNC_CONFIG", DefaultPath()))
}

// LoadFrom is Load without the .env step, reading the TOML file at path.
func LoadFrom(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		file, err := readFile(path)
		if err != nil {
			return nil, err
		}
		if file != nil {
			cfg.applyFile(file)
			cfg.Path = path
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath is $XDG_CONFIG_HOME/lyricsync/config.toml.
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appDirName, configFileName)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", appDirName, configFileName)
}

func readFile(path string) (*fileConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var file fileConfig
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return &file, nil
}

func (c *Config) applyFile(f *fileConfig) {
	setString(&c.MprisService, f.Player.MprisService)
	if f.Player.SyncOffset != 0 {
		c.SyncOffset = f.Player.SyncOffset
	}
	if f.Player.HideHeader {
		c.HideHeader = true
	}

	setString(&c.APIBaseURL, f.API.BaseURL)
	c.HTTPTimeout = parseDurationOrDefault(f.API.Timeout, c.HTTPTimeout)

	setString(&c.DesktopLyrics, f.Lyrics.DesktopLyrics)
	setString(&c.APIMode, f.Lyrics.APIMode)
	setString(&c.LyricsTranslation, f.Lyrics.Translation)
	setString(&c.Language, f.Lyrics.Language)

	setString(&c.CacheBackend, f.Cache.Backend)
	setString(&c.CacheDir, f.Cache.Dir)
	c.CacheTTL = parseDurationOrDefault(f.Cache.TTL, c.CacheTTL)

	setString(&c.Redis.Addr, f.Redis.Addr)
	setString(&c.Redis.Password, f.Redis.Password)
	if f.Redis.DB != 0 {
		c.Redis.DB = f.Redis.DB
	}

	setString(&c.ListenAddr, f.Server.Listen)
	setString(&c.LogLevel, f.Log.Level)
	setString(&c.LogFile, f.Log.File)
}

func (c *Config) applyEnv() {
	c.MprisService = getEnvOrDefault("MPRIS_SERVICE", c.MprisService)
	c.APIBaseURL = getEnvOrDefault("LYRICSYNC_API_URL", c.APIBaseURL)
	c.HTTPTimeout = parseDurationOrDefault(os.Getenv("HTTP_TIMEOUT"), c.HTTPTimeout)

	if raw := os.Getenv("SYNC_OFFSET"); raw != "" {
		offset, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			l := logger()
			l.Warn().Str("value", raw).Msg("ignoring invalid SYNC_OFFSET")
		} else {
			c.SyncOffset = offset
		}
	}
	if raw := os.Getenv("HIDE_HEADER"); raw != "" {
		c.HideHeader = truthy(raw)
	}

	c.DesktopLyrics = getEnvOrDefault("DESKTOP_LYRICS", c.DesktopLyrics)
	c.APIMode = getEnvOrDefault("API_MODE", c.APIMode)
	c.LyricsTranslation = getEnvOrDefault("LYRICS_TRANSLATION", c.LyricsTranslation)
	c.Language = getEnvOrDefault("LYRICSYNC_LANG", c.Language)
	if c.Language == "" {
		c.Language = localeTag(os.Getenv("LANG"))
	}

	c.CacheBackend = strings.ToLower(getEnvOrDefault("CACHE_BACKEND", c.CacheBackend))
	c.CacheDir = getEnvOrDefault("CACHE_DIR", c.CacheDir)
	c.CacheTTL = parseDurationOrDefault(os.Getenv("CACHE_TTL"), c.CacheTTL)

	c.Redis.Addr = getEnvOrDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", c.Redis.Password)
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		if db, err := strconv.Atoi(raw); err == nil {
			c.Redis.DB = db
		}
	}

	c.ListenAddr = getEnvOrDefault("LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnvOrDefault("LOG_FILE", c.LogFile)
}

func (c *Config) Validate() error {
	switch c.CacheBackend {
	case CacheDisk, CacheRedis, CacheNone:
	default:
		return fmt.Errorf("unknown cache backend %q (want disk, redis or none)", c.CacheBackend)
	}
	for name, value := range map[string]string{
		"desktop_lyrics": c.DesktopLyrics,
		"api_mode":       c.APIMode,
		"translation":    c.LyricsTranslation,
	} {
		if value != "" && ParseToggle(value) == "" {
			return fmt.Errorf("invalid %s value %q (want on or off)", name, value)
		}
	}
	return nil
}

// Settings converts the toggles into the shape the lyrics handler reads.
func (c *Config) Settings() lyrics.Settings {
	return lyrics.Settings{
		DesktopLyrics:     ParseToggle(c.DesktopLyrics),
		APIMode:           ParseToggle(c.APIMode),
		LyricsTranslation: ParseToggle(c.LyricsTranslation),
	}
}

// ParseToggle maps on/off style words to a toggle; anything else is unset.
func ParseToggle(s string) lyrics.Toggle {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "yes":
		return lyrics.On
	case "off", "false", "0", "no":
		return lyrics.Off
	}
	return ""
}

func truthy(s string) bool {
	return ParseToggle(s) == lyrics.On
}

// localeTag turns a POSIX locale like zh_CN.UTF-8 into zh-CN.
func localeTag(locale string) string {
	if locale == "" || locale == "C" || locale == "POSIX" {
		return ""
	}
	locale, _, _ = strings.Cut(locale, ".")
	locale, _, _ = strings.Cut(locale, "@")
	return strings.ReplaceAll(locale, "_", "-")
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func getEnvOrDefault(key string, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseDurationOrDefault(s string, defaultValue time.Duration) time.Duration {
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		l := logger()
		l.Warn().Str("value", s).Dur("default", defaultValue).Err(err).Msg("could not parse duration, using default")
		return defaultValue
	}
	return d
}
