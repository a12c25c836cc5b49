package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/logging"
)

var (
	// global flags
	mprisService string
	syncOffset   float64
	hideHeader   bool
	apiURL       string
	noCache      bool
	hashFlag     string
	configPath   string
	logLevel     string
	logFile      string
	langFlag     string
	translation  string

	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "lyricsync",
	Short: "terminal karaoke lyrics for mpris players",
	Long: `lyricsync shows word-by-word highlighted lyrics for the track playing in
any mpris-compatible player, fetched from a kugou lyrics api.

when run without a subcommand, it starts the interactive TUI viewer.`,
	Version: "1.0.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// default behavior: run the TUI viewer
		return runViewer(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&mprisService, "mpris-service", "m", "", "mpris service name (e.g., org.mpris.MediaPlayer2.spotify)")
	flags.Float64VarP(&syncOffset, "sync-offset", "s", 0, "initial sync offset in seconds")
	flags.BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
	flags.StringVar(&apiURL, "api-url", "", "base url of the kugou lyrics api")
	flags.BoolVar(&noCache, "no-cache", false, "disable cache reads (always fetch fresh)")
	flags.StringVar(&hashFlag, "hash", "", "look lyrics up by this track hash instead of the playing file")
	flags.StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/lyricsync/config.toml)")
	flags.StringVar(&logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file")
	flags.StringVar(&langFlag, "lang", "", "status message language (en, zh)")
	flags.StringVar(&translation, "translation", "", "show translated lyrics: on or off")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads .env, the config file and the environment, then lets
// explicitly set flags win.
func loadConfig(cmd *cobra.Command) error {
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if mprisService != "" {
		cfg.MprisService = mprisService
	}
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if flags.Changed("sync-offset") {
		cfg.SyncOffset = syncOffset
	}
	if flags.Changed("hide-header") {
		cfg.HideHeader = hideHeader
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if langFlag != "" {
		cfg.Language = langFlag
	}
	if translation != "" {
		cfg.LyricsTranslation = translation
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	// the viewer owns the terminal, so it only logs to a file
	if isViewer(cmd) && cfg.LogFile == "" {
		logging.Discard()
		return nil
	}

	logCloser, err = logging.Setup(cfg.LogLevel, cfg.LogFile)
	return err
}

func isViewer(cmd *cobra.Command) bool {
	return !cmd.HasParent() || cmd.Name() == "run"
}
