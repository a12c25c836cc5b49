package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/config"
	"karolbroda.com/lyricsync/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the interactive lyrics viewer",
	Long:  `starts the terminal lyrics viewer with word-by-word highlighting.`,
	RunE:  runViewer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runViewer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	handler, err := newHandler(cfg, store)
	if err != nil {
		return err
	}

	bus, playerService, err := connectPlayer(cfg)
	if err != nil {
		return err
	}
	defer bus.Close()

	if err := playerService.Start(); err != nil {
		log.Warn().Err(err).Msg("could not set up dbus signals, falling back to polling")
	}

	model := ui.NewModel(ui.ModelConfig{
		Player:     playerService,
		Handler:    handler,
		Settings:   cfg.Settings(),
		NoCache:    noCache,
		Hash:       hashFlag,
		SyncOffset: cfg.SyncOffset,
		HideHeader: cfg.HideHeader,
		ShowLyrics: true,
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	if cfg.Path != "" {
		err := config.Watch(ctx, cfg.Path, func(next *config.Config) {
			p.Send(ui.ConfigChangedMsg{Config: next})
		})
		if err != nil {
			log.Warn().Err(err).Msg("config reload disabled")
		}
	}

	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	final, err := p.Run()
	if m, ok := final.(ui.Model); ok {
		m.Stop()
	} else {
		playerService.Stop()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "viewer stopped:", err)
		return fmt.Errorf("error running bubble tea: %w", err)
	}

	return nil
}
