package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/api"
	"karolbroda.com/lyricsync/internal/config"
)

var (
	listenAddr     string
	allowedOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the synced lyrics over http",
	Long: `follows the mpris player without a terminal UI and publishes the current
lyrics and highlight position as json under /api, for overlays and widgets.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if listenAddr != "" {
			cfg.ListenAddr = listenAddr
		}

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
		defer playerService.Stop()

		server := api.NewServer(api.ServerConfig{
			Addr:           cfg.ListenAddr,
			Player:         playerService,
			Handler:        handler,
			Settings:       cfg.Settings(),
			SyncOffset:     cfg.SyncOffset,
			NoCache:        noCache,
			AllowedOrigins: allowedOrigins,
		})

		if cfg.Path != "" {
			if err := config.Watch(ctx, cfg.Path, server.Reload); err != nil {
				log.Warn().Err(err).Msg("config reload disabled")
			}
		}

		log.Info().Str("player", playerService.Name()).Str("addr", cfg.ListenAddr).Msg("serving lyrics")
		return server.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "address to listen on (default "+config.DefaultListenAddr+")")
	serveCmd.Flags().StringSliceVar(&allowedOrigins, "cors-origin", nil, "allowed cors origins (default any)")
}
