package main

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/player"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "mpris player utilities",
	Long:  `discover mpris-compatible music players and inspect what they are playing.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		services, err := player.ListPlayers(bus)
		if err != nil {
			return err
		}

		if len(services) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println("\ncheck if your music player is running and supports mpris")
			return nil
		}

		fmt.Printf("found %d mpris player(s):\n\n", len(services))
		for _, service := range services {
			if identity := player.Identity(bus, service); identity != "" {
				fmt.Printf("  %s (%s)\n", service, identity)
			} else {
				fmt.Printf("  %s\n", service)
			}
		}

		fmt.Println("\nuse --mpris-service flag to specify which player to use")
		return nil
	},
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show currently playing track and its lyrics hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, playerService, err := connectPlayer(cfg)
		if err != nil {
			return err
		}
		defer bus.Close()

		if err := playerService.Poll(); err != nil {
			return fmt.Errorf("failed to read %s: %w", cfg.MprisService, err)
		}

		state := playerService.GetState()
		if state.Track == nil || !state.Track.IsValid() {
			fmt.Println("no track currently playing")
			return nil
		}

		trk := state.Track
		fmt.Printf("title:    %s\n", trk.Title)
		fmt.Printf("artist:   %s\n", trk.Artist)
		if trk.Album != "" {
			fmt.Printf("album:    %s\n", trk.Album)
		}
		if trk.Duration > 0 {
			fmt.Printf("duration: %s\n", formatDuration(trk.Duration))
		}
		if trk.URL != "" {
			fmt.Printf("url:      %s\n", trk.URL)
		}
		if hash, err := trk.ResolveHash(); err == nil {
			fmt.Printf("hash:     %s\n", hash)
		} else {
			fmt.Printf("hash:     unavailable (%v)\n", err)
		}
		if state.Playing {
			fmt.Printf("state:    playing at %s\n", formatDuration(state.Position))
		} else {
			fmt.Printf("state:    paused\n")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerCurrentCmd)
}
