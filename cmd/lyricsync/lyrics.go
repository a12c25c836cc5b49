package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/kugou"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/track"
)

var (
	// flags for lyrics fetch and preview
	showRaw   bool
	previewAt float64
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyrics search and management",
	Long:  `look up lyric candidates, pre-fetch lyrics into the cache, or preview them in the terminal.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <hash>",
	Short: "list lyric candidates for a track hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		hash := track.NormalizeHash(args[0])
		fmt.Printf("searching for: %s\n\n", hash)

		resp, err := client.Search(context.Background(), hash)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if resp.Status != kugou.StatusOK || len(resp.Candidates) == 0 {
			fmt.Println("no lyrics found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tACCESS KEY\tSINGER\tSONG")
		for _, c := range resp.Candidates {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.AccessKey, c.Singer, c.Song)
		}
		w.Flush()

		fmt.Println("\nthe first candidate is used; run 'lyricsync lyrics fetch' to cache it")
		return nil
	},
}

var lyricsFetchCmd = &cobra.Command{
	Use:   "fetch <hash>",
	Short: "fetch lyrics for a hash and save them to the cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handler, cleanup, err := loadLyrics(args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		if showRaw {
			fmt.Println(handler.Raw())
			return nil
		}

		doc := handler.Document()
		fmt.Printf("fetched %d lines\n\n", len(doc))
		for _, line := range doc {
			fmt.Printf("[%s] %s\n", formatDuration(line.Start()/1000), line.Text())
			if line.Translated != "" {
				fmt.Printf("        %s\n", line.Translated)
			}
		}
		return nil
	},
}

var lyricsPreviewCmd = &cobra.Command{
	Use:   "preview <hash>",
	Short: "print per-character timings and the line sung at a given time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handler, cleanup, err := loadLyrics(args[0])
		if err != nil {
			return err
		}
		defer cleanup()

		seconds := previewAt + cfg.SyncOffset
		if offset := handler.SyncOffset(); offset != 0 {
			seconds = previewAt + offset
		}
		handler.ResetHighlight(seconds)

		for _, line := range handler.Document() {
			fmt.Printf("[%s] %s\n", formatDuration(line.Start()/1000), line.Text())
			var cells []string
			for _, c := range line.Characters {
				mark := ""
				if c.Highlighted {
					mark = "*"
				}
				cells = append(cells, fmt.Sprintf("%s%s@%.0f-%.0f", mark, c.Char, c.StartTime, c.EndTime))
			}
			fmt.Printf("        %s\n", strings.Join(cells, " "))
			if line.Translated != "" {
				fmt.Printf("        %s\n", line.Translated)
			}
		}
		fmt.Println()

		text := handler.CurrentLineText(seconds)
		if text == "" {
			fmt.Printf("no line at %s\n", formatDuration(previewAt))
			return nil
		}
		fmt.Printf("[%s] %s\n", formatDuration(previewAt), text)
		return nil
	},
}

// loadLyrics runs a full fetch for hash as if the panel were open.
func loadLyrics(hash string) (*lyrics.Handler, func(), error) {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	handler, err := newHandler(cfg, store)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	settings := cfg.Settings()
	settings.APIMode = lyrics.On
	settings.NoCache = noCache

	hash = track.NormalizeHash(hash)
	handler.GetLyrics(context.Background(), hash, settings)
	if len(handler.Document()) == 0 {
		closeStore()
		return nil, nil, fmt.Errorf("%s", handler.Status())
	}

	return handler, closeStore, nil
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsFetchCmd)
	lyricsCmd.AddCommand(lyricsPreviewCmd)

	lyricsFetchCmd.Flags().BoolVar(&showRaw, "raw", false, "print the raw krc text")
	lyricsPreviewCmd.Flags().Float64Var(&previewAt, "at", 0, "playback position in seconds")
}
