package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/lyricsync/internal/cache"
	"karolbroda.com/lyricsync/internal/lyrics"
	"karolbroda.com/lyricsync/internal/track"
)

var (
	// flags for cache list
	cacheSortBy  string
	cacheConfirm bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyrics cache",
	Long:  `manage cached lyrics on disk, including viewing statistics, listing entries, and clearing the cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openDiskCache(cfg)
		if err != nil {
			return err
		}

		count, sizeBytes, err := diskCache.Stats()
		if err != nil {
			return fmt.Errorf("failed to get cache stats: %w", err)
		}

		fmt.Println("cache statistics:")
		fmt.Printf("  backend:  %s\n", cfg.CacheBackend)
		fmt.Printf("  location: %s\n", diskCache.Path())
		fmt.Printf("  entries:  %d\n", count)
		fmt.Printf("  size:     %s\n", formatBytes(sizeBytes))
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all cached tracks",
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openDiskCache(cfg)
		if err != nil {
			return err
		}

		entries, err := diskCache.ListAll()
		if err != nil {
			return fmt.Errorf("failed to list cache: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("cache is empty")
			return nil
		}

		sortCacheEntries(entries, cacheSortBy)

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HASH\tSINGER\tSONG\tSYNC OFFSET\tCACHED")
		for _, entry := range entries {
			syncStr := fmt.Sprintf("%.1fs", entry.SyncOffset)
			if entry.SyncOffset == 0 {
				syncStr = "-"
			}
			cacheDate := time.Unix(entry.CreatedAt, 0).Format("2006-01-02")
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", entry.Hash, entry.Singer, entry.Song, syncStr, cacheDate)
		}
		w.Flush()

		fmt.Printf("\ntotal: %d tracks\n", len(entries))
		return nil
	},
}

var cacheShowCmd = &cobra.Command{
	Use:   "show <hash>",
	Short: "show the cached entry for a hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		if store == nil {
			return errors.New("cache is disabled")
		}

		hash := track.NormalizeHash(args[0])
		entry, err := store.Get(context.Background(), hash)
		if err != nil {
			return fmt.Errorf("%s not found in cache: %w", hash, err)
		}

		doc := lyrics.Parse(entry.Raw, true)
		translated := 0
		for _, line := range doc {
			if line.Translated != "" {
				translated++
			}
		}

		fmt.Printf("hash:         %s\n", entry.Hash)
		fmt.Printf("song:         %s\n", entry.Song)
		fmt.Printf("singer:       %s\n", entry.Singer)
		fmt.Printf("candidate:    %s\n", entry.CandidateID)
		fmt.Printf("sync offset:  %.2fs\n", entry.SyncOffset)
		fmt.Printf("cached:       %s\n", time.Unix(entry.CreatedAt, 0).Format("2006-01-02 15:04:05"))
		fmt.Printf("expires:      %s\n", time.Unix(entry.ExpiresAt, 0).Format("2006-01-02 15:04:05"))
		fmt.Printf("\nlyric lines:  %d (%d translated)\n", len(doc), translated)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all cached entries",
	Long:  `remove all cached lyrics from disk. use --confirm to skip the confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openDiskCache(cfg)
		if err != nil {
			return err
		}

		if !cacheConfirm {
			fmt.Print("are you sure you want to clear all cache? (y/n): ")
			var response string
			fmt.Scanln(&response)
			if strings.ToLower(response) != "y" && strings.ToLower(response) != "yes" {
				fmt.Println("cancelled")
				return nil
			}
		}

		if err := diskCache.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("cache cleared successfully")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired and unreadable cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		diskCache, err := openDiskCache(cfg)
		if err != nil {
			return err
		}

		pruned, err := diskCache.Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}
		fmt.Printf("removed %d expired entries\n", pruned)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <hash>",
	Short: "remove one track from the cache",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer closeStore()
		if store == nil {
			return errors.New("cache is disabled")
		}

		hash := track.NormalizeHash(args[0])
		ctx := context.Background()
		if _, err := store.Get(ctx, hash); err != nil && !errors.Is(err, cache.ErrCacheExpired) {
			return fmt.Errorf("%s not found in cache", hash)
		}
		if err := store.Delete(ctx, hash); err != nil {
			return fmt.Errorf("failed to delete from cache: %w", err)
		}

		fmt.Printf("deleted %s from cache\n", hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheShowCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)

	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, singer, song")
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func sortCacheEntries(entries []*cache.LyricEntry, sortBy string) {
	switch sortBy {
	case "singer":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Singer) < strings.ToLower(entries[j].Singer)
		})
	case "song":
		sort.Slice(entries, func(i, j int) bool {
			return strings.ToLower(entries[i].Song) < strings.ToLower(entries[j].Song)
		})
	default:
		sort.Slice(entries, func(i, j int) bool {
			return entries[i].CreatedAt > entries[j].CreatedAt
		})
	}
}
