package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/linesync/internal/cache"
	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/store"
)

var (
	// flags for cache list
	cacheSortBy  string
	cacheConfirm bool
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "manage the lyrics store",
	Long: `manage stored lyrics, including viewing statistics, listing entries, and clearing them.
works on the disk cache or the sqlite store, whichever lyrics.store selects.`,
}

// storedSong is one entry of either store, flattened for listing.
type storedSong struct {
	Artist   string
	Title    string
	OffsetMs int64
	Synced   bool
	Cached   time.Time
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "show store statistics",
	Long:  `display the number of entries, total size, and location of the lyrics store.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		var (
			location string
			count    int
			size     int64
		)

		if cfg.Lyrics.Store == "sqlite" {
			db, err := openSQLite(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			location = db.Path()
			if count, err = db.Count(); err != nil {
				return fmt.Errorf("failed to count entries: %w", err)
			}
			if info, err := os.Stat(db.Path()); err == nil {
				size = info.Size()
			}
		} else {
			dc, err := cache.NewDiskCache()
			if err != nil {
				return fmt.Errorf("failed to open lyrics cache: %w", err)
			}
			location = dc.Path()
			if count, size, err = dc.Stats(); err != nil {
				return fmt.Errorf("failed to get cache stats: %w", err)
			}
		}

		fmt.Printf("%s statistics:\n", cfg.Lyrics.Store)
		fmt.Printf("  location: %s\n", location)
		fmt.Printf("  entries:  %d\n", count)
		fmt.Printf("  size:     %s\n", formatBytes(size))
		return nil
	},
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "list all stored songs",
	Long:  `list all songs in the store with their sync offsets and storage date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		songs, err := listStored(cfg)
		if err != nil {
			return fmt.Errorf("failed to list store: %w", err)
		}

		if len(songs) == 0 {
			fmt.Println("store is empty")
			return nil
		}

		sortSongs(songs, cacheSortBy)
		writeSongTable(os.Stdout, songs)
		fmt.Printf("\ntotal: %d songs\n", len(songs))
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "clear all stored entries",
	Long:  `remove all stored lyrics. use --confirm to skip the confirmation prompt.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if !cacheConfirm && !confirm(cmd.InOrStdin(), "are you sure you want to clear all stored lyrics? (y/n): ") {
			fmt.Println("cancelled")
			return nil
		}

		if cfg.Lyrics.Store == "sqlite" {
			db, err := openSQLite(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := db.Clear()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d entries\n", n)
			return nil
		}

		dc, err := cache.NewDiskCache()
		if err != nil {
			return fmt.Errorf("failed to open lyrics cache: %w", err)
		}
		if err := dc.Clear(); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		fmt.Println("cache cleared successfully")
		return nil
	},
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "remove expired cache entries",
	Long:  `remove all expired disk cache entries to free up space. sqlite entries do not expire.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Lyrics.Store == "sqlite" {
			fmt.Println("sqlite entries do not expire, nothing to prune")
			return nil
		}

		dc, err := cache.NewDiskCache()
		if err != nil {
			return fmt.Errorf("failed to open lyrics cache: %w", err)
		}
		pruned, err := dc.Prune()
		if err != nil {
			return fmt.Errorf("failed to prune cache: %w", err)
		}
		fmt.Printf("removed %d expired entries\n", pruned)
		return nil
	},
}

var cacheDeleteCmd = &cobra.Command{
	Use:   "delete <artist> <title>",
	Short: "remove a specific song from the store",
	Long:  `remove a specific song from the store by artist and title.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], args[1]

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ls, closer, err := openLyricsStore(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		if _, err := ls.Get(artist, title); err != nil {
			if songs, listErr := listStored(cfg); listErr == nil {
				if suggestions := findSimilarSongs(songs, artist, title); len(suggestions) > 0 {
					fmt.Fprintf(os.Stderr, "song not found in store\n\n")
					fmt.Fprintf(os.Stderr, "did you mean one of these?\n")
					for _, s := range suggestions {
						fmt.Fprintf(os.Stderr, "  %s - %s\n", s.Artist, s.Title)
					}
				}
			}
			return errors.New("song not found in store")
		}

		if err := ls.Delete(artist, title); err != nil {
			return fmt.Errorf("failed to delete from store: %w", err)
		}

		fmt.Printf("deleted '%s - %s' from store\n", artist, title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheDeleteCmd)

	cacheListCmd.Flags().StringVar(&cacheSortBy, "sort", "date", "sort by: date, artist, title")
	cacheClearCmd.Flags().BoolVar(&cacheConfirm, "confirm", false, "skip confirmation prompt")
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cs, err := openConfig(cmd)
	if err != nil {
		return config.Config{}, err
	}
	return cs.Get(), nil
}

func openSQLite(cfg config.Config) (*store.SQLite, error) {
	db := store.NewSQLite(sqlitePath(cfg))
	if err := db.Open(); err != nil {
		return nil, err
	}
	return db, nil
}

// listLimit bounds sqlite listings; the disk cache lists everything.
const listLimit = 10000

func listStored(cfg config.Config) ([]storedSong, error) {
	if cfg.Lyrics.Store == "sqlite" {
		db, err := openSQLite(cfg)
		if err != nil {
			return nil, err
		}
		defer db.Close()

		recs, err := db.Search("", listLimit)
		if err != nil {
			return nil, err
		}
		songs := make([]storedSong, 0, len(recs))
		for _, r := range recs {
			songs = append(songs, storedSong{
				Artist:   r.Artist,
				Title:    r.Title,
				OffsetMs: r.Result.SyncOffsetMs,
				Synced:   r.Result.SyncedLyrics != "",
				Cached:   r.UpdatedAt,
			})
		}
		return songs, nil
	}

	dc, err := cache.NewDiskCache()
	if err != nil {
		return nil, err
	}
	entries, err := dc.ListAll()
	if err != nil {
		return nil, err
	}
	songs := make([]storedSong, 0, len(entries))
	for _, e := range entries {
		songs = append(songs, storedSong{
			Artist:   e.KeyArtist,
			Title:    e.KeyTitle,
			OffsetMs: e.SyncOffsetMs,
			Synced:   e.SyncedLyrics != "",
			Cached:   time.Unix(e.CreatedAt, 0),
		})
	}
	return songs, nil
}

func writeSongTable(out io.Writer, songs []storedSong) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ARTIST\tTITLE\tSYNCED\tSYNC OFFSET\tCACHED")
	for _, s := range songs {
		offset := "-"
		if s.OffsetMs != 0 {
			offset = fmt.Sprintf("%+.1fs", float64(s.OffsetMs)/1000)
		}
		synced := "no"
		if s.Synced {
			synced = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.Artist, s.Title, synced, offset, s.Cached.Format("2006-01-02"))
	}
	w.Flush()
}

func sortSongs(songs []storedSong, sortBy string) {
	switch sortBy {
	case "artist":
		sort.SliceStable(songs, func(i, j int) bool {
			return strings.ToLower(songs[i].Artist) < strings.ToLower(songs[j].Artist)
		})
	case "title":
		sort.SliceStable(songs, func(i, j int) bool {
			return strings.ToLower(songs[i].Title) < strings.ToLower(songs[j].Title)
		})
	default:
		sort.SliceStable(songs, func(i, j int) bool {
			return songs[i].Cached.After(songs[j].Cached)
		})
	}
}

// findSimilarSongs prefers same-artist title matches, then loose matches on
// both, up to five.
func findSimilarSongs(songs []storedSong, artist string, title string) []storedSong {
	artistLower := strings.ToLower(artist)
	titleLower := strings.ToLower(title)
	similar := func(a, b string) bool {
		return strings.Contains(a, b) || strings.Contains(b, a)
	}

	var matches []storedSong
	for _, s := range songs {
		if strings.ToLower(s.Artist) == artistLower && similar(strings.ToLower(s.Title), titleLower) {
			matches = append(matches, s)
		}
	}

	if len(matches) == 0 {
		for _, s := range songs {
			if similar(strings.ToLower(s.Artist), artistLower) && similar(strings.ToLower(s.Title), titleLower) {
				matches = append(matches, s)
			}
		}
	}

	if len(matches) > 5 {
		matches = matches[:5]
	}
	return matches
}

func confirm(in io.Reader, prompt string) bool {
	fmt.Print(prompt)
	response, _ := bufio.NewReader(in).ReadString('\n')
	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes"
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
