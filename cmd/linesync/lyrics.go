package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/provider"
	"karolbroda.com/linesync/internal/track"
)

const lookupTimeout = 30 * time.Second

var (
	// flags for lyrics search
	searchLimit int
	// flags for lyrics fetch and preview
	lyricsDuration int
)

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyrics search and management",
	Long:  `search for lyrics, pre-fetch them into the store, or preview them in the terminal.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "search lrclib for matching lyrics",
	Long:  `search lrclib and list every candidate with its synced and plain line counts.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfig(cmd)
		if err != nil {
			return err
		}
		cfg := store.Get()

		ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
		defer cancel()

		search := provider.NewLrclibSearch(provider.WithBaseURL(provider.SearchURL(cfg.Lyrics.LrclibURL)))
		results, err := search.Search(ctx, args[0], args[1])
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		if len(results) == 0 {
			fmt.Printf("no results for: %s - %s\n", args[0], args[1])
			return nil
		}

		if searchLimit > 0 && len(results) > searchLimit {
			results = results[:searchLimit]
		}

		fmt.Printf("found %d result(s) for: %s - %s\n\n", len(results), args[0], args[1])
		for _, r := range results {
			printSummary(os.Stdout, r)
			fmt.Println()
		}
		fmt.Println("use 'linesync lyrics fetch' to save to the store")
		return nil
	},
}

var lyricsFetchCmd = &cobra.Command{
	Use:   "fetch <artist> <title>",
	Short: "pre-fetch lyrics into the store",
	Long:  `resolve lyrics through the configured providers and save them to the store for instant loading.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfig(cmd)
		if err != nil {
			return err
		}
		cfg := store.Get()

		chain, closer, err := buildChain(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		t := trackFromArgs(args)
		fmt.Printf("fetching: %s\n", t)

		ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
		defer cancel()

		result, err := chain.Resolve(ctx, t)
		if err != nil {
			return describeResolveError(err)
		}

		fmt.Printf("stored: %s - %s (via %s)\n", result.ArtistName, result.TrackName, result.Source)
		switch {
		case result.SyncedLyrics != "":
			fmt.Printf("synced lyrics available (%d lines)\n", lineCount(result.SyncedLyrics))
		case result.Instrumental:
			fmt.Println("instrumental track")
		default:
			fmt.Println("only plain lyrics available (no timing)")
		}
		return nil
	},
}

var lyricsPreviewCmd = &cobra.Command{
	Use:   "preview <artist> <title>",
	Short: "preview lyrics in terminal",
	Long:  `display lyrics in the terminal with timestamps (if available).`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConfig(cmd)
		if err != nil {
			return err
		}
		cfg := store.Get()

		chain, closer, err := buildChain(cfg)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), lookupTimeout)
		defer cancel()

		result, err := chain.Resolve(ctx, trackFromArgs(args))
		if err != nil {
			return describeResolveError(err)
		}

		printPreview(os.Stdout, result)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lyricsCmd)

	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsFetchCmd)
	lyricsCmd.AddCommand(lyricsPreviewCmd)

	lyricsSearchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results to show")
	lyricsFetchCmd.Flags().IntVar(&lyricsDuration, "duration", 0, "track duration in seconds, improves matching")
	lyricsPreviewCmd.Flags().IntVar(&lyricsDuration, "duration", 0, "track duration in seconds, improves matching")
}

func trackFromArgs(args []string) *track.Info {
	return &track.Info{
		Artist:     args[0],
		Title:      args[1],
		DurationMs: int64(lyricsDuration) * 1000,
	}
}

func describeResolveError(err error) error {
	if errors.Is(err, provider.ErrExhausted) {
		return fmt.Errorf("lyrics not found: %w", err)
	}
	return fmt.Errorf("failed to fetch lyrics: %w", err)
}

func printSummary(w io.Writer, r *lyrics.Result) {
	fmt.Fprintf(w, "  track:        %s\n", r.TrackName)
	fmt.Fprintf(w, "  artist:       %s\n", r.ArtistName)
	if r.AlbumName != "" {
		fmt.Fprintf(w, "  album:        %s\n", r.AlbumName)
	}
	if r.Duration > 0 {
		fmt.Fprintf(w, "  duration:     %.0fs\n", r.Duration)
	}
	fmt.Fprintf(w, "  instrumental: %v\n", r.Instrumental)

	if n := lineCount(r.SyncedLyrics); n > 0 {
		fmt.Fprintf(w, "  synced lines: %d\n", n)
	} else {
		fmt.Fprintf(w, "  synced lines: none\n")
	}
	if r.PlainLyrics != "" {
		fmt.Fprintf(w, "  plain lines:  %d\n", len(strings.Split(strings.TrimSpace(r.PlainLyrics), "\n")))
	} else {
		fmt.Fprintf(w, "  plain lines:  none\n")
	}
}

func printPreview(w io.Writer, r *lyrics.Result) {
	fmt.Fprintf(w, "\n%s - %s\n", r.ArtistName, r.TrackName)
	if r.AlbumName != "" {
		fmt.Fprintf(w, "%s\n", r.AlbumName)
	}
	if r.Source != "" {
		fmt.Fprintf(w, "(from %s)\n", r.Source)
	}
	fmt.Fprintln(w, strings.Repeat("─", 60))

	if r.Instrumental {
		fmt.Fprintln(w, "\n[instrumental]")
		return
	}

	if lines := r.Lines(); len(lines) > 0 {
		fmt.Fprintf(w, "\nsynced lyrics (%d lines):\n\n", len(lines))
		for _, line := range lines {
			fmt.Fprintf(w, "[%s] %s\n", lyrics.FormatTimestamp(line.StartMs), line.Text)
		}
		if r.SyncOffsetMs != 0 {
			fmt.Fprintf(w, "\nsync offset: %+.2fs\n", float64(r.SyncOffsetMs)/1000)
		}
		return
	}

	if r.PlainLyrics != "" {
		fmt.Fprint(w, "\nplain lyrics (no timestamps):\n\n")
		fmt.Fprintln(w, r.PlainLyrics)
		return
	}

	fmt.Fprintln(w, "\nno lyrics available")
}
