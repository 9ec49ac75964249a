package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/logging"
)

var (
	// global flags
	configPath   string
	debug        bool
	backend      string
	mprisService string
	syncOffset   float64
	hideHeader   bool
	lrclibURL    string
	noCache      bool
)

var rootCmd = &cobra.Command{
	Use:   "linesync",
	Short: "terminal-based synchronized lyrics viewer",
	Long: `linesync shows time-synced lyrics for the song playing in an mpris or mpd player.
lyrics are looked up from local .lrc files and lrclib, then kept in a local store.

when run without a subcommand, it starts the interactive TUI viewer.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup("", debug)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&backend, "player", "p", "", "player backend (mpris, mpd)")
	rootCmd.PersistentFlags().StringVarP(&mprisService, "mpris-service", "m", "", "mpris service name (e.g., org.mpris.MediaPlayer2.spotify)")
	rootCmd.PersistentFlags().Float64VarP(&syncOffset, "sync-offset", "s", 0, "initial sync offset in seconds")
	rootCmd.PersistentFlags().BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
	rootCmd.PersistentFlags().StringVar(&lrclibURL, "lrclib-url", "", "custom lrclib api url")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "disable store reads (always fetch fresh)")
}

// flagOverrides turns the flags that were set into config overrides. They
// apply on top of the file and the environment and are never saved.
func flagOverrides(cmd *cobra.Command) []config.Override {
	flags := cmd.Flags()
	var out []config.Override

	if flags.Changed("player") {
		out = append(out, func(c *config.Config) { c.Player.Backend = backend })
	}
	if flags.Changed("mpris-service") {
		out = append(out, func(c *config.Config) { c.Player.MprisService = mprisService })
	}
	if flags.Changed("sync-offset") {
		ms := int64(math.Round(syncOffset * 1000))
		out = append(out, func(c *config.Config) { c.Sync.OffsetMs = ms })
	}
	if flags.Changed("hide-header") {
		out = append(out, func(c *config.Config) { c.Display.HideHeader = hideHeader })
	}
	if flags.Changed("lrclib-url") {
		out = append(out, func(c *config.Config) { c.Lyrics.LrclibURL = lrclibURL })
	}
	if flags.Changed("no-cache") {
		out = append(out, func(c *config.Config) { c.Lyrics.NoCache = noCache })
	}
	return out
}

func openConfig(cmd *cobra.Command) (*config.Store, error) {
	store, err := config.NewStore(configPath, flagOverrides(cmd)...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return store, nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
