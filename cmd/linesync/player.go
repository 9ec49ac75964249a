package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"karolbroda.com/linesync/internal/colors"
	"karolbroda.com/linesync/internal/player"
	"karolbroda.com/linesync/internal/track"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "player utilities",
	Long:  `discover mpris players and inspect what the configured player reports.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible music players currently on the session bus.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := player.List()
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
			fmt.Printf("  %s\n", service)
		}
		fmt.Println("\nuse --mpris-service flag to specify which player to use")
		return nil
	},
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show currently playing track",
	Long:  `display the track and position reported by the configured player backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		source, err := player.New(cfg.Player)
		if err != nil {
			return fmt.Errorf("failed to connect to player: %w", err)
		}
		defer source.Close()

		t, err := source.CurrentTrack()
		if err != nil {
			return fmt.Errorf("failed to read current track: %w", err)
		}
		pos, posErr := source.PositionMs()
		if posErr != nil {
			pos = -1
		}

		printTrack(os.Stdout, source.Name(), t, pos)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerCurrentCmd)
}

// printTrack writes what a player reports. A negative position means the
// player did not report one.
func printTrack(w io.Writer, name string, t *track.Info, posMs int64) {
	fmt.Fprintf(w, "player:   %s\n", name)
	if !t.IsValid() {
		fmt.Fprintln(w, "no track currently playing")
		return
	}

	fmt.Fprintf(w, "title:    %s\n", t.Title)
	fmt.Fprintf(w, "artist:   %s\n", t.Artist)
	if t.Album != "" {
		fmt.Fprintf(w, "album:    %s\n", t.Album)
	}
	if t.DurationMs > 0 {
		fmt.Fprintf(w, "duration: %s\n", colors.FormatDuration(t.DurationMs))
	}
	if t.ArtworkURL != "" {
		fmt.Fprintf(w, "artwork:  %s\n", t.ArtworkURL)
	}
	if t.Path != "" {
		fmt.Fprintf(w, "file:     %s\n", t.Path)
	}
	if posMs >= 0 {
		fmt.Fprintf(w, "position: %s\n", colors.FormatDuration(posMs))
	}
}
