package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/logging"
	"karolbroda.com/linesync/internal/player"
	"karolbroda.com/linesync/internal/terminal"
	"karolbroda.com/linesync/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the interactive lyrics viewer",
	Long:  `starts the terminal-based lyrics viewer with real-time synchronized lyrics display.`,
	RunE:  runViewer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runViewer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	defer terminal.Reset(os.Stdout)

	store, err := openConfig(cmd)
	if err != nil {
		return err
	}
	cfg := store.Get()

	// the screen belongs to bubbletea, so logs go to a file
	logPath := cfg.Log.File
	if logPath == "" {
		logPath = filepath.Join(config.StateDir(), "linesync.log")
	}
	logFile, err := logging.SetupFile(logPath, cfg.Log.Level, debug)
	if err != nil {
		return err
	}
	defer logFile.Close()

	if err := store.Watch(ctx); err != nil {
		log.Warn().Err(err).Msg("Config file will not be watched")
	}
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	chain, closer, err := buildChain(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	source, err := player.New(cfg.Player)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	if err := source.Start(); err != nil {
		log.Warn().Err(err).Str("player", source.Name()).Msg("Player signals unavailable")
	}

	log.Info().
		Str("player", source.Name()).
		Strs("providers", chain.Providers()).
		Str("store", cfg.Lyrics.Store).
		Msg("Starting viewer")

	model := ui.NewModel(ui.Options{
		Config:  cfg,
		Source:  source,
		Chain:   chain,
		Caps:    terminal.Detect(),
		Updates: updates,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()
	source.Close()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}
	return nil
}
