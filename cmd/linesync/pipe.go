package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/cursor"
	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/player"
	"karolbroda.com/linesync/internal/provider"
	"karolbroda.com/linesync/internal/track"
)

var (
	pipeLength   int
	pipeOverflow string
)

var pipeCmd = &cobra.Command{
	Use:   "pipe",
	Short: "print the current lyric line to stdout",
	Long: `prints the active lyric line every time it changes, one line per change.
meant for status bars; --length and --overflow control how long lines are cut.`,
	RunE: runPipe,
}

func init() {
	rootCmd.AddCommand(pipeCmd)

	pipeCmd.Flags().IntVar(&pipeLength, "length", 0, "maximum line length, 0 for unlimited")
	pipeCmd.Flags().StringVar(&pipeOverflow, "overflow", "", "how to cut long lines: word, none, ellipsis")
}

// formatPipeLine cuts line to length. "word" breaks at a word boundary,
// "none" cuts hard and "ellipsis" cuts hard and marks the cut.
func formatPipeLine(line string, length int, overflow string) string {
	if length <= 0 {
		return line
	}

	switch overflow {
	case "none":
		return firstLine(wrap.String(line, length))
	case "ellipsis":
		lines := strings.Split(wrap.String(line, length), "\n")
		if len(lines) == 1 {
			return lines[0]
		}
		if length <= 3 {
			return firstLine(wrap.String(line, length))
		}
		return firstLine(wrap.String(lines[0], length-3)) + "..."
	default:
		return firstLine(wordwrap.String(line, length))
	}
}

func firstLine(s string) string {
	return strings.SplitN(s, "\n", 2)[0]
}

// linePrinter serializes writes from the per-track goroutines and skips
// repeats.
type linePrinter struct {
	mu       sync.Mutex
	out      io.Writer
	length   int
	overflow string
	last     string
	started  bool
}

func (p *linePrinter) print(line string) {
	line = formatPipeLine(line, p.length, p.overflow)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started && line == p.last {
		return
	}
	p.started = true
	p.last = line
	fmt.Fprintln(p.out, line)
}

func runPipe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := openConfig(cmd)
	if err != nil {
		return err
	}
	cfg := store.Get()

	if cmd.Flags().Changed("length") {
		cfg.Pipe.Length = pipeLength
	}
	if cmd.Flags().Changed("overflow") {
		cfg.Pipe.Overflow = pipeOverflow
	}

	chain, closer, err := buildChain(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	source, err := player.New(cfg.Player)
	if err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	defer source.Close()
	if err := source.Start(); err != nil {
		log.Warn().Err(err).Str("player", source.Name()).Msg("Player signals unavailable")
	}

	printer := &linePrinter{out: os.Stdout, length: cfg.Pipe.Length, overflow: cfg.Pipe.Overflow}
	follow := &pipeFollower{cfg: cfg, chain: chain, source: source, printer: printer}

	if t, err := source.CurrentTrack(); err == nil {
		follow.start(ctx, t)
	}

	// mpd and mpris both report track changes, polling covers players that
	// emit nothing
	recheck := time.NewTicker(2 * time.Second)
	defer recheck.Stop()

	for {
		select {
		case <-ctx.Done():
			follow.stop()
			return nil
		case ev, ok := <-source.Events():
			if !ok {
				follow.stop()
				return nil
			}
			if ev.Kind == player.EventTrackChanged {
				follow.start(ctx, ev.Track)
			}
		case <-recheck.C:
			if t, err := source.CurrentTrack(); err == nil {
				follow.start(ctx, t)
			}
		}
	}
}

// pipeFollower runs one lyrics cursor per track.
type pipeFollower struct {
	cfg     config.Config
	chain   *provider.Chain
	source  player.Source
	printer *linePrinter

	current *track.Info
	cancel  context.CancelFunc
}

func (f *pipeFollower) stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
}

func (f *pipeFollower) start(ctx context.Context, t *track.Info) {
	if f.current != nil && f.current.IsSameTrack(t) {
		return
	}
	f.stop()
	f.current = t

	if !t.IsValid() {
		f.printer.print("")
		return
	}

	trackCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	go f.follow(trackCtx, t)
}

func (f *pipeFollower) follow(ctx context.Context, t *track.Info) {
	result, err := f.chain.Resolve(ctx, t)
	if err != nil {
		if ctx.Err() == nil {
			log.Debug().Err(err).Str("track", t.String()).Msg("No lyrics for track")
			f.printer.print(t.String())
		}
		return
	}
	// superseded by a newer track while resolving
	if ctx.Err() != nil {
		return
	}

	lines := result.Lines()
	if !lyrics.Timesynced(lines) {
		f.printer.print(t.String())
		return
	}

	offset := result.SyncOffsetMs
	if offset == 0 {
		offset = f.cfg.Sync.OffsetMs
	}
	position := func() (int64, error) {
		pos, err := f.source.PositionMs()
		if err != nil {
			return 0, err
		}
		return pos + offset, nil
	}

	c := cursor.New(lines, position, cursor.WithBias(f.cfg.Sync.BiasMs))
	show := func(index int) {
		if index < 0 {
			f.printer.print("")
			return
		}
		f.printer.print(lines[index].Text)
	}
	show(c.Index())

	// a failed read only pauses the poll; the cursor picks up where the
	// player is once reads succeed again
	for {
		if err := cursor.Run(ctx, c, f.cfg.Sync.PollInterval, show); err != nil {
			log.Debug().Err(err).Msg("Lyrics poll ended")
			return
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(c.Err(), player.ErrClosed) {
			log.Debug().Str("track", t.String()).Msg("Player closed, stopping lyrics")
			return
		}
		log.Debug().Err(c.Err()).Str("track", t.String()).Msg("Position read failed, resuming poll")
	}
}
