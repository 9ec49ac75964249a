// Package provider resolves lyrics for a track through an ordered chain of
// sources, remembering the first hit in a store.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/track"
)

var (
	// ErrNotFound means a provider answered but had nothing for the track.
	ErrNotFound = errors.New("no lyrics found")

	// ErrExhausted means every provider in the chain failed. The returned
	// error also wraps each provider's own error.
	ErrExhausted = errors.New("all lyrics providers failed")
)

// Provider is one lyrics source. Fetch is a one-shot call.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, t track.Info) (*lyrics.Result, error)
}

// Store persists resolved lyrics keyed by the artist/title the player
// reported.
type Store interface {
	Get(artist, title string) (*lyrics.Result, error)
	Set(artist, title string, result *lyrics.Result) error
}

type Chain struct {
	providers []Provider
	store     Store
	readCache bool
}

type ChainOption func(*Chain)

// WithStore sets where resolved lyrics are kept.
func WithStore(s Store) ChainOption {
	return func(c *Chain) {
		c.store = s
	}
}

// WithCacheReads controls whether Resolve consults the store before the
// providers. Writes happen either way.
func WithCacheReads(enabled bool) ChainOption {
	return func(c *Chain) {
		c.readCache = enabled
	}
}

func NewChain(providers []Provider, opts ...ChainOption) *Chain {
	c := &Chain{
		providers: providers,
		readCache: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Providers returns the names in resolution order.
func (c *Chain) Providers() []string {
	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// Resolve returns lyrics for t. A stored entry wins; otherwise providers are
// tried in order and the first non-empty answer is stored and returned.
func (c *Chain) Resolve(ctx context.Context, t *track.Info) (*lyrics.Result, error) {
	if !t.IsValid() {
		return nil, errors.New("track title or artist is empty")
	}

	if c.store != nil && c.readCache {
		cached, err := c.store.Get(t.Artist, t.Title)
		if err == nil && !cached.Empty() {
			log.Debug().Str("track", t.String()).Str("source", cached.Source).Msg("Lyrics served from store")
			return cached, nil
		}
	}

	var errs []error
	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := p.Fetch(ctx, *t)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Debug().Err(err).Str("provider", p.Name()).Str("track", t.String()).Msg("Provider failed")
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		if result.Empty() {
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), ErrNotFound))
			continue
		}

		result.Source = p.Name()
		if c.store != nil {
			if err := c.store.Set(t.Artist, t.Title, result); err != nil {
				log.Warn().Err(err).Str("track", t.String()).Msg("Failed to store lyrics")
			}
		}

		log.Info().Str("provider", p.Name()).Str("track", t.String()).Bool("synced", result.SyncedLyrics != "").Msg("Lyrics resolved")
		return result, nil
	}

	if len(errs) == 0 {
		return nil, ErrExhausted
	}
	return nil, fmt.Errorf("%w: %w", ErrExhausted, errors.Join(errs...))
}

// SaveOffset records a user sync adjustment on the stored entry for t.
func (c *Chain) SaveOffset(t *track.Info, offsetMs int64) error {
	if c.store == nil {
		return errors.New("no lyrics store configured")
	}
	if !t.IsValid() {
		return errors.New("track title or artist is empty")
	}

	stored, err := c.store.Get(t.Artist, t.Title)
	if err != nil {
		return fmt.Errorf("load stored lyrics: %w", err)
	}

	stored.SyncOffsetMs = offsetMs
	if err := c.store.Set(t.Artist, t.Title, stored); err != nil {
		return fmt.Errorf("save sync offset: %w", err)
	}
	return nil
}
