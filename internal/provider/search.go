package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/track"
)

const (
	lrclibSearchName = "lrclib-search"

	// candidates further than this from the track's duration are a different
	// recording
	maxDurationDriftSecs = 15.0
)

// LrclibSearch queries the lrclib.net search endpoint and picks the best of
// the returned candidates.
type LrclibSearch struct {
	httpBase
}

func NewLrclibSearch(opts ...Option) *LrclibSearch {
	return &LrclibSearch{httpBase: newHTTPBase(SearchURL(config.DefaultLrclibGetURL), opts)}
}

// SearchURL derives the search endpoint from a get endpoint URL.
func SearchURL(getURL string) string {
	if strings.HasSuffix(getURL, "/get") {
		return strings.TrimSuffix(getURL, "/get") + "/search"
	}
	return strings.TrimRight(getURL, "/") + "/search"
}

func (s *LrclibSearch) Name() string {
	return lrclibSearchName
}

func (s *LrclibSearch) Fetch(ctx context.Context, t track.Info) (*lyrics.Result, error) {
	if !t.IsValid() {
		return nil, errors.New("track title or artist is empty")
	}

	candidates, err := s.Search(ctx, normalizeString(t.Artist), normalizeString(t.Title))
	if err != nil {
		return nil, err
	}

	best := pickBest(candidates, t.DurationMs)
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

// Search returns every candidate lrclib lists for artist/title.
func (s *LrclibSearch) Search(ctx context.Context, artist, title string) ([]*lyrics.Result, error) {
	parsedURL, err := url.Parse(s.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", s.baseURL, err)
	}

	query := url.Values{}
	query.Set("track_name", title)
	if artist != "" {
		query.Set("artist_name", artist)
	}
	parsedURL.RawQuery = query.Encode()

	var payload []lrclibResponse
	if err := s.getJSON(ctx, parsedURL.String(), &payload); err != nil {
		if errors.Is(err, errStatusNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	out := make([]*lyrics.Result, 0, len(payload))
	for i := range payload {
		if payload[i].empty() {
			continue
		}
		out = append(out, payload[i].result())
	}
	return out, nil
}

// pickBest prefers synced lyrics, then the closest duration. With an unknown
// track duration the first synced candidate wins.
func pickBest(candidates []*lyrics.Result, durationMs int64) *lyrics.Result {
	var best *lyrics.Result
	bestDrift := math.Inf(1)
	target := float64(durationMs) / 1000

	for _, c := range candidates {
		drift := 0.0
		if durationMs > 0 && c.Duration > 0 {
			drift = math.Abs(c.Duration - target)
			if drift > maxDurationDriftSecs {
				continue
			}
		}

		if best == nil {
			best, bestDrift = c, drift
			continue
		}

		cSynced := c.SyncedLyrics != ""
		bestSynced := best.SyncedLyrics != ""
		switch {
		case cSynced && !bestSynced:
			best, bestDrift = c, drift
		case cSynced == bestSynced && drift < bestDrift:
			best, bestDrift = c, drift
		}
	}
	return best
}
