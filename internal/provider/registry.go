package provider

import (
	"fmt"

	"karolbroda.com/linesync/internal/config"
)

// ByName builds providers in the order named. Both lrclib providers share
// one limiter since they hit the same host.
func ByName(names []string, cfg config.LyricsConfig, opts ...Option) ([]Provider, error) {
	limiter := NewLimiter(DefaultRequestInterval)
	base := append([]Option{WithLimiter(limiter)}, opts...)

	getURL := cfg.LrclibURL
	if getURL == "" {
		getURL = config.DefaultLrclibGetURL
	}

	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		switch name {
		case localName:
			providers = append(providers, NewLocal(cfg.LocalDir))
		case lrclibName:
			providers = append(providers, NewLrclib(append([]Option{WithBaseURL(getURL)}, base...)...))
		case lrclibSearchName:
			providers = append(providers, NewLrclibSearch(append([]Option{WithBaseURL(SearchURL(getURL))}, base...)...))
		default:
			return nil, fmt.Errorf("unknown lyrics provider %q", name)
		}
	}
	return providers, nil
}
