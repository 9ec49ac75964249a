package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/lyrics"
	"karolbroda.com/linesync/internal/track"
)

const (
	DefaultUserAgent = "linesync/1.0 (https://karolbroda.com/linesync)"

	lrclibName = "lrclib"
)

var errStatusNotFound = errors.New("status 404")

type lrclibResponse struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

func (r *lrclibResponse) result() *lyrics.Result {
	return &lyrics.Result{
		TrackName:    r.TrackName,
		ArtistName:   r.ArtistName,
		AlbumName:    r.AlbumName,
		Duration:     r.Duration,
		Instrumental: r.Instrumental,
		PlainLyrics:  r.PlainLyrics,
		SyncedLyrics: r.SyncedLyrics,
	}
}

func (r *lrclibResponse) empty() bool {
	return r.PlainLyrics == "" && r.SyncedLyrics == "" && !r.Instrumental
}

func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   time.Duration(config.HTTPTimeoutSeconds) * time.Second,
	}
}

// httpBase carries what both lrclib endpoints share.
type httpBase struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *Limiter
}

type Option func(*httpBase)

// WithBaseURL points the provider at another endpoint (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(b *httpBase) {
		b.baseURL = u
	}
}

func WithUserAgent(ua string) Option {
	return func(b *httpBase) {
		b.userAgent = ua
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(b *httpBase) {
		b.httpClient = client
	}
}

// WithLimiter shares a request limiter between providers.
func WithLimiter(l *Limiter) Option {
	return func(b *httpBase) {
		b.limiter = l
	}
}

func newHTTPBase(defaultURL string, opts []Option) httpBase {
	b := httpBase{
		baseURL:   defaultURL,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&b)
	}
	if b.httpClient == nil {
		b.httpClient = newHTTPClient()
	}
	if b.limiter == nil {
		b.limiter = NewLimiter(DefaultRequestInterval)
	}
	return b
}

// getJSON performs a rate limited GET and decodes the body into out.
func (b *httpBase) getJSON(ctx context.Context, requestURL string, out any) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}

	timeout := time.Duration(config.HTTPTimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", b.userAgent)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return errStatusNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode lrclib json: %w", err)
	}
	return nil
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Lrclib queries the lrclib.net get endpoint with progressively looser
// spellings of the track until one matches.
type Lrclib struct {
	httpBase
}

func NewLrclib(opts ...Option) *Lrclib {
	return &Lrclib{httpBase: newHTTPBase(config.DefaultLrclibGetURL, opts)}
}

func (l *Lrclib) Name() string {
	return lrclibName
}

type strategy struct {
	artist   string
	title    string
	album    string
	duration int64
}

func (s strategy) key() string {
	return fmt.Sprintf("%s|%s|%s|%d", s.artist, s.title, s.album, s.duration)
}

// strategies lists the lookups to try for t, most specific first, with
// duplicates and blanks removed.
func strategies(t track.Info) []strategy {
	artist := normalizeString(t.Artist)
	title := normalizeString(t.Title)
	secs := t.DurationSecs()

	candidates := []strategy{
		{artist, title, t.Album, secs},
		{artist, title, "", secs},
		{artist, title, "", 0},
		{stripVersionInfo(t.Artist), stripVersionInfo(t.Title), "", 0},
		// some artists are listed in caps only
		{strings.ToUpper(artist), strings.ToUpper(title), "", 0},
		{strings.ToLower(artist), strings.ToLower(title), "", 0},
		{toTitleCase(artist), toTitleCase(title), "", 0},
		{t.Artist, t.Title, "", 0},
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]strategy, 0, len(candidates))
	for _, s := range candidates {
		if s.artist == "" || s.title == "" {
			continue
		}
		k := s.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}

func (l *Lrclib) Fetch(ctx context.Context, t track.Info) (*lyrics.Result, error) {
	if !t.IsValid() {
		return nil, errors.New("track title or artist is empty")
	}

	parsedURL, err := url.Parse(l.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", l.baseURL, err)
	}

	var lastErr error
	for _, s := range strategies(t) {
		query := url.Values{}
		query.Set("artist_name", s.artist)
		query.Set("track_name", s.title)
		if s.album != "" {
			query.Set("album_name", s.album)
		}
		if s.duration > 0 {
			query.Set("duration", strconv.FormatInt(s.duration, 10))
		}
		parsedURL.RawQuery = query.Encode()

		var payload lrclibResponse
		err := l.getJSON(ctx, parsedURL.String(), &payload)
		if err == nil {
			if payload.empty() {
				lastErr = ErrNotFound
				continue
			}
			return payload.result(), nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// only a timeout gives up early, a 404 just means try the next spelling
		if isTimeoutError(err) {
			return nil, fmt.Errorf("lyrics server took too long to respond: %w", err)
		}
		if !errors.Is(err, errStatusNotFound) {
			log.Debug().Err(err).Str("artist", s.artist).Str("title", s.title).Msg("lrclib lookup failed")
		}
		lastErr = err
	}

	if lastErr == nil || errors.Is(lastErr, errStatusNotFound) || errors.Is(lastErr, ErrNotFound) {
		return nil, ErrNotFound
	}
	return nil, lastErr
}

// normalizeString trims and collapses runs of whitespace.
func normalizeString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripVersionInfo removes parenthesised and bracketed parts such as
// "(Remastered 2011)" or "[Live]".
func stripVersionInfo(s string) string {
	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		for {
			start := strings.Index(s, pair[0])
			end := strings.Index(s, pair[1])
			if start < 0 || end <= start {
				break
			}
			s = s[:start] + " " + s[end+1:]
		}
	}
	return normalizeString(s)
}

func toTitleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		runes := []rune(word)
		words[i] = strings.ToUpper(string(runes[0])) + strings.ToLower(string(runes[1:]))
	}
	return strings.Join(words, " ")
}
