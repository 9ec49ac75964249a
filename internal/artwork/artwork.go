// Package artwork loads album art and derives a colour palette from it.
package artwork

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/charmbracelet/lipgloss"
	"github.com/nfnt/resize"

	"karolbroda.com/linesync/internal/colors"
)

const (
	fetchTimeout = 5 * time.Second
	maxImageSize = 10 * 1024 * 1024
)

// Fetch loads an image from a file:// or http(s) URL.
func Fetch(ctx context.Context, client *http.Client, artworkURL string) (image.Image, error) {
	if artworkURL == "" {
		return nil, errors.New("empty artwork url")
	}

	if strings.HasPrefix(artworkURL, "file://") {
		u, err := url.Parse(artworkURL)
		if err != nil {
			return nil, fmt.Errorf("invalid artwork url: %w", err)
		}
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open artwork file: %w", err)
		}
		defer f.Close()
		return decode(f)
	}

	if client == nil {
		client = http.DefaultClient
	}

	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, artworkURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch artwork: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("artwork fetch returned status %d", resp.StatusCode)
	}

	return decode(io.LimitReader(resp.Body, maxImageSize))
}

func decode(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode artwork: %w", err)
	}
	return img, nil
}

type swatch struct {
	r, g, b    uint32
	sat        float64
	brightness float64
	score      float64
}

func (s swatch) same(o swatch) bool {
	return s.r == o.r && s.g == o.g && s.b == o.b
}

// ExtractPalette clusters the image into five colours and picks vivid,
// mid-bright ones for the lyrics. Dull or tiny images fall back to the
// default palette.
func ExtractPalette(img image.Image) colors.Palette {
	if img == nil {
		return colors.DefaultPalette()
	}

	items, err := prominentcolor.KmeansWithAll(5, img, prominentcolor.ArgumentDefault, prominentcolor.DefaultSize, nil)
	if err != nil || len(items) < 3 {
		return colors.DefaultPalette()
	}

	swatches := make([]swatch, len(items))
	for i, item := range items {
		r := float64(item.Color.R) / 255
		g := float64(item.Color.G) / 255
		b := float64(item.Color.B) / 255
		hi := math.Max(math.Max(r, g), b)
		lo := math.Min(math.Min(r, g), b)

		sat := 0.0
		if hi > 0 {
			sat = (hi - lo) / hi
		}
		swatches[i] = swatch{
			r: item.Color.R, g: item.Color.G, b: item.Color.B,
			sat:        sat,
			brightness: hi,
			score:      sat * (1 - math.Abs(hi-0.6)),
		}
	}

	var primary swatch
	bestScore := -1.0
	for _, s := range swatches {
		if s.score > bestScore && s.brightness > 0.3 && s.sat > 0.2 {
			bestScore, primary = s.score, s
		}
	}

	pick := func(minSat, minBright float64, exclude ...swatch) swatch {
	next:
		for _, s := range swatches {
			for _, e := range exclude {
				if s.same(e) {
					continue next
				}
			}
			if s.sat > minSat && s.brightness > minBright {
				return s
			}
		}
		return swatch{}
	}
	secondary := pick(0.15, 0.3, primary)
	accent := pick(0.1, 0.25, primary, secondary)

	chosen := []swatch{primary, secondary, accent}
	sort.SliceStable(chosen, func(i, j int) bool {
		return chosen[i].brightness > chosen[j].brightness
	})

	// brightest leads, darkest trails
	return colors.NewPalette(boost(chosen[0]), boost(chosen[2]), boost(chosen[1]))
}

// boost lifts dark swatches and tones down blown-out ones so text stays
// readable on a dark terminal.
func boost(s swatch) string {
	r, g, b := float64(s.r), float64(s.g), float64(s.b)

	if s.brightness < 0.4 {
		factor := 2.5
		if s.brightness > 0 {
			factor = math.Min(0.4/s.brightness, 2.5)
		}
		r, g, b = math.Min(255, r*factor), math.Min(255, g*factor), math.Min(255, b*factor)
	}

	if s.brightness > 0.85 {
		avg := (r + g + b) / 3
		r, g, b = avg+(r-avg)*0.7, avg+(g-avg)*0.7, avg+(b-avg)*0.7
	}

	return fmt.Sprintf("#%02X%02X%02X", uint8(r), uint8(g), uint8(b))
}

// HalfBlock renders img as cols x rows cells, two pixels per cell using the
// upper half block glyph.
func HalfBlock(img image.Image, cols, rows int) []string {
	if img == nil || cols < 4 || rows < 2 {
		return nil
	}

	resized := resize.Resize(uint(cols), uint(rows*2), img, resize.Lanczos3)
	bounds := resized.Bounds()

	rgb := func(x, y int) (string, bool) {
		r, g, b, a := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
		return fmt.Sprintf("#%02X%02X%02X", r>>8, g>>8, b>>8), a>>8 >= 128
	}

	lines := make([]string, rows)
	for y := 0; y < rows; y++ {
		var line strings.Builder
		for x := 0; x < bounds.Dx(); x++ {
			top, topOpaque := rgb(x, y*2)
			bottom, bottomOpaque := top, topOpaque
			if y*2+1 < bounds.Dy() {
				bottom, bottomOpaque = rgb(x, y*2+1)
			}

			if !topOpaque && !bottomOpaque {
				line.WriteString(" ")
				continue
			}

			style := lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom))
			line.WriteString(style.Render("▀"))
		}
		lines[y] = line.String()
	}
	return lines
}
