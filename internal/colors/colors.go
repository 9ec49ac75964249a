// Package colors holds the palette used to tint lyrics and the colour math
// behind it. Blending happens in HCL so gradients stay perceptually even.
package colors

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

const gradientSteps = 20

// Palette is the set of colours derived from album art.
type Palette struct {
	Primary   string
	Secondary string
	Accent    string
	Dim       string
	Gradient  []string
}

func DefaultPalette() Palette {
	return NewPalette("#8BA4E8", "#E8A4C8", "#B8A8E8")
}

// NewPalette builds a palette, picking the smoothest pair of the three for
// the gradient.
func NewPalette(primary, secondary, accent string) Palette {
	start, end := BestGradientPair(primary, secondary, accent)
	return Palette{
		Primary:   primary,
		Secondary: secondary,
		Accent:    accent,
		Dim:       "#6272A4",
		Gradient:  Gradient(start, end, gradientSteps),
	}
}

func parse(hex string) colorful.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorful.Color{R: 1, G: 1, B: 1}
	}
	return c
}

func clamped(c colorful.Color) string {
	return strings.ToUpper(c.Clamped().Hex())
}

// Blend mixes a towards b by t in [0,1].
func Blend(a, b string, t float64) string {
	return clamped(parse(a).BlendHcl(parse(b), clamp01(t)))
}

// Gradient returns steps colours from start to end. Far-apart colours are
// eased so the middle does not rush through muddy hues.
func Gradient(start, end string, steps int) []string {
	if steps < 2 {
		steps = 2
	}

	a, b := parse(start), parse(end)
	ease := a.DistanceCIE94(b) > 0.4

	out := make([]string, steps)
	for i := range out {
		t := float64(i) / float64(steps-1)
		if ease {
			t = smoothStep(smoothStep(t))
		}
		out[i] = clamped(a.BlendHcl(b, t))
	}
	return out
}

// Smoothness is the largest step between neighbouring gradient colours.
// Lower is smoother.
func Smoothness(start, end string, steps int) float64 {
	g := Gradient(start, end, steps)
	worst := 0.0
	for i := 1; i < len(g); i++ {
		if d := parse(g[i-1]).DistanceCIE94(parse(g[i])); d > worst {
			worst = d
		}
	}
	return worst
}

// BestGradientPair picks the ordered pair with the smoothest gradient,
// preferring a brighter start when two pairs are close.
func BestGradientPair(primary, secondary, accent string) (string, string) {
	pairs := [][2]string{
		{primary, secondary},
		{primary, accent},
		{secondary, primary},
		{secondary, accent},
		{accent, primary},
		{accent, secondary},
	}

	scores := make([]float64, len(pairs))
	best := 0
	for i, p := range pairs {
		scores[i] = Smoothness(p[0], p[1], gradientSteps)
		if scores[i] < scores[best] {
			best = i
		}
	}

	pick := best
	for i, p := range pairs {
		if i != best && scores[i]-scores[best] < 0.05 && Lightness(p[0]) > Lightness(pairs[pick][0]) {
			pick = i
		}
	}
	return pairs[pick][0], pairs[pick][1]
}

// Lightness is the perceived lightness on a 0-100 scale.
func Lightness(hex string) float64 {
	_, _, l := parse(hex).Hcl()
	return l * 100
}

// Scale multiplies each channel by factor.
func Scale(hex string, factor float64) string {
	c := parse(hex)
	return clamped(colorful.Color{R: c.R * factor, G: c.G * factor, B: c.B * factor})
}

// Glow brightens hex by intensity in [0,1].
func Glow(hex string, intensity float64) string {
	return Scale(hex, 1+clamp01(intensity)*0.6)
}

// Desaturate moves hex towards its grey by amount in [0,1].
func Desaturate(hex string, amount float64) string {
	c := parse(hex)
	gray := 0.299*c.R + 0.587*c.G + 0.114*c.B
	return clamped(c.BlendRgb(colorful.Color{R: gray, G: gray, B: gray}, clamp01(amount)))
}

// RenderGradient colours text rune by rune along gradient.
func RenderGradient(text string, gradient []string, bold bool) string {
	runes := []rune(text)
	if len(runes) == 0 || len(gradient) == 0 {
		return text
	}

	var b strings.Builder
	for i, r := range runes {
		idx := 0
		if len(runes) > 1 {
			idx = i * (len(gradient) - 1) / (len(runes) - 1)
		}
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(gradient[idx])).Bold(bold)
		b.WriteString(style.Render(string(r)))
	}
	return b.String()
}

// FormatDuration renders ms as m:ss.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

func smoothStep(t float64) float64 {
	t = clamp01(t)
	return t * t * (3 - 2*t)
}

func clamp01(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
