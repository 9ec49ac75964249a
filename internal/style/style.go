package style

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/common-nighthawk/go-figure"

	"karolbroda.com/linesync/internal/colors"
	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/terminal"
)

// Display is the parsed form of config.DisplayConfig.
type Display struct {
	Player     PlayerType
	Thumbnail  ThumbnailStyle
	Color      LyricsColor
	Outline    LyricsOutline
	Alignment  Alignment
	HideHeader bool
}

// FromConfig parses the display section. Values are validated by the
// config package, so unknown strings fall back to the zero value.
func FromConfig(c config.DisplayConfig) Display {
	d := Display{HideHeader: c.HideHeader}
	d.Player, _ = ParsePlayerType(c.PlayerType)
	thumb, err := ParseThumbnailStyle(c.Thumbnail)
	if err != nil {
		thumb = ThumbnailHalfBlock
	}
	d.Thumbnail = thumb
	d.Color, _ = ParseLyricsColor(c.LyricsColor)
	d.Outline, _ = ParseLyricsOutline(c.LyricsOutline)
	d.Alignment, _ = ParseAlignment(c.Alignment)
	return d
}

// LineState describes one lyric line relative to the active one.
type LineState struct {
	Distance int
	Active   bool
	Past     bool
	Glow     float64
}

// ANSI colour indices used when following the terminal theme.
const (
	themeActive = "15"
	themeNear   = "7"
	themeFar    = "8"
	themeShadow = "0"
)

// ResolveLine picks the style for a lyric line. Lines fade with distance
// from the active one; past lines fade faster than upcoming ones.
func ResolveLine(d Display, p colors.Palette, s LineState) lipgloss.Style {
	st := lipgloss.NewStyle()
	dist := s.Distance
	if dist < 0 {
		dist = -dist
	}

	var fg string
	switch d.Color {
	case ColorTheme:
		switch {
		case s.Active:
			fg = themeActive
		case dist <= 2:
			fg = themeNear
		default:
			fg = themeFar
		}
	case ColorMono:
		st = st.Bold(s.Active).Faint(!s.Active && dist > 1)
	default:
		fg = paletteColor(p, s, dist)
	}

	if s.Active {
		st = st.Bold(true)
	}

	switch d.Outline {
	case OutlineShadow:
		if s.Active {
			bg := themeShadow
			if d.Color == ColorPalette {
				bg = colors.Scale(p.Primary, 0.25)
			}
			st = st.Background(lipgloss.Color(bg))
		}
	case OutlineGlow:
		if s.Active && d.Color == ColorPalette {
			fg = colors.Glow(fg, s.Glow)
		}
	case OutlineBorder:
		if s.Active {
			border := lipgloss.Color(p.Accent)
			if d.Color != ColorPalette {
				border = lipgloss.Color(themeNear)
			}
			st = st.Border(lipgloss.RoundedBorder()).BorderForeground(border).Padding(0, 1)
		}
	}

	if fg != "" {
		st = st.Foreground(lipgloss.Color(fg))
	}
	return st
}

func paletteColor(p colors.Palette, s LineState, dist int) string {
	if s.Active {
		return p.Primary
	}
	fade := float64(dist) * 0.18
	if s.Past {
		fade += 0.15
	}
	if fade > 0.85 {
		fade = 0.85
	}
	return colors.Desaturate(colors.Blend(p.Secondary, p.Dim, fade), fade*0.5)
}

// ThumbnailPlan says how, and how large, to draw album art.
type ThumbnailPlan struct {
	Style ThumbnailStyle
	Cols  int
	Rows  int
}

func (t ThumbnailPlan) Visible() bool {
	return t.Style != ThumbnailNone && t.Cols > 0 && t.Rows > 0
}

// ResolveThumbnail downgrades kitty images to half blocks when the terminal
// cannot show them and hides art entirely in small windows.
func ResolveThumbnail(style ThumbnailStyle, caps terminal.Capabilities, width, height int) ThumbnailPlan {
	if style == ThumbnailNone || width < 50 || height < 25 {
		return ThumbnailPlan{Style: ThumbnailNone}
	}
	if style == ThumbnailKitty && !caps.Kitty {
		style = ThumbnailHalfBlock
	}
	plan := ThumbnailPlan{Style: style, Cols: 8, Rows: 4}
	if width >= 80 {
		plan.Cols, plan.Rows = 12, 6
	}
	return plan
}

// Layout is the vertical budget of the lyrics screen.
type Layout struct {
	ContextLines int
	ShowHeader   bool
	ShowProgress bool
	BigActive    bool
	HeaderHeight int
}

// ResolveLayout decides how many lines surround the active one. The compact
// player keeps a single line of context either side; the big player draws
// the active line as figlet text.
func ResolveLayout(pt PlayerType, width, height int, hideHeader bool) Layout {
	l := Layout{ShowHeader: !hideHeader, ShowProgress: true}
	if height < 12 || width < 30 {
		l.ShowHeader = false
		l.ShowProgress = false
	}
	if l.ShowHeader {
		l.HeaderHeight = 4
	}

	body := height - l.HeaderHeight
	if l.ShowProgress {
		body -= 2
	}

	switch pt {
	case PlayerCompact:
		l.ContextLines = 1
	case PlayerBig:
		l.BigActive = width >= 40 && body >= 12
		if l.BigActive {
			body -= 6
		}
		l.ContextLines = body / 4
	default:
		l.ContextLines = (body - 1) / 2
	}

	if l.ContextLines < 0 {
		l.ContextLines = 0
	}
	if pt != PlayerCompact && l.ContextLines > 8 {
		l.ContextLines = 8
	}
	return l
}

// Align pads text to width. Text wider than width is returned unchanged.
func Align(text string, width int, a Alignment) string {
	if width <= 0 || lipgloss.Width(text) >= width {
		return text
	}
	pos := lipgloss.Center
	if a == AlignLeft {
		pos = lipgloss.Left
	}
	return lipgloss.PlaceHorizontal(width, pos, text)
}

// BigText renders text with the standard figlet font. When the result does
// not fit in width the plain text is returned as a single row.
func BigText(text string, width int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	rows := figure.NewFigure(text, "standard", false).Slicify()
	for len(rows) > 0 && strings.TrimSpace(rows[len(rows)-1]) == "" {
		rows = rows[:len(rows)-1]
	}
	for _, row := range rows {
		if lipgloss.Width(row) > width {
			return []string{text}
		}
	}
	if len(rows) == 0 {
		return []string{text}
	}
	return rows
}
