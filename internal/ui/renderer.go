package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"karolbroda.com/linesync/internal/colors"
	"karolbroda.com/linesync/internal/style"
)

// lineMargin keeps wrapped lyrics off the screen edges.
const lineMargin = 4

// TextRenderer turns lyric lines into styled, wrapped and aligned rows.
type TextRenderer struct {
	display     style.Display
	palette     colors.Palette
	anim        *AnimState
	screenWidth int
}

func NewTextRenderer(display style.Display, palette colors.Palette, anim *AnimState, screenWidth int) *TextRenderer {
	return &TextRenderer{
		display:     display,
		palette:     palette,
		anim:        anim,
		screenWidth: screenWidth,
	}
}

// RenderFocusLyric renders the active line. The big player draws it as
// figlet text when it fits.
func (r *TextRenderer) RenderFocusLyric(text string, big bool) []string {
	state := style.LineState{Active: true, Glow: r.anim.GlowIntensity}
	st := style.ResolveLine(r.display, r.palette, state)

	if big {
		if rows := style.BigText(text, r.textWidth()); len(rows) > 1 {
			// a border per figlet row would tear the glyphs apart
			st = st.UnsetBorderStyle().UnsetPadding()
			out := make([]string, len(rows))
			for i, row := range rows {
				out[i] = r.align(r.paint(st, row))
			}
			return out
		}
	}

	var out []string
	for _, line := range r.wrapText(text) {
		out = append(out, r.alignBlock(r.paint(st, line))...)
	}
	return out
}

// RenderContextLyric renders a line distance lines away from the active one.
func (r *TextRenderer) RenderContextLyric(text string, distance int) []string {
	st := style.ResolveLine(r.display, r.palette, style.LineState{
		Distance: distance,
		Past:     distance < 0,
	})

	var out []string
	for _, line := range r.wrapText(text) {
		out = append(out, r.align(st.Render(line)))
	}
	return out
}

// RenderPlain renders unsynced lyrics, which have no active line.
func (r *TextRenderer) RenderPlain(lines []string) []string {
	st := style.ResolveLine(r.display, r.palette, style.LineState{Distance: 1})
	var out []string
	for _, text := range lines {
		if strings.TrimSpace(text) == "" {
			out = append(out, "")
			continue
		}
		for _, line := range r.wrapText(text) {
			out = append(out, r.align(st.Render(line)))
		}
	}
	return out
}

// paint colours the active line. With the palette in use and no outline the
// line gets the artwork gradient; otherwise the resolved style wins.
func (r *TextRenderer) paint(st lipgloss.Style, text string) string {
	if r.display.Color == style.ColorPalette && r.display.Outline == style.OutlineNone && len(r.palette.Gradient) > 0 {
		return colors.RenderGradient(text, r.palette.Gradient, true)
	}
	return st.Render(text)
}

func (r *TextRenderer) textWidth() int {
	w := r.screenWidth - lineMargin*2
	if w < 10 {
		w = 10
	}
	return w
}

func (r *TextRenderer) wrapText(text string) []string {
	if text == "" {
		text = "···"
	}
	wrapped := wordwrap.String(text, r.textWidth())
	return strings.Split(wrapped, "\n")
}

func (r *TextRenderer) align(line string) string {
	if r.display.Alignment == style.AlignLeft {
		return strings.Repeat(" ", lineMargin) + line
	}
	return style.Align(line, r.screenWidth, style.AlignCenter)
}

// alignBlock aligns a possibly multi-row render, such as a bordered line.
func (r *TextRenderer) alignBlock(block string) []string {
	rows := strings.Split(block, "\n")
	for i, row := range rows {
		rows[i] = r.align(row)
	}
	return rows
}
