package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"karolbroda.com/linesync/internal/artwork"
	"karolbroda.com/linesync/internal/colors"
	"karolbroda.com/linesync/internal/style"
	"karolbroda.com/linesync/internal/terminal"
)

const errorColor = "#FF6B6B"

func (m Model) View() string {
	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	if m.quitting {
		return ""
	}

	if m.track == nil {
		return m.renderWaitingScreen(width, height)
	}

	return m.renderMainScreen(width, height)
}

func (m Model) renderWaitingScreen(width int, height int) string {
	lines := make([]string, height)
	center := height / 2

	wait := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim)).Italic(true)
	lines[max(center-1, 0)] = style.Align(wait.Render("awaiting music"), width, style.AlignCenter)

	pulse := []string{"·", "•", "●", "•"}
	dot := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Secondary))
	lines[center] = style.Align(dot.Render(pulse[(m.tickCount/4)%len(pulse)]), width, style.AlignCenter)

	return strings.Join(lines, "\n")
}

func (m Model) renderMainScreen(width int, height int) string {
	layout := style.ResolveLayout(m.display.Player, width, height, m.hideHeader)

	var lines []string
	if layout.ShowHeader {
		lines = append(lines, m.renderHeader(width, height)...)
	}
	if layout.ShowProgress && m.track.DurationMs > 0 {
		lines = append(lines, m.renderProgress(width), "")
	}

	body := height - len(lines)
	if body < 1 {
		body = 1
	}

	switch {
	case m.err != nil:
		lines = append(lines, m.renderNotice(m.err.Error(), errorColor, body, width)...)
	case !m.lyricsEnabled:
		lines = append(lines, m.renderNotice("lyrics off", m.palette.Dim, body, width)...)
	case m.session == nil && m.IsLoadingLyrics():
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		text := frames[m.tickCount%len(frames)] + " loading"
		lines = append(lines, m.renderNotice(text, m.palette.Secondary, body, width)...)
	case m.session == nil:
		lines = append(lines, m.renderNotice("♪", m.palette.Dim, body, width)...)
	case m.session.synced():
		lines = append(lines, m.renderSlidingLyrics(layout, body, width)...)
	case len(m.session.plain) > 0:
		lines = append(lines, m.renderPlainLyrics(body, width)...)
	default:
		lines = append(lines, m.renderNotice("♪ instrumental ♪", m.palette.Accent, body, width)...)
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderHeader(width int, height int) []string {
	lines := []string{""}

	plan := style.ResolveThumbnail(m.display.Thumbnail, m.caps, width, height)
	if m.image == nil {
		plan = style.ThumbnailPlan{Style: style.ThumbnailNone}
	}

	info := m.renderTrackInfo(width - plan.Cols - 6)

	if plan.Style == style.ThumbnailKitty {
		if img := terminal.EncodeKitty(m.image, plan.Cols, plan.Rows); img != "" {
			lines = append(lines, "  "+img)
			// the image occupies rows the renderer does not know about
			for i := 0; i < plan.Rows-1; i++ {
				lines = append(lines, "")
			}
			for _, l := range info {
				lines = append(lines, "  "+l)
			}
			return append(lines, "")
		}
		plan.Style = style.ThumbnailHalfBlock
	}

	var art []string
	if plan.Visible() {
		art = artwork.HalfBlock(m.image, plan.Cols, plan.Rows)
	}

	rows := max(len(art), len(info))
	for i := 0; i < rows; i++ {
		var line strings.Builder
		if len(art) > 0 {
			line.WriteString("  ")
			if i < len(art) {
				line.WriteString(art[i])
			} else {
				line.WriteString(strings.Repeat(" ", plan.Cols))
			}
			line.WriteString("  ")
		} else {
			line.WriteString("  ")
		}
		if i < len(info) {
			line.WriteString(info[i])
		}
		lines = append(lines, line.String())
	}

	return append(lines, "")
}

func (m Model) renderTrackInfo(maxWidth int) []string {
	if maxWidth < 20 {
		maxWidth = 20
	}
	fit := func(s string) string {
		return truncate.StringWithTail(s, uint(maxWidth), "…")
	}

	title := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Primary)).Bold(true)
	artist := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Secondary))
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))

	lines := []string{
		title.Render(fit(m.track.Title)),
		artist.Render(fit(m.track.Artist)),
	}
	if m.track.Album != "" {
		lines = append(lines, dim.Render(fit(m.track.Album)))
	}
	if status := m.statusLine(); status != "" {
		lines = append(lines, dim.Faint(true).Render(fit(status)))
	}
	return lines
}

func (m Model) statusLine() string {
	if m.session == nil {
		return ""
	}
	var parts []string
	if m.session.result.Source != "" {
		parts = append(parts, m.session.result.Source)
	}
	if m.session.offsetMs != 0 {
		parts = append(parts, fmt.Sprintf("offset %+.1fs", float64(m.session.offsetMs)/1000))
	}
	return strings.Join(parts, " · ")
}

func (m Model) renderProgress(width int) string {
	barWidth := max(width-20, 10)

	progress := float64(m.positionMs) / float64(m.track.DurationMs)
	progress = min(max(progress, 0), 1)
	filled := int(float64(barWidth) * progress)

	filledStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Primary))
	emptyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim)).Faint(true)
	timeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.palette.Dim))

	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		switch {
		case i < filled:
			bar.WriteString(filledStyle.Render("━"))
		case i == filled:
			bar.WriteString(filledStyle.Render("●"))
		default:
			bar.WriteString(emptyStyle.Render("─"))
		}
	}

	return fmt.Sprintf("  %s  %s  %s",
		timeStyle.Render(colors.FormatDuration(m.positionMs)),
		bar.String(),
		timeStyle.Render(colors.FormatDuration(m.track.DurationMs)))
}

type renderedLyric struct {
	lines  []string
	offset int
}

func (m Model) renderSlidingLyrics(layout style.Layout, height int, width int) []string {
	renderer := NewTextRenderer(m.display, m.palette, &m.anim, width)
	c := m.session.cursor
	lines := c.Lines()
	idx := c.Index()

	spacing := 1
	if m.display.Player == style.PlayerCompact {
		spacing = 0
	}

	var blocks []renderedLyric
	focus := -1
	for offset := -layout.ContextLines - 1; offset <= layout.ContextLines+1; offset++ {
		i := idx + offset
		if offset == 0 {
			text := "♪"
			if i >= 0 {
				text = lines[i].Text
			}
			focus = len(blocks)
			blocks = append(blocks, renderedLyric{lines: renderer.RenderFocusLyric(text, layout.BigActive), offset: 0})
			continue
		}
		if i < 0 || i >= len(lines) {
			continue
		}
		blocks = append(blocks, renderedLyric{lines: renderer.RenderContextLyric(lines[i].Text, offset), offset: offset})
	}

	positions := make([]int, len(blocks))
	positions[focus] = (height - len(blocks[focus].lines)) / 2

	y := positions[focus]
	for i := focus - 1; i >= 0; i-- {
		y -= len(blocks[i].lines) + spacing
		positions[i] = y
	}
	y = positions[focus] + len(blocks[focus].lines) + spacing
	for i := focus + 1; i < len(blocks); i++ {
		positions[i] = y
		y += len(blocks[i].lines) + spacing
	}

	shift := m.anim.RowShift(1 + spacing)

	output := make([]string, height)
	for i, b := range blocks {
		for j, line := range b.lines {
			row := positions[i] + shift + j
			if row >= 0 && row < height && (output[row] == "" || b.offset == 0) {
				output[row] = line
			}
		}
	}
	return output
}

func (m Model) renderPlainLyrics(height int, width int) []string {
	renderer := NewTextRenderer(m.display, m.palette, &m.anim, width)
	lines := renderer.RenderPlain(m.session.plain)
	if len(lines) > height {
		lines = lines[:height]
	}
	return lines
}

func (m Model) renderNotice(text string, color string, height int, width int) []string {
	lines := make([]string, 0, height)
	for i := 0; i < height/2-1; i++ {
		lines = append(lines, "")
	}
	st := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	return append(lines, style.Align(st.Render(text), width, style.AlignCenter))
}
