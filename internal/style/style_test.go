package style

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"karolbroda.com/linesync/internal/colors"
	"karolbroda.com/linesync/internal/config"
	"karolbroda.com/linesync/internal/terminal"
)

func TestParseEnums(t *testing.T) {
	if p, err := ParsePlayerType(" Big "); err != nil || p != PlayerBig {
		t.Errorf("ParsePlayerType = %v, %v", p, err)
	}
	if _, err := ParsePlayerType("huge"); err == nil {
		t.Error("expected error for unknown player type")
	}
	if o, err := ParseLyricsOutline("glow"); err != nil || o != OutlineGlow {
		t.Errorf("ParseLyricsOutline = %v, %v", o, err)
	}
	if a, err := ParseAlignment("left"); err != nil || a != AlignLeft {
		t.Errorf("ParseAlignment = %v, %v", a, err)
	}
	if ThumbnailHalfBlock.String() != "halfblock" {
		t.Errorf("String = %q", ThumbnailHalfBlock.String())
	}
	if got := LyricsColor(9).String(); got != "unknown(9)" {
		t.Errorf("String = %q", got)
	}
}

func TestEnumNamesMatchConfig(t *testing.T) {
	pairs := []struct {
		name  string
		have  []string
		allow []string
	}{
		{"player", playerTypeNames, config.PlayerTypes},
		{"thumbnail", thumbnailNames, config.ThumbnailStyles},
		{"color", lyricsColorNames, config.LyricsColors},
		{"outline", outlineNames, config.LyricsOutlines},
		{"alignment", alignmentNames, config.Alignments},
	}
	for _, p := range pairs {
		if strings.Join(p.have, ",") != strings.Join(p.allow, ",") {
			t.Errorf("%s: %v != %v", p.name, p.have, p.allow)
		}
	}
}

func TestFromConfig(t *testing.T) {
	d := FromConfig(config.Default().Display)
	if d.Player != PlayerClassic || d.Thumbnail != ThumbnailHalfBlock || d.Color != ColorPalette {
		t.Errorf("unexpected defaults %+v", d)
	}

	d = FromConfig(config.DisplayConfig{PlayerType: "compact", LyricsOutline: "border", HideHeader: true})
	if d.Player != PlayerCompact || d.Outline != OutlineBorder || !d.HideHeader {
		t.Errorf("unexpected display %+v", d)
	}
	if d.Thumbnail != ThumbnailHalfBlock {
		t.Errorf("empty thumbnail should fall back to halfblock, got %v", d.Thumbnail)
	}
}

func TestResolveLinePalette(t *testing.T) {
	p := colors.DefaultPalette()
	d := Display{Color: ColorPalette}

	active := ResolveLine(d, p, LineState{Active: true})
	if active.GetForeground() != lipgloss.Color(p.Primary) {
		t.Errorf("active foreground = %v, want %s", active.GetForeground(), p.Primary)
	}
	if !active.GetBold() {
		t.Error("active line should be bold")
	}

	near := ResolveLine(d, p, LineState{Distance: 1}).GetForeground().(lipgloss.Color)
	far := ResolveLine(d, p, LineState{Distance: 4}).GetForeground().(lipgloss.Color)
	if near == far {
		t.Error("distance should change the colour")
	}
	past := ResolveLine(d, p, LineState{Distance: -1, Past: true}).GetForeground().(lipgloss.Color)
	if past == near {
		t.Error("past lines should fade further than upcoming ones")
	}
}

func TestResolveLineModes(t *testing.T) {
	p := colors.DefaultPalette()

	theme := ResolveLine(Display{Color: ColorTheme}, p, LineState{Distance: 5})
	if theme.GetForeground() != lipgloss.Color(themeFar) {
		t.Errorf("theme far = %v", theme.GetForeground())
	}

	mono := ResolveLine(Display{Color: ColorMono}, p, LineState{Distance: 3})
	if !mono.GetFaint() {
		t.Error("distant mono line should be faint")
	}
	if _, ok := mono.GetForeground().(lipgloss.NoColor); !ok {
		t.Errorf("mono should not set a colour, got %v", mono.GetForeground())
	}

	border := ResolveLine(Display{Outline: OutlineBorder}, p, LineState{Active: true})
	if border.GetBorderStyle() != lipgloss.RoundedBorder() {
		t.Error("active line should get a rounded border")
	}
	if ResolveLine(Display{Outline: OutlineBorder}, p, LineState{Distance: 1}).GetBorderStyle() == lipgloss.RoundedBorder() {
		t.Error("inactive lines should not get a border")
	}

	glow := ResolveLine(Display{Outline: OutlineGlow}, p, LineState{Active: true, Glow: 1})
	if glow.GetForeground() == lipgloss.Color(p.Primary) {
		t.Error("glow should brighten the active line")
	}

	shadow := ResolveLine(Display{Outline: OutlineShadow}, p, LineState{Active: true})
	if _, ok := shadow.GetBackground().(lipgloss.NoColor); ok {
		t.Error("shadow should set a background")
	}
}

func TestResolveThumbnail(t *testing.T) {
	kitty := terminal.Capabilities{Kitty: true}
	plain := terminal.Capabilities{}

	tests := []struct {
		name  string
		style ThumbnailStyle
		caps  terminal.Capabilities
		w, h  int
		want  ThumbnailPlan
	}{
		{"kitty supported", ThumbnailKitty, kitty, 100, 40, ThumbnailPlan{ThumbnailKitty, 12, 6}},
		{"kitty downgraded", ThumbnailKitty, plain, 100, 40, ThumbnailPlan{ThumbnailHalfBlock, 12, 6}},
		{"narrow", ThumbnailHalfBlock, plain, 60, 40, ThumbnailPlan{ThumbnailHalfBlock, 8, 4}},
		{"too small", ThumbnailHalfBlock, plain, 40, 40, ThumbnailPlan{Style: ThumbnailNone}},
		{"too short", ThumbnailKitty, kitty, 100, 20, ThumbnailPlan{Style: ThumbnailNone}},
		{"disabled", ThumbnailNone, kitty, 100, 40, ThumbnailPlan{Style: ThumbnailNone}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveThumbnail(tt.style, tt.caps, tt.w, tt.h)
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.Visible() != (tt.want.Style != ThumbnailNone) {
				t.Errorf("Visible = %v", got.Visible())
			}
		})
	}
}

func TestResolveLayout(t *testing.T) {
	classic := ResolveLayout(PlayerClassic, 100, 40, false)
	if !classic.ShowHeader || classic.ContextLines != 8 {
		t.Errorf("classic = %+v", classic)
	}

	compact := ResolveLayout(PlayerCompact, 100, 40, false)
	if compact.ContextLines != 1 {
		t.Errorf("compact = %+v", compact)
	}

	big := ResolveLayout(PlayerBig, 100, 40, true)
	if !big.BigActive || big.ShowHeader {
		t.Errorf("big = %+v", big)
	}
	if ResolveLayout(PlayerBig, 30, 40, false).BigActive {
		t.Error("narrow window should not use figlet text")
	}

	tiny := ResolveLayout(PlayerClassic, 20, 5, false)
	if tiny.ShowHeader || tiny.ContextLines != 2 {
		t.Errorf("tiny = %+v", tiny)
	}
}

func TestAlign(t *testing.T) {
	if got := Align("ab", 6, AlignCenter); got != "  ab  " {
		t.Errorf("center = %q", got)
	}
	if got := Align("ab", 6, AlignLeft); got != "ab    " {
		t.Errorf("left = %q", got)
	}
	if got := Align("abcdef", 3, AlignCenter); got != "abcdef" {
		t.Errorf("overflow = %q", got)
	}
}

func TestBigText(t *testing.T) {
	rows := BigText("hi", 80)
	if len(rows) < 3 {
		t.Fatalf("expected figlet rows, got %q", rows)
	}
	if got := BigText("a much longer line of lyrics", 20); len(got) != 1 || got[0] != "a much longer line of lyrics" {
		t.Errorf("too wide should fall back, got %q", got)
	}
	if BigText("   ", 80) != nil {
		t.Error("blank text should render nothing")
	}
}
