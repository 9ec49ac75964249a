// Package style maps display preferences and line state to lipgloss
// styles and layout decisions. Nothing here draws to the terminal, so every
// choice can be tested on its own.
package style

import (
	"fmt"
	"strings"
)

type PlayerType int

const (
	PlayerClassic PlayerType = iota
	PlayerCompact
	PlayerBig
)

var playerTypeNames = []string{"classic", "compact", "big"}

func (p PlayerType) String() string { return enumName(playerTypeNames, int(p)) }

func ParsePlayerType(s string) (PlayerType, error) {
	i, err := parseEnum("player type", playerTypeNames, s)
	return PlayerType(i), err
}

type ThumbnailStyle int

const (
	ThumbnailKitty ThumbnailStyle = iota
	ThumbnailHalfBlock
	ThumbnailNone
)

var thumbnailNames = []string{"kitty", "halfblock", "none"}

func (t ThumbnailStyle) String() string { return enumName(thumbnailNames, int(t)) }

func ParseThumbnailStyle(s string) (ThumbnailStyle, error) {
	i, err := parseEnum("thumbnail style", thumbnailNames, s)
	return ThumbnailStyle(i), err
}

type LyricsColor int

const (
	ColorPalette LyricsColor = iota
	ColorTheme
	ColorMono
)

var lyricsColorNames = []string{"palette", "theme", "mono"}

func (c LyricsColor) String() string { return enumName(lyricsColorNames, int(c)) }

func ParseLyricsColor(s string) (LyricsColor, error) {
	i, err := parseEnum("lyrics color", lyricsColorNames, s)
	return LyricsColor(i), err
}

type LyricsOutline int

const (
	OutlineNone LyricsOutline = iota
	OutlineShadow
	OutlineGlow
	OutlineBorder
)

var outlineNames = []string{"none", "shadow", "glow", "border"}

func (o LyricsOutline) String() string { return enumName(outlineNames, int(o)) }

func ParseLyricsOutline(s string) (LyricsOutline, error) {
	i, err := parseEnum("lyrics outline", outlineNames, s)
	return LyricsOutline(i), err
}

type Alignment int

const (
	AlignCenter Alignment = iota
	AlignLeft
)

var alignmentNames = []string{"center", "left"}

func (a Alignment) String() string { return enumName(alignmentNames, int(a)) }

func ParseAlignment(s string) (Alignment, error) {
	i, err := parseEnum("alignment", alignmentNames, s)
	return Alignment(i), err
}

func enumName(names []string, i int) string {
	if i < 0 || i >= len(names) {
		return fmt.Sprintf("unknown(%d)", i)
	}
	return names[i]
}

func parseEnum(kind string, names []string, s string) (int, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range names {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s %q (want one of %s)", kind, s, strings.Join(names, ", "))
}
