// Package terminal detects what the attached terminal can draw.
package terminal

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"strings"

	"github.com/nfnt/resize"
	"golang.org/x/term"
)

type Capabilities struct {
	IsTTY       bool
	Kitty       bool
	TrueColor   bool
	TermProgram string
	Width       int
	Height      int
}

// Detect inspects stdout and the environment. The kitty graphics protocol
// is only used when LINESYNC_KITTY opts in or the terminal is kitty itself.
func Detect() Capabilities {
	return detect(os.Getenv, int(os.Stdout.Fd()))
}

func detect(getenv func(string) string, fd int) Capabilities {
	caps := Capabilities{
		TermProgram: getenv("TERM_PROGRAM"),
	}

	caps.IsTTY = term.IsTerminal(fd)
	if caps.IsTTY {
		if w, h, err := term.GetSize(fd); err == nil {
			caps.Width, caps.Height = w, h
		}
	}

	switch strings.ToLower(getenv("COLORTERM")) {
	case "truecolor", "24bit":
		caps.TrueColor = true
	}

	switch strings.ToLower(getenv("LINESYNC_KITTY")) {
	case "1", "true", "yes", "on":
		caps.Kitty = true
	case "0", "false", "no", "off":
		caps.Kitty = false
	default:
		caps.Kitty = getenv("KITTY_WINDOW_ID") != "" || getenv("TERM") == "xterm-kitty"
	}
	if caps.Kitty && caps.TermProgram == "" {
		caps.TermProgram = "kitty"
	}

	return caps
}

// Reset restores cursor, colours and the main screen after a crash.
func Reset(w io.Writer) {
	io.WriteString(w, "\033[?25h\033[0m\033[?1049l\033[?1000l\033[?1002l\033[?1003l\033[?1006l")
}

// EncodeKitty renders img as a kitty graphics escape sized to cols x rows
// cells. The payload is chunked at 4096 bytes as the protocol requires.
func EncodeKitty(img image.Image, cols, rows int) string {
	if img == nil || cols <= 0 || rows <= 0 {
		return ""
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return ""
	}

	// cells are roughly twice as tall as wide
	w, h := uint(cols*10), uint(rows*20)
	aspect := float64(bounds.Dx()) / float64(bounds.Dy())
	if aspect > float64(w)/float64(h) {
		h = uint(float64(w) / aspect)
	} else {
		w = uint(float64(h) * aspect)
	}
	w, h = max(w, 10), max(h, 10)

	var buf bytes.Buffer
	if err := png.Encode(&buf, resize.Resize(w, h, img, resize.Lanczos3)); err != nil {
		return ""
	}
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	const chunkSize = 4096
	var out strings.Builder
	for i := 0; i < len(encoded); i += chunkSize {
		end := min(i+chunkSize, len(encoded))
		more := 1
		if end == len(encoded) {
			more = 0
		}
		if i == 0 {
			fmt.Fprintf(&out, "\x1b_Ga=T,f=100,c=%d,r=%d,m=%d;%s\x1b\\", cols, rows, more, encoded[i:end])
		} else {
			fmt.Fprintf(&out, "\x1b_Gm=%d;%s\x1b\\", more, encoded[i:end])
		}
	}
	return out.String()
}
