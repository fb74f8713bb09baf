package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

var bannerLines = []struct {
	text  string
	color string
}{
	{`   ___          _       _          _ _ `, "#818cf8"},
	{`  / __|___   __| |___  | |_  ___  | | |`, "#a78bfa"},
	{` | (__/ _ \ / _' / -_) (_-< ' \/ -_)| | |`, "#c084fc"},
	{`  \___\___/ \__,_\___| /__/_||_\___||_|_|`, "#e879f9"},
}

// PrintBanner writes the ASCII art banner and version to w.
// Colors are dropped when w is not a terminal.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)

	fmt.Fprintln(w)
	for _, l := range bannerLines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	if v := strings.TrimSpace(version); v != "" {
		fmt.Fprintln(w, out.String("  v"+v).Faint())
	}
	fmt.Fprintln(w)
}
