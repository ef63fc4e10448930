package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the augctl banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"   __ _ _  _  __ _  ___  __ _  ___", "#34d399"},
		{"  / _' | || |/ _' |/ -_)/ _' |(_-<", "#2dd4bf"},
		{"  \\__,_|\\_,_|\\__, |\\___|\\__,_|/__/", "#22d3ee"},
		{"               |___/", "#60a5fa"},
	}
	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  version "+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
