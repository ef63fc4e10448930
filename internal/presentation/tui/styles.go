package tui

import (
	"io"

	"github.com/aretw0/augeas"
	"github.com/muesli/termenv"
)

// Styles colours command line output. With a plain profile every method
// returns its input unchanged.
type Styles struct {
	out *termenv.Output
}

// NewStyles detects the colour support of w.
func NewStyles(w io.Writer, color bool) *Styles {
	if !color {
		return &Styles{out: termenv.NewOutput(w, termenv.WithProfile(termenv.Ascii))}
	}
	return &Styles{out: termenv.NewOutput(w)}
}

// Path renders a tree path.
func (s *Styles) Path(p string) string {
	return s.out.String(p).Foreground(s.out.Color("#60a5fa")).String()
}

// Value renders a node value.
func (s *Styles) Value(v string) string {
	return s.out.String(v).Foreground(s.out.Color("#34d399")).String()
}

// Kind renders an error kind. Problems with the caller's input show in
// yellow, everything else in red.
func (s *Styles) Kind(k augeas.ErrorKind) string {
	color := "#f87171"
	switch k {
	case augeas.KindNoMatch, augeas.KindMultipleMatches, augeas.KindPathExpr, augeas.KindBadArgument, augeas.KindBadLabel:
		color = "#fbbf24"
	}
	return s.out.String(k.String()).Foreground(s.out.Color(color)).Bold().String()
}

// Faint renders secondary text.
func (s *Styles) Faint(text string) string {
	return s.out.String(text).Faint().String()
}
