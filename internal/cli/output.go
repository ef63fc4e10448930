package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/internal/presentation/graph"
	"github.com/aretw0/augeas/internal/presentation/tui"
)

// Printer writes command results. On a terminal it colours output and
// renders tables as markdown; otherwise it writes plain lines, or JSON
// when asked to.
type Printer struct {
	w      io.Writer
	tty    bool
	json   bool
	styles *tui.Styles
}

// NewPrinter creates a Printer for w.
func NewPrinter(w io.Writer, jsonOut bool) *Printer {
	tty := isTerminal(w)
	return &Printer{w: w, tty: tty, json: jsonOut, styles: tui.NewStyles(w, tty && !jsonOut)}
}

// JSON writes v as indented JSON.
func (p *Printer) JSON(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Value prints the result of get in augtool form.
func (p *Printer) Value(path, value string, ok bool) error {
	if p.json {
		out := map[string]any{"path": path, "value": nil}
		if ok {
			out["value"] = value
		}
		return p.JSON(out)
	}
	if !ok {
		_, err := fmt.Fprintf(p.w, "%s %s\n", p.styles.Path(path), p.styles.Faint("(none)"))
		return err
	}
	_, err := fmt.Fprintf(p.w, "%s = %s\n", p.styles.Path(path), p.styles.Value(value))
	return err
}

// Paths prints one path per line.
func (p *Printer) Paths(paths []string) error {
	if p.json {
		if paths == nil {
			paths = []string{}
		}
		return p.JSON(paths)
	}
	if len(paths) == 0 {
		_, err := fmt.Fprintln(p.w, p.styles.Faint("  (no matches)"))
		return err
	}
	for _, path := range paths {
		if _, err := fmt.Fprintln(p.w, p.styles.Path(path)); err != nil {
			return err
		}
	}
	return nil
}

// Count prints a number of affected nodes.
func (p *Printer) Count(what string, n int) error {
	if p.json {
		return p.JSON(map[string]int{what: n})
	}
	_, err := fmt.Fprintf(p.w, "%s : %d\n", what, n)
	return err
}

// Tree prints nodes as augtool's print does, with quoted values.
func (p *Printer) Tree(nodes []graph.Node) error {
	if p.json {
		type entry struct {
			Path  string  `json:"path"`
			Value *string `json:"value"`
		}
		out := make([]entry, len(nodes))
		for i, n := range nodes {
			out[i] = entry(n)
		}
		return p.JSON(out)
	}
	for _, n := range nodes {
		line := p.styles.Path(n.Path)
		if n.Value != nil {
			line += " = " + p.styles.Value(strconv.Quote(*n.Value))
		}
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return err
		}
	}
	return nil
}

// Mermaid prints nodes as a Mermaid flowchart, highlighting matched.
func (p *Printer) Mermaid(nodes []graph.Node, matched []string) error {
	_, err := io.WriteString(p.w, graph.GenerateMermaid(nodes, &graph.Overlay{Matched: matched}))
	return err
}

// Transforms prints registered transforms.
func (p *Printer) Transforms(ts []augeas.Transform) error {
	if p.json {
		return p.JSON(ts)
	}
	for _, t := range ts {
		line := fmt.Sprintf("%s\t%s\t%s", t.Name, t.Lens, strings.Join(t.Incl, ","))
		if len(t.Excl) > 0 {
			line += "\t!" + strings.Join(t.Excl, ",!")
		}
		if _, err := fmt.Fprintln(p.w, line); err != nil {
			return err
		}
	}
	return nil
}

// FileErrors prints the errors recorded by load or save. On a terminal
// they are rendered as a markdown table.
func (p *Printer) FileErrors(fes []augeas.FileError) error {
	if p.json {
		return p.JSON(fes)
	}
	if len(fes) == 0 {
		_, err := fmt.Fprintln(p.w, p.styles.Faint("no errors"))
		return err
	}
	if p.tty {
		render, err := tui.NewRenderer(0)
		if err == nil {
			out, err := render(errorTable(fes))
			if err == nil {
				_, err = io.WriteString(p.w, out)
				return err
			}
		}
	}
	for _, fe := range fes {
		if _, err := fmt.Fprintf(p.w, "%s\t%s\t%s\n", fe.Path, fe.Error, fe.Message); err != nil {
			return err
		}
	}
	return nil
}

func errorTable(fes []augeas.FileError) string {
	var b strings.Builder
	b.WriteString("| Node | Error | Message |\n|---|---|---|\n")
	cell := strings.NewReplacer("|", `\|`, "\n", " ")
	for _, fe := range fes {
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", fe.Path, fe.Error, cell.Replace(fe.Message))
	}
	return b.String()
}

// Error prints err to w with its kind.
func (p *Printer) Error(w io.Writer, err error) {
	styles := p.styles
	if w != p.w {
		styles = tui.NewStyles(w, isTerminal(w))
	}
	var e *augeas.Error
	if errors.As(err, &e) {
		fmt.Fprintf(w, "error[%s]: %v\n", styles.Kind(e.Kind), err)
		return
	}
	fmt.Fprintf(w, "error: %v\n", err)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
