package memory

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
)

type line struct {
	text  string
	start int
	no    int
}

// lines yields the lines of text without their newline, with the offset
// of each line's first byte and its 1-based number.
func lines(text string) iter.Seq[line] {
	return func(yield func(line) bool) {
		start, no := 0, 1
		for start < len(text) {
			end := strings.IndexByte(text[start:], '\n')
			if end < 0 {
				end = len(text) - start
			}
			if !yield(line{text: text[start : start+end], start: start, no: no}) {
				return
			}
			start += end + 1
			no++
		}
	}
}

// simplevarsLens handles "key = value" files.
type simplevarsLens struct{}

func (simplevarsLens) Name() string { return "Simplevars.lns" }

func (l simplevarsLens) Get(text string) ([]*Node, error) {
	var nodes []*Node
	for ln := range lines(text) {
		body := strings.TrimRight(ln.text, " \t\r")
		trimmed := strings.TrimLeft(body, " \t")
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "#"):
			i := strings.IndexByte(body, '#')
			nodes = append(nodes, commentNode(ln.start+i, body[i:]))
			continue
		}

		eq := strings.IndexByte(body, '=')
		if eq < 0 {
			return nil, &ParseError{Lens: l.Name(), Line: ln.no, Msg: "expected key = value"}
		}
		key := strings.TrimSpace(body[:eq])
		if !validLabel(key) || strings.ContainsAny(key, " \t") {
			return nil, &ParseError{Lens: l.Name(), Line: ln.no, Msg: fmt.Sprintf("invalid key %q", key)}
		}
		raw := body[eq+1:]
		val := strings.TrimSpace(raw)
		ks := ln.start + strings.Index(body, key)
		vs := ln.start + eq + 1 + (len(raw) - len(strings.TrimLeft(raw, " \t")))
		nodes = append(nodes, &Node{
			Label: key,
			Value: Str(val),
			Span:  &NodeSpan{LabelStart: ks, LabelEnd: ks + len(key), ValueStart: vs, ValueEnd: vs + len(val), Start: ln.start, End: ln.start + len(body)},
		})
	}
	return nodes, nil
}

func (l simplevarsLens) Put(nodes []*Node) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		if n.Label == "#comment" {
			b.WriteString("# " + value(n) + "\n")
			continue
		}
		if len(n.Children) > 0 {
			return "", fmt.Errorf("%s: %s may not have children", l.Name(), n.Label)
		}
		b.WriteString(n.Label + " = " + value(n) + "\n")
	}
	return b.String(), nil
}

// simplelinesLens turns every non-comment line into a numbered node.
type simplelinesLens struct{}

func (simplelinesLens) Name() string { return "Simplelines.lns" }

func (simplelinesLens) Get(text string) ([]*Node, error) {
	var (
		nodes []*Node
		seq   int
	)
	for ln := range lines(text) {
		body := strings.TrimRight(ln.text, " \t\r")
		trimmed := strings.TrimLeft(body, " \t")
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "#"):
			i := strings.IndexByte(body, '#')
			nodes = append(nodes, commentNode(ln.start+i, body[i:]))
			continue
		}
		seq++
		vs := ln.start + len(body) - len(trimmed)
		nodes = append(nodes, &Node{
			Label: strconv.Itoa(seq),
			Value: Str(trimmed),
			Span:  &NodeSpan{LabelStart: vs, LabelEnd: vs, ValueStart: vs, ValueEnd: vs + len(trimmed), Start: ln.start, End: ln.start + len(body)},
		})
	}
	return nodes, nil
}

func (l simplelinesLens) Put(nodes []*Node) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		if n.Label == "#comment" {
			b.WriteString("# " + value(n) + "\n")
			continue
		}
		if len(n.Children) > 0 {
			return "", fmt.Errorf("%s: line %s may not have children", l.Name(), n.Label)
		}
		b.WriteString(value(n) + "\n")
	}
	return b.String(), nil
}
