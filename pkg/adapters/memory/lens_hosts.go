package memory

import (
	"fmt"
	"strconv"
	"strings"
)

// hostsLens handles /etc/hosts. Every entry becomes a numbered node with
// ipaddr, canonical and alias children; comments become #comment nodes.
type hostsLens struct{}

func (hostsLens) Name() string { return "Hosts.lns" }

func (l hostsLens) Get(text string) ([]*Node, error) {
	var (
		nodes []*Node
		seq   int
	)
	for ln := range lines(text) {
		body := strings.TrimRight(ln.text, " \t\r")
		trimmed := strings.TrimLeft(body, " \t")
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			i := strings.IndexByte(body, '#')
			nodes = append(nodes, commentNode(ln.start+i, body[i:]))
			continue
		}

		var comment *Node
		if i := strings.IndexByte(body, '#'); i >= 0 {
			comment = commentNode(ln.start+i, body[i:])
			body = strings.TrimRight(body[:i], " \t")
		}
		fields := fieldsWithOffsets(body)
		if len(fields) < 2 {
			return nil, &ParseError{Lens: l.Name(), Line: ln.no, Msg: "expected an address followed by a host name"}
		}
		seq++
		entry := &Node{
			Label: strconv.Itoa(seq),
			Span:  &NodeSpan{LabelStart: ln.start, LabelEnd: ln.start, ValueStart: ln.start, ValueEnd: ln.start, Start: ln.start, End: ln.start + len(body)},
		}
		for i, f := range fields {
			label := "alias"
			switch i {
			case 0:
				label = "ipaddr"
			case 1:
				label = "canonical"
			}
			start := ln.start + f.off
			entry.append(&Node{
				Label: label,
				Value: Str(f.text),
				Span:  &NodeSpan{LabelStart: start, LabelEnd: start, ValueStart: start, ValueEnd: start + len(f.text), Start: start, End: start + len(f.text)},
			})
		}
		if comment != nil {
			entry.append(comment)
		}
		nodes = append(nodes, entry)
	}
	return nodes, nil
}

func (l hostsLens) Put(nodes []*Node) (string, error) {
	var b strings.Builder
	for _, n := range nodes {
		if n.Label == "#comment" {
			b.WriteString("# " + value(n) + "\n")
			continue
		}
		if _, err := strconv.Atoi(n.Label); err != nil {
			return "", fmt.Errorf("%s: unexpected node %q", l.Name(), n.Label)
		}
		var (
			ip, canonical string
			aliases       []string
			comment       *Node
		)
		for _, c := range n.Children {
			switch c.Label {
			case "ipaddr":
				ip = value(c)
			case "canonical":
				canonical = value(c)
			case "alias":
				aliases = append(aliases, value(c))
			case "#comment":
				comment = c
			default:
				return "", fmt.Errorf("%s: unexpected node %q in entry %s", l.Name(), c.Label, n.Label)
			}
		}
		if ip == "" || canonical == "" {
			return "", fmt.Errorf("%s: entry %s needs ipaddr and canonical", l.Name(), n.Label)
		}
		b.WriteString(ip + "\t" + canonical)
		for _, a := range aliases {
			b.WriteString(" " + a)
		}
		if comment != nil {
			b.WriteString("\t# " + value(comment))
		}
		b.WriteByte('\n')
	}
	return b.String(), nil
}

func value(n *Node) string {
	if n.Value == nil {
		return ""
	}
	return *n.Value
}

// commentNode builds a #comment node from raw, which starts with '#' at
// offset start.
func commentNode(start int, raw string) *Node {
	rest := raw[1:]
	lead := len(rest) - len(strings.TrimLeft(rest, " \t"))
	text := strings.TrimSpace(rest)
	vs := start + 1 + lead
	return &Node{
		Label: "#comment",
		Value: Str(text),
		Span:  &NodeSpan{LabelStart: start, LabelEnd: start, ValueStart: vs, ValueEnd: vs + len(text), Start: start, End: start + len(raw)},
	}
}

type field struct {
	text string
	off  int
}

func fieldsWithOffsets(s string) []field {
	var out []field
	start := -1
	for i := 0; i <= len(s); i++ {
		sep := i == len(s) || s[i] == ' ' || s[i] == '\t'
		switch {
		case sep && start >= 0:
			out = append(out, field{text: s[start:i], off: start})
			start = -1
		case !sep && start < 0:
			start = i
		}
	}
	return out
}
