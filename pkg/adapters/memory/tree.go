package memory

import (
	"strconv"
	"strings"
)

// Node is one labeled node of the tree. Lenses produce and consume Nodes.
type Node struct {
	Label    string
	Value    *string
	Children []*Node
	// Span is the node's position in its file, when tracked.
	Span *NodeSpan

	parent *Node
}

// NodeSpan holds byte offsets of a node in the text it was parsed from.
type NodeSpan struct {
	LabelStart, LabelEnd int
	ValueStart, ValueEnd int
	Start, End           int
}

// NewNode returns a detached node.
func NewNode(label string, value *string, children ...*Node) *Node {
	n := &Node{Label: label, Value: value}
	for _, c := range children {
		n.append(c)
	}
	return n
}

// Str returns a pointer to s, for building Node values.
func Str(s string) *string {
	return &s
}

func (n *Node) append(c *Node) {
	c.parent = n
	n.Children = append(n.Children, c)
}

func (n *Node) insertAt(i int, c *Node) {
	c.parent = n
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = c
}

func (n *Node) index() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// detach removes n from its parent.
func (n *Node) detach() {
	if n.parent == nil {
		return
	}
	if i := n.index(); i >= 0 {
		n.parent.Children = append(n.parent.Children[:i], n.parent.Children[i+1:]...)
	}
	n.parent = nil
}

// size counts n and its descendants.
func (n *Node) size() int {
	total := 1
	for _, c := range n.Children {
		total += c.size()
	}
	return total
}

func (n *Node) child(label string) *Node {
	for _, c := range n.Children {
		if c.Label == label {
			return c
		}
	}
	return nil
}

// ensure returns the first child labeled label, creating it if needed.
func (n *Node) ensure(label string) *Node {
	if c := n.child(label); c != nil {
		return c
	}
	c := &Node{Label: label}
	n.append(c)
	return c
}

// isDescendantOf reports whether n is anc or lies below it.
func (n *Node) isDescendantOf(anc *Node) bool {
	for p := n; p != nil; p = p.parent {
		if p == anc {
			return true
		}
	}
	return false
}

// root returns the topmost ancestor of n.
func (n *Node) root() *Node {
	p := n
	for p.parent != nil {
		p = p.parent
	}
	return p
}

// walk visits n and its descendants in document order.
func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.walk(fn)
	}
}

// clone deep-copies n without its parent link.
func (n *Node) clone() *Node {
	c := &Node{Label: n.Label, Span: n.Span}
	if n.Value != nil {
		v := *n.Value
		c.Value = &v
	}
	for _, ch := range n.Children {
		c.append(ch.clone())
	}
	return c
}

// path renders the absolute path of n. Siblings sharing a label are told
// apart with a 1-based position.
func (n *Node) path() string {
	if n.parent == nil {
		return "/"
	}
	var parts []string
	for p := n; p.parent != nil; p = p.parent {
		parts = append(parts, p.segment())
	}
	var b strings.Builder
	for i := len(parts) - 1; i >= 0; i-- {
		b.WriteByte('/')
		b.WriteString(parts[i])
	}
	return b.String()
}

func (n *Node) segment() string {
	seg := escapeLabel(n.Label)
	same, pos := 0, 0
	for _, c := range n.parent.Children {
		if c.Label == n.Label {
			same++
			if c == n {
				pos = same
			}
		}
	}
	if same > 1 {
		seg += "[" + strconv.Itoa(pos) + "]"
	}
	return seg
}

const labelSpecial = "/[]\\=!(),|\t\n "

func escapeLabel(l string) string {
	if !strings.ContainsAny(l, labelSpecial) {
		return l
	}
	var b strings.Builder
	for _, r := range l {
		if strings.ContainsRune(labelSpecial, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// validLabel reports whether l can be used as a node label.
func validLabel(l string) bool {
	return l != "" && !strings.ContainsAny(l, "/[]")
}

// fingerprint serializes labels and values of the subtree below n, for
// detecting whether a file's tree changed since it was loaded.
func (n *Node) fingerprint() string {
	var b strings.Builder
	var rec func(*Node)
	rec = func(x *Node) {
		for _, c := range x.Children {
			b.WriteString(strconv.Quote(c.Label))
			if c.Value != nil {
				b.WriteByte('=')
				b.WriteString(strconv.Quote(*c.Value))
			}
			b.WriteByte('{')
			rec(c)
			b.WriteByte('}')
		}
	}
	rec(n)
	return b.String()
}
