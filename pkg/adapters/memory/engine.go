package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/augeas/pkg/ports"
	"github.com/aretw0/augeas/pkg/registry"
)

// Name is the name the engine is registered under.
const Name = "memory"

// EnvRoot is consulted when Open is given an empty root.
const EnvRoot = "AUGEAS_ROOT"

const version = "memory"

func init() {
	registry.Register(Name, Open)
}

var messages = map[ports.ErrorCode]string{
	ports.CodeNoMemory:           "Cannot allocate memory",
	ports.CodeInternal:           "Internal error (please file a bug)",
	ports.CodePathExpr:           "Invalid path expression",
	ports.CodeNoMatch:            "No match for path expression",
	ports.CodeMultipleMatches:    "Too many matches for path expression",
	ports.CodeSyntax:             "Syntax error in lens definition",
	ports.CodeNoLens:             "Lens not found",
	ports.CodeMultipleTransforms: "Multiple transforms",
	ports.CodeNoSpan:             "Node has no span info",
	ports.CodeMoveDescendant:     "Cannot move node into its descendant",
	ports.CodeCommandRun:         "Failed to execute command",
	ports.CodeBadArgument:        "Invalid argument in function call",
	ports.CodeBadLabel:           "Invalid label",
}

// Engine is a pure Go configuration tree kept in memory and backed by
// files under a root directory.
type Engine struct {
	root     *Node
	fsRoot   string
	loadPath []string
	flags    ports.Flags
	lenses   map[string]Lens
	vars     map[string][]*Node
	files    map[string]*fileState
	err      ports.ErrorInfo
	closed   bool
}

var _ ports.Engine = (*Engine)(nil)

// Open implements ports.OpenFunc. Problems with root are recorded on the
// returned engine rather than returned, so the caller can read them.
func Open(root string, loadPath []string, flags ports.Flags) (ports.Engine, error) {
	return New(root, loadPath, flags), nil
}

// New opens an engine on root.
func New(root string, loadPath []string, flags ports.Flags) *Engine {
	e := &Engine{
		root:     &Node{},
		loadPath: loadPath,
		flags:    flags,
		lenses:   availableLenses(flags.Has(ports.FlagNoStdInc)),
		vars:     make(map[string][]*Node),
		files:    make(map[string]*fileState),
	}

	if root == "" {
		root = os.Getenv(EnvRoot)
	}
	if root == "" {
		root = "/"
	}
	e.fsRoot = filepath.Clean(root)

	meta := e.root.ensure("augeas")
	meta.ensure("root").Value = Str(strings.TrimSuffix(filepath.ToSlash(e.fsRoot), "/") + "/")
	meta.ensure("version").Value = Str(version)
	meta.ensure("save").Value = Str(saveMode(flags))
	span := "disable"
	if flags.Has(ports.FlagEnableSpan) {
		span = "enable"
	}
	meta.ensure("span").Value = Str(span)
	meta.ensure("context").Value = Str("/files")
	load := meta.ensure("load")
	e.root.ensure("files")

	if info, err := os.Stat(e.fsRoot); err != nil || !info.IsDir() {
		e.fail(ports.CodeBadArgument, "root %s is not a directory", e.fsRoot)
		return e
	}

	if !flags.Has(ports.FlagNoModlAutoload) {
		for _, a := range autoloads {
			if _, ok := e.lenses[a.lens]; !ok {
				continue
			}
			xfm := load.ensure(a.name)
			xfm.ensure("lens").Value = Str("@" + strings.TrimSuffix(a.lens, ".lns"))
			for _, incl := range a.incl {
				xfm.append(&Node{Label: "incl", Value: Str(incl)})
			}
		}
	}

	if !flags.Has(ports.FlagNoLoad) {
		e.Load()
	}
	return e
}

func saveMode(flags ports.Flags) string {
	switch {
	case flags.Has(ports.FlagSaveNoop):
		return "noop"
	case flags.Has(ports.FlagSaveNewFile):
		return "newfile"
	case flags.Has(ports.FlagSaveBackup):
		return "backup"
	}
	return "overwrite"
}

// begin clears the error state before an operation.
func (e *Engine) begin() bool {
	e.err = ports.ErrorInfo{}
	if e.closed {
		e.fail(ports.CodeInternal, "engine is closed")
		return false
	}
	return true
}

// fail records an error and returns -1.
func (e *Engine) fail(code ports.ErrorCode, format string, args ...any) int {
	e.err = ports.ErrorInfo{
		Code:    code,
		Message: messages[code],
		Details: fmt.Sprintf(format, args...),
	}
	return -1
}

// Error implements ports.Engine.
func (e *Engine) Error() ports.ErrorInfo {
	return e.err
}

// Close implements ports.Engine.
func (e *Engine) Close() error {
	if e.closed {
		return fmt.Errorf("memory engine already closed")
	}
	e.closed = true
	e.root = &Node{}
	e.vars = nil
	e.files = nil
	return nil
}

// Tree returns the root of the tree, for tests and debugging.
func (e *Engine) Tree() *Node {
	return e.root
}

func (e *Engine) metaValue(labels ...string) string {
	n := e.root
	for _, l := range labels {
		if n = n.child(l); n == nil {
			return ""
		}
	}
	if n.Value == nil {
		return ""
	}
	return *n.Value
}

// ensurePath returns the node reached from n by following labels,
// creating missing nodes.
func ensurePath(n *Node, labels ...string) *Node {
	for _, l := range labels {
		n = n.ensure(l)
	}
	return n
}

func findPath(n *Node, labels ...string) *Node {
	for _, l := range labels {
		if n = n.child(l); n == nil {
			return nil
		}
	}
	return n
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func copyValue(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

// Get implements ports.Engine.
func (e *Engine) Get(path string) (*string, int) {
	if !e.begin() {
		return nil, -1
	}
	nodes, ok := e.query(path)
	if !ok {
		return nil, -1
	}
	switch len(nodes) {
	case 0:
		return nil, 0
	case 1:
		return copyValue(nodes[0].Value), 1
	}
	return nil, e.fail(ports.CodeMultipleMatches, "%s matches %d nodes", path, len(nodes))
}

// Set implements ports.Engine.
func (e *Engine) Set(path string, value *string) int {
	if !e.begin() {
		return -1
	}
	n := e.locate(path, e.context())
	if n == nil {
		return -1
	}
	n.Value = copyValue(value)
	return 0
}

// SetM implements ports.Engine.
func (e *Engine) SetM(base, sub string, value *string) int {
	if !e.begin() {
		return -1
	}
	bases, ok := e.query(base)
	if !ok {
		return -1
	}
	if sub == "" || sub == "." {
		for _, b := range bases {
			b.Value = copyValue(value)
		}
		return len(bases)
	}

	x, err := parsePath(sub)
	if err != nil {
		return e.fail(ports.CodePathExpr, "%v", err)
	}
	count := 0
	for _, b := range bases {
		nodes, err := e.eval(x, []*Node{b})
		if err != nil {
			return e.fail(ports.CodePathExpr, "%v", err)
		}
		if len(nodes) > 1 {
			return e.fail(ports.CodeMultipleMatches, "%s matches %d nodes below %s", sub, len(nodes), b.path())
		}
		if len(nodes) == 0 {
			at, rest, code, err := e.plan(x, []*Node{b})
			if code != ports.CodeNoError {
				return e.fail(code, "%v", err)
			}
			nodes = []*Node{materialize(at, rest)}
		}
		for _, n := range nodes {
			n.Value = copyValue(value)
			count++
		}
	}
	return count
}

// Rm implements ports.Engine.
func (e *Engine) Rm(path string) int {
	if !e.begin() {
		return -1
	}
	nodes, ok := e.query(path)
	if !ok {
		return -1
	}
	doomed := make(map[*Node]bool, len(nodes))
	for _, n := range nodes {
		doomed[n] = true
	}
	count := 0
	for _, n := range nodes {
		if n == e.root || coveredBy(n, doomed) {
			continue
		}
		count += n.size()
		n.detach()
	}
	return count
}

// coveredBy reports whether an ancestor of n is in set.
func coveredBy(n *Node, set map[*Node]bool) bool {
	for p := n.parent; p != nil; p = p.parent {
		if set[p] {
			return true
		}
	}
	return false
}

// Mv implements ports.Engine.
func (e *Engine) Mv(src, dst string) int {
	if !e.begin() {
		return -1
	}
	s, ok := e.single(src)
	if !ok {
		return -1
	}
	if s == e.root {
		return e.fail(ports.CodeBadArgument, "cannot move the root node")
	}
	x, err := parsePath(dst)
	if err != nil {
		return e.fail(ports.CodePathExpr, "%v", err)
	}
	at, rest, code, err := e.plan(x, e.context())
	if code != ports.CodeNoError {
		return e.fail(code, "%v", err)
	}
	if at == s && len(rest) == 0 {
		return 0
	}
	if at.isDescendantOf(s) {
		return e.fail(ports.CodeMoveDescendant, "destination %s is a descendant of %s", dst, src)
	}

	d := materialize(at, rest)
	s.detach()
	d.Value = s.Value
	d.Children = nil
	for _, c := range s.Children {
		d.append(c)
	}
	s.Children = nil
	return 0
}

// Match implements ports.Engine.
func (e *Engine) Match(path string) ([]string, int) {
	if !e.begin() {
		return nil, -1
	}
	nodes, ok := e.query(path)
	if !ok {
		return nil, -1
	}
	paths := make([]string, len(nodes))
	for i, n := range nodes {
		paths[i] = n.path()
	}
	return paths, len(paths)
}

func validVarName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isNameByte(name[i]) {
			return false
		}
	}
	return true
}

// DefVar implements ports.Engine.
func (e *Engine) DefVar(name string, expr *string) int {
	if !e.begin() {
		return -1
	}
	if !validVarName(name) {
		return e.fail(ports.CodeBadArgument, "invalid variable name %q", name)
	}
	if expr == nil {
		delete(e.vars, name)
		return 0
	}
	nodes, ok := e.query(*expr)
	if !ok {
		return -1
	}
	e.vars[name] = nodes
	return len(nodes)
}

// DefNode implements ports.Engine.
func (e *Engine) DefNode(name, expr string, value *string) (bool, int) {
	if !e.begin() {
		return false, -1
	}
	if !validVarName(name) {
		return false, e.fail(ports.CodeBadArgument, "invalid variable name %q", name)
	}
	nodes, ok := e.query(expr)
	if !ok {
		return false, -1
	}
	created := false
	if len(nodes) == 0 {
		n := e.locate(expr, e.context())
		if n == nil {
			return false, -1
		}
		n.Value = copyValue(value)
		nodes = []*Node{n}
		created = true
	}
	e.vars[name] = nodes
	return created, len(nodes)
}

// Span implements ports.Engine.
func (e *Engine) Span(path string) (ports.Span, int) {
	if !e.begin() {
		return ports.Span{}, -1
	}
	n, ok := e.single(path)
	if !ok {
		return ports.Span{}, -1
	}
	file := e.fileOf(n)
	if n.Span == nil || file == "" {
		return ports.Span{}, e.fail(ports.CodeNoSpan, "%s", path)
	}
	return ports.Span{
		Filename:   filepath.Join(e.fsRoot, filepath.FromSlash(file)),
		LabelStart: n.Span.LabelStart,
		LabelEnd:   n.Span.LabelEnd,
		ValueStart: n.Span.ValueStart,
		ValueEnd:   n.Span.ValueEnd,
		SpanStart:  n.Span.Start,
		SpanEnd:    n.Span.End,
	}, 0
}

// fileOf returns the file n was loaded from, or "".
func (e *Engine) fileOf(n *Node) string {
	for p := n; p != nil; p = p.parent {
		tp := p.path()
		if !strings.HasPrefix(tp, "/files/") {
			return ""
		}
		if _, ok := e.files[strings.TrimPrefix(tp, "/files")]; ok {
			return strings.TrimPrefix(tp, "/files")
		}
	}
	return ""
}

// Insert implements ports.Engine.
func (e *Engine) Insert(path, label string, before bool) int {
	if !e.begin() {
		return -1
	}
	if !validLabel(label) {
		return e.fail(ports.CodeBadLabel, "%q", label)
	}
	n, ok := e.single(path)
	if !ok {
		return -1
	}
	if n.parent == nil {
		return e.fail(ports.CodeBadArgument, "cannot insert a sibling of the root node")
	}
	i := n.index()
	if !before {
		i++
	}
	n.parent.insertAt(i, &Node{Label: label})
	return 0
}

// Rename implements ports.Engine.
func (e *Engine) Rename(path, label string) int {
	if !e.begin() {
		return -1
	}
	if !validLabel(label) {
		return e.fail(ports.CodeBadLabel, "%q", label)
	}
	nodes, ok := e.query(path)
	if !ok {
		return -1
	}
	if len(nodes) == 0 {
		return e.fail(ports.CodeNoMatch, "%s", path)
	}
	count := 0
	for _, n := range nodes {
		if n == e.root {
			continue
		}
		n.Label = label
		count++
	}
	return count
}

// Label implements ports.Engine.
func (e *Engine) Label(path string) (*string, int) {
	if !e.begin() {
		return nil, -1
	}
	nodes, ok := e.query(path)
	if !ok {
		return nil, -1
	}
	switch len(nodes) {
	case 0:
		return nil, 0
	case 1:
		return Str(nodes[0].Label), 1
	}
	return nil, e.fail(ports.CodeMultipleMatches, "%s matches %d nodes", path, len(nodes))
}

// Exists implements ports.Engine.
func (e *Engine) Exists(path string) int {
	if !e.begin() {
		return -1
	}
	nodes, ok := e.query(path)
	if !ok {
		return -1
	}
	if len(nodes) > 0 {
		return 1
	}
	return 0
}

// TextStore implements ports.Engine.
func (e *Engine) TextStore(lens, node, path string) int {
	if !e.begin() {
		return -1
	}
	l, ok := e.lookupLens(lens)
	if !ok {
		return e.fail(ports.CodeNoLens, "%s", lens)
	}
	src, ok := e.single(node)
	if !ok {
		return -1
	}
	if src.Value == nil {
		return e.fail(ports.CodeBadArgument, "node %s has no value", node)
	}

	errNode := ensurePath(e.root, append([]string{"augeas", "text"}, splitPath(path)...)...)
	removeChildren(errNode, "error")
	kids, err := l.Get(*src.Value)
	if err != nil {
		recordError(errNode, "parse_failed", err)
		return -1
	}
	target := e.locate(path, e.context())
	if target == nil {
		return -1
	}
	target.Children = nil
	for _, k := range kids {
		target.append(k)
	}
	return 0
}

// TextRetrieve implements ports.Engine.
func (e *Engine) TextRetrieve(lens, nodeIn, path, nodeOut string) int {
	if !e.begin() {
		return -1
	}
	l, ok := e.lookupLens(lens)
	if !ok {
		return e.fail(ports.CodeNoLens, "%s", lens)
	}
	if _, ok := e.single(nodeIn); !ok {
		return -1
	}
	tree, ok := e.single(path)
	if !ok {
		return -1
	}

	errNode := ensurePath(e.root, append([]string{"augeas", "text"}, splitPath(path)...)...)
	removeChildren(errNode, "error")
	text, err := l.Put(tree.Children)
	if err != nil {
		recordError(errNode, "put_failed", err)
		return -1
	}
	out := e.locate(nodeOut, e.context())
	if out == nil {
		return -1
	}
	out.Value = Str(text)
	return 0
}

func removeChildren(n *Node, label string) {
	kept := n.Children[:0]
	for _, c := range n.Children {
		if c.Label == label {
			c.parent = nil
			continue
		}
		kept = append(kept, c)
	}
	n.Children = kept
}

// recordError hangs an error node below n, the way load and save report
// per-file problems.
func recordError(n *Node, kind string, err error) {
	en := &Node{Label: "error", Value: Str(kind)}
	n.append(en)
	if err == nil {
		return
	}
	if pe, ok := err.(*ParseError); ok && pe.Line > 0 {
		en.append(&Node{Label: "line", Value: Str(fmt.Sprint(pe.Line))})
	}
	en.append(&Node{Label: "message", Value: Str(err.Error())})
}
