package memory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gobwas/glob"

	"github.com/aretw0/augeas/pkg/ports"
)

// fileState is what the engine remembers about a loaded file.
type fileState struct {
	path        string
	transform   string
	lens        Lens
	fingerprint string
}

type transform struct {
	name string
	lens Lens
	incl []string
	excl []exclude
	node *Node
}

// exclude is a compiled excl pattern. Patterns without a slash match the
// file's base name.
type exclude struct {
	g    glob.Glob
	base bool
}

func (t *transform) excludes(file string) bool {
	for _, x := range t.excl {
		target := file
		if x.base {
			target = path.Base(file)
		}
		if x.g.Match(target) {
			return true
		}
	}
	return false
}

// transforms reads /augeas/load. Transforms naming an unknown lens get an
// error node and are skipped.
func (e *Engine) transforms() []*transform {
	load := ensurePath(e.root, "augeas", "load")
	var out []*transform
	for _, xn := range load.Children {
		removeChildren(xn, "error")
		t := &transform{name: xn.Label, node: xn}
		lensName := ""
		for _, c := range xn.Children {
			switch c.Label {
			case "lens":
				lensName = value(c)
			case "incl":
				t.incl = append(t.incl, value(c))
			case "excl":
				g, err := glob.Compile(value(c), '/')
				if err != nil {
					recordError(xn, "bad_excl", err)
					continue
				}
				t.excl = append(t.excl, exclude{g: g, base: !strings.Contains(value(c), "/")})
			}
		}
		l, ok := e.lookupLens(lensName)
		if !ok {
			xn.append(&Node{Label: "error", Value: Str("Can not find lens " + lensName)})
			continue
		}
		t.lens = l
		out = append(out, t)
	}
	return out
}

// expand lists the files under the root that t applies to, as absolute
// slash paths relative to the root.
func (e *Engine) expand(t *transform) []string {
	fsys := os.DirFS(e.fsRoot)
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range t.incl {
		matches, err := doublestar.Glob(fsys, strings.TrimPrefix(pattern, "/"), doublestar.WithFilesOnly())
		if err != nil {
			continue
		}
		for _, m := range matches {
			file := "/" + m
			if seen[file] || t.excludes(file) {
				continue
			}
			seen[file] = true
			out = append(out, file)
		}
	}
	return out
}

// applies reports whether t would load file, for files that do not exist yet.
func (t *transform) applies(file string) bool {
	for _, pattern := range t.incl {
		if ok, err := doublestar.Match(strings.TrimPrefix(pattern, "/"), strings.TrimPrefix(file, "/")); err == nil && ok {
			return !t.excludes(file)
		}
	}
	return false
}

func (e *Engine) fileInfo(file string) *Node {
	return ensurePath(e.root, append([]string{"augeas", "files"}, splitPath(file)...)...)
}

// Load implements ports.Engine.
func (e *Engine) Load() int {
	if !e.begin() {
		return -1
	}

	files := e.root.ensure("files")
	files.Children = nil
	meta := e.root.ensure("augeas")
	if old := meta.child("files"); old != nil {
		old.detach()
	}
	e.files = make(map[string]*fileState)
	spans := e.flags.Has(ports.FlagEnableSpan) || e.metaValue("augeas", "span") == "enable"

	claims := make(map[string][]*transform)
	for _, t := range e.transforms() {
		for _, f := range e.expand(t) {
			claims[f] = append(claims[f], t)
		}
	}
	paths := make([]string, 0, len(claims))
	for f := range claims {
		paths = append(paths, f)
	}
	sort.Strings(paths)

	for _, f := range paths {
		ts := claims[f]
		info := e.fileInfo(f)
		info.ensure("path").Value = Str("/files" + f)
		info.ensure("lens").Value = Str("@" + strings.TrimSuffix(ts[0].lens.Name(), ".lns"))
		if len(ts) > 1 {
			names := make([]string, len(ts))
			for i, t := range ts {
				names[i] = "@" + strings.TrimSuffix(t.lens.Name(), ".lns")
			}
			recordError(info, "mxfm_load", fmt.Errorf("lenses %s could be used to load this file", strings.Join(names, " and ")))
			continue
		}

		data, err := os.ReadFile(filepath.Join(e.fsRoot, filepath.FromSlash(f)))
		if err != nil {
			recordError(info, "read_failed", err)
			continue
		}
		nodes, err := ts[0].lens.Get(string(data))
		if err != nil {
			recordError(info, "parse_failed", err)
			continue
		}
		if !spans {
			for _, n := range nodes {
				n.walk(func(x *Node) { x.Span = nil })
			}
		}
		fn := ensurePath(files, splitPath(f)...)
		for _, n := range nodes {
			fn.append(n)
		}
		e.files[f] = &fileState{path: f, transform: ts[0].name, lens: ts[0].lens, fingerprint: fn.fingerprint()}
	}
	return 0
}

// Save implements ports.Engine.
func (e *Engine) Save() int {
	if !e.begin() {
		return -1
	}
	mode := e.metaValue("augeas", "save")
	if mode == "" {
		mode = "overwrite"
	}
	switch mode {
	case "overwrite", "backup", "newfile", "noop":
	default:
		return e.fail(ports.CodeBadArgument, "invalid save mode %q", mode)
	}

	meta := e.root.ensure("augeas")
	if events := meta.child("events"); events != nil {
		removeChildren(events, "saved")
	}
	if info := meta.child("files"); info != nil {
		info.walk(func(n *Node) { removeChildren(n, "error") })
	}

	files := e.root.ensure("files")
	failed := false

	tracked := make([]string, 0, len(e.files))
	for f := range e.files {
		tracked = append(tracked, f)
	}
	sort.Strings(tracked)

	for _, f := range tracked {
		st := e.files[f]
		node := findPath(files, splitPath(f)...)
		if node == nil {
			if err := e.remove(f, mode); err != nil {
				recordError(e.fileInfo(f), "unlink_orig", err)
				failed = true
				continue
			}
			e.saved(f)
			if mode != "noop" {
				delete(e.files, f)
			}
			continue
		}
		fp := node.fingerprint()
		if fp == st.fingerprint {
			continue
		}
		if !e.store(f, st.lens, node, mode) {
			failed = true
			continue
		}
		if mode != "noop" {
			st.fingerprint = fp
		}
	}

	// Nodes below /files that no loaded file accounts for are either new
	// files a transform applies to, or changes nothing can save.
	ts := e.transforms()
	var visit func(n *Node, f string)
	visit = func(n *Node, f string) {
		if _, ok := e.files[f]; ok {
			return
		}
		if f != "" {
			var match []*transform
			for _, t := range ts {
				if t.applies(f) {
					match = append(match, t)
				}
			}
			switch {
			case len(match) > 1:
				recordError(e.fileInfo(f), "mxfm_save", fmt.Errorf("%d transforms apply to this file", len(match)))
				failed = true
				return
			case len(match) == 1:
				if !e.store(f, match[0].lens, n, mode) {
					failed = true
					return
				}
				if mode != "noop" {
					e.files[f] = &fileState{path: f, transform: match[0].name, lens: match[0].lens, fingerprint: n.fingerprint()}
				}
				return
			case n.Value != nil:
				recordError(e.fileInfo(f), "no_xfm", errors.New("no transform applies to this path"))
				failed = true
				return
			}
		}
		for _, c := range n.Children {
			visit(c, f+"/"+c.Label)
		}
	}
	visit(files, "")

	if failed {
		return -1
	}
	return 0
}

// store renders the tree of file f and writes it according to mode.
func (e *Engine) store(f string, l Lens, node *Node, mode string) bool {
	text, err := l.Put(node.Children)
	if err != nil {
		info := e.fileInfo(f)
		info.ensure("lens").Value = Str("@" + strings.TrimSuffix(l.Name(), ".lns"))
		recordError(info, "put_failed", err)
		return false
	}
	if err := e.write(f, text, mode); err != nil {
		recordError(e.fileInfo(f), "write_failed", err)
		return false
	}
	e.saved(f)
	return true
}

func (e *Engine) saved(f string) {
	events := ensurePath(e.root, "augeas", "events")
	events.append(&Node{Label: "saved", Value: Str("/files" + f)})
}

func (e *Engine) write(f, text, mode string) error {
	full := filepath.Join(e.fsRoot, filepath.FromSlash(f))
	perm := fs.FileMode(0o644)
	if info, err := os.Stat(full); err == nil {
		perm = info.Mode().Perm()
	}

	switch mode {
	case "noop":
		return nil
	case "newfile":
		return os.WriteFile(full+".augnew", []byte(text), perm)
	case "backup":
		if orig, err := os.ReadFile(full); err == nil {
			if err := os.WriteFile(full+".augsave", orig, perm); err != nil {
				return err
			}
		}
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, []byte(text), perm)
}

func (e *Engine) remove(f, mode string) error {
	full := filepath.Join(e.fsRoot, filepath.FromSlash(f))
	switch mode {
	case "noop", "newfile":
		return nil
	case "backup":
		return os.Rename(full, full+".augsave")
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
