package memory

import (
	"errors"
	"fmt"
	"slices"

	"github.com/aretw0/augeas/pkg/ports"
)

var errCannotCreate = errors.New("cannot create node for path expression")

// eval evaluates x. Relative expressions start at ctx.
func (e *Engine) eval(x *pathExpr, ctx []*Node) ([]*Node, error) {
	cur, err := e.start(x, ctx)
	if err != nil {
		return nil, err
	}
	for _, st := range x.steps {
		if len(cur) == 0 {
			return nil, nil
		}
		if cur, err = e.apply(cur, st); err != nil {
			return nil, err
		}
	}
	return cur, nil
}

func (e *Engine) start(x *pathExpr, ctx []*Node) ([]*Node, error) {
	switch {
	case x.variable != "":
		nodes, ok := e.vars[x.variable]
		if !ok {
			return nil, fmt.Errorf("undefined variable $%s", x.variable)
		}
		live := make([]*Node, 0, len(nodes))
		for _, n := range nodes {
			if n.root() == e.root {
				live = append(live, n)
			}
		}
		return live, nil
	case x.absolute:
		return []*Node{e.root}, nil
	default:
		return ctx, nil
	}
}

// context returns the nodes relative top-level expressions start from.
func (e *Engine) context() []*Node {
	v := e.metaValue("augeas", "context")
	if v == "" {
		return []*Node{e.root}
	}
	x, err := parsePath(v)
	if err != nil {
		return []*Node{e.root}
	}
	nodes, err := e.eval(x, []*Node{e.root})
	if err != nil || len(nodes) == 0 {
		return []*Node{e.root}
	}
	return nodes
}

func (e *Engine) apply(cur []*Node, st *step) ([]*Node, error) {
	var (
		out  []*Node
		seen = make(map[*Node]bool)
		ferr error
	)
	add := func(group []*Node) {
		if ferr != nil {
			return
		}
		group, err := e.filter(group, st.preds)
		if err != nil {
			ferr = err
			return
		}
		for _, n := range group {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}

	if st.axis == axisFilter {
		add(slices.Clone(cur))
	}
	for _, n := range cur {
		switch st.axis {
		case axisSelf:
			add([]*Node{n})
		case axisParent:
			if n.parent != nil {
				add([]*Node{n.parent})
			}
		case axisChild:
			add(st.children(n))
		case axisDescendant:
			n.walk(func(d *Node) { add(st.children(d)) })
		}
	}
	if ferr != nil {
		return nil, ferr
	}
	if len(cur) > 1 || st.axis == axisDescendant {
		e.sortDocument(out)
	}
	return out, nil
}

func (st *step) children(n *Node) []*Node {
	if st.wildcard {
		return slices.Clone(n.Children)
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Label == st.name {
			out = append(out, c)
		}
	}
	return out
}

func (e *Engine) filter(group []*Node, preds []pred) ([]*Node, error) {
	for _, pr := range preds {
		var next []*Node
		for i, n := range group {
			ok, err := e.test(pr, n, i+1, len(group))
			if err != nil {
				return nil, err
			}
			if ok {
				next = append(next, n)
			}
		}
		group = next
	}
	return group, nil
}

func (e *Engine) test(pr pred, n *Node, pos, size int) (bool, error) {
	switch pr.kind {
	case predPosition:
		return pos == pr.n, nil
	case predLast:
		return pos == size+pr.n, nil
	case predLabel:
		return pr.compare(&n.Label), nil
	case predExists:
		nodes, err := e.eval(pr.target, []*Node{n})
		return len(nodes) > 0, err
	case predCompare:
		nodes, err := e.eval(pr.target, []*Node{n})
		if err != nil {
			return false, err
		}
		for _, m := range nodes {
			if pr.compare(m.Value) {
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (pr pred) compare(v *string) bool {
	if v == nil {
		return false
	}
	switch pr.op {
	case "=":
		return *v == pr.str
	case "!=":
		return *v != pr.str
	case "=~":
		return pr.re.MatchString(*v)
	}
	return false
}

func (e *Engine) sortDocument(nodes []*Node) {
	if len(nodes) < 2 {
		return
	}
	order := make(map[*Node]int)
	i := 0
	e.root.walk(func(n *Node) {
		order[n] = i
		i++
	})
	slices.SortStableFunc(nodes, func(a, b *Node) int {
		return order[a] - order[b]
	})
}

// plan walks x as far as it matches. It returns the single node the
// unmatched steps would be created under, and those steps. A full match
// returns the matched node and no steps.
func (e *Engine) plan(x *pathExpr, ctx []*Node) (*Node, []*step, ports.ErrorCode, error) {
	cur, err := e.start(x, ctx)
	if err != nil {
		return nil, nil, ports.CodePathExpr, err
	}
	for i, st := range x.steps {
		if len(cur) == 0 {
			break
		}
		next, err := e.apply(cur, st)
		if err != nil {
			return nil, nil, ports.CodePathExpr, err
		}
		if len(next) == 0 {
			if len(cur) > 1 {
				return nil, nil, ports.CodeMultipleMatches, fmt.Errorf("%d nodes match the parent of %s", len(cur), x.src)
			}
			rest := x.steps[i:]
			for _, r := range rest {
				if !r.creatable() {
					return nil, nil, ports.CodePathExpr, errCannotCreate
				}
			}
			return cur[0], rest, ports.CodeNoError, nil
		}
		cur = next
	}
	switch len(cur) {
	case 0:
		return nil, nil, ports.CodeNoMatch, fmt.Errorf("no match for %s", x.src)
	case 1:
		return cur[0], nil, ports.CodeNoError, nil
	}
	return nil, nil, ports.CodeMultipleMatches, fmt.Errorf("%d matches for %s", len(cur), x.src)
}

// materialize creates the nodes for steps below base. A new node goes
// right after the last sibling that has the same label.
func materialize(base *Node, steps []*step) *Node {
	for _, st := range steps {
		n := &Node{Label: st.name}
		last := -1
		for i, c := range base.Children {
			if c.Label == st.name {
				last = i
			}
		}
		if last >= 0 {
			base.insertAt(last+1, n)
		} else {
			base.append(n)
		}
		base = n
	}
	return base
}

// locate returns the single node path refers to, creating it and its
// missing ancestors. It records the error and returns nil on failure.
func (e *Engine) locate(path string, ctx []*Node) *Node {
	x, err := parsePath(path)
	if err != nil {
		e.fail(ports.CodePathExpr, "%v", err)
		return nil
	}
	base, rest, code, err := e.plan(x, ctx)
	if code != ports.CodeNoError {
		e.fail(code, "%v", err)
		return nil
	}
	return materialize(base, rest)
}

// query evaluates path from the session context. It records the error and
// returns ok=false on failure.
func (e *Engine) query(path string) ([]*Node, bool) {
	x, err := parsePath(path)
	if err != nil {
		e.fail(ports.CodePathExpr, "%v", err)
		return nil, false
	}
	nodes, err := e.eval(x, e.context())
	if err != nil {
		e.fail(ports.CodePathExpr, "%v", err)
		return nil, false
	}
	return nodes, true
}

// single is query for operations that need exactly one node.
func (e *Engine) single(path string) (*Node, bool) {
	nodes, ok := e.query(path)
	if !ok {
		return nil, false
	}
	switch len(nodes) {
	case 0:
		e.fail(ports.CodeNoMatch, "%s", path)
		return nil, false
	case 1:
		return nodes[0], true
	}
	e.fail(ports.CodeMultipleMatches, "%s matches %d nodes", path, len(nodes))
	return nil, false
}
