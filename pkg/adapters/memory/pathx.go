package memory

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// The memory engine understands a subset of the augeas path language:
//
//	/a/b, a/b (relative to /augeas/context), $var/a
//	*  .  ..  //  (descendant-or-self)
//	[n] [last()] [last()+1] [last()-n]
//	[label() = 'x'] [label() =~ regexp("re")]
//	[sub] [sub = 'v'] [sub != 'v'] [sub =~ regexp("re")] [. = 'v']

type axis int

const (
	axisChild axis = iota
	axisDescendant
	axisSelf
	axisParent
	// axisFilter applies predicates to the whole nodeset of a variable.
	axisFilter
)

type step struct {
	axis     axis
	name     string
	wildcard bool
	preds    []pred
}

type pathExpr struct {
	src      string
	variable string
	absolute bool
	steps    []*step
}

type predKind int

const (
	predPosition predKind = iota
	predLast
	predLabel
	predCompare
	predExists
)

type pred struct {
	kind   predKind
	n      int
	op     string
	str    string
	re     *regexp.Regexp
	target *pathExpr
}

type syntaxError struct {
	msg  string
	pos  int
	expr string
}

func (e *syntaxError) Error() string {
	return fmt.Sprintf("%s at position %d in %q", e.msg, e.pos, e.expr)
}

type parser struct {
	s   string
	pos int
}

func parsePath(s string) (*pathExpr, error) {
	p := &parser{s: s}
	p.skipSpace()
	x, err := p.path(false)
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, p.errorf("unexpected %q", string(p.peek()))
	}
	return x, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &syntaxError{msg: fmt.Sprintf(format, args...), pos: p.pos, expr: p.s}
}

func (p *parser) eof() bool { return p.pos >= len(p.s) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.s[p.pos]
}

func (p *parser) hasPrefix(prefix string) bool {
	return strings.HasPrefix(p.s[p.pos:], prefix)
}

func (p *parser) consume(prefix string) bool {
	if p.hasPrefix(prefix) {
		p.pos += len(prefix)
		return true
	}
	return false
}

func (p *parser) skipSpace() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t' || p.peek() == '\n') {
		p.pos++
	}
}

// path parses a location path. Inside a predicate the path ends at the
// first operator, space or closing bracket.
func (p *parser) path(inPred bool) (*pathExpr, error) {
	start := p.pos
	x := &pathExpr{}

	if p.consume("$") {
		n := p.pos
		for !p.eof() && isNameByte(p.peek()) {
			p.pos++
		}
		if n == p.pos {
			return nil, p.errorf("expected variable name")
		}
		x.variable = p.s[n:p.pos]
		if p.peek() == '[' {
			st := &step{axis: axisFilter}
			if err := p.predicates(st); err != nil {
				return nil, err
			}
			x.steps = append(x.steps, st)
		}
	} else if p.peek() == '/' {
		x.absolute = true
	}

	first := x.variable == "" && !x.absolute
	for {
		var ax axis
		switch {
		case p.consume("//"):
			ax = axisDescendant
		case p.consume("/"):
			ax = axisChild
		case first:
			ax = axisChild
		default:
			x.src = p.s[start:p.pos]
			if x.variable == "" && len(x.steps) == 0 {
				return nil, p.errorf("empty path expression")
			}
			return x, nil
		}
		first = false
		st, err := p.step(ax, inPred)
		if err != nil {
			return nil, err
		}
		x.steps = append(x.steps, st)
	}
}

func isNameByte(c byte) bool {
	return c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (p *parser) isStepEnd(inPred bool) bool {
	if p.eof() {
		return true
	}
	switch p.peek() {
	case '/', '[', ']':
		return true
	case '=', '!', ' ', '\t', '\n', ')':
		return inPred
	}
	return false
}

func (p *parser) step(ax axis, inPred bool) (*step, error) {
	st := &step{axis: ax}
	switch {
	case p.consume("*"):
		st.wildcard = true
	case p.hasPrefix("..") && p.atStepEndAfter(2, inPred):
		p.pos += 2
		if ax == axisDescendant {
			return nil, p.errorf("'..' after '//'")
		}
		st.axis = axisParent
	case p.hasPrefix(".") && p.atStepEndAfter(1, inPred):
		p.pos++
		if ax == axisDescendant {
			return nil, p.errorf("'.' after '//'")
		}
		st.axis = axisSelf
	default:
		name, err := p.label(inPred)
		if err != nil {
			return nil, err
		}
		st.name = name
	}

	if err := p.predicates(st); err != nil {
		return nil, err
	}
	return st, nil
}

func (p *parser) predicates(st *step) error {
	for p.peek() == '[' {
		p.pos++
		p.skipSpace()
		pr, err := p.predicate()
		if err != nil {
			return err
		}
		p.skipSpace()
		if !p.consume("]") {
			return p.errorf("expected ']'")
		}
		st.preds = append(st.preds, pr)
	}
	return nil
}

func (p *parser) atStepEndAfter(n int, inPred bool) bool {
	save := p.pos
	p.pos += n
	end := p.isStepEnd(inPred)
	p.pos = save
	return end
}

func (p *parser) label(inPred bool) (string, error) {
	var b strings.Builder
	for !p.isStepEnd(inPred) {
		c := p.peek()
		if c == '\\' {
			p.pos++
			if p.eof() {
				return "", p.errorf("trailing backslash")
			}
			c = p.peek()
		}
		b.WriteByte(c)
		p.pos++
	}
	if b.Len() == 0 {
		return "", p.errorf("empty name")
	}
	return b.String(), nil
}

func (p *parser) predicate() (pred, error) {
	switch {
	case p.peek() >= '0' && p.peek() <= '9':
		n, err := p.integer()
		if err != nil {
			return pred{}, err
		}
		if n < 1 {
			return pred{}, p.errorf("position must be at least 1")
		}
		return pred{kind: predPosition, n: n}, nil

	case p.consume("last()"):
		p.skipSpace()
		pr := pred{kind: predLast}
		switch {
		case p.consume("+"):
			p.skipSpace()
			n, err := p.integer()
			if err != nil {
				return pred{}, err
			}
			pr.n = n
		case p.consume("-"):
			p.skipSpace()
			n, err := p.integer()
			if err != nil {
				return pred{}, err
			}
			pr.n = -n
		}
		return pr, nil

	case p.consume("label()"):
		p.skipSpace()
		pr := pred{kind: predLabel}
		if err := p.comparison(&pr); err != nil {
			return pred{}, err
		}
		return pr, nil
	}

	target, err := p.path(true)
	if err != nil {
		return pred{}, err
	}
	p.skipSpace()
	if p.peek() == ']' {
		return pred{kind: predExists, target: target}, nil
	}
	pr := pred{kind: predCompare, target: target}
	if err := p.comparison(&pr); err != nil {
		return pred{}, err
	}
	return pr, nil
}

func (p *parser) comparison(pr *pred) error {
	switch {
	case p.consume("=~"):
		pr.op = "=~"
	case p.consume("!="):
		pr.op = "!="
	case p.consume("="):
		pr.op = "="
	default:
		return p.errorf("expected comparison operator")
	}
	p.skipSpace()
	if pr.op == "=~" {
		re, err := p.regexp()
		if err != nil {
			return err
		}
		pr.re = re
		return nil
	}
	s, err := p.stringLiteral()
	if err != nil {
		return err
	}
	pr.str = s
	return nil
}

func (p *parser) regexp() (*regexp.Regexp, error) {
	if !p.consume("regexp") {
		return nil, p.errorf("expected regexp(...)")
	}
	p.skipSpace()
	if !p.consume("(") {
		return nil, p.errorf("expected '('")
	}
	p.skipSpace()
	s, err := p.stringLiteral()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.consume(")") {
		return nil, p.errorf("expected ')'")
	}
	re, err := regexp.Compile("^(?:" + s + ")$")
	if err != nil {
		return nil, p.errorf("invalid regexp: %v", err)
	}
	return re, nil
}

func (p *parser) stringLiteral() (string, error) {
	q := p.peek()
	if q != '\'' && q != '"' {
		return "", p.errorf("expected string literal")
	}
	p.pos++
	var b strings.Builder
	for {
		if p.eof() {
			return "", p.errorf("unterminated string")
		}
		c := p.peek()
		p.pos++
		if c == q {
			return b.String(), nil
		}
		if c == '\\' && !p.eof() {
			c = p.peek()
			p.pos++
		}
		b.WriteByte(c)
	}
}

func (p *parser) integer() (int, error) {
	start := p.pos
	for !p.eof() && p.peek() >= '0' && p.peek() <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected number")
	}
	return strconv.Atoi(p.s[start:p.pos])
}

// creatable reports whether st can be materialized as a new child node.
func (st *step) creatable() bool {
	if st.axis != axisChild || st.wildcard {
		return false
	}
	for _, pr := range st.preds {
		if pr.kind != predPosition && pr.kind != predLast {
			return false
		}
	}
	return true
}
