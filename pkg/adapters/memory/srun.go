package memory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/augeas/pkg/ports"
)

// command is one statement of the augtool command language.
type command struct {
	name    string
	minArgs int
	maxArgs int
	run     func(e *Engine, w *strings.Builder, args []string) int
}

var commands = map[string]*command{}

func init() {
	for _, c := range []*command{
		{name: "get", minArgs: 1, maxArgs: 1, run: cmdGet},
		{name: "set", minArgs: 1, maxArgs: 2, run: cmdSet},
		{name: "setm", minArgs: 2, maxArgs: 3, run: cmdSetM},
		{name: "rm", minArgs: 1, maxArgs: 1, run: cmdRm},
		{name: "mv", minArgs: 2, maxArgs: 2, run: cmdMv},
		{name: "match", minArgs: 1, maxArgs: 2, run: cmdMatch},
		{name: "ins", minArgs: 3, maxArgs: 3, run: cmdIns},
		{name: "clear", minArgs: 1, maxArgs: 1, run: cmdClear},
		{name: "touch", minArgs: 1, maxArgs: 1, run: cmdTouch},
		{name: "defvar", minArgs: 2, maxArgs: 2, run: cmdDefVar},
		{name: "defnode", minArgs: 2, maxArgs: 3, run: cmdDefNode},
		{name: "rename", minArgs: 2, maxArgs: 2, run: cmdRename},
		{name: "label", minArgs: 1, maxArgs: 1, run: cmdLabel},
		{name: "print", minArgs: 0, maxArgs: 1, run: cmdPrint},
		{name: "save", minArgs: 0, maxArgs: 0, run: cmdSave},
		{name: "load", minArgs: 0, maxArgs: 0, run: cmdLoad},
		{name: "quit", minArgs: 0, maxArgs: 0},
	} {
		commands[c.name] = c
	}
	commands["move"] = commands["mv"]
	commands["insert"] = commands["ins"]
	commands["exit"] = commands["quit"]
}

// Srun implements ports.Engine. It stops at the first failing command.
func (e *Engine) Srun(text string) (string, int) {
	if !e.begin() {
		return "", -1
	}
	var (
		out   strings.Builder
		count int
	)
	for ln := range lines(text) {
		stmt := strings.TrimSpace(ln.text)
		if stmt == "" || strings.HasPrefix(stmt, "#") {
			continue
		}
		args, err := tokenize(stmt)
		if err != nil {
			return out.String(), e.fail(ports.CodeCommandRun, "line %d: %v", ln.no, err)
		}
		cmd, ok := commands[args[0]]
		if !ok {
			return out.String(), e.fail(ports.CodeCommandRun, "unknown command '%s'", args[0])
		}
		argc := len(args) - 1
		if argc < cmd.minArgs || argc > cmd.maxArgs {
			return out.String(), e.fail(ports.CodeCommandRun, "wrong number of arguments for '%s'", cmd.name)
		}
		if cmd.run == nil {
			e.err = ports.ErrorInfo{}
			return out.String(), -2
		}
		if rc := cmd.run(e, &out, args[1:]); rc < 0 {
			if e.err.Code == ports.CodeNoError {
				e.fail(ports.CodeCommandRun, "command '%s' failed", cmd.name)
			}
			return out.String(), -1
		}
		e.err = ports.ErrorInfo{}
		count++
	}
	return out.String(), count
}

var errUnterminated = errors.New("unterminated quote")

// tokenize splits a statement into words. Single and double quotes group
// words; a backslash escapes the next character outside single quotes.
func tokenize(s string) ([]string, error) {
	var (
		words []string
		cur   strings.Builder
		in    bool
		quote byte
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			} else if c == '\\' && quote == '"' && i+1 < len(s) {
				i++
				cur.WriteByte(s[i])
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote, in = c, true
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
			in = true
		case c == ' ' || c == '\t':
			if in {
				words = append(words, cur.String())
				cur.Reset()
				in = false
			}
		default:
			cur.WriteByte(c)
			in = true
		}
	}
	if quote != 0 {
		return nil, errUnterminated
	}
	if in {
		words = append(words, cur.String())
	}
	return words, nil
}

func cmdGet(e *Engine, w *strings.Builder, args []string) int {
	v, rc := e.Get(args[0])
	switch {
	case rc < 0:
		return rc
	case rc == 0:
		fmt.Fprintf(w, "%s (o)\n", args[0])
	case v == nil:
		fmt.Fprintf(w, "%s (none)\n", args[0])
	default:
		fmt.Fprintf(w, "%s = %s\n", args[0], *v)
	}
	return 0
}

func optional(args []string, i int) *string {
	if i < len(args) {
		return Str(args[i])
	}
	return nil
}

func cmdSet(e *Engine, _ *strings.Builder, args []string) int {
	return e.Set(args[0], optional(args, 1))
}

func cmdSetM(e *Engine, _ *strings.Builder, args []string) int {
	return e.SetM(args[0], args[1], optional(args, 2))
}

func cmdRm(e *Engine, w *strings.Builder, args []string) int {
	n := e.Rm(args[0])
	if n >= 0 {
		fmt.Fprintf(w, "rm : %s %d\n", args[0], n)
	}
	return n
}

func cmdMv(e *Engine, _ *strings.Builder, args []string) int {
	return e.Mv(args[0], args[1])
}

func cmdMatch(e *Engine, w *strings.Builder, args []string) int {
	nodes, ok := e.query(args[0])
	if !ok {
		return -1
	}
	filter := optional(args, 1)
	found := 0
	for _, n := range nodes {
		if filter != nil && (n.Value == nil || *n.Value != *filter) {
			continue
		}
		found++
		if n.Value == nil {
			fmt.Fprintf(w, "%s = (none)\n", n.path())
		} else {
			fmt.Fprintf(w, "%s = %s\n", n.path(), *n.Value)
		}
	}
	if found == 0 {
		w.WriteString("  (no matches)\n")
	}
	return 0
}

func cmdIns(e *Engine, _ *strings.Builder, args []string) int {
	var before bool
	switch args[1] {
	case "before":
		before = true
	case "after":
	default:
		return e.fail(ports.CodeCommandRun, "the <WHERE> argument must be 'before' or 'after'")
	}
	return e.Insert(args[2], args[0], before)
}

func cmdClear(e *Engine, _ *strings.Builder, args []string) int {
	return e.Set(args[0], nil)
}

func cmdTouch(e *Engine, _ *strings.Builder, args []string) int {
	switch rc := e.Exists(args[0]); {
	case rc < 0:
		return rc
	case rc > 0:
		return 0
	}
	return e.Set(args[0], nil)
}

func cmdDefVar(e *Engine, _ *strings.Builder, args []string) int {
	return e.DefVar(args[0], Str(args[1]))
}

func cmdDefNode(e *Engine, _ *strings.Builder, args []string) int {
	_, rc := e.DefNode(args[0], args[1], optional(args, 2))
	return rc
}

func cmdRename(e *Engine, w *strings.Builder, args []string) int {
	n := e.Rename(args[0], args[1])
	if n >= 0 {
		fmt.Fprintf(w, "rename : %s to %s %d\n", args[0], args[1], n)
	}
	return n
}

func cmdLabel(e *Engine, w *strings.Builder, args []string) int {
	l, rc := e.Label(args[0])
	switch {
	case rc < 0:
		return rc
	case rc == 0:
		fmt.Fprintf(w, "%s (o)\n", args[0])
	default:
		fmt.Fprintf(w, "%s = %s\n", args[0], *l)
	}
	return 0
}

func cmdPrint(e *Engine, w *strings.Builder, args []string) int {
	path := "/*"
	if len(args) > 0 {
		path = args[0]
	}
	nodes, ok := e.query(path)
	if !ok {
		return -1
	}
	for _, n := range nodes {
		n.walk(func(x *Node) {
			if x.Value == nil {
				fmt.Fprintf(w, "%s\n", x.path())
			} else {
				fmt.Fprintf(w, "%s = %q\n", x.path(), *x.Value)
			}
		})
	}
	return 0
}

func cmdSave(e *Engine, w *strings.Builder, _ []string) int {
	rc := e.Save()
	if rc == 0 {
		events := findPath(e.root, "augeas", "events")
		saved := 0
		if events != nil {
			for _, c := range events.Children {
				if c.Label == "saved" {
					saved++
				}
			}
		}
		fmt.Fprintf(w, "Saved %d file(s)\n", saved)
	}
	return rc
}

func cmdLoad(e *Engine, _ *strings.Builder, _ []string) int {
	return e.Load()
}
