package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Lens maps the text of a file to a list of top-level nodes and back.
type Lens interface {
	// Name is the qualified lens name, such as "Hosts.lns".
	Name() string
	// Get parses text. Nodes carry spans relative to text.
	Get(text string) ([]*Node, error)
	// Put renders nodes as text.
	Put(nodes []*Node) (string, error)
}

// ParseError is returned by Lens.Get for text the lens does not accept.
type ParseError struct {
	Lens string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: line %d: %s", e.Lens, e.Line, e.Msg)
}

type autoload struct {
	name string
	lens string
	incl []string
}

// autoloads are the transforms built-in modules register on open.
var autoloads = []autoload{
	{name: "Hosts", lens: "Hosts.lns", incl: []string{"/etc/hosts"}},
}

var (
	lensMu   sync.RWMutex
	builtins = map[string]Lens{}
	extra    = map[string]Lens{}
)

func init() {
	for _, l := range []Lens{hostsLens{}, simplevarsLens{}, simplelinesLens{}} {
		builtins[l.Name()] = l
	}
}

// RegisterLens makes l available to every engine opened afterwards,
// including engines opened without the standard lenses.
func RegisterLens(l Lens) {
	lensMu.Lock()
	defer lensMu.Unlock()
	extra[qualify(l.Name())] = l
}

// Lenses returns the names of the lenses an engine opened now would see.
func Lenses(noStdInc bool) []string {
	m := availableLenses(noStdInc)
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func availableLenses(noStdInc bool) map[string]Lens {
	lensMu.RLock()
	defer lensMu.RUnlock()
	m := make(map[string]Lens, len(builtins)+len(extra))
	if !noStdInc {
		for n, l := range builtins {
			m[n] = l
		}
	}
	for n, l := range extra {
		m[n] = l
	}
	return m
}

// qualify turns "@Hosts", "Hosts" and "Hosts.lns" into "Hosts.lns".
func qualify(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	if !strings.Contains(name, ".") {
		name += ".lns"
	}
	return name
}

func (e *Engine) lookupLens(name string) (Lens, bool) {
	l, ok := e.lenses[qualify(name)]
	return l, ok
}
