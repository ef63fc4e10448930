package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostsLens(t *testing.T) {
	text := "# local\n127.0.0.1\tlocalhost  lh # loopback\n\n::1 ip6-localhost\n"
	nodes, err := hostsLens{}.Get(text)
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, "#comment", nodes[0].Label)
	assert.Equal(t, "local", value(nodes[0]))

	entry := nodes[1]
	assert.Equal(t, "1", entry.Label)
	require.Len(t, entry.Children, 4)
	assert.Equal(t, "lh", value(entry.Children[2]))
	assert.Equal(t, "loopback", value(entry.Children[3]))
	assert.Equal(t, "2", nodes[2].Label)

	ip := entry.Children[0]
	assert.Equal(t, "127.0.0.1", text[ip.Span.ValueStart:ip.Span.ValueEnd])

	out, err := hostsLens{}.Put(nodes)
	require.NoError(t, err)
	assert.Equal(t, "# local\n127.0.0.1\tlocalhost lh\t# loopback\n::1\tip6-localhost\n", out)

	again, err := hostsLens{}.Get(out)
	require.NoError(t, err)
	assert.Equal(t, NewNode("", nil, nodes...).fingerprint(), NewNode("", nil, again...).fingerprint())
}

func TestHostsLens_Errors(t *testing.T) {
	_, err := hostsLens{}.Get("10.0.0.1\n")
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 1, pe.Line)

	_, err = hostsLens{}.Put([]*Node{NewNode("1", nil, NewNode("ipaddr", Str("10.0.0.1")))})
	assert.Error(t, err)

	_, err = hostsLens{}.Put([]*Node{NewNode("entry", nil)})
	assert.Error(t, err)
}

func TestSimplevarsLens(t *testing.T) {
	text := "# settings\nname = demo\n  port=8080\nempty =\n"
	nodes, err := simplevarsLens{}.Get(text)
	require.NoError(t, err)
	require.Len(t, nodes, 4)
	assert.Equal(t, "port", nodes[2].Label)
	assert.Equal(t, "8080", value(nodes[2]))
	assert.Equal(t, "", value(nodes[3]))
	assert.Equal(t, "port", text[nodes[2].Span.LabelStart:nodes[2].Span.LabelEnd])
	assert.Equal(t, "8080", text[nodes[2].Span.ValueStart:nodes[2].Span.ValueEnd])

	out, err := simplevarsLens{}.Put(nodes)
	require.NoError(t, err)
	assert.Equal(t, "# settings\nname = demo\nport = 8080\nempty = \n", out)

	_, err = simplevarsLens{}.Get("a b = c\n")
	assert.Error(t, err)
}

func TestSimplelinesLens(t *testing.T) {
	nodes, err := simplelinesLens{}.Get("first\n# skip\n\n  second  \n")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "2", nodes[2].Label)
	assert.Equal(t, "second", value(nodes[2]))

	out, err := simplelinesLens{}.Put(nodes)
	require.NoError(t, err)
	assert.Equal(t, "first\n# skip\nsecond\n", out)
}

func TestRegisterLens(t *testing.T) {
	RegisterLens(namedLens{simplelinesLens{}, "Custom.lns"})

	assert.Contains(t, Lenses(true), "Custom.lns")
	assert.NotContains(t, Lenses(true), "Hosts.lns")
	assert.Contains(t, Lenses(false), "Hosts.lns")
}

type namedLens struct {
	simplelinesLens
	name string
}

func (l namedLens) Name() string { return l.name }

func TestQualify(t *testing.T) {
	for in, want := range map[string]string{
		"@Hosts":    "Hosts.lns",
		"Hosts":     "Hosts.lns",
		"Hosts.lns": "Hosts.lns",
	} {
		assert.Equal(t, want, qualify(in), in)
	}
}
