package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/augeas/pkg/ports"
	"github.com/aretw0/augeas/pkg/registry"
)

func TestEngineContract(t *testing.T) {
	ports.RunEngineContract(t, Open)
}

func TestRegistered(t *testing.T) {
	open, err := registry.Lookup(Name)
	require.NoError(t, err)
	assert.NotNil(t, open)
}

func newEngine(t *testing.T, flags ports.Flags) (*Engine, string) {
	t.Helper()
	root := ports.WriteFixture(t)
	e := New(root, nil, flags)
	require.Equal(t, ports.CodeNoError, e.Error().Code, "%+v", e.Error())
	return e, root
}

func get(t *testing.T, e *Engine, path string) string {
	t.Helper()
	v, rc := e.Get(path)
	require.Equal(t, 1, rc, "get %s: %+v", path, e.Error())
	require.NotNil(t, v, "get %s has no value", path)
	return *v
}

func TestOpen_Metadata(t *testing.T) {
	e, root := newEngine(t, ports.FlagSaveBackup|ports.FlagEnableSpan)

	assert.Equal(t, filepath.ToSlash(root)+"/", get(t, e, "/augeas/root"))
	assert.Equal(t, "backup", get(t, e, "/augeas/save"))
	assert.Equal(t, "enable", get(t, e, "/augeas/span"))
	assert.Equal(t, "/files", get(t, e, "/augeas/context"))
	assert.Equal(t, "@Hosts", get(t, e, "/augeas/load/Hosts/lens"))
	assert.Equal(t, "/etc/hosts", get(t, e, "/augeas/load/Hosts/incl"))
	assert.Equal(t, "/files/etc/hosts", get(t, e, "/augeas/files/etc/hosts/path"))
}

func TestOpen_RootNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	e := New(file, nil, ports.FlagNoErrClose)
	assert.Equal(t, ports.CodeBadArgument, e.Error().Code)
}

func TestOpen_RootFromEnvironment(t *testing.T) {
	root := ports.WriteFixture(t)
	t.Setenv(EnvRoot, root)

	e := New("", nil, ports.FlagNone)
	require.Equal(t, ports.CodeNoError, e.Error().Code)
	assert.Equal(t, "127.0.0.1", get(t, e, "/files/etc/hosts/1/ipaddr"))
}

func TestOpen_Flags(t *testing.T) {
	t.Run("NoLoad", func(t *testing.T) {
		e, _ := newEngine(t, ports.FlagNoLoad)
		assert.Equal(t, 0, e.Exists("/files/etc/hosts"))
		assert.Equal(t, 1, e.Exists("/augeas/load/Hosts"))
	})

	t.Run("NoModlAutoload", func(t *testing.T) {
		e, _ := newEngine(t, ports.FlagNoModlAutoload)
		assert.Equal(t, 0, e.Exists("/augeas/load/*"))
		assert.Equal(t, 0, e.Exists("/files/etc/hosts"))
	})

	t.Run("NoStdInc hides built-in lenses", func(t *testing.T) {
		e, _ := newEngine(t, ports.FlagNoStdInc)
		assert.Equal(t, 0, e.Exists("/augeas/load/Hosts"))
		assert.Negative(t, e.TextStore("Hosts.lns", "/augeas/root", "/t"))
		assert.Equal(t, ports.CodeNoLens, e.Error().Code)
	})
}

func TestClose(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)
	require.NoError(t, e.Close())
	assert.Error(t, e.Close())

	_, rc := e.Get("/files")
	assert.Negative(t, rc)
	assert.Equal(t, ports.CodeInternal, e.Error().Code)
}

func TestSetM(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	assert.Equal(t, 2, e.SetM("/files/etc/hosts/*", "alias[last()+1]", Str("extra")))
	assert.Equal(t, "extra", get(t, e, "/files/etc/hosts/2/alias"))
	assert.Equal(t, "extra", get(t, e, "/files/etc/hosts/1/alias[2]"))

	assert.Equal(t, 2, e.SetM("/files/etc/hosts/*/canonical", ".", Str("same")))
	assert.Equal(t, "same", get(t, e, "/files/etc/hosts/2/canonical"))

	assert.Equal(t, 0, e.SetM("/files/nothing/*", "x", Str("y")))

	assert.Negative(t, e.SetM("/files/etc/hosts/1", "alias", Str("z")))
	assert.Equal(t, ports.CodeMultipleMatches, e.Error().Code)
}

func TestRm_NestedMatchesCountOnce(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)
	total := 0
	e.Tree().child("files").walk(func(*Node) { total++ })

	assert.Equal(t, total-1, e.Rm("/files//*"))
	assert.Equal(t, 0, e.Exists("/files/*"))
}

func TestMv_ReplacesExistingDestination(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	require.Equal(t, 0, e.Mv("/files/etc/hosts/2", "/files/etc/hosts/1"))
	paths, rc := e.Match("/files/etc/hosts/*")
	require.Equal(t, 1, rc)
	assert.Equal(t, []string{"/files/etc/hosts/1"}, paths)
	assert.Equal(t, "gateway", get(t, e, "/files/etc/hosts/1/canonical"))
	assert.Equal(t, 0, e.Exists("/files/etc/hosts/1/alias"))
}

func TestMv_Errors(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	assert.Negative(t, e.Mv("/files/etc/hosts/9", "/files/x"))
	assert.Equal(t, ports.CodeNoMatch, e.Error().Code)

	assert.Negative(t, e.Mv("/files/etc/hosts/*", "/files/x"))
	assert.Equal(t, ports.CodeMultipleMatches, e.Error().Code)

	assert.Equal(t, 0, e.Mv("/files/etc/hosts", "/files/etc/hosts"))
}

func TestRename(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	assert.Negative(t, e.Rename("/files/etc/missing", "x"))
	assert.Equal(t, ports.CodeNoMatch, e.Error().Code)

	assert.Negative(t, e.Rename("/files/etc/hosts", "bad[label"))
	assert.Equal(t, ports.CodeBadLabel, e.Error().Code)
}

func TestLabel(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	l, rc := e.Label("/files/etc/hosts/1/*[1]")
	require.Equal(t, 1, rc)
	assert.Equal(t, "ipaddr", *l)

	l, rc = e.Label("/files/none")
	assert.Equal(t, 0, rc)
	assert.Nil(t, l)
}

func TestDefVar(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	require.Equal(t, 2, e.DefVar("h", Str("/files/etc/hosts/*")))
	paths, rc := e.Match("$h/canonical")
	require.Equal(t, 2, rc)
	assert.Equal(t, "/files/etc/hosts/2/canonical", paths[1])

	// removed nodes drop out of the nodeset
	e.Rm("/files/etc/hosts/1")
	_, rc = e.Match("$h")
	assert.Equal(t, 1, rc)

	assert.Equal(t, 0, e.DefVar("h", nil))
	_, rc = e.Match("$h")
	assert.Negative(t, rc)
	assert.Equal(t, ports.CodePathExpr, e.Error().Code)

	assert.Negative(t, e.DefVar("not valid", Str("/files")))
	assert.Equal(t, ports.CodeBadArgument, e.Error().Code)
}

func TestDefNode_ExistingNodes(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	created, rc := e.DefNode("ip", "/files/etc/hosts/*/ipaddr", Str("unused"))
	assert.False(t, created)
	assert.Equal(t, 2, rc)
	assert.Equal(t, "127.0.0.1", get(t, e, "$ip[1]"))
}

func TestSpan_Disabled(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	_, rc := e.Span("/files/etc/hosts/1/ipaddr")
	assert.Negative(t, rc)
	assert.Equal(t, ports.CodeNoSpan, e.Error().Code)
}

func TestSpan_EnabledThroughTree(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)
	require.Equal(t, 0, e.Set("/augeas/span", Str("enable")))
	require.Equal(t, 0, e.Load())

	sp, rc := e.Span("/files/etc/hosts/2/canonical")
	require.Equal(t, 0, rc, "%+v", e.Error())
	start := len("127.0.0.1 localhost localhost.localdomain\n192.168.0.1 ")
	assert.Equal(t, start, sp.ValueStart)
	assert.Equal(t, start+len("gateway"), sp.ValueEnd)
}

func TestTextStoreAndRetrieve(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)

	require.Equal(t, 0, e.Set("/text/in", Str("a = 1\nb = 2\n")))
	require.Equal(t, 0, e.TextStore("Simplevars.lns", "/text/in", "/parsed"), "%+v", e.Error())
	assert.Equal(t, "2", get(t, e, "/parsed/b"))

	require.Equal(t, 0, e.Set("/parsed/c", Str("3")))
	require.Equal(t, 0, e.TextRetrieve("@Simplevars", "/text/in", "/parsed", "/text/out"))
	assert.Equal(t, "a = 1\nb = 2\nc = 3\n", get(t, e, "/text/out"))

	assert.Negative(t, e.TextStore("Nope.lns", "/text/in", "/parsed"))
	assert.Equal(t, ports.CodeNoLens, e.Error().Code)

	require.Equal(t, 0, e.Set("/text/bad", Str("no equals sign\n")))
	assert.Equal(t, -1, e.TextStore("Simplevars.lns", "/text/bad", "/broken"))
	assert.Equal(t, "parse_failed", get(t, e, "/augeas/text/broken/error"))
}
