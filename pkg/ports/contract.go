package ports

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// HostsFixture is the /etc/hosts the engine contract runs against.
const HostsFixture = "127.0.0.1 localhost localhost.localdomain\n192.168.0.1 gateway\n"

// WriteFixture creates a filesystem root holding HostsFixture as etc/hosts.
func WriteFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "etc"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "etc", "hosts"), []byte(HostsFixture), 0o644))
	return root
}

func str(s string) *string { return &s }

// RunEngineContract runs a suite of tests to verify that an Engine
// implementation adheres to the defined interface contract.
func RunEngineContract(t *testing.T, open OpenFunc) {
	openEngine := func(t *testing.T, flags Flags) (Engine, string) {
		t.Helper()
		root := WriteFixture(t)
		e, err := open(root, nil, flags|FlagNoErrClose)
		require.NoError(t, err)
		require.NotNil(t, e)
		require.Equal(t, CodeNoError, e.Error().Code, "open: %+v", e.Error())
		t.Cleanup(func() { _ = e.Close() })
		return e, root
	}

	t.Run("Get", func(t *testing.T) {
		e, _ := openEngine(t, FlagNone)

		v, rc := e.Get("/files/etc/hosts/1/ipaddr")
		assert.Equal(t, 1, rc)
		require.NotNil(t, v)
		assert.Equal(t, "127.0.0.1", *v)

		v, rc = e.Get("/files/etc/hosts/7/ipaddr")
		assert.Equal(t, 0, rc)
		assert.Nil(t, v)
		assert.Equal(t, CodeNoError, e.Error().Code)

		_, rc = e.Get("/files/etc/hosts/*/ipaddr")
		assert.Negative(t, rc)
		assert.Equal(t, CodeMultipleMatches, e.Error().Code)
	})

	t.Run("Set creates missing nodes", func(t *testing.T) {
		e, _ := openEngine(t, FlagNone)

		require.Equal(t, 0, e.Set("/files/etc/hosts/3/ipaddr", str("10.0.0.1")))
		v, rc := e.Get("/files/etc/hosts/3/ipaddr")
		require.Equal(t, 1, rc)
		assert.Equal(t, "10.0.0.1", *v)

		assert.Negative(t, e.Set("/files/etc/hosts/*/ipaddr", str("x")))
		assert.Equal(t, CodeMultipleMatches, e.Error().Code)
	})

	t.Run("Error state is overwritten", func(t *testing.T) {
		e, _ := openEngine(t, FlagNone)

		_, rc := e.Match("/files/etc/hosts[")
		assert.Negative(t, rc)
		assert.Equal(t, CodePathExpr, e.Error().Code)

		_, rc = e.Match("/files/etc/hosts")
		assert.Equal(t, 1, rc)
		assert.Equal(t, CodeNoError, e.Error().Code)
	})

	t.Run("Match and Rm", func(t *testing.T) {
		e, _ := openEngine(t, FlagNone)

		paths, rc := e.Match("/files/etc/hosts/*")
		require.Equal(t, 2, rc)
		assert.Equal(t, []string{"/files/etc/hosts/1", "/files/etc/hosts/2"}, paths)

		// entry 2 has ipaddr and canonical
		assert.Equal(t, 3, e.Rm("/files/etc/hosts/2"))
		assert.Equal(t, 0, e.Rm("/files/etc/hosts/2"))
	})

	t.Run("Mv", func(t *testing.T) {
		e, _ := openEngine(t, FlagNone)

		assert.Negative(t, e.Mv("/files/etc/hosts/1", "/files/etc/hosts/1/moved"))
		assert.Equal(t, CodeMoveDescendant, e.Error().Code)

		require.Equal(t, 0, e.Mv("/files/etc/hosts/2", "/files/etc/hosts/9"))
		v, rc := e.Get("/files/etc/hosts/9/canonical")
		require.Equal(t, 1, rc)
		assert.Equal(t, "gateway", *v)
		assert.Equal(t, 0, e.Exists("/files/etc/hosts/2"))
	})

	t.Run("Insert, Rename and Label", func(t *testing.T) {
		e, _ := openEngine(t, FlagNone)

		require.Equal(t, 0, e.Insert("/files/etc/hosts/1/canonical", "alias", false))
		paths, _ := e.Match("/files/etc/hosts/1/*")
		assert.Equal(t, "/files/etc/hosts/1/alias[1]", paths[2])

		assert.Equal(t, 2, e.Rename("/files/etc/hosts/1/alias", "other"))
		l, rc := e.Label("/files/etc/hosts/1/*[last()]")
		require.Equal(t, 1, rc)
		assert.Equal(t, "other", *l)

		assert.Negative(t, e.Insert("/files/etc/hosts/1", "a/b", true))
		assert.Equal(t, CodeBadLabel, e.Error().Code)
	})

	t.Run("DefVar", func(t *testing.T) {
		e, _ := openEngine(t, FlagNone)

		assert.Equal(t, 2, e.DefVar("hosts", str("/files/etc/hosts/*")))
		v, rc := e.Get("$hosts[2]/canonical")
		require.Equal(t, 1, rc)
		assert.Equal(t, "gateway", *v)

		created, rc := e.DefNode("new", "/files/etc/hosts/3/ipaddr", str("10.1.1.1"))
		assert.True(t, created)
		assert.Equal(t, 1, rc)
	})

	t.Run("Save", func(t *testing.T) {
		e, root := openEngine(t, FlagNone)

		require.Equal(t, 0, e.Set("/files/etc/hosts/2/alias", str("gw")))
		require.Equal(t, 0, e.Save(), "save: %+v", e.Error())

		data, err := os.ReadFile(filepath.Join(root, "etc", "hosts"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "gw")
	})

	t.Run("Span", func(t *testing.T) {
		e, _ := openEngine(t, FlagEnableSpan)

		sp, rc := e.Span("/files/etc/hosts/1/ipaddr")
		require.GreaterOrEqual(t, rc, 0, "span: %+v", e.Error())
		assert.True(t, strings.HasSuffix(sp.Filename, filepath.Join("etc", "hosts")))
		assert.Equal(t, 0, sp.ValueStart)
		assert.Equal(t, len("127.0.0.1"), sp.ValueEnd)
	})

	t.Run("Srun", func(t *testing.T) {
		e, _ := openEngine(t, FlagNone)

		out, rc := e.Srun("get /files/etc/hosts/1/ipaddr\n")
		assert.Equal(t, 1, rc)
		assert.Equal(t, "/files/etc/hosts/1/ipaddr = 127.0.0.1\n", out)

		_, rc = e.Srun("get /files/etc/hosts/1/ipaddr\nquit\nrm /files\n")
		assert.Equal(t, -2, rc)
		assert.Equal(t, 1, e.Exists("/files/etc/hosts"))

		_, rc = e.Srun("frobnicate /files\n")
		assert.Negative(t, rc)
		assert.Equal(t, CodeCommandRun, e.Error().Code)
	})
}
