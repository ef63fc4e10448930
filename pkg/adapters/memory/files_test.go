package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/augeas/pkg/ports"
)

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestSave_Modes(t *testing.T) {
	tests := []struct {
		name   string
		flags  ports.Flags
		hosts  string
		extra  string
		absent string
	}{
		{name: "overwrite", flags: ports.FlagNone, hosts: "changed", absent: "etc/hosts.augnew"},
		{name: "backup", flags: ports.FlagSaveBackup, hosts: "changed", extra: "etc/hosts.augsave"},
		{name: "newfile", flags: ports.FlagSaveNewFile, hosts: ports.HostsFixture, extra: "etc/hosts.augnew"},
		{name: "noop", flags: ports.FlagSaveNoop, hosts: ports.HostsFixture, absent: "etc/hosts.augnew"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, root := newEngine(t, tt.flags)
			require.Equal(t, 0, e.Set("/files/etc/hosts/2/canonical", Str("changed")))
			require.Equal(t, 0, e.Save(), "%+v", e.Error())

			assert.Equal(t, "/files/etc/hosts", get(t, e, "/augeas/events/saved"))
			if tt.hosts == "changed" {
				assert.Contains(t, readFile(t, root, "etc/hosts"), "192.168.0.1\tchanged")
			} else {
				assert.Equal(t, tt.hosts, readFile(t, root, "etc/hosts"))
			}
			if tt.extra != "" {
				assert.FileExists(t, filepath.Join(root, tt.extra))
			}
			if tt.absent != "" {
				assert.NoFileExists(t, filepath.Join(root, tt.absent))
			}
		})
	}
}

func TestSave_UnchangedWritesNothing(t *testing.T) {
	e, root := newEngine(t, ports.FlagNone)
	require.Equal(t, 0, e.Save())
	assert.Equal(t, 0, e.Exists("/augeas/events/saved"))
	assert.Equal(t, ports.HostsFixture, readFile(t, root, "etc/hosts"))
}

func TestSave_DeletedFile(t *testing.T) {
	e, root := newEngine(t, ports.FlagNone)
	require.Positive(t, e.Rm("/files/etc/hosts"))
	require.Equal(t, 0, e.Save())
	assert.NoFileExists(t, filepath.Join(root, "etc", "hosts"))
}

func TestSave_NewFile(t *testing.T) {
	e, root := newEngine(t, ports.FlagNone)
	require.Equal(t, 0, e.Set("/augeas/load/Vars/lens", Str("Simplevars.lns")))
	require.Equal(t, 0, e.Set("/augeas/load/Vars/incl", Str("/etc/vars/*.conf")))

	require.Equal(t, 0, e.Set("/files/etc/vars/app.conf/key", Str("value")))
	require.Equal(t, 0, e.Save(), "%+v", e.Error())
	assert.Equal(t, "key = value\n", readFile(t, root, "etc/vars/app.conf"))
}

func TestSave_Errors(t *testing.T) {
	t.Run("no transform", func(t *testing.T) {
		e, _ := newEngine(t, ports.FlagNone)
		require.Equal(t, 0, e.Set("/files/etc/unknown", Str("x")))
		assert.Equal(t, -1, e.Save())
		assert.Equal(t, ports.CodeNoError, e.Error().Code)
		assert.Equal(t, "no_xfm", get(t, e, "/augeas/files/etc/unknown/error"))
	})

	t.Run("lens cannot render the tree", func(t *testing.T) {
		e, _ := newEngine(t, ports.FlagNone)
		require.Equal(t, 0, e.Set("/files/etc/hosts/1/bogus", Str("x")))
		assert.Equal(t, -1, e.Save())
		assert.Equal(t, "put_failed", get(t, e, "/augeas/files/etc/hosts/error"))

		require.Positive(t, e.Rm("/files/etc/hosts/1/bogus"))
		assert.Equal(t, 0, e.Save())
		assert.Equal(t, 0, e.Exists("/augeas/files/etc/hosts/error"))
	})

	t.Run("invalid save mode", func(t *testing.T) {
		e, _ := newEngine(t, ports.FlagNone)
		require.Equal(t, 0, e.Set("/augeas/save", Str("sideways")))
		assert.Negative(t, e.Save())
		assert.Equal(t, ports.CodeBadArgument, e.Error().Code)
	})
}

func TestLoad_Errors(t *testing.T) {
	t.Run("parse failure", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, root, "etc/hosts", "127.0.0.1 localhost\nbroken\n")

		e := New(root, nil, ports.FlagNone)
		require.Equal(t, ports.CodeNoError, e.Error().Code)
		assert.Equal(t, 0, e.Exists("/files/etc/hosts"))
		assert.Equal(t, "parse_failed", get(t, e, "/augeas/files/etc/hosts/error"))
		assert.Equal(t, "2", get(t, e, "/augeas/files/etc/hosts/error/line"))
	})

	t.Run("unknown lens", func(t *testing.T) {
		e, _ := newEngine(t, ports.FlagNone)
		require.Equal(t, 0, e.Set("/augeas/load/Bad/lens", Str("Missing.lns")))
		require.Equal(t, 0, e.Set("/augeas/load/Bad/incl", Str("/etc/hosts")))
		require.Equal(t, 0, e.Load())
		assert.Equal(t, "Can not find lens Missing.lns", get(t, e, "/augeas/load/Bad/error"))
		assert.Equal(t, 1, e.Exists("/files/etc/hosts"))
	})

	t.Run("multiple transforms", func(t *testing.T) {
		e, _ := newEngine(t, ports.FlagNone)
		require.Equal(t, 0, e.Set("/augeas/load/Lines/lens", Str("Simplelines.lns")))
		require.Equal(t, 0, e.Set("/augeas/load/Lines/incl", Str("/etc/*")))
		require.Equal(t, 0, e.Load())
		assert.Equal(t, "mxfm_load", get(t, e, "/augeas/files/etc/hosts/error"))
		assert.Equal(t, 0, e.Exists("/files/etc/hosts"))
	})
}

func TestLoad_IncludeExclude(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "srv/a.conf", "one\n")
	writeFile(t, root, "srv/sub/b.conf", "two\n")
	writeFile(t, root, "srv/sub/c.conf~", "three\n")
	writeFile(t, root, "srv/skip.conf", "four\n")

	e := New(root, nil, ports.FlagNoModlAutoload|ports.FlagNoLoad)
	require.Equal(t, 0, e.Set("/augeas/load/Lines/lens", Str("@Simplelines")))
	require.Equal(t, 0, e.Set("/augeas/load/Lines/incl", Str("/srv/**")))
	require.Equal(t, 0, e.Set("/augeas/load/Lines/excl[1]", Str("*~")))
	require.Equal(t, 0, e.Set("/augeas/load/Lines/excl[2]", Str("/srv/skip.*")))
	require.Equal(t, 0, e.Load())

	paths, _ := e.Match("/augeas/files//path")
	assert.Len(t, paths, 2)
	assert.Equal(t, "one", get(t, e, "/files/srv/a.conf/1"))
	assert.Equal(t, "two", get(t, e, "/files/srv/sub/b.conf/1"))
}

func TestLoad_DiscardsUnsavedChanges(t *testing.T) {
	e, _ := newEngine(t, ports.FlagNone)
	require.Equal(t, 0, e.Set("/files/etc/hosts/1/ipaddr", Str("10.9.9.9")))
	require.Equal(t, 0, e.Load())
	assert.Equal(t, "127.0.0.1", get(t, e, "/files/etc/hosts/1/ipaddr"))
}
