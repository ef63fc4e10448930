package augeas_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/augeas"
	"github.com/aretw0/augeas/pkg/ports"
)

func newSession(t *testing.T, opts ...augeas.Option) (*augeas.Session, string) {
	t.Helper()
	root := ports.WriteFixture(t)
	s, err := augeas.Create(append([]augeas.Option{augeas.WithRoot(root), augeas.WithEngineName("memory")}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() {
		if !s.Closed() {
			_ = s.Close()
		}
	})
	return s, root
}

func mustGet(t *testing.T, s *augeas.Session, path string) string {
	t.Helper()
	v, ok, err := s.Get(path)
	require.NoError(t, err)
	require.True(t, ok, "%s has no value", path)
	return v
}

func TestFacade_Integration(t *testing.T) {
	s, root := newSession(t)

	assert.Equal(t, "127.0.0.1", mustGet(t, s, "/files/etc/hosts/1/ipaddr"))

	require.NoError(t, s.Set("/files/etc/hosts/2/alias", "gw"))
	require.NoError(t, s.Save())

	data, err := os.ReadFile(filepath.Join(root, "etc", "hosts"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "gateway gw")
}

func TestZeroMatches(t *testing.T) {
	s, _ := newSession(t)

	m, err := s.Match("/files/etc/nothing/*")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.Empty(t, m)

	n, err := s.Rm("/files/etc/nothing")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, ok, err := s.Get("/files/etc/nothing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMultipleMatches(t *testing.T) {
	s, _ := newSession(t)

	_, _, err := s.Get("/files/etc/hosts/*/ipaddr")
	assert.True(t, augeas.IsKind(err, augeas.KindMultipleMatches), "got %v", err)
	assert.ErrorIs(t, err, augeas.ErrMultipleMatches)

	err = s.Set("/files/etc/hosts/*/ipaddr", "10.0.0.1")
	assert.True(t, augeas.IsKind(err, augeas.KindMultipleMatches), "got %v", err)

	// nothing was written
	assert.Equal(t, "127.0.0.1", mustGet(t, s, "/files/etc/hosts/1/ipaddr"))
}

func TestSetGetRoundTrip(t *testing.T) {
	s, _ := newSession(t)

	for _, v := range []string{"plain", "", "with spaces", "quo'te\"s", "ünïcode"} {
		require.NoError(t, s.Set("/files/etc/hosts/1/alias", v))
		assert.Equal(t, v, mustGet(t, s, "/files/etc/hosts/1/alias"))
	}

	require.NoError(t, s.Clear("/files/etc/hosts/1/alias"))
	v, ok, err := s.Get("/files/etc/hosts/1/alias")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)

	exists, err := s.Exists("/files/etc/hosts/1/alias")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestClearTransforms_Twice(t *testing.T) {
	s, _ := newSession(t)

	for i := 0; i < 2; i++ {
		require.NoError(t, s.ClearTransforms())
		m, err := s.Match(augeas.PathLoad + "/*")
		require.NoError(t, err)
		assert.Empty(t, m)
	}

	require.NoError(t, s.Load())
	m, err := s.Match("/files/*")
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestTouch_NeverOverwrites(t *testing.T) {
	s, _ := newSession(t)
	const path = "/files/etc/hosts/3/ipaddr"

	require.NoError(t, s.Touch(path))
	_, ok, err := s.Get(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(path, "10.0.0.3"))
	require.NoError(t, s.Touch(path))
	assert.Equal(t, "10.0.0.3", mustGet(t, s, path))
}

func TestMv(t *testing.T) {
	s, _ := newSession(t)

	err := s.Mv("/files/etc/hosts/1", "/files/etc/hosts/1/child")
	assert.True(t, augeas.IsKind(err, augeas.KindDescendant), "got %v", err)
	assert.ErrorIs(t, err, augeas.ErrDescendant)

	require.NoError(t, s.Mv("/files/etc/hosts/2", "/files/etc/hosts/moved"))
	assert.Equal(t, "gateway", mustGet(t, s, "/files/etc/hosts/moved/canonical"))
}

func TestSaveMode_Newfile(t *testing.T) {
	s, _ := newSession(t, augeas.WithSaveMode(augeas.SaveNewFile))
	assert.Equal(t, "newfile", mustGet(t, s, augeas.PathSave))

	require.NoError(t, s.Close())
	_, _, err := s.Get(augeas.PathSave)
	assert.True(t, augeas.IsKind(err, augeas.KindClosed), "got %v", err)
	assert.ErrorIs(t, err, augeas.ErrClosed)
}

func TestClose_Twice(t *testing.T) {
	s, _ := newSession(t)
	require.NoError(t, s.Close())
	assert.True(t, s.Closed())

	err := s.Close()
	assert.True(t, augeas.IsKind(err, augeas.KindClosed), "got %v", err)

	for name, call := range map[string]func() error{
		"set":   func() error { return s.Set("/a", "b") },
		"match": func() error { _, err := s.Match("/a"); return err },
		"save":  s.Save,
		"load":  s.Load,
	} {
		assert.True(t, augeas.IsKind(call(), augeas.KindClosed), name)
	}
}

func TestSetM_RegexpLabels(t *testing.T) {
	s, _ := newSession(t, augeas.WithNoLoad())

	require.NoError(t, s.Set("/g/admins", "1"))
	require.NoError(t, s.Set("/g/audio", "2"))
	require.NoError(t, s.Set("/g/users", "3"))

	n, err := s.SetM(`/g/*[label()=~regexp("a.*")]`, "users", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "u1", mustGet(t, s, "/g/admins/users"))
	assert.Equal(t, "u1", mustGet(t, s, "/g/audio/users"))

	_, ok, err := s.Get("/g/users/users")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = s.ClearM("/g/*[users]", "users")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInsertRenameLabel(t *testing.T) {
	s, _ := newSession(t)

	require.NoError(t, s.Insert("/files/etc/hosts/2", "#comment", true))
	require.NoError(t, s.Set("/files/etc/hosts/#comment", "gateway below"))

	label, ok, err := s.Label("/files/etc/hosts/*[2]")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "#comment", label)

	n, err := s.Rename("/files/etc/hosts/*/alias", "nick")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	err = s.Insert("/files/etc/hosts/1", "bad/label", false)
	assert.True(t, augeas.IsKind(err, augeas.KindBadLabel), "got %v", err)
}

func TestDefVarDefNode(t *testing.T) {
	s, _ := newSession(t)

	n, err := s.DefVar("hosts", "/files/etc/hosts/*")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "gateway", mustGet(t, s, "$hosts[2]/canonical"))

	created, err := s.DefNode("extra", "/files/etc/hosts/3/ipaddr", "10.0.0.3")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "10.0.0.3", mustGet(t, s, "$extra"))

	require.NoError(t, s.UndefVar("hosts"))
	_, err = s.Match("$hosts")
	assert.True(t, augeas.IsKind(err, augeas.KindPathExpr), "got %v", err)
}

func TestSpan(t *testing.T) {
	s, root := newSession(t, augeas.WithEnableSpan())

	sp, err := s.Span("/files/etc/hosts/1/canonical")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "etc", "hosts"), sp.Filename)
	assert.Equal(t, augeas.Range{Start: 10, End: 19}, sp.Value)

	_, err = s.Span("/augeas/root")
	assert.True(t, augeas.IsKind(err, augeas.KindNoSpan), "got %v", err)
}

func TestTextStoreRetrieve(t *testing.T) {
	s, _ := newSession(t)

	require.NoError(t, s.Set("/raw", "10.1.1.1 box\n"))
	require.NoError(t, s.TextStore("Hosts.lns", "/raw", "/parsed"))
	assert.Equal(t, "box", mustGet(t, s, "/parsed/1/canonical"))

	require.NoError(t, s.Set("/parsed/1/alias", "b"))
	require.NoError(t, s.TextRetrieve("Hosts.lns", "/raw", "/parsed", "/out"))
	assert.Equal(t, "10.1.1.1\tbox b\n", mustGet(t, s, "/out"))

	err := s.TextStore("Missing.lns", "/raw", "/parsed")
	assert.True(t, augeas.IsKind(err, augeas.KindLensNotFound), "got %v", err)
}

func TestSrun(t *testing.T) {
	s, _ := newSession(t)

	res, err := s.Srun("get /files/etc/hosts/2/canonical\nset /files/etc/hosts/2/alias gw\n")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Commands)
	assert.False(t, res.Quit)
	assert.Equal(t, "/files/etc/hosts/2/canonical = gateway\n", res.Output)

	res, err = s.Srun("quit\n")
	require.NoError(t, err)
	assert.True(t, res.Quit)

	_, err = s.Srun("explode\n")
	assert.True(t, augeas.IsKind(err, augeas.KindCommandFailed), "got %v", err)
}

func TestSave_RecordsFileErrors(t *testing.T) {
	s, _ := newSession(t)

	require.NoError(t, s.Set("/files/etc/hosts/1/bogus", "x"))
	err := s.Save()
	require.Error(t, err)
	assert.True(t, augeas.IsKind(err, augeas.KindCommandFailed), "got %v", err)
	assert.Contains(t, err.Error(), "/augeas//error")

	fes, err := s.FileErrors()
	require.NoError(t, err)
	require.Len(t, fes, 1)
	assert.Equal(t, "/augeas/files/etc/hosts", fes[0].Path)
	assert.Equal(t, "put_failed", fes[0].Error)
	assert.NotEmpty(t, fes[0].Message)
}

func TestContext(t *testing.T) {
	s, _ := newSession(t)

	ctx, err := s.Context()
	require.NoError(t, err)
	assert.Equal(t, "/files", ctx)

	require.NoError(t, s.SetContext("/files/etc/hosts"))
	assert.Equal(t, "gateway", mustGet(t, s, "2/canonical"))
}

func TestCreate_Errors(t *testing.T) {
	_, err := augeas.Create(augeas.WithEngineName("no-such-engine"))
	assert.True(t, augeas.IsKind(err, augeas.KindBadArgument), "got %v", err)

	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	_, err = augeas.Create(augeas.WithRoot(file))
	assert.True(t, augeas.IsKind(err, augeas.KindBadArgument), "got %v", err)

	_, err = augeas.Create(augeas.WithSaveModeName("sometimes"))
	assert.True(t, augeas.IsKind(err, augeas.KindBadArgument), "got %v", err)
}

func TestCreate_EngineFromEnvironment(t *testing.T) {
	t.Setenv(augeas.EnvEngine, "no-such-engine")
	_, err := augeas.Create(augeas.WithRoot(t.TempDir()))
	assert.True(t, augeas.IsKind(err, augeas.KindBadArgument), "got %v", err)
}

func TestWith(t *testing.T) {
	root := ports.WriteFixture(t)

	var kept *augeas.Session
	err := augeas.With(func(s *augeas.Session) error {
		kept = s
		return s.Set("/files/etc/hosts/1/alias", "x")
	}, augeas.WithRoot(root))
	require.NoError(t, err)
	assert.True(t, kept.Closed())

	boom := errors.New("boom")
	err = augeas.With(func(*augeas.Session) error { return boom }, augeas.WithRoot(root))
	assert.ErrorIs(t, err, boom)

	v, err := augeas.WithResult(func(s *augeas.Session) (string, error) {
		v, _, err := s.Get("/files/etc/hosts/2/canonical")
		return v, err
	}, augeas.WithRoot(root))
	require.NoError(t, err)
	assert.Equal(t, "gateway", v)

	assert.Panics(t, func() {
		_ = augeas.With(func(s *augeas.Session) error {
			kept = s
			panic("inside")
		}, augeas.WithRoot(root))
	})
	assert.True(t, kept.Closed())
}

func TestCreateFromMap(t *testing.T) {
	root := ports.WriteFixture(t)

	s, err := augeas.CreateFromMap(map[string]any{
		"root":      root,
		"save_mode": "backup",
		"no_load":   true,
	})
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, "backup", mustGet(t, s, augeas.PathSave))
	m, err := s.Match("/files/*")
	require.NoError(t, err)
	assert.Empty(t, m)

	_, err = augeas.CreateFromMap(map[string]any{"root": root, "colour": "blue"})
	assert.True(t, augeas.IsKind(err, augeas.KindBadArgument), "got %v", err)
}

func TestHooks(t *testing.T) {
	var events []augeas.CommandEvent
	s, _ := newSession(t, augeas.WithHooks(augeas.Hooks{
		OnCommand: func(ev augeas.CommandEvent) { events = append(events, ev) },
	}))

	_, _, _ = s.Get("/files/etc/hosts/1/ipaddr")
	_, _, _ = s.Get("/files/etc/hosts/*/ipaddr")

	require.Len(t, events, 2)
	assert.Equal(t, "get", events[0].Op)
	assert.NoError(t, events[0].Err)
	assert.Error(t, events[1].Err)
	assert.Equal(t, augeas.KindMultipleMatches, events[1].Kind)
}
