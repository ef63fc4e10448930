package augeas

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/augeas/pkg/ports"
)

// stubEngine answers every call with rc and reports info as its error.
type stubEngine struct {
	ports.Engine
	rc     int
	info   ports.ErrorInfo
	closed int
}

func (e *stubEngine) Close() error                  { e.closed++; return nil }
func (e *stubEngine) Error() ports.ErrorInfo        { return e.info }
func (e *stubEngine) Save() int                     { return e.rc }
func (e *stubEngine) Load() int                     { return e.rc }
func (e *stubEngine) Rm(string) int                 { return e.rc }
func (e *stubEngine) Get(string) (*string, int)     { return nil, e.rc }
func (e *stubEngine) Match(string) ([]string, int)  { return nil, e.rc }
func (e *stubEngine) Srun(string) (string, int)     { return "partial", e.rc }
func (e *stubEngine) Set(string, *string) int       { return e.rc }
func (e *stubEngine) Label(string) (*string, int)   { return nil, e.rc }
func (e *stubEngine) Span(string) (ports.Span, int) { return ports.Span{}, e.rc }

func stubSession(t *testing.T, eng *stubEngine) *Session {
	t.Helper()
	s, err := Create(WithEngine(func(string, []string, ports.Flags) (ports.Engine, error) {
		return eng, nil
	}))
	require.NoError(t, err)
	return s
}

func TestDispatch_ErrorStateWins(t *testing.T) {
	eng := &stubEngine{}
	s := stubSession(t, eng)

	eng.rc = -1
	eng.info = ports.ErrorInfo{Code: ports.CodeNoMatch, Message: "No match", Details: "/x", Minor: "minor"}
	_, err := s.Rm("/x")

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindNoMatch, e.Kind)
	assert.Equal(t, "rm", e.Op)
	assert.Equal(t, "/x", e.Path)
	assert.Equal(t, "minor", e.Minor)
}

func TestDispatch_NegativeReturnWithoutError(t *testing.T) {
	eng := &stubEngine{rc: -3}
	s := stubSession(t, eng)

	_, err := s.Rm("/x")
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, KindCommandFailed, e.Kind)
	assert.Equal(t, -3, e.ReturnCode)
	assert.Contains(t, e.Error(), "return code was -3")
}

func TestDispatch_LoadAndSaveRewrap(t *testing.T) {
	eng := &stubEngine{rc: -1}
	s := stubSession(t, eng)

	for name, call := range map[string]func() error{"loading": s.Load, "saving": s.Save} {
		err := call()
		require.Error(t, err)
		assert.Contains(t, err.Error(), name+" failed")
		assert.ErrorIs(t, err, ErrCommandFailed)

		var outer, inner *Error
		require.ErrorAs(t, err, &outer)
		require.ErrorAs(t, outer.Err, &inner)
		assert.Contains(t, inner.Message, "return code was -1")
	}

	// an engine error keeps its own kind
	eng.info = ports.ErrorInfo{Code: ports.CodeNoLens}
	assert.True(t, IsKind(s.Load(), KindLensNotFound))
}

func TestDispatch_SrunQuitIsSuccess(t *testing.T) {
	eng := &stubEngine{rc: -2}
	s := stubSession(t, eng)

	res, err := s.Srun("quit")
	require.NoError(t, err)
	assert.True(t, res.Quit)
	assert.Equal(t, "partial", res.Output)
}

func TestDispatch_UnknownCodeIsInternal(t *testing.T) {
	eng := &stubEngine{}
	s := stubSession(t, eng)
	eng.info = ports.ErrorInfo{Code: 42}

	_, _, err := s.Get("/x")
	assert.True(t, IsKind(err, KindInternal))
}

func TestCreate_ClosesHalfOpenHandle(t *testing.T) {
	eng := &stubEngine{info: ports.ErrorInfo{Code: ports.CodeSyntax, Message: "bad lens"}}
	_, err := Create(WithEngine(func(string, []string, ports.Flags) (ports.Engine, error) {
		return eng, nil
	}))
	assert.True(t, IsKind(err, KindLensSyntax))
	assert.Equal(t, 1, eng.closed)
}

func TestCreate_OpenFailure(t *testing.T) {
	_, err := Create(WithEngine(func(string, []string, ports.Flags) (ports.Engine, error) {
		return nil, errors.New("no library")
	}))
	assert.True(t, IsKind(err, KindInternal))

	_, err = Create(WithEngine(func(string, []string, ports.Flags) (ports.Engine, error) {
		return nil, nil
	}))
	assert.True(t, IsKind(err, KindNoMemory))
}

func TestCreate_PassesFlags(t *testing.T) {
	var got ports.Flags
	var gotRoot string
	_, err := Create(WithRoot("/r"), WithNoLoad(), WithEngine(func(root string, _ []string, f ports.Flags) (ports.Engine, error) {
		gotRoot, got = root, f
		return &stubEngine{}, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, "/r", gotRoot)
	assert.Equal(t, ports.FlagNoErrClose|ports.FlagNoLoad, got)
}

func TestDispatch_SrunFailureKeepsOutput(t *testing.T) {
	eng := &stubEngine{rc: -1}
	s := stubSession(t, eng)
	eng.info = ports.ErrorInfo{Code: ports.CodeCommandRun}

	res, err := s.Srun("get /a\nboom\n")
	assert.True(t, IsKind(err, KindCommandFailed))
	assert.Equal(t, "partial", res.Output)
	assert.Zero(t, res.Commands)
}
