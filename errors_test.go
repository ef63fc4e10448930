package augeas

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/augeas/pkg/ports"
)

func TestKindFromCode(t *testing.T) {
	for code := ports.CodeNoMemory; code <= ports.CodeBadLabel; code++ {
		k := KindFromCode(code)
		assert.Equal(t, int(code), int(k), "code %d", code)
		if code != ports.CodeInternal {
			assert.NotEqual(t, ErrInternal, k.Sentinel(), "code %d", code)
		}
		assert.NotContains(t, k.String(), "kind(", "code %d", code)
	}
	assert.Equal(t, KindInternal, KindFromCode(ports.ErrorCode(99)))
	assert.Equal(t, KindInternal, KindFromCode(ports.CodeNoError))
}

func TestKind_Sentinels(t *testing.T) {
	for kind, want := range map[ErrorKind]error{
		KindNoMemory:           ErrNoMemory,
		KindInternal:           ErrInternal,
		KindPathExpr:           ErrPathExpr,
		KindNoMatch:            ErrNoMatch,
		KindMultipleMatches:    ErrMultipleMatches,
		KindLensSyntax:         ErrLensSyntax,
		KindLensNotFound:       ErrLensNotFound,
		KindMultipleTransforms: ErrMultipleTransforms,
		KindNoSpan:             ErrNoSpan,
		KindDescendant:         ErrDescendant,
		KindCommandFailed:      ErrCommandFailed,
		KindBadArgument:        ErrBadArgument,
		KindBadLabel:           ErrBadLabel,
		KindClosed:             ErrClosed,
	} {
		assert.Equal(t, want, kind.Sentinel(), kind.String())
	}
}

func TestKind_InternalSentinel(t *testing.T) {
	assert.Equal(t, ErrInternal, KindInternal.Sentinel())
	assert.Equal(t, ErrClosed, KindClosed.Sentinel())
	assert.Equal(t, "closed", KindClosed.String())
	assert.Equal(t, "kind(77)", ErrorKind(77).String())
}

func TestError_Format(t *testing.T) {
	err := &Error{Kind: KindNoMatch, Op: "mv", Path: "/a", Message: "No match for path expression", Details: "/a"}
	assert.Equal(t, "mv /a: No match for path expression /a", err.Error())

	err = &Error{Kind: KindClosed, Op: "get"}
	assert.Equal(t, "get: session already closed", err.Error())
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("engine said no")
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindLensNotFound, Op: "load", Err: cause})

	assert.ErrorIs(t, err, ErrLensNotFound)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNoMatch)

	k, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindLensNotFound, k)

	_, ok = KindOf(cause)
	assert.False(t, ok)
	assert.False(t, IsKind(nil, KindInternal))
}
