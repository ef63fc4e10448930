package augeas

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/augeas/pkg/ports"
)

// ErrorKind classifies a failed operation. The numeric value of every engine
// kind is the engine's own error code.
type ErrorKind int

const (
	KindNoMemory           ErrorKind = ErrorKind(ports.CodeNoMemory)
	KindInternal           ErrorKind = ErrorKind(ports.CodeInternal)
	KindPathExpr           ErrorKind = ErrorKind(ports.CodePathExpr)
	KindNoMatch            ErrorKind = ErrorKind(ports.CodeNoMatch)
	KindMultipleMatches    ErrorKind = ErrorKind(ports.CodeMultipleMatches)
	KindLensSyntax         ErrorKind = ErrorKind(ports.CodeSyntax)
	KindLensNotFound       ErrorKind = ErrorKind(ports.CodeNoLens)
	KindMultipleTransforms ErrorKind = ErrorKind(ports.CodeMultipleTransforms)
	KindNoSpan             ErrorKind = ErrorKind(ports.CodeNoSpan)
	KindDescendant         ErrorKind = ErrorKind(ports.CodeMoveDescendant)
	KindCommandFailed      ErrorKind = ErrorKind(ports.CodeCommandRun)
	KindBadArgument        ErrorKind = ErrorKind(ports.CodeBadArgument)
	KindBadLabel           ErrorKind = ErrorKind(ports.CodeBadLabel)

	// KindClosed is raised by the facade itself when a session whose handle
	// was already released is used. No engine code maps to it.
	KindClosed ErrorKind = 100
)

// Sentinel errors, one per kind. Every *Error unwraps to the sentinel of its
// kind, so errors.Is(err, ErrNoMatch) tells kinds apart.
var (
	ErrNoMemory           = errors.New("cannot allocate memory")
	ErrInternal           = errors.New("internal error")
	ErrPathExpr           = errors.New("invalid path expression")
	ErrNoMatch            = errors.New("no match for path expression")
	ErrMultipleMatches    = errors.New("too many matches for path expression")
	ErrLensSyntax         = errors.New("syntax error in lens definition")
	ErrLensNotFound       = errors.New("lens not found")
	ErrMultipleTransforms = errors.New("multiple transforms apply to one file")
	ErrNoSpan             = errors.New("no span information available")
	ErrDescendant         = errors.New("cannot move node into its descendant")
	ErrCommandFailed      = errors.New("command execution failed")
	ErrBadArgument        = errors.New("invalid argument")
	ErrBadLabel           = errors.New("invalid label")
	ErrClosed             = errors.New("session already closed")
)

// KindFromCode maps an engine error code to its kind. Codes the facade does
// not know are reported as KindInternal.
func KindFromCode(code ports.ErrorCode) ErrorKind {
	switch code {
	case ports.CodeNoMemory:
		return KindNoMemory
	case ports.CodeInternal:
		return KindInternal
	case ports.CodePathExpr:
		return KindPathExpr
	case ports.CodeNoMatch:
		return KindNoMatch
	case ports.CodeMultipleMatches:
		return KindMultipleMatches
	case ports.CodeSyntax:
		return KindLensSyntax
	case ports.CodeNoLens:
		return KindLensNotFound
	case ports.CodeMultipleTransforms:
		return KindMultipleTransforms
	case ports.CodeNoSpan:
		return KindNoSpan
	case ports.CodeMoveDescendant:
		return KindDescendant
	case ports.CodeCommandRun:
		return KindCommandFailed
	case ports.CodeBadArgument:
		return KindBadArgument
	case ports.CodeBadLabel:
		return KindBadLabel
	default:
		return KindInternal
	}
}

// Sentinel returns the sentinel error of the kind.
func (k ErrorKind) Sentinel() error {
	switch k {
	case KindNoMemory:
		return ErrNoMemory
	case KindInternal:
		return ErrInternal
	case KindPathExpr:
		return ErrPathExpr
	case KindNoMatch:
		return ErrNoMatch
	case KindMultipleMatches:
		return ErrMultipleMatches
	case KindLensSyntax:
		return ErrLensSyntax
	case KindLensNotFound:
		return ErrLensNotFound
	case KindMultipleTransforms:
		return ErrMultipleTransforms
	case KindNoSpan:
		return ErrNoSpan
	case KindDescendant:
		return ErrDescendant
	case KindCommandFailed:
		return ErrCommandFailed
	case KindBadArgument:
		return ErrBadArgument
	case KindBadLabel:
		return ErrBadLabel
	case KindClosed:
		return ErrClosed
	default:
		return ErrInternal
	}
}

// String returns the stable name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindNoMemory:
		return "no-memory"
	case KindInternal:
		return "internal"
	case KindPathExpr:
		return "path-expr"
	case KindNoMatch:
		return "no-match"
	case KindMultipleMatches:
		return "multiple-matches"
	case KindLensSyntax:
		return "lens-syntax"
	case KindLensNotFound:
		return "lens-not-found"
	case KindMultipleTransforms:
		return "multiple-transforms"
	case KindNoSpan:
		return "no-span"
	case KindDescendant:
		return "descendant"
	case KindCommandFailed:
		return "command-failed"
	case KindBadArgument:
		return "bad-argument"
	case KindBadLabel:
		return "bad-label"
	case KindClosed:
		return "closed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the failure of one facade operation.
type Error struct {
	Kind ErrorKind
	// Op is the operation that failed ("get", "transform", ...).
	Op string
	// Path is the first path argument of the operation, if any.
	Path string
	// Message and Details are the engine's human readable description.
	Message string
	Details string
	// Minor is the engine's internal subcode description, if it gave one.
	Minor string
	// ReturnCode is the negative engine return value for KindCommandFailed
	// errors reported through the return value rather than the error state.
	ReturnCode int
	// Err is an underlying cause, such as the engine error a load failure
	// was rewrapped from.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	b.WriteString(": ")
	msg := e.Message
	if msg == "" {
		msg = e.Kind.Sentinel().Error()
	}
	b.WriteString(msg)
	if e.Details != "" {
		b.WriteString(" ")
		b.WriteString(e.Details)
	}
	return b.String()
}

// Unwrap returns the kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.Sentinel(), e.Err}
	}
	return []error{e.Kind.Sentinel()}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

func badArgument(op, format string, args ...any) error {
	return &Error{
		Kind:    KindBadArgument,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}
