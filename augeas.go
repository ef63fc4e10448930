package augeas

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/augeas/internal/logging"
	"github.com/aretw0/augeas/pkg/ports"
	"github.com/aretw0/augeas/pkg/registry"

	// The memory engine is the default and must always be registered.
	_ "github.com/aretw0/augeas/pkg/adapters/memory"
)

// Well-known paths of the engine's own metadata subtree.
const (
	PathRoot       = "/augeas/root"
	PathSave       = "/augeas/save"
	PathSpan       = "/augeas/span"
	PathContext    = "/augeas/context"
	PathLoad       = "/augeas/load"
	PathFiles      = "/augeas/files"
	PathVersion    = "/augeas/version"
	PathErrorsGlob = "/augeas//error"
)

// Session owns one open engine handle.
//
// A Session is not safe for concurrent use. Callers that share one between
// goroutines must serialize access themselves, for example with
// session.Manager.
type Session struct {
	engine ports.Engine
	opts   Options
	logger *slog.Logger
	hooks  Hooks
}

// Create opens a session. Options are validated before the engine is
// touched; errors the engine records while opening close the half-open
// handle and fail Create with the mapped kind.
func Create(opts ...Option) (*Session, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	open := cfg.open
	if open == nil {
		open, err = registry.Lookup(cfg.opts.engineName())
		if err != nil {
			return nil, &Error{Kind: KindBadArgument, Op: "create", Message: err.Error(), Err: err}
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With("engine", cfg.opts.engineName())

	eng, err := open(cfg.opts.Root, cfg.opts.LoadPath, cfg.opts.Flags())
	if err != nil {
		return nil, &Error{Kind: KindInternal, Op: "create", Path: cfg.opts.Root, Message: err.Error(), Err: err}
	}
	if eng == nil {
		return nil, &Error{Kind: KindNoMemory, Op: "create", Path: cfg.opts.Root}
	}

	if info := eng.Error(); info.Code != ports.CodeNoError {
		_ = eng.Close()
		return nil, &Error{
			Kind:    KindFromCode(info.Code),
			Op:      "create",
			Path:    cfg.opts.Root,
			Message: info.Message,
			Details: info.Details,
			Minor:   info.Minor,
		}
	}

	logger.Debug("session opened", "config", cfg.String())
	return &Session{
		engine: eng,
		opts:   cfg.opts,
		logger: logger,
		hooks:  cfg.hooks,
	}, nil
}

// CreateFromMap opens a session from an options map; see OptionsFromMap.
func CreateFromMap(m map[string]any, extra ...Option) (*Session, error) {
	opts, err := OptionsFromMap(m)
	if err != nil {
		return nil, err
	}
	return Create(append([]Option{WithOptions(opts)}, extra...)...)
}

// With opens a session, passes it to fn and closes it when fn returns,
// fails or panics. The error of fn wins over the error of Close.
func With(fn func(*Session) error, opts ...Option) (err error) {
	_, err = WithResult(func(s *Session) (struct{}, error) {
		return struct{}{}, fn(s)
	}, opts...)
	return err
}

// WithResult is With for a unit of work that produces a value.
func WithResult[T any](fn func(*Session) (T, error), opts ...Option) (result T, err error) {
	s, err := Create(opts...)
	if err != nil {
		return result, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(s)
}

// Close releases the engine handle. Calling Close again, or any other
// method afterwards, fails with KindClosed.
func (s *Session) Close() error {
	if s.engine == nil {
		return &Error{Kind: KindClosed, Op: "close"}
	}
	eng := s.engine
	s.engine = nil
	if err := eng.Close(); err != nil {
		return &Error{Kind: KindInternal, Op: "close", Message: err.Error(), Err: err}
	}
	s.logger.Debug("session closed")
	return nil
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.engine == nil
}

// Options returns the options the session was created with.
func (s *Session) Options() Options {
	return s.opts
}

// Get returns the value of the node matching path. ok is false when no node
// matches or the node has no value; neither is an error. More than one
// match fails with KindMultipleMatches.
func (s *Session) Get(path string) (value string, ok bool, err error) {
	v, err := dispatch(s, "get", path, func(e ports.Engine) (*string, int) {
		return e.Get(path)
	})
	if err != nil || v == nil {
		return "", false, err
	}
	return *v, true, nil
}

// Set sets the value of the single node matching path, creating the node
// and its missing ancestors when nothing matches. A path matching more than
// one node fails with KindMultipleMatches.
func (s *Session) Set(path, value string) error {
	return s.set("set", path, &value)
}

func (s *Session) set(op, path string, value *string) error {
	_, err := run(s, op, path, func(e ports.Engine) int {
		return e.Set(path, value)
	})
	return err
}

// SetM sets value on the node sub relative to every node matching base,
// creating sub where it is missing. A sub of "." modifies the base nodes
// themselves. It returns the number of nodes modified.
func (s *Session) SetM(base, sub, value string) (int, error) {
	return s.setm("setm", base, sub, &value)
}

func (s *Session) setm(op, base, sub string, value *string) (int, error) {
	return run(s, op, base, func(e ports.Engine) int {
		return e.SetM(base, sub, value)
	})
}

// Rm removes every node matching path and all their descendants, and
// returns how many nodes went away. No match removes nothing and is not an
// error.
func (s *Session) Rm(path string) (int, error) {
	return run(s, "rm", path, func(e ports.Engine) int {
		return e.Rm(path)
	})
}

// Mv moves the single node matching src to dst. An existing dst is replaced
// together with its descendants; a missing dst is created with its missing
// ancestors. dst may not be a descendant of src.
func (s *Session) Mv(src, dst string) error {
	_, err := run(s, "mv", src, func(e ports.Engine) int {
		return e.Mv(src, dst)
	})
	return err
}

// Match returns the paths of all nodes matching path, in tree order.
// An expression that matches nothing yields an empty slice.
func (s *Session) Match(path string) ([]string, error) {
	paths, err := dispatch(s, "match", path, func(e ports.Engine) ([]string, int) {
		return e.Match(path)
	})
	if err != nil {
		return nil, err
	}
	if paths == nil {
		paths = []string{}
	}
	return paths, nil
}

// Insert creates a node labeled label as a sibling of the single node
// matching path, directly before it when before is true and after it
// otherwise.
func (s *Session) Insert(path, label string, before bool) error {
	_, err := run(s, "insert", path, func(e ports.Engine) int {
		return e.Insert(path, label, before)
	})
	return err
}

// DefVar evaluates expr and binds the resulting nodeset to name, usable as
// $name afterwards. expr is evaluated now, not when $name is used. It
// returns the size of the nodeset.
func (s *Session) DefVar(name, expr string) (int, error) {
	return run(s, "defvar", name, func(e ports.Engine) int {
		return e.DefVar(name, &expr)
	})
}

// UndefVar removes the variable name.
func (s *Session) UndefVar(name string) error {
	_, err := run(s, "defvar", name, func(e ports.Engine) int {
		return e.DefVar(name, nil)
	})
	return err
}

// DefNode is DefVar for an expression that must yield a nodeset. When expr
// matches nothing a node is created with value and name refers to it.
func (s *Session) DefNode(name, expr, value string) (created bool, err error) {
	return dispatch(s, "defnode", name, func(e ports.Engine) (bool, int) {
		return e.DefNode(name, expr, &value)
	})
}

// Range is a half-open character range in a file.
type Range struct {
	Start int
	End   int
}

// Span is where a node came from in its file.
type Span struct {
	Filename string
	Label    Range
	Value    Range
	Span     Range
}

// Span returns the position of the node matching path in the file it was
// loaded from. Nodes loaded without position tracking, or not belonging to
// a file, fail with KindNoSpan.
func (s *Session) Span(path string) (Span, error) {
	sp, err := dispatch(s, "span", path, func(e ports.Engine) (ports.Span, int) {
		return e.Span(path)
	})
	if err != nil {
		return Span{}, err
	}
	return Span{
		Filename: sp.Filename,
		Label:    Range{sp.LabelStart, sp.LabelEnd},
		Value:    Range{sp.ValueStart, sp.ValueEnd},
		Span:     Range{sp.SpanStart, sp.SpanEnd},
	}, nil
}

// Label returns the label of the single node matching path.
func (s *Session) Label(path string) (string, bool, error) {
	l, err := dispatch(s, "label", path, func(e ports.Engine) (*string, int) {
		return e.Label(path)
	})
	if err != nil || l == nil {
		return "", false, err
	}
	return *l, true, nil
}

// Rename changes the label of every node matching path to label and
// returns the number of renamed nodes.
func (s *Session) Rename(path, label string) (int, error) {
	return run(s, "rename", path, func(e ports.Engine) int {
		return e.Rename(path, label)
	})
}

// TextStore parses the value of node with lens and stores the resulting
// tree at path, replacing what was there.
func (s *Session) TextStore(lens, node, path string) error {
	_, err := run(s, "text_store", path, func(e ports.Engine) int {
		return e.TextStore(lens, node, path)
	})
	return err
}

// TextRetrieve renders the tree at path with lens, as if it had been
// produced from the text in nodeIn, and stores the text in nodeOut.
func (s *Session) TextRetrieve(lens, nodeIn, path, nodeOut string) error {
	_, err := run(s, "text_retrieve", path, func(e ports.Engine) int {
		return e.TextRetrieve(lens, nodeIn, path, nodeOut)
	})
	return err
}

// SrunResult is the outcome of Srun.
type SrunResult struct {
	// Commands is the number of commands that ran.
	Commands int
	Output   string
	// Quit is set when a quit command stopped the run.
	Quit bool
}

// Srun runs newline separated commands in the engine's command language.
// On failure the result still holds the output of the commands that ran.
func (s *Session) Srun(text string) (SrunResult, error) {
	var out string
	res, err := dispatch(s, "srun", "", func(e ports.Engine) (SrunResult, int) {
		var rc int
		out, rc = e.Srun(text)
		if rc == -2 {
			return SrunResult{Output: out, Quit: true}, 0
		}
		return SrunResult{Commands: rc, Output: out}, rc
	})
	if err != nil {
		return SrunResult{Output: out}, err
	}
	return res, nil
}

// Load (re)loads files according to the transforms under /augeas/load.
// Problems with individual files do not fail Load; they are recorded in the
// tree, see FileErrors.
func (s *Session) Load() error {
	_, err := run(s, "load", "", func(e ports.Engine) int {
		return e.Load()
	})
	return rewrapTreeError(err, "loading")
}

// Save writes all pending changes to disk according to the save mode.
func (s *Session) Save() error {
	_, err := run(s, "save", "", func(e ports.Engine) int {
		return e.Save()
	})
	return rewrapTreeError(err, "saving")
}

func rewrapTreeError(err error, what string) error {
	e, ok := err.(*Error)
	if !ok || e.Kind != KindCommandFailed {
		return err
	}
	return &Error{
		Kind:       KindCommandFailed,
		Op:         e.Op,
		Message:    fmt.Sprintf("%s failed. search the augeas tree in %s for the actual errors", what, PathErrorsGlob),
		ReturnCode: e.ReturnCode,
		Err:        e,
	}
}

// SetContext sets the base path for relative path expressions.
func (s *Session) SetContext(path string) error {
	return s.Set(PathContext, path)
}

// Context returns the base path for relative path expressions.
func (s *Session) Context() (string, error) {
	v, _, err := s.Get(PathContext)
	return v, err
}
