package augeas

import (
	"fmt"
	"time"

	"github.com/aretw0/augeas/pkg/ports"
)

// CommandEvent describes one dispatched engine command.
type CommandEvent struct {
	Op       string
	Path     string
	Duration time.Duration
	// Err is nil on success. Kind is only meaningful when Err is set.
	Err  error
	Kind ErrorKind
}

// Hooks defines callbacks for session observability.
type Hooks struct {
	OnCommand func(CommandEvent)
}

// dispatch runs one raw engine call and converts its outcome.
//
// The engine reports failure two ways: through its error state, which the
// next call overwrites, and through a negative return value from some
// operations. Both are checked, in that order, right after the call.
func dispatch[T any](s *Session, op, path string, call func(ports.Engine) (T, int)) (T, error) {
	var zero T
	if s.engine == nil {
		err := &Error{Kind: KindClosed, Op: op, Path: path}
		s.observe(op, path, 0, err)
		return zero, err
	}

	start := time.Now()
	result, rc := call(s.engine)
	info := s.engine.Error()
	elapsed := time.Since(start)

	if info.Code != ports.CodeNoError {
		err := &Error{
			Kind:    KindFromCode(info.Code),
			Op:      op,
			Path:    path,
			Message: info.Message,
			Details: info.Details,
			Minor:   info.Minor,
		}
		s.observe(op, path, elapsed, err)
		return zero, err
	}
	if rc < 0 {
		err := &Error{
			Kind:       KindCommandFailed,
			Op:         op,
			Path:       path,
			Message:    fmt.Sprintf("command failed. return code was %d", rc),
			ReturnCode: rc,
		}
		s.observe(op, path, elapsed, err)
		return zero, err
	}

	s.observe(op, path, elapsed, nil)
	return result, nil
}

// run dispatches a call whose only result is its return code.
func run(s *Session, op, path string, call func(ports.Engine) int) (int, error) {
	return dispatch(s, op, path, func(e ports.Engine) (int, int) {
		rc := call(e)
		return rc, rc
	})
}

func (s *Session) observe(op, path string, d time.Duration, err error) {
	if err != nil {
		s.logger.Debug("command failed", "op", op, "path", path, "err", err)
	} else {
		s.logger.Debug("command", "op", op, "path", path, "duration", d)
	}
	if s.hooks.OnCommand == nil {
		return
	}
	ev := CommandEvent{Op: op, Path: path, Duration: d, Err: err}
	if err != nil {
		ev.Kind, _ = KindOf(err)
	}
	s.hooks.OnCommand(ev)
}
