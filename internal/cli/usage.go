package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/augeas"
)

// ErrUsage marks errors caused by how a command was invoked rather than by
// the tree.
var ErrUsage = errors.New("usage error")

type usageError struct {
	err error
}

func (e *usageError) Error() string   { return e.err.Error() }
func (e *usageError) Unwrap() []error { return []error{ErrUsage, e.err} }

// Usage marks err as a usage error. It keeps err's message.
func Usage(err error) error {
	if err == nil || errors.Is(err, ErrUsage) {
		return err
	}
	return &usageError{err: err}
}

// Args marks the errors of a cobra argument check as usage errors.
func Args(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return Usage(check(cmd, args))
	}
}

// ExactArgs requires n arguments; usage describes them in the error.
func ExactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return Usage(fmt.Errorf("%s takes %s", cmd.Name(), usage))
		}
		return nil
	}
}

// FlagError is a cobra flag error func that marks flag parse failures as
// usage errors.
func FlagError(_ *cobra.Command, err error) error {
	return Usage(err)
}

// IsUsage reports whether err should exit with the usage status.
// Invalid option values surface from the facade as bad-argument errors and
// count too.
func IsUsage(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUsage) ||
		errors.Is(err, augeas.ErrBadArgument) ||
		strings.HasPrefix(err.Error(), "unknown command")
}
