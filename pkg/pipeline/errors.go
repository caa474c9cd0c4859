package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden is the uniform permission-guard rejection. It aborts
	// the whole batch and carries no internal detail.
	ErrForbidden = errors.New("forbidden")

	// ErrUnroutable marks a transaction whose classifier resolves to no
	// domain. The router logs and skips such transactions; this error is
	// only surfaced by callers that bypass the router.
	ErrUnroutable = errors.New("classifier resolves to no domain")
)

// InvariantError is a guard rejection (duplicate reaction, broken version
// chain). It aborts the batch with a descriptive message.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string { return e.Msg }

func invariant(format string, args ...any) error {
	return &InvariantError{Msg: fmt.Sprintf(format, args...)}
}

// IsInvariantError reports whether err is a guard rejection.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// ConfigurationError reports a broken pipeline assembly (missing adapter
// manager, unknown adapter name). It is raised at construction, not at first
// use.
type ConfigurationError struct {
	Stage string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }
