package localizer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrAlreadyStarted is returned by Start while the polling loop is running.
	ErrAlreadyStarted = errors.New("the localizer has already started")
	// ErrNotRunning is returned by a blocking GetPose when no update is pending and nothing is
	// polling the transport, so none would ever arrive.
	ErrNotRunning = errors.New("the localizer is not running")
	// ErrStopped is returned to blocked GetPose callers released by Stop.
	ErrStopped = errors.New("the localizer was stopped while waiting for a pose")
)

// UnknownObjectError is returned when asking about a name that was never tracked.
type UnknownObjectError struct {
	Name string
}

// NewUnknownObjectError returns an error for the given object name.
func NewUnknownObjectError(name string) error {
	return &UnknownObjectError{Name: name}
}

func (e *UnknownObjectError) Error() string {
	return fmt.Sprintf("invalid object name %q: it is not being tracked", e.Name)
}

// IsUnknownObjectError returns whether err is, or wraps, an UnknownObjectError.
func IsUnknownObjectError(err error) bool {
	var target *UnknownObjectError
	return errors.As(err, &target)
}
