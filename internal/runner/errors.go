package runner

import (
	"errors"
	"fmt"
)

// ErrBusy is returned when Submit is called while a turn is in flight.
var ErrBusy = errors.New("runner: a turn is already in progress")

// TransportError reports a failed model call. The turn it belonged to has
// been rolled back; the caller may retry the same input.
type TransportError struct {
	Op  string // open or stream
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
