package rx

import (
	"errors"
	"fmt"
)

// ErrComplete is the completion signal. An [Observer] returns it to ask
// upstream to stop producing; a [Producer] returns it to end its run early.
// It is caught at the nearest enclosing subscribe boundary and is never
// reported to the terminal subscriber as a failure.
var ErrComplete = errors.New("rx: complete")

// IsComplete reports whether err carries the completion signal.
func IsComplete(err error) bool {
	return errors.Is(err, ErrComplete)
}

// StreamError wraps a failure together with the name of the stage whose
// subscribe boundary it first crossed. Every failure returned from a
// subscription is a StreamError, so callers can attribute it.
type StreamError struct {
	Stage string
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stage %q failed: %v", e.Stage, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// IsStreamError reports whether err (or any error in its chain) is a [*StreamError].
func IsStreamError(err error) bool {
	if err == nil {
		return false
	}
	var se *StreamError
	return errors.As(err, &se)
}

// StageOf returns the stage name of the first [*StreamError] in err's chain.
// Returns false if no StreamError is found.
func StageOf(err error) (string, bool) {
	if err == nil {
		return "", false
	}

	var se *StreamError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// CauseOf unwraps the first [*StreamError] in err's chain and returns its
// underlying cause. If err is not a StreamError, it is returned as-is.
// Returns nil if err is nil.
func CauseOf(err error) error {
	if err == nil {
		return nil
	}

	var se *StreamError
	if errors.As(err, &se) {
		return se.Err
	}

	return err
}

// AllStreamErrors recursively collects every [*StreamError] from err's chain,
// including errors combined with [errors.Join]. Returns nil if none are found.
func AllStreamErrors(err error) []*StreamError {
	if err == nil {
		return nil
	}

	var out []*StreamError
	collectStreamErrors(err, &out)
	return out
}

func collectStreamErrors(err error, out *[]*StreamError) {
	switch e := err.(type) {
	case *StreamError:
		*out = append(*out, e)

	case interface{ Unwrap() []error }:
		for _, sub := range e.Unwrap() {
			collectStreamErrors(sub, out)
		}

	case interface{ Unwrap() error }:
		collectStreamErrors(e.Unwrap(), out)
	}
}

// wrapFailure attributes err to stage unless it is already attributed or
// is the completion signal.
func wrapFailure(stage string, err error) error {
	if err == nil || IsComplete(err) || IsStreamError(err) {
		return err
	}
	return &StreamError{Stage: stage, Err: err}
}
