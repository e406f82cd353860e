package steps

import (
	"errors"

	"github.com/jonathan/idea-scout/internal/types"
)

// Result is what every stage returns: either a state update or the reason it failed.
type Result struct {
	Update types.StateUpdate
	Err    error
}

// Success wraps a state update.
func Success(update types.StateUpdate) Result {
	return Result{Update: update}
}

// Failure wraps the reason a stage could not produce an update.
func Failure(err error) Result {
	if err == nil {
		err = errors.New("stage failed without a reason")
	}
	return Result{Err: err}
}

// Failed reports whether the stage failed.
func (r Result) Failed() bool {
	return r.Err != nil
}
