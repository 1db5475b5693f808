package mirgen

import "errors"

var (
	// ErrExhausted is returned when no reachable place satisfies a
	// selection.
	ErrExhausted = errors.New("selection exhausted")
	// ErrNoPossibleOp is returned when generation cannot make progress in
	// the current state.
	ErrNoPossibleOp = errors.New("no possible operation")
)
