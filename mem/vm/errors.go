package vm

import "errors"

// Errors reported by the memory management unit. None of them is fatal to a
// replay; callers report them and move on to the next command.
var (
	// ErrUnknownPointer means a command referenced a pointer that is not
	// registered, either never allocated or already deleted.
	ErrUnknownPointer = errors.New("unknown pointer")

	// ErrMalformedCommand means a command has the wrong name, arity, or
	// argument values.
	ErrMalformedCommand = errors.New("malformed command")

	// ErrPoolExhaustionInconsistency means victim selection found nothing
	// to evict although the pool is full. The policy state disagrees with
	// the frame pool.
	ErrPoolExhaustionInconsistency = errors.New(
		"pool exhaustion inconsistency")
)
