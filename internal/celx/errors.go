package celx

import "errors"

var (
	// ErrCompile is returned when an expression fails to parse/type-check.
	ErrCompile = errors.New("celx: expression failed to compile")

	// ErrEvaluate wraps a runtime evaluation failure. Per spec §4.2 failure
	// semantics, callers generally log and degrade (guard=false, extractor=null)
	// rather than propagate this upward.
	ErrEvaluate = errors.New("celx: expression evaluation failed")

	// ErrUnknownCommand names a command_<name> that was never registered
	// via commandNames. Neither BuildEnv nor Executor returns it: an
	// expression calling an unregistered command fails to compile and is
	// reported as ErrCompile.
	ErrUnknownCommand = errors.New("celx: unregistered command name")
)
