package tracing

import "errors"

// Consistency violations. They are reported to the violation handler of
// the Thread or Tracer that detects them and never returned to the code
// performing a bind.
var (
	// ErrEntryPointCorrupted means an entry point scope exited while another
	// entry point was current.
	ErrEntryPointCorrupted = errors.New("entry point scope corrupted")

	// ErrDepthUnderflow means a bind scope ended on a thread with no bind in
	// progress.
	ErrDepthUnderflow = errors.New("bind depth underflow")

	// ErrScopeOrder means bind scopes on a thread did not end in the reverse
	// order they started.
	ErrScopeOrder = errors.New("bind scopes ended out of order")

	// ErrResultAlreadySet means SetResult was called twice on a scope.
	ErrResultAlreadySet = errors.New("bind result already set")
)

// Errors returned when decoding event fields.
var (
	ErrMissingField = errors.New("missing event field")
	ErrFieldType    = errors.New("unexpected event field type")
)
