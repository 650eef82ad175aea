package tracing

import (
	"fmt"
	"strings"
)

// EntryPoint classifies the external trigger of a bind chain.
type EntryPoint uint16

// The entry points known to the tracer.
const (
	EntryPointUnknown EntryPoint = iota
	EntryPointJIT
	EntryPointLoad
	EntryPointLoadFromPath
	EntryPointLoadFromStream
	EntryPointReflection
)

var entryPointNames = [...]string{
	EntryPointUnknown:        "Unknown",
	EntryPointJIT:            "JIT",
	EntryPointLoad:           "Load",
	EntryPointLoadFromPath:   "LoadFromPath",
	EntryPointLoadFromStream: "LoadFromStream",
	EntryPointReflection:     "Reflection",
}

func (e EntryPoint) String() string {
	if int(e) < len(entryPointNames) {
		return entryPointNames[e]
	}

	return fmt.Sprintf("EntryPoint(%d)", uint16(e))
}

// ParseEntryPoint converts a name such as "LoadFromPath" into an EntryPoint.
// The match is case-insensitive.
func ParseEntryPoint(name string) (EntryPoint, error) {
	for i, n := range entryPointNames {
		if strings.EqualFold(n, name) {
			return EntryPoint(i), nil
		}
	}

	return EntryPointUnknown, fmt.Errorf("unknown entry point %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (e EntryPoint) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *EntryPoint) UnmarshalText(text []byte) error {
	parsed, err := ParseEntryPoint(string(text))
	if err != nil {
		return err
	}

	*e = parsed

	return nil
}

// An EntryPointScope overrides the entry point of a Thread until Exit is
// called.
type EntryPointScope struct {
	thread   *Thread
	kind     EntryPoint
	previous EntryPoint
	exited   bool
}

// EnterEntryPoint makes kind the current entry point of the thread. The
// previous entry point is restored when the returned scope exits. Scopes
// nest and must exit in the reverse order they were entered.
func (t *Thread) EnterEntryPoint(kind EntryPoint) *EntryPointScope {
	s := &EntryPointScope{
		thread:   t,
		kind:     kind,
		previous: t.entryPoint,
	}

	t.entryPoint = kind

	return s
}

// Exit restores the entry point that was current when the scope was
// entered. Calling Exit more than once has no effect.
func (s *EntryPointScope) Exit() {
	if s == nil || s.exited {
		return
	}

	s.exited = true

	current := s.thread.entryPoint
	s.thread.entryPoint = s.previous

	if current != s.kind {
		s.thread.report(fmt.Errorf(
			"%w: scope for %s exited while %s was current",
			ErrEntryPointCorrupted, s.kind, current))
	}
}

// Kind returns the entry point the scope installed.
func (s *EntryPointScope) Kind() EntryPoint {
	return s.kind
}
