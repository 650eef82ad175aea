package tracing

import "fmt"

// A BindLabel names the loading context that initiated a bind. Labels are
// only rendered when a start event is actually emitted.
type BindLabel interface {
	DisplayName() string
}

// StringLabel is a BindLabel that is already a string.
type StringLabel string

// DisplayName returns the label itself.
func (l StringLabel) DisplayName() string {
	return string(l)
}

type stringerLabel struct {
	s fmt.Stringer
}

func (l stringerLabel) DisplayName() string {
	return l.s.String()
}

// LabelOf adapts any fmt.Stringer into a BindLabel.
func LabelOf(s fmt.Stringer) BindLabel {
	return stringerLabel{s: s}
}
