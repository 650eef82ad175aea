package tracing

import (
	"fmt"

	"github.com/sarchlab/bindtrace/activity"
	"github.com/sarchlab/bindtrace/hooking"
)

// EventKind identifies the two events a bind produces.
type EventKind int

// The event kinds.
const (
	EventBindStart EventKind = iota
	EventBindStop
)

// Hook positions at which HookSink delivers the events.
var (
	HookPosBindStart = &hooking.HookPos{Name: "BindStart"}
	HookPosBindStop  = &hooking.HookPos{Name: "BindStop"}
)

func (k EventKind) String() string {
	switch k {
	case EventBindStart:
		return "BindStart"
	case EventBindStop:
		return "BindStop"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// HookPos returns the hook position that carries events of this kind.
func (k EventKind) HookPos() *hooking.HookPos {
	switch k {
	case EventBindStart:
		return HookPosBindStart
	case EventBindStop:
		return HookPosBindStop
	default:
		panic("unknown event kind")
	}
}

// Field names used in bind events.
const (
	FieldName              = "name"
	FieldEntryPoint        = "entryPoint"
	FieldContextLabel      = "contextLabel"
	FieldActivityID        = "activityId"
	FieldRelatedActivityID = "relatedActivityId"
	FieldSuccess           = "success"
	FieldResultPath        = "resultPath"
)

// Field is one named value of an event.
type Field struct {
	Key   string
	Value any
}

// Fields is the ordered payload of an event.
type Fields []Field

// Get returns the value of the first field with the given key.
func (f Fields) Get(key string) (any, bool) {
	for _, field := range f {
		if field.Key == key {
			return field.Value, true
		}
	}

	return nil, false
}

// Keys returns the field names in order.
func (f Fields) Keys() []string {
	keys := make([]string, len(f))
	for i, field := range f {
		keys[i] = field.Key
	}

	return keys
}

func fieldAs[T any](f Fields, key string) (T, error) {
	var zero T

	v, ok := f.Get(key)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrMissingField, key)
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrFieldType, key, v)
	}

	return typed, nil
}

// BindStart is the payload of a start event.
type BindStart struct {
	Name              string
	EntryPoint        EntryPoint
	ContextLabel      string
	ActivityID        activity.ID
	RelatedActivityID activity.ID
}

// Fields returns the event payload in emission order.
func (e BindStart) Fields() Fields {
	return Fields{
		{Key: FieldName, Value: e.Name},
		{Key: FieldEntryPoint, Value: e.EntryPoint},
		{Key: FieldContextLabel, Value: e.ContextLabel},
		{Key: FieldActivityID, Value: e.ActivityID},
		{Key: FieldRelatedActivityID, Value: e.RelatedActivityID},
	}
}

// BindStartFromFields decodes the payload of a start event.
func BindStartFromFields(f Fields) (e BindStart, err error) {
	if e.Name, err = fieldAs[string](f, FieldName); err != nil {
		return e, err
	}

	if e.EntryPoint, err = fieldAs[EntryPoint](f, FieldEntryPoint); err != nil {
		return e, err
	}

	if e.ContextLabel, err = fieldAs[string](f, FieldContextLabel); err != nil {
		return e, err
	}

	if e.ActivityID, err = fieldAs[activity.ID](f, FieldActivityID); err != nil {
		return e, err
	}

	e.RelatedActivityID, err = fieldAs[activity.ID](f, FieldRelatedActivityID)

	return e, err
}

// BindStop is the payload of a stop event.
type BindStop struct {
	Name       string
	EntryPoint EntryPoint
	Success    bool
	ResultPath string
	ActivityID activity.ID
}

// Fields returns the event payload in emission order.
func (e BindStop) Fields() Fields {
	return Fields{
		{Key: FieldName, Value: e.Name},
		{Key: FieldEntryPoint, Value: e.EntryPoint},
		{Key: FieldSuccess, Value: e.Success},
		{Key: FieldResultPath, Value: e.ResultPath},
		{Key: FieldActivityID, Value: e.ActivityID},
	}
}

// BindStopFromFields decodes the payload of a stop event.
func BindStopFromFields(f Fields) (e BindStop, err error) {
	if e.Name, err = fieldAs[string](f, FieldName); err != nil {
		return e, err
	}

	if e.EntryPoint, err = fieldAs[EntryPoint](f, FieldEntryPoint); err != nil {
		return e, err
	}

	if e.Success, err = fieldAs[bool](f, FieldSuccess); err != nil {
		return e, err
	}

	if e.ResultPath, err = fieldAs[string](f, FieldResultPath); err != nil {
		return e, err
	}

	e.ActivityID, err = fieldAs[activity.ID](f, FieldActivityID)

	return e, err
}
