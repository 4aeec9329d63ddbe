package gobject

import (
	"errors"
	"fmt"
)

// ErrBridgeClosed is returned by operations on a [Bridge] after
// [Bridge.Close] has been called.
var ErrBridgeClosed = errors.New("bridge is closed")

// ErrInvalidated is returned by operations on an [Object] after it
// has been invalidated.
var ErrInvalidated = errors.New("object has been invalidated")

// InvalidHandleError is the error returned when a [Handle] does not
// resolve to a live object in the native library.
type InvalidHandleError struct {
	// Handle is the handle that failed to resolve.
	Handle Handle
}

func (e InvalidHandleError) Error() string {
	return fmt.Sprintf("invalid native handle %s", e.Handle)
}

// DuplicateConnectionError is the error returned when a listener is
// connected to a signal it is already connected to. The first
// connection must be removed before the listener can be connected
// again, so that its native connection cannot be orphaned.
type DuplicateConnectionError struct {
	// Signal is the name of the signal.
	Signal string
}

func (e DuplicateConnectionError) Error() string {
	return fmt.Sprintf("listener already connected to signal %q", e.Signal)
}

// UnknownPropertyError is the error returned when a property name is
// not declared by an object's class.
type UnknownPropertyError struct {
	// Name is the property name that was not found.
	Name string
}

func (e UnknownPropertyError) Error() string {
	return fmt.Sprintf("unknown property %q", e.Name)
}

// KindError is the error returned when a [Kind] is outside the
// closed set of representable kinds.
type KindError struct {
	// Kind is the unrepresentable kind.
	Kind Kind
}

func (e KindError) Error() string {
	return fmt.Sprintf("unrepresentable value kind %s", e.Kind)
}

// ConvertError is the error returned when a Go value cannot be
// coerced to a [Kind]'s payload type.
type ConvertError struct {
	// Kind is the kind the value was being converted to.
	Kind Kind
	// Value is the value that could not be converted.
	Value any
}

func (e ConvertError) Error() string {
	return fmt.Sprintf("cannot convert %T (%v) to %s", e.Value, e.Value, e.Kind)
}
