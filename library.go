package gobject

// A Signal is one emission of a named signal by a native object. The
// native library constructs Signals and passes them to the connected
// [SignalFunc]s.
type Signal struct {
	// Sender is the handle of the emitting object.
	Sender Handle
	// Name is the signal's name, e.g. "notify" or "state-changed".
	Name string
	// Detail is the optional emission detail. Empty for undetailed
	// emissions.
	Detail string
	// Args is the signal payload, already converted to tagged values.
	Args []Value
}

// SignalFunc is invoked by the native library for each emission of a
// connected signal. The return value reports whether the handler
// handled the signal; the library may use it to stop further
// dispatch, so a func that panics is reported as not-handled rather
// than being allowed to unwind into the native caller.
//
// The library may invoke a SignalFunc from any goroutine or native
// thread, concurrently with other SignalFuncs.
type SignalFunc func(sig *Signal) bool

// ToggleFunc is invoked by the native library when the reference
// count of an object with a registered toggle reference transitions
// between one and more-than-one. isLast reports that the toggle
// reference is now the last reference to the object; !isLast reports
// that some other owner took a reference again.
//
// The library may invoke a ToggleFunc from any goroutine or native
// thread, including from inside a DropRef call.
type ToggleFunc func(tok Token, h Handle, isLast bool)

// A PropertySpec describes one property declared by a native object's
// class.
type PropertySpec struct {
	// Name is the property name.
	Name string
	// Kind is the property's value kind.
	Kind Kind
	// Writable reports whether the property may be set after
	// construction.
	Writable bool
}

// Library is the surface of the native object system consumed by
// this package: reference counting, toggle-reference lifetime
// notification, signal connections, and property access.
//
// All methods must be safe for concurrent use. Methods taking a
// Handle fail with an [InvalidHandleError] if the handle does not
// name a live native object.
//
// Implementations must not invoke toggle or signal callbacks while
// holding locks that the callback's receiver could contend on
// through this package's public API: callbacks may connect,
// disconnect, and drop references.
type Library interface {
	// TakeRef increments the object's reference count.
	TakeRef(h Handle) error
	// DropRef decrements the object's reference count, destroying
	// the object when the count reaches zero.
	DropRef(h Handle) error

	// AddToggleNotify registers fn for toggle notification on h,
	// correlated by tok, and takes a toggle reference on the object.
	AddToggleNotify(h Handle, tok Token, fn ToggleFunc) error
	// RemoveToggleNotify unregisters the toggle notification
	// correlated by tok and drops the toggle reference.
	RemoveToggleNotify(h Handle, tok Token) error

	// ConnectSignal connects fn to the named signal on h and returns
	// the connection's identifier.
	ConnectSignal(h Handle, name string, fn SignalFunc) (ConnID, error)
	// DisconnectSignal removes the signal connection id from h.
	DisconnectSignal(h Handle, id ConnID) error

	// FindProperty returns the spec of the named property, or an
	// [UnknownPropertyError] if the object's class does not declare
	// it.
	FindProperty(h Handle, name string) (PropertySpec, error)
	// GetProperty returns the current value of the named property.
	GetProperty(h Handle, name string) (Value, error)
	// SetProperty sets the named property. The value's kind must
	// match the property's declared kind.
	SetProperty(h Handle, name string, v Value) error
}
