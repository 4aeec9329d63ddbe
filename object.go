package gobject

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// An Object is the Go proxy for one native object. At most one
// Object exists per live [Handle]; [Bridge.Construct] and
// [Bridge.Lookup] always return the canonical instance.
//
// An Object stays usable until it is invalidated, either explicitly
// with [Object.Invalidate] or as part of [Bridge.Close].
type Object struct {
	bridge *Bridge
	handle Handle
	token  Token
	// owns reports that this binding carries final responsibility
	// for releasing the native object.
	owns bool
	// holdsRef reports that a non-owning proxy took its own native
	// reference at construction, to be dropped at invalidation.
	holdsRef bool

	mu      sync.Mutex
	invalid bool
	conns   map[connKey]*connection
}

// Handle returns the native handle the proxy wraps.
func (o *Object) Handle() Handle { return o.handle }

// Bridge returns the bridge that owns the proxy.
func (o *Object) Bridge() *Bridge { return o.bridge }

// Valid reports whether the proxy is still bound to its native
// object.
func (o *Object) Valid() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return !o.invalid
}

func (o *Object) String() string {
	return fmt.Sprintf("object(%s)", o.handle)
}

// Invalidate tears down the proxy: it disconnects any remaining
// signal connections, unregisters the lifetime notification, removes
// the proxy from the bridge's registries, and releases the native
// reference held by the binding, exactly once. Invalidating an
// already-invalid proxy is a no-op.
//
// Invalidate is the required teardown path. Proxies are not torn
// down by garbage collection: an unreachable but valid proxy keeps
// its native registrations alive.
func (o *Object) Invalidate() error {
	o.mu.Lock()
	if o.invalid {
		o.mu.Unlock()
		return nil
	}
	o.invalid = true
	conns := o.conns
	o.conns = nil
	o.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.close(); err != nil {
			errs = append(errs, err)
		}
	}

	b := o.bridge
	if o.owns {
		// Take a temporary reference before unregistering: dropping
		// the toggle reference can release the last reference, and
		// the native object must stay alive until its registration
		// state is fully unwound.
		if err := b.lib.TakeRef(o.handle); err != nil {
			errs = append(errs, err)
		}
		if err := b.lib.RemoveToggleNotify(o.handle, o.token); err != nil {
			errs = append(errs, err)
		}
	}
	b.forget(o)
	if o.owns || o.holdsRef {
		if err := b.lib.DropRef(o.handle); err != nil {
			errs = append(errs, err)
		}
	}
	b.log.Debug("invalidated proxy",
		zap.Stringer("handle", o.handle),
		zap.Uint64("token", uint64(o.token)))
	return errors.Join(errs...)
}

// Property returns the spec of the named property.
func (o *Object) Property(name string) (PropertySpec, error) {
	if !o.Valid() {
		return PropertySpec{}, ErrInvalidated
	}
	return o.bridge.lib.FindProperty(o.handle, name)
}

// Set sets the named property to val, which is coerced to the
// property's declared kind. Unknown properties fail with an
// [UnknownPropertyError]; values that cannot be represented in the
// property's kind fail with a [ConvertError].
func (o *Object) Set(name string, val any) error {
	if !o.Valid() {
		return ErrInvalidated
	}
	spec, err := o.bridge.lib.FindProperty(o.handle, name)
	if err != nil {
		return err
	}
	v, err := NewValue(spec.Kind, val)
	if err != nil {
		return err
	}
	return o.bridge.lib.SetProperty(o.handle, name, v)
}

// Get returns the current value of the named property.
func (o *Object) Get(name string) (Value, error) {
	if !o.Valid() {
		return Value{}, ErrInvalidated
	}
	return o.bridge.lib.GetProperty(o.handle, name)
}

// GetAs reads the named property and coerces it to T, which must be
// one of bool, int32, uint32, int64, uint64, float64, string, or
// [Handle].
//
// It is the caller's responsibility to pick a T the property's kind
// can be coerced to; mismatches fail with a [ConvertError].
func GetAs[T bool | int32 | uint32 | int64 | uint64 | float64 | string | Handle](o *Object, name string) (T, error) {
	var zero T
	v, err := o.Get(name)
	if err != nil {
		return zero, err
	}
	var got any
	switch any(zero).(type) {
	case bool:
		b, err := v.Bool()
		if err != nil {
			return zero, err
		}
		got = b
	case int32:
		n, err := v.Int64()
		if err != nil {
			return zero, err
		}
		got = int32(n)
	case uint32:
		n, err := v.Uint64()
		if err != nil {
			return zero, err
		}
		got = uint32(n)
	case int64:
		n, err := v.Int64()
		if err != nil {
			return zero, err
		}
		got = n
	case uint64:
		n, err := v.Uint64()
		if err != nil {
			return zero, err
		}
		got = n
	case float64:
		f, err := v.Float64()
		if err != nil {
			return zero, err
		}
		got = f
	case string:
		s, err := v.Text()
		if err != nil {
			return zero, err
		}
		got = s
	case Handle:
		h, err := v.Object()
		if err != nil {
			return zero, err
		}
		got = h
	}
	return got.(T), nil
}
