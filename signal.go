package gobject

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// A Listener receives signal emissions from a native object.
// HandleSignal reports whether the listener handled the signal; the
// native library may stop dispatch once a signal is handled.
//
// Listener values are used as connection identities: connecting the
// same value to the same signal twice is an error, and disconnection
// is by value. The dynamic type of a Listener must therefore be
// comparable (a pointer type is the usual choice).
type Listener interface {
	HandleSignal(sig *Signal) bool
}

// ListenerFunc adapts a function to the [Listener] interface. Each
// call to ListenerFunc allocates a distinct identity, so the
// returned value must be retained for later disconnection.
func ListenerFunc(fn func(sig *Signal) bool) Listener {
	return &funcListener{fn: fn}
}

type funcListener struct {
	fn func(sig *Signal) bool
}

func (l *funcListener) HandleSignal(sig *Signal) bool { return l.fn(sig) }

type connKey struct {
	Signal   string
	Listener Listener
}

// A connection adapts one Listener to one native signal connection.
// It guarantees that the native connection is disconnected at most
// once, no matter how many paths request it.
type connection struct {
	obj    *Object
	signal string

	mu        sync.Mutex
	id        ConnID
	connected bool
}

func (c *connection) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return nil
	}
	c.connected = false
	return c.obj.bridge.lib.DisconnectSignal(c.obj.handle, c.id)
}

// Connect connects l to the named signal on the object.
//
// A listener may be connected to any number of distinct signals, but
// only once per signal: a second connection for the same (signal,
// listener) pair fails with a [DuplicateConnectionError] so that the
// first connection cannot be silently orphaned.
//
// If l's HandleSignal panics during dispatch, the panic is logged
// and reported to the native library as not-handled; it never
// unwinds into the native caller.
func (o *Object) Connect(signal string, l Listener) error {
	if signal == "" {
		return errors.New("empty signal name")
	}
	if l == nil {
		return errors.New("nil Listener")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.invalid {
		return ErrInvalidated
	}
	key := connKey{signal, l}
	if _, ok := o.conns[key]; ok {
		return DuplicateConnectionError{Signal: signal}
	}

	c := &connection{obj: o, signal: signal}
	id, err := o.bridge.lib.ConnectSignal(o.handle, signal, o.adapt(signal, l))
	if err != nil {
		return err
	}
	c.id = id
	c.connected = true
	o.conns[key] = c
	return nil
}

// Disconnect removes l's connection to the named signal. Listener
// identity is what is matched: l must be the same value that was
// passed to [Object.Connect]. Disconnecting a listener that is not
// connected is a no-op.
func (o *Object) Disconnect(signal string, l Listener) error {
	o.mu.Lock()
	key := connKey{signal, l}
	c, ok := o.conns[key]
	if ok {
		delete(o.conns, key)
	}
	o.mu.Unlock()
	if !ok {
		return nil
	}
	return c.close()
}

// connected reports the number of live signal connections on the
// object.
func (o *Object) connected() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.conns)
}

// adapt wraps l as the [SignalFunc] handed to the native library,
// adding the panic barrier at the native call boundary.
func (o *Object) adapt(signal string, l Listener) SignalFunc {
	return func(sig *Signal) (handled bool) {
		defer func() {
			if p := recover(); p != nil {
				o.bridge.log.Warn("listener panicked",
					zap.Stringer("handle", o.handle),
					zap.String("signal", signal),
					zap.Any("panic", p))
				handled = false
			}
		}()
		return l.HandleSignal(sig)
	}
}
