// Package objtest provides an in-memory native object system for
// tests and demos.
//
// The Library implements [gobject.Library] with real reference
// counting, toggle notification, signal dispatch, and property
// storage, so bridge behavior can be exercised without a native
// library. Toggle semantics follow the usual contract: a
// notification fires when an object with a registered toggle
// reference transitions between exactly one reference and more than
// one.
package objtest

import (
	"fmt"
	"sync"

	"github.com/danderson/gobject"
)

// New returns an empty Library.
func New() *Library {
	return &Library{
		next:    0x1000,
		objects: map[gobject.Handle]*object{},
	}
}

// Library is an in-memory implementation of [gobject.Library]. All
// methods are safe for concurrent use, and callbacks are always
// invoked without library locks held.
type Library struct {
	mu      sync.Mutex
	next    gobject.Handle
	nextID  gobject.ConnID
	objects map[gobject.Handle]*object
}

type object struct {
	refs    int
	specs   map[string]gobject.PropertySpec
	props   map[string]gobject.Value
	toggles map[gobject.Token]gobject.ToggleFunc
	// lastRef is the toggle state most recently reported to the
	// registered toggle funcs.
	lastRef bool
	conns   map[gobject.ConnID]signalConn
}

type signalConn struct {
	name string
	fn   gobject.SignalFunc
}

// NewObject creates a native object with a reference count of one,
// declaring the given properties, and returns its handle. Property
// values start at the zero value of their kind.
func (l *Library) NewObject(specs ...gobject.PropertySpec) gobject.Handle {
	o := &object{
		refs:    1,
		specs:   map[string]gobject.PropertySpec{},
		props:   map[string]gobject.Value{},
		toggles: map[gobject.Token]gobject.ToggleFunc{},
		conns:   map[gobject.ConnID]signalConn{},
	}
	for _, s := range specs {
		o.specs[s.Name] = s
		o.props[s.Name] = zeroValue(s.Kind)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	h := l.next
	l.next += 0x10
	l.objects[h] = o
	return h
}

// RefCount returns the current reference count of h, or zero if h
// does not name a live object.
func (l *Library) RefCount(h gobject.Handle) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.objects[h]
	if !ok {
		return 0
	}
	return o.refs
}

// Alive reports whether h names a live object.
func (l *Library) Alive(h gobject.Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.objects[h]
	return ok
}

// NumObjects returns the number of live objects.
func (l *Library) NumObjects() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.objects)
}

// Emit emits the named signal on h with the given detail and
// arguments, dispatching to every connection for that signal name.
// It returns the number of connections that reported the signal
// handled.
func (l *Library) Emit(h gobject.Handle, name, detail string, args ...gobject.Value) (int, error) {
	l.mu.Lock()
	o, ok := l.objects[h]
	if !ok {
		l.mu.Unlock()
		return 0, gobject.InvalidHandleError{Handle: h}
	}
	var fns []gobject.SignalFunc
	for _, c := range o.conns {
		if c.name == name {
			fns = append(fns, c.fn)
		}
	}
	l.mu.Unlock()

	// Dispatch outside the library lock: handlers may connect,
	// disconnect, or drop references.
	sig := &gobject.Signal{Sender: h, Name: name, Detail: detail, Args: args}
	handled := 0
	for _, fn := range fns {
		if fn(sig) {
			handled++
		}
	}
	return handled, nil
}

// TakeRef implements [gobject.Library].
func (l *Library) TakeRef(h gobject.Handle) error {
	l.mu.Lock()
	o, ok := l.objects[h]
	if !ok {
		l.mu.Unlock()
		return gobject.InvalidHandleError{Handle: h}
	}
	o.refs++
	notify := l.toggleTransition(h, o)
	l.mu.Unlock()

	run(notify)
	return nil
}

// DropRef implements [gobject.Library].
func (l *Library) DropRef(h gobject.Handle) error {
	l.mu.Lock()
	o, ok := l.objects[h]
	if !ok {
		l.mu.Unlock()
		return gobject.InvalidHandleError{Handle: h}
	}
	o.refs--
	var notify []func()
	if o.refs <= 0 {
		delete(l.objects, h)
	} else {
		notify = l.toggleTransition(h, o)
	}
	l.mu.Unlock()

	run(notify)
	return nil
}

// AddToggleNotify implements [gobject.Library]. Registration takes a
// toggle reference on the object and does not itself fire a
// notification.
func (l *Library) AddToggleNotify(h gobject.Handle, tok gobject.Token, fn gobject.ToggleFunc) error {
	if fn == nil {
		return fmt.Errorf("nil ToggleFunc for %s", h)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.objects[h]
	if !ok {
		return gobject.InvalidHandleError{Handle: h}
	}
	if _, ok := o.toggles[tok]; ok {
		return fmt.Errorf("toggle notification for %s already registered with token %d", h, tok)
	}
	o.refs++
	o.toggles[tok] = fn
	o.lastRef = o.refs == 1
	return nil
}

// RemoveToggleNotify implements [gobject.Library]. It drops the
// toggle reference, destroying the object if that was the last
// reference.
func (l *Library) RemoveToggleNotify(h gobject.Handle, tok gobject.Token) error {
	l.mu.Lock()
	o, ok := l.objects[h]
	if !ok {
		l.mu.Unlock()
		return gobject.InvalidHandleError{Handle: h}
	}
	if _, ok := o.toggles[tok]; !ok {
		l.mu.Unlock()
		return fmt.Errorf("no toggle notification on %s with token %d", h, tok)
	}
	delete(o.toggles, tok)
	o.refs--
	var notify []func()
	if o.refs <= 0 {
		delete(l.objects, h)
	} else {
		notify = l.toggleTransition(h, o)
	}
	l.mu.Unlock()

	run(notify)
	return nil
}

// ConnectSignal implements [gobject.Library].
func (l *Library) ConnectSignal(h gobject.Handle, name string, fn gobject.SignalFunc) (gobject.ConnID, error) {
	if name == "" {
		return 0, fmt.Errorf("empty signal name on %s", h)
	}
	if fn == nil {
		return 0, fmt.Errorf("nil SignalFunc for signal %q on %s", name, h)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.objects[h]
	if !ok {
		return 0, gobject.InvalidHandleError{Handle: h}
	}
	l.nextID++
	o.conns[l.nextID] = signalConn{name: name, fn: fn}
	return l.nextID, nil
}

// DisconnectSignal implements [gobject.Library].
func (l *Library) DisconnectSignal(h gobject.Handle, id gobject.ConnID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.objects[h]
	if !ok {
		return gobject.InvalidHandleError{Handle: h}
	}
	if _, ok := o.conns[id]; !ok {
		return fmt.Errorf("no signal connection %d on %s", id, h)
	}
	delete(o.conns, id)
	return nil
}

// FindProperty implements [gobject.Library].
func (l *Library) FindProperty(h gobject.Handle, name string) (gobject.PropertySpec, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.objects[h]
	if !ok {
		return gobject.PropertySpec{}, gobject.InvalidHandleError{Handle: h}
	}
	spec, ok := o.specs[name]
	if !ok {
		return gobject.PropertySpec{}, gobject.UnknownPropertyError{Name: name}
	}
	return spec, nil
}

// GetProperty implements [gobject.Library].
func (l *Library) GetProperty(h gobject.Handle, name string) (gobject.Value, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.objects[h]
	if !ok {
		return gobject.Value{}, gobject.InvalidHandleError{Handle: h}
	}
	v, ok := o.props[name]
	if !ok {
		return gobject.Value{}, gobject.UnknownPropertyError{Name: name}
	}
	return v, nil
}

// SetProperty implements [gobject.Library].
func (l *Library) SetProperty(h gobject.Handle, name string, v gobject.Value) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.objects[h]
	if !ok {
		return gobject.InvalidHandleError{Handle: h}
	}
	spec, ok := o.specs[name]
	if !ok {
		return gobject.UnknownPropertyError{Name: name}
	}
	if !spec.Writable {
		return fmt.Errorf("property %q on %s is not writable", name, h)
	}
	val, err := gobject.NewValue(spec.Kind, v)
	if err != nil {
		return err
	}
	o.props[name] = val
	return nil
}

// toggleTransition checks whether o's reference count crossed the
// toggle boundary, and if so returns the notifications to fire once
// the library lock is released.
func (l *Library) toggleTransition(h gobject.Handle, o *object) []func() {
	if len(o.toggles) == 0 {
		return nil
	}
	isLast := o.refs == 1
	if isLast == o.lastRef {
		return nil
	}
	o.lastRef = isLast
	var notify []func()
	for tok, fn := range o.toggles {
		notify = append(notify, func() { fn(tok, h, isLast) })
	}
	return notify
}

func run(fns []func()) {
	for _, fn := range fns {
		fn()
	}
}

func zeroValue(k gobject.Kind) gobject.Value {
	switch k {
	case gobject.KindBool:
		return gobject.BoolValue(false)
	case gobject.KindInt:
		return gobject.IntValue(0)
	case gobject.KindUint:
		return gobject.UintValue(0)
	case gobject.KindInt64:
		return gobject.Int64Value(0)
	case gobject.KindUint64:
		return gobject.Uint64Value(0)
	case gobject.KindFloat64:
		return gobject.Float64Value(0)
	case gobject.KindString:
		return gobject.StringValue("")
	case gobject.KindObject:
		return gobject.ObjectValue(gobject.NoHandle)
	}
	return gobject.Value{}
}
