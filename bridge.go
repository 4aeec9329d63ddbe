package gobject

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/creachadair/mds/mapset"
	"go.uber.org/zap"
)

// Options configure a [Bridge].
type Options struct {
	// Logger receives lifecycle debug logging (proxy construction,
	// toggle notifications, invalidation). If nil, logging is
	// disabled.
	Logger *zap.Logger
}

// New returns a Bridge that maintains proxies for objects owned by
// lib.
//
// The bridge's registries are process-wide shared state for all
// users of lib: callers should create one Bridge per native library
// instance, at startup, and retire it with [Bridge.Close].
func New(lib Library, opts *Options) *Bridge {
	if lib == nil {
		panic("gobject: New called with nil Library")
	}
	log := zap.NewNop()
	if opts != nil && opts.Logger != nil {
		log = opts.Logger
	}
	return &Bridge{
		lib:     lib,
		log:     log,
		objects: map[Handle]*Object{},
		tokens:  map[Token]*Object{},
		strong:  mapset.New[*Object](),
	}
}

// A Bridge maintains the liveness relationship between native,
// reference-counted objects and their Go proxies. It keeps exactly
// one canonical [Object] per live handle, and keeps a proxy
// reachable for as long as the native side reports outstanding
// interest in it, so that the same proxy can be handed back when the
// native library later surfaces the handle again.
type Bridge struct {
	lib Library
	log *zap.Logger

	mu      sync.Mutex
	closed  bool
	objects map[Handle]*Object
	tokens  map[Token]*Object
	// strong holds the proxies that must not be garbage collected
	// because the native object has owners other than this binding.
	// Membership tracks the library's toggle notifications: a proxy
	// is present iff the last notification for it reported that the
	// binding does not hold the last reference.
	strong    mapset.Set[*Object]
	lastToken Token
}

// Library returns the native library the bridge was created with.
func (b *Bridge) Library() Library { return b.lib }

// Construct returns the proxy for the native object named by h,
// creating it if the handle is not yet bound. If a proxy for h
// already exists it is returned as-is, releasing the surplus
// reference if the caller was handing one over.
//
// needsRef reports that the binding must take its own native
// reference; if false, the binding adopts a reference the caller
// already owns. ownsHandle reports that the binding carries final
// responsibility for releasing the native object: owning proxies
// register for toggle notification and participate in the strong
// reference set.
func (b *Bridge) Construct(h Handle, needsRef, ownsHandle bool) (*Object, error) {
	if h == NoHandle {
		return nil, InvalidHandleError{Handle: h}
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBridgeClosed
	}
	if o, ok := b.objects[h]; ok {
		b.mu.Unlock()
		if ownsHandle && !needsRef {
			// The caller handed over a reference the existing proxy
			// does not need.
			if err := b.lib.DropRef(h); err != nil {
				return nil, err
			}
		}
		return o, nil
	}
	b.lastToken++
	o := &Object{
		bridge:   b,
		handle:   h,
		token:    b.lastToken,
		owns:     ownsHandle,
		holdsRef: !ownsHandle && needsRef,
		conns:    map[connKey]*connection{},
	}
	b.objects[h] = o
	b.tokens[o.token] = o
	if ownsHandle {
		// Owning proxies start strong: until the library reports
		// otherwise, assume the native side still needs them.
		b.strong.Add(o)
	}
	b.mu.Unlock()

	if err := b.bind(o, needsRef); err != nil {
		b.forget(o)
		return nil, err
	}
	b.log.Debug("constructed proxy",
		zap.Stringer("handle", h),
		zap.Uint64("token", uint64(o.token)),
		zap.Bool("needsRef", needsRef),
		zap.Bool("owns", ownsHandle))
	return o, nil
}

// bind performs the native-side registration for a freshly
// constructed proxy. The proxy is already discoverable by its token,
// so toggle notifications arriving during registration correlate
// correctly.
func (b *Bridge) bind(o *Object, needsRef bool) error {
	if !o.owns {
		if needsRef {
			// Released again at invalidation.
			return b.lib.TakeRef(o.handle)
		}
		return nil
	}
	// The toggle reference becomes the binding's reference: take it
	// first, then release the surplus if the caller handed over a
	// reference it already owned.
	if err := b.lib.AddToggleNotify(o.handle, o.token, b.toggled); err != nil {
		return err
	}
	if !needsRef {
		return b.lib.DropRef(o.handle)
	}
	return nil
}

// Lookup returns the proxy bound to h, if any. It never constructs a
// proxy.
func (b *Bridge) Lookup(h Handle) (*Object, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[h]
	return o, ok
}

// Live returns the proxies currently bound to live handles, in
// handle order.
func (b *Bridge) Live() []*Object {
	b.mu.Lock()
	defer b.mu.Unlock()
	ret := make([]*Object, 0, len(b.objects))
	for _, o := range b.objects {
		ret = append(ret, o)
	}
	slices.SortFunc(ret, func(x, y *Object) int {
		return cmp.Compare(x.handle, y.handle)
	})
	return ret
}

// Close invalidates all live proxies and shuts down the bridge.
// Subsequent constructions fail with [ErrBridgeClosed]. Close is
// idempotent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	objs := make([]*Object, 0, len(b.objects))
	for _, o := range b.objects {
		objs = append(objs, o)
	}
	b.mu.Unlock()

	var errs []error
	for _, o := range objs {
		if err := o.Invalidate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// toggled is the bridge's lifetime-notification callback. The native
// library invokes it, possibly from arbitrary threads, whenever an
// owning proxy's native reference count toggles between "only the
// binding holds a reference" and "other owners exist".
func (b *Bridge) toggled(tok Token, h Handle, isLast bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.tokens[tok]
	if !ok {
		// The proxy was already torn down.
		return
	}
	if isLast {
		b.strong.Remove(o)
	} else {
		b.strong.Add(o)
	}
	b.log.Debug("toggle notification",
		zap.Stringer("handle", h),
		zap.Uint64("token", uint64(tok)),
		zap.Bool("isLast", isLast))
}

// forget removes o from the bridge's registries. It is safe to call
// for a proxy that has already been forgotten.
func (b *Bridge) forget(o *Object) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.objects[o.handle]; ok && cur == o {
		delete(b.objects, o.handle)
	}
	delete(b.tokens, o.token)
	b.strong.Remove(o)
}

// isStrong reports whether o is currently held in the strong
// reference set.
func (b *Bridge) isStrong(o *Object) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.strong.Has(o)
}
