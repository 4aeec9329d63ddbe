package gobject_test

import (
	"errors"
	"testing"

	"github.com/creachadair/taskgroup"
	"github.com/danderson/gobject"
	"github.com/danderson/gobject/objtest"
)

func TestConstructIsCanonical(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()

	o1 := construct(t, bridge, h, true, true)
	o2 := construct(t, bridge, h, true, true)
	if o1 != o2 {
		t.Errorf("second Construct returned a different proxy: %p vs %p", o1, o2)
	}

	got, ok := bridge.Lookup(h)
	if !ok {
		t.Fatalf("Lookup(%v) found nothing", h)
	}
	if got != o1 {
		t.Errorf("Lookup returned a different proxy: %p, want %p", got, o1)
	}

	if _, ok := bridge.Lookup(h + 0x10); ok {
		t.Error("Lookup of unbound handle succeeded")
	}
}

func TestConstructInvalidHandle(t *testing.T) {
	_, bridge := newTestBridge(t)

	var invalid gobject.InvalidHandleError
	if _, err := bridge.Construct(gobject.NoHandle, true, true); !errors.As(err, &invalid) {
		t.Errorf("Construct(NoHandle) = %v, want InvalidHandleError", err)
	}
	if _, err := bridge.Construct(0xdead, false, true); !errors.As(err, &invalid) {
		t.Errorf("Construct of unknown handle = %v, want InvalidHandleError", err)
	}
	// A failed construction must not leave a half-bound proxy behind.
	if _, ok := bridge.Lookup(0xdead); ok {
		t.Error("failed construction left a proxy in the registry")
	}
}

// TestAdoptedRefLifecycle walks the full ownership story for a proxy
// that adopts a caller's reference: construction leaves the native
// refcount unchanged, the strong pin follows toggle notifications,
// and invalidation releases the adopted reference exactly once.
func TestAdoptedRefLifecycle(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()

	// A second native owner, so the binding's reference is not the
	// last one.
	if err := lib.TakeRef(h); err != nil {
		t.Fatal(err)
	}

	o := construct(t, bridge, h, false, true)
	// The toggle reference replaces the adopted reference, so the
	// count is unchanged.
	if got := lib.RefCount(h); got != 2 {
		t.Errorf("refcount after construct = %d, want 2", got)
	}
	if !gobject.BridgeIsStrong(bridge, o) {
		t.Error("proxy with external native owner is not strong")
	}

	// The external owner goes away: the binding now holds the last
	// reference, and the pin must be released.
	if err := lib.DropRef(h); err != nil {
		t.Fatal(err)
	}
	if got := lib.RefCount(h); got != 1 {
		t.Errorf("refcount after external drop = %d, want 1", got)
	}
	if gobject.BridgeIsStrong(bridge, o) {
		t.Error("proxy still strong after last-ref notification")
	}

	// An external owner reappears: the pin comes back.
	if err := lib.TakeRef(h); err != nil {
		t.Fatal(err)
	}
	if !gobject.BridgeIsStrong(bridge, o) {
		t.Error("proxy not strong after native side took a reference")
	}
	if err := lib.DropRef(h); err != nil {
		t.Fatal(err)
	}

	if err := o.Invalidate(); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
	if gobject.BridgeIsStrong(bridge, o) {
		t.Error("invalidated proxy still in strong set")
	}
	if _, ok := bridge.Lookup(h); ok {
		t.Error("invalidated proxy still in registry")
	}
	// The binding held the last reference, so releasing it destroys
	// the native object.
	if lib.Alive(h) {
		t.Error("native object still alive after invalidation")
	}
}

func TestOwnRefLifecycle(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()

	// needsRef: the caller keeps its own reference, the binding adds
	// one of its own (as the toggle reference).
	o := construct(t, bridge, h, true, true)
	if got := lib.RefCount(h); got != 2 {
		t.Errorf("refcount after construct = %d, want 2", got)
	}
	if !gobject.BridgeIsStrong(bridge, o) {
		t.Error("proxy is not strong while the caller's reference is live")
	}

	if err := o.Invalidate(); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
	if got := lib.RefCount(h); got != 1 {
		t.Errorf("refcount after invalidate = %d, want 1", got)
	}
	if !lib.Alive(h) {
		t.Error("native object died while the caller still holds a reference")
	}
}

func TestBorrowedProxy(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()

	// Non-owning, no ref: a pure borrow. No native state changes at
	// either end of the proxy's life.
	o := construct(t, bridge, h, false, false)
	if got := lib.RefCount(h); got != 1 {
		t.Errorf("refcount after borrow = %d, want 1", got)
	}
	if gobject.BridgeIsStrong(bridge, o) {
		t.Error("non-owning proxy in strong set")
	}
	if err := o.Invalidate(); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
	if got := lib.RefCount(h); got != 1 {
		t.Errorf("refcount after invalidate = %d, want 1", got)
	}
}

func TestNonOwningRef(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()

	o := construct(t, bridge, h, true, false)
	if got := lib.RefCount(h); got != 2 {
		t.Errorf("refcount after construct = %d, want 2", got)
	}
	if err := o.Invalidate(); err != nil {
		t.Errorf("Invalidate: %v", err)
	}
	if got := lib.RefCount(h); got != 1 {
		t.Errorf("refcount after invalidate = %d, want 1", got)
	}
}

func TestInvalidateIdempotent(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()
	o := construct(t, bridge, h, false, true)

	if err := o.Invalidate(); err != nil {
		t.Fatalf("first Invalidate: %v", err)
	}
	if err := o.Invalidate(); err != nil {
		t.Errorf("second Invalidate: %v", err)
	}
	if o.Valid() {
		t.Error("proxy still valid after Invalidate")
	}
}

func TestRebindAfterInvalidate(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()
	if err := lib.TakeRef(h); err != nil {
		t.Fatal(err)
	}

	o1 := construct(t, bridge, h, false, true)
	if err := o1.Invalidate(); err != nil {
		t.Fatal(err)
	}

	// The native object survived (external owner), so the handle can
	// be bound again, to a fresh proxy.
	o2 := construct(t, bridge, h, true, true)
	if o2 == o1 {
		t.Error("rebinding returned the invalidated proxy")
	}
	if !o2.Valid() {
		t.Error("fresh proxy is not valid")
	}
}

func TestBridgeClose(t *testing.T) {
	lib := objtest.New()
	bridge := gobject.New(lib, nil)

	h1 := lib.NewObject()
	h2 := lib.NewObject()
	o1 := construct(t, bridge, h1, false, true)
	construct(t, bridge, h2, false, true)

	if err := bridge.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if o1.Valid() {
		t.Error("proxy still valid after bridge Close")
	}
	if got := len(bridge.Live()); got != 0 {
		t.Errorf("%d live proxies after Close, want 0", got)
	}
	if got := lib.NumObjects(); got != 0 {
		t.Errorf("%d native objects after Close, want 0", got)
	}
	if _, err := bridge.Construct(lib.NewObject(), true, true); !errors.Is(err, gobject.ErrBridgeClosed) {
		t.Errorf("Construct after Close = %v, want ErrBridgeClosed", err)
	}
	if err := bridge.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

// TestConcurrentToggle drives independent toggle storms on many
// handles at once. Every handle must end weak (the last transition
// each worker causes is drop-to-last), with no lost or cross-wired
// registry entries.
func TestConcurrentToggle(t *testing.T) {
	lib, bridge := newTestBridge(t)

	const handles = 16
	const rounds = 500

	objs := make([]*gobject.Object, handles)
	for i := range objs {
		h := lib.NewObject()
		objs[i] = construct(t, bridge, h, false, true)
	}

	g := taskgroup.New(nil)
	for _, o := range objs {
		g.Go(func() error {
			for range rounds {
				if err := lib.TakeRef(o.Handle()); err != nil {
					return err
				}
				if err := lib.DropRef(o.Handle()); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("toggle worker: %v", err)
	}

	for i, o := range objs {
		if got := lib.RefCount(o.Handle()); got != 1 {
			t.Errorf("object %d: refcount %d after storm, want 1", i, got)
		}
		if gobject.BridgeIsStrong(bridge, o) {
			t.Errorf("object %d: strong after final last-ref notification", i)
		}
		got, ok := bridge.Lookup(o.Handle())
		if !ok || got != o {
			t.Errorf("object %d: registry entry lost or rebound", i)
		}
	}
}

func TestLive(t *testing.T) {
	lib, bridge := newTestBridge(t)

	var want []*gobject.Object
	for range 5 {
		want = append(want, construct(t, bridge, lib.NewObject(), false, true))
	}
	got := bridge.Live()
	if len(got) != len(want) {
		t.Fatalf("Live returned %d proxies, want %d", len(got), len(want))
	}
	for i := range got {
		// NewObject allocates ascending handles, and Live sorts by
		// handle.
		if got[i] != want[i] {
			t.Errorf("Live[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
