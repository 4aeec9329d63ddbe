package gobject_test

import (
	"testing"

	"github.com/danderson/gobject"
	"github.com/danderson/gobject/objtest"
)

func newTestBridge(t *testing.T) (*objtest.Library, *gobject.Bridge) {
	t.Helper()
	lib := objtest.New()
	bridge := gobject.New(lib, nil)
	t.Cleanup(func() {
		if err := bridge.Close(); err != nil {
			t.Errorf("closing bridge: %v", err)
		}
	})
	return lib, bridge
}

// construct fails the test on construction errors.
func construct(t *testing.T, b *gobject.Bridge, h gobject.Handle, needsRef, owns bool) *gobject.Object {
	t.Helper()
	o, err := b.Construct(h, needsRef, owns)
	if err != nil {
		t.Fatalf("Construct(%v, %v, %v): %v", h, needsRef, owns, err)
	}
	return o
}
