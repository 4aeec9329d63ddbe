package gobject

import "fmt"

// Handle is the address of an object on the native library's
// heap. Handles are opaque to this package: they are allocated and
// resolved by the native library, and a handle is only meaningful
// while the native object it names is alive.
type Handle uintptr

// NoHandle is the zero Handle. It never names a live native object.
const NoHandle Handle = 0

func (h Handle) String() string {
	return fmt.Sprintf("0x%x", uintptr(h))
}

// Token is the stable identity of one [Object] proxy. The bridge
// hands the token to the native library when it registers for
// lifetime notifications, and the library hands it back verbatim so
// that notifications can be correlated with a proxy without the
// native side ever holding a Go pointer.
type Token uint64

// ConnID identifies one signal connection on a native object, as
// allocated by the native library's connect entry point.
type ConnID uint64
