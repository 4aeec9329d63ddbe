// Package gobject bridges a reference-counted native object system
// into Go.
//
// The native side of the bridge is a [Library]: an object system
// whose objects are identified by opaque [Handle]s, reference
// counted, and able to emit named signals and expose typed
// properties. The Go side is an [Object]: a proxy bound one-to-one
// to a live handle.
//
// The two sides have incompatible lifetime models. A native object
// dies when its reference count reaches zero; a Go proxy dies when
// the garbage collector finds it unreachable. The [Bridge] keeps the
// two in agreement using the library's toggle-reference facility:
// while anything on the native side still holds a reference to an
// object beyond the binding's own, its proxy is pinned in a strong
// reference set so the same proxy instance can be handed back later;
// when the binding's reference becomes the last one, the pin is
// released and the proxy reverts to ordinary garbage collection.
//
// Proxies are constructed with [Bridge.Construct] and torn down with
// [Object.Invalidate]. Teardown is explicit: the bridge does not
// rely on finalizers, which run at the collector's convenience or
// not at all.
//
// Values crossing the boundary (property values, signal arguments)
// are represented as tagged [Value]s over the closed set of [Kind]s
// the native value container supports.
package gobject
