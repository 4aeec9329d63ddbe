package gobject

// Hooks for tests in package gobject_test.

func BridgeIsStrong(b *Bridge, o *Object) bool { return b.isStrong(o) }

func ConnCount(o *Object) int { return o.connected() }
