package gobject_test

import (
	"testing"
	"time"

	"github.com/danderson/gobject"
)

// drain reads notifications until none arrive for a short while.
func drain(t *testing.T, w *gobject.Watcher) []*gobject.Notification {
	t.Helper()
	var got []*gobject.Notification
	for {
		select {
		case n, ok := <-w.Chan():
			if !ok {
				return got
			}
			got = append(got, n)
		case <-time.After(100 * time.Millisecond):
			return got
		}
	}
}

func TestWatcher(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()
	o := construct(t, bridge, h, true, true)

	w := o.Watch()
	defer w.Close()

	if _, err := w.Match(gobject.MatchSignal("changed")); err != nil {
		t.Fatalf("Match: %v", err)
	}

	if _, err := lib.Emit(h, "changed", "volume", gobject.Float64Value(0.5)); err != nil {
		t.Fatal(err)
	}
	if _, err := lib.Emit(h, "removed", ""); err != nil {
		t.Fatal(err)
	}

	got := drain(t, w)
	if len(got) != 1 {
		t.Fatalf("received %d notifications, want 1", len(got))
	}
	n := got[0]
	if n.Object != o || n.Name != "changed" || n.Detail != "volume" {
		t.Errorf("notification = %+v, want changed::volume from %v", n, o)
	}
	if len(n.Args) != 1 {
		t.Errorf("notification carried %d args, want 1", len(n.Args))
	}
	if n.Overflow {
		t.Error("notification marked Overflow")
	}
}

func TestWatcherDetailMatch(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()
	o := construct(t, bridge, h, true, true)

	w := o.Watch()
	defer w.Close()

	if _, err := w.Match(gobject.MatchSignal("notify").Detail("volume")); err != nil {
		t.Fatalf("Match: %v", err)
	}

	for _, detail := range []string{"volume", "mute", "", "volume"} {
		if _, err := lib.Emit(h, "notify", detail); err != nil {
			t.Fatal(err)
		}
	}

	got := drain(t, w)
	if len(got) != 2 {
		t.Fatalf("received %d notifications, want 2", len(got))
	}
	for _, n := range got {
		if n.Detail != "volume" {
			t.Errorf("received detail %q, want %q", n.Detail, "volume")
		}
	}
}

func TestWatcherRemoveMatch(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()
	o := construct(t, bridge, h, true, true)

	w := o.Watch()
	defer w.Close()

	remove, err := w.Match(gobject.MatchSignal("changed"))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if _, err := lib.Emit(h, "changed", ""); err != nil {
		t.Fatal(err)
	}
	remove()
	if _, err := lib.Emit(h, "changed", ""); err != nil {
		t.Fatal(err)
	}

	if got := drain(t, w); len(got) != 1 {
		t.Errorf("received %d notifications, want 1", len(got))
	}
}

func TestWatcherOverflow(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()
	o := construct(t, bridge, h, true, true)

	w := o.Watch()
	defer w.Close()

	if _, err := w.Match(gobject.MatchSignal("changed")); err != nil {
		t.Fatalf("Match: %v", err)
	}

	// Flood without draining. The queue caps out and the excess is
	// discarded, flagged on the last queued notification.
	const emitted = 40
	for range emitted {
		if _, err := lib.Emit(h, "changed", ""); err != nil {
			t.Fatal(err)
		}
	}

	got := drain(t, w)
	if len(got) >= emitted {
		t.Fatalf("received %d notifications, expected overflow below %d", len(got), emitted)
	}
	sawOverflow := false
	for _, n := range got {
		sawOverflow = sawOverflow || n.Overflow
	}
	if !sawOverflow {
		t.Error("no notification carried the Overflow flag")
	}
}

func TestWatcherClose(t *testing.T) {
	lib, bridge := newTestBridge(t)
	h := lib.NewObject()
	o := construct(t, bridge, h, true, true)

	w := o.Watch()
	if _, err := w.Match(gobject.MatchSignal("changed")); err != nil {
		t.Fatalf("Match: %v", err)
	}
	if got := gobject.ConnCount(o); got != 1 {
		t.Errorf("connection count = %d, want 1", got)
	}

	w.Close()
	w.Close() // idempotent

	if _, ok := <-w.Chan(); ok {
		t.Error("watcher channel still open after Close")
	}
	if got := gobject.ConnCount(o); got != 0 {
		t.Errorf("connection count after Close = %d, want 0", got)
	}
	// Emissions after Close go nowhere, without error.
	if _, err := lib.Emit(h, "changed", ""); err != nil {
		t.Fatal(err)
	}
}
