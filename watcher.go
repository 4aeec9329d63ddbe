package gobject

import (
	"sync"

	"github.com/creachadair/mds/queue"
)

const maxWatcherQueue = 20

// Watch returns a Watcher that delivers signal emissions from o over
// a channel.
//
// A newly created Watcher delivers no emissions. The caller must use
// [Watcher.Match] to specify which signals the Watcher should
// provide.
func (o *Object) Watch() *Watcher {
	w := &Watcher{
		obj:         o,
		signals:     make(chan *Notification),
		wakePump:    make(chan struct{}, 1),
		stopPump:    make(chan struct{}),
		pumpStopped: make(chan struct{}),
	}
	go w.pump()
	return w
}

// A Watcher delivers signal emissions that match its filters, each
// on its own internal connection so that channel consumption never
// blocks native dispatch.
type Watcher struct {
	obj      *Object
	signals  chan *Notification
	wakePump chan struct{}

	stopPump    chan struct{}
	pumpStopped chan struct{}

	mu        sync.Mutex
	queue     queue.Queue[*Notification]
	listeners []*watchListener
}

// Notification is one signal emission delivered by a Watcher.
type Notification struct {
	// Object is the proxy that emitted the signal.
	Object *Object
	// Name is the signal's name.
	Name string
	// Detail is the emission detail, if any.
	Detail string
	// Args is the signal payload.
	Args []Value
	// Overflow reports that the watcher discarded some emissions
	// that followed this one, due to the caller not draining the
	// delivery channel fast enough.
	Overflow bool
}

// Chan returns the channel on which notifications are delivered.
//
// The caller must drain this channel promptly, to avoid overflowing
// the Watcher's receive queue and losing emissions of interest.
// Emissions lost to an overflow are indicated by the Overflow field
// of the [Notification] that immediately precedes the discarded
// one(s).
func (w *Watcher) Chan() <-chan *Notification {
	return w.signals
}

// Match requests delivery of emissions that match m.
//
// Matches are additive: an emission is delivered once for every
// match specification it matches.
//
// If the match is added successfully, the returned remove function
// may be used to remove the match without affecting other matches.
// Use of remove is optional, and may be ignored if the set of
// matches doesn't need to change for the lifetime of the Watcher.
func (w *Watcher) Match(m *Match) (remove func(), err error) {
	wl := &watchListener{w: w, match: m}
	if err := w.obj.Connect(m.Signal(), wl); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, wl)
	return func() {
		w.obj.Disconnect(m.Signal(), wl)
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, cur := range w.listeners {
			if cur == wl {
				w.listeners = append(w.listeners[:i], w.listeners[i+1:]...)
				return
			}
		}
	}, nil
}

// Close shuts down the Watcher and disconnects its matches. Close is
// idempotent.
func (w *Watcher) Close() {
	select {
	case <-w.pumpStopped:
		return
	default:
	}

	close(w.stopPump)
	close(w.wakePump)
	<-w.pumpStopped

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, wl := range w.listeners {
		w.obj.Disconnect(wl.match.Signal(), wl)
	}
	w.listeners = nil
	w.queue.Clear()
}

// A watchListener is the internal Listener a Watcher connects for
// one match specification.
type watchListener struct {
	w     *Watcher
	match *Match
}

func (wl *watchListener) HandleSignal(sig *Signal) bool {
	wl.w.deliver(wl.match, sig)
	// Watching never consumes an emission.
	return false
}

func (w *Watcher) deliver(m *Match, sig *Signal) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.pumpStopped:
		// raced with a Close, this watcher is done.
		return
	default:
	}

	if !m.matches(sig) {
		return
	}

	w.enqueueLocked(Notification{
		Object: w.obj,
		Name:   sig.Name,
		Detail: sig.Detail,
		Args:   sig.Args,
	})
}

func (w *Watcher) enqueueLocked(n Notification) {
	if w.queue.Len() >= maxWatcherQueue {
		last, _ := w.queue.Peek(-1)
		last.Overflow = true
		return
	}

	w.queue.Add(&n)
	if w.queue.Len() == 1 {
		select {
		case w.wakePump <- struct{}{}:
		default:
		}
	}
}

func (w *Watcher) pump() {
	defer close(w.pumpStopped)
	defer close(w.signals)
	for {
		sig := func() *Notification {
			w.mu.Lock()
			defer w.mu.Unlock()
			ret, _ := w.queue.Pop()
			return ret
		}()
		if sig == nil {
			select {
			case <-w.stopPump:
				return
			case <-w.wakePump:
				continue
			}
		}
		select {
		case w.signals <- sig:
		case <-w.stopPump:
			return
		}
	}
}
