package gobject

import (
	"fmt"

	"github.com/creachadair/mds/value"
)

// A Match is a filter that selects signal emissions for a [Watcher].
type Match struct {
	signal string
	detail value.Maybe[string]
}

// MatchSignal returns a match that selects all emissions of the
// named signal, regardless of detail.
func MatchSignal(name string) *Match {
	return &Match{signal: name}
}

// Detail restricts the match to emissions carrying the given detail.
// It returns m to allow chaining.
func (m *Match) Detail(d string) *Match {
	m.detail = value.Just(d)
	return m
}

// Signal returns the signal name the match selects.
func (m *Match) Signal() string { return m.signal }

func (m *Match) String() string {
	if d, ok := m.detail.GetOK(); ok {
		return fmt.Sprintf("%s::%s", m.signal, d)
	}
	return m.signal
}

func (m *Match) matches(sig *Signal) bool {
	if sig.Name != m.signal {
		return false
	}
	if d, ok := m.detail.GetOK(); ok && d != sig.Detail {
		return false
	}
	return true
}
