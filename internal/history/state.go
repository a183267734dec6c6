package history

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Session tags the process run that created a state. The empty tag marks an
// orphan that has not been adopted yet.
type Session string

// NewSession returns a fresh tag for the running process.
func NewSession() Session {
	return Session(uuid.NewString())
}

// State is one point in the navigation chain.
type State struct {
	Time    int64          // creation timestamp in ms, the chain's order key
	Title   string         // display label for this position
	Session Session        // run that created (or adopted) this state
	Fields  map[string]any // application payload, opaque here
}

// Orphan reports whether s was not created or adopted by session.
func (s State) Orphan(session Session) bool {
	return s.Session == "" || s.Session != session
}

// Clone returns a copy of s whose Fields can be mutated independently.
func (s State) Clone() State {
	if s.Fields != nil {
		s.Fields = maps.Clone(s.Fields)
	}
	return s
}

// Clock hands out strictly increasing millisecond timestamps.
type Clock struct {
	now  func() time.Time
	last int64
}

// NewClock creates a clock reading from now (time.Now when nil).
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Next returns the next timestamp, bumping by one when the wall clock has not
// moved past the previous value.
func (c *Clock) Next() int64 {
	t := c.now().UnixMilli()
	if t <= c.last {
		t = c.last + 1
	}
	c.last = t
	return t
}

// Observe makes sure later calls to Next return values greater than t.
func (c *Clock) Observe(t int64) {
	if t > c.last {
		c.last = t
	}
}

// Factory creates states for one session.
type Factory struct {
	Session Session
	Clock   *Clock
	Title   func() string // current page title, used when none is given
}

// Create fills in Time and Title when missing and stamps the running session.
// The session is overwritten even on an otherwise complete state.
func (f *Factory) Create(partial State) State {
	s := partial.Clone()
	if s.Time == 0 {
		s.Time = f.Clock.Next()
	} else {
		f.Clock.Observe(s.Time)
	}
	if s.Title == "" && f.Title != nil {
		s.Title = f.Title()
	}
	f.Adopt(&s)
	return s
}

// Adopt stamps s with the running session and leaves everything else alone.
func (f *Factory) Adopt(s *State) {
	s.Session = f.Session
}
