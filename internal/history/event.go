package history

import (
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned by Emit and ParseEventType for names outside
// the event set.
var ErrUnknownEvent = errors.New("unknown path event")

// EventType identifies what moved the current position.
type EventType int

const (
	EventSet     EventType = iota // current entry replaced in place
	EventPush                     // new entry appended
	EventBack                     // host moved to an earlier entry
	EventForward                  // host moved to a later entry
)

var eventNames = [...]string{
	EventSet:     "set",
	EventPush:    "push",
	EventBack:    "back",
	EventForward: "forward",
}

func (t EventType) String() string {
	if t < 0 || int(t) >= len(eventNames) {
		return fmt.Sprintf("EventType(%d)", int(t))
	}
	return eventNames[t]
}

// ParseEventType maps an event name to its type.
func ParseEventType(name string) (EventType, error) {
	for i, n := range eventNames {
		if n == name {
			return EventType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// Event is delivered to listeners after the chain changed.
type Event struct {
	Type     EventType
	Path     string // current path
	Previous string // path before the change
	State    State  // snapshot of the current state
	Index    int
	Orphan   bool // the state was foreign or unadopted when reported
}

// Direction is the movement inferred by Reconcile.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionBack
	DirectionForward
)

func (d Direction) String() string {
	switch d {
	case DirectionBack:
		return "back"
	case DirectionForward:
		return "forward"
	default:
		return "none"
	}
}

// EventType returns the event reported for d.
func (d Direction) EventType() EventType {
	if d == DirectionForward {
		return EventForward
	}
	return EventBack
}
