package observe

import (
	"sync"

	"github.com/vidyasagar/journey/internal/history"
)

// Change is the event handed to observers. Stop halts delivery to the
// observers that come after the current one.
type Change struct {
	history.Event
	stopped bool
}

// Stop prevents later observers in the same pass from seeing this change.
func (c *Change) Stop() {
	c.stopped = true
}

// Stopped reports whether an observer called Stop.
func (c *Change) Stopped() bool {
	return c.stopped
}

// Listener is called with entering=true for the path being navigated to and
// entering=false for the path being left.
type Listener func(c *Change, entering bool)

type observer struct {
	pattern  Pattern
	listener Listener
}

// Dispatcher routes reconciler events to observers by path pattern.
type Dispatcher struct {
	mu        sync.RWMutex
	observers []observer
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Observe registers l for paths matching p. Observers run in registration
// order.
func (d *Dispatcher) Observe(p Pattern, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.observers = append(d.observers, observer{pattern: p, listener: l})
}

// Len returns the number of registered observers.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

// Attach subscribes d to every event of r and returns the unsubscribe func.
func (d *Dispatcher) Attach(r *history.Reconciler) func() {
	return r.Subscribe(func(ev history.Event) {
		d.Dispatch(ev)
	})
}

// Dispatch delivers ev. Observers of the previous path are told it is being
// left while observers of the new path are collected; the collected ones are
// then called in order until one stops the change.
func (d *Dispatcher) Dispatch(ev history.Event) *Change {
	d.mu.RLock()
	observers := append([]observer(nil), d.observers...)
	d.mu.RUnlock()

	c := &Change{Event: ev}

	if ev.Previous == "" {
		for _, o := range observers {
			if o.pattern.Match(ev.Path) {
				o.listener(c, true)
				if c.stopped {
					break
				}
			}
		}
		return c
	}

	var entering []Listener
	for _, o := range observers {
		if o.pattern.Match(ev.Path) {
			entering = append(entering, o.listener)
		} else if !c.stopped && o.pattern.Match(ev.Previous) {
			o.listener(c, false)
		}
	}

	c.stopped = false
	for _, l := range entering {
		l(c, true)
		if c.stopped {
			break
		}
	}
	return c
}
