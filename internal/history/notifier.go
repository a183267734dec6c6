package history

import (
	"sync"

	"go.uber.org/zap"
)

// Listener receives events on the notifier goroutine.
type Listener func(Event)

type subscription struct {
	id    uint64
	all   bool
	types EventType
	fn    Listener
}

// Notifier delivers events outside the call stack that produced them.
// Everything enqueued before the delivery goroutine wakes up goes out as one
// batch, in enqueue order, to listeners in registration order.
type Notifier struct {
	mu     sync.Mutex
	cond   *sync.Cond
	subs   []*subscription
	nextID uint64
	queue  []Event

	enqueued   uint64
	dispatched uint64

	wake   chan struct{}
	done   chan struct{}
	closed bool
	logger *zap.Logger
}

// NewNotifier starts a notifier. A nil logger discards output.
func NewNotifier(logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	n := &Notifier{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger,
	}
	n.cond = sync.NewCond(&n.mu)
	go n.loop()
	return n
}

// On registers fn for one event type. The returned func unregisters it.
func (n *Notifier) On(t EventType, fn Listener) func() {
	return n.add(&subscription{types: t, fn: fn})
}

// Subscribe registers fn for every event type.
func (n *Notifier) Subscribe(fn Listener) func() {
	return n.add(&subscription{all: true, fn: fn})
}

func (n *Notifier) add(s *subscription) func() {
	n.mu.Lock()
	n.nextID++
	s.id = n.nextID
	n.subs = append(n.subs, s)
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		for i, cur := range n.subs {
			if cur.id == s.id {
				n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
				return
			}
		}
	}
}

// Enqueue schedules ev for delivery. Events enqueued after Close are dropped.
func (n *Notifier) Enqueue(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.queue = append(n.queue, ev)
	n.enqueued++
	select {
	case n.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every event enqueued so far has been delivered.
// Calling it from a listener deadlocks.
func (n *Notifier) Flush() {
	n.mu.Lock()
	defer n.mu.Unlock()
	target := n.enqueued
	for n.dispatched < target && !n.stopped() {
		n.cond.Wait()
	}
}

// Close delivers what is pending and stops the delivery goroutine.
func (n *Notifier) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		<-n.done
		return
	}
	n.closed = true
	close(n.wake)
	n.mu.Unlock()
	<-n.done
}

func (n *Notifier) stopped() bool {
	select {
	case <-n.done:
		return true
	default:
		return false
	}
}

func (n *Notifier) loop() {
	defer func() {
		close(n.done)
		n.mu.Lock()
		n.cond.Broadcast()
		n.mu.Unlock()
	}()

	for range n.wake {
		n.drain()
	}
	// wake is closed; pick up anything queued right before Close.
	n.drain()
}

func (n *Notifier) drain() {
	n.mu.Lock()
	batch := n.queue
	n.queue = nil
	subs := append([]*subscription(nil), n.subs...)
	n.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	for _, ev := range batch {
		for _, s := range subs {
			if s.all || s.types == ev.Type {
				n.call(s, ev)
			}
		}
	}

	n.mu.Lock()
	n.dispatched += uint64(len(batch))
	n.cond.Broadcast()
	n.mu.Unlock()
}

func (n *Notifier) call(s *subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("listener panicked",
				zap.Stringer("event", ev.Type),
				zap.String("path", ev.Path),
				zap.Any("panic", r),
			)
		}
	}()
	s.fn(ev)
}
