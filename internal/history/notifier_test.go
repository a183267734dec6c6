package history

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifierDeliversInOrder(t *testing.T) {
	n := NewNotifier(nil)
	defer n.Close()

	var mu sync.Mutex
	var got []string
	n.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, "first:"+ev.Path)
		mu.Unlock()
	})
	n.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, "second:"+ev.Path)
		mu.Unlock()
	})

	n.Enqueue(Event{Type: EventPush, Path: "/a"})
	n.Enqueue(Event{Type: EventPush, Path: "/b"})
	n.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first:/a", "second:/a", "first:/b", "second:/b"}, got)
}

func TestNotifierOnFiltersByType(t *testing.T) {
	n := NewNotifier(nil)
	defer n.Close()

	var mu sync.Mutex
	var got []EventType
	n.On(EventBack, func(ev Event) {
		mu.Lock()
		got = append(got, ev.Type)
		mu.Unlock()
	})

	n.Enqueue(Event{Type: EventPush})
	n.Enqueue(Event{Type: EventBack})
	n.Enqueue(Event{Type: EventForward})
	n.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []EventType{EventBack}, got)
}

func TestNotifierUnsubscribe(t *testing.T) {
	n := NewNotifier(nil)
	defer n.Close()

	var mu sync.Mutex
	count := 0
	off := n.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	n.Enqueue(Event{})
	n.Flush()
	off()
	n.Enqueue(Event{})
	n.Flush()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, count)
}

func TestNotifierRecoversFromPanics(t *testing.T) {
	n := NewNotifier(nil)
	defer n.Close()

	called := make(chan struct{}, 1)
	n.Subscribe(func(Event) { panic("boom") })
	n.Subscribe(func(Event) { called <- struct{}{} })

	n.Enqueue(Event{Type: EventSet})
	n.Flush()

	select {
	case <-called:
	default:
		t.Fatal("second listener was skipped")
	}
}

func TestNotifierCloseDrainsPending(t *testing.T) {
	n := NewNotifier(nil)

	var mu sync.Mutex
	count := 0
	n.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	for i := 0; i < 10; i++ {
		n.Enqueue(Event{})
	}
	n.Close()
	n.Close()

	mu.Lock()
	assert.Equal(t, 10, count)
	mu.Unlock()

	// Dropped after close; Flush must not block.
	n.Enqueue(Event{})
	n.Flush()
}

func TestParseEventType(t *testing.T) {
	for _, name := range []string{"set", "push", "back", "forward"} {
		et, err := ParseEventType(name)
		require.NoError(t, err)
		assert.Equal(t, name, et.String())
	}

	_, err := ParseEventType("pop")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}
