package history

import (
	"errors"
	"strings"
	"sync"
	"time"
)

type write struct {
	state State
	title string
	path  string
	mode  WriteMode
}

// fakeHost records writes and lets tests move the location by hand.
type fakeHost struct {
	mu     sync.Mutex
	loc    Location
	title  string
	writes []write
	moves  []int
	fail   error
}

func newFakeHost(path string) *fakeHost {
	h := &fakeHost{title: "Untitled"}
	h.setPath(path)
	return h
}

func (h *fakeHost) setPath(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if i := strings.Index(path, "#"); i >= 0 {
		h.loc = Location{Path: path[:i], Fragment: path[i:]}
		if h.loc.Path == "" {
			h.loc.Path = "/"
		}
		return
	}
	h.loc = Location{Path: path}
}

func (h *fakeHost) Location() Location {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.loc
}

func (h *fakeHost) Title() string {
	return h.title
}

func (h *fakeHost) Write(s State, title, path string, mode WriteMode) error {
	if h.fail != nil {
		return h.fail
	}
	h.mu.Lock()
	h.writes = append(h.writes, write{state: s.Clone(), title: title, path: path, mode: mode})
	h.mu.Unlock()
	h.setPath(path)
	return nil
}

func (h *fakeHost) Go(delta int) error {
	if h.fail != nil {
		return h.fail
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.moves = append(h.moves, delta)
	return nil
}

func (h *fakeHost) lastWrite() write {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.writes[len(h.writes)-1]
}

var errHostDown = errors.New("host down")

// fixedNow pins the wall clock so the reconciler's bump logic decides every
// timestamp: 1, 2, 3, ...
func fixedNow() time.Time {
	return time.UnixMilli(1)
}
