package history

import (
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WriteMode tells the host whether to rewrite or add an entry.
type WriteMode int

const (
	Replace WriteMode = iota
	Append
)

func (m WriteMode) String() string {
	if m == Append {
		return "append"
	}
	return "replace"
}

// Location is the host's current position.
type Location struct {
	Path     string // pathname, e.g. "/docs"
	Fragment string // optional "#section"
}

// String returns the logical path: the pathname plus fragment, or just the
// fragment when the pathname is the root.
func (l Location) String() string {
	if l.Fragment == "" {
		return l.Path
	}
	if l.Path == "/" || l.Path == "" {
		return l.Fragment
	}
	return l.Path + l.Fragment
}

// Host is the navigation history the reconciler mirrors. Position-changed
// notifications are fed in through Reconcile by whoever owns the host.
type Host interface {
	Location() Location
	Title() string
	Write(s State, title, path string, mode WriteMode) error
	Go(delta int) error
}

// Options configures a Reconciler.
type Options struct {
	Session Session          // running tag; a fresh one when empty
	Now     func() time.Time // time source; time.Now when nil
	Initial State            // application fields for the first state
	Logger  *zap.Logger
}

// Result describes what Reconcile resolved a notification to.
type Result struct {
	State     State // snapshot, as reported to listeners
	Index     int
	Previous  int
	Direction Direction
	Orphan    bool // foreign or unadopted when resolved
	Inserted  bool // spliced into the chain rather than matched
}

// Reconciler owns the chain and keeps it aligned with the host.
type Reconciler struct {
	mu       sync.RWMutex
	host     Host
	chain    *Chain
	path     string
	origin   string
	factory  *Factory
	notifier *Notifier
	logger   *zap.Logger
}

// New creates the first state for the host's current location, writes it back
// in place and returns the reconciler.
func New(host Host, opts Options) (*Reconciler, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	session := opts.Session
	if session == "" {
		session = NewSession()
	}

	r := &Reconciler{
		host: host,
		factory: &Factory{
			Session: session,
			Clock:   NewClock(opts.Now),
			Title:   host.Title,
		},
		notifier: NewNotifier(logger),
		logger:   logger.With(zap.String("session", string(session))),
	}

	r.path = host.Location().String()
	r.origin = r.path
	first := r.factory.Create(opts.Initial)
	if err := host.Write(first, first.Title, r.path, Replace); err != nil {
		r.notifier.Close()
		return nil, fmt.Errorf("writing initial state: %w", err)
	}
	r.chain = NewChain(first)

	r.logger.Debug("reconciler started",
		zap.String("path", r.path),
		zap.Int64("time", first.Time),
	)
	return r, nil
}

// Get returns the current path.
func (r *Reconciler) Get() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.path
}

// Origin returns the path the reconciler started at.
func (r *Reconciler) Origin() string {
	return r.origin
}

// State returns a copy of the current state.
func (r *Reconciler) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chain.Current().Clone()
}

// Index returns the current chain position.
func (r *Reconciler) Index() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chain.Index()
}

// Len returns the chain length.
func (r *Reconciler) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chain.Len()
}

// Entries returns a copy of the chain.
func (r *Reconciler) Entries() []State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.chain.Entries()
}

// Session returns the running session tag.
func (r *Reconciler) Session() Session {
	return r.factory.Session
}

// Set replaces the current entry in place. The entry keeps its creation time.
func (r *Reconciler) Set(path string, partial State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path = r.resolve(path)
	partial.Time = r.chain.Current().Time
	s := r.factory.Create(partial)
	if err := r.host.Write(s, s.Title, path, Replace); err != nil {
		return fmt.Errorf("replacing history entry: %w", err)
	}

	previous := r.path
	r.path = path
	r.chain.Replace(s)
	r.emit(EventSet, previous, false)
	return nil
}

// Push appends a new entry after the current one, discarding any entries
// beyond it. Pushing the current path is a no-op and reports false.
func (r *Reconciler) Push(path string, partial State) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	path = r.resolve(path)
	if path == r.path {
		return false, nil
	}

	partial.Time = 0
	s := r.factory.Create(partial)
	if cur := r.chain.Current(); s.Time <= cur.Time {
		s.Time = cur.Time + 1
		r.factory.Clock.Observe(s.Time)
	}
	if err := r.host.Write(s, s.Title, path, Append); err != nil {
		return false, fmt.Errorf("appending history entry: %w", err)
	}

	previous := r.path
	r.path = path
	r.chain.Push(s)
	r.emit(EventPush, previous, false)
	return true, nil
}

// Position is a host position change as it was when the host moved. State is
// the payload the host handed back, nil when the location was changed without
// one.
type Position struct {
	State    *State
	Location Location
	Title    string
}

// Reconcile maps a host position-changed notification onto the chain, reading
// the location and title from the host now. Hosts that queue notifications
// should capture a Position when they move and use ReconcilePosition.
func (r *Reconciler) Reconcile(raw *State) Result {
	return r.ReconcilePosition(Position{State: raw, Location: r.host.Location(), Title: r.host.Title()})
}

// ReconcilePosition maps p onto the chain.
func (r *Reconciler) ReconcilePosition(p Position) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s State
	if p.State == nil {
		// Manual location edit: synthesize an unadopted state.
		s = State{Time: r.factory.Clock.Next(), Title: p.Title}
	} else {
		s = p.State.Clone()
		r.factory.Clock.Observe(s.Time)
	}

	prev := r.chain.Index()
	i, found := r.chain.locate(s.Time)
	if found {
		r.chain.Seek(i)
	} else {
		r.chain.Insert(i, s)
	}

	previous := r.path
	r.path = p.Location.String()
	cur := r.chain.Current()
	res := Result{
		State:    cur.Clone(),
		Index:    i,
		Previous: prev,
		Orphan:   cur.Orphan(r.factory.Session),
		Inserted: !found,
	}

	switch {
	case found && i == prev:
		// Repeated notification for the position we already hold.
		res.Direction = DirectionNone
	case i > prev:
		res.Direction = DirectionForward
	default:
		res.Direction = DirectionBack
	}

	r.logger.Debug("reconciled",
		zap.Int64("time", s.Time),
		zap.Int("from", prev),
		zap.Int("to", i),
		zap.Stringer("direction", res.Direction),
		zap.Bool("inserted", res.Inserted),
		zap.Bool("orphan", res.Orphan),
	)

	if res.Direction != DirectionNone {
		r.emit(res.Direction.EventType(), previous, res.Orphan)
	}
	if res.Orphan {
		r.adopt(cur)
	}
	return res
}

// adopt stamps the current entry with the running session after it has been
// reported, and rewrites the host entry so a repeat is recognized.
func (r *Reconciler) adopt(s State) {
	r.factory.Adopt(&s)
	r.chain.Replace(s)
	if err := r.host.Write(s, s.Title, r.path, Replace); err != nil {
		r.logger.Warn("rewriting adopted entry failed",
			zap.String("path", r.path),
			zap.Int64("time", s.Time),
			zap.Error(err),
		)
		return
	}
	r.logger.Debug("adopted orphan", zap.String("path", r.path), zap.Int64("time", s.Time))
}

// Back asks the host to move one entry back.
func (r *Reconciler) Back() error {
	return r.host.Go(-1)
}

// Forward asks the host to move one entry forward.
func (r *Reconciler) Forward() error {
	return r.host.Go(1)
}

// Emit triggers an event by name for the current state. Non-empty fields are
// merged into the state and written back to the host first.
func (r *Reconciler) Emit(name string, fields map[string]any) error {
	t, err := ParseEventType(name)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(fields) > 0 {
		s := r.chain.Current().Clone()
		if s.Fields == nil {
			s.Fields = make(map[string]any, len(fields))
		}
		maps.Copy(s.Fields, fields)
		if err := r.host.Write(s, s.Title, r.path, Replace); err != nil {
			return fmt.Errorf("replacing history entry: %w", err)
		}
		r.chain.Replace(s)
	}
	r.emit(t, "", false)
	return nil
}

// On registers fn for one event type and returns a func that removes it.
func (r *Reconciler) On(t EventType, fn Listener) func() {
	return r.notifier.On(t, fn)
}

// Subscribe registers fn for every event.
func (r *Reconciler) Subscribe(fn Listener) func() {
	return r.notifier.Subscribe(fn)
}

// Flush waits until pending events have been delivered.
func (r *Reconciler) Flush() {
	r.notifier.Flush()
}

// Close delivers pending events and stops the notifier.
func (r *Reconciler) Close() {
	r.notifier.Close()
}

func (r *Reconciler) emit(t EventType, previous string, orphan bool) {
	r.notifier.Enqueue(Event{
		Type:     t,
		Path:     r.path,
		Previous: previous,
		State:    r.chain.Current().Clone(),
		Index:    r.chain.Index(),
		Orphan:   orphan,
	})
}

// resolve expands a bare fragment against the host's pathname.
func (r *Reconciler) resolve(path string) string {
	if strings.HasPrefix(path, "#") {
		loc := r.host.Location()
		loc.Fragment = path
		return loc.String()
	}
	return path
}
