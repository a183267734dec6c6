package browser

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vidyasagar/journey/internal/history"
)

var (
	// ErrOutOfRange is returned by Go when the target entry does not exist.
	ErrOutOfRange = errors.New("no history entry in that direction")
	// ErrClosed is returned when a closed session is asked to move.
	ErrClosed = errors.New("session history closed")
)

// Entry is one slot of the host's session history. Payload is the opaque
// serialized state, nil when the entry was created without one.
type Entry struct {
	Path    string
	Title   string
	Payload []byte
}

// Session is an in-memory session history: a linear list of entries and a
// cursor, with an asynchronous position-changed feed. It implements
// history.Host.
type Session struct {
	mu        sync.Mutex
	entries   []Entry
	pos       int // current position in the list
	title     string
	positions chan history.Position
	closed    bool
	logger    *zap.Logger
}

// NewSession creates a session history holding a single payload-less entry
// for start.
func NewSession(start string, logger *zap.Logger) *Session {
	if start == "" {
		start = "/"
	}
	return newSession([]Entry{{Path: start, Title: TitleFor(start)}}, 0, logger)
}

// RestoreSession rebuilds a session history from persisted entries, the way a
// host reloads its own store after a restart.
func RestoreSession(entries []Entry, cursor int, logger *zap.Logger) (*Session, error) {
	if len(entries) == 0 {
		return nil, errors.New("restoring session: no entries")
	}
	if cursor < 0 || cursor >= len(entries) {
		return nil, fmt.Errorf("restoring session: cursor %d outside %d entries", cursor, len(entries))
	}
	copied := make([]Entry, len(entries))
	copy(copied, entries)
	return newSession(copied, cursor, logger), nil
}

func newSession(entries []Entry, pos int, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		entries:   entries,
		pos:       pos,
		title:     entries[pos].Title,
		positions: make(chan history.Position, 64),
		logger:    logger.Named("host"),
	}
}

// Positions delivers one value per position change, captured when the cursor
// moved: the stored state (nil when the entry has no readable payload), the
// entry's location and title.
func (s *Session) Positions() <-chan history.Position {
	return s.positions
}

// Location returns the current pathname and fragment.
func (s *Session) Location() history.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ParseLocation(s.entries[s.pos].Path)
}

// Title returns the current document title.
func (s *Session) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTitle()
}

func (s *Session) currentTitle() string {
	if s.title == "" {
		return "journey"
	}
	return s.title
}

// Write stores st for path, either rewriting the current entry or appending a
// new one after it. Appending discards any forward entries.
func (s *Session) Write(st history.State, title, path string, mode history.WriteMode) error {
	payload, err := EncodeState(st)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{Path: path, Title: title, Payload: payload}
	if mode == history.Append {
		s.entries = append(s.entries[:s.pos+1], entry)
		s.pos = len(s.entries) - 1
	} else {
		s.entries[s.pos] = entry
	}
	s.title = title

	s.logger.Debug("entry written",
		zap.Stringer("mode", mode),
		zap.String("path", path),
		zap.Int("pos", s.pos),
	)
	return nil
}

// Go moves the cursor by delta and announces the new position.
func (s *Session) Go(delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	target := s.pos + delta
	if target < 0 || target >= len(s.entries) {
		return fmt.Errorf("go %+d from %d: %w", delta, s.pos, ErrOutOfRange)
	}
	s.pos = target
	s.title = s.entries[target].Title
	s.announce()
	return nil
}

// Edit simulates the user typing a new location: a payload-less entry is
// appended after the current one and announced with a nil state.
func (s *Session) Edit(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if title := TitleFor(path); title != "" {
		s.title = title
	}
	s.entries = append(s.entries[:s.pos+1], Entry{Path: path, Title: s.title})
	s.pos = len(s.entries) - 1

	s.logger.Debug("location edited", zap.String("path", path))
	s.announce()
	return nil
}

// announce queues the current entry on the position feed. Callers hold s.mu,
// so Close cannot run between the check and the send.
func (s *Session) announce() {
	entry := s.entries[s.pos]
	p := history.Position{Location: ParseLocation(entry.Path), Title: s.currentTitle()}
	if entry.Payload != nil {
		st, err := DecodeState(entry.Payload)
		if err != nil {
			s.logger.Warn("dropping unreadable payload", zap.String("path", entry.Path), zap.Error(err))
		} else {
			p.State = st
		}
	}
	s.positions <- p
}

// Close ends the position feed. Later moves return ErrClosed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.positions)
	}
}

// Snapshot returns a copy of the entries and the cursor.
func (s *Session) Snapshot() ([]Entry, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out, s.pos
}

// Len returns the total number of entries.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Index returns the cursor.
func (s *Session) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// CanGoBack reports whether there is a previous entry.
func (s *Session) CanGoBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos > 0
}

// CanGoForward reports whether there is a next entry.
func (s *Session) CanGoForward() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos < len(s.entries)-1
}

// ParseLocation splits a logical path into pathname and fragment. A bare
// fragment belongs to the root.
func ParseLocation(path string) history.Location {
	i := strings.Index(path, "#")
	if i < 0 {
		return history.Location{Path: path}
	}
	loc := history.Location{Path: path[:i], Fragment: path[i:]}
	if loc.Path == "" {
		loc.Path = "/"
	}
	return loc
}
