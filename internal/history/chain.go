package history

// Chain is the ordered reconstruction of the host's history list.
type Chain struct {
	entries []State
	pos     int // current position in the chain
}

// NewChain creates a chain holding a single state.
func NewChain(first State) *Chain {
	return &Chain{
		entries: []State{first},
		pos:     0,
	}
}

// Len returns the total number of entries.
func (c *Chain) Len() int {
	return len(c.entries)
}

// Index returns the current position.
func (c *Chain) Index() int {
	return c.pos
}

// Current returns the state at the current position.
func (c *Chain) Current() State {
	return c.entries[c.pos]
}

// At returns the state at i.
func (c *Chain) At(i int) State {
	return c.entries[i]
}

// Entries returns a copy of the chain.
func (c *Chain) Entries() []State {
	result := make([]State, len(c.entries))
	for i, s := range c.entries {
		result[i] = s.Clone()
	}
	return result
}

// AtTail reports whether the current position is the last entry.
func (c *Chain) AtTail() bool {
	return c.pos == len(c.entries)-1
}

// Replace swaps the state at the current position.
func (c *Chain) Replace(s State) {
	c.entries[c.pos] = s
}

// Push discards everything after the current position, appends s and moves
// to it.
func (c *Chain) Push(s State) {
	if c.pos < len(c.entries)-1 {
		c.entries = c.entries[:c.pos+1]
	}
	c.entries = append(c.entries, s)
	c.pos = len(c.entries) - 1
}

// Insert splices s in at i, shifting later entries, and moves to it.
func (c *Chain) Insert(i int, s State) {
	c.entries = append(c.entries, State{})
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = s
	c.pos = i
}

// Seek moves to i.
func (c *Chain) Seek(i int) {
	c.pos = i
}

// search scans forward from just after the current position and returns the
// first index whose time is >= t, or Len() when every entry is older.
func (c *Chain) search(t int64) int {
	i := c.pos + 1
	for i < len(c.entries) && c.entries[i].Time < t {
		i++
	}
	return i
}

// searchUp scans backward from just before the current position and returns
// the index right after the first entry whose time is <= t, or 0 when every
// entry is newer.
func (c *Chain) searchUp(t int64) int {
	i := c.pos - 1
	for i >= 0 && c.entries[i].Time > t {
		i--
	}
	return i + 1
}

// locate finds where a state with time t belongs. It returns the index and
// whether an entry with exactly that time already sits there.
func (c *Chain) locate(t int64) (int, bool) {
	if t > c.entries[c.pos].Time {
		if c.AtTail() {
			return len(c.entries), false
		}
		i := c.search(t)
		return i, i < len(c.entries) && c.entries[i].Time == t
	}

	i := c.searchUp(t)
	if i > 0 && c.entries[i-1].Time == t {
		return i - 1, true
	}
	// The scan stops at the current position when t equals its time.
	if i < len(c.entries) && c.entries[i].Time == t {
		return i, true
	}
	return i, false
}
