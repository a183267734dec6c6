package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func chainOf(times ...int64) *Chain {
	c := NewChain(State{Time: times[0]})
	for _, t := range times[1:] {
		c.Push(State{Time: t})
	}
	return c
}

func timesOf(c *Chain) []int64 {
	var out []int64
	for _, s := range c.Entries() {
		out = append(out, s.Time)
	}
	return out
}

func TestChainPushTruncatesForwardEntries(t *testing.T) {
	c := chainOf(1, 2, 3, 4)
	c.Seek(1)

	c.Push(State{Time: 9})
	assert.Equal(t, []int64{1, 2, 9}, timesOf(c))
	assert.Equal(t, 2, c.Index())
	assert.True(t, c.AtTail())
}

func TestChainInsert(t *testing.T) {
	c := chainOf(10, 30)
	c.Insert(1, State{Time: 20})
	assert.Equal(t, []int64{10, 20, 30}, timesOf(c))
	assert.Equal(t, 1, c.Index())

	c.Insert(0, State{Time: 5})
	assert.Equal(t, []int64{5, 10, 20, 30}, timesOf(c))
	assert.Equal(t, 0, c.Index())
}

func TestChainSearch(t *testing.T) {
	c := chainOf(10, 20, 30, 40)
	c.Seek(0)

	assert.Equal(t, 1, c.search(15))
	assert.Equal(t, 1, c.search(20))
	assert.Equal(t, 3, c.search(35))
	assert.Equal(t, 4, c.search(99))
}

func TestChainSearchUp(t *testing.T) {
	c := chainOf(10, 20, 30, 40)
	c.Seek(3)

	assert.Equal(t, 3, c.searchUp(35))
	assert.Equal(t, 2, c.searchUp(25))
	assert.Equal(t, 2, c.searchUp(20))
	assert.Equal(t, 0, c.searchUp(1))
}

func TestChainLocate(t *testing.T) {
	tests := []struct {
		name  string
		pos   int
		t     int64
		want  int
		found bool
	}{
		{"forward at tail appends", 3, 50, 4, false},
		{"forward exact", 0, 30, 2, true},
		{"forward between", 0, 25, 2, false},
		{"backward exact", 3, 20, 1, true},
		{"backward between", 3, 15, 1, false},
		{"backward past head", 2, 5, 0, false},
		{"same time as current", 2, 30, 2, true},
		{"backward to head exact", 3, 10, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := chainOf(10, 20, 30, 40)
			c.Seek(tt.pos)
			got, found := c.locate(tt.t)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.found, found)
		})
	}
}

func TestChainEntriesIsACopy(t *testing.T) {
	c := NewChain(State{Time: 1, Fields: map[string]any{"k": "v"}})
	entries := c.Entries()
	entries[0].Time = 99
	entries[0].Fields["k"] = "changed"

	assert.Equal(t, int64(1), c.Current().Time)
	assert.Equal(t, "v", c.Current().Fields["k"])
}
