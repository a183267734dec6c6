package observe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidyasagar/journey/internal/history"
)

func TestPatternMatch(t *testing.T) {
	tests := []struct {
		name    string
		pattern Pattern
		path    string
		want    bool
	}{
		{"exact hit", Exact("/docs"), "/docs", true},
		{"exact miss", Exact("/docs"), "/docs#intro", false},
		{"suffix hit", Suffix("#intro"), "/docs#intro", true},
		{"suffix miss", Suffix("#intro"), "/docs", false},
		{"regex hit", MustRegex(`^/notes/\d+$`), "/notes/42", true},
		{"regex miss", MustRegex(`^/notes/\d+$`), "/notes/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.pattern.Match(tt.path))
			assert.Equal(t, tt.want, IsHere(tt.pattern, tt.path))
		})
	}
}

func TestRegexRejectsBadExpression(t *testing.T) {
	_, err := Regex("(")
	assert.Error(t, err)
	assert.Panics(t, func() { MustRegex("(") })
}

func TestPatternKind(t *testing.T) {
	assert.Equal(t, KindExact, Exact("/").Kind())
	assert.Equal(t, KindSuffix, Suffix("#a").Kind())
	assert.Equal(t, KindRegex, MustRegex("a").Kind())
}

type call struct {
	name     string
	entering bool
}

func TestDispatchWithoutPrevious(t *testing.T) {
	d := NewDispatcher()
	var calls []call
	d.Observe(Exact("/a"), func(c *Change, entering bool) {
		calls = append(calls, call{"first", entering})
		c.Stop()
	})
	d.Observe(Exact("/a"), func(c *Change, entering bool) {
		calls = append(calls, call{"second", entering})
	})

	c := d.Dispatch(history.Event{Type: history.EventSet, Path: "/a"})
	assert.Equal(t, []call{{"first", true}}, calls)
	assert.True(t, c.Stopped())
}

func TestDispatchLeavingThenEntering(t *testing.T) {
	d := NewDispatcher()
	var calls []call
	d.Observe(Exact("/b"), func(c *Change, entering bool) {
		calls = append(calls, call{"b1", entering})
	})
	d.Observe(Exact("/a"), func(c *Change, entering bool) {
		calls = append(calls, call{"a", entering})
	})
	d.Observe(MustRegex(`^/b`), func(c *Change, entering bool) {
		calls = append(calls, call{"b2", entering})
	})

	d.Dispatch(history.Event{Type: history.EventPush, Path: "/b", Previous: "/a"})
	assert.Equal(t, []call{{"a", false}, {"b1", true}, {"b2", true}}, calls)
}

func TestDispatchStopWhileLeaving(t *testing.T) {
	d := NewDispatcher()
	var calls []call
	d.Observe(Exact("/a"), func(c *Change, entering bool) {
		calls = append(calls, call{"a1", entering})
		c.Stop()
	})
	d.Observe(Suffix("a"), func(c *Change, entering bool) {
		calls = append(calls, call{"a2", entering})
	})
	d.Observe(Exact("/b"), func(c *Change, entering bool) {
		calls = append(calls, call{"b", entering})
	})

	d.Dispatch(history.Event{Type: history.EventBack, Path: "/b", Previous: "/a"})
	// Stopping a leave does not stop the entering pass.
	assert.Equal(t, []call{{"a1", false}, {"b", true}}, calls)
}

func TestDispatchStopWhileEntering(t *testing.T) {
	d := NewDispatcher()
	var calls []call
	d.Observe(Suffix("#x"), func(c *Change, entering bool) {
		calls = append(calls, call{"x1", entering})
		c.Stop()
	})
	d.Observe(Suffix("#x"), func(c *Change, entering bool) {
		calls = append(calls, call{"x2", entering})
	})

	d.Dispatch(history.Event{Type: history.EventForward, Path: "/p#x", Previous: "/p"})
	assert.Equal(t, []call{{"x1", true}}, calls)
}

type nullHost struct{ loc history.Location }

func (h *nullHost) Location() history.Location { return h.loc }
func (h *nullHost) Title() string              { return "" }
func (h *nullHost) Go(int) error               { return nil }
func (h *nullHost) Write(_ history.State, _, path string, _ history.WriteMode) error {
	h.loc = history.Location{Path: path}
	return nil
}

func TestAttach(t *testing.T) {
	r, err := history.New(&nullHost{loc: history.Location{Path: "/a"}}, history.Options{})
	require.NoError(t, err)
	defer r.Close()

	d := NewDispatcher()
	entered := make(chan string, 1)
	d.Observe(Exact("/b"), func(c *Change, entering bool) {
		if entering {
			entered <- c.Path
		}
	})
	off := d.Attach(r)
	defer off()

	_, err = r.Push("/b", history.State{})
	require.NoError(t, err)

	select {
	case p := <-entered:
		assert.Equal(t, "/b", p)
	case <-time.After(2 * time.Second):
		t.Fatal("observer was not called")
	}
	assert.Equal(t, 1, d.Len())
}
