package history

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (rec *recorder) add(ev Event) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.events = append(rec.events, ev)
}

func (rec *recorder) all() []Event {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]Event(nil), rec.events...)
}

func (rec *recorder) types() []EventType {
	var out []EventType
	for _, ev := range rec.all() {
		out = append(out, ev.Type)
	}
	return out
}

func newReconciler(t *testing.T, path string) (*Reconciler, *fakeHost, *recorder) {
	t.Helper()
	h := newFakeHost(path)
	r, err := New(h, Options{Session: "run-1", Now: fixedNow})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	rec := &recorder{}
	r.Subscribe(rec.add)
	return r, h, rec
}

func push(t *testing.T, r *Reconciler, path string) {
	t.Helper()
	ok, err := r.Push(path, State{})
	require.NoError(t, err)
	require.True(t, ok)
}

// back simulates the host moving to path and handing back the stored state.
func hostMove(h *fakeHost, r *Reconciler, path string, s State) Result {
	h.setPath(path)
	return r.Reconcile(&s)
}

func TestNewWritesInitialState(t *testing.T) {
	r, h, _ := newReconciler(t, "/a")

	assert.Equal(t, "/a", r.Get())
	assert.Equal(t, "/a", r.Origin())
	assert.Equal(t, 0, r.Index())
	assert.Equal(t, 1, r.Len())

	w := h.lastWrite()
	assert.Equal(t, Replace, w.mode)
	assert.Equal(t, "/a", w.path)
	assert.Equal(t, "Untitled", w.title)
	assert.Equal(t, Session("run-1"), w.state.Session)
	assert.Equal(t, int64(1), w.state.Time)
}

func TestNewFailsWhenHostRejectsWrite(t *testing.T) {
	h := newFakeHost("/a")
	h.fail = errHostDown
	_, err := New(h, Options{})
	assert.ErrorIs(t, err, errHostDown)
}

func TestPushIsMonotonic(t *testing.T) {
	r, _, _ := newReconciler(t, "/0")
	for _, p := range []string{"/1", "/2", "/3", "/4", "/5"} {
		push(t, r, p)
	}

	entries := r.Entries()
	require.Len(t, entries, 6)
	for i := 1; i < len(entries); i++ {
		assert.Greater(t, entries[i].Time, entries[i-1].Time)
	}
	assert.Equal(t, 5, r.Index())
}

func TestPushWritesAppend(t *testing.T) {
	r, h, rec := newReconciler(t, "/a")
	push(t, r, "/b")
	r.Flush()

	w := h.lastWrite()
	assert.Equal(t, Append, w.mode)
	assert.Equal(t, "/b", w.path)

	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventPush, events[0].Type)
	assert.Equal(t, "/b", events[0].Path)
	assert.Equal(t, "/a", events[0].Previous)
	assert.Equal(t, 1, events[0].Index)
}

func TestPushSamePathIsNoop(t *testing.T) {
	r, h, rec := newReconciler(t, "/a")
	push(t, r, "/b")
	before := r.Entries()
	writes := len(h.writes)

	ok, err := r.Push("/b", State{Title: "again"})
	require.NoError(t, err)
	assert.False(t, ok)

	r.Flush()
	assert.Equal(t, before, r.Entries())
	assert.Equal(t, 1, r.Index())
	assert.Len(t, h.writes, writes)
	assert.Equal(t, []EventType{EventPush}, rec.types())
}

func TestPushResolvesFragments(t *testing.T) {
	r, _, _ := newReconciler(t, "/docs")
	push(t, r, "#intro")
	assert.Equal(t, "/docs#intro", r.Get())

	root, _, _ := newReconciler(t, "/")
	push(t, root, "#top")
	assert.Equal(t, "#top", root.Get())
}

func TestPushTruncatesAbandonedBranch(t *testing.T) {
	r, h, _ := newReconciler(t, "/a")
	push(t, r, "/b")
	push(t, r, "/c")
	push(t, r, "/d")
	entries := r.Entries()

	res := hostMove(h, r, "/b", entries[1])
	require.Equal(t, 1, res.Index)

	push(t, r, "/e")
	after := r.Entries()
	require.Len(t, after, 3)
	assert.Equal(t, entries[:2], after[:2])
	assert.Equal(t, "/e", r.Get())
	assert.Equal(t, 2, r.Index())
	assert.Greater(t, after[2].Time, after[1].Time)
}

func TestPushFailureLeavesChainUntouched(t *testing.T) {
	r, h, _ := newReconciler(t, "/a")
	h.fail = errHostDown

	ok, err := r.Push("/b", State{})
	assert.ErrorIs(t, err, errHostDown)
	assert.False(t, ok)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, "/a", r.Get())
}

func TestPushAfterFutureForeignEntry(t *testing.T) {
	r, h, _ := newReconciler(t, "/a")
	hostMove(h, r, "/later", State{Time: 10_000, Session: "other"})

	push(t, r, "/b")
	assert.Equal(t, int64(10_001), r.State().Time)
}

func TestSetReplacesInPlace(t *testing.T) {
	r, h, rec := newReconciler(t, "/a")
	push(t, r, "/b")
	push(t, r, "/c")
	before := r.Entries()

	require.NoError(t, r.Set("/c2", State{Title: "Renamed", Fields: map[string]any{"k": "v"}}))
	r.Flush()

	after := r.Entries()
	require.Len(t, after, 3)
	assert.Equal(t, 2, r.Index())
	assert.Equal(t, before[:2], after[:2])
	assert.Equal(t, before[2].Time, after[2].Time)
	assert.Equal(t, "Renamed", after[2].Title)
	assert.Equal(t, "v", after[2].Fields["k"])
	assert.Equal(t, "/c2", r.Get())

	w := h.lastWrite()
	assert.Equal(t, Replace, w.mode)
	assert.Equal(t, "Renamed", w.title)

	types := rec.types()
	assert.Equal(t, EventSet, types[len(types)-1])
}

func TestSetFailureLeavesChainUntouched(t *testing.T) {
	r, h, _ := newReconciler(t, "/a")
	h.fail = errHostDown

	err := r.Set("/a", State{Title: "x"})
	assert.ErrorIs(t, err, errHostDown)
	assert.Equal(t, "Untitled", r.State().Title)
}

func TestReconcileBackThenForward(t *testing.T) {
	r, h, rec := newReconciler(t, "/a")
	push(t, r, "/b")
	push(t, r, "/c")
	entries := r.Entries()
	require.Equal(t, []int64{1, 2, 3}, []int64{entries[0].Time, entries[1].Time, entries[2].Time})

	res := hostMove(h, r, "/b", entries[1])
	assert.Equal(t, DirectionBack, res.Direction)
	assert.Equal(t, 1, r.Index())
	assert.Equal(t, "/b", r.Get())
	assert.False(t, res.Inserted)
	assert.False(t, res.Orphan)

	res = hostMove(h, r, "/c", entries[2])
	assert.Equal(t, DirectionForward, res.Direction)
	assert.Equal(t, 2, r.Index())
	assert.Equal(t, 3, r.Len())

	r.Flush()
	assert.Equal(t, []EventType{EventPush, EventPush, EventBack, EventForward}, rec.types())
	last := rec.all()[3]
	assert.Equal(t, "/c", last.Path)
	assert.Equal(t, "/b", last.Previous)
}

func TestReconcilePositionUsesCapturedLocation(t *testing.T) {
	r, h, rec := newReconciler(t, "/a")
	push(t, r, "/b")
	push(t, r, "/c")
	entries := r.Entries()

	// Two moves queued before either is handled: the host already sits at /a.
	h.setPath("/a")
	first := entries[1]
	res := r.ReconcilePosition(Position{State: &first, Location: Location{Path: "/b"}})
	assert.Equal(t, DirectionBack, res.Direction)
	assert.Equal(t, "/b", r.Get())

	second := entries[0]
	r.ReconcilePosition(Position{State: &second, Location: Location{Path: "/a"}})
	assert.Equal(t, "/a", r.Get())

	r.Flush()
	events := rec.all()
	require.Len(t, events, 4)
	assert.Equal(t, "/b", events[2].Path)
	assert.Equal(t, "/c", events[2].Previous)
	assert.Equal(t, "/a", events[3].Path)
}

func TestReconcilePositionTitlesManualEdit(t *testing.T) {
	r, h, _ := newReconciler(t, "/a")
	h.setPath("/elsewhere")

	res := r.ReconcilePosition(Position{Location: Location{Path: "/a", Fragment: "#typed"}, Title: "Typed"})
	assert.True(t, res.Orphan)
	assert.Equal(t, "Typed", res.State.Title)
	assert.Equal(t, "/a#typed", r.Get())
	assert.Equal(t, "/a#typed", h.lastWrite().path)
}

func TestReconcileManualEditCreatesOrphan(t *testing.T) {
	r, h, rec := newReconciler(t, "/a")

	h.setPath("/a#edited")
	res := r.Reconcile(nil)

	assert.Equal(t, DirectionForward, res.Direction)
	assert.True(t, res.Orphan)
	assert.True(t, res.Inserted)
	assert.Equal(t, 1, res.Index)
	assert.Equal(t, Session(""), res.State.Session)
	assert.Greater(t, res.State.Time, r.Entries()[0].Time)

	// Adopted after being reported.
	assert.Equal(t, Session("run-1"), r.State().Session)
	w := h.lastWrite()
	assert.Equal(t, Replace, w.mode)
	assert.Equal(t, "/a#edited", w.path)
	assert.Equal(t, Session("run-1"), w.state.Session)

	r.Flush()
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventForward, events[0].Type)
	assert.True(t, events[0].Orphan)
	assert.Equal(t, Session(""), events[0].State.Session)
}

func TestReconcileOrphanIsAdoptedOnce(t *testing.T) {
	r, h, _ := newReconciler(t, "/a")

	h.setPath("/a#x")
	first := r.Reconcile(nil)
	require.True(t, first.Orphan)

	hostMove(h, r, "/a", r.Entries()[0])
	second := hostMove(h, r, "/a#x", first.State)

	assert.False(t, second.Orphan)
	assert.False(t, second.Inserted)
	assert.Equal(t, DirectionForward, second.Direction)
	assert.Equal(t, 2, r.Len())

	seen := map[int64]bool{}
	for _, s := range r.Entries() {
		assert.False(t, seen[s.Time], "duplicate time %d", s.Time)
		seen[s.Time] = true
	}
}

func TestReconcileRepeatIsNoop(t *testing.T) {
	r, h, rec := newReconciler(t, "/a")
	push(t, r, "/b")
	push(t, r, "/c")
	b := r.Entries()[1]

	first := hostMove(h, r, "/b", b)
	second := hostMove(h, r, "/b", b)

	assert.Equal(t, first.Index, second.Index)
	assert.Equal(t, DirectionBack, first.Direction)
	assert.Equal(t, DirectionNone, second.Direction)
	assert.False(t, second.Inserted)
	assert.Equal(t, 3, r.Len())

	r.Flush()
	assert.Equal(t, []EventType{EventPush, EventPush, EventBack}, rec.types())
}

func TestReconcileForeignSessionBeforeHead(t *testing.T) {
	h := newFakeHost("/now")
	r, err := New(h, Options{
		Session: "run-2",
		Now:     func() time.Time { return time.UnixMilli(1_000) },
	})
	require.NoError(t, err)
	defer r.Close()
	rec := &recorder{}
	r.Subscribe(rec.add)

	old := State{Time: 500, Title: "Old", Session: "run-1", Fields: map[string]any{"k": 1}}
	res := hostMove(h, r, "/then", old)

	assert.Equal(t, DirectionBack, res.Direction)
	assert.True(t, res.Orphan)
	assert.True(t, res.Inserted)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, 2, r.Len())
	assert.Equal(t, Session("run-2"), r.State().Session)
	assert.Equal(t, int64(500), r.State().Time)
	assert.Equal(t, 1, r.State().Fields["k"])

	r.Flush()
	events := rec.all()
	require.Len(t, events, 1)
	assert.Equal(t, EventBack, events[0].Type)
	assert.Equal(t, Session("run-1"), events[0].State.Session)

	// Going forward again lands on the original entry.
	res = hostMove(h, r, "/now", r.Entries()[1])
	assert.Equal(t, DirectionForward, res.Direction)
	assert.False(t, res.Orphan)
	assert.Equal(t, 1, r.Index())
}

func TestReconcileInsertsBetweenEntries(t *testing.T) {
	r, h, _ := newReconciler(t, "/a")
	hostMove(h, r, "/z", State{Time: 100, Session: "run-1"})
	require.Equal(t, 2, r.Len())

	hostMove(h, r, "/a", r.Entries()[0])
	res := hostMove(h, r, "/m", State{Time: 50, Session: "run-0"})

	assert.Equal(t, DirectionForward, res.Direction)
	assert.True(t, res.Inserted)
	assert.Equal(t, 1, res.Index)

	var times []int64
	for _, s := range r.Entries() {
		times = append(times, s.Time)
	}
	assert.Equal(t, []int64{1, 50, 100}, times)
}

func TestBoundaryScenarios(t *testing.T) {
	t.Run("back from tail", func(t *testing.T) {
		r, h, _ := newReconciler(t, "/a")
		push(t, r, "/b")
		push(t, r, "/c")

		res := hostMove(h, r, "/b", State{Time: 2, Session: "run-1"})
		assert.Equal(t, DirectionBack, res.Direction)
		assert.Equal(t, 1, r.Index())
	})

	t.Run("forward from middle", func(t *testing.T) {
		r, h, _ := newReconciler(t, "/a")
		push(t, r, "/b")
		push(t, r, "/c")
		hostMove(h, r, "/b", State{Time: 2, Session: "run-1"})

		res := hostMove(h, r, "/c", State{Time: 3, Session: "run-1"})
		assert.Equal(t, DirectionForward, res.Direction)
		assert.Equal(t, 2, r.Index())
	})

	t.Run("null payload after single entry", func(t *testing.T) {
		r, h, _ := newReconciler(t, "/a")
		h.setPath("/a#manual")

		res := r.Reconcile(nil)
		assert.Equal(t, DirectionForward, res.Direction)
		assert.True(t, res.Orphan)
		assert.Equal(t, 1, r.Index())
		assert.Greater(t, r.Entries()[1].Time, r.Entries()[0].Time)
	})

	t.Run("push after back discards branch", func(t *testing.T) {
		r, h, _ := newReconciler(t, "/a")
		push(t, r, "/b")
		a := r.Entries()[0]
		hostMove(h, r, "/a", a)
		require.Equal(t, 0, r.Index())

		push(t, r, "/c")
		entries := r.Entries()
		require.Len(t, entries, 2)
		assert.Equal(t, a, entries[0])
		assert.Equal(t, 1, r.Index())
		assert.Equal(t, "/c", r.Get())
	})
}

func TestBackAndForwardDelegateToHost(t *testing.T) {
	r, h, _ := newReconciler(t, "/a")
	require.NoError(t, r.Back())
	require.NoError(t, r.Forward())
	assert.Equal(t, []int{-1, 1}, h.moves)

	h.fail = errHostDown
	assert.ErrorIs(t, r.Back(), errHostDown)
}

func TestEmit(t *testing.T) {
	r, h, rec := newReconciler(t, "/a")

	err := r.Emit("pop", nil)
	assert.ErrorIs(t, err, ErrUnknownEvent)

	require.NoError(t, r.Emit("set", map[string]any{"scroll": 10}))
	assert.Equal(t, 10, r.State().Fields["scroll"])
	assert.Equal(t, 10, h.lastWrite().state.Fields["scroll"])

	require.NoError(t, r.Emit("forward", nil))
	r.Flush()
	assert.Equal(t, []EventType{EventSet, EventForward}, rec.types())
}

func TestListenersRunOutsideTheMutation(t *testing.T) {
	r, _, _ := newReconciler(t, "/a")

	seen := make(chan int, 1)
	r.On(EventPush, func(ev Event) {
		// Would deadlock if delivered while the chain is locked.
		seen <- r.Index()
	})

	push(t, r, "/b")
	select {
	case idx := <-seen:
		assert.Equal(t, 1, idx)
	case <-time.After(2 * time.Second):
		t.Fatal("listener was not called")
	}
}

func TestLocationString(t *testing.T) {
	assert.Equal(t, "/docs", Location{Path: "/docs"}.String())
	assert.Equal(t, "/docs#a", Location{Path: "/docs", Fragment: "#a"}.String())
	assert.Equal(t, "#a", Location{Path: "/", Fragment: "#a"}.String())
}
