package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saveCall struct {
	projectID, path, content string
}

type fakeSaver struct {
	mu    sync.Mutex
	calls []saveCall
	err   error
	gate  chan struct{}
}

func (f *fakeSaver) SaveFile(ctx context.Context, projectID, path, content string) error {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, saveCall{projectID, path, content})
	return f.err
}

func (f *fakeSaver) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSaver) snapshot() []saveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]saveCall, len(f.calls))
	copy(out, f.calls)
	return out
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *fakeNotifier) Notify(projectID, path string) {
	n.mu.Lock()
	n.events = append(n.events, projectID+":"+path)
	n.mu.Unlock()
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

const testDelay = 30 * time.Millisecond

func wait(t *testing.T, tk *Ticket) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r, err := tk.Wait(ctx)
	require.NoError(t, err)
	return r
}

func TestBurstOfEditsSavesOnceWithLastContent(t *testing.T) {
	saver := &fakeSaver{}
	notifier := &fakeNotifier{}
	p := NewPersister(saver, notifier, Options{Delay: testDelay})

	var tickets []*Ticket
	for _, c := range []string{"a", "ab", "abc", "abcd"} {
		tickets = append(tickets, p.NotifyEdit("p1", "index.html", c))
		time.Sleep(5 * time.Millisecond)
	}

	for _, tk := range tickets[1:] {
		assert.Same(t, tickets[0], tk, "coalesced edits share a ticket")
	}
	r := wait(t, tickets[0])
	assert.Equal(t, OutcomeSaved, r.Outcome)

	calls := saver.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, saveCall{"p1", "index.html", "abcd"}, calls[0])

	st, ok := p.State("p1", "index.html")
	require.True(t, ok)
	assert.Equal(t, StateSaved, st.State)
	assert.Equal(t, 1, notifier.count())
}

func TestEditsToDifferentFilesAreIndependent(t *testing.T) {
	saver := &fakeSaver{}
	p := NewPersister(saver, nil, Options{Delay: testDelay})

	ta := p.NotifyEdit("p1", "a.css", "a1")
	time.Sleep(10 * time.Millisecond)
	tb := p.NotifyEdit("p1", "b.css", "b1")

	assert.Equal(t, OutcomeSaved, wait(t, ta).Outcome)
	assert.Equal(t, OutcomeSaved, wait(t, tb).Outcome)

	calls := saver.snapshot()
	require.Len(t, calls, 2)
	assert.ElementsMatch(t, []saveCall{{"p1", "a.css", "a1"}, {"p1", "b.css", "b1"}}, calls)
}

func TestSaveFailureReportsErrorAndSkipsBroadcast(t *testing.T) {
	saver := &fakeSaver{err: errors.New("disk full")}
	notifier := &fakeNotifier{}
	p := NewPersister(saver, notifier, Options{Delay: testDelay})

	r := wait(t, p.NotifyEdit("p1", "index.html", "x"))
	assert.Equal(t, OutcomeError, r.Outcome)
	require.Error(t, r.Err)

	st, _ := p.State("p1", "index.html")
	assert.Equal(t, StateError, st.State)
	assert.Equal(t, "disk full", st.Error)
	assert.Equal(t, 0, notifier.count())

	saver.setErr(nil)
	tk, err := p.Retry("p1", "index.html")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, wait(t, tk).Outcome)

	calls := saver.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "x", calls[1].content)
	assert.Equal(t, 1, notifier.count())
}

func TestRetryWithoutContent(t *testing.T) {
	p := NewPersister(&fakeSaver{}, nil, Options{Delay: testDelay})
	_, err := p.Retry("p1", "nope.js")
	require.ErrorIs(t, err, ErrNothingToRetry)
}

func TestCancelAllResolvesTicketsAsCancelled(t *testing.T) {
	saver := &fakeSaver{}
	p := NewPersister(saver, nil, Options{Delay: testDelay})

	t1 := p.NotifyEdit("p1", "a.js", "1")
	t2 := p.NotifyEdit("p1", "b.js", "2")
	assert.Equal(t, 2, p.Pending())
	assert.Equal(t, 2, p.CancelAll())

	assert.Equal(t, OutcomeCancelled, wait(t, t1).Outcome)
	assert.Equal(t, OutcomeCancelled, wait(t, t2).Outcome)

	time.Sleep(3 * testDelay)
	assert.Empty(t, saver.snapshot())
	assert.Empty(t, p.States("p1"))
}

func TestCancelProjectLeavesOtherProjects(t *testing.T) {
	saver := &fakeSaver{}
	p := NewPersister(saver, nil, Options{Delay: testDelay})

	old := p.NotifyEdit("old", "a.js", "1")
	cur := p.NotifyEdit("new", "a.js", "2")
	assert.Equal(t, 1, p.CancelProject("old"))

	assert.Equal(t, OutcomeCancelled, wait(t, old).Outcome)
	assert.Equal(t, OutcomeSaved, wait(t, cur).Outcome)
	assert.Equal(t, []saveCall{{"new", "a.js", "2"}}, saver.snapshot())
}

func TestStaleCompletionDoesNotOverwriteNewerEdit(t *testing.T) {
	saver := &fakeSaver{gate: make(chan struct{})}
	p := NewPersister(saver, nil, Options{Delay: testDelay})

	first := p.NotifyEdit("p1", "index.html", "v1")
	require.Eventually(t, func() bool {
		st, _ := p.State("p1", "index.html")
		return st.State == StateSaving
	}, time.Second, 5*time.Millisecond)

	second := p.NotifyEdit("p1", "index.html", "v2")
	assert.NotSame(t, first, second)

	// let the first write finish while the second is still debouncing
	saver.gate <- struct{}{}
	assert.Equal(t, OutcomeSaved, wait(t, first).Outcome)

	st, _ := p.State("p1", "index.html")
	assert.Contains(t, []State{StateUnsaved, StateSaving}, st.State)

	saver.gate <- struct{}{}
	assert.Equal(t, OutcomeSaved, wait(t, second).Outcome)
	st, _ = p.State("p1", "index.html")
	assert.Equal(t, StateSaved, st.State)

	calls := saver.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "v2", calls[1].content)
}
