package ripple

import (
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnDeliversStartAndUserMessage(t *testing.T) {
	sys := NewActorSystem(2)
	defer func() {
		sys.RequestShutdown()
		sys.WaitChildren()
	}()

	behavior, rec := newRecorderBehavior("echo")
	pid := sys.Spawn("echo", behavior)
	require.NotNil(t, pid)

	require.NoError(t, sys.Send(nil, pid, "hello"))

	ok := waitFor(time.Second, func() bool {
		return len(rec.snapshot()) == 1
	})
	require.True(t, ok, "expected the recorder to observe its one user message")
	assert.Equal(t, "hello", rec.snapshot()[0])
}

// pingPong answers each Ping{N} with Pong{N-1} and each Pong{N} with
// Ping{N-1}, counting the Pongs it receives, and stops itself when it
// receives a message with N <= 0 — grounded on
// original_source/actors/demo/pinger.c and ponger.c.
type pingPong struct {
	peer  **PID
	count *int32
	done  chan struct{}
}

type Ping struct{ N int }
type Pong struct{ N int }

func (p *pingPong) Receive(ctx Context) {
	switch msg := ctx.Message().(type) {
	case Ping:
		if msg.N <= 0 {
			ctx.StopSelf()
			return
		}
		ctx.Send(*p.peer, Pong{N: msg.N - 1})
	case Pong:
		atomic.AddInt32(p.count, 1)
		if msg.N <= 0 {
			ctx.StopSelf()
			return
		}
		ctx.Send(*p.peer, Ping{N: msg.N - 1})
	}
}

func (p *pingPong) OnStop(ctx Context) {
	select {
	case <-p.done:
	default:
		close(p.done)
	}
}

// TestPingPongRunsToCompletionAndStops exchanges a bounded volley between
// two actors and checks the side that sees the volley expire stops
// itself; the other side only has any reason to stop once the system
// itself shuts down, which is checked separately below.
func TestPingPongRunsToCompletionAndStops(t *testing.T) {
	sys := NewActorSystem(4)

	var pingerPID, pongerPID *PID
	pingerDone := make(chan struct{})
	pongerDone := make(chan struct{})
	var pongCount int32

	pingerPID = sys.Spawn("pinger", NewBehavior("pinger", func() Actor {
		return &pingPong{peer: &pongerPID, count: &pongCount, done: pingerDone}
	}))
	pongerPID = sys.Spawn("ponger", NewBehavior("ponger", func() Actor {
		return &pingPong{peer: &pingerPID, count: &pongCount, done: pongerDone}
	}))

	require.NoError(t, sys.Send(nil, pingerPID, Ping{N: 10}))

	select {
	case <-pingerDone:
	case <-time.After(time.Second):
		t.Fatal("pinger never stopped")
	}
	assert.Equal(t, int32(5), atomic.LoadInt32(&pongCount), "ponger should have received and answered five Pongs")

	sys.RequestShutdown()
	sys.WaitChildren()

	select {
	case <-pongerDone:
	case <-time.After(time.Second):
		t.Fatal("ponger never stopped, even after shutdown")
	}
}

func TestPerPairMessageOrderingIsFIFO(t *testing.T) {
	sys := NewActorSystem(4)
	defer func() {
		sys.RequestShutdown()
		sys.WaitChildren()
	}()

	behavior, rec := newRecorderBehavior("sink")
	pid := sys.Spawn("sink", behavior)

	const n = 200
	for i := 0; i < n; i++ {
		require.NoError(t, sys.Send(nil, pid, i))
	}

	ok := waitFor(time.Second, func() bool { return len(rec.snapshot()) == n })
	require.True(t, ok, "expected all %d messages to be delivered", n)

	got := rec.snapshot()
	for i, v := range got {
		assert.Equal(t, i, v, "messages from one sender to one cell must arrive in send order")
	}
}

// quietChild implements Stopper so tests can observe OnStop firing.
type quietChild struct {
	onStop func()
}

func (c *quietChild) Receive(ctx Context) {}
func (c *quietChild) OnStop(ctx Context)  { c.onStop() }

// TestSiblingsAllStopOnShutdown checks the complete-but-unordered
// guarantee: every root child reports Stopped exactly once by the time
// WaitChildren returns, regardless of the order the dispatcher happens
// to drain them in.
func TestSiblingsAllStopOnShutdown(t *testing.T) {
	sys := NewActorSystem(3)

	const siblings = 8
	var stopped atomic.Int32
	for i := 0; i < siblings; i++ {
		sys.Spawn("sibling", NewBehavior("sibling", func() Actor {
			return &quietChild{onStop: func() { stopped.Add(1) }}
		}))
	}

	ok := waitFor(time.Second, func() bool { return sys.root.numChildren() == siblings })
	require.True(t, ok, "all siblings should have finished starting before shutdown begins")

	sys.RequestShutdown()
	live := sys.WaitChildren()
	assert.Equal(t, siblings, live, "WaitChildren should report the child count observed at shutdown")

	select {
	case <-sys.Done():
	case <-time.After(time.Second):
		t.Fatal("system never finished shutting down")
	}

	assert.EqualValues(t, siblings, stopped.Load(), "every sibling must report OnStop exactly once")
}

// affinityProbe records, under its own lock, every Worker index it has
// ever been run on.
type affinityProbe struct {
	system   *ActorSystem
	mu       sync.Mutex
	observed map[int]struct{}
}

func (a *affinityProbe) Receive(ctx Context) {
	cell := a.system.lookupCell(ctx.Self())
	a.mu.Lock()
	a.observed[cell.Worker()] = struct{}{}
	a.mu.Unlock()
}

func TestAffinityKeepsACellOnOneWorker(t *testing.T) {
	sys := NewActorSystem(4, WithDefaultAffinity(true))
	defer func() {
		sys.RequestShutdown()
		sys.WaitChildren()
	}()

	probe := &affinityProbe{system: sys, observed: make(map[int]struct{})}
	pid := sys.Spawn("pinned", NewBehavior("pinned", func() Actor { return probe }))

	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, sys.Send(nil, pid, i))
	}

	ok := waitFor(time.Second, func() bool {
		probe.mu.Lock()
		defer probe.mu.Unlock()
		return len(probe.observed) > 0
	})
	require.True(t, ok)

	time.Sleep(50 * time.Millisecond)

	probe.mu.Lock()
	defer probe.mu.Unlock()
	assert.Len(t, probe.observed, 1, "an affine cell must run on exactly one worker for its whole life")
}

func TestThroughputBoundsMessagesPerVisit(t *testing.T) {
	sys := NewActorSystem(1, WithThroughput(3))
	defer func() {
		sys.RequestShutdown()
		sys.WaitChildren()
	}()

	behavior, rec := newRecorderBehavior("slow")
	pid := sys.Spawn("slow", behavior)

	const n = 30
	for i := 0; i < n; i++ {
		require.NoError(t, sys.Send(nil, pid, i))
	}

	ok := waitFor(time.Second, func() bool { return len(rec.snapshot()) == n })
	require.True(t, ok, "all messages should eventually be delivered across several re-dispatched visits")
}

// slowActor sleeps long enough that a wall-clock deadline, not the
// message-count throughput, is what ends a visit early.
type slowActor struct {
	seen *int32
}

func (s *slowActor) Receive(ctx Context) {
	atomic.AddInt32(s.seen, 1)
	time.Sleep(5 * time.Millisecond)
}

func TestThroughputDeadlineEndsAVisitEarly(t *testing.T) {
	sys := NewActorSystem(1, WithThroughput(1000), WithThroughputDeadline(10*time.Millisecond))
	defer func() {
		sys.RequestShutdown()
		sys.WaitChildren()
	}()

	var seen int32
	pid := sys.Spawn("slow", NewBehavior("slow", func() Actor { return &slowActor{seen: &seen} }))

	const n = 10
	for i := 0; i < n; i++ {
		require.NoError(t, sys.Send(nil, pid, i))
	}

	ok := waitFor(2*time.Second, func() bool { return atomic.LoadInt32(&seen) == n })
	require.True(t, ok, "every message should eventually be processed across multiple deadline-bounded visits")
}

// TestSignalTriggersGracefulShutdown sends this process a real SIGTERM and
// checks the system's own handler (not the default OS action, which Go's
// runtime suppresses once signal.Notify is registered) drives the same
// shutdown path as RequestShutdown.
func TestSignalTriggersGracefulShutdown(t *testing.T) {
	sys := NewActorSystem(2)

	var stopped atomic.Bool
	sys.Spawn("child", NewBehavior("child", func() Actor {
		return &quietChild{onStop: func() { stopped.Store(true) }}
	}))

	ok := waitFor(time.Second, func() bool { return sys.root.numChildren() == 1 })
	require.True(t, ok, "child should have finished starting")

	go sys.WaitChildren()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case <-sys.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("system never shut down after SIGTERM")
	}
	assert.True(t, stopped.Load())
}
