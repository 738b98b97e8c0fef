package ripple

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// CellState is the coarse state machine an ActorCell moves through. It
// exists mainly for introspection/testing; the actual control flow is
// driven by the stopping flag, the live children count, and whether the
// actor instance has been produced yet.
type CellState int32

const (
	CellStarting CellState = iota
	CellRunning
	CellStopping
	CellStopped
)

// ActorCell is the runtime instance of one actor: its mailbox, its place
// in the supervision tree, and its scheduling handshake state. It is the
// unit the Dispatcher and Worker operate on.
type ActorCell struct {
	pid      *PID
	behavior *Behavior
	system   *ActorSystem

	actor Actor

	parent *ActorCell

	cMu      sync.Mutex
	children map[uint64]*ActorCell

	mailbox *mailbox

	idle     atomic.Bool
	affinity bool
	worker   int32 // -1 == unassigned

	lifecycle atomic.Int32
	stopping  bool // only touched from this cell's own worker goroutine
	stopSelf  atomic.Bool

	log *zap.Logger
}

func newActorCell(system *ActorSystem, parent *ActorCell, pid *PID, behavior *Behavior, affinity bool) *ActorCell {
	c := &ActorCell{
		pid:      pid,
		behavior: behavior,
		system:   system,
		parent:   parent,
		children: make(map[uint64]*ActorCell),
		mailbox:  newMailbox(system.config.MailboxCapacity),
		affinity: affinity,
		worker:   -1,
		log:      system.log,
	}
	c.idle.Store(true)
	c.lifecycle.Store(int32(CellStarting))
	return c
}

func (c *ActorCell) addChild(child *ActorCell) {
	c.cMu.Lock()
	c.children[child.pid.id] = child
	c.cMu.Unlock()
}

func (c *ActorCell) removeChild(child *ActorCell) bool {
	c.cMu.Lock()
	_, ok := c.children[child.pid.id]
	if ok {
		delete(c.children, child.pid.id)
	}
	c.cMu.Unlock()
	return ok
}

// snapshotChildren returns a stable copy of the live children, so callers
// that broadcast to them are not disrupted by concurrent additions
// while it runs.
func (c *ActorCell) snapshotChildren() []*ActorCell {
	c.cMu.Lock()
	defer c.cMu.Unlock()
	out := make([]*ActorCell, 0, len(c.children))
	for _, ch := range c.children {
		out = append(out, ch)
	}
	return out
}

func (c *ActorCell) numChildren() int {
	c.cMu.Lock()
	defer c.cMu.Unlock()
	return len(c.children)
}

// setScheduled is the dispatcher side of the idle<->scheduled handshake:
// CAS idle true->false. Returns false if the cell was already scheduled,
// in which case the caller must not enqueue it again.
func (c *ActorCell) setScheduled() bool {
	return c.idle.CompareAndSwap(true, false)
}

// setIdle is the worker side of the handshake: CAS idle false->true,
// called once a visit's throughput/deadline budget is exhausted and the
// cell was not freed.
func (c *ActorCell) setIdle() bool {
	return c.idle.CompareAndSwap(false, true)
}

func (c *ActorCell) isEmpty() bool { return c.mailbox.isEmpty() }

func (c *ActorCell) Affinity() bool      { return c.affinity }
func (c *ActorCell) Worker() int         { return int(atomic.LoadInt32(&c.worker)) }
func (c *ActorCell) setWorker(w int)     { atomic.StoreInt32(&c.worker, int32(w)) }
func (c *ActorCell) PID() *PID           { return c.pid }
func (c *ActorCell) Name() string        { return c.pid.name }
func (c *ActorCell) State() CellState { return CellState(c.lifecycle.Load()) }

// process pulls exactly one message from the mailbox and dispatches it
// per the cell's lifecycle. It reports keepGoing == false iff the cell
// was freed during this call (its terminal Stopped send to its parent
// already happened); the caller (a Worker) must not touch the cell again
// once that happens.
func (c *ActorCell) process() (keepGoing bool) {
	msg := c.mailbox.pull()
	if msg == nil {
		return true
	}
	return c.receive(msg)
}

func (c *ActorCell) receive(msg *Message) (keepGoing bool) {
	defer func() {
		if r := recover(); r != nil {
			if c.log != nil {
				c.log.Error("actor panicked",
					zap.String("cell", c.pid.String()),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
			}
			c.notifyParentOfFailure(r)
			keepGoing = false
		}
	}()

	if c.log != nil {
		from := "<external>"
		if msg.From != nil {
			from = msg.From.String()
		}
		c.log.Debug("receive",
			zap.String("from", from),
			zap.String("to", c.pid.String()),
			zap.String("message_type", msg.Type.Name),
			zap.String("trace_id", msg.TraceID()),
		)
	}

	if msg.Type == typeStart {
		c.handleStart(msg)
		return true
	}

	if msg.Type == typeStop {
		c.beginStopping()
		return c.maybeTerminate(msg)
	}

	c.invokeReceive(msg)

	if msg.Type == typeStopped {
		c.handleChildStopped(msg)
	}

	if c.stopSelf.Load() {
		c.beginStopping()
	}

	return c.maybeTerminate(msg)
}

func (c *ActorCell) handleStart(msg *Message) {
	c.actor = c.behavior.Producer()
	c.lifecycle.Store(int32(CellRunning))
	if starter, ok := c.actor.(Starter); ok {
		ctx := &context{system: c.system, cell: c, sender: msg.From, message: Started{}}
		starter.OnStart(ctx)
	}
}

func (c *ActorCell) invokeReceive(msg *Message) {
	ctx := &context{system: c.system, cell: c, sender: msg.From, message: msg.Payload}
	c.actor.Receive(ctx)
}

// beginStopping sets the stopping latch and broadcasts Stop to every
// child, exactly once; receiving Stop while already stopping is a no-op.
func (c *ActorCell) beginStopping() {
	if c.stopping {
		return
	}
	c.stopping = true
	c.lifecycle.Store(int32(CellStopping))
	for _, child := range c.snapshotChildren() {
		c.system.sendRaw(c, child, typeStop, nil)
	}
}

// handleChildStopped unlinks and forgets a child that reported Stopped.
// A Stopped from an unknown sender is ignored. Unlinking happens before
// any stop_self-driven transition below it in receive.
func (c *ActorCell) handleChildStopped(msg *Message) {
	if msg.From == nil {
		return
	}
	child := c.system.lookupCell(msg.From)
	if child == nil || !c.removeChild(child) {
		return
	}
	c.system.forgetCell(child.pid)
}

// maybeTerminate fires on_stop and emits Stopped to the parent once this
// cell is stopping and has no remaining children. Returns false when that
// happened — the cell is now finished and must not be processed again.
func (c *ActorCell) maybeTerminate(msg *Message) bool {
	if !c.stopping || c.numChildren() != 0 {
		return true
	}
	c.lifecycle.Store(int32(CellStopped))
	if stopper, ok := c.actor.(Stopper); ok {
		ctx := &context{system: c.system, cell: c, sender: msg.From, message: msg.Payload}
		stopper.OnStop(ctx)
	}
	if c.parent != nil {
		c.system.sendRaw(c, c.parent, typeStopped, Stopped{})
	}
	c.mailbox.drain()
	if c.log != nil {
		c.log.Debug("cell terminated", zap.String("cell", c.pid.String()))
	}
	return false
}

func (c *ActorCell) notifyParentOfFailure(reason interface{}) {
	c.lifecycle.Store(int32(CellStopped))
	if c.parent != nil {
		c.system.sendRaw(c, c.parent, typeFailure, Failure{Who: c.pid, Reason: reason})
		c.system.sendRaw(c, c.parent, typeStopped, Stopped{})
	}
	c.mailbox.drain()
}
