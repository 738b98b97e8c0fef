package ripple

// Context provides a handler with everything it needs to interact with
// the runtime while processing exactly one message: who sent it, who it
// is addressed to, the message itself, and the ability to send further
// messages, spawn children, or request self-termination.
type Context interface {
	// System returns the ActorSystem this cell belongs to.
	System() *ActorSystem
	// Self returns the PID of the cell processing this message.
	Self() *PID
	// Sender returns the PID of the cell that sent this message, or nil
	// for messages originating outside the actor tree (e.g. the
	// synthetic Start sent by a cell's own creation).
	Sender() *PID
	// Message returns the message being processed.
	Message() interface{}
	// Send delivers msg to to, asynchronously, as if sent from Self().
	// Failures (full mailbox, unknown target, stopped system) are not
	// reported to the handler; the message is then not delivered.
	Send(to *PID, msg interface{})
	// Spawn creates a child of Self() running behavior, and returns its
	// PID once Start has been enqueued for delivery.
	Spawn(name string, behavior *Behavior) *PID
	// StopSelf latches a self-termination request, effective once the
	// current handler call returns.
	StopSelf()
}

// context is the concrete Context handed to a handler for the duration of
// a single Receive/OnStart/OnStop call. It is not retained past that call.
type context struct {
	system  *ActorSystem
	cell    *ActorCell
	sender  *PID
	message interface{}
}

func (c *context) System() *ActorSystem     { return c.system }
func (c *context) Self() *PID               { return c.cell.pid }
func (c *context) Sender() *PID             { return c.sender }
func (c *context) Message() interface{}     { return c.message }

func (c *context) Send(to *PID, msg interface{}) {
	c.system.sendTyped(c.cell.pid, to, msg)
}

func (c *context) Spawn(name string, behavior *Behavior) *PID {
	return c.system.spawnChild(c.cell, name, behavior)
}

func (c *context) StopSelf() {
	c.cell.stopSelf.Store(true)
}
