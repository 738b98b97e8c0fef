package ripple

// Actor is the interface a behavior's handlers are invoked through. A
// fresh Actor value is produced per ActorCell by a Producer; state lives
// on the concrete type implementing this interface and is never touched
// by more than one goroutine at a time — single-threaded per cell.
type Actor interface {
	// Receive handles every message except two lifecycle messages: the
	// initial Start, which routes to OnStart instead, and Stop, which the
	// runtime handles itself by beginning the cell's shutdown. Stop is
	// never seen by Receive.
	Receive(ctx Context)
}

// Starter is an optional interface an Actor may implement to run
// initialization logic exactly once, before any other message. Behaviors
// that don't need start-time setup can skip it.
type Starter interface {
	OnStart(ctx Context)
}

// Stopper is an optional interface an Actor may implement to run cleanup
// logic exactly once, after the cell has no remaining children and right
// before it sends Stopped to its parent.
type Stopper interface {
	OnStop(ctx Context)
}

// Producer constructs a new Actor instance. It is called exactly once per
// ActorCell, lazily, the first time the cell is scheduled to run its
// Start message — mirroring bollywood.Producer's lazy-construction shape.
type Producer func() Actor

// Behavior is the immutable, sharable description of an actor kind: a
// display name plus the Producer that instantiates state for each cell
// created with it. Bundles a name with a Producer, minus the
// byte-size fields the C original needs for manual allocation — Go's
// Producer closure captures whatever typed params/state a behavior
// author wants, so there is nothing to size in advance.
type Behavior struct {
	Name     string
	Producer Producer
}

// NewBehavior builds a Behavior from a name and a Producer.
func NewBehavior(name string, producer Producer) *Behavior {
	if producer == nil {
		panic("ripple: behavior producer cannot be nil")
	}
	return &Behavior{Name: name, Producer: producer}
}
