package ripple

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

var msgTypeCounter uint64

// MessageType is a process-wide static descriptor for a kind of message:
// a display name plus a dense, stable integer id assigned once per type
// (original_source/actors/msg_type.c: an atomic counter plus a
// once-guarded "registered" flag), suitable for implementers who want an
// O(1) dispatch-table lookup keyed by id instead of a Go type switch.
// Registration always initializes id from the canonical MessageType value
// itself — it does not reproduce the self-assignment typo in
// original_source/actors/actor_type.c (`*typePtr = (ActorType *)typePtr`).
type MessageType struct {
	Name string

	once sync.Once
	id   uint64
}

// ID returns the dense id assigned to this type, registering it on first
// use. The id is stable for the remaining lifetime of the process.
func (t *MessageType) ID() uint64 {
	t.once.Do(func() {
		t.id = atomic.AddUint64(&msgTypeCounter, 1)
	})
	return t.id
}

// Internal system MessageTypes drive the lifecycle switch in cell.go; the
// payload the user's handler actually observes via Context.Message() is
// one of the exported structs below (Started, Stopped, Failure, ...),
// matching bollywood's Started/Stopping/Stopped vocabulary rather than
// hiding everything behind MessageType indirection.
var (
	typeStart   = &MessageType{Name: "Start"}
	typeStop    = &MessageType{Name: "Stop"}
	typeStopped = &MessageType{Name: "Stopped"}
	typeFailure = &MessageType{Name: "Failure"}
	typeUser    = &MessageType{Name: "User"}

	typeInit   = &MessageType{Name: "Init"}
	typeClose  = &MessageType{Name: "Close"}
	typeClosed = &MessageType{Name: "Closed"}
	typeDone   = &MessageType{Name: "Done"}
)

func init() {
	for _, t := range []*MessageType{typeStart, typeStop, typeStopped, typeFailure, typeUser, typeInit, typeClose, typeClosed, typeDone} {
		t.ID()
	}
}

// Started is what Context.Message() returns inside a behavior's OnStart
// hook. It is never delivered through Receive: Start routes to OnStart
// instead.
type Started struct{}

// Stopped is delivered to a parent's Receive when a child reports it has
// finished stopping, immediately before the runtime unlinks that child
// from the parent's children.
type Stopped struct{}

// Failure is delivered to a parent when a child's handler panicked. The
// runtime does not restart the child; this is a notification only.
type Failure struct {
	Who    *PID
	Reason interface{}
}

// Init, Close, Closed, and Done are an optional, opt-in vocabulary for
// behaviors that want a symmetric two-phase shutdown handshake with a
// peer instead of driving Stop/Stopped directly. The runtime attaches no
// special behavior to them — they are ordinary user messages a behavior
// may Send and type-switch on like any other.
type Init struct{}
type Close struct{}
type Closed struct{}
type Done struct{}

// Message is the unit of communication between cells. It is heap-
// allocated on Send and becomes garbage once the receiving worker
// finishes processing it — there is no manual free step in Go, unlike the
// C original's msg_create/msg_free pair.
type Message struct {
	Type    *MessageType
	Payload interface{}
	From    *PID

	traceID string
}

func newMessage(from *PID, t *MessageType, payload interface{}) *Message {
	return &Message{
		Type:    t,
		Payload: payload,
		From:    from,
		traceID: uuid.NewString(),
	}
}

// TraceID is a per-message correlation id, used only for structured log
// fields — it has no effect on dispatch or
// ordering.
func (m *Message) TraceID() string {
	if m == nil {
		return ""
	}
	return m.traceID
}
