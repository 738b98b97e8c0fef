package ripple

import "errors"

// Error taxonomy for the runtime. Allocation failure is not modeled — Go's
// allocator does not fail under ordinary operating conditions — so there
// is no equivalent of the C original's "abort-or-surface" choice to make.
var (
	// ErrMailboxFull is returned by ActorSystem.Send when the target
	// cell's mailbox is at capacity. The message is not queued; the
	// caller decides whether to retry, drop, or escalate. Context.Send
	// does not return errors, so a message it sends to a full mailbox is
	// not queued and the handler is not told.
	ErrMailboxFull = errors.New("ripple: mailbox full")

	// ErrRunqueueFull is returned when a worker's runqueue could not
	// accept a cell even after the dispatcher retries with a bounded
	// backoff. The cell itself is not lost: it is returned to idle with
	// its mailbox intact and is dispatched again on the next message sent
	// to it.
	ErrRunqueueFull = errors.New("ripple: worker runqueue full")

	// ErrSystemStopping is returned by Send once the ActorSystem's root
	// cell has stopped, and by a worker's enqueue once that worker has
	// been stopped. Spawn reports the same condition by returning a nil
	// PID.
	ErrSystemStopping = errors.New("ripple: actor system is stopping")

	// ErrActorNotFound is returned when a PID no longer maps to a live
	// cell — it has already been fully stopped and freed.
	ErrActorNotFound = errors.New("ripple: actor not found")
)
