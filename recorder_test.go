package ripple

import (
	"sync"
	"time"
)

// recorder is a behavior that appends every message it receives; tests
// poll its snapshot rather than synchronizing directly with the actor
// goroutine, the pattern used throughout this module's scenario tests.
type recorder struct {
	mu       sync.Mutex
	messages []interface{}
	senders  []*PID
}

func (r *recorder) Receive(ctx Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, ctx.Message())
	r.senders = append(r.senders, ctx.Sender())
}

func (r *recorder) snapshot() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interface{}, len(r.messages))
	copy(out, r.messages)
	return out
}

func newRecorderBehavior(name string) (*Behavior, *recorder) {
	rec := &recorder{}
	return NewBehavior(name, func() Actor { return rec }), rec
}

// waitFor polls cond every 2ms until it returns true or timeout elapses,
// reporting whether cond was observed true.
func waitFor(timeout time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(2 * time.Millisecond)
	}
}
