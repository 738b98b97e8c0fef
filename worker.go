package ripple

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

// backoffAttempts bounds the dispatcher's blocking retry when a worker's
// runqueue is momentarily full, before ErrRunqueueFull is surfaced to the
// caller, rather than dropping the dispatch or blocking forever.
const backoffAttempts = 5

// Worker is one goroutine draining actor cells in bounded batches. It
// stands in for the C original's dedicated OS thread: Go's scheduler
// multiplexes goroutines onto OS threads for us, so there is no manual
// pthread_create/pthread_setaffinity_np here, but the batching contract —
// throughput count and optional wall-clock deadline per visit — is the
// same (original_source/actors/worker.c worker_run).
type Worker struct {
	dispatcher *Dispatcher
	index      int
	core       int // logical core index, recorded for introspection/logging only
	runqueue   chan *ActorCell
	stopCh     chan struct{}
	throughput int
	deadline   time.Duration
	log        *zap.Logger
}

func newWorker(d *Dispatcher, index int, cfg Config, log *zap.Logger) *Worker {
	cores := runtime.NumCPU()
	if cores == 0 {
		cores = 1
	}
	return &Worker{
		dispatcher: d,
		index:      index,
		core:       index % cores,
		runqueue:   make(chan *ActorCell, cfg.WorkerRunqueueCapacity),
		stopCh:     make(chan struct{}),
		throughput: cfg.Throughput,
		deadline:   cfg.ThroughputDeadline,
		log:        log,
	}
}

// enqueue places cell on this worker's runqueue. A full runqueue is
// retried a bounded number of times with a short, increasing backoff
// before ErrRunqueueFull is returned; the cell is never lost in that case,
// since the dispatcher returns it to idle and its mailbox retains
// whatever message triggered this dispatch.
func (w *Worker) enqueue(cell *ActorCell) error {
	backoff := time.Microsecond
	for attempt := 0; attempt < backoffAttempts; attempt++ {
		select {
		case w.runqueue <- cell:
			return nil
		default:
		}
		select {
		case <-w.stopCh:
			return ErrSystemStopping
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	select {
	case w.runqueue <- cell:
		return nil
	default:
		return ErrRunqueueFull
	}
}

// run is the worker's main loop: one iteration visits one cell, the same
// shape as worker_run's `while (!stop)` loop, with the mutex+condvar
// wakeup translated into a channel receive.
func (w *Worker) run() {
	for {
		var cell *ActorCell
		select {
		case <-w.stopCh:
			return
		case cell = <-w.runqueue:
		}

		w.visit(cell)
	}
}

func (w *Worker) visit(cell *ActorCell) {
	left := w.throughput
	if left <= 0 {
		left = 1
	}

	var deadline time.Time
	hasDeadline := w.deadline > 0
	if hasDeadline {
		deadline = time.Now().Add(w.deadline)
	}

	keepGoing := true
	for keepGoing && left > 0 && (!hasDeadline || time.Now().Before(deadline)) {
		keepGoing = cell.process()
		left--
	}

	if !keepGoing {
		// The cell was freed during process(); never touch it again.
		return
	}

	cell.setIdle()
	if !cell.isEmpty() {
		// Lost-wakeup avoidance: a push that landed
		// between our last process() and setIdle() is caught by this
		// emptiness check; a push landing after this check observes
		// idle==true and re-dispatches itself.
		_ = w.dispatcher.dispatch(cell)
	}
}

func (w *Worker) stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
}
