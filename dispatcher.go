package ripple

import (
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dispatcher chooses a Worker for each runnable ActorCell and enqueues it
// there, honoring affinity/pinning. It is grounded on
// original_source/actors/dispatcher.c's dispatcher_dispatch/
// dispatcher_execute, expressed with an atomic CAS loop exactly as the C
// source does for its round-robin cursor. Worker-pool lifecycle (start
// every worker goroutine, then join all of them on shutdown) is managed
// with golang.org/x/sync/errgroup rather than a hand-rolled WaitGroup.
type Dispatcher struct {
	workers       []*Worker
	currentWorker atomic.Int64
	log           *zap.Logger
	group         *errgroup.Group
}

func newDispatcher(cfg Config, log *zap.Logger) *Dispatcher {
	d := &Dispatcher{log: log}
	d.workers = make([]*Worker, cfg.NumWorkers)
	for i := range d.workers {
		d.workers[i] = newWorker(d, i, cfg, log)
	}
	return d
}

func (d *Dispatcher) start() {
	d.group = &errgroup.Group{}
	for _, w := range d.workers {
		w := w
		d.group.Go(func() error {
			w.run()
			return nil
		})
	}
}

// stop signals every worker to drain to its current cell boundary and
// exit, then joins all of them.
func (d *Dispatcher) stop() {
	for _, w := range d.workers {
		w.stop()
	}
	if d.group != nil {
		_ = d.group.Wait()
	}
}

// dispatch attempts to move cell from idle to scheduled. If another
// thread already scheduled it, this is a no-op: that thread (or the
// worker currently draining the cell) is responsible for re-running it.
func (d *Dispatcher) dispatch(cell *ActorCell) error {
	if !cell.setScheduled() {
		return nil
	}
	return d.execute(cell)
}

func (d *Dispatcher) execute(cell *ActorCell) error {
	worker := cell.Worker()
	undefinedWorker := worker < 0

	if !cell.Affinity() || undefinedWorker {
		worker = d.nextWorker()
	}

	cell.setWorker(worker)

	if d.log != nil {
		d.log.Debug("dispatch",
			zap.String("cell", cell.pid.String()),
			zap.Int("worker", worker),
		)
	}

	if err := d.workers[worker].enqueue(cell); err != nil {
		// The cell is on no runqueue: return it to idle so the next
		// dispatch (e.g. from the next send to it) schedules it again.
		cell.setIdle()
		return err
	}
	return nil
}

// nextWorker advances the round-robin cursor by one, mod the worker
// count, via a CAS loop — the same construction as dispatcher_execute in
// original_source/actors/dispatcher.c. It is not perfectly fair under
// contention, but over many dispatches each worker receives roughly an
// equal share.
func (d *Dispatcher) nextWorker() int {
	n := int64(len(d.workers))
	for {
		cur := d.currentWorker.Load()
		next := (cur + 1) % n
		if d.currentWorker.CompareAndSwap(cur, next) {
			return int(next)
		}
	}
}
