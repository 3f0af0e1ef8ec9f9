package catalog

import (
	"context"
	"sync"
	"time"
)

// workQueue is a FIFO of entry ids with de-duplication: an id is queued at
// most once, and an id added while it is being processed is queued again
// when processing finishes.
type workQueue struct {
	mu sync.Mutex

	queue      []string
	queued     map[string]bool
	processing map[string]bool
	dirty      map[string]bool

	cond         *sync.Cond
	shuttingDown bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{
		queued:     make(map[string]bool),
		processing: make(map[string]bool),
		dirty:      make(map[string]bool),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Add queues id unless it is already queued.
func (q *workQueue) Add(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shuttingDown {
		return
	}
	if q.processing[id] {
		q.dirty[id] = true
		return
	}
	if q.queued[id] {
		return
	}
	q.queue = append(q.queue, id)
	q.queued[id] = true
	q.cond.Signal()
}

// Get blocks until an id is available. It returns false once the queue is
// shut down or ctx is done.
func (q *workQueue) Get(ctx context.Context) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.queue) == 0 && !q.shuttingDown {
		if ctx.Err() != nil {
			return "", false
		}

		// Wake the waiter when ctx ends; done releases the helper on a
		// normal wakeup.
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				q.mu.Lock()
				q.cond.Broadcast()
				q.mu.Unlock()
			case <-done:
			}
		}()

		q.cond.Wait()
		close(done)

		if ctx.Err() != nil {
			return "", false
		}
	}

	if q.shuttingDown {
		return "", false
	}

	id := q.queue[0]
	q.queue = q.queue[1:]
	delete(q.queued, id)
	q.processing[id] = true
	return id, true
}

// Done marks id as processed.
func (q *workQueue) Done(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.processing, id)
	if q.dirty[id] {
		delete(q.dirty, id)
		if !q.queued[id] && !q.shuttingDown {
			q.queue = append(q.queue, id)
			q.queued[id] = true
			q.cond.Signal()
		}
	}
}

// Forget drops a queued id.
func (q *workQueue) Forget(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.dirty, id)
	if !q.queued[id] {
		return
	}
	delete(q.queued, id)
	for i, queued := range q.queue {
		if queued == id {
			q.queue = append(q.queue[:i], q.queue[i+1:]...)
			break
		}
	}
}

// Len returns the number of queued ids.
func (q *workQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// Shutdown wakes all waiters and rejects further work.
func (q *workQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.shuttingDown = true
	q.cond.Broadcast()
}

// delayedQueue adds AddAfter to a workQueue.
type delayedQueue struct {
	*workQueue

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

func newDelayedQueue() *delayedQueue {
	return &delayedQueue{
		workQueue: newWorkQueue(),
		timers:    make(map[string]*time.Timer),
	}
}

// AddAfter queues id once delay has passed. A later call for the same id
// replaces the pending one.
func (d *delayedQueue) AddAfter(id string, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if timer, ok := d.timers[id]; ok {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		current := d.timers[id] == timer
		if current {
			delete(d.timers, id)
		}
		stopped := d.stopped
		d.mu.Unlock()

		if current && !stopped {
			d.workQueue.Add(id)
		}
	})
	d.timers[id] = timer
}

// Forget drops id whether it is queued or waiting on a delay.
func (d *delayedQueue) Forget(id string) {
	d.mu.Lock()
	if timer, ok := d.timers[id]; ok {
		timer.Stop()
		delete(d.timers, id)
	}
	d.mu.Unlock()
	d.workQueue.Forget(id)
}

// Delayed returns the number of ids waiting on a delay.
func (d *delayedQueue) Delayed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// Shutdown stops pending timers and the underlying queue.
func (d *delayedQueue) Shutdown() {
	d.mu.Lock()
	d.stopped = true
	for _, timer := range d.timers {
		timer.Stop()
	}
	d.timers = make(map[string]*time.Timer)
	d.mu.Unlock()

	d.workQueue.Shutdown()
}
