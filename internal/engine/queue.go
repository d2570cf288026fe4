package engine

import (
	"sync"

	"github.com/vk/taskgridgo/internal/graph"
)

// readyQueue is the FIFO of nodes whose parents have all completed in the
// current cycle. A mutex guards the slice; a condition variable serves
// blocked workers. FIFO is a fairness property, not a correctness one, but
// it makes single-worker traces reproducible.
type readyQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []*graph.Node
	closed bool
}

func newReadyQueue() *readyQueue {
	q := &readyQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends a node and wakes all waiters. Broadcast rather than Signal:
// a push while workers are already running is harmless (they re-check the
// predicate), and close relies on the same broadcast reaching everyone.
func (q *readyQueue) push(n *graph.Node) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
	q.cond.Broadcast()
}

// pop blocks until a node is available or the queue is closed. It returns
// ok == false on a closed queue. Waiters re-check both predicates after
// every wake, so spurious wake-ups are safe.
func (q *readyQueue) pop() (*graph.Node, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}
	n := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	return n, true
}

// close marks the queue inactive and wakes every waiter so workers can exit.
func (q *readyQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

func (q *readyQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
