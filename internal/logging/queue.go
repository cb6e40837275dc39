package logging

import (
	"errors"
	"sync"

	"github.com/kronform/runtime/internal/constants"
)

// ErrQueueFull is returned by Enqueue when the bounded queue has no room;
// callers fall back to the console formatter.
var ErrQueueFull = errors.New("logging: queue full")

// Queue is the external-collaborator contract of spec.md §6: an opaque
// FIFO addressed by name, supporting a bounded, non-blocking enqueue and a
// blocking dequeue for the single consumer goroutine. Producers never
// block on Enqueue; a Go buffered channel already gives enqueue-signals-
// consumer semantics for free, so no separate condition variable is
// needed the way the source's C implementation required one.
type Queue interface {
	Name() string
	Enqueue(payload []byte, priority Priority) error
	Dequeue() (payload []byte, priority Priority, ok bool)
	Size() int
	Close()
}

type queuedItem struct {
	payload  []byte
	priority Priority
}

// memQueue is the default in-process Queue implementation, named
// "SystemLog" by convention and registered automatically by NewPipeline.
// Grounded on the teacher's internal/queue.Runner: a single dedicated
// consumer drains a bounded channel; Close drains and stops accepting
// rather than discarding what is already queued.
type memQueue struct {
	name string
	ch   chan queuedItem

	closeOnce sync.Once
	closed    chan struct{}
}

// NewMemQueue creates a bounded in-process queue with the given capacity.
func NewMemQueue(name string, capacity int) Queue {
	if capacity <= 0 {
		capacity = constants.LogQueueCapacity
	}
	return &memQueue{
		name:   name,
		ch:     make(chan queuedItem, capacity),
		closed: make(chan struct{}),
	}
}

func (q *memQueue) Name() string { return q.name }

func (q *memQueue) Enqueue(payload []byte, priority Priority) error {
	select {
	case <-q.closed:
		return ErrQueueFull
	default:
	}

	select {
	case q.ch <- queuedItem{payload: payload, priority: priority}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Dequeue blocks until an item is available or the queue is closed and
// drained, in which case ok is false. ch itself is never closed — only
// closed is — so a producer racing Close in Enqueue can never send on a
// closed channel; Dequeue instead always prefers a buffered item over
// reporting closure, so every item enqueued before Close observably
// drains before the consumer exits.
func (q *memQueue) Dequeue() ([]byte, Priority, bool) {
	select {
	case item := <-q.ch:
		return item.payload, item.priority, true
	default:
	}

	select {
	case item := <-q.ch:
		return item.payload, item.priority, true
	case <-q.closed:
		select {
		case item := <-q.ch:
			return item.payload, item.priority, true
		default:
			return nil, All, false
		}
	}
}

func (q *memQueue) Size() int {
	return len(q.ch)
}

// Close stops accepting new items, once the closed guard is observed by
// Enqueue, and signals Dequeue to exit after draining what remains. ch is
// deliberately never closed: a producer can observe closed as not-yet-set
// and still be about to send on ch when Close runs, and closing ch out
// from under it would panic.
func (q *memQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.closed)
	})
}

// QueueRegistry is the "find-by-name" half of the log queue contract
// (spec.md §6): the entry point looks up the literal name "SystemLog"
// rather than holding a direct reference, so an external collaborator
// could register a different queue implementation under the same name.
type QueueRegistry struct {
	mu     sync.RWMutex
	byName map[string]Queue
}

// NewQueueRegistry returns an empty queue registry.
func NewQueueRegistry() *QueueRegistry {
	return &QueueRegistry{byName: make(map[string]Queue)}
}

// Register adds or replaces the queue addressed by q.Name().
func (r *QueueRegistry) Register(q Queue) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byName[q.Name()] = q
}

// Find looks up a queue by name, returning ok=false if none is
// registered under that name.
func (r *QueueRegistry) Find(name string) (Queue, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.byName[name]
	return q, ok
}

// SystemLogQueueName is the literal queue name spec.md §4.2.1 step 10
// looks up.
const SystemLogQueueName = "SystemLog"
