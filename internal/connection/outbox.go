package connection

import (
	"sync"
)

// Outbox is a bounded FIFO of outbound frames for one session. It starts
// small and doubles its capacity when 70% full, up to maxCapacity. Push never
// blocks: a full outbox rejects the frame.
type Outbox[T any] struct {
	mu          sync.Mutex
	cond        *sync.Cond
	buf         []T
	head        int // read position
	tail        int // write position
	count       int
	capacity    int
	maxCapacity int
	closed      bool

	// Stats
	totalPushed int64
	totalPopped int64
	rejected    int64
	resizeCount int
}

// NewOutbox creates an outbox with the given initial and maximum capacity.
func NewOutbox[T any](initialCapacity, maxCapacity int) *Outbox[T] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	if maxCapacity < initialCapacity {
		maxCapacity = initialCapacity
	}
	o := &Outbox[T]{
		buf:         make([]T, initialCapacity),
		capacity:    initialCapacity,
		maxCapacity: maxCapacity,
	}
	o.cond = sync.NewCond(&o.mu)
	return o
}

// Push appends an item. Returns ErrConnectionClosed after Close and
// ErrOutboxFull when maxCapacity items are already queued.
func (o *Outbox[T]) Push(item T) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrConnectionClosed
	}
	if o.count >= o.maxCapacity {
		o.rejected++
		return ErrOutboxFull
	}

	threshold := (o.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if o.count+1 >= threshold && o.capacity < o.maxCapacity {
		o.grow()
	}

	o.buf[o.tail] = item
	o.tail = (o.tail + 1) % o.capacity
	o.count++
	o.totalPushed++

	o.cond.Signal()
	return nil
}

// Pop removes and returns the oldest item, blocking until one is available.
// Returns false once the outbox is closed; queued items are discarded.
func (o *Outbox[T]) Pop() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for o.count == 0 && !o.closed {
		o.cond.Wait()
	}

	if o.closed {
		var zero T
		return zero, false
	}
	return o.popLocked(), true
}

// TryPop removes the oldest item without blocking.
func (o *Outbox[T]) TryPop() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.count == 0 || o.closed {
		var zero T
		return zero, false
	}
	return o.popLocked(), true
}

// Close rejects further pushes and wakes any blocked Pop.
func (o *Outbox[T]) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.closed = true
	o.cond.Broadcast()
}

// Len returns the number of queued items.
func (o *Outbox[T]) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}

// Stats returns outbox statistics.
func (o *Outbox[T]) Stats() OutboxStats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return OutboxStats{
		Count:       o.count,
		Capacity:    o.capacity,
		MaxCapacity: o.maxCapacity,
		TotalPushed: o.totalPushed,
		TotalPopped: o.totalPopped,
		Rejected:    o.rejected,
		ResizeCount: o.resizeCount,
	}
}

// popLocked must be called with the lock held and count > 0.
func (o *Outbox[T]) popLocked() T {
	item := o.buf[o.head]
	var zero T
	o.buf[o.head] = zero // Clear reference for GC
	o.head = (o.head + 1) % o.capacity
	o.count--
	o.totalPopped++
	return item
}

// grow doubles the capacity, capped at maxCapacity. Must be called with lock held.
func (o *Outbox[T]) grow() {
	newCapacity := o.capacity * 2
	if newCapacity > o.maxCapacity {
		newCapacity = o.maxCapacity
	}
	newBuf := make([]T, newCapacity)

	if o.count > 0 {
		if o.head < o.tail {
			copy(newBuf, o.buf[o.head:o.tail])
		} else {
			// Wrapped: [head...end) + [0...tail)
			n := copy(newBuf, o.buf[o.head:])
			copy(newBuf[n:], o.buf[:o.tail])
		}
	}

	o.buf = newBuf
	o.head = 0
	o.tail = o.count
	o.capacity = newCapacity
	o.resizeCount++
}
