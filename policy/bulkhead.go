package policy

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// BulkheadConfig configures a bulkhead.
type BulkheadConfig[T any] struct {
	// MaxConcurrency is the number of execution slots. Default: 10.
	MaxConcurrency int

	// MaxQueue bounds how many callers may wait for a slot. Default: 0
	// (no queue: reject as soon as all slots are taken).
	MaxQueue int

	// OnRejected is called synchronously when a call is turned away.
	OnRejected func(ec *Context)
}

// Bulkhead caps concurrent executions and parks overflow callers in a
// bounded FIFO queue, so one slow dependency cannot exhaust the process.
type Bulkhead[T any] struct {
	maxConcurrency int
	maxQueue       int
	onRejected     func(*Context)

	// slots is the execution slot pool. semaphore.Weighted wakes blocked
	// acquirers in FIFO order, which gives queued callers their fairness.
	slots *semaphore.Weighted

	mu     sync.Mutex
	active int
	queued int
}

// NewBulkhead creates a bulkhead.
func NewBulkhead[T any](config BulkheadConfig[T]) *Bulkhead[T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	if config.MaxQueue < 0 {
		config.MaxQueue = 0
	}
	return &Bulkhead[T]{
		maxConcurrency: config.MaxConcurrency,
		maxQueue:       config.MaxQueue,
		onRejected:     config.OnRejected,
		slots:          semaphore.NewWeighted(int64(config.MaxConcurrency)),
	}
}

// Execute acquires a slot (queueing if configured), runs op, and releases
// the slot on every exit path. A full queue rejects immediately with
// ErrBulkheadRejected; a cancelled queued wait surfaces the context error.
func (b *Bulkhead[T]) Execute(ctx context.Context, ec *Context, op Operation[T]) Outcome[T] {
	if err := b.acquire(ctx, ec); err != nil {
		return Fault[T](err)
	}
	defer b.release()

	return op(ctx, ec)
}

func (b *Bulkhead[T]) acquire(ctx context.Context, ec *Context) error {
	if b.slots.TryAcquire(1) {
		b.mu.Lock()
		b.active++
		b.mu.Unlock()
		return nil
	}

	// All slots taken: join the queue if there is room.
	b.mu.Lock()
	if b.queued >= b.maxQueue {
		b.mu.Unlock()
		if b.onRejected != nil {
			b.onRejected(ec)
		}
		return ErrBulkheadRejected
	}
	b.queued++
	b.mu.Unlock()

	err := b.slots.Acquire(ctx, 1)

	b.mu.Lock()
	b.queued--
	if err == nil {
		b.active++
	}
	b.mu.Unlock()

	return err
}

func (b *Bulkhead[T]) release() {
	b.mu.Lock()
	b.active--
	b.mu.Unlock()
	b.slots.Release(1)
}

// BulkheadMetrics is a read-only snapshot of bulkhead occupancy.
type BulkheadMetrics struct {
	MaxConcurrency int
	MaxQueue       int
	Active         int
	Queued         int
	FreeSlots      int
	FreeQueue      int
}

// Metrics returns current availability counts for observability.
func (b *Bulkhead[T]) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadMetrics{
		MaxConcurrency: b.maxConcurrency,
		MaxQueue:       b.maxQueue,
		Active:         b.active,
		Queued:         b.queued,
		FreeSlots:      b.maxConcurrency - b.active,
		FreeQueue:      b.maxQueue - b.queued,
	}
}
