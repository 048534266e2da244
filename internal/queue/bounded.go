package queue

import (
	"sync"
	"time"
)

// Queue is a capacity-bounded blocking FIFO. Put blocks while the queue is
// full, Get blocks while it is empty. A single mutex guards both the item
// ring and the metrics counters; producers and consumers wait on separate
// condition variables so "full" and "empty" checks are always consistent
// with the actual length.
//
// Signaling wakes one waiter per state change. Item order is strict FIFO,
// but there is no fairness between waiters: under heavy contention a
// producer can lose the wakeup race repeatedly.
type Queue[I any] struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	items    []I
	capacity uint
	head     uint
	tail     uint
	count    uint

	totalPuts        uint64
	totalGets        uint64
	producerWaits    uint64
	consumerWaits    uint64
	producerWaitTime time.Duration
	consumerWaitTime time.Duration
}

// Metrics is a point-in-time snapshot of a queue's counters. Averages are
// zero when no wait of that kind has happened.
type Metrics struct {
	TotalPuts       uint64
	TotalGets       uint64
	ProducerWaits   uint64
	ConsumerWaits   uint64
	AvgProducerWait time.Duration
	AvgConsumerWait time.Duration
}

func New[I any](capacity uint) (*Queue[I], error) {
	if capacity == 0 {
		return nil, ErrZeroCapacity
	}

	q := &Queue[I]{
		items:    make([]I, capacity),
		capacity: capacity,
	}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)

	return q, nil
}

var _ Client[any] = (*Queue[any])(nil)

// Put appends item, blocking while the queue is full. A blocked call counts
// as one waiting episode no matter how many times it wakes and re-checks.
// The error is always nil; it exists so *Queue satisfies Client.
func (q *Queue[I]) Put(item I) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	var waitStart time.Time
	waited := false
	for q.count == q.capacity {
		if !waited {
			waited = true
			q.producerWaits++
			waitStart = time.Now()
		}
		q.notFull.Wait()
	}
	if waited {
		q.producerWaitTime += time.Since(waitStart)
	}

	q.items[q.tail] = item
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.totalPuts++

	q.notEmpty.Signal()
	return nil
}

// Get removes and returns the oldest item, blocking while the queue is empty.
func (q *Queue[I]) Get() (I, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var waitStart time.Time
	waited := false
	for q.count == 0 {
		if !waited {
			waited = true
			q.consumerWaits++
			waitStart = time.Now()
		}
		q.notEmpty.Wait()
	}
	if waited {
		q.consumerWaitTime += time.Since(waitStart)
	}

	item := q.items[q.head]
	var zero I
	q.items[q.head] = zero
	q.head = (q.head + 1) % q.capacity
	q.count--
	q.totalGets++

	q.notFull.Signal()
	return item, nil
}

// Size is advisory: the value can be stale the moment it is returned.
func (q *Queue[I]) Size() uint {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *Queue[I]) Capacity() uint {
	return q.capacity
}

func (q *Queue[I]) Metrics() Metrics {
	q.mu.Lock()
	defer q.mu.Unlock()

	m := Metrics{
		TotalPuts:     q.totalPuts,
		TotalGets:     q.totalGets,
		ProducerWaits: q.producerWaits,
		ConsumerWaits: q.consumerWaits,
	}
	if q.producerWaits > 0 {
		m.AvgProducerWait = q.producerWaitTime / time.Duration(q.producerWaits)
	}
	if q.consumerWaits > 0 {
		m.AvgConsumerWait = q.consumerWaitTime / time.Duration(q.consumerWaits)
	}
	return m
}
