package match

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
)

// ErrDisruptorTimeout is returned when shutdown times out
var ErrDisruptorTimeout = errors.New("disruptor: shutdown timeout")

// EventHandler consumes events from a RingBuffer on the consumer goroutine.
type EventHandler[T any] interface {
	OnEvent(event T)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc[T any] func(event T)

func (f EventHandlerFunc[T]) OnEvent(event T) { f(event) }

// RingBuffer is a multi-producer single-consumer ring buffer.
type RingBuffer[T any] struct {
	// Cache line padding to avoid false sharing
	_                [56]byte
	producerSequence atomic.Int64
	_                [56]byte
	consumerSequence atomic.Int64
	_                [56]byte

	buffer     []T
	bufferMask int64
	capacity   int64

	// published[i] holds the sequence last written to slot i
	published []atomic.Int64

	handler EventHandler[T]

	isShutdown atomic.Bool
	done       chan struct{}
}

// NewRingBuffer creates a ring buffer. capacity must be a power of two.
func NewRingBuffer[T any](capacity int64, handler EventHandler[T]) *RingBuffer[T] {
	if capacity <= 0 || (capacity&(capacity-1)) != 0 {
		panic("size must be a power of 2")
	}

	rb := &RingBuffer[T]{
		buffer:     make([]T, capacity),
		published:  make([]atomic.Int64, capacity),
		capacity:   capacity,
		bufferMask: capacity - 1,
		handler:    handler,
		done:       make(chan struct{}),
	}

	rb.producerSequence.Store(-1)
	rb.consumerSequence.Store(-1)

	for i := range rb.published {
		rb.published[i].Store(-1)
	}

	return rb
}

// Publish claims the next slot, writes the event and makes it visible to the consumer.
// It spins while the buffer is full. Events published after Shutdown are dropped
// and reported with false.
func (rb *RingBuffer[T]) Publish(event T) bool {
	if rb.isShutdown.Load() {
		return false
	}

	var nextSeq int64
	for {
		current := rb.producerSequence.Load()
		nextSeq = current + 1

		// the producer may not lap the consumer
		wrapPoint := nextSeq - rb.capacity
		if wrapPoint > rb.consumerSequence.Load() {
			runtime.Gosched()
			continue
		}

		if rb.producerSequence.CompareAndSwap(current, nextSeq) {
			break
		}
		runtime.Gosched()
	}

	index := nextSeq & rb.bufferMask
	rb.buffer[index] = event
	rb.published[index].Store(nextSeq)
	return true
}

// Start starts the consumer goroutine.
func (rb *RingBuffer[T]) Start() {
	go rb.consumerLoop()
}

// Shutdown stops accepting events and waits until every claimed event is handled.
func (rb *RingBuffer[T]) Shutdown(ctx context.Context) error {
	rb.isShutdown.Store(true)

	select {
	case <-rb.done:
		return nil
	case <-ctx.Done():
		return ErrDisruptorTimeout
	}
}

func (rb *RingBuffer[T]) consumerLoop() {
	defer close(rb.done)
	next := rb.consumerSequence.Load() + 1

	for {
		shutdown := rb.isShutdown.Load()
		available := rb.producerSequence.Load()

		processed := false
		for next <= available {
			rb.consume(next)
			next++
			processed = true
		}

		if shutdown {
			// a producer may have claimed a slot between the two loads above
			for next <= rb.producerSequence.Load() {
				rb.consume(next)
				next++
			}
			return
		}

		if !processed {
			runtime.Gosched()
		}
	}
}

func (rb *RingBuffer[T]) consume(seq int64) {
	index := seq & rb.bufferMask

	// wait until the producer that claimed seq has written it
	for rb.published[index].Load() != seq {
		runtime.Gosched()
	}

	event := rb.buffer[index]
	var zero T
	rb.buffer[index] = zero
	rb.handler.OnEvent(event)
	rb.consumerSequence.Store(seq)
}

// ConsumerSequence returns the last handled sequence.
func (rb *RingBuffer[T]) ConsumerSequence() int64 {
	return rb.consumerSequence.Load()
}

// ProducerSequence returns the last claimed sequence.
func (rb *RingBuffer[T]) ProducerSequence() int64 {
	return rb.producerSequence.Load()
}

// PendingEvents returns how many claimed events are not handled yet.
func (rb *RingBuffer[T]) PendingEvents() int64 {
	return rb.producerSequence.Load() - rb.consumerSequence.Load()
}

// AsyncPublishLog decouples slow publishers (brokers, sockets) from the engine.
// Publish copies each batch into the ring buffer and returns; the consumer
// goroutine forwards batches to the target in publication order.
type AsyncPublishLog struct {
	target PublishLog
	ring   *RingBuffer[[]BookLog]
	drops  atomic.Int64
}

// NewAsyncPublishLog creates and starts an async publisher. capacity must be a power of two.
func NewAsyncPublishLog(target PublishLog, capacity int64) *AsyncPublishLog {
	a := &AsyncPublishLog{target: target}
	a.ring = NewRingBuffer[[]BookLog](capacity, EventHandlerFunc[[]BookLog](a.forward))
	a.ring.Start()
	return a
}

func (a *AsyncPublishLog) Publish(logs ...*BookLog) {
	if len(logs) == 0 {
		return
	}
	batch := make([]BookLog, len(logs))
	for i, log := range logs {
		batch[i] = *log
	}
	if !a.ring.Publish(batch) {
		a.drops.Add(int64(len(batch)))
		logger.Warn("book logs dropped after shutdown", "count", len(batch))
	}
}

func (a *AsyncPublishLog) forward(batch []BookLog) {
	ptrs := make([]*BookLog, len(batch))
	for i := range batch {
		ptrs[i] = &batch[i]
	}
	a.target.Publish(ptrs...)
}

// Dropped returns the number of logs refused after Shutdown.
func (a *AsyncPublishLog) Dropped() int64 {
	return a.drops.Load()
}

// Shutdown flushes pending batches to the target.
func (a *AsyncPublishLog) Shutdown(ctx context.Context) error {
	return a.ring.Shutdown(ctx)
}
