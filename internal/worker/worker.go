// Package worker runs producer and consumer loops against a queue client.
// Each worker is a plain Run function executed on its own goroutine; callers
// group them with errgroup and wait for the transfer to complete.
package worker

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/jnfrati/fila/internal/logger"
	"github.com/jnfrati/fila/internal/queue"
)

// Producer puts its source items into the queue in order. The produced
// counter is owned by the producer; read it after Run returns.
type Producer[I any] struct {
	name     string
	client   queue.Client[I]
	source   []I
	delay    time.Duration
	produced uint
}

func NewProducer[I any](name string, client queue.Client[I], source []I, delay time.Duration) *Producer[I] {
	return &Producer[I]{
		name:   name,
		client: client,
		source: source,
		delay:  delay,
	}
}

func (p *Producer[I]) Run(ctx context.Context) error {
	for _, item := range p.source {
		// Between operations only; a put already blocked on a full queue
		// stays blocked.
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := p.client.Put(item); err != nil {
			return errors.Wrapf(err, "%s: put failed", p.name)
		}
		p.produced++

		if p.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.delay):
			}
		}
	}

	logger.Global.Info().
		Str("worker", p.name).
		Uint("produced", p.produced).
		Msg("producer finished")

	return nil
}

func (p *Producer[I]) Produced() uint {
	return p.produced
}

// Consumer gets a fixed number of items and appends each to a shared Sink.
type Consumer[I any] struct {
	name     string
	client   queue.Client[I]
	sink     *Sink[I]
	count    uint
	delay    time.Duration
	consumed uint
}

func NewConsumer[I any](name string, client queue.Client[I], sink *Sink[I], count uint, delay time.Duration) *Consumer[I] {
	return &Consumer[I]{
		name:   name,
		client: client,
		sink:   sink,
		count:  count,
		delay:  delay,
	}
}

func (c *Consumer[I]) Run(ctx context.Context) error {
	for c.consumed < c.count {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := c.client.Get()
		if err != nil {
			return errors.Wrapf(err, "%s: get failed", c.name)
		}
		c.sink.Append(item)
		c.consumed++

		if c.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.delay):
			}
		}
	}

	logger.Global.Info().
		Str("worker", c.name).
		Uint("consumed", c.consumed).
		Msg("consumer finished")

	return nil
}

func (c *Consumer[I]) Consumed() uint {
	return c.consumed
}
