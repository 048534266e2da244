package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jnfrati/fila/internal/logger"
	"github.com/jnfrati/fila/internal/queue"
	"github.com/jnfrati/fila/internal/worker"
)

// Minimal local demonstration: one producer and one consumer moving 100
// items through a queue of capacity 10. The consumer is slightly slower, so
// the queue fills up and the producer has to wait.
func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer stop()

	q, err := queue.New[string](10)
	if err != nil {
		panic(err)
	}

	source := make([]string, 100)
	for i := range source {
		source[i] = fmt.Sprintf("item-%d", i)
	}
	sink := worker.NewSink[string]()

	producer := worker.NewProducer("producer-1", q, source, 10*time.Millisecond)
	consumer := worker.NewConsumer[string]("consumer-1", q, sink, uint(len(source)), 15*time.Millisecond)

	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return producer.Run(ctx)
	})

	eg.Go(func() error {
		return consumer.Run(ctx)
	})

	if err := eg.Wait(); err != nil {
		panic(err)
	}

	m := q.Metrics()
	logger.Global.Info().
		Uint("produced", producer.Produced()).
		Uint("consumed", consumer.Consumed()).
		Int("destination_size", sink.Len()).
		Uint64("total_puts", m.TotalPuts).
		Uint64("total_gets", m.TotalGets).
		Uint64("producer_waits", m.ProducerWaits).
		Uint64("consumer_waits", m.ConsumerWaits).
		Dur("avg_producer_wait", m.AvgProducerWait).
		Dur("avg_consumer_wait", m.AvgConsumerWait).
		Msg("transfer complete")
}
