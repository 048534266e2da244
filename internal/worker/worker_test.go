package worker_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/jnfrati/fila/internal/queue"
	"github.com/jnfrati/fila/internal/worker"
)

func TestLocalTransferConservation(t *testing.T) {
	const perWorker = 50

	q, err := queue.New[string](5)
	if err != nil {
		t.Fatal(err)
	}
	sink := worker.NewSink[string]()

	producers := make([]*worker.Producer[string], 0, 2)
	consumers := make([]*worker.Consumer[string], 0, 2)

	eg, ctx := errgroup.WithContext(context.Background())
	for p := 1; p <= 2; p++ {
		name := fmt.Sprintf("producer-%d", p)
		source := make([]string, perWorker)
		for i := range source {
			source[i] = fmt.Sprintf("%s-item-%d", name, i)
		}

		w := worker.NewProducer(name, q, source, 0)
		producers = append(producers, w)
		eg.Go(func() error {
			return w.Run(ctx)
		})
	}
	for c := 1; c <= 2; c++ {
		w := worker.NewConsumer(fmt.Sprintf("consumer-%d", c), q, sink, perWorker, 0)
		consumers = append(consumers, w)
		eg.Go(func() error {
			return w.Run(ctx)
		})
	}

	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	if sink.Len() != 2*perWorker {
		t.Fatalf("expected %d items in destination, got %d", 2*perWorker, sink.Len())
	}

	seen := make(map[string]struct{})
	for _, item := range sink.Items() {
		if _, dup := seen[item]; dup {
			t.Fatalf("duplicate item %s", item)
		}
		seen[item] = struct{}{}
	}

	for _, p := range producers {
		if p.Produced() != perWorker {
			t.Fatalf("expected %d produced, got %d", perWorker, p.Produced())
		}
	}
	for _, c := range consumers {
		if c.Consumed() != perWorker {
			t.Fatalf("expected %d consumed, got %d", perWorker, c.Consumed())
		}
	}
}

func TestPerProducerOrderPreserved(t *testing.T) {
	const perProducer = 30

	q, err := queue.New[string](3)
	if err != nil {
		t.Fatal(err)
	}
	sink := worker.NewSink[string]()

	eg, ctx := errgroup.WithContext(context.Background())
	for p := 1; p <= 2; p++ {
		name := fmt.Sprintf("producer-%d", p)
		source := make([]string, perProducer)
		for i := range source {
			source[i] = fmt.Sprintf("%s-item-%d", name, i)
		}

		w := worker.NewProducer(name, q, source, 0)
		eg.Go(func() error {
			return w.Run(ctx)
		})
	}

	// One consumer so destination order mirrors queue order exactly.
	consumer := worker.NewConsumer("consumer-1", q, sink, 2*perProducer, 0)
	eg.Go(func() error {
		return consumer.Run(ctx)
	})

	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	next := map[string]int{"producer-1": 0, "producer-2": 0}
	for _, item := range sink.Items() {
		for prefix := range next {
			if strings.HasPrefix(item, prefix+"-item-") {
				want := fmt.Sprintf("%s-item-%d", prefix, next[prefix])
				if item != want {
					t.Fatalf("expected %s, got %s", want, item)
				}
				next[prefix]++
			}
		}
	}
}

func TestZeroDelayWorkersObserveCancellation(t *testing.T) {
	q, err := queue.New[string](1)
	if err != nil {
		t.Fatal(err)
	}
	sink := worker.NewSink[string]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := worker.NewProducer("producer-1", q, []string{"a", "b"}, 0)
	if err := p.Run(ctx); err == nil {
		t.Fatal("expected producer to stop on a cancelled context")
	}
	if p.Produced() != 0 {
		t.Fatalf("expected no items produced, got %d", p.Produced())
	}

	c := worker.NewConsumer("consumer-1", q, sink, 2, 0)
	if err := c.Run(ctx); err == nil {
		t.Fatal("expected consumer to stop on a cancelled context")
	}
	if c.Consumed() != 0 {
		t.Fatalf("expected no items consumed, got %d", c.Consumed())
	}
}

func TestSinkConcurrentAppends(t *testing.T) {
	const goroutines = 10
	const perGoroutine = 100

	sink := worker.NewSink[int]()

	var eg errgroup.Group
	for g := 0; g < goroutines; g++ {
		base := g * perGoroutine
		eg.Go(func() error {
			for i := 0; i < perGoroutine; i++ {
				sink.Append(base + i)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}

	if sink.Len() != goroutines*perGoroutine {
		t.Fatalf("expected %d items, got %d", goroutines*perGoroutine, sink.Len())
	}

	seen := make(map[int]struct{})
	for _, v := range sink.Items() {
		if _, dup := seen[v]; dup {
			t.Fatalf("duplicate value %d", v)
		}
		seen[v] = struct{}{}
	}
}
