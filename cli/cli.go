package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/jnfrati/fila/api"
	"github.com/jnfrati/fila/internal/logger"
	"github.com/jnfrati/fila/internal/queue"
	"github.com/jnfrati/fila/internal/server"
	"github.com/jnfrati/fila/internal/worker"
	"github.com/jnfrati/fila/pkg/client"
)

// Scenario describes a local producer/consumer run. Items is the number of
// items each producer puts; the total is divided statically among consumers.
type Scenario struct {
	Capacity       uint `yaml:"capacity"`
	Items          int  `yaml:"items"`
	Producers      int  `yaml:"producers"`
	Consumers      int  `yaml:"consumers"`
	ProduceDelayMS int  `yaml:"produce_delay_ms"`
	ConsumeDelayMS int  `yaml:"consume_delay_ms"`
}

func defaultScenario() Scenario {
	return Scenario{
		Capacity:       10,
		Items:          100,
		Producers:      1,
		Consumers:      1,
		ProduceDelayMS: 10,
		ConsumeDelayMS: 15,
	}
}

func main() {
	var rootCmd = &cobra.Command{
		Use:   "fila",
		Short: "A bounded blocking queue with remote producers and consumers",
		Long:  "fila hosts a capacity-bounded FIFO queue, either in-process or behind a TCP server that remote producer and consumer processes share.",
	}

	rootCmd.PersistentFlags().String("host", "localhost", "Queue server host")
	rootCmd.PersistentFlags().IntP("port", "p", 5555, "Queue server port")

	var serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start a queue server",
		Run: func(cmd *cobra.Command, args []string) {
			rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			host, _ := cmd.Flags().GetString("host")
			port, _ := cmd.Flags().GetInt("port")
			capacity, _ := cmd.Flags().GetUint("capacity")
			statsInterval, _ := cmd.Flags().GetDuration("stats-interval")
			httpAddr, _ := cmd.Flags().GetString("http-addr")

			srv, err := server.New(server.Config{
				Host:          host,
				Port:          port,
				Capacity:      capacity,
				StatsInterval: statsInterval,
			})
			if err != nil {
				logger.Global.Fatal().Err(err).Msg("invalid server configuration")
			}
			if err := srv.Listen(); err != nil {
				logger.Global.Fatal().Err(err).Msg("could not bind queue server")
			}

			eg, ctx := errgroup.WithContext(rootCtx)

			eg.Go(func() error {
				return srv.Serve(ctx)
			})

			if httpAddr != "" {
				eg.Go(func() error {
					return api.Start(ctx, httpAddr, srv)
				})
			}

			if err := eg.Wait(); err != nil && err != context.Canceled {
				logger.Global.Fatal().Err(err).Msg("server error")
			}

			logger.Global.Info().Msg("server shutdown complete")
		},
	}
	serveCmd.Flags().UintP("capacity", "q", 10, "Queue capacity")
	serveCmd.Flags().Duration("stats-interval", 5*time.Second, "Interval between statistics reports")
	serveCmd.Flags().String("http-addr", "", "Optional address for the stats HTTP API (e.g. localhost:3333)")

	var produceCmd = &cobra.Command{
		Use:   "produce",
		Short: "Connect to a queue server and produce items",
		Run: func(cmd *cobra.Command, args []string) {
			addr := serverAddr(cmd)
			items, _ := cmd.Flags().GetInt("items")
			name, _ := cmd.Flags().GetString("name")
			delay, _ := cmd.Flags().GetDuration("delay")

			c, err := client.Dial(addr)
			if err != nil {
				logger.Global.Fatal().Err(err).Msg("could not connect to queue server, is it running?")
			}
			defer c.Close()

			if err := c.Register(client.RoleProducer, name); err != nil {
				logger.Global.Fatal().Err(err).Msg("registration failed")
			}

			logger.Global.Info().Str("name", name).Int("items", items).Msg("producing")

			start := time.Now()
			for i := 0; i < items; i++ {
				payload, err := json.Marshal(fmt.Sprintf("%s-item-%d", name, i))
				if err != nil {
					logger.Global.Fatal().Err(err).Msg("could not encode item")
				}
				if err := c.Put(payload); err != nil {
					logger.Global.Fatal().Err(err).Msg("put failed")
				}
				logger.Global.Debug().Int("produced", i+1).Int("of", items).Msg("put acknowledged")

				if delay > 0 {
					time.Sleep(delay)
				}
			}

			if err := c.Done(); err != nil {
				logger.Global.Fatal().Err(err).Msg("done failed")
			}

			elapsed := time.Since(start)
			logger.Global.Info().
				Int("items", items).
				Dur("elapsed", elapsed).
				Float64("items_per_sec", float64(items)/elapsed.Seconds()).
				Msg("producer finished")
		},
	}
	produceCmd.Flags().IntP("items", "i", 50, "Number of items to produce")
	produceCmd.Flags().StringP("name", "n", "producer-1", "Producer name")
	produceCmd.Flags().DurationP("delay", "d", 10*time.Millisecond, "Delay between items")

	var consumeCmd = &cobra.Command{
		Use:   "consume",
		Short: "Connect to a queue server and consume items",
		Run: func(cmd *cobra.Command, args []string) {
			addr := serverAddr(cmd)
			items, _ := cmd.Flags().GetInt("items")
			name, _ := cmd.Flags().GetString("name")
			delay, _ := cmd.Flags().GetDuration("delay")

			c, err := client.Dial(addr)
			if err != nil {
				logger.Global.Fatal().Err(err).Msg("could not connect to queue server, is it running?")
			}
			defer c.Close()

			if err := c.Register(client.RoleConsumer, name); err != nil {
				logger.Global.Fatal().Err(err).Msg("registration failed")
			}

			logger.Global.Info().Str("name", name).Int("items", items).Msg("consuming")

			start := time.Now()
			for i := 0; i < items; i++ {
				item, err := c.Get()
				if err != nil {
					logger.Global.Fatal().Err(err).Msg("get failed")
				}
				logger.Global.Debug().Int("consumed", i+1).Int("of", items).RawJSON("item", item).Msg("item received")

				if delay > 0 {
					time.Sleep(delay)
				}
			}

			if err := c.Done(); err != nil {
				logger.Global.Fatal().Err(err).Msg("done failed")
			}

			elapsed := time.Since(start)
			logger.Global.Info().
				Int("items", items).
				Dur("elapsed", elapsed).
				Float64("items_per_sec", float64(items)/elapsed.Seconds()).
				Msg("consumer finished")
		},
	}
	consumeCmd.Flags().IntP("items", "i", 50, "Number of items to consume")
	consumeCmd.Flags().StringP("name", "n", "consumer-1", "Consumer name")
	consumeCmd.Flags().DurationP("delay", "d", 15*time.Millisecond, "Delay between items")

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a local producer/consumer scenario against an in-process queue",
		Run: func(cmd *cobra.Command, args []string) {
			sc := defaultScenario()

			if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
				raw, err := os.ReadFile(path.Clean(cfgPath))
				if err != nil {
					logger.Global.Fatal().Err(err).Msg("could not read scenario file")
				}
				if err := yaml.Unmarshal(raw, &sc); err != nil {
					logger.Global.Fatal().Err(err).Msg("could not parse scenario file")
				}
			}
			if sc.Producers < 1 || sc.Consumers < 1 {
				logger.Global.Fatal().Msg("scenario needs at least one producer and one consumer")
			}

			if err := runScenario(sc); err != nil {
				logger.Global.Fatal().Err(err).Msg("scenario failed")
			}
		},
	}
	runCmd.Flags().StringP("config", "c", "", "Path to a YAML scenario file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(produceCmd)
	rootCmd.AddCommand(consumeCmd)
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func serverAddr(cmd *cobra.Command) string {
	host, _ := cmd.Flags().GetString("host")
	port, _ := cmd.Flags().GetInt("port")
	return net.JoinHostPort(host, strconv.Itoa(port))
}

func runScenario(sc Scenario) error {
	q, err := queue.New[string](sc.Capacity)
	if err != nil {
		return err
	}

	total := sc.Items * sc.Producers
	sink := worker.NewSink[string]()

	logger.Global.Info().
		Uint("capacity", sc.Capacity).
		Int("producers", sc.Producers).
		Int("consumers", sc.Consumers).
		Int("total_items", total).
		Msg("starting transfer")

	start := time.Now()
	eg, ctx := errgroup.WithContext(context.Background())

	for p := 0; p < sc.Producers; p++ {
		name := fmt.Sprintf("producer-%d", p+1)
		source := make([]string, sc.Items)
		for i := range source {
			source[i] = fmt.Sprintf("%s-item-%d", name, i)
		}

		w := worker.NewProducer(name, q, source, time.Duration(sc.ProduceDelayMS)*time.Millisecond)
		eg.Go(func() error {
			return w.Run(ctx)
		})
	}

	// Static work assignment: the leftover items go to the first consumer.
	per := total / sc.Consumers
	rem := total % sc.Consumers
	for c := 0; c < sc.Consumers; c++ {
		count := per
		if c == 0 {
			count += rem
		}

		w := worker.NewConsumer(fmt.Sprintf("consumer-%d", c+1), q, sink, uint(count), time.Duration(sc.ConsumeDelayMS)*time.Millisecond)
		eg.Go(func() error {
			return w.Run(ctx)
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	m := q.Metrics()

	seen := make(map[string]struct{}, total)
	for _, item := range sink.Items() {
		seen[item] = struct{}{}
	}
	ok := sink.Len() == total && len(seen) == total

	logger.Global.Info().
		Int("destination_size", sink.Len()).
		Int("expected", total).
		Bool("data_integrity", ok).
		Dur("elapsed", elapsed).
		Uint64("total_puts", m.TotalPuts).
		Uint64("total_gets", m.TotalGets).
		Uint64("producer_waits", m.ProducerWaits).
		Uint64("consumer_waits", m.ConsumerWaits).
		Dur("avg_producer_wait", m.AvgProducerWait).
		Dur("avg_consumer_wait", m.AvgConsumerWait).
		Msg("transfer complete")

	if !ok {
		return fmt.Errorf("transfer lost or duplicated items: destination has %d of %d", sink.Len(), total)
	}
	return nil
}
