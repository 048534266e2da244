// Package server hosts one bounded queue behind a TCP listener and lets any
// number of remote producers and consumers share it, one session per
// connection.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/jnfrati/fila/internal/logger"
	"github.com/jnfrati/fila/internal/queue"
	"github.com/jnfrati/fila/internal/session"
	"github.com/jnfrati/fila/internal/wire"
)

const shutdownGrace = 5 * time.Second

type Config struct {
	Host          string
	Port          int
	Capacity      uint
	StatsInterval time.Duration
}

// Stats is the periodic observability snapshot. It only reads point-in-time
// copies of the queue metrics and the session counts, so producing one never
// blocks a client handler.
type Stats struct {
	QueueSize       uint    `json:"queue_size"`
	QueueCapacity   uint    `json:"queue_capacity"`
	ActiveProducers int     `json:"active_producers"`
	ActiveConsumers int     `json:"active_consumers"`
	TotalPuts       uint64  `json:"total_puts"`
	TotalGets       uint64  `json:"total_gets"`
	ProducerWaits   uint64  `json:"producer_waits"`
	ConsumerWaits   uint64  `json:"consumer_waits"`
	AvgProducerWait float64 `json:"avg_producer_wait_seconds"`
	AvgConsumerWait float64 `json:"avg_consumer_wait_seconds"`
}

type Server struct {
	cfg      Config
	queue    *queue.Queue[json.RawMessage]
	registry *session.Registry

	lis          net.Listener
	shuttingDown atomic.Bool
	handlers     sync.WaitGroup
}

func New(cfg Config) (*Server, error) {
	if cfg.StatsInterval <= 0 {
		cfg.StatsInterval = 5 * time.Second
	}

	q, err := queue.New[json.RawMessage](cfg.Capacity)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:      cfg,
		queue:    q,
		registry: session.NewRegistry(),
	}, nil
}

// Listen binds the TCP listener. Split from Serve so callers (and tests
// using port 0) can learn the bound address before any client connects.
func (s *Server) Listen() error {
	lis, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port)))
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	s.lis = lis

	logger.Global.Info().
		Str("addr", lis.Addr().String()).
		Uint("capacity", s.cfg.Capacity).
		Msg("queue server listening")

	return nil
}

// Addr returns the bound address. Only valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.lis.Addr()
}

// Serve accepts connections until ctx is cancelled, then stops accepting,
// closes the listener and waits for in-flight sessions. Sessions are never
// forcibly killed; after the grace period Serve returns with them still
// draining.
func (s *Server) Serve(ctx context.Context) error {
	if s.lis == nil {
		return errors.New("serve called before listen")
	}

	statsCron := cron.New()
	if _, err := statsCron.AddFunc(fmt.Sprintf("@every %s", s.cfg.StatsInterval), s.logStats); err != nil {
		return errors.Wrap(err, "schedule stats job")
	}
	statsCron.Start()
	defer statsCron.Stop()

	go func() {
		<-ctx.Done()
		s.shuttingDown.Store(true)
		_ = s.lis.Close()
	}()

	for {
		conn, err := s.lis.Accept()
		if err != nil {
			if s.shuttingDown.Load() || errors.Is(err, net.ErrClosed) {
				break
			}
			// Transient accept failures (e.g. fd exhaustion) should not
			// spin the loop.
			logger.Global.Warn().Err(err).Msg("accept failed")
			time.Sleep(100 * time.Millisecond)
			continue
		}

		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handleConn(wire.NewConn(conn))
		}()
	}

	done := make(chan struct{})
	go func() {
		s.handlers.Wait()
		close(done)
	}()
	select {
	case <-done:
		logger.Global.Info().Msg("queue server stopped")
	case <-time.After(shutdownGrace):
		logger.Global.Warn().
			Int("sessions", s.registry.Count()).
			Msg("queue server stopped with sessions still active")
	}

	return nil
}

// Start is Listen followed by Serve.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// handleConn runs one session: register, then one command per round trip
// until done, disconnect or a read error. Queue operations are atomic from
// the queue's perspective whether or not the response makes it back out.
func (s *Server) handleConn(conn *wire.Conn) {
	defer conn.Close()

	reg, err := conn.ReadRequest()
	if err != nil {
		logger.Global.Debug().Err(err).Msg("connection dropped before registration")
		return
	}
	if !wire.ValidRole(reg.Type) {
		_ = conn.WriteResponse(wire.Errorf("invalid role %q", reg.Type))
		return
	}

	name := reg.Name
	if name == "" {
		name = reg.Type + "-" + conn.RemoteAddr().String()
	}

	sess := s.registry.Add(name, reg.Type, conn.RemoteAddr().String())
	defer s.registry.Remove(sess.ID)

	log := logger.Global.With().
		Str("session", sess.ID).
		Str("name", sess.Name).
		Str("role", sess.Role).
		Str("addr", sess.RemoteAddr).
		Logger()
	log.Info().Msg("client connected")
	defer log.Info().Msg("client disconnected")

	// Explicit registration ack, same for both roles.
	if err := conn.WriteResponse(wire.Ok()); err != nil {
		return
	}

	for {
		req, err := conn.ReadRequest()
		if err != nil {
			if cause := errors.Cause(err); cause != io.EOF {
				log.Debug().Err(err).Msg("session read failed")
			}
			return
		}

		if s.shuttingDown.Load() {
			if err := conn.WriteResponse(wire.Error("server shutting down")); err != nil {
				return
			}
			continue
		}

		switch req.Command {
		case wire.CommandPut:
			item := req.Item
			if item == nil {
				item = json.RawMessage("null")
			}
			_ = s.queue.Put(item)
			if err := conn.WriteResponse(wire.Ok()); err != nil {
				return
			}

		case wire.CommandGet:
			item, _ := s.queue.Get()
			if err := conn.WriteResponse(wire.OkItem(item)); err != nil {
				return
			}

		case wire.CommandDone:
			_ = conn.WriteResponse(wire.Ok())
			return

		default:
			if err := conn.WriteResponse(wire.Error("Unknown command")); err != nil {
				return
			}
		}
	}
}

func (s *Server) Stats() Stats {
	m := s.queue.Metrics()
	return Stats{
		QueueSize:       s.queue.Size(),
		QueueCapacity:   s.queue.Capacity(),
		ActiveProducers: s.registry.CountByRole(wire.RoleProducer),
		ActiveConsumers: s.registry.CountByRole(wire.RoleConsumer),
		TotalPuts:       m.TotalPuts,
		TotalGets:       m.TotalGets,
		ProducerWaits:   m.ProducerWaits,
		ConsumerWaits:   m.ConsumerWaits,
		AvgProducerWait: m.AvgProducerWait.Seconds(),
		AvgConsumerWait: m.AvgConsumerWait.Seconds(),
	}
}

func (s *Server) Sessions() []session.Session {
	return s.registry.List()
}

func (s *Server) logStats() {
	st := s.Stats()
	logger.Global.Info().
		Uint("queue_size", st.QueueSize).
		Uint("queue_capacity", st.QueueCapacity).
		Int("active_producers", st.ActiveProducers).
		Int("active_consumers", st.ActiveConsumers).
		Uint64("total_puts", st.TotalPuts).
		Uint64("total_gets", st.TotalGets).
		Uint64("producer_waits", st.ProducerWaits).
		Uint64("consumer_waits", st.ConsumerWaits).
		Msg("server statistics")
}
