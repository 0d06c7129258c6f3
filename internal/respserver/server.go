// Package respserver accepts RESP connections and drives each one's
// command loop against a shared keyspace.
package respserver

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nilbyte/respd/internal/command"
	"github.com/nilbyte/respd/internal/protocol"
	"github.com/nilbyte/respd/internal/ratelimit"
	"github.com/nilbyte/respd/internal/store"
	"github.com/nilbyte/respd/internal/telemetry/logger"
	"github.com/nilbyte/respd/internal/telemetry/metric"
)

// Server accepts RESP connections on a plaintext listener and,
// optionally, a second TLS listener, and serves them against a
// shared store.
type Server struct {
	cfg     Config
	store   *store.Store
	limiter *ratelimit.Registry
	metrics *metric.Registry
	log     logger.Logger

	plainLn net.Listener
	tlsLn   net.Listener
	running atomic.Bool
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

// New creates a server backed by st. A nil metrics registry falls back
// to metric.Global() and a nil logger to logger.Default().
func New(cfg Config, st *store.Store, metrics *metric.Registry, log logger.Logger) *Server {
	if log == nil {
		log = logger.Default()
	}
	if metrics == nil {
		metrics = metric.Global()
	}
	return &Server{
		cfg:     cfg,
		store:   st,
		limiter: ratelimit.New(cfg.RateLimit, cfg.RateLimitBurst),
		metrics: metrics,
		log:     log,
	}
}

// Start launches the listener goroutines and returns immediately.
// Shutdown cancels the context every connection's commands run under,
// so any session parked in BLPOP unblocks along with the listeners.
func (s *Server) Start(ctx context.Context) error {
	s.running.Store(true)

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.startPlain(ctx); err != nil && s.running.Load() {
			s.log.Error("plain listener error", "error", err)
		}
	}()

	if s.cfg.TLSEnabled {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.startTLS(ctx); err != nil && s.running.Load() {
				s.log.Error("tls listener error", "error", err)
			}
		}()
	}

	return nil
}

func (s *Server) startPlain(ctx context.Context) error {
	s.log.Info("starting listener", "address", s.cfg.Address)
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.plainLn = ln
	return s.acceptLoop(ctx, ln)
}

func (s *Server) startTLS(ctx context.Context) error {
	if s.cfg.TLSConfig == nil {
		return errors.New("respserver: TLSConfig is required when TLSEnabled is true")
	}
	s.log.Info("starting tls listener", "address", s.cfg.TLSAddress)
	ln, err := tls.Listen("tcp", s.cfg.TLSAddress, s.cfg.TLSConfig)
	if err != nil {
		return err
	}
	s.tlsLn = ln
	return s.acceptLoop(ctx, ln)
}

// Shutdown closes both listeners and waits for in-flight connections
// to finish, or for ctx to expire first.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)
	if s.cancel != nil {
		s.cancel()
	}

	var firstErr error
	if s.plainLn != nil {
		if err := s.plainLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.tlsLn != nil {
		if err := s.tlsLn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(ctx, newConn(c))
		}()
	}
}

func (s *Server) serveConn(ctx context.Context, c *conn) {
	defer c.Close()

	ctx = logger.WithClientID(ctx, c.id)
	log := logger.L(ctx)
	log.Info("client connected", "remote", c.RemoteAddr())
	defer log.Info("client disconnected")

	if s.metrics != nil {
		s.metrics.ClientsConnected.Inc()
		defer s.metrics.ClientsConnected.Dec()
	}

	readTimeout, writeTimeout, idleTimeout := s.cfg.ReadTimeout, s.cfg.WriteTimeout, s.cfg.IdleTimeout
	if readTimeout == 0 {
		readTimeout = 30 * time.Second
	}
	if writeTimeout == 0 {
		writeTimeout = 30 * time.Second
	}
	if idleTimeout == 0 {
		idleTimeout = 5 * time.Minute
	}

	ip := c.remoteIP()

	for {
		if err := c.netConn.SetReadDeadline(time.Now().Add(idleTimeout)); err != nil {
			return
		}
		if _, err := c.br.Peek(1); err != nil {
			if !isTimeoutOrEOF(err) {
				log.Debug("connection read error", "error", err)
			}
			return
		}

		if err := c.netConn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}

		args, err := protocol.ReadCommand(c.br)
		if err != nil {
			s.logProtocolError(log, err)
			return
		}
		if len(args) == 0 {
			continue
		}

		if !s.limiter.Allow(ip) {
			s.reply(c, writeTimeout, protocol.Err("ERR rate limit exceeded"))
		} else {
			s.dispatch(ctx, c, args, writeTimeout)
		}

		if err := c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := c.bw.Flush(); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, c *conn, args [][]byte, writeTimeout time.Duration) {
	start := time.Now()
	cmdName := protocol.NormalizeCommandName(args[0])

	cmd, err := command.Parse(args, time.Now())
	if err != nil {
		s.recordOutcome(cmdName, "error", start)
		s.reply(c, writeTimeout, protocol.Err(err.Error()))
		return
	}

	var reply protocol.Reply
	if cmd.Name == command.BLPop {
		reply = s.executeBlocking(ctx, c, cmd, writeTimeout)
	} else {
		reply = s.execute(ctx, c, cmd, writeTimeout)
	}

	outcome := "ok"
	if _, isErr := reply.(errReply); isErr {
		outcome = "error"
	}
	s.recordOutcome(string(cmd.Name), outcome, start)
	s.reply(c, writeTimeout, reply)
}

// closeCheckInterval bounds how quickly a BLPOP waiter notices its
// client vanished: the read loop is parked inside store.BLPop and
// can't see the socket, so a side goroutine polls it instead.
const closeCheckInterval = 200 * time.Millisecond

// executeBlocking runs a BLPOP with a watcher goroutine that cancels
// the command's context as soon as the client disconnects, so a
// session close unparks its own waiter instead of leaking it forever.
func (s *Server) executeBlocking(ctx context.Context, c *conn, cmd *command.Command, writeTimeout time.Duration) protocol.Reply {
	cmdCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stop := make(chan struct{})
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		s.watchForClose(c, cancel, stop)
	}()

	reply := s.execute(cmdCtx, c, cmd, writeTimeout)

	close(stop)
	<-watchDone
	return reply
}

// watchForClose polls c for a closed connection while the caller is
// blocked elsewhere, calling cancel the moment it sees one. It never
// consumes bytes, so a client that pipelines a command behind its
// BLPOP is left untouched for the next read loop iteration to pick up.
func (s *Server) watchForClose(c *conn, cancel context.CancelFunc, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := c.netConn.SetReadDeadline(time.Now().Add(closeCheckInterval)); err != nil {
			cancel()
			return
		}
		_, err := c.br.Peek(1)
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			cancel()
			return
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			continue
		}
		cancel()
		return
	}
}

func (s *Server) recordOutcome(cmdName, outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordCommand(cmdName, outcome, time.Since(start).Seconds())
	}
}

// errReply marks a Reply produced from an execution-time error so
// dispatch can tag the outcome metric without re-inspecting the
// wire bytes.
type errReply struct {
	protocol.Reply
}

func (s *Server) reply(c *conn, writeTimeout time.Duration, r protocol.Reply) {
	if err := c.netConn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return
	}
	_ = r.WriteTo(c.bw)
}

// logProtocolError records a decoder failure before serveConn closes
// the connection. No reply is written for malformed input; a clean EOF
// or a read timeout is not logged.
func (s *Server) logProtocolError(log logger.Logger, err error) {
	if err == io.EOF {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return
	}
	log.Debug("closing connection on protocol error", "error", err)
}

func isTimeoutOrEOF(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
