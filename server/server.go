package server

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nabbar/famd/fs"
	"github.com/nabbar/famd/internal/procname"
	"github.com/nabbar/famd/kernel"
	"github.com/nabbar/famd/listener"
	"github.com/nabbar/famd/logger"
	"github.com/nabbar/famd/metrics"
	"github.com/nabbar/famd/poll"
	"github.com/nabbar/famd/protocol"
	"github.com/nabbar/famd/registry"
	"github.com/nabbar/famd/tree"
)

// defaultIdleTimeout is how long the daemon waits with zero connections
// before exiting (spec §4.9), unless --notimeout is set.
const defaultIdleTimeout = 30 * time.Second

const pollInterval = time.Second
const flushInterval = 100 * time.Millisecond
const idleCheckInterval = time.Second

// inboundMsg is one unit of work handed from a connection's reader
// goroutine to the server's single loop goroutine: either a decoded
// request packet, or a terminal read error meaning the connection closed.
type inboundMsg struct {
	c   *Connection
	pkt protocol.Packet
	err error
}

// Server owns every piece of shared engine state (tree, polling engine,
// subscription registry, live connections) and drives it all from one
// loop goroutine, so none of that state needs locking (spec §5 and §9
// DESIGN NOTES: the original's GMainLoop cooperative dispatch becomes a
// single select loop fed by channels).
type Server struct {
	ln      net.Listener
	backend kernel.Backend
	log     *logrus.Logger
	metrics *metrics.Metrics

	tree     *tree.Tree
	engine   *poll.Engine
	registry *registry.Registry

	conns map[*Connection]struct{}

	noTimeout   bool
	idleTimeout time.Duration
}

// New builds a Server listening on ln, monitoring through backend, with
// fsPolicy/excludes governing hybrid kernel/poll eligibility.
func New(ln net.Listener, backend kernel.Backend, fsPolicy *fs.Policy, excludes fs.Excludes, noTimeout bool, log *logrus.Logger, m *metrics.Metrics) *Server {
	t := tree.New()
	engine := poll.NewEngine(t, backend, fsPolicy, excludes)
	return &Server{
		ln:          ln,
		backend:     backend,
		log:         log,
		metrics:     m,
		tree:        t,
		engine:      engine,
		registry:    registry.New(t, engine),
		conns:       map[*Connection]struct{}{},
		noTimeout:   noTimeout,
		idleTimeout: defaultIdleTimeout,
	}
}

// Run drives the daemon until ctx is cancelled, a fatal signal arrives,
// or the idle timeout elapses with no live connections.
func (s *Server) Run(ctx context.Context) error {
	acceptCh := make(chan net.Conn)
	acceptErrCh := make(chan error, 1)
	go func() {
		for {
			conn, err := s.ln.Accept()
			if err != nil {
				acceptErrCh <- err
				return
			}
			acceptCh <- conn
		}
	}()

	inbound := make(chan inboundMsg, 64)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGUSR2)
	defer signal.Stop(sigCh)

	pollTicker := time.NewTicker(pollInterval)
	defer pollTicker.Stop()
	flushTicker := time.NewTicker(flushInterval)
	defer flushTicker.Stop()
	idleTicker := time.NewTicker(idleCheckInterval)
	defer idleTicker.Stop()

	lastEmpty := time.Now()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return ctx.Err()

		case err := <-acceptErrCh:
			s.closeAll()
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err

		case conn := <-acceptCh:
			s.handleAccept(conn, inbound)

		case msg := <-inbound:
			if msg.err != nil {
				s.handleDisconnect(msg.c)
				if len(s.conns) == 0 {
					lastEmpty = time.Now()
				}
				continue
			}
			s.handleRequest(msg.c, msg.pkt)

		case <-pollTicker.C:
			s.engine.Tick(time.Now())

		case <-flushTicker.C:
			s.flushAll()

		case <-idleTicker.C:
			if !s.noTimeout && len(s.conns) == 0 && time.Since(lastEmpty) >= s.idleTimeout {
				s.log.Info("idle timeout reached, exiting")
				return nil
			}

		case sig := <-sigCh:
			if sig == syscall.SIGUSR2 {
				logger.ToggleVerbose(s.log)
				continue
			}
			s.log.WithField("signal", sig).Info("received termination signal")
			s.closeAll()
			return nil
		}
	}
}

func (s *Server) handleAccept(conn net.Conn, inbound chan<- inboundMsg) {
	c := NewConnection(conn, s.log.WithField("remote", conn.RemoteAddr()))
	if err := c.Authenticate(); err != nil {
		s.log.WithError(err).Warn("rejecting connection: peer credential mismatch")
		_ = c.Close()
		return
	}

	l := listener.New(c.PeerCredentials().Pid, procname.Lookup(c.PeerCredentials().Pid), c)
	c.AttachListener(l)
	s.conns[c] = struct{}{}
	if s.metrics != nil {
		s.metrics.ActiveConnections.Inc()
	}

	go s.readLoop(c, inbound)
}

func (s *Server) readLoop(c *Connection, inbound chan<- inboundMsg) {
	for {
		err := c.ReadPackets(func(pkt protocol.Packet) {
			inbound <- inboundMsg{c: c, pkt: pkt}
		})
		if err != nil {
			inbound <- inboundMsg{c: c, err: err}
			return
		}
	}
}

func (s *Server) handleRequest(c *Connection, pkt protocol.Packet) {
	switch pkt.RequestCode() {
	case protocol.ReqFile, protocol.ReqDir:
		isDir := pkt.RequestCode() == protocol.ReqDir
		_, ok := s.registry.Add(c.Listener(), pkt.Seq, pkt.Path, isDir, pkt.Options(), nil)
		if !ok {
			s.log.WithField("reqno", pkt.Seq).Warn("duplicate reqno on monitor request")
		} else if s.metrics != nil {
			s.metrics.ActiveSubscriptions.Inc()
		}
	case protocol.ReqCancel:
		if s.registry.Cancel(c.Listener(), pkt.Seq) && s.metrics != nil {
			s.metrics.ActiveSubscriptions.Dec()
		}
	case protocol.ReqDebug:
		c.Enqueue(debugSnapshotEvent(pkt.Seq, s))
	}
}

func (s *Server) handleDisconnect(c *Connection) {
	if _, ok := s.conns[c]; !ok {
		return
	}
	if l := c.Listener(); l != nil {
		subs := l.Subscriptions()
		s.registry.RemoveAllFor(l)
		if s.metrics != nil {
			s.metrics.ActiveSubscriptions.Sub(float64(len(subs)))
		}
	}
	delete(s.conns, c)
	_ = c.Close()
	if s.metrics != nil {
		s.metrics.ActiveConnections.Dec()
	}
}

func (s *Server) flushAll() {
	depth := 0
	for c := range s.conns {
		depth += c.QueueLen()
		if err := c.Flush(); err != nil {
			s.handleDisconnect(c)
		}
	}
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(depth))
	}
}

func (s *Server) closeAll() {
	for c := range s.conns {
		if l := c.Listener(); l != nil {
			s.registry.RemoveAllFor(l)
		}
		_ = c.Close()
	}
	s.conns = map[*Connection]struct{}{}
	if s.backend != nil {
		_ = s.backend.Close()
	}
}
