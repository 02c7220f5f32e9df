/*
Package listener accepts submission connections.

Each connection streams one decimal number per line and never receives anything back. A bad
line closes that connection only.
*/
package listener

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AustralianCyberSecurityCentre/azul-numberlog.git/prom"
	st "github.com/AustralianCyberSecurityCentre/azul-numberlog.git/settings"
	"github.com/goccy/go-json"
)

// Submitter receives validated values, it may block to apply backpressure.
type Submitter interface {
	Submit(v uint32)
}

type Server struct {
	host       string
	port       int
	maxValue   uint32
	fixedWidth bool
	submitter  Submitter
	listener   net.Listener
	closing    atomic.Bool
	wg         sync.WaitGroup
	mu         sync.Mutex
	conns      map[net.Conn]struct{}
}

func NewServer(host string, port int, maxValue uint32, fixedWidth bool, submitter Submitter) *Server {
	return &Server{
		host:       host,
		port:       port,
		maxValue:   maxValue,
		fixedWidth: fixedWidth,
		submitter:  submitter,
		conns:      map[net.Conn]struct{}{},
	}
}

// Start binds the listening socket.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port)))
	if err != nil {
		return fmt.Errorf("could not listen on %s:%d: %w", s.host, s.port, err)
	}
	s.listener = l
	st.Logger.Info().Str("addr", l.Addr().String()).Msg("listening for numbers")
	return nil
}

// Addr is the bound address, useful when started on port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until Stop is called, one goroutine per connection.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !s.track(conn, true) {
			// accepted while stopping, Stop has already closed the tracked connections
			conn.Close()
			continue
		}
		go func(c net.Conn) {
			defer s.wg.Done()
			defer s.track(c, false)
			s.handle(c)
		}(conn)
	}
}

// Stop closes the listening socket and all open connections, then waits for their workers.
// Workers blocked handing a value to the submitter finish that value first.
func (s *Server) Stop() error {
	err := s.listener.Close()
	s.mu.Lock()
	s.closing.Store(true)
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	return err
}

// track registers or forgets a connection. Opening reserves a worker slot and fails once
// Stop has begun, so Stop never misses a connection it has to wait for.
func (s *Server) track(c net.Conn, open bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if open {
		if s.closing.Load() {
			return false
		}
		s.conns[c] = struct{}{}
		s.wg.Add(1)
		prom.ConnectionsOpen.Inc()
		prom.ConnectionsTotal.Inc()
	} else {
		delete(s.conns, c)
		prom.ConnectionsOpen.Dec()
	}
	return true
}

type protocolLogLine struct {
	Time   string `json:"time"`
	Remote string `json:"remote"`
	Reason string `json:"reason"`
	Line   string `json:"line"`
}

func (s *Server) rejected(conn net.Conn, reason, line string) {
	prom.ProtocolErrors.WithLabelValues(reason).Inc()
	st.Logger.Debug().Str("remote", conn.RemoteAddr().String()).Str("reason", reason).Msg("closing connection after bad submission")
	logline, err := json.Marshal(protocolLogLine{
		Time:   time.Now().Format(time.RFC3339),
		Remote: conn.RemoteAddr().String(),
		Reason: reason,
		Line:   line,
	})
	if err != nil {
		st.Logger.Warn().Err(err).Msg("could not marshal protocol error log line")
		return
	}
	st.TryLog(st.ChLogProtocolErr, logline)
}

// handle reads lines until the peer closes, a line is bad or the server stops.
func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	// lines longer than the buffer can never be a valid value
	reader := bufio.NewReaderSize(conn, 64)
	for {
		raw, err := reader.ReadSlice('\n')
		if err != nil {
			if errors.Is(err, bufio.ErrBufferFull) {
				s.rejected(conn, ReasonTooLong, string(raw))
			} else if !errors.Is(err, io.EOF) && !s.closing.Load() {
				st.Logger.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("connection read failed")
			}
			// a partial line at end of stream is discarded
			return
		}
		line := string(raw)
		v, err := ParseLine(line, s.maxValue, s.fixedWidth)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				s.rejected(conn, perr.Reason, line)
			}
			return
		}
		s.submitter.Submit(v)
	}
}
