// Package kscanipc implements the ingress endpoint: a Unix-domain socket
// server that accepts one peer at a time, decodes length-prefixed
// ClientMessage frames, and dispatches decoded key events into a
// host-supplied callback.
package kscanipc

import (
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/nplastio/zmkipc/pkg/wire"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Callback is invoked once per decoded key event, from the reader
// goroutine. Implementations must not block for long: the reader cannot
// service a new frame (or notice a peer disconnect) until the callback
// returns.
type Callback func(row, col uint32, pressed bool)

// acceptBackoff is how long the accept loop sleeps after a non-EINTR
// accept error, to avoid spinning on a persistently broken listener.
const acceptBackoff = 100 * time.Millisecond

// Server is one ingress instance. Multiple instances may coexist,
// distinguished by socket path and each with its own matrix geometry.
type Server struct {
	log  *zap.Logger
	opts options

	listener net.Listener
	callback atomic.Pointer[Callback]
	enabled  atomic.Bool

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

type options struct {
	socketPath string
	rows       uint32
	columns    uint32
}

// Option configures a Server at construction time.
type Option func(*options)

// WithColumns sets the matrix column count used to expand a linear
// Position address into (row, col). A zero value (the default) makes any
// incoming Position-addressed event an error.
func WithColumns(columns uint32) Option {
	return func(o *options) { o.columns = columns }
}

// WithRows records the matrix row count. It is informational only — the
// server never bounds-checks decoded coordinates; that is the host's
// responsibility.
func WithRows(rows uint32) Option {
	return func(o *options) { o.rows = rows }
}

// New creates a Server bound to socketPath. It does not listen yet; call
// Start.
func New(log *zap.Logger, socketPath string, opts ...Option) *Server {
	o := options{socketPath: socketPath}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		log:  log,
		opts: o,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Configure registers the callback invoked for every decoded key event.
// It rejects a nil callback.
func (s *Server) Configure(cb Callback) error {
	if cb == nil {
		return errors.New("kscanipc: callback must not be nil")
	}
	s.callback.Store(&cb)
	return nil
}

// Enable gates whether decoded events reach the callback. Both Enable and
// Disable always succeed.
func (s *Server) Enable() {
	s.enabled.Store(true)
}

// Disable stops dispatch; already-buffered decode work still runs, but the
// callback is skipped.
func (s *Server) Disable() {
	s.enabled.Store(false)
}

// Start creates the listening socket (unlinking any stale path first) and
// spawns the reader goroutine. It returns once the socket is listening;
// any setup failure is fatal to this instance.
func (s *Server) Start() error {
	if err := os.RemoveAll(s.opts.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("kscanipc: unlink stale socket: %w", err)
	}
	ln, err := net.Listen("unix", s.opts.socketPath)
	if err != nil {
		return fmt.Errorf("kscanipc: listen on %s: %w", s.opts.socketPath, err)
	}
	if unixLn, ok := ln.(*net.UnixListener); ok {
		unixLn.SetUnlinkOnClose(true)
	}
	s.listener = ln
	s.log.Info("kscan ipc listening", zap.String("path", s.opts.socketPath))

	go s.acceptLoop()
	return nil
}

// Close stops the reader goroutine and closes the listening socket. Safe
// to call more than once.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stop)
		err = s.listener.Close()
		<-s.done
	})
	return err
}

func (s *Server) acceptLoop() {
	defer close(s.done)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.stop:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Error("kscan ipc accept failed", zap.Error(err))
			time.Sleep(acceptBackoff)
			continue
		}
		s.log.Info("kscan ipc peer connected")
		served := make(chan struct{})
		go func() {
			// Close must not wait for the peer to hang up.
			select {
			case <-s.stop:
				conn.Close()
			case <-served:
			}
		}()
		s.serve(conn)
		close(served)
		select {
		case <-s.stop:
			return
		default:
		}
	}
}

// serve runs the decode loop for a single accepted peer until it
// disconnects or a non-decode error closes the stream, then returns to
// let acceptLoop wait for the next peer.
func (s *Server) serve(conn net.Conn) {
	defer conn.Close()
	for {
		msg, err := wire.FrameRecv(conn, wire.MaxClientMessageSize, wire.UnmarshalClientMessage)
		if err != nil {
			switch {
			case errors.Is(err, wire.ErrDecode):
				s.log.Warn("kscan ipc decode error, keeping connection", zap.Error(err))
				continue
			case errors.Is(err, wire.ErrPeerClosed):
				s.log.Info("kscan ipc peer disconnected")
				return
			case errors.Is(err, wire.ErrTooLarge):
				s.log.Warn("kscan ipc oversized frame, closing connection", zap.Error(err))
				return
			default:
				s.log.Error("kscan ipc recv error, closing connection", zap.Error(err))
				return
			}
		}
		s.dispatch(msg)
	}
}

func (s *Server) dispatch(msg *wire.ClientMessage) {
	if msg.KeyEvent == nil {
		s.log.Warn("kscan ipc: client message has no key event payload")
		return
	}
	ev := msg.KeyEvent

	var pressed bool
	switch ev.Action {
	case wire.ActionPress:
		pressed = true
	case wire.ActionRelease:
		pressed = false
	default:
		s.log.Warn("kscan ipc: unknown key event action", zap.Uint8("action", uint8(ev.Action)))
		return
	}

	var row, col uint32
	switch {
	case ev.KeyPos != nil:
		row, col = ev.KeyPos.Row, ev.KeyPos.Col
	case ev.Position != nil:
		if s.opts.columns == 0 {
			s.log.Error("kscan ipc: position event received but columns == 0")
			return
		}
		row = *ev.Position / s.opts.columns
		col = *ev.Position % s.opts.columns
	default:
		s.log.Warn("kscan ipc: key event has no address field")
		return
	}

	if !s.enabled.Load() {
		return
	}
	cbPtr := s.callback.Load()
	if cbPtr == nil {
		return
	}
	(*cbPtr)(row, col, pressed)
}
