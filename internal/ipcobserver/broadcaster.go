// Package ipcobserver implements the egress endpoint: a Unix-domain
// socket server that fans out encoded ZmkEvent frames to every connected
// observer, and the adapters that build those events from host-internal
// key-scan transitions and HID report snapshots.
package ipcobserver

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

const acceptBackoff = 100 * time.Millisecond

// Broadcaster is the egress endpoint. Its client table is the only shared
// mutable state: both the accept goroutine (insert) and Broadcast callers
// (iterate + evict) hold tableMu for the duration of their operation.
// Replacing this with a per-slot lock would lose the total ordering of
// broadcasts across clients; don't.
type Broadcaster struct {
	log *zap.Logger
	opts options

	listener net.Listener

	tableMu sync.Mutex
	clients []net.Conn // nil entry == free slot

	liveClients atomic.Int64 // metrics/logging only, never consulted for correctness

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

type options struct {
	socketPath string
	maxClients int
}

// Option configures a Broadcaster at construction time.
type Option func(*options)

// WithMaxClients overrides the default client table capacity.
func WithMaxClients(n int) Option {
	return func(o *options) { o.maxClients = n }
}

const defaultMaxClients = 8

// New creates a Broadcaster bound to socketPath. Call Start to listen.
func New(log *zap.Logger, socketPath string, opts ...Option) *Broadcaster {
	o := options{socketPath: socketPath, maxClients: defaultMaxClients}
	for _, opt := range opts {
		opt(&o)
	}
	return &Broadcaster{
		log:     log,
		opts:    o,
		clients: make([]net.Conn, o.maxClients),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start creates the listening socket (unlinking any stale path first) and
// spawns the accept goroutine.
func (b *Broadcaster) Start() error {
	if err := os.RemoveAll(b.opts.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ipcobserver: unlink stale socket: %w", err)
	}
	ln, err := net.Listen("unix", b.opts.socketPath)
	if err != nil {
		return fmt.Errorf("ipcobserver: listen on %s: %w", b.opts.socketPath, err)
	}
	if unixLn, ok := ln.(*net.UnixListener); ok {
		unixLn.SetUnlinkOnClose(true)
	}
	b.listener = ln
	b.log.Info("ipc observer listening", zap.String("path", b.opts.socketPath), zap.Int("maxClients", b.opts.maxClients))

	go b.acceptLoop()
	return nil
}

// Close stops the accept goroutine, closes the listener, and closes every
// connected client. Safe to call more than once.
func (b *Broadcaster) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.stop)
		err = b.listener.Close()
		<-b.done

		b.tableMu.Lock()
		for i, c := range b.clients {
			if c != nil {
				c.Close()
				b.clients[i] = nil
			}
		}
		b.tableMu.Unlock()
	})
	return err
}

func (b *Broadcaster) acceptLoop() {
	defer close(b.done)
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			select {
			case <-b.stop:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			b.log.Error("ipc observer accept failed", zap.Error(err))
			time.Sleep(acceptBackoff)
			continue
		}
		b.accept(conn)
	}
}

func (b *Broadcaster) accept(conn net.Conn) {
	b.tableMu.Lock()
	idx := -1
	for i, c := range b.clients {
		if c == nil {
			idx = i
			break
		}
	}
	if idx < 0 {
		b.tableMu.Unlock()
		b.log.Warn("ipc observer: max clients reached, rejecting connection", zap.Int("maxClients", b.opts.maxClients))
		conn.Close()
		return
	}
	b.clients[idx] = conn
	b.tableMu.Unlock()
	b.liveClients.Add(1)
	b.log.Info("ipc observer client connected", zap.Int("slot", idx))
}

// Broadcast encodes event exactly once, then sends the encoded frame to
// every occupied slot. A client whose send fails is closed and its slot
// freed before the next slot is tried. Socket I/O is bounded rather than
// non-blocking: each send waits at most wire's short write deadline, and
// otherwise the only blocking point is tableMu.
func (b *Broadcaster) Broadcast(event *wire.ZmkEvent) {
	var buf [wire.MaxZmkEventSize]byte
	n, err := wire.EncodeMessage(event, buf[:])
	if err != nil {
		b.log.Error("ipc observer: failed to encode event, dropping broadcast", zap.Error(err))
		return
	}
	payload := buf[:n]

	b.tableMu.Lock()
	defer b.tableMu.Unlock()
	for i, c := range b.clients {
		if c == nil {
			continue
		}
		if err := wire.FrameSend(c, payload); err != nil {
			b.log.Debug("ipc observer: client dropped", zap.Int("slot", i), zap.Error(err))
			c.Close()
			b.clients[i] = nil
			b.liveClients.Add(-1)
		}
	}
}

// LiveClients returns the approximate number of connected observers, for
// logging and metrics. It is never consulted by Broadcast itself.
func (b *Broadcaster) LiveClients() int64 {
	return b.liveClients.Load()
}
