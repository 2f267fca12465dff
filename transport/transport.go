/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package transport carries raw protocol bytes over a single TCP
// connection. A host listens and keeps only the most recent inbound
// connection; a joiner dials out. Everything that happens on the wire is
// reported on one event channel.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var (
	ErrClosed         = errors.New("transport closed")
	ErrAlreadyStarted = errors.New("transport already listening")
	ErrSendQueueFull  = errors.New("send queue full")
)

type EventKind uint8

const (
	EventConnected EventKind = iota + 1
	EventData
	EventDisconnected
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventData:
		return "data"
	case EventDisconnected:
		return "disconnected"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is a notification from the transport. Conn identifies the
// connection it belongs to; events of one connection arrive in order, with
// EventConnected first.
type Event struct {
	Kind   EventKind
	Conn   uint32
	Remote string
	Data   []byte
	Err    error
}

type Transport struct {
	cfg    *Config
	log    zerolog.Logger
	events chan Event

	mu       sync.Mutex
	current  *conn
	listener net.Listener

	nextID  atomic.Uint32
	stopped atomic.Bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func New(cfg *Config, log zerolog.Logger) *Transport {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Transport{
		cfg:    cfg,
		log:    log.With().Str("component", "transport").Logger(),
		events: make(chan Event, max(cfg.EventQueueSize, 1)),
		stopCh: make(chan struct{}),
	}
}

func (t *Transport) Events() <-chan Event {
	return t.events
}

// Listen binds the configured address and accepts connections until the
// context ends or Close is called. A new connection replaces the current
// one.
func (t *Transport) Listen(ctx context.Context) error {
	if t.stopped.Load() {
		return ErrClosed
	}

	t.mu.Lock()
	if t.listener != nil {
		t.mu.Unlock()
		return ErrAlreadyStarted
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", t.cfg.Address)
	if err != nil {
		t.mu.Unlock()
		return fmt.Errorf("listen on %s: %w", t.cfg.Address, err)
	}
	t.listener = ln
	t.mu.Unlock()

	t.log.Info().Str("address", ln.Addr().String()).Msg("listening")

	t.wg.Add(1)
	go t.acceptLoop(ln)

	go t.closeOnDone(ctx)

	return nil
}

// Addr returns the bound listener address, or nil before Listen.
func (t *Transport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.listener == nil {
		return nil
	}
	return t.listener.Addr()
}

// Connect dials addr and makes it the current connection. An address
// without a port gets DefaultPort.
func (t *Transport) Connect(ctx context.Context, addr string) error {
	if t.stopped.Load() {
		return ErrClosed
	}

	addr = WithDefaultPort(addr)

	dialer := &net.Dialer{Timeout: t.cfg.ConnectTimeout}
	c, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}

	t.adopt(c)

	go t.closeOnDone(ctx)

	return nil
}

// Send queues b on the current connection. It reports false, and drops b,
// when there is no connection. A full queue means the peer stopped reading:
// the connection is closed with ErrSendQueueFull so nothing is lost
// silently.
func (t *Transport) Send(b []byte) bool {
	t.mu.Lock()
	c := t.current
	t.mu.Unlock()

	if c == nil {
		return false
	}

	return c.send(b, t.log)
}

// Connected reports whether a connection is current.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.current != nil
}

// Disconnect tears down the current connection, if any. Its
// EventDisconnected follows on the event channel.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	c := t.current
	t.mu.Unlock()

	if c != nil {
		c.close(nil)
	}
}

// Close stops listening, drops the connection and waits for every
// goroutine to exit. No events are delivered afterwards.
func (t *Transport) Close() error {
	if !t.stopped.CompareAndSwap(false, true) {
		return nil
	}

	close(t.stopCh)

	t.mu.Lock()
	ln := t.listener
	c := t.current
	t.current = nil
	t.mu.Unlock()

	if ln != nil {
		_ = ln.Close()
	}
	if c != nil {
		c.close(nil)
	}

	t.wg.Wait()

	return nil
}

func (t *Transport) closeOnDone(ctx context.Context) {
	select {
	case <-ctx.Done():
		_ = t.Close()
	case <-t.stopCh:
	}
}

func (t *Transport) acceptLoop(ln net.Listener) {
	defer t.wg.Done()

	for {
		c, err := ln.Accept()
		if err != nil {
			if t.stopped.Load() || errors.Is(err, net.ErrClosed) {
				return
			}

			t.log.Warn().Err(err).Msg("accept failed")
			t.emit(Event{Kind: EventError, Err: err})

			select {
			case <-t.stopCh:
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		t.adopt(c)
	}
}

// adopt makes c the current connection, tearing down any previous one.
func (t *Transport) adopt(nc net.Conn) {
	if tc, ok := nc.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}

	c := newConn(t.nextID.Add(1), nc, t.cfg.SendQueueSize)

	// Close sets stopped before taking mu, so passing this check under mu
	// means its Wait has not started and will count our loops.
	t.mu.Lock()
	if t.stopped.Load() {
		t.mu.Unlock()
		_ = nc.Close()
		return
	}
	old := t.current
	t.current = c
	t.wg.Add(2)
	t.mu.Unlock()

	if old != nil {
		t.log.Info().Uint32("conn", old.id).Msg("replacing connection")
		old.close(nil)
	}

	t.log.Info().Uint32("conn", c.id).Str("remote", c.remote).Msg("connected")
	t.emit(Event{Kind: EventConnected, Conn: c.id, Remote: c.remote})

	go t.readLoop(c)
	go t.writeLoop(c)
}

func (t *Transport) readLoop(c *conn) {
	defer t.wg.Done()

	buf := make([]byte, max(t.cfg.ReadBufferSize, 512))
	for {
		n, err := c.nc.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			t.emit(Event{Kind: EventData, Conn: c.id, Data: data})
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.close(err)
			}
			break
		}
	}

	c.close(nil)

	t.mu.Lock()
	current := t.current == c
	if current {
		t.current = nil
	}
	t.mu.Unlock()

	// A superseded connection leaves quietly; its successor already owns
	// the session.
	if !current {
		return
	}

	t.log.Info().Uint32("conn", c.id).AnErr("cause", c.cause()).Msg("disconnected")
	t.emit(Event{Kind: EventDisconnected, Conn: c.id, Remote: c.remote, Err: c.cause()})
}

func (t *Transport) writeLoop(c *conn) {
	defer t.wg.Done()

	for {
		select {
		case <-c.closeCh:
			return
		case b := <-c.sendCh:
			if t.cfg.WriteTimeout > 0 {
				_ = c.nc.SetWriteDeadline(time.Now().Add(t.cfg.WriteTimeout))
			}
			if _, err := c.nc.Write(b); err != nil {
				c.close(err)
				return
			}
		}
	}
}

// emit blocks until the event is taken or the transport stops, so a slow
// consumer throttles the read loops instead of losing data.
func (t *Transport) emit(ev Event) {
	select {
	case t.events <- ev:
	case <-t.stopCh:
	}
}

// WithDefaultPort appends DefaultPort to an address that has none.
func WithDefaultPort(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(addr, strconv.Itoa(DefaultPort))
}
