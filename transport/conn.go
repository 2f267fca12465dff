/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package transport

import (
	"net"
	"sync"

	"github.com/rs/zerolog"
)

type conn struct {
	id     uint32
	remote string
	nc     net.Conn

	sendCh chan []byte

	closeCh   chan struct{}
	closeOnce sync.Once
	err       error
}

func newConn(id uint32, nc net.Conn, queue int) *conn {
	return &conn{
		id:      id,
		remote:  nc.RemoteAddr().String(),
		nc:      nc,
		sendCh:  make(chan []byte, max(queue, 1)),
		closeCh: make(chan struct{}),
	}
}

func (c *conn) send(b []byte, log zerolog.Logger) bool {
	select {
	case <-c.closeCh:
		return false
	default:
	}

	select {
	case c.sendCh <- b:
		return true
	default:
		log.Warn().Uint32("conn", c.id).Int("bytes", len(b)).Msg("send queue full, dropping connection")
		c.close(ErrSendQueueFull)
		return false
	}
}

// close shuts the connection once; the first non-nil cause is kept.
func (c *conn) close(cause error) {
	c.closeOnce.Do(func() {
		c.err = cause
		close(c.closeCh)
		_ = c.nc.Close()
	})
}

// cause is only meaningful after close.
func (c *conn) cause() error {
	<-c.closeCh
	return c.err
}
