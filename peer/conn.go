package peer

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Shreyas-Kamath/torrent-go/core"
)

// errConnClosed is returned by Send once the Conn has begun closing.
var errConnClosed = errors.New("peer: connection closed")

// Conn wraps a net.Conn to one remote peer, multiplexing the length-prefixed
// message stream onto buffered sender/receiver channels over a readLoop/
// writeLoop goroutine pair. Grounded directly on the teacher's
// conn/conn.go's Start/readLoop/writeLoop/Close structure.
type Conn struct {
	peerID core.PeerID
	nc     net.Conn
	config Config
	logger *zap.SugaredLogger

	startOnce sync.Once

	sender   chan *message
	receiver chan *message

	closed *atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

func newConn(nc net.Conn, peerID core.PeerID, config Config, logger *zap.SugaredLogger) *Conn {
	return &Conn{
		peerID:   peerID,
		nc:       nc,
		config:   config,
		logger:   logger,
		sender:   make(chan *message, config.SenderBufferSize),
		receiver: make(chan *message, config.ReceiverBufferSize),
		closed:   atomic.NewBool(false),
		done:     make(chan struct{}),
	}
}

// Start begins message processing. The handshake must already have
// completed; Start clears any handshake deadline and relies on its own idle
// deadline management from this point on, mirroring the teacher's newConn
// comment to the same effect.
func (c *Conn) Start() {
	c.startOnce.Do(func() {
		c.nc.SetDeadline(time.Time{})
		c.bumpDeadline()
		c.wg.Add(2)
		go c.readLoop()
		go c.writeLoop()
	})
}

// PeerID returns the remote peer id.
func (c *Conn) PeerID() core.PeerID {
	return c.peerID
}

func (c *Conn) String() string {
	return fmt.Sprintf("Conn(peer=%s, addr=%s)", c.peerID, c.nc.RemoteAddr())
}

// Send enqueues msg for transmission. Returns errConnClosed if c is closing,
// or a send-buffer-full error if the sender buffer has no room.
func (c *Conn) Send(msg *message) error {
	select {
	case <-c.done:
		return errConnClosed
	case c.sender <- msg:
		return nil
	default:
		return errors.New("peer: send buffer full")
	}
}

// Receiver returns the read side of the incoming message channel. Closed
// once readLoop exits.
func (c *Conn) Receiver() <-chan *message {
	return c.receiver
}

// Close begins the (idempotent) shutdown sequence: closing the socket
// unblocks any in-flight read/write, and both loops exit on their own.
func (c *Conn) Close() {
	if !c.closed.CAS(false, true) {
		return
	}
	close(c.done)
	c.nc.Close()
}

// IsClosed reports whether Close has been called.
func (c *Conn) IsClosed() bool {
	return c.closed.Load()
}

func (c *Conn) bumpDeadline() {
	c.nc.SetReadDeadline(time.Now().Add(c.config.IdleTimeout))
}

func (c *Conn) readLoop() {
	defer func() {
		close(c.receiver)
		c.wg.Done()
		c.Close()
	}()

	for {
		msg, err := readMessage(c.nc)
		if err != nil {
			c.log().Infof("Error reading message from socket, exiting read loop: %s", err)
			return
		}
		c.bumpDeadline()
		if msg == nil {
			// Keep-alive: accept without action.
			continue
		}
		select {
		case c.receiver <- msg:
		case <-c.done:
			return
		}
	}
}

func (c *Conn) writeLoop() {
	defer func() {
		c.wg.Done()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.sender:
			if err := sendMessage(c.nc, msg); err != nil {
				c.log().Infof("Error writing message to socket, exiting write loop: %s", err)
				return
			}
		}
	}
}

func (c *Conn) log(keysAndValues ...interface{}) *zap.SugaredLogger {
	keysAndValues = append(keysAndValues, "peer", c.peerID)
	return c.logger.With(keysAndValues...)
}
