package peer

import "time"

// Config configures a peer Session and its underlying Conn. Follows the
// applyDefaults convention used throughout the teacher (e.g. conn.Config,
// dispatch.Config).
type Config struct {
	// SenderBufferSize is the capacity of Conn's outgoing message channel.
	SenderBufferSize int `yaml:"sender_buffer_size"`

	// ReceiverBufferSize is the capacity of Conn's incoming message channel.
	ReceiverBufferSize int `yaml:"receiver_buffer_size"`

	// HandshakeTimeout bounds how long the initial 68-byte exchange may
	// take before the dial is abandoned.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`

	// IdleTimeout is the read deadline applied to the connection once the
	// handshake completes, reset after every successfully parsed message.
	// A deadline trip ends the session like any other I/O error.
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

func (c Config) applyDefaults() Config {
	if c.SenderBufferSize == 0 {
		c.SenderBufferSize = 50
	}
	if c.ReceiverBufferSize == 0 {
		c.ReceiverBufferSize = 50
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 2 * time.Minute
	}
	return c
}
