// Package tracker implements the HTTP tracker announce client: a
// single Announce operation returning an interval and a peer list, with
// compact and dictionary peer encodings both accepted.
package tracker

import "time"

// Config configures an HTTPTracker.
type Config struct {
	// Timeout bounds a single announce HTTP round trip.
	Timeout time.Duration `yaml:"timeout"`
}

func (c Config) applyDefaults() Config {
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
	return c
}
