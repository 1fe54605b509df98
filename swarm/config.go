// Package swarm implements the supervisor: one goroutine per
// tracker URL running the announce loop, a deduplicated peer-endpoint set,
// a goroutine-per-peer-session spawn on every newly discovered endpoint,
// and the idle-peer reaper and completion-detection enrichments.
package swarm

import "time"

// Config configures a Supervisor.
type Config struct {
	// DefaultInterval is used until a tracker reports its own, grounded on
	// the teacher's announcer.Config.DefaultInterval.
	DefaultInterval time.Duration `yaml:"default_interval"`

	// ReapInterval is how often the stalled-block reaper runs.
	ReapInterval time.Duration `yaml:"reap_interval"`

	// ListenPort is the port advertised to trackers. This client never
	// accepts inbound connections, but BEP 3 still requires a port value
	// in every announce.
	ListenPort uint16 `yaml:"listen_port"`
}

func (c Config) applyDefaults() Config {
	if c.DefaultInterval == 0 {
		c.DefaultInterval = 30 * time.Second
	}
	if c.ReapInterval == 0 {
		c.ReapInterval = 30 * time.Second
	}
	if c.ListenPort == 0 {
		c.ListenPort = 6881
	}
	return c
}
