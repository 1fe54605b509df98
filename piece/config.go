package piece

import "time"

// BlockSize is the maximum length of a single wire block request.
const BlockSize = 16384

// Config configures a Manager. Fields follow the applyDefaults convention
// used throughout the teacher (e.g. dispatch.Config, conn.Config).
type Config struct {
	// PipelineLimit caps the number of outstanding block requests a single
	// peer may have in flight at once. The teacher's
	// dispatch.Config.PipelineLimit defaults to 3 whole pieces; this client
	// requests 16 KiB blocks rather than whole pieces, so the default is
	// scaled up.
	PipelineLimit int `yaml:"pipeline_limit"`

	// WriteChannelCapacity is the buffer size of the channel handing
	// verified pieces off to the file writer.
	WriteChannelCapacity int `yaml:"write_channel_capacity"`

	// StallTimeout is how long a block may sit in the Requested state
	// before Manager.Reap resets it back to NotRequested.
	StallTimeout time.Duration `yaml:"stall_timeout"`
}

func (c Config) applyDefaults() Config {
	if c.PipelineLimit == 0 {
		c.PipelineLimit = 8
	}
	if c.WriteChannelCapacity == 0 {
		c.WriteChannelCapacity = 100
	}
	if c.StallTimeout == 0 {
		c.StallTimeout = 2 * time.Minute
	}
	return c
}
