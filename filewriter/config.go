package filewriter

// Config configures a Writer.
type Config struct {
	// Dir is the root directory under which the torrent's files are
	// created. Defaults to the current directory.
	Dir string `yaml:"dir"`
}

func (c Config) applyDefaults() Config {
	if c.Dir == "" {
		c.Dir = "."
	}
	return c
}
