// Package config aggregates every per-package YAML-tagged Config into one
// top-level Config, loaded from an optional file and layered under flag
// overrides in cmd/leech, grounded on the teacher's configutil.Load +
// flag-override pattern in agent/main.go. (configutil itself ships with no
// source in this retrieval pack -- see DESIGN.md -- so Load reimplements
// its "optional file, YAML unmarshal" contract directly against
// gopkg.in/yaml.v2 rather than importing it.)
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/Shreyas-Kamath/torrent-go/filewriter"
	"github.com/Shreyas-Kamath/torrent-go/peer"
	"github.com/Shreyas-Kamath/torrent-go/piece"
	"github.com/Shreyas-Kamath/torrent-go/swarm"
	"github.com/Shreyas-Kamath/torrent-go/tracker"
)

// Config aggregates every component's configuration into one YAML
// document.
type Config struct {
	FileWriter filewriter.Config `yaml:"file_writer"`
	Piece      piece.Config      `yaml:"piece"`
	Peer       peer.Config       `yaml:"peer"`
	Tracker    tracker.Config    `yaml:"tracker"`
	Swarm      swarm.Config      `yaml:"swarm"`
}

// Load reads and unmarshals the YAML file at path into a Config. An empty
// path returns a zero-value Config, letting every per-package
// applyDefaults fill it in.
func Load(path string) (Config, error) {
	var c Config
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("read config: %s", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse config: %s", err)
	}
	return c, nil
}
