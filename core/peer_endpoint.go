// Copyright (c) 2016-2019 Uber Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package core

import "fmt"

// PeerEndpoint is a comparable (IPv4, port) pair identifying a swarm peer.
// It is deliberately a plain value type -- not net.TCPAddr -- so it can be
// used directly as a map key in the swarm's deduplicated endpoint set.
type PeerEndpoint struct {
	IP   [4]byte
	Port uint16
}

// NewPeerEndpoint builds a PeerEndpoint from 4 raw IPv4 bytes and a port.
func NewPeerEndpoint(ip [4]byte, port uint16) PeerEndpoint {
	return PeerEndpoint{IP: ip, Port: port}
}

// Addr returns the "ip:port" dial string for e.
func (e PeerEndpoint) Addr() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", e.IP[0], e.IP[1], e.IP[2], e.IP[3], e.Port)
}

func (e PeerEndpoint) String() string {
	return e.Addr()
}
