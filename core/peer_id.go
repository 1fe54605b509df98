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

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// clientID identifies this implementation in the Azureus-style peer id
// convention: "-" + 2 letter client code + 4 digit version + "-" + 12
// arbitrary bytes.
const clientID = "-TG0100-"

// ErrInvalidPeerIDLength returns when a string peer id does not decode into
// 20 bytes.
var ErrInvalidPeerIDLength = errors.New("peer id has invalid length")

// PeerID represents the 20-byte peer id exchanged in the BitTorrent
// handshake.
type PeerID [20]byte

// NewPeerID parses a PeerID from the given string. Must be in hexadecimal
// notation, encoding exactly 20 bytes.
func NewPeerID(s string) (PeerID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PeerID{}, err
	}
	if len(b) != 20 {
		return PeerID{}, ErrInvalidPeerIDLength
	}
	var p PeerID
	copy(p[:], b)
	return p, nil
}

// NewPeerIDFromBytes copies b into a PeerID. b must be exactly 20 bytes.
func NewPeerIDFromBytes(b []byte) (PeerID, error) {
	if len(b) != 20 {
		return PeerID{}, ErrInvalidPeerIDLength
	}
	var p PeerID
	copy(p[:], b)
	return p, nil
}

// String encodes the PeerID in hexadecimal notation.
func (p PeerID) String() string {
	return hex.EncodeToString(p[:])
}

// LessThan returns whether p is less than o, comparing the raw id bytes.
func (p PeerID) LessThan(o PeerID) bool {
	return bytes.Compare(p[:], o[:]) == -1
}

// GeneratePeerID returns a new PeerID tagged with clientID and 12 random
// ASCII digits, per the Azureus convention spelled out in BEP 20
// ("-XX####-" followed by 12 arbitrary digits).
func GeneratePeerID() (PeerID, error) {
	var p PeerID
	copy(p[:], clientID)
	digits := make([]byte, 20-len(clientID))
	if _, err := rand.Read(digits); err != nil {
		return PeerID{}, fmt.Errorf("generate random peer id suffix: %s", err)
	}
	for i, b := range digits {
		p[len(clientID)+i] = '0' + b%10
	}
	return p, nil
}
