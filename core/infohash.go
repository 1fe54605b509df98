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
	"crypto/sha1"
	"encoding/hex"
)

// InfoHash is the 20-byte SHA1 hash of a torrent's bencoded info dict. It
// is the authoritative identifier for a torrent, announced to trackers
// and exchanged in every peer handshake.
type InfoHash [20]byte

// NewInfoHashFromBytes hashes the raw bencoded info dict into an
// InfoHash. There is no hex-string constructor here: this client only
// ever derives an InfoHash from a loaded .torrent file's info dict, never
// from user-supplied hex (e.g. a magnet link), so that entry point is
// dropped rather than carried as unused surface.
func NewInfoHashFromBytes(b []byte) InfoHash {
	var h InfoHash
	hasher := sha1.New()
	hasher.Write(b)
	copy(h[:], hasher.Sum(nil))
	return h
}

// Bytes converts h to raw bytes.
func (h InfoHash) Bytes() []byte {
	return h[:]
}

// Hex converts h into a hexadecimal string.
func (h InfoHash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h InfoHash) String() string {
	return h.Hex()
}
