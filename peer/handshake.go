// Package peer implements one session per connected remote peer: the
// handshake, the length-prefixed message stream, the choke/interest state
// machine, and the per-peer request pump that drives blocks out of the
// shared piece manager.
//
// Grounded directly on the teacher's lib/torrent/scheduler/conn package,
// adapted from kraken's protobuf-over-length-prefix wire format to the raw
// BEP 3 message-ID wire format.
package peer

import (
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/Shreyas-Kamath/torrent-go/core"
)

const (
	protocolID    = "BitTorrent protocol"
	handshakeLen  = 49 + len(protocolID)
	reservedBytes = 8
)

// ErrHandshakeMismatch is returned when the remote's info_hash does not
// match ours.
var ErrHandshakeMismatch = errors.New("peer: handshake info_hash mismatch")

// sendHandshake writes the 68-byte handshake: pstrlen, pstr, 8 reserved
// zero bytes, info_hash, peer_id.
func sendHandshake(nc net.Conn, infoHash core.InfoHash, localID core.PeerID) error {
	buf := make([]byte, 0, handshakeLen)
	buf = append(buf, byte(len(protocolID)))
	buf = append(buf, protocolID...)
	buf = append(buf, make([]byte, reservedBytes)...)
	buf = append(buf, infoHash.Bytes()...)
	buf = append(buf, localID[:]...)

	for len(buf) > 0 {
		n, err := nc.Write(buf)
		if err != nil {
			return fmt.Errorf("write handshake: %s", err)
		}
		buf = buf[n:]
	}
	return nil
}

// readHandshake reads exactly 68 bytes from nc and returns the remote's
// info_hash and peer_id. It does not validate the info_hash; the caller
// compares it against the expected value.
func readHandshake(nc net.Conn) (core.InfoHash, core.PeerID, error) {
	buf := make([]byte, handshakeLen)
	if _, err := io.ReadFull(nc, buf); err != nil {
		return core.InfoHash{}, core.PeerID{}, fmt.Errorf("read handshake: %s", err)
	}
	if int(buf[0]) != len(protocolID) || string(buf[1:1+len(protocolID)]) != protocolID {
		return core.InfoHash{}, core.PeerID{}, fmt.Errorf("read handshake: unrecognized protocol string")
	}

	offset := 1 + len(protocolID) + reservedBytes
	var infoHash core.InfoHash
	copy(infoHash[:], buf[offset:offset+20])
	peerID, err := core.NewPeerIDFromBytes(buf[offset+20 : offset+40])
	if err != nil {
		return core.InfoHash{}, core.PeerID{}, fmt.Errorf("read handshake: %s", err)
	}
	return infoHash, peerID, nil
}

// handshake performs the full 68-byte exchange on an already-dialed nc,
// grounded on conn/handshaker.go's fullHandshake structure: send first,
// then read, then validate. Returns the remote peer id on success.
func handshake(nc net.Conn, infoHash core.InfoHash, localID core.PeerID) (core.PeerID, error) {
	if err := sendHandshake(nc, infoHash, localID); err != nil {
		return core.PeerID{}, err
	}
	remoteHash, remoteID, err := readHandshake(nc)
	if err != nil {
		return core.PeerID{}, err
	}
	if remoteHash != infoHash {
		return core.PeerID{}, ErrHandshakeMismatch
	}
	return remoteID, nil
}
