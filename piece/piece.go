package piece

import (
	"time"

	"github.com/Shreyas-Kamath/torrent-go/core"
)

// state is the lifecycle of one 16 KiB block within a Piece.
type state int

const (
	// NotRequested has not been requested from any peer.
	notRequested state = iota
	// requested is currently outstanding to some peer.
	requested
	// received has been delivered and copied into the piece buffer.
	received
)

// piece is the mutable per-piece bookkeeping the Manager owns exclusively.
// Its buffer and block-state vector are allocated lazily on first request.
type piece struct {
	index        int
	length       int64
	expectedHash [20]byte

	blocks      []state
	claimed     []bool
	claimants   []core.PeerID
	requestedAt []time.Time

	buffer   []byte
	complete bool
}

func newPiece(index int, length int64, hash [20]byte) *piece {
	return &piece{index: index, length: length, expectedHash: hash}
}

func (p *piece) numBlocks() int {
	return int((p.length + BlockSize - 1) / BlockSize)
}

func (p *piece) blockLength(i int) int64 {
	if i == p.numBlocks()-1 {
		return p.length - int64(i)*BlockSize
	}
	return BlockSize
}

// ensureAllocated lazily allocates the block-state vector and assembly
// buffer on first use.
func (p *piece) ensureAllocated() {
	if p.blocks != nil {
		return
	}
	n := p.numBlocks()
	p.blocks = make([]state, n)
	p.claimed = make([]bool, n)
	p.claimants = make([]core.PeerID, n)
	p.requestedAt = make([]time.Time, n)
	p.buffer = make([]byte, p.length)
}

// reset clears the block-state vector and buffer, leaving the piece to be
// re-fetched from scratch. Used after a hash mismatch.
func (p *piece) reset() {
	p.blocks = nil
	p.claimed = nil
	p.claimants = nil
	p.requestedAt = nil
	p.buffer = nil
}

// resetBlocksClaimedBy resets every Requested block claimed by peerID back
// to notRequested, without touching Received blocks or the overall
// completeness state. Used by Manager.ClearPeer when a session clears its
// own claims on teardown.
func (p *piece) resetBlocksClaimedBy(peerID core.PeerID) {
	for i, s := range p.blocks {
		if s == requested && p.claimed[i] && p.claimants[i] == peerID {
			p.blocks[i] = notRequested
			p.claimed[i] = false
		}
	}
}

// resetStaleBlocks resets every Requested block whose requestedAt is older
// than deadline back to notRequested.
func (p *piece) resetStaleBlocks(deadline time.Time) {
	for i, s := range p.blocks {
		if s == requested && p.requestedAt[i].Before(deadline) {
			p.blocks[i] = notRequested
			p.claimed[i] = false
		}
	}
}

func (p *piece) allReceived() bool {
	for _, s := range p.blocks {
		if s != received {
			return false
		}
	}
	return true
}
