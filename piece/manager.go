// Package piece implements the shared piece/block coordinator: it tracks
// per-piece and per-block state across the swarm, decides what a peer
// should request next, verifies completed pieces against the metainfo
// hash list, and hands verified pieces off to the file writer.
package piece

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"sync"

	"github.com/andres-erbsen/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Shreyas-Kamath/torrent-go/bitfield"
	"github.com/Shreyas-Kamath/torrent-go/core"
	"github.com/Shreyas-Kamath/torrent-go/metainfo"
)

// ErrProtocolViolation is returned by AddBlock when the peer sent a block
// that does not fit the piece layout: a begin offset that is not a
// multiple of BlockSize, or data that would overrun the piece buffer.
var ErrProtocolViolation = errors.New("piece: protocol violation")

// ErrHashMismatch marks a completed piece whose SHA-1 did not match the
// metainfo hash list. Never returned from AddBlock: the piece is silently
// reset for re-fetching and this is only ever logged.
var ErrHashMismatch = errors.New("piece: hash mismatch")

// WriteJob is a single verified piece handed off to the file writer.
type WriteJob struct {
	Index int
	Data  []byte
}

// Manager is the singleton, mutex-guarded piece coordinator shared across
// every peer session for one torrent.
type Manager struct {
	mu     sync.Mutex
	pieces []*piece

	info *metainfo.MetaInfo

	// complete is our own completeness bitfield: complete.Has(i) iff
	// pieces[i].complete. Kept in sync under mu.
	complete *bitfield.Bitfield

	inFlight map[core.PeerID]int

	writeCh chan WriteJob

	config Config
	clk    clock.Clock
	logger *zap.SugaredLogger

	bytesWritten *atomic.Int64

	doneOnce sync.Once
	doneCh   chan struct{}
}

// NewManager builds a Manager for the given torrent. The returned Manager
// owns writeCh's sole producer side; the caller (filewriter.Writer) must
// drain it.
func NewManager(config Config, info *metainfo.MetaInfo, clk clock.Clock, logger *zap.SugaredLogger) *Manager {
	config = config.applyDefaults()

	n := info.NumPieces()
	pieces := make([]*piece, n)
	for i := 0; i < n; i++ {
		pieces[i] = newPiece(i, info.PieceLength(i), info.PieceHash(i))
	}

	return &Manager{
		pieces:       pieces,
		info:         info,
		complete:     bitfield.New(n),
		inFlight:     make(map[core.PeerID]int),
		writeCh:      make(chan WriteJob, config.WriteChannelCapacity),
		config:       config,
		clk:          clk,
		logger:       logger,
		bytesWritten: atomic.NewInt64(0),
		doneCh:       make(chan struct{}),
	}
}

// WriteJobs returns the read side of the verified-piece handoff channel.
func (m *Manager) WriteJobs() <-chan WriteJob {
	return m.writeCh
}

// Bitfield returns our own completeness bitfield, the same one
// PeerHasPieceWeNeed compares a remote peer's bitfield against.
func (m *Manager) Bitfield() *bitfield.Bitfield {
	return m.complete
}

// Done reports whether every piece has been verified.
func (m *Manager) Done() bool {
	return m.complete.Complete()
}

// DoneCh is closed exactly once, when the last piece is verified.
func (m *Manager) DoneCh() <-chan struct{} {
	return m.doneCh
}

// BytesWritten returns a running total of bytes handed off to the writer,
// incremented exactly when a piece is verified.
func (m *Manager) BytesWritten() int64 {
	return m.bytesWritten.Load()
}

// PeerHasPieceWeNeed reports whether remote has any piece we have not yet
// completed.
func (m *Manager) PeerHasPieceWeNeed(remote *bitfield.Bitfield) bool {
	return remote.HasAnyNotIn(m.complete)
}

// NextBlock scans pieces in ascending index order and returns the first
// unrequested block of the first incomplete piece that remote has,
// atomically marking it Requested under peerID's claim. Returns ok=false
// if remote has nothing we still need, or peerID is already at its
// pipeline cap.
//
// Ordering is deterministic (ascending index, first unrequested block) for
// reproducibility; a rarest-first policy could replace the piece
// selection without changing the return contract.
func (m *Manager) NextBlock(peerID core.PeerID, remote *bitfield.Bitfield) (index, offset int, length int64, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.inFlight[peerID] >= m.config.PipelineLimit {
		return 0, 0, 0, false
	}

	for _, p := range m.pieces {
		if p.complete {
			continue
		}
		if !remote.Has(p.index) {
			continue
		}
		p.ensureAllocated()

		for bi, s := range p.blocks {
			if s != notRequested {
				continue
			}
			p.blocks[bi] = requested
			p.claimed[bi] = true
			p.claimants[bi] = peerID
			p.requestedAt[bi] = m.clk.Now()
			m.inFlight[peerID]++

			return p.index, bi * BlockSize, p.blockLength(bi), true
		}
	}
	return 0, 0, 0, false
}

// AddBlock copies data into the piece buffer at begin and marks that block
// Received. Once every block of the piece is Received, the piece is
// hashed and, on success, handed off to the writer exactly once; on
// failure every block of the piece is reset to NotRequested.
//
// Receiving a block for an already-complete piece is a no-op. A begin not
// aligned to BlockSize, or data overrunning the piece, is a protocol
// violation surfaced to the caller.
func (m *Manager) AddBlock(peerID core.PeerID, index, begin int, data []byte) error {
	job, done, err := m.addBlockLocked(peerID, index, begin, data)
	if err != nil || job == nil {
		return err
	}

	// Hand off to the writer outside the lock: channel send is the
	// decoupling point between hash verification and disk I/O, and must
	// not extend the critical section.
	m.writeCh <- *job
	if done {
		m.doneOnce.Do(func() { close(m.doneCh) })
	}
	return nil
}

func (m *Manager) addBlockLocked(peerID core.PeerID, index, begin int, data []byte) (job *WriteJob, done bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if index < 0 || index >= len(m.pieces) {
		return nil, false, fmt.Errorf("%w: piece index %d out of bounds", ErrProtocolViolation, index)
	}
	p := m.pieces[index]

	if p.complete {
		return nil, false, nil
	}
	if begin%BlockSize != 0 {
		return nil, false, fmt.Errorf("%w: begin %d is not a multiple of %d", ErrProtocolViolation, begin, BlockSize)
	}
	if int64(begin)+int64(len(data)) > p.length {
		return nil, false, fmt.Errorf("%w: block [%d, %d) overruns piece of length %d",
			ErrProtocolViolation, begin, begin+len(data), p.length)
	}

	p.ensureAllocated()

	bi := begin / BlockSize
	if m.inFlight[peerID] > 0 && p.claimed[bi] && p.claimants[bi] == peerID {
		m.inFlight[peerID]--
		p.claimed[bi] = false
	}

	copy(p.buffer[begin:], data)
	p.blocks[bi] = received

	if !p.allReceived() {
		return nil, false, nil
	}

	sum := sha1.Sum(p.buffer)
	if sum != p.expectedHash {
		m.logger.With("piece", index).Infof("%s, refetching", ErrHashMismatch)
		p.reset()
		return nil, false, nil
	}

	buf := p.buffer
	p.complete = true
	p.reset()
	m.complete.Set(index, true)
	m.bytesWritten.Add(int64(len(buf)))

	return &WriteJob{Index: index, Data: buf}, m.complete.Complete(), nil
}

// ClearPeer resets every block claimed by peerID back to NotRequested and
// drops its in-flight counter. Called by a session on its own teardown,
// clearing its claims immediately rather than waiting for Reap.
func (m *Manager) ClearPeer(peerID core.PeerID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.pieces {
		if p.blocks == nil || p.complete {
			continue
		}
		p.resetBlocksClaimedBy(peerID)
	}
	delete(m.inFlight, peerID)
}

// Reap resets any block still Requested for longer than Config.StallTimeout
// back to NotRequested, regardless of which peer claimed it. Run
// periodically by the swarm supervisor to recover from peers that
// disconnected mid-request without an explicit teardown.
func (m *Manager) Reap() {
	m.mu.Lock()
	defer m.mu.Unlock()

	deadline := m.clk.Now().Add(-m.config.StallTimeout)
	for _, p := range m.pieces {
		if p.blocks == nil || p.complete {
			continue
		}
		p.resetStaleBlocks(deadline)
	}
}
