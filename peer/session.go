package peer

import (
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/Shreyas-Kamath/torrent-go/bitfield"
	"github.com/Shreyas-Kamath/torrent-go/core"
	"github.com/Shreyas-Kamath/torrent-go/piece"
)

// ErrProtocol marks a malformed or out-of-bounds message payload. Ends the
// session.
var ErrProtocol = errors.New("peer: protocol error")

// ErrConnectFailed wraps a failure to dial or handshake a remote peer. The
// endpoint stays in the swarm's dedup set.
type ErrConnectFailed struct {
	Endpoint core.PeerEndpoint
	Err      error
}

func (e *ErrConnectFailed) Error() string {
	return fmt.Sprintf("connect to %s: %s", e.Endpoint, e.Err)
}

func (e *ErrConnectFailed) Unwrap() error { return e.Err }

// Session drives one connected remote peer end to end: the handshake, the
// choke/interest state machine, consuming bitfield/have updates, and
// pumping block requests against the shared piece manager. Grounded on
// dispatch/dispatcher.go's dispatch/handleBitfield/handleAnnouncePiece/
// maybeRequestMorePieces, collapsed to the single-torrent, block-granular
// model piece.Manager requires.
type Session struct {
	conn   *Conn
	mgr    *piece.Manager
	logger *zap.SugaredLogger

	localID core.PeerID

	amChoked       bool
	amInterested   bool
	peerChoked     bool
	peerInterested bool

	remoteBitfield *bitfield.Bitfield
}

// Dial connects to endpoint, performs the handshake, and returns a Session
// ready to Run. The returned error is always an *ErrConnectFailed or
// ErrHandshakeMismatch on failure.
func Dial(
	endpoint core.PeerEndpoint,
	infoHash core.InfoHash,
	localID core.PeerID,
	numPieces int,
	mgr *piece.Manager,
	config Config,
	logger *zap.SugaredLogger,
) (*Session, error) {
	config = config.applyDefaults()

	nc, err := net.DialTimeout("tcp", endpoint.Addr(), config.HandshakeTimeout)
	if err != nil {
		return nil, &ErrConnectFailed{Endpoint: endpoint, Err: err}
	}
	if err := nc.SetDeadline(time.Now().Add(config.HandshakeTimeout)); err != nil {
		nc.Close()
		return nil, &ErrConnectFailed{Endpoint: endpoint, Err: err}
	}

	remoteID, err := handshake(nc, infoHash, localID)
	if err != nil {
		nc.Close()
		if errors.Is(err, ErrHandshakeMismatch) {
			return nil, err
		}
		return nil, &ErrConnectFailed{Endpoint: endpoint, Err: err}
	}

	conn := newConn(nc, remoteID, config, logger)

	return &Session{
		conn:           conn,
		mgr:            mgr,
		logger:         logger,
		localID:        localID,
		amChoked:       true,
		peerChoked:     true,
		remoteBitfield: bitfield.New(numPieces),
	}, nil
}

// PeerID returns the remote peer id.
func (s *Session) PeerID() core.PeerID {
	return s.conn.PeerID()
}

// Run starts the underlying connection and processes the message stream
// until the connection closes for any reason: I/O error, parse failure, or
// peer disconnect. Always clears its own in-flight
// block claims on return, rather than waiting for the swarm's reaper.
func (s *Session) Run() {
	defer s.mgr.ClearPeer(s.conn.PeerID())
	defer s.conn.Close()

	s.conn.Start()

	for msg := range s.conn.Receiver() {
		if err := s.dispatch(msg); err != nil {
			s.log().Infof("Ending session on protocol error: %s", err)
			return
		}
	}
}

func (s *Session) dispatch(msg *message) error {
	switch msg.id {
	case msgChoke:
		s.amChoked = true
	case msgUnchoke:
		s.amChoked = false
		s.maybeRequestNext()
	case msgInterested:
		s.peerInterested = true
	case msgNotInterested:
		s.peerInterested = false
	case msgHave:
		index, err := decodeHave(msg.payload)
		if err != nil {
			return err
		}
		if index < 0 || index >= s.remoteBitfield.Len() {
			return fmt.Errorf("%w: have index %d out of range", ErrProtocol, index)
		}
		s.remoteBitfield.Set(index, true)
		s.maybeBecomeInterested()
		s.maybeRequestNext()
	case msgBitfield:
		want := (s.remoteBitfield.Len() + 7) / 8
		if len(msg.payload) < want {
			return fmt.Errorf("%w: bitfield payload too short: %d < %d", ErrProtocol, len(msg.payload), want)
		}
		s.remoteBitfield.UnmarshalWire(msg.payload)
		s.maybeBecomeInterested()
		s.maybeRequestNext()
	case msgRequest, msgCancel:
		// Not implemented: this client never seeds.
	case msgPiece:
		index, begin, block, err := decodePiece(msg.payload)
		if err != nil {
			return err
		}
		if err := s.mgr.AddBlock(s.conn.PeerID(), index, begin, block); err != nil {
			return err
		}
		s.maybeRequestNext()
	case msgPort:
		// No DHT: ignored.
	default:
		s.log().Debugf("Ignoring unknown message id %d", msg.id)
	}
	return nil
}

// maybeBecomeInterested sends `interested` the first time the remote's
// bitfield shows a piece we still need.
func (s *Session) maybeBecomeInterested() {
	if s.amInterested {
		return
	}
	if !s.mgr.PeerHasPieceWeNeed(s.remoteBitfield) {
		return
	}
	s.amInterested = true
	if err := s.conn.Send(interestedMessage); err != nil {
		s.log().Infof("Error sending interested: %s", err)
	}
}

// maybeRequestNext implements the request pump: while am_choked is
// false and a candidate block exists, issue a request and loop. Called on
// every event that could unblock progress: unchoke, have, bitfield, piece.
func (s *Session) maybeRequestNext() {
	for !s.amChoked {
		index, begin, length, ok := s.mgr.NextBlock(s.conn.PeerID(), s.remoteBitfield)
		if !ok {
			return
		}
		if err := s.conn.Send(encodeRequest(index, begin, length)); err != nil {
			s.log().Infof("Error sending request: %s", err)
			return
		}
	}
}

func (s *Session) log() *zap.SugaredLogger {
	return s.logger.With("peer", s.conn.PeerID())
}
