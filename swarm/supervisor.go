package swarm

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/andres-erbsen/clock"
	"go.uber.org/zap"

	"github.com/Shreyas-Kamath/torrent-go/core"
	"github.com/Shreyas-Kamath/torrent-go/metainfo"
	"github.com/Shreyas-Kamath/torrent-go/peer"
	"github.com/Shreyas-Kamath/torrent-go/piece"
	"github.com/Shreyas-Kamath/torrent-go/tracker"
)

// Supervisor owns the swarm for exactly one torrent: the deduplicated,
// monotone peer-endpoint set, one goroutine per tracker URL running the
// announce loop, a goroutine-per-peer-session spawn on every newly
// discovered endpoint, and the idle-peer reaper. Grounded on the original
// Rust run_tracker spawn pattern and the teacher's AddPeer -> go d.feed(p)
// pattern in Dispatcher.
type Supervisor struct {
	config Config
	mi     *metainfo.MetaInfo
	mgr    *piece.Manager

	localID    core.PeerID
	peerConfig peer.Config

	clk    clock.Clock
	logger *zap.SugaredLogger

	mu        sync.Mutex
	endpoints map[core.PeerEndpoint]bool

	wg   sync.WaitGroup
	done chan struct{}
}

// NewSupervisor builds a Supervisor for one torrent. localID is this
// client's peer id, announced to every tracker and sent in every
// handshake.
func NewSupervisor(
	config Config,
	mi *metainfo.MetaInfo,
	mgr *piece.Manager,
	localID core.PeerID,
	peerConfig peer.Config,
	clk clock.Clock,
	logger *zap.SugaredLogger,
) *Supervisor {
	return &Supervisor{
		config:     config.applyDefaults(),
		mi:         mi,
		mgr:        mgr,
		localID:    localID,
		peerConfig: peerConfig,
		clk:        clk,
		logger:     logger,
		endpoints:  make(map[core.PeerEndpoint]bool),
		done:       make(chan struct{}),
	}
}

// Start launches one goroutine per tracker plus the idle-peer reaper.
// Returns immediately; the swarm runs until Stop is called or every
// tracker's task ends on its own (malformed response).
func (s *Supervisor) Start(trackers []tracker.Tracker) {
	for _, tr := range trackers {
		s.wg.Add(1)
		go s.trackerLoop(tr)
	}
	s.wg.Add(1)
	go s.reapLoop()
}

// Stop signals every tracker loop and the reaper to exit and waits for
// them. Peer sessions are not tracked here: a session is cancelled
// by dropping its task, and this client has no seeding target to wait for
// on shutdown.
func (s *Supervisor) Stop() {
	close(s.done)
	s.wg.Wait()
}

// trackerLoop runs the endless announce -> merge peers -> sleep(interval)
// loop for one tracker. The first announce sends event=started;
// once the piece manager reports completion, the loop sends event=stopped
// exactly once more and then exits -- this client never seeds, so there is
// nothing further for this tracker task to do once the download is done.
func (s *Supervisor) trackerLoop(tr tracker.Tracker) {
	defer s.wg.Done()

	timer := s.clk.Timer(0)
	defer timer.Stop()

	interval := s.config.DefaultInterval
	event := "started"
	sentStopped := false

	for {
		select {
		case <-s.done:
			return
		case <-timer.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		result, err := tr.Announce(ctx, tracker.AnnounceParams{
			InfoHash: s.mi.InfoHash,
			PeerID:   s.localID,
			Port:     s.config.ListenPort,
			Left:     s.mi.TotalLength() - s.mgr.BytesWritten(),
			Event:    event,
		})
		cancel()

		if err != nil {
			var malformed *tracker.ErrMalformed
			if errors.As(err, &malformed) {
				s.logger.With("tracker", tr.URL()).Errorf("Ending tracker task on malformed response: %s", err)
				return
			}
			s.logger.With("tracker", tr.URL()).Infof("Tracker unreachable, retrying next interval: %s", err)
			timer.Reset(interval)
			continue
		}

		interval = result.Interval
		event = ""

		if sentStopped {
			return
		}
		if s.mgr.Done() {
			event = "stopped"
			sentStopped = true
		} else {
			s.mergePeers(result.Peers)
		}

		timer.Reset(interval)
	}
}

// mergePeers attempts to insert every newly seen endpoint into the
// deduplicated set; only on a successful insertion is a new peer session
// spawned.
func (s *Supervisor) mergePeers(peers []core.PeerEndpoint) {
	for _, ep := range peers {
		if s.insert(ep) {
			go s.runSession(ep)
		}
	}
}

func (s *Supervisor) insert(ep core.PeerEndpoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.endpoints[ep] {
		return false
	}
	s.endpoints[ep] = true
	return true
}

func (s *Supervisor) runSession(ep core.PeerEndpoint) {
	sess, err := peer.Dial(ep, s.mi.InfoHash, s.localID, s.mi.NumPieces(), s.mgr, s.peerConfig, s.logger)
	if err != nil {
		s.logger.With("peer", ep).Infof("Failed to connect to peer: %s", err)
		return
	}
	s.logger.With("peer", ep).Infof("Connected to peer")
	sess.Run()
}

// reapLoop periodically calls Manager.Reap, which resets every block that
// has stayed Requested longer than the piece manager's StallTimeout,
// whichever peer claimed it. Grounded on the teacher's
// watchPendingPieceRequests / resendFailedPieceRequests pair.
func (s *Supervisor) reapLoop() {
	defer s.wg.Done()

	ticker := s.clk.Ticker(s.config.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mgr.Reap()
		}
	}
}
