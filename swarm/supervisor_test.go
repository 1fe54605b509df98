package swarm

import (
	"context"
	"crypto/sha1"
	"sync"
	"testing"
	"time"

	"github.com/andres-erbsen/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Shreyas-Kamath/torrent-go/bencode"
	"github.com/Shreyas-Kamath/torrent-go/core"
	"github.com/Shreyas-Kamath/torrent-go/metainfo"
	"github.com/Shreyas-Kamath/torrent-go/peer"
	"github.com/Shreyas-Kamath/torrent-go/piece"
	"github.com/Shreyas-Kamath/torrent-go/tracker"
)

func buildTestMetaInfo(t *testing.T) *metainfo.MetaInfo {
	t.Helper()
	data := make([]byte, 10)
	hash := sha1.Sum(data)

	info := map[string]interface{}{
		"name":         "test",
		"piece length": int64(10),
		"pieces":       string(hash[:]),
		"length":       int64(10),
	}
	infoBytes, err := bencode.Marshal(info)
	require.NoError(t, err)
	raw := map[string]interface{}{
		"announce": "http://tracker.example/announce",
		"info":     bencode.RawMessage(infoBytes),
	}
	d, err := bencode.Marshal(raw)
	require.NoError(t, err)
	mi, err := metainfo.Parse(d)
	require.NoError(t, err)
	return mi
}

// stubTracker returns a fixed, canned set of peers on every Announce call
// and records the events it was sent.
type stubTracker struct {
	mu     sync.Mutex
	events []string
	peers  []core.PeerEndpoint
}

func (s *stubTracker) Announce(ctx context.Context, params tracker.AnnounceParams) (tracker.AnnounceResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, params.Event)
	return tracker.AnnounceResult{Interval: time.Minute, Peers: s.peers}, nil
}

func (s *stubTracker) URL() string { return "stub://tracker" }

func (s *stubTracker) seenEvents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func TestInsertDeduplicatesEndpoints(t *testing.T) {
	mi := buildTestMetaInfo(t)
	mgr := piece.NewManager(piece.Config{}, mi, clock.NewMock(), zap.NewNop().Sugar())
	localID, _ := core.GeneratePeerID()

	s := NewSupervisor(Config{}, mi, mgr, localID, peer.Config{}, clock.NewMock(), zap.NewNop().Sugar())

	ep := core.NewPeerEndpoint([4]byte{10, 0, 0, 1}, 6881)

	require.True(t, s.insert(ep))
	require.False(t, s.insert(ep))
}

func TestTrackerLoopSendsStartedThenStopped(t *testing.T) {
	mi := buildTestMetaInfo(t)
	clk := clock.NewMock()
	mgr := piece.NewManager(piece.Config{}, mi, clk, zap.NewNop().Sugar())
	localID, _ := core.GeneratePeerID()

	s := NewSupervisor(Config{DefaultInterval: time.Second}, mi, mgr, localID, peer.Config{}, clk, zap.NewNop().Sugar())

	st := &stubTracker{}
	s.Start([]tracker.Tracker{st})

	// Mark the torrent complete before the tracker loop fires to force the
	// supervisor down the "send stopped, then exit" path.
	mgr.AddBlock(localID, 0, 0, make([]byte, 10))

	clk.Add(time.Millisecond) // fire the immediate first timer.
	time.Sleep(50 * time.Millisecond)
	clk.Add(time.Minute) // the stub tracker's interval.
	time.Sleep(50 * time.Millisecond)

	s.Stop()

	events := st.seenEvents()
	require.Contains(t, events, "started")
	require.Contains(t, events, "stopped")
}
