package peer

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Shreyas-Kamath/torrent-go/core"
)

func TestSendHandshakeByteForByte(t *testing.T) {
	var infoHash core.InfoHash
	for i := range infoHash {
		infoHash[i] = 0xAA
	}
	peerID, err := core.NewPeerIDFromBytes([]byte("-TR1012-123456789012"[:20]))
	require.NoError(t, err)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- sendHandshake(client, infoHash, peerID) }()

	got := make([]byte, handshakeLen)
	_, err = readFull(server, got)
	require.NoError(t, err)
	require.NoError(t, <-errCh)

	want := []byte{
		0x13, 0x42, 0x69, 0x74, 0x54, 0x6F, 0x72, 0x72, 0x65, 0x6E, 0x74, 0x20,
		0x70, 0x72, 0x6F, 0x74, 0x6F, 0x63, 0x6F, 0x6C,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	for i := 0; i < 20; i++ {
		want = append(want, 0xAA)
	}
	want = append(want, "-TR1012-123456789012"...)

	require.Equal(t, want, got)
}

func readFull(c net.Conn, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := c.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func TestHandshakeRejectsMismatchedInfoHash(t *testing.T) {
	var localHash, remoteHash core.InfoHash
	for i := range localHash {
		localHash[i] = 0x01
		remoteHash[i] = 0x02
	}
	localID, _ := core.GeneratePeerID()
	remoteID, _ := core.GeneratePeerID()

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() {
		readHandshake(server)
		sendHandshake(server, remoteHash, remoteID)
	}()

	errCh := make(chan error, 1)
	go func() {
		_, err := handshake(client, localHash, localID)
		errCh <- err
	}()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, ErrHandshakeMismatch)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handshake")
	}
}
