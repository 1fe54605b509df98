package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPeerEndpointAddr(t *testing.T) {
	e := NewPeerEndpoint([4]byte{10, 0, 0, 1}, 6881)
	require.Equal(t, "10.0.0.1:6881", e.Addr())
}

func TestPeerEndpointComparable(t *testing.T) {
	a := NewPeerEndpoint([4]byte{10, 0, 0, 1}, 6881)
	b := NewPeerEndpoint([4]byte{10, 0, 0, 1}, 6881)
	c := NewPeerEndpoint([4]byte{10, 0, 0, 2}, 6881)

	set := make(map[PeerEndpoint]bool)
	set[a] = true
	require.True(t, set[b])
	require.False(t, set[c])
}
