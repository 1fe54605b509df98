package bitfield

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAndHas(t *testing.T) {
	f := New(10)
	require.False(t, f.Has(3))
	f.Set(3, true)
	require.True(t, f.Has(3))
	f.Set(3, false)
	require.False(t, f.Has(3))
}

func TestComplete(t *testing.T) {
	f := New(4)
	require.False(t, f.Complete())
	f.SetAll(true)
	require.True(t, f.Complete())
	require.Equal(t, 4, f.Count())
}

func TestHasAnyNotIn(t *testing.T) {
	remote := New(8)
	remote.Set(0, true)
	remote.Set(5, true)

	complete := New(8)
	complete.Set(0, true)

	require.True(t, remote.HasAnyNotIn(complete))

	complete.Set(5, true)
	require.False(t, remote.HasAnyNotIn(complete))
}

func TestWireRoundTrip(t *testing.T) {
	f := New(10)
	f.Set(0, true)
	f.Set(7, true)
	f.Set(8, true)

	wire := f.MarshalWire()
	require.Equal(t, 2, len(wire)) // ceil(10/8) = 2.

	g := New(10)
	g.UnmarshalWire(wire)
	for i := 0; i < 10; i++ {
		require.Equal(t, f.Has(i), g.Has(i), "bit %d", i)
	}
}

func TestMarshalWireMSBFirst(t *testing.T) {
	f := New(8)
	f.Set(0, true) // MSB of first byte.
	wire := f.MarshalWire()
	require.Equal(t, byte(0x80), wire[0])
}
