// Package bitfield provides a mutex-guarded, piece-indexed bit vector used
// both for a remote peer's advertised have-set and for the piece manager's
// own completeness bitmap. Grounded on the teacher's
// lib/torrent/scheduler/dispatch.syncBitfield, backed by the same
// github.com/willf/bitset implementation.
package bitfield

import (
	"bytes"
	"sync"

	"github.com/willf/bitset"
)

// Bitfield is a fixed-length, thread-safe bit vector indexed by piece
// number. The wire encoding is MSB-first within each byte, matching BEP 3.
type Bitfield struct {
	mu sync.RWMutex
	b  *bitset.BitSet
}

// New returns a Bitfield with n bits, all initially unset.
func New(n int) *Bitfield {
	return &Bitfield{b: bitset.New(uint(n))}
}

// Len returns the number of pieces the bitfield tracks.
func (f *Bitfield) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int(f.b.Len())
}

// Has reports whether bit i is set.
func (f *Bitfield) Has(i int) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.b.Test(uint(i))
}

// Set sets bit i to v.
func (f *Bitfield) Set(i int, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.b.SetTo(uint(i), v)
}

// SetAll sets every bit to v.
func (f *Bitfield) SetAll(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := uint(0); i < f.b.Len(); i++ {
		f.b.SetTo(i, v)
	}
}

// Complete reports whether every bit is set.
func (f *Bitfield) Complete() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.b.All()
}

// Count returns the number of set bits.
func (f *Bitfield) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int(f.b.Count())
}

// HasAnyNotIn reports whether f has any bit set that is unset in other.
// Used to decide "does this peer have a piece we need" without allocating
// an intersection set.
func (f *Bitfield) HasAnyNotIn(other *Bitfield) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	other.mu.RLock()
	defer other.mu.RUnlock()

	for i := uint(0); i < f.b.Len(); i++ {
		if f.b.Test(i) && !other.b.Test(i) {
			return true
		}
	}
	return false
}

// MarshalWire encodes f as a BEP 3 bitfield message payload: ceil(n/8)
// bytes, MSB-first within each byte.
func (f *Bitfield) MarshalWire() []byte {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := f.b.Len()
	out := make([]byte, (n+7)/8)
	for i := uint(0); i < n; i++ {
		if f.b.Test(i) {
			out[i/8] |= 0x80 >> (i % 8)
		}
	}
	return out
}

// UnmarshalWire replaces f's contents from a BEP 3 bitfield message
// payload. The trailing spare bits beyond n, if any, are ignored.
func (f *Bitfield) UnmarshalWire(data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := f.b.Len()
	for i := uint(0); i < n; i++ {
		set := data[i/8]&(0x80>>(i%8)) != 0
		f.b.SetTo(i, set)
	}
}

func (f *Bitfield) String() string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var buf bytes.Buffer
	for i := uint(0); i < f.b.Len(); i++ {
		if f.b.Test(i) {
			buf.WriteByte('1')
		} else {
			buf.WriteByte('0')
		}
	}
	return buf.String()
}
