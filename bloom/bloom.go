// Package bloom implements a probabilistic set-membership filter: a
// bit array sized from the expected element count and target
// false-positive rate, populated by double hashing derived from a
// single 128-bit mixer.
package bloom

import (
	"math"

	"github.com/spaolacci/murmur3"

	"github.com/nireo/kantadb/kvpair"
)

// Filter is a Bloom filter over the key domain. It has no false
// negatives for keys that were actually Added; its false-positive
// rate approaches the configured target once populated to the
// expected element count.
type Filter struct {
	bits []uint64
	m    uint64 // number of bits
	k    int    // number of hash functions
}

// New creates a filter sized for n expected elements at false-positive
// rate fp:
//
//	m = ceil(-n * ln(p) / (ln 2)^2)
//	k = ceil((m/n) * ln 2)
func New(n int, fp float64) *Filter {
	if n < 1 {
		n = 1
	}
	if fp <= 0 || fp >= 1 {
		fp = 0.01
	}

	m := uint64(math.Ceil(-float64(n) * math.Log(fp) / (math.Ln2 * math.Ln2)))
	if m < 1 {
		m = 1
	}
	k := int(math.Ceil((float64(m) / float64(n)) * math.Ln2))
	if k < 1 {
		k = 1
	}

	return &Filter{
		bits: make([]uint64, (m+63)/64),
		m:    m,
		k:    k,
	}
}

// taps returns the double-hashing taps (h1, h2) for a key, derived
// from a single 128-bit murmur3 mix of the key's big-endian bytes.
// h2 is forced odd: an even h2 against a power-of-two m would make
// every i*h2 term share a common factor with m, degrading coverage.
func (f *Filter) taps(key kvpair.K) (h1, h2 uint64) {
	var buf [8]byte
	u := uint64(key)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (56 - 8*i))
	}

	h1, h2 = murmur3.Sum128(buf[:])
	h2 |= 1
	return h1, h2
}

// Add sets the k bits addressed by the key's double-hash taps.
func (f *Filter) Add(key kvpair.K) {
	h1, h2 := f.taps(key)
	for i := 0; i < f.k; i++ {
		bit := (h1 + uint64(i)*h2) % f.m
		f.bits[bit/64] |= 1 << (bit % 64)
	}
}

// MayContain returns false iff any of the key's k taps is unset,
// meaning the key was definitely never Added. A true return means the
// key may be present, with false-positive probability bounded by the
// filter's configured rate.
func (f *Filter) MayContain(key kvpair.K) bool {
	h1, h2 := f.taps(key)
	for i := 0; i < f.k; i++ {
		bit := (h1 + uint64(i)*h2) % f.m
		if f.bits[bit/64]&(1<<(bit%64)) == 0 {
			return false
		}
	}
	return true
}

// NumBits returns the size of the bit array, m.
func (f *Filter) NumBits() uint64 { return f.m }

// NumHashes returns the number of hash taps, k.
func (f *Filter) NumHashes() int { return f.k }
