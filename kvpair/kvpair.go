// Package kvpair defines the key/value primitives shared across the
// store: the integer domain, the reserved sentinels, and the on-disk
// record shape every layer moves around.
package kvpair

import "math"

// K and V are the integer domains this store supports.
type K = int64
type V = int64

// Size is the on-disk footprint of a single KVPair: two int64 fields,
// no padding, little-endian.
const Size = 16

// KeyMax is the synthetic upper-bound sentinel used as the skiplist's
// tail-node key.
const KeyMax K = math.MaxInt64

// KeyMin is the synthetic lower-bound sentinel used as the skiplist's
// head-node key.
const KeyMin K = math.MinInt64

// VTombstone is the minimum representable V; inserting it for a key
// marks a logical deletion.
const VTombstone V = math.MinInt64

// KVPair is a single record. Ordering is by Key only; recency ties are
// broken externally by run/level position, never by value.
type KVPair struct {
	Key   K
	Value V
}

// Less orders two pairs by key only.
func Less(a, b KVPair) bool { return a.Key < b.Key }

// IsTombstone reports whether a pair represents a deletion marker.
func IsTombstone(p KVPair) bool { return p.Value == VTombstone }
