// Package diskrun implements an immutable, memory-mapped sorted disk
// run: a file of packed KVPair records in key order, indexed by a
// Bloom filter and sparse fence pointers built by scanning the mapped
// bytes.
package diskrun

import (
	"fmt"
	"sort"

	"github.com/nireo/kantadb/bloom"
	"github.com/nireo/kantadb/kvpair"
)

// Run is an immutable sorted array of KVPairs backed by a memory
// mapped file, uniquely identified by (Level, RunID).
type Run struct {
	dir      string
	level    int
	runID    int
	pageSize int
	bfFP     float64

	mapping []byte // shared read-write mmap of the backing file
	fd      int
	capacity int // current logical length, in records

	fencePointers []kvpair.K
	filter        *bloom.Filter
	minKey        kvpair.K
	maxKey        kvpair.K
	haveBounds    bool
}

// Filename returns the canonical on-disk name for a run at (level, runID).
func Filename(level, runID int) string {
	return fmt.Sprintf("C_%d_%d.txt", level, runID)
}

// Level returns the run's tier.
func (r *Run) Level() int { return r.level }

// RunID returns the run's slot id within its level.
func (r *Run) RunID() int { return r.runID }

// Capacity returns the current logical record count.
func (r *Run) Capacity() int { return r.capacity }

// record decodes the n-th record from the mapped bytes.
func (r *Run) record(n int) kvpair.KVPair {
	off := n * kvpair.Size
	key := int64(le64(r.mapping[off : off+8]))
	val := int64(le64(r.mapping[off+8 : off+16]))
	return kvpair.KVPair{Key: key, Value: val}
}

func (r *Run) putRecord(n int, p kvpair.KVPair) {
	off := n * kvpair.Size
	putLE64(r.mapping[off:off+8], uint64(p.Key))
	putLE64(r.mapping[off+8:off+16], uint64(p.Value))
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func putLE64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v)
		v >>= 8
	}
}

// WriteData copies len pairs into map[offset:offset+len) and sets the
// run's current capacity to len. A run is written once, then frozen.
func (r *Run) WriteData(src []kvpair.KVPair, offset int) {
	for i, p := range src {
		r.putRecord(offset+i, p)
	}
	r.capacity = len(src)
}

// ConstructIndex scans map[0:capacity) and builds the Bloom filter,
// fence pointers, and min/max bounds.
func (r *Run) ConstructIndex() {
	r.filter = bloom.New(maxInt(r.capacity, 1), r.bfFP)
	r.fencePointers = r.fencePointers[:0]

	for j := 0; j < r.capacity; j++ {
		k := r.record(j).Key
		r.filter.Add(k)
		if j%r.pageSize == 0 {
			r.fencePointers = append(r.fencePointers, k)
		}
	}

	if r.capacity > 0 {
		r.minKey = r.record(0).Key
		r.maxKey = r.record(r.capacity - 1).Key
		r.haveBounds = true
	} else {
		r.haveBounds = false
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// bracket returns the half-open fence-pointer bracket [start, end) a
// key falls into.
func (r *Run) bracket(k kvpair.K) (start, end int) {
	n := len(r.fencePointers)
	if n <= 1 {
		return 0, r.capacity
	}
	if k < r.fencePointers[1] {
		return 0, r.pageSize
	}
	if k >= r.fencePointers[n-1] {
		return (n - 1) * r.pageSize, r.capacity
	}

	// largest i with fencePointers[i] <= k
	i := sort.Search(n, func(i int) bool { return r.fencePointers[i] > k }) - 1
	if i < 0 {
		i = 0
	}
	start = i * r.pageSize
	end = (i + 1) * r.pageSize
	if end > r.capacity {
		end = r.capacity
	}
	return start, end
}

// Lookup returns the value for k and whether it was found: a bounds
// check, a Bloom filter check, then a fence-pointer bracket and a
// binary search within it.
func (r *Run) Lookup(k kvpair.K) (kvpair.V, bool) {
	if !r.haveBounds || k < r.minKey || k > r.maxKey {
		return 0, false
	}
	if r.filter != nil && !r.filter.MayContain(k) {
		return 0, false
	}

	start, end := r.bracket(k)
	idx := sort.Search(end-start, func(i int) bool {
		return r.record(start+i).Key >= k
	})
	if start+idx < end {
		p := r.record(start + idx)
		if p.Key == k {
			return p.Value, true
		}
	}
	return 0, false
}

// Range returns the half-open index interval [i1, i2) of keys k with
// lo <= k <= hi.
func (r *Run) Range(lo, hi kvpair.K) (i1, i2 int) {
	if !r.haveBounds || lo > r.maxKey || hi < r.minKey {
		return 0, 0
	}

	if lo <= r.minKey {
		i1 = 0
	} else {
		i1 = sort.Search(r.capacity, func(i int) bool { return r.record(i).Key >= lo })
	}

	if hi >= r.maxKey {
		i2 = r.capacity
	} else {
		// one past the last index with key <= hi
		i2 = sort.Search(r.capacity, func(i int) bool { return r.record(i).Key > hi })
	}

	return i1, i2
}

// At returns the record at index i, used by disklevel when draining a
// run's full contents during a k-way merge.
func (r *Run) At(i int) kvpair.KVPair { return r.record(i) }

// MinKey and MaxKey report the run's observed bounds.
func (r *Run) MinKey() (kvpair.K, bool) { return r.minKey, r.haveBounds }
func (r *Run) MaxKey() (kvpair.K, bool) { return r.maxKey, r.haveBounds }

// Filter exposes the run's Bloom filter for level-level short-circuit
// checks.
func (r *Run) Filter() *bloom.Filter { return r.filter }
