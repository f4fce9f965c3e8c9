// Package skiplist implements the ordered in-memory run: a bounded,
// ordered multiset of KVPairs supporting insert-with-overwrite, point
// lookup, range scan, and full enumeration. Skiplist is a probabilistic
// leveled linked list in the shape of the original sLSM-Tree's
// skipList.hpp, rewritten idiomatically.
package skiplist

import (
	"math/rand"

	"github.com/nireo/kantadb/kvpair"
)

// Run is the interface both in-memory backings satisfy: the primary
// Skiplist and the gods/red-black-tree-backed TreeRun.
type Run interface {
	Insert(k kvpair.K, v kvpair.V)
	Lookup(k kvpair.K) (kvpair.V, bool)
	RangeScan(lo, hi kvpair.K) []kvpair.KVPair
	Enumerate() []kvpair.KVPair
	Count() int
	Min() (kvpair.K, bool)
	Max() (kvpair.K, bool)
}

const (
	maxLevel    = 16
	probability = 0.5
)

type node struct {
	key     kvpair.K
	value   kvpair.V
	forward []*node
}

// Skiplist is the primary Run implementation: a leveled linked
// structure with head/tail sentinels at KeyMin/KeyMax, matching the
// original implementation's min/max-bounded node layout.
type Skiplist struct {
	head     *node
	tail     *node
	level    int
	size     int
	min, max kvpair.K
	haveMin  bool
	rng      *rand.Rand
}

// New creates an empty skiplist. The caller is responsible for
// enforcing any capacity bound; Skiplist itself grows unbounded.
func New() *Skiplist {
	head := &node{key: kvpair.KeyMin, forward: make([]*node, maxLevel)}
	tail := &node{key: kvpair.KeyMax, forward: make([]*node, maxLevel)}
	for i := range head.forward {
		head.forward[i] = tail
	}

	return &Skiplist{
		head:  head,
		tail:  tail,
		level: 1,
		rng:   rand.New(rand.NewSource(rand.Int63())),
	}
}

func (s *Skiplist) randomLevel() int {
	lvl := 1
	for lvl < maxLevel && s.rng.Float64() < probability {
		lvl++
	}
	return lvl
}

// Insert overwrites the value if k is already present.
func (s *Skiplist) Insert(k kvpair.K, v kvpair.V) {
	update := make([]*node, maxLevel)
	cur := s.head
	for i := s.level - 1; i >= 0; i-- {
		for cur.forward[i].key < k {
			cur = cur.forward[i]
		}
		update[i] = cur
	}

	cur = cur.forward[0]
	if cur.key == k {
		cur.value = v
		s.trackBounds(k)
		return
	}

	lvl := s.randomLevel()
	if lvl > s.level {
		for i := s.level; i < lvl; i++ {
			update[i] = s.head
		}
		s.level = lvl
	}

	n := &node{key: k, value: v, forward: make([]*node, lvl)}
	for i := 0; i < lvl; i++ {
		n.forward[i] = update[i].forward[i]
		update[i].forward[i] = n
	}

	s.size++
	s.trackBounds(k)
}

func (s *Skiplist) trackBounds(k kvpair.K) {
	if !s.haveMin {
		s.min, s.max = k, k
		s.haveMin = true
		return
	}
	if k < s.min {
		s.min = k
	}
	if k > s.max {
		s.max = k
	}
}

// Lookup returns the value for k and whether it was found.
func (s *Skiplist) Lookup(k kvpair.K) (kvpair.V, bool) {
	cur := s.head
	for i := s.level - 1; i >= 0; i-- {
		for cur.forward[i].key < k {
			cur = cur.forward[i]
		}
	}
	cur = cur.forward[0]
	if cur.key == k {
		return cur.value, true
	}
	return 0, false
}

// RangeScan returns every pair with lo <= key < hi, in key order.
func (s *Skiplist) RangeScan(lo, hi kvpair.K) []kvpair.KVPair {
	var out []kvpair.KVPair
	cur := s.head
	for i := s.level - 1; i >= 0; i-- {
		for cur.forward[i].key < lo {
			cur = cur.forward[i]
		}
	}
	cur = cur.forward[0]
	for cur != s.tail && cur.key < hi {
		if cur.key >= lo {
			out = append(out, kvpair.KVPair{Key: cur.key, Value: cur.value})
		}
		cur = cur.forward[0]
	}
	return out
}

// Enumerate returns every pair in ascending key order.
func (s *Skiplist) Enumerate() []kvpair.KVPair {
	out := make([]kvpair.KVPair, 0, s.size)
	for cur := s.head.forward[0]; cur != s.tail; cur = cur.forward[0] {
		out = append(out, kvpair.KVPair{Key: cur.key, Value: cur.value})
	}
	return out
}

// Count returns the number of elements currently held.
func (s *Skiplist) Count() int { return s.size }

// Min returns the smallest key inserted so far.
func (s *Skiplist) Min() (kvpair.K, bool) { return s.min, s.haveMin }

// Max returns the largest key inserted so far.
func (s *Skiplist) Max() (kvpair.K, bool) { return s.max, s.haveMin }
